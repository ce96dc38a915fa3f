package contracttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/order"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// OrderRepoSuite runs the behavioral contract every OrderRepository
// realization must satisfy.
func OrderRepoSuite(t *testing.T, repo repository.OrderRepository) {
	ctx := context.Background()

	t.Run("create and get round trip", func(t *testing.T) {
		o := &order.Order{
			TenantID: "tenant-a", ExternalLISOrderID: "ord-1", SampleID: "sample-1",
			PatientID: "pat-1", TestCodes: []string{"GLU", "NA"}, Priority: order.PriorityRoutine,
		}
		require.NoError(t, repo.Create(ctx, o))
		assert.NotEmpty(t, o.ID)
		assert.Equal(t, order.StatusPending, o.Status)

		got, err := repo.GetByID(ctx, "tenant-a", o.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"GLU", "NA"}, got.TestCodes)
	})

	t.Run("wrong tenant lookup is not found", func(t *testing.T) {
		o := &order.Order{
			TenantID: "tenant-b", ExternalLISOrderID: "ord-2", SampleID: "sample-2",
			PatientID: "pat-2", TestCodes: []string{"GLU"}, Priority: order.PriorityStat,
		}
		require.NoError(t, repo.Create(ctx, o))

		_, err := repo.GetByID(ctx, "tenant-other", o.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("list pending filters by status and tenant", func(t *testing.T) {
		o1 := &order.Order{
			TenantID: "tenant-c", ExternalLISOrderID: "ord-3", SampleID: "sample-3",
			PatientID: "pat-3", TestCodes: []string{"GLU"}, Priority: order.PriorityRoutine,
		}
		require.NoError(t, repo.Create(ctx, o1))

		completed := order.StatusCompleted
		o2 := &order.Order{
			TenantID: "tenant-c", ExternalLISOrderID: "ord-4", SampleID: "sample-4",
			PatientID: "pat-4", TestCodes: []string{"GLU"}, Priority: order.PriorityRoutine,
		}
		require.NoError(t, repo.Create(ctx, o2))
		_, err := repo.Update(ctx, "tenant-c", o2.ID, order.Patch{Status: &completed})
		require.NoError(t, err)

		pending, err := repo.ListPending(ctx, "tenant-c")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, o1.ID, pending[0].ID)
	})

	t.Run("assignment patch sets instrument and ends assignability", func(t *testing.T) {
		o := &order.Order{
			TenantID: "tenant-d", ExternalLISOrderID: "ord-5", SampleID: "sample-5",
			PatientID: "pat-5", TestCodes: []string{"GLU"}, Priority: order.PriorityRoutine,
		}
		require.NoError(t, repo.Create(ctx, o))
		assert.True(t, o.CanAssignToInstrument())

		instrumentID := "instrument-1"
		inProgress := order.StatusInProgress
		updated, err := repo.Update(ctx, "tenant-d", o.ID, order.Patch{
			AssignedInstrumentID: &instrumentID,
			Status:               &inProgress,
		})
		require.NoError(t, err)
		assert.Equal(t, &instrumentID, updated.AssignedInstrumentID)
		assert.False(t, updated.CanAssignToInstrument())
	})

	t.Run("delete then list by sample omits it", func(t *testing.T) {
		o := &order.Order{
			TenantID: "tenant-e", ExternalLISOrderID: "ord-6", SampleID: "sample-6",
			PatientID: "pat-6", TestCodes: []string{"GLU"}, Priority: order.PriorityRoutine,
		}
		require.NoError(t, repo.Create(ctx, o))
		require.NoError(t, repo.Delete(ctx, "tenant-e", o.ID))

		out, err := repo.ListBySample(ctx, "tenant-e", "sample-6")
		require.NoError(t, err)
		assert.Empty(t, out)
	})
}
