// Package contracttest holds repository-port behavior suites shared by every
// realization (memory, postgres) of a given port, so the two can never drift
// on tenant isolation, uniqueness, or not-found semantics. Each suite takes a
// fresh, empty repository and a *testing.T; memory_test.go exercises every
// suite against internal/repository/memory directly, and the postgres
// package's own _test.go (build-tag gated on a live database) calls the same
// suite against its realizations.
package contracttest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// SampleRepoSuite runs the behavioral contract every SampleRepository
// realization must satisfy.
func SampleRepoSuite(t *testing.T, repo repository.SampleRepository) {
	ctx := context.Background()

	t.Run("create and get round trip", func(t *testing.T) {
		s := &sample.Sample{TenantID: "tenant-a", ExternalLISID: "ext-1", PatientID: "pat-1", SpecimenType: "blood"}
		require.NoError(t, repo.Create(ctx, s))
		assert.NotEmpty(t, s.ID)
		assert.Equal(t, sample.StatusPending, s.Status)

		got, err := repo.GetByID(ctx, "tenant-a", s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ExternalLISID, got.ExternalLISID)
	})

	t.Run("wrong tenant lookup is not found", func(t *testing.T) {
		s := &sample.Sample{TenantID: "tenant-b", ExternalLISID: "ext-2", PatientID: "pat-2", SpecimenType: "urine"}
		require.NoError(t, repo.Create(ctx, s))

		_, err := repo.GetByID(ctx, "tenant-other", s.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("duplicate external lis id within tenant conflicts", func(t *testing.T) {
		s1 := &sample.Sample{TenantID: "tenant-c", ExternalLISID: "dup-1", PatientID: "pat-3", SpecimenType: "blood"}
		require.NoError(t, repo.Create(ctx, s1))

		s2 := &sample.Sample{TenantID: "tenant-c", ExternalLISID: "dup-1", PatientID: "pat-4", SpecimenType: "blood"}
		err := repo.Create(ctx, s2)
		assert.True(t, apperrors.Is(err, apperrors.KindConflict))
	})

	t.Run("same external lis id across tenants does not conflict", func(t *testing.T) {
		s1 := &sample.Sample{TenantID: "tenant-d1", ExternalLISID: "shared-1", PatientID: "pat-5", SpecimenType: "blood"}
		require.NoError(t, repo.Create(ctx, s1))

		s2 := &sample.Sample{TenantID: "tenant-d2", ExternalLISID: "shared-1", PatientID: "pat-6", SpecimenType: "blood"}
		assert.NoError(t, repo.Create(ctx, s2))
	})

	t.Run("update applies patch and rejects wrong tenant", func(t *testing.T) {
		s := &sample.Sample{TenantID: "tenant-e", ExternalLISID: "ext-3", PatientID: "pat-7", SpecimenType: "blood"}
		require.NoError(t, repo.Create(ctx, s))

		newStatus := sample.StatusVerified
		updated, err := repo.Update(ctx, "tenant-e", s.ID, sample.Patch{Status: &newStatus})
		require.NoError(t, err)
		assert.Equal(t, sample.StatusVerified, updated.Status)

		_, err = repo.Update(ctx, "tenant-other", s.ID, sample.Patch{Status: &newStatus})
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("delete then get is not found", func(t *testing.T) {
		s := &sample.Sample{TenantID: "tenant-f", ExternalLISID: "ext-4", PatientID: "pat-8", SpecimenType: "blood"}
		require.NoError(t, repo.Create(ctx, s))
		require.NoError(t, repo.Delete(ctx, "tenant-f", s.ID))

		_, err := repo.GetByID(ctx, "tenant-f", s.ID)
		assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
	})

	t.Run("list filters by tenant and status", func(t *testing.T) {
		pending := sample.StatusPending
		for i := 0; i < 3; i++ {
			require.NoError(t, repo.Create(ctx, &sample.Sample{
				TenantID: "tenant-g", ExternalLISID: "list-" + string(rune('a'+i)),
				PatientID: "pat", SpecimenType: "blood",
			}))
		}
		out, total, err := repo.List(ctx, "tenant-g", &pending, repository.Page{})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, out, 3)
	})
}
