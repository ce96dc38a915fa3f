package contracttest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

// ResultRepoSuite runs the behavioral contract every ResultRepository
// realization must satisfy.
func ResultRepoSuite(t *testing.T, repo repository.ResultRepository) {
	ctx := context.Background()

	newResult := func(tenantID, externalID, sampleID, testCode string) *result.Result {
		return &result.Result{
			TenantID: tenantID, ExternalLISResultID: externalID, SampleID: sampleID,
			OrderID: "order-1", TestCode: testCode, TestName: "Glucose", Value: "95", Unit: "mg/dL",
		}
	}

	t.Run("create defaults pending statuses", func(t *testing.T) {
		r := newResult("tenant-a", "res-1", "sample-1", "GLU")
		require.NoError(t, repo.Create(ctx, r))
		assert.Equal(t, result.VerificationPending, r.VerificationStatus)
		assert.Equal(t, result.UploadPending, r.UploadStatus)
	})

	t.Run("terminal verification status cannot be overwritten", func(t *testing.T) {
		r := newResult("tenant-b", "res-2", "sample-2", "GLU")
		require.NoError(t, repo.Create(ctx, r))

		fetched, err := repo.GetByID(ctx, "tenant-b", r.ID)
		require.NoError(t, err)
		fetched.VerificationStatus = result.VerificationVerified
		require.NoError(t, repo.Update(ctx, fetched))

		again, err := repo.GetByID(ctx, "tenant-b", r.ID)
		require.NoError(t, err)
		again.VerificationStatus = result.VerificationRejected
		err = repo.Update(ctx, again)
		assert.True(t, apperrors.Is(err, apperrors.KindImmutable))
	})

	t.Run("list prior by test code excludes self and out-of-window results", func(t *testing.T) {
		old := newResult("tenant-c", "res-3", "sample-3", "K")
		require.NoError(t, repo.Create(ctx, old))

		recent := newResult("tenant-c", "res-4", "sample-3", "K")
		require.NoError(t, repo.Create(ctx, recent))

		prior, err := repo.ListPriorByTestCode(ctx, "tenant-c", "sample-3", "K", recent.ID, 30*24*time.Hour, time.Now())
		require.NoError(t, err)
		require.Len(t, prior, 1)
		assert.Equal(t, old.ID, prior[0].ID)

		outOfWindow, err := repo.ListPriorByTestCode(ctx, "tenant-c", "sample-3", "K", recent.ID, 30*24*time.Hour, time.Now().Add(60*24*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, outOfWindow)
	})

	t.Run("upload eligible projects only pending-upload verified results when enabled", func(t *testing.T) {
		r := newResult("tenant-d", "res-5", "sample-4", "GLU")
		require.NoError(t, repo.Create(ctx, r))
		r.VerificationStatus = result.VerificationVerified
		require.NoError(t, repo.Update(ctx, r))

		eligible, err := repo.ListUploadEligible(ctx, "tenant-d", true, false, 10)
		require.NoError(t, err)
		require.Len(t, eligible, 1)
		assert.Equal(t, r.ID, eligible[0].ID)

		none, err := repo.ListUploadEligible(ctx, "tenant-d", false, false, 10)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("list filters by verification status", func(t *testing.T) {
		r := newResult("tenant-e", "res-6", "sample-5", "NA")
		require.NoError(t, repo.Create(ctx, r))

		needsReview := result.VerificationNeedsReview
		filter := repository.ResultFilter{VerificationStatus: &needsReview}
		out, total, err := repo.List(ctx, "tenant-e", filter, repository.Page{})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, out)
	})
}
