package reviewworkflow_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/review"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"

	domresult "github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
	"github.com/hedgehog/ivdmiddleware/internal/reviewworkflow"
)

const tenantID = "tenant-a"

// seedSeq keeps external IDs unique when one test seeds several samples.
var seedSeq int

func newTestService() (*reviewworkflow.Service, *memory.SampleRepository, *memory.ResultRepository) {
	samples := memory.NewSampleRepository()
	results := memory.NewResultRepository()
	reviews := memory.NewReviewRepository()
	decisions := memory.NewResultDecisionRepository()
	return reviewworkflow.NewService(reviews, decisions, results, samples), samples, results
}

func seedSampleWithResults(t *testing.T, samples *memory.SampleRepository, results *memory.ResultRepository, n int) (*sample.Sample, []*domresult.Result) {
	t.Helper()
	ctx := context.Background()
	seedSeq++
	s := &sample.Sample{TenantID: tenantID, ExternalLISID: fmt.Sprintf("ext-%s-%d", t.Name(), seedSeq), PatientID: "pat-1", SpecimenType: "blood"}
	require.NoError(t, samples.Create(ctx, s))

	rs := make([]*domresult.Result, 0, n)
	for i := 0; i < n; i++ {
		r := &domresult.Result{
			TenantID:            tenantID,
			ExternalLISResultID: s.ExternalLISID + "-r" + string(rune('a'+i)),
			SampleID:            s.ID,
			TestCode:            "WBC",
			Value:               "5.0",
			VerificationStatus:  domresult.VerificationNeedsReview,
		}
		require.NoError(t, results.Create(ctx, r))
		rs = append(rs, r)
	}
	return s, rs
}

func TestApproveSampleApprovesAllAndCompletesReview(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s, _ := seedSampleWithResults(t, samples, results, 2)

	r, err := svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, review.StatePending, r.State)

	updated, err := svc.ApproveSample(ctx, tenantID, r.ID, "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, review.StateApproved, updated.State)
	require.NotNil(t, updated.Decision)
	assert.Equal(t, review.DecisionApproveAll, *updated.Decision)

	gotSample, err := samples.GetByID(ctx, tenantID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sample.StatusVerified, gotSample.Status)
}

func TestApproveResultPartiallyLeavesReviewOpenUntilLastDecision(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s, rs := seedSampleWithResults(t, samples, results, 2)

	r, err := svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.NoError(t, err)

	comment := "looks fine"
	_, err = svc.ApproveResult(ctx, tenantID, r.ID, rs[0].ID, "user-1", &comment)
	require.NoError(t, err)

	notYetDone, err := svc.GetReview(ctx, tenantID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StatePending, notYetDone.Review.State)

	rejectComment := "out of range"
	_, err = svc.RejectResult(ctx, tenantID, r.ID, rs[1].ID, "user-1", &rejectComment)
	require.NoError(t, err)

	done, err := svc.GetReview(ctx, tenantID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, review.StateApproved, done.Review.State)
	require.NotNil(t, done.Review.Decision)
	assert.Equal(t, review.DecisionPartial, *done.Review.Decision)
	assert.Len(t, done.Decisions, 2)

	gotSample, err := samples.GetByID(ctx, tenantID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, sample.StatusVerified, gotSample.Status)
}

func TestEscalateThenApproveIsLegalRejectAfterApproveIsNot(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s, _ := seedSampleWithResults(t, samples, results, 1)

	r, err := svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.NoError(t, err)

	escalated, err := svc.EscalateReview(ctx, tenantID, r.ID, "user-1", "ambiguous flag pattern")
	require.NoError(t, err)
	assert.Equal(t, review.StateEscalated, escalated.State)
	require.NotNil(t, escalated.EscalationReason)

	approved, err := svc.ApproveSample(ctx, tenantID, r.ID, "pathologist-1", nil)
	require.NoError(t, err)
	assert.Equal(t, review.StateApproved, approved.State)

	rejectComment := "second opinion disagrees"
	_, err = svc.RejectSample(ctx, tenantID, r.ID, "user-2", &rejectComment)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindImmutable, apperrors.KindOf(err))
}

func TestCreateReviewRejectsDuplicateForSameSample(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s, _ := seedSampleWithResults(t, samples, results, 1)

	_, err := svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.NoError(t, err)

	_, err = svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
}

func TestRejectResultOnWrongSampleIsInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s1, _ := seedSampleWithResults(t, samples, results, 1)
	_, other := seedSampleWithResults(t, samples, results, 1)

	r, err := svc.CreateReview(ctx, tenantID, s1.ID, nil)
	require.NoError(t, err)

	comments := "result belongs to another sample"
	_, err = svc.RejectResult(ctx, tenantID, r.ID, other[0].ID, "user-1", &comments)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}

func TestRejectResultRequiresNonEmptyComments(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s, rs := seedSampleWithResults(t, samples, results, 1)

	r, err := svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.NoError(t, err)

	blank := "   "
	_, err = svc.RejectResult(ctx, tenantID, r.ID, rs[0].ID, "user-1", &blank)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))

	comments := "reference range violated on repeat"
	_, err = svc.RejectResult(ctx, tenantID, r.ID, rs[0].ID, "user-1", &comments)
	require.NoError(t, err)
}

func TestRejectSampleRequiresNonEmptyComments(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s, _ := seedSampleWithResults(t, samples, results, 1)

	r, err := svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.NoError(t, err)

	_, err = svc.RejectSample(ctx, tenantID, r.ID, "user-1", nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}

func TestEscalateReviewRequiresNonEmptyReason(t *testing.T) {
	ctx := context.Background()
	svc, samples, results := newTestService()
	s, _ := seedSampleWithResults(t, samples, results, 1)

	r, err := svc.CreateReview(ctx, tenantID, s.ID, nil)
	require.NoError(t, err)

	_, err = svc.EscalateReview(ctx, tenantID, r.ID, "user-1", "   ")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInvalidInput, apperrors.KindOf(err))
}
