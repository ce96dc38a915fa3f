package instrumentintegration_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/domain/order"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
	"github.com/hedgehog/ivdmiddleware/internal/instrumentintegration"
	"github.com/hedgehog/ivdmiddleware/internal/repository/memory"
	"github.com/hedgehog/ivdmiddleware/internal/reviewworkflow"
	"github.com/hedgehog/ivdmiddleware/internal/verification"
)

const tenantID = "tenant-a"

type harness struct {
	instruments *instrumentintegration.InstrumentService
	query       *instrumentintegration.QueryService
	result      *instrumentintegration.ResultService
	orders      *memory.OrderRepository
	samples     *memory.SampleRepository
	results     *memory.ResultRepository
	settings    *memory.VerificationSettingsRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	instrumentRepo := memory.NewInstrumentRepository()
	queryRepo := memory.NewInstrumentQueryRepository()
	instrumentResultRepo := memory.NewInstrumentResultRepository()
	orders := memory.NewOrderRepository()
	samples := memory.NewSampleRepository()
	results := memory.NewResultRepository()
	reviews := memory.NewReviewRepository()
	decisions := memory.NewResultDecisionRepository()
	settingsRepo := memory.NewVerificationSettingsRepository()
	rulesRepo := memory.NewVerificationRuleRepository()

	for _, seed := range verificationrule.DefaultSeed {
		rule := seed
		rule.TenantID = tenantID
		require.NoError(t, rulesRepo.Create(context.Background(), &rule))
	}

	engine := verification.NewEngine(settingsRepo, rulesRepo, results)
	reviewSvc := reviewworkflow.NewService(reviews, decisions, results, samples)
	verificationSvc := verification.NewService(engine, results, reviewSvc)

	instruments := instrumentintegration.NewInstrumentService(instrumentRepo)
	query := instrumentintegration.NewQueryService(instruments, instrumentRepo, orders, samples, queryRepo, nil)
	resultSvc := instrumentintegration.NewResultService(instruments, instrumentRepo, orders, results, instrumentResultRepo, verificationSvc, nil)

	return &harness{instruments: instruments, query: query, result: resultSvc, orders: orders, samples: samples, results: results, settings: settingsRepo}
}

func activeInstrument(t *testing.T, h *harness) *instrument.Instrument {
	t.Helper()
	ctx := context.Background()
	inst, err := h.instruments.CreateInstrument(ctx, instrumentintegration.CreateInstrumentInput{
		TenantID:       tenantID,
		Name:           "analyzer-1",
		InstrumentType: "chemistry",
	})
	require.NoError(t, err)

	active := instrument.StatusActive
	inst, err = h.instruments.UpdateInstrument(ctx, tenantID, inst.ID, instrumentintegration.UpdateInstrumentInput{Status: &active})
	require.NoError(t, err)
	return inst
}

func seedOrderForInstrument(t *testing.T, h *harness, instrumentID, testCode string) *order.Order {
	t.Helper()
	ctx := context.Background()

	sm := &sample.Sample{
		TenantID:       tenantID,
		ExternalLISID:  "sample-ext-1",
		PatientID:      "pat-1",
		SpecimenType:   "blood",
		CollectionDate: time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC),
		ReceivedDate:   time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, h.samples.Create(ctx, sm))

	o := &order.Order{
		TenantID:             tenantID,
		ExternalLISOrderID:   "order-ext-1",
		SampleID:             sm.ID,
		PatientID:            "pat-1",
		TestCodes:            []string{testCode},
		Priority:             order.PriorityRoutine,
		AssignedInstrumentID: &instrumentID,
		Status:               order.StatusPending,
	}
	require.NoError(t, h.orders.Create(ctx, o))
	return o
}

func seedPermissiveSettings(t *testing.T, repo *memory.VerificationSettingsRepository, testCode string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &verificationsettings.Settings{
		TenantID: tenantID,
		TestCode: testCode,
	}))
}

func TestCreateInstrumentAutoGeneratesTokenAndInactiveStatus(t *testing.T) {
	h := newHarness(t)
	inst, err := h.instruments.CreateInstrument(context.Background(), instrumentintegration.CreateInstrumentInput{
		TenantID:       tenantID,
		Name:           "analyzer-2",
		InstrumentType: "hematology",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, inst.APIToken)
	assert.GreaterOrEqual(t, len(inst.APIToken), 32)
	assert.Equal(t, instrument.StatusInactive, inst.Status)
}

func TestHostQueryRejectsInactiveInstrument(t *testing.T) {
	h := newHarness(t)
	inst, err := h.instruments.CreateInstrument(context.Background(), instrumentintegration.CreateInstrumentInput{
		TenantID: tenantID,
		Name:     "analyzer-3",
	})
	require.NoError(t, err)

	_, err = h.query.HostQuery(context.Background(), instrumentintegration.HostQueryInput{Token: inst.APIToken})
	require.Error(t, err)
}

func TestHostQueryReturnsAssignedPendingOrdersAndWritesAudit(t *testing.T) {
	h := newHarness(t)
	inst := activeInstrument(t, h)
	seedOrderForInstrument(t, h, inst.ID, "WBC")

	out, err := h.query.HostQuery(context.Background(), instrumentintegration.HostQueryInput{Token: inst.APIToken})
	require.NoError(t, err)
	require.Len(t, out.Orders, 1)
	assert.Equal(t, "WBC", out.Orders[0].TestCodes[0])

	got, err := h.instruments.GetInstrument(context.Background(), tenantID, inst.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastSuccessfulQueryAt)
	assert.Equal(t, 0, got.ConnectionFailureCount)
}

func TestSubmitResultMapsToCanonicalResultAndTriggersVerification(t *testing.T) {
	h := newHarness(t)
	inst := activeInstrument(t, h)
	seedOrderForInstrument(t, h, inst.ID, "WBC")
	seedPermissiveSettings(t, h.settings, "WBC")

	out, err := h.result.SubmitResult(context.Background(), instrumentintegration.SubmitResultInput{
		Token:                      inst.APIToken,
		ExternalInstrumentResultID: "inst-result-3",
		TestCode:                   "WBC",
		Value:                      "5.0",
	})
	require.NoError(t, err)
	require.Equal(t, "accepted", out.Status)
	assert.True(t, out.VerificationQueued)

	got, err := h.results.GetByID(context.Background(), tenantID, out.ResultID)
	require.NoError(t, err)
	assert.Equal(t, result.VerificationVerified, got.VerificationStatus)
}

func TestSubmitResultDuplicateIsIdempotent(t *testing.T) {
	h := newHarness(t)
	inst := activeInstrument(t, h)
	seedOrderForInstrument(t, h, inst.ID, "WBC")

	in := instrumentintegration.SubmitResultInput{
		Token:                      inst.APIToken,
		ExternalInstrumentResultID: "inst-result-1",
		TestCode:                   "WBC",
		Value:                      "5.0",
	}

	first, err := h.result.SubmitResult(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, "accepted", first.Status)

	second, err := h.result.SubmitResult(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ResultID, second.ResultID)
	assert.Equal(t, "accepted", second.Status)
	assert.False(t, second.VerificationQueued)
}

func TestSubmitResultRejectsWhenNoMatchingOrder(t *testing.T) {
	h := newHarness(t)
	inst := activeInstrument(t, h)

	out, err := h.result.SubmitResult(context.Background(), instrumentintegration.SubmitResultInput{
		Token:                      inst.APIToken,
		ExternalInstrumentResultID: "inst-result-2",
		TestCode:                   "GLU",
		Value:                      "90",
	})
	require.NoError(t, err)
	assert.Equal(t, "rejected", out.Status)
	assert.NotEmpty(t, out.ErrorMessage)
}
