// Package repository defines the persistence ports consumed by every
// service in this module. Every method is tenant-scoped: a lookup with the
// wrong tenant_id returns not-found semantics, never the entity. Two
// realizations exist per port — internal/repository/memory (in-process,
// used by services tests and by default in-memory deployments) and
// internal/repository/postgres (database/sql + lib/pq) — both satisfying
// the shared contract-test suite under internal/repository/contracttest.
package repository

import (
	"context"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentquery"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrumentresult"
	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/domain/order"
	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/domain/resultdecision"
	"github.com/hedgehog/ivdmiddleware/internal/domain/review"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/domain/tenant"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
)

// Page is the stable-pagination cursor for list operations: created_at
// descending queue-operations requirement.
type Page struct {
	Limit  int
	Offset int
}

type SampleRepository interface {
	Create(ctx context.Context, s *sample.Sample) error
	GetByID(ctx context.Context, tenantID, id string) (*sample.Sample, error)
	GetByExternalLISID(ctx context.Context, tenantID, externalLISID string) (*sample.Sample, error)
	List(ctx context.Context, tenantID string, status *sample.Status, page Page) ([]*sample.Sample, int, error)
	Update(ctx context.Context, tenantID, id string, patch sample.Patch) (*sample.Sample, error)
	Delete(ctx context.Context, tenantID, id string) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, tenantID, id string) (*order.Order, error)
	GetByExternalLISOrderID(ctx context.Context, tenantID, externalID string) (*order.Order, error)
	ListBySample(ctx context.Context, tenantID, sampleID string) ([]*order.Order, error)
	ListPending(ctx context.Context, tenantID string) ([]*order.Order, error)
	Update(ctx context.Context, tenantID, id string, patch order.Patch) (*order.Order, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// ResultFilter narrows Result.List by verification/upload status, per the
// HTTP surface's `GET /results[?status&upload_status]`.
type ResultFilter struct {
	VerificationStatus *result.VerificationStatus
	UploadStatus       *result.UploadStatus
	SampleID           *string
	TestCode           *string
}

type ResultRepository interface {
	Create(ctx context.Context, r *result.Result) error
	GetByID(ctx context.Context, tenantID, id string) (*result.Result, error)
	GetByExternalLISResultID(ctx context.Context, tenantID, externalID string) (*result.Result, error)
	ListBySample(ctx context.Context, tenantID, sampleID string) ([]*result.Result, error)
	// ListPriorByTestCode supports the delta-check rule: results for the same
	// sample_id and test_code, excluding excludeID, created within lookback of
	// asOf, newest first.
	ListPriorByTestCode(ctx context.Context, tenantID, sampleID, testCode, excludeID string, lookback time.Duration, asOf time.Time) ([]*result.Result, error)
	List(ctx context.Context, tenantID string, filter ResultFilter, page Page) ([]*result.Result, int, error)
	// ListUploadEligible backs the upload loop's outbound projection,
	// oldest-first, capped at limit.
	ListUploadEligible(ctx context.Context, tenantID string, uploadVerified, uploadRejected bool, limit int) ([]*result.Result, error)
	// Update persists a result whose mutation has already been validated
	// against the immutability invariant by the caller (the domain type's
	// own methods enforce it); Update itself re-checks and fails with
	// apperrors.KindImmutable if verification_status is terminal and the
	// patch attempts to change it.
	Update(ctx context.Context, r *result.Result) error
}

type ReviewFilter struct {
	State          *review.State
	ReviewerUserID *string
	EscalatedOnly  bool
}

type ReviewRepository interface {
	Create(ctx context.Context, v *review.Review) error
	GetByID(ctx context.Context, tenantID, id string) (*review.Review, error)
	GetBySampleID(ctx context.Context, tenantID, sampleID string) (*review.Review, error)
	List(ctx context.Context, tenantID string, filter ReviewFilter, page Page) ([]*review.Review, int, error)
	Update(ctx context.Context, v *review.Review) error
}

type ResultDecisionRepository interface {
	Create(ctx context.Context, d *resultdecision.ResultDecision) error
	ListByReview(ctx context.Context, tenantID, reviewID string) ([]*resultdecision.ResultDecision, error)
	GetByReviewAndResult(ctx context.Context, tenantID, reviewID, resultID string) (*resultdecision.ResultDecision, error)
}

type AutoVerificationSettingsRepository interface {
	Create(ctx context.Context, s *verificationsettings.Settings) error
	GetByTestCode(ctx context.Context, tenantID, testCode string) (*verificationsettings.Settings, error)
	GetByTestCodes(ctx context.Context, tenantID string, testCodes []string) (map[string]*verificationsettings.Settings, error)
	List(ctx context.Context, tenantID string) ([]*verificationsettings.Settings, error)
	Update(ctx context.Context, tenantID, testCode string, patch verificationsettings.Patch) (*verificationsettings.Settings, error)
	Delete(ctx context.Context, tenantID, testCode string) error
}

type VerificationRuleRepository interface {
	Create(ctx context.Context, r *verificationrule.Rule) error
	GetByType(ctx context.Context, tenantID string, ruleType verificationrule.RuleType) (*verificationrule.Rule, error)
	List(ctx context.Context, tenantID string) ([]*verificationrule.Rule, error)
	SetEnabled(ctx context.Context, tenantID string, ruleType verificationrule.RuleType, enabled bool) (*verificationrule.Rule, error)
}

type LISConfigRepository interface {
	Create(ctx context.Context, c *lisconfig.LISConfig) error
	GetByTenant(ctx context.Context, tenantID string) (*lisconfig.LISConfig, error)
	Update(ctx context.Context, c *lisconfig.LISConfig) error
	// ListTenantIDs returns every tenant with a configured LIS integration,
	// for the background pull/upload/retry loops to sweep.
	ListTenantIDs(ctx context.Context) ([]string, error)
}

type InstrumentRepository interface {
	Create(ctx context.Context, i *instrument.Instrument) error
	GetByID(ctx context.Context, tenantID, id string) (*instrument.Instrument, error)
	GetByName(ctx context.Context, tenantID, name string) (*instrument.Instrument, error)
	GetByAPIToken(ctx context.Context, token string) (*instrument.Instrument, error)
	List(ctx context.Context, tenantID string, page Page) ([]*instrument.Instrument, int, error)
	Update(ctx context.Context, i *instrument.Instrument) error
	Delete(ctx context.Context, tenantID, id string) error
	// ListAllActive returns every active instrument across every tenant, for
	// the health reaper's periodic staleness sweep.
	ListAllActive(ctx context.Context) ([]*instrument.Instrument, error)
}

type InstrumentQueryRepository interface {
	Create(ctx context.Context, q *instrumentquery.InstrumentQuery) error
	ListByInstrument(ctx context.Context, tenantID, instrumentID string, page Page) ([]*instrumentquery.InstrumentQuery, int, error)
}

type InstrumentResultRepository interface {
	Create(ctx context.Context, r *instrumentresult.InstrumentResult) error
	GetByExternalID(ctx context.Context, tenantID, instrumentID, externalID string) (*instrumentresult.InstrumentResult, error)
	Update(ctx context.Context, r *instrumentresult.InstrumentResult) error
}

type TenantRepository interface {
	Create(ctx context.Context, t *tenant.Tenant) error
	GetByID(ctx context.Context, id string) (*tenant.Tenant, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, tenantID, id string) (*user.User, error)
	GetByEmail(ctx context.Context, tenantID, email string) (*user.User, error)
}
