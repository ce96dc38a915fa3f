package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hedgehog/ivdmiddleware/internal/authprovider"
	"github.com/hedgehog/ivdmiddleware/internal/domain/user"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
	"github.com/hedgehog/ivdmiddleware/internal/instrumentintegration"
	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
	"github.com/hedgehog/ivdmiddleware/internal/metrics"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/reviewworkflow"
	"github.com/hedgehog/ivdmiddleware/internal/settingsservice"
	"github.com/hedgehog/ivdmiddleware/internal/verification"
)

// Deps is every collaborator the HTTP surface needs. Constructed once in
// main and threaded into NewRouter — never a package-level global.
type Deps struct {
	Logger *zap.SugaredLogger
	Metrics *metrics.Collector

	Environment string
	CORSOrigins []string

	Auth     authprovider.AuthProvider
	Accounts *authprovider.AccountService

	Samples repository.SampleRepository
	Results repository.ResultRepository

	LISConfig *lisintegration.ConfigService

	Instruments *instrumentintegration.InstrumentService
	Query       *instrumentintegration.QueryService
	Submission  *instrumentintegration.ResultService

	Verification *verification.Service
	Settings     *settingsservice.Service
	Reviews      *reviewworkflow.Service

	Hub *ReviewHub
}

// requestTimeout bounds how long any single handler may run before the
// caller gets a 504, independent of the outbound adapter timeouts.
const requestTimeout = 30 * time.Second

// NewRouter builds the full mux.Router with middleware chain RequestID →
// ErrorRecovery → Metrics → Logging → Timeout → Compression → CORS, and
// registers every route group. Instrument-facing routes additionally carry
// RateLimiting, since those endpoints are reachable without a bearer token.
func NewRouter(d *Deps) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ErrorRecovery)
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compression)
	r.Use(middleware.CORS(d.CORSOrigins))

	r.HandleFunc("/auth/login", d.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/tenants/with-admin", d.handleCreateTenantWithAdmin).Methods(http.MethodPost)

	instruments := r.NewRoute().Subrouter()
	instruments.Use(middleware.RateLimiting)
	instruments.HandleFunc("/instruments/query-host", d.handleInstrumentQueryHost).Methods(http.MethodPost)
	instruments.HandleFunc("/instruments/results", d.handleInstrumentSubmitResult).Methods(http.MethodPost)

	r.Handle("/metrics", d.Metrics.Handler())

	authed := r.NewRoute().Subrouter()
	authed.Use(middleware.Authentication(d.Auth))

	authed.HandleFunc("/auth/me", d.handleMe).Methods(http.MethodGet)
	authed.HandleFunc("/users", d.handleCreateUser).Methods(http.MethodPost)

	authed.HandleFunc("/samples", d.handleListSamples).Methods(http.MethodGet)
	authed.HandleFunc("/samples", d.handleCreateSample).Methods(http.MethodPost)
	authed.HandleFunc("/samples/{id}", d.handleGetSample).Methods(http.MethodGet)
	authed.HandleFunc("/samples/{id}", d.handleUpdateSample).Methods(http.MethodPatch)

	authed.HandleFunc("/results", d.handleListResults).Methods(http.MethodGet)
	authed.HandleFunc("/results/{id}", d.handleGetResult).Methods(http.MethodGet)
	authed.HandleFunc("/results/{id}/verify", d.handleVerifyResult).Methods(http.MethodPost)

	authed.HandleFunc("/lis/config", d.handleGetLISConfig).Methods(http.MethodGet)
	authed.HandleFunc("/lis/config", d.handleCreateLISConfig).Methods(http.MethodPost)
	authed.HandleFunc("/lis/config/upload-settings", d.handleUpdateUploadSettings).Methods(http.MethodPut)
	authed.HandleFunc("/lis/connection-status", d.handleTestLISConnection).Methods(http.MethodPost)

	authed.HandleFunc("/instruments", d.handleListInstruments).Methods(http.MethodGet)
	authed.HandleFunc("/instruments/register", d.handleRegisterInstrument).Methods(http.MethodPost)
	authed.HandleFunc("/instruments/{id}", d.handleGetInstrument).Methods(http.MethodGet)
	authed.HandleFunc("/instruments/{id}", d.handleUpdateInstrument).Methods(http.MethodPut)
	authed.HandleFunc("/instruments/{id}", d.handleDeactivateInstrument).Methods(http.MethodDelete)
	authed.HandleFunc("/instruments/{id}/regenerate-token", d.handleRegenerateInstrumentToken).Methods(http.MethodPost)

	admin := authed.NewRoute().Subrouter()
	admin.Use(middleware.RequireRole(user.RoleAdmin))
	admin.HandleFunc("/api/v1/verification", d.handleListSettings).Methods(http.MethodGet)
	admin.HandleFunc("/api/v1/verification", d.handleCreateSettings).Methods(http.MethodPost)
	admin.HandleFunc("/api/v1/verification/rules", d.handleToggleRule).Methods(http.MethodPut)
	admin.HandleFunc("/api/v1/verification/{test_code}", d.handleGetSettings).Methods(http.MethodGet)
	admin.HandleFunc("/api/v1/verification/{test_code}", d.handleUpdateSettings).Methods(http.MethodPut)
	admin.HandleFunc("/api/v1/verification/{test_code}", d.handleDeleteSettings).Methods(http.MethodDelete)

	reviewer := authed.NewRoute().Subrouter()
	reviewer.Use(middleware.RequireRole(user.RoleReviewer))
	reviewer.HandleFunc("/api/v1/reviews/queue", d.handleReviewQueue).Methods(http.MethodGet)
	reviewer.HandleFunc("/api/v1/reviews/stream", d.handleReviewStream).Methods(http.MethodGet)
	reviewer.HandleFunc("/api/v1/reviews/{id}", d.handleGetReview).Methods(http.MethodGet)
	reviewer.HandleFunc("/api/v1/reviews", d.handleCreateReview).Methods(http.MethodPost)
	reviewer.HandleFunc("/api/v1/reviews/{id}/approve", d.handleApproveSample).Methods(http.MethodPost)
	reviewer.HandleFunc("/api/v1/reviews/{id}/reject", d.handleRejectSample).Methods(http.MethodPost)
	reviewer.HandleFunc("/api/v1/reviews/{id}/approve-result", d.handleApproveResult).Methods(http.MethodPost)
	reviewer.HandleFunc("/api/v1/reviews/{id}/reject-result", d.handleRejectResult).Methods(http.MethodPost)
	reviewer.HandleFunc("/api/v1/reviews/{id}/escalate", d.handleEscalateReview).Methods(http.MethodPost)

	return r
}

func (d *Deps) writeErr(w http.ResponseWriter, err error) {
	WriteError(w, d.Logger, d.Environment, err)
}
