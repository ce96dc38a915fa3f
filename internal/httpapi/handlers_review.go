package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/authprovider"
	"github.com/hedgehog/ivdmiddleware/internal/domain/review"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

func (d *Deps) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	q := r.URL.Query()
	var filter repository.ReviewFilter
	if v := q.Get("state"); v != "" {
		s := review.State(v)
		filter.State = &s
	}
	filter.EscalatedOnly = q.Get("escalated") == "true"

	reviews, total, err := d.Reviews.ListQueue(r.Context(), p.TenantID, filter, pageFromQuery(r))
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"reviews": reviews, "total": total})
}

func (d *Deps) handleGetReview(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	detail, err := d.Reviews.GetReview(r.Context(), p.TenantID, id)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, detail)
}

type createReviewRequest struct {
	SampleID       string  `json:"sample_id"`
	ReviewerUserID *string `json:"reviewer_user_id"`
}

func (d *Deps) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	var req createReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	rv, err := d.Reviews.CreateReview(r.Context(), p.TenantID, req.SampleID, req.ReviewerUserID)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusCreated, rv)
}

type reviewDecisionRequest struct {
	Comments *string `json:"comments"`
}

func (d *Deps) handleApproveSample(w http.ResponseWriter, r *http.Request) {
	d.decideReview(w, r, func(p authprovider.Principal, reviewID string, comments *string) (interface{}, error) {
		return d.Reviews.ApproveSample(r.Context(), p.TenantID, reviewID, p.UserID, comments)
	})
}

func (d *Deps) handleRejectSample(w http.ResponseWriter, r *http.Request) {
	d.decideReview(w, r, func(p authprovider.Principal, reviewID string, comments *string) (interface{}, error) {
		return d.Reviews.RejectSample(r.Context(), p.TenantID, reviewID, p.UserID, comments)
	})
}

type resultDecisionRequest struct {
	ResultID string  `json:"result_id"`
	Comments *string `json:"comments"`
}

func (d *Deps) handleApproveResult(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	reviewID := mux.Vars(r)["id"]
	var req resultDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	decision, err := d.Reviews.ApproveResult(r.Context(), p.TenantID, reviewID, req.ResultID, p.UserID, req.Comments)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, decision)
}

func (d *Deps) handleRejectResult(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	reviewID := mux.Vars(r)["id"]
	var req resultDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	decision, err := d.Reviews.RejectResult(r.Context(), p.TenantID, reviewID, req.ResultID, p.UserID, req.Comments)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, decision)
}

type escalateReviewRequest struct {
	Reason string `json:"reason"`
}

func (d *Deps) handleEscalateReview(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	reviewID := mux.Vars(r)["id"]
	var req escalateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	rv, err := d.Reviews.EscalateReview(r.Context(), p.TenantID, reviewID, p.UserID, req.Reason)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	if d.Hub != nil {
		d.Hub.Broadcast(p.TenantID, rv)
	}
	respond(w, http.StatusOK, rv)
}

func (d *Deps) decideReview(w http.ResponseWriter, r *http.Request, fn func(p authprovider.Principal, reviewID string, comments *string) (interface{}, error)) {
	p, ok := middleware.Principal(r.Context())
	if !ok {
		d.writeErr(w, apperrors.Unauthorized("not authenticated"))
		return
	}
	reviewID := mux.Vars(r)["id"]
	var req reviewDecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	rv, err := fn(p, reviewID, req.Comments)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	if d.Hub != nil {
		d.Hub.Broadcast(p.TenantID, rv)
	}
	respond(w, http.StatusOK, rv)
}
