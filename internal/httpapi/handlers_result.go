package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hedgehog/ivdmiddleware/internal/domain/result"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
)

func (d *Deps) handleListResults(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	q := r.URL.Query()
	var filter repository.ResultFilter
	if v := q.Get("status"); v != "" {
		s := result.VerificationStatus(v)
		filter.VerificationStatus = &s
	}
	if v := q.Get("upload_status"); v != "" {
		s := result.UploadStatus(v)
		filter.UploadStatus = &s
	}
	if v := q.Get("sample_id"); v != "" {
		filter.SampleID = &v
	}
	if v := q.Get("test_code"); v != "" {
		filter.TestCode = &v
	}

	results, total, err := d.Results.List(r.Context(), p.TenantID, filter, pageFromQuery(r))
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"results": results, "total": total})
}

func (d *Deps) handleGetResult(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	res, err := d.Results.GetByID(r.Context(), p.TenantID, id)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

// handleVerifyResult re-runs the verification engine against an existing
// result: the verification service's VerifyResult operation, exposed for
// manual re-triggering (e.g. after a settings change).
func (d *Deps) handleVerifyResult(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	res, err := d.Verification.VerifyResult(r.Context(), p.TenantID, id)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}
