package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/sample"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
)

type createSampleRequest struct {
	ExternalLISID  string    `json:"external_lis_id"`
	PatientID      string    `json:"patient_id"`
	SpecimenType   string    `json:"specimen_type"`
	CollectionDate time.Time `json:"collection_date"`
	ReceivedDate   time.Time `json:"received_date"`
}

func (d *Deps) handleCreateSample(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.Principal(r.Context())
	if !ok {
		d.writeErr(w, apperrors.Unauthorized("not authenticated"))
		return
	}
	var req createSampleRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	s := &sample.Sample{
		TenantID:       p.TenantID,
		ExternalLISID:  req.ExternalLISID,
		PatientID:      req.PatientID,
		SpecimenType:   req.SpecimenType,
		CollectionDate: req.CollectionDate,
		ReceivedDate:   req.ReceivedDate,
		Status:         sample.StatusPending,
	}
	if err := s.Validate(); err != nil {
		d.writeErr(w, apperrors.Wrap(apperrors.KindInvalidInput, "invalid sample", err))
		return
	}
	if err := d.Samples.Create(r.Context(), s); err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusCreated, s)
}

func (d *Deps) handleListSamples(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	var status *sample.Status
	if v := r.URL.Query().Get("status"); v != "" {
		s := sample.Status(v)
		status = &s
	}
	samples, total, err := d.Samples.List(r.Context(), p.TenantID, status, pageFromQuery(r))
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"samples": samples, "total": total})
}

func (d *Deps) handleGetSample(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	s, err := d.Samples.GetByID(r.Context(), p.TenantID, id)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

type updateSampleRequest struct {
	PatientID      *string        `json:"patient_id"`
	SpecimenType   *string        `json:"specimen_type"`
	CollectionDate *time.Time     `json:"collection_date"`
	ReceivedDate   *time.Time     `json:"received_date"`
	Status         *sample.Status `json:"status"`
}

func (d *Deps) handleUpdateSample(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	var req updateSampleRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	patch := sample.Patch{
		PatientID:      req.PatientID,
		SpecimenType:   req.SpecimenType,
		CollectionDate: req.CollectionDate,
		ReceivedDate:   req.ReceivedDate,
		Status:         req.Status,
	}
	s, err := d.Samples.Update(r.Context(), p.TenantID, id, patch)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}
