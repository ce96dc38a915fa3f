package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/instrument"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
	"github.com/hedgehog/ivdmiddleware/internal/instrumentintegration"
)

type registerInstrumentRequest struct {
	Name           string `json:"name"`
	InstrumentType string `json:"instrument_type"`
}

func (d *Deps) handleRegisterInstrument(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	var req registerInstrumentRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	inst, err := d.Instruments.CreateInstrument(r.Context(), instrumentintegration.CreateInstrumentInput{
		TenantID:       p.TenantID,
		Name:           req.Name,
		InstrumentType: req.InstrumentType,
	})
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusCreated, inst)
}

func (d *Deps) handleListInstruments(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	instruments, total, err := d.Instruments.ListInstruments(r.Context(), p.TenantID, pageFromQuery(r))
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"instruments": instruments, "total": total})
}

func (d *Deps) handleGetInstrument(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	inst, err := d.Instruments.GetInstrument(r.Context(), p.TenantID, id)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, inst)
}

type updateInstrumentRequest struct {
	Name           *string `json:"name"`
	InstrumentType *string `json:"instrument_type"`
	Status         *string `json:"status"`
}

func (d *Deps) handleUpdateInstrument(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	var req updateInstrumentRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	var status *instrument.Status
	if req.Status != nil {
		s := instrument.Status(*req.Status)
		status = &s
	}
	inst, err := d.Instruments.UpdateInstrument(r.Context(), p.TenantID, id, instrumentintegration.UpdateInstrumentInput{
		Name:           req.Name,
		InstrumentType: req.InstrumentType,
		Status:         status,
	})
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, inst)
}

func (d *Deps) handleDeactivateInstrument(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	if _, err := d.Instruments.DeactivateInstrument(r.Context(), p.TenantID, id); err != nil {
		d.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d *Deps) handleRegenerateInstrumentToken(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	id := mux.Vars(r)["id"]
	inst, err := d.Instruments.RegenerateToken(r.Context(), p.TenantID, id)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, inst)
}

type hostQueryRequest struct {
	PatientID     *string `json:"patient_id"`
	SampleBarcode *string `json:"sample_barcode"`
}

func (d *Deps) handleInstrumentQueryHost(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Instrument-Token")
	if token == "" {
		d.writeErr(w, apperrors.Unauthorized("missing instrument token"))
		return
	}
	var req hostQueryRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			d.writeErr(w, err)
			return
		}
	}
	out, err := d.Query.HostQuery(r.Context(), instrumentintegration.HostQueryInput{
		Token:         token,
		PatientID:     req.PatientID,
		SampleBarcode: req.SampleBarcode,
	})
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"orders":            out.Orders,
		"query_timestamp":   out.QueryTimestamp,
		"instrument_status": out.InstrumentStatus,
	})
}

type submitInstrumentResultRequest struct {
	ExternalInstrumentResultID string   `json:"external_instrument_result_id"`
	TestCode                   string   `json:"test_code"`
	TestName                   string   `json:"test_name"`
	Value                      string   `json:"value"`
	Unit                       string   `json:"unit"`
	ReferenceRangeLow          *float64 `json:"reference_range_low"`
	ReferenceRangeHigh         *float64 `json:"reference_range_high"`
	CollectionTimestamp        string   `json:"collection_timestamp"`
}

func (d *Deps) handleInstrumentSubmitResult(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("X-Instrument-Token")
	if token == "" {
		d.writeErr(w, apperrors.Unauthorized("missing instrument token"))
		return
	}
	var req submitInstrumentResultRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	collectionTS, err := parseTimestamp(req.CollectionTimestamp)
	if err != nil {
		d.writeErr(w, apperrors.InvalidInput("collection_timestamp must be RFC3339"))
		return
	}

	out, err := d.Submission.SubmitResult(r.Context(), instrumentintegration.SubmitResultInput{
		Token:                      token,
		ExternalInstrumentResultID: req.ExternalInstrumentResultID,
		TestCode:                   req.TestCode,
		TestName:                   req.TestName,
		Value:                      req.Value,
		Unit:                       req.Unit,
		ReferenceRangeLow:          req.ReferenceRangeLow,
		ReferenceRangeHigh:         req.ReferenceRangeHigh,
		CollectionTimestamp:        collectionTS,
	})
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusAccepted, out)
}
