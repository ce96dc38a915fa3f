package httpapi

import (
	"net/http"

	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
	"github.com/hedgehog/ivdmiddleware/internal/lisintegration"
)

type createLISConfigRequest struct {
	LISType             string                    `json:"lis_type"`
	IntegrationModel    lisconfig.IntegrationModel `json:"integration_model"`
	APIEndpointURL      string                    `json:"api_endpoint_url"`
	APIAuthCredentials  string                    `json:"api_auth_credentials"`
	PullIntervalMinutes int                       `json:"pull_interval_minutes"`
}

func (d *Deps) handleCreateLISConfig(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	var req createLISConfigRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	cfg, err := d.LISConfig.CreateConfiguration(r.Context(), lisintegration.CreateConfigInput{
		TenantID:            p.TenantID,
		LISType:             req.LISType,
		IntegrationModel:    req.IntegrationModel,
		APIEndpointURL:      req.APIEndpointURL,
		APIAuthCredentials:  req.APIAuthCredentials,
		PullIntervalMinutes: req.PullIntervalMinutes,
	})
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusCreated, cfg)
}

func (d *Deps) handleGetLISConfig(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	cfg, err := d.LISConfig.GetConfiguration(r.Context(), p.TenantID)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, cfg)
}

func (d *Deps) handleTestLISConnection(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	result, err := d.LISConfig.TestConnection(r.Context(), p.TenantID)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

type updateUploadSettingsRequest struct {
	AutoUploadEnabled     bool `json:"auto_upload_enabled"`
	UploadVerifiedResults bool `json:"upload_verified_results"`
	UploadRejectedResults bool `json:"upload_rejected_results"`
	UploadBatchSize       int  `json:"upload_batch_size"`
	UploadRateLimit       int  `json:"upload_rate_limit"`
}

func (d *Deps) handleUpdateUploadSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	var req updateUploadSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	cfg, err := d.LISConfig.UpdateUploadSettings(r.Context(), p.TenantID, lisintegration.UpdateUploadSettingsInput{
		AutoUploadEnabled:     req.AutoUploadEnabled,
		UploadVerifiedResults: req.UploadVerifiedResults,
		UploadRejectedResults: req.UploadRejectedResults,
		UploadBatchSize:       req.UploadBatchSize,
		UploadRateLimit:       req.UploadRateLimit,
	})
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, cfg)
}
