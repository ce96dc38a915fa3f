package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationrule"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
	"github.com/hedgehog/ivdmiddleware/internal/httpapi/middleware"
	"github.com/hedgehog/ivdmiddleware/internal/settingsservice"
)

type createSettingsRequest struct {
	TestCode                   string   `json:"test_code"`
	ReferenceRangeLow          *float64 `json:"reference_range_low"`
	ReferenceRangeHigh         *float64 `json:"reference_range_high"`
	CriticalRangeLow           *float64 `json:"critical_range_low"`
	CriticalRangeHigh          *float64 `json:"critical_range_high"`
	InstrumentFlagsToBlock     []string `json:"instrument_flags_to_block"`
	DeltaCheckThresholdPercent *float64 `json:"delta_check_threshold_percent"`
	DeltaCheckLookbackDays     int      `json:"delta_check_lookback_days"`
}

func (d *Deps) handleCreateSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	var req createSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	s, err := d.Settings.CreateSettings(r.Context(), settingsservice.CreateSettingsInput{
		TenantID:                   p.TenantID,
		TestCode:                   req.TestCode,
		ReferenceRangeLow:          req.ReferenceRangeLow,
		ReferenceRangeHigh:         req.ReferenceRangeHigh,
		CriticalRangeLow:           req.CriticalRangeLow,
		CriticalRangeHigh:          req.CriticalRangeHigh,
		InstrumentFlagsToBlock:     req.InstrumentFlagsToBlock,
		DeltaCheckThresholdPercent: req.DeltaCheckThresholdPercent,
		DeltaCheckLookbackDays:     req.DeltaCheckLookbackDays,
	})
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusCreated, s)
}

func (d *Deps) handleListSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	settings, err := d.Settings.ListSettings(r.Context(), p.TenantID)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, settings)
}

func (d *Deps) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	testCode := mux.Vars(r)["test_code"]
	s, err := d.Settings.GetSettings(r.Context(), p.TenantID, testCode)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

type updateSettingsRequest struct {
	ReferenceRangeLow          *float64 `json:"reference_range_low"`
	ReferenceRangeHigh         *float64 `json:"reference_range_high"`
	CriticalRangeLow           *float64 `json:"critical_range_low"`
	CriticalRangeHigh          *float64 `json:"critical_range_high"`
	InstrumentFlagsToBlock     []string `json:"instrument_flags_to_block"`
	DeltaCheckThresholdPercent *float64 `json:"delta_check_threshold_percent"`
	DeltaCheckLookbackDays     *int     `json:"delta_check_lookback_days"`
}

func (d *Deps) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	testCode := mux.Vars(r)["test_code"]
	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	patch := verificationsettings.Patch{
		ReferenceRangeLow:          req.ReferenceRangeLow,
		ReferenceRangeHigh:         req.ReferenceRangeHigh,
		CriticalRangeLow:           req.CriticalRangeLow,
		CriticalRangeHigh:          req.CriticalRangeHigh,
		InstrumentFlagsToBlock:     req.InstrumentFlagsToBlock,
		DeltaCheckThresholdPercent: req.DeltaCheckThresholdPercent,
		DeltaCheckLookbackDays:     req.DeltaCheckLookbackDays,
	}
	s, err := d.Settings.UpdateSettings(r.Context(), p.TenantID, testCode, patch)
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, s)
}

func (d *Deps) handleDeleteSettings(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	testCode := mux.Vars(r)["test_code"]
	if err := d.Settings.DeleteSettings(r.Context(), p.TenantID, testCode); err != nil {
		d.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleRuleRequest struct {
	RuleType verificationrule.RuleType `json:"rule_type"`
	Enabled  bool                      `json:"enabled"`
}

func (d *Deps) handleToggleRule(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.Principal(r.Context())
	var req toggleRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		d.writeErr(w, err)
		return
	}
	var (
		rule *verificationrule.Rule
		err  error
	)
	if req.Enabled {
		rule, err = d.Settings.EnableRule(r.Context(), p.TenantID, req.RuleType)
	} else {
		rule, err = d.Settings.DisableRule(r.Context(), p.TenantID, req.RuleType)
	}
	if err != nil {
		d.writeErr(w, err)
		return
	}
	respond(w, http.StatusOK, rule)
}
