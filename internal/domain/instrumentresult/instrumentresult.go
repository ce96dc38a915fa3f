// Package instrumentresult defines InstrumentResult: the instrument-side raw
// payload model, distinct from the LIS-side Result, received over the
// result-submission endpoint and mapped into a canonical Result once
// accepted (supplemented from the instrument_integration source service).
package instrumentresult

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type Status string

const (
	StatusReceived Status = "received"
	StatusMapped   Status = "mapped"
	StatusRejected Status = "rejected"
)

// InstrumentResult is the raw payload an instrument submits, before it is
// mapped into a canonical Result and handed to the verification engine.
type InstrumentResult struct {
	ID                          string    `json:"id" db:"id"`
	TenantID                    string    `json:"tenant_id" db:"tenant_id"`
	InstrumentID                string    `json:"instrument_id" db:"instrument_id"`
	ExternalInstrumentResultID  string    `json:"external_instrument_result_id" db:"external_instrument_result_id"`
	TestCode                    string    `json:"test_code" db:"test_code"`
	TestName                    string    `json:"test_name" db:"test_name"`
	Value                       string    `json:"value" db:"value"`
	Unit                        string    `json:"unit" db:"unit"`
	ReferenceRangeLow           *float64  `json:"reference_range_low,omitempty" db:"reference_range_low"`
	ReferenceRangeHigh          *float64  `json:"reference_range_high,omitempty" db:"reference_range_high"`
	CollectionTimestamp         time.Time `json:"collection_timestamp" db:"collection_timestamp"`
	Status                      Status    `json:"status" db:"status"`
	MappedResultID              *string   `json:"mapped_result_id,omitempty" db:"mapped_result_id"`
	CreatedAt                   time.Time `json:"created_at" db:"created_at"`
}

// Validate mirrors the result-submission payload validation
func (r *InstrumentResult) Validate() error {
	if r.TestCode == "" {
		return domainerr.New("test_code cannot be empty")
	}
	if r.ReferenceRangeLow != nil && r.ReferenceRangeHigh != nil && *r.ReferenceRangeLow > *r.ReferenceRangeHigh {
		return domainerr.New("reference_range_low cannot be greater than reference_range_high")
	}
	return nil
}
