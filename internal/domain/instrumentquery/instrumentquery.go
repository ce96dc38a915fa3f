// Package instrumentquery defines InstrumentQuery: an immutable audit row
// per host-query from an instrument.
package instrumentquery

import "time"

type ResponseStatus string

const (
	ResponseSuccess ResponseStatus = "success"
	ResponseError   ResponseStatus = "error"
	ResponseTimeout ResponseStatus = "timeout"
)

// InstrumentQuery is an immutable audit row per host-query.
type InstrumentQuery struct {
	ID                  string         `json:"id" db:"id"`
	TenantID            string         `json:"tenant_id" db:"tenant_id"`
	InstrumentID        string         `json:"instrument_id" db:"instrument_id"`
	QueryTimestamp      time.Time      `json:"query_timestamp" db:"query_timestamp"`
	ResponseTimestamp   time.Time      `json:"response_timestamp" db:"response_timestamp"`
	ResponseTimeMS      int64          `json:"response_time_ms" db:"response_time_ms"`
	OrdersReturnedCount int            `json:"orders_returned_count" db:"orders_returned_count"`
	ResponseStatus      ResponseStatus `json:"response_status" db:"response_status"`
	QueryPatientID      *string        `json:"query_patient_id,omitempty" db:"query_patient_id"`
	QuerySampleBarcode  *string        `json:"query_sample_barcode,omitempty" db:"query_sample_barcode"`
	ErrorReason         *string        `json:"error_reason,omitempty" db:"error_reason"`
}
