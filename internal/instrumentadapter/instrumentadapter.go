// Package instrumentadapter defines the pluggable boundary between the
// middleware and a physical analyzer. Instruments speak to the middleware
// over the host-query/result-submission HTTP endpoints directly in the real
// deployment (see internal/instrumentintegration); this port exists for the
// parts of the contract that are better modeled as an outbound call — e.g. a
// vendor driver pushing a pending-orders query through a proprietary SDK
// instead of polling our HTTP surface.
package instrumentadapter

import (
	"context"
	"time"
)

// OrderData is the adapter-side shape returned by GetPendingOrders.
type OrderData struct {
	ExternalLISOrderID string
	SampleBarcode      string
	PatientID          string
	TestCodes          []string
	Priority           string
}

// ResultPayload is the instrument-submitted shape passed to ProcessResult.
type ResultPayload struct {
	ExternalInstrumentResultID string
	TestCode                   string
	TestName                   string
	Value                      string
	Unit                       string
	ReferenceRangeLow          *float64
	ReferenceRangeHigh         *float64
	CollectionTimestamp        time.Time
}

// ConnectionTestResult is the response shape of TestConnection.
type ConnectionTestResult struct {
	IsConnected  bool
	LastTestedAt time.Time
	ErrorMessage string
}

// ProcessResultOutcome is the response shape of ProcessResult.
type ProcessResultOutcome struct {
	ResultID          string
	Status            string // "accepted" or "rejected"
	VerificationQueued bool
	ErrorMessage      string
}

// InstrumentAdapter is the pluggable interface a vendor-specific instrument
// driver implements.
type InstrumentAdapter interface {
	TestConnection(ctx context.Context) (ConnectionTestResult, error)
	GetPendingOrders(ctx context.Context, tenantID, instrumentID string, patientID, sampleBarcode *string) ([]OrderData, error)
	ProcessResult(ctx context.Context, tenantID, instrumentID string, payload ResultPayload) (ProcessResultOutcome, error)
}
