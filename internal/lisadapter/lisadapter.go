// Package lisadapter defines the pluggable boundary between the middleware
// and a tenant's Laboratory Information System. The wire protocol itself
// (HL7v2, a REST gateway, a vendor SDK) is deliberately out of scope — every
// concrete LIS integration lives behind this port, an anti-corruption layer
// between the domain and whatever a given LIS actually speaks.
package lisadapter

import (
	"context"
	"time"
)

// SampleData is the adapter-side shape returned by GetSamples, translated
// into a domain Sample by the caller.
type SampleData struct {
	ExternalLISID  string
	PatientID      string
	SpecimenType   string
	CollectionDate time.Time
	ReceivedDate   time.Time
}

// ResultData is the adapter-side shape returned by GetResults, translated
// into a domain Result by the caller.
type ResultData struct {
	ExternalLISResultID string
	SampleExternalLISID string
	TestCode            string
	TestName            string
	Value               string
	Unit                string
	ReferenceRangeLow   *float64
	ReferenceRangeHigh  *float64
	LISFlags            string
}

// ResultPayload is the outbound shape sent to the LIS by SendResults.
type ResultPayload struct {
	ExternalLISResultID string
	TestCode            string
	Value               string
	Unit                string
	VerificationStatus  string
	VerificationMethod  string
}

// ConnectionTestResult is the response shape of TestConnection.
type ConnectionTestResult struct {
	IsConnected  bool
	LastTestedAt time.Time
	ErrorMessage string
	Details      map[string]string
}

// SendResult is the response shape of SendResults.
type SendResult struct {
	TotalSent       int
	TotalFailed     int
	FailedResultIDs []string
	RetryScheduled  bool
	NextRetryAt     time.Time
	ErrorMessage    string
}

// LISAdapter is the pluggable interface every concrete LIS integration
// implements. Every method receives the caller's ctx; the lisintegration
// services pass it through unchanged and set no per-call deadline of their
// own.
type LISAdapter interface {
	TestConnection(ctx context.Context) (ConnectionTestResult, error)
	// GetSamples returns samples created or modified since the given time. A
	// zero since value means "from the beginning".
	GetSamples(ctx context.Context, since time.Time) ([]SampleData, error)
	GetResults(ctx context.Context, sampleExternalLISID string) ([]ResultData, error)
	SendResults(ctx context.Context, payloads []ResultPayload) (SendResult, error)
	// AcknowledgeResults confirms receipt of uploaded results back to the
	// LIS; it is idempotent — acknowledging an already-acknowledged id
	// succeeds.
	AcknowledgeResults(ctx context.Context, externalLISResultIDs []string) (bool, error)
}
