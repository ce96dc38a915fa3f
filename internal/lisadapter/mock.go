package lisadapter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAdapter is an in-memory LISAdapter used by tests and by any
// deployment that has not yet registered a real LIS integration. Samples,
// results, and a configurable connection/send failure mode are all seeded
// through the exported setters so tests can script specific scenarios (the
// retry-math scenario in particular).
type MockAdapter struct {
	mu sync.Mutex

	connected    bool
	samples      []SampleData
	resultsBySID map[string][]ResultData
	sent         []ResultPayload
	acked        map[string]bool

	// sendBehavior, if set, is consulted on every SendResults call instead
	// of the default all-succeed behavior, letting tests script a
	// multi-pass retry scenario.
	sendBehavior func(payloads []ResultPayload) SendResult
}

// NewMockAdapter returns a connected adapter with no seeded data.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		connected:    true,
		resultsBySID: make(map[string][]ResultData),
		acked:        make(map[string]bool),
	}
}

// SetConnected toggles the TestConnection/GetSamples/GetResults failure mode.
func (m *MockAdapter) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

// SeedSample adds a sample returned by GetSamples.
func (m *MockAdapter) SeedSample(s SampleData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
}

// SeedResult adds a result returned by GetResults for the given sample.
func (m *MockAdapter) SeedResult(sampleExternalLISID string, r ResultData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resultsBySID[sampleExternalLISID] = append(m.resultsBySID[sampleExternalLISID], r)
}

// SetSendBehavior installs a scripted SendResults response function.
func (m *MockAdapter) SetSendBehavior(f func(payloads []ResultPayload) SendResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendBehavior = f
}

// Sent returns every payload ever passed to SendResults, for assertions.
func (m *MockAdapter) Sent() []ResultPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ResultPayload, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockAdapter) TestConnection(ctx context.Context) (ConnectionTestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ConnectionTestResult{IsConnected: false, LastTestedAt: time.Now(), ErrorMessage: "mock adapter is offline"}, nil
	}
	return ConnectionTestResult{IsConnected: true, LastTestedAt: time.Now()}, nil
}

func (m *MockAdapter) GetSamples(ctx context.Context, since time.Time) ([]SampleData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter is offline")
	}
	var out []SampleData
	for _, s := range m.samples {
		if since.IsZero() || s.ReceivedDate.After(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockAdapter) GetResults(ctx context.Context, sampleExternalLISID string) ([]ResultData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter is offline")
	}
	return append([]ResultData(nil), m.resultsBySID[sampleExternalLISID]...), nil
}

func (m *MockAdapter) SendResults(ctx context.Context, payloads []ResultPayload) (SendResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return SendResult{}, fmt.Errorf("mock adapter is offline")
	}
	m.sent = append(m.sent, payloads...)
	if m.sendBehavior != nil {
		return m.sendBehavior(payloads), nil
	}
	return SendResult{TotalSent: len(payloads)}, nil
}

func (m *MockAdapter) AcknowledgeResults(ctx context.Context, externalLISResultIDs []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range externalLISResultIDs {
		m.acked[id] = true
	}
	return true, nil
}
