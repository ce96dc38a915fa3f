package instrumentadapter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockAdapter is an in-memory InstrumentAdapter used by tests and by any
// deployment where instruments talk to the HTTP surface directly rather
// than through a vendor driver.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	orders    map[string][]OrderData // keyed by instrumentID
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{connected: true, orders: make(map[string][]OrderData)}
}

func (m *MockAdapter) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *MockAdapter) SeedOrder(instrumentID string, o OrderData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[instrumentID] = append(m.orders[instrumentID], o)
}

func (m *MockAdapter) TestConnection(ctx context.Context) (ConnectionTestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ConnectionTestResult{IsConnected: false, LastTestedAt: time.Now(), ErrorMessage: "mock adapter is offline"}, nil
	}
	return ConnectionTestResult{IsConnected: true, LastTestedAt: time.Now()}, nil
}

func (m *MockAdapter) GetPendingOrders(ctx context.Context, tenantID, instrumentID string, patientID, sampleBarcode *string) ([]OrderData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter is offline")
	}
	all := m.orders[instrumentID]
	var out []OrderData
	for _, o := range all {
		if patientID != nil && o.PatientID != *patientID {
			continue
		}
		if sampleBarcode != nil && o.SampleBarcode != *sampleBarcode {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *MockAdapter) ProcessResult(ctx context.Context, tenantID, instrumentID string, payload ResultPayload) (ProcessResultOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ProcessResultOutcome{}, fmt.Errorf("mock adapter is offline")
	}
	return ProcessResultOutcome{ResultID: payload.ExternalInstrumentResultID, Status: "accepted", VerificationQueued: true}, nil
}
