// Package instrument defines the Instrument aggregate: an analytical device
// registered to a tenant, authenticated by a globally unique API token.
package instrument

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusDisconnected Status = "disconnected"
)

// Instrument is an analytical device registered to a tenant.
type Instrument struct {
	ID                     string     `json:"id" db:"id"`
	TenantID               string     `json:"tenant_id" db:"tenant_id"`
	Name                   string     `json:"name" db:"name"`
	APIToken               string     `json:"api_token" db:"api_token"`
	APITokenCreatedAt      time.Time  `json:"api_token_created_at" db:"api_token_created_at"`
	InstrumentType         string     `json:"instrument_type" db:"instrument_type"`
	Status                 Status     `json:"status" db:"status"`
	ConnectionFailureCount int        `json:"connection_failure_count" db:"connection_failure_count"`
	LastSuccessfulQueryAt  *time.Time `json:"last_successful_query_at,omitempty" db:"last_successful_query_at"`
	LastSuccessfulResultAt *time.Time `json:"last_successful_result_at,omitempty" db:"last_successful_result_at"`
	LastFailureAt          *time.Time `json:"last_failure_at,omitempty" db:"last_failure_at"`
	LastFailureReason      *string    `json:"last_failure_reason,omitempty" db:"last_failure_reason"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

func (i *Instrument) Validate() error {
	if i.Name == "" {
		return domainerr.New("name is required")
	}
	return nil
}

// IsHealthy is the public health projection
func (i *Instrument) IsHealthy() bool {
	return i.ConnectionFailureCount < lisconfig.ConsecutiveFailureThreshold
}

// RecordSuccess clears the failure streak and marks the instrument active,
// stamping whichever of query/result succeeded.
func (i *Instrument) RecordSuccess(now time.Time, query, result bool) {
	i.ConnectionFailureCount = 0
	i.Status = StatusActive
	if query {
		i.LastSuccessfulQueryAt = &now
	}
	if result {
		i.LastSuccessfulResultAt = &now
	}
}

// RecordFailure applies the 3-strike disconnect policy.
func (i *Instrument) RecordFailure(now time.Time, reason string) {
	i.ConnectionFailureCount++
	i.LastFailureAt = &now
	i.LastFailureReason = &reason
	if i.ConnectionFailureCount >= lisconfig.ConsecutiveFailureThreshold {
		i.Status = StatusDisconnected
	}
}

// RegenerateToken issues a new token, stamping api_token_created_at.
func (i *Instrument) RegenerateToken(token string, now time.Time) {
	i.APIToken = token
	i.APITokenCreatedAt = now
}
