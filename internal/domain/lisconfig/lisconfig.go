// Package lisconfig defines LISConfig: the one-per-tenant configuration of
// the bidirectional LIS integration.
package lisconfig

import (
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/domain/domainerr"
)

type IntegrationModel string

const (
	ModelPush IntegrationModel = "push"
	ModelPull IntegrationModel = "pull"
)

type ConnectionStatus string

const (
	ConnectionActive   ConnectionStatus = "active"
	ConnectionInactive ConnectionStatus = "inactive"
	ConnectionFailed   ConnectionStatus = "failed"
)

// ConsecutiveFailureThreshold is the 3-strike policy shared by LISConfig and
// Instrument connection-health derivation.
const ConsecutiveFailureThreshold = 3

// LISConfig is the one-per-tenant LIS integration configuration.
type LISConfig struct {
	ID                        string            `json:"id" db:"id"`
	TenantID                  string            `json:"tenant_id" db:"tenant_id"`
	LISType                   string            `json:"lis_type" db:"lis_type"`
	IntegrationModel          IntegrationModel  `json:"integration_model" db:"integration_model"`
	APIEndpointURL            string            `json:"api_endpoint_url" db:"api_endpoint_url"`
	APIAuthCredentials        string            `json:"api_auth_credentials" db:"api_auth_credentials"`
	TenantAPIKey              *string           `json:"tenant_api_key,omitempty" db:"tenant_api_key"`
	PullIntervalMinutes       int               `json:"pull_interval_minutes" db:"pull_interval_minutes"`
	ConnectionFailureCount    int               `json:"connection_failure_count" db:"connection_failure_count"`
	UploadFailureCount        int               `json:"upload_failure_count" db:"upload_failure_count"`
	ConnectionStatus          ConnectionStatus  `json:"connection_status" db:"connection_status"`
	LastTestedAt              *time.Time        `json:"last_tested_at,omitempty" db:"last_tested_at"`
	LastSuccessfulRetrievalAt *time.Time        `json:"last_successful_retrieval_at,omitempty" db:"last_successful_retrieval_at"`
	LastSuccessfulUploadAt    *time.Time        `json:"last_successful_upload_at,omitempty" db:"last_successful_upload_at"`
	LastUploadFailureAt       *time.Time        `json:"last_upload_failure_at,omitempty" db:"last_upload_failure_at"`
	AutoUploadEnabled         bool              `json:"auto_upload_enabled" db:"auto_upload_enabled"`
	UploadVerifiedResults     bool              `json:"upload_verified_results" db:"upload_verified_results"`
	UploadRejectedResults     bool              `json:"upload_rejected_results" db:"upload_rejected_results"`
	UploadBatchSize           int               `json:"upload_batch_size" db:"upload_batch_size"`
	UploadRateLimit           int               `json:"upload_rate_limit" db:"upload_rate_limit"`
	CreatedAt                 time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time         `json:"updated_at" db:"updated_at"`
}

func (c *LISConfig) Validate() error {
	switch c.IntegrationModel {
	case ModelPush, ModelPull:
	default:
		return domainerr.New("integration_model must be push or pull")
	}
	if c.IntegrationModel == ModelPull && c.APIEndpointURL == "" {
		return domainerr.New("api_endpoint_url is required for pull integration")
	}
	return nil
}

// IssueKeyIfPush sets a fresh opaque tenant_api_key when switching into (or
// creating under) push mode; it is a no-op if a key already exists unless
// force is true (used by explicit key regeneration).
func (c *LISConfig) IssueKeyIfPush(generate func() string, force bool) error {
	if c.IntegrationModel != ModelPush {
		return domainerr.New("tenant_api_key regeneration is only permitted in push mode")
	}
	if c.TenantAPIKey == nil || force {
		key := generate()
		c.TenantAPIKey = &key
	}
	return nil
}

// RecordConnectionSuccess applies the success branch of connection-health
// derivation: zero the counter, mark active, stamp last_tested_at.
func (c *LISConfig) RecordConnectionSuccess(now time.Time) {
	c.ConnectionFailureCount = 0
	c.ConnectionStatus = ConnectionActive
	c.LastTestedAt = &now
}

// RecordConnectionFailure applies the 3-strike policy.
func (c *LISConfig) RecordConnectionFailure(now time.Time) {
	c.ConnectionFailureCount++
	c.LastTestedAt = &now
	if c.ConnectionFailureCount >= ConsecutiveFailureThreshold {
		c.ConnectionStatus = ConnectionFailed
	} else {
		c.ConnectionStatus = ConnectionInactive
	}
}

// RecordRetrievalSuccess updates pull-loop bookkeeping on a successful pull.
func (c *LISConfig) RecordRetrievalSuccess(now time.Time) {
	c.LastSuccessfulRetrievalAt = &now
	c.RecordConnectionSuccess(now)
}

// RecordUploadOutcome updates upload-loop aggregate bookkeeping.
func (c *LISConfig) RecordUploadOutcome(now time.Time, anySent, anyFailed bool) {
	if anySent {
		c.LastSuccessfulUploadAt = &now
	}
	if anyFailed {
		c.LastUploadFailureAt = &now
		c.UploadFailureCount++
	} else if anySent {
		c.UploadFailureCount = 0
	}
}
