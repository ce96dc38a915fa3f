// Package lisintegration implements the bidirectional LIS integration:
// per-tenant configuration lifecycle, the pull (retrieval) contract, and
// the upload (outbound) contract. The services neither log nor count; they
// return errors (a failed per-sample result fetch during a pull is skipped),
// and the background loops in internal/workers log and count each tenant
// pass.
package lisintegration

import (
	"context"
	"time"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
	"github.com/hedgehog/ivdmiddleware/internal/lisadapter"
	"github.com/hedgehog/ivdmiddleware/internal/repository"
	"github.com/hedgehog/ivdmiddleware/internal/tokengen"
)

// ConfigService manages the one-per-tenant LISConfig lifecycle and delegates
// connection tests to the configured LISAdapter.
type ConfigService struct {
	Configs repository.LISConfigRepository
	Adapter lisadapter.LISAdapter
}

func NewConfigService(configs repository.LISConfigRepository, adapter lisadapter.LISAdapter) *ConfigService {
	return &ConfigService{Configs: configs, Adapter: adapter}
}

// CreateConfigInput mirrors the creation parameters
type CreateConfigInput struct {
	TenantID            string
	LISType             string
	IntegrationModel    lisconfig.IntegrationModel
	APIEndpointURL      string
	APIAuthCredentials  string
	PullIntervalMinutes int
}

func (s *ConfigService) CreateConfiguration(ctx context.Context, in CreateConfigInput) (*lisconfig.LISConfig, error) {
	pullInterval := in.PullIntervalMinutes
	if pullInterval == 0 {
		pullInterval = 5
	}

	c := &lisconfig.LISConfig{
		TenantID:            in.TenantID,
		LISType:             in.LISType,
		IntegrationModel:    in.IntegrationModel,
		APIEndpointURL:      in.APIEndpointURL,
		APIAuthCredentials:  in.APIAuthCredentials,
		PullIntervalMinutes: pullInterval,
		ConnectionStatus:    lisconfig.ConnectionInactive,
		UploadVerifiedResults: true,
		UploadBatchSize:       100,
		UploadRateLimit:       100,
	}
	if err := c.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid LIS configuration", err)
	}
	if in.IntegrationModel == lisconfig.ModelPush {
		token, err := tokengen.New(tokengen.DefaultLength)
		if err != nil {
			return nil, apperrors.Internal("generate tenant API key", err)
		}
		c.TenantAPIKey = &token
	}

	if err := s.Configs.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ConfigService) GetConfiguration(ctx context.Context, tenantID string) (*lisconfig.LISConfig, error) {
	return s.Configs.GetByTenant(ctx, tenantID)
}

// ConnectionTest is the outward-facing shape of TestConnection's result.
type ConnectionTest struct {
	IsConnected  bool
	LastTestedAt time.Time
	ErrorMessage string
	Details      map[string]string
}

func (s *ConfigService) TestConnection(ctx context.Context, tenantID string) (ConnectionTest, error) {
	c, err := s.Configs.GetByTenant(ctx, tenantID)
	if err != nil {
		return ConnectionTest{}, err
	}

	result, err := s.Adapter.TestConnection(ctx)
	if err != nil {
		return ConnectionTest{}, apperrors.UpstreamFailure("LIS connection test failed", err)
	}

	if result.IsConnected {
		c.RecordConnectionSuccess(result.LastTestedAt)
	} else {
		c.RecordConnectionFailure(result.LastTestedAt)
	}
	if err := s.Configs.Update(ctx, c); err != nil {
		return ConnectionTest{}, err
	}

	return ConnectionTest{
		IsConnected:  result.IsConnected,
		LastTestedAt: result.LastTestedAt,
		ErrorMessage: result.ErrorMessage,
		Details:      result.Details,
	}, nil
}

// UpdateConfigInput carries the partial-override fields
// update operation; a nil field leaves the existing value untouched.
type UpdateConfigInput struct {
	LISType             *string
	IntegrationModel    *lisconfig.IntegrationModel
	APIEndpointURL      *string
	APIAuthCredentials  *string
	PullIntervalMinutes *int
}

func (s *ConfigService) UpdateConfiguration(ctx context.Context, tenantID string, in UpdateConfigInput) (*lisconfig.LISConfig, error) {
	c, err := s.Configs.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if in.LISType != nil {
		c.LISType = *in.LISType
	}
	switchingToPush := false
	if in.IntegrationModel != nil {
		switchingToPush = *in.IntegrationModel == lisconfig.ModelPush && c.IntegrationModel != lisconfig.ModelPush
		c.IntegrationModel = *in.IntegrationModel
	}
	if in.APIEndpointURL != nil {
		c.APIEndpointURL = *in.APIEndpointURL
	}
	if in.APIAuthCredentials != nil {
		c.APIAuthCredentials = *in.APIAuthCredentials
	}
	if in.PullIntervalMinutes != nil {
		c.PullIntervalMinutes = *in.PullIntervalMinutes
	}

	if err := c.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid LIS configuration", err)
	}

	if switchingToPush {
		if err := c.IssueKeyIfPush(func() string { return tokengen.MustNew(tokengen.DefaultLength) }, false); err != nil {
			return nil, apperrors.Internal("issue tenant API key", err)
		}
	}

	if err := s.Configs.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateUploadSettingsInput is outbound-settings update.
type UpdateUploadSettingsInput struct {
	AutoUploadEnabled     bool
	UploadVerifiedResults bool
	UploadRejectedResults bool
	UploadBatchSize       int
	UploadRateLimit       int
}

func (s *ConfigService) UpdateUploadSettings(ctx context.Context, tenantID string, in UpdateUploadSettingsInput) (*lisconfig.LISConfig, error) {
	c, err := s.Configs.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	c.AutoUploadEnabled = in.AutoUploadEnabled
	c.UploadVerifiedResults = in.UploadVerifiedResults
	c.UploadRejectedResults = in.UploadRejectedResults
	if in.UploadBatchSize > 0 {
		c.UploadBatchSize = in.UploadBatchSize
	}
	if in.UploadRateLimit > 0 {
		c.UploadRateLimit = in.UploadRateLimit
	}
	if err := s.Configs.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RegenerateAPIKey is permitted only in push mode
func (s *ConfigService) RegenerateAPIKey(ctx context.Context, tenantID string) (*lisconfig.LISConfig, error) {
	c, err := s.Configs.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := c.IssueKeyIfPush(func() string { return tokengen.MustNew(tokengen.DefaultLength) }, true); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "cannot regenerate API key", err)
	}
	if err := s.Configs.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
