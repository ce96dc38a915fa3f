package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/lisconfig"
)

type LISConfigRepository struct {
	db *sql.DB
}

func NewLISConfigRepository(db *sql.DB) *LISConfigRepository {
	return &LISConfigRepository{db: db}
}

const lisConfigColumns = `id, tenant_id, lis_type, integration_model, api_endpoint_url,
	api_auth_credentials, tenant_api_key, pull_interval_minutes, connection_failure_count,
	upload_failure_count, connection_status, last_tested_at, last_successful_retrieval_at,
	last_successful_upload_at, last_upload_failure_at, auto_upload_enabled,
	upload_verified_results, upload_rejected_results, upload_batch_size, upload_rate_limit,
	created_at, updated_at`

func scanLISConfig(row rowScanner) (*lisconfig.LISConfig, error) {
	var c lisconfig.LISConfig
	err := row.Scan(&c.ID, &c.TenantID, &c.LISType, &c.IntegrationModel, &c.APIEndpointURL,
		&c.APIAuthCredentials, &c.TenantAPIKey, &c.PullIntervalMinutes, &c.ConnectionFailureCount,
		&c.UploadFailureCount, &c.ConnectionStatus, &c.LastTestedAt, &c.LastSuccessfulRetrievalAt,
		&c.LastSuccessfulUploadAt, &c.LastUploadFailureAt, &c.AutoUploadEnabled,
		&c.UploadVerifiedResults, &c.UploadRejectedResults, &c.UploadBatchSize, &c.UploadRateLimit,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *LISConfigRepository) Create(ctx context.Context, c *lisconfig.LISConfig) error {
	if err := c.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid lis config", err)
	}
	now := time.Now()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.ConnectionStatus == "" {
		c.ConnectionStatus = lisconfig.ConnectionInactive
	}
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lis_configs (`+lisConfigColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)`,
		c.ID, c.TenantID, c.LISType, c.IntegrationModel, c.APIEndpointURL,
		c.APIAuthCredentials, c.TenantAPIKey, c.PullIntervalMinutes, c.ConnectionFailureCount,
		c.UploadFailureCount, c.ConnectionStatus, c.LastTestedAt, c.LastSuccessfulRetrievalAt,
		c.LastSuccessfulUploadAt, c.LastUploadFailureAt, c.AutoUploadEnabled,
		c.UploadVerifiedResults, c.UploadRejectedResults, c.UploadBatchSize, c.UploadRateLimit,
		c.CreatedAt, c.UpdatedAt)
	return wrapErr("create", "lis_config", c.ID, err)
}

func (r *LISConfigRepository) GetByTenant(ctx context.Context, tenantID string) (*lisconfig.LISConfig, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lisConfigColumns+` FROM lis_configs WHERE tenant_id=$1`, tenantID)
	c, err := scanLISConfig(row)
	if err != nil {
		return nil, wrapErr("get_by_tenant", "lis_config", tenantID, err)
	}
	return c, nil
}

// ListTenantIDs returns every tenant with a configured LIS integration, for
// the background pull/upload/retry loops to sweep.
func (r *LISConfigRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tenant_id FROM lis_configs`)
	if err != nil {
		return nil, wrapErr("list_tenant_ids", "lis_config", "", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("list_tenant_ids_scan", "lis_config", "", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *LISConfigRepository) Update(ctx context.Context, c *lisconfig.LISConfig) error {
	if err := c.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid lis config update", err)
	}
	c.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		UPDATE lis_configs SET lis_type=$1, integration_model=$2, api_endpoint_url=$3,
			api_auth_credentials=$4, tenant_api_key=$5, pull_interval_minutes=$6,
			connection_failure_count=$7, upload_failure_count=$8, connection_status=$9,
			last_tested_at=$10, last_successful_retrieval_at=$11, last_successful_upload_at=$12,
			last_upload_failure_at=$13, auto_upload_enabled=$14, upload_verified_results=$15,
			upload_rejected_results=$16, upload_batch_size=$17, upload_rate_limit=$18, updated_at=$19
		WHERE id=$20 AND tenant_id=$21`,
		c.LISType, c.IntegrationModel, c.APIEndpointURL, c.APIAuthCredentials, c.TenantAPIKey,
		c.PullIntervalMinutes, c.ConnectionFailureCount, c.UploadFailureCount, c.ConnectionStatus,
		c.LastTestedAt, c.LastSuccessfulRetrievalAt, c.LastSuccessfulUploadAt, c.LastUploadFailureAt,
		c.AutoUploadEnabled, c.UploadVerifiedResults, c.UploadRejectedResults, c.UploadBatchSize,
		c.UploadRateLimit, c.UpdatedAt, c.ID, c.TenantID)
	return wrapErr("update", "lis_config", c.ID, err)
}
