package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hedgehog/ivdmiddleware/internal/apperrors"
	"github.com/hedgehog/ivdmiddleware/internal/domain/verificationsettings"
)

type AutoVerificationSettingsRepository struct {
	db *sql.DB
}

func NewAutoVerificationSettingsRepository(db *sql.DB) *AutoVerificationSettingsRepository {
	return &AutoVerificationSettingsRepository{db: db}
}

const verificationSettingsColumns = `id, tenant_id, test_code, reference_range_low, reference_range_high,
	critical_range_low, critical_range_high, instrument_flags_to_block,
	delta_check_threshold_percent, delta_check_lookback_days, created_at, updated_at`

func scanVerificationSettings(row rowScanner) (*verificationsettings.Settings, error) {
	var s verificationsettings.Settings
	err := row.Scan(&s.ID, &s.TenantID, &s.TestCode, &s.ReferenceRangeLow, &s.ReferenceRangeHigh,
		&s.CriticalRangeLow, &s.CriticalRangeHigh, pq.Array(&s.InstrumentFlagsToBlock),
		&s.DeltaCheckThresholdPercent, &s.DeltaCheckLookbackDays, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *AutoVerificationSettingsRepository) Create(ctx context.Context, s *verificationsettings.Settings) error {
	if s.DeltaCheckLookbackDays == 0 {
		s.DeltaCheckLookbackDays = verificationsettings.DefaultLookbackDays
	}
	if err := s.Validate(); err != nil {
		return apperrors.Wrap(apperrors.KindInvalidInput, "invalid verification settings", err)
	}
	now := time.Now()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auto_verification_settings (`+verificationSettingsColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		s.ID, s.TenantID, s.TestCode, s.ReferenceRangeLow, s.ReferenceRangeHigh,
		s.CriticalRangeLow, s.CriticalRangeHigh, pq.Array(s.InstrumentFlagsToBlock),
		s.DeltaCheckThresholdPercent, s.DeltaCheckLookbackDays, s.CreatedAt, s.UpdatedAt)
	return wrapErr("create", "verification_settings", s.ID, err)
}

func (r *AutoVerificationSettingsRepository) GetByTestCode(ctx context.Context, tenantID, testCode string) (*verificationsettings.Settings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+verificationSettingsColumns+` FROM auto_verification_settings
		WHERE tenant_id=$1 AND test_code=$2`, tenantID, testCode)
	s, err := scanVerificationSettings(row)
	if err != nil {
		return nil, wrapErr("get_by_test_code", "verification_settings", testCode, err)
	}
	return s, nil
}

func (r *AutoVerificationSettingsRepository) GetByTestCodes(ctx context.Context, tenantID string, testCodes []string) (map[string]*verificationsettings.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+verificationSettingsColumns+` FROM auto_verification_settings
		WHERE tenant_id=$1 AND test_code = ANY($2)`, tenantID, pq.Array(testCodes))
	if err != nil {
		return nil, wrapErr("get_by_test_codes", "verification_settings", "", err)
	}
	defer rows.Close()

	out := make(map[string]*verificationsettings.Settings)
	for rows.Next() {
		s, err := scanVerificationSettings(rows)
		if err != nil {
			return nil, wrapErr("scan", "verification_settings", "", err)
		}
		out[s.TestCode] = s
	}
	return out, nil
}

func (r *AutoVerificationSettingsRepository) List(ctx context.Context, tenantID string) ([]*verificationsettings.Settings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+verificationSettingsColumns+` FROM auto_verification_settings
		WHERE tenant_id=$1 ORDER BY test_code ASC`, tenantID)
	if err != nil {
		return nil, wrapErr("list", "verification_settings", "", err)
	}
	defer rows.Close()

	var out []*verificationsettings.Settings
	for rows.Next() {
		s, err := scanVerificationSettings(rows)
		if err != nil {
			return nil, wrapErr("list_scan", "verification_settings", "", err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *AutoVerificationSettingsRepository) Update(ctx context.Context, tenantID, testCode string, patch verificationsettings.Patch) (*verificationsettings.Settings, error) {
	existing, err := r.GetByTestCode(ctx, tenantID, testCode)
	if err != nil {
		return nil, err
	}
	if err := existing.Apply(patch); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid verification settings update", err)
	}
	existing.UpdatedAt = time.Now()

	_, err = r.db.ExecContext(ctx, `
		UPDATE auto_verification_settings SET reference_range_low=$1, reference_range_high=$2,
			critical_range_low=$3, critical_range_high=$4, instrument_flags_to_block=$5,
			delta_check_threshold_percent=$6, delta_check_lookback_days=$7, updated_at=$8
		WHERE id=$9 AND tenant_id=$10`,
		existing.ReferenceRangeLow, existing.ReferenceRangeHigh, existing.CriticalRangeLow,
		existing.CriticalRangeHigh, pq.Array(existing.InstrumentFlagsToBlock),
		existing.DeltaCheckThresholdPercent, existing.DeltaCheckLookbackDays, existing.UpdatedAt,
		existing.ID, tenantID)
	if err != nil {
		return nil, wrapErr("update", "verification_settings", existing.ID, err)
	}
	return existing, nil
}

func (r *AutoVerificationSettingsRepository) Delete(ctx context.Context, tenantID, testCode string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auto_verification_settings WHERE tenant_id=$1 AND test_code=$2`, tenantID, testCode)
	if err != nil {
		return wrapErr("delete", "verification_settings", testCode, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperrors.NotFound("verification_settings", testCode)
	}
	return nil
}
