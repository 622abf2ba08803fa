package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type LicenseRepository struct {
	db *DB
}

func NewLicenseRepository(db *DB) *LicenseRepository {
	return &LicenseRepository{db: db}
}

const licenseDetailsSelect = `
	SELECT l.id, l.license_key, l.product_id, l.user_id, l.status,
		l.max_activations, l.current_activations, l.expires_at,
		l.created_at, l.updated_at,
		p.name AS product_name, p.version AS product_version, p.price AS product_price,
		u.email AS user_email, u.full_name AS user_full_name, u.company AS user_company,
		u.phone AS user_phone, u.role AS user_role
	FROM licenses l
	JOIN products p ON p.id = l.product_id
	LEFT JOIN users u ON u.id = l.user_id
`

// Create inserts the license. A license_key collision is reported as
// licensing.ErrDuplicateKey so issuance can re-roll.
func (r *LicenseRepository) Create(ctx context.Context, license *models.License) error {
	query := `
		INSERT INTO licenses (license_key, product_id, user_id, status, max_activations, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, current_activations, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		license.LicenseKey, license.ProductID, license.UserID, license.Status,
		license.MaxActivations, license.ExpiresAt,
	).Scan(&license.ID, &license.CurrentActivations, &license.CreatedAt, &license.UpdatedAt)
	if isUniqueViolation(err, constraintLicenseKey) {
		return licensing.ErrDuplicateKey
	}
	return err
}

func (r *LicenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LicenseDetails, error) {
	var license models.LicenseDetails
	err := r.db.GetContext(ctx, &license, licenseDetailsSelect+` WHERE l.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// FindActiveLicenseByKey is the validation lookup. Non-active rows are
// indistinguishable from unknown keys.
func (r *LicenseRepository) FindActiveLicenseByKey(ctx context.Context, licenseKey string) (*models.LicenseDetails, error) {
	var license models.LicenseDetails
	query := licenseDetailsSelect + ` WHERE l.license_key = $1 AND l.status = $2`
	err := r.db.GetContext(ctx, &license, query, licenseKey, models.LicenseStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find license by key: %w", err)
	}
	return &license, nil
}

// List returns licenses newest first. Search matches the key case-insensitively.
func (r *LicenseRepository) List(ctx context.Context, filter models.LicenseFilter) ([]models.LicenseDetails, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conds = append(conds, fmt.Sprintf("l.license_key ILIKE $%d", len(args)))
	}

	query := licenseDetailsSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY l.created_at DESC"

	licenses := []models.LicenseDetails{}
	err := r.db.SelectContext(ctx, &licenses, query, args...)
	return licenses, err
}

func (r *LicenseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.LicenseDetails, error) {
	licenses := []models.LicenseDetails{}
	query := licenseDetailsSelect + ` WHERE l.user_id = $1 ORDER BY l.created_at DESC`
	err := r.db.SelectContext(ctx, &licenses, query, userID)
	return licenses, err
}

// Update writes the operator-editable columns. Lowering max_activations
// below current_activations violates the table CHECK and fails.
// Update writes operator edits. The activation bound is checked in the same
// statement so a concurrent activation cannot slip under a lowered limit.
func (r *LicenseRepository) Update(ctx context.Context, license *models.License) error {
	query := `
		UPDATE licenses
		SET status = $1, max_activations = $2, expires_at = $3, user_id = $4, updated_at = NOW()
		WHERE id = $5 AND current_activations <= $2
		RETURNING current_activations, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		license.Status, license.MaxActivations, license.ExpiresAt, license.UserID, license.ID,
	).Scan(&license.CurrentActivations, &license.UpdatedAt)
	if isCheckViolation(err, constraintActivationBound) {
		return licensing.ErrLimitBelowActivations
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM licenses WHERE id = $1)`, license.ID); err != nil {
		return err
	}
	if exists {
		return licensing.ErrLimitBelowActivations
	}
	return licensing.ErrLicenseNotFound
}

func (r *LicenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM licenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return licensing.ErrLicenseNotFound
	}
	return nil
}

func (r *LicenseRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM licenses`)
	return count, err
}

func (r *LicenseRepository) CountByStatus(ctx context.Context) (map[models.LicenseStatus]int, error) {
	var rows []struct {
		Status models.LicenseStatus `db:"status"`
		Count  int                  `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM licenses GROUP BY status`)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.LicenseStatus]int, len(models.LicenseStatuses))
	for _, s := range models.LicenseStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountLapsed counts licenses still marked active whose expiry has passed.
func (r *LicenseRepository) CountLapsed(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM licenses WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < NOW()`
	err := r.db.GetContext(ctx, &count, query, models.LicenseStatusActive)
	return count, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
