package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

// ActivationRepository implements licensing.ActivationStore.
type ActivationRepository struct {
	db *DB
}

func NewActivationRepository(db *DB) *ActivationRepository {
	return &ActivationRepository{db: db}
}

var _ licensing.ActivationStore = (*ActivationRepository)(nil)

func (r *ActivationRepository) ClaimSlot(ctx context.Context, act *models.Activation) (*models.Activation, bool, error) {
	var (
		current  *models.Activation
		existing bool
	)
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		// Lock the license row so concurrent claims for the same device
		// serialize on it.
		var status models.LicenseStatus
		err := tx.GetContext(ctx, &status, `SELECT status FROM licenses WHERE id = $1 FOR UPDATE`, act.LicenseID)
		if errors.Is(err, sql.ErrNoRows) {
			return licensing.ErrLicenseNotFound
		}
		if err != nil {
			return err
		}

		var prior models.Activation
		err = tx.GetContext(ctx, &prior, `
			SELECT * FROM license_activations
			WHERE license_id = $1 AND device_id = $2 AND is_active = true
		`, act.LicenseID, act.DeviceID)
		if err == nil {
			current, existing = &prior, true
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE licenses
			SET current_activations = current_activations + 1, updated_at = NOW()
			WHERE id = $1
				AND current_activations < max_activations
				AND status = $2
				AND (expires_at IS NULL OR expires_at > NOW())
		`, act.LicenseID, models.LicenseStatusActive)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return slotRefusal(ctx, tx, act.LicenseID, status)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO license_activations (id, license_id, device_id, ip_address, user_agent, is_active, activated_at)
			VALUES ($1, $2, $3, $4, $5, true, $6)
		`, act.ID, act.LicenseID, act.DeviceID, act.IPAddress, act.UserAgent, act.ActivatedAt)
		if err != nil {
			return err
		}
		current = act
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return current, existing, nil
}

func (r *ActivationRepository) ReleaseSlot(ctx context.Context, licenseID uuid.UUID, deviceID string) (*models.Activation, error) {
	var released models.Activation
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &released, `
			UPDATE license_activations
			SET is_active = false, deactivated_at = NOW()
			WHERE license_id = $1 AND device_id = $2 AND is_active = true
			RETURNING *
		`, licenseID, deviceID)
		if errors.Is(err, sql.ErrNoRows) {
			return licensing.ErrActivationNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE licenses
			SET current_activations = current_activations - 1, updated_at = NOW()
			WHERE id = $1 AND current_activations > 0
		`, licenseID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &released, nil
}

func (r *ActivationRepository) ListActivations(ctx context.Context, licenseID uuid.UUID) ([]models.Activation, error) {
	activations := []models.Activation{}
	query := `SELECT * FROM license_activations WHERE license_id = $1 ORDER BY activated_at DESC`
	err := r.db.SelectContext(ctx, &activations, query, licenseID)
	return activations, err
}

// slotRefusal explains why the conditional increment matched no row.
func slotRefusal(ctx context.Context, tx *sqlx.Tx, licenseID uuid.UUID, status models.LicenseStatus) error {
	if status != models.LicenseStatusActive {
		return licensing.ErrLicenseInactive
	}
	var expired bool
	err := tx.GetContext(ctx, &expired,
		`SELECT expires_at IS NOT NULL AND expires_at <= NOW() FROM licenses WHERE id = $1`, licenseID)
	if err != nil {
		return err
	}
	if expired {
		return licensing.ErrLicenseInactive
	}
	return licensing.ErrActivationLimit
}

func (r *ActivationRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
