package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kamikazebr/license-gateway/pkg/models"
)

type AnalyticsRepository struct {
	db *DB
}

func NewAnalyticsRepository(db *DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) Create(ctx context.Context, event *models.AnalyticsEvent) error {
	if len(event.Metadata) == 0 {
		event.Metadata = json.RawMessage(`{}`)
	}
	query := `
		INSERT INTO analytics_events (event_type, license_id, user_id, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		event.EventType, event.LicenseID, event.UserID, []byte(event.Metadata),
	).Scan(&event.ID, &event.CreatedAt)
}

// Recent returns the newest events with their license key and product name.
func (r *AnalyticsRepository) Recent(ctx context.Context, limit int) ([]models.RecentActivity, error) {
	events := []models.RecentActivity{}
	query := `
		SELECT e.id, e.event_type, e.license_id, e.user_id, e.metadata, e.created_at,
			l.license_key AS license_key, p.name AS product_name
		FROM analytics_events e
		LEFT JOIN licenses l ON l.id = e.license_id
		LEFT JOIN products p ON p.id = l.product_id
		ORDER BY e.created_at DESC
		LIMIT $1
	`
	err := r.db.SelectContext(ctx, &events, query, limit)
	return events, err
}

func (r *AnalyticsRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM analytics_events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
