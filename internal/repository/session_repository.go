package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/focuskid/guardian-api/internal/models"
)

// SessionRepository is the read-only view of the focus-session metrics
// source consumed by progress and dashboard aggregation.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a new repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// MetricsForUser aggregates completed sessions for a user inside a period.
func (r *SessionRepository) MetricsForUser(ctx context.Context, userID string, from, to time.Time) (*models.FocusMetrics, error) {
	const query = `SELECT COUNT(*) AS session_count,
        COALESCE(SUM(duration_minutes),0) AS total_minutes
FROM focus_sessions
WHERE user_id = $1 AND completed AND started_at >= $2 AND started_at < $3`
	var metrics models.FocusMetrics
	if err := r.db.GetContext(ctx, &metrics, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("focus metrics: %w", err)
	}
	return &metrics, nil
}
