package models

import "time"

// FocusSession is a row from the external focus-session metrics source.
// The core never writes this table.
type FocusSession struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	StartedAt       time.Time `db:"started_at" json:"started_at"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Completed       bool      `db:"completed" json:"completed"`
}

// FocusMetrics aggregates completed sessions for one user over a period.
type FocusMetrics struct {
	SessionCount int `db:"session_count" json:"session_count"`
	TotalMinutes int `db:"total_minutes" json:"total_minutes"`
}
