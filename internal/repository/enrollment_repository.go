package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/focuskid/guardian-api/internal/models"
)

// EnrollmentRepository is the read-only view of class membership the
// ledger consults. Membership management itself belongs to another system.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs a new repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// IsActiveMember reports whether the student is currently an active member
// of the class.
func (r *EnrollmentRepository) IsActiveMember(ctx context.Context, studentID, classID string) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM enrollments WHERE student_id = $1 AND class_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, classID, models.EnrollmentStatusActive); err != nil {
		return false, fmt.Errorf("check class membership: %w", err)
	}
	return exists, nil
}

// FindClassByID returns a class record, or sql.ErrNoRows when absent.
func (r *EnrollmentRepository) FindClassByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, active, created_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}
