package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/focuskid/guardian-api/internal/models"
)

const rewardColumns = `id, student_id, class_id, given_by, entry_type, category, points, reason, status, metadata, created_at, cancelled_at`

// RewardRepository manages persistence for ledger entries.
type RewardRepository struct {
	db *sqlx.DB
}

// NewRewardRepository constructs a new repository.
func NewRewardRepository(db *sqlx.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

// Create inserts a new ledger entry.
func (r *RewardRepository) Create(ctx context.Context, entry *models.RewardEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO reward_entries (id, student_id, class_id, given_by, entry_type, category, points, reason, status, metadata, created_at)
VALUES (:id, :student_id, :class_id, :given_by, :entry_type, :category, :points, :reason, :status, :metadata, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create reward entry: %w", err)
	}
	return nil
}

// FindByID returns an entry by identifier.
func (r *RewardRepository) FindByID(ctx context.Context, id string) (*models.RewardEntry, error) {
	query := fmt.Sprintf(`SELECT %s FROM reward_entries WHERE id = $1 LIMIT 1`, rewardColumns)
	var entry models.RewardEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find reward entry: %w", err)
	}
	return &entry, nil
}

// Cancel conditionally voids an entry. The update only succeeds while the
// entry is still APPROVED and was created after the cutoff, which keeps the
// check-and-set atomic relative to concurrent cancellations.
func (r *RewardRepository) Cancel(ctx context.Context, id string, cancelledAt, createdAfter time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reward_entries SET status = $2, cancelled_at = $3 WHERE id = $1 AND status = $4 AND created_at > $5`,
		id, models.RewardStatusCancelled, cancelledAt, models.RewardStatusApproved, createdAfter)
	if err != nil {
		return false, fmt.Errorf("cancel reward entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel reward entry rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns ledger entries per provided filter with a total count.
func (r *RewardRepository) List(ctx context.Context, filter models.RewardEntryFilter) ([]models.RewardEntry, int, error) {
	base := "FROM reward_entries"
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		where = append(where, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.GivenBy != "" {
		where = append(where, fmt.Sprintf("given_by = $%d", len(args)+1))
		args = append(args, filter.GivenBy)
	}
	if filter.Type != "" {
		where = append(where, fmt.Sprintf("entry_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	whereClause := strings.Join(where, " AND ")
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		rewardColumns, base, whereClause, size, offset)
	var entries []models.RewardEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reward entries: %w", err)
	}
	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reward entries: %w", err)
	}
	return entries, total, nil
}

// Totals aggregates approved entries for one (student, class) pair.
// Cancelled and pending entries never count towards totals.
func (r *RewardRepository) Totals(ctx context.Context, studentID, classID string) (*models.RewardTotals, error) {
	const query = `SELECT COALESCE(SUM(points),0) AS total,
        COALESCE(SUM(CASE WHEN entry_type = 'REWARD' THEN points ELSE 0 END),0) AS rewards_total,
        COALESCE(SUM(CASE WHEN entry_type = 'REWARD' THEN 1 ELSE 0 END),0) AS rewards_count,
        COALESCE(SUM(CASE WHEN entry_type = 'PENALTY' THEN points ELSE 0 END),0) AS penalties_total,
        COALESCE(SUM(CASE WHEN entry_type = 'PENALTY' THEN 1 ELSE 0 END),0) AS penalties_count
FROM reward_entries
WHERE student_id = $1 AND class_id = $2 AND status = $3`
	var totals models.RewardTotals
	if err := r.db.GetContext(ctx, &totals, query, studentID, classID, models.RewardStatusApproved); err != nil {
		return nil, fmt.Errorf("reward totals: %w", err)
	}
	return &totals, nil
}

// SummaryByClass groups a student's approved entries by class.
func (r *RewardRepository) SummaryByClass(ctx context.Context, studentID string) ([]models.ClassPointsSummary, error) {
	const query = `SELECT e.class_id, c.name AS class_name,
        COALESCE(SUM(e.points),0) AS total, COUNT(*) AS entry_count
FROM reward_entries e
JOIN classes c ON c.id = e.class_id
WHERE e.student_id = $1 AND e.status = $2
GROUP BY e.class_id, c.name
ORDER BY c.name ASC`
	var summaries []models.ClassPointsSummary
	if err := r.db.SelectContext(ctx, &summaries, query, studentID, models.RewardStatusApproved); err != nil {
		return nil, fmt.Errorf("reward summary by class: %w", err)
	}
	return summaries, nil
}

// PointsSince sums a student's approved points created at or after the cutoff.
func (r *RewardRepository) PointsSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	const query = `SELECT COALESCE(SUM(points),0)
FROM reward_entries
WHERE student_id = $1 AND status = $2 AND created_at >= $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, studentID, models.RewardStatusApproved, since); err != nil {
		return 0, fmt.Errorf("reward points since: %w", err)
	}
	return total, nil
}
