package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/focuskid/guardian-api/internal/models"
)

// ErrDuplicatePair is returned when an insert trips the unique constraint
// on (guardian_id, child_id). The constraint lives in storage so that two
// concurrent requests for the same pair cannot both succeed.
var ErrDuplicatePair = errors.New("guardian link already exists for pair")

const linkColumns = `id, guardian_id, child_id, status, relation, notes,
perm_view_progress, perm_give_rewards, perm_set_goals, perm_view_classes, perm_receive_alerts,
requested_at, responded_at`

// LinkRepository manages persistence for guardian links and the
// denormalized child/guardian mirrors on users.
type LinkRepository struct {
	db *sqlx.DB
}

// NewLinkRepository constructs a new repository.
func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Create inserts a new link in PENDING state. A unique violation on the
// pair constraint is mapped to ErrDuplicatePair.
func (r *LinkRepository) Create(ctx context.Context, link *models.GuardianLink) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.RequestedAt.IsZero() {
		link.RequestedAt = time.Now().UTC()
	}
	query := `INSERT INTO guardian_links (id, guardian_id, child_id, status, relation, notes,
perm_view_progress, perm_give_rewards, perm_set_goals, perm_view_classes, perm_receive_alerts, requested_at)
VALUES (:id, :guardian_id, :child_id, :status, :relation, :notes,
:perm_view_progress, :perm_give_rewards, :perm_set_goals, :perm_view_classes, :perm_receive_alerts, :requested_at)`
	if _, err := r.db.NamedExecContext(ctx, query, link); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicatePair
		}
		return fmt.Errorf("create guardian link: %w", err)
	}
	return nil
}

// FindByID returns a link by identifier.
func (r *LinkRepository) FindByID(ctx context.Context, id string) (*models.GuardianLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM guardian_links WHERE id = $1 LIMIT 1`, linkColumns)
	var link models.GuardianLink
	if err := r.db.GetContext(ctx, &link, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find guardian link: %w", err)
	}
	return &link, nil
}

// FindAcceptedByPair returns the accepted link for the exact
// (guardian, child) orientation, or sql.ErrNoRows.
func (r *LinkRepository) FindAcceptedByPair(ctx context.Context, guardianID, childID string) (*models.GuardianLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM guardian_links
WHERE guardian_id = $1 AND child_id = $2 AND status = $3 LIMIT 1`, linkColumns)
	var link models.GuardianLink
	if err := r.db.GetContext(ctx, &link, query, guardianID, childID, models.LinkStatusAccepted); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find accepted link: %w", err)
	}
	return &link, nil
}

// FindAcceptedBetween returns the accepted link joining the two users in
// either orientation, or sql.ErrNoRows.
func (r *LinkRepository) FindAcceptedBetween(ctx context.Context, userA, userB string) (*models.GuardianLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM guardian_links
WHERE status = $3 AND ((guardian_id = $1 AND child_id = $2) OR (guardian_id = $2 AND child_id = $1)) LIMIT 1`, linkColumns)
	var link models.GuardianLink
	if err := r.db.GetContext(ctx, &link, query, userA, userB, models.LinkStatusAccepted); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find accepted link between users: %w", err)
	}
	return &link, nil
}

// ExistsAccepted reports whether an accepted link exists for the pair.
func (r *LinkRepository) ExistsAccepted(ctx context.Context, guardianID, childID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM guardian_links WHERE guardian_id = $1 AND child_id = $2 AND status = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, guardianID, childID, models.LinkStatusAccepted); err != nil {
		return false, fmt.Errorf("check accepted link: %w", err)
	}
	return exists, nil
}

// ListPendingForChild returns pending links awaiting the child's decision.
func (r *LinkRepository) ListPendingForChild(ctx context.Context, childID string) ([]models.GuardianLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM guardian_links
WHERE child_id = $1 AND status = $2 ORDER BY requested_at ASC`, linkColumns)
	var links []models.GuardianLink
	if err := r.db.SelectContext(ctx, &links, query, childID, models.LinkStatusPending); err != nil {
		return nil, fmt.Errorf("list pending links: %w", err)
	}
	return links, nil
}

// ListForGuardian returns the guardian's links, optionally filtered by status.
func (r *LinkRepository) ListForGuardian(ctx context.Context, guardianID string, status models.LinkStatus) ([]models.GuardianLink, error) {
	args := []interface{}{guardianID}
	query := fmt.Sprintf(`SELECT %s FROM guardian_links WHERE guardian_id = $1`, linkColumns)
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY requested_at DESC"
	var links []models.GuardianLink
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("list guardian links: %w", err)
	}
	return links, nil
}

// Accept flips a pending link to ACCEPTED and appends each party to the
// other's denormalized list, all inside one transaction. The status flip
// is a conditional update, so the loser of a double-respond race sees
// updated=false. List appends are guarded to stay idempotent.
func (r *LinkRepository) Accept(ctx context.Context, link *models.GuardianLink, respondedAt time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin accept tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE guardian_links SET status = $2, responded_at = $3 WHERE id = $1 AND status = $4`,
		link.ID, models.LinkStatusAccepted, respondedAt, models.LinkStatusPending)
	if err != nil {
		return false, fmt.Errorf("accept link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept link rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET children = array_append(children, $2), updated_at = now()
WHERE id = $1 AND NOT ($2 = ANY(children))`,
		link.GuardianID, link.ChildID); err != nil {
		return false, fmt.Errorf("append child to guardian mirror: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET guardians = array_append(guardians, $2), updated_at = now()
WHERE id = $1 AND NOT ($2 = ANY(guardians))`,
		link.ChildID, link.GuardianID); err != nil {
		return false, fmt.Errorf("append guardian to child mirror: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit accept tx: %w", err)
	}
	return true, nil
}

// Reject flips a pending link to REJECTED. No mirror updates are needed.
func (r *LinkRepository) Reject(ctx context.Context, linkID string, respondedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE guardian_links SET status = $2, responded_at = $3 WHERE id = $1 AND status = $4`,
		linkID, models.LinkStatusRejected, respondedAt, models.LinkStatusPending)
	if err != nil {
		return false, fmt.Errorf("reject link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reject link rows affected: %w", err)
	}
	return affected > 0, nil
}

// Block flips an accepted link to BLOCKED and removes each party from the
// other's denormalized list inside one transaction.
func (r *LinkRepository) Block(ctx context.Context, link *models.GuardianLink) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin block tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`UPDATE guardian_links SET status = $2 WHERE id = $1 AND status = $3`,
		link.ID, models.LinkStatusBlocked, models.LinkStatusAccepted)
	if err != nil {
		return false, fmt.Errorf("block link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("block link rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET children = array_remove(children, $2), updated_at = now() WHERE id = $1`,
		link.GuardianID, link.ChildID); err != nil {
		return false, fmt.Errorf("remove child from guardian mirror: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET guardians = array_remove(guardians, $2), updated_at = now() WHERE id = $1`,
		link.ChildID, link.GuardianID); err != nil {
		return false, fmt.Errorf("remove guardian from child mirror: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit block tx: %w", err)
	}
	return true, nil
}
