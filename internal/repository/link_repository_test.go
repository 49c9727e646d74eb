package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/focuskid/guardian-api/internal/models"
)

func newLinkRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestLinkRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewLinkRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO guardian_links")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	link := &models.GuardianLink{
		GuardianID:      "guardian-1",
		ChildID:         "child-1",
		Status:          models.LinkStatusPending,
		Relation:        models.LinkRelationParent,
		LinkPermissions: models.DefaultLinkPermissions(),
	}
	require.NoError(t, repo.Create(context.Background(), link))
	require.NotEmpty(t, link.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryCreateDuplicatePair(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewLinkRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO guardian_links")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "guardian_links_pair_unique"})

	err := repo.Create(context.Background(), &models.GuardianLink{GuardianID: "guardian-1", ChildID: "child-1"})
	require.ErrorIs(t, err, ErrDuplicatePair)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryAcceptUpdatesMirrors(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewLinkRepository(db)
	respondedAt := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE guardian_links SET status = $2, responded_at = $3")).
		WithArgs("link-1", string(models.LinkStatusAccepted), respondedAt, string(models.LinkStatusPending)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET children = array_append(children, $2)")).
		WithArgs("guardian-1", "child-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET guardians = array_append(guardians, $2)")).
		WithArgs("child-1", "guardian-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	link := &models.GuardianLink{ID: "link-1", GuardianID: "guardian-1", ChildID: "child-1"}
	updated, err := repo.Accept(context.Background(), link, respondedAt)
	require.NoError(t, err)
	require.True(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryAcceptLosesRace(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewLinkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE guardian_links SET status = $2, responded_at = $3")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	link := &models.GuardianLink{ID: "link-1", GuardianID: "guardian-1", ChildID: "child-1"}
	updated, err := repo.Accept(context.Background(), link, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryBlockRemovesMirrors(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewLinkRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE guardian_links SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("link-1", string(models.LinkStatusBlocked), string(models.LinkStatusAccepted)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET children = array_remove(children, $2)")).
		WithArgs("guardian-1", "child-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET guardians = array_remove(guardians, $2)")).
		WithArgs("child-1", "guardian-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	link := &models.GuardianLink{ID: "link-1", GuardianID: "guardian-1", ChildID: "child-1"}
	updated, err := repo.Block(context.Background(), link)
	require.NoError(t, err)
	require.True(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryFindAcceptedBetweenEitherOrientation(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewLinkRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "guardian_id", "child_id", "status", "relation", "notes",
		"perm_view_progress", "perm_give_rewards", "perm_set_goals", "perm_view_classes", "perm_receive_alerts",
		"requested_at", "responded_at",
	}).AddRow("link-1", "guardian-1", "child-1", "ACCEPTED", "PARENT", "",
		true, true, false, true, true, time.Now(), nil)
	mock.ExpectQuery("SELECT (.+) FROM guardian_links").
		WithArgs("child-1", "guardian-1", string(models.LinkStatusAccepted)).
		WillReturnRows(rows)

	link, err := repo.FindAcceptedBetween(context.Background(), "child-1", "guardian-1")
	require.NoError(t, err)
	require.Equal(t, "link-1", link.ID)
	require.True(t, link.GiveRewards)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newLinkRepoMock(t)
	defer cleanup()

	repo := NewLinkRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM guardian_links").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
