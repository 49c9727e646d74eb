package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/pkg/config"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
)

type rewardStoreStub struct {
	entries map[string]models.RewardEntry
	seq     int
}

func (s *rewardStoreStub) Create(ctx context.Context, entry *models.RewardEntry) error {
	if s.entries == nil {
		s.entries = make(map[string]models.RewardEntry)
	}
	if entry.ID == "" {
		s.seq++
		entry.ID = fmt.Sprintf("entry-%d", s.seq)
	}
	s.entries[entry.ID] = *entry
	return nil
}

func (s *rewardStoreStub) FindByID(ctx context.Context, id string) (*models.RewardEntry, error) {
	if e, ok := s.entries[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (s *rewardStoreStub) Cancel(ctx context.Context, id string, cancelledAt, createdAfter time.Time) (bool, error) {
	e, ok := s.entries[id]
	if !ok || e.Status != models.RewardStatusApproved || !e.CreatedAt.After(createdAfter) {
		return false, nil
	}
	e.Status = models.RewardStatusCancelled
	e.CancelledAt = &cancelledAt
	s.entries[id] = e
	return true, nil
}

func (s *rewardStoreStub) List(ctx context.Context, filter models.RewardEntryFilter) ([]models.RewardEntry, int, error) {
	var out []models.RewardEntry
	for _, e := range s.entries {
		if filter.StudentID != "" && e.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && e.ClassID != filter.ClassID {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (s *rewardStoreStub) Totals(ctx context.Context, studentID, classID string) (*models.RewardTotals, error) {
	totals := &models.RewardTotals{}
	for _, e := range s.entries {
		if e.StudentID != studentID || e.ClassID != classID || e.Status != models.RewardStatusApproved {
			continue
		}
		totals.Total += e.Points
		if e.Type == models.RewardTypeReward {
			totals.RewardsTotal += e.Points
			totals.RewardsCount++
		} else {
			totals.PenaltiesTotal += e.Points
			totals.PenaltiesCount++
		}
	}
	return totals, nil
}

func (s *rewardStoreStub) SummaryByClass(ctx context.Context, studentID string) ([]models.ClassPointsSummary, error) {
	byClass := map[string]*models.ClassPointsSummary{}
	for _, e := range s.entries {
		if e.StudentID != studentID || e.Status != models.RewardStatusApproved {
			continue
		}
		c, ok := byClass[e.ClassID]
		if !ok {
			c = &models.ClassPointsSummary{ClassID: e.ClassID, ClassName: e.ClassID}
			byClass[e.ClassID] = c
		}
		c.Total += e.Points
		c.EntryCount++
	}
	var out []models.ClassPointsSummary
	for _, c := range byClass {
		out = append(out, *c)
	}
	return out, nil
}

type membershipStub struct {
	classes map[string]models.Class
	members map[string]bool
}

func (s *membershipStub) IsActiveMember(ctx context.Context, studentID, classID string) (bool, error) {
	return s.members[studentID+"/"+classID], nil
}

func (s *membershipStub) FindClassByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := s.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type rewardUserStub struct {
	users map[string]models.User
}

func (s *rewardUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (s *rewardUserStub) HasActiveRole(ctx context.Context, userID string, role models.RoleType) (bool, error) {
	u, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	return u.HasActiveRole(role), nil
}

type accessStub struct {
	linked      map[string]bool
	permissions map[string]bool
}

func (s *accessStub) HasAcceptedLink(ctx context.Context, guardianID, childID string) (bool, error) {
	return s.linked[guardianID+"/"+childID], nil
}

func (s *accessStub) HasPermission(ctx context.Context, guardianID, childID, permission string) (bool, error) {
	return s.permissions[guardianID+"/"+childID+"/"+permission], nil
}

type rewardFixture struct {
	store   *rewardStoreStub
	access  *accessStub
	emitter *emitterStub
	svc     *RewardService
}

func newRewardFixture(t *testing.T) *rewardFixture {
	t.Helper()
	store := &rewardStoreStub{}
	enrollments := &membershipStub{
		classes: map[string]models.Class{"class-1": {ID: "class-1", Name: "Algebra"}},
		members: map[string]bool{"child-1/class-1": true},
	}
	users := &rewardUserStub{users: map[string]models.User{
		"teacher-1":  {ID: "teacher-1", Active: true, Roles: []models.UserRole{{Role: models.RoleTeacher, Active: true}}},
		"guardian-1": {ID: "guardian-1", Active: true, Roles: []models.UserRole{{Role: models.RoleGuardian, Active: true}}},
		"child-1":    {ID: "child-1", Active: true, Roles: []models.UserRole{{Role: models.RoleStudent, Active: true}}},
		"child-2":    {ID: "child-2", Active: true, Roles: []models.UserRole{{Role: models.RoleStudent, Active: true}}},
	}}
	access := &accessStub{
		linked:      map[string]bool{"guardian-1/child-1": true},
		permissions: map[string]bool{"guardian-1/child-1/" + models.PermissionGiveRewards: true},
	}
	emitter := &emitterStub{}
	svc := NewRewardService(store, enrollments, users, access, emitter, nil, nil, config.LedgerConfig{CancelWindow: 24 * time.Hour, MaxPoints: 100})
	return &rewardFixture{store: store, access: access, emitter: emitter, svc: svc}
}

func validEntry() PostEntryRequest {
	return PostEntryRequest{
		StudentID: "child-1",
		ClassID:   "class-1",
		Type:      "REWARD",
		Category:  "PERFORMANCE",
		Points:    10,
		Reason:    "great quiz result",
	}
}

func TestRewardPostByTeacher(t *testing.T) {
	f := newRewardFixture(t)
	entry, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)
	assert.Equal(t, models.RewardStatusApproved, entry.Status)
	assert.Equal(t, 10, entry.Points)
	require.Len(t, f.emitter.emitted, 1)
	assert.Equal(t, "child-1", f.emitter.emitted[0].RecipientID)
	assert.Equal(t, models.NotificationKindSuccess, f.emitter.emitted[0].Kind)
}

func TestRewardPenaltyNotifiesWithWarning(t *testing.T) {
	f := newRewardFixture(t)
	req := validEntry()
	req.Type = "PENALTY"
	req.Category = "BEHAVIOR"
	req.Points = -5
	entry, err := f.svc.Post(context.Background(), "teacher-1", req)
	require.NoError(t, err)
	assert.Equal(t, -5, entry.Points)
	require.Len(t, f.emitter.emitted, 1)
	assert.Equal(t, models.NotificationKindWarning, f.emitter.emitted[0].Kind)
}

func TestRewardSignInvariant(t *testing.T) {
	f := newRewardFixture(t)

	req := validEntry()
	req.Points = -10
	_, err := f.svc.Post(context.Background(), "teacher-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req = validEntry()
	req.Type = "PENALTY"
	req.Points = 5
	_, err = f.svc.Post(context.Background(), "teacher-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRewardPostUnknownClass(t *testing.T) {
	f := newRewardFixture(t)
	req := validEntry()
	req.ClassID = "class-9"
	_, err := f.svc.Post(context.Background(), "teacher-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRewardPostInactiveMembership(t *testing.T) {
	f := newRewardFixture(t)
	req := validEntry()
	req.StudentID = "child-2"
	_, err := f.svc.Post(context.Background(), "teacher-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestRewardGuardianNeedsGiveRewardsPermission(t *testing.T) {
	f := newRewardFixture(t)

	entry, err := f.svc.Post(context.Background(), "guardian-1", validEntry())
	require.NoError(t, err)
	assert.Equal(t, "guardian-1", entry.GivenBy)

	f.access.permissions = map[string]bool{}
	_, err = f.svc.Post(context.Background(), "guardian-1", validEntry())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRewardStudentCannotPost(t *testing.T) {
	f := newRewardFixture(t)
	_, err := f.svc.Post(context.Background(), "child-2", validEntry())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRewardCancelInsideWindow(t *testing.T) {
	f := newRewardFixture(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	entry, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(23*time.Hour + 59*time.Minute) }
	require.NoError(t, f.svc.Cancel(context.Background(), "teacher-1", entry.ID))
	assert.Equal(t, models.RewardStatusCancelled, f.store.entries[entry.ID].Status)
}

func TestRewardCancelAfterWindow(t *testing.T) {
	f := newRewardFixture(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	entry, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(24*time.Hour + time.Minute) }
	err = f.svc.Cancel(context.Background(), "teacher-1", entry.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.RewardStatusApproved, f.store.entries[entry.ID].Status)
}

func TestRewardCancelOnlyByGiver(t *testing.T) {
	f := newRewardFixture(t)
	entry, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)

	err = f.svc.Cancel(context.Background(), "guardian-1", entry.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRewardCancelTwice(t *testing.T) {
	f := newRewardFixture(t)
	entry, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(context.Background(), "teacher-1", entry.ID))
	err = f.svc.Cancel(context.Background(), "teacher-1", entry.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestRewardTotalsExcludeCancelled(t *testing.T) {
	f := newRewardFixture(t)
	first, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)

	req := validEntry()
	req.Type = "PENALTY"
	req.Category = "BEHAVIOR"
	req.Points = -3
	_, err = f.svc.Post(context.Background(), "teacher-1", req)
	require.NoError(t, err)

	totals, err := f.svc.Totals(context.Background(), "child-1", "child-1", "class-1")
	require.NoError(t, err)
	assert.Equal(t, 7, totals.Total)

	require.NoError(t, f.svc.Cancel(context.Background(), "teacher-1", first.ID))
	totals, err = f.svc.Totals(context.Background(), "child-1", "child-1", "class-1")
	require.NoError(t, err)
	assert.Equal(t, -3, totals.Total)
	assert.Equal(t, 1, totals.PenaltiesCount)
}

func TestRewardReadGate(t *testing.T) {
	f := newRewardFixture(t)
	_, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)

	// linked guardian may read
	_, err = f.svc.Summary(context.Background(), "guardian-1", "child-1")
	require.NoError(t, err)

	// severed guardian may not
	f.access.linked = map[string]bool{}
	_, err = f.svc.Summary(context.Background(), "guardian-1", "child-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	// another student may not read either
	_, _, err = f.svc.List(context.Background(), "child-2", models.RewardEntryFilter{StudentID: "child-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRewardStatementDataset(t *testing.T) {
	f := newRewardFixture(t)
	_, err := f.svc.Post(context.Background(), "teacher-1", validEntry())
	require.NoError(t, err)

	dataset, err := f.svc.Statement(context.Background(), "child-1", "child-1", "")
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "+10", dataset.Rows[0]["Points"])
	assert.Equal(t, "APPROVED", dataset.Rows[0]["Status"])
	assert.Equal(t, "+10", dataset.Footer["Points"])
}
