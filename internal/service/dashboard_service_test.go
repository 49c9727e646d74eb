package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/pkg/config"
)

type dashLinksStub struct {
	links []models.GuardianLink
}

func (s *dashLinksStub) ListForGuardian(ctx context.Context, guardianID string, status models.LinkStatus) ([]models.GuardianLink, error) {
	var out []models.GuardianLink
	for _, l := range s.links {
		if l.GuardianID == guardianID && l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

type dashUsersStub struct {
	users map[string]models.User
}

func (s *dashUsersStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

type dashSessionsStub struct {
	metrics map[string]models.FocusMetrics
	err     error
}

func (s *dashSessionsStub) MetricsForUser(ctx context.Context, userID string, from, to time.Time) (*models.FocusMetrics, error) {
	if s.err != nil {
		return nil, s.err
	}
	m := s.metrics[userID]
	return &m, nil
}

type dashRewardsStub struct {
	perClass map[string][]models.ClassPointsSummary
	period   map[string]int
}

func (s *dashRewardsStub) SummaryByClass(ctx context.Context, studentID string) ([]models.ClassPointsSummary, error) {
	return s.perClass[studentID], nil
}

func (s *dashRewardsStub) PointsSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	return s.period[studentID], nil
}

func TestDashboardGuardianAggregatesChildren(t *testing.T) {
	links := &dashLinksStub{links: []models.GuardianLink{
		{ID: "l1", GuardianID: "guardian-1", ChildID: "child-1", Status: models.LinkStatusAccepted, Relation: models.LinkRelationParent},
		{ID: "l2", GuardianID: "guardian-1", ChildID: "child-2", Status: models.LinkStatusAccepted, Relation: models.LinkRelationTutor},
		{ID: "l3", GuardianID: "guardian-1", ChildID: "child-3", Status: models.LinkStatusPending, Relation: models.LinkRelationParent},
	}}
	users := &dashUsersStub{users: map[string]models.User{
		"child-1": {ID: "child-1", FullName: "Milo", Handle: "milo"},
		"child-2": {ID: "child-2", FullName: "Ada", Handle: "ada"},
	}}
	sessions := &dashSessionsStub{metrics: map[string]models.FocusMetrics{
		"child-1": {SessionCount: 4, TotalMinutes: 100},
		"child-2": {SessionCount: 1, TotalMinutes: 25},
	}}
	rewards := &dashRewardsStub{
		perClass: map[string][]models.ClassPointsSummary{
			"child-1": {{ClassID: "class-1", ClassName: "Algebra", Total: 12, EntryCount: 3}},
		},
		period: map[string]int{"child-1": 8, "child-2": -2},
	}

	svc := NewDashboardService(links, users, sessions, rewards, nil, nil, config.DashboardConfig{PeriodDays: 7})
	resp, cached, err := svc.Guardian(context.Background(), "guardian-1")
	require.NoError(t, err)
	assert.False(t, cached)

	// pending link must not contribute a child
	require.Len(t, resp.Children, 2)
	assert.Equal(t, 6, resp.TotalPeriodPoints)
	assert.InDelta(t, 3.0, resp.AveragePoints, 0.001)

	byID := map[string]int{}
	for i, c := range resp.Children {
		byID[c.ChildID] = i
	}
	milo := resp.Children[byID["child-1"]]
	assert.Equal(t, 4, milo.Focus.SessionCount)
	assert.Equal(t, 8, milo.Points.PeriodTotal)
	assert.Equal(t, 12, milo.Points.OverallTotal)
	assert.Equal(t, models.LinkRelationParent, milo.Relation)
}

func TestDashboardGuardianMarksUnavailableChild(t *testing.T) {
	links := &dashLinksStub{links: []models.GuardianLink{
		{ID: "l1", GuardianID: "guardian-1", ChildID: "child-1", Status: models.LinkStatusAccepted},
		{ID: "l2", GuardianID: "guardian-1", ChildID: "child-gone", Status: models.LinkStatusAccepted},
	}}
	users := &dashUsersStub{users: map[string]models.User{
		"child-1": {ID: "child-1", FullName: "Milo", Handle: "milo"},
	}}
	sessions := &dashSessionsStub{metrics: map[string]models.FocusMetrics{}}
	rewards := &dashRewardsStub{period: map[string]int{"child-1": 5}}

	svc := NewDashboardService(links, users, sessions, rewards, nil, nil, config.DashboardConfig{})
	resp, _, err := svc.Guardian(context.Background(), "guardian-1")
	require.NoError(t, err)
	require.Len(t, resp.Children, 2)

	var unavailable int
	for _, c := range resp.Children {
		if c.Unavailable {
			unavailable++
			assert.Equal(t, "child-gone", c.ChildID)
		}
	}
	assert.Equal(t, 1, unavailable)
	// unavailable children are excluded from the totals
	assert.Equal(t, 5, resp.TotalPeriodPoints)
	assert.InDelta(t, 5.0, resp.AveragePoints, 0.001)
}

func TestDashboardGuardianPropagatesListFailure(t *testing.T) {
	links := &dashLinksStub{links: []models.GuardianLink{
		{ID: "l1", GuardianID: "guardian-1", ChildID: "child-1", Status: models.LinkStatusAccepted},
	}}
	users := &dashUsersStub{users: map[string]models.User{
		"child-1": {ID: "child-1"},
	}}
	sessions := &dashSessionsStub{err: errors.New("boom")}
	rewards := &dashRewardsStub{}

	svc := NewDashboardService(links, users, sessions, rewards, nil, nil, config.DashboardConfig{})
	resp, _, err := svc.Guardian(context.Background(), "guardian-1")
	require.NoError(t, err)
	require.Len(t, resp.Children, 1)
	assert.True(t, resp.Children[0].Unavailable)
}
