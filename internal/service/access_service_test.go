package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuskid/guardian-api/internal/models"
)

type gateStoreStub struct {
	accepted map[string]models.GuardianLink
}

func (s *gateStoreStub) ExistsAccepted(ctx context.Context, guardianID, childID string) (bool, error) {
	_, ok := s.accepted[guardianID+"/"+childID]
	return ok, nil
}

func (s *gateStoreStub) FindAcceptedByPair(ctx context.Context, guardianID, childID string) (*models.GuardianLink, error) {
	if l, ok := s.accepted[guardianID+"/"+childID]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func TestAccessHasPermissionWithoutLink(t *testing.T) {
	svc := NewAccessService(&gateStoreStub{})
	ok, err := svc.HasPermission(context.Background(), "guardian-1", "child-1", models.PermissionGiveRewards)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessHasPermissionGrantBits(t *testing.T) {
	perms := models.DefaultLinkPermissions()
	store := &gateStoreStub{accepted: map[string]models.GuardianLink{
		"guardian-1/child-1": {GuardianID: "guardian-1", ChildID: "child-1", Status: models.LinkStatusAccepted, LinkPermissions: perms},
	}}
	svc := NewAccessService(store)

	ok, err := svc.HasPermission(context.Background(), "guardian-1", "child-1", models.PermissionViewProgress)
	require.NoError(t, err)
	assert.True(t, ok)

	// set_goals is off by default
	ok, err = svc.HasPermission(context.Background(), "guardian-1", "child-1", models.PermissionSetGoals)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(context.Background(), "guardian-1", "child-1", "made_up")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessRemovalTakesEffectImmediately(t *testing.T) {
	store := &gateStoreStub{accepted: map[string]models.GuardianLink{
		"guardian-1/child-1": {GuardianID: "guardian-1", ChildID: "child-1", Status: models.LinkStatusAccepted},
	}}
	svc := NewAccessService(store)

	ok, err := svc.HasAcceptedLink(context.Background(), "guardian-1", "child-1")
	require.NoError(t, err)
	assert.True(t, ok)

	delete(store.accepted, "guardian-1/child-1")
	ok, err = svc.HasAcceptedLink(context.Background(), "guardian-1", "child-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
