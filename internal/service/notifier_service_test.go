package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/pkg/config"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
)

type notificationStoreStub struct {
	mu    sync.Mutex
	items map[string]models.Notification
}

func (s *notificationStoreStub) Create(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string]models.Notification)
	}
	s.items[n.ID] = *n
	return nil
}

func (s *notificationStoreStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.items {
		if n.RecipientID != filter.RecipientID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (s *notificationStoreStub) MarkRead(ctx context.Context, id, recipientID string, readAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.RecipientID != recipientID || n.Read {
		return false, nil
	}
	n.Read = true
	n.ReadAt = &readAt
	s.items[id] = n
	return true, nil
}

func (s *notificationStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func TestNotifierEmitDeliversAsynchronously(t *testing.T) {
	store := &notificationStoreStub{}
	svc := NewNotifierService(store, nil, config.NotificationsConfig{WorkerConcurrency: 1, QueueBuffer: 8})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Emit("child-1", models.NotificationKindInfo, "New guardian request", "Dana wants to link", map[string]interface{}{"link_id": "l1"})

	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)

	items, pagination, err := svc.List(context.Background(), models.NotificationFilter{RecipientID: "child-1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "New guardian request", items[0].Title)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestNotifierMarkRead(t *testing.T) {
	store := &notificationStoreStub{items: map[string]models.Notification{
		"n1": {ID: "n1", RecipientID: "child-1", Kind: models.NotificationKindInfo},
	}}
	svc := NewNotifierService(store, nil, config.NotificationsConfig{})

	require.NoError(t, svc.MarkRead(context.Background(), "child-1", "n1"))
	assert.True(t, store.items["n1"].Read)

	// someone else's notification looks like it does not exist
	err := svc.MarkRead(context.Background(), "guardian-1", "n1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
