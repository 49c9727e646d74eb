package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/pkg/config"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
	"github.com/focuskid/guardian-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string, readAt time.Time) (bool, error)
}

// NotifierService persists notification records emitted by link and ledger
// transitions. Emission is fire-and-forget: records are pushed onto an
// in-memory worker queue after the triggering operation has committed, and
// a failed write is logged without ever surfacing to the caller.
type NotifierService struct {
	repo    notificationStore
	queue   *jobs.Queue
	logger  *zap.Logger
	metrics *MetricsService
}

// NewNotifierService constructs the emitter and its worker queue.
func NewNotifierService(repo notificationStore, logger *zap.Logger, cfg config.NotificationsConfig) *NotifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotifierService{repo: repo, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		BufferSize: cfg.QueueBuffer,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// WithMetrics attaches queue depth instrumentation.
func (s *NotifierService) WithMetrics(m *MetricsService) *NotifierService {
	s.metrics = m
	return s
}

// Start launches the delivery workers.
func (s *NotifierService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the delivery workers.
func (s *NotifierService) Stop() {
	s.queue.Stop()
}

// Emit enqueues a notification for the recipient. Failures are logged and
// dropped; the triggering operation has already committed and must not be
// affected.
func (s *NotifierService) Emit(recipientID string, kind models.NotificationKind, title, message string, data map[string]interface{}) {
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Kind:        kind,
		Title:       title,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if len(data) > 0 {
		payload, err := json.Marshal(data)
		if err != nil {
			s.logger.Warn("notification payload marshal failed", zap.String("recipient", recipientID), zap.Error(err))
		} else {
			n.Data = payload
		}
	}
	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: string(kind), Payload: n}); err != nil {
		s.logger.Warn("notification enqueue failed", zap.String("recipient", recipientID), zap.Error(err))
	}
	s.metrics.SetQueueDepth(s.queue.Depth())
}

func (s *NotifierService) deliver(ctx context.Context, job jobs.Job) error {
	defer s.metrics.SetQueueDepth(s.queue.Depth())
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, n)
}

// List returns the recipient's notifications with pagination metadata.
func (s *NotifierService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return notifications, pagination, nil
}

// MarkRead marks one of the recipient's notifications as read.
func (s *NotifierService) MarkRead(ctx context.Context, recipientID, id string) error {
	updated, err := s.repo.MarkRead(ctx, id, recipientID, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}
