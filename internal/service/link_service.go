package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/internal/repository"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
)

type linkStore interface {
	Create(ctx context.Context, link *models.GuardianLink) error
	FindByID(ctx context.Context, id string) (*models.GuardianLink, error)
	FindAcceptedBetween(ctx context.Context, userA, userB string) (*models.GuardianLink, error)
	ListPendingForChild(ctx context.Context, childID string) ([]models.GuardianLink, error)
	ListForGuardian(ctx context.Context, guardianID string, status models.LinkStatus) ([]models.GuardianLink, error)
	Accept(ctx context.Context, link *models.GuardianLink, respondedAt time.Time) (bool, error)
	Reject(ctx context.Context, linkID string, respondedAt time.Time) (bool, error)
	Block(ctx context.Context, link *models.GuardianLink) (bool, error)
}

type linkUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByHandle(ctx context.Context, handle string) (*models.User, error)
}

type notificationEmitter interface {
	Emit(recipientID string, kind models.NotificationKind, title, message string, data map[string]interface{})
}

// RequestLinkRequest describes a guardian's link request payload. The
// child is addressed by handle, not by raw identifier.
type RequestLinkRequest struct {
	ChildHandle string `json:"child_handle" validate:"required"`
	Relation    string `json:"relation" validate:"required"`
	Notes       string `json:"notes" validate:"omitempty,max=500"`
}

// RespondLinkRequest carries the child's decision on a pending link.
type RespondLinkRequest struct {
	Decision string `json:"decision" validate:"required,oneof=ACCEPT REJECT"`
}

// LinkService owns the guardian link lifecycle.
type LinkService struct {
	links     linkStore
	users     linkUserReader
	notifier  notificationEmitter
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewLinkService constructs LinkService.
func NewLinkService(links linkStore, users linkUserReader, notifier notificationEmitter, validate *validator.Validate, logger *zap.Logger) *LinkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{links: links, users: users, notifier: notifier, validator: validate, logger: logger, now: time.Now}
}

// Request creates a pending link from the guardian towards the child
// addressed by handle. Exactly one link may ever exist per pair; a second
// request returns a conflict regardless of the existing link's status.
func (s *LinkService) Request(ctx context.Context, guardianID string, req RequestLinkRequest) (*models.GuardianLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid link request payload")
	}
	relation := models.LinkRelation(strings.ToUpper(req.Relation))
	if !models.ValidRelation(relation) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown relation")
	}

	child, err := s.users.FindByHandle(ctx, req.ChildHandle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve child")
	}

	guardian, err := s.users.FindByID(ctx, guardianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "guardian not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guardian")
	}
	if !guardian.HasActiveRole(models.RoleGuardian) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller lacks an active guardian role")
	}
	if !child.HasActiveRole(models.RoleStudent) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "target user is not an active student")
	}
	if child.ID == guardianID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot request a link to yourself")
	}

	link := &models.GuardianLink{
		GuardianID:      guardianID,
		ChildID:         child.ID,
		Status:          models.LinkStatusPending,
		Relation:        relation,
		Notes:           req.Notes,
		LinkPermissions: models.DefaultLinkPermissions(),
		RequestedAt:     s.now().UTC(),
	}
	if err := s.links.Create(ctx, link); err != nil {
		if errors.Is(err, repository.ErrDuplicatePair) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a link already exists for this guardian and child")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create link")
	}

	s.notifier.Emit(child.ID, models.NotificationKindInfo,
		"New guardian request",
		guardian.FullName+" wants to link to your account",
		map[string]interface{}{"link_id": link.ID, "guardian_id": guardianID, "relation": string(relation)})

	return link, nil
}

// Respond applies the child's accept/reject decision to a pending link.
// The status flip is a conditional update, so of two concurrent decisions
// exactly one wins and the loser is told the link already left PENDING.
func (s *LinkService) Respond(ctx context.Context, childID, linkID string, req RespondLinkRequest) (*models.GuardianLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid respond payload")
	}

	link, err := s.links.FindByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "link not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load link")
	}
	if link.ChildID != childID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "link belongs to another child")
	}
	if link.Status != models.LinkStatusPending {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "link has already been responded to")
	}

	respondedAt := s.now().UTC()
	accept := strings.ToUpper(req.Decision) == "ACCEPT"

	var updated bool
	if accept {
		updated, err = s.links.Accept(ctx, link, respondedAt)
	} else {
		updated, err = s.links.Reject(ctx, link.ID, respondedAt)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update link")
	}
	if !updated {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "link has already been responded to")
	}

	link.RespondedAt = &respondedAt
	if accept {
		link.Status = models.LinkStatusAccepted
		s.notifier.Emit(link.GuardianID, models.NotificationKindSuccess,
			"Link accepted",
			"Your link request was accepted",
			map[string]interface{}{"link_id": link.ID, "child_id": link.ChildID})
	} else {
		link.Status = models.LinkStatusRejected
		s.notifier.Emit(link.GuardianID, models.NotificationKindInfo,
			"Link declined",
			"Your link request was declined",
			map[string]interface{}{"link_id": link.ID, "child_id": link.ChildID})
	}

	return link, nil
}

// Remove blocks the accepted link between the caller and the counterpart.
// Either side of the link may invoke it. Blocking immediately retracts all
// capabilities derived from the link: the gate recomputes from storage on
// every check.
func (s *LinkService) Remove(ctx context.Context, actorID, counterpartID string) error {
	link, err := s.links.FindAcceptedBetween(ctx, actorID, counterpartID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no accepted link between these users")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load link")
	}

	updated, err := s.links.Block(ctx, link)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to block link")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "link is no longer accepted")
	}

	s.notifier.Emit(counterpartID, models.NotificationKindInfo,
		"Link removed",
		"A guardian link to your account was removed",
		map[string]interface{}{"link_id": link.ID})

	return nil
}

// ListPendingForChild returns the pending requests awaiting the child.
func (s *LinkService) ListPendingForChild(ctx context.Context, childID string) ([]models.GuardianLink, error) {
	links, err := s.links.ListPendingForChild(ctx, childID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending links")
	}
	return links, nil
}

// ListForGuardian returns the guardian's links filtered by status.
func (s *LinkService) ListForGuardian(ctx context.Context, guardianID, statusFilter string) ([]models.GuardianLink, error) {
	status := models.LinkStatus(strings.ToUpper(statusFilter))
	switch status {
	case "", models.LinkStatusPending, models.LinkStatusAccepted, models.LinkStatusRejected, models.LinkStatusBlocked:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown status filter")
	}
	links, err := s.links.ListForGuardian(ctx, guardianID, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list links")
	}
	return links, nil
}
