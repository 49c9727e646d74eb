package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/focuskid/guardian-api/internal/models"
)

type gateLinkStore interface {
	ExistsAccepted(ctx context.Context, guardianID, childID string) (bool, error)
	FindAcceptedByPair(ctx context.Context, guardianID, childID string) (*models.GuardianLink, error)
}

// AccessService answers "does this guardian have this capability over this
// child right now". Every predicate recomputes from current storage: a
// removed link must take effect for the very next authorization check, so
// results are never cached.
type AccessService struct {
	links gateLinkStore
}

// NewAccessService constructs the gate.
func NewAccessService(links gateLinkStore) *AccessService {
	return &AccessService{links: links}
}

// HasAcceptedLink reports whether an accepted link joins the pair.
func (s *AccessService) HasAcceptedLink(ctx context.Context, guardianID, childID string) (bool, error) {
	return s.links.ExistsAccepted(ctx, guardianID, childID)
}

// HasPermission reports whether the guardian holds the named grant over
// the child. False whenever no accepted link exists.
func (s *AccessService) HasPermission(ctx context.Context, guardianID, childID, permission string) (bool, error) {
	link, err := s.links.FindAcceptedByPair(ctx, guardianID, childID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return link.Has(permission), nil
}
