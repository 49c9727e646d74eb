package models

import "time"

// LinkStatus is the lifecycle state of a guardian link.
type LinkStatus string

const (
	LinkStatusPending  LinkStatus = "PENDING"
	LinkStatusAccepted LinkStatus = "ACCEPTED"
	LinkStatusRejected LinkStatus = "REJECTED"
	LinkStatusBlocked  LinkStatus = "BLOCKED"
)

// LinkRelation is an informational tag describing the relationship.
type LinkRelation string

const (
	LinkRelationParent   LinkRelation = "PARENT"
	LinkRelationGuardian LinkRelation = "GUARDIAN"
	LinkRelationTutor    LinkRelation = "TUTOR"
	LinkRelationMentor   LinkRelation = "MENTOR"
	LinkRelationRelative LinkRelation = "RELATIVE"
	LinkRelationOther    LinkRelation = "OTHER"
)

// Permission names usable with HasPermission.
const (
	PermissionViewProgress  = "view_progress"
	PermissionGiveRewards   = "give_rewards"
	PermissionSetGoals      = "set_goals"
	PermissionViewClasses   = "view_classes"
	PermissionReceiveAlerts = "receive_alerts"
)

// LinkPermissions is the bundle of independent grants attached to an
// accepted link. Every flag defaults to true except SetGoals.
type LinkPermissions struct {
	ViewProgress  bool `db:"perm_view_progress" json:"view_progress"`
	GiveRewards   bool `db:"perm_give_rewards" json:"give_rewards"`
	SetGoals      bool `db:"perm_set_goals" json:"set_goals"`
	ViewClasses   bool `db:"perm_view_classes" json:"view_classes"`
	ReceiveAlerts bool `db:"perm_receive_alerts" json:"receive_alerts"`
}

// DefaultLinkPermissions returns the permission bundle applied to new links.
func DefaultLinkPermissions() LinkPermissions {
	return LinkPermissions{
		ViewProgress:  true,
		GiveRewards:   true,
		SetGoals:      false,
		ViewClasses:   true,
		ReceiveAlerts: true,
	}
}

// Has returns the named grant from the bundle.
func (p LinkPermissions) Has(name string) bool {
	switch name {
	case PermissionViewProgress:
		return p.ViewProgress
	case PermissionGiveRewards:
		return p.GiveRewards
	case PermissionSetGoals:
		return p.SetGoals
	case PermissionViewClasses:
		return p.ViewClasses
	case PermissionReceiveAlerts:
		return p.ReceiveAlerts
	default:
		return false
	}
}

// GuardianLink is the consent record governing whether a guardian may act
// on a child's data. At most one row exists per (guardian, child) pair,
// enforced by a unique constraint in storage.
type GuardianLink struct {
	ID         string       `db:"id" json:"id"`
	GuardianID string       `db:"guardian_id" json:"guardian_id"`
	ChildID    string       `db:"child_id" json:"child_id"`
	Status     LinkStatus   `db:"status" json:"status"`
	Relation   LinkRelation `db:"relation" json:"relation"`
	Notes      string       `db:"notes" json:"notes,omitempty"`

	LinkPermissions

	RequestedAt time.Time  `db:"requested_at" json:"requested_at"`
	RespondedAt *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}

// ValidRelation reports whether the tag is one of the known relation kinds.
func ValidRelation(r LinkRelation) bool {
	switch r {
	case LinkRelationParent, LinkRelationGuardian, LinkRelationTutor, LinkRelationMentor, LinkRelationRelative, LinkRelationOther:
		return true
	}
	return false
}
