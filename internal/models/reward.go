package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// RewardType distinguishes positive and negative ledger entries.
type RewardType string

const (
	RewardTypeReward  RewardType = "REWARD"
	RewardTypePenalty RewardType = "PENALTY"
)

// RewardCategory classifies what the points were given for.
type RewardCategory string

const (
	RewardCategoryAttendance  RewardCategory = "ATTENDANCE"
	RewardCategoryPerformance RewardCategory = "PERFORMANCE"
	RewardCategoryBehavior    RewardCategory = "BEHAVIOR"
	RewardCategoryAchievement RewardCategory = "ACHIEVEMENT"
)

// RewardStatus is the ledger entry state. Entries are created APPROVED;
// the only mutation is the cancel transition.
type RewardStatus string

const (
	RewardStatusPending   RewardStatus = "PENDING"
	RewardStatusApproved  RewardStatus = "APPROVED"
	RewardStatusCancelled RewardStatus = "CANCELLED"
)

// RewardEntry is one signed point adjustment against a student in a class.
type RewardEntry struct {
	ID          string         `db:"id" json:"id"`
	StudentID   string         `db:"student_id" json:"student_id"`
	ClassID     string         `db:"class_id" json:"class_id"`
	GivenBy     string         `db:"given_by" json:"given_by"`
	Type        RewardType     `db:"entry_type" json:"type"`
	Category    RewardCategory `db:"category" json:"category"`
	Points      int            `db:"points" json:"points"`
	Reason      string         `db:"reason" json:"reason"`
	Status      RewardStatus   `db:"status" json:"status"`
	Metadata    types.JSONText `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	CancelledAt *time.Time     `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// RewardEntryFilter captures listing criteria for ledger entries.
type RewardEntryFilter struct {
	StudentID string
	ClassID   string
	GivenBy   string
	Type      RewardType
	Category  RewardCategory
	Status    RewardStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// RewardTotals aggregates approved entries for one (student, class) pair.
type RewardTotals struct {
	Total          int `db:"total" json:"total"`
	RewardsTotal   int `db:"rewards_total" json:"rewards_total"`
	RewardsCount   int `db:"rewards_count" json:"rewards_count"`
	PenaltiesTotal int `db:"penalties_total" json:"penalties_total"`
	PenaltiesCount int `db:"penalties_count" json:"penalties_count"`
}

// ClassPointsSummary is the per-class slice of a student's ledger.
type ClassPointsSummary struct {
	ClassID    string `db:"class_id" json:"class_id"`
	ClassName  string `db:"class_name" json:"class_name"`
	Total      int    `db:"total" json:"total"`
	EntryCount int    `db:"entry_count" json:"entry_count"`
}

// RewardSummary groups a student's approved entries across all classes.
type RewardSummary struct {
	StudentID    string               `json:"student_id"`
	OverallTotal int                  `json:"overall_total"`
	PerClass     []ClassPointsSummary `json:"per_class"`
}

// Class is the minimal class record the ledger consults.
type Class struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentStatus values for the read-only membership source.
type EnrollmentStatus string

const (
	EnrollmentStatusActive EnrollmentStatus = "ACTIVE"
	EnrollmentStatusLeft   EnrollmentStatus = "LEFT"
)
