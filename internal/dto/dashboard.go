package dto

import "github.com/focuskid/guardian-api/internal/models"

// GuardianDashboardResponse aggregates progress across all linked children.
type GuardianDashboardResponse struct {
	GuardianID        string         `json:"guardianId"`
	PeriodDays        int            `json:"periodDays"`
	Children          []ChildSummary `json:"children"`
	TotalPeriodPoints int            `json:"totalPeriodPoints"`
	AveragePoints     float64        `json:"averagePoints"`
}

// ChildSummary is the per-child section of the guardian dashboard.
type ChildSummary struct {
	ChildID      string                      `json:"childId"`
	FullName     string                      `json:"fullName"`
	Handle       string                      `json:"handle"`
	Relation     models.LinkRelation         `json:"relation"`
	Focus        FocusSection                `json:"focus"`
	Points       PointsSection               `json:"points"`
	PerClass     []models.ClassPointsSummary `json:"perClass"`
	Unavailable  bool                        `json:"unavailable,omitempty"`
}

// FocusSection summarises completed focus sessions over the period.
type FocusSection struct {
	SessionCount int `json:"sessionCount"`
	TotalMinutes int `json:"totalMinutes"`
}

// PointsSection summarises the child's ledger standing.
type PointsSection struct {
	PeriodTotal  int `json:"periodTotal"`
	OverallTotal int `json:"overallTotal"`
}
