package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/focuskid/guardian-api/internal/dto"
	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/pkg/config"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
)

type dashboardLinkLister interface {
	ListForGuardian(ctx context.Context, guardianID string, status models.LinkStatus) ([]models.GuardianLink, error)
}

type dashboardUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type focusMetricsReader interface {
	MetricsForUser(ctx context.Context, userID string, from, to time.Time) (*models.FocusMetrics, error)
}

type pointsAggregator interface {
	SummaryByClass(ctx context.Context, studentID string) ([]models.ClassPointsSummary, error)
	PointsSince(ctx context.Context, studentID string, since time.Time) (int, error)
}

// DashboardService composes the guardian overview payload.
type DashboardService struct {
	links    dashboardLinkLister
	users    dashboardUserReader
	sessions focusMetricsReader
	rewards  pointsAggregator
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      config.DashboardConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(links dashboardLinkLister, users dashboardUserReader, sessions focusMetricsReader, rewards pointsAggregator, cache *CacheService, logger *zap.Logger, cfg config.DashboardConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.PeriodDays <= 0 {
		cfg.PeriodDays = 7
	}
	if cfg.MaxChildren <= 0 {
		cfg.MaxChildren = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		links:    links,
		users:    users,
		sessions: sessions,
		rewards:  rewards,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Guardian returns the aggregated view over the guardian's accepted links
// and indicates cache utilisation. A child whose records cannot be read is
// reported as unavailable instead of failing the whole response.
func (s *DashboardService) Guardian(ctx context.Context, guardianID string) (*dto.GuardianDashboardResponse, bool, error) {
	if guardianID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "guardianId is required")
	}
	cacheKey := fmt.Sprintf("dash:guardian:%s", guardianID)
	if summary, hit, err := s.tryCache(ctx, cacheKey); err != nil {
		return nil, false, err
	} else if hit {
		return summary, true, nil
	}

	summary, err := s.compose(ctx, guardianID)
	if err != nil {
		return nil, false, err
	}
	s.persistCache(ctx, cacheKey, summary)
	return summary, false, nil
}

// Invalidate drops the cached dashboard for a guardian, typically after a
// link or ledger mutation.
func (s *DashboardService) Invalidate(ctx context.Context, guardianID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dash:guardian:%s", guardianID)); err != nil {
		s.logger.Warn("dashboard invalidate failed", zap.String("guardian_id", guardianID), zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context, guardianID string) (*dto.GuardianDashboardResponse, error) {
	links, err := s.links.ListForGuardian(ctx, guardianID, models.LinkStatusAccepted)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list links")
	}
	if len(links) > s.cfg.MaxChildren {
		links = links[:s.cfg.MaxChildren]
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -s.cfg.PeriodDays)

	resp := &dto.GuardianDashboardResponse{
		GuardianID: guardianID,
		PeriodDays: s.cfg.PeriodDays,
		Children:   make([]dto.ChildSummary, 0, len(links)),
	}
	counted := 0
	for _, link := range links {
		child, err := s.childSummary(ctx, link, from, to)
		if err != nil {
			s.logger.Warn("child summary failed",
				zap.String("guardian_id", guardianID),
				zap.String("child_id", link.ChildID),
				zap.Error(err))
			resp.Children = append(resp.Children, dto.ChildSummary{
				ChildID:     link.ChildID,
				Relation:    link.Relation,
				Unavailable: true,
			})
			continue
		}
		resp.Children = append(resp.Children, *child)
		resp.TotalPeriodPoints += child.Points.PeriodTotal
		counted++
	}
	if counted > 0 {
		resp.AveragePoints = float64(resp.TotalPeriodPoints) / float64(counted)
	}
	return resp, nil
}

func (s *DashboardService) childSummary(ctx context.Context, link models.GuardianLink, from, to time.Time) (*dto.ChildSummary, error) {
	child, err := s.users.FindByID(ctx, link.ChildID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("child %s not found", link.ChildID)
		}
		return nil, err
	}
	metrics, err := s.sessions.MetricsForUser(ctx, child.ID, from, to)
	if err != nil {
		return nil, err
	}
	perClass, err := s.rewards.SummaryByClass(ctx, child.ID)
	if err != nil {
		return nil, err
	}
	periodPoints, err := s.rewards.PointsSince(ctx, child.ID, from)
	if err != nil {
		return nil, err
	}
	overall := 0
	for _, c := range perClass {
		overall += c.Total
	}
	return &dto.ChildSummary{
		ChildID:  child.ID,
		FullName: child.FullName,
		Handle:   child.Handle,
		Relation: link.Relation,
		Focus: dto.FocusSection{
			SessionCount: metrics.SessionCount,
			TotalMinutes: metrics.TotalMinutes,
		},
		Points: dto.PointsSection{
			PeriodTotal:  periodPoints,
			OverallTotal: overall,
		},
		PerClass: perClass,
	}, nil
}

func (s *DashboardService) tryCache(ctx context.Context, key string) (*dto.GuardianDashboardResponse, bool, error) {
	if s.cache == nil {
		return nil, false, nil
	}
	var cached dto.GuardianDashboardResponse
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		return nil, false, err
	}
	if hit {
		return &cached, true, nil
	}
	return nil, false, nil
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
