package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/focuskid/guardian-api/internal/models"
	"github.com/focuskid/guardian-api/pkg/config"
	appErrors "github.com/focuskid/guardian-api/pkg/errors"
	"github.com/focuskid/guardian-api/pkg/export"
)

type rewardStore interface {
	Create(ctx context.Context, entry *models.RewardEntry) error
	FindByID(ctx context.Context, id string) (*models.RewardEntry, error)
	Cancel(ctx context.Context, id string, cancelledAt, createdAfter time.Time) (bool, error)
	List(ctx context.Context, filter models.RewardEntryFilter) ([]models.RewardEntry, int, error)
	Totals(ctx context.Context, studentID, classID string) (*models.RewardTotals, error)
	SummaryByClass(ctx context.Context, studentID string) ([]models.ClassPointsSummary, error)
}

type membershipChecker interface {
	IsActiveMember(ctx context.Context, studentID, classID string) (bool, error)
	FindClassByID(ctx context.Context, id string) (*models.Class, error)
}

type rewardUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	HasActiveRole(ctx context.Context, userID string, role models.RoleType) (bool, error)
}

type accessChecker interface {
	HasAcceptedLink(ctx context.Context, guardianID, childID string) (bool, error)
	HasPermission(ctx context.Context, guardianID, childID, permission string) (bool, error)
}

// PostEntryRequest describes a reward or penalty posting.
type PostEntryRequest struct {
	StudentID string                 `json:"student_id" validate:"required"`
	ClassID   string                 `json:"class_id" validate:"required"`
	Type      string                 `json:"type" validate:"required,oneof=REWARD PENALTY"`
	Category  string                 `json:"category" validate:"required,oneof=ATTENDANCE PERFORMANCE BEHAVIOR ACHIEVEMENT"`
	Points    int                    `json:"points" validate:"required,gte=-100,lte=100"`
	Reason    string                 `json:"reason" validate:"required,min=3,max=500"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RewardService owns the signed point ledger.
type RewardService struct {
	repo        rewardStore
	enrollments membershipChecker
	users       rewardUserReader
	access      accessChecker
	notifier    notificationEmitter
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         config.LedgerConfig
	now         func() time.Time
}

// NewRewardService constructs RewardService.
func NewRewardService(repo rewardStore, enrollments membershipChecker, users rewardUserReader, access accessChecker, notifier notificationEmitter, validate *validator.Validate, logger *zap.Logger, cfg config.LedgerConfig) *RewardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CancelWindow <= 0 {
		cfg.CancelWindow = 24 * time.Hour
	}
	return &RewardService{
		repo:        repo,
		enrollments: enrollments,
		users:       users,
		access:      access,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Post validates and persists a new ledger entry. Checks run in a fixed
// order so callers get deterministic error messages: payload shape, class,
// student membership, giver authorization, sign invariant, self-award.
func (s *RewardService) Post(ctx context.Context, giverID string, req PostEntryRequest) (*models.RewardEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reward payload")
	}

	if _, err := s.enrollments.FindClassByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	member, err := s.enrollments.IsActiveMember(ctx, student.ID, req.ClassID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
	}
	if !member {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not an active member of the class")
	}

	allowed, err := s.canPost(ctx, giverID, student.ID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller may not post rewards for this student")
	}

	entryType := models.RewardType(req.Type)
	if entryType == models.RewardTypeReward && req.Points <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reward points must be positive")
	}
	if entryType == models.RewardTypePenalty && req.Points >= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "penalty points must be negative")
	}
	if giverID == student.ID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot post points to yourself")
	}

	entry := &models.RewardEntry{
		StudentID: student.ID,
		ClassID:   req.ClassID,
		GivenBy:   giverID,
		Type:      entryType,
		Category:  models.RewardCategory(req.Category),
		Points:    req.Points,
		Reason:    req.Reason,
		Status:    models.RewardStatusApproved,
		CreatedAt: s.now().UTC(),
	}
	if len(req.Metadata) > 0 {
		payload, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid metadata")
		}
		entry.Metadata = payload
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create reward entry")
	}

	kind := models.NotificationKindSuccess
	title := "Points awarded"
	if entryType == models.RewardTypePenalty {
		kind = models.NotificationKindWarning
		title = "Points deducted"
	}
	s.notifier.Emit(student.ID, kind, title,
		fmt.Sprintf("%+d points: %s", entry.Points, entry.Reason),
		map[string]interface{}{"entry_id": entry.ID, "class_id": entry.ClassID, "points": entry.Points})

	return entry, nil
}

func (s *RewardService) canPost(ctx context.Context, giverID, studentID string) (bool, error) {
	isTeacher, err := s.users.HasActiveRole(ctx, giverID, models.RoleTeacher)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check giver role")
	}
	if isTeacher {
		return true, nil
	}
	isGuardian, err := s.users.HasActiveRole(ctx, giverID, models.RoleGuardian)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check giver role")
	}
	if !isGuardian {
		return false, nil
	}
	return s.access.HasPermission(ctx, giverID, studentID, models.PermissionGiveRewards)
}

// Cancel voids an entry inside the cancellation window. Only the original
// giver may cancel, and only while the entry is still APPROVED.
func (s *RewardService) Cancel(ctx context.Context, actorID, entryID string) error {
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reward entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reward entry")
	}
	if entry.GivenBy != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the original giver may cancel an entry")
	}

	now := s.now().UTC()
	cancelled, err := s.repo.Cancel(ctx, entry.ID, now, now.Add(-s.cfg.CancelWindow))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel reward entry")
	}
	if !cancelled {
		if entry.Status != models.RewardStatusApproved {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "entry is not approved")
		}
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "cancellation window has elapsed")
	}

	s.notifier.Emit(entry.StudentID, models.NotificationKindInfo,
		"Points entry cancelled",
		fmt.Sprintf("A %+d point entry was cancelled", entry.Points),
		map[string]interface{}{"entry_id": entry.ID, "class_id": entry.ClassID})

	return nil
}

// canRead implements the shared read rule: the student themself, any
// active teacher, or a guardian with an accepted link to the student.
func (s *RewardService) canRead(ctx context.Context, callerID, studentID string) (bool, error) {
	if callerID == studentID {
		return true, nil
	}
	isTeacher, err := s.users.HasActiveRole(ctx, callerID, models.RoleTeacher)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check caller role")
	}
	if isTeacher {
		return true, nil
	}
	linked, err := s.access.HasAcceptedLink(ctx, callerID, studentID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check link")
	}
	return linked, nil
}

// List returns ledger entries visible to the caller.
func (s *RewardService) List(ctx context.Context, callerID string, filter models.RewardEntryFilter) ([]models.RewardEntry, *models.Pagination, error) {
	if filter.StudentID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "student filter is required")
	}
	allowed, err := s.canRead(ctx, callerID, filter.StudentID)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "caller may not view this student's ledger")
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reward entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// Totals returns the signed sum over the student's approved entries in a
// class. Cancelled and pending entries are excluded.
func (s *RewardService) Totals(ctx context.Context, callerID, studentID, classID string) (*models.RewardTotals, error) {
	allowed, err := s.canRead(ctx, callerID, studentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller may not view this student's ledger")
	}
	totals, err := s.repo.Totals(ctx, studentID, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute totals")
	}
	return totals, nil
}

// Summary groups the student's approved entries by class, independent of
// list pagination.
func (s *RewardService) Summary(ctx context.Context, callerID, studentID string) (*models.RewardSummary, error) {
	allowed, err := s.canRead(ctx, callerID, studentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "caller may not view this student's ledger")
	}
	perClass, err := s.repo.SummaryByClass(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute summary")
	}
	summary := &models.RewardSummary{StudentID: studentID, PerClass: perClass}
	for _, c := range perClass {
		summary.OverallTotal += c.Total
	}
	return summary, nil
}

// Statement renders the student's ledger entries as a tabular dataset for
// CSV or PDF export.
func (s *RewardService) Statement(ctx context.Context, callerID, studentID, classID string) (export.Dataset, error) {
	filter := models.RewardEntryFilter{StudentID: studentID, ClassID: classID, PageSize: 200}
	entries, _, err := s.List(ctx, callerID, filter)
	if err != nil {
		return export.Dataset{}, err
	}
	dataset := export.Dataset{Headers: []string{"Date", "Class", "Type", "Category", "Points", "Reason", "Status"}}
	total := 0
	for _, e := range entries {
		if e.Status == models.RewardStatusApproved {
			total += e.Points
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":     e.CreatedAt.Format("2006-01-02"),
			"Class":    e.ClassID,
			"Type":     string(e.Type),
			"Category": string(e.Category),
			"Points":   fmt.Sprintf("%+d", e.Points),
			"Reason":   e.Reason,
			"Status":   string(e.Status),
		})
	}
	dataset.Footer = map[string]string{"Reason": "Approved total", "Points": fmt.Sprintf("%+d", total)}
	return dataset, nil
}

// NormalizeRewardFilter maps query-level strings onto the typed filter.
func NormalizeRewardFilter(studentID, classID, entryType, category, status string, page, size int) models.RewardEntryFilter {
	return models.RewardEntryFilter{
		StudentID: studentID,
		ClassID:   classID,
		Type:      models.RewardType(strings.ToUpper(entryType)),
		Category:  models.RewardCategory(strings.ToUpper(category)),
		Status:    models.RewardStatus(strings.ToUpper(status)),
		Page:      page,
		PageSize:  size,
	}
}
