package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/cache"
	"github.com/crisjonblvx/facultyflow/internal/events"
	"github.com/crisjonblvx/facultyflow/internal/grading"
	"github.com/crisjonblvx/facultyflow/internal/lms"
	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"github.com/crisjonblvx/facultyflow/internal/validator"
)

// GradingSetupService configures, inspects and repairs the assignment groups
// of an LMS course.
type GradingSetupService interface {
	SetupWeightedGrading(ctx context.Context, courseID int64, req *models.SetupRequest, actorID string) *SetupResult
	AnalyzeExistingSetup(ctx context.Context, courseID int64, actorID string, opts AnalyzeOptions) (*AnalysisResult, error)
	FixExistingSetup(ctx context.Context, courseID int64, fixType models.FixType, actorID string) (*FixResult, error)
	VerifyGradingSetup(ctx context.Context, courseID int64) (*Verification, error)
	ListRuns(ctx context.Context, courseID int64, filters repositories.SetupRunFilters) ([]*models.GradingSetupRun, int64, error)
}

// AnalyzeOptions tunes AnalyzeExistingSetup. The zero value always reads the
// LMS, since educators also edit groups in the LMS itself.
type AnalyzeOptions struct {
	// AllowCached returns a cached report younger than the analysis TTL.
	AllowCached bool
}

type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusError   ResultStatus = "error"
)

// SetupResult is returned for every setup attempt. Failures are reported here
// with the failing step rather than as a Go error.
type SetupResult struct {
	Status                 ResultStatus     `json:"status"`
	Step                   string           `json:"step,omitempty"`
	Message                string           `json:"message,omitempty"`
	Errors                 ValidationErrors `json:"errors,omitempty"`
	GroupsCreated          int              `json:"groups_created"`
	WeightedGradingEnabled bool             `json:"weighted_grading_enabled"`
	GlobalRulesApplied     bool             `json:"global_rules_applied"`
	AssignmentGroups       []lms.Category   `json:"assignment_groups"`
	Verification           *Verification    `json:"verification,omitempty"`
}

type Verification struct {
	GroupsCount int            `json:"groups_count"`
	TotalWeight float64        `json:"total_weight"`
	Verified    bool           `json:"verified"`
	Groups      []lms.Category `json:"groups"`
}

type AnalysisResult struct {
	CourseID               int64                 `json:"course_id"`
	HasGroups              bool                  `json:"has_groups"`
	Groups                 []lms.Category        `json:"groups"`
	WeightedGradingEnabled bool                  `json:"weighted_grading_enabled"`
	TotalWeight            float64               `json:"total_weight"`
	OrphanAssignmentsCount int                   `json:"orphan_assignments"`
	EmptyGroupsCount       int                   `json:"empty_groups"`
	Issues                 []string              `json:"issues"`
	Suggestions            []string              `json:"suggestions"`
	Health                 models.AnalysisHealth `json:"health"`
	AnalyzedAt             time.Time             `json:"analyzed_at"`
}

// WeightAdjustment is one group rescaled by an auto fix.
type WeightAdjustment struct {
	GroupID   int64   `json:"group_id"`
	Name      string  `json:"name"`
	OldWeight float64 `json:"old_weight"`
	NewWeight float64 `json:"new_weight"`
}

type FixResult struct {
	Status                 ResultStatus       `json:"status"`
	FixType                models.FixType     `json:"fix_type"`
	Message                string             `json:"message"`
	GroupsAdjusted         int                `json:"groups_adjusted"`
	GroupsDeleted          int                `json:"groups_deleted"`
	Adjustments            []WeightAdjustment `json:"adjustments,omitempty"`
	WeightedGradingEnabled bool               `json:"weighted_grading_enabled"`
	Fixes                  []string           `json:"fixes"`
	RemainingIssues        []string           `json:"remaining_issues"`
}

type gradingSetupService struct {
	client      lms.Client
	repo        repositories.Repository
	cache       cache.CacheService
	publisher   events.EventPublisher
	logger      *slog.Logger
	opLogger    *ServiceLogger
	validator   *validator.Validator
	analysisTTL time.Duration
}

// NewGradingSetupService wires the setup service. repo, cacheService and
// publisher may be nil.
func NewGradingSetupService(
	client lms.Client,
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
	analysisTTL time.Duration,
) GradingSetupService {
	return &gradingSetupService{
		client:      client,
		repo:        repo,
		cache:       cacheService,
		publisher:   publisher,
		logger:      logger,
		opLogger:    NewServiceLogger(logger, LogConfig{Service: "grading", Component: "setup"}),
		validator:   validator,
		analysisTTL: analysisTTL,
	}
}

// ===== SETUP =====

func (s *gradingSetupService) SetupWeightedGrading(ctx context.Context, courseID int64, req *models.SetupRequest, actorID string) *SetupResult {
	op := s.opLogger.WithOperation(ctx, "setup_weighted_grading", actorID)
	s.logger.Info("Starting grading setup", "course_id", courseID, "categories", len(req.Categories))

	result := &SetupResult{AssignmentGroups: []lms.Category{}}

	// Step 1: validate before any LMS call
	if err := s.validator.Validate(req); err != nil {
		var ve ValidationErrors
		if errors.As(err, &ve) {
			s.opLogger.LogValidationError(ctx, "setup_weighted_grading", actorID, ve)
			result.Errors = ve
		}
		s.failSetup(ctx, courseID, result, StepValidate, validationMessage(err), actorID)
		op.LogResult(courseID, err)
		return result
	}

	// Step 2: create groups. Groups created before a failure are left in place.
	for _, category := range req.Categories {
		created, err := s.client.CreateCategory(ctx, courseID, category.Name, category.Weight, toLMSRules(category.Rules))
		if err != nil {
			s.failSetup(ctx, courseID, result, StepCreateGroups, err.Error(), actorID)
			op.LogResult(courseID, stepError(StepCreateGroups, err))
			return result
		}
		result.AssignmentGroups = append(result.AssignmentGroups, *created)
		result.GroupsCreated++
		s.logger.Info("Created group", "course_id", courseID, "name", category.Name, "weight", category.Weight)
	}

	// Step 3: enable weighting
	if err := s.client.EnableWeightedGrading(ctx, courseID); err != nil {
		s.failSetup(ctx, courseID, result, StepEnableWeights, err.Error(), actorID)
		op.LogResult(courseID, stepError(StepEnableWeights, err))
		return result
	}
	result.WeightedGradingEnabled = true

	// Step 4: course-wide rules, only when asked for
	if !req.GlobalRules.IsEmpty() {
		if err := s.client.ApplyGlobalRules(ctx, courseID, toLatePolicy(req.GlobalRules)); err != nil {
			s.failSetup(ctx, courseID, result, StepGlobalRules, err.Error(), actorID)
			op.LogResult(courseID, stepError(StepGlobalRules, err))
			return result
		}
		result.GlobalRulesApplied = true
	}

	// Step 5: re-read and verify
	verification, err := s.VerifyGradingSetup(ctx, courseID)
	if err != nil {
		s.failSetup(ctx, courseID, result, StepVerify, err.Error(), actorID)
		op.LogResult(courseID, err)
		return result
	}
	result.Verification = verification
	result.Status = StatusSuccess

	s.invalidateAnalysis(ctx, courseID)
	s.recordRun(ctx, courseID, models.OperationSetup, models.RunSuccess, "", "Grading setup completed", result, actorID)
	s.publish(ctx, events.NewSetupCompletedEvent(courseID, result.GroupsCreated, verification.TotalWeight, true, actorID))

	op.LogResult(courseID, nil)
	return result
}

func (s *gradingSetupService) failSetup(ctx context.Context, courseID int64, result *SetupResult, step, message, actorID string) {
	result.Status = StatusError
	result.Step = step
	result.Message = message

	s.logger.Error("Grading setup failed", "course_id", courseID, "step", step, "error", message,
		"groups_created", result.GroupsCreated)

	if step != StepValidate {
		// The LMS may have been changed before the failure.
		s.invalidateAnalysis(ctx, courseID)
	}
	s.recordRun(ctx, courseID, models.OperationSetup, models.RunError, step, message, result, actorID)
	s.publish(ctx, events.NewSetupFailedEvent(courseID, step, message, actorID))
}

// ===== VERIFY =====

func (s *gradingSetupService) VerifyGradingSetup(ctx context.Context, courseID int64) (*Verification, error) {
	groups, err := s.client.ListCategories(ctx, courseID)
	if err != nil {
		return nil, stepError(StepVerify, err)
	}

	total := sumWeights(groups)
	return &Verification{
		GroupsCount: len(groups),
		TotalWeight: grading.Round2(total),
		Verified:    models.IsFullWeight(total),
		Groups:      nonNilGroups(groups),
	}, nil
}

// ===== ANALYZE =====

func (s *gradingSetupService) AnalyzeExistingSetup(ctx context.Context, courseID int64, actorID string, opts AnalyzeOptions) (*AnalysisResult, error) {
	op := s.opLogger.WithOperation(ctx, "analyze_existing_setup", actorID)

	if opts.AllowCached {
		if cached := s.cachedAnalysis(ctx, courseID); cached != nil {
			op.LogResult(courseID, nil)
			return cached, nil
		}
	}

	analysis, err := s.analyze(ctx, courseID)
	if err != nil {
		var se *StepError
		step := ""
		if errors.As(err, &se) {
			step = se.Step
		}
		s.recordRun(ctx, courseID, models.OperationAnalyze, models.RunError, step, err.Error(), nil, actorID)
		op.LogResult(courseID, err)
		return nil, err
	}

	s.storeAnalysis(ctx, courseID, analysis)
	s.recordRun(ctx, courseID, models.OperationAnalyze, models.RunSuccess, "", string(analysis.Health), analysis, actorID)
	if analysis.Health == models.HealthNeedsAttention {
		s.publish(ctx, events.NewNeedsAttentionEvent(courseID, analysis.TotalWeight, analysis.Issues))
	}

	op.LogResult(courseID, nil)
	return analysis, nil
}

// analyze always reads fresh LMS state.
func (s *gradingSetupService) analyze(ctx context.Context, courseID int64) (*AnalysisResult, error) {
	course, err := s.client.GetCourse(ctx, courseID)
	if err != nil {
		return nil, stepError(StepFetchCourse, err)
	}
	groups, err := s.client.ListCategories(ctx, courseID)
	if err != nil {
		return nil, stepError(StepFetchGroups, err)
	}
	assignments, err := s.client.ListAssignments(ctx, courseID)
	if err != nil {
		return nil, stepError(StepFetchWork, err)
	}

	analysis := analyzeSetup(course, groups, assignments)
	analysis.CourseID = courseID
	analysis.AnalyzedAt = time.Now().UTC()
	return analysis, nil
}

// ===== FIX =====

func (s *gradingSetupService) FixExistingSetup(ctx context.Context, courseID int64, fixType models.FixType, actorID string) (*FixResult, error) {
	op := s.opLogger.WithOperation(ctx, "fix_existing_setup", actorID)

	if err := s.validator.Validate(&models.FixRequest{FixType: fixType}); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidFixType, err)
		op.LogResult(courseID, err)
		return nil, err
	}

	var operation models.SetupOperation
	switch fixType {
	case models.FixAuto:
		operation = models.OperationFixAuto
	case models.FixReset:
		operation = models.OperationFixReset
	default:
		err := fmt.Errorf("%w: %q", ErrInvalidFixType, fixType)
		op.LogResult(courseID, err)
		return nil, err
	}

	analysis, err := s.analyze(ctx, courseID)
	if err != nil {
		s.recordFailedFix(ctx, courseID, operation, err, nil, actorID)
		op.LogResult(courseID, err)
		return nil, err
	}

	var result *FixResult
	if fixType == models.FixReset {
		result, err = s.resetGroups(ctx, courseID, analysis)
	} else {
		result, err = s.autoFix(ctx, courseID, analysis)
	}

	// Any LMS write may have happened, so cached analysis is stale either way.
	s.invalidateAnalysis(ctx, courseID)

	if err != nil {
		s.recordFailedFix(ctx, courseID, operation, err, result, actorID)
		op.LogResult(courseID, err)
		return result, err
	}

	s.recordRun(ctx, courseID, operation, models.RunSuccess, "", result.Message, result, actorID)
	s.publish(ctx, events.NewSetupFixedEvent(courseID, string(fixType), result.Fixes, actorID))

	op.LogResult(courseID, nil)
	return result, nil
}

func (s *gradingSetupService) resetGroups(ctx context.Context, courseID int64, analysis *AnalysisResult) (*FixResult, error) {
	result := &FixResult{
		Status:          StatusSuccess,
		FixType:         models.FixReset,
		Fixes:           []string{},
		RemainingIssues: []string{},
	}

	var failed int
	var firstErr error
	for _, group := range analysis.Groups {
		if err := s.client.DeleteCategory(ctx, courseID, group.ID); err != nil {
			s.logger.Warn("Failed to delete group", "course_id", courseID, "group_id", group.ID, "error", err)
			failed++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.GroupsDeleted++
	}

	if failed > 0 {
		result.Status = StatusError
		result.Message = fmt.Sprintf("Deleted %d of %d assignment groups.", result.GroupsDeleted, len(analysis.Groups))
		return result, stepError(StepDeleteGroups,
			fmt.Errorf("%d of %d groups could not be deleted: %w", failed, len(analysis.Groups), firstErr))
	}

	result.Message = "All assignment groups deleted. Ready for fresh setup."
	result.Fixes = append(result.Fixes, fmt.Sprintf("Deleted %d assignment groups", result.GroupsDeleted))
	return result, nil
}

func (s *gradingSetupService) autoFix(ctx context.Context, courseID int64, analysis *AnalysisResult) (*FixResult, error) {
	result := &FixResult{
		Status:                 StatusSuccess,
		FixType:                models.FixAuto,
		WeightedGradingEnabled: analysis.WeightedGradingEnabled,
		Fixes:                  []string{},
		RemainingIssues:        untouchedIssues(analysis),
	}

	total := sumWeights(analysis.Groups)
	if len(analysis.Groups) > 0 && !models.IsFullWeight(total) {
		if total <= 0 {
			result.RemainingIssues = append(result.RemainingIssues,
				"All categories have 0% weight; assign weights manually before rescaling")
		} else {
			for _, adj := range rescaleWeights(analysis.Groups, total) {
				if err := s.client.UpdateCategoryWeight(ctx, courseID, adj.GroupID, adj.NewWeight); err != nil {
					result.Status = StatusError
					result.Message = fmt.Sprintf("Updated %d of %d group weights.", result.GroupsAdjusted, len(analysis.Groups))
					return result, stepError(StepUpdateWeights, err)
				}
				result.Adjustments = append(result.Adjustments, adj)
				result.GroupsAdjusted++
			}
			result.Fixes = append(result.Fixes,
				fmt.Sprintf("Rescaled %d category weights from %s%% to 100%%", result.GroupsAdjusted, formatPercent(total)))
		}
	}

	if !analysis.WeightedGradingEnabled && len(analysis.Groups) > 1 {
		if err := s.client.EnableWeightedGrading(ctx, courseID); err != nil {
			result.Status = StatusError
			result.Message = "Weights adjusted but weighted grading could not be enabled."
			return result, stepError(StepEnableWeights, err)
		}
		result.WeightedGradingEnabled = true
		result.Fixes = append(result.Fixes, "Enabled weighted grading")
	}

	if len(result.Fixes) == 0 {
		result.Message = "Nothing to fix automatically"
	} else {
		result.Message = "Grading setup fixed automatically"
	}
	return result, nil
}

func (s *gradingSetupService) recordFailedFix(ctx context.Context, courseID int64, operation models.SetupOperation, err error, result *FixResult, actorID string) {
	step := ""
	var se *StepError
	if errors.As(err, &se) {
		step = se.Step
	}
	s.recordRun(ctx, courseID, operation, models.RunError, step, err.Error(), result, actorID)
}

// ===== AUDIT =====

func (s *gradingSetupService) ListRuns(ctx context.Context, courseID int64, filters repositories.SetupRunFilters) ([]*models.GradingSetupRun, int64, error) {
	if s.repo == nil {
		return []*models.GradingSetupRun{}, 0, nil
	}
	return s.repo.SetupRun().ListByCourse(ctx, nil, courseID, filters)
}

// recordRun stores the audit row. Failures are logged and never surface to the caller.
func (s *gradingSetupService) recordRun(ctx context.Context, courseID int64, operation models.SetupOperation, status models.RunStatus, step, message string, details interface{}, actorID string) {
	if s.repo == nil {
		return
	}

	run := &models.GradingSetupRun{
		LMSCourseID: courseID,
		Operation:   operation,
		Status:      status,
		Step:        step,
		Message:     message,
		Details:     toJSON(details),
		ActorID:     actorID,
	}
	if err := s.repo.SetupRun().Create(ctx, nil, run); err != nil {
		s.logger.Warn("Failed to record setup run", "course_id", courseID, "operation", operation, "error", err)
	}
}

// ===== CACHE & EVENTS =====

func (s *gradingSetupService) cachedAnalysis(ctx context.Context, courseID int64) *AnalysisResult {
	if s.cache == nil || s.analysisTTL <= 0 {
		return nil
	}
	var cached AnalysisResult
	if err := s.cache.Get(ctx, cache.AnalysisKey(courseID), &cached); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Analysis cache read failed", "course_id", courseID, "error", err)
		}
		return nil
	}
	return &cached
}

func (s *gradingSetupService) storeAnalysis(ctx context.Context, courseID int64, analysis *AnalysisResult) {
	if s.cache == nil || s.analysisTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, cache.AnalysisKey(courseID), analysis, s.analysisTTL); err != nil {
		s.logger.Warn("Analysis cache write failed", "course_id", courseID, "error", err)
	}
}

func (s *gradingSetupService) invalidateAnalysis(ctx context.Context, courseID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cache.AnalysisKey(courseID)); err != nil {
		s.logger.Warn("Analysis cache invalidation failed", "course_id", courseID, "error", err)
	}
}

func (s *gradingSetupService) publish(ctx context.Context, event *events.GradingEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGradingEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish grading event", "event_type", event.Type, "error", err)
	}
}
