package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/events"
	"github.com/crisjonblvx/facultyflow/internal/grading"
	"github.com/crisjonblvx/facultyflow/internal/lms"
	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"github.com/crisjonblvx/facultyflow/internal/validator"
	"gorm.io/gorm"
)

// GradeService is the student side: it syncs LMS grades and runs the
// calculator over them.
type GradeService interface {
	SyncCourse(ctx context.Context, student Student, lmsCourseID int64) (*CourseGradeResponse, error)
	CourseGrade(ctx context.Context, userID string, courseID uint) (*CourseGradeResponse, error)
	Overview(ctx context.Context, userID string) (*GradeOverview, error)
	WhatIf(ctx context.Context, userID string, req *models.WhatIfRequest) (*WhatIfResponse, error)
	History(ctx context.Context, userID string, courseID uint, filters repositories.SnapshotFilters) (*GradeHistory, error)
	ExportGrades(ctx context.Context, userID string) ([]byte, error)
	Calculate(ctx context.Context, req *models.CalculateRequest) (*grading.CourseGrade, error)
}

// Student is the caller of a sync. LMSUserID selects whose submissions are
// read from the LMS.
type Student struct {
	UserID    string
	LMSUserID int64
}

type CourseGradeResponse struct {
	CourseID       uint                                 `json:"course_id"`
	LMSCourseID    int64                                `json:"lms_course_id"`
	CourseName     string                               `json:"course_name"`
	CourseCode     *string                              `json:"course_code,omitempty"`
	Percentage     float64                              `json:"current_percentage"`
	LetterGrade    grading.Letter                       `json:"current_letter"`
	PointsEarned   float64                              `json:"points_earned"`
	PointsPossible float64                              `json:"points_possible"`
	Weighted       bool                                 `json:"weighted"`
	CategoryScores map[string]grading.CategoryBreakdown `json:"category_scores"`
	LastSyncedAt   *time.Time                           `json:"last_synced_at,omitempty"`
}

type GradeOverview struct {
	Courses     []*CourseGradeResponse `json:"courses"`
	GPAEstimate *float64               `json:"gpa_estimate"`
}

type WhatIfResponse struct {
	Scenario       models.ScenarioType       `json:"scenario"`
	Target         *grading.TargetProjection `json:"target,omitempty"`
	CurrentGrade   *grading.PointsResult     `json:"current_grade,omitempty"`
	ProjectedGrade *grading.PointsResult     `json:"projected_grade,omitempty"`
	UnknownIDs     []int64                   `json:"unknown_assignment_ids,omitempty"`
}

type GradeHistory struct {
	CourseID  uint                    `json:"course_id"`
	Snapshots []*models.GradeSnapshot `json:"snapshots"`
}

type gradeService struct {
	client    lms.Client
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	opLogger  *ServiceLogger
	validator *validator.Validator
	now       func() time.Time
}

func NewGradeService(client lms.Client, repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) GradeService {
	return &gradeService{
		client:    client,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		opLogger:  NewServiceLogger(logger, LogConfig{Service: "grading", Component: "grades"}),
		validator: validator,
		now:       time.Now,
	}
}

// ===== SYNC =====

func (s *gradeService) SyncCourse(ctx context.Context, student Student, lmsCourseID int64) (*CourseGradeResponse, error) {
	userID := student.UserID
	op := s.opLogger.WithOperation(ctx, "sync_course", userID)

	if student.LMSUserID <= 0 {
		op.LogResult(lmsCourseID, ErrLMSAccountNotLinked)
		return nil, ErrLMSAccountNotLinked
	}

	course, err := s.client.GetCourse(ctx, lmsCourseID)
	if err != nil {
		err = stepError(StepFetchCourse, err)
		op.LogResult(lmsCourseID, err)
		return nil, err
	}
	groups, err := s.client.ListCategories(ctx, lmsCourseID)
	if err != nil {
		err = stepError(StepFetchGroups, err)
		op.LogResult(lmsCourseID, err)
		return nil, err
	}
	lmsAssignments, err := s.client.ListAssignments(ctx, lmsCourseID)
	if err != nil {
		err = stepError(StepFetchWork, err)
		op.LogResult(lmsCourseID, err)
		return nil, err
	}
	submissions, err := s.client.ListSubmissions(ctx, lmsCourseID, student.LMSUserID)
	if err != nil {
		err = stepError(StepFetchScores, err)
		op.LogResult(lmsCourseID, err)
		return nil, err
	}

	now := s.now().UTC()
	record := &models.StudentCourse{
		UserID:       userID,
		LMSCourseID:  lmsCourseID,
		Name:         course.Name,
		Code:         course.CourseCode,
		LastSyncedAt: &now,
	}

	var resp *CourseGradeResponse
	var stored []*models.StudentAssignment

	err = s.repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Course().Upsert(ctx, tx, record); err != nil {
			return err
		}

		categories := toCourseCategories(groups)
		if err := s.repo.Category().ReplaceForCourse(ctx, tx, record.ID, categories); err != nil {
			return err
		}

		assignments := toStudentAssignments(userID, record.ID, lmsAssignments, groups, submissionsByAssignment(student.LMSUserID, submissions))
		if err := s.repo.Assignment().UpsertBatch(ctx, tx, assignments); err != nil {
			return err
		}
		keep := make([]int64, 0, len(assignments))
		for _, a := range assignments {
			keep = append(keep, a.LMSAssignmentID)
		}
		if _, err := s.repo.Assignment().DeleteMissing(ctx, tx, userID, record.ID, keep); err != nil {
			return err
		}

		// Grade from what is stored so later reads agree with this response.
		var err error
		stored, err = s.repo.Assignment().ListByCourse(ctx, tx, userID, record.ID)
		if err != nil {
			return err
		}
		resp = buildCourseGrade(record, stored, categories)
		return s.repo.Snapshot().Upsert(ctx, tx, snapshotFrom(userID, record.ID, now, resp))
	})
	if err != nil {
		err = fmt.Errorf("failed to store synced course: %w", err)
		op.LogResult(lmsCourseID, err)
		return nil, err
	}

	s.publish(ctx, events.NewSnapshotRecordedEvent(userID, record.ID, lmsCourseID, resp.Percentage, string(resp.LetterGrade), now))

	s.logger.Info("Course synced",
		"user_id", userID,
		"lms_course_id", lmsCourseID,
		"assignments", len(stored),
		"percentage", resp.Percentage)
	op.LogResult(lmsCourseID, nil)
	return resp, nil
}

// ===== READ =====

func (s *gradeService) CourseGrade(ctx context.Context, userID string, courseID uint) (*CourseGradeResponse, error) {
	course, err := s.loadCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return s.computeCourse(ctx, userID, course)
}

func (s *gradeService) Overview(ctx context.Context, userID string) (*GradeOverview, error) {
	courses, err := s.repo.Course().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	overview := &GradeOverview{Courses: make([]*CourseGradeResponse, 0, len(courses))}
	letters := make([]grading.Letter, 0, len(courses))

	for _, course := range courses {
		resp, err := s.computeCourse(ctx, userID, course)
		if err != nil {
			return nil, err
		}
		overview.Courses = append(overview.Courses, resp)
		if resp.PointsPossible > 0 || len(resp.CategoryScores) > 0 {
			letters = append(letters, resp.LetterGrade)
		}
	}

	if gpa, ok := grading.EstimateGPA(letters); ok {
		overview.GPAEstimate = &gpa
	}
	return overview, nil
}

func (s *gradeService) History(ctx context.Context, userID string, courseID uint, filters repositories.SnapshotFilters) (*GradeHistory, error) {
	if _, err := s.loadCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	snapshots, err := s.repo.Snapshot().ListByCourse(ctx, nil, userID, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load grade history: %w", err)
	}
	if snapshots == nil {
		snapshots = []*models.GradeSnapshot{}
	}
	return &GradeHistory{CourseID: courseID, Snapshots: snapshots}, nil
}

// ===== WHAT-IF =====

func (s *gradeService) WhatIf(ctx context.Context, userID string, req *models.WhatIfRequest) (*WhatIfResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.loadCourse(ctx, userID, req.CourseID); err != nil {
		return nil, err
	}
	records, err := s.repo.Assignment().ListByCourse(ctx, nil, userID, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	assignments := toGradingAssignments(records)

	switch req.Scenario {
	case models.ScenarioTargetGrade:
		earned, possible, remaining := grading.TargetInputs(assignments)
		target := grading.WhatIfTarget(earned, possible, remaining, *req.TargetGrade)
		current := grading.PointsGrade(assignments)
		return &WhatIfResponse{Scenario: req.Scenario, Target: &target, CurrentGrade: &current}, nil

	case models.ScenarioAssignmentScores:
		known := make(map[int64]struct{}, len(assignments))
		for _, a := range assignments {
			known[a.ID] = struct{}{}
		}
		var unknown []int64
		for id := range req.AssignmentScores {
			if _, ok := known[id]; !ok {
				unknown = append(unknown, id)
			}
		}
		sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })

		projected := grading.WhatIfScores(assignments, req.AssignmentScores)
		current := grading.PointsGrade(assignments)
		return &WhatIfResponse{
			Scenario:       req.Scenario,
			CurrentGrade:   &current,
			ProjectedGrade: &projected,
			UnknownIDs:     unknown,
		}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidScenario, req.Scenario)
}

// ===== STATELESS =====

// Calculate runs the weighted calculator over posted categories without touching storage.
func (s *gradeService) Calculate(ctx context.Context, req *models.CalculateRequest) (*grading.CourseGrade, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	categories := make([]grading.Category, 0, len(req.Categories))
	for _, c := range req.Categories {
		categories = append(categories, grading.Category{
			Name:        c.Name,
			Weight:      c.Weight,
			Rules:       c.Rules,
			Assignments: c.Assignments,
		})
	}

	var result grading.CourseGrade
	if grading.HasWeights(categories) {
		result = grading.WeightedGrade(categories)
	} else {
		result = pointsCourseGrade(categories)
	}
	return &result, nil
}

// ===== HELPERS =====

func (s *gradeService) loadCourse(ctx context.Context, userID string, courseID uint) (*models.StudentCourse, error) {
	course, err := s.repo.Course().GetByID(ctx, nil, userID, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotSynced
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	return course, nil
}

func (s *gradeService) computeCourse(ctx context.Context, userID string, course *models.StudentCourse) (*CourseGradeResponse, error) {
	assignments, err := s.repo.Assignment().ListByCourse(ctx, nil, userID, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	categories, err := s.repo.Category().ListByCourse(ctx, nil, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return buildCourseGrade(course, assignments, categories), nil
}

func (s *gradeService) publish(ctx context.Context, event *events.GradingEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishGradingEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish grade event", "event_type", event.Type, "error", err)
	}
}

// buildCourseGrade groups assignments by category name and picks the weighted
// or points calculation depending on whether any category carries weight.
func buildCourseGrade(course *models.StudentCourse, records []*models.StudentAssignment, stored []*models.CourseCategory) *CourseGradeResponse {
	rulesByGroup := make(map[int64]grading.Rules, len(stored))
	rulesByName := make(map[string]grading.Rules, len(stored))
	for _, c := range stored {
		r := decodeRules(c.Rules)
		rulesByGroup[c.LMSGroupID] = r
		rulesByName[c.Name] = r
	}

	byName := make(map[string]*grading.Category)
	var order []string
	for _, rec := range records {
		a := rec.ToGrading()
		name := a.GroupName
		if name == "" {
			name = grading.DefaultCategoryName
		}

		cat, ok := byName[name]
		if !ok {
			cat = &grading.Category{Name: name}
			if rec.AssignmentGroupID != nil {
				cat.Rules = rulesByGroup[*rec.AssignmentGroupID]
			} else {
				cat.Rules = rulesByName[name]
			}
			byName[name] = cat
			order = append(order, name)
		}
		if cat.Weight == 0 && a.GroupWeight != nil {
			cat.Weight = *a.GroupWeight
		}
		cat.Assignments = append(cat.Assignments, a)
	}

	categories := make([]grading.Category, 0, len(order))
	for _, name := range order {
		categories = append(categories, *byName[name])
	}

	resp := &CourseGradeResponse{
		CourseID:     course.ID,
		LMSCourseID:  course.LMSCourseID,
		CourseName:   course.Name,
		CourseCode:   course.Code,
		LastSyncedAt: course.LastSyncedAt,
	}

	var result grading.CourseGrade
	if grading.HasWeights(categories) {
		result = grading.WeightedGrade(categories)
		resp.Weighted = true
	} else {
		result = pointsCourseGrade(categories)
	}

	resp.Percentage = result.Percentage
	resp.LetterGrade = result.LetterGrade
	resp.PointsEarned = result.PointsEarned
	resp.PointsPossible = result.PointsPossible
	resp.CategoryScores = result.CategoryScores
	return resp
}

// pointsCourseGrade is the unweighted course grade with a per-category breakdown.
func pointsCourseGrade(categories []grading.Category) grading.CourseGrade {
	var flat []grading.Assignment
	scores := make(map[string]grading.CategoryBreakdown, len(categories))
	for _, c := range categories {
		flat = append(flat, c.Assignments...)
		if cs, ok := grading.CategoryScoreWithRules(c.Assignments, c.Rules); ok {
			scores[c.Name] = grading.CategoryBreakdown{CategoryScore: cs, Weight: c.Weight}
		}
	}

	points := grading.PointsGrade(flat)
	return grading.CourseGrade{
		Percentage:     points.Percentage,
		LetterGrade:    points.LetterGrade,
		PointsEarned:   points.PointsEarned,
		PointsPossible: points.PointsPossible,
		CategoryScores: scores,
	}
}

func snapshotFrom(userID string, courseID uint, at time.Time, resp *CourseGradeResponse) *models.GradeSnapshot {
	return &models.GradeSnapshot{
		UserID:         userID,
		CourseID:       courseID,
		SnapshotDate:   time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
		Percentage:     resp.Percentage,
		Letter:         string(resp.LetterGrade),
		PointsEarned:   resp.PointsEarned,
		PointsPossible: resp.PointsPossible,
		Categories:     toJSON(resp.CategoryScores),
	}
}

func toCourseCategories(groups []lms.Category) []*models.CourseCategory {
	out := make([]*models.CourseCategory, 0, len(groups))
	for _, g := range groups {
		out = append(out, &models.CourseCategory{
			LMSGroupID: g.ID,
			Name:       g.Name,
			Weight:     g.Weight,
			Rules: toJSON(grading.Rules{
				DropLowest:  g.Rules.DropLowest,
				DropHighest: g.Rules.DropHighest,
				NeverDrop:   g.Rules.NeverDrop,
			}),
		})
	}
	return out
}

// submissionsByAssignment keys the student's submissions by assignment and
// ignores rows belonging to anyone else.
func submissionsByAssignment(studentID int64, submissions []lms.Submission) map[int64]*lms.Submission {
	out := make(map[int64]*lms.Submission, len(submissions))
	for i := range submissions {
		if submissions[i].UserID != 0 && submissions[i].UserID != studentID {
			continue
		}
		out[submissions[i].AssignmentID] = &submissions[i]
	}
	return out
}

func toStudentAssignments(userID string, courseID uint, assignments []lms.Assignment, groups []lms.Category, submissions map[int64]*lms.Submission) []*models.StudentAssignment {
	groupByID := make(map[int64]lms.Category, len(groups))
	for _, g := range groups {
		groupByID[g.ID] = g
	}

	out := make([]*models.StudentAssignment, 0, len(assignments))
	for _, a := range assignments {
		sub := submissions[a.ID]
		rec := &models.StudentAssignment{
			UserID:          userID,
			CourseID:        courseID,
			LMSAssignmentID: a.ID,
			Name:            a.Name,
			PointsPossible:  a.PointsPossible,
			DueAt:           a.DueAt,
			Graded:          sub.Graded(),
			Submitted:       sub.Submitted(),
		}
		if sub != nil {
			rec.Score = sub.Score
			rec.Grade = sub.Grade
			rec.SubmittedAt = sub.SubmittedAt
		}
		if a.CategoryID != nil {
			if g, ok := groupByID[*a.CategoryID]; ok {
				id, name, weight := g.ID, g.Name, g.Weight
				rec.AssignmentGroupID = &id
				rec.AssignmentGroupName = &name
				rec.AssignmentGroupWeight = &weight
			}
		}
		out = append(out, rec)
	}
	return out
}

func toGradingAssignments(records []*models.StudentAssignment) []grading.Assignment {
	out := make([]grading.Assignment, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToGrading())
	}
	return out
}

func decodeRules(raw []byte) grading.Rules {
	var r grading.Rules
	if len(raw) == 0 {
		return r
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return grading.Rules{}
	}
	return r
}
