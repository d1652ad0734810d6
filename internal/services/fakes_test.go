package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/crisjonblvx/facultyflow/internal/cache"
	"github.com/crisjonblvx/facultyflow/internal/lms"
	"github.com/crisjonblvx/facultyflow/internal/models"
	"github.com/crisjonblvx/facultyflow/internal/repositories"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }

// ===== FAKE LMS =====

// defaultLMSStudent owns the submissions passed to addAssignment.
const defaultLMSStudent int64 = 9001

// fakeLMS keeps one course in memory. failOn makes the named call fail.
type fakeLMS struct {
	mu sync.Mutex

	course      lms.Course
	groups      []lms.Category
	assignments []lms.Assignment
	submissions map[int64]map[int64]lms.Submission
	nextID      int64

	failOn          map[string]error
	failDelete      map[int64]error
	createLimit     int
	attachOnCreate  bool
	calls           []string
	weightUpdates   map[int64]float64
	appliedPolicies []lms.LatePolicy
}

func newFakeLMS(courseID int64) *fakeLMS {
	return &fakeLMS{
		course:        lms.Course{ID: courseID, Name: "Intro to Media"},
		nextID:        100,
		submissions:   map[int64]map[int64]lms.Submission{},
		failOn:        map[string]error{},
		failDelete:    map[int64]error{},
		weightUpdates: map[int64]float64{},
	}
}

func (f *fakeLMS) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeLMS) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeLMS) addGroup(name string, weight float64, withAssignment bool) int64 {
	f.nextID++
	id := f.nextID
	f.groups = append(f.groups, lms.Category{ID: id, Name: name, Weight: weight})
	if withAssignment {
		f.addAssignment(&id, 10, nil)
	}
	return id
}

func (f *fakeLMS) addAssignment(groupID *int64, points float64, submission *lms.Submission) int64 {
	f.nextID++
	f.assignments = append(f.assignments, lms.Assignment{
		ID:             f.nextID,
		Name:           "Assignment",
		CategoryID:     groupID,
		PointsPossible: float64Ptr(points),
	})
	if submission != nil {
		f.setSubmission(defaultLMSStudent, f.nextID, *submission)
	}
	return f.nextID
}

func (f *fakeLMS) setSubmission(studentID, assignmentID int64, submission lms.Submission) {
	if f.submissions[studentID] == nil {
		f.submissions[studentID] = map[int64]lms.Submission{}
	}
	submission.AssignmentID = assignmentID
	submission.UserID = studentID
	f.submissions[studentID][assignmentID] = submission
}

func (f *fakeLMS) removeAssignment(id int64) {
	for i := range f.assignments {
		if f.assignments[i].ID == id {
			f.assignments = append(f.assignments[:i], f.assignments[i+1:]...)
			break
		}
	}
	for _, subs := range f.submissions {
		delete(subs, id)
	}
}

func (f *fakeLMS) GetCourse(ctx context.Context, courseID int64) (*lms.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetCourse"); err != nil {
		return nil, err
	}
	c := f.course
	return &c, nil
}

func (f *fakeLMS) ListCategories(ctx context.Context, courseID int64) ([]lms.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListCategories"); err != nil {
		return nil, err
	}
	out := make([]lms.Category, len(f.groups))
	copy(out, f.groups)
	return out, nil
}

func (f *fakeLMS) CreateCategory(ctx context.Context, courseID int64, name string, weight float64, rules lms.CategoryRules) (*lms.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCategory"); err != nil {
		return nil, err
	}
	if f.createLimit > 0 && len(f.groups) >= f.createLimit {
		return nil, &lms.APIError{Op: "create assignment group", StatusCode: 500, Body: "boom"}
	}
	f.nextID++
	g := lms.Category{ID: f.nextID, Name: name, Weight: weight, Rules: rules}
	f.groups = append(f.groups, g)
	if f.attachOnCreate {
		id := g.ID
		f.nextID++
		f.assignments = append(f.assignments, lms.Assignment{ID: f.nextID, Name: name + " 1", CategoryID: &id, PointsPossible: float64Ptr(10)})
	}
	return &g, nil
}

func (f *fakeLMS) UpdateCategoryWeight(ctx context.Context, courseID, categoryID int64, weight float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateCategoryWeight"); err != nil {
		return err
	}
	for i := range f.groups {
		if f.groups[i].ID == categoryID {
			f.groups[i].Weight = weight
			f.weightUpdates[categoryID] = weight
			return nil
		}
	}
	return &lms.APIError{Op: "update assignment group", StatusCode: 404}
}

func (f *fakeLMS) DeleteCategory(ctx context.Context, courseID, categoryID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteCategory"); err != nil {
		return err
	}
	if err := f.failDelete[categoryID]; err != nil {
		return err
	}
	for i := range f.groups {
		if f.groups[i].ID == categoryID {
			f.groups = append(f.groups[:i], f.groups[i+1:]...)
			return nil
		}
	}
	return &lms.APIError{Op: "delete assignment group", StatusCode: 404}
}

func (f *fakeLMS) EnableWeightedGrading(ctx context.Context, courseID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("EnableWeightedGrading"); err != nil {
		return err
	}
	f.course.WeightedGrading = true
	return nil
}

func (f *fakeLMS) ApplyGlobalRules(ctx context.Context, courseID int64, policy lms.LatePolicy) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ApplyGlobalRules"); err != nil {
		return err
	}
	f.appliedPolicies = append(f.appliedPolicies, policy)
	return nil
}

func (f *fakeLMS) ListAssignments(ctx context.Context, courseID int64) ([]lms.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListAssignments"); err != nil {
		return nil, err
	}
	out := make([]lms.Assignment, len(f.assignments))
	copy(out, f.assignments)
	return out, nil
}

func (f *fakeLMS) ListSubmissions(ctx context.Context, courseID, studentID int64) ([]lms.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListSubmissions"); err != nil {
		return nil, err
	}
	var out []lms.Submission
	for _, a := range f.assignments {
		if s, ok := f.submissions[studentID][a.ID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// ===== FAKE CACHE =====

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = b
	return nil
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deletes = append(c.deletes, key)
	return nil
}

// ===== MOCK SETUP RUN REPOSITORY =====

type MockSetupRunRepository struct {
	mock.Mock
}

func (m *MockSetupRunRepository) Create(ctx context.Context, tx *gorm.DB, run *models.GradingSetupRun) error {
	args := m.Called(ctx, tx, run)
	return args.Error(0)
}

func (m *MockSetupRunRepository) ListByCourse(ctx context.Context, tx *gorm.DB, lmsCourseID int64, filters repositories.SetupRunFilters) ([]*models.GradingSetupRun, int64, error) {
	args := m.Called(ctx, tx, lmsCourseID, filters)
	return args.Get(0).([]*models.GradingSetupRun), args.Get(1).(int64), args.Error(2)
}

// ===== IN-MEMORY REPOSITORY =====

type memRepo struct {
	mu          sync.Mutex
	courses     map[uint]*models.StudentCourse
	assignments map[uint][]*models.StudentAssignment
	categories  map[uint][]*models.CourseCategory
	snapshots   []*models.GradeSnapshot
	setupRuns   repositories.SetupRunRepository
	nextID      uint
	txErr       error
}

func newMemRepo() *memRepo {
	return &memRepo{
		courses:     map[uint]*models.StudentCourse{},
		assignments: map[uint][]*models.StudentAssignment{},
		categories:  map[uint][]*models.CourseCategory{},
	}
}

func (r *memRepo) Course() repositories.CourseRepository         { return memCourses{r} }
func (r *memRepo) Assignment() repositories.AssignmentRepository { return memAssignments{r} }
func (r *memRepo) Category() repositories.CategoryRepository     { return memCategories{r} }
func (r *memRepo) Snapshot() repositories.SnapshotRepository     { return memSnapshots{r} }
func (r *memRepo) SetupRun() repositories.SetupRunRepository     { return r.setupRuns }

func (r *memRepo) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.txErr != nil {
		return r.txErr
	}
	return fn(nil)
}

type memCourses struct{ r *memRepo }

func (m memCourses) Upsert(ctx context.Context, tx *gorm.DB, course *models.StudentCourse) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, c := range m.r.courses {
		if c.UserID == course.UserID && c.LMSCourseID == course.LMSCourseID {
			course.ID = c.ID
			stored := *course
			m.r.courses[c.ID] = &stored
			return nil
		}
	}
	m.r.nextID++
	course.ID = m.r.nextID
	stored := *course
	m.r.courses[course.ID] = &stored
	return nil
}

func (m memCourses) GetByID(ctx context.Context, tx *gorm.DB, userID string, id uint) (*models.StudentCourse, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	c, ok := m.r.courses[id]
	if !ok || c.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m memCourses) GetByLMSID(ctx context.Context, tx *gorm.DB, userID string, lmsCourseID int64) (*models.StudentCourse, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, c := range m.r.courses {
		if c.UserID == userID && c.LMSCourseID == lmsCourseID {
			out := *c
			return &out, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m memCourses) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.StudentCourse, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.StudentCourse
	for _, c := range m.r.courses {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memAssignments struct{ r *memRepo }

func (m memAssignments) UpsertBatch(ctx context.Context, tx *gorm.DB, assignments []*models.StudentAssignment) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, a := range assignments {
		existing := m.r.assignments[a.CourseID]
		replaced := false
		for i, e := range existing {
			if e.UserID == a.UserID && e.LMSAssignmentID == a.LMSAssignmentID {
				existing[i] = a
				replaced = true
			}
		}
		if !replaced {
			m.r.assignments[a.CourseID] = append(existing, a)
		}
	}
	return nil
}

func (m memAssignments) DeleteMissing(ctx context.Context, tx *gorm.DB, userID string, courseID uint, keep []int64) (int64, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	keepSet := make(map[int64]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	var kept []*models.StudentAssignment
	var removed int64
	for _, a := range m.r.assignments[courseID] {
		if _, ok := keepSet[a.LMSAssignmentID]; a.UserID == userID && !ok {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	m.r.assignments[courseID] = kept
	return removed, nil
}

func (m memAssignments) ListByCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint) ([]*models.StudentAssignment, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.StudentAssignment
	for _, a := range m.r.assignments[courseID] {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memCategories struct{ r *memRepo }

func (m memCategories) ReplaceForCourse(ctx context.Context, tx *gorm.DB, courseID uint, categories []*models.CourseCategory) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for _, c := range categories {
		c.CourseID = courseID
	}
	m.r.categories[courseID] = categories
	return nil
}

func (m memCategories) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseCategory, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	return m.r.categories[courseID], nil
}

type memSnapshots struct{ r *memRepo }

func (m memSnapshots) Upsert(ctx context.Context, tx *gorm.DB, snapshot *models.GradeSnapshot) error {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	for i, s := range m.r.snapshots {
		if s.UserID == snapshot.UserID && s.CourseID == snapshot.CourseID && s.SnapshotDate.Equal(snapshot.SnapshotDate) {
			m.r.snapshots[i] = snapshot
			return nil
		}
	}
	m.r.snapshots = append(m.r.snapshots, snapshot)
	return nil
}

func (m memSnapshots) ListByCourse(ctx context.Context, tx *gorm.DB, userID string, courseID uint, filters repositories.SnapshotFilters) ([]*models.GradeSnapshot, error) {
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	var out []*models.GradeSnapshot
	for _, s := range m.r.snapshots {
		if s.UserID == userID && s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotDate.Before(out[j].SnapshotDate) })
	return out, nil
}
