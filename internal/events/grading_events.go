package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the kinds of grading events the service emits
type EventType string

const (
	// Setup events
	EventSetupCompleted EventType = "grading.setup_completed"
	EventSetupFailed    EventType = "grading.setup_failed"
	EventSetupFixed     EventType = "grading.fixed"
	EventNeedsAttention EventType = "grading.needs_attention"

	// Student grade events
	EventSnapshotRecorded EventType = "grades.snapshot_recorded"
)

const (
	eventSource  = "facultyflow-grading"
	eventVersion = "1.0"
)

// GradingEvent is the envelope for every event published on the grading topic
type GradingEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Setup event payloads

type SetupCompletedEvent struct {
	CourseID        int64   `json:"course_id"`
	GroupsCreated   int     `json:"groups_created"`
	TotalWeight     float64 `json:"total_weight"`
	WeightedEnabled bool    `json:"weighted_grading_enabled"`
	ActorID         string  `json:"actor_id"`
}

type SetupFailedEvent struct {
	CourseID int64  `json:"course_id"`
	Step     string `json:"step"`
	Error    string `json:"error"`
	ActorID  string `json:"actor_id"`
}

type SetupFixedEvent struct {
	CourseID int64    `json:"course_id"`
	FixType  string   `json:"fix_type"`
	Fixes    []string `json:"fixes"`
	ActorID  string   `json:"actor_id"`
}

type NeedsAttentionEvent struct {
	CourseID    int64    `json:"course_id"`
	TotalWeight float64  `json:"total_weight"`
	Issues      []string `json:"issues"`
}

// Student grade event payloads

type SnapshotRecordedEvent struct {
	UserID      string    `json:"user_id"`
	CourseID    uint      `json:"course_id"`
	LMSCourseID int64     `json:"lms_course_id"`
	Percentage  float64   `json:"percentage"`
	Letter      string    `json:"letter"`
	RecordedOn  time.Time `json:"recorded_on"`
}

// Event factory functions

func newEvent(eventType EventType, data interface{}) *GradingEvent {
	return &GradingEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewSetupCompletedEvent(courseID int64, groupsCreated int, totalWeight float64, weighted bool, actorID string) *GradingEvent {
	return newEvent(EventSetupCompleted, SetupCompletedEvent{
		CourseID:        courseID,
		GroupsCreated:   groupsCreated,
		TotalWeight:     totalWeight,
		WeightedEnabled: weighted,
		ActorID:         actorID,
	})
}

func NewSetupFailedEvent(courseID int64, step, errMsg, actorID string) *GradingEvent {
	return newEvent(EventSetupFailed, SetupFailedEvent{
		CourseID: courseID,
		Step:     step,
		Error:    errMsg,
		ActorID:  actorID,
	})
}

func NewSetupFixedEvent(courseID int64, fixType string, fixes []string, actorID string) *GradingEvent {
	return newEvent(EventSetupFixed, SetupFixedEvent{
		CourseID: courseID,
		FixType:  fixType,
		Fixes:    fixes,
		ActorID:  actorID,
	})
}

func NewNeedsAttentionEvent(courseID int64, totalWeight float64, issues []string) *GradingEvent {
	return newEvent(EventNeedsAttention, NeedsAttentionEvent{
		CourseID:    courseID,
		TotalWeight: totalWeight,
		Issues:      issues,
	})
}

func NewSnapshotRecordedEvent(userID string, courseID uint, lmsCourseID int64, percentage float64, letter string, recordedOn time.Time) *GradingEvent {
	return newEvent(EventSnapshotRecorded, SnapshotRecordedEvent{
		UserID:      userID,
		CourseID:    courseID,
		LMSCourseID: lmsCourseID,
		Percentage:  percentage,
		Letter:      letter,
		RecordedOn:  recordedOn,
	})
}

// GenerateEventID returns a random event identifier
func GenerateEventID() string {
	return uuid.NewString()
}
