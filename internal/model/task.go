// Package model provides the entity types shared by the durable store,
// the cloud adapter, and the application controller.
//
// Entities use camelCase JSON tags; this is the local wire shape. The
// remote row shape (snake_case) lives in internal/cloud.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority is the task priority level.
type Priority string

const (
	PriorityNone   Priority = "none"
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority value.
func (p Priority) Valid() bool {
	switch p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// RecurrenceType is the repeat cadence of a recurring task.
type RecurrenceType string

const (
	RecurDaily   RecurrenceType = "daily"
	RecurWeekly  RecurrenceType = "weekly"
	RecurMonthly RecurrenceType = "monthly"
	RecurYearly  RecurrenceType = "yearly"
)

// RecurrenceRule describes how a completed task respawns.
type RecurrenceRule struct {
	Type RecurrenceType `json:"type"`
}

// Subtask is a checklist entry inside a task.
type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// DueDateLayout is the calendar-date format used for Task.DueDate.
// Due dates carry no time component.
const DueDateLayout = "2006-01-02"

// Task is the primary entity of the application.
//
// Invariant: CompletedAt is non-nil if and only if Completed is true.
// Use SetCompleted to toggle completion so the invariant holds.
type Task struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Completed      bool            `json:"completed"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	IsImportant    bool            `json:"isImportant"`
	Priority       Priority        `json:"priority"`
	ImageURL       string          `json:"imageUrl,omitempty"`
	DueDate        string          `json:"dueDate,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	Subtasks       []Subtask       `json:"subtasks,omitempty"`
	Notified       *bool           `json:"notified,omitempty"`
	RecurrenceRule *RecurrenceRule `json:"recurrenceRule,omitempty"`
	ReminderOffset *int            `json:"reminderOffset,omitempty"`
}

// Validate checks that the task has usable field values.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Text == "" {
		return fmt.Errorf("text is required")
	}
	if t.Priority == "" {
		t.Priority = PriorityNone
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("unknown priority %q", t.Priority)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DueDateLayout, t.DueDate); err != nil {
			return fmt.Errorf("due date %q is not a calendar date: %w", t.DueDate, err)
		}
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("createdAt is required")
	}
	if t.Completed != (t.CompletedAt != nil) {
		return fmt.Errorf("completed=%v but completedAt set=%v", t.Completed, t.CompletedAt != nil)
	}
	if t.RecurrenceRule != nil {
		switch t.RecurrenceRule.Type {
		case RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		default:
			return fmt.Errorf("unknown recurrence type %q", t.RecurrenceRule.Type)
		}
	}
	return nil
}

// NormalizeTags lowercases, trims, and deduplicates the tag set in place.
func (t *Task) NormalizeTags() {
	if len(t.Tags) == 0 {
		return
	}
	seen := make(map[string]bool, len(t.Tags))
	out := t.Tags[:0]
	for _, tag := range t.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	t.Tags = out
}

// SetCompleted flips completion state while preserving the
// completed/completedAt invariant. Completing an already-completed task
// (or clearing an open one) is a no-op.
func (t *Task) SetCompleted(done bool, now time.Time) {
	if t.Completed == done {
		return
	}
	t.Completed = done
	if done {
		ts := now.UTC()
		t.CompletedAt = &ts
	} else {
		t.CompletedAt = nil
	}
}

// NextDueDate advances a calendar date by one recurrence step.
// Monthly and yearly advances follow time.AddDate normalization
// (Jan 31 + 1 month lands on Mar 2/3).
func NextDueDate(dueDate string, rule RecurrenceType) (string, error) {
	day, err := time.Parse(DueDateLayout, dueDate)
	if err != nil {
		return "", fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}
	switch rule {
	case RecurDaily:
		day = day.AddDate(0, 0, 1)
	case RecurWeekly:
		day = day.AddDate(0, 0, 7)
	case RecurMonthly:
		day = day.AddDate(0, 1, 0)
	case RecurYearly:
		day = day.AddDate(1, 0, 0)
	default:
		return "", fmt.Errorf("unknown recurrence type %q", rule)
	}
	return day.Format(DueDateLayout), nil
}

// SpawnNext builds the successor of a completed recurring task.
//
// The successor gets a fresh id and created-at, the advanced due date,
// and reset completion, notification, and subtask state. The original
// task is left untouched; callers keep it in the store.
func (t *Task) SpawnNext(id string, now time.Time) (*Task, error) {
	if t.RecurrenceRule == nil {
		return nil, fmt.Errorf("task %s has no recurrence rule", t.ID)
	}
	if t.DueDate == "" {
		return nil, fmt.Errorf("task %s has no due date to advance", t.ID)
	}
	next, err := NextDueDate(t.DueDate, t.RecurrenceRule.Type)
	if err != nil {
		return nil, err
	}

	clone := *t
	clone.ID = id
	clone.CreatedAt = now.UTC()
	clone.Completed = false
	clone.CompletedAt = nil
	clone.Notified = nil
	clone.DueDate = next
	clone.Tags = append([]string(nil), t.Tags...)
	if t.RecurrenceRule != nil {
		rule := *t.RecurrenceRule
		clone.RecurrenceRule = &rule
	}
	clone.Subtasks = make([]Subtask, len(t.Subtasks))
	for i, st := range t.Subtasks {
		st.Completed = false
		clone.Subtasks[i] = st
	}
	return &clone, nil
}
