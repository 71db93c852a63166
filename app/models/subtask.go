package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the workflow column a sub-task sits in.
type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusWorking    Status = "Working on it"
	StatusStuck      Status = "Stuck"
	StatusDone       Status = "Done"
	StatusReview     Status = "Review"
)

// Priority of a sub-task.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var (
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrTitleRequired   = errors.New("title is required")
)

// Statuses lists the known statuses in board order.
var Statuses = []Status{StatusNotStarted, StatusWorking, StatusStuck, StatusDone, StatusReview}

// Priorities lists the known priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// ParseStatus validates s. An empty string yields StatusNotStarted.
func ParseStatus(s string) (Status, error) {
	if s == "" {
		return StatusNotStarted, nil
	}
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// ParsePriority validates p. An empty string yields PriorityMedium.
func ParsePriority(p string) (Priority, error) {
	if p == "" {
		return PriorityMedium, nil
	}
	for _, pr := range Priorities {
		if string(pr) == p {
			return pr, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, p)
}

// SubTask is a node of a task's sub-task hierarchy. A nil ParentSubTaskID
// means the sub-task hangs directly under its task.
type SubTask struct {
	ID              string     `json:"id"`
	TaskID          string     `json:"task_id"`
	ParentSubTaskID *string    `json:"parent_sub_task_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          Status     `json:"status"`
	Priority        Priority   `json:"priority"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	Level           int        `json:"level"`
	OrderIndex      int        `json:"order_index"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Overdue reports whether the sub-task is past its due date and not done.
func (s *SubTask) Overdue(now time.Time) bool {
	return s.DueDate != nil && s.DueDate.Before(now) && s.Status != StatusDone
}

// NewSubTask is the body of a create request.
type NewSubTask struct {
	ParentSubTaskID *string    `json:"parent_sub_task_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	AssignedTo      string     `json:"assigned_to"`
	DueDate         *time.Time `json:"due_date"`
	Tags            []string   `json:"tags"`
}

// SubTaskUpdate is a partial update; nil fields are left alone.
type SubTaskUpdate struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	Priority    *Priority  `json:"priority"`
	AssignedTo  *string    `json:"assigned_to"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	Tags        *[]string  `json:"tags"`
}

// Validate normalises the title and checks status and priority values.
func (u *SubTaskUpdate) Validate() error {
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		if t == "" {
			return ErrTitleRequired
		}
		u.Title = &t
	}
	if u.Status != nil {
		if _, err := ParseStatus(string(*u.Status)); err != nil || *u.Status == "" {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, string(*u.Status))
		}
	}
	if u.Priority != nil {
		if _, err := ParsePriority(string(*u.Priority)); err != nil || *u.Priority == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPriority, string(*u.Priority))
		}
	}
	return nil
}

// Apply copies the set fields of u onto s.
func (u *SubTaskUpdate) Apply(s *SubTask) {
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Description != nil {
		s.Description = strings.TrimSpace(*u.Description)
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.Priority != nil {
		s.Priority = *u.Priority
	}
	if u.AssignedTo != nil {
		s.AssignedTo = *u.AssignedTo
	}
	if u.ClearDue {
		s.DueDate = nil
	} else if u.DueDate != nil {
		d := *u.DueDate
		s.DueDate = &d
	}
	if u.Tags != nil {
		s.Tags = append([]string(nil), (*u.Tags)...)
	}
}

// Scope narrows a sub-task listing to one task, or to every task of a
// board. The zero Scope selects everything.
type Scope struct {
	TaskID  string
	BoardID string
}
