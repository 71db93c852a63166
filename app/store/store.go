// Package store persists tasks and their sub-task hierarchies. Two
// backends share one interface: Neo4j, where parent links are graph edges,
// and SQLite, used for local runs and tests.
package store

import (
	"context"
	"errors"

	"taskboard/app/models"
)

// ErrNotFound is returned when a task or sub-task does not exist.
var ErrNotFound = errors.New("not found")

// TaskStore holds board tasks.
type TaskStore interface {
	// ListTasks returns the tasks of boardID, or every task when it is empty.
	ListTasks(ctx context.Context, boardID string) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error
	// DeleteTask removes the task, its direct child tasks and their sub-tasks.
	DeleteTask(ctx context.Context, id string) error
}

// Placement positions a sub-task within its task's hierarchy.
type Placement struct {
	ID              string
	ParentSubTaskID *string
	Level           int
	OrderIndex      int
}

// SubTaskStore holds sub-task hierarchies.
type SubTaskStore interface {
	// ListSubTasks returns the sub-tasks in scope ordered by level, then
	// order index.
	ListSubTasks(ctx context.Context, scope models.Scope) ([]models.SubTask, error)
	GetSubTask(ctx context.Context, id string) (*models.SubTask, error)
	// CreateSubTask inserts st. The owning task must exist.
	CreateSubTask(ctx context.Context, st *models.SubTask) error
	// UpdateSubTask writes the editable fields of st.
	UpdateSubTask(ctx context.Context, st *models.SubTask) error
	// PlaceSubTasks applies placements in one transaction.
	PlaceSubTasks(ctx context.Context, placements []Placement) error
	// DeleteSubTask removes the sub-task and its descendants and returns
	// how many records went.
	DeleteSubTask(ctx context.Context, id string) (int, error)
	// MaxOrderIndex returns the largest order index among the children of
	// parentID, or among the task-root sub-tasks when parentID is nil.
	// It returns 0 when there are none.
	MaxOrderIndex(ctx context.Context, taskID string, parentID *string) (int, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	TaskStore
	SubTaskStore
	Close(ctx context.Context) error
}
