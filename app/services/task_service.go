package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskboard/app/models"
	"taskboard/app/store"

	"github.com/google/uuid"
)

// TaskService handles task-related operations.
type TaskService struct {
	store  store.TaskStore
	logger *slog.Logger
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(s store.TaskStore, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{store: s, logger: logger}
}

// GetTasks retrieves the tasks of a board, or every task if boardID is empty.
func (s *TaskService) GetTasks(ctx context.Context, boardID string) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *TaskService) GetTaskByID(ctx context.Context, taskID string) (*models.Task, error) {
	return s.store.GetTask(ctx, taskID)
}

// CreateTask adds a new task, generating its ID when unset.
func (s *TaskService) CreateTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return nil, invalid(models.ErrTitleRequired)
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.ParentID != nil && *task.ParentID == "" {
		task.ParentID = nil
	}
	if task.ParentID != nil {
		if _, err := s.store.GetTask(ctx, *task.ParentID); err != nil {
			return nil, fmt.Errorf("parent task: %w", err)
		}
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", slog.String("task_id", task.ID), slog.String("board_id", task.BoardID))
	return task, nil
}

// UpdateTask updates an existing task's information.
func (s *TaskService) UpdateTask(ctx context.Context, taskID string, update models.TaskUpdate) error {
	update.Title = strings.TrimSpace(update.Title)
	if update.Title == "" {
		return invalid(models.ErrTitleRequired)
	}
	return s.store.UpdateTask(ctx, taskID, update)
}

// DeleteTask deletes a task, its child tasks and their sub-tasks.
func (s *TaskService) DeleteTask(ctx context.Context, taskID string) error {
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}
	s.logger.Info("task deleted", slog.String("task_id", taskID))
	return nil
}
