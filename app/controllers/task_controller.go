package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"taskboard/app/models"
	"taskboard/app/services"

	"github.com/gorilla/mux"
)

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service *services.TaskService
	logger  *slog.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, logger *slog.Logger) *TaskController {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskController{Service: service, logger: logger}
}

// GetTasks handles GET /tasks.
func (c *TaskController) GetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := c.Service.GetTasks(r.Context(), r.URL.Query().Get("board_id"))
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// CreateTask handles POST /tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	var task models.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request payload"})
		return
	}

	newTask, err := c.Service.CreateTask(r.Context(), &task)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTask)
}

// GetTaskByID handles GET /tasks/{taskID}.
func (c *TaskController) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	task, err := c.Service.GetTaskByID(r.Context(), taskID)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PUT /tasks/{taskID}.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	var update models.TaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request payload"})
		return
	}

	if err := c.Service.UpdateTask(r.Context(), taskID, update); err != nil {
		writeError(w, c.logger, r, err)
		return
	}

	task, err := c.Service.GetTaskByID(r.Context(), taskID)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{taskID}.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskID"]
	if err := c.Service.DeleteTask(r.Context(), taskID); err != nil {
		writeError(w, c.logger, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
