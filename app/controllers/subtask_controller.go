package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"taskboard/app/hierarchy"
	"taskboard/app/models"
	"taskboard/app/services"

	"github.com/gorilla/mux"
)

// SubTaskController handles HTTP requests for sub-tasks and tree views.
type SubTaskController struct {
	Service *services.SubTaskService
	logger  *slog.Logger
}

// NewSubTaskController creates a new SubTaskController.
func NewSubTaskController(service *services.SubTaskService, logger *slog.Logger) *SubTaskController {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubTaskController{Service: service, logger: logger}
}

func scopeFrom(r *http.Request) models.Scope {
	vars := mux.Vars(r)
	return models.Scope{TaskID: vars["taskID"], BoardID: vars["boardID"]}
}

func queryFrom(v url.Values) services.Query {
	search := v.Get("search")
	if search == "" {
		search = v.Get("q")
	}
	return services.Query{
		Search:   search,
		Status:   v.Get("status"),
		Priority: v.Get("priority"),
		Assignee: v.Get("assignee"),
	}
}

// ListSubTasks handles GET /tasks/{taskID}/subtasks.
func (c *SubTaskController) ListSubTasks(w http.ResponseWriter, r *http.Request) {
	subs, err := c.Service.List(r.Context(), scopeFrom(r))
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

// CreateSubTask handles POST /tasks/{taskID}/subtasks.
func (c *SubTaskController) CreateSubTask(w http.ResponseWriter, r *http.Request) {
	var in models.NewSubTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request payload"})
		return
	}

	st, err := c.Service.Create(r.Context(), mux.Vars(r)["taskID"], in)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// Tree handles GET /tasks/{taskID}/subtasks/tree and
// GET /boards/{boardID}/subtasks/tree.
//
// Query parameters: expanded=id,id (or expand=all), search|q, status,
// priority, assignee.
func (c *SubTaskController) Tree(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := services.TreeOptions{
		Expanded:  hierarchy.ParseExpanded(q.Get("expanded")),
		ExpandAll: q.Get("expand") == "all",
		Query:     queryFrom(q),
	}

	view, err := c.Service.Tree(r.Context(), scopeFrom(r), opts)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Stats handles GET /tasks/{taskID}/subtasks/stats.
func (c *SubTaskController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.Stats(r.Context(), scopeFrom(r), queryFrom(r.URL.Query()))
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetSubTask handles GET /subtasks/{subTaskID}.
func (c *SubTaskController) GetSubTask(w http.ResponseWriter, r *http.Request) {
	st, err := c.Service.Get(r.Context(), mux.Vars(r)["subTaskID"])
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateSubTask handles PUT /subtasks/{subTaskID}.
func (c *SubTaskController) UpdateSubTask(w http.ResponseWriter, r *http.Request) {
	var update models.SubTaskUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request payload"})
		return
	}

	st, err := c.Service.Update(r.Context(), mux.Vars(r)["subTaskID"], update)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// MoveSubTask handles POST /subtasks/{subTaskID}/move.
func (c *SubTaskController) MoveSubTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ParentSubTaskID *string `json:"parent_sub_task_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request payload"})
		return
	}

	st, err := c.Service.Move(r.Context(), mux.Vars(r)["subTaskID"], body.ParentSubTaskID)
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteSubTask handles DELETE /subtasks/{subTaskID}.
func (c *SubTaskController) DeleteSubTask(w http.ResponseWriter, r *http.Request) {
	n, err := c.Service.Delete(r.Context(), mux.Vars(r)["subTaskID"])
	if err != nil {
		writeError(w, c.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}
