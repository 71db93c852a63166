package services

import (
	"strings"
	"time"

	"taskboard/app/hierarchy"
	"taskboard/app/models"
)

// Query selects sub-tasks for tree and stats views. Empty or "all" filter
// fields match everything; a non-empty Search must be a case-insensitive
// substring of the title or description.
type Query struct {
	Search   string `json:"search,omitempty"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

func active(v string) bool { return v != "" && v != "all" }

// IsZero reports whether the query matches everything.
func (q Query) IsZero() bool {
	return q.Search == "" && !active(q.Status) && !active(q.Priority) && !active(q.Assignee)
}

// Matches reports whether st satisfies every active criterion.
func (q Query) Matches(st *models.SubTask) bool {
	if q.Search != "" {
		term := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(st.Title), term) &&
			!strings.Contains(strings.ToLower(st.Description), term) {
			return false
		}
	}
	if active(q.Status) && string(st.Status) != q.Status {
		return false
	}
	if active(q.Priority) && string(st.Priority) != q.Priority {
		return false
	}
	if active(q.Assignee) && st.AssignedTo != q.Assignee {
		return false
	}
	return true
}

// payloadKey is where toNode stores the full record in the node payload.
const payloadKey = "sub_task"

// toNode maps a stored sub-task onto the hierarchy's structural fields. A
// sub-task with no parent sub-task hangs under its task's root.
func toNode(st *models.SubTask) hierarchy.Node {
	parent := hierarchy.NoParent()
	switch {
	case st.ParentSubTaskID != nil:
		parent = hierarchy.ParentOf(hierarchy.ID(*st.ParentSubTaskID))
	case st.TaskID != "":
		parent = hierarchy.TaskRoot()
	}
	return hierarchy.Node{
		ID:         hierarchy.ID(st.ID),
		Parent:     parent,
		Level:      st.Level,
		OrderIndex: st.OrderIndex,
		Payload: map[string]any{
			payloadKey:    st,
			"title":       st.Title,
			"status":      string(st.Status),
			"priority":    string(st.Priority),
			"assigned_to": st.AssignedTo,
		},
	}
}

func subTaskOf(n hierarchy.Node) *models.SubTask {
	st, _ := n.Payload[payloadKey].(*models.SubTask)
	return st
}

// predicate adapts q to hierarchy.Filter.
func (q Query) predicate() func(hierarchy.Node) bool {
	return func(n hierarchy.Node) bool {
		st := subTaskOf(n)
		return st != nil && q.Matches(st)
	}
}

// Stats summarises the sub-tasks matching a query.
type Stats struct {
	Total      int            `json:"total" yaml:"total"`
	ByStatus   map[string]int `json:"by_status" yaml:"by_status"`
	ByPriority map[string]int `json:"by_priority" yaml:"by_priority"`
	ByLevel    map[int]int    `json:"by_level" yaml:"by_level"`
	Overdue    int            `json:"overdue" yaml:"overdue"`
}

// ComputeStats counts the sub-tasks of subs that match q as of now.
func ComputeStats(subs []models.SubTask, q Query, now time.Time) Stats {
	stats := Stats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByLevel:    map[int]int{},
	}
	for i := range subs {
		st := &subs[i]
		if !q.Matches(st) {
			continue
		}
		stats.Total++
		stats.ByStatus[string(st.Status)]++
		stats.ByPriority[string(st.Priority)]++
		stats.ByLevel[st.Level]++
		if st.Overdue(now) {
			stats.Overdue++
		}
	}
	return stats
}
