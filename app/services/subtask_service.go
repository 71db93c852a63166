package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"taskboard/app/hierarchy"
	"taskboard/app/models"
	"taskboard/app/store"

	"github.com/google/uuid"
)

// SubTaskService manages sub-task hierarchies and the tree views built
// from them. It holds no state of its own; every view rebuilds its forest
// from the store.
type SubTaskService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// SubTaskOption configures a SubTaskService.
type SubTaskOption func(*SubTaskService)

// WithClock replaces time.Now, for overdue checks and timestamps.
func WithClock(now func() time.Time) SubTaskOption {
	return func(s *SubTaskService) { s.now = now }
}

// NewSubTaskService creates a SubTaskService backed by st.
func NewSubTaskService(st store.Store, logger *slog.Logger, opts ...SubTaskOption) *SubTaskService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SubTaskService{store: st, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the sub-tasks in scope as stored, ordered by level and
// order index.
func (s *SubTaskService) List(ctx context.Context, scope models.Scope) ([]models.SubTask, error) {
	subs, err := s.store.ListSubTasks(ctx, scope)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []models.SubTask{}
	}
	return subs, nil
}

// Get returns one sub-task.
func (s *SubTaskService) Get(ctx context.Context, id string) (*models.SubTask, error) {
	return s.store.GetSubTask(ctx, id)
}

// Create adds a sub-task under taskID. A nil or empty parent places it at
// the task root. Level is the parent's level plus one (1 at the root) and
// the order index follows the current last sibling.
func (s *SubTaskService) Create(ctx context.Context, taskID string, in models.NewSubTask) (*models.SubTask, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid(models.ErrTitleRequired)
	}
	status, err := models.ParseStatus(in.Status)
	if err != nil {
		return nil, invalid(err)
	}
	priority, err := models.ParsePriority(in.Priority)
	if err != nil {
		return nil, invalid(err)
	}

	parentID := in.ParentSubTaskID
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	level := 1
	if parentID != nil {
		parent, err := s.store.GetSubTask(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("parent sub-task: %w", err)
		}
		if parent.TaskID != taskID {
			return nil, invalidf("parent sub-task %s belongs to task %s, not %s", parent.ID, parent.TaskID, taskID)
		}
		level = parent.Level + 1
	}

	last, err := s.store.MaxOrderIndex(ctx, taskID, parentID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	st := &models.SubTask{
		ID:              uuid.New().String(),
		TaskID:          taskID,
		ParentSubTaskID: parentID,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		Status:          status,
		Priority:        priority,
		AssignedTo:      in.AssignedTo,
		DueDate:         in.DueDate,
		Tags:            in.Tags,
		Level:           level,
		OrderIndex:      last + 1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(st.Tags) == 0 {
		st.Tags = nil
	}
	if err := s.store.CreateSubTask(ctx, st); err != nil {
		return nil, err
	}

	s.logger.Info("sub-task created",
		slog.String("sub_task_id", st.ID),
		slog.String("task_id", taskID),
		slog.Int("level", st.Level),
		slog.Int("order_index", st.OrderIndex))
	return st, nil
}

// Update applies a partial update.
func (s *SubTaskService) Update(ctx context.Context, id string, update models.SubTaskUpdate) (*models.SubTask, error) {
	if err := update.Validate(); err != nil {
		return nil, invalid(err)
	}
	st, err := s.store.GetSubTask(ctx, id)
	if err != nil {
		return nil, err
	}
	update.Apply(st)
	st.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSubTask(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes a sub-task with its whole subtree and returns how many
// records were removed.
func (s *SubTaskService) Delete(ctx context.Context, id string) (int, error) {
	n, err := s.store.DeleteSubTask(ctx, id)
	if err != nil {
		return 0, err
	}
	s.logger.Info("sub-task deleted", slog.String("sub_task_id", id), slog.Int("removed", n))
	return n, nil
}

// Move re-parents a sub-task within its task; a nil parent moves it to the
// task root. The moved node goes after its new last sibling and the levels
// of its subtree are recomputed. A move under its own subtree fails with
// hierarchy.ErrCyclicHierarchy and changes nothing.
func (s *SubTaskService) Move(ctx context.Context, id string, newParent *string) (*models.SubTask, error) {
	st, err := s.store.GetSubTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if newParent != nil && *newParent == "" {
		newParent = nil
	}

	level := 1
	if newParent != nil && *newParent != id {
		parent, err := s.store.GetSubTask(ctx, *newParent)
		if err != nil {
			return nil, fmt.Errorf("parent sub-task: %w", err)
		}
		if parent.TaskID != st.TaskID {
			return nil, invalidf("cannot move sub-task %s to another task", id)
		}
		level = parent.Level + 1
	}

	subs, err := s.store.ListSubTasks(ctx, models.Scope{TaskID: st.TaskID})
	if err != nil {
		return nil, err
	}
	nodes := make([]hierarchy.Node, len(subs))
	for i := range subs {
		if subs[i].ID == id {
			subs[i].ParentSubTaskID = newParent
		}
		nodes[i] = toNode(&subs[i])
	}
	forest, err := hierarchy.BuildForest(nodes)
	if err != nil {
		return nil, fmt.Errorf("move sub-task %s: %w", id, err)
	}
	moved, _ := hierarchy.Find(forest, hierarchy.ID(id))
	if moved == nil {
		return nil, fmt.Errorf("sub-task %s: %w", id, store.ErrNotFound)
	}

	last, err := s.store.MaxOrderIndex(ctx, st.TaskID, newParent)
	if err != nil {
		return nil, err
	}
	placements := []store.Placement{{ID: id, ParentSubTaskID: newParent, Level: level, OrderIndex: last + 1}}
	for n, depth := range hierarchy.Walk(moved.Children) {
		child := subTaskOf(n.Node)
		placements = append(placements, store.Placement{
			ID:              child.ID,
			ParentSubTaskID: child.ParentSubTaskID,
			Level:           level + depth + 1,
			OrderIndex:      child.OrderIndex,
		})
	}
	if err := s.store.PlaceSubTasks(ctx, placements); err != nil {
		return nil, err
	}

	s.logger.Info("sub-task moved",
		slog.String("sub_task_id", id),
		slog.Any("parent_sub_task_id", newParent),
		slog.Int("subtree", len(placements)))
	return s.store.GetSubTask(ctx, id)
}

// Forest builds the hierarchy for scope. Sub-tasks whose parent is outside
// the scope become roots and are reported as warnings.
func (s *SubTaskService) Forest(ctx context.Context, scope models.Scope) (hierarchy.Forest, []hierarchy.DanglingParentWarning, error) {
	subs, err := s.store.ListSubTasks(ctx, scope)
	if err != nil {
		return nil, nil, err
	}
	forest, warnings, err := buildForest(subs, s.logger)
	if err != nil {
		s.logger.Error("could not build task tree", slog.Any("scope", scope), slog.Any("error", err))
		return nil, nil, err
	}
	return forest, warnings, nil
}

func buildForest(subs []models.SubTask, logger *slog.Logger) (hierarchy.Forest, []hierarchy.DanglingParentWarning, error) {
	nodes := make([]hierarchy.Node, len(subs))
	for i := range subs {
		nodes[i] = toNode(&subs[i])
	}

	var warnings []hierarchy.DanglingParentWarning
	forest, err := hierarchy.BuildForest(nodes, hierarchy.WithDanglingParent(func(w hierarchy.DanglingParentWarning) {
		logger.Warn("sub-task parent not loaded; showing at root",
			slog.String("sub_task_id", string(w.NodeID)),
			slog.String("parent_sub_task_id", string(w.ParentID)))
		warnings = append(warnings, w)
	}))
	if err != nil {
		return nil, nil, err
	}
	return forest, warnings, nil
}

// TreeOptions controls a tree view. ExpandAll overrides Expanded.
type TreeOptions struct {
	Expanded  hierarchy.ExpandedSet
	ExpandAll bool
	Query     Query
}

// TreeRow is one visible line of a tree view.
type TreeRow struct {
	Depth       int            `json:"depth"`
	HasChildren bool           `json:"has_children"`
	Expanded    bool           `json:"expanded"`
	SubTask     models.SubTask `json:"sub_task"`
}

// TreeView is a flattened, filtered tree ready for rendering.
type TreeView struct {
	Rows     []TreeRow                         `json:"rows"`
	Total    int                               `json:"total"`
	Expanded []hierarchy.ID                    `json:"expanded"`
	Warnings []hierarchy.DanglingParentWarning `json:"warnings,omitempty"`
}

// Tree returns the visible rows of the scope's hierarchy. Query filtering
// keeps the ancestors of every match so no row loses its parent.
func (s *SubTaskService) Tree(ctx context.Context, scope models.Scope, opts TreeOptions) (*TreeView, error) {
	forest, warnings, err := s.Forest(ctx, scope)
	if err != nil {
		return nil, err
	}
	view := renderTree(forest, opts)
	view.Warnings = warnings
	return view, nil
}

// BuildTreeView builds a tree view from sub-tasks that are already loaded.
func BuildTreeView(subs []models.SubTask, opts TreeOptions, logger *slog.Logger) (*TreeView, error) {
	if logger == nil {
		logger = slog.Default()
	}
	forest, warnings, err := buildForest(subs, logger)
	if err != nil {
		return nil, err
	}
	view := renderTree(forest, opts)
	view.Warnings = warnings
	return view, nil
}

func renderTree(forest hierarchy.Forest, opts TreeOptions) *TreeView {
	if !opts.Query.IsZero() {
		forest = hierarchy.Filter(forest, opts.Query.predicate())
	}

	expanded := opts.Expanded
	if opts.ExpandAll || expanded == nil {
		expanded = hierarchy.NewExpandedSet()
	}
	if opts.ExpandAll {
		expanded.ExpandAll(forest)
	}

	view := &TreeView{
		Rows:     []TreeRow{},
		Total:    hierarchy.Count(forest),
		Expanded: expanded.IDs(),
	}
	for n, depth := range hierarchy.Flatten(forest, expanded) {
		view.Rows = append(view.Rows, TreeRow{
			Depth:       depth,
			HasChildren: n.HasChildren(),
			Expanded:    n.HasChildren() && expanded.Has(n.ID()),
			SubTask:     *subTaskOf(n.Node),
		})
	}
	return view
}

// Stats counts the sub-tasks in scope matching q.
func (s *SubTaskService) Stats(ctx context.Context, scope models.Scope, q Query) (Stats, error) {
	subs, err := s.store.ListSubTasks(ctx, scope)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(subs, q, s.now()), nil
}
