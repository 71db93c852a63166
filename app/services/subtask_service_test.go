package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"taskboard/app/hierarchy"
	"taskboard/app/models"
	"taskboard/app/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *store.SQLiteStore
	tasks    *TaskService
	subTasks *SubTaskService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	log := quietLogger()
	f := &fixture{
		store:    st,
		tasks:    NewTaskService(st, log),
		subTasks: NewSubTaskService(st, log, WithClock(func() time.Time { return fixedNow })),
	}
	ctx := context.Background()
	_, err = f.tasks.CreateTask(ctx, &models.Task{ID: "t1", BoardID: "b1", Title: "Launch"})
	require.NoError(t, err)
	_, err = f.tasks.CreateTask(ctx, &models.Task{ID: "t2", BoardID: "b1", Title: "Marketing"})
	require.NoError(t, err)
	return f
}

func (f *fixture) add(t *testing.T, taskID string, parent *models.SubTask, title string) *models.SubTask {
	t.Helper()
	in := models.NewSubTask{Title: title}
	if parent != nil {
		in.ParentSubTaskID = &parent.ID
	}
	st, err := f.subTasks.Create(context.Background(), taskID, in)
	require.NoError(t, err)
	return st
}

func rowTitles(view *TreeView) []string {
	out := make([]string, len(view.Rows))
	for i, r := range view.Rows {
		out[i] = r.SubTask.Title
	}
	return out
}

func TestSubTaskService_CreateComputesLevelAndOrder(t *testing.T) {
	f := newFixture(t)

	a := f.add(t, "t1", nil, "Design")
	b := f.add(t, "t1", nil, "Build")
	a1 := f.add(t, "t1", a, "Wireframes")
	a2 := f.add(t, "t1", a, "Mockups")
	a1x := f.add(t, "t1", a1, "Review")

	assert.Equal(t, 1, a.Level)
	assert.Equal(t, 1, a.OrderIndex)
	assert.Equal(t, 2, b.OrderIndex)
	assert.Equal(t, 2, a1.Level)
	assert.Equal(t, 1, a1.OrderIndex)
	assert.Equal(t, 2, a2.OrderIndex)
	assert.Equal(t, 3, a1x.Level)

	assert.Equal(t, models.StatusNotStarted, a.Status)
	assert.Equal(t, models.PriorityMedium, a.Priority)
	assert.Equal(t, fixedNow, a.CreatedAt)
}

func TestSubTaskService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.subTasks.Create(ctx, "t1", models.NewSubTask{Title: "   "})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, models.ErrTitleRequired)

	_, err = f.subTasks.Create(ctx, "t1", models.NewSubTask{Title: "x", Status: "Blocked"})
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	_, err = f.subTasks.Create(ctx, "t1", models.NewSubTask{Title: "x", Priority: "Urgent"})
	assert.ErrorIs(t, err, models.ErrInvalidPriority)

	missing := "nope"
	_, err = f.subTasks.Create(ctx, "t1", models.NewSubTask{Title: "x", ParentSubTaskID: &missing})
	assert.ErrorIs(t, err, store.ErrNotFound)

	other := f.add(t, "t2", nil, "elsewhere")
	_, err = f.subTasks.Create(ctx, "t1", models.NewSubTask{Title: "x", ParentSubTaskID: &other.ID})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.subTasks.Create(ctx, "no-task", models.NewSubTask{Title: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubTaskService_Tree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, "t1", nil, "Design")
	f.add(t, "t1", nil, "Build")
	a1 := f.add(t, "t1", a, "Wireframes")
	f.add(t, "t1", a, "Mockups")
	f.add(t, "t1", a1, "Review")

	collapsed, err := f.subTasks.Tree(ctx, models.Scope{TaskID: "t1"}, TreeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Design", "Build"}, rowTitles(collapsed))
	assert.Equal(t, 5, collapsed.Total)
	assert.True(t, collapsed.Rows[0].HasChildren)
	assert.False(t, collapsed.Rows[0].Expanded)

	view, err := f.subTasks.Tree(ctx, models.Scope{TaskID: "t1"}, TreeOptions{
		Expanded: hierarchy.NewExpandedSet(hierarchy.ID(a.ID)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Design", "Wireframes", "Mockups", "Build"}, rowTitles(view))
	assert.Equal(t, []int{0, 1, 1, 0}, []int{view.Rows[0].Depth, view.Rows[1].Depth, view.Rows[2].Depth, view.Rows[3].Depth})
	assert.True(t, view.Rows[0].Expanded)

	all, err := f.subTasks.Tree(ctx, models.Scope{TaskID: "t1"}, TreeOptions{ExpandAll: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Design", "Wireframes", "Review", "Mockups", "Build"}, rowTitles(all))
	assert.ElementsMatch(t, []hierarchy.ID{hierarchy.ID(a.ID), hierarchy.ID(a1.ID)}, all.Expanded)
}

func TestSubTaskService_TreeFilterKeepsAncestors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, "t1", nil, "Design")
	f.add(t, "t1", nil, "Build")
	a1 := f.add(t, "t1", a, "Wireframes")
	review := f.add(t, "t1", a1, "Review")

	stuck := models.StatusStuck
	_, err := f.subTasks.Update(ctx, review.ID, models.SubTaskUpdate{Status: &stuck})
	require.NoError(t, err)

	view, err := f.subTasks.Tree(ctx, models.Scope{TaskID: "t1"}, TreeOptions{
		ExpandAll: true,
		Query:     Query{Status: string(models.StatusStuck)},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Design", "Wireframes", "Review"}, rowTitles(view))
	assert.Equal(t, 3, view.Total)

	search, err := f.subTasks.Tree(ctx, models.Scope{TaskID: "t1"}, TreeOptions{
		ExpandAll: true,
		Query:     Query{Search: "WIRE", Status: "all"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Design", "Wireframes"}, rowTitles(search))
}

func TestSubTaskService_BoardScopeDanglingParent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, "t1", nil, "Design")
	f.add(t, "t1", a, "Wireframes")

	// Board b2 only loads t3's sub-tasks; one of them points at a parent
	// on another board.
	_, err := f.tasks.CreateTask(ctx, &models.Task{ID: "t3", BoardID: "b2", Title: "Other board"})
	require.NoError(t, err)
	now := fixedNow
	require.NoError(t, f.store.CreateSubTask(ctx, &models.SubTask{
		ID: "stray", TaskID: "t3", ParentSubTaskID: &a.ID, Title: "Stray",
		Status: models.StatusDone, Priority: models.PriorityLow, Level: 2, OrderIndex: 1,
		CreatedAt: now, UpdatedAt: now,
	}))

	view, err := f.subTasks.Tree(ctx, models.Scope{BoardID: "b2"}, TreeOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Stray"}, rowTitles(view))
	require.Len(t, view.Warnings, 1)
	assert.Equal(t, hierarchy.ID("stray"), view.Warnings[0].NodeID)
	assert.Equal(t, hierarchy.ID(a.ID), view.Warnings[0].ParentID)
}

func TestSubTaskService_TreeReportsCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, "t1", nil, "A")
	b := f.add(t, "t1", a, "B")
	// Corrupt the data behind the service's back.
	require.NoError(t, f.store.PlaceSubTasks(ctx, []store.Placement{
		{ID: a.ID, ParentSubTaskID: &b.ID, Level: 1, OrderIndex: 1},
	}))

	_, err := f.subTasks.Tree(ctx, models.Scope{TaskID: "t1"}, TreeOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, hierarchy.ErrCyclicHierarchy)
}

func TestSubTaskService_Move(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, "t1", nil, "A")
	b := f.add(t, "t1", nil, "B")
	a1 := f.add(t, "t1", a, "A1")
	a1x := f.add(t, "t1", a1, "A1x")
	f.add(t, "t1", b, "B1")

	moved, err := f.subTasks.Move(ctx, a1.ID, &b.ID)
	require.NoError(t, err)
	require.NotNil(t, moved.ParentSubTaskID)
	assert.Equal(t, b.ID, *moved.ParentSubTaskID)
	assert.Equal(t, 2, moved.Level)
	assert.Equal(t, 2, moved.OrderIndex)

	child, err := f.subTasks.Get(ctx, a1x.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, child.Level)

	// To the root; the grandchild follows.
	moved, err = f.subTasks.Move(ctx, a1.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, moved.ParentSubTaskID)
	assert.Equal(t, 1, moved.Level)
	assert.Equal(t, 3, moved.OrderIndex)
	child, err = f.subTasks.Get(ctx, a1x.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, child.Level)
}

func TestSubTaskService_MoveRejectsCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, "t1", nil, "A")
	a1 := f.add(t, "t1", a, "A1")
	a1x := f.add(t, "t1", a1, "A1x")

	_, err := f.subTasks.Move(ctx, a.ID, &a1x.ID)
	assert.ErrorIs(t, err, hierarchy.ErrCyclicHierarchy)

	_, err = f.subTasks.Move(ctx, a.ID, &a.ID)
	assert.ErrorIs(t, err, hierarchy.ErrCyclicHierarchy)

	unchanged, err := f.subTasks.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, unchanged.ParentSubTaskID)

	other := f.add(t, "t2", nil, "Other")
	_, err = f.subTasks.Move(ctx, a1.ID, &other.ID)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSubTaskService_UpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.add(t, "t1", nil, "A")
	f.add(t, "t1", a, "A1")
	f.add(t, "t1", nil, "B")

	title := "  Renamed  "
	high := models.PriorityHigh
	updated, err := f.subTasks.Update(ctx, a.ID, models.SubTaskUpdate{Title: &title, Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, models.PriorityHigh, updated.Priority)

	bad := models.Status("Paused")
	_, err = f.subTasks.Update(ctx, a.ID, models.SubTaskUpdate{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = f.subTasks.Update(ctx, "ghost", models.SubTaskUpdate{Title: &title})
	assert.ErrorIs(t, err, store.ErrNotFound)

	n, err := f.subTasks.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := f.subTasks.List(ctx, models.Scope{TaskID: "t1"})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "B", left[0].Title)
}

func TestSubTaskService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := fixedNow.Add(-24 * time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	mk := func(title, status, priority string, due *time.Time, parent *string) *models.SubTask {
		st, err := f.subTasks.Create(ctx, "t1", models.NewSubTask{
			Title: title, Status: status, Priority: priority, DueDate: due, ParentSubTaskID: parent,
		})
		require.NoError(t, err)
		return st
	}
	a := mk("late", "Working on it", "High", &past, nil)
	mk("late but done", "Done", "Low", &past, &a.ID)
	mk("on time", "Stuck", "High", &future, nil)
	mk("no date", "", "", nil, nil)

	stats, err := f.subTasks.Stats(ctx, models.Scope{TaskID: "t1"}, Query{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, map[string]int{"Working on it": 1, "Done": 1, "Stuck": 1, "Not Started": 1}, stats.ByStatus)
	assert.Equal(t, map[string]int{"High": 2, "Low": 1, "Medium": 1}, stats.ByPriority)
	assert.Equal(t, map[int]int{1: 3, 2: 1}, stats.ByLevel)

	high, err := f.subTasks.Stats(ctx, models.Scope{TaskID: "t1"}, Query{Priority: "High"})
	require.NoError(t, err)
	assert.Equal(t, 2, high.Total)
}
