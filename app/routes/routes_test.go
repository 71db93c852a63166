package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/app/controllers"
	"taskboard/app/models"
	"taskboard/app/services"
	"taskboard/app/store"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*mux.Router, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := mux.NewRouter()
	RegisterRoutes(router,
		controllers.NewTaskController(services.NewTaskService(st, log), log),
		controllers.NewSubTaskController(services.NewSubTaskService(st, log), log),
	)
	return router, st
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestRoutes_TaskCRUD(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/tasks", map[string]any{"id": "t1", "board_id": "b1", "title": "Launch"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rec = do(t, router, http.MethodGet, "/tasks?board_id=b1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Task](t, rec), 1)

	rec = do(t, router, http.MethodPut, "/tasks/t1", map[string]any{"title": "Launch!", "completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.Task](t, rec).Completed)

	rec = do(t, router, http.MethodGet, "/tasks/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/tasks", map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/tasks", bytes.NewBufferString("{"))
	bad := httptest.NewRecorder()
	router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	rec = do(t, router, http.MethodDelete, "/tasks/t1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRoutes_SubTaskTreeFlow(t *testing.T) {
	router, _ := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/tasks",
		map[string]any{"id": "t1", "board_id": "b1", "title": "Launch"}).Code)

	create := func(title string, parent *string) models.SubTask {
		rec := do(t, router, http.MethodPost, "/tasks/t1/subtasks",
			map[string]any{"title": title, "parent_sub_task_id": parent, "priority": "High"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		return decode[models.SubTask](t, rec)
	}
	design := create("Design", nil)
	create("Build", nil)
	wire := create("Wireframes", &design.ID)
	assert.Equal(t, 2, wire.Level)

	rec := do(t, router, http.MethodGet, "/tasks/t1/subtasks/tree", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[services.TreeView](t, rec)
	assert.Len(t, view.Rows, 2)
	assert.Equal(t, 3, view.Total)

	rec = do(t, router, http.MethodGet, "/tasks/t1/subtasks/tree?expanded="+design.ID, nil)
	view = decode[services.TreeView](t, rec)
	require.Len(t, view.Rows, 3)
	assert.Equal(t, "Wireframes", view.Rows[1].SubTask.Title)
	assert.Equal(t, 1, view.Rows[1].Depth)

	rec = do(t, router, http.MethodGet, "/boards/b1/subtasks/tree?expand=all&q=wire", nil)
	view = decode[services.TreeView](t, rec)
	require.Len(t, view.Rows, 2)
	assert.Equal(t, "Design", view.Rows[0].SubTask.Title)

	rec = do(t, router, http.MethodGet, "/tasks/t1/subtasks/stats?priority=High", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[services.Stats](t, rec).Total)

	rec = do(t, router, http.MethodPut, "/subtasks/"+wire.ID, map[string]any{"status": "Done"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StatusDone, decode[models.SubTask](t, rec).Status)

	rec = do(t, router, http.MethodPut, "/subtasks/"+wire.ID, map[string]any{"status": "Paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/subtasks/"+design.ID+"/move", map[string]any{"parent_sub_task_id": wire.ID})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "could not build task tree")

	rec = do(t, router, http.MethodPost, "/subtasks/"+wire.ID+"/move", map[string]any{"parent_sub_task_id": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[models.SubTask](t, rec).Level)

	rec = do(t, router, http.MethodDelete, "/subtasks/"+design.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"removed": 1}, decode[map[string]int](t, rec))

	rec = do(t, router, http.MethodGet, "/subtasks/"+design.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/tasks/t1/subtasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.SubTask](t, rec), 2)
}

func TestRoutes_TreeCycleIsVisibleError(t *testing.T) {
	router, st := newTestRouter(t)
	ctx := context.Background()
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/tasks",
		map[string]any{"id": "t1", "title": "Launch"}).Code)

	a := do(t, router, http.MethodPost, "/tasks/t1/subtasks", map[string]any{"title": "A"})
	aID := decode[models.SubTask](t, a).ID
	b := do(t, router, http.MethodPost, "/tasks/t1/subtasks", map[string]any{"title": "B", "parent_sub_task_id": aID})
	bID := decode[models.SubTask](t, b).ID
	require.NoError(t, st.PlaceSubTasks(ctx, []store.Placement{{ID: aID, ParentSubTaskID: &bID, Level: 1, OrderIndex: 1}}))

	rec := do(t, router, http.MethodGet, "/tasks/t1/subtasks/tree", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "cyclic hierarchy")
}

func TestRoutes_Healthz(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
