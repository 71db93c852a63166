package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/app/models"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id        TEXT PRIMARY KEY,
	board_id  TEXT NOT NULL DEFAULT '',
	title     TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	parent_id TEXT
);
CREATE INDEX IF NOT EXISTS tasks_board ON tasks(board_id);

CREATE TABLE IF NOT EXISTS sub_sub_task (
	id                 TEXT PRIMARY KEY,
	task_id            TEXT NOT NULL REFERENCES tasks(id),
	parent_sub_task_id TEXT,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL,
	priority           TEXT NOT NULL,
	assigned_to        TEXT NOT NULL DEFAULT '',
	due_date           DATETIME,
	tags               TEXT NOT NULL DEFAULT '[]',
	level              INTEGER NOT NULL DEFAULT 1,
	order_index        INTEGER NOT NULL DEFAULT 1,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS sub_sub_task_task ON sub_sub_task(task_id);
CREATE INDEX IF NOT EXISTS sub_sub_task_parent ON sub_sub_task(parent_sub_task_id);
`

// SQLiteStore keeps tasks and sub-tasks in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists. ":memory:" gives a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // prevent SQLITE_BUSY; also keeps :memory: on one connection
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close(context.Context) error { return s.db.Close() }

// ListTasks returns the tasks of boardID, or all tasks.
func (s *SQLiteStore) ListTasks(ctx context.Context, boardID string) ([]models.Task, error) {
	q := "SELECT id, board_id, title, completed, parent_id FROM tasks"
	var args []any
	if boardID != "" {
		q += " WHERE board_id = ?"
		args = append(args, boardID)
	}
	q += " ORDER BY rowid"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, board_id, title, completed, parent_id FROM tasks WHERE id = ?", id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (id, board_id, title, completed, parent_id) VALUES (?,?,?,?,?)",
		task.ID, task.BoardID, task.Title, task.Completed, nullString(task.ParentID))
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET title = ?, completed = ? WHERE id = ?",
		update.Title, update.Completed, id)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return expectRows(res, "task", id)
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		doomed := "SELECT id FROM tasks WHERE id = ?1 OR parent_id = ?1"
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM sub_sub_task WHERE task_id IN ("+doomed+")", id); err != nil {
			return fmt.Errorf("delete sub-tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE parent_id = ?", id); err != nil {
			return fmt.Errorf("delete child tasks: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return expectRows(res, "task", id)
	})
}

const subTaskColumns = `id, task_id, parent_sub_task_id, title, description, status, priority,
	assigned_to, due_date, tags, level, order_index, created_at, updated_at`

// ListSubTasks returns the sub-tasks in scope.
func (s *SQLiteStore) ListSubTasks(ctx context.Context, scope models.Scope) ([]models.SubTask, error) {
	q := strings.Builder{}
	q.WriteString("SELECT " + subTaskColumns + " FROM sub_sub_task WHERE 1=1")
	var args []any
	switch {
	case scope.TaskID != "":
		q.WriteString(" AND task_id = ?")
		args = append(args, scope.TaskID)
	case scope.BoardID != "":
		q.WriteString(" AND task_id IN (SELECT id FROM tasks WHERE board_id = ?)")
		args = append(args, scope.BoardID)
	}
	q.WriteString(" ORDER BY level ASC, order_index ASC, rowid ASC")

	rows, err := s.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list sub-tasks: %w", err)
	}
	defer rows.Close()

	var out []models.SubTask
	for rows.Next() {
		st, err := scanSubTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetSubTask(ctx context.Context, id string) (*models.SubTask, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+subTaskColumns+" FROM sub_sub_task WHERE id = ?", id)
	st, err := scanSubTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sub-task %s: %w", id, ErrNotFound)
	}
	return st, err
}

func (s *SQLiteStore) CreateSubTask(ctx context.Context, st *models.SubTask) error {
	tags, _ := json.Marshal(nonNilTags(st.Tags))
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM tasks WHERE id = ?", st.TaskID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("task %s: %w", st.TaskID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lookup task: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO sub_sub_task (`+subTaskColumns+`)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			st.ID, st.TaskID, nullString(st.ParentSubTaskID), st.Title, st.Description,
			string(st.Status), string(st.Priority), st.AssignedTo, nullTime(st.DueDate),
			string(tags), st.Level, st.OrderIndex, st.CreatedAt, st.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert sub-task: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) UpdateSubTask(ctx context.Context, st *models.SubTask) error {
	tags, _ := json.Marshal(nonNilTags(st.Tags))
	res, err := s.db.ExecContext(ctx, `
		UPDATE sub_sub_task SET
			title = ?, description = ?, status = ?, priority = ?, assigned_to = ?,
			due_date = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		st.Title, st.Description, string(st.Status), string(st.Priority), st.AssignedTo,
		nullTime(st.DueDate), string(tags), st.UpdatedAt, st.ID,
	)
	if err != nil {
		return fmt.Errorf("update sub-task: %w", err)
	}
	return expectRows(res, "sub-task", st.ID)
}

func (s *SQLiteStore) PlaceSubTasks(ctx context.Context, placements []Placement) error {
	now := time.Now().UTC()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range placements {
			res, err := tx.ExecContext(ctx, `
				UPDATE sub_sub_task SET parent_sub_task_id = ?, level = ?, order_index = ?, updated_at = ?
				WHERE id = ?`,
				nullString(p.ParentSubTaskID), p.Level, p.OrderIndex, now, p.ID)
			if err != nil {
				return fmt.Errorf("place sub-task %s: %w", p.ID, err)
			}
			if err := expectRows(res, "sub-task", p.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSubTask removes id and everything below it. UNION rather than
// UNION ALL keeps the walk finite on corrupted, cyclic data.
func (s *SQLiteStore) DeleteSubTask(ctx context.Context, id string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		WITH RECURSIVE doomed(id) AS (
			SELECT id FROM sub_sub_task WHERE id = ?
			UNION
			SELECT c.id FROM sub_sub_task c JOIN doomed d ON c.parent_sub_task_id = d.id
		)
		DELETE FROM sub_sub_task WHERE id IN (SELECT id FROM doomed)`, id)
	if err != nil {
		return 0, fmt.Errorf("delete sub-task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("sub-task %s: %w", id, ErrNotFound)
	}
	return int(n), nil
}

func (s *SQLiteStore) MaxOrderIndex(ctx context.Context, taskID string, parentID *string) (int, error) {
	var row *sql.Row
	if parentID == nil {
		row = s.db.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(order_index), 0) FROM sub_sub_task WHERE task_id = ? AND parent_sub_task_id IS NULL",
			taskID)
	} else {
		row = s.db.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(order_index), 0) FROM sub_sub_task WHERE parent_sub_task_id = ?",
			*parentID)
	}
	var max int
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("max order index: %w", err)
	}
	return max, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(sc scanner) (*models.Task, error) {
	var t models.Task
	var parent sql.NullString
	if err := sc.Scan(&t.ID, &t.BoardID, &t.Title, &t.Completed, &parent); err != nil {
		return nil, err
	}
	if parent.Valid {
		t.ParentID = &parent.String
	}
	return &t, nil
}

func scanSubTask(sc scanner) (*models.SubTask, error) {
	var st models.SubTask
	var parent sql.NullString
	var status, priority, tags string
	var due sql.NullTime
	err := sc.Scan(
		&st.ID, &st.TaskID, &parent, &st.Title, &st.Description, &status, &priority,
		&st.AssignedTo, &due, &tags, &st.Level, &st.OrderIndex, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.Status = models.Status(status)
	st.Priority = models.Priority(priority)
	if parent.Valid {
		st.ParentSubTaskID = &parent.String
	}
	if due.Valid {
		st.DueDate = &due.Time
	}
	_ = json.Unmarshal([]byte(tags), &st.Tags)
	if len(st.Tags) == 0 {
		st.Tags = nil
	}
	return &st, nil
}

func expectRows(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
