package store

import (
	"context"
	"fmt"
	"time"

	"taskboard/app/models"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jStore keeps tasks as (:Task) nodes linked by HAS_PARENT, and
// sub-tasks as (:SubTask) nodes linked to their task by BELONGS_TO and to
// their parent sub-task by HAS_PARENT.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// Neo4jOption configures a Neo4jStore.
type Neo4jOption func(*Neo4jStore)

// WithDatabase runs every session against the named database.
func WithDatabase(name string) Neo4jOption {
	return func(s *Neo4jStore) { s.database = name }
}

// NewNeo4jStore wraps an open driver. Close closes the driver.
func NewNeo4jStore(driver neo4j.DriverWithContext, opts ...Neo4jOption) *Neo4jStore {
	s := &Neo4jStore{driver: driver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Neo4jStore) Close(ctx context.Context) error { return s.driver.Close(ctx) }

// EnsureConstraints creates the uniqueness constraints on node ids.
func (s *Neo4jStore) EnsureConstraints(ctx context.Context) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, q := range []string{
			"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
			"CREATE CONSTRAINT sub_task_id IF NOT EXISTS FOR (s:SubTask) REQUIRE s.id IS UNIQUE",
		} {
			if _, err := tx.Run(ctx, q, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *Neo4jStore) read(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.database})
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

func (s *Neo4jStore) write(ctx context.Context, work neo4j.ManagedTransactionWork) (any, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)
	return session.ExecuteWrite(ctx, work)
}

const taskReturn = "RETURN t.id AS id, coalesce(t.board_id, '') AS board_id, t.title AS title, " +
	"t.completed AS completed, p.id AS parent_id"

// ListTasks retrieves the tasks of boardID, or all of them.
func (s *Neo4jStore) ListTasks(ctx context.Context, boardID string) ([]models.Task, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task) WHERE $board = '' OR t.board_id = $board "+
				"OPTIONAL MATCH (t)-[:HAS_PARENT]->(p:Task) "+
				taskReturn+" ORDER BY t.title",
			map[string]any{"board": boardID},
		)
		if err != nil {
			return nil, err
		}

		var tasks []models.Task
		for res.Next(ctx) {
			tasks = append(tasks, taskFromRecord(res.Record()))
		}
		return tasks, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks, _ := result.([]models.Task)
	return tasks, nil
}

// GetTask retrieves a single task by its ID.
func (s *Neo4jStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) "+
				"OPTIONAL MATCH (t)-[:HAS_PARENT]->(p:Task) "+
				taskReturn,
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			task := taskFromRecord(res.Record())
			return &task, nil
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	task, _ := result.(*models.Task)
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return task, nil
}

// CreateTask adds a task and, when ParentID is set, its HAS_PARENT edge.
func (s *Neo4jStore) CreateTask(ctx context.Context, task *models.Task) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"CREATE (t:Task {id: $id, board_id: $board, title: $title, completed: $completed})",
			map[string]any{
				"id":        task.ID,
				"board":     task.BoardID,
				"title":     task.Title,
				"completed": task.Completed,
			},
		)
		if err != nil {
			return nil, err
		}

		if task.ParentID != nil && *task.ParentID != "" {
			_, err = tx.Run(ctx,
				"MATCH (child:Task {id: $childID}), (parent:Task {id: $parentID}) "+
					"CREATE (child)-[:HAS_PARENT]->(parent)",
				map[string]any{
					"childID":  task.ID,
					"parentID": *task.ParentID,
				},
			)
		}
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateTask updates a task's title and completion status.
func (s *Neo4jStore) UpdateTask(ctx context.Context, id string, update models.TaskUpdate) error {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) "+
				"SET t.title = $title, t.completed = $completed "+
				"RETURN t.id",
			map[string]any{
				"id":        id,
				"title":     update.Title,
				"completed": update.Completed,
			},
		)
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), res.Err()
	})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if found, _ := result.(bool); !found {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTask deletes a task, its child tasks and every sub-task under them.
func (s *Neo4jStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) "+
				"OPTIONAL MATCH (child:Task)-[:HAS_PARENT]->(t) "+
				"WITH [t] + collect(child) AS tasks "+
				"UNWIND tasks AS task "+
				"OPTIONAL MATCH (st:SubTask)-[:BELONGS_TO]->(task) "+
				"DETACH DELETE st",
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}

		_, err = tx.Run(ctx,
			"MATCH (child:Task)-[:HAS_PARENT]->(:Task {id: $id}) "+
				"DETACH DELETE child",
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}

		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id}) "+
				"DETACH DELETE t "+
				"RETURN count(*) AS removed",
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}
		return singleInt(ctx, res)
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := result.(int); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

const subTaskReturn = "RETURN s AS s, t.id AS task_id, p.id AS parent_id"

// ListSubTasks retrieves the sub-tasks in scope.
func (s *Neo4jStore) ListSubTasks(ctx context.Context, scope models.Scope) ([]models.SubTask, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (s:SubTask)-[:BELONGS_TO]->(t:Task) "+
				"WHERE ($task = '' OR t.id = $task) AND ($task <> '' OR $board = '' OR t.board_id = $board) "+
				"OPTIONAL MATCH (s)-[:HAS_PARENT]->(p:SubTask) "+
				subTaskReturn+" ORDER BY s.level ASC, s.order_index ASC, s.created_at ASC",
			map[string]any{"task": scope.TaskID, "board": scope.BoardID},
		)
		if err != nil {
			return nil, err
		}

		var out []models.SubTask
		for res.Next(ctx) {
			st, err := subTaskFromRecord(res.Record())
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list sub-tasks: %w", err)
	}
	out, _ := result.([]models.SubTask)
	return out, nil
}

// GetSubTask retrieves one sub-task.
func (s *Neo4jStore) GetSubTask(ctx context.Context, id string) (*models.SubTask, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (s:SubTask {id: $id})-[:BELONGS_TO]->(t:Task) "+
				"OPTIONAL MATCH (s)-[:HAS_PARENT]->(p:SubTask) "+
				subTaskReturn,
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			st, err := subTaskFromRecord(res.Record())
			if err != nil {
				return nil, err
			}
			return &st, nil
		}
		return nil, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get sub-task: %w", err)
	}
	st, _ := result.(*models.SubTask)
	if st == nil {
		return nil, fmt.Errorf("sub-task %s: %w", id, ErrNotFound)
	}
	return st, nil
}

// CreateSubTask adds a sub-task under its task and, if set, its parent.
func (s *Neo4jStore) CreateSubTask(ctx context.Context, st *models.SubTask) error {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		params := subTaskProps(st)
		params["task"] = st.TaskID
		params["parent"] = nil
		if st.ParentSubTaskID != nil {
			params["parent"] = *st.ParentSubTaskID
		}
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $task}) "+
				"CREATE (s:SubTask {id: $id, created_at: $created_at})-[:BELONGS_TO]->(t) "+
				"SET s.title = $title, s.description = $description, s.status = $status, "+
				"s.priority = $priority, s.assigned_to = $assigned_to, s.due_date = $due_date, "+
				"s.tags = $tags, s.level = $level, s.order_index = $order_index, s.updated_at = $updated_at "+
				"WITH s "+
				"OPTIONAL MATCH (p:SubTask {id: $parent}) "+
				"FOREACH (_ IN CASE WHEN p IS NULL THEN [] ELSE [1] END | CREATE (s)-[:HAS_PARENT]->(p)) "+
				"RETURN s.id",
			params,
		)
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), res.Err()
	})
	if err != nil {
		return fmt.Errorf("create sub-task: %w", err)
	}
	if created, _ := result.(bool); !created {
		return fmt.Errorf("task %s: %w", st.TaskID, ErrNotFound)
	}
	return nil
}

// UpdateSubTask writes the editable fields.
func (s *Neo4jStore) UpdateSubTask(ctx context.Context, st *models.SubTask) error {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (s:SubTask {id: $id}) "+
				"SET s.title = $title, s.description = $description, s.status = $status, "+
				"s.priority = $priority, s.assigned_to = $assigned_to, s.due_date = $due_date, "+
				"s.tags = $tags, s.updated_at = $updated_at "+
				"RETURN s.id",
			subTaskProps(st),
		)
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), res.Err()
	})
	if err != nil {
		return fmt.Errorf("update sub-task: %w", err)
	}
	if found, _ := result.(bool); !found {
		return fmt.Errorf("sub-task %s: %w", st.ID, ErrNotFound)
	}
	return nil
}

// PlaceSubTasks rewires HAS_PARENT edges and positions in one transaction.
func (s *Neo4jStore) PlaceSubTasks(ctx context.Context, placements []Placement) error {
	now := time.Now().UTC()
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, p := range placements {
			var parent any
			if p.ParentSubTaskID != nil {
				parent = *p.ParentSubTaskID
			}
			res, err := tx.Run(ctx,
				"MATCH (s:SubTask {id: $id}) "+
					"OPTIONAL MATCH (s)-[r:HAS_PARENT]->() "+
					"DELETE r "+
					"WITH DISTINCT s "+
					"SET s.level = $level, s.order_index = $order_index, s.updated_at = $now "+
					"WITH s "+
					"OPTIONAL MATCH (p:SubTask {id: $parent}) "+
					"FOREACH (_ IN CASE WHEN p IS NULL THEN [] ELSE [1] END | CREATE (s)-[:HAS_PARENT]->(p)) "+
					"RETURN s.id",
				map[string]any{
					"id":          p.ID,
					"parent":      parent,
					"level":       p.Level,
					"order_index": p.OrderIndex,
					"now":         now,
				},
			)
			if err != nil {
				return nil, err
			}
			if !res.Next(ctx) {
				if err := res.Err(); err != nil {
					return nil, err
				}
				return nil, fmt.Errorf("sub-task %s: %w", p.ID, ErrNotFound)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("place sub-tasks: %w", err)
	}
	return nil
}

// DeleteSubTask deletes a sub-task and all of its descendants.
func (s *Neo4jStore) DeleteSubTask(ctx context.Context, id string) (int, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (s:SubTask {id: $id}) "+
				"OPTIONAL MATCH (d:SubTask)-[:HAS_PARENT*1..]->(s) "+
				"WITH s, collect(DISTINCT d) AS descendants "+
				"UNWIND [s] + descendants AS doomed "+
				"WITH DISTINCT doomed "+
				"DETACH DELETE doomed "+
				"RETURN count(*) AS removed",
			map[string]any{"id": id},
		)
		if err != nil {
			return nil, err
		}
		return singleInt(ctx, res)
	})
	if err != nil {
		return 0, fmt.Errorf("delete sub-task: %w", err)
	}
	n, _ := result.(int)
	if n == 0 {
		return 0, fmt.Errorf("sub-task %s: %w", id, ErrNotFound)
	}
	return n, nil
}

// MaxOrderIndex returns the highest sibling order index, or 0.
func (s *Neo4jStore) MaxOrderIndex(ctx context.Context, taskID string, parentID *string) (int, error) {
	query := "MATCH (s:SubTask)-[:BELONGS_TO]->(:Task {id: $task}) " +
		"WHERE NOT (s)-[:HAS_PARENT]->(:SubTask) " +
		"RETURN coalesce(max(s.order_index), 0) AS m"
	params := map[string]any{"task": taskID}
	if parentID != nil {
		query = "MATCH (s:SubTask)-[:HAS_PARENT]->(:SubTask {id: $parent}) " +
			"RETURN coalesce(max(s.order_index), 0) AS m"
		params = map[string]any{"parent": *parentID}
	}

	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return singleInt(ctx, res)
	})
	if err != nil {
		return 0, fmt.Errorf("max order index: %w", err)
	}
	n, _ := result.(int)
	return n, nil
}

func singleInt(ctx context.Context, res neo4j.ResultWithContext) (int, error) {
	record, err := res.Single(ctx)
	if err != nil {
		return 0, err
	}
	n, _ := record.Values[0].(int64)
	return int(n), nil
}

func subTaskProps(st *models.SubTask) map[string]any {
	var due any
	if st.DueDate != nil {
		due = *st.DueDate
	}
	tags := make([]any, len(st.Tags))
	for i, t := range st.Tags {
		tags[i] = t
	}
	return map[string]any{
		"id":          st.ID,
		"title":       st.Title,
		"description": st.Description,
		"status":      string(st.Status),
		"priority":    string(st.Priority),
		"assigned_to": st.AssignedTo,
		"due_date":    due,
		"tags":        tags,
		"level":       st.Level,
		"order_index": st.OrderIndex,
		"created_at":  st.CreatedAt,
		"updated_at":  st.UpdatedAt,
	}
}

func taskFromRecord(record *neo4j.Record) models.Task {
	var parentID *string
	if record.Values[4] != nil {
		id := record.Values[4].(string)
		parentID = &id
	}
	completed, _ := record.Values[3].(bool)
	return models.Task{
		ID:        record.Values[0].(string),
		BoardID:   record.Values[1].(string),
		Title:     record.Values[2].(string),
		Completed: completed,
		ParentID:  parentID,
	}
}

func subTaskFromRecord(record *neo4j.Record) (models.SubTask, error) {
	raw, ok := record.Get("s")
	if !ok {
		return models.SubTask{}, fmt.Errorf("record has no sub-task column")
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return models.SubTask{}, fmt.Errorf("unexpected sub-task value %T", raw)
	}
	props := node.Props

	st := models.SubTask{
		ID:          propString(props, "id"),
		Title:       propString(props, "title"),
		Description: propString(props, "description"),
		Status:      models.Status(propString(props, "status")),
		Priority:    models.Priority(propString(props, "priority")),
		AssignedTo:  propString(props, "assigned_to"),
		Level:       propInt(props, "level"),
		OrderIndex:  propInt(props, "order_index"),
		CreatedAt:   propTime(props, "created_at"),
		UpdatedAt:   propTime(props, "updated_at"),
	}
	if taskID, ok := record.Values[1].(string); ok {
		st.TaskID = taskID
	}
	if parentID, ok := record.Values[2].(string); ok {
		st.ParentSubTaskID = &parentID
	}
	if due, ok := props["due_date"].(time.Time); ok {
		st.DueDate = &due
	}
	if tags, ok := props["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				st.Tags = append(st.Tags, s)
			}
		}
	}
	return st, nil
}

func propString(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func propInt(props map[string]any, key string) int {
	n, _ := props[key].(int64)
	return int(n)
}

func propTime(props map[string]any, key string) time.Time {
	t, _ := props[key].(time.Time)
	return t
}
