package models

// Task represents a board task with optional parent ID.
type Task struct {
	ID        string  `json:"id"`
	BoardID   string  `json:"board_id"`
	Title     string  `json:"title"`
	Completed bool    `json:"completed"`
	ParentID  *string `json:"parent_id"`
}

// TaskUpdate carries the editable task fields.
type TaskUpdate struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
