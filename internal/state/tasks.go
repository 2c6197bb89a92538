package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

const taskColumns = `id, description, priority, assigned_agent_id, requirements, status, error, created_at, updated_at`

// CreateTask creates a new task.
func (db *DB) CreateTask(t *models.Task) error {
	reqs, _ := json.Marshal(t.Requirements)

	_, err := db.Exec(`
		INSERT INTO tasks (id, description, priority, assigned_agent_id, requirements, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Description, t.Priority, nullString(t.AssignedAgentID), string(reqs), string(t.Status),
		nullString(t.Error), formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns nil, nil when absent.
func (db *DB) GetTask(id string) (*models.Task, error) {
	row := db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask persists a task's mutable fields. The assignment is written
// only at creation and is left untouched here.
func (db *DB) UpdateTask(t *models.Task) error {
	_, err := db.Exec(`
		UPDATE tasks SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, string(t.Status), nullString(t.Error), formatTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// ListTasks lists all tasks in creation order, optionally filtered by status.
func (db *DB) ListTasks(status *models.TaskStatus) ([]*models.Task, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY rowid`, string(*status))
	} else {
		rows, err = db.Query(`SELECT ` + taskColumns + ` FROM tasks ORDER BY rowid`)
	}
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListTasksByAgent lists all tasks assigned to an agent.
func (db *DB) ListTasksByAgent(agentID string) ([]*models.Task, error) {
	rows, err := db.Query(`SELECT `+taskColumns+` FROM tasks WHERE assigned_agent_id = ? ORDER BY rowid`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by agent: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// scanTasks scans task rows into a slice.
func scanTasks(rows *sql.Rows) ([]*models.Task, error) {
	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	var assigned, reqs, errMsg sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&t.ID, &t.Description, &t.Priority, &assigned, &reqs, &t.Status, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if assigned.Valid {
		t.AssignedAgentID = assigned.String
	}
	if reqs.Valid && reqs.String != "" {
		json.Unmarshal([]byte(reqs.String), &t.Requirements)
	}
	if errMsg.Valid {
		t.Error = errMsg.String
	}
	t.CreatedAt, _ = parseTime(createdAt)
	t.UpdatedAt, _ = parseTime(updatedAt)
	return &t, nil
}

// nullString maps the empty string to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
