package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ShayCichocki/orcbot/pkg/models"
)

// WorkerRecord is the persisted pid of an agent's worker process.
type WorkerRecord struct {
	AgentID   string
	PID       int
	StartedAt time.Time
}

const agentColumns = `id, name, role, capabilities, created_at, last_active_at, work_dir, memory_path, pid`

// CreateAgent inserts a new agent. Insertion order is preserved by ListAgents.
func (db *DB) CreateAgent(a *models.Agent) error {
	caps, _ := json.Marshal(a.Capabilities)

	_, err := db.Exec(`
		INSERT INTO agents (id, name, role, capabilities, created_at, last_active_at, work_dir, memory_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, a.Role, string(caps), formatTime(a.CreatedAt), formatTime(a.LastActiveAt), a.WorkDir, a.MemoryPath)
	if err != nil {
		return fmt.Errorf("create agent: %w", err)
	}
	return nil
}

// GetAgent retrieves an agent by ID. Returns nil, nil when absent.
func (db *DB) GetAgent(id string) (*models.Agent, error) {
	row := db.QueryRow(`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)

	a, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// TouchAgent updates an agent's last activity timestamp.
func (db *DB) TouchAgent(id string, at time.Time) error {
	_, err := db.Exec(`UPDATE agents SET last_active_at = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("touch agent: %w", err)
	}
	return nil
}

// DeleteAgent deletes an agent by ID. Returns false if no row existed.
func (db *DB) DeleteAgent(id string) (bool, error) {
	result, err := db.Exec("DELETE FROM agents WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete agent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListAgents lists all agents in insertion order.
func (db *DB) ListAgents() ([]*models.Agent, error) {
	rows, err := db.Query(`SELECT ` + agentColumns + ` FROM agents ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// SetWorker records the live process for an agent.
func (db *DB) SetWorker(agentID string, pid int, startedAt time.Time) error {
	_, err := db.Exec(`
		UPDATE agents SET pid = ?, worker_started_at = ?, last_active_at = ? WHERE id = ?
	`, pid, formatTime(startedAt), formatTime(startedAt), agentID)
	if err != nil {
		return fmt.Errorf("set worker: %w", err)
	}
	return nil
}

// ClearWorker forgets the process recorded for an agent.
func (db *DB) ClearWorker(agentID string) error {
	_, err := db.Exec(`UPDATE agents SET pid = NULL, worker_started_at = NULL WHERE id = ?`, agentID)
	if err != nil {
		return fmt.Errorf("clear worker: %w", err)
	}
	return nil
}

// ListWorkers returns every agent with a recorded pid.
func (db *DB) ListWorkers() ([]WorkerRecord, error) {
	rows, err := db.Query(`
		SELECT id, pid, worker_started_at FROM agents WHERE pid IS NOT NULL AND pid > 0 ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var workers []WorkerRecord
	for rows.Next() {
		var w WorkerRecord
		var startedAt sql.NullString
		if err := rows.Scan(&w.AgentID, &w.PID, &startedAt); err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		if t := parseNullableTime(startedAt); t != nil {
			w.StartedAt = *t
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// SetProgressOffset records the byte offset up to which the agent's
// progress log has been applied.
func (db *DB) SetProgressOffset(agentID string, offset int64) error {
	_, err := db.Exec(`UPDATE agents SET progress_offset = ? WHERE id = ?`, offset, agentID)
	if err != nil {
		return fmt.Errorf("set progress offset: %w", err)
	}
	return nil
}

// ProgressOffsets returns the applied progress log offset of every agent.
func (db *DB) ProgressOffsets() (map[string]int64, error) {
	rows, err := db.Query(`SELECT id, progress_offset FROM agents`)
	if err != nil {
		return nil, fmt.Errorf("list progress offsets: %w", err)
	}
	defer rows.Close()

	offsets := make(map[string]int64)
	for rows.Next() {
		var id string
		var offset int64
		if err := rows.Scan(&id, &offset); err != nil {
			return nil, fmt.Errorf("scan progress offset: %w", err)
		}
		offsets[id] = offset
	}
	return offsets, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*models.Agent, error) {
	var a models.Agent
	var caps sql.NullString
	var createdAt, lastActiveAt string
	var pid sql.NullInt64
	if err := row.Scan(&a.ID, &a.Name, &a.Role, &caps, &createdAt, &lastActiveAt, &a.WorkDir, &a.MemoryPath, &pid); err != nil {
		return nil, err
	}

	if caps.Valid && caps.String != "" {
		json.Unmarshal([]byte(caps.String), &a.Capabilities)
	}
	if pid.Valid {
		a.PID = int(pid.Int64)
	}
	a.CreatedAt, _ = parseTime(createdAt)
	a.LastActiveAt, _ = parseTime(lastActiveAt)
	a.Status = models.AgentStatusStopped
	return &a, nil
}
