package orchestrator

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/orcbot/internal/orchestrator/policy"
	"github.com/ShayCichocki/orcbot/internal/state"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

// TaskCounts are the status counts reported by GetStatus.
type TaskCounts struct {
	Pending   int
	Completed int
	Failed    int
}

// TaskQueue holds every task and its assignment.
type TaskQueue struct {
	registry *AgentRegistry
	matcher  *Matcher
	policy   *policy.Config
	// store persists tasks. May be nil.
	store state.TaskStore

	tasks map[string]*models.Task
	order []string
	mu    sync.RWMutex
}

// NewTaskQueue creates a TaskQueue that validates targets against registry.
func NewTaskQueue(registry *AgentRegistry, matcher *Matcher, p *policy.Config, store state.TaskStore) *TaskQueue {
	return &TaskQueue{
		registry: registry,
		matcher:  matcher,
		policy:   p,
		store:    store,
		tasks:    make(map[string]*models.Task),
	}
}

// Load replaces the in-memory set with the store's contents.
func (q *TaskQueue) Load() error {
	if q.store == nil {
		return nil
	}
	tasks, err := q.store.ListTasks(nil)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = make(map[string]*models.Task, len(tasks))
	q.order = q.order[:0]
	for _, t := range tasks {
		q.tasks[t.ID] = t
		q.order = append(q.order, t.ID)
	}
	return nil
}

// Delegate assigns a new task directly to agentID. Priority is clamped
// to [1,10].
func (q *TaskQueue) Delegate(agentID, description string, priority int) (*models.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if q.registry.Get(agentID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}

	reqs := q.matcher.Requirements(description, q.registry.Capabilities())
	return q.create(description, priority, agentID, reqs)
}

// Distribute creates one task per non-blank description and assigns each
// by round robin over the agents compatible with it. Each distinct
// candidate set keeps its own rotation for the duration of the call, so
// interleaved tasks of different kinds still spread within their kind.
// Requirements no registered agent advertises carry no filtering signal.
// Tasks stay queued and unassigned only when no agent is registered.
func (q *TaskQueue) Distribute(descriptions []string) ([]*models.Task, error) {
	agents := q.registry.List()
	known := q.registry.Capabilities()
	mode := q.policy.Distribution.Mode

	var tasks []*models.Task
	cursors := make(map[string]int)
	for _, d := range descriptions {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}

		reqs := q.matcher.Requirements(d, known)
		candidates := agents
		if mode == policy.ModeCapability {
			candidates = candidatesFor(agents, advertised(reqs, known))
		}

		assignee := ""
		if len(candidates) > 0 {
			key := rotationKey(candidates)
			assignee = candidates[cursors[key]%len(candidates)].ID
			cursors[key]++
		} else {
			log.Printf("[queue] no agent matches %v; task left unassigned", reqs)
		}

		t, err := q.create(d, q.policy.Tasks.DefaultPriority, assignee, reqs)
		if err != nil {
			return tasks, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// advertised keeps the requirements some agent can serve.
func advertised(reqs, known []string) []string {
	var out []string
	for _, r := range reqs {
		for _, k := range known {
			if r == k {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// candidatesFor returns the agents compatible with reqs, or every agent
// when reqs is empty.
func candidatesFor(agents []*models.Agent, reqs []string) []*models.Agent {
	if len(reqs) == 0 {
		return agents
	}
	var out []*models.Agent
	for _, a := range agents {
		if compatible(a.Capabilities, reqs) {
			out = append(out, a)
		}
	}
	return out
}

// rotationKey identifies a candidate set by its member IDs in order.
func rotationKey(candidates []*models.Agent) string {
	ids := make([]string, len(candidates))
	for i, a := range candidates {
		ids[i] = a.ID
	}
	return strings.Join(ids, ",")
}

func (q *TaskQueue) create(description string, priority int, agentID string, reqs []string) (*models.Task, error) {
	now := time.Now().UTC()
	t := &models.Task{
		ID:              uuid.New().String(),
		Description:     description,
		Priority:        models.ClampPriority(priority),
		AssignedAgentID: agentID,
		Requirements:    reqs,
		Status:          models.TaskStatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.store != nil {
		if err := q.store.CreateTask(t); err != nil {
			return nil, err
		}
	}
	q.tasks[t.ID] = t
	q.order = append(q.order, t.ID)
	return t.Clone(), nil
}

// Get returns a copy of a task, or nil.
func (q *TaskQueue) Get(taskID string) *models.Task {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tasks[taskID].Clone()
}

// List returns copies of tasks in creation order, optionally filtered.
func (q *TaskQueue) List(status *models.TaskStatus) []*models.Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var out []*models.Task
	for _, id := range q.order {
		t := q.tasks[id]
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t.Clone())
	}
	return out
}

// ByAgent returns copies of the tasks assigned to agentID.
func (q *TaskQueue) ByAgent(agentID string) []*models.Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var out []*models.Task
	for _, id := range q.order {
		if t := q.tasks[id]; t.AssignedAgentID == agentID {
			out = append(out, t.Clone())
		}
	}
	return out
}

// ActiveCount returns the number of non-terminal tasks assigned to agentID.
func (q *TaskQueue) ActiveCount(agentID string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	n := 0
	for _, t := range q.tasks {
		if t.AssignedAgentID == agentID && !t.Status.Terminal() {
			n++
		}
	}
	return n
}

// InProgress returns the first in-progress task assigned to agentID.
func (q *TaskQueue) InProgress(agentID string) *models.Task {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, id := range q.order {
		t := q.tasks[id]
		if t.AssignedAgentID == agentID && t.Status == models.TaskStatusInProgress {
			return t.Clone()
		}
	}
	return nil
}

// SetStatus moves a task to status. Terminal tasks never change again.
// Returns whether the task changed.
func (q *TaskQueue) SetStatus(taskID string, status models.TaskStatus, cause string) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("invalid task status %q", status)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.tasks[taskID]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if t.Status.Terminal() || t.Status == status {
		return false, nil
	}
	if status == models.TaskStatusQueued {
		return false, nil
	}

	prev := *t
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	if status == models.TaskStatusFailed {
		t.Error = cause
	}
	if q.store != nil {
		if err := q.store.UpdateTask(t); err != nil {
			*t = prev
			return false, err
		}
	}
	return true, nil
}

// FailAgentTasks fails every non-terminal task assigned to agentID and
// returns the IDs it changed.
func (q *TaskQueue) FailAgentTasks(agentID, cause string) ([]string, error) {
	var ids []string
	for _, t := range q.ByAgent(agentID) {
		if t.Status.Terminal() {
			continue
		}
		changed, err := q.SetStatus(t.ID, models.TaskStatusFailed, cause)
		if err != nil {
			return ids, err
		}
		if changed {
			ids = append(ids, t.ID)
		}
	}
	return ids, nil
}

// Counts scans all tasks. Queued and in-progress count as pending.
func (q *TaskQueue) Counts() TaskCounts {
	q.mu.RLock()
	defer q.mu.RUnlock()

	var c TaskCounts
	for _, t := range q.tasks {
		switch {
		case t.Status.Pending():
			c.Pending++
		case t.Status == models.TaskStatusCompleted:
			c.Completed++
		case t.Status == models.TaskStatusFailed:
			c.Failed++
		}
	}
	return c
}
