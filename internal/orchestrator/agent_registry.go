package orchestrator

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/orcbot/internal/state"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

// MemoryFileName is the worker-owned memory file inside an agent directory.
const MemoryFileName = "memory.md"

// AgentRegistry manages agent records in insertion order.
// It provides thread-safe storage and writes through to an optional store.
type AgentRegistry struct {
	// agents maps agent IDs to agent models.
	agents map[string]*models.Agent
	// order holds agent IDs in creation order.
	order []string
	// agentsDir is the parent of every agent's working directory.
	agentsDir string
	// store persists agents. May be nil.
	store state.AgentStore
	// mu protects all fields.
	mu sync.RWMutex
}

// NewAgentRegistry creates a new AgentRegistry rooted at agentsDir.
func NewAgentRegistry(agentsDir string, store state.AgentStore) *AgentRegistry {
	return &AgentRegistry{
		agents:    make(map[string]*models.Agent),
		agentsDir: agentsDir,
		store:     store,
	}
}

// Load replaces the in-memory set with the store's contents.
func (r *AgentRegistry) Load() error {
	if r.store == nil {
		return nil
	}
	agents, err := r.store.ListAgents()
	if err != nil {
		return fmt.Errorf("load agents: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = make(map[string]*models.Agent, len(agents))
	r.order = r.order[:0]
	for _, a := range agents {
		r.agents[a.ID] = a
		r.order = append(r.order, a.ID)
	}
	return nil
}

// Create validates spec and registers a new stopped agent.
func (r *AgentRegistry) Create(spec models.AgentSpec) (*models.Agent, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	role := strings.TrimSpace(spec.Role)
	if role == "" {
		role = "worker"
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	workDir := filepath.Join(r.agentsDir, id)
	a := &models.Agent{
		ID:           id,
		Name:         name,
		Role:         role,
		Capabilities: normalizeCapabilities(spec.Capabilities),
		Status:       models.AgentStatusStopped,
		CreatedAt:    now,
		LastActiveAt: now,
		WorkDir:      workDir,
		MemoryPath:   filepath.Join(workDir, MemoryFileName),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		if err := r.store.CreateAgent(a); err != nil {
			return nil, err
		}
	}
	r.agents[a.ID] = a
	r.order = append(r.order, a.ID)
	return a.Clone(), nil
}

// Get retrieves a copy of an agent by ID.
// Returns nil if the agent is not registered.
func (r *AgentRegistry) Get(agentID string) *models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[agentID].Clone()
}

// List returns copies of all agents in insertion order.
func (r *AgentRegistry) List() []*models.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*models.Agent, 0, len(r.order))
	for _, id := range r.order {
		agents = append(agents, r.agents[id].Clone())
	}
	return agents
}

// Remove unregisters an agent. Returns false for an unknown ID.
func (r *AgentRegistry) Remove(agentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[agentID]; !ok {
		return false, nil
	}
	if r.store != nil {
		if _, err := r.store.DeleteAgent(agentID); err != nil {
			return false, err
		}
	}
	delete(r.agents, agentID)
	for i, id := range r.order {
		if id == agentID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Touch updates an agent's LastActiveAt. Unknown IDs are ignored.
func (r *AgentRegistry) Touch(agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.agents[agentID]
	if !ok {
		return nil
	}
	a.LastActiveAt = time.Now().UTC()
	if r.store != nil {
		return r.store.TouchAgent(agentID, a.LastActiveAt)
	}
	return nil
}

// Count returns the number of registered agents.
func (r *AgentRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Capabilities returns the union of all advertised capabilities.
func (r *AgentRegistry) Capabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var caps []string
	for _, id := range r.order {
		for _, c := range r.agents[id].Capabilities {
			if !seen[c] {
				seen[c] = true
				caps = append(caps, c)
			}
		}
	}
	return caps
}

// normalizeCapabilities lowercases, trims and de-duplicates, keeping order.
func normalizeCapabilities(caps []string) []string {
	out := make([]string, 0, len(caps))
	seen := make(map[string]bool, len(caps))
	for _, c := range caps {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
