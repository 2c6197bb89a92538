package orchestrator

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	iexec "github.com/ShayCichocki/orcbot/internal/exec"
	"github.com/ShayCichocki/orcbot/internal/inbox"
	"github.com/ShayCichocki/orcbot/internal/orchestrator/policy"
	"github.com/ShayCichocki/orcbot/internal/progress"
	"github.com/ShayCichocki/orcbot/internal/state"
	"github.com/ShayCichocki/orcbot/internal/usage"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

// livenessTouchInterval limits how often a confirmed-live probe refreshes
// an agent's LastActiveAt in the store.
const livenessTouchInterval = 30 * time.Second

// coordinatorSender is the From field on inbox messages the coordinator writes.
const coordinatorSender = "orchestrator"

// Orchestrator is the single entry point to the agent fleet. Every
// operation runs under one lock so registry and queue changes never
// interleave. With a store, that lock also covers every other orcbot
// process on the same data directory.
type Orchestrator struct {
	mu sync.Mutex
	// fleetLock is nil without a store.
	fleetLock *state.FileLock

	dataDir   string
	agentsDir string

	policy *policy.Config
	logger *DebugLogger
	store  state.StateStore

	registry   *AgentRegistry
	supervisor *Supervisor
	queue      *TaskQueue
	aggregator *usage.Aggregator
	emitter    *EventEmitter
	watcher    *progress.Watcher
	// watched maps agent ID to the directory the watcher follows.
	watched map[string]string
	// offsets is how far each agent's progress log has been applied.
	offsets map[string]int64
}

// New creates an Orchestrator and loads any persisted agents, tasks and
// worker pids.
func New(req RequiredConfig, opts ...Option) (*Orchestrator, error) {
	if req.DataDir == "" {
		return nil, errors.New("data directory is required")
	}
	if req.WorkerBinary == "" {
		return nil, errors.New("worker binary is required")
	}

	o := &orchestratorOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.policyConfig == nil {
		o.policyConfig = policy.Default()
	}
	if err := o.policyConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	if o.logger == nil {
		o.logger = NopLogger()
	}
	if o.runner == nil {
		o.runner = iexec.NewRunner()
	}
	if o.matcher == nil {
		o.matcher = NewMatcher()
	}

	agentsDir := filepath.Join(req.DataDir, "agents")
	if err := os.MkdirAll(agentsDir, 0755); err != nil {
		return nil, fmt.Errorf("create agents directory: %w", err)
	}

	orc := &Orchestrator{
		dataDir:    req.DataDir,
		agentsDir:  agentsDir,
		policy:     o.policyConfig,
		logger:     o.logger,
		store:      o.store,
		aggregator: usage.NewAggregator(o.pricing),
		emitter:    NewEventEmitter(o.policyConfig.Events.SubscriberBuffer),
		watched:    make(map[string]string),
		offsets:    make(map[string]int64),
	}

	// Nil interface values keep the components in memory-only mode.
	var (
		agentStore  state.AgentStore
		workerStore state.WorkerStore
		taskStore   state.TaskStore
	)
	if o.store != nil {
		agentStore, workerStore, taskStore = o.store, o.store, o.store
		orc.fleetLock = state.NewFileLock(req.DataDir)
	}

	orc.registry = NewAgentRegistry(agentsDir, agentStore)
	orc.queue = NewTaskQueue(orc.registry, o.matcher, o.policyConfig, taskStore)
	orc.supervisor = NewSupervisor(SupervisorConfig{
		Binary: req.WorkerBinary,
		Args:   o.workerArgs,
		Env:    o.workerEnv,
	}, o.runner, workerStore)
	orc.supervisor.SetExitHandler(orc.onWorkerExit)

	if orc.fleetLock != nil {
		if err := orc.fleetLock.Lock(); err != nil {
			return nil, fmt.Errorf("lock data directory: %w", err)
		}
		err := orc.syncLocked()
		orc.fleetLock.Unlock()
		if err != nil {
			return nil, err
		}
	}

	orc.logger.Log("orchestrator ready: %d agents, data dir %s", orc.registry.Count(), req.DataDir)
	return orc, nil
}

// lock starts an operation. With a store it waits for the data directory
// lock and reloads everything another process may have changed. Progress
// logged by workers since the last operation is applied before returning.
// The returned func ends the operation.
func (o *Orchestrator) lock() func() {
	o.mu.Lock()
	if o.fleetLock != nil {
		if err := o.fleetLock.Lock(); err != nil {
			log.Printf("[orchestrator] %v", err)
		} else if err := o.syncLocked(); err != nil {
			log.Printf("[orchestrator] reload state: %v", err)
		}
	}
	o.drainProgressLocked()

	return func() {
		if o.fleetLock != nil {
			if err := o.fleetLock.Unlock(); err != nil {
				log.Printf("[orchestrator] %v", err)
			}
		}
		o.mu.Unlock()
	}
}

// syncLocked replaces the in-memory view with the store's.
func (o *Orchestrator) syncLocked() error {
	if err := o.registry.Load(); err != nil {
		return err
	}
	if err := o.queue.Load(); err != nil {
		return err
	}
	if err := o.supervisor.Restore(); err != nil {
		return err
	}
	offsets, err := o.store.ProgressOffsets()
	if err != nil {
		return fmt.Errorf("load progress offsets: %w", err)
	}
	o.offsets = offsets
	o.watchAgentsLocked()
	return nil
}

// watchAgentsLocked follows the directories of registered agents and
// drops the ones that are gone.
func (o *Orchestrator) watchAgentsLocked() {
	if o.watcher == nil {
		return
	}
	current := make(map[string]bool)
	for _, a := range o.registry.List() {
		current[a.ID] = true
		if _, ok := o.watched[a.ID]; ok {
			continue
		}
		if err := os.MkdirAll(a.WorkDir, 0755); err != nil {
			continue
		}
		if err := o.watcher.Add(a.ID, a.WorkDir); err != nil {
			log.Printf("[orchestrator] %v", err)
			continue
		}
		o.watched[a.ID] = a.WorkDir
	}
	for id, dir := range o.watched {
		if !current[id] {
			o.watcher.Remove(dir)
			delete(o.watched, id)
		}
	}
}

// DataDir returns the orchestrator's data directory.
func (o *Orchestrator) DataDir() string {
	return o.dataDir
}

// Policy returns the active policy configuration.
func (o *Orchestrator) Policy() *policy.Config {
	return o.policy
}

// Subscribe returns a channel of orchestrator events and its cancel func.
func (o *Orchestrator) Subscribe() (<-chan OrchestratorEvent, func()) {
	return o.emitter.Subscribe()
}

// WatchProgress starts applying progress reports as workers log them.
// Without it, progress is still picked up at the start of every operation.
func (o *Orchestrator) WatchProgress() error {
	defer o.lock()()

	if o.watcher != nil {
		return nil
	}
	w, err := progress.NewWatcher(func(string) {
		release := o.lock()
		release()
	})
	if err != nil {
		return err
	}
	o.watcher = w
	o.watchAgentsLocked()
	return nil
}

// Close stops the progress watcher and closes event subscriptions.
// Worker processes keep running.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	w := o.watcher
	o.watcher = nil
	o.watched = make(map[string]string)
	o.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	o.emitter.Close()
	return err
}

// SpawnAgent registers a new agent in the stopped state.
func (o *Orchestrator) SpawnAgent(spec models.AgentSpec) (*models.Agent, error) {
	defer o.lock()()

	a, err := o.registry.Create(spec)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(a.WorkDir, 0755); err != nil {
		o.registry.Remove(a.ID)
		return nil, fmt.Errorf("create agent directory: %w", err)
	}
	o.watchAgentsLocked()

	o.logger.Log("spawned agent %s (%s) caps=%v", a.ID, a.Name, a.Capabilities)
	o.emitter.Emit(OrchestratorEvent{Type: EventAgentSpawned, AgentID: a.ID, AgentName: a.Name})
	return o.viewLocked(a), nil
}

// ListAgents returns every agent in creation order with derived fields.
func (o *Orchestrator) ListAgents() []*models.Agent {
	defer o.lock()()

	agents := o.registry.List()
	for i, a := range agents {
		agents[i] = o.viewLocked(a)
	}
	return agents
}

// GetAgent returns one agent with derived fields.
func (o *Orchestrator) GetAgent(agentID string) (*models.Agent, error) {
	defer o.lock()()

	a := o.registry.Get(agentID)
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return o.viewLocked(a), nil
}

// IsWorkerRunning probes the agent's worker. Unknown agents are not running.
func (o *Orchestrator) IsWorkerRunning(agentID string) bool {
	defer o.lock()()
	return o.supervisor.IsRunning(agentID)
}

// StartWorkerProcess launches the agent's worker. Returns false without
// error when one is already live.
func (o *Orchestrator) StartWorkerProcess(agentID string) (bool, error) {
	defer o.lock()()

	a := o.registry.Get(agentID)
	if a == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	if err := os.MkdirAll(a.WorkDir, 0755); err != nil {
		return false, fmt.Errorf("create agent directory: %w", err)
	}

	started, err := o.supervisor.Start(a)
	if err != nil {
		o.logger.Log("start worker for %s failed: %v", agentID, err)
		return false, err
	}
	if !started {
		return false, nil
	}

	if err := o.registry.Touch(agentID); err != nil {
		log.Printf("[orchestrator] touch agent %s: %v", agentID, err)
	}
	pid := o.supervisor.PID(agentID)
	o.logger.Log("started worker for %s pid=%d", agentID, pid)
	o.emitter.Emit(OrchestratorEvent{Type: EventWorkerStarted, AgentID: agentID, AgentName: a.Name, PID: pid})
	return true, nil
}

// StopWorkerProcess asks the agent's worker to exit. Returns false when no
// live worker is known.
func (o *Orchestrator) StopWorkerProcess(agentID string) (bool, error) {
	defer o.lock()()

	if o.registry.Get(agentID) == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	stopped, err := o.supervisor.Stop(agentID)
	if stopped {
		o.logger.Log("stop requested for %s", agentID)
	}
	return stopped, err
}

// DelegateTask assigns a task directly to agentID and posts it to the
// agent's inbox.
func (o *Orchestrator) DelegateTask(agentID, description string, priority int) (*models.Task, error) {
	defer o.lock()()

	t, err := o.queue.Delegate(agentID, description, priority)
	if err != nil {
		return nil, err
	}
	o.taskCreatedLocked(t)
	return t, nil
}

// DistributeTaskList spreads descriptions across compatible agents.
func (o *Orchestrator) DistributeTaskList(descriptions []string) ([]*models.Task, error) {
	defer o.lock()()

	tasks, err := o.queue.Distribute(descriptions)
	for _, t := range tasks {
		o.taskCreatedLocked(t)
	}
	return tasks, err
}

// Broadcast appends message to every registered agent's inbox and returns
// how many inboxes accepted it. Failures are logged only.
func (o *Orchestrator) Broadcast(senderID, message string) int {
	defer o.lock()()

	if strings.TrimSpace(message) == "" {
		log.Printf("[queue] ignoring empty broadcast from %q", senderID)
		return 0
	}

	delivered := 0
	for _, a := range o.registry.List() {
		err := inbox.Append(a.WorkDir, inbox.Message{
			Kind: inbox.KindBroadcast,
			From: senderID,
			Body: message,
		})
		if err != nil {
			log.Printf("[queue] broadcast to agent %s failed: %v", a.ID, err)
			continue
		}
		delivered++
	}

	o.logger.Log("broadcast from %q delivered to %d agents", senderID, delivered)
	o.emitter.Emit(OrchestratorEvent{Type: EventBroadcast, AgentID: senderID, Message: message})
	return delivered
}

// TerminateAgent stops the agent's worker, fails its unfinished tasks and
// removes it. Returns false for an unknown or already removed agent.
func (o *Orchestrator) TerminateAgent(agentID string) (bool, error) {
	defer o.lock()()

	a := o.registry.Get(agentID)
	if a == nil {
		return false, nil
	}

	// A worker that cannot be signalled keeps its agent, so it is never
	// left running without a record.
	if _, err := o.supervisor.Stop(agentID); err != nil {
		o.logger.Log("terminate %s: stop worker failed: %v", agentID, err)
		return false, fmt.Errorf("stop worker: %w", err)
	}
	o.supervisor.Forget(agentID)

	failed, err := o.queue.FailAgentTasks(agentID, o.policy.Tasks.TerminatedCause)
	for _, id := range failed {
		o.emitter.Emit(OrchestratorEvent{
			Type: EventTaskUpdated, AgentID: agentID, TaskID: id,
			TaskStatus: string(models.TaskStatusFailed), Message: o.policy.Tasks.TerminatedCause,
		})
	}
	if err != nil {
		return false, fmt.Errorf("fail tasks: %w", err)
	}

	removed, err := o.registry.Remove(agentID)
	if err != nil {
		return false, fmt.Errorf("remove agent: %w", err)
	}
	delete(o.offsets, agentID)
	o.watchAgentsLocked()

	o.logger.Log("terminated agent %s, failed %d tasks", agentID, len(failed))
	o.emitter.Emit(OrchestratorEvent{Type: EventAgentTerminated, AgentID: agentID, AgentName: a.Name})
	return removed, nil
}

// GetStatus returns the fleet summary. ActiveAgents counts agents with a
// live worker, so it is always IdleAgents plus WorkingAgents.
func (o *Orchestrator) GetStatus() models.FleetStatus {
	defer o.lock()()

	var st models.FleetStatus
	for _, a := range o.registry.List() {
		switch o.viewLocked(a).Status {
		case models.AgentStatusIdle:
			st.IdleAgents++
		case models.AgentStatusWorking:
			st.WorkingAgents++
		}
	}
	st.ActiveAgents = st.IdleAgents + st.WorkingAgents
	counts := o.queue.Counts()
	st.PendingTasks = counts.Pending
	st.CompletedTasks = counts.Completed
	st.FailedTasks = counts.Failed
	return st
}

// GetRunningWorkers returns confirmed-live workers in agent order.
func (o *Orchestrator) GetRunningWorkers() []models.RunningWorker {
	defer o.lock()()

	live := make(map[string]int)
	for _, wp := range o.supervisor.Running() {
		live[wp.AgentID] = wp.PID
	}

	var workers []models.RunningWorker
	for _, a := range o.registry.List() {
		if pid, ok := live[a.ID]; ok {
			workers = append(workers, models.RunningWorker{AgentID: a.ID, Name: a.Name, PID: pid})
		}
	}
	return workers
}

// GetDetailedWorkerStatus returns one record per agent.
func (o *Orchestrator) GetDetailedWorkerStatus() []models.WorkerDetail {
	defer o.lock()()

	agents := o.registry.List()
	details := make([]models.WorkerDetail, 0, len(agents))
	for _, a := range agents {
		v := o.viewLocked(a)
		d := models.WorkerDetail{
			AgentID:      v.ID,
			Name:         v.Name,
			Role:         v.Role,
			Status:       v.Status,
			PID:          v.PID,
			LastActiveAt: v.LastActiveAt,
			ActiveTasks:  v.ActiveTasks,
		}
		if v.Status == models.AgentStatusWorking {
			if r := o.readProgressLocked(a); r.Current() {
				d.CurrentTaskID = r.TaskID
				d.CurrentTaskDescription = r.Description
			}
		}
		details = append(details, d)
	}
	return details
}

// GetAggregateWorkerTokenUsage reads every agent's usage log. It never
// mutates state.
func (o *Orchestrator) GetAggregateWorkerTokenUsage() []models.TokenUsageRecord {
	release := o.lock()
	agents := o.registry.List()
	release()
	return o.aggregator.Aggregate(agents)
}

// ListTasks returns tasks in creation order, optionally filtered by status.
func (o *Orchestrator) ListTasks(status *models.TaskStatus) []*models.Task {
	defer o.lock()()
	return o.queue.List(status)
}

// GetTask returns one task.
func (o *Orchestrator) GetTask(taskID string) (*models.Task, error) {
	defer o.lock()()

	t := o.queue.Get(taskID)
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	return t, nil
}

// ApplyProgress records a progress report delivered out of band, as over
// the gateway: the agent is touched and a known task it owns moves to the
// reported status.
func (o *Orchestrator) ApplyProgress(agentID string, r *progress.Report) error {
	defer o.lock()()

	a := o.registry.Get(agentID)
	if a == nil {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, agentID)
	}
	return o.applyProgressLocked(a, r)
}

func (o *Orchestrator) applyProgressLocked(a *models.Agent, r *progress.Report) error {
	if r == nil {
		return nil
	}
	if r.UpdatedAt.IsZero() || r.UpdatedAt.After(a.LastActiveAt) {
		if err := o.registry.Touch(a.ID); err != nil {
			log.Printf("[orchestrator] touch agent %s: %v", a.ID, err)
		}
		if fresh := o.registry.Get(a.ID); fresh != nil {
			a.LastActiveAt = fresh.LastActiveAt
		}
	}
	if r.TaskID == "" || r.Status == "" {
		return nil
	}

	t := o.queue.Get(r.TaskID)
	if t == nil || t.AssignedAgentID != a.ID {
		return nil
	}
	changed, err := o.queue.SetStatus(r.TaskID, r.Status, r.Error)
	if err != nil {
		return err
	}
	if changed {
		o.logger.Log("task %s -> %s (agent %s)", r.TaskID, r.Status, a.ID)
		o.emitter.Emit(OrchestratorEvent{
			Type: EventTaskUpdated, AgentID: a.ID, TaskID: r.TaskID,
			TaskStatus: string(r.Status), Message: r.Error,
		})
	}
	return nil
}

// drainProgressLocked applies, in order, every report each worker logged
// since the last read and records how far it got.
func (o *Orchestrator) drainProgressLocked() {
	for _, a := range o.registry.List() {
		offset := o.offsets[a.ID]
		reports, next, err := progress.ReadFrom(a.WorkDir, offset)
		if err != nil {
			log.Printf("[orchestrator] agent %s: %v", a.ID, err)
		}
		for i := range reports {
			if err := o.applyProgressLocked(a, &reports[i]); err != nil {
				log.Printf("[orchestrator] apply progress for agent %s: %v", a.ID, err)
			}
		}
		if next == offset {
			continue
		}
		o.offsets[a.ID] = next
		if o.store != nil {
			if err := o.store.SetProgressOffset(a.ID, next); err != nil {
				log.Printf("[orchestrator] %v", err)
			}
		}
	}
}

// readProgressLocked reads the agent's current-task file, logging bad files.
func (o *Orchestrator) readProgressLocked(a *models.Agent) *progress.Report {
	r, err := progress.Read(a.WorkDir)
	if err != nil {
		log.Printf("[orchestrator] agent %s: %v", a.ID, err)
		return nil
	}
	return r
}

// viewLocked fills in the derived fields of a registry copy. The current
// task comes from the worker's current-task file.
func (o *Orchestrator) viewLocked(a *models.Agent) *models.Agent {
	r := o.readProgressLocked(a)

	running := o.supervisor.IsRunning(a.ID)
	if running && time.Since(a.LastActiveAt) > livenessTouchInterval {
		if err := o.registry.Touch(a.ID); err != nil {
			log.Printf("[orchestrator] touch agent %s: %v", a.ID, err)
		}
	}
	if fresh := o.registry.Get(a.ID); fresh != nil {
		a.LastActiveAt = fresh.LastActiveAt
	}

	a.PID = 0
	if running {
		a.PID = o.supervisor.PID(a.ID)
	}
	currentTaskID := ""
	if r.Current() {
		currentTaskID = r.TaskID
	}
	a.Status = models.DeriveAgentStatus(running, currentTaskID)
	a.ActiveTasks = o.queue.ActiveCount(a.ID)
	return a
}

// taskCreatedLocked posts an assigned task to its agent's inbox and emits
// the creation event.
func (o *Orchestrator) taskCreatedLocked(t *models.Task) {
	if t.Assigned() {
		if a := o.registry.Get(t.AssignedAgentID); a != nil {
			err := inbox.Append(a.WorkDir, inbox.Message{
				Kind:     inbox.KindTask,
				From:     coordinatorSender,
				TaskID:   t.ID,
				Priority: t.Priority,
				Body:     t.Description,
			})
			if err != nil {
				log.Printf("[queue] post task %s to agent %s: %v", t.ID, a.ID, err)
			}
		}
	}
	o.logger.Log("task %s created for %q prio=%d reqs=%v", t.ID, t.AssignedAgentID, t.Priority, t.Requirements)
	o.emitter.Emit(OrchestratorEvent{
		Type: EventTaskCreated, AgentID: t.AssignedAgentID, TaskID: t.ID,
		TaskStatus: string(t.Status), Message: t.Description,
	})
}

// onWorkerExit runs under the supervisor lock when a probe finds a worker gone.
func (o *Orchestrator) onWorkerExit(agentID string, pid int, requested bool) {
	eventType := EventWorkerCrashed
	if requested {
		eventType = EventWorkerStopped
	}
	o.logger.Log("worker for %s (pid %d) exited, requested=%v", agentID, pid, requested)
	o.emitter.Emit(OrchestratorEvent{Type: eventType, AgentID: agentID, PID: pid})
}
