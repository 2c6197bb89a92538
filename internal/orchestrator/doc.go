// Package orchestrator coordinates a fleet of agent worker processes.
//
// The package provides:
//   - AgentRegistry: the ordered, persisted set of known agents
//   - Supervisor: one OS worker process per agent, with signal-0 liveness probes
//   - TaskQueue: delegated and distributed tasks and their status counts
//   - Matcher: capability inference for task distribution
//
// Orchestrator composes these behind a single write lock and is the only
// type the CLI, gateway and TUI talk to. With a store, the lock extends to
// every orcbot process on the same data directory through an flock(2) on
// orcbot.lock, and each operation starts from the store's current state.
//
// Example usage:
//
//	orc, err := orchestrator.New(orchestrator.RequiredConfig{
//		DataDir:      dataDir,
//		WorkerBinary: "orcbot-worker",
//	}, orchestrator.WithStore(db))
//	agent, err := orc.SpawnAgent(models.AgentSpec{Name: "coder", Capabilities: []string{"code"}})
//	started, err := orc.StartWorkerProcess(agent.ID)
//	task, err := orc.DelegateTask(agent.ID, "fix the flaky test", 7)
package orchestrator
