package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/orcbot/internal/config"
	"github.com/ShayCichocki/orcbot/internal/orchestrator"
	"github.com/ShayCichocki/orcbot/internal/state"
)

// fleet bundles an Orchestrator with the resources it was opened with.
type fleet struct {
	*orchestrator.Orchestrator
	db     *state.DB
	logger *orchestrator.DebugLogger
}

// openFleet opens the data directory named by c and loads the fleet.
func openFleet(c *config.Config) (*fleet, error) {
	dataDir := c.DataDir()
	db, err := state.OpenDataDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	logger := orchestrator.NopLogger()
	if c.Orchestrator.DebugLog {
		logger = orchestrator.NewDebugLoggerForDataDir(dataDir)
	}

	matcher := orchestrator.NewMatcher()
	if c.Distribution.RulesFile != "" {
		if err := matcher.LoadRules(c.Distribution.RulesFile); err != nil {
			db.Close()
			logger.Close()
			return nil, err
		}
	}

	orc, err := orchestrator.New(
		orchestrator.RequiredConfig{
			DataDir:      dataDir,
			WorkerBinary: resolveWorkerBinary(c.Orchestrator.WorkerBinary),
		},
		orchestrator.WithPolicy(c.PolicyConfig()),
		orchestrator.WithStore(db),
		orchestrator.WithLogger(logger),
		orchestrator.WithMatcher(matcher),
		orchestrator.WithWorkerArgs(c.Orchestrator.WorkerArgs),
	)
	if err != nil {
		db.Close()
		logger.Close()
		return nil, err
	}
	return &fleet{Orchestrator: orc, db: db, logger: logger}, nil
}

// Close releases the orchestrator, logger and database. Workers keep running.
func (f *fleet) Close() error {
	return errors.Join(f.Orchestrator.Close(), f.logger.Close(), f.db.Close())
}

// resolveWorkerBinary finds a bare worker name on PATH, falling back to the
// directory holding the orcbot executable.
func resolveWorkerBinary(name string) string {
	if name == "" || strings.ContainsRune(name, os.PathSeparator) {
		return name
	}
	if _, err := exec.LookPath(name); err == nil {
		return name
	}
	self, err := os.Executable()
	if err != nil {
		return name
	}
	sibling := filepath.Join(filepath.Dir(self), name)
	if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
		return sibling
	}
	return name
}

// resolveAgent accepts a full agent ID, a unique ID prefix, or a unique name.
func resolveAgent(f *fleet, ref string) (string, error) {
	if a, err := f.GetAgent(ref); err == nil {
		return a.ID, nil
	}
	var matches []string
	for _, a := range f.ListAgents() {
		if strings.HasPrefix(a.ID, ref) || a.Name == ref {
			matches = append(matches, a.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", orchestrator.ErrUnknownAgent, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q matches %d agents; use the full ID", ref, len(matches))
	}
}
