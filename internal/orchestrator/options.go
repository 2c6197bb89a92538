package orchestrator

import (
	iexec "github.com/ShayCichocki/orcbot/internal/exec"
	"github.com/ShayCichocki/orcbot/internal/orchestrator/policy"
	"github.com/ShayCichocki/orcbot/internal/state"
	"github.com/ShayCichocki/orcbot/internal/usage"
)

// RequiredConfig contains the minimal required configuration for an Orchestrator.
// All fields are required and have no defaults.
type RequiredConfig struct {
	// DataDir holds the agents/ tree and logs/.
	DataDir string
	// WorkerBinary is the executable started for each agent.
	WorkerBinary string
}

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*orchestratorOptions)

// orchestratorOptions holds all optional configuration.
// These are only used during construction.
type orchestratorOptions struct {
	policyConfig *policy.Config
	logger       *DebugLogger
	store        state.StateStore
	runner       iexec.ProcessRunner
	matcher      *Matcher
	workerArgs   []string
	workerEnv    []string
	pricing      map[string]usage.ModelPricing
}

// WithPolicy sets the policy configuration.
func WithPolicy(p *policy.Config) Option {
	return func(o *orchestratorOptions) { o.policyConfig = p }
}

// WithLogger sets the debug logger.
func WithLogger(l *DebugLogger) Option {
	return func(o *orchestratorOptions) { o.logger = l }
}

// WithStore sets the persistence layer. Without one, state lives only as
// long as the Orchestrator.
func WithStore(s state.StateStore) Option {
	return func(o *orchestratorOptions) { o.store = s }
}

// WithProcessRunner sets the process runner (mainly for testing).
func WithProcessRunner(r iexec.ProcessRunner) Option {
	return func(o *orchestratorOptions) { o.runner = r }
}

// WithMatcher sets a custom capability matcher.
func WithMatcher(m *Matcher) Option {
	return func(o *orchestratorOptions) { o.matcher = m }
}

// WithWorkerArgs sets extra arguments passed to every worker.
func WithWorkerArgs(args []string) Option {
	return func(o *orchestratorOptions) { o.workerArgs = args }
}

// WithWorkerEnv sets extra environment entries for every worker.
func WithWorkerEnv(env []string) Option {
	return func(o *orchestratorOptions) { o.workerEnv = env }
}

// WithPricing overrides the model pricing used for usage cost.
func WithPricing(p map[string]usage.ModelPricing) Option {
	return func(o *orchestratorOptions) { o.pricing = p }
}
