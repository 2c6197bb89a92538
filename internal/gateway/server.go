// Package gateway exposes an Orchestrator over a JSON HTTP API with an
// optional bearer-token check and a Server-Sent Events stream.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ShayCichocki/orcbot/internal/orchestrator"
	"github.com/ShayCichocki/orcbot/internal/progress"
	"github.com/ShayCichocki/orcbot/internal/usage"
	"github.com/ShayCichocki/orcbot/pkg/models"
)

const maxBodyBytes = 1 << 20

// Fleet is the orchestrator surface the gateway serves.
type Fleet interface {
	SpawnAgent(spec models.AgentSpec) (*models.Agent, error)
	ListAgents() []*models.Agent
	GetAgent(agentID string) (*models.Agent, error)
	StartWorkerProcess(agentID string) (bool, error)
	StopWorkerProcess(agentID string) (bool, error)
	DelegateTask(agentID, description string, priority int) (*models.Task, error)
	DistributeTaskList(descriptions []string) ([]*models.Task, error)
	Broadcast(senderID, message string) int
	TerminateAgent(agentID string) (bool, error)
	GetStatus() models.FleetStatus
	GetRunningWorkers() []models.RunningWorker
	GetDetailedWorkerStatus() []models.WorkerDetail
	GetAggregateWorkerTokenUsage() []models.TokenUsageRecord
	ListTasks(status *models.TaskStatus) []*models.Task
	GetTask(taskID string) (*models.Task, error)
	ApplyProgress(agentID string, r *progress.Report) error
	Subscribe() (<-chan orchestrator.OrchestratorEvent, func())
}

// Server routes HTTP requests to a Fleet.
type Server struct {
	fleet     Fleet
	auth      *Auth
	mux       *http.ServeMux
	keepAlive time.Duration
}

// NewServer builds the route table. auth may be nil.
func NewServer(fleet Fleet, auth *Auth) *Server {
	s := &Server{
		fleet:     fleet,
		auth:      auth,
		mux:       http.NewServeMux(),
		keepAlive: 15 * time.Second,
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /workers", s.handleWorkers)
	s.mux.HandleFunc("GET /workers/detail", s.handleWorkerDetail)
	s.mux.HandleFunc("GET /usage", s.handleUsage)
	s.mux.HandleFunc("GET /agents", s.handleListAgents)
	s.mux.HandleFunc("POST /agents", s.handleSpawnAgent)
	s.mux.HandleFunc("GET /agents/{id}", s.handleGetAgent)
	s.mux.HandleFunc("DELETE /agents/{id}", s.handleTerminateAgent)
	s.mux.HandleFunc("POST /agents/{id}/start", s.handleStartWorker)
	s.mux.HandleFunc("POST /agents/{id}/stop", s.handleStopWorker)
	s.mux.HandleFunc("POST /agents/{id}/progress", s.handleProgress)
	s.mux.HandleFunc("GET /tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /tasks", s.handleDelegate)
	s.mux.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	s.mux.HandleFunc("POST /tasks/distribute", s.handleDistribute)
	s.mux.HandleFunc("POST /broadcast", s.handleBroadcast)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	return s
}

// Handler returns the root handler with auth applied.
func (s *Server) Handler() http.Handler {
	return AuthMiddleware(s.auth, s.mux)
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[gateway] listening on %s (auth=%t)", addr, s.auth != nil)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Request bodies.
type (
	delegateRequest struct {
		AgentID     string `json:"agent_id"`
		Description string `json:"description"`
		Priority    int    `json:"priority"`
	}
	distributeRequest struct {
		Descriptions []string `json:"descriptions"`
	}
	broadcastRequest struct {
		SenderID string `json:"sender_id"`
		Message  string `json:"message"`
	}
)

type usageResponse struct {
	Agents []models.TokenUsageRecord `json:"agents"`
	Total  models.TokenUsageRecord   `json:"total"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fleet.GetStatus())
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.fleet.GetRunningWorkers()))
}

func (s *Server) handleWorkerDetail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.fleet.GetDetailedWorkerStatus()))
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	records := nonNil(s.fleet.GetAggregateWorkerTokenUsage())
	writeJSON(w, http.StatusOK, usageResponse{Agents: records, Total: usage.Sum(records)})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(s.fleet.ListAgents()))
}

func (s *Server) handleSpawnAgent(w http.ResponseWriter, r *http.Request) {
	var spec models.AgentSpec
	if !decodeBody(w, r, &spec) {
		return
	}
	a, err := s.fleet.SpawnAgent(spec)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := s.fleet.GetAgent(r.PathValue("id"))
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleTerminateAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := s.fleet.TerminateAgent(id)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %s", orchestrator.ErrUnknownAgent, id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"terminated": true})
}

func (s *Server) handleStartWorker(w http.ResponseWriter, r *http.Request) {
	started, err := s.fleet.StartWorkerProcess(r.PathValue("id"))
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

func (s *Server) handleStopWorker(w http.ResponseWriter, r *http.Request) {
	stopped, err := s.fleet.StopWorkerProcess(r.PathValue("id"))
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var report progress.Report
	if !decodeBody(w, r, &report) {
		return
	}
	if report.Status != "" && !report.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", report.Status))
		return
	}
	if err := s.fleet.ApplyProgress(r.PathValue("id"), &report); err != nil {
		writeFleetError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var filter *models.TaskStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := models.TaskStatus(v)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", v))
			return
		}
		filter = &st
	}
	writeJSON(w, http.StatusOK, nonNil(s.fleet.ListTasks(filter)))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.fleet.GetTask(r.PathValue("id"))
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req delegateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := s.fleet.DelegateTask(req.AgentID, req.Description, req.Priority)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tasks, err := s.fleet.DistributeTaskList(req.Descriptions)
	if err != nil {
		writeFleetError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nonNil(tasks))
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SenderID == "" {
		req.SenderID = SubjectFromContext(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]int{"delivered": s.fleet.Broadcast(req.SenderID, req.Message)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the headers go out so no event after the response
	// starts is missed.
	events, cancel := s.fleet.Subscribe()
	defer cancel()

	sse := newSSEWriter(w)
	if sse == nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := sse.sendComment("ping"); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := sse.sendEvent(string(ev.Type), ev); err != nil {
				return
			}
		}
	}
}

// decodeBody reads a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeFleetError maps caller errors to 4xx and everything else to 500.
func writeFleetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownAgent), errors.Is(err, orchestrator.ErrUnknownTask):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrInvalidName), errors.Is(err, orchestrator.ErrEmptyDescription):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[gateway] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[gateway] writeJSON error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
