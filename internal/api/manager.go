package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"siteaudit/internal/pipeline"
	"siteaudit/pkg/types"
)

var (
	// ErrRunActive is returned when the project already has a run in flight.
	ErrRunActive = errors.New("analysis already running for project")
	// ErrMaxConcurrency signals that the global concurrency limit has been reached.
	ErrMaxConcurrency = errors.New("maximum concurrent analyses reached")
)

// Runner executes one analysis run. Satisfied by pipeline.Driver; tests
// substitute fakes.
type Runner interface {
	Analyze(ctx context.Context, projectID, siteURL string) (*pipeline.Report, error)
}

// RunManager serialises analysis runs per project and caps how many may run
// at once across all projects. It also keeps the latest run state in memory
// so project snapshots can be served without a database round trip.
type RunManager struct {
	runner         Runner
	maxConcurrency int
	rootCtx        context.Context

	mu       sync.RWMutex
	projects map[string]*ProjectState
	running  int
}

// NewRunManager constructs a manager with the provided limits.
func NewRunManager(runner Runner, maxConcurrency int, rootCtx context.Context) *RunManager {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	if rootCtx == nil {
		rootCtx = context.Background()
	}
	return &RunManager{
		runner:         runner,
		maxConcurrency: maxConcurrency,
		rootCtx:        rootCtx,
		projects:       make(map[string]*ProjectState),
	}
}

// Run executes an analysis for the project and blocks until it finishes. The
// per-project guard rejects overlapping runs; the global cap rejects runs
// beyond the configured concurrency.
func (m *RunManager) Run(projectID, siteURL string) (ProjectState, error) {
	projectID = strings.ToLower(strings.TrimSpace(projectID))
	if projectID == "" {
		return ProjectState{}, fmt.Errorf("project id is required")
	}
	siteURL = strings.TrimSpace(siteURL)
	if siteURL == "" {
		return ProjectState{}, fmt.Errorf("url is required")
	}

	started := time.Now()
	m.mu.Lock()
	if state, ok := m.projects[projectID]; ok && state.Status == types.ProjectStatusAnalyzing {
		m.mu.Unlock()
		return ProjectState{}, ErrRunActive
	}
	if m.running >= m.maxConcurrency {
		m.mu.Unlock()
		return ProjectState{}, ErrMaxConcurrency
	}
	m.running++
	m.projects[projectID] = &ProjectState{
		ProjectID: projectID,
		SiteURL:   siteURL,
		Status:    types.ProjectStatusAnalyzing,
		StartedAt: &started,
	}
	m.mu.Unlock()

	report, err := m.runner.Analyze(m.rootCtx, projectID, siteURL)
	completed := time.Now()

	m.mu.Lock()
	if m.running > 0 {
		m.running--
	}
	state := m.projects[projectID]
	state.CompletedAt = &completed
	if err != nil {
		state.Status = types.ProjectStatusFailed
		state.Error = err.Error()
	} else {
		state.Status = types.ProjectStatusCompleted
		state.Report = report
	}
	snapshot := *state
	m.mu.Unlock()

	if err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

// Get returns the latest known state for a project.
func (m *RunManager) Get(projectID string) (ProjectState, bool) {
	projectID = strings.ToLower(strings.TrimSpace(projectID))
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.projects[projectID]
	if !ok {
		return ProjectState{}, false
	}
	return *state, true
}

// List returns the state of every project the manager has seen.
func (m *RunManager) List() []ProjectState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make([]ProjectState, 0, len(m.projects))
	for _, state := range m.projects {
		states = append(states, *state)
	}
	return states
}
