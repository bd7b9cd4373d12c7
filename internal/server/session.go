package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/namecard-ai/namecard-scanner/internal/common"
	"github.com/namecard-ai/namecard-scanner/internal/entity"
	"github.com/namecard-ai/namecard-scanner/internal/history"
	"github.com/namecard-ai/namecard-scanner/internal/llm"
	"github.com/namecard-ai/namecard-scanner/internal/llm/watsonx"
	"github.com/namecard-ai/namecard-scanner/internal/pipeline"
	"github.com/namecard-ai/namecard-scanner/internal/queue"
	"github.com/namecard-ai/namecard-scanner/internal/results"
)

// MaxSessions limits concurrent sessions to bound memory.
const MaxSessions = 10

// Run states for a session's extraction batch.
const (
	RunIdle      = "idle"
	RunActive    = "running"
	RunComplete  = "complete"
	RunCancelled = "cancelled"
)

// RunState is the polled progress view of a session's batch run.
type RunState struct {
	Status    string `json:"status"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Session is one operator's workspace: the pending image queue, the latest
// result set, the extraction configuration, and the state of at most one
// in-flight batch run.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastAccessed time.Time
	Queue        *queue.Queue
	Store        *results.Store

	// config, run and cancel are guarded by Manager.mu.
	config common.WatsonxConfig
	run    RunState
	cancel context.CancelFunc
}

// InferencerFactory builds the inference client for a run; injectable so
// tests can substitute a stub for the hosted service.
type InferencerFactory func(cfg common.WatsonxConfig) llm.Inferencer

// Manager owns the live sessions and drives batch runs.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
	history  *history.Store // nil when archiving is disabled
	factory  InferencerFactory
	defaults common.WatsonxConfig
}

func NewManager(defaults common.WatsonxConfig, hist *history.Store, factory InferencerFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = func(cfg common.WatsonxConfig) llm.Inferencer {
			return watsonx.NewClient(watsonx.Config{
				URL:          cfg.URL,
				APIKey:       cfg.APIKey,
				ProjectID:    cfg.ProjectID,
				Model:        cfg.Model,
				MaxNewTokens: cfg.MaxNewTokens,
				Temperature:  cfg.Temperature,
				TopP:         cfg.TopP,
				TopK:         cfg.TopK,
				Timeout:      cfg.Timeout,
			}, logger)
		}
	}
	return &Manager{
		sessions: make(map[string]*Session),
		logger:   logger,
		history:  hist,
		factory:  factory,
		defaults: defaults,
	}
}

// CreateSession opens a new session seeded with the server's default config.
func (m *Manager) CreateSession() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= MaxSessions {
		m.evictOldestIdleLocked()
	}

	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		Queue:        queue.New(),
		Store:        results.NewStore(),
		config:       m.defaults,
		run:          RunState{Status: RunIdle},
	}
	m.sessions[s.ID] = s
	m.logger.Info("session.created", "session_id", s.ID)
	return s, nil
}

func (m *Manager) evictOldestIdleLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		if s.run.Status == RunActive {
			continue
		}
		if oldestID == "" || s.LastAccessed.Before(oldest) {
			oldestID, oldest = id, s.LastAccessed
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		m.logger.Info("session.evicted", "session_id", oldestID)
	}
}

// GetSession returns a session by ID, refreshing its access time.
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.LastAccessed = time.Now()
	}
	return s, ok
}

// DeleteSession removes a session; an active run keeps going until its next
// item boundary, then stops.
func (m *Manager) DeleteSession(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	if s.cancel != nil {
		s.cancel()
	}
	delete(m.sessions, id)
	m.logger.Info("session.deleted", "session_id", id)
	return true
}

// SetConfig replaces the session's extraction configuration.
func (m *Manager) SetConfig(id string, cfg common.WatsonxConfig) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.config = cfg
	return true
}

// Config returns a snapshot of the session's extraction configuration.
// The session config is only ever touched under mu; handlers must read it
// through here, never off the raw Session.
func (m *Manager) Config(id string) (common.WatsonxConfig, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return common.WatsonxConfig{}, false
	}
	return s.config, true
}

// UpdateConfig applies fn to the session's configuration atomically and
// returns the resulting snapshot.
func (m *Manager) UpdateConfig(id string, fn func(*common.WatsonxConfig)) (common.WatsonxConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return common.WatsonxConfig{}, false
	}
	fn(&s.config)
	return s.config, true
}

// RunState returns the session's current run progress.
func (m *Manager) RunState(id string) (RunState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return RunState{}, false
	}
	return s.run, true
}

// StartRun kicks off a batch over the session's queue. The items are
// processed strictly sequentially in a background goroutine; progress is
// observable via RunState. mode "append" accumulates onto the previous
// result set instead of replacing it.
func (m *Manager) StartRun(id, mode string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return common.NewAppError("NOT_FOUND", "session "+id, common.ErrNotFound)
	}
	if s.run.Status == RunActive {
		m.mu.Unlock()
		return common.NewAppError("RUN_ACTIVE", "a batch run is already in progress", common.ErrInvalidInput)
	}
	if err := s.config.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	images := s.Queue.Items()
	if len(images) == 0 {
		m.mu.Unlock()
		return common.NewAppError("EMPTY_QUEUE", "no images queued for extraction", common.ErrInvalidInput)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.run = RunState{Status: RunActive, Completed: 0, Total: len(images)}
	cfg := s.config
	m.mu.Unlock()

	go m.runBatch(ctx, id, cfg, images, mode)
	return nil
}

func (m *Manager) runBatch(ctx context.Context, id string, cfg common.WatsonxConfig, images []queue.ImageRecord, mode string) {
	startedAt := time.Now()

	runner := pipeline.NewRunner(m.factory(cfg), &llm.Parser{Logger: m.logger}, m.logger)
	runner.Progress = func(completed, total int) {
		m.mu.Lock()
		if s, ok := m.sessions[id]; ok {
			s.run.Completed = completed
			s.run.Total = total
		}
		m.mu.Unlock()
	}

	records, runErr := runner.Run(ctx, images)

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.cancel = nil

	if mode == "append" {
		s.Store.Append(records)
	} else {
		s.Store.ReplaceAll(records)
	}
	for _, img := range images[:len(records)] {
		s.Store.PutImage(img.Name, img.Bytes)
	}

	if runErr != nil {
		s.run.Status = RunCancelled
	} else {
		s.run.Status = RunComplete
	}
	s.run.Completed = len(records)

	if m.history != nil && len(records) > 0 {
		if _, err := m.history.SaveRun(context.Background(), startedAt, records); err != nil {
			m.logger.Warn("session.history_save_failed", "session_id", id, "error", err)
		}
	}
}

// CancelRun requests cooperative cancellation at the next item boundary.
func (m *Manager) CancelRun(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.run.Status != RunActive || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Records returns the session's current record set.
func (m *Manager) Records(id string) ([]entity.ContactRecord, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.Store.Records(), true
}
