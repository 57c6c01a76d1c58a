package settings

import (
	"context"
	"log/slog"
	"sync"
)

// Manager owns one AutoSaver per user, creating loops lazily as edits
// arrive and tearing them all down on shutdown.
type Manager struct {
	service *Service
	logger  *slog.Logger
	opts    []AutoSaverOption

	mu     sync.Mutex
	ctx    context.Context
	savers map[int64]*AutoSaver
	closed bool
}

// NewManager constructs the auto-save coordinator.
func NewManager(service *Service, logger *slog.Logger, opts ...AutoSaverOption) *Manager {
	return &Manager{
		service: service,
		logger:  logger,
		opts:    opts,
		ctx:     context.Background(),
		savers:  make(map[int64]*AutoSaver),
	}
}

// Start records the lifetime context new loops run under.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx != nil {
		m.ctx = ctx
	}
}

// Edit routes one change to the user's debounce loop.
func (m *Manager) Edit(userID int64, req UpdateRequest) {
	if saver := m.saver(userID); saver != nil {
		saver.Edit(req)
	}
}

// Flush persists any buffered edit for the user immediately.
func (m *Manager) Flush(ctx context.Context, userID int64) (Settings, error) {
	saver := m.saver(userID)
	if saver == nil {
		return m.service.Get(ctx, userID)
	}
	return saver.Flush(ctx)
}

// State reports the user's loop state; users without a loop are idle.
func (m *Manager) State(userID int64) State {
	m.mu.Lock()
	saver := m.savers[userID]
	m.mu.Unlock()
	if saver == nil {
		return StateIdle
	}
	return saver.State()
}

// Shutdown stops every loop, waiting for in-flight saves.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.closed = true
	savers := make([]*AutoSaver, 0, len(m.savers))
	for _, saver := range m.savers {
		savers = append(savers, saver)
	}
	m.savers = make(map[int64]*AutoSaver)
	m.mu.Unlock()

	for _, saver := range savers {
		saver.Stop()
	}
}

func (m *Manager) saver(userID int64) *AutoSaver {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	saver, ok := m.savers[userID]
	if !ok {
		saver = NewAutoSaver(m.service, userID, m.logger, m.opts...)
		saver.Start(m.ctx)
		m.savers[userID] = saver
	}
	return saver
}
