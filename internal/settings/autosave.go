package settings

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State names the auto-save loop's position in its lifecycle.
type State int32

const (
	// StateIdle means no edit is waiting and no save is running.
	StateIdle State = iota
	// StatePending means an edit is buffered and the quiet-period timer is
	// armed.
	StatePending
	// StateSaving means a save is in flight. Edits arriving now are merged
	// into one follow-up save.
	StateSaving
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSaving:
		return "saving"
	default:
		return "idle"
	}
}

// DefaultQuietPeriod is how long the loop waits after the last edit before
// persisting.
const DefaultQuietPeriod = time.Second

// saveTimer abstracts time.Timer so tests can fire the quiet period
// deterministically.
type saveTimer interface {
	C() <-chan time.Time
	Stop() bool
}

type realTimer struct{ *time.Timer }

func (t realTimer) C() <-chan time.Time { return t.Timer.C }

func newRealTimer(d time.Duration) saveTimer {
	return realTimer{time.NewTimer(d)}
}

type command struct {
	req   UpdateRequest
	flush bool
	done  chan Settings
}

type saveResult struct {
	saved Settings
	err   error
}

// AutoSaver debounces settings edits for one user. Each edit arms a quiet
// period; only after the user stops typing does the merged document hit the
// store. An edit arriving mid-save is buffered and written exactly once
// after the running save completes, so a burst of edits never produces more
// than one trailing write.
type AutoSaver struct {
	service  *Service
	userID   int64
	logger   *slog.Logger
	quiet    time.Duration
	newTimer func(time.Duration) saveTimer

	cmds  chan command
	state atomic.Int32

	startOnce sync.Once
	stopOnce  sync.Once
	stopped   chan struct{}
	finished  chan struct{}
}

// AutoSaverOption tunes an AutoSaver.
type AutoSaverOption func(*AutoSaver)

// WithQuietPeriod overrides the debounce interval.
func WithQuietPeriod(d time.Duration) AutoSaverOption {
	return func(a *AutoSaver) {
		if d > 0 {
			a.quiet = d
		}
	}
}

// withTimerFactory injects the timer constructor, used by tests to fire the
// quiet period on demand.
func withTimerFactory(fn func(time.Duration) saveTimer) AutoSaverOption {
	return func(a *AutoSaver) {
		if fn != nil {
			a.newTimer = fn
		}
	}
}

// NewAutoSaver constructs the debounce loop for one user. Call Start before
// submitting edits.
func NewAutoSaver(service *Service, userID int64, logger *slog.Logger, opts ...AutoSaverOption) *AutoSaver {
	a := &AutoSaver{
		service:  service,
		userID:   userID,
		logger:   logger,
		quiet:    DefaultQuietPeriod,
		newTimer: newRealTimer,
		cmds:     make(chan command, 16),
		stopped:  make(chan struct{}),
		finished: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start launches the loop. It runs until Stop is called or ctx is
// cancelled.
func (a *AutoSaver) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		go a.run(ctx)
	})
}

// Stop tears the loop down. A pending quiet-period timer is cancelled
// without saving; a save already in flight finishes first. Stop blocks
// until the loop has exited.
func (a *AutoSaver) Stop() {
	a.stopOnce.Do(func() { close(a.stopped) })
	<-a.finished
}

// Edit submits one settings change. It never blocks the caller; the merged
// document is persisted after the quiet period elapses.
func (a *AutoSaver) Edit(req UpdateRequest) {
	select {
	case a.cmds <- command{req: req}:
	case <-a.finished:
	}
}

// Flush forces any buffered edit to save immediately and returns the
// persisted settings. With nothing buffered it returns the stored document.
func (a *AutoSaver) Flush(ctx context.Context) (Settings, error) {
	done := make(chan Settings, 1)
	select {
	case a.cmds <- command{flush: true, done: done}:
	case <-a.finished:
		return a.service.Get(ctx, a.userID)
	}
	select {
	case s := <-done:
		return s, nil
	case <-ctx.Done():
		return Settings{}, ctx.Err()
	case <-a.finished:
		return a.service.Get(ctx, a.userID)
	}
}

// State reports the loop's current state.
func (a *AutoSaver) State() State {
	return State(a.state.Load())
}

func (a *AutoSaver) run(ctx context.Context) {
	defer close(a.finished)

	var (
		pending    *UpdateRequest
		tm         saveTimer
		timerC     <-chan time.Time
		saving     chan saveResult
		flushQueue []chan Settings
	)

	disarm := func() {
		if tm != nil {
			tm.Stop()
			tm = nil
			timerC = nil
		}
	}

	startSave := func() {
		req := *pending
		pending = nil
		disarm()
		a.state.Store(int32(StateSaving))
		saving = make(chan saveResult, 1)
		ch := saving
		go func() {
			saved, err := a.service.Apply(ctx, a.userID, req)
			ch <- saveResult{saved: saved, err: err}
		}()
	}

	for {
		select {
		case cmd := <-a.cmds:
			if cmd.flush {
				if cmd.done != nil {
					flushQueue = append(flushQueue, cmd.done)
				}
				if saving != nil {
					continue
				}
				if pending != nil {
					startSave()
					continue
				}
				a.resolveFlushes(ctx, &flushQueue, nil)
				continue
			}

			merged := mergeRequests(pending, cmd.req)
			pending = &merged
			if saving != nil {
				// Coalesce into the follow-up save.
				continue
			}
			disarm()
			tm = a.newTimer(a.quiet)
			timerC = tm.C()
			a.state.Store(int32(StatePending))

		case <-timerC:
			tm = nil
			timerC = nil
			if pending != nil {
				startSave()
			}

		case res := <-saving:
			saving = nil
			if res.err != nil && a.logger != nil {
				a.logger.Error("settings auto-save failed",
					slog.Int64("user_id", a.userID),
					slog.Any("error", res.err))
			}
			if pending != nil {
				// One trailing save for everything that arrived mid-flight.
				startSave()
				continue
			}
			a.resolveFlushes(ctx, &flushQueue, &res)
			a.state.Store(int32(StateIdle))

		case <-a.stopped:
			disarm()
			if saving != nil {
				res := <-saving
				if res.err != nil && a.logger != nil {
					a.logger.Error("settings auto-save failed",
						slog.Int64("user_id", a.userID),
						slog.Any("error", res.err))
				}
			}
			a.state.Store(int32(StateIdle))
			return

		case <-ctx.Done():
			disarm()
			if saving != nil {
				<-saving
			}
			a.state.Store(int32(StateIdle))
			return
		}
	}
}

func (a *AutoSaver) resolveFlushes(ctx context.Context, queue *[]chan Settings, last *saveResult) {
	if len(*queue) == 0 {
		return
	}
	var snapshot Settings
	if last != nil && last.err == nil {
		snapshot = last.saved
	} else {
		stored, err := a.service.Get(ctx, a.userID)
		if err == nil {
			snapshot = stored
		}
	}
	for _, done := range *queue {
		done <- snapshot
	}
	*queue = nil
}

func mergeRequests(base *UpdateRequest, next UpdateRequest) UpdateRequest {
	if base == nil {
		return next
	}
	merged := *base
	if next.DistanceUnit != nil {
		merged.DistanceUnit = next.DistanceUnit
	}
	if next.VolumeUnit != nil {
		merged.VolumeUnit = next.VolumeUnit
	}
	if next.Currency != nil {
		merged.Currency = next.Currency
	}
	if next.DefaultGarageID != nil {
		merged.DefaultGarageID = next.DefaultGarageID
	}
	if next.EmailReminders != nil {
		merged.EmailReminders = next.EmailReminders
	}
	if next.ReminderDays != nil {
		merged.ReminderDays = next.ReminderDays
	}
	if next.MaxDocumentMB != nil {
		merged.MaxDocumentMB = next.MaxDocumentMB
	}
	return merged
}
