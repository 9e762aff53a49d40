package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/reedboard/internal/board"
	"github.com/roach88/reedboard/internal/rules"
	"github.com/roach88/reedboard/internal/tracker"
)

// GridSource produces a fresh occupancy snapshot on demand. The engine never calls Read
// concurrently with itself.
type GridSource interface {
	Read(ctx context.Context) (board.Snapshot, error)
}

// Authority is the chess rules authority. PieceAt is consulted before a lifted piece is
// removed from the game, so it always answers for the position prior to the move.
type Authority interface {
	tracker.Lookup
	Apply(m board.Move) (rules.Verdict, error)
	Reset()
	Turn() board.Color
	FEN() string
	MoveCount() int
}

// ScanResult is what one grid read amounted to.
type ScanResult struct {
	Seq       int64              `json:"seq"`
	Snapshot  board.Snapshot     `json:"snapshot"`
	Changes   []board.Transition `json:"changes,omitempty"`
	Rearmed   bool               `json:"rearmed,omitempty"`
	Cancelled bool               `json:"cancelled,omitempty"`
	Move      *MoveEvent         `json:"move,omitempty"`
	State     SyncState          `json:"state"`
	Indicator Level              `json:"indicator"`
	Pending   int                `json:"pending"`
}

// Engine is the single-writer scan pipeline.
//
// Producers (edge watcher, poller, API handlers) call Signal or RequestNewGame from any
// goroutine; Run drains those events one at a time and is the only writer of the tracker,
// the rules authority and the sync state. Status and the query methods read a copy published
// under a lock at the end of every scan, so they never see a half-processed scan.
//
// Scan and NewGame may be called directly instead of running Run, but never both at once.
type Engine struct {
	src       GridSource
	authority Authority
	tracker   *tracker.Tracker
	clock     *Clock
	sessions  SessionIDGenerator
	indicator Indicator
	queue     *eventQueue
	notify    *broadcaster

	// Event-loop state.
	state    SyncState
	last     board.Snapshot
	session  string
	gameOver bool
	result   string
	lastMove *board.Move
	desync   string
	fault    string
	shown    bool
	level    Level

	mu     sync.RWMutex
	status Status
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessions sets the session id generator. Default: UUIDv7Generator.
func WithSessions(g SessionIDGenerator) Option {
	return func(e *Engine) {
		e.sessions = g
	}
}

// WithIndicator sets the operator indicator. Default: none.
func WithIndicator(ind Indicator) Option {
	return func(e *Engine) {
		e.indicator = ind
	}
}

// WithClock resumes scan numbering from an existing clock.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New returns an engine in WAITING_FOR_START.
func New(src GridSource, authority Authority, opts ...Option) *Engine {
	e := &Engine{
		src:       src,
		authority: authority,
		tracker:   tracker.New(),
		clock:     NewClock(),
		sessions:  UUIDv7Generator{},
		queue:     newEventQueue(),
		notify:    newBroadcaster(),
		state:     StateWaitingForStart,
		level:     LevelRed,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.publishStatus()
	return e
}

// Signal asks the Run loop for a fresh scan. Safe from any goroutine; never blocks.
// Returns false once the engine is stopped.
func (e *Engine) Signal(source string) bool {
	return e.queue.Enqueue(Event{Type: EventTypeScan, Source: source})
}

// RequestNewGame asks the Run loop to drop the current session and wait for the start
// position again. Safe from any goroutine.
func (e *Engine) RequestNewGame(source string) bool {
	return e.queue.Enqueue(Event{Type: EventTypeNewGame, Source: source})
}

// Subscribe returns a channel of notifications and a cancel func. A subscriber that falls
// more than buffer notifications behind misses the overflow; the engine never waits.
// Once Run has returned the channel comes back already closed.
func (e *Engine) Subscribe(buffer int) (<-chan Notification, func()) {
	return e.notify.subscribe(buffer)
}

// Dropped returns how many notifications slow subscribers have missed.
func (e *Engine) Dropped() int64 {
	return e.notify.dropped.Load()
}

// Run processes queued events until ctx is cancelled or Stop is called.
// Must be called from exactly one goroutine.
//
// A failing scan is logged and the loop carries on: a desync is already reflected in the
// sync state and a fault clears itself on the next good read.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "state", e.state)
	defer e.notify.closeAll()

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if err := e.processEvent(ctx, event); err != nil {
				logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 && e.queue.isClosed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue; Run returns once queued events are drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeScan:
		_, err := e.Scan(ctx)
		return err
	case EventTypeNewGame:
		_, err := e.NewGame(ctx)
		return err
	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

func logEventError(event Event, err error) {
	switch {
	case IsDesync(err):
		slog.Warn("scan desynced",
			"source", event.Source,
			"error", err,
		)
	case IsFault(err):
		slog.Error("scan fault",
			"source", event.Source,
			"error", err,
		)
	default:
		slog.Error("event processing failed",
			"type", event.Type,
			"source", event.Source,
			"error", err,
		)
	}
}

// NewGame drops the current session, returns to WAITING_FOR_START and scans at once, so a
// board already standing in the start position re-arms immediately.
func (e *Engine) NewGame(ctx context.Context) (ScanResult, error) {
	slog.Info("new game requested", "session", e.session)

	e.tracker.Reset()
	e.authority.Reset()
	e.gameOver = false
	e.result = ""
	e.lastMove = nil
	e.desync = ""
	e.session = ""
	e.setState(StateWaitingForStart, "new_game")
	e.refresh()

	return e.Scan(ctx)
}

// Scan reads the grid once and runs it through the pipeline:
//
//  1. start-position check (every read, whatever the state)
//  2. diff against the last known snapshot
//  3. pending-move tracker
//  4. rules authority for a resolved move
//  5. indicator and status
//
// A returned *DesyncError means the scan drove the engine into DESYNCED; a *FaultError means
// a collaborator failed and nothing advanced.
func (e *Engine) Scan(ctx context.Context) (ScanResult, error) {
	defer e.refresh()

	snap, err := e.src.Read(ctx)
	if err != nil {
		e.fault = err.Error()
		return e.result0(0, board.Snapshot{}), &FaultError{Op: "read_grid", Err: err}
	}
	e.fault = ""

	seq := e.clock.Next()
	e.notify.publish(Notification{
		Kind:     NotifyScan,
		Seq:      seq,
		Session:  e.session,
		Snapshot: snap,
		State:    e.state,
	})

	if e.shouldRearm(snap) {
		e.rearm(seq, snap)
		res := e.result0(seq, snap)
		res.Rearmed = true
		return res, nil
	}

	prev := e.last
	e.last = snap

	if e.state != StateActive || e.gameOver {
		return e.result0(seq, snap), nil
	}

	changes := board.Diff(prev, snap)
	res := e.result0(seq, snap)
	res.Changes = changes
	if len(changes) == 0 {
		return res, nil
	}

	slog.Debug("scan changes",
		"seq", seq,
		"session", e.session,
		"changes", fmt.Sprint(changes),
	)

	if len(changes) > tracker.MaxPending {
		return e.finish(res, e.desyncWith(&DesyncError{
			Kind:    DesyncStructural,
			Code:    CodeTooManyChanges,
			Message: fmt.Sprintf("%d squares changed in one scan", len(changes)),
			Seq:     seq,
			Session: e.session,
		}))
	}

	saved := *e.tracker
	outcome, err := e.tracker.Apply(changes, e.authority)
	if err != nil {
		return e.finish(res, e.desyncWith(structural(seq, e.session, err)))
	}

	switch outcome.Kind {
	case tracker.OutcomeCancelled:
		res.Cancelled = true
		slog.Debug("piece put back", "seq", seq, "piece", outcome.Mover.String())

	case tracker.OutcomeResolved:
		verdict, err := e.authority.Apply(outcome.Move)
		if err != nil {
			// Nothing happened: the next scan diffs against prev again.
			*e.tracker = saved
			e.last = prev
			e.fault = err.Error()
			return e.finish(res, &FaultError{Op: "apply_move", Err: err})
		}
		if !verdict.Accepted {
			move := outcome.Move
			return e.finish(res, e.desyncWith(&DesyncError{
				Kind:    DesyncRejected,
				Code:    CodeIllegalMove,
				Message: fmt.Sprintf("%s %s is not legal", outcome.Mover, move),
				Seq:     seq,
				Session: e.session,
				Move:    &move,
			}))
		}
		res.Move = e.accept(seq, outcome, verdict)
	}

	return e.finish(res, nil)
}

func (e *Engine) shouldRearm(snap board.Snapshot) bool {
	if !snap.IsStart() {
		return false
	}
	if e.state != StateActive {
		return true
	}
	// A piece put back before the first move is a cancelled lift, not a new game.
	if e.authority.MoveCount() == 0 && e.tracker.Len() > 0 {
		return false
	}
	// Already tracking: only a board that was somewhere else and came back starts over.
	return snap != e.last
}

func (e *Engine) rearm(seq int64, snap board.Snapshot) {
	e.authority.Reset()
	e.tracker.Reset()
	e.last = snap
	e.gameOver = false
	e.result = ""
	e.lastMove = nil
	e.desync = ""
	e.session = e.sessions.Generate()

	slog.Info("start position recognised",
		"seq", seq,
		"session", e.session,
		"from_state", e.state,
	)
	e.setStateForce(StateActive, "start_position", seq)
}

func (e *Engine) accept(seq int64, outcome tracker.Outcome, verdict rules.Verdict) *MoveEvent {
	move := outcome.Move
	e.lastMove = &move
	e.gameOver = verdict.GameOver
	e.result = verdict.Result

	ev := &MoveEvent{
		Move:     move,
		SAN:      verdict.SAN,
		Mover:    outcome.Mover,
		Captured: outcome.Captured,
		Turn:     verdict.Turn,
		GameOver: verdict.GameOver,
		Result:   verdict.Result,
	}

	slog.Info("move accepted",
		"seq", seq,
		"session", e.session,
		"move", move.String(),
		"san", verdict.SAN,
		"turn", verdict.Turn,
	)
	if verdict.GameOver {
		slog.Info("game over",
			"seq", seq,
			"session", e.session,
			"result", verdict.Result,
			"method", verdict.Method,
		)
	}

	e.notify.publish(Notification{
		Kind:     NotifyMove,
		Seq:      seq,
		Session:  e.session,
		Snapshot: e.last,
		Move:     ev,
		State:    e.state,
	})
	return ev
}

func (e *Engine) desyncWith(de *DesyncError) *DesyncError {
	e.tracker.Reset()
	e.desync = de.Error()
	e.setState(StateDesynced, de.Code)
	return de
}

func (e *Engine) finish(res ScanResult, err error) (ScanResult, error) {
	res.State = e.state
	res.Pending = e.tracker.Len()
	res.Indicator = IndicatorFor(e.state, res.Pending)
	return res, err
}

func (e *Engine) result0(seq int64, snap board.Snapshot) ScanResult {
	pending := e.tracker.Len()
	return ScanResult{
		Seq:       seq,
		Snapshot:  snap,
		State:     e.state,
		Pending:   pending,
		Indicator: IndicatorFor(e.state, pending),
	}
}

func (e *Engine) setState(next SyncState, reason string) {
	if next == e.state {
		return
	}
	e.setStateForce(next, reason, e.clock.Current())
}

func (e *Engine) setStateForce(next SyncState, reason string, seq int64) {
	prev := e.state
	e.state = next
	if prev != next {
		slog.Info("sync state changed",
			"seq", seq,
			"session", e.session,
			"from", prev,
			"to", next,
			"reason", reason,
		)
	}
	e.notify.publish(Notification{
		Kind:     NotifyState,
		Seq:      seq,
		Session:  e.session,
		Snapshot: e.last,
		State:    next,
		Reason:   reason,
	})
}

// refresh pushes the indicator level if it changed and publishes a fresh Status.
func (e *Engine) refresh() {
	level := IndicatorFor(e.state, e.tracker.Len())
	if e.indicator != nil && (!e.shown || level != e.level) {
		if err := e.indicator.Show(level); err != nil {
			slog.Warn("indicator update failed", "level", level, "error", err)
		} else {
			e.shown = true
		}
	}
	e.level = level
	e.publishStatus()
}

func (e *Engine) publishStatus() {
	st := Status{
		State:     e.state,
		Indicator: IndicatorFor(e.state, e.tracker.Len()),
		Session:   e.session,
		Seq:       e.clock.Current(),
		Turn:      e.authority.Turn(),
		MoveCount: e.authority.MoveCount(),
		GameOver:  e.gameOver,
		Result:    e.result,
		FEN:       e.authority.FEN(),
		Pending:   e.tracker.Pending(),
		Fault:     e.fault,
		Desync:    e.desync,
		Snapshot:  e.last,
	}
	if e.lastMove != nil {
		m := *e.lastMove
		st.LastMove = &m
	}

	e.mu.Lock()
	e.status = st
	e.mu.Unlock()
}

// Status returns a consistent copy of the engine's state. Safe from any goroutine.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := e.status
	st.Pending = append([]tracker.PendingLift(nil), e.status.Pending...)
	return st
}

// IsActive reports whether moves are being tracked.
func (e *Engine) IsActive() bool { return e.Status().State == StateActive }

// IsDesynced reports whether tracking has been lost.
func (e *Engine) IsDesynced() bool { return e.Status().State == StateDesynced }

// CurrentTurn returns the side to move.
func (e *Engine) CurrentTurn() board.Color { return e.Status().Turn }

// LastIndicatorLevel returns the level the indicator was last set to.
func (e *Engine) LastIndicatorLevel() Level { return e.Status().Indicator }
