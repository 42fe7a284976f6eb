// Package simulator animates the six stages of a delegation redemption.
// It is illustrative only: every stage holds for a fixed dwell time and then
// completes. Nothing is validated and no stage can fail.
package simulator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDwell is how long each stage stays active.
const DefaultDwell = 1200 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by Start and Run while a run is in progress.
	ErrAlreadyRunning = errors.New("simulation already running")
	// ErrInterrupted is returned by Run when the run is reset or superseded.
	ErrInterrupted = errors.New("simulation interrupted")
)

// StepState is one step as seen by a renderer.
type StepState struct {
	Step
	Status Status `json:"status"`
}

// State is a snapshot of the simulator. CurrentIndex is -1 when idle and
// len(Steps) after a completed run.
type State struct {
	Steps         []StepState `json:"steps"`
	CurrentIndex  int         `json:"currentStepIndex"`
	Running       bool        `json:"isRunning"`
	JustCompleted bool        `json:"completedOnce"`
	RunID         string      `json:"runId,omitempty"`
}

// AllCompleted reports whether every step is completed.
func (s State) AllCompleted() bool {
	for _, st := range s.Steps {
		if st.Status != StatusCompleted {
			return false
		}
	}
	return len(s.Steps) > 0
}

// Config configures a Simulator. Zero values use RealClock, DefaultDwell and
// a no-op logger.
type Config struct {
	Clock  Clock
	Dwell  time.Duration
	Logger *zap.Logger
}

type run struct {
	id        string
	done      chan struct{}
	completed bool
}

// Simulator runs the redemption animation. It is safe for concurrent use.
//
// Every run carries a generation number. Reset and Start bump it, and a
// timer callback whose generation no longer matches is dropped, so an
// aborted run never writes state.
type Simulator struct {
	clock Clock
	dwell time.Duration
	log   *zap.Logger
	steps []Step

	mu        sync.Mutex
	status    []Status
	current   int
	running   bool
	completed bool
	gen       uint64
	timer     Timer
	run       *run
	subs      map[int]func(State)
	nextSub   int
}

// New returns an idle simulator.
func New(cfg Config) *Simulator {
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Dwell <= 0 {
		cfg.Dwell = DefaultDwell
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	steps := Steps()
	s := &Simulator{
		clock:   cfg.Clock,
		dwell:   cfg.Dwell,
		log:     cfg.Logger.Named("simulator"),
		steps:   steps,
		status:  make([]Status, len(steps)),
		current: -1,
		subs:    make(map[int]func(State)),
	}
	s.resetStatus()
	return s
}

// Dwell returns the per-stage dwell time.
func (s *Simulator) Dwell() time.Duration { return s.dwell }

// Start begins a run. While a run is in progress it returns
// ErrAlreadyRunning and changes nothing.
func (s *Simulator) Start() error {
	_, err := s.start()
	return err
}

func (s *Simulator) start() (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, ErrAlreadyRunning
	}

	s.gen++
	s.resetStatus()
	s.completed = false
	s.running = true
	s.current = 0
	s.status[0] = StatusActive
	s.run = &run{id: uuid.NewString(), done: make(chan struct{})}
	s.schedule(s.gen)

	s.log.Info("simulation started",
		zap.String("run_id", s.run.id),
		zap.Uint64("generation", s.gen),
		zap.Duration("dwell", s.dwell),
	)
	s.notify()
	return s.run, nil
}

// Reset cancels any run in progress and returns every step to pending.
// Safe to call at any time.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	wasRunning := s.running
	s.resetStatus()
	s.current = -1
	s.running = false
	s.completed = false
	if s.run != nil {
		s.finish(false)
	}

	if wasRunning {
		s.log.Info("simulation reset mid-run", zap.Uint64("generation", s.gen))
	} else {
		s.log.Debug("simulation reset", zap.Uint64("generation", s.gen))
	}
	s.notify()
}

// State returns a snapshot of the current state.
func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Subscribe registers fn to receive a snapshot after every change. fn runs
// with the simulator locked, so it must not call back into it. The returned
// function removes the subscription.
func (s *Simulator) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Run starts a run and blocks until it completes. If ctx is cancelled
// first, the simulator is reset and ctx.Err() is returned. A Reset from
// elsewhere makes Run return ErrInterrupted.
func (s *Simulator) Run(ctx context.Context) error {
	r, err := s.start()
	if err != nil {
		return err
	}
	select {
	case <-r.done:
		if !r.completed {
			return ErrInterrupted
		}
		return nil
	case <-ctx.Done():
		s.Reset()
		return ctx.Err()
	}
}

// schedule arms the timer for the active stage of generation gen.
func (s *Simulator) schedule(gen uint64) {
	s.timer = s.clock.AfterFunc(s.dwell, func() { s.advance(gen) })
}

func (s *Simulator) advance(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || !s.running {
		s.log.Debug("dropping stale stage callback",
			zap.Uint64("callback_generation", gen),
			zap.Uint64("generation", s.gen),
		)
		return
	}

	s.status[s.current] = StatusCompleted
	s.log.Debug("stage completed",
		zap.String("run_id", s.run.id),
		zap.String("step", s.steps[s.current].ID),
	)
	s.current++

	if s.current == len(s.steps) {
		s.timer = nil
		s.running = false
		s.completed = true
		s.log.Info("simulation completed", zap.String("run_id", s.run.id))
		s.finish(true)
		s.notify()
		return
	}

	s.status[s.current] = StatusActive
	s.schedule(gen)
	s.notify()
}

func (s *Simulator) finish(completed bool) {
	select {
	case <-s.run.done:
	default:
		s.run.completed = completed
		close(s.run.done)
	}
}

func (s *Simulator) resetStatus() {
	for i := range s.status {
		s.status[i] = StatusPending
	}
}

func (s *Simulator) snapshot() State {
	st := State{
		Steps:         make([]StepState, len(s.steps)),
		CurrentIndex:  s.current,
		Running:       s.running,
		JustCompleted: s.completed,
	}
	for i, step := range s.steps {
		step.Details = append([]string(nil), step.Details...)
		st.Steps[i] = StepState{Step: step, Status: s.status[i]}
	}
	if s.run != nil && (s.running || s.completed) {
		st.RunID = s.run.id
	}
	return st
}

func (s *Simulator) notify() {
	if len(s.subs) == 0 {
		return
	}
	st := s.snapshot()
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fn(st)
		}
	}
}
