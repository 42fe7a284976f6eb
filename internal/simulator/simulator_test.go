package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock fires callbacks only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, when: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

// Advance moves time forward by d, firing due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.when > target {
				continue
			}
			if next == nil || t.when < next.when {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.when
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

// fireStopped runs callbacks of timers that were stopped, as if they had
// already fired when Stop was called.
func (c *fakeClock) fireStopped() int {
	c.mu.Lock()
	var stale []*fakeTimer
	for _, t := range c.timers {
		if t.stopped && !t.fired {
			t.fired = true
			stale = append(stale, t)
		}
	}
	c.mu.Unlock()
	for _, t := range stale {
		t.f()
	}
	return len(stale)
}

func newTestSimulator() (*Simulator, *fakeClock) {
	clk := &fakeClock{}
	return New(Config{Clock: clk, Dwell: time.Second}), clk
}

func statuses(st State) []Status {
	out := make([]Status, len(st.Steps))
	for i, s := range st.Steps {
		out[i] = s.Status
	}
	return out
}

func TestIdleState(t *testing.T) {
	sim, _ := newTestSimulator()
	st := sim.State()
	if st.CurrentIndex != -1 || st.Running || st.JustCompleted {
		t.Errorf("unexpected idle state: index=%d running=%v completed=%v", st.CurrentIndex, st.Running, st.JustCompleted)
	}
	if len(st.Steps) != 6 {
		t.Fatalf("expected 6 steps, got %d", len(st.Steps))
	}
	for i, s := range statuses(st) {
		if s != StatusPending {
			t.Errorf("step %d: expected pending, got %s", i, s)
		}
	}
	if st.RunID != "" {
		t.Errorf("idle state should have no run id, got %s", st.RunID)
	}
}

func TestFullRun(t *testing.T) {
	sim, clk := newTestSimulator()

	var activated []string
	sim.Subscribe(func(st State) {
		if st.CurrentIndex >= 0 && st.CurrentIndex < len(st.Steps) {
			activated = append(activated, st.Steps[st.CurrentIndex].ID)
		}
	})

	if err := sim.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	st := sim.State()
	if !st.Running || st.CurrentIndex != 0 || st.Steps[0].Status != StatusActive {
		t.Fatalf("expected step 0 active after start, got index=%d status=%s", st.CurrentIndex, st.Steps[0].Status)
	}
	if st.RunID == "" {
		t.Error("running state should carry a run id")
	}

	clk.Advance(999 * time.Millisecond)
	if sim.State().CurrentIndex != 0 {
		t.Error("step should not advance before the dwell elapses")
	}

	for i := 1; i < 6; i++ {
		clk.Advance(time.Second)
		st := sim.State()
		if st.CurrentIndex != i {
			t.Fatalf("expected index %d, got %d", i, st.CurrentIndex)
		}
		for j, s := range statuses(st) {
			want := StatusPending
			switch {
			case j < i:
				want = StatusCompleted
			case j == i:
				want = StatusActive
			}
			if s != want {
				t.Errorf("after %d advances, step %d: expected %s, got %s", i, j, want, s)
			}
		}
	}

	clk.Advance(time.Second)
	st = sim.State()
	if st.Running || !st.JustCompleted || st.CurrentIndex != 6 || !st.AllCompleted() {
		t.Errorf("unexpected final state: running=%v completed=%v index=%d", st.Running, st.JustCompleted, st.CurrentIndex)
	}

	want := []string{"validate", "verify", "authority", "before-hook", "execute", "after-hook"}
	if len(activated) != len(want) {
		t.Fatalf("expected %d activations, got %v", len(want), activated)
	}
	for i := range want {
		if activated[i] != want[i] {
			t.Errorf("activation %d: expected %s, got %s", i, want[i], activated[i])
		}
	}
}

func TestStartWhileRunning(t *testing.T) {
	sim, clk := newTestSimulator()
	if err := sim.Start(); err != nil {
		t.Fatal(err)
	}
	clk.Advance(time.Second)
	if err := sim.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	if sim.State().CurrentIndex != 1 {
		t.Error("rejected start should leave the run untouched")
	}
}

func TestResetMidRun(t *testing.T) {
	sim, clk := newTestSimulator()
	if err := sim.Start(); err != nil {
		t.Fatal(err)
	}
	clk.Advance(500 * time.Millisecond)
	sim.Reset()

	check := func(when string) {
		st := sim.State()
		if st.CurrentIndex != -1 || st.Running || st.JustCompleted {
			t.Errorf("%s: expected idle, got index=%d running=%v completed=%v", when, st.CurrentIndex, st.Running, st.JustCompleted)
		}
		for i, s := range statuses(st) {
			if s != StatusPending {
				t.Errorf("%s: step %d expected pending, got %s", when, i, s)
			}
		}
	}
	check("after reset")

	// A callback that raced the reset must not advance anything.
	if n := clk.fireStopped(); n != 1 {
		t.Fatalf("expected 1 stopped timer, got %d", n)
	}
	check("after stale callback")

	clk.Advance(10 * time.Second)
	check("after waiting")
}

func TestStaleCallbackAfterRestart(t *testing.T) {
	sim, clk := newTestSimulator()
	if err := sim.Start(); err != nil {
		t.Fatal(err)
	}
	sim.Reset()
	if err := sim.Start(); err != nil {
		t.Fatal(err)
	}
	clk.fireStopped()
	if st := sim.State(); st.CurrentIndex != 0 || st.Steps[0].Status != StatusActive {
		t.Errorf("stale callback advanced the new run: index=%d", st.CurrentIndex)
	}
	clk.Advance(time.Second)
	if st := sim.State(); st.CurrentIndex != 1 {
		t.Errorf("new run should advance on its own timer, got index %d", st.CurrentIndex)
	}
}

func TestRestartClearsCompletion(t *testing.T) {
	sim, clk := newTestSimulator()
	if err := sim.Start(); err != nil {
		t.Fatal(err)
	}
	clk.Advance(6 * time.Second)
	first := sim.State()
	if !first.JustCompleted {
		t.Fatal("expected completed run")
	}
	if err := sim.Start(); err != nil {
		t.Fatalf("start after completion: %v", err)
	}
	second := sim.State()
	if second.JustCompleted {
		t.Error("completion flag should clear on start")
	}
	if second.RunID == first.RunID {
		t.Error("each run should get a new id")
	}
	sim.Reset()
	if sim.State().JustCompleted {
		t.Error("completion flag should clear on reset")
	}
}

func TestResetWhenIdle(t *testing.T) {
	sim, _ := newTestSimulator()
	sim.Reset()
	sim.Reset()
	if st := sim.State(); st.CurrentIndex != -1 {
		t.Errorf("expected index -1, got %d", st.CurrentIndex)
	}
}

func TestRun_Completes(t *testing.T) {
	sim, clk := newTestSimulator()
	errc := make(chan error, 1)
	started := make(chan struct{})
	var once sync.Once
	unsub := sim.Subscribe(func(st State) {
		if st.Running {
			once.Do(func() { close(started) })
		}
	})
	defer unsub()

	go func() { errc <- sim.Run(context.Background()) }()
	<-started
	clk.Advance(6 * time.Second)
	if err := <-errc; err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	sim, clk := newTestSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	started := make(chan struct{})
	var once sync.Once
	sim.Subscribe(func(st State) {
		if st.Running {
			once.Do(func() { close(started) })
		}
	})

	go func() { errc <- sim.Run(ctx) }()
	<-started
	clk.Advance(time.Second)
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if st := sim.State(); st.CurrentIndex != -1 || st.Running {
		t.Errorf("cancelled run should reset, got index=%d running=%v", st.CurrentIndex, st.Running)
	}
}

func TestRun_Interrupted(t *testing.T) {
	sim, _ := newTestSimulator()
	errc := make(chan error, 1)
	started := make(chan struct{})
	var once sync.Once
	sim.Subscribe(func(st State) {
		if st.Running {
			once.Do(func() { close(started) })
		}
	})

	go func() { errc <- sim.Run(context.Background()) }()
	<-started
	go sim.Reset()
	if err := <-errc; !errors.Is(err, ErrInterrupted) {
		t.Errorf("expected ErrInterrupted, got %v", err)
	}
}

func TestSnapshotIsolated(t *testing.T) {
	sim, _ := newTestSimulator()
	st := sim.State()
	st.Steps[0].Details[0] = "changed"
	if sim.State().Steps[0].Details[0] == "changed" {
		t.Error("snapshot details should not alias simulator state")
	}
	if Steps()[0].Details[0] == "changed" {
		t.Error("catalog should not be mutable through snapshots")
	}
}

func TestDefaults(t *testing.T) {
	sim := New(Config{})
	if sim.Dwell() != DefaultDwell {
		t.Errorf("expected default dwell %v, got %v", DefaultDwell, sim.Dwell())
	}
}
