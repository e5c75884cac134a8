package sequence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gwillem/pumpbot/pkg/motion"
)

func testPlan() Plan {
	return Plan{
		mustStep(motion.Square{Width: 50}, 150, 0),
		mustStep(motion.Cross{Width: 50}, 100, 0),
	}
}

func assertShutdown(t *testing.T, rec *recorder, agent *fakeAgent, channel *fakeActuator) {
	t.Helper()
	calls := rec.log()
	if len(calls) < 3 {
		t.Fatalf("only %d calls recorded", len(calls))
	}
	tail := calls[len(calls)-3:]
	want := []string{"push 0", "agent close", "channel close"}
	for i := range want {
		if tail[i] != want[i] {
			t.Errorf("shutdown call %d = %q, want %q (tail %v)", i, tail[i], want[i], tail)
		}
	}
	if agent.closes != 1 {
		t.Errorf("agent closed %d times, want 1", agent.closes)
	}
	if channel.closes != 1 {
		t.Errorf("channel closed %d times, want 1", channel.closes)
	}
}

func TestOrchestrator_Completes(t *testing.T) {
	rec, agent, channel := newFakes()
	var pauses []time.Duration
	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 2, InterCyclePause: 20 * time.Second}, testPlan(), agent, channel,
		WithSleep(func(ctx context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		}))

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(agent.moves) != 20 {
		t.Errorf("moves = %d, want 20", len(agent.moves))
	}
	if len(pauses) != 2 || pauses[0] != 20*time.Second {
		t.Errorf("pauses = %v, want two 20s pauses", pauses)
	}
	assertShutdown(t, rec, agent, channel)

	if o.State() != StateClosed {
		t.Errorf("State = %s, want closed", o.State())
	}
	snap := o.Snapshot()
	if snap.Completed != 4 || snap.Aborted != 0 || snap.Cycle != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.RunID == "" || snap.RunID != o.RunID() {
		t.Errorf("snapshot run id %q, want %q", snap.RunID, o.RunID())
	}

	if err := o.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("second Run err = %v, want ErrAlreadyRun", err)
	}
	if channel.closes != 1 {
		t.Errorf("channel closed %d times after second Run", channel.closes)
	}
}

func TestOrchestrator_AbortDoesNotStopCycle(t *testing.T) {
	_, agent, channel := newFakes()
	agent.failAt[1] = true // second square waypoint

	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 1}, testPlan(), agent, channel, WithSleep(noSleep))
	if err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// 2 square attempts, then the full cross.
	if len(agent.moves) != 7 {
		t.Errorf("moves = %d, want 7", len(agent.moves))
	}
	snap := o.Snapshot()
	if snap.Aborted != 1 || snap.Completed != 1 {
		t.Errorf("aborted = %d, completed = %d; want 1, 1", snap.Aborted, snap.Completed)
	}
	if snap.LastOutcome == nil || snap.LastOutcome.Pattern != "cross" {
		t.Errorf("last outcome = %+v, want cross", snap.LastOutcome)
	}
}

func TestOrchestrator_CancelDuringMove(t *testing.T) {
	rec, agent, channel := newFakes()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	agent.onMove = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 100, ReturnHome: true}, testPlan(), agent, channel, WithSleep(noSleep))
	err := o.Run(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
	if len(agent.moves) != 4 {
		t.Errorf("moves = %d, want 4 (no return home on cancel)", len(agent.moves))
	}
	assertShutdown(t, rec, agent, channel)
}

func TestOrchestrator_CancelDuringPause(t *testing.T) {
	rec, agent, channel := newFakes()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 5, InterCyclePause: time.Hour}, testPlan(), agent, channel,
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	if err := o.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v, want context.Canceled", err)
	}
	if len(agent.moves) != 10 {
		t.Errorf("moves = %d, want one cycle (10)", len(agent.moves))
	}
	assertShutdown(t, rec, agent, channel)
}

func TestOrchestrator_DefaultPauseIsCancellable(t *testing.T) {
	_, agent, channel := newFakes()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 3, InterCyclePause: time.Hour}, testPlan(), agent, channel)

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Run err = %v, want DeadlineExceeded", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if channel.closes != 1 {
		t.Errorf("channel closed %d times, want 1", channel.closes)
	}
}

func TestOrchestrator_ReturnHome(t *testing.T) {
	rec, agent, channel := newFakes()
	plan := Plan{mustStep(motion.Line{X: 10, Y: 10}, 100, 0)}

	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 1, ReturnHome: true}, plan, agent, channel, WithSleep(noSleep))
	if err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	calls := rec.log()
	tail := calls[len(calls)-4:]
	want := []string{"push 0", "move (0.0, 0.0)", "agent close", "channel close"}
	for i := range want {
		if tail[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, tail[i], want[i])
		}
	}
}

func TestOrchestrator_CleanupSurvivesFailures(t *testing.T) {
	rec, agent, channel := newFakes()
	channel.failAll = true

	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 1}, testPlan(), agent, channel, WithSleep(noSleep))
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(agent.moves) != 10 {
		t.Errorf("moves = %d, want 10", len(agent.moves))
	}
	assertShutdown(t, rec, agent, channel)
}

func TestOrchestrator_ZeroCycles(t *testing.T) {
	rec, agent, channel := newFakes()
	o := NewOrchestrator(Settings{Speed: 30}, testPlan(), agent, channel)

	if err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(agent.moves) != 0 {
		t.Errorf("moves = %d, want 0", len(agent.moves))
	}
	assertShutdown(t, rec, agent, channel)
}

func TestOrchestrator_CloseBeforeRun(t *testing.T) {
	rec, agent, channel := newFakes()
	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 1}, testPlan(), agent, channel)

	o.Close()
	o.Close()
	if err := o.Run(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("Run after Close err = %v, want ErrAlreadyRun", err)
	}
	assertShutdown(t, rec, agent, channel)
}

func TestOrchestrator_Events(t *testing.T) {
	_, agent, channel := newFakes()
	plan := Plan{mustStep(motion.Line{X: 1, Y: 1}, 100, 0)}
	o := NewOrchestrator(Settings{Speed: 30, CycleCount: 1}, plan, agent, channel, WithSleep(noSleep))

	if err := o.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	var states []State
	var waypoints int
	for e := range o.Events() {
		if e.RunID != o.RunID() {
			t.Errorf("event run id %q, want %q", e.RunID, o.RunID())
		}
		switch e.Kind {
		case EventState:
			states = append(states, e.State)
		case EventWaypoint:
			waypoints++
		}
	}

	want := []State{StateConnected, StateRunning, StateShuttingDown, StateClosed}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state %d = %s, want %s", i, states[i], want[i])
		}
	}
	if waypoints != 4 {
		t.Errorf("waypoint events = %d, want 4", waypoints)
	}
}
