package sequence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/pumpbot/pkg/motion"
)

// recorder keeps one ordered call log shared by the fake agent and actuator.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) log() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeAgent struct {
	rec    *recorder
	failAt map[int]bool // global MoveTo call index -> fail
	onMove func(n int)  // called before a move returns

	moves  []motion.Waypoint
	dwells []time.Duration
	closes int
}

func (a *fakeAgent) MoveTo(ctx context.Context, speed int, target motion.Waypoint) bool {
	n := len(a.moves)
	a.moves = append(a.moves, target)
	a.rec.add("move %v", target)
	if a.onMove != nil {
		a.onMove(n)
	}
	if ctx.Err() != nil {
		return false
	}
	return !a.failAt[n]
}

func (a *fakeAgent) Dwell(ctx context.Context, d time.Duration) error {
	a.dwells = append(a.dwells, d)
	return ctx.Err()
}

func (a *fakeAgent) Close() error {
	a.closes++
	a.rec.add("agent close")
	return nil
}

type fakeActuator struct {
	rec     *recorder
	pushes  []byte
	closes  int
	failAll bool
}

func (c *fakeActuator) Push(power byte) error {
	c.pushes = append(c.pushes, power)
	c.rec.add("push %d", power)
	if c.failAll {
		return errors.New("link down")
	}
	return nil
}

func (c *fakeActuator) Close() error {
	c.closes++
	c.rec.add("channel close")
	if c.failAll {
		return errors.New("link down")
	}
	return nil
}

func newFakes() (*recorder, *fakeAgent, *fakeActuator) {
	rec := &recorder{}
	return rec, &fakeAgent{rec: rec, failAt: map[int]bool{}}, &fakeActuator{rec: rec}
}

func mustStep(p motion.Pattern, power byte, dwell time.Duration) Step {
	s, err := NewStep(p, power, dwell)
	if err != nil {
		panic(err)
	}
	return s
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
