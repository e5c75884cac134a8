package sequence

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/pumpbot/pkg/motion"
)

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("orchestrator already ran")

// State is the lifecycle state of an orchestrator.
type State string

const (
	StateIdle         State = "idle"
	StateConnected    State = "connected"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateClosed       State = "closed"
)

// Settings hold the run-wide motion parameters.
type Settings struct {
	Speed           int
	CycleCount      int
	InterCyclePause time.Duration
	// ReturnHome moves the agent to Home after the actuator is switched off,
	// unless the run was cancelled.
	ReturnHome bool
	Home       motion.Waypoint
}

// Orchestrator repeats a plan for a number of cycles and owns the agent and
// actuator for the duration of the run.
type Orchestrator struct {
	settings Settings
	plan     Plan
	agent    Agent
	channel  Actuator
	logger   *log.Logger
	sleep    func(context.Context, time.Duration) error
	runID    string

	shutdownOnce sync.Once

	mu           sync.RWMutex
	started      bool
	eventsClosed bool
	eventCh      chan Event
	progress     Progress
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithSleep replaces the inter-cycle wait, mainly for tests.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

// NewOrchestrator creates an orchestrator in the idle state.
func NewOrchestrator(settings Settings, plan Plan, agent Agent, channel Actuator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		settings: settings,
		plan:     plan,
		agent:    agent,
		channel:  channel,
		logger:   log.New(io.Discard, "", 0),
		sleep:    sleep,
		runID:    uuid.New().String(),
		eventCh:  make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.progress = Progress{
		RunID:  o.runID,
		State:  StateIdle,
		Cycles: settings.CycleCount,
	}
	return o
}

// RunID returns the unique identifier of this run.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Events returns a channel that receives run events. It is closed after shutdown.
func (o *Orchestrator) Events() <-chan Event {
	return o.eventCh
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.progress.State
}

// Snapshot returns a copy of the current progress.
func (o *Orchestrator) Snapshot() Progress {
	o.mu.RLock()
	defer o.mu.RUnlock()
	p := o.progress
	if p.LastOutcome != nil {
		out := *p.LastOutcome
		p.LastOutcome = &out
	}
	return p
}

// Run executes the plan for the configured number of cycles, then shuts
// down. Cancelling ctx stops the run between waypoints or during any wait;
// shutdown runs on every path and Run returns ctx.Err().
func (o *Orchestrator) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return ErrAlreadyRun
	}
	o.started = true
	o.progress.StartedAt = time.Now()
	o.mu.Unlock()

	defer func() { o.shutdown(ctx.Err() != nil) }()

	o.setState(StateConnected)
	o.logger.Printf("run %s: %d cycle(s) of %d pattern(s)", o.runID, o.settings.CycleCount, len(o.plan))

	return o.loop(ctx)
}

// Close releases the agent and actuator if Run has not already done so.
// A later Run returns ErrAlreadyRun.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.started = true
	o.mu.Unlock()
	o.shutdown(true)
}

func (o *Orchestrator) loop(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	o.setState(StateRunning)

	for cycle := 1; cycle <= o.settings.CycleCount; cycle++ {
		o.update(func(p *Progress) { p.Cycle = cycle })
		o.emit(Event{Kind: EventCycle, Cycle: cycle})
		o.logger.Printf("cycle %d/%d", cycle, o.settings.CycleCount)

		for _, step := range o.plan {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			o.update(func(p *Progress) { p.Pattern = step.Name(); p.Waypoint = 0 })
			o.emit(Event{Kind: EventPatternStart, Cycle: cycle, Pattern: step.Name()})
			o.logger.Printf("** %s start", step.Name())

			out := Execute(ctx, step, o.settings.Speed, o.agent, o.channel, func(r WaypointResult) {
				o.waypoint(cycle, r)
			})

			o.update(func(p *Progress) {
				p.LastOutcome = &out
				switch out.Status {
				case Completed:
					p.Completed++
				case Aborted:
					p.Aborted++
				}
			})
			o.emit(Event{Kind: EventPatternEnd, Cycle: cycle, Pattern: step.Name(), Outcome: &out})

			switch out.Status {
			case Cancelled:
				return ctx.Err()
			case Aborted:
				o.logger.Printf("Warning: %s", out)
			default:
				o.logger.Printf("%s", out)
			}
		}

		if err := o.sleep(ctx, o.settings.InterCyclePause); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) waypoint(cycle int, r WaypointResult) {
	o.update(func(p *Progress) {
		p.Waypoint = r.Index
		p.Target = r.Target
	})
	o.emit(Event{
		Kind:    EventWaypoint,
		Cycle:   cycle,
		Pattern: r.Pattern,
		Index:   r.Index,
		Target:  r.Target,
		Reached: r.Reached,
		Power:   r.Power,
	})
	if r.Reached {
		o.logger.Printf("%s[%d] %v reached", r.Pattern, r.Index, r.Target)
	} else {
		o.logger.Printf("Warning: %s[%d] %v not reached", r.Pattern, r.Index, r.Target)
	}
}

// shutdown switches the actuator off, releases the agent, then closes the
// channel. Every step runs even if an earlier one fails.
func (o *Orchestrator) shutdown(cancelled bool) {
	o.shutdownOnce.Do(func() {
		o.setState(StateShuttingDown)

		if err := o.channel.Push(0); err != nil {
			o.logger.Printf("Warning: failed to stop actuator: %v", err)
		}

		if o.settings.ReturnHome && !cancelled {
			ctx := context.Background()
			if o.agent.MoveTo(ctx, o.settings.Speed, o.settings.Home) {
				o.logger.Printf("returned home %v", o.settings.Home)
			} else {
				o.logger.Printf("Warning: failed to return home %v", o.settings.Home)
			}
		}

		if err := o.agent.Close(); err != nil {
			o.logger.Printf("Warning: failed to release agent: %v", err)
		}
		if err := o.channel.Close(); err != nil {
			o.logger.Printf("Warning: failed to close actuator: %v", err)
		}

		o.setState(StateClosed)
		if cancelled {
			o.logger.Printf("run %s: interrupted, stopped", o.runID)
		} else {
			o.logger.Printf("run %s: finished", o.runID)
		}

		o.mu.Lock()
		o.eventsClosed = true
		close(o.eventCh)
		o.mu.Unlock()
	})
}

func (o *Orchestrator) setState(s State) {
	o.update(func(p *Progress) { p.State = s })
	o.emit(Event{Kind: EventState, State: s})
}

func (o *Orchestrator) update(fn func(*Progress)) {
	o.mu.Lock()
	fn(&o.progress)
	o.mu.Unlock()
}

// emit sends without blocking, dropping the oldest event when the buffer is full.
func (o *Orchestrator) emit(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.eventsClosed {
		return
	}

	e.RunID = o.runID
	e.Time = time.Now()
	if e.State == "" {
		e.State = o.progress.State
	}

	select {
	case o.eventCh <- e:
	default:
		select {
		case <-o.eventCh:
		default:
		}
		o.eventCh <- e
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
