package sequence

import (
	"time"

	"github.com/gwillem/pumpbot/pkg/motion"
)

// EventKind identifies what an Event reports.
type EventKind string

const (
	EventState        EventKind = "state"
	EventCycle        EventKind = "cycle"
	EventPatternStart EventKind = "pattern_start"
	EventWaypoint     EventKind = "waypoint"
	EventPatternEnd   EventKind = "pattern_end"
)

// Event is a progress notification from a running orchestrator.
type Event struct {
	RunID   string
	Kind    EventKind
	Time    time.Time
	State   State
	Cycle   int
	Pattern string
	Index   int
	Target  motion.Waypoint
	Reached bool
	Power   byte
	Outcome *Outcome
}

// Progress is a point-in-time view of a run.
type Progress struct {
	RunID       string          `json:"run_id"`
	State       State           `json:"state"`
	Cycle       int             `json:"cycle"`
	Cycles      int             `json:"cycles"`
	Pattern     string          `json:"pattern,omitempty"`
	Waypoint    int             `json:"waypoint"`
	Target      motion.Waypoint `json:"target"`
	Completed   int             `json:"completed"`
	Aborted     int             `json:"aborted"`
	LastOutcome *Outcome        `json:"last_outcome,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
}
