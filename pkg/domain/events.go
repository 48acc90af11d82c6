package domain

import (
	"time"
)

// CommandResult reports the outcome of applying one command at a tick boundary.
type CommandResult struct {
	Command Command
	Tick    uint64
	Err     error
}

// TickStats summarises one tick for observers.
type TickStats struct {
	Tick     uint64
	Block    int
	State    TransportState
	Elapsed  time.Duration
	Beats    int
	Rejected int
}

// LifecycleHooks defines callbacks for engine observability.
// They run on the tick goroutine and must return quickly; nil hooks are skipped.
type LifecycleHooks struct {
	OnTick         func(TickStats)
	OnCommand      func(CommandResult)
	OnCueChanged   func(Event)
	OnStateChanged func(from, to TransportState)
	OnHalt         func(error)
}
