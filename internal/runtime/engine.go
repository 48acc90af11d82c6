package runtime

import (
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/internal/queue"
	"github.com/aretw0/cueline/internal/status"
	"github.com/aretw0/cueline/pkg/domain"
)

// Engine is the stateful adapter around Tick used by the audio host. It owns the state,
// drains the command queue and publishes a snapshot after every tick. All methods except
// Queue, Publisher and Status must be called from the tick goroutine.
type Engine struct {
	state     State
	queue     *queue.Queue
	publisher *status.Publisher
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	sink      chan<- domain.Event

	cmds    []domain.Command
	results []domain.CommandResult
	tl      domain.Timeline

	tempo        atomic.Pointer[[]domain.TempoSegment]
	tempoVersion uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. It is only used off the per-sample path.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks. They run on the tick goroutine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithQueue shares a command queue with the control adapters.
func WithQueue(q *queue.Queue) EngineOption {
	return func(e *Engine) {
		e.queue = q
	}
}

// WithPublisher shares a status publisher with readers.
func WithPublisher(p *status.Publisher) EngineOption {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithPulses enables pulse events at perBeat per quarter note.
func WithPulses(perBeat int) EngineOption {
	return func(e *Engine) {
		e.state.PulsesPerBeat = perBeat
	}
}

// WithEventSink forwards notable events (cue, vamp, state and clip changes) to ch.
// Sends never block; events are dropped when ch is full.
func WithEventSink(ch chan<- domain.Event) EngineOption {
	return func(e *Engine) {
		e.sink = ch
	}
}

// NewEngine creates an idle engine for a compiled program.
func NewEngine(p *compiler.Program, opts ...EngineOption) *Engine {
	e := &Engine{
		state:  NewState(p),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.queue == nil {
		e.queue = queue.New(queue.DefaultCapacity)
	}
	if e.publisher == nil {
		e.publisher = status.NewPublisher()
	}
	e.cmds = make([]domain.Command, 0, 64)
	e.results = make([]domain.CommandResult, 0, 64)
	e.tl.Events = make([]domain.Event, 0, 256)
	e.tl.Spans = make([]domain.Span, 0, 8)

	e.publisher.Publish(e.state.Snapshot())
	e.publishTempo()
	e.logger.Debug("engine ready", "show", p.Name, "cue", e.state.CueID, "sample_rate", p.SampleRate())
	return e
}

// Tick runs one block of n samples. The returned timeline is reused by the next call.
func (e *Engine) Tick(n int) *domain.Timeline {
	start := time.Now()
	wasHalted := e.state.Halted

	e.cmds = e.queue.Drain(e.cmds[:0])
	e.results = e.state.Step(e.cmds, n, &e.tl, e.results[:0], e.queue.StopRequested)
	e.publisher.Publish(e.state.Snapshot())
	if e.state.Map.Version() != e.tempoVersion || reloaded(e.results) {
		e.publishTempo()
	}

	e.dispatch(start, n, wasHalted)
	return &e.tl
}

func (e *Engine) dispatch(start time.Time, n int, wasHalted bool) {
	rejected := 0
	for _, r := range e.results {
		if r.Err != nil {
			rejected++
		}
		if e.hooks.OnCommand != nil {
			e.hooks.OnCommand(r)
		}
	}

	beats := 0
	for _, ev := range e.tl.Events {
		switch ev.Kind {
		case domain.EventBeat:
			beats++
			continue
		case domain.EventPulse, domain.EventTimecodeFrame:
			continue
		case domain.EventCueChanged:
			if e.hooks.OnCueChanged != nil {
				e.hooks.OnCueChanged(ev)
			}
		case domain.EventStateChanged:
			if e.hooks.OnStateChanged != nil {
				e.hooks.OnStateChanged(ev.From, ev.To)
			}
		}
		if e.sink != nil {
			select {
			case e.sink <- ev:
			default:
			}
		}
	}

	if e.state.Halted && !wasHalted {
		e.logger.Error("engine halted", "cue", e.state.CueID, "err", e.state.Diagnostic)
		if e.hooks.OnHalt != nil {
			e.hooks.OnHalt(haltError(e.results))
		}
	}

	if e.hooks.OnTick != nil {
		e.hooks.OnTick(domain.TickStats{
			Tick:     e.state.Tick - 1,
			Block:    n,
			State:    e.state.Status,
			Elapsed:  time.Since(start),
			Beats:    beats,
			Rejected: rejected,
		})
	}
}

// publishTempo copies the segment list out for readers. It only runs when the map changed.
func (e *Engine) publishTempo() {
	segs := e.state.Map.Segments()
	e.tempo.Store(&segs)
	e.tempoVersion = e.state.Map.Version()
}

func reloaded(results []domain.CommandResult) bool {
	for _, r := range results {
		if r.Command.Kind == domain.CommandReload && r.Err == nil {
			return true
		}
	}
	return false
}

func haltError(results []domain.CommandResult) error {
	for _, r := range results {
		if domain.IsFatal(r.Err) {
			return r.Err
		}
	}
	return domain.ErrInconsistentGraph
}

// Queue returns the command queue control sources register with.
func (e *Engine) Queue() *queue.Queue { return e.queue }

// Publisher returns the snapshot publisher.
func (e *Engine) Publisher() *status.Publisher { return e.publisher }

// Status returns the latest published snapshot. Safe from any goroutine.
func (e *Engine) Status() domain.Snapshot { return e.publisher.Load() }

// Tempo returns the tempo segments as of the last change. Safe from any goroutine; the
// slice must not be modified.
func (e *Engine) Tempo() []domain.TempoSegment {
	if p := e.tempo.Load(); p != nil {
		return *p
	}
	return nil
}

// Results returns the command results of the last tick.
func (e *Engine) Results() []domain.CommandResult { return e.results }

// State returns a copy of the execution state. Tick goroutine only.
func (e *Engine) State() State { return e.state }

// BeatsAt converts a show position to beats with the live tempo map. Tick goroutine only.
func (e *Engine) BeatsAt(pos domain.SamplePosition) float64 { return e.state.Map.BeatsAt(pos) }

// SampleRate of the running show.
func (e *Engine) SampleRate() int { return e.state.sampleRate() }
