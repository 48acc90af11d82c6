package cueline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/internal/metrics"
	"github.com/aretw0/cueline/internal/queue"
	"github.com/aretw0/cueline/internal/render"
	"github.com/aretw0/cueline/internal/runtime"
	"github.com/aretw0/cueline/internal/status"
	"github.com/aretw0/cueline/internal/timecode"
	"github.com/aretw0/cueline/pkg/adapters/audio"
	loamAdapter "github.com/aretw0/cueline/pkg/adapters/loam"
	"github.com/aretw0/cueline/pkg/adapters/showfile"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
)

const (
	// DefaultBlockSize is the largest tick the audio host asks for.
	DefaultBlockSize = 256
	// PulsesPerBeat matches the MIDI clock resolution.
	PulsesPerBeat = 24
	// DefaultEventBuffer bounds the events waiting for handlers.
	DefaultEventBuffer = 1024
	// DefaultResultBuffer bounds the command results waiting for Await.
	DefaultResultBuffer = 256
)

// sourceReload is the queue source used by Reload.
const sourceReload = "reload"

// Engine is the high-level entry point for the cueline library.
// It wires a show loader, the real-time engine and its audio host, and hands out
// Controllers to control surfaces.
type Engine struct {
	Name string

	loader   ports.ShowLoader
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	handlers []ports.EventHandler

	blockSize     int
	queueCapacity int
	clickChannel  int
	ltcChannel    int
	left, right   int
	mediaDir      string
	timecodeFPS   int
	timecodeStart string
	observers     []audio.Observer

	show      atomic.Pointer[domain.Show]
	runtime   *runtime.Engine
	queue     *queue.Queue
	publisher *status.Publisher
	renderer  *render.Renderer
	bank      *render.Bank
	host      *audio.Host

	events        chan domain.Event
	resultCh      chan domain.CommandResult
	results       *results
	resultDropped atomic.Uint64

	reloadMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a custom ShowLoader, bypassing the path-based loaders.
func WithLoader(l ports.ShowLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. They run on the audio goroutine.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithEventHandler adds a consumer of notable engine events (cue, vamp, state and clip
// changes). Handlers run on a dispatcher goroutine in registration order.
func WithEventHandler(h ports.EventHandler) Option {
	return func(e *Engine) {
		e.handlers = append(e.handlers, h)
	}
}

// WithObserver adds a timeline observer called on the audio goroutine after each tick.
func WithObserver(o audio.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithBlockSize sets the largest tick in samples.
func WithBlockSize(n int) Option {
	return func(e *Engine) {
		e.blockSize = n
	}
}

// WithQueueCapacity sets the pending commands kept per control source.
func WithQueueCapacity(n int) Option {
	return func(e *Engine) {
		e.queueCapacity = n
	}
}

// WithChannels routes the click and the LTC. A negative LTC channel disables timecode.
func WithChannels(click, ltc int) Option {
	return func(e *Engine) {
		e.clickChannel, e.ltcChannel = click, ltc
	}
}

// WithRouting picks the channels sent to the stereo output.
func WithRouting(left, right int) Option {
	return func(e *Engine) {
		e.left, e.right = left, right
	}
}

// WithMediaDir loads playback clips from dir (dir/CCC/NNN.wav).
func WithMediaDir(dir string) Option {
	return func(e *Engine) {
		e.mediaDir = dir
	}
}

// WithTimecode overrides the show's timecode rate and start. Zero values keep the show's.
func WithTimecode(fps int, start string) Option {
	return func(e *Engine) {
		e.timecodeFPS, e.timecodeStart = fps, start
	}
}

// New loads and compiles a show and builds an idle engine around it.
// path is a .yaml/.yml/.json show file or a directory of markdown cue sheets. If
// WithLoader is provided, path only names the show and may be empty.
// Call Close to stop the dispatcher goroutines.
func New(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	e := &Engine{
		blockSize:     DefaultBlockSize,
		queueCapacity: queue.DefaultCapacity,
		ltcChannel:    1,
		right:         1,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.loader == nil {
		l, name, err := openLoader(path)
		if err != nil {
			return nil, err
		}
		e.loader, e.Name = l, name
	} else if path != "" {
		e.Name = filepath.Base(path)
	}

	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.Name != "" {
		e.logger = e.logger.With("show", e.Name)
	}

	prog, err := e.compile(ctx)
	if err != nil {
		return nil, err
	}
	e.show.Store(prog.Show)
	sr := prog.SampleRate()

	e.queue = queue.New(e.queueCapacity)
	e.publisher = status.NewPublisher()
	e.events = make(chan domain.Event, DefaultEventBuffer)
	e.resultCh = make(chan domain.CommandResult, DefaultResultBuffer)
	e.results = newResults()

	e.runtime = runtime.NewEngine(prog,
		runtime.WithLogger(e.logger),
		runtime.WithQueue(e.queue),
		runtime.WithPublisher(e.publisher),
		runtime.WithPulses(PulsesPerBeat),
		runtime.WithEventSink(e.events),
		runtime.WithLifecycleHooks(metrics.Chain(e.hooks, domain.LifecycleHooks{OnCommand: e.deliver})),
	)

	e.bank = render.NewBank()
	if e.mediaDir != "" {
		n, err := e.bank.LoadDir(e.mediaDir, sr, e.logger)
		if err != nil {
			e.logger.Warn("no playback media", "dir", e.mediaDir, "err", err)
		} else {
			e.logger.Info("playback media loaded", "dir", e.mediaDir, "clips", n)
		}
	}
	e.renderer = render.New(sr, render.WithClickChannel(e.clickChannel), render.WithBank(e.bank))

	var ltc *timecode.Generator
	if e.ltcChannel >= 0 {
		ltc = timecode.NewGenerator(sr, prog.Timecode.Rate)
	}
	hostOpts := []audio.HostOption{
		audio.WithRouting(e.left, e.right),
		audio.WithLTCChannel(e.ltcChannel),
	}
	for _, o := range e.observers {
		hostOpts = append(hostOpts, audio.WithObserver(o))
	}
	e.host = audio.NewHost(e.runtime, e.renderer, ltc, e.blockSize, hostOpts...)

	dctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.wg.Add(2)
	go e.dispatchResults(dctx)
	go e.dispatchEvents(dctx)

	e.logger.Info("show loaded", "cues", len(prog.Show.Cues), "sample_rate", sr, "block", e.blockSize)
	return e, nil
}

func openLoader(path string) (ports.ShowLoader, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("a show path is required when no custom loader is provided")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open show: %w", err)
	}
	if info.IsDir() {
		l, err := loamAdapter.Open(absPath)
		if err != nil {
			return nil, "", err
		}
		return l, filepath.Base(absPath), nil
	}
	name := strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath))
	return showfile.New(absPath), name, nil
}

// LoadShow reads the show at path without compiling it or starting an engine.
func LoadShow(ctx context.Context, path string) (*domain.Show, error) {
	l, _, err := openLoader(path)
	if err != nil {
		return nil, err
	}
	show, err := l.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load show: %w", err)
	}
	return show, nil
}

// compile loads the show and applies the timecode override.
func (e *Engine) compile(ctx context.Context) (*compiler.Program, error) {
	show, err := e.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load show: %w", err)
	}
	if e.timecodeFPS != 0 {
		show.Timecode.FPS = e.timecodeFPS
	}
	if e.timecodeStart != "" {
		show.Timecode.Start = e.timecodeStart
	}
	return compiler.Compile(show)
}

// Close stops the dispatcher goroutines. Pending events are dropped.
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()
	return nil
}

// Host returns the audio host to hand to a driver.
func (e *Engine) Host() *audio.Host { return e.host }

// Show returns the show currently loaded.
func (e *Engine) Show() *domain.Show { return e.show.Load() }

// Status returns the latest published snapshot.
func (e *Engine) Status() domain.Snapshot { return e.publisher.Load() }

// Publisher returns the status publisher, for recorders and pub/sub bridges.
func (e *Engine) Publisher() *status.Publisher { return e.publisher }

// BeatsAt converts a show position to quarter-note beats. Audio goroutine only, so
// it is meant for observers.
func (e *Engine) BeatsAt(pos domain.SamplePosition) float64 { return e.runtime.BeatsAt(pos) }

// SampleRate of the loaded show.
func (e *Engine) SampleRate() int { return e.runtime.SampleRate() }

// Controller returns a Controller whose commands queue under source. Each control
// surface should use its own source.
func (e *Engine) Controller(source string) ports.Controller {
	return &controller{engine: e, src: e.queue.Register(source)}
}

// Watch returns a channel that signals when the show's storage changes.
// Returns error if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan struct{}, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current loader does not support watching")
}

// Reload loads and compiles the show again and swaps it in at the next tick boundary.
// It blocks until the engine applied the swap or ctx ends, so the audio host must be
// running. A show that fails to compile leaves the running one untouched. Concurrent
// calls run one at a time.
func (e *Engine) Reload(ctx context.Context) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	prog, err := e.compile(ctx)
	if err != nil {
		return fmt.Errorf("reload rejected: %w", err)
	}
	seq, err := e.queue.Register(sourceReload).Submit(domain.Command{Kind: domain.CommandReload, Payload: prog})
	if err != nil && !errors.Is(err, domain.ErrQueueFull) {
		return err
	}
	if err != nil {
		// The reload is queued; an older pending command made room for it.
		e.logger.Warn("reload displaced a pending command", "error", err)
	}
	res, err := e.results.wait(ctx, seq)
	if err != nil {
		return err
	}
	if res.Err != nil {
		return fmt.Errorf("reload rejected: %w", res.Err)
	}
	e.show.Store(prog.Show)
	e.logger.Info("show reloaded", "cues", len(prog.Show.Cues))
	return nil
}

// AutoReload reloads the show whenever its storage changes, until ctx ends.
func (e *Engine) AutoReload(ctx context.Context) error {
	changes, err := e.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := e.Reload(ctx); err != nil {
				e.logger.Warn("hot reload failed", "err", err)
			}
		}
	}
}

// Gauges exposes counters owned by the engine for metrics.RegisterGauges.
func (e *Engine) Gauges() map[string]func() float64 {
	return map[string]func() float64{
		"queue_pending":         func() float64 { return float64(e.queue.Pending()) },
		"missing_clips_total":   func() float64 { return float64(e.renderer.Missing()) },
		"render_panics_total":   func() float64 { return float64(e.renderer.Panics()) },
		"results_dropped_total": func() float64 { return float64(e.resultDropped.Load()) },
		"clips_loaded":          func() float64 { return float64(e.bank.Len()) },
	}
}

// deliver runs on the audio goroutine and never blocks.
func (e *Engine) deliver(r domain.CommandResult) {
	select {
	case e.resultCh <- r:
	default:
		e.resultDropped.Add(1)
	}
}

func (e *Engine) dispatchResults(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-e.resultCh:
			e.results.put(r)
		}
	}
}

func (e *Engine) dispatchEvents(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-e.events:
			for _, h := range e.handlers {
				if err := h.HandleEvent(ctx, ev); err != nil {
					e.logger.Warn("event handler failed", "kind", ev.Kind, "err", err)
				}
			}
		}
	}
}
