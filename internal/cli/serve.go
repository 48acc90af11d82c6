package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/cueline"
	"github.com/aretw0/cueline/internal/config"
	"github.com/aretw0/cueline/internal/metrics"
	"github.com/aretw0/cueline/internal/presentation/tui"
	"github.com/aretw0/cueline/pkg/adapters/audio"
	httpAdapter "github.com/aretw0/cueline/pkg/adapters/http"
	"github.com/aretw0/cueline/pkg/adapters/midi"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/runner"
	"github.com/aretw0/cueline/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// errQuit ends a serve group when the operator leaves the TUI or the MCP client hangs up.
var errQuit = errors.New("quit")

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// stack is an engine with everything that runs around it.
type stack struct {
	cfg         config.Config
	logger      *slog.Logger
	engine      *cueline.Engine
	registry    *prometheus.Registry
	persistence *persistence
	clock       *midi.Clock
	runID       string
	closers     []func() error
}

// buildStack loads config and show and wires metrics, persistence and MIDI.
func buildStack(ctx context.Context, opts ServeOptions) (*stack, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger, err := createLogger(cfg)
	if err != nil {
		return nil, err
	}
	st := &stack{cfg: cfg, logger: logger, runID: opts.RunID}
	if st.runID == "" {
		st.runID = session.NewRunID()
	}

	var hooks domain.LifecycleHooks
	if cfg.Metrics.Enabled {
		st.registry = prometheus.NewRegistry()
		st.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hooks = metrics.New(st.registry, cfg.SampleRate, cfg.BlockSize).Hooks()
	}

	p, err := setupPersistence(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	st.persistence = p
	st.closers = append(st.closers, p.Close)

	var extra []cueline.Option
	if p.broadcaster != nil {
		extra = append(extra, cueline.WithEventHandler(p.broadcaster))
	}

	if cfg.MIDI.Port != "" {
		send, closePort, err := midi.Open(cfg.MIDI.Port)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, closePort)
		// The observer only runs once the driver pulls audio, after the engine exists.
		st.clock = midi.NewClock(send, func(pos domain.SamplePosition) float64 {
			return st.engine.BeatsAt(pos)
		}, midi.WithLogger(logger))
		extra = append(extra, cueline.WithObserver(st.clock.Observe))
	}

	st.engine, err = createEngine(ctx, opts.ShowPath, cfg, logger, hooks, extra...)
	if err != nil {
		st.Close()
		return nil, err
	}
	st.closers = append(st.closers, st.engine.Close)

	if st.registry != nil {
		gauges := st.engine.Gauges()
		if st.clock != nil {
			gauges["midi_dropped_total"] = func() float64 { return float64(st.clock.Dropped()) }
		}
		metrics.RegisterGauges(st.registry, gauges)
	}
	return st, nil
}

// Close releases everything in reverse order.
func (st *stack) Close() {
	for i := len(st.closers) - 1; i >= 0; i-- {
		if err := st.closers[i](); err != nil {
			st.logger.Warn("shutdown step failed", "err", err)
		}
	}
}

func (st *stack) driver() audio.Driver {
	if st.cfg.Audio.Driver == "null" {
		return audio.NewNullDriver(st.engine.SampleRate(), st.cfg.BlockSize)
	}
	return audio.NewEbitenDriver(st.engine.SampleRate())
}

// start launches the audio driver and the background services on g.
func (st *stack) start(ctx context.Context, g *errgroup.Group, opts ServeOptions) {
	g.Go(func() error {
		st.logger.Info("audio started", "driver", st.cfg.Audio.Driver, "sample_rate", st.engine.SampleRate())
		return st.driver().Run(ctx, st.engine.Host())
	})

	if opts.Resume {
		g.Go(func() error {
			return resumeRun(ctx, st.persistence, st.engine, st.runID, st.logger)
		})
	}
	g.Go(func() error {
		return st.persistence.manager.Record(ctx, st.runID, st.engine.Publisher(), session.DefaultRecordInterval)
	})
	if st.persistence.broadcaster != nil {
		g.Go(func() error {
			return broadcastStatus(ctx, st.engine.Publisher(), st.persistence.broadcaster, st.logger)
		})
	}
	if st.clock != nil {
		g.Go(func() error { return st.clock.Run(ctx) })
	}
	if opts.Watch {
		g.Go(func() error {
			if err := st.engine.AutoReload(ctx); err != nil {
				st.logger.Warn("hot reload unavailable", "err", err)
			}
			return nil
		})
	}
}

// serveHTTP runs the control API until ctx ends.
func (st *stack) serveHTTP(ctx context.Context) error {
	hopts := []httpAdapter.Option{
		httpAdapter.WithLogger(st.logger),
		httpAdapter.WithVersion(cueline.Version),
	}
	if st.registry != nil {
		hopts = append(hopts, httpAdapter.WithMetrics(st.registry))
	}
	handler, err := httpAdapter.NewHandler(st.engine.Controller("http"), hopts...)
	if err != nil {
		return err
	}

	srv := &http.Server{Addr: st.cfg.HTTP.Addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		st.logger.Info("HTTP API listening", "address", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", shutdownTimeout, err)
		}
		return nil
	}
}

// RunServe runs the engine with its audio driver, HTTP API and the configured control
// surfaces until interrupted.
func RunServe(opts ServeOptions) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	st, err := buildStack(sigCtx, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	interactive := !opts.Headless && opts.Input == "" && isTerminal()
	if !opts.NoBanner && isTerminal() {
		tui.PrintBanner(os.Stdout)
	}
	printSystemMessage("Show '%s' loaded, run '%s'.", st.engine.Name, st.runID)

	g, ctx := errgroup.WithContext(sigCtx)
	st.start(ctx, g, opts)
	if st.cfg.HTTP.Addr != "" {
		g.Go(func() error { return st.serveHTTP(ctx) })
	}

	switch {
	case interactive:
		g.Go(func() error {
			m := tui.NewModel(st.engine.Show(), st.engine.Publisher(), st.engine.Controller("tui"))
			if err := tui.Run(ctx, m); err != nil {
				return err
			}
			return errQuit
		})
	case opts.Input != "":
		var codec runner.Codec = runner.JSONCodec{}
		if opts.Input == "text" {
			codec = runner.TextCodec{}
		}
		r := runner.New(st.engine.Controller("stdin"), runner.WithCodec(codec), runner.WithLogger(st.logger))
		g.Go(func() error {
			if err := r.Run(ctx); err != nil {
				return fmt.Errorf("stdin: %w", err)
			}
			st.logger.Info("stdin closed, still serving")
			return nil
		})
	}

	err = handleExecutionError(g.Wait())
	if sig := sigCtx.Signal(); sig != nil {
		printSystemMessage("Stopped by %v at cue '%s'.", sig, st.engine.Status().CueID)
	}
	return err
}
