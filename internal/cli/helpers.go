package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/cueline/internal/config"
	"github.com/aretw0/cueline/internal/logging"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
	"golang.org/x/term"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sc.sigCh)
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
	}()
	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger from the log section.
// Logs go to stderr so stdout stays free for the stdin protocol and MCP.
func createLogger(cfg config.Config) (*slog.Logger, error) {
	return logging.FromConfig(cfg.Log.Level, cfg.Log.Format)
}

// printSystemMessage prints a standardized system message to stderr.
func printSystemMessage(format string, args ...any) {
	fmt.Fprintf(os.Stderr, ">>> %s\n", fmt.Sprintf(format, args...))
}

// isTerminal reports whether both stdin and stdout are attached to a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// logEvents logs notable engine events at debug level. It runs on the event
// dispatcher, never on the audio goroutine.
func logEvents(logger *slog.Logger) ports.EventHandler {
	return ports.EventHandlerFunc(func(_ context.Context, ev domain.Event) error {
		switch ev.Kind {
		case domain.EventCueChanged:
			logger.Debug("cue changed", "cue", ev.CueID, "prev", ev.PrevCueID, "discontinuity", ev.Discontinuity)
		case domain.EventStateChanged:
			logger.Debug("transport", "from", ev.From, "to", ev.To)
		case domain.EventVampEntered, domain.EventVampReleased:
			logger.Debug(string(ev.Kind), "cue", ev.CueID, "release", ev.Detail)
		default:
			logger.Debug(string(ev.Kind), "channel", ev.Channel, "clip", ev.Clip)
		}
		return nil
	})
}

func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) || errors.Is(err, errQuit)
}

// handleExecutionError maps interruptions to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || isInterrupted(err) {
		return nil
	}
	return err
}
