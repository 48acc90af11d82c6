package runner

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aretw0/cueline/internal/logging"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
)

// DefaultInputBufferSize is the default number of lines buffered ahead of the engine.
const DefaultInputBufferSize = 64

// Runner answers control lines from an input stream.
type Runner struct {
	ctl    ports.Controller
	codec  Codec
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
	await  time.Duration
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithInput sets the line source. Defaults to stdin.
func WithInput(r io.Reader) Option {
	return func(rn *Runner) { rn.in = r }
}

// WithOutput sets where replies go. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(rn *Runner) { rn.out = w }
}

// WithCodec selects the line format. Defaults to JSONCodec.
func WithCodec(c Codec) Option {
	return func(rn *Runner) { rn.codec = c }
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(rn *Runner) {
		if logger != nil {
			rn.logger = logger
		}
	}
}

// WithAwait sets how long a reply waits for the engine to apply the command.
func WithAwait(d time.Duration) Option {
	return func(rn *Runner) { rn.await = d }
}

// New creates a runner for ctl.
func New(ctl ports.Controller, opts ...Option) *Runner {
	r := &Runner{
		ctl:    ctl,
		codec:  JSONCodec{},
		in:     os.Stdin,
		out:    os.Stdout,
		logger: logging.NewNop(),
		await:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run answers lines until the input ends or ctx is cancelled. A reader blocked on a
// terminal is left behind on cancellation and exits when the input closes.
func (r *Runner) Run(ctx context.Context) error {
	lines := make(chan string, DefaultInputBufferSize)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if err := r.handle(ctx, line); err != nil {
				return err
			}
		}
	}
}

// handle answers one line. Only output failures end the loop.
func (r *Runner) handle(ctx context.Context, line string) error {
	line, err := SanitizeInput(line)
	if err != nil {
		return r.reply(Reply{Result: ResultRejected, Error: err.Error()})
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	req, err := r.codec.Decode(line)
	if err != nil {
		r.logger.Debug("control line rejected", "line", line, "err", err)
		return r.reply(Reply{Result: ResultRejected, Error: err.Error()})
	}
	switch {
	case req.Help:
		return r.reply(Reply{Result: ResultHelp})
	case req.Status:
		snap := r.ctl.Status()
		return r.reply(Reply{Result: ResultStatus, Status: &snap})
	}
	return r.reply(r.submit(ctx, req.Command))
}

func (r *Runner) submit(ctx context.Context, cmd domain.Command) Reply {
	kind := string(cmd.Kind)
	seq, err := r.ctl.Submit(cmd)
	if err != nil {
		return Reply{Seq: seq, Result: ResultQueued, Kind: kind, Error: err.Error()}
	}
	if r.await <= 0 {
		return Reply{Seq: seq, Result: ResultQueued, Kind: kind}
	}

	ctx, cancel := context.WithTimeout(ctx, r.await)
	defer cancel()
	res, err := r.ctl.Await(ctx, seq)
	switch {
	case err != nil:
		return Reply{Seq: seq, Result: ResultQueued, Kind: kind}
	case res.Err != nil:
		return Reply{Seq: seq, Result: ResultRejected, Kind: kind, Error: res.Err.Error()}
	}
	return Reply{Seq: seq, Result: ResultApplied, Kind: kind}
}

func (r *Runner) reply(rep Reply) error {
	if err := r.codec.Encode(r.out, rep); err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return err
	}
	return nil
}
