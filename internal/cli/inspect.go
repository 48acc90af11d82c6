package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/cueline"
	"github.com/aretw0/cueline/internal/adapters/file"
	redisAdapter "github.com/aretw0/cueline/internal/adapters/redis"
	"github.com/aretw0/cueline/internal/compiler"
	"github.com/aretw0/cueline/internal/presentation/graph"
	"github.com/aretw0/cueline/internal/presentation/tui"
	"github.com/aretw0/cueline/internal/validator"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/runner"
)

// Validate checks a show and writes warnings to w. It fails on any error-level issue
// or when the show does not compile.
func Validate(ctx context.Context, showPath string, w io.Writer) error {
	path, err := resolveShow(showPath, ".")
	if err != nil {
		return err
	}
	show, err := cueline.LoadShow(ctx, path)
	if err != nil {
		return err
	}

	report := validator.ValidateShow(show)
	for _, issue := range report.Warnings() {
		fmt.Fprintf(w, "warning: %s\n", issue)
	}
	if err := report.Err(); err != nil {
		return err
	}
	prog, err := compiler.Compile(show)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Show '%s' is valid: %d cues, %d reachable from '%s'.\n", show.Name, report.Total, report.Reachable, prog.Graph.Start())
	return nil
}

// Graph writes the Mermaid flowchart of a show. With a run id, the cue that run last
// stood on is highlighted.
func Graph(ctx context.Context, showPath, runID string, w io.Writer) error {
	path, err := resolveShow(showPath, ".")
	if err != nil {
		return err
	}
	show, err := cueline.LoadShow(ctx, path)
	if err != nil {
		return err
	}

	var overlay *graph.GraphOverlay
	if runID != "" {
		snap, err := file.New("").Load(ctx, runID)
		if err != nil {
			return fmt.Errorf("failed to load run %s: %w", runID, err)
		}
		overlay = &graph.GraphOverlay{
			CurrentCue: snap.CueID,
			Vamping:    snap.State == domain.StateVamping,
		}
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(show.Cues, show.StartCue, overlay))
	return err
}

// Cues writes the cue sheet rendered from markdown.
func Cues(ctx context.Context, showPath string, plain bool, w io.Writer) error {
	path, err := resolveShow(showPath, ".")
	if err != nil {
		return err
	}
	show, err := cueline.LoadShow(ctx, path)
	if err != nil {
		return err
	}
	render, err := tui.NewRenderer(plain)
	if err != nil {
		return err
	}
	out, err := render(tui.CueSheetMarkdown(show))
	if err != nil {
		return fmt.Errorf("failed to render cue sheet: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// Monitor prints the status another cueline instance broadcasts through redis.
func Monitor(opts ServeOptions, w io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return errors.New("monitor needs redis.addr")
	}
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	store := redisAdapter.New(cfg.Redis.Addr, "", 0, redisAdapter.WithPrefix(cfg.Redis.Prefix))
	defer store.Close()
	return watchStatus(sigCtx, redisAdapter.NewBroadcaster(store.Client(), cfg.Redis.Prefix), w)
}

func watchStatus(ctx context.Context, bc *redisAdapter.Broadcaster, w io.Writer) error {
	snaps, err := bc.SubscribeStatus(ctx)
	if err != nil {
		return err
	}
	codec := runner.TextCodec{}
	for snap := range snaps {
		if err := codec.Encode(w, runner.Reply{Result: runner.ResultStatus, Status: &snap}); err != nil {
			return err
		}
	}
	return nil
}

