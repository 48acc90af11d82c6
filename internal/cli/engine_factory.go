package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/cueline"
	"github.com/aretw0/cueline/internal/config"
	"github.com/aretw0/cueline/pkg/domain"
)

// showCandidates are tried in the working directory when no show path is given.
var showCandidates = []string{"show.yaml", "show.yml", "show.json", "cues"}

// resolveShow picks the show path: the argument, else the first conventional name
// present in dir.
func resolveShow(path, dir string) (string, error) {
	if path != "" {
		return path, nil
	}
	for _, name := range showCandidates {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no show given and none of %v found", showCandidates)
}

// createEngine builds the engine with standard CLI conventions.
func createEngine(ctx context.Context, showPath string, cfg config.Config, logger *slog.Logger, hooks domain.LifecycleHooks, extra ...cueline.Option) (*cueline.Engine, error) {
	path, err := resolveShow(showPath, ".")
	if err != nil {
		return nil, err
	}

	opts := []cueline.Option{
		cueline.WithLogger(logger),
		cueline.WithLifecycleHooks(hooks),
		cueline.WithBlockSize(cfg.BlockSize),
		cueline.WithQueueCapacity(cfg.QueueCapacity),
		cueline.WithChannels(cfg.Channels.Click, cfg.Channels.LTC),
		cueline.WithRouting(cfg.Audio.Left, cfg.Audio.Right),
		cueline.WithMediaDir(mediaDir(cfg.MediaDir, path)),
		cueline.WithEventHandler(logEvents(logger)),
	}
	// The show's own timecode settings win unless the config changes them.
	if cfg.Timecode != config.Default().Timecode {
		opts = append(opts, cueline.WithTimecode(cfg.Timecode.FPS, cfg.Timecode.Start))
	}
	opts = append(opts, extra...)

	engine, err := cueline.New(ctx, path, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing cueline: %w", err)
	}
	if engine.SampleRate() != cfg.SampleRate {
		logger.Warn("show sample rate differs from config; using the show's", "show", engine.SampleRate(), "config", cfg.SampleRate)
	}
	return engine, nil
}

// mediaDir resolves a relative media directory against the show's location.
func mediaDir(dir, showPath string) string {
	if dir == "" || filepath.IsAbs(dir) {
		return dir
	}
	base := showPath
	if info, err := os.Stat(showPath); err == nil && !info.IsDir() {
		base = filepath.Dir(showPath)
	}
	return filepath.Join(base, dir)
}
