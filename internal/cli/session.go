package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/cueline"
	"github.com/aretw0/cueline/internal/adapters/file"
	redisAdapter "github.com/aretw0/cueline/internal/adapters/redis"
	"github.com/aretw0/cueline/internal/config"
	"github.com/aretw0/cueline/internal/logging"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
	"github.com/aretw0/cueline/pkg/session"
)

// persistence bundles the snapshot store and, when redis is configured, the status
// broadcaster sharing its connection.
type persistence struct {
	manager     *session.Manager
	redis       *redisAdapter.Store
	broadcaster *redisAdapter.Broadcaster
}

// setupPersistence uses redis when an address is configured and local JSON files
// otherwise.
func setupPersistence(ctx context.Context, cfg config.Config, logger *slog.Logger) (*persistence, error) {
	p := &persistence{}
	if cfg.Redis.Addr == "" {
		p.manager = session.NewManager(file.New(""), session.WithLogger(logger))
		return p, nil
	}

	p.redis = redisAdapter.New(cfg.Redis.Addr, "", 0,
		redisAdapter.WithPrefix(cfg.Redis.Prefix),
		redisAdapter.WithTTL(cfg.Redis.TTL),
	)
	if err := p.redis.Ping(ctx); err != nil {
		_ = p.redis.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
	}
	p.broadcaster = redisAdapter.NewBroadcaster(p.redis.Client(), cfg.Redis.Prefix)
	p.manager = session.NewManager(p.redis, session.WithLogger(logger))
	return p, nil
}

// Close releases the redis connection, if any.
func (p *persistence) Close() error {
	if p.redis == nil {
		return nil
	}
	return p.redis.Close()
}

// resumeRun puts the engine back on the cue a previous run stopped at. A missing run
// starts fresh.
func resumeRun(ctx context.Context, p *persistence, engine *cueline.Engine, runID string, logger *slog.Logger) error {
	cmds, snap, err := p.manager.Resume(ctx, runID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		logger.Info("no previous run, starting fresh", "run_id", runID)
		return nil
	}
	if err != nil {
		return err
	}

	ctl := engine.Controller("session")
	for _, cmd := range cmds {
		seq, err := ctl.Submit(cmd)
		if err != nil {
			return err
		}
		res, err := ctl.Await(ctx, seq)
		if err != nil {
			return err
		}
		if res.Err != nil {
			logger.Warn("could not restore cue", "run_id", runID, "cue", snap.CueID, "err", res.Err)
			return nil
		}
	}
	logger.Info("run resumed", "run_id", runID, "cue", snap.CueID)
	printSystemMessage("Resumed run '%s' at cue '%s'.", runID, snap.CueID)
	return nil
}

// statusSource is the read side of the status publisher.
type statusSource interface {
	Load() domain.Snapshot
	Watch() (<-chan struct{}, func())
}

// broadcastStatus mirrors every published snapshot that differs from the previous one
// to the redis status channel until ctx ends.
func broadcastStatus(ctx context.Context, src statusSource, bc *redisAdapter.Broadcaster, logger *slog.Logger) error {
	ch, cancel := src.Watch()
	defer cancel()

	var last *domain.Snapshot
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			snap := src.Load()
			if domain.Diff(last, &snap) == nil {
				continue
			}
			if err := bc.PublishStatus(ctx, snap); err != nil && ctx.Err() == nil {
				logger.Warn("failed to publish status", "err", err)
				continue
			}
			last = &snap
		}
	}
}

// OpenStore returns the snapshot store the serve command records runs to.
func OpenStore(ctx context.Context, opts ServeOptions) (ports.SnapshotStore, func() error, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	p, err := setupPersistence(ctx, cfg, logging.NewNop())
	if err != nil {
		return nil, nil, err
	}
	return p.manager.Store(), p.Close, nil
}
