// Package mcp exposes transport control and status as Model Context Protocol tools, so
// an assistant can follow along with a show or drive rehearsals.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/cueline/internal/logging"
	"github.com/aretw0/cueline/pkg/domain"
	"github.com/aretw0/cueline/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// ShowURI is the resource holding the loaded show definition.
	ShowURI = "cueline://show"
	// TempoURI is the resource holding the live tempo map.
	TempoURI = "cueline://tempo"
)

// CommandResponse is returned by every command tool.
type CommandResponse struct {
	Seq     uint64          `json:"seq" jsonschema_description:"Sequence number of the queued command"`
	Applied bool            `json:"applied" jsonschema_description:"True once the engine applied the command; false if still queued"`
	Status  domain.Snapshot `json:"status" jsonschema_description:"Transport status after the command"`
}

// Server wraps a Controller and exposes it as an MCP server.
type Server struct {
	ctl       ports.Controller
	logger    *slog.Logger
	await     time.Duration
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAwait sets how long a tool waits for the engine to apply its command.
func WithAwait(d time.Duration) Option {
	return func(s *Server) { s.await = d }
}

// NewServer creates a new MCP Server instance.
func NewServer(ctl ports.Controller, version string, opts ...Option) *Server {
	s := &Server{
		ctl:       ctl,
		logger:    logging.NewNop(),
		await:     500 * time.Millisecond,
		mcpServer: server.NewMCPServer("cueline-mcp", version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

type noArgs struct{}

type jumpArgs struct {
	CueID string `json:"cue_id"`
}

type nudgeArgs struct {
	DeltaBPM float64 `json:"delta_bpm"`
}

type seekArgs struct {
	Beat      float64 `json:"beat"`
	KeepPhase bool    `json:"keep_phase"`
}

type loadArgs struct {
	Index int `json:"index"`
}

type muteArgs struct {
	Channel int  `json:"channel"`
	Mute    bool `json:"mute"`
}

type playrateArgs struct {
	Percent int `json:"percent"`
}

func (s *Server) registerTools() {
	simple := []struct {
		name, description string
		cmd               domain.Command
	}{
		{"play", "Start playback from the current cue, or resume after a stop.", domain.Play()},
		{"stop", "Stop playback and keep the current position.", domain.Stop()},
		{"reset", "Stop and return to the start cue.", domain.Reset()},
		{"go", "Trigger the current cue's Go action: jump, release a vamp or advance.", domain.GoCue()},
		{"release_vamp", "Release the current vamp hold.", domain.VampRelease()},
		{"hold", "Hold at the next bar line until released.", domain.HoldAtBar()},
	}
	for _, t := range simple {
		cmd := t.cmd
		s.mcpServer.AddTool(mcp.NewTool(t.name,
			mcp.WithDescription(t.description),
			mcp.WithOutputSchema[CommandResponse](),
		), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, _ noArgs) (CommandResponse, error) {
			return s.run(ctx, cmd)
		}))
	}

	s.mcpServer.AddTool(mcp.NewTool("jump_to_cue",
		mcp.WithDescription("Jump to a cue by id."),
		mcp.WithString("cue_id", mcp.Required(), mcp.Description("The id of the cue to jump to")),
		mcp.WithOutputSchema[CommandResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args jumpArgs) (CommandResponse, error) {
		if args.CueID == "" {
			return CommandResponse{}, errors.New("cue_id is required")
		}
		return s.run(ctx, domain.JumpTo(args.CueID))
	}))

	s.mcpServer.AddTool(mcp.NewTool("nudge_tempo",
		mcp.WithDescription("Shift all upcoming tempo by a number of beats per minute."),
		mcp.WithNumber("delta_bpm", mcp.Required(), mcp.Description("Tempo change in bpm, negative to slow down")),
		mcp.WithOutputSchema[CommandResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args nudgeArgs) (CommandResponse, error) {
		return s.run(ctx, domain.TempoNudge(args.DeltaBPM))
	}))

	s.mcpServer.AddTool(mcp.NewTool("seek_beat",
		mcp.WithDescription("Move the playhead to a beat of the current cue, counted from its entry."),
		mcp.WithNumber("beat", mcp.Required(), mcp.Min(0), mcp.Description("Beat offset from the cue entry")),
		mcp.WithBoolean("keep_phase", mcp.Description("Land where the next beat would have, keeping the click on the grid")),
		mcp.WithOutputSchema[CommandResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args seekArgs) (CommandResponse, error) {
		if args.KeepPhase {
			return s.run(ctx, domain.SeekBeat(args.Beat))
		}
		return s.run(ctx, domain.JumpBeat(args.Beat))
	}))

	s.mcpServer.AddTool(mcp.NewTool("load_cue",
		mcp.WithDescription("Jump to a cue by its position in show order, or select it while idle."),
		mcp.WithNumber("index", mcp.Required(), mcp.Min(0), mcp.Description("Zero-based cue index")),
		mcp.WithOutputSchema[CommandResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args loadArgs) (CommandResponse, error) {
		return s.run(ctx, domain.LoadCue(args.Index))
	}))

	s.mcpServer.AddTool(mcp.NewTool("mute_channel",
		mcp.WithDescription("Mute or unmute an output channel. Clips keep running while muted."),
		mcp.WithNumber("channel", mcp.Required(), mcp.Min(0), mcp.Max(domain.Channels-1)),
		mcp.WithBoolean("mute", mcp.Required()),
		mcp.WithOutputSchema[CommandResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args muteArgs) (CommandResponse, error) {
		return s.run(ctx, domain.ChannelMute(args.Channel, args.Mute))
	}))

	s.mcpServer.AddTool(mcp.NewTool("set_playrate",
		mcp.WithDescription("Play at a percentage of the authored tempo. Clip channels are silent away from 100."),
		mcp.WithNumber("percent", mcp.Required(), mcp.Min(domain.MinPlayrate), mcp.Max(domain.MaxPlayrate)),
		mcp.WithOutputSchema[CommandResponse](),
	), mcp.NewStructuredToolHandler(func(ctx context.Context, _ mcp.CallToolRequest, args playrateArgs) (CommandResponse, error) {
		return s.run(ctx, domain.Playrate(args.Percent))
	}))

	s.mcpServer.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get the transport status: state, cue, bar and beat, tempo and timecode."),
		mcp.WithOutputSchema[domain.Snapshot](),
	), mcp.NewStructuredToolHandler(func(context.Context, mcp.CallToolRequest, noArgs) (domain.Snapshot, error) {
		return s.ctl.Status(), nil
	}))
}

// run submits cmd and waits for the engine. Rejections are returned as tool errors.
func (s *Server) run(ctx context.Context, cmd domain.Command) (CommandResponse, error) {
	seq, err := s.ctl.Submit(cmd)
	if err != nil {
		s.logger.Warn("MCP command queue full", "kind", cmd.Kind, "err", err)
		return CommandResponse{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.await)
	defer cancel()
	res, err := s.ctl.Await(ctx, seq)
	if err != nil {
		return CommandResponse{Seq: seq, Status: s.ctl.Status()}, nil
	}
	if res.Err != nil {
		return CommandResponse{}, fmt.Errorf("%s rejected: %w", cmd.Kind, res.Err)
	}
	return CommandResponse{Seq: seq, Applied: true, Status: s.ctl.Status()}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ShowURI, "Loaded Show",
		mcp.WithResourceDescription("The show definition: tempo marks and cues in show order."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		show := s.ctl.Show()
		if show == nil {
			return nil, errors.New("no show loaded")
		}
		return jsonResource(ShowURI, show)
	})

	s.mcpServer.AddResource(mcp.NewResource(TempoURI, "Live Tempo Map",
		mcp.WithResourceDescription("Tempo segments including live nudges and cue overrides."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(TempoURI, s.ctl.Tempo())
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
