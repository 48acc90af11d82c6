package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/cueline"
	"github.com/aretw0/cueline/pkg/adapters/mcp"
	"golang.org/x/sync/errgroup"
)

// RunMCP runs the engine as an MCP server. Over stdio it stops when the client closes
// the stream; over SSE it stops on interrupt.
func RunMCP(opts ServeOptions) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	switch opts.Transport {
	case "", "stdio", "sse":
	default:
		return fmt.Errorf("unknown transport %q (supported: stdio, sse)", opts.Transport)
	}

	// stdout carries JSON-RPC; the banner and TUI stay off.
	opts.NoBanner, opts.Headless = true, true
	st, err := buildStack(sigCtx, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := mcp.NewServer(st.engine.Controller("mcp"), cueline.Version, mcp.WithLogger(st.logger))

	g, ctx := errgroup.WithContext(sigCtx)
	st.start(ctx, g, opts)

	if opts.Transport == "sse" {
		addr := opts.SSEAddr
		if addr == "" {
			addr = ":8081"
		}
		g.Go(func() error { return srv.ServeSSE(ctx, addr, baseURL(addr)) })
	} else {
		g.Go(func() error {
			st.logger.Info("MCP server started (stdio)")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("mcp: %w", err)
			}
			return errQuit
		})
	}

	return handleExecutionError(g.Wait())
}

// baseURL turns a listen address into the URL clients use to reach it.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
