package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/logging"
	"github.com/sentinel-dev/sentinel/internal/mcp"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:   "mcp",
		Usage:  "Serve check/rules/index tools over MCP stdio",
		Action: mcpAction,
	}
}

func mcpAction(c *cli.Context) error {
	// stdio belongs to the JSON-RPC transport from here on.
	logging.SetQuietStdout(true)

	root, err := projectRoot(c)
	if err != nil {
		return userExit(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return userExit(err)
	}

	st, err := openStoreIfPresent(root)
	if err != nil {
		return userExit(err)
	}
	if st != nil {
		defer st.Close()
	}

	eng, err := newEngine(root, cfg, st)
	if err != nil {
		return userExit(err)
	}

	srv := mcp.NewServer(root, cfg, eng, st)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		return userExit(err)
	}
	return nil
}
