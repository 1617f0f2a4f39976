package main

import (
	"context"

	"github.com/daikw/judy/internal/bridge"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
)

func handleMCP(ctx context.Context, c *cli.Command) error {
	a, err := buildApp(ctx, c)
	if err != nil {
		return err
	}
	defer a.Close()

	// stdout belongs to the protocol; logs already go to stderr
	return server.ServeStdio(bridge.NewMCPServer(a.session, version))
}
