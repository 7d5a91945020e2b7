package mcp

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	mcp "github.com/metoro-io/mcp-golang"
	"github.com/metoro-io/mcp-golang/transport/stdio"

	"factlink/internal/operations"
	"factlink/internal/term"
)

// ErrTerminal is returned when stdin is a terminal rather than an MCP client.
var ErrTerminal = errors.New("MCP server mode requires stdin/stdout to be connected (not a terminal)")

// RunMCPServer serves the operations as MCP tools over stdio. The logger must
// not write to stdout.
func RunMCPServer(ops *operations.Operations, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	if term.IsTerminal(os.Stdin) {
		return ErrTerminal
	}

	logger.Info("starting MCP server")

	server := mcp.NewServer(stdio.NewStdioServerTransport())

	if err := RegisterOperationsTools(server, ops); err != nil {
		return fmt.Errorf("failed to register operations tools: %w", err)
	}

	logger.Info("MCP server ready, serving requests")
	if err := server.Serve(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	// Block forever - the server runs in background goroutines
	select {}
}
