// Package operations holds the business operations shared by the batch
// runner, the REPL, the HTTP API and the MCP tools.
package operations

import (
	"log/slog"

	"factlink/internal/answer"
	"factlink/internal/linking"
	"factlink/internal/llm"
	"factlink/internal/metrics"
	"factlink/internal/verify"
)

// Deps is everything the operations need. It is built once at start-up and
// never mutated.
type Deps struct {
	Model    llm.Model
	Linker   *linking.Linker
	Typer    *answer.Typer
	Verifier *verify.Verifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// New creates a new Operations instance with all sub-operations
func New(d Deps) *Operations {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	verifyOps := NewVerifyOps(d.Typer, d.Verifier, d.Metrics, d.Logger)
	return &Operations{
		Answer: NewAnswerOps(d.Model, d.Linker, verifyOps, d.Metrics, d.Logger),
		Link:   NewLinkOps(d.Linker, d.Logger),
		Verify: verifyOps,
	}
}
