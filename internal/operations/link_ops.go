package operations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"factlink/internal/linking"
)

// LinkOps exposes entity linking on arbitrary text.
type LinkOps struct {
	linker *linking.Linker
	logger *slog.Logger
}

// NewLinkOps creates a new link operations handler
func NewLinkOps(linker *linking.Linker, logger *slog.Logger) *LinkOps {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkOps{linker: linker, logger: logger}
}

// Link links the mentions in text against contextText, which defaults to the
// text itself.
func (l *LinkOps) Link(ctx context.Context, text, contextText string) ([]linking.LinkedEntity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewOperationError("link entities", "", fmt.Errorf("text is required"))
	}
	if contextText == "" {
		contextText = text
	}
	entities, err := l.linker.LinkAll(ctx, text, contextText)
	if err != nil {
		return nil, NewOperationError("link entities", "", err)
	}
	return linking.Dedupe(entities), nil
}
