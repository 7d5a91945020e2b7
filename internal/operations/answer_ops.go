package operations

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"factlink/internal/linking"
	"factlink/internal/llm"
	"factlink/internal/metrics"
)

// AnswerOps runs the whole pipeline for a question.
type AnswerOps struct {
	model   llm.Model
	linker  *linking.Linker
	verify  *VerifyOps
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAnswerOps creates a new answer operations handler
func NewAnswerOps(model llm.Model, linker *linking.Linker, verify *VerifyOps, m *metrics.Metrics, logger *slog.Logger) *AnswerOps {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerOps{model: model, linker: linker, verify: verify, metrics: m, logger: logger}
}

// Prompt is the text sent to the model for question.
func Prompt(question string) string {
	return question + " Answer:"
}

// Answer generates an answer for question, links the entities in both, and
// verifies the answer. An empty id is replaced by a fresh UUID.
//
// Only generation failures are returned; ErrNoAnswer when the model said
// nothing. Linking and verification problems are logged and the record
// carries whatever could be computed.
func (a *AnswerOps) Answer(ctx context.Context, id, question string) (*AnswerRecord, error) {
	if id == "" {
		id = uuid.NewString()
	}
	logger := a.logger.With("question_id", id)
	logger.Info("processing question", "question", question)

	start := time.Now()
	raw, err := a.model.Generate(ctx, Prompt(question))
	a.metrics.ObserveStage("generate", start)
	if err != nil {
		a.metrics.Question("failed")
		return nil, NewOperationError("generate answer", id, err)
	}
	if strings.TrimSpace(raw) == "" {
		logger.Warn("no model output")
		a.metrics.Question("skipped")
		return nil, NewOperationError("generate answer", id, ErrNoAnswer)
	}

	start = time.Now()
	entities, err := a.linker.LinkQuestionAndAnswer(ctx, question, raw)
	a.metrics.ObserveStage("link", start)
	if err != nil {
		logger.Error("entity linking failed", "error", err)
		entities = nil
	}
	a.metrics.Linked("pipeline", len(entities))

	start = time.Now()
	result := a.verify.classifyAndVerify(ctx, question, raw, logger)
	a.metrics.ObserveStage("verify", start)

	a.metrics.Question("ok")
	return &AnswerRecord{
		ID:       id,
		Question: question,
		Raw:      raw,
		Answer:   result.Answer,
		Entities: entities,
		Verdict:  result.Verdict,
	}, nil
}
