package operations

import (
	"context"
	"fmt"
	"log/slog"

	"factlink/internal/answer"
	"factlink/internal/metrics"
	"factlink/internal/verify"
)

// VerifyOps types and verifies answers.
type VerifyOps struct {
	typer    *answer.Typer
	verifier *verify.Verifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewVerifyOps creates a new verify operations handler
func NewVerifyOps(typer *answer.Typer, verifier *verify.Verifier, m *metrics.Metrics, logger *slog.Logger) *VerifyOps {
	if logger == nil {
		logger = slog.Default()
	}
	return &VerifyOps{typer: typer, verifier: verifier, metrics: m, logger: logger}
}

// Verify checks answerText as an answer to question. When kind is empty the
// answer is first extracted and typed from answerText as if it were model
// output; otherwise answerText is taken literally as an answer of that kind.
func (v *VerifyOps) Verify(ctx context.Context, question, answerText, kind string) (*VerifyResult, error) {
	if question == "" || answerText == "" {
		return nil, NewOperationError("verify answer", "", fmt.Errorf("question and answer are required"))
	}
	if kind == "" {
		res := v.classifyAndVerify(ctx, question, answerText, v.logger)
		return &res, nil
	}

	k, ok := answer.ParseKind(kind)
	if !ok {
		return nil, NewOperationError("verify answer", kind, fmt.Errorf("kind must be YES_NO, ENTITY or UNKNOWN"))
	}
	ans := answer.Answer{Text: answerText, Kind: k}
	verdict := v.verifier.Verify(ctx, question, ans)
	v.metrics.Verdict(string(verdict))
	return &VerifyResult{Answer: ans, Verdict: verdict}, nil
}

func (v *VerifyOps) classifyAndVerify(ctx context.Context, question, raw string, logger *slog.Logger) VerifyResult {
	ans := v.typer.Classify(ctx, raw, question)
	v.metrics.AnswerKind(string(ans.Kind))
	logger.Info("extracted answer", "answer", ans.Text, "kind", ans.Kind)

	verdict := v.verifier.Verify(ctx, question, ans)
	v.metrics.Verdict(string(verdict))
	logger.Info("answer verdict", "verdict", verdict)
	return VerifyResult{Answer: ans, Verdict: verdict}
}
