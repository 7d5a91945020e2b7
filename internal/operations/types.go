package operations

import (
	"errors"

	"factlink/internal/answer"
	"factlink/internal/linking"
	"factlink/internal/verify"
)

// ErrNoAnswer means the model produced no text for a question. The question
// is skipped and no record is written.
var ErrNoAnswer = errors.New("model produced no answer")

// Operations provides a unified interface for all business operations
type Operations struct {
	Answer *AnswerOps
	Link   *LinkOps
	Verify *VerifyOps
}

// AnswerRecord is the full result for one question. It is built once and not
// modified afterwards.
type AnswerRecord struct {
	ID       string                 `json:"id"`
	Question string                 `json:"question"`
	Raw      string                 `json:"raw"`
	Answer   answer.Answer          `json:"answer"`
	Entities []linking.LinkedEntity `json:"entities"`
	Verdict  verify.Verdict         `json:"verdict"`
}

// VerifyResult is the typed answer and its verdict.
type VerifyResult struct {
	Answer  answer.Answer  `json:"answer"`
	Verdict verify.Verdict `json:"verdict"`
}

// OperationError represents an error from an operation
type OperationError struct {
	Operation string
	Subject   string
	Cause     error
}

func (e *OperationError) Error() string {
	if e.Subject != "" {
		return e.Operation + " failed for " + e.Subject + ": " + e.Cause.Error()
	}
	return e.Operation + " failed: " + e.Cause.Error()
}

func (e *OperationError) Unwrap() error { return e.Cause }

// NewOperationError creates a new operation error
func NewOperationError(operation, subject string, cause error) error {
	return &OperationError{
		Operation: operation,
		Subject:   subject,
		Cause:     cause,
	}
}
