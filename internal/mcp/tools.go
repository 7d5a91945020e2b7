package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcp "github.com/metoro-io/mcp-golang"

	"factlink/internal/operations"
	"factlink/internal/report"
)

// AnswerArgs are the arguments of answer_question.
type AnswerArgs struct {
	ID       string `json:"id,omitempty" jsonschema:"description=Question id (a UUID is generated when empty)"`
	Question string `json:"question" jsonschema:"required,description=Natural-language question to answer and check"`
}

// LinkArgs are the arguments of link_entities.
type LinkArgs struct {
	Text    string `json:"text" jsonschema:"required,description=Text whose named entities are linked"`
	Context string `json:"context,omitempty" jsonschema:"description=Disambiguation context (defaults to the text)"`
}

// VerifyArgs are the arguments of verify_answer.
type VerifyArgs struct {
	Question string `json:"question" jsonschema:"required,description=The question that was asked"`
	Answer   string `json:"answer" jsonschema:"required,description=Answer text or raw model output"`
	Kind     string `json:"kind,omitempty" jsonschema:"enum=YES_NO;ENTITY;UNKNOWN,description=Answer kind; when empty the answer is extracted from the text first"`
}

// tools binds the operations layer to MCP handlers.
type tools struct {
	ops *operations.Operations
}

// RegisterOperationsTools registers all operations-based tools with the MCP server
func RegisterOperationsTools(server *mcp.Server, ops *operations.Operations) error {
	t := &tools{ops: ops}

	if err := server.RegisterTool(
		"answer_question",
		"Answer a question with the language model, link its entities and verify the answer against Wikidata",
		t.answer,
	); err != nil {
		return fmt.Errorf("failed to register answer_question: %w", err)
	}

	if err := server.RegisterTool(
		"link_entities",
		"Link the named entities in a text to DBpedia resources",
		t.link,
	); err != nil {
		return fmt.Errorf("failed to register link_entities: %w", err)
	}

	if err := server.RegisterTool(
		"verify_answer",
		"Check an answer to a question against Wikidata relations",
		t.verify,
	); err != nil {
		return fmt.Errorf("failed to register verify_answer: %w", err)
	}

	return nil
}

func (t *tools) answer(args AnswerArgs) (*mcp.ToolResponse, error) {
	text, err := t.answerText(context.Background(), args)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(text)), nil
}

// answerText returns the report lines for the question.
func (t *tools) answerText(ctx context.Context, args AnswerArgs) (string, error) {
	rec, err := t.ops.Answer.Answer(ctx, args.ID, args.Question)
	if err != nil {
		return "", err
	}
	return strings.Join(report.Lines(rec), "\n"), nil
}

func (t *tools) link(args LinkArgs) (*mcp.ToolResponse, error) {
	text, err := t.linkText(context.Background(), args)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(text)), nil
}

func (t *tools) linkText(ctx context.Context, args LinkArgs) (string, error) {
	entities, err := t.ops.Link.Link(ctx, args.Text, args.Context)
	if err != nil {
		return "", err
	}
	if len(entities) == 0 {
		return "No entities linked", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Linked %d entities:\n", len(entities))
	for i, e := range entities {
		fmt.Fprintf(&b, "\n%d. %s - %s", i+1, e.Mention, report.WikipediaURL(e.ID))
	}
	return b.String(), nil
}

func (t *tools) verify(args VerifyArgs) (*mcp.ToolResponse, error) {
	text, err := t.verifyText(context.Background(), args)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResponse(mcp.NewTextContent(text)), nil
}

func (t *tools) verifyText(ctx context.Context, args VerifyArgs) (string, error) {
	res, err := t.ops.Verify.Verify(ctx, args.Question, args.Answer, args.Kind)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
