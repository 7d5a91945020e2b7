package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"factlink/internal/operations/opstest"
	"factlink/internal/triplets"
)

func newTestCLI() (*CLI, *bytes.Buffer) {
	ops, _ := opstest.Fixture{
		Replies:   map[string]string{"Is Lisbon in Portugal? Answer:": " Yes, Lisbon is the capital of Portugal."},
		Places:    []string{"Lisbon", "Portugal"},
		Relations: []string{"capital of"},
		Triplets:  []triplets.Triplet{{Head: "Lisbon", Relation: "capital of", Tail: "Portugal"}},
	}.Build()
	c := NewCLI(ops, nil)
	var buf bytes.Buffer
	c.out = &buf
	return c, &buf
}

func TestProcessInput_Exit(t *testing.T) {
	for _, in := range []string{"exit", "quit", "  QUIT ", "/exit"} {
		c, buf := newTestCLI()
		assert.True(t, c.processInput(context.Background(), in), in)
		assert.Contains(t, buf.String(), "Goodbye!")
	}
}

func TestProcessInput_Empty(t *testing.T) {
	c, buf := newTestCLI()
	assert.False(t, c.processInput(context.Background(), "   "))
	assert.Contains(t, buf.String(), "Please enter a question.")
}

func TestProcessInput_Question(t *testing.T) {
	c, buf := newTestCLI()
	assert.False(t, c.processInput(context.Background(), "Is Lisbon in Portugal?"))

	out := buf.String()
	assert.Contains(t, out, "\tR\" Yes, Lisbon is the capital of Portugal.\"")
	assert.Contains(t, out, "\tA\"yes\"")
	assert.Contains(t, out, "\tC\"correct\"")
	assert.Contains(t, out, "\tE\"Lisbon\"\t\"https://en.wikipedia.org/wiki/Lisbon\"")
	assert.Contains(t, out, "\tE\"Portugal\"\t\"https://en.wikipedia.org/wiki/Portugal\"")
}

func TestProcessInput_NoAnswer(t *testing.T) {
	c, buf := newTestCLI()
	assert.False(t, c.processInput(context.Background(), "What is unanswerable?"))
	assert.Contains(t, buf.String(), "The model produced no answer.")
}

func TestCommands(t *testing.T) {
	ctx := context.Background()

	c, buf := newTestCLI()
	c.processInput(ctx, "/link Lisbon and Portugal")
	assert.Contains(t, buf.String(), "https://en.wikipedia.org/wiki/Portugal")

	c, buf = newTestCLI()
	c.processInput(ctx, "/verify Is Lisbon in Portugal? | no")
	assert.Contains(t, buf.String(), "incorrect")

	c, buf = newTestCLI()
	c.processInput(ctx, "/verify missing separator")
	assert.Contains(t, buf.String(), "usage: /verify")

	c, buf = newTestCLI()
	c.processInput(ctx, "/bogus")
	assert.Contains(t, buf.String(), "unknown command: /bogus")

	c, buf = newTestCLI()
	c.processInput(ctx, "/help")
	assert.Contains(t, buf.String(), "/verify <question> | <answer>")
}
