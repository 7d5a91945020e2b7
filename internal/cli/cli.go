package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"factlink/internal/operations"
	"factlink/internal/report"
	"factlink/internal/term"
)

// CLI provides the interactive question loop
type CLI struct {
	ops      *operations.Operations
	registry *CommandRegistry
	readline *readline.Instance
	out      io.Writer
	osc      *term.OSCWriter
	links    bool // emit OSC 8 hyperlinks for entity URLs
	logger   *slog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(ops *operations.Operations, logger *slog.Logger) *CLI {
	if logger == nil {
		logger = slog.Default()
	}
	osc := term.NewOSCWriter(os.Stdout)
	return &CLI{
		ops:      ops,
		registry: NewCommandRegistry(),
		out:      osc,
		osc:      osc,
		logger:   logger,
	}
}

// Run starts the interactive session. It returns when the user types exit or
// quit, or on EOF.
func (c *CLI) Run(ctx context.Context) error {
	config := &readline.Config{
		Prompt:            PromptStyle.Render("question> "),
		HistoryFile:       filepath.Join(os.TempDir(), ".factlink_history"),
		AutoComplete:      c.buildAutoCompleter(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	c.readline = rl
	c.osc = term.NewOSCWriter(rl.Stdout())
	c.out = c.osc
	c.links = term.IsTerminal(os.Stdout)
	defer rl.Close()

	fmt.Fprintln(c.out, HeaderStyle.Render("factlink - answer, link and verify"))
	fmt.Fprintln(c.out, "Type a question, /help for commands, or exit to quit.")
	fmt.Fprintln(c.out)

	for {
		c.osc.SetMode(term.ModeInput)
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if errors.Is(err, io.EOF) {
			break
		}

		if done := c.processInput(ctx, line); done {
			break
		}
	}
	return nil
}

// buildAutoCompleter creates the autocompletion configuration
func (c *CLI) buildAutoCompleter() *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range c.registry.GetAll() {
		items = append(items, readline.PcItem(cmd.Name))
	}
	items = append(items, readline.PcItem("exit"), readline.PcItem("quit"))
	return readline.NewPrefixCompleter(items...)
}

// processInput handles one line of input and reports whether the session
// should end. Errors are printed, never returned.
func (c *CLI) processInput(ctx context.Context, input string) bool {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "":
		fmt.Fprintln(c.out, FormatWarning("Please enter a question."))
		return false
	case "exit", "quit", "/exit", "/quit":
		fmt.Fprintln(c.out, "Goodbye!")
		return true
	}

	var err error
	if strings.HasPrefix(input, "/") {
		err = c.processCommand(ctx, input)
	} else {
		err = c.askQuestion(ctx, input)
	}
	if err != nil {
		fmt.Fprintln(c.out, FormatError(err.Error()))
	}
	return false
}

// processCommand dispatches slash commands through the registry
func (c *CLI) processCommand(ctx context.Context, input string) error {
	name, rest, _ := strings.Cut(input, " ")
	cmd, ok := c.registry.Get(name)
	if !ok || cmd.Handler == nil {
		return fmt.Errorf("unknown command: %s (type /help for commands)", name)
	}
	return cmd.Handler(ctx, c, strings.TrimSpace(rest))
}

// askQuestion runs the full pipeline and prints the report lines followed by
// a colored summary.
func (c *CLI) askQuestion(ctx context.Context, question string) error {
	id := uuid.NewString()
	c.osc.StartProcessing("answer")
	rec, err := c.ops.Answer.Answer(ctx, id, question)
	c.osc.EndProcessing()
	if err != nil {
		if errors.Is(err, operations.ErrNoAnswer) {
			fmt.Fprintln(c.out, FormatWarning("The model produced no answer."))
			return nil
		}
		return err
	}

	fmt.Fprintln(c.out)
	for _, line := range report.Lines(rec) {
		fmt.Fprintln(c.out, line)
	}
	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "Answer:  %s (%s)\n", FormatAnswer(rec.Answer), rec.Answer.Kind)
	fmt.Fprintf(c.out, "Verdict: %s\n", FormatVerdict(rec.Verdict))
	for _, e := range rec.Entities {
		fmt.Fprintf(c.out, "  %s → %s\n", e.Mention, c.formatURL(report.WikipediaURL(e.ID)))
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *CLI) formatURL(url string) string {
	styled := URLStyle.Render(url)
	if c.links {
		return term.Hyperlink(url, styled)
	}
	return styled
}
