package cli

import (
	"context"
	"fmt"
	"strings"

	"factlink/internal/report"
	"factlink/internal/term"
)

// CommandHandler is a function that handles a command. args is the rest of
// the line after the command name, trimmed.
type CommandHandler func(ctx context.Context, c *CLI, args string) error

// Command represents a CLI command with all its metadata
type Command struct {
	Name        string         // Primary command name (e.g., "/help")
	Aliases     []string       // Alternative names (e.g., ["/h", "/?"])
	Description string         // Help text description
	Usage       string         // Usage pattern (e.g., "<text>")
	Handler     CommandHandler // Function to execute the command
}

// CommandRegistry holds all command definitions
type CommandRegistry struct {
	commands map[string]*Command
	ordered  []*Command // Maintain order for help display
}

// NewCommandRegistry creates and initializes the command registry
func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{
		commands: make(map[string]*Command),
		ordered:  []*Command{},
	}
	r.registerAllCommands()
	return r
}

// registerAllCommands defines all commands in one place
func (r *CommandRegistry) registerAllCommands() {
	commands := []*Command{
		{
			Name:        "/help",
			Aliases:     []string{"/h", "/?"},
			Description: "Show this help message",
			Handler:     handleHelp,
		},
		{
			Name:        "/link",
			Aliases:     []string{"/entities"},
			Description: "Link the named entities in a text",
			Usage:       "<text>",
			Handler:     handleLink,
		},
		{
			Name:        "/verify",
			Aliases:     []string{"/check"},
			Description: "Verify an answer (kind is inferred from the answer text)",
			Usage:       "<question> | <answer>",
			Handler:     handleVerify,
		},
		{
			Name:        "/clear",
			Description: "Clear screen",
			Handler:     handleClear,
		},
		{
			Name:        "/exit",
			Aliases:     []string{"/quit"},
			Description: "Exit the program (also exit or quit)",
			Handler:     nil, // Special case, handled in main loop
		},
	}

	for _, cmd := range commands {
		r.register(cmd)
	}
}

// register adds a command to the registry
func (r *CommandRegistry) register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	r.ordered = append(r.ordered, cmd)

	for _, alias := range cmd.Aliases {
		r.commands[alias] = cmd
	}
}

// Get retrieves a command by name (including aliases)
func (r *CommandRegistry) Get(name string) (*Command, bool) {
	cmd, ok := r.commands[strings.ToLower(name)]
	return cmd, ok
}

// GetAll returns all commands in order (excluding aliases)
func (r *CommandRegistry) GetAll() []*Command {
	return r.ordered
}

func handleHelp(_ context.Context, c *CLI, _ string) error {
	fmt.Fprintln(c.out, "\nAvailable Commands:")
	for _, cmd := range c.registry.GetAll() {
		usage := cmd.Name
		if cmd.Usage != "" {
			usage += " " + cmd.Usage
		}
		fmt.Fprintf(c.out, "  %-34s - %s\n", usage, cmd.Description)
	}
	fmt.Fprintln(c.out, "\nAnything else is asked as a question.")
	fmt.Fprintln(c.out)
	return nil
}

func handleLink(ctx context.Context, c *CLI, args string) error {
	if args == "" {
		return fmt.Errorf("usage: /link <text>")
	}
	entities, err := c.ops.Link.Link(ctx, args, "")
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Fprintln(c.out, FormatInfo("No entities linked"))
		return nil
	}
	for _, e := range entities {
		fmt.Fprintf(c.out, "  %s → %s\n", e.Mention, c.formatURL(report.WikipediaURL(e.ID)))
	}
	return nil
}

func handleVerify(ctx context.Context, c *CLI, args string) error {
	question, ans, ok := strings.Cut(args, "|")
	question, ans = strings.TrimSpace(question), strings.TrimSpace(ans)
	if !ok || question == "" || ans == "" {
		return fmt.Errorf("usage: /verify <question> | <answer>")
	}
	res, err := c.ops.Verify.Verify(ctx, question, ans, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Answer:  %s (%s)\n", FormatAnswer(res.Answer), res.Answer.Kind)
	fmt.Fprintf(c.out, "Verdict: %s\n", FormatVerdict(res.Verdict))
	return nil
}

func handleClear(_ context.Context, c *CLI, _ string) error {
	term.ClearScreen(c.out)
	return nil
}
