package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"factlink/internal/cli"
	"factlink/internal/config"
	"factlink/internal/logging"
	"factlink/internal/mcp"
	"factlink/internal/operations"
	"factlink/internal/report"
	"factlink/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		help       bool
		configPath string
		inputPath  string
		outputPath string
		serverPort int
		token      string
		debug      bool
		mcpMode    bool
		serveMode  bool
	)

	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message (shorthand)")
	flag.StringVar(&configPath, "config", os.Getenv("FACTLINK_CONFIG"), "YAML config file (can also use FACTLINK_CONFIG env var)")
	flag.StringVar(&inputPath, "input", os.Getenv("FACTLINK_INPUT"), "Batch input file of <id>\\t<question> lines; omit for interactive mode")
	flag.StringVar(&outputPath, "output", "", "Report file for batch mode, - for stdout (default output.path)")
	flag.IntVar(&serverPort, "port", 0, "Port for the HTTP API (default server.port)")
	flag.StringVar(&token, "token", "", "Optional bearer token for the HTTP API (default server.token)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&mcpMode, "mcp", false, "Run as MCP server for AI assistants (requires stdio connection)")
	flag.BoolVar(&serveMode, "serve", false, "Run the HTTP API")
	flag.Parse()

	if help {
		printHelp()
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if outputPath != "" {
		cfg.Output.Path = outputPath
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if token != "" {
		cfg.Server.Token = token
	}
	if debug {
		cfg.Log.Level = "debug"
	}

	interactive := !mcpMode && !serveMode && inputPath == ""
	logs := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Quiet:      interactive && cfg.Log.File != "",
	})
	defer logs.Close()
	logger := logs.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("start-up failed", "error", err)
		return 1
	}
	defer a.Close()

	switch {
	case mcpMode:
		err = mcp.RunMCPServer(a.ops, logger)
	case serveMode:
		err = serve(ctx, a, cfg.Server, logger)
	case inputPath != "":
		err = runBatch(ctx, a.ops, inputPath, cfg.Output.Path, logger)
	case interactive:
		err = cli.NewCLI(a.ops, logger).Run(ctx)
	}
	if err != nil {
		logger.Error("fatal", "error", err)
		return 1
	}
	return 0
}

func printHelp() {
	fmt.Println("factlink - answer questions, link entities and verify answers")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags]\n", os.Args[0])
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENROUTER_API_KEY   Generative model key (llm.api_key)")
	fmt.Println("  OPENAI_API_KEY       Embedding model key (embedder.api_key)")
	fmt.Println("  HF_API_TOKEN         Hugging Face token for the REBEL endpoint (triplets.token)")
	fmt.Println("  FACTLINK_*           Any config key, e.g. FACTLINK_KG_DBPEDIA_ENDPOINT")
	fmt.Println()
	fmt.Println("Modes:")
	fmt.Println("  -input FILE   batch mode, writes the report to -output")
	fmt.Println("  -serve        HTTP API on localhost")
	fmt.Println("  -mcp          MCP server over stdio (not a terminal)")
	fmt.Println("  (none)        interactive prompt")
}

// runBatch processes every question in the input file in order. Per-question
// failures are logged and skipped.
func runBatch(ctx context.Context, ops *operations.Operations, inputPath, outputPath string, logger *slog.Logger) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	questions, err := report.ReadQuestions(in, logger)
	if err != nil {
		return err
	}
	logger.Info("loaded questions", "count", len(questions), "input", inputPath)

	var out io.Writer = os.Stdout
	if outputPath != "-" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := report.NewWriter(out)

	written := 0
	for _, q := range questions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec, err := ops.Answer.Answer(ctx, q.ID, q.Text)
		if err != nil {
			if errors.Is(err, operations.ErrNoAnswer) {
				logger.Warn("skipping question", "question_id", q.ID, "error", err)
			} else {
				logger.Error("skipping question", "question_id", q.ID, "error", err)
			}
			continue
		}
		if err := w.Write(rec); err != nil {
			return err
		}
		written++
	}
	logger.Info("batch complete", "written", written, "skipped", len(questions)-written, "output", outputPath)
	return nil
}

// serve runs the HTTP API until ctx is cancelled.
func serve(ctx context.Context, a *app, cfg config.ServerConfig, logger *slog.Logger) error {
	apiServer := server.NewServer(cfg.Port, cfg.Token, a.ops, a.metrics, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping server", "error", err)
	}
	return nil
}
