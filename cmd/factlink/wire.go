package main

import (
	"context"
	"fmt"
	"log/slog"

	"factlink/internal/answer"
	"factlink/internal/config"
	"factlink/internal/embed"
	"factlink/internal/graph"
	"factlink/internal/httpclient"
	"factlink/internal/linking"
	"factlink/internal/llm"
	"factlink/internal/metrics"
	"factlink/internal/nlp"
	"factlink/internal/operations"
	"factlink/internal/triplets"
	"factlink/internal/verify"
)

// app is the fully wired pipeline. Everything in it is built once and shared
// read-only by whichever front end runs.
type app struct {
	ops      *operations.Operations
	metrics  *metrics.Metrics
	embedder embed.Embedder
}

func (a *app) Close() error {
	if a.embedder == nil {
		return nil
	}
	return a.embedder.Close()
}

// build wires every component from cfg. Any error is a start-up failure.
func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	client := httpclient.New(httpclient.Options{
		Timeout:           cfg.KG.Timeout,
		RetryMax:          cfg.KG.RetryMax,
		RequestsPerSecond: cfg.KG.RequestsPerSecond,
		UserAgent:         cfg.KG.UserAgent,
		Logger:            logger,
	})

	model, err := newModel(cfg.LLM, "")
	if err != nil {
		return nil, fmt.Errorf("language model: %w", err)
	}
	logger.Info("language model ready", "model", model.Name())

	recognizer, err := newRecognizer(cfg, client, logger)
	if err != nil {
		return nil, err
	}
	if err := nlp.Probe(ctx, recognizer); err != nil {
		return nil, err
	}
	logger.Info("entity recognizer ready", "kind", cfg.Recognizer.Kind)

	embedder, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	if _, err := embedder.EmbedText(ctx, "factlink"); err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("embedder unavailable: %w", err)
	}
	logger.Info("embedder ready", "model", embedder.ModelID())

	filter, err := graph.LoadTypeFilter(cfg.KG.TypeFiltersFile)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}
	store := graph.NewManager(client, graph.Endpoints{
		DBpediaSPARQL:  cfg.KG.DBpediaEndpoint,
		WikidataSPARQL: cfg.KG.WikidataSPARQL,
		WikidataAPI:    cfg.KG.WikidataAPI,
	}, filter, logger)

	generator, err := newGenerator(cfg, client)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	m := metrics.New()
	linker := linking.NewLinker(
		recognizer,
		linking.NewRetriever(store, store.TypeFilter()),
		linking.NewDisambiguator(embedder, logger),
		logger,
	)
	ops := operations.New(operations.Deps{
		Model:    model,
		Linker:   linker,
		Typer:    answer.NewTyper(recognizer, logger),
		Verifier: verify.NewVerifier(triplets.NewExtractor(generator), store, logger),
		Metrics:  m,
		Logger:   logger,
	})
	return &app{ops: ops, metrics: m, embedder: embedder}, nil
}

// newModel builds a generative model, optionally overriding the model name
// for a secondary use such as recognition or triplet generation.
func newModel(c config.LLMConfig, override string) (llm.Model, error) {
	name := c.Model
	if override != "" {
		name = override
	}
	return llm.New(llm.Config{
		Provider:  c.Provider,
		Model:     name,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		MaxTokens: c.MaxTokens,
	})
}

func newRecognizer(cfg config.Config, client *httpclient.Client, logger *slog.Logger) (nlp.Recognizer, error) {
	switch cfg.Recognizer.Kind {
	case "http":
		return nlp.NewHTTPRecognizer(client, cfg.Recognizer.URL, logger), nil
	case "llm":
		model, err := newModel(cfg.LLM, cfg.Recognizer.Model)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", nlp.ErrRecognitionUnavailable, err)
		}
		return nlp.NewLLMRecognizer(model, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown recognizer kind %q", nlp.ErrRecognitionUnavailable, cfg.Recognizer.Kind)
	}
}

func newEmbedder(c config.EmbedderConfig) (embed.Embedder, error) {
	switch c.Kind {
	case "openai":
		if c.APIKey == "" && c.BaseURL == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY or embedder.base_url", llm.ErrAPIKeyRequired)
		}
		return embed.NewOpenAIEmbedder(c.APIKey, c.BaseURL, c.Model), nil
	case "onnx":
		e, err := embed.NewONNXEmbedder(embed.ONNXConfig{
			OrtLibrary:    c.OrtLibrary,
			ModelPath:     c.ModelPath,
			TokenizerPath: c.TokenizerPath,
			MaxSeqLen:     c.MaxSeqLen,
			HiddenSize:    c.HiddenSize,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedder kind %q", c.Kind)
	}
}

func newGenerator(cfg config.Config, client *httpclient.Client) (triplets.Generator, error) {
	switch cfg.Triplets.Kind {
	case "http":
		return triplets.NewHTTPGenerator(client, cfg.Triplets.URL, cfg.Triplets.Token), nil
	case "llm":
		model, err := newModel(cfg.LLM, cfg.Triplets.Model)
		if err != nil {
			return nil, fmt.Errorf("triplet model: %w", err)
		}
		return triplets.NewLLMGenerator(model), nil
	default:
		return nil, fmt.Errorf("unknown triplets kind %q", cfg.Triplets.Kind)
	}
}
