// Package config loads factlink settings from an optional YAML file, FACTLINK_*
// environment variables and a local .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrInvalid is returned when the decoded configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

type LLMConfig struct {
	Provider  string `mapstructure:"provider" validate:"oneof=openrouter openai anthropic"`
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,url"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"min=1"`
}

type RecognizerConfig struct {
	Kind  string `mapstructure:"kind" validate:"oneof=http llm"`
	URL   string `mapstructure:"url" validate:"required_if=Kind http"`
	Model string `mapstructure:"model"`
}

type EmbedderConfig struct {
	Kind          string `mapstructure:"kind" validate:"oneof=openai onnx"`
	Model         string `mapstructure:"model"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url" validate:"omitempty,url"`
	OrtLibrary    string `mapstructure:"ort_library"`
	ModelPath     string `mapstructure:"model_path" validate:"required_if=Kind onnx"`
	TokenizerPath string `mapstructure:"tokenizer_path" validate:"required_if=Kind onnx"`
	MaxSeqLen     int    `mapstructure:"max_seq_len" validate:"min=1"`
	HiddenSize    int    `mapstructure:"hidden_size" validate:"min=1"`
}

type TripletsConfig struct {
	Kind  string `mapstructure:"kind" validate:"oneof=http llm"`
	URL   string `mapstructure:"url" validate:"required_if=Kind http"`
	Token string `mapstructure:"token"`
	Model string `mapstructure:"model"`
}

type KGConfig struct {
	DBpediaEndpoint   string        `mapstructure:"dbpedia_endpoint" validate:"required,url"`
	WikidataSPARQL    string        `mapstructure:"wikidata_sparql" validate:"required,url"`
	WikidataAPI       string        `mapstructure:"wikidata_api" validate:"required,url"`
	UserAgent         string        `mapstructure:"user_agent" validate:"required"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RetryMax          int           `mapstructure:"retry_max" validate:"min=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"min=0"`
	TypeFiltersFile   string        `mapstructure:"type_filters_file"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=1"`
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`
}

type ServerConfig struct {
	Port  int    `mapstructure:"port" validate:"min=1,max=65535"`
	Token string `mapstructure:"token"`
}

type OutputConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// Config aggregates every setting the binary needs.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm"`
	Recognizer RecognizerConfig `mapstructure:"recognizer"`
	Embedder   EmbedderConfig   `mapstructure:"embedder"`
	Triplets   TripletsConfig   `mapstructure:"triplets"`
	KG         KGConfig         `mapstructure:"kg"`
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Output     OutputConfig     `mapstructure:"output"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.model", "meta-llama/llama-2-13b-chat")
	v.SetDefault("llm.max_tokens", 64)
	v.SetDefault("llm.base_url", "")

	v.SetDefault("recognizer.kind", "http")
	v.SetDefault("recognizer.url", "http://localhost:8080/ner")
	v.SetDefault("recognizer.model", "")

	v.SetDefault("embedder.kind", "openai")
	v.SetDefault("embedder.model", "text-embedding-3-small")
	v.SetDefault("embedder.max_seq_len", 256)
	v.SetDefault("embedder.hidden_size", 384)
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.ort_library", "")
	v.SetDefault("embedder.model_path", "")
	v.SetDefault("embedder.tokenizer_path", "")

	v.SetDefault("triplets.kind", "http")
	v.SetDefault("triplets.url", "https://api-inference.huggingface.co/models/Babelscape/rebel-large")
	v.SetDefault("triplets.model", "")

	v.SetDefault("kg.dbpedia_endpoint", "https://dbpedia.org/sparql")
	v.SetDefault("kg.wikidata_sparql", "https://query.wikidata.org/sparql")
	v.SetDefault("kg.wikidata_api", "https://www.wikidata.org/w/api.php")
	v.SetDefault("kg.user_agent", "factlink/1.0 (entity linking and fact checking)")
	v.SetDefault("kg.timeout", "30s")
	v.SetDefault("kg.retry_max", 0)
	v.SetDefault("kg.requests_per_second", 5.0)
	v.SetDefault("kg.type_filters_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "factlink.log")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("server.port", 8765)
	v.SetDefault("server.token", "")

	v.SetDefault("output.path", "output.txt")
}

// Load reads configuration. path may be empty, in which case only defaults,
// .env and the environment are consulted.
func Load(path string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("FACTLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Well-known provider keys are honoured without the prefix.
	_ = v.BindEnv("llm.api_key", "FACTLINK_LLM_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("embedder.api_key", "FACTLINK_EMBEDDER_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("triplets.token", "FACTLINK_TRIPLETS_TOKEN", "HF_API_TOKEN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field constraints declared in struct tags.
func (c Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
