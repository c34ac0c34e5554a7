package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/completer"
	"github.com/bububa/docqa/components/embedder"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "DOCQA"

// Config is the runtime configuration of docqa
type Config struct {
	Chunk      ChunkConfig      `mapstructure:"chunk" validate:"required"`
	Index      IndexConfig      `mapstructure:"index" validate:"required"`
	Embedder   EmbedderConfig   `mapstructure:"embedder" validate:"required"`
	Completion CompletionConfig `mapstructure:"completion" validate:"required"`
	Retry      RetryConfig      `mapstructure:"retry" validate:"required"`
	Store      StoreConfig      `mapstructure:"store" validate:"required"`
	Log        LogConfig        `mapstructure:"log"`
	Keys       APIKeys          `mapstructure:"keys"`
}

type ChunkConfig struct {
	MaxTokens        int    `mapstructure:"max_tokens" validate:"gt=0"`
	MinParagraphSize int    `mapstructure:"min_paragraph_size" validate:"gte=0"`
	Encoding         string `mapstructure:"encoding" validate:"required"`
}

type IndexConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	// Dimension is the expected embedding size, 0 accepts whatever the embedder returns
	Dimension int    `mapstructure:"dimension" validate:"gte=0"`
	Overwrite string `mapstructure:"overwrite" validate:"oneof=replace reject"`
}

type EmbedderConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=openai cohere gemini"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

type CompletionConfig struct {
	Provider  string `mapstructure:"provider" validate:"oneof=openai anthropic"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"gt=0"`
	TopK      int    `mapstructure:"top_k" validate:"gt=0"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" validate:"gt=0"`
	Delay       time.Duration `mapstructure:"delay" validate:"gte=0"`
}

type StoreConfig struct {
	Kind          string `mapstructure:"kind" validate:"oneof=memory chromem milvus"`
	Path          string `mapstructure:"path" validate:"required_if=Kind chromem"`
	MilvusAddress string `mapstructure:"milvus_address" validate:"required_if=Kind milvus"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

type APIKeys struct {
	OpenAI    string `mapstructure:"openai"`
	Cohere    string `mapstructure:"cohere"`
	Gemini    string `mapstructure:"gemini"`
	Anthropic string `mapstructure:"anthropic"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chunk.max_tokens", embedder.DefaultMaxChunkTokens)
	v.SetDefault("chunk.min_paragraph_size", embedder.DefaultMinParagraphSize)
	v.SetDefault("chunk.encoding", embedder.DefaultEncoding)
	v.SetDefault("index.name", "default")
	v.SetDefault("index.dimension", 0)
	v.SetDefault("index.overwrite", "replace")
	v.SetDefault("embedder.provider", "openai")
	v.SetDefault("embedder.model", "")
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("completion.provider", "openai")
	v.SetDefault("completion.model", "")
	v.SetDefault("completion.max_tokens", completer.DefaultMaxTokens)
	v.SetDefault("completion.top_k", 5)
	v.SetDefault("retry.max_attempts", components.DefaultRetryAttempts)
	v.SetDefault("retry.delay", components.DefaultRetryDelay)
	v.SetDefault("store.kind", "memory")
	v.SetDefault("store.path", "")
	v.SetDefault("store.milvus_address", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads configuration from defaults, an optional config file, a .env
// file in the working directory and DOCQA_ prefixed environment variables,
// in increasing precedence. The provider API keys come from their usual
// OPENAI_API_KEY, COHERE_API_KEY, GEMINI_API_KEY and ANTHROPIC_API_KEY variables.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range map[string]string{
		"keys.openai":    "OPENAI_API_KEY",
		"keys.cohere":    "COHERE_API_KEY",
		"keys.anthropic": "ANTHROPIC_API_KEY",
		"keys.gemini":    "GEMINI_API_KEY",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", configFile)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the field constraints of cfg
func (cfg *Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	return nil
}
