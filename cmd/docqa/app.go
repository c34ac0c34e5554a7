package main

import (
	"context"
	"net/http"
	"strings"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cohereClient "github.com/cohere-ai/cohere-go/v2/client"
	cohereOption "github.com/cohere-ai/cohere-go/v2/option"
	gemini "github.com/google/generative-ai-go/genai"
	anthropic "github.com/liushuangls/go-anthropic/v2"
	milvusClient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/bububa/docqa/agents/rag"
	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/completer"
	anthropicCompleter "github.com/bububa/docqa/components/completer/providers/anthropic"
	openaiCompleter "github.com/bububa/docqa/components/completer/providers/openai"
	"github.com/bububa/docqa/components/document"
	"github.com/bububa/docqa/components/embedder"
	"github.com/bububa/docqa/components/embedder/providers"
	"github.com/bububa/docqa/components/vectordb"
	"github.com/bububa/docqa/components/vectordb/stores/chromem"
	"github.com/bububa/docqa/components/vectordb/stores/milvus"
	"github.com/bububa/docqa/internal/config"
)

// app holds the components built from the configuration of one command run
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *vectordb.Registry
	parsers  document.Parsers
	chunker  *embedder.ParagraphChunker
	closers  []func() error
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if name, _ := cmd.Flags().GetString("index"); name != "" {
		cfg.Index.Name = name
	}
	return cfg, nil
}

// newApp builds the logger, chunker and index registry. Providers are built on demand.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		logger:  logger,
		parsers: document.DefaultParsers(),
	}
	counter, err := embedder.NewTikTokenCounter(cfg.Chunk.Encoding)
	if err != nil {
		return nil, err
	}
	if a.chunker, err = embedder.NewParagraphChunker(
		embedder.WithMaxChunkTokens(cfg.Chunk.MaxTokens),
		embedder.WithMinParagraphSize(cfg.Chunk.MinParagraphSize),
		embedder.WithTokenCounter(counter),
	); err != nil {
		return nil, err
	}
	overwrite, ok := vectordb.ParseOverwritePolicy(cfg.Index.Overwrite)
	if !ok {
		return nil, errors.Errorf("invalid overwrite policy %q", cfg.Index.Overwrite)
	}
	reg := prometheus.NewRegistry()
	metrics, err := vectordb.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	opts := []vectordb.Option{
		vectordb.WithOverwritePolicy(overwrite),
		vectordb.WithLogger(logger),
		vectordb.WithMetrics(metrics),
	}
	store, err := a.newStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, vectordb.WithStore(store))
	}
	a.registry = vectordb.NewRegistry(opts...)
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := &http.Server{Addr: addr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", zap.Error(err))
			}
		}()
		a.closers = append(a.closers, srv.Close)
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) newStore(ctx context.Context) (vectordb.Store, error) {
	switch a.cfg.Store.Kind {
	case "chromem":
		return chromem.NewPersistent(a.cfg.Store.Path)
	case "milvus":
		clt, err := milvusClient.NewClient(ctx, milvusClient.Config{Address: a.cfg.Store.MilvusAddress})
		if err != nil {
			return nil, errors.Wrap(err, "connect milvus")
		}
		a.closers = append(a.closers, clt.Close)
		return milvus.New(clt), nil
	}
	return nil, nil
}

// index returns the configured index, restored from the store when there is one.
func (a *app) index(ctx context.Context) (*vectordb.Index, error) {
	idx := a.registry.Get(a.cfg.Index.Name)
	if idx.Store() == nil || idx.State() == vectordb.Ready {
		return idx, nil
	}
	if err := idx.Restore(ctx); err != nil && !errors.Is(err, vectordb.ErrStoreNotFound) {
		return nil, err
	}
	return idx, nil
}

func (a *app) retryPolicy(provider string) *components.RetryPolicy {
	return components.NewRetryPolicy(
		components.RetryWithProvider(provider),
		components.RetryWithMaxAttempts(a.cfg.Retry.MaxAttempts),
		components.RetryWithBackoff(components.ConstantBackoff(a.cfg.Retry.Delay)),
		components.RetryWithLogger(a.logger),
	)
}

// newEmbedder returns the document embedder and, for providers embedding
// questions differently, a query embedder. The query embedder is nil otherwise.
func (a *app) newEmbedder(ctx context.Context) (embedder.Embedder, embedder.Embedder, error) {
	cfg := a.cfg.Embedder
	opts := []embedder.Option{embedder.WithLogger(a.logger)}
	if cfg.Model != "" {
		opts = append(opts, embedder.WithModel(cfg.Model))
	}
	var e, query embedder.Embedder
	switch cfg.Provider {
	case "cohere":
		if a.cfg.Keys.Cohere == "" {
			return nil, nil, errors.New("COHERE_API_KEY is not set")
		}
		clientOpts := []cohereOption.RequestOption{cohereOption.WithToken(a.cfg.Keys.Cohere)}
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, cohereOption.WithBaseURL(cfg.BaseURL))
		}
		ce := providers.FromCohere(cohereClient.NewClient(clientOpts...), opts...)
		e, query = ce, ce.ForQueries()
	case "gemini":
		if a.cfg.Keys.Gemini == "" {
			return nil, nil, errors.New("GEMINI_API_KEY is not set")
		}
		clientOpts := []option.ClientOption{option.WithAPIKey(a.cfg.Keys.Gemini)}
		if cfg.BaseURL != "" {
			clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
		}
		clt, err := gemini.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create gemini client")
		}
		a.closers = append(a.closers, clt.Close)
		e = providers.FromGemini(clt, opts...)
	default:
		if a.cfg.Keys.OpenAI == "" {
			return nil, nil, errors.New("OPENAI_API_KEY is not set")
		}
		clientCfg := openai.DefaultConfig(a.cfg.Keys.OpenAI)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		e = providers.FromOpenAI(openai.NewClientWithConfig(clientCfg), opts...)
	}
	e = embedder.NewRetrying(e, a.retryPolicy(e.Provider()), a.cfg.Index.Dimension)
	if query != nil {
		query = embedder.NewRetrying(query, a.retryPolicy(query.Provider()), a.cfg.Index.Dimension)
	}
	return e, query, nil
}

func (a *app) newCompleter() (completer.Completer, error) {
	cfg := a.cfg.Completion
	params := completer.DefaultParams()
	params.MaxTokens = cfg.MaxTokens
	opts := []completer.Option{
		completer.WithParams(params),
		completer.WithLogger(a.logger),
	}
	if cfg.Model != "" {
		opts = append(opts, completer.WithModel(cfg.Model))
	}
	var c completer.Completer
	switch cfg.Provider {
	case "anthropic":
		if a.cfg.Keys.Anthropic == "" {
			return nil, errors.New("ANTHROPIC_API_KEY is not set")
		}
		c = anthropicCompleter.New(anthropic.NewClient(a.cfg.Keys.Anthropic), opts...)
	default:
		if a.cfg.Keys.OpenAI == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		c = openaiCompleter.New(openai.NewClient(a.cfg.Keys.OpenAI), opts...)
	}
	return completer.NewRetrying(c, a.retryPolicy(c.Provider())), nil
}

// newRAG builds the pipeline, with a completer when withCompleter is set.
func (a *app) newRAG(ctx context.Context, withCompleter bool) (*rag.RAG, error) {
	e, query, err := a.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}
	opts := []rag.Option{
		rag.WithName(a.cfg.Index.Name),
		rag.WithEmbedder(e),
		rag.WithChunker(a.chunker),
		rag.WithTopK(a.cfg.Completion.TopK),
		rag.WithLogger(a.logger),
	}
	if query != nil {
		opts = append(opts, rag.WithQueryEmbedder(query))
	}
	if withCompleter {
		c, err := a.newCompleter()
		if err != nil {
			return nil, err
		}
		opts = append(opts, rag.WithCompleter(c))
	}
	return rag.NewRAG(opts...)
}

// load fetches and parses a file path, an http(s) URL or an s3://bucket/key URI.
func (a *app) load(ctx context.Context, source string) (*document.Document, error) {
	var (
		raw *document.Raw
		err error
	)
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		raw, err = document.FromHTTP(ctx, nil, source)
	case strings.HasPrefix(source, "s3://"):
		bucket, key, ok := document.ParseS3URI(source)
		if !ok {
			return nil, errors.Errorf("invalid s3 uri %s", source)
		}
		awsCfg, cfgErr := awsConfig.LoadDefaultConfig(ctx)
		if cfgErr != nil {
			return nil, cfgErr
		}
		raw, err = document.FromS3(ctx, s3.NewFromConfig(awsCfg), bucket, key)
	default:
		raw, err = document.FromFile(ctx, source)
	}
	if err != nil {
		return nil, err
	}
	return a.parsers.Parse(ctx, raw)
}
