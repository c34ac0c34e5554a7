package openai

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/embedder"
)

// DefaultModel is the embedding model used when none is configured
const DefaultModel = string(openai.AdaEmbeddingV2)

type Embedder struct {
	*openai.Client

	embedder.Options
}

var _ embedder.Embedder = (*Embedder)(nil)

func (p *Embedder) SetClient(clt *openai.Client) {
	p.Client = clt
}

func New(client *openai.Client, opts ...embedder.Option) *Embedder {
	i := &Embedder{
		Client: client,
	}
	opts = append([]embedder.Option{embedder.WithProvider(embedder.ProviderOpenAI), embedder.WithModel(DefaultModel)}, opts...)
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

func (p *Embedder) Embed(ctx context.Context, text string, usage *components.LLMUsage) ([]float32, error) {
	ret, err := p.BatchEmbed(ctx, []string{text}, usage)
	if err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return nil, components.NewProviderError(p.Provider(), errors.New("empty embedding response"), false)
	}
	return ret[0], nil
}

func (p *Embedder) BatchEmbed(ctx context.Context, parts []string, usage *components.LLMUsage) ([][]float32, error) {
	p.Logger().Debug("calling embedding API", zap.String("model", p.Model()), zap.Int("inputs", len(parts)))
	req := openai.EmbeddingRequest{
		Input: parts,
		Model: openai.EmbeddingModel(p.Model()),
	}
	resp, err := p.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, components.NewProviderError(p.Provider(), err, IsRateLimited(err))
	}
	if usage != nil {
		usage.InputTokens += int64(resp.Usage.PromptTokens)
	}
	ret := make([][]float32, len(parts))
	for _, v := range resp.Data {
		if v.Index < 0 || v.Index >= len(parts) {
			return nil, components.NewProviderError(p.Provider(), errors.Errorf("embedding index %d out of range", v.Index), false)
		}
		ret[v.Index] = v.Embedding
	}
	for idx, v := range ret {
		if v == nil {
			return nil, components.NewProviderError(p.Provider(), errors.Errorf("missing embedding for input %d", idx), false)
		}
	}
	return ret, nil
}

// IsRateLimited reports whether an openai client error is a 429 answer.
func IsRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
