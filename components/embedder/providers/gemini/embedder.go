package gemini

import (
	"context"
	"net/http"

	gemini "github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/embedder"
)

// DefaultModel is the embedding model used when none is configured
const DefaultModel = "text-embedding-004"

type Embedder struct {
	*gemini.Client

	embedder.Options
}

var _ embedder.Embedder = (*Embedder)(nil)

func (p *Embedder) SetClient(clt *gemini.Client) {
	p.Client = clt
}

func New(client *gemini.Client, opts ...embedder.Option) *Embedder {
	i := &Embedder{
		Client: client,
	}
	opts = append([]embedder.Option{embedder.WithProvider(embedder.ProviderGemini), embedder.WithModel(DefaultModel)}, opts...)
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

func (p *Embedder) Embed(ctx context.Context, text string, usage *components.LLMUsage) ([]float32, error) {
	p.Logger().Debug("calling embedding API", zap.String("model", p.Model()), zap.Int("inputs", 1))
	resp, err := p.EmbeddingModel(p.Model()).EmbedContent(ctx, gemini.Text(text))
	if err != nil {
		return nil, components.NewProviderError(p.Provider(), err, IsRateLimited(err))
	}
	if resp.Embedding == nil {
		return nil, components.NewProviderError(p.Provider(), errors.New("empty embedding response"), false)
	}
	return resp.Embedding.Values, nil
}

// BatchEmbed does not report usage, the embedding API returns no token counts.
func (p *Embedder) BatchEmbed(ctx context.Context, parts []string, usage *components.LLMUsage) ([][]float32, error) {
	p.Logger().Debug("calling embedding API", zap.String("model", p.Model()), zap.Int("inputs", len(parts)))
	model := p.EmbeddingModel(p.Model())
	batch := model.NewBatch()
	for _, part := range parts {
		batch.AddContent(gemini.Text(part))
	}
	resp, err := model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, components.NewProviderError(p.Provider(), err, IsRateLimited(err))
	}
	if len(resp.Embeddings) != len(parts) {
		return nil, components.NewProviderError(p.Provider(), errors.Errorf("got %d embeddings for %d inputs", len(resp.Embeddings), len(parts)), false)
	}
	ret := make([][]float32, 0, len(resp.Embeddings))
	for idx, v := range resp.Embeddings {
		if v == nil {
			return nil, components.NewProviderError(p.Provider(), errors.Errorf("missing embedding for input %d", idx), false)
		}
		ret = append(ret, v.Values)
	}
	return ret, nil
}

// IsRateLimited reports whether a gemini client error is a quota rejection,
// RESOURCE_EXHAUSTED over gRPC or 429 over REST.
func IsRateLimited(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	if st, ok := status.FromError(err); ok {
		return st.Code() == codes.ResourceExhausted
	}
	return false
}
