package cohere

import (
	"context"
	"net/http"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereClient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/embedder"
	"github.com/bububa/docqa/components/vectordb"
)

// DefaultModel is the embedding model used when none is configured
const DefaultModel = "embed-multilingual-v3.0"

type Embedder struct {
	*cohereClient.Client

	embedder.Options
	inputType cohere.EmbedInputType
}

var _ embedder.Embedder = (*Embedder)(nil)

func (p *Embedder) SetClient(clt *cohereClient.Client) {
	p.Client = clt
}

func New(client *cohereClient.Client, opts ...embedder.Option) *Embedder {
	i := &Embedder{
		Client:    client,
		inputType: cohere.EmbedInputTypeSearchDocument,
	}
	opts = append([]embedder.Option{embedder.WithProvider(embedder.ProviderCohere), embedder.WithModel(DefaultModel)}, opts...)
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

// ForQueries returns a copy embedding search queries instead of documents.
func (p *Embedder) ForQueries() *Embedder {
	ret := *p
	ret.inputType = cohere.EmbedInputTypeSearchQuery
	return &ret
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
	model := p.Model()
	inputType := p.inputType
	req := cohere.EmbedRequest{
		Texts:     parts,
		Model:     &model,
		InputType: &inputType,
	}
	resp, err := p.Client.Embed(ctx, &req)
	if err != nil {
		return nil, components.NewProviderError(p.Provider(), err, IsRateLimited(err))
	}
	respV := resp.GetEmbeddingsFloats()
	if respV == nil {
		return nil, components.NewProviderError(p.Provider(), errors.New("missing float embeddings in response"), false)
	}
	if usage != nil && respV.Meta != nil && respV.Meta.Tokens != nil {
		if v := respV.Meta.Tokens.InputTokens; v != nil {
			usage.InputTokens += int64(*v)
		}
	}
	ret := make([][]float32, 0, len(respV.Embeddings))
	for _, v := range respV.Embeddings {
		ret = append(ret, vectordb.Float32s(v))
	}
	return ret, nil
}

// IsRateLimited reports whether a cohere client error is a 429 answer.
func IsRateLimited(err error) bool {
	var tooMany *cohere.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return true
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
