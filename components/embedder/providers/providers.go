package providers

import (
	"github.com/bububa/docqa/components/embedder/providers/cohere"
	"github.com/bububa/docqa/components/embedder/providers/gemini"
	"github.com/bububa/docqa/components/embedder/providers/openai"
)

var (
	FromOpenAI = openai.New
	FromCohere = cohere.New
	FromGemini = gemini.New
)
