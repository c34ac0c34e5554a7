package components

// LLMUsage accumulates the tokens billed by providers for a call or a pipeline run.
type LLMUsage struct {
	InputTokens  int64 `json:"input_tokens,omitempty" yaml:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty" yaml:"output_tokens,omitempty"`
}

func (u *LLMUsage) Merge(v *LLMUsage) {
	if u == nil || v == nil {
		return
	}
	u.InputTokens += v.InputTokens
	u.OutputTokens += v.OutputTokens
}

// Total returns input plus output tokens.
func (u LLMUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens
}
