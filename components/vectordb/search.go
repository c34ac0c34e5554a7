package vectordb

// SearchResult is a record ranked by a search.
type SearchResult struct {
	// Key is the record key
	Key string `json:"key" yaml:"key"`
	// Tag is the record provenance label
	Tag string `json:"tag" yaml:"tag"`
	// Text is the chunk text the record was embedded from
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
	// NTokens is the token count of Text
	NTokens int `json:"ntokens" yaml:"ntokens"`
	// Score is the cosine similarity between the query and the record
	Score float64 `json:"score" yaml:"score"`
	// Position is the insertion order offset of the record
	Position int `json:"position" yaml:"position"`
}

type SearchOptions struct {
	MinScore    float64
	HasMinScore bool
}

type SearchOption func(*SearchOptions)

// SearchWithMinScore drops results scoring below score.
// The remaining results keep their ranking, so they are still a prefix of the unfiltered ranking.
func SearchWithMinScore(score float64) SearchOption {
	return func(o *SearchOptions) {
		o.MinScore = score
		o.HasMinScore = true
	}
}
