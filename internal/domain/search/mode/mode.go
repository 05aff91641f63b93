package mode

// Mode is the search strategy.
type Mode string

// Search mode constants.
const (
	// Keyword is the default BM25 full-text search over title and content.
	Keyword Mode = "keyword"
	// Semantic searches by title-vector similarity.
	Semantic Mode = "semantic"
	// Hybrid fuses keyword and semantic branches with reciprocal rank fusion.
	Hybrid Mode = "hybrid"
	// Geo searches by distance from a point.
	Geo Mode = "geo"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Keyword || m == Semantic || m == Hybrid || m == Geo
}

// NeedsQuery reports whether the mode requires query text.
func (m Mode) NeedsQuery() bool {
	return m == Keyword || m == Semantic || m == Hybrid
}

// NeedsEmbedding reports whether the mode embeds the query text.
func (m Mode) NeedsEmbedding() bool {
	return m == Semantic || m == Hybrid
}
