package mode

import "testing"

func TestIsValid(t *testing.T) {
	for _, m := range []Mode{Keyword, Semantic, Hybrid, Geo} {
		if !m.IsValid() {
			t.Errorf("%q should be valid", m)
		}
	}
	for _, m := range []Mode{"", "fuzzy", "KEYWORD"} {
		if m.IsValid() {
			t.Errorf("%q should be invalid", m)
		}
	}
}

func TestNeedsQuery(t *testing.T) {
	if !Keyword.NeedsQuery() || !Semantic.NeedsQuery() || !Hybrid.NeedsQuery() {
		t.Error("text modes need query text")
	}
	if Geo.NeedsQuery() {
		t.Error("geo mode must not require query text")
	}
}

func TestNeedsEmbedding(t *testing.T) {
	if !Semantic.NeedsEmbedding() || !Hybrid.NeedsEmbedding() {
		t.Error("semantic and hybrid embed the query")
	}
	if Keyword.NeedsEmbedding() || Geo.NeedsEmbedding() {
		t.Error("keyword and geo must not embed")
	}
}
