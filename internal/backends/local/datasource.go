package local

import (
	"context"
	"sort"
	"strings"

	"github.com/arborflow/arbor/pkg/domain"
)

// Document is one entry of a static datasource.
type Document struct {
	Ref  string `mapstructure:"ref"`
	Text string `mapstructure:"text"`
}

// StaticSource grounds answers against a fixed document list using term
// overlap. Intended for tests and small curated fact sets.
type StaticSource struct {
	name string
	docs []Document
}

// NewStaticSource creates a source with the given documents.
func NewStaticSource(name string, docs []Document) *StaticSource {
	return &StaticSource{name: name, docs: docs}
}

// Search implements ports.DataSource.
func (s *StaticSource) Search(ctx context.Context, query string, limit int) ([]domain.Citation, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []domain.Citation
	for _, doc := range s.docs {
		text := strings.ToLower(doc.Text)
		matched := 0
		for _, term := range terms {
			if strings.Contains(text, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		snippet := doc.Text
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		hits = append(hits, domain.Citation{
			Source:  s.name,
			Ref:     doc.Ref,
			Snippet: snippet,
			Score:   float64(matched) / float64(len(terms)),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}
