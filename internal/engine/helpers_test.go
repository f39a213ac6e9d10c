package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/document"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// scripted replays fixed values and counts draws
type scripted struct {
	vals  []float64
	calls int
}

func (s *scripted) Next() float64 {
	v := s.vals[s.calls%len(s.vals)]
	s.calls++
	return v
}

func mustParse(t *testing.T, markup string) *models.TemplateDocument {
	t.Helper()
	doc, err := document.Parse(markup)
	require.NoError(t, err)
	return doc
}

func phrase(t *testing.T, markup string) []models.PhraseToken {
	t.Helper()
	doc := mustParse(t, markup)
	require.Len(t, doc.Blocks, 1)
	return doc.Blocks[0].Tokens
}

func randomizedCount(tokens []models.PhraseToken) int {
	n := 0
	for _, tok := range tokens {
		if tok.Randomize {
			n++
		}
	}
	return n
}

// quietProfile has every pass switched off
func quietProfile() *models.Profile {
	return &models.Profile{ID: "quiet", Name: "quiet"}
}
