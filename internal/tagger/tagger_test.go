package tagger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

func posOf(a *Analysis) []string {
	out := make([]string, len(a.Tokens))
	for i, tok := range a.Tokens {
		out[i] = tok.POS
	}
	return out
}

func TestTokenize(t *testing.T) {
	assert.Equal(t,
		[]string{"\"", "Hello", ",", "world", "!", "\""},
		Tokenize(`"Hello, world!"`))
	assert.Equal(t, []string{"don't", "stop", "-", "now"}, Tokenize("don't stop - now"))
	assert.Empty(t, Tokenize("   "))
}

func TestAnalyzeSimpleSentence(t *testing.T) {
	lt := NewLexiconTagger(nil)
	a, err := lt.Analyze(context.Background(), "The big dog runs.")
	require.NoError(t, err)

	assert.Equal(t, []string{"DET", "ADJ", "NOUN", "VERB", "PUNCT"}, posOf(a))
	assert.Equal(t, "run", a.Tokens[3].Lemma)
	for i, tok := range a.Tokens {
		assert.Equal(t, i, tok.Index)
	}
	assert.Empty(t, a.Compounds)
}

func TestAnalyzeIrregularAndProperNouns(t *testing.T) {
	lt := NewLexiconTagger(nil)
	a, err := lt.Analyze(context.Background(), "Alice met Bob Smith in Paris")
	require.NoError(t, err)

	assert.Equal(t, []string{"PROPN", "VERB", "PROPN", "PROPN", "ADP", "PROPN"}, posOf(a))
	assert.Equal(t, "meet", a.Tokens[1].Lemma)
	require.Len(t, a.Compounds, 1)
	assert.Equal(t, Compound{Start: 2, End: 4, Text: "Bob Smith", POS: "PROPN"}, a.Compounds[0])
}

func TestAnalyzeStemsAndSuffixes(t *testing.T) {
	lt := NewLexiconTagger(vocab.Bank{"VERB": {"chase", "stop"}, "NOUN": {"city"}})
	a, err := lt.Analyze(context.Background(), "chased stopping cities happiness quickly 42")
	require.NoError(t, err)

	assert.Equal(t, []string{"VERB", "VERB", "NOUN", "NOUN", "ADV", "NUM"}, posOf(a))
	assert.Equal(t, "chase", a.Tokens[0].Lemma)
	assert.Equal(t, "stop", a.Tokens[1].Lemma)
	assert.Equal(t, "city", a.Tokens[2].Lemma)
}

func TestAnalyzeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLexiconTagger(nil).Analyze(ctx, "hello")
	assert.Error(t, err)
}
