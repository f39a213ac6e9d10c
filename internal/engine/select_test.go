package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

func TestRandSameSeedSameSequence(t *testing.T) {
	a, b := NewRand("abc"), NewRand("abc")
	for i := 0; i < 200; i++ {
		va, vb := a.Next(), b.Next()
		require.Equal(t, va, vb)
		require.GreaterOrEqual(t, va, 0.0)
		require.Less(t, va, 1.0)
	}
	assert.True(t, a.Seeded())
	assert.Equal(t, "abc", a.Seed())
}

func TestRandDifferentSeedsDiverge(t *testing.T) {
	a, b := NewRand("abc"), NewRand("abd")
	same := 0
	for i := 0; i < 20; i++ {
		if a.Next() == b.Next() {
			same++
		}
	}
	assert.Less(t, same, 20)
}

func TestRandUnseeded(t *testing.T) {
	r := NewRand("")
	assert.False(t, r.Seeded())
	assert.Empty(t, r.Seed())
	v := r.Next()
	assert.True(t, v >= 0 && v < 1)
}

func TestSelectIndexSingletonDoesNotDraw(t *testing.T) {
	src := &scripted{vals: []float64{0.99}}
	i, err := SelectIndex(src, 1, []float64{5})
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, 0, src.calls)
}

func TestSelectIndexEmpty(t *testing.T) {
	_, err := SelectIndex(&scripted{vals: []float64{0}}, 0, nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = SelectTemplate[string](&scripted{vals: []float64{0}}, nil, nil, nil)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestSelectIndexWeighted(t *testing.T) {
	tests := []struct {
		name    string
		draw    float64
		weights []float64
		want    int
	}{
		{"first bucket", 0.2, []float64{1, 3}, 0},
		{"second bucket", 0.5, []float64{1, 3}, 1},
		{"boundary is inclusive", 0.25, []float64{1, 3}, 0},
		{"zero weight skipped", 0.0, []float64{0, 1, 0}, 1},
		{"top of range", 0.9999999, []float64{2, 2, 0}, 1},
		{"invalid weights fall back to uniform", 0.6, []float64{-1, 1}, 1},
		{"mismatched weights fall back to uniform", 0.1, []float64{1}, 0},
		{"all zero weights fall back to uniform", 0.99, []float64{0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &scripted{vals: []float64{tt.draw}}
			n := 2
			if len(tt.weights) > n {
				n = len(tt.weights)
			}
			got, err := SelectIndex(src, n, tt.weights)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, src.calls)
		})
	}
}

func TestSelectTemplateRecords(t *testing.T) {
	rec := NewRecorder(true)
	got, err := SelectTemplate(&scripted{vals: []float64{0.7}}, []string{"a", "b"}, nil, rec)
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "selectTemplate", entries[0].Operation)
	assert.Equal(t, 1, entries[0].Result)
}

func TestTagsCompatible(t *testing.T) {
	tests := []struct {
		target, tag string
		want        bool
	}{
		{"NOUN", "NOUN", true},
		{"VERB", "VERB:past", true},
		{"VERB:past", "VERB", true},
		{"VERB:past", "VERB:gerund", true},
		{"NOUN", "PROPN", false},
		{"PROPN", "NOUN", false},
		{"PROPN", "PROPN", true},
		{"NOUN", "NOUN:plural", true},
		{"ADJ", "ADV", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TagsCompatible(tt.target, tt.tag), "%s vs %s", tt.target, tt.tag)
	}
}

func words() []models.CandidateWord {
	return []models.CandidateWord{
		{ID: "w-cat", Text: "cat", POS: []string{"NOUN"}},
		{ID: "w-paris", Text: "Paris", POS: []string{"PROPN"}},
		{ID: "w-run", Text: "run", POS: []string{"VERB", "NOUN"}},
		{ID: "w-ran", Text: "ran", Lemma: "run", POS: []string{"VERB:past"}},
		{ID: "w-red", Text: "red", POS: []string{"ADJ"}},
	}
}

func TestSelectWordFiltersByCategory(t *testing.T) {
	src := &scripted{vals: []float64{0.0, 0.99}}
	first := SelectWord(src, words(), "NOUN", WordContext{}, nil)
	assert.Equal(t, "w-cat", first.Word.ID)
	assert.Equal(t, SourceCandidate, first.Source)

	second := SelectWord(src, words(), "NOUN", WordContext{}, nil)
	assert.Equal(t, "w-run", second.Word.ID)

	propn := SelectWord(src, words(), "PROPN", WordContext{}, nil)
	assert.Equal(t, "w-paris", propn.Word.ID)
}

func TestSelectWordLockedRestriction(t *testing.T) {
	src := &scripted{vals: []float64{0.0}}
	wctx := WordContext{Locked: map[string]bool{"w-ran": true, "w-red": true}}
	got := SelectWord(src, words(), "VERB", wctx, nil)
	assert.Equal(t, "w-ran", got.Word.ID)
	assert.Equal(t, SourceLocked, got.Source)
	assert.Equal(t, 0, src.calls, "single locked word needs no draw")

	// locked but incompatible ids do not restrict the pool
	got = SelectWord(src, words(), "NOUN", WordContext{Locked: map[string]bool{"w-red": true}}, nil)
	assert.Equal(t, SourceCandidate, got.Source)
}

func TestSelectWordFallbackAndPlaceholder(t *testing.T) {
	bank := vocab.Bank{"ADV": {"slowly", "often"}, "INTJ": {"wow"}}
	src := &scripted{vals: []float64{0.6}}

	got := SelectWord(src, words(), "ADV", WordContext{Fallback: bank}, nil)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, "often", got.Word.Text)
	assert.Equal(t, []string{"ADV"}, got.Word.POS)

	got = SelectWord(src, nil, "INTJ:loud", WordContext{Fallback: bank}, nil)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, "wow", got.Word.Text)

	got = SelectWord(src, nil, "DET", WordContext{Fallback: bank}, nil)
	assert.Equal(t, SourcePlaceholder, got.Source)
	assert.Equal(t, "det", got.Word.Text)

	got = SelectWord(src, nil, "VERB:past", WordContext{}, nil)
	assert.Equal(t, "verb", got.Word.Text)
}

func TestSelectWordRecordsOnlyWhenEnabled(t *testing.T) {
	rec := NewRecorder(false)
	for i := 0; i < 50; i++ {
		SelectWord(NewRand("x"), words(), "NOUN", WordContext{}, rec)
	}
	assert.Empty(t, rec.Entries())

	rec.SetEnabled(true)
	SelectWord(NewRand("x"), words(), "NOUN", WordContext{}, rec)
	entries := rec.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "selectWord", entries[0].Operation)
	assert.Equal(t, "NOUN", entries[0].Inputs["category"])
}
