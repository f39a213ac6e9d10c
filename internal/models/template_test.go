package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhraseToken_IsRandomizable(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"dog", true},
		{"Dog's", true},
		{",", false},
		{"42", false},
		{"", false},
		{"café", true},
		{"--", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, PhraseToken{Text: tt.text}.IsRandomizable())
		})
	}
}

func TestPhraseToken_Tags(t *testing.T) {
	tok := PhraseToken{POS: "NOUN", POSSet: []string{"PROPN", "NOUN", ""}}
	assert.Equal(t, []string{"NOUN", "PROPN"}, tok.Tags())
	assert.True(t, tok.HasBase("PROPN"))
	assert.False(t, tok.HasBase("VERB"))

	assert.Equal(t, "ADJ", PhraseToken{POSSet: []string{"ADJ"}}.Category())
	assert.Equal(t, "", PhraseToken{}.Category())
}

func TestBasePOS(t *testing.T) {
	assert.Equal(t, "VERB", BasePOS("VERB:past"))
	assert.Equal(t, "NOUN", BasePOS("NOUN"))
	assert.Equal(t, "", BasePOS(""))
}

func TestMorph(t *testing.T) {
	assert.False(t, MorphNone.IsConversion())
	assert.False(t, MorphBase.IsConversion())
	assert.True(t, MorphPast.IsConversion())
	assert.True(t, Morph("plural").Valid())
	assert.False(t, Morph("dual").Valid())
}

func TestTemplateDocument_CloneIsDeep(t *testing.T) {
	doc := &TemplateDocument{
		ID:   "t1",
		Tags: []string{"animals"},
		Blocks: []Block{
			{Kind: BlockText, Text: "Intro"},
			{Kind: BlockPhrase, Tokens: []PhraseToken{
				{ID: "a", Text: "cat", POS: "NOUN", POSSet: []string{"NOUN"}, Randomize: true},
			}},
		},
	}

	clone := doc.Clone()
	require.NotSame(t, doc, clone)

	clone.Tags[0] = "changed"
	clone.Blocks[1].Tokens[0].Text = "dog"
	clone.Blocks[1].Tokens[0].POSSet[0] = "VERB"

	assert.Equal(t, "animals", doc.Tags[0])
	assert.Equal(t, "cat", doc.Blocks[1].Tokens[0].Text)
	assert.Equal(t, "NOUN", doc.Blocks[1].Tokens[0].POSSet[0])
}

func TestTemplateDocument_FindTokenAndSlotCount(t *testing.T) {
	doc := &TemplateDocument{Blocks: []Block{
		{Kind: BlockPhrase, Tokens: []PhraseToken{{ID: "x", Text: "The"}, {ID: "y", Text: "dog", Randomize: true}}},
	}}

	bi, ti, ok := doc.FindToken("y")
	require.True(t, ok)
	assert.Equal(t, 0, bi)
	assert.Equal(t, 1, ti)

	_, _, ok = doc.FindToken("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, doc.SlotCount())
	assert.Equal(t, "The dog", doc.Blocks[0].PhraseText())
	assert.Equal(t, 1.0, doc.EffectiveWeight())
}
