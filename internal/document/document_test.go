package document

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/tagger"
)

func TestParseSlots(t *testing.T) {
	doc, err := Parse("[!NOUN=Cat] chases [NOUN|PROPN:plural#2=dog] , [VERB]\n> A literal line\n\n[ADJ:comparative]")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 3)

	phrase := doc.Blocks[0]
	assert.Equal(t, models.BlockPhrase, phrase.Kind)
	require.Len(t, phrase.Tokens, 5)

	cat := phrase.Tokens[0]
	assert.Equal(t, "Cat", cat.Text)
	assert.Equal(t, "NOUN", cat.POS)
	assert.False(t, cat.Randomize)

	assert.Equal(t, "chases", phrase.Tokens[1].Text)
	assert.Empty(t, phrase.Tokens[1].POS)
	assert.False(t, phrase.Tokens[1].Randomize)

	dog := phrase.Tokens[2]
	assert.Equal(t, "dog", dog.Text)
	assert.Equal(t, "NOUN", dog.POS)
	assert.Equal(t, []string{"PROPN"}, dog.POSSet)
	assert.Equal(t, models.MorphPlural, dog.Morph)
	assert.Equal(t, "2", dog.SlotLabel)
	assert.True(t, dog.Randomize)

	verb := phrase.Tokens[4]
	assert.Equal(t, "verb", verb.Text)
	assert.True(t, verb.Randomize)

	assert.Equal(t, models.Block{Kind: models.BlockText, Text: "A literal line"}, doc.Blocks[1])
	assert.Equal(t, "adj", doc.Blocks[2].Tokens[0].Text)

	ids := map[string]bool{}
	for _, b := range doc.Blocks {
		for _, tok := range b.Tokens {
			assert.NotEmpty(t, tok.ID)
			assert.False(t, ids[tok.ID], "duplicate id")
			ids[tok.ID] = true
		}
	}
}

func TestParseNonAlphabeticSlotIsLiteral(t *testing.T) {
	doc, err := Parse("[NUM=42]")
	require.NoError(t, err)
	assert.False(t, doc.Blocks[0].Tokens[0].Randomize)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"unterminated", "the [NOUN"},
		{"bad label", "[NOUN#4]"},
		{"bad morph", "[VERB:future]"},
		{"empty tag", "[NOUN||VERB]"},
		{"empty slot", "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.markup)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Equal(t, 1, perr.Line)
		})
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	markups := []string{
		"[!NOUN=Cat] chases [NOUN]\n",
		"> Intro text\nThe [ADJ|ADV:superlative#1=quick] fox [VERB:past#1] .\n",
		"[=thing] and [!:past=ran]\n",
		"[PROPN=Bob Smith] met [PROPN]\n",
	}
	ignoreIDs := cmpopts.IgnoreFields(models.PhraseToken{}, "ID")
	for _, markup := range markups {
		doc, err := Parse(markup)
		require.NoError(t, err)
		rendered := Render(doc)
		assert.Equal(t, markup, rendered)

		again, err := Parse(rendered)
		require.NoError(t, err)
		if diff := cmp.Diff(doc.Blocks, again.Blocks, ignoreIDs, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestRenderEscapesTaggedBrackets(t *testing.T) {
	a, err := tagger.NewLexiconTagger(nil).Analyze(context.Background(), "See the list [a] below.")
	require.NoError(t, err)
	doc := FromAnalysis(a)

	again, err := Parse(Render(doc))
	require.NoError(t, err)
	ignoreIDs := cmpopts.IgnoreFields(models.PhraseToken{}, "ID")
	if diff := cmp.Diff(doc.Blocks, again.Blocks, ignoreIDs, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderEscapesSpecialText(t *testing.T) {
	doc := &models.TemplateDocument{Blocks: []models.Block{
		{Kind: models.BlockText, Text: "kept as is"},
		{Kind: models.BlockPhrase, Tokens: []models.PhraseToken{
			{Text: ">quoted"},
			{Text: "note[1]"},
			{Text: `a\b`},
			{Text: "two words"},
			{Text: "x]y", Lemma: "l=m", POS: "NOUN", SlotLabel: "2", Randomize: true},
			{Text: "ate", Lemma: "eat", POS: "VERB", Morph: models.MorphPast},
		}},
	}}

	rendered := Render(doc)
	assert.Equal(t, "> kept as is\n"+`\>quoted note\[1\] a\\b two\ words [NOUN#2~l\=m=x\]y] [!VERB:past~eat=ate]`+"\n", rendered)

	again, err := Parse(rendered)
	require.NoError(t, err)
	ignoreIDs := cmpopts.IgnoreFields(models.PhraseToken{}, "ID")
	if diff := cmp.Diff(doc.Blocks, again.Blocks, ignoreIDs, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromAnalysisMergesCompounds(t *testing.T) {
	a := &tagger.Analysis{
		Tokens: []tagger.Token{
			{Value: "Bob", Lemma: "Bob", POS: "PROPN", Index: 0},
			{Value: "Smith", Lemma: "Smith", POS: "PROPN", Index: 1},
			{Value: "ate", Lemma: "eat", POS: "VERB", Index: 2},
		},
		Compounds: []tagger.Compound{{Start: 0, End: 2, Text: "Bob Smith", POS: "PROPN"}},
	}
	doc := FromAnalysis(a)
	require.Len(t, doc.Blocks, 1)
	toks := doc.Blocks[0].Tokens
	require.Len(t, toks, 2)
	assert.Equal(t, "Bob Smith", toks[0].Text)
	assert.Equal(t, "PROPN", toks[0].POS)
	assert.Equal(t, "eat", toks[1].Lemma)
	assert.False(t, toks[0].Randomize)
	assert.False(t, toks[1].Randomize)
}

func TestFromTextAndTag(t *testing.T) {
	lt := tagger.NewLexiconTagger(nil)
	doc, err := FromText(context.Background(), lt, "The dog runs\n\nAlice sings")
	require.NoError(t, err)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "NOUN", doc.Blocks[0].Tokens[1].POS)

	parsed, err := Parse("The big [NOUN] runs.")
	require.NoError(t, err)
	require.NoError(t, Tag(context.Background(), lt, parsed))
	toks := parsed.Blocks[0].Tokens
	assert.Equal(t, "DET", toks[0].POS)
	assert.Equal(t, "ADJ", toks[1].POS)
	assert.Equal(t, "NOUN", toks[2].POS)
	assert.Equal(t, "VERB", toks[3].POS)
	assert.Equal(t, "run", toks[3].Lemma)
}

func TestFlatRoundTrip(t *testing.T) {
	doc, err := Parse("> Heading\n[NOUN#1] sleeps\n[VERB:past] now")
	require.NoError(t, err)
	doc.Name = "sample"

	flat := ToFlat(doc)
	require.Len(t, flat, 5)
	assert.True(t, flat[0].Break)
	assert.Equal(t, models.BlockText, flat[0].Kind)
	assert.True(t, flat[1].Break)
	assert.False(t, flat[2].Break)
	assert.True(t, flat[3].Break)

	back, err := FromFlat(flat, doc)
	require.NoError(t, err)
	assert.Equal(t, "sample", back.Name)
	if diff := cmp.Diff(doc.Blocks, back.Blocks, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("flat round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFlatIDsAndValidation(t *testing.T) {
	flat := []FlatToken{
		{ID: "a", Kind: models.BlockPhrase, Text: "cat", Randomize: true},
		{ID: "a", Kind: models.BlockPhrase, Text: "dog"},
		{Kind: models.BlockPhrase, Text: "!!", Randomize: true},
	}
	doc, err := FromFlat(flat, nil)
	require.NoError(t, err)
	toks := doc.Blocks[0].Tokens
	assert.Equal(t, "a", toks[0].ID)
	assert.NotEqual(t, "a", toks[1].ID)
	assert.NotEmpty(t, toks[2].ID)
	assert.False(t, toks[2].Randomize)

	_, err = FromFlat([]FlatToken{{Kind: models.BlockPhrase, Text: "x", SlotLabel: "9"}}, nil)
	assert.Error(t, err)
	_, err = FromFlat([]FlatToken{{Kind: models.BlockPhrase, Text: "x", Morph: "future"}}, nil)
	assert.Error(t, err)
}

func TestCycleSlotLabel(t *testing.T) {
	doc, err := Parse("[NOUN]")
	require.NoError(t, err)
	id := doc.Blocks[0].Tokens[0].ID

	var got []string
	for i := 0; i < 5; i++ {
		label, err := CycleSlotLabel(doc, id)
		require.NoError(t, err)
		got = append(got, label)
	}
	assert.Equal(t, []string{"1", "2", "3", "", "1"}, got)

	_, err = CycleSlotLabel(doc, "missing")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestSetMorphTurnsRandomizeOn(t *testing.T) {
	doc, err := Parse("[!VERB=eat] 42")
	require.NoError(t, err)
	eat := doc.Blocks[0].Tokens[0]
	num := doc.Blocks[0].Tokens[1]

	require.NoError(t, SetMorph(doc, eat.ID, models.MorphPast))
	assert.True(t, doc.Blocks[0].Tokens[0].Randomize)
	assert.Equal(t, models.MorphPast, doc.Blocks[0].Tokens[0].Morph)

	require.NoError(t, SetMorph(doc, num.ID, models.MorphPlural))
	assert.False(t, doc.Blocks[0].Tokens[1].Randomize)

	assert.Error(t, SetMorph(doc, eat.ID, "future"))
	assert.ErrorIs(t, SetMorph(doc, "missing", models.MorphPast), ErrTokenNotFound)
}

func TestToggleRandomize(t *testing.T) {
	doc, err := Parse("[NOUN#1] 42")
	require.NoError(t, err)
	noun := doc.Blocks[0].Tokens[0].ID
	num := doc.Blocks[0].Tokens[1].ID

	on, err := ToggleRandomize(doc, noun)
	require.NoError(t, err)
	assert.False(t, on)
	assert.Empty(t, doc.Blocks[0].Tokens[0].SlotLabel)

	on, err = ToggleRandomize(doc, noun)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = ToggleRandomize(doc, num)
	assert.ErrorIs(t, err, ErrNotRandomizable)
}

func TestAssignIDs(t *testing.T) {
	doc := &models.TemplateDocument{Blocks: []models.Block{{
		Kind:   models.BlockPhrase,
		Tokens: []models.PhraseToken{{Text: "a"}, {ID: "keep", Text: "b"}},
	}}}
	AssignIDs(doc)
	assert.NotEmpty(t, doc.Blocks[0].Tokens[0].ID)
	assert.Equal(t, "keep", doc.Blocks[0].Tokens[1].ID)
}
