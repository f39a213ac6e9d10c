package morph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

func TestInflectorConvert(t *testing.T) {
	in := NewInflector()
	ctx := context.Background()

	tests := []struct {
		lemma string
		pos   string
		form  models.Morph
		want  string
	}{
		{"eat", "VERB", models.MorphPast, "ate"},
		{"eat", "VERB", models.MorphParticiple, "eaten"},
		{"eat", "VERB", models.MorphGerund, "eating"},
		{"eat", "VERB", models.MorphThirdPerson, "eats"},
		{"go", "VERB", models.MorphThirdPerson, "goes"},
		{"walk", "VERB", models.MorphPast, "walked"},
		{"stop", "VERB", models.MorphPast, "stopped"},
		{"cry", "VERB", models.MorphPast, "cried"},
		{"play", "VERB", models.MorphPast, "played"},
		{"bake", "VERB", models.MorphPast, "baked"},
		{"make", "VERB", models.MorphGerund, "making"},
		{"lie", "VERB", models.MorphGerund, "lying"},
		{"see", "VERB", models.MorphGerund, "seeing"},
		{"run", "VERB", models.MorphGerund, "running"},
		{"watch", "VERB", models.MorphThirdPerson, "watches"},
		{"walk", "VERB:past", models.MorphPast, "walked"},
		{"child", "NOUN", models.MorphPlural, "children"},
		{"box", "NOUN", models.MorphPlural, "boxes"},
		{"city", "NOUN", models.MorphPlural, "cities"},
		{"knife", "NOUN", models.MorphPlural, "knives"},
		{"leaf", "NOUN", models.MorphPlural, "leaves"},
		{"roof", "NOUN", models.MorphPlural, "roofs"},
		{"dog", "NOUN", models.MorphPlural, "dogs"},
		{"tomato", "NOUN", models.MorphPlural, "tomatoes"},
		{"happy", "ADJ", models.MorphComparative, "happier"},
		{"happy", "ADJ", models.MorphSuperlative, "happiest"},
		{"big", "ADJ", models.MorphComparative, "bigger"},
		{"large", "ADJ", models.MorphSuperlative, "largest"},
		{"good", "ADJ", models.MorphComparative, "better"},
		{"beautiful", "ADJ", models.MorphComparative, "more beautiful"},
		{"quickly", "ADV", models.MorphSuperlative, "most quickly"},
	}

	for _, tt := range tests {
		t.Run(tt.lemma+"/"+string(tt.form), func(t *testing.T) {
			got, err := in.Convert(ctx, tt.lemma, tt.pos, tt.form)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInflectorNoConversion(t *testing.T) {
	in := NewInflector()
	for _, form := range []models.Morph{models.MorphNone, models.MorphBase} {
		got, err := in.Convert(context.Background(), "eat", "VERB", form)
		require.NoError(t, err)
		assert.Equal(t, "eat", got)
	}
}

func TestInflectorUnsupported(t *testing.T) {
	in := NewInflector()

	_, err := in.Convert(context.Background(), "dog", "NOUN", models.MorphPast)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = in.Convert(context.Background(), "the", "DET", models.MorphPlural)
	assert.True(t, errors.Is(err, ErrUnsupported))

	_, err = in.Convert(context.Background(), "  ", "VERB", models.MorphPast)
	assert.Error(t, err)
}

func TestInflectorPreservesCase(t *testing.T) {
	in := NewInflector()
	ctx := context.Background()

	got, err := in.Convert(ctx, "Eat", "VERB", models.MorphPast)
	require.NoError(t, err)
	assert.Equal(t, "Ate", got)

	got, err = in.Convert(ctx, "DOG", "NOUN", models.MorphPlural)
	require.NoError(t, err)
	assert.Equal(t, "DOGS", got)
}

func TestInflectorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewInflector().Convert(ctx, "eat", "VERB", models.MorphPast)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConverterFunc(t *testing.T) {
	var c Converter = ConverterFunc(func(_ context.Context, lemma, _ string, _ models.Morph) (string, error) {
		return lemma + "!", nil
	})
	got, err := c.Convert(context.Background(), "hi", "INTJ", models.MorphPast)
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)
}

func TestLemmatize(t *testing.T) {
	tests := []struct {
		word, lemma, pos string
		ok               bool
	}{
		{"ate", "eat", "VERB", true},
		{"Eaten", "eat", "VERB", true},
		{"went", "go", "VERB", true},
		{"were", "be", "VERB", true},
		{"children", "child", "NOUN", true},
		{"mice", "mouse", "NOUN", true},
		{"sheep", "", "", false},
		{"walked", "", "", false},
	}
	for _, tt := range tests {
		lemma, pos, ok := Lemmatize(tt.word)
		assert.Equal(t, tt.ok, ok, tt.word)
		assert.Equal(t, tt.lemma, lemma, tt.word)
		assert.Equal(t, tt.pos, pos, tt.word)
	}
}
