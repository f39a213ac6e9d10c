package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile("s1")

	assert.Equal(t, DefaultProfileID, p.ID)
	assert.Equal(t, "s1", p.SessionID)
	assert.True(t, p.IsDefault())
	assert.True(t, p.JitterEnabled)
	assert.Equal(t, 0.3, p.JitterProbability)
	assert.True(t, p.AutoBind)
	assert.True(t, p.EnsureTwoRandom)

	assert.False(t, p.NounBoost)
	assert.False(t, p.Position.Enabled)
	assert.Zero(t, p.MaxRandomSlots)
	assert.Empty(t, p.RegexPattern)
	assert.Empty(t, p.Seed)
	assert.Empty(t, p.CategoryProbabilities)
	require.NoError(t, p.Validate())
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr string
	}{
		{"jitter above one", func(p *Profile) { p.JitterProbability = 1.5 }, "jitter probability"},
		{"negative regex probability", func(p *Profile) { p.RegexProbability = -0.1 }, "regex probability"},
		{"category out of range", func(p *Profile) { p.CategoryProbabilities = map[string]float64{"NOUN": 2} }, "probability for NOUN"},
		{"negative cap", func(p *Profile) { p.MaxRandomSlots = -1 }, "max random slots"},
		{"position without category", func(p *Profile) { p.Position = PositionTarget{Enabled: true, Ordinal: 1} }, "needs a category"},
		{"position ordinal zero", func(p *Profile) { p.Position = PositionTarget{Enabled: true, Category: "NOUN"} }, "1-based"},
		{"missing id", func(p *Profile) { p.ID = " " }, "id is required"},
		{"malformed regex accepted", func(p *Profile) { p.RegexPattern = "([" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProfile("s")
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProfilePatch_Apply(t *testing.T) {
	base := DefaultProfile("s")
	base.CategoryProbabilities = map[string]float64{"NOUN": 0.5, "VERB": 0.2}

	seed := "abc"
	cap := 3
	off := false
	patch := ProfilePatch{
		Seed:                  &seed,
		MaxRandomSlots:        &cap,
		JitterEnabled:         &off,
		CategoryProbabilities: map[string]float64{"ADJ": 0.4, "VERB": -1},
	}

	out := patch.Apply(base)

	assert.Equal(t, "abc", out.Seed)
	assert.Equal(t, 3, out.MaxRandomSlots)
	assert.False(t, out.JitterEnabled)
	assert.Equal(t, map[string]float64{"NOUN": 0.5, "ADJ": 0.4}, out.CategoryProbabilities)

	// the original is untouched
	assert.Empty(t, base.Seed)
	assert.True(t, base.JitterEnabled)
	assert.Len(t, base.CategoryProbabilities, 2)
}
