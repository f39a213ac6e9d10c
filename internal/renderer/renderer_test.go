package renderer

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

func sampleRealization() *engine.Realization {
	return &engine.Realization{
		Surface:    "The cat slept",
		TemplateID: "t1",
		Trace: []engine.TraceEntry{
			{Original: "The", Surface: "The", Source: engine.SourceLiteral},
			{Original: "dog", Category: "NOUN", Label: "1", Randomized: true, Surface: "cat", Source: engine.SourceCandidate},
			{Original: "ran", Category: "VERB", Morph: models.MorphPast, Randomized: true, Surface: "slept", Source: engine.SourceFallback},
		},
		Bindings: map[string]string{"1": "cat"},
	}
}

func TestRenderText(t *testing.T) {
	out, err := NewRenderer(sampleRealization(), 0).Render("")
	require.NoError(t, err)
	assert.Equal(t, "The cat slept", out)
}

func TestRenderJSON(t *testing.T) {
	out, err := NewRenderer(sampleRealization(), 0).Render(FormatJSON)
	require.NoError(t, err)

	var decoded engine.Realization
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "The cat slept", decoded.Surface)
	assert.Len(t, decoded.Trace, 3)
}

func TestRenderMarkdown(t *testing.T) {
	out, err := NewRenderer(sampleRealization(), 0).RenderMarkdown()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "## The cat slept\n"))
	assert.Contains(t, out, "`t1`")
	assert.Contains(t, out, "| 2 | dog | NOUN | cat | candidate #1 |")
	assert.Contains(t, out, "| 3 | ran | VERB:past | slept | fallback |")
	assert.Contains(t, out, "**Bindings:** #1 → cat")
}

func TestRenderTraceTable(t *testing.T) {
	out := NewRenderer(sampleRealization(), 100).RenderTraceTable()
	assert.True(t, strings.HasPrefix(out, "The cat slept\n"))
	assert.Contains(t, out, "SURFACE")
	assert.Contains(t, out, "VERB:past")
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := NewRenderer(sampleRealization(), 0).Render("xml")
	assert.Error(t, err)
}

func TestRenderBatch(t *testing.T) {
	b := &engine.BatchResult{
		Items:     []*engine.Realization{{Surface: "one"}, {Surface: "two"}},
		Requested: 3,
		Warning:   "only 2 of 3 unique texts",
	}
	assert.Equal(t, "1. one\n2. two\n\nWarning: only 2 of 3 unique texts\n", RenderBatch(b))

	out, err := RenderBatchJSON(b)
	require.NoError(t, err)
	assert.Contains(t, out, `"requested": 3`)
}
