package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

// Scenario: seed "abc", full jitter and single-word banks repeat exactly
func TestEngineSeededRepeatScenario(t *testing.T) {
	bank := vocab.Bank{"NOUN": {"cat"}, "VERB": {"run"}, "ADJ": {"big"}}
	e := New(Options{Seed: "abc", Bank: bank, Logger: zaptest.NewLogger(t)})

	profile := models.DefaultProfile("s1")
	profile.Seed = "abc"
	profile.JitterProbability = 1

	doc := mustParse(t, "The [!ADJ=small] [!NOUN=dog] [!VERB=runs]")
	var outputs []string
	for i := 0; i < 5; i++ {
		r, err := e.Realize(context.Background(), doc, profile, Request{})
		require.NoError(t, err)
		outputs = append(outputs, r.Surface)
	}
	for _, out := range outputs[1:] {
		assert.Equal(t, outputs[0], out)
	}

	profile.AutoBind = false
	r, err := e.Realize(context.Background(), doc, profile, Request{})
	require.NoError(t, err)
	assert.Equal(t, "The big cat run", r.Surface)
}

func TestEngineDeterminism(t *testing.T) {
	pool := []*models.TemplateDocument{
		mustParse(t, "The [ADJ] [NOUN] [VERB:past] over [DET] [ADJ:comparative] [NOUN]"),
		mustParse(t, "[PROPN] [VERB:3sg] [NOUN:plural#1] and [NOUN#1]"),
		mustParse(t, "> Prologue\n[ADV] , [PRON] [VERB:gerund]"),
	}
	pool[1].Weight = 3
	profile := models.DefaultProfile("s1")
	profile.NounBoost = true
	profile.CategoryProbabilities = map[string]float64{"ADV": 0.5}

	for _, seed := range []string{"abc", "xyz", "42", "a longer seed"} {
		a := New(Options{Seed: seed})
		b := New(Options{Seed: seed})
		for i := 0; i < 10; i++ {
			ra, err := a.Generate(context.Background(), pool, profile, Request{})
			require.NoError(t, err)
			rb, err := b.Generate(context.Background(), pool, profile, Request{})
			require.NoError(t, err)
			assert.Equal(t, ra.Surface, rb.Surface, "seed %q call %d", seed, i)
		}
	}
}

func TestEngineSeededCallsRestart(t *testing.T) {
	doc := mustParse(t, "[NOUN] [VERB] [ADJ] [NOUN] [ADV]")
	profile := models.DefaultProfile("s1")
	e := New(Options{Seed: "one"})

	first, err := e.Realize(context.Background(), doc, profile, Request{})
	require.NoError(t, err)
	second, err := e.Realize(context.Background(), doc, profile, Request{})
	require.NoError(t, err)
	assert.Equal(t, first.Surface, second.Surface)
	assert.Equal(t, "one", e.Seed())

	e.Reseed("two")
	assert.Equal(t, "two", e.Seed())
	other := New(Options{Seed: "two"})
	a, err := e.Realize(context.Background(), doc, profile, Request{})
	require.NoError(t, err)
	b, err := other.Realize(context.Background(), doc, profile, Request{})
	require.NoError(t, err)
	assert.Equal(t, b.Surface, a.Surface)

	e.Reseed("")
	assert.Empty(t, e.Seed())
	_, err = e.Realize(context.Background(), doc, profile, Request{})
	require.NoError(t, err)
}

func TestEngineLoggingGate(t *testing.T) {
	doc := mustParse(t, "[NOUN] [VERB] [ADJ]")
	profile := models.DefaultProfile("s1")
	e := New(Options{Seed: "log"})

	for i := 0; i < 25; i++ {
		r, err := e.Realize(context.Background(), doc, profile, Request{})
		require.NoError(t, err)
		assert.Empty(t, r.Logs)
	}
	assert.Empty(t, e.Logs())
	assert.False(t, e.LoggingEnabled())

	e.SetLogging(true)
	r, err := e.Realize(context.Background(), doc, profile, Request{})
	require.NoError(t, err)
	require.NotEmpty(t, r.Logs)

	ops := map[string]bool{}
	for _, entry := range e.Logs() {
		ops[entry.Operation] = true
	}
	for _, op := range []string{"randomizeSlots", "selectWord", "realize"} {
		assert.True(t, ops[op], op)
	}

	e.ClearLogs()
	assert.Empty(t, e.Logs())
}

func TestEngineUnknownMutatorIsSkipped(t *testing.T) {
	profile := models.DefaultProfile("s1")
	profile.Mutators = []string{"does-not-exist", "lock-propn"}
	e := New(Options{Seed: "m"})

	r, err := e.Realize(context.Background(), mustParse(t, "[PROPN=Paris] is [ADJ]"), profile, Request{})
	require.NoError(t, err)
	assert.Equal(t, "Paris", r.Trace[0].Surface)
}

func TestEngineRealizeNilDocument(t *testing.T) {
	e := New(Options{})
	_, err := e.Realize(context.Background(), nil, models.DefaultProfile("s"), Request{})
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = e.Generate(context.Background(), nil, models.DefaultProfile("s"), Request{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestGenerateBatchUnique(t *testing.T) {
	e := New(Options{Seed: "batch"})
	profile := quietProfile()
	pool := []*models.TemplateDocument{mustParse(t, "[NOUN]")}

	res, err := e.GenerateBatch(context.Background(), 3, pool, profile, Request{}, BatchOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 3)
	assert.Empty(t, res.Warning)

	seen := map[string]bool{}
	for _, s := range res.Surfaces() {
		assert.False(t, seen[s], "duplicate %q", s)
		seen[s] = true
	}
}

func TestGenerateBatchPartialResult(t *testing.T) {
	e := New(Options{Seed: "batch"})
	pool := []*models.TemplateDocument{mustParse(t, "[!NOUN=cat] sleeps")}

	res, err := e.GenerateBatch(context.Background(), 3, pool, quietProfile(), Request{}, BatchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Cat sleeps"}, res.Surfaces())
	assert.Equal(t, 15, res.Attempts, "budget is five times the requested count")
	assert.NotEmpty(t, res.Warning)

	res, err = e.GenerateBatch(context.Background(), 3, pool, quietProfile(), Request{}, BatchOptions{MaxConsecutiveFailures: 3})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 4, res.Attempts)
}

func TestGenerateBatchInvalid(t *testing.T) {
	e := New(Options{})
	_, err := e.GenerateBatch(context.Background(), 0, nil, nil, Request{}, BatchOptions{})
	assert.Error(t, err)

	_, err = e.GenerateBatch(context.Background(), 2, nil, nil, Request{}, BatchOptions{})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestEnginesRunIndependently(t *testing.T) {
	doc := mustParse(t, "[NOUN] [VERB] [ADJ] [ADV]")
	profile := models.DefaultProfile("s")

	want := make([]string, 4)
	for i := range want {
		r, err := New(Options{Seed: fmt.Sprint(i)}).Realize(context.Background(), doc, profile, Request{})
		require.NoError(t, err)
		want[i] = r.Surface
	}

	got := make([]string, 4)
	done := make(chan struct{})
	for i := range got {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			r, err := New(Options{Seed: fmt.Sprint(i)}).Realize(context.Background(), doc, profile, Request{})
			if err == nil {
				got[i] = r.Surface
			}
		}(i)
	}
	for range got {
		<-done
	}
	assert.Equal(t, want, got)
}

func TestEngineBindingRespectsCategories(t *testing.T) {
	doc := mustParse(t, "[NOUN] [VERB:past]")
	profile := models.DefaultProfile("s1")
	req := Request{Candidates: []models.CandidateWord{
		{ID: "n-cat", Text: "cat", POS: []string{"NOUN"}},
		{ID: "v-run", Text: "run", POS: []string{"VERB"}},
	}}
	pos := map[string]string{"n-cat": "NOUN", "v-run": "VERB"}

	for seed := 0; seed < 200; seed++ {
		e := New(Options{Seed: fmt.Sprint(seed)})
		r, err := e.Realize(context.Background(), doc, profile, req)
		require.NoError(t, err)
		for _, entry := range r.Trace {
			if entry.WordID == "" || pos[entry.WordID] == "" {
				continue
			}
			assert.Equal(t, models.BasePOS(entry.Category), pos[entry.WordID],
				"seed %d: %s slot filled by %s (%s)", seed, entry.Category, entry.WordID, entry.Source)
		}
	}
}
