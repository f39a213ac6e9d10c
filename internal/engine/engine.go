// Package engine fills template documents with words. One Engine holds the
// randomness stream and strategy log of a single session; every strategy it
// runs during a call draws from that one stream. A seeded engine restarts the
// stream from its seed at the top of every call, so equal seeds replay equal
// output. Calls on one Engine are serialized.
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/morph"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

// Options configures a new Engine
type Options struct {
	Seed      string
	Converter morph.Converter
	Bank      vocab.Bank
	Registry  *Registry
	Logger    *zap.Logger
	Logging   bool
}

// Engine is the per-session realization engine
type Engine struct {
	mu        sync.Mutex
	rng       *Rand
	recorder  *Recorder
	converter morph.Converter
	bank      vocab.Bank
	registry  *Registry
	logger    *zap.Logger
}

// New creates an engine. Missing collaborators get defaults: the English
// inflector, the embedded vocabulary bank and the built-in mutators.
func New(opts Options) *Engine {
	e := &Engine{
		rng:       NewRand(opts.Seed),
		recorder:  NewRecorder(opts.Logging),
		converter: opts.Converter,
		bank:      opts.Bank,
		registry:  opts.Registry,
		logger:    opts.Logger,
	}
	if e.converter == nil {
		e.converter = morph.NewInflector()
	}
	if e.bank == nil {
		e.bank = vocab.Default()
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("engine")
	return e
}

// Request is the per-call input beyond the document and profile
type Request struct {
	// Candidates are live words eligible to fill slots
	Candidates []models.CandidateWord
	// Locked candidate ids win over other compatible candidates
	Locked []string
	// Preselect holds slot ids forced into the randomized set
	Preselect []string
}

// Reseed replaces the generator. Sessions call it when the active profile
// or its seed changes.
func (e *Engine) Reseed(seed string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = NewRand(seed)
	e.logger.Debug("reseeded", zap.String("seed", seed), zap.Bool("deterministic", seed != ""))
}

// restart rewinds a seeded generator to the start of its sequence.
// Unseeded generators keep running.
func (e *Engine) restart() {
	if e.rng.Seeded() {
		e.rng = NewRand(e.rng.Seed())
	}
}

// Seed returns the current generator's seed
func (e *Engine) Seed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Seed()
}

// Logs returns the strategy log
func (e *Engine) Logs() []models.LogEntry {
	return e.recorder.Entries()
}

// ClearLogs empties the strategy log
func (e *Engine) ClearLogs() {
	e.recorder.Clear()
}

// SetLogging flips strategy logging
func (e *Engine) SetLogging(enabled bool) {
	e.recorder.SetEnabled(enabled)
}

// LoggingEnabled reports whether strategy logging is on
func (e *Engine) LoggingEnabled() bool {
	return e.recorder.Enabled()
}

// Registry exposes the mutator registry for custom registrations
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Bank returns the fallback vocabulary
func (e *Engine) Bank() vocab.Bank {
	return e.bank
}

// Realize prepares a clone of doc under profile and realizes it
func (e *Engine) Realize(ctx context.Context, doc *models.TemplateDocument, profile *models.Profile, req Request) (*Realization, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restart()
	return e.realizeLocked(ctx, doc, profile, req)
}

// SelectTemplate picks one document from pool by effective weight
func (e *Engine) SelectTemplate(pool []*models.TemplateDocument) (*models.TemplateDocument, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restart()
	return e.selectLocked(pool)
}

// Generate selects a template from pool and realizes it
func (e *Engine) Generate(ctx context.Context, pool []*models.TemplateDocument, profile *models.Profile, req Request) (*Realization, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.restart()
	return e.generateLocked(ctx, pool, profile, req)
}

func (e *Engine) generateLocked(ctx context.Context, pool []*models.TemplateDocument, profile *models.Profile, req Request) (*Realization, error) {
	doc, err := e.selectLocked(pool)
	if err != nil {
		return nil, err
	}
	return e.realizeLocked(ctx, doc, profile, req)
}

func (e *Engine) selectLocked(pool []*models.TemplateDocument) (*models.TemplateDocument, error) {
	weights := make([]float64, len(pool))
	for i, doc := range pool {
		weights[i] = doc.EffectiveWeight()
	}
	return SelectTemplate(e.rng, pool, weights, e.recorder)
}

func (e *Engine) realizeLocked(ctx context.Context, doc *models.TemplateDocument, profile *models.Profile, req Request) (*Realization, error) {
	startSeq := e.recorder.Seq()

	prepared, unknown, err := Prepare(doc, PrepareOptions{
		Profile:     profile,
		Preselected: req.Preselect,
		Registry:    e.registry,
		Recorder:    e.recorder,
		Policy:      SlotPolicy{Logger: e.logger},
	}, e.rng)
	if err != nil {
		return nil, err
	}
	for _, name := range unknown {
		e.logger.Warn("unknown mutator skipped", zap.String("mutator", name))
	}

	locked := make(map[string]bool, len(req.Locked))
	for _, id := range req.Locked {
		locked[id] = true
	}
	r, err := Realize(ctx, prepared, &RealizeContext{
		Candidates: req.Candidates,
		Words:      WordContext{Locked: locked, Fallback: e.bank},
		Converter:  e.converter,
		Source:     e.rng,
		Recorder:   e.recorder,
		Logger:     e.logger,
	})
	if err != nil {
		return nil, err
	}
	r.Logs = e.recorder.Since(startSeq)
	return r, nil
}
