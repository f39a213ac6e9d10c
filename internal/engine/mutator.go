package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// Mutator is a document-to-document transform applied before realization.
// Implementations return a new document and leave their input untouched.
type Mutator interface {
	Mutate(doc *models.TemplateDocument, src Source) *models.TemplateDocument
}

// MutatorFunc adapts a function to Mutator
type MutatorFunc func(doc *models.TemplateDocument, src Source) *models.TemplateDocument

// Mutate calls f
func (f MutatorFunc) Mutate(doc *models.TemplateDocument, src Source) *models.TemplateDocument {
	return f(doc, src)
}

// Registry maps mutator names to implementations
type Registry struct {
	mu       sync.RWMutex
	mutators map[string]Mutator
}

// NewRegistry returns a registry preloaded with the built-in mutators
func NewRegistry() *Registry {
	r := &Registry{mutators: make(map[string]Mutator)}
	r.Register("strip-labels", MutatorFunc(StripLabels))
	r.Register("lock-propn", MutatorFunc(LockProperNouns))
	r.Register("bind-repeats", MutatorFunc(BindRepeats))
	r.Register("auto-bind", MutatorFunc(AutoBind))
	return r
}

// Register adds or replaces a mutator
func (r *Registry) Register(name string, m Mutator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutators[name] = m
}

// Get looks a mutator up by name
func (r *Registry) Get(name string) (Mutator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mutators[name]
	return m, ok
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.mutators))
	for name := range r.mutators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline is an ordered list of named mutators
type Pipeline struct {
	names    []string
	registry *Registry
}

// NewPipeline resolves names against the registry. Unknown names are
// returned separately and are skipped when the pipeline runs.
func NewPipeline(registry *Registry, names []string) (*Pipeline, []string) {
	p := &Pipeline{registry: registry}
	var unknown []string
	for _, name := range names {
		if _, ok := registry.Get(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		p.names = append(p.names, name)
	}
	return p, unknown
}

// Run feeds each mutator the previous one's output
func (p *Pipeline) Run(doc *models.TemplateDocument, src Source, rec *Recorder) *models.TemplateDocument {
	for _, name := range p.names {
		m, _ := p.registry.Get(name)
		before := doc.SlotCount()
		doc = m.Mutate(doc, src)
		if rec.Enabled() {
			rec.Record("mutator."+name, map[string]interface{}{"slots": before}, doc.SlotCount())
		}
	}
	return doc
}

// AutoBind flips a fair coin for every randomized token; on heads the token
// gets a uniformly chosen binding label. Tails keep the existing label. A
// drawn label already held by a token of another category is not taken, so
// bound slots always share a part of speech.
func AutoBind(doc *models.TemplateDocument, src Source) *models.TemplateDocument {
	out := doc.Clone()

	type ref struct{ bi, ti int }
	holders := make(map[string]map[ref]string)
	hold := func(label string, r ref, category string) {
		if holders[label] == nil {
			holders[label] = make(map[ref]string)
		}
		holders[label][r] = category
	}
	for bi, b := range out.Blocks {
		for ti, tok := range b.Tokens {
			if tok.Randomize && tok.SlotLabel != "" {
				hold(tok.SlotLabel, ref{bi, ti}, tok.Category())
			}
		}
	}

	for bi := range out.Blocks {
		for ti := range out.Blocks[bi].Tokens {
			tok := &out.Blocks[bi].Tokens[ti]
			if !tok.Randomize {
				continue
			}
			if src.Next() >= 0.5 {
				continue
			}
			label := models.SlotLabels[intN(src, len(models.SlotLabels))]
			r := ref{bi, ti}
			category := tok.Category()
			fits := true
			for other, held := range holders[label] {
				if other != r && !sameCategory(held, category) {
					fits = false
					break
				}
			}
			if !fits {
				continue
			}
			if tok.SlotLabel != "" {
				delete(holders[tok.SlotLabel], r)
			}
			tok.SlotLabel = label
			hold(label, r, category)
		}
	}
	return out
}

// sameCategory reports whether one bound word can fill slots of both
// categories. Untagged slots only bind with untagged slots.
func sameCategory(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return TagsCompatible(a, b)
}

// StripLabels removes every binding label
func StripLabels(doc *models.TemplateDocument, _ Source) *models.TemplateDocument {
	out := doc.Clone()
	for bi := range out.Blocks {
		for ti := range out.Blocks[bi].Tokens {
			out.Blocks[bi].Tokens[ti].SlotLabel = ""
		}
	}
	return out
}

// LockProperNouns keeps proper nouns literal
func LockProperNouns(doc *models.TemplateDocument, _ Source) *models.TemplateDocument {
	out := doc.Clone()
	for bi := range out.Blocks {
		for ti := range out.Blocks[bi].Tokens {
			tok := &out.Blocks[bi].Tokens[ti]
			if models.BasePOS(tok.Category()) == "PROPN" {
				tok.Randomize = false
				tok.SlotLabel = ""
			}
		}
	}
	return out
}

// BindRepeats gives randomized tokens that share a lemma one binding label,
// reusing a label already present in the group or else the first free one.
// Groups are skipped once every label is taken.
func BindRepeats(doc *models.TemplateDocument, _ Source) *models.TemplateDocument {
	out := doc.Clone()

	type ref struct{ bi, ti int }
	groups := make(map[string][]ref)
	var order []string
	used := make(map[string]bool)
	for bi, b := range out.Blocks {
		for ti, tok := range b.Tokens {
			if tok.SlotLabel != "" {
				used[tok.SlotLabel] = true
			}
			if !tok.Randomize {
				continue
			}
			key := lemmaKey(tok)
			if _, ok := groups[key]; !ok {
				order = append(order, key)
			}
			groups[key] = append(groups[key], ref{bi, ti})
		}
	}

	for _, key := range order {
		refs := groups[key]
		if len(refs) < 2 {
			continue
		}
		label := ""
		for _, r := range refs {
			if l := out.Blocks[r.bi].Tokens[r.ti].SlotLabel; l != "" {
				label = l
				break
			}
		}
		if label == "" {
			for _, l := range models.SlotLabels {
				if !used[l] {
					label = l
					break
				}
			}
		}
		if label == "" {
			continue
		}
		used[label] = true
		for _, r := range refs {
			out.Blocks[r.bi].Tokens[r.ti].SlotLabel = label
		}
	}
	return out
}

func lemmaKey(tok models.PhraseToken) string {
	if tok.Lemma != "" {
		return strings.ToLower(tok.Lemma)
	}
	return strings.ToLower(tok.Text)
}

// PrepareOptions configures Prepare
type PrepareOptions struct {
	Profile *models.Profile
	// Preselected slot ids forced into the randomized set
	Preselected []string
	Registry    *Registry
	Recorder    *Recorder
	Policy      SlotPolicy
}

// Prepare finalizes a document for realization on a clone: the slot policy
// runs over every phrase block, then auto-bind when enabled, then the
// profile's named mutators in order. Unknown mutator names are returned.
func Prepare(doc *models.TemplateDocument, opts PrepareOptions, src Source) (*models.TemplateDocument, []string, error) {
	if doc == nil {
		return nil, nil, fmt.Errorf("%w: document is nil", ErrPrecondition)
	}
	if src == nil {
		return nil, nil, fmt.Errorf("%w: random source is nil", ErrPrecondition)
	}
	profile := opts.Profile
	if profile == nil {
		profile = &models.Profile{}
	}

	preselect := make(map[string]bool, len(opts.Preselected))
	for _, id := range opts.Preselected {
		preselect[id] = true
	}

	out := doc.Clone()
	for bi := range out.Blocks {
		block := &out.Blocks[bi]
		if block.Kind != models.BlockPhrase || len(block.Tokens) == 0 {
			continue
		}
		policy := opts.Policy
		policy.Profile = profile
		policy.Recorder = opts.Recorder
		policy.Preselected = nil
		for ti, tok := range block.Tokens {
			if preselect[tok.ID] {
				policy.Preselected = append(policy.Preselected, ti)
			}
		}
		block.Tokens = RandomizeSlots(block.Tokens, policy, src)
	}

	if profile.AutoBind {
		out = AutoBind(out, src)
		if opts.Recorder.Enabled() {
			opts.Recorder.Record("autoBind", map[string]interface{}{"slots": out.SlotCount()}, labelsOf(out))
		}
	}

	registry := opts.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	pipeline, unknown := NewPipeline(registry, profile.Mutators)
	out = pipeline.Run(out, src, opts.Recorder)
	return out, unknown, nil
}

func labelsOf(doc *models.TemplateDocument) map[string]string {
	labels := make(map[string]string)
	for _, b := range doc.Blocks {
		for _, tok := range b.Tokens {
			if tok.SlotLabel != "" {
				labels[tok.ID] = tok.SlotLabel
			}
		}
	}
	return labels
}
