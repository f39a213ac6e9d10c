package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/morph"
)

// ErrPrecondition marks programmer errors: a missing document or context
var ErrPrecondition = errors.New("precondition failed")

// Trace sources beyond the word-selection ones
const (
	SourceLiteral  WordSource = "literal"
	SourceBinding  WordSource = "binding"
	SourceUntagged WordSource = "untagged"
)

// BindingGroup maps a binding label to the word resolved for it in one realization
type BindingGroup map[string]models.CandidateWord

// TraceEntry records how one token was filled
type TraceEntry struct {
	Block            int          `json:"block"`
	Token            int          `json:"token"`
	SlotID           string       `json:"slotId,omitempty"`
	Original         string       `json:"original"`
	Category         string       `json:"category,omitempty"`
	Morph            models.Morph `json:"morph,omitempty"`
	Label            string       `json:"label,omitempty"`
	Randomized       bool         `json:"randomized"`
	WordID           string       `json:"wordId,omitempty"`
	Lemma            string       `json:"lemma,omitempty"`
	Surface          string       `json:"surface"`
	Source           WordSource   `json:"source"`
	ConversionFailed bool         `json:"conversionFailed,omitempty"`
}

// Realization is the outcome of Realize
type Realization struct {
	Surface    string                   `json:"surface"`
	TemplateID string                   `json:"templateId,omitempty"`
	Trace      []TraceEntry             `json:"trace"`
	Bindings   map[string]string        `json:"bindings,omitempty"`
	Logs       []models.LogEntry        `json:"logs,omitempty"`
	Document   *models.TemplateDocument `json:"-"`
}

// RealizeContext carries everything one realization consumes
type RealizeContext struct {
	Candidates []models.CandidateWord
	Words      WordContext
	Converter  morph.Converter
	Source     Source
	Recorder   *Recorder
	Logger     *zap.Logger
}

// Realize walks a finalized document and assembles its surface text.
// Randomized tokens resolve through SelectWord unless their binding label
// already resolved earlier in the same pass; conversions run in traversal
// order and degrade to the unconverted word on failure.
func Realize(ctx context.Context, doc *models.TemplateDocument, rc *RealizeContext) (*Realization, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: document is nil", ErrPrecondition)
	}
	if rc == nil || ctx == nil {
		return nil, fmt.Errorf("%w: realization context is nil", ErrPrecondition)
	}
	if rc.Source == nil {
		return nil, fmt.Errorf("%w: random source is nil", ErrPrecondition)
	}
	logger := rc.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	startSeq := rc.Recorder.Seq()
	bindings := make(BindingGroup)
	var pieces []string
	var trace []TraceEntry

	for bi, block := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if block.Kind == models.BlockText {
			pieces = append(pieces, block.Text)
			continue
		}
		for ti, tok := range block.Tokens {
			entry := TraceEntry{
				Block:      bi,
				Token:      ti,
				SlotID:     tok.ID,
				Original:   tok.Text,
				Category:   tok.Category(),
				Morph:      tok.Morph,
				Label:      tok.SlotLabel,
				Randomized: tok.Randomize,
			}
			entry.Surface, entry.Source = tok.Text, SourceLiteral
			if tok.Randomize {
				resolveSlot(ctx, tok, rc, bindings, &entry, logger)
			}
			pieces = append(pieces, entry.Surface)
			trace = append(trace, entry)
		}
	}

	surface := assemble(pieces)
	r := &Realization{
		Surface:    surface,
		TemplateID: doc.ID,
		Trace:      trace,
		Document:   doc,
	}
	if len(bindings) > 0 {
		r.Bindings = make(map[string]string, len(bindings))
		for label, w := range bindings {
			r.Bindings[label] = w.BaseLemma()
		}
	}
	if rc.Recorder.Enabled() {
		rc.Recorder.Record("realize", map[string]interface{}{
			"template": doc.ID,
			"slots":    doc.SlotCount(),
		}, surface)
	}
	r.Logs = rc.Recorder.Since(startSeq)
	return r, nil
}

func resolveSlot(ctx context.Context, tok models.PhraseToken, rc *RealizeContext, bindings BindingGroup, entry *TraceEntry, logger *zap.Logger) {
	category := tok.Category()

	var word models.CandidateWord
	switch bound, ok := bindings[tok.SlotLabel]; {
	case tok.SlotLabel != "" && ok:
		word, entry.Source = bound, SourceBinding
	case category == "":
		// nothing to select against; the token stays as written
		entry.Source = SourceUntagged
		return
	default:
		choice := SelectWord(rc.Source, rc.Candidates, category, rc.Words, rc.Recorder)
		word, entry.Source = choice.Word, choice.Source
		if tok.SlotLabel != "" {
			bindings[tok.SlotLabel] = word
		}
	}

	entry.WordID = word.ID
	entry.Lemma = word.BaseLemma()
	entry.Surface = word.Text

	if !tok.Morph.IsConversion() {
		return
	}
	basePOS := models.BasePOS(category)
	if basePOS == "" && len(word.POS) > 0 {
		basePOS = models.BasePOS(word.POS[0])
	}
	if rc.Converter == nil {
		entry.ConversionFailed = true
		return
	}
	converted, err := rc.Converter.Convert(ctx, word.BaseLemma(), basePOS, tok.Morph)
	if rc.Recorder.Enabled() {
		rc.Recorder.Record("convertWord", map[string]interface{}{
			"lemma": word.BaseLemma(),
			"pos":   basePOS,
			"form":  string(tok.Morph),
		}, converted)
	}
	if err != nil || strings.TrimSpace(converted) == "" {
		entry.ConversionFailed = true
		logger.Debug("conversion fell back to surface text",
			zap.String("lemma", word.BaseLemma()),
			zap.String("form", string(tok.Morph)),
			zap.Error(err))
		return
	}
	entry.Surface = converted
}

// assemble capitalizes the first piece holding a letter, joins everything
// with single spaces and collapses runs of whitespace
func assemble(pieces []string) string {
	for i, p := range pieces {
		if idx := strings.IndexFunc(p, unicode.IsLetter); idx >= 0 {
			r := []rune(p[idx:])
			r[0] = unicode.ToUpper(r[0])
			pieces[i] = p[:idx] + string(r)
			break
		}
	}
	return strings.Join(strings.Fields(strings.Join(pieces, " ")), " ")
}
