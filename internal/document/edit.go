package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

var (
	// ErrTokenNotFound is returned when no token carries the requested slot id
	ErrTokenNotFound = errors.New("token not found")
	// ErrNotRandomizable is returned when randomization is requested for a token without letters
	ErrNotRandomizable = errors.New("token has no alphabetic text")
)

// FlatToken is one entry of the flat editing view. Text blocks appear as a
// single entry of kind text; Break marks the first entry of every block.
type FlatToken struct {
	ID        string           `json:"id,omitempty"`
	Kind      models.BlockKind `json:"kind"`
	Break     bool             `json:"break,omitempty"`
	Text      string           `json:"text"`
	Lemma     string           `json:"lemma,omitempty"`
	POS       string           `json:"pos,omitempty"`
	POSSet    []string         `json:"posSet,omitempty"`
	Randomize bool             `json:"randomize"`
	SlotLabel string           `json:"slotLabel,omitempty"`
	Morph     models.Morph     `json:"morph,omitempty"`
}

// ToFlat lays the document out as one sequence of editable entries
func ToFlat(doc *models.TemplateDocument) []FlatToken {
	var flat []FlatToken
	for _, block := range doc.Blocks {
		if block.Kind == models.BlockText {
			flat = append(flat, FlatToken{Kind: models.BlockText, Break: true, Text: block.Text})
			continue
		}
		for i, tok := range block.Tokens {
			flat = append(flat, FlatToken{
				ID:        tok.ID,
				Kind:      models.BlockPhrase,
				Break:     i == 0,
				Text:      tok.Text,
				Lemma:     tok.Lemma,
				POS:       tok.POS,
				POSSet:    append([]string(nil), tok.POSSet...),
				Randomize: tok.Randomize,
				SlotLabel: tok.SlotLabel,
				Morph:     tok.Morph,
			})
		}
	}
	return flat
}

// FromFlat rebuilds document blocks from the flat view. Existing ids are kept;
// missing or repeated ids get fresh ones. The metadata of base (if any) is
// carried over.
func FromFlat(flat []FlatToken, base *models.TemplateDocument) (*models.TemplateDocument, error) {
	doc := &models.TemplateDocument{}
	if base != nil {
		doc = base.Clone()
		doc.Blocks = nil
	}

	seen := make(map[string]bool, len(flat))
	var current *models.Block
	for i, ft := range flat {
		if ft.Kind == models.BlockText {
			doc.Blocks = append(doc.Blocks, models.Block{Kind: models.BlockText, Text: ft.Text})
			current = nil
			continue
		}
		if ft.SlotLabel != "" && !validLabel(ft.SlotLabel) {
			return nil, fmt.Errorf("entry %d: unknown binding label %q", i, ft.SlotLabel)
		}
		if !ft.Morph.Valid() {
			return nil, fmt.Errorf("entry %d: unknown morphological form %q", i, ft.Morph)
		}

		if current == nil || ft.Break {
			doc.Blocks = append(doc.Blocks, models.Block{Kind: models.BlockPhrase})
			current = &doc.Blocks[len(doc.Blocks)-1]
		}

		id := ft.ID
		if id == "" || seen[id] {
			id = uuid.NewString()
		}
		seen[id] = true

		tok := models.PhraseToken{
			ID:        id,
			Text:      ft.Text,
			Lemma:     ft.Lemma,
			POS:       ft.POS,
			POSSet:    append([]string(nil), ft.POSSet...),
			Randomize: ft.Randomize,
			SlotLabel: ft.SlotLabel,
			Morph:     ft.Morph,
		}
		if !tok.IsRandomizable() {
			tok.Randomize = false
		}
		current.Tokens = append(current.Tokens, tok)
	}
	return doc, nil
}

// NextLabel advances a binding label through none -> 1 -> 2 -> 3 -> none
func NextLabel(label string) string {
	for i, l := range models.SlotLabels {
		if l == label {
			if i+1 < len(models.SlotLabels) {
				return models.SlotLabels[i+1]
			}
			return ""
		}
	}
	return models.SlotLabels[0]
}

func findToken(doc *models.TemplateDocument, id string) (*models.PhraseToken, error) {
	bi, ti, ok := doc.FindToken(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, id)
	}
	return &doc.Blocks[bi].Tokens[ti], nil
}

// CycleSlotLabel advances the token's binding label and returns the new one
func CycleSlotLabel(doc *models.TemplateDocument, id string) (string, error) {
	tok, err := findToken(doc, id)
	if err != nil {
		return "", err
	}
	tok.SlotLabel = NextLabel(tok.SlotLabel)
	return tok.SlotLabel, nil
}

// SetMorph sets the token's requested form. Any form other than none turns
// randomization on for randomizable tokens.
func SetMorph(doc *models.TemplateDocument, id string, form models.Morph) error {
	if !form.Valid() {
		return fmt.Errorf("unknown morphological form %q", form)
	}
	tok, err := findToken(doc, id)
	if err != nil {
		return err
	}
	tok.Morph = form
	if form != models.MorphNone && tok.IsRandomizable() {
		tok.Randomize = true
	}
	return nil
}

// ToggleRandomize flips the token's randomize flag and returns the new value.
// Turning it off also drops the binding label.
func ToggleRandomize(doc *models.TemplateDocument, id string) (bool, error) {
	tok, err := findToken(doc, id)
	if err != nil {
		return false, err
	}
	if !tok.Randomize && !tok.IsRandomizable() {
		return false, fmt.Errorf("%w: %q", ErrNotRandomizable, tok.Text)
	}
	tok.Randomize = !tok.Randomize
	if !tok.Randomize {
		tok.SlotLabel = ""
	}
	return tok.Randomize, nil
}

// AssignIDs gives every phrase token without an id a fresh one
func AssignIDs(doc *models.TemplateDocument) {
	for bi := range doc.Blocks {
		for ti := range doc.Blocks[bi].Tokens {
			if doc.Blocks[bi].Tokens[ti].ID == "" {
				doc.Blocks[bi].Tokens[ti].ID = uuid.NewString()
			}
		}
	}
}
