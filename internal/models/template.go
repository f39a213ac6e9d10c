package models

import (
	"strings"
	"time"
	"unicode"
)

// Morph names a requested morphological surface form for a slot
type Morph string

const (
	MorphNone        Morph = ""
	MorphBase        Morph = "base"
	MorphPast        Morph = "past"
	MorphParticiple  Morph = "participle"
	MorphGerund      Morph = "gerund"
	MorphThirdPerson Morph = "3sg"
	MorphPlural      Morph = "plural"
	MorphComparative Morph = "comparative"
	MorphSuperlative Morph = "superlative"
)

// KnownMorphs lists every form the engine understands, in display order
var KnownMorphs = []Morph{
	MorphBase,
	MorphPast,
	MorphParticiple,
	MorphGerund,
	MorphThirdPerson,
	MorphPlural,
	MorphComparative,
	MorphSuperlative,
}

// IsConversion reports whether the form asks for an inflected surface
func (m Morph) IsConversion() bool {
	return m != MorphNone && m != MorphBase
}

// Valid reports whether m is empty or one of KnownMorphs
func (m Morph) Valid() bool {
	if m == MorphNone {
		return true
	}
	for _, k := range KnownMorphs {
		if k == m {
			return true
		}
	}
	return false
}

// SlotLabels is the fixed set of binding labels, in cycle order
var SlotLabels = []string{"1", "2", "3"}

// BasePOS strips a morphological qualifier from a category tag ("VERB:past" -> "VERB")
func BasePOS(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[:i]
	}
	return tag
}

// PhraseToken is one token of a phrase block: literal text, optionally a slot
type PhraseToken struct {
	ID        string   `json:"id" yaml:"id"`
	Text      string   `json:"text" yaml:"text"`
	Lemma     string   `json:"lemma,omitempty" yaml:"lemma,omitempty"`
	POS       string   `json:"pos,omitempty" yaml:"pos,omitempty"`
	POSSet    []string `json:"posSet,omitempty" yaml:"posSet,omitempty"`
	Randomize bool     `json:"randomize" yaml:"randomize"`
	SlotLabel string   `json:"slotLabel,omitempty" yaml:"slotLabel,omitempty"`
	Morph     Morph    `json:"morph,omitempty" yaml:"morph,omitempty"`
}

// IsRandomizable reports whether the token text carries at least one letter
func (t PhraseToken) IsRandomizable() bool {
	for _, r := range t.Text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Tags returns POS followed by POSSet, without duplicates or empties
func (t PhraseToken) Tags() []string {
	tags := make([]string, 0, 1+len(t.POSSet))
	seen := make(map[string]bool, 1+len(t.POSSet))
	add := func(tag string) {
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	add(t.POS)
	for _, tag := range t.POSSet {
		add(tag)
	}
	return tags
}

// Category returns the tag a randomized token is resolved against
func (t PhraseToken) Category() string {
	if t.POS != "" {
		return t.POS
	}
	if len(t.POSSet) > 0 {
		return t.POSSet[0]
	}
	return ""
}

// HasBase reports whether any of the token's tags has the given base category
func (t PhraseToken) HasBase(base string) bool {
	for _, tag := range t.Tags() {
		if BasePOS(tag) == base {
			return true
		}
	}
	return false
}

// BlockKind distinguishes literal text blocks from phrase blocks
type BlockKind string

const (
	BlockText   BlockKind = "text"
	BlockPhrase BlockKind = "phrase"
)

// Block is either a literal Text block or a Phrase of tokens
type Block struct {
	Kind   BlockKind     `json:"kind" yaml:"kind"`
	Text   string        `json:"text,omitempty" yaml:"text,omitempty"`
	Tokens []PhraseToken `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// PhraseText joins the block's token texts with single spaces
func (b Block) PhraseText() string {
	parts := make([]string, 0, len(b.Tokens))
	for _, tok := range b.Tokens {
		parts = append(parts, tok.Text)
	}
	return strings.Join(parts, " ")
}

// TemplateDocument is the canonical, ordered representation of a template
type TemplateDocument struct {
	// Frontmatter fields
	ID          string    `json:"id" yaml:"id"`
	SessionID   string    `json:"sessionId,omitempty" yaml:"session,omitempty"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Weight      float64   `json:"weight,omitempty" yaml:"weight,omitempty"`
	Blocks      []Block   `json:"blocks" yaml:"blocks"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updated_at"`

	FilePath string `json:"-" yaml:"-"` // Path to the file, relative to the library root
}

// Clone returns a deep copy; mutators always work on a clone
func (d *TemplateDocument) Clone() *TemplateDocument {
	if d == nil {
		return nil
	}
	out := *d
	out.Tags = append([]string(nil), d.Tags...)
	out.Blocks = make([]Block, len(d.Blocks))
	for i, b := range d.Blocks {
		nb := Block{Kind: b.Kind, Text: b.Text}
		if b.Tokens != nil {
			nb.Tokens = make([]PhraseToken, len(b.Tokens))
			for j, tok := range b.Tokens {
				tok.POSSet = append([]string(nil), tok.POSSet...)
				nb.Tokens[j] = tok
			}
		}
		out.Blocks[i] = nb
	}
	return &out
}

// FindToken returns the block and token index of the slot with the given id
func (d *TemplateDocument) FindToken(id string) (int, int, bool) {
	for bi, b := range d.Blocks {
		for ti, tok := range b.Tokens {
			if tok.ID == id {
				return bi, ti, true
			}
		}
	}
	return -1, -1, false
}

// SlotCount returns the number of tokens currently flagged for randomization
func (d *TemplateDocument) SlotCount() int {
	n := 0
	for _, b := range d.Blocks {
		for _, tok := range b.Tokens {
			if tok.Randomize {
				n++
			}
		}
	}
	return n
}

// EffectiveWeight returns the selection weight, treating unset as 1
func (d *TemplateDocument) EffectiveWeight() float64 {
	if d.Weight <= 0 {
		return 1
	}
	return d.Weight
}
