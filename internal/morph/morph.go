// Package morph turns a lemma plus a requested form into an inflected
// surface string. The Converter interface is what the realizer consumes;
// Inflector is the built-in English implementation.
package morph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// ErrUnsupported is returned when a category has no rule for the requested form
var ErrUnsupported = errors.New("unsupported form")

// Converter produces the surface form of lemma for basePOS in the given form.
// Implementations must be idempotent and free of side effects.
type Converter interface {
	Convert(ctx context.Context, lemma, basePOS string, form models.Morph) (string, error)
}

// ConverterFunc adapts a plain function to Converter
type ConverterFunc func(ctx context.Context, lemma, basePOS string, form models.Morph) (string, error)

// Convert calls f
func (f ConverterFunc) Convert(ctx context.Context, lemma, basePOS string, form models.Morph) (string, error) {
	return f(ctx, lemma, basePOS, form)
}

// Inflector is a rule-based English inflector with irregular tables
type Inflector struct {
	verbs      map[string]verbForms
	nouns      map[string]string
	adjectives map[string][2]string
}

// NewInflector returns an Inflector loaded with the built-in irregular tables
func NewInflector() *Inflector {
	return &Inflector{
		verbs:      irregularVerbs,
		nouns:      irregularPlurals,
		adjectives: irregularAdjectives,
	}
}

// Convert implements Converter
func (in *Inflector) Convert(ctx context.Context, lemma, basePOS string, form models.Morph) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	word := strings.TrimSpace(lemma)
	if word == "" {
		return "", fmt.Errorf("empty lemma")
	}
	if !form.IsConversion() {
		return word, nil
	}

	lower := strings.ToLower(word)
	var out string
	switch models.BasePOS(basePOS) {
	case "VERB", "AUX":
		out = in.verb(lower, form)
	case "NOUN", "PROPN":
		if form == models.MorphPlural {
			out = in.plural(lower)
		}
	case "ADJ", "ADV":
		out = in.degree(lower, form)
	}
	if out == "" {
		return "", fmt.Errorf("%w: %s for %s", ErrUnsupported, form, basePOS)
	}
	return matchCase(word, out), nil
}

func (in *Inflector) verb(lemma string, form models.Morph) string {
	if forms, ok := in.verbs[lemma]; ok {
		switch form {
		case models.MorphPast:
			return forms.past
		case models.MorphParticiple:
			return forms.participle
		case models.MorphThirdPerson:
			if forms.third != "" {
				return forms.third
			}
		case models.MorphGerund:
			if forms.gerund != "" {
				return forms.gerund
			}
		}
	}

	switch form {
	case models.MorphPast, models.MorphParticiple:
		return regularPast(lemma)
	case models.MorphGerund:
		return gerund(lemma)
	case models.MorphThirdPerson:
		return sibilantSuffix(lemma)
	}
	return ""
}

func (in *Inflector) plural(noun string) string {
	if p, ok := in.nouns[noun]; ok {
		return p
	}
	for _, suffix := range []string{"fe", "f"} {
		if strings.HasSuffix(noun, suffix) && fToVes[noun] {
			return strings.TrimSuffix(noun, suffix) + "ves"
		}
	}
	return sibilantSuffix(noun)
}

func (in *Inflector) degree(adj string, form models.Morph) string {
	if forms, ok := in.adjectives[adj]; ok {
		switch form {
		case models.MorphComparative:
			return forms[0]
		case models.MorphSuperlative:
			return forms[1]
		}
		return ""
	}

	var suffix, periphrastic string
	switch form {
	case models.MorphComparative:
		suffix, periphrastic = "er", "more "
	case models.MorphSuperlative:
		suffix, periphrastic = "est", "most "
	default:
		return ""
	}

	switch {
	case strings.HasSuffix(adj, "ly") && len(adj) > 4, syllables(adj) > 2:
		return periphrastic + adj
	case strings.HasSuffix(adj, "e"):
		return adj + suffix[1:]
	case endsConsonantY(adj):
		return adj[:len(adj)-1] + "i" + suffix
	case isShortCVC(adj):
		return adj + adj[len(adj)-1:] + suffix
	default:
		return adj + suffix
	}
}

func regularPast(v string) string {
	switch {
	case strings.HasSuffix(v, "e"):
		return v + "d"
	case endsConsonantY(v):
		return v[:len(v)-1] + "ied"
	case isShortCVC(v):
		return v + v[len(v)-1:] + "ed"
	default:
		return v + "ed"
	}
}

func gerund(v string) string {
	switch {
	case strings.HasSuffix(v, "ie"):
		return v[:len(v)-2] + "ying"
	case strings.HasSuffix(v, "ee"), strings.HasSuffix(v, "ye"), strings.HasSuffix(v, "oe"):
		return v + "ing"
	case strings.HasSuffix(v, "e") && len(v) > 2:
		return v[:len(v)-1] + "ing"
	case isShortCVC(v):
		return v + v[len(v)-1:] + "ing"
	default:
		return v + "ing"
	}
}

// sibilantSuffix adds -s/-es/-ies; shared by plural nouns and 3sg verbs
func sibilantSuffix(w string) string {
	switch {
	case strings.HasSuffix(w, "s"), strings.HasSuffix(w, "x"), strings.HasSuffix(w, "z"),
		strings.HasSuffix(w, "ch"), strings.HasSuffix(w, "sh"):
		return w + "es"
	case endsConsonantY(w):
		return w[:len(w)-1] + "ies"
	case strings.HasSuffix(w, "o") && len(w) > 1 && !isVowel(rune(w[len(w)-2])):
		return w + "es"
	default:
		return w + "s"
	}
}

func isVowel(r rune) bool {
	return strings.ContainsRune("aeiou", r)
}

func endsConsonantY(w string) bool {
	return len(w) > 1 && w[len(w)-1] == 'y' && !isVowel(rune(w[len(w)-2]))
}

// isShortCVC matches one-syllable consonant-vowel-consonant stems (stop, big)
// whose final consonant doubles before a vowel suffix.
func isShortCVC(w string) bool {
	n := len(w)
	if n < 3 || syllables(w) != 1 {
		return false
	}
	c1, v, c2 := rune(w[n-3]), rune(w[n-2]), rune(w[n-1])
	if isVowel(c1) || !isVowel(v) || isVowel(c2) {
		return false
	}
	return !strings.ContainsRune("wxy", c2)
}

func syllables(w string) int {
	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r) || r == 'y'
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

// matchCase carries leading capitalization of the source onto the result
func matchCase(src, out string) string {
	if src == "" || out == "" {
		return out
	}
	if strings.ToUpper(src) == src && len(src) > 1 {
		return strings.ToUpper(out)
	}
	first := []rune(src)[0]
	if first >= 'A' && first <= 'Z' {
		r := []rune(out)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		return string(r)
	}
	return out
}
