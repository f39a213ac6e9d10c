package engine

import (
	"errors"
	"math"
	"strings"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

// ErrNoCandidates is returned when template selection gets an empty pool
var ErrNoCandidates = errors.New("no candidates to select from")

// SelectIndex picks an index into a pool of n. Weights are used when they
// parallel the pool and have a positive finite sum; otherwise the draw is
// uniform. A single-element pool returns 0 without drawing.
func SelectIndex(src Source, n int, weights []float64) (int, error) {
	if n <= 0 {
		return -1, ErrNoCandidates
	}
	if n == 1 {
		return 0, nil
	}

	total, ok := weightSum(weights, n)
	if !ok {
		return intN(src, n), nil
	}

	r := src.Next() * total
	cum := 0.0
	last := 0
	for i, w := range weights {
		if w == 0 {
			continue
		}
		cum += w
		last = i
		if cum >= r {
			return i, nil
		}
	}
	// float rounding can leave r a hair above the final sum
	return last, nil
}

func weightSum(weights []float64, n int) (float64, bool) {
	if len(weights) != n {
		return 0, false
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return 0, false
		}
		total += w
	}
	return total, total > 0 && !math.IsInf(total, 0)
}

// SelectTemplate picks one candidate using SelectIndex
func SelectTemplate[T any](src Source, candidates []T, weights []float64, rec *Recorder) (T, error) {
	var zero T
	i, err := SelectIndex(src, len(candidates), weights)
	if err != nil {
		return zero, err
	}
	if rec.Enabled() {
		rec.Record("selectTemplate", map[string]interface{}{
			"candidates": len(candidates),
			"weighted":   len(weights) == len(candidates) && len(weights) > 0,
		}, i)
	}
	return candidates[i], nil
}

// WordSource tells where a selected word came from
type WordSource string

const (
	SourceCandidate   WordSource = "candidate"
	SourceLocked      WordSource = "locked"
	SourceFallback    WordSource = "fallback"
	SourcePlaceholder WordSource = "placeholder"
)

// WordContext is the selection context for one realization
type WordContext struct {
	// Locked holds candidate ids that take precedence when compatible
	Locked map[string]bool
	// Fallback is consulted when no candidate is compatible
	Fallback vocab.Bank
}

// WordChoice is the outcome of SelectWord
type WordChoice struct {
	Word   models.CandidateWord
	Source WordSource
}

// TagsCompatible reports whether a candidate tag can fill a slot of the target tag.
// PROPN only ever pairs with PROPN and NOUN never takes a PROPN.
func TagsCompatible(target, tag string) bool {
	tb, cb := models.BasePOS(target), models.BasePOS(tag)
	switch {
	case tb == "PROPN" || cb == "PROPN":
		return tb == cb
	case target == tag:
		return true
	default:
		return tb == cb
	}
}

// Compatible reports whether any of the word's tags fits the target category
func Compatible(target string, word models.CandidateWord) bool {
	for _, tag := range word.POS {
		if TagsCompatible(target, tag) {
			return true
		}
	}
	return false
}

// SelectWord resolves a category to a word by strict priority: compatible
// candidates (restricted to locked ones when any are compatible), then the
// fallback bank for the category or its base, then a placeholder.
func SelectWord(src Source, candidates []models.CandidateWord, category string, wctx WordContext, rec *Recorder) WordChoice {
	var pool, locked []models.CandidateWord
	for _, w := range candidates {
		if !Compatible(category, w) {
			continue
		}
		pool = append(pool, w)
		if wctx.Locked[w.ID] {
			locked = append(locked, w)
		}
	}

	var choice WordChoice
	switch {
	case len(locked) > 0:
		choice = WordChoice{Word: locked[intN(src, len(locked))], Source: SourceLocked}
	case len(pool) > 0:
		choice = WordChoice{Word: pool[intN(src, len(pool))], Source: SourceCandidate}
	default:
		if tag, words := wctx.Fallback.Lookup(category); len(words) > 0 {
			text := words[intN(src, len(words))]
			choice = WordChoice{
				Word: models.CandidateWord{
					ID:    "fallback:" + tag + ":" + text,
					Text:  text,
					Lemma: text,
					POS:   []string{tag},
				},
				Source: SourceFallback,
			}
		} else {
			choice = WordChoice{Word: Placeholder(category), Source: SourcePlaceholder}
		}
	}

	if rec.Enabled() {
		rec.Record("selectWord", map[string]interface{}{
			"category":   category,
			"candidates": len(candidates),
			"compatible": len(pool),
			"locked":     len(locked),
		}, map[string]interface{}{
			"id":     choice.Word.ID,
			"text":   choice.Word.Text,
			"source": string(choice.Source),
		})
	}
	return choice
}

// Placeholder synthesizes the last-resort word for a category: its lowercase name
func Placeholder(category string) models.CandidateWord {
	text := strings.ToLower(models.BasePOS(category))
	return models.CandidateWord{
		ID:    "placeholder:" + category,
		Text:  text,
		Lemma: text,
		POS:   []string{category},
	}
}
