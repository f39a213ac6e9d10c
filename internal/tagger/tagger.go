// Package tagger turns raw sentences into tagged tokens. Analyzer is the
// contract the document hydrator consumes; LexiconTagger is a dependency-free
// rule tagger backed by the vocabulary bank and a few closed word classes.
package tagger

import (
	"context"
	"strings"
	"unicode"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/morph"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

// Token is one analyzed word or punctuation mark
type Token struct {
	Value string `json:"value"`
	Lemma string `json:"lemma"`
	POS   string `json:"pos"`
	Index int    `json:"index"`
}

// Compound is a run of tokens [Start, End) that reads as one unit, e.g. a proper-noun name
type Compound struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
	POS   string `json:"pos"`
}

// Analysis is the result of tagging one text
type Analysis struct {
	Tokens    []Token    `json:"tokens"`
	Compounds []Compound `json:"compounds,omitempty"`
}

// Analyzer tags a text
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*Analysis, error)
}

var closedClasses = map[string]string{}

func init() {
	classes := map[string][]string{
		"DET":   {"the", "a", "an", "this", "that", "these", "those", "every", "each", "some", "any", "no", "my", "your", "his", "her", "its", "our", "their"},
		"PRON":  {"i", "me", "you", "he", "him", "she", "it", "we", "us", "they", "them", "myself", "yourself", "himself", "herself", "itself", "ourselves", "themselves", "who", "whom", "what", "someone", "something", "everyone", "everything", "nobody", "nothing"},
		"ADP":   {"in", "on", "at", "by", "for", "with", "about", "against", "between", "into", "through", "during", "before", "after", "above", "below", "to", "from", "up", "down", "of", "off", "over", "under", "near", "beside", "behind", "across", "toward", "without", "within"},
		"CCONJ": {"and", "or", "but", "nor", "yet", "so"},
		"SCONJ": {"because", "if", "while", "although", "though", "unless", "since", "whether", "than"},
		"AUX":   {"is", "are", "was", "were", "be", "been", "being", "am", "will", "would", "can", "could", "shall", "should", "may", "might", "must"},
		"PART":  {"not", "n't"},
		"INTJ":  {"oh", "wow", "hey", "hello", "alas", "ouch", "yes"},
		"NUM":   {"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten", "eleven", "twelve", "hundred", "thousand"},
		"ADV":   {"very", "too", "also", "just", "never", "always", "often", "soon", "here", "there", "now", "then", "again", "almost", "already", "still", "quite"},
	}
	for tag, words := range classes {
		for _, w := range words {
			closedClasses[w] = tag
		}
	}
}

var suffixRules = []struct {
	suffix string
	pos    string
}{
	{"ly", "ADV"},
	{"ing", "VERB"},
	{"ed", "VERB"},
	{"ize", "VERB"},
	{"ise", "VERB"},
	{"ify", "VERB"},
	{"ous", "ADJ"},
	{"ful", "ADJ"},
	{"ive", "ADJ"},
	{"able", "ADJ"},
	{"ible", "ADJ"},
	{"less", "ADJ"},
	{"ish", "ADJ"},
	{"ic", "ADJ"},
	{"al", "ADJ"},
	{"tion", "NOUN"},
	{"sion", "NOUN"},
	{"ment", "NOUN"},
	{"ness", "NOUN"},
	{"ity", "NOUN"},
	{"ism", "NOUN"},
}

// LexiconTagger tags words from a vocabulary bank, closed-class lists and
// suffix heuristics. Unknown content words default to NOUN.
type LexiconTagger struct {
	bank vocab.Bank
}

// NewLexiconTagger creates a tagger over the given bank; a nil bank uses the embedded default
func NewLexiconTagger(bank vocab.Bank) *LexiconTagger {
	if bank == nil {
		bank = vocab.Default()
	}
	return &LexiconTagger{bank: bank}
}

// Analyze implements Analyzer
func (lt *LexiconTagger) Analyze(ctx context.Context, text string) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := Tokenize(text)
	analysis := &Analysis{Tokens: make([]Token, 0, len(words))}
	sentenceStart := true
	for i, w := range words {
		tok := lt.tag(w, sentenceStart)
		tok.Index = i
		analysis.Tokens = append(analysis.Tokens, tok)
		sentenceStart = tok.POS == "PUNCT" && strings.ContainsAny(w, ".!?")
	}
	analysis.Compounds = properNounRuns(analysis.Tokens)
	return analysis, nil
}

func (lt *LexiconTagger) tag(word string, sentenceStart bool) Token {
	tok := Token{Value: word, Lemma: strings.ToLower(word)}
	if !hasLetterOrDigit(word) {
		tok.POS = "PUNCT"
		tok.Lemma = word
		return tok
	}
	if isNumber(word) {
		tok.POS = "NUM"
		return tok
	}

	lower := strings.ToLower(word)
	if isCapitalized(word) {
		if tag, ok := lt.bank.Tag(word); ok && tag == "PROPN" {
			tok.POS = "PROPN"
			tok.Lemma = word
			return tok
		}
		_, known := closedClasses[lower]
		_, inBank := lt.bank.Tag(lower)
		if !sentenceStart && !known && !inBank {
			tok.POS = "PROPN"
			tok.Lemma = word
			return tok
		}
	}

	if tag, ok := closedClasses[lower]; ok {
		tok.POS = tag
		return tok
	}
	if lemma, pos, ok := morph.Lemmatize(lower); ok {
		tok.POS, tok.Lemma = pos, lemma
		return tok
	}
	if tag, ok := lt.bank.Tag(lower); ok {
		tok.POS = tag
		return tok
	}
	if lemma, ok := lt.knownStem(lower); ok {
		tok.POS, tok.Lemma = lemma.pos, lemma.text
		return tok
	}
	for _, rule := range suffixRules {
		if strings.HasSuffix(lower, rule.suffix) && len(lower) > len(rule.suffix)+2 {
			tok.POS = rule.pos
			return tok
		}
	}
	tok.POS = "NOUN"
	return tok
}

type stem struct {
	text string
	pos  string
}

// knownStem strips a regular inflection when the remainder is a bank word
func (lt *LexiconTagger) knownStem(w string) (stem, bool) {
	var candidates []string
	switch {
	case strings.HasSuffix(w, "ied"), strings.HasSuffix(w, "ies"):
		candidates = append(candidates, w[:len(w)-3]+"y")
	case strings.HasSuffix(w, "ed"):
		base := w[:len(w)-2]
		candidates = append(candidates, base, base+"e")
		if n := len(base); n > 2 && base[n-1] == base[n-2] {
			candidates = append(candidates, base[:n-1])
		}
	case strings.HasSuffix(w, "ing"):
		base := w[:len(w)-3]
		candidates = append(candidates, base, base+"e")
		if n := len(base); n > 2 && base[n-1] == base[n-2] {
			candidates = append(candidates, base[:n-1])
		}
	case strings.HasSuffix(w, "es"):
		candidates = append(candidates, w[:len(w)-2], w[:len(w)-1])
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		candidates = append(candidates, w[:len(w)-1])
	default:
		return stem{}, false
	}

	for _, c := range candidates {
		if tag, ok := lt.bank.Tag(c); ok {
			return stem{text: c, pos: tag}, true
		}
	}
	return stem{}, false
}

// Tokenize splits text on whitespace and peels leading/trailing punctuation into separate tokens
func Tokenize(text string) []string {
	var out []string
	for _, field := range strings.Fields(text) {
		runes := []rune(field)
		start, end := 0, len(runes)
		for start < end && isPunct(runes[start]) {
			out = append(out, string(runes[start]))
			start++
		}
		var trailing []string
		for end > start && isPunct(runes[end-1]) {
			trailing = append([]string{string(runes[end-1])}, trailing...)
			end--
		}
		if start < end {
			out = append(out, string(runes[start:end]))
		}
		out = append(out, trailing...)
	}
	return out
}

func properNounRuns(tokens []Token) []Compound {
	var compounds []Compound
	for i := 0; i < len(tokens); {
		if tokens[i].POS != "PROPN" {
			i++
			continue
		}
		j := i
		for j < len(tokens) && tokens[j].POS == "PROPN" {
			j++
		}
		if j-i > 1 {
			parts := make([]string, 0, j-i)
			for _, t := range tokens[i:j] {
				parts = append(parts, t.Value)
			}
			compounds = append(compounds, Compound{Start: i, End: j, Text: strings.Join(parts, " "), POS: "PROPN"})
		}
		i = j
	}
	return compounds
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) && r != '\'' && r != '-' || unicode.IsSymbol(r)
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return false
		}
	}
	return true
}

func isCapitalized(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}
