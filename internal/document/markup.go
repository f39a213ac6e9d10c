// Package document converts between the authoring representations of a
// template (markup text, tagger output, the flat editing view) and the
// canonical models.TemplateDocument.
//
// Markup is line oriented. Every non-empty line is a phrase block, except
// lines starting with "> " which are literal text blocks. Inside a phrase,
// plain words are literal tokens and bracketed slots carry a category:
//
//	[!?TAG(|TAG)*(:form)?(#label)?(~lemma)?(=text)?]
//
// "!" marks the slot literal, the first TAG is its category, further TAGs
// are alternatives, form is a morphological form, label binds slots to one
// lemma and text is the surface emitted when the slot is not randomized.
//
// A backslash makes the next character literal, so plain words and slot
// text can carry brackets, spaces or a leading ">".
package document

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

const textPrefix = "> "

// ParseError reports a markup problem with its 1-based line and column
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Parse hydrates markup into a document. Every token gets a fresh slot id.
func Parse(markup string) (*models.TemplateDocument, error) {
	doc := &models.TemplateDocument{}
	lines := strings.Split(strings.ReplaceAll(markup, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, textPrefix) || line == ">" {
			doc.Blocks = append(doc.Blocks, models.Block{
				Kind: models.BlockText,
				Text: strings.TrimPrefix(strings.TrimPrefix(line, ">"), " "),
			})
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		tokens, err := parsePhrase(line, i+1)
		if err != nil {
			return nil, err
		}
		doc.Blocks = append(doc.Blocks, models.Block{Kind: models.BlockPhrase, Tokens: tokens})
	}
	return doc, nil
}

func parsePhrase(line string, lineNo int) ([]models.PhraseToken, error) {
	var tokens []models.PhraseToken
	runes := []rune(line)
	for i := 0; i < len(runes); {
		switch {
		case unicode.IsSpace(runes[i]):
			i++
		case runes[i] == '[':
			end := indexUnescaped(runes, i+1, ']')
			if end < 0 {
				return nil, &ParseError{Line: lineNo, Column: i + 1, Msg: "unterminated slot"}
			}
			tok, err := parseSlot(string(runes[i+1 : end]))
			if err != nil {
				return nil, &ParseError{Line: lineNo, Column: i + 1, Msg: err.Error()}
			}
			tokens = append(tokens, tok)
			i = end + 1
		default:
			var word []rune
			for i < len(runes) && !unicode.IsSpace(runes[i]) && runes[i] != '[' {
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
				}
				word = append(word, runes[i])
				i++
			}
			tokens = append(tokens, models.PhraseToken{
				ID:   uuid.NewString(),
				Text: string(word),
			})
		}
	}
	return tokens, nil
}

// indexUnescaped finds target from index from on, skipping escaped runes
func indexUnescaped(runes []rune, from int, target rune) int {
	for j := from; j < len(runes); j++ {
		switch runes[j] {
		case '\\':
			j++
		case target:
			return j
		}
	}
	return -1
}

// cutUnescaped splits s around the first unescaped sep
func cutUnescaped(s string, sep rune) (before, after string, found bool) {
	runes := []rune(s)
	if i := indexUnescaped(runes, 0, sep); i >= 0 {
		return string(runes[:i]), string(runes[i+1:]), true
	}
	return s, "", false
}

func unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '\\' && i+1 < len(runes) {
			i++
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

func parseSlot(body string) (models.PhraseToken, error) {
	tok := models.PhraseToken{ID: uuid.NewString(), Randomize: true}

	spec, text, hasText := cutUnescaped(body, '=')
	tok.Text = unescape(text)
	if strings.HasPrefix(spec, "!") {
		tok.Randomize = false
		spec = spec[1:]
	}
	if head, lemma, ok := cutUnescaped(spec, '~'); ok {
		tok.Lemma = unescape(lemma)
		spec = head
	}
	if i := strings.IndexByte(spec, '#'); i >= 0 {
		tok.SlotLabel = strings.TrimSpace(spec[i+1:])
		spec = spec[:i]
		if !validLabel(tok.SlotLabel) {
			return tok, fmt.Errorf("unknown binding label %q", tok.SlotLabel)
		}
	}
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		tok.Morph = models.Morph(strings.TrimSpace(spec[i+1:]))
		spec = spec[:i]
		if !tok.Morph.Valid() {
			return tok, fmt.Errorf("unknown morphological form %q", tok.Morph)
		}
	}

	if strings.TrimSpace(spec) == "" {
		if !hasText || strings.TrimSpace(tok.Text) == "" {
			return tok, fmt.Errorf("slot %q needs a category or a text", body)
		}
	} else {
		for _, tag := range strings.Split(spec, "|") {
			tag = strings.ToUpper(strings.TrimSpace(tag))
			if tag == "" {
				return tok, fmt.Errorf("empty category in slot %q", body)
			}
			if tok.POS == "" {
				tok.POS = tag
			} else {
				tok.POSSet = append(tok.POSSet, tag)
			}
		}
	}

	if !hasText || strings.TrimSpace(tok.Text) == "" {
		tok.Text = strings.ToLower(models.BasePOS(tok.POS))
	}
	if !tok.IsRandomizable() {
		tok.Randomize = false
	}
	return tok, nil
}

func validLabel(label string) bool {
	for _, l := range models.SlotLabels {
		if l == label {
			return true
		}
	}
	return false
}

// Render produces canonical markup for the document. Tokens with a category,
// a label or a form are written as slots; everything else as plain words.
// Parse(Render(doc)) gives back every token field except the slot ids; a
// lemma equal to the token text is left out.
func Render(doc *models.TemplateDocument) string {
	var b strings.Builder
	for _, block := range doc.Blocks {
		switch block.Kind {
		case models.BlockText:
			for _, line := range strings.Split(block.Text, "\n") {
				b.WriteString(textPrefix)
				b.WriteString(line)
				b.WriteByte('\n')
			}
		default:
			parts := make([]string, 0, len(block.Tokens))
			for _, tok := range block.Tokens {
				parts = append(parts, renderToken(tok))
			}
			line := strings.Join(parts, " ")
			if strings.HasPrefix(line, ">") {
				line = "\\" + line
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderToken(tok models.PhraseToken) string {
	tags := tok.Tags()
	plain := len(tags) == 0 && tok.SlotLabel == "" && tok.Morph == models.MorphNone && !tok.Randomize
	if plain && (tok.Lemma == "" || tok.Lemma == tok.Text || tok.Text == "") {
		return escape(tok.Text, `\[]`, true)
	}

	var b strings.Builder
	b.WriteByte('[')
	if !tok.Randomize {
		b.WriteByte('!')
	}
	b.WriteString(strings.Join(tags, "|"))
	if tok.Morph != models.MorphNone {
		b.WriteByte(':')
		b.WriteString(string(tok.Morph))
	}
	if tok.SlotLabel != "" {
		b.WriteByte('#')
		b.WriteString(tok.SlotLabel)
	}
	if tok.Lemma != "" && tok.Lemma != tok.Text {
		b.WriteByte('~')
		b.WriteString(escape(tok.Lemma, `\[]=`, false))
	}
	if len(tags) == 0 || tok.Text != strings.ToLower(models.BasePOS(tags[0])) {
		b.WriteByte('=')
		b.WriteString(escape(tok.Text, `\[]`, false))
	}
	b.WriteByte(']')
	return b.String()
}

// escape puts a backslash before every rune of s found in special, and
// before whitespace when spaces is set
func escape(s, special string, spaces bool) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(special, r) || (spaces && unicode.IsSpace(r)) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
