package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/tagger"
)

// FromAnalysis builds a single-phrase document from tagger output. Compound
// runs collapse into one token carrying the compound's category. Every
// token starts out literal; the slot policy decides what gets randomized.
func FromAnalysis(a *tagger.Analysis) *models.TemplateDocument {
	compoundAt := make(map[int]tagger.Compound, len(a.Compounds))
	for _, c := range a.Compounds {
		if c.End > c.Start+1 {
			compoundAt[c.Start] = c
		}
	}

	block := models.Block{Kind: models.BlockPhrase}
	for i := 0; i < len(a.Tokens); {
		if c, ok := compoundAt[i]; ok {
			block.Tokens = append(block.Tokens, models.PhraseToken{
				ID:   uuid.NewString(),
				Text: c.Text,
				POS:  c.POS,
			})
			i = c.End
			continue
		}
		tok := a.Tokens[i]
		block.Tokens = append(block.Tokens, models.PhraseToken{
			ID:    uuid.NewString(),
			Text:  tok.Value,
			Lemma: distinctLemma(tok.Value, tok.Lemma),
			POS:   tok.POS,
		})
		i++
	}

	doc := &models.TemplateDocument{}
	if len(block.Tokens) > 0 {
		doc.Blocks = append(doc.Blocks, block)
	}
	return doc
}

// distinctLemma drops a lemma that only repeats the surface text
func distinctLemma(text, lemma string) string {
	if lemma == text {
		return ""
	}
	return lemma
}

// FromText analyzes every non-empty line of text into a phrase block
func FromText(ctx context.Context, analyzer tagger.Analyzer, text string) (*models.TemplateDocument, error) {
	doc := &models.TemplateDocument{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		a, err := analyzer.Analyze(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze %q: %w", line, err)
		}
		doc.Blocks = append(doc.Blocks, FromAnalysis(a).Blocks...)
	}
	return doc, nil
}

// Tag fills POS and lemma for phrase tokens that have no category yet.
// Each block is analyzed as a whole so sentence position informs the tags;
// a token whose text does not line up with the analysis is analyzed alone.
func Tag(ctx context.Context, analyzer tagger.Analyzer, doc *models.TemplateDocument) error {
	for bi := range doc.Blocks {
		block := &doc.Blocks[bi]
		if block.Kind != models.BlockPhrase || len(block.Tokens) == 0 {
			continue
		}
		a, err := analyzer.Analyze(ctx, block.PhraseText())
		if err != nil {
			return fmt.Errorf("failed to analyze block %d: %w", bi, err)
		}

		next := 0
		for ti := range block.Tokens {
			tok := &block.Tokens[ti]
			match, consumed, ok := align(a.Tokens[next:], tok.Text)
			next += consumed
			if tok.POS != "" {
				continue
			}
			if !ok {
				single, err := analyzer.Analyze(ctx, tok.Text)
				if err != nil {
					return fmt.Errorf("failed to analyze %q: %w", tok.Text, err)
				}
				match, _, ok = align(single.Tokens, tok.Text)
				if !ok {
					continue
				}
			}
			if match.POS == "PUNCT" {
				continue
			}
			tok.POS = match.POS
			if tok.Lemma == "" {
				tok.Lemma = distinctLemma(tok.Text, match.Lemma)
			}
		}
	}
	return nil
}

// align consumes analysis tokens until their concatenated values spell text.
// It returns the first word-bearing token of the run.
func align(tokens []tagger.Token, text string) (tagger.Token, int, bool) {
	target := strings.Join(strings.Fields(text), "")
	var built strings.Builder
	var head tagger.Token
	found := false
	for i, tok := range tokens {
		built.WriteString(tok.Value)
		if !found && tok.POS != "PUNCT" {
			head, found = tok, true
		}
		switch {
		case built.String() == target:
			if !found {
				head = tokens[0]
			}
			return head, i + 1, true
		case !strings.HasPrefix(target, built.String()):
			return tagger.Token{}, 0, false
		}
	}
	return tagger.Token{}, 0, false
}
