// Package vocab holds the fallback vocabulary banks consulted when no live
// candidate fits a slot. A bank is keyed by category tag; lookups try the
// exact tag first and then its base category.
package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

//go:embed default_bank.yaml
var defaultBankYAML []byte

// Bank maps a category tag to its fallback words
type Bank map[string][]string

// Default returns the embedded English bank
func Default() Bank {
	bank, err := Parse(defaultBankYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary bank is invalid: %v", err))
	}
	return bank
}

// Parse decodes a YAML document of the form `TAG: [word, ...]`
func Parse(data []byte) (Bank, error) {
	raw := make(map[string][]string)
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary bank: %w", err)
	}

	bank := make(Bank, len(raw))
	for tag, words := range raw {
		tag = normalizeTag(tag)
		if tag == "" {
			continue
		}
		for _, w := range words {
			if w = strings.TrimSpace(w); w != "" {
				bank[tag] = append(bank[tag], w)
			}
		}
	}
	return bank, nil
}

// normalizeTag upper-cases the base category and keeps the qualifier as written ("verb:past" -> "VERB:past")
func normalizeTag(tag string) string {
	tag = strings.TrimSpace(tag)
	base := models.BasePOS(tag)
	return strings.ToUpper(base) + tag[len(base):]
}

// Load reads a bank from disk. An empty path yields the embedded default.
func Load(path string) (Bank, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary bank: %w", err)
	}
	return Parse(data)
}

// Lookup returns the words for the category, falling back to its base category.
// The returned tag is the key that actually matched.
func (b Bank) Lookup(category string) (string, []string) {
	if words := b[category]; len(words) > 0 {
		return category, words
	}
	base := models.BasePOS(category)
	if words := b[base]; len(words) > 0 {
		return base, words
	}
	return "", nil
}

// Merge returns a new bank with other's words appended after b's, deduplicated
func (b Bank) Merge(other Bank) Bank {
	out := make(Bank, len(b)+len(other))
	for _, src := range []Bank{b, other} {
		for tag, words := range src {
			seen := make(map[string]bool, len(out[tag]))
			for _, w := range out[tag] {
				seen[w] = true
			}
			for _, w := range words {
				if !seen[w] {
					seen[w] = true
					out[tag] = append(out[tag], w)
				}
			}
		}
	}
	return out
}

// Categories returns the bank's tags in sorted order
func (b Bank) Categories() []string {
	tags := make([]string, 0, len(b))
	for tag := range b {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Tag returns the first category containing word (case-insensitive), in sorted tag order
func (b Bank) Tag(word string) (string, bool) {
	for _, tag := range b.Categories() {
		for _, w := range b[tag] {
			if strings.EqualFold(w, word) {
				return tag, true
			}
		}
	}
	return "", false
}
