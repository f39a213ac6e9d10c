// Package importer hydrates raw text corpora into template documents.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/document"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/tagger"
)

// ConflictPolicy decides what happens when an imported id already exists
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictRename    ConflictPolicy = "rename"
)

// ParseConflictPolicy accepts skip, overwrite or rename; empty means skip
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ConflictSkip, nil
	case ConflictSkip, ConflictOverwrite, ConflictRename:
		return p, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want skip, overwrite or rename)", s)
	}
}

// ImportOptions configures the import process
type ImportOptions struct {
	Path      string   // File or directory of .txt/.md corpora
	SessionID string   // Owner of the imported templates; empty means shared
	DryRun    bool     // Build templates without saving them
	Tags      []string // Additional tags for every imported template
	Conflict  ConflictPolicy
	// Randomize flags every randomizable imported token for randomization,
	// instead of leaving the choice to the profile
	Randomize bool
}

// ImportResult contains the results of an import operation
type ImportResult struct {
	Templates []*models.TemplateDocument
	Saved     int
	Skipped   int
	Renamed   int
	Errors    []error
}

// CorpusImporter turns every non-empty line of a text file into a template
type CorpusImporter struct {
	analyzer tagger.Analyzer
}

// NewCorpusImporter creates an importer; nil uses the lexicon tagger
func NewCorpusImporter(analyzer tagger.Analyzer) *CorpusImporter {
	if analyzer == nil {
		analyzer = tagger.NewLexiconTagger(nil)
	}
	return &CorpusImporter{analyzer: analyzer}
}

// Import reads the corpus at options.Path. Per-file failures are collected
// in the result; only an unreadable root is an error.
func (i *CorpusImporter) Import(ctx context.Context, options ImportOptions) (*ImportResult, error) {
	result := &ImportResult{}
	if options.Path == "" {
		return result, fmt.Errorf("import path is required")
	}

	info, err := os.Stat(options.Path)
	if err != nil {
		return result, fmt.Errorf("failed to read corpus: %w", err)
	}

	root := options.Path
	var files []string
	if info.IsDir() {
		err = filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if fi.IsDir() && strings.HasPrefix(fi.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			if !fi.IsDir() && isCorpusFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return result, fmt.Errorf("failed to walk corpus: %w", err)
		}
	} else {
		root = filepath.Dir(options.Path)
		files = []string{options.Path}
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		docs, err := i.importFile(ctx, path, root, options)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))
			continue
		}
		result.Templates = append(result.Templates, docs...)
	}
	return result, nil
}

func isCorpusFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".text":
		return true
	}
	return false
}

type corpusHeader struct {
	Name   string   `yaml:"name"`
	Tags   []string `yaml:"tags"`
	Weight float64  `yaml:"weight"`
}

func (i *CorpusImporter) importFile(ctx context.Context, path, root string, options ImportOptions) ([]*models.TemplateDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header, body, err := parseFrontmatter(content)
	if err != nil {
		return nil, err
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		relPath = filepath.Base(path)
	}
	baseID := generateIDFromPath(relPath)
	tags := cleanTags(append(append([]string{"corpus"}, header.Tags...), options.Tags...))
	now := time.Now().UTC()

	var docs []*models.TemplateDocument
	for n, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		doc, err := document.FromText(ctx, i.analyzer, line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
		if options.Randomize {
			randomizeAll(doc)
		}
		doc.ID = fmt.Sprintf("%s-%d", baseID, n+1)
		doc.SessionID = options.SessionID
		doc.Name = templateName(header.Name, line, n+1)
		doc.Tags = tags
		doc.Weight = header.Weight
		doc.CreatedAt = now
		doc.UpdatedAt = now
		docs = append(docs, doc)
	}
	return docs, nil
}

func randomizeAll(doc *models.TemplateDocument) {
	for bi := range doc.Blocks {
		for ti := range doc.Blocks[bi].Tokens {
			tok := &doc.Blocks[bi].Tokens[ti]
			if tok.IsRandomizable() && tok.POS != "" && tok.POS != "PUNCT" {
				tok.Randomize = true
			}
		}
	}
}

// parseFrontmatter splits an optional YAML header from the corpus body
func parseFrontmatter(content []byte) (corpusHeader, string, error) {
	var header corpusHeader
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return header, string(content), nil
	}

	var headerLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		headerLines = append(headerLines, line)
	}
	if !closed {
		return header, "", fmt.Errorf("unterminated frontmatter")
	}
	if err := yaml.Unmarshal([]byte(strings.Join(headerLines, "\n")), &header); err != nil {
		return header, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	return header, strings.Join(bodyLines, "\n"), scanner.Err()
}

// generateIDFromPath creates a file-name-safe id from a relative path
func generateIDFromPath(relPath string) string {
	id := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	id = strings.ToLower(id)
	id = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, id)
	id = strings.Trim(id, "-")
	for strings.Contains(id, "--") {
		id = strings.ReplaceAll(id, "--", "-")
	}
	if id == "" {
		id = "corpus"
	}
	return id
}

func templateName(name, line string, n int) string {
	if name != "" {
		return fmt.Sprintf("%s #%d", name, n)
	}
	words := strings.Fields(line)
	if len(words) > 6 {
		return strings.Join(words[:6], " ") + "…"
	}
	return line
}

// cleanTags removes empty and duplicate tags
func cleanTags(tags []string) []string {
	seen := make(map[string]bool)
	var result []string

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !seen[tag] {
			seen[tag] = true
			result = append(result, tag)
		}
	}

	return result
}
