package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

const testCorpus = `---
name: Travel
tags: [travel, short]
weight: 2
---
# comments are skipped
Alice visited New York.

The old man walked slowly.
`

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "Travel Notes.md"), []byte(testCorpus), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.txt"), []byte("Birds sing.\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.json"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "x.txt"), []byte("Hidden line.\n"), 0644))
	return dir
}

func TestCorpusImportDirectory(t *testing.T) {
	dir := writeCorpus(t)
	imp := NewCorpusImporter(nil)

	res, err := imp.Import(context.Background(), ImportOptions{Path: dir, SessionID: "s1", Tags: []string{"extra"}})
	require.NoError(t, err)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Templates, 3)

	byID := map[string]*models.TemplateDocument{}
	for _, doc := range res.Templates {
		byID[doc.ID] = doc
	}
	require.Contains(t, byID, "plain-1")
	require.Contains(t, byID, "sub-travel-notes-2")
	require.Contains(t, byID, "sub-travel-notes-4")

	travel := byID["sub-travel-notes-2"]
	assert.Equal(t, "Travel #2", travel.Name)
	assert.Equal(t, "s1", travel.SessionID)
	assert.Equal(t, 2.0, travel.Weight)
	assert.Equal(t, []string{"corpus", "travel", "short", "extra"}, travel.Tags)

	// the proper-noun run is merged into one token
	var texts []string
	for _, tok := range travel.Blocks[0].Tokens {
		texts = append(texts, tok.Text)
		assert.False(t, tok.Randomize)
		assert.NotEmpty(t, tok.ID)
	}
	assert.Contains(t, texts, "New York")

	assert.Equal(t, "Birds sing.", byID["plain-1"].Name)
}

func TestCorpusImportRandomize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.txt")
	require.NoError(t, os.WriteFile(path, []byte("The cat sleeps , 42 times.\n"), 0644))

	res, err := NewCorpusImporter(nil).Import(context.Background(), ImportOptions{Path: path, Randomize: true})
	require.NoError(t, err)
	require.Len(t, res.Templates, 1)
	for _, tok := range res.Templates[0].Blocks[0].Tokens {
		assert.Equal(t, tok.IsRandomizable() && tok.POS != "PUNCT", tok.Randomize, tok.Text)
	}
}

func TestCorpusImportErrors(t *testing.T) {
	imp := NewCorpusImporter(nil)
	_, err := imp.Import(context.Background(), ImportOptions{})
	assert.Error(t, err)

	_, err = imp.Import(context.Background(), ImportOptions{Path: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("---\nname: x\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"), []byte("Fine line.\n"), 0644))
	res, err := imp.Import(context.Background(), ImportOptions{Path: dir})
	require.NoError(t, err)
	assert.Len(t, res.Errors, 1)
	assert.Len(t, res.Templates, 1)
}

func TestParseConflictPolicy(t *testing.T) {
	for in, want := range map[string]ConflictPolicy{"": ConflictSkip, "skip": ConflictSkip, "Overwrite": ConflictOverwrite, "rename": ConflictRename} {
		got, err := ParseConflictPolicy(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseConflictPolicy("merge")
	assert.Error(t, err)
}

func TestGenerateIDFromPath(t *testing.T) {
	assert.Equal(t, "sub-travel-notes", generateIDFromPath(filepath.Join("sub", "Travel Notes.md")))
	assert.Equal(t, "corpus", generateIDFromPath("!!!.txt"))
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{"tag1", "tag2", "tag3"}, cleanTags([]string{"tag1", "", "tag2", "tag1", "  tag3  ", ""}))
}
