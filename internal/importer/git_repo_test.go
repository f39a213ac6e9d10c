package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOwnerFromURL(t *testing.T) {
	testCases := []struct {
		url      string
		expected string
		hasError bool
	}{
		{url: "https://github.com/user/repo.git", expected: "user"},
		{url: "https://github.com/organization/my-corpus.git", expected: "organization"},
		{url: "git@github.com:user/repo.git", expected: "user"},
		{url: "git@gitlab.com:team/project.git", expected: "team"},
		{url: "https://gitlab.com/group/subgroup/project.git", expected: "group"},
		{url: "invalid-url", hasError: true},
		{url: "https://github.com/", hasError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			owner, err := extractOwnerFromURL(tc.url)
			if tc.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, owner)
		})
	}
}

func TestAddGitTags(t *testing.T) {
	options := GitImportOptions{
		OwnerTag:      "test-user",
		ImportOptions: ImportOptions{Tags: []string{"additional", "custom", "existing"}},
	}

	result := addGitTags([]string{"existing", "tag"}, options)
	assert.Equal(t, []string{"existing", "tag", "test-user", "git-repository", "additional", "custom"}, result)
}

func TestImportFromGitRepo(t *testing.T) {
	g := NewGitRepoImporter(nil)
	var gotArgs []string
	g.git = func(_ context.Context, args ...string) ([]byte, error) {
		gotArgs = args
		clonePath := args[len(args)-1]
		dir := filepath.Join(clonePath, "lines")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(filepath.Join(dir, "poems.txt"), []byte("The cat sleeps.\nA dog barks loudly.\n"), 0644)
	}

	res, err := g.ImportFromGitRepo(context.Background(), GitImportOptions{
		RepoURL:       "https://github.com/someone/corpus.git",
		Branch:        "main",
		Depth:         1,
		TempDir:       t.TempDir(),
		ImportOptions: ImportOptions{Path: "lines"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"clone", "--depth", "1", "--branch", "main", "https://github.com/someone/corpus.git"}, gotArgs[:6])
	assert.Equal(t, "someone", res.OwnerTag)
	require.Len(t, res.Templates, 2)
	assert.Equal(t, "poems-1", res.Templates[0].ID)
	assert.Contains(t, res.Templates[0].Tags, "someone")
	assert.Contains(t, res.Templates[0].Tags, "git-repository")
}

func TestImportFromGitRepoErrors(t *testing.T) {
	g := NewGitRepoImporter(nil)
	_, err := g.ImportFromGitRepo(context.Background(), GitImportOptions{})
	assert.Error(t, err)

	g.git = func(context.Context, ...string) ([]byte, error) {
		return []byte("fatal: not found"), errors.New("exit status 128")
	}
	_, err = g.ImportFromGitRepo(context.Background(), GitImportOptions{RepoURL: "https://github.com/a/b.git", TempDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
