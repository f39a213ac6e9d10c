package importer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// GitRunner runs git with the given arguments and returns its combined output
type GitRunner func(ctx context.Context, args ...string) ([]byte, error)

// GitRepoImporter imports text corpora from a git repository
type GitRepoImporter struct {
	corpus *CorpusImporter
	git    GitRunner
}

// NewGitRepoImporter creates a git importer on top of a corpus importer
func NewGitRepoImporter(corpus *CorpusImporter) *GitRepoImporter {
	if corpus == nil {
		corpus = NewCorpusImporter(nil)
	}
	return &GitRepoImporter{
		corpus: corpus,
		git: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "git", args...).CombinedOutput()
		},
	}
}

// SetGitRunner replaces the git binary, mostly for tests
func (g *GitRepoImporter) SetGitRunner(run GitRunner) {
	g.git = run
}

// GitImportOptions extends ImportOptions with git-specific settings.
// ImportOptions.Path selects a subdirectory of the repository.
type GitImportOptions struct {
	ImportOptions
	RepoURL  string // Git repository URL
	OwnerTag string // Override for owner tag (default: extracted from URL)
	TempDir  string // Temporary directory for cloning (default: system temp)
	Branch   string // Specific branch to import (default: repository default)
	Depth    int    // Shallow clone depth (0 = full clone)
}

// GitImportResult contains the results of a git repository import
type GitImportResult struct {
	*ImportResult
	RepoURL  string
	Branch   string
	OwnerTag string
}

// ImportFromGitRepo clones the repository and imports its corpus files
func (g *GitRepoImporter) ImportFromGitRepo(ctx context.Context, options GitImportOptions) (*GitImportResult, error) {
	result := &GitImportResult{
		ImportResult: &ImportResult{},
		RepoURL:      options.RepoURL,
		Branch:       options.Branch,
	}

	if options.RepoURL == "" {
		return result, fmt.Errorf("repository URL is required")
	}

	if options.OwnerTag == "" {
		owner, err := extractOwnerFromURL(options.RepoURL)
		if err != nil {
			return result, fmt.Errorf("failed to extract owner from URL: %w", err)
		}
		options.OwnerTag = owner
	}
	result.OwnerTag = options.OwnerTag

	tempDir, err := setupTempDir(options.TempDir)
	if err != nil {
		return result, fmt.Errorf("failed to setup temporary directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	clonePath, err := g.cloneRepository(ctx, options.RepoURL, tempDir, options.Branch, options.Depth)
	if err != nil {
		return result, fmt.Errorf("failed to clone repository: %w", err)
	}

	inner := options.ImportOptions
	inner.Path = filepath.Join(clonePath, filepath.Clean("/"+options.Path))
	inner.Tags = addGitTags(nil, options)

	imported, err := g.corpus.Import(ctx, inner)
	if imported != nil {
		result.ImportResult = imported
	}
	if err != nil {
		return result, fmt.Errorf("failed to import from cloned repository: %w", err)
	}
	return result, nil
}

// extractOwnerFromURL extracts the owner/username from a git repository URL
func extractOwnerFromURL(repoURL string) (string, error) {
	sshPattern := regexp.MustCompile(`^git@([^:]+):([^/]+)/`)
	if matches := sshPattern.FindStringSubmatch(repoURL); len(matches) > 2 {
		return matches[2], nil
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("invalid repository URL: %w", err)
	}

	pathParts := strings.Split(strings.Trim(parsedURL.Path, "/"), "/")
	if len(pathParts) < 2 {
		return "", fmt.Errorf("invalid repository URL format")
	}

	return pathParts[0], nil
}

func setupTempDir(customTempDir string) (string, error) {
	if customTempDir != "" {
		if err := os.MkdirAll(customTempDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create custom temp directory: %w", err)
		}
		return os.MkdirTemp(customTempDir, "clone-")
	}
	return os.MkdirTemp("", "simplethink-git-import-")
}

func (g *GitRepoImporter) cloneRepository(ctx context.Context, repoURL, tempDir, branch string, depth int) (string, error) {
	clonePath := filepath.Join(tempDir, "repo")

	args := []string{"clone"}
	if depth > 0 {
		args = append(args, "--depth", fmt.Sprintf("%d", depth))
	}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, repoURL, clonePath)

	output, err := g.git(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("git clone failed: %w\nOutput: %s", err, string(output))
	}
	return clonePath, nil
}

// addGitTags adds the owner and git-repository tags to existing tags
func addGitTags(existingTags []string, options GitImportOptions) []string {
	tags := append([]string(nil), existingTags...)
	tags = append(tags, options.OwnerTag, "git-repository")
	tags = append(tags, options.Tags...)
	return cleanTags(tags)
}
