// Package git keeps a template library directory under version control and
// synchronizes it with a remote.
package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
)

// Runner runs git in dir and returns its combined output
type Runner func(ctx context.Context, dir string, args ...string) ([]byte, error)

// ExecRunner runs the git binary
func ExecRunner(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Status summarizes the library repository
type Status string

const (
	StatusNotInitialized Status = "Git not initialized"
	StatusNoRemote       Status = "No remote configured"
	StatusUncommitted    Status = "Uncommitted changes"
	StatusAhead          Status = "Changes need to be pushed"
	StatusBehind         Status = "Remote has new changes"
	StatusInSync         Status = "In sync"
)

// LibrarySync commits library changes and exchanges them with origin
type LibrarySync struct {
	dir     string
	run     Runner
	timeout time.Duration
	logger  *zap.Logger
}

// NewLibrarySync creates a syncer for the library at dir
func NewLibrarySync(dir string, logger *zap.Logger) *LibrarySync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LibrarySync{
		dir:     dir,
		run:     ExecRunner,
		timeout: 30 * time.Second,
		logger:  logger.Named("git"),
	}
}

// SetRunner replaces the git binary, mostly for tests
func (g *LibrarySync) SetRunner(run Runner) {
	g.run = run
}

func (g *LibrarySync) git(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	g.logger.Debug("running git", zap.Strings("args", args))
	out, err := g.run(ctx, g.dir, args...)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return "", errors.GitError(strings.Join(args, " "), fmt.Errorf("timed out after %v", g.timeout))
		}
		return "", errors.GitError(args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsInitialized reports whether the library is a git repository
func (g *LibrarySync) IsInitialized() bool {
	_, err := os.Stat(filepath.Join(g.dir, ".git"))
	return err == nil
}

func (g *LibrarySync) hasRemote(ctx context.Context) bool {
	out, err := g.git(ctx, "remote")
	return err == nil && out != ""
}

// currentBranch returns the checked out branch, "main" for a detached HEAD
func (g *LibrarySync) currentBranch(ctx context.Context) string {
	out, err := g.git(ctx, "branch", "--show-current")
	if err != nil || out == "" {
		return "main"
	}
	return out
}

// Setup initializes the repository if needed, points origin at repoURL,
// makes an initial commit and pushes it
func (g *LibrarySync) Setup(ctx context.Context, repoURL string) error {
	if repoURL == "" {
		return errors.ValidationError("repository URL cannot be empty")
	}

	if !g.IsInitialized() {
		if _, err := g.git(ctx, "init"); err != nil {
			return err
		}
		if _, err := g.git(ctx, "checkout", "-B", "main"); err != nil {
			g.logger.Warn("could not name the default branch", zap.Error(err))
		}
	}

	if g.hasRemote(ctx) {
		current, err := g.git(ctx, "remote", "get-url", "origin")
		if err == nil && current != repoURL {
			if _, err := g.git(ctx, "remote", "set-url", "origin", repoURL); err != nil {
				return err
			}
			g.logger.Info("updated remote", zap.String("url", repoURL))
		}
	} else {
		if _, err := g.git(ctx, "remote", "add", "origin", repoURL); err != nil {
			return err
		}
		g.logger.Info("added remote", zap.String("url", repoURL))
	}

	if err := g.ensureIgnore(); err != nil {
		return err
	}
	if _, err := g.Commit(ctx, "Initial simplethink library commit"); err != nil {
		return err
	}

	branch := g.currentBranch(ctx)
	if _, err := g.git(ctx, "fetch", "origin"); err == nil {
		// an existing remote library wins over the fresh local one
		if _, err := g.git(ctx, "pull", "--no-rebase", "--allow-unrelated-histories", "-X", "theirs", "origin", branch); err != nil {
			g.logger.Warn("could not merge remote content", zap.Error(err))
		}
	}
	if _, err := g.git(ctx, "push", "-u", "origin", branch); err != nil {
		return err
	}
	return nil
}

// ensureIgnore keeps the metadata cache and database out of the repository
func (g *LibrarySync) ensureIgnore() error {
	path := filepath.Join(g.dir, ".gitignore")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	content := ".simplethink/cache/\n*.db\n*.db-journal\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return errors.StorageError("write .gitignore", err)
	}
	return nil
}

// Commit stages everything and commits it. It reports false when there
// was nothing to commit.
func (g *LibrarySync) Commit(ctx context.Context, message string) (bool, error) {
	if _, err := g.git(ctx, "add", "-A"); err != nil {
		return false, err
	}
	out, err := g.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	if out == "" {
		return false, nil
	}
	msg := fmt.Sprintf("%s - %s", message, time.Now().Format("2006-01-02 15:04:05"))
	if _, err := g.git(ctx, "commit", "-m", msg); err != nil {
		return false, err
	}
	return true, nil
}

// Pull fetches origin and merges it, resolving conflicts in favor of the
// remote copy
func (g *LibrarySync) Pull(ctx context.Context) error {
	if !g.IsInitialized() || !g.hasRemote(ctx) {
		return nil
	}
	if _, err := g.git(ctx, "fetch", "origin"); err != nil {
		return err
	}
	branch := g.currentBranch(ctx)
	if _, err := g.git(ctx, "rev-parse", "--verify", "origin/"+branch); err != nil {
		// nothing pushed yet
		return nil
	}
	_, err := g.git(ctx, "pull", "--no-rebase", "-X", "theirs", "origin", branch)
	return err
}

// Sync commits local changes, pulls and pushes. A library that is not a
// repository with a remote is left alone.
func (g *LibrarySync) Sync(ctx context.Context, message string) error {
	if !g.IsInitialized() || !g.hasRemote(ctx) {
		return nil
	}
	if _, err := g.Commit(ctx, message); err != nil {
		return err
	}
	if err := g.Pull(ctx); err != nil {
		return err
	}
	if _, err := g.git(ctx, "push", "origin", g.currentBranch(ctx)); err != nil {
		return err
	}
	return nil
}

// Status inspects the repository without touching the network
func (g *LibrarySync) Status(ctx context.Context) (Status, error) {
	if !g.IsInitialized() {
		return StatusNotInitialized, nil
	}
	if !g.hasRemote(ctx) {
		return StatusNoRemote, nil
	}
	out, err := g.git(ctx, "status", "--porcelain", "--branch")
	if err != nil {
		return "", err
	}
	lines := strings.Split(out, "\n")
	switch {
	case len(lines) > 1:
		return StatusUncommitted, nil
	case strings.Contains(lines[0], "[ahead"):
		return StatusAhead, nil
	case strings.Contains(lines[0], "[behind"):
		return StatusBehind, nil
	}
	return StatusInSync, nil
}

// BackgroundPull pulls every interval until ctx is done. Errors are logged.
func (g *LibrarySync) BackgroundPull(ctx context.Context, interval time.Duration, onPulled func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.Pull(ctx); err != nil {
				g.logger.Warn("background pull failed", zap.Error(err))
				continue
			}
			if onPulled != nil {
				onPulled()
			}
		}
	}
}
