package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// PackInstallOptions configures a pack installation
type PackInstallOptions struct {
	Name   string // Override the pack name from pack.yaml
	Branch string // Git branch to clone
	Force  bool   // Reinstall over an existing pack
}

// PackInstaller handles installing packs from various sources
type PackInstaller struct {
	packConfig *PackConfig
	git        func(ctx context.Context, args ...string) ([]byte, error)
}

// SetGitRunner replaces the git binary, mostly for tests
func (pi *PackInstaller) SetGitRunner(run func(ctx context.Context, args ...string) ([]byte, error)) {
	pi.git = run
}

// NewPackInstaller creates a new pack installer
func NewPackInstaller(packConfig *PackConfig) *PackInstaller {
	return &PackInstaller{
		packConfig: packConfig,
		git: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "git", args...).CombinedOutput()
		},
	}
}

// InstallFromGit clones a pack repository and installs it
func (pi *PackInstaller) InstallFromGit(ctx context.Context, gitURL string, options PackInstallOptions) (*Pack, error) {
	packName := extractPackNameFromGitURL(gitURL)
	if packName == "" {
		return nil, fmt.Errorf("could not determine pack name from URL: %s", gitURL)
	}

	tempDir, err := os.MkdirTemp("", "simplethink-pack-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	defer os.RemoveAll(tempDir)
	clonePath := filepath.Join(tempDir, packName)

	cloneArgs := []string{"clone", "--depth", "1"}
	if options.Branch != "" {
		cloneArgs = append(cloneArgs, "--branch", options.Branch)
	}
	cloneArgs = append(cloneArgs, gitURL, clonePath)
	if output, err := pi.git(ctx, cloneArgs...); err != nil {
		return nil, fmt.Errorf("failed to clone repository: %s\nOutput: %s", err, string(output))
	}

	pack, err := pi.install(clonePath, options)
	if err != nil {
		return nil, err
	}
	pack.InstallURL = gitURL
	if err := pi.packConfig.Save(); err != nil {
		return nil, err
	}
	return pack, nil
}

// InstallFromDirectory installs a pack from a local directory
func (pi *PackInstaller) InstallFromDirectory(srcDir string, options PackInstallOptions) (*Pack, error) {
	return pi.install(srcDir, options)
}

func (pi *PackInstaller) install(srcDir string, options PackInstallOptions) (*Pack, error) {
	pack, err := LoadPackMetadata(srcDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load pack metadata: %w", err)
	}
	if options.Name != "" {
		pack.Name = options.Name
	}

	if pi.packConfig.IsPackInstalled(pack.Name) {
		if !options.Force {
			return nil, fmt.Errorf("pack '%s' is already installed (use --force to reinstall)", pack.Name)
		}
		if err := pi.UninstallPack(pack.Name); err != nil {
			return nil, fmt.Errorf("failed to remove existing pack: %w", err)
		}
	}

	if err := ValidatePackStructure(srcDir); err != nil {
		return nil, fmt.Errorf("invalid pack structure: %w", err)
	}

	packDir := pi.packConfig.GetPackPath(pack.Name)
	if err := copyDir(srcDir, packDir); err != nil {
		os.RemoveAll(packDir)
		return nil, fmt.Errorf("failed to copy pack: %w", err)
	}

	if err := pi.packConfig.AddPack(*pack); err != nil {
		os.RemoveAll(packDir)
		return nil, fmt.Errorf("failed to add pack to configuration: %w", err)
	}
	return pi.packConfig.GetPack(pack.Name)
}

// UninstallPack removes a pack directory and its registry entry
func (pi *PackInstaller) UninstallPack(name string) error {
	pack, err := pi.packConfig.GetPack(name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(pack.Path); err != nil {
		return fmt.Errorf("failed to remove pack directory: %w", err)
	}
	if err := pi.packConfig.RemovePack(name); err != nil {
		return fmt.Errorf("failed to remove pack from configuration: %w", err)
	}
	return nil
}

// CreatePackScaffold writes an empty pack with metadata, vocabulary and a
// sample template
func CreatePackScaffold(packDir, name, title, description, author string) error {
	if err := os.MkdirAll(filepath.Join(packDir, packTemplatesDir), 0755); err != nil {
		return fmt.Errorf("failed to create pack directories: %w", err)
	}

	meta, err := yaml.Marshal(Pack{Name: name, Version: "0.1.0", Title: title, Description: description, Author: author})
	if err != nil {
		return err
	}
	files := map[string]string{
		packMetadataFile: string(meta),
		packVocabFile:    "NOUN: [moonrise, tidepool]\nVERB: [shimmer, wane]\nADJ: [gloaming, hushed]\n",
		filepath.Join(packTemplatesDir, "example.md"): "---\nid: " + name + "-example\nname: Example\ntags: [" + name + "]\n---\n\nThe [ADJ] [NOUN] [VERB:3sg] at night\n",
	}
	for rel, content := range files {
		if err := os.WriteFile(filepath.Join(packDir, rel), []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}
	return nil
}

func extractPackNameFromGitURL(gitURL string) string {
	name := strings.TrimSuffix(strings.TrimRight(gitURL, "/"), ".git")
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}

// copyDir copies a directory tree, skipping version control metadata
func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if info.IsDir() && info.Name() == ".git" {
			return filepath.SkipDir
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode()|0700)
		}
		return copyFile(path, target, info.Mode())
	})
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
