package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	packMetadataFile = "pack.yaml"
	packVocabFile    = "vocab.yaml"
	packTemplatesDir = "templates"
)

// Pack is an installable bundle of fallback vocabulary and templates
type Pack struct {
	Name        string    `json:"name" yaml:"name"`
	Version     string    `json:"version" yaml:"version"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Author      string    `json:"author,omitempty" yaml:"author,omitempty"`
	Tags        []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	InstallTime time.Time `json:"install_time" yaml:"-"`
	InstallURL  string    `json:"install_url,omitempty" yaml:"-"`
	Path        string    `json:"path" yaml:"-"`
}

// VocabularyPath returns the pack's vocab.yaml, or "" when it has none
func (p Pack) VocabularyPath() string {
	path := filepath.Join(p.Path, packVocabFile)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// TemplatesDir returns the pack's templates directory, or "" when it has none
func (p Pack) TemplatesDir() string {
	dir := filepath.Join(p.Path, packTemplatesDir)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}

// PackConfig manages installed packs
type PackConfig struct {
	Packs      []Pack `json:"packs"`
	configPath string
	packsDir   string
}

// NewPackConfig creates a pack registry rooted at baseDir
func NewPackConfig(baseDir string) (*PackConfig, error) {
	if baseDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}

	config := &PackConfig{
		configPath: filepath.Join(baseDir, "packs.json"),
		packsDir:   filepath.Join(baseDir, "packs"),
	}

	if err := os.MkdirAll(config.packsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create packs directory: %w", err)
	}
	if err := config.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load pack configuration: %w", err)
	}
	return config, nil
}

// Load reads the pack registry from disk
func (c *PackConfig) Load() error {
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

// Save writes the pack registry to disk
func (c *PackConfig) Save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal pack configuration: %w", err)
	}
	return os.WriteFile(c.configPath, data, 0644)
}

// AddPack registers an installed pack
func (c *PackConfig) AddPack(pack Pack) error {
	if c.IsPackInstalled(pack.Name) {
		return fmt.Errorf("pack '%s' already installed", pack.Name)
	}
	pack.Path = c.GetPackPath(pack.Name)
	pack.InstallTime = time.Now().UTC()
	c.Packs = append(c.Packs, pack)
	sort.Slice(c.Packs, func(i, j int) bool { return c.Packs[i].Name < c.Packs[j].Name })
	return c.Save()
}

// RemovePack unregisters a pack
func (c *PackConfig) RemovePack(name string) error {
	for i, pack := range c.Packs {
		if pack.Name == name {
			c.Packs = append(c.Packs[:i], c.Packs[i+1:]...)
			return c.Save()
		}
	}
	return fmt.Errorf("pack '%s' not found", name)
}

// GetPack retrieves a pack by name
func (c *PackConfig) GetPack(name string) (*Pack, error) {
	for i := range c.Packs {
		if c.Packs[i].Name == name {
			return &c.Packs[i], nil
		}
	}
	return nil, fmt.Errorf("pack '%s' not found", name)
}

// ListPacks returns all installed packs
func (c *PackConfig) ListPacks() []Pack {
	return c.Packs
}

// IsPackInstalled checks if a pack with the given name is installed
func (c *PackConfig) IsPackInstalled(name string) bool {
	_, err := c.GetPack(name)
	return err == nil
}

// GetPacksDir returns the packs directory path
func (c *PackConfig) GetPacksDir() string {
	return c.packsDir
}

// GetPackPath returns the full path to a specific pack
func (c *PackConfig) GetPackPath(name string) string {
	return filepath.Join(c.packsDir, name)
}

// VocabularyPaths lists the vocab.yaml of every installed pack, in name order
func (c *PackConfig) VocabularyPaths() []string {
	var paths []string
	for _, pack := range c.Packs {
		if path := pack.VocabularyPath(); path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// ValidatePackStructure checks that a pack directory has metadata and content
func ValidatePackStructure(packPath string) error {
	if _, err := os.Stat(filepath.Join(packPath, packMetadataFile)); os.IsNotExist(err) {
		return fmt.Errorf("%s not found in %s", packMetadataFile, packPath)
	}
	probe := Pack{Path: packPath}
	if probe.VocabularyPath() == "" && probe.TemplatesDir() == "" {
		return fmt.Errorf("pack must contain %s or a %s/ directory", packVocabFile, packTemplatesDir)
	}
	return nil
}

// LoadPackMetadata loads pack metadata from pack.yaml
func LoadPackMetadata(packPath string) (*Pack, error) {
	data, err := os.ReadFile(filepath.Join(packPath, packMetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", packMetadataFile, err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", packMetadataFile, err)
	}
	if pack.Name == "" {
		return nil, fmt.Errorf("%s must contain 'name' field", packMetadataFile)
	}
	if pack.Version == "" {
		return nil, fmt.Errorf("%s must contain 'version' field", packMetadataFile)
	}
	if pack.Title == "" {
		pack.Title = pack.Name
	}

	pack.Path = packPath
	return &pack, nil
}
