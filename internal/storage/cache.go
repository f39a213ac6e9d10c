package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// TemplateMetadata is the cached listing view of a template file
type TemplateMetadata struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	Weight      float64   `json:"weight,omitempty"`
	Slots       int       `json:"slots"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	FilePath    string    `json:"file_path"`
	ModTime     time.Time `json:"mod_time"`
	FileHash    string    `json:"file_hash"`
}

// MetadataCache keeps template metadata keyed by relative file path
type MetadataCache struct {
	cacheDir  string
	cacheFile string
	metadata  map[string]*TemplateMetadata
	mu        sync.RWMutex
}

// NewMetadataCache creates a new metadata cache
func NewMetadataCache(baseDir string) *MetadataCache {
	cacheDir := filepath.Join(baseDir, ".simplethink", "cache")
	return &MetadataCache{
		cacheDir:  cacheDir,
		cacheFile: filepath.Join(cacheDir, "templates.json"),
		metadata:  make(map[string]*TemplateMetadata),
	}
}

// Load reads the cache from disk; a corrupt cache starts empty
func (c *MetadataCache) Load() error {
	data, err := os.ReadFile(c.cacheFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache file: %w", err)
	}

	loaded := make(map[string]*TemplateMetadata)
	if err := json.Unmarshal(data, &loaded); err != nil {
		loaded = make(map[string]*TemplateMetadata)
	}
	c.mu.Lock()
	c.metadata = loaded
	c.mu.Unlock()
	return nil
}

// Save writes the cache to disk
func (c *MetadataCache) Save() error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	c.mu.RLock()
	data, err := json.MarshalIndent(c.metadata, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.WriteFile(c.cacheFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Get returns cached metadata if the file is unchanged since it was cached
func (c *MetadataCache) Get(filePath string, fileInfo os.FileInfo) (*TemplateMetadata, bool) {
	c.mu.RLock()
	cached, exists := c.metadata[filePath]
	c.mu.RUnlock()
	if !exists || !fileInfo.ModTime().Equal(cached.ModTime) {
		return nil, false
	}
	return cached, true
}

// Set stores metadata for a freshly loaded template
func (c *MetadataCache) Set(relPath string, fullPath string, fileInfo os.FileInfo, doc *models.TemplateDocument) {
	fileHash := ""
	if data, err := os.ReadFile(fullPath); err == nil {
		hash := sha256.Sum256(data)
		fileHash = hex.EncodeToString(hash[:])
	}

	c.mu.Lock()
	c.metadata[relPath] = &TemplateMetadata{
		ID:          doc.ID,
		SessionID:   doc.SessionID,
		Name:        doc.Name,
		Description: doc.Description,
		Tags:        append([]string(nil), doc.Tags...),
		Weight:      doc.Weight,
		Slots:       doc.SlotCount(),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		FilePath:    relPath,
		ModTime:     fileInfo.ModTime(),
		FileHash:    fileHash,
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries
func (c *MetadataCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.metadata)
}

// ToTemplate converts cached metadata back to a document without blocks
func (m *TemplateMetadata) ToTemplate() *models.TemplateDocument {
	return &models.TemplateDocument{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Name:        m.Name,
		Description: m.Description,
		Tags:        append([]string(nil), m.Tags...),
		Weight:      m.Weight,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		FilePath:    m.FilePath,
	}
}

// Cleanup drops entries for files that no longer exist and reports whether
// anything was removed
func (c *MetadataCache) Cleanup(existingFiles map[string]bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := false
	for filePath := range c.metadata {
		if !existingFiles[filePath] {
			delete(c.metadata, filePath)
			removed = true
		}
	}
	return removed
}
