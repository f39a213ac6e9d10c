package storage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/document"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

// ErrNotFound is returned when a template or profile does not exist
var ErrNotFound = errors.New("not found")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateID rejects ids that cannot be used as file names
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid id %q: use letters, digits, '.', '_' or '-'", id)
	}
	return nil
}

// TemplateStore persists template documents. Templates with an empty
// session id are shared by every session.
type TemplateStore interface {
	ListTemplates(sessionID string) ([]*models.TemplateDocument, error)
	GetTemplate(id string) (*models.TemplateDocument, error)
	SaveTemplate(doc *models.TemplateDocument) error
	DeleteTemplate(id string) error
}

// ProfileStore persists session-owned profiles and the active profile choice
type ProfileStore interface {
	ListProfiles(sessionID string) ([]*models.Profile, error)
	GetProfile(sessionID, id string) (*models.Profile, error)
	SaveProfile(p *models.Profile) error
	DeleteProfile(sessionID, id string) error
	ActiveProfile(sessionID string) (string, error)
	SetActiveProfile(sessionID, id string) error
}

// Storage keeps templates as markdown files with YAML frontmatter and
// profiles as YAML files under the library root
type Storage struct {
	rootPath string
	cache    *MetadataCache
	logger   *zap.Logger
}

// NewStorage creates a new storage instance. An empty root means ~/.simplethink.
func NewStorage(rootPath string, logger *zap.Logger) (*Storage, error) {
	if rootPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		rootPath = filepath.Join(homeDir, ".simplethink")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("storage")

	cache := NewMetadataCache(rootPath)
	if err := cache.Load(); err != nil {
		// the cache only speeds up listings
		logger.Warn("failed to load metadata cache", zap.Error(err))
	}

	return &Storage{
		rootPath: rootPath,
		cache:    cache,
		logger:   logger,
	}, nil
}

// InitLibrary creates the directory structure for a template library
func (s *Storage) InitLibrary() error {
	dirs := []string{
		s.rootPath,
		filepath.Join(s.rootPath, "templates"),
		filepath.Join(s.rootPath, "sessions"),
		filepath.Join(s.rootPath, ".simplethink", "cache"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetBaseDir returns the root path of the storage
func (s *Storage) GetBaseDir() string {
	return s.rootPath
}

func templatePath(id string) string {
	return filepath.Join("templates", id+".md")
}

// LoadTemplate loads a template from a markdown file relative to the root
func (s *Storage) LoadTemplate(path string) (*models.TemplateDocument, error) {
	content, err := os.ReadFile(filepath.Join(s.rootPath, path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("template file %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}

	doc, err := parseTemplateFile(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	doc.FilePath = path
	return doc, nil
}

// LoadTemplateFile parses a template file outside the library, such as one
// shipped in a pack
func LoadTemplateFile(path string) (*models.TemplateDocument, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	doc, err := parseTemplateFile(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}
	return doc, nil
}

// GetTemplate loads the template with the given id
func (s *Storage) GetTemplate(id string) (*models.TemplateDocument, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	doc, err := s.LoadTemplate(templatePath(id))
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// SaveTemplate writes a template to templates/<id>.md
func (s *Storage) SaveTemplate(doc *models.TemplateDocument) error {
	if err := ValidateID(doc.ID); err != nil {
		return err
	}
	if doc.FilePath == "" {
		doc.FilePath = templatePath(doc.ID)
	}
	fullPath := filepath.Join(s.rootPath, doc.FilePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	content, err := serializeTemplate(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize template: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}
	return nil
}

// DeleteTemplate removes the template file with the given id
func (s *Storage) DeleteTemplate(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	fullPath := filepath.Join(s.rootPath, templatePath(id))
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("template %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete template file: %w", err)
	}
	return nil
}

// ListTemplates returns every template visible to the session, fully loaded.
// An empty session id lists all templates.
func (s *Storage) ListTemplates(sessionID string) ([]*models.TemplateDocument, error) {
	var docs []*models.TemplateDocument
	err := s.walkTemplates(func(relPath string, _ os.FileInfo) {
		doc, err := s.LoadTemplate(relPath)
		if err != nil {
			s.logger.Warn("failed to load template", zap.String("path", relPath), zap.Error(err))
			return
		}
		if visibleTo(doc.SessionID, sessionID) {
			docs = append(docs, doc)
		}
	})
	sortTemplates(docs)
	return docs, err
}

// ListTemplateSummaries lists templates without their blocks, served from
// the metadata cache when the file has not changed
func (s *Storage) ListTemplateSummaries(sessionID string) ([]*models.TemplateDocument, error) {
	var docs []*models.TemplateDocument
	existing := make(map[string]bool)
	modified := false

	err := s.walkTemplates(func(relPath string, info os.FileInfo) {
		existing[relPath] = true
		if cached, ok := s.cache.Get(relPath, info); ok {
			if visibleTo(cached.SessionID, sessionID) {
				docs = append(docs, cached.ToTemplate())
			}
			return
		}

		doc, err := s.LoadTemplate(relPath)
		if err != nil {
			s.logger.Warn("failed to load template", zap.String("path", relPath), zap.Error(err))
			return
		}
		s.cache.Set(relPath, filepath.Join(s.rootPath, relPath), info, doc)
		modified = true
		if visibleTo(doc.SessionID, sessionID) {
			summary := doc.Clone()
			summary.Blocks = nil
			docs = append(docs, summary)
		}
	})

	if s.cache.Cleanup(existing) {
		modified = true
	}
	if modified {
		if err := s.cache.Save(); err != nil {
			s.logger.Warn("failed to save metadata cache", zap.Error(err))
		}
	}
	sortTemplates(docs)
	return docs, err
}

func (s *Storage) walkTemplates(fn func(relPath string, info os.FileInfo)) error {
	templatesDir := filepath.Join(s.rootPath, "templates")
	if _, err := os.Stat(templatesDir); os.IsNotExist(err) {
		return nil
	}
	return filepath.Walk(templatesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".md") {
			relPath, _ := filepath.Rel(s.rootPath, path)
			fn(relPath, info)
		}
		return nil
	})
}

func visibleTo(owner, sessionID string) bool {
	return sessionID == "" || owner == "" || owner == sessionID
}

func sortTemplates(docs []*models.TemplateDocument) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
}

// Helper functions

// parseTemplateFile reads YAML frontmatter and a markup body. Blocks in the
// frontmatter win; a hand-written file without blocks is hydrated from the body.
func parseTemplateFile(content []byte) (*models.TemplateDocument, error) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return nil, fmt.Errorf("missing frontmatter delimiter")
	}

	var frontmatterLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		frontmatterLines = append(frontmatterLines, line)
	}
	if !closed {
		return nil, fmt.Errorf("unterminated frontmatter")
	}

	var doc models.TemplateDocument
	if err := yaml.Unmarshal([]byte(strings.Join(frontmatterLines, "\n")), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(strings.Join(bodyLines, "\n"))

	if len(doc.Blocks) == 0 && body != "" {
		parsed, err := document.Parse(body)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template body: %w", err)
		}
		doc.Blocks = parsed.Blocks
	}
	document.AssignIDs(&doc)
	return &doc, nil
}

// serializeTemplate writes the full document as frontmatter and its
// canonical markup as the body, for people reading the file
func serializeTemplate(doc *models.TemplateDocument) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("---\n")
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")

	if body := document.Render(doc); body != "" {
		buf.WriteString("\n")
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes(), nil
}
