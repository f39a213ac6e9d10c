// Package service is the business layer shared by the CLI, the HTTP API
// and the TUI. It owns the stores, the vocabulary and one Session per
// session id; a Session owns the engine whose randomness stream and
// strategy log belong to that session alone.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/document"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
	apperrors "github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/importer"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/storage"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/tagger"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

// Service provides template, profile and generation operations
type Service struct {
	cfg    *config.Config
	logger *zap.Logger

	files     *storage.Storage
	templates storage.TemplateStore
	profiles  storage.ProfileStore
	closer    io.Closer
	pools     *storage.PoolStore

	packs     *config.PackConfig
	installer *config.PackInstaller

	mu        sync.Mutex
	bank      vocab.Bank
	analyzer  tagger.Analyzer
	corpus    *importer.CorpusImporter
	gitImport *importer.GitRepoImporter
	gitRunner importer.GitRunner
	sessions  map[string]*Session
}

// NewService opens the configured stores and loads the vocabulary
func NewService(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := storage.NewStorage(cfg.LibraryDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	svc := &Service{
		cfg:       cfg,
		logger:    logger.Named("service"),
		files:     files,
		templates: files,
		profiles:  files,
		pools:     storage.NewPoolStore(files.GetBaseDir()),
		sessions:  make(map[string]*Session),
	}

	if cfg.Store == config.StoreSQLite {
		db, err := storage.OpenSQLStore(cfg.DatabaseFile())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		svc.templates = db
		svc.profiles = db
		svc.closer = db
	}

	packs, err := config.NewPackConfig(cfg.ConfigDir())
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.packs = packs
	svc.installer = config.NewPackInstaller(packs)

	if err := svc.reloadVocabulary(); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

// reloadVocabulary rebuilds the fallback bank from the embedded default,
// the configured bank file and every installed pack. Sessions are dropped
// so the next call builds engines over the new bank.
func (s *Service) reloadVocabulary() error {
	bank := vocab.Default()
	paths := append([]string(nil), s.packs.VocabularyPaths()...)
	if s.cfg.VocabularyPath != "" {
		paths = append([]string{s.cfg.VocabularyPath}, paths...)
	}
	for _, path := range paths {
		extra, err := vocab.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load vocabulary %s: %w", path, err)
		}
		bank = bank.Merge(extra)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bank = bank
	s.analyzer = tagger.NewLexiconTagger(bank)
	s.corpus = importer.NewCorpusImporter(s.analyzer)
	s.gitImport = importer.NewGitRepoImporter(s.corpus)
	if s.gitRunner != nil {
		s.gitImport.SetGitRunner(s.gitRunner)
	}
	s.sessions = make(map[string]*Session)
	s.logger.Debug("vocabulary loaded", zap.Int("categories", len(bank)), zap.Int("sources", len(paths)))
	return nil
}

// Close releases the database when the SQLite store is in use
func (s *Service) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// InitLibrary initializes a new template library
func (s *Service) InitLibrary() error {
	if err := s.files.InitLibrary(); err != nil {
		return apperrors.StorageError("init library", err)
	}
	return nil
}

// Config returns the loaded configuration
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Bank returns the merged fallback vocabulary
func (s *Service) Bank() vocab.Bank {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bank
}

// Analyzer returns the part-of-speech analyzer used for hydration
func (s *Service) Analyzer() tagger.Analyzer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer
}

// Session returns the handle for a session, creating it on first use
func (s *Service) Session(id string) (*Session, error) {
	if id == "" {
		id = s.cfg.Session
	}
	if err := storage.ValidateID(id); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	sess, err := newSession(s, id, s.bank)
	if err != nil {
		return nil, err
	}
	s.sessions[id] = sess
	return sess, nil
}

// Template operations

// ListTemplates returns the templates visible to a session; an empty
// session id lists every template
func (s *Service) ListTemplates(sessionID string) ([]*models.TemplateDocument, error) {
	docs, err := s.templates.ListTemplates(sessionID)
	if err != nil {
		return nil, classify(err, "list templates")
	}
	return docs, nil
}

// GetTemplate returns a template by id
func (s *Service) GetTemplate(id string) (*models.TemplateDocument, error) {
	if err := storage.ValidateID(id); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	doc, err := s.templates.GetTemplate(id)
	if err != nil {
		return nil, classify(err, "load template")
	}
	return doc, nil
}

// SaveTemplate validates and stores a template. A missing id gets a fresh
// uuid; an existing template keeps its creation time.
func (s *Service) SaveTemplate(doc *models.TemplateDocument) error {
	if doc == nil {
		return apperrors.PreconditionError("template document is required", engine.ErrPrecondition)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if err := storage.ValidateID(doc.ID); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	if doc.Weight < 0 {
		return apperrors.ValidationError(fmt.Sprintf("weight must not be negative, got %v", doc.Weight))
	}
	if doc.Name == "" {
		doc.Name = doc.ID
	}

	now := time.Now().UTC()
	if existing, err := s.templates.GetTemplate(doc.ID); err == nil {
		doc.CreatedAt = existing.CreatedAt
	} else if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	document.AssignIDs(doc)

	if err := s.templates.SaveTemplate(doc); err != nil {
		return classify(err, "save template")
	}
	return nil
}

// DeleteTemplate removes a template
func (s *Service) DeleteTemplate(id string) error {
	if err := storage.ValidateID(id); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	if err := s.templates.DeleteTemplate(id); err != nil {
		return classify(err, "delete template")
	}
	return nil
}

// SearchTemplates fuzzy-matches the query against name, id, description
// and tags. An empty query returns every visible template.
func (s *Service) SearchTemplates(sessionID, query string) ([]*models.TemplateDocument, error) {
	docs, err := s.ListTemplates(sessionID)
	if err != nil {
		return nil, err
	}
	return filterByText(docs, query), nil
}

func filterByText(docs []*models.TemplateDocument, query string) []*models.TemplateDocument {
	if strings.TrimSpace(query) == "" {
		return docs
	}

	var searchStrings []string
	for _, d := range docs {
		searchStrings = append(searchStrings, fmt.Sprintf("%s %s %s %s",
			d.Name,
			d.ID,
			d.Description,
			strings.Join(d.Tags, " ")))
	}

	var results []*models.TemplateDocument
	for _, match := range fuzzy.Find(query, searchStrings) {
		results = append(results, docs[match.Index])
	}
	return results
}

// FilterTemplates returns the visible templates whose tags satisfy expr
func (s *Service) FilterTemplates(sessionID string, expr *models.BooleanExpression) ([]*models.TemplateDocument, error) {
	docs, err := s.ListTemplates(sessionID)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return docs, nil
	}
	var out []*models.TemplateDocument
	for _, d := range docs {
		if expr.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// TemplateInput describes a template created from markup or plain text
type TemplateInput struct {
	ID          string   `json:"id,omitempty"`
	SessionID   string   `json:"sessionId,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Weight      float64  `json:"weight,omitempty"`
	Body        string   `json:"body"`
}

func (in TemplateInput) apply(doc *models.TemplateDocument) {
	doc.ID = in.ID
	doc.SessionID = in.SessionID
	doc.Name = in.Name
	doc.Description = in.Description
	doc.Tags = in.Tags
	doc.Weight = in.Weight
}

// CreateTemplateFromMarkup parses bracket markup and saves the template
func (s *Service) CreateTemplateFromMarkup(in TemplateInput) (*models.TemplateDocument, error) {
	doc, err := document.Parse(in.Body)
	if err != nil {
		var pe *document.ParseError
		if errors.As(err, &pe) {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidFormat, "invalid template markup").
				WithContext("line", pe.Line)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidFormat, "invalid template markup")
	}
	in.apply(doc)
	if err := s.SaveTemplate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateTemplateFromText hydrates plain text through the analyzer and
// saves the result
func (s *Service) CreateTemplateFromText(ctx context.Context, in TemplateInput) (*models.TemplateDocument, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, apperrors.ValidationError("text is required")
	}
	doc, err := document.FromText(ctx, s.Analyzer(), in.Body)
	if err != nil {
		return nil, classify(err, "analyze text")
	}
	in.apply(doc)
	if doc.Name == "" {
		doc.Name = firstWords(in.Body, 6)
	}
	if err := s.SaveTemplate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = append(words[:n], "…")
	}
	return strings.Join(words, " ")
}

// Saved pools

// ListPools returns all saved pools
func (s *Service) ListPools() ([]models.SavedPool, error) {
	pools, err := s.pools.List()
	if err != nil {
		return nil, classify(err, "list pools")
	}
	return pools, nil
}

// GetPool returns a saved pool by name
func (s *Service) GetPool(name string) (*models.SavedPool, error) {
	pool, err := s.pools.Get(name)
	if err != nil {
		return nil, classify(err, "load pool")
	}
	return pool, nil
}

// SavePool creates or replaces a saved pool
func (s *Service) SavePool(pool models.SavedPool) error {
	if strings.TrimSpace(pool.Name) == "" {
		return apperrors.ValidationError("pool name is required")
	}
	if err := s.pools.Save(pool); err != nil {
		return classify(err, "save pool")
	}
	return nil
}

// DeletePool removes a saved pool
func (s *Service) DeletePool(name string) error {
	if err := s.pools.Delete(name); err != nil {
		return classify(err, "delete pool")
	}
	return nil
}

// PoolFilter narrows the template pool a generation draws from. Every set
// field must match.
type PoolFilter struct {
	// Expression is a boolean tag expression such as "nature AND NOT long"
	Expression string `json:"expression,omitempty"`
	// Pool names a saved pool
	Pool string `json:"pool,omitempty"`
	// Query fuzzy-matches template text; it overrides a saved pool's query
	Query       string             `json:"query,omitempty"`
	TemplateIDs []string           `json:"templateIds,omitempty"`
	Weights     map[string]float64 `json:"weights,omitempty"`
}

// IsZero reports whether the filter keeps every visible template
func (f PoolFilter) IsZero() bool {
	return f.Expression == "" && f.Pool == "" && f.Query == "" && len(f.TemplateIDs) == 0
}

// ResolvePool returns the templates a session's generation draws from.
// Weight overrides apply to copies; stored templates are untouched.
func (s *Service) ResolvePool(sessionID string, filter PoolFilter) ([]*models.TemplateDocument, error) {
	var exprs []*models.BooleanExpression
	ids := filter.TemplateIDs
	query := filter.Query

	if filter.Pool != "" {
		saved, err := s.GetPool(filter.Pool)
		if err != nil {
			return nil, err
		}
		if saved.Expression != nil {
			exprs = append(exprs, saved.Expression)
		}
		if len(ids) == 0 {
			ids = saved.TemplateIDs
		}
		if query == "" {
			query = saved.TextQuery
		}
	}
	if filter.Expression != "" {
		expr, err := models.ParseBooleanExpression(filter.Expression)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidExpression, "invalid tag expression")
		}
		exprs = append(exprs, expr)
	}

	docs, err := s.ListTemplates(sessionID)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var pool []*models.TemplateDocument
	for _, d := range docs {
		if len(wanted) > 0 && !wanted[d.ID] {
			continue
		}
		if !matchesAll(d, exprs) {
			continue
		}
		pool = append(pool, d)
	}
	pool = filterByText(pool, query)

	if len(filter.Weights) > 0 {
		for i, d := range pool {
			if w, ok := filter.Weights[d.ID]; ok {
				c := d.Clone()
				c.Weight = w
				pool[i] = c
			}
		}
	}

	if len(pool) == 0 {
		return nil, apperrors.ExhaustedError("no templates match the requested pool", engine.ErrNoCandidates)
	}
	return pool, nil
}

func matchesAll(doc *models.TemplateDocument, exprs []*models.BooleanExpression) bool {
	for _, e := range exprs {
		if !e.Matches(doc) {
			return false
		}
	}
	return true
}

// Import operations

// ImportCorpus turns a text corpus into templates and saves them unless
// the options ask for a dry run
func (s *Service) ImportCorpus(ctx context.Context, options importer.ImportOptions) (*importer.ImportResult, error) {
	s.mu.Lock()
	corpus := s.corpus
	s.mu.Unlock()

	result, err := corpus.Import(ctx, options)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "failed to import corpus")
	}
	if !options.DryRun {
		s.saveImported(result, options.Conflict)
	}
	return result, nil
}

// ImportFromGit clones a repository and imports its corpus
func (s *Service) ImportFromGit(ctx context.Context, options importer.GitImportOptions) (*importer.GitImportResult, error) {
	s.mu.Lock()
	gitImport := s.gitImport
	s.mu.Unlock()

	result, err := gitImport.ImportFromGitRepo(ctx, options)
	if err != nil {
		return nil, apperrors.GitError("import repository", err)
	}
	if !options.DryRun {
		s.saveImported(result.ImportResult, options.Conflict)
	}
	return result, nil
}

// SetGitRunner replaces the git binary used by imports and pack installs
func (s *Service) SetGitRunner(run importer.GitRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gitRunner = run
	s.gitImport.SetGitRunner(run)
	s.installer.SetGitRunner(run)
}

func (s *Service) saveImported(result *importer.ImportResult, policy importer.ConflictPolicy) {
	for _, doc := range result.Templates {
		outcome, err := s.saveWithConflictResolution(doc, policy)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to save template %s: %w", doc.ID, err))
			continue
		}
		switch outcome {
		case outcomeSkipped:
			result.Skipped++
		case outcomeRenamed:
			result.Renamed++
			result.Saved++
		default:
			result.Saved++
		}
	}
	s.logger.Info("import saved",
		zap.Int("saved", result.Saved),
		zap.Int("skipped", result.Skipped),
		zap.Int("renamed", result.Renamed),
		zap.Int("errors", len(result.Errors)))
}

type saveOutcome int

const (
	outcomeSaved saveOutcome = iota
	outcomeSkipped
	outcomeRenamed
)

// saveWithConflictResolution applies the import conflict policy when an
// imported id already exists
func (s *Service) saveWithConflictResolution(doc *models.TemplateDocument, policy importer.ConflictPolicy) (saveOutcome, error) {
	_, err := s.templates.GetTemplate(doc.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return outcomeSaved, s.SaveTemplate(doc)
	}
	if err != nil {
		return outcomeSaved, classify(err, "load template")
	}

	switch policy {
	case importer.ConflictOverwrite:
		return outcomeSaved, s.SaveTemplate(doc)
	case importer.ConflictRename:
		base := doc.ID
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s-%d", base, n)
			if _, err := s.templates.GetTemplate(candidate); errors.Is(err, storage.ErrNotFound) {
				doc.ID = candidate
				return outcomeRenamed, s.SaveTemplate(doc)
			} else if err != nil {
				return outcomeSaved, classify(err, "load template")
			}
		}
	default:
		return outcomeSkipped, nil
	}
}

// Cross-session generation

// GenerateAcrossSessions runs one generation in each session in parallel.
// Sessions share nothing mutable, so one session's failure cancels the rest
// only through the shared context.
func (s *Service) GenerateAcrossSessions(ctx context.Context, sessionIDs []string, opts GenerateOptions) (map[string]*engine.Realization, error) {
	results := make([]*engine.Realization, len(sessionIDs))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range sessionIDs {
		g.Go(func() error {
			sess, err := s.Session(id)
			if err != nil {
				return err
			}
			r, err := sess.Generate(ctx, opts)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*engine.Realization, len(sessionIDs))
	for i, id := range sessionIDs {
		out[id] = results[i]
	}
	return out, nil
}

// SessionIDs lists the sessions opened so far, sorted
func (s *Service) SessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// classify maps package sentinels onto application errors
func classify(err error, operation string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, strings.TrimSuffix(err.Error(), ": "+storage.ErrNotFound.Error())+" not found")
	case errors.Is(err, engine.ErrPrecondition):
		return apperrors.PreconditionError(operation, err)
	case errors.Is(err, engine.ErrNoCandidates):
		return apperrors.ExhaustedError(operation, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.Wrap(err, apperrors.ErrCodeServiceTimeout, operation+" interrupted")
	default:
		return apperrors.StorageError(operation, err)
	}
}
