package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
	apperrors "github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/storage"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/vocab"
)

// RealizeOptions carries the live words for one call
type RealizeOptions struct {
	Candidates []models.CandidateWord `json:"candidates,omitempty"`
	Locked     []string               `json:"locked,omitempty"`
	Preselect  []string               `json:"preselect,omitempty"`
}

func (o RealizeOptions) request() engine.Request {
	return engine.Request{
		Candidates: o.Candidates,
		Locked:     o.Locked,
		Preselect:  o.Preselect,
	}
}

// GenerateOptions selects a pool and realizes a template drawn from it
type GenerateOptions struct {
	RealizeOptions
	PoolFilter
}

// Session is one session's engine plus its active profile handle. The
// handle is built once and replaced only when the active profile changes.
type Session struct {
	id     string
	svc    *Service
	engine *engine.Engine
	logger *zap.Logger

	mu      sync.Mutex
	profile *models.Profile
}

func newSession(svc *Service, id string, bank vocab.Bank) (*Session, error) {
	logger := svc.logger.Named("session").With(zap.String("session", id))
	sess := &Session{
		id:  id,
		svc: svc,
		engine: engine.New(engine.Options{
			Bank:    bank,
			Logger:  logger,
			Logging: svc.cfg.StrategyLogging,
		}),
		logger: logger,
	}

	def, err := sess.EnsureDefaultProfile()
	if err != nil {
		return nil, err
	}
	active := def
	activeID, err := svc.profiles.ActiveProfile(id)
	if err != nil {
		return nil, classify(err, "load session")
	}
	if activeID != def.ID {
		p, err := svc.profiles.GetProfile(id, activeID)
		switch {
		case err == nil:
			active = p
		case errors.Is(err, storage.ErrNotFound):
			logger.Warn("active profile missing, using default", zap.String("profile", activeID))
		default:
			return nil, classify(err, "load profile")
		}
	}
	sess.setActive(active, true)
	return sess, nil
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// setActive swaps the profile handle. The engine is reseeded when the seed
// changed or when force is set.
func (s *Session) setActive(p *models.Profile, force bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reseed := force || s.profile == nil || s.profile.Seed != p.Seed
	s.profile = p.Clone()
	if reseed {
		s.engine.Reseed(p.Seed)
	}
}

func (s *Session) handle() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Profile operations

// EnsureDefaultProfile returns the session's default profile, creating it
// when missing
func (s *Session) EnsureDefaultProfile() (*models.Profile, error) {
	p, err := storage.EnsureDefaultProfile(s.svc.profiles, s.id)
	if err != nil {
		return nil, classify(err, "create default profile")
	}
	return p, nil
}

// ListProfiles returns the session's profiles
func (s *Session) ListProfiles() ([]*models.Profile, error) {
	profiles, err := s.svc.profiles.ListProfiles(s.id)
	if err != nil {
		return nil, classify(err, "list profiles")
	}
	return profiles, nil
}

// GetProfile returns one of the session's profiles
func (s *Session) GetProfile(id string) (*models.Profile, error) {
	if err := storage.ValidateID(id); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	p, err := s.svc.profiles.GetProfile(s.id, id)
	if err != nil {
		return nil, classify(err, "load profile")
	}
	return p, nil
}

// SaveProfile validates and stores a profile. Saving the active profile
// refreshes the session's handle.
func (s *Session) SaveProfile(p *models.Profile) (*models.Profile, error) {
	if p == nil {
		return nil, apperrors.PreconditionError("profile is required", engine.ErrPrecondition)
	}
	p = p.Clone()
	p.SessionID = s.id
	if p.Name == "" {
		p.Name = p.ID
	}
	if err := storage.ValidateID(p.ID); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	if err := p.Validate(); err != nil {
		return nil, apperrors.ValidationError(err.Error())
	}
	for _, name := range p.Mutators {
		if _, ok := s.engine.Registry().Get(name); !ok {
			return nil, apperrors.ValidationError(fmt.Sprintf("unknown mutator %q", name))
		}
	}

	now := time.Now().UTC()
	if existing, err := s.svc.profiles.GetProfile(s.id, p.ID); err == nil {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	if err := s.svc.profiles.SaveProfile(p); err != nil {
		return nil, classify(err, "save profile")
	}
	if s.handle().ID == p.ID {
		s.setActive(p, false)
	}
	return p, nil
}

// DeleteProfile removes a profile. The default profile cannot be deleted;
// deleting the active profile activates the default.
func (s *Session) DeleteProfile(id string) error {
	if id == models.DefaultProfileID {
		return apperrors.ForbiddenError("the default profile cannot be deleted")
	}
	if err := storage.ValidateID(id); err != nil {
		return apperrors.ValidationError(err.Error())
	}
	if err := s.svc.profiles.DeleteProfile(s.id, id); err != nil {
		return classify(err, "delete profile")
	}
	if s.handle().ID == id {
		if _, err := s.ActivateProfile(models.DefaultProfileID); err != nil {
			return err
		}
	}
	return nil
}

// ActivateProfile makes id the active profile and reseeds the engine
func (s *Session) ActivateProfile(id string) (*models.Profile, error) {
	p, err := s.GetProfile(id)
	if err != nil {
		return nil, err
	}
	if err := s.svc.profiles.SetActiveProfile(s.id, id); err != nil {
		return nil, classify(err, "save session")
	}
	s.setActive(p, true)
	s.logger.Debug("profile activated", zap.String("profile", id))
	return p.Clone(), nil
}

// ActiveProfile returns a copy of the active profile
func (s *Session) ActiveProfile() *models.Profile {
	return s.handle().Clone()
}

// UpdateConfig patches the active profile, validates and saves it
func (s *Session) UpdateConfig(patch models.ProfilePatch) (*models.Profile, error) {
	return s.SaveProfile(patch.Apply(s.handle()))
}

// Realization

// Realize loads a template visible to this session and realizes it
func (s *Session) Realize(ctx context.Context, templateID string, opts RealizeOptions) (*engine.Realization, error) {
	doc, err := s.svc.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if doc.SessionID != "" && doc.SessionID != s.id {
		return nil, apperrors.NotFoundError("template " + templateID)
	}
	return s.RealizeDocument(ctx, doc, opts)
}

// RealizeDocument realizes a document that need not be stored
func (s *Session) RealizeDocument(ctx context.Context, doc *models.TemplateDocument, opts RealizeOptions) (*engine.Realization, error) {
	if doc == nil || ctx == nil {
		return nil, apperrors.PreconditionError("realize needs a document and a context", engine.ErrPrecondition)
	}
	r, err := s.engine.Realize(ctx, doc, s.handle(), opts.request())
	if err != nil {
		return nil, classify(err, "realize")
	}
	return r, nil
}

// Generate draws a template from the filtered pool and realizes it
func (s *Session) Generate(ctx context.Context, opts GenerateOptions) (*engine.Realization, error) {
	pool, err := s.svc.ResolvePool(s.id, opts.PoolFilter)
	if err != nil {
		return nil, err
	}
	r, err := s.engine.Generate(ctx, pool, s.handle(), opts.request())
	if err != nil {
		return nil, classify(err, "generate")
	}
	return r, nil
}

// GenerateBatch produces up to n distinct texts. Falling short is reported
// through the result's warning, not as an error.
func (s *Session) GenerateBatch(ctx context.Context, n int, opts GenerateOptions) (*engine.BatchResult, error) {
	if n <= 0 {
		return nil, apperrors.ValidationError(fmt.Sprintf("batch size must be positive, got %d", n))
	}
	pool, err := s.svc.ResolvePool(s.id, opts.PoolFilter)
	if err != nil {
		return nil, err
	}
	batch := s.svc.cfg.Batch
	res, err := s.engine.GenerateBatch(ctx, n, pool, s.handle(), opts.request(), engine.BatchOptions{
		RetryMultiple:          batch.RetryMultiple,
		MaxConsecutiveFailures: batch.MaxConsecutiveFailures,
	})
	if err != nil {
		return nil, classify(err, "generate batch")
	}
	if res.Warning != "" {
		s.logger.Info("batch fell short", zap.Int("requested", n), zap.Int("produced", len(res.Items)))
	}
	return res, nil
}

// Strategy log

// Logs returns the session's strategy log
func (s *Session) Logs() []models.LogEntry {
	return s.engine.Logs()
}

// ClearLogs empties the strategy log
func (s *Session) ClearLogs() {
	s.engine.ClearLogs()
}

// SetLogging turns strategy logging on or off
func (s *Session) SetLogging(enabled bool) {
	s.engine.SetLogging(enabled)
}

// LoggingEnabled reports whether strategy logging is on
func (s *Session) LoggingEnabled() bool {
	return s.engine.LoggingEnabled()
}

// Reseed restarts the engine from the active profile's seed
func (s *Session) Reseed() {
	s.engine.Reseed(s.handle().Seed)
}

// Seed returns the engine's current seed
func (s *Session) Seed() string {
	return s.engine.Seed()
}
