package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

type sessionState struct {
	ActiveProfile string `yaml:"active_profile"`
}

func (s *Storage) sessionDir(sessionID string) string {
	return filepath.Join(s.rootPath, "sessions", sessionID)
}

func (s *Storage) profilePath(sessionID, id string) string {
	return filepath.Join(s.sessionDir(sessionID), "profiles", id+".yaml")
}

// ListProfiles returns the session's profiles sorted by id
func (s *Storage) ListProfiles(sessionID string) ([]*models.Profile, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	dir := filepath.Join(s.sessionDir(sessionID), "profiles")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}

	var profiles []*models.Profile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		p, err := s.GetProfile(sessionID, id)
		if err != nil {
			s.logger.Sugar().Warnf("skipping profile %s/%s: %v", sessionID, id, err)
			continue
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	return profiles, nil
}

// GetProfile loads one profile
func (s *Storage) GetProfile(sessionID, id string) (*models.Profile, error) {
	if err := ValidateID(sessionID); err != nil {
		return nil, err
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.profilePath(sessionID, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("profile %s/%s: %w", sessionID, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p models.Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s/%s: %w", sessionID, id, err)
	}
	p.ID = id
	p.SessionID = sessionID
	return &p, nil
}

// SaveProfile writes the profile as YAML
func (s *Storage) SaveProfile(p *models.Profile) error {
	if err := ValidateID(p.SessionID); err != nil {
		return err
	}
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	path := s.profilePath(p.SessionID, p.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a profile file
func (s *Storage) DeleteProfile(sessionID, id string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.Remove(s.profilePath(sessionID, id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("profile %s/%s: %w", sessionID, id, ErrNotFound)
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// ActiveProfile returns the session's active profile id, the default when unset
func (s *Storage) ActiveProfile(sessionID string) (string, error) {
	if err := ValidateID(sessionID); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(s.sessionDir(sessionID), "session.yaml"))
	if os.IsNotExist(err) {
		return models.DefaultProfileID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session state: %w", err)
	}
	var state sessionState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return "", fmt.Errorf("failed to parse session state: %w", err)
	}
	if state.ActiveProfile == "" {
		return models.DefaultProfileID, nil
	}
	return state.ActiveProfile, nil
}

// SetActiveProfile records the session's active profile id
func (s *Storage) SetActiveProfile(sessionID, id string) error {
	if err := ValidateID(sessionID); err != nil {
		return err
	}
	dir := s.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	data, err := yaml.Marshal(sessionState{ActiveProfile: id})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "session.yaml"), data, 0644)
}

// EnsureDefaultProfile returns the session's default profile, creating and
// saving it with the documented defaults when it does not exist yet
func EnsureDefaultProfile(store ProfileStore, sessionID string) (*models.Profile, error) {
	p, err := store.GetProfile(sessionID, models.DefaultProfileID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p = models.DefaultProfile(sessionID)
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := store.SaveProfile(p); err != nil {
		return nil, fmt.Errorf("failed to create default profile: %w", err)
	}
	return p, nil
}
