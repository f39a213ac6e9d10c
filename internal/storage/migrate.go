package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
)

// Store is a backend holding both templates and profiles
type Store interface {
	TemplateStore
	ProfileStore
}

// MigrationResult counts what CopyLibrary wrote
type MigrationResult struct {
	Templates int
	Profiles  int
	Sessions  int
	Skipped   []string
}

// ListSessions returns the ids of sessions with a directory under the
// library, sorted
func (s *Storage) ListSessions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.rootPath, "sessions"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() && ValidateID(entry.Name()) == nil {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CopyLibrary copies every template, profile and active profile choice
// from a file library into dst. Existing rows in dst are overwritten.
// Records dst rejects are reported in Skipped, not returned as errors.
func CopyLibrary(src *Storage, dst Store, logger *zap.Logger) (*MigrationResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	result := &MigrationResult{}

	docs, err := src.ListTemplates("")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	for _, doc := range docs {
		if err := dst.SaveTemplate(doc); err != nil {
			logger.Warn("template not migrated", zap.String("id", doc.ID), zap.Error(err))
			result.Skipped = append(result.Skipped, "template "+doc.ID)
			continue
		}
		result.Templates++
	}

	sessions, err := src.ListSessions()
	if err != nil {
		return nil, err
	}
	for _, sid := range sessions {
		profiles, err := src.ListProfiles(sid)
		if err != nil {
			return nil, err
		}
		for _, p := range profiles {
			if err := dst.SaveProfile(p); err != nil {
				logger.Warn("profile not migrated", zap.String("session", sid), zap.String("id", p.ID), zap.Error(err))
				result.Skipped = append(result.Skipped, "profile "+sid+"/"+p.ID)
				continue
			}
			result.Profiles++
		}
		active, err := src.ActiveProfile(sid)
		if err != nil {
			return nil, err
		}
		if err := dst.SetActiveProfile(sid, active); err != nil {
			return nil, fmt.Errorf("failed to set active profile for %s: %w", sid, err)
		}
		result.Sessions++
	}
	return result, nil
}
