package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	apperrors "github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/importer"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/storage"
)

// PackInstallResult reports what a pack installation added
type PackInstallResult struct {
	Pack      *config.Pack `json:"pack"`
	Templates []string     `json:"templates,omitempty"`
	Skipped   []string     `json:"skipped,omitempty"`
}

// packTag marks templates that came from a pack
func packTag(name string) string {
	return "pack-" + name
}

// ListPacks returns the installed packs
func (s *Service) ListPacks() []config.Pack {
	return s.packs.ListPacks()
}

// InstallPack installs a pack from a local directory or a git URL, merges
// its vocabulary into the fallback bank and imports its templates
func (s *Service) InstallPack(ctx context.Context, source string, options config.PackInstallOptions) (*PackInstallResult, error) {
	var (
		pack *config.Pack
		err  error
	)
	if info, statErr := os.Stat(source); statErr == nil && info.IsDir() {
		pack, err = s.installer.InstallFromDirectory(source, options)
	} else {
		pack, err = s.installer.InstallFromGit(ctx, source, options)
	}
	if err != nil {
		if strings.Contains(err.Error(), "already installed") {
			return nil, apperrors.AlreadyExistsError("pack").WithDetails(err.Error())
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "failed to install pack")
	}

	result := &PackInstallResult{Pack: pack}
	if dir := pack.TemplatesDir(); dir != "" {
		if err := s.importPackTemplates(pack, dir, options.Force, result); err != nil {
			return result, err
		}
	}
	if err := s.reloadVocabulary(); err != nil {
		return result, apperrors.Wrap(err, apperrors.ErrCodeFileCorrupted, "pack vocabulary is invalid")
	}
	s.logger.Info("pack installed",
		zap.String("pack", pack.Name),
		zap.Int("templates", len(result.Templates)),
		zap.Bool("vocabulary", pack.VocabularyPath() != ""))
	return result, nil
}

func (s *Service) importPackTemplates(pack *config.Pack, dir string, overwrite bool, result *PackInstallResult) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return apperrors.StorageError("read pack templates", err)
	}
	policy := importer.ConflictSkip
	if overwrite {
		policy = importer.ConflictOverwrite
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		doc, err := storage.LoadTemplateFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeFileCorrupted, "invalid pack template "+entry.Name())
		}
		if doc.ID == "" {
			doc.ID = pack.Name + "-" + strings.TrimSuffix(entry.Name(), ".md")
		}
		doc.Tags = appendMissing(doc.Tags, packTag(pack.Name))
		outcome, err := s.saveWithConflictResolution(doc, policy)
		if err != nil {
			return err
		}
		if outcome == outcomeSkipped {
			result.Skipped = append(result.Skipped, doc.ID)
			continue
		}
		result.Templates = append(result.Templates, doc.ID)
	}
	sort.Strings(result.Templates)
	return nil
}

// UninstallPack removes a pack, its templates and its vocabulary
func (s *Service) UninstallPack(name string) error {
	if !s.packs.IsPackInstalled(name) {
		return apperrors.NotFoundError(fmt.Sprintf("pack '%s'", name))
	}
	docs, err := s.ListTemplates("")
	if err != nil {
		return err
	}
	expr := models.NewTagExpression(packTag(name))
	for _, doc := range docs {
		if expr.Matches(doc) {
			if err := s.DeleteTemplate(doc.ID); err != nil {
				return err
			}
		}
	}
	if err := s.installer.UninstallPack(name); err != nil {
		return apperrors.StorageError("uninstall pack", err)
	}
	return s.reloadVocabulary()
}

func appendMissing(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}
