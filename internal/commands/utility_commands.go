package commands

import (
	"context"
	"fmt"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/importer"
)

// ListPacksCommand lists installed vocabulary packs
type ListPacksCommand struct {
	serviceCommand
}

func (c *ListPacksCommand) GetName() string {
	return "list-packs"
}

func (c *ListPacksCommand) GetDescription() string {
	return "List installed vocabulary packs"
}

func (c *ListPacksCommand) Execute(ctx context.Context) (*CommandResult, error) {
	packs := c.service.ListPacks()
	if packs == nil {
		packs = []config.Pack{}
	}
	return &CommandResult{
		Success: true,
		Data:    packs,
		Message: fmt.Sprintf("Found %d packs", len(packs)),
	}, nil
}

// InstallPackCommand installs a pack from a directory or a git URL
type InstallPackCommand struct {
	serviceCommand
	Source  string
	Options config.PackInstallOptions
}

func (c *InstallPackCommand) SetParameters(params map[string]interface{}) error {
	c.Source = stringParam(params, "source")
	c.Options = config.PackInstallOptions{
		Name:   stringParam(params, "name"),
		Branch: stringParam(params, "branch"),
		Force:  boolParam(params, "force"),
	}
	return nil
}

func (c *InstallPackCommand) GetName() string {
	return "install-pack"
}

func (c *InstallPackCommand) GetDescription() string {
	return "Install a vocabulary pack from a directory or git URL"
}

func (c *InstallPackCommand) Execute(ctx context.Context) (*CommandResult, error) {
	res, err := c.service.InstallPack(ctx, c.Source, c.Options)
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    res,
		Message: fmt.Sprintf("Installed pack %s (%d templates)", res.Pack.Name, len(res.Templates)),
	}, nil
}

// UninstallPackCommand removes a pack and the templates it added
type UninstallPackCommand struct {
	serviceCommand
	Name string
}

func (c *UninstallPackCommand) SetParameters(params map[string]interface{}) error {
	c.Name = stringParam(params, "name")
	return nil
}

func (c *UninstallPackCommand) GetName() string {
	return "uninstall-pack"
}

func (c *UninstallPackCommand) GetDescription() string {
	return "Uninstall a vocabulary pack"
}

func (c *UninstallPackCommand) Execute(ctx context.Context) (*CommandResult, error) {
	if err := c.service.UninstallPack(c.Name); err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    map[string]string{"name": c.Name},
		Message: fmt.Sprintf("Uninstalled pack %s", c.Name),
	}, nil
}

// ImportSummary is the import payload; per-file and per-template errors
// are flattened to strings
type ImportSummary struct {
	Templates []string `json:"templates"`
	Saved     int      `json:"saved"`
	Skipped   int      `json:"skipped"`
	Renamed   int      `json:"renamed"`
	DryRun    bool     `json:"dryRun,omitempty"`
	Errors    []string `json:"errors,omitempty"`
	RepoURL   string   `json:"repoUrl,omitempty"`
	OwnerTag  string   `json:"ownerTag,omitempty"`
}

func summarize(res *importer.ImportResult, dryRun bool) ImportSummary {
	s := ImportSummary{
		Templates: make([]string, 0, len(res.Templates)),
		Saved:     res.Saved,
		Skipped:   res.Skipped,
		Renamed:   res.Renamed,
		DryRun:    dryRun,
	}
	for _, doc := range res.Templates {
		s.Templates = append(s.Templates, doc.ID)
	}
	for _, err := range res.Errors {
		s.Errors = append(s.Errors, err.Error())
	}
	return s
}

func (s ImportSummary) message() string {
	if s.DryRun {
		return fmt.Sprintf("Would import %d templates", len(s.Templates))
	}
	msg := fmt.Sprintf("Imported %d templates (%d skipped, %d renamed)", s.Saved, s.Skipped, s.Renamed)
	if len(s.Errors) > 0 {
		msg += fmt.Sprintf(", %d errors", len(s.Errors))
	}
	return msg
}

func importOptions(params map[string]interface{}) (importer.ImportOptions, error) {
	policy, err := importer.ParseConflictPolicy(stringParam(params, "conflict"))
	if err != nil {
		return importer.ImportOptions{}, err
	}
	return importer.ImportOptions{
		Path:      stringParam(params, "path"),
		SessionID: stringParam(params, "session"),
		DryRun:    boolParam(params, "dry_run"),
		Tags:      stringsParam(params, "tags"),
		Conflict:  policy,
		Randomize: boolParam(params, "randomize"),
	}, nil
}

// ImportCommand hydrates a local text corpus into templates
type ImportCommand struct {
	serviceCommand
	Options importer.ImportOptions
}

func (c *ImportCommand) SetParameters(params map[string]interface{}) error {
	var err error
	c.Options, err = importOptions(params)
	return err
}

func (c *ImportCommand) GetName() string {
	return "import"
}

func (c *ImportCommand) GetDescription() string {
	return "Import a text corpus file or directory as templates"
}

func (c *ImportCommand) Execute(ctx context.Context) (*CommandResult, error) {
	res, err := c.service.ImportCorpus(ctx, c.Options)
	if err != nil {
		return nil, err
	}
	summary := summarize(res, c.Options.DryRun)
	return &CommandResult{Success: true, Data: summary, Message: summary.message()}, nil
}

// ImportGitCommand clones a repository and imports its corpus
type ImportGitCommand struct {
	serviceCommand
	Options importer.GitImportOptions
}

func (c *ImportGitCommand) SetParameters(params map[string]interface{}) error {
	inner, err := importOptions(params)
	if err != nil {
		return err
	}
	c.Options = importer.GitImportOptions{
		ImportOptions: inner,
		RepoURL:       stringParam(params, "url"),
		OwnerTag:      stringParam(params, "owner"),
		Branch:        stringParam(params, "branch"),
		Depth:         intParam(params, "depth"),
	}
	return nil
}

func (c *ImportGitCommand) GetName() string {
	return "import-git"
}

func (c *ImportGitCommand) GetDescription() string {
	return "Import a text corpus from a git repository"
}

func (c *ImportGitCommand) Execute(ctx context.Context) (*CommandResult, error) {
	res, err := c.service.ImportFromGit(ctx, c.Options)
	if err != nil {
		return nil, err
	}
	summary := summarize(res.ImportResult, c.Options.DryRun)
	summary.RepoURL = res.RepoURL
	summary.OwnerTag = res.OwnerTag
	return &CommandResult{Success: true, Data: summary, Message: summary.message()}, nil
}

// HealthCheckCommand provides system health information
type HealthCheckCommand struct {
	serviceCommand
}

func (c *HealthCheckCommand) GetName() string {
	return "health"
}

func (c *HealthCheckCommand) GetDescription() string {
	return "Check system health and service status"
}

func (c *HealthCheckCommand) Execute(ctx context.Context) (*CommandResult, error) {
	// listing templates proves the store is readable
	docs, err := c.service.ListTemplates("")
	if err != nil {
		return nil, err
	}

	cfg := c.service.Config()
	healthData := map[string]interface{}{
		"status":    "healthy",
		"service":   "simplethink",
		"version":   config.Version,
		"store":     cfg.Store,
		"templates": len(docs),
		"sessions":  len(c.service.SessionIDs()),
		"packs":     len(c.service.ListPacks()),
	}

	return &CommandResult{
		Success: true,
		Data:    healthData,
		Message: "Service is healthy",
	}, nil
}
