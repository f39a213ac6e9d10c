package commands

import (
	"context"
	"fmt"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/engine"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/renderer"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

// ProfileList is the list-profiles payload
type ProfileList struct {
	Session  string            `json:"session"`
	Active   string            `json:"active"`
	Profiles []*models.Profile `json:"profiles"`
}

// ListProfilesCommand lists a session's profiles and names the active one
type ListProfilesCommand struct {
	sessionCommand
}

func (c *ListProfilesCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	return nil
}

func (c *ListProfilesCommand) GetName() string {
	return "list-profiles"
}

func (c *ListProfilesCommand) GetDescription() string {
	return "List a session's profiles"
}

func (c *ListProfilesCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	profiles, err := sess.ListProfiles()
	if err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    ProfileList{Session: sess.ID(), Active: sess.ActiveProfile().ID, Profiles: profiles},
		Message: fmt.Sprintf("Found %d profiles", len(profiles)),
	}, nil
}

// GetProfileCommand returns one profile
type GetProfileCommand struct {
	sessionCommand
	ID string
}

func (c *GetProfileCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.ID = stringParam(params, "id")
	return nil
}

func (c *GetProfileCommand) GetName() string {
	return "get-profile"
}

func (c *GetProfileCommand) GetDescription() string {
	return "Get a profile by id"
}

func (c *GetProfileCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	p, err := sess.GetProfile(c.ID)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Success: true, Data: p, Message: fmt.Sprintf("Profile %s", p.ID)}, nil
}

// SaveProfileCommand creates or replaces a profile. Fields missing from
// the payload keep their stored value, or the default for a new profile.
type SaveProfileCommand struct {
	sessionCommand
	ID     string
	fields map[string]interface{}
}

func (c *SaveProfileCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.ID = stringParam(params, "id")
	c.fields, _ = params["profile"].(map[string]interface{})
	return nil
}

func (c *SaveProfileCommand) GetName() string {
	return "save-profile"
}

func (c *SaveProfileCommand) GetDescription() string {
	return "Create or replace a profile"
}

func (c *SaveProfileCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	base, err := sess.GetProfile(c.ID)
	if err != nil {
		base = models.DefaultProfile(sess.ID())
		base.Name = c.ID
	}
	if err := decodeValue(c.fields, base); err != nil {
		return nil, errors.ValidationError("invalid profile").WithDetails(err.Error())
	}
	base.ID = c.ID

	saved, err := sess.SaveProfile(base)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Success: true, Data: saved, Message: fmt.Sprintf("Saved profile %s", saved.ID)}, nil
}

// DeleteProfileCommand removes a profile
type DeleteProfileCommand struct {
	sessionCommand
	ID string
}

func (c *DeleteProfileCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.ID = stringParam(params, "id")
	return nil
}

func (c *DeleteProfileCommand) GetName() string {
	return "delete-profile"
}

func (c *DeleteProfileCommand) GetDescription() string {
	return "Delete a profile; the default profile cannot be deleted"
}

func (c *DeleteProfileCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	if err := sess.DeleteProfile(c.ID); err != nil {
		return nil, err
	}
	return &CommandResult{
		Success: true,
		Data:    map[string]string{"id": c.ID, "active": sess.ActiveProfile().ID},
		Message: fmt.Sprintf("Deleted profile %s", c.ID),
	}, nil
}

// ActivateProfileCommand switches the session's active profile
type ActivateProfileCommand struct {
	sessionCommand
	ID string
}

func (c *ActivateProfileCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.ID = stringParam(params, "id")
	return nil
}

func (c *ActivateProfileCommand) GetName() string {
	return "activate-profile"
}

func (c *ActivateProfileCommand) GetDescription() string {
	return "Make a profile the session's active profile"
}

func (c *ActivateProfileCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	p, err := sess.ActivateProfile(c.ID)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Success: true, Data: p, Message: fmt.Sprintf("Activated profile %s", p.ID)}, nil
}

// UpdateConfigCommand patches the active profile
type UpdateConfigCommand struct {
	sessionCommand
	Patch models.ProfilePatch
}

func (c *UpdateConfigCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	return decodeParam(params, "patch", &c.Patch)
}

func (c *UpdateConfigCommand) GetName() string {
	return "update-config"
}

func (c *UpdateConfigCommand) GetDescription() string {
	return "Patch the active profile's randomization settings"
}

func (c *UpdateConfigCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	p, err := sess.UpdateConfig(c.Patch)
	if err != nil {
		return nil, err
	}
	return &CommandResult{Success: true, Data: p, Message: fmt.Sprintf("Updated profile %s", p.ID)}, nil
}

// realizeParams reads the live-word inputs shared by realize, generate and batch
func realizeParams(params map[string]interface{}) (service.RealizeOptions, error) {
	opts := service.RealizeOptions{
		Locked:    stringsParam(params, "locked"),
		Preselect: stringsParam(params, "preselect"),
	}
	if err := decodeParam(params, "candidates", &opts.Candidates); err != nil {
		return opts, err
	}
	for i := range opts.Candidates {
		if opts.Candidates[i].ID == "" {
			opts.Candidates[i].ID = opts.Candidates[i].Text
		}
	}
	return opts, nil
}

func generateParams(params map[string]interface{}) (service.GenerateOptions, error) {
	realize, err := realizeParams(params)
	if err != nil {
		return service.GenerateOptions{}, err
	}
	opts := service.GenerateOptions{
		RealizeOptions: realize,
		PoolFilter: service.PoolFilter{
			Expression:  stringParam(params, "expression"),
			Pool:        stringParam(params, "pool"),
			Query:       stringParam(params, "query"),
			TemplateIDs: stringsParam(params, "template_ids"),
		},
	}
	if err := decodeParam(params, "weights", &opts.Weights); err != nil {
		return opts, err
	}
	return opts, nil
}

// realizationResult shapes a realization by output format
func realizationResult(r *engine.Realization, format string) (*CommandResult, error) {
	result := &CommandResult{Success: true, Message: r.Surface}
	switch format {
	case renderer.FormatText:
		result.Data = r.Surface
	case renderer.FormatMarkdown:
		md, err := renderer.NewRenderer(r, 0).RenderMarkdown()
		if err != nil {
			return nil, err
		}
		result.Data = md
	case renderer.FormatTrace:
		result.Data = r.Trace
	default:
		result.Data = r
	}
	return result, nil
}

// RealizeCommand realizes one stored template
type RealizeCommand struct {
	sessionCommand
	TemplateID string
	Format     string
	Options    service.RealizeOptions
}

func (c *RealizeCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.TemplateID = stringParam(params, "template")
	c.Format = stringParam(params, "format")
	var err error
	c.Options, err = realizeParams(params)
	return err
}

func (c *RealizeCommand) GetName() string {
	return "realize"
}

func (c *RealizeCommand) GetDescription() string {
	return "Realize a template with the session's active profile"
}

func (c *RealizeCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	r, err := sess.Realize(ctx, c.TemplateID, c.Options)
	if err != nil {
		return nil, err
	}
	return realizationResult(r, c.Format)
}

// GenerateCommand draws a template from the filtered pool and realizes it
type GenerateCommand struct {
	sessionCommand
	Format  string
	Options service.GenerateOptions
}

func (c *GenerateCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.Format = stringParam(params, "format")
	var err error
	c.Options, err = generateParams(params)
	return err
}

func (c *GenerateCommand) GetName() string {
	return "generate"
}

func (c *GenerateCommand) GetDescription() string {
	return "Pick a template from the pool and realize it"
}

func (c *GenerateCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	r, err := sess.Generate(ctx, c.Options)
	if err != nil {
		return nil, err
	}
	return realizationResult(r, c.Format)
}

// BatchCommand produces up to Count distinct texts. A short batch still
// succeeds; its warning is copied into Meta.
type BatchCommand struct {
	sessionCommand
	Count   int
	Format  string
	Options service.GenerateOptions
}

func (c *BatchCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.Count = intParam(params, "count")
	c.Format = stringParam(params, "format")
	var err error
	c.Options, err = generateParams(params)
	return err
}

func (c *BatchCommand) GetName() string {
	return "batch"
}

func (c *BatchCommand) GetDescription() string {
	return "Generate several distinct texts in one call"
}

func (c *BatchCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	res, err := sess.GenerateBatch(ctx, c.Count, c.Options)
	if err != nil {
		return nil, err
	}

	result := &CommandResult{
		Success: true,
		Message: fmt.Sprintf("Generated %d of %d texts in %d attempts", len(res.Items), res.Requested, res.Attempts),
	}
	if c.Format == renderer.FormatText {
		result.Data = res.Surfaces()
	} else {
		result.Data = res
	}
	if res.Warning != "" {
		result.Meta = map[string]interface{}{"warning": res.Warning}
	}
	return result, nil
}

// LogsCommand returns the session's strategy log
type LogsCommand struct {
	sessionCommand
}

func (c *LogsCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	return nil
}

func (c *LogsCommand) GetName() string {
	return "logs"
}

func (c *LogsCommand) GetDescription() string {
	return "Show the session's strategy log"
}

func (c *LogsCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	logs := sess.Logs()
	if logs == nil {
		logs = []models.LogEntry{}
	}
	return &CommandResult{
		Success: true,
		Data:    logs,
		Message: fmt.Sprintf("%d log entries", len(logs)),
		Meta:    map[string]interface{}{"enabled": sess.LoggingEnabled()},
	}, nil
}

// ClearLogsCommand empties the session's strategy log
type ClearLogsCommand struct {
	sessionCommand
}

func (c *ClearLogsCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	return nil
}

func (c *ClearLogsCommand) GetName() string {
	return "clear-logs"
}

func (c *ClearLogsCommand) GetDescription() string {
	return "Clear the session's strategy log"
}

func (c *ClearLogsCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	sess.ClearLogs()
	return &CommandResult{Success: true, Message: "Strategy log cleared"}, nil
}

// SetLoggingCommand turns strategy logging on or off for a session
type SetLoggingCommand struct {
	sessionCommand
	Enabled bool
}

func (c *SetLoggingCommand) SetParameters(params map[string]interface{}) error {
	c.setSession(params)
	c.Enabled = boolParam(params, "enabled")
	return nil
}

func (c *SetLoggingCommand) GetName() string {
	return "set-logging"
}

func (c *SetLoggingCommand) GetDescription() string {
	return "Enable or disable strategy logging"
}

func (c *SetLoggingCommand) Execute(ctx context.Context) (*CommandResult, error) {
	sess, err := c.session()
	if err != nil {
		return nil, err
	}
	sess.SetLogging(c.Enabled)
	state := "disabled"
	if c.Enabled {
		state = "enabled"
	}
	return &CommandResult{
		Success: true,
		Data:    map[string]bool{"enabled": c.Enabled},
		Message: "Strategy logging " + state,
	}, nil
}
