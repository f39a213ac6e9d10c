// Package commands implements the unified command execution system for simplethink.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the coordination layer between the interfaces (CLI, HTTP,
// TUI) and the service layer. Every operation is a named Command built
// fresh per call, fed a validated parameter map and executed against the
// shared service.
//
// KEY RESPONSIBILITIES:
// - Define the Command interface and the registry of command factories
// - Validate parameters with the schema named after the command
// - Convert service errors into ErrorInfo so every interface reports them alike
//
// INTEGRATION POINTS:
// - internal/api/server.go: every route executes a command through CommandExecutor.Execute()
// - internal/cli/cli.go: the batch and import subcommands reuse the same commands
// - internal/validation/validator.go: schema per command ("list-templates" uses "list_templates")
// - internal/commands/template_commands.go: template and pool commands
// - internal/commands/session_commands.go: profile, realization and log commands
// - internal/commands/utility_commands.go: packs, import and health
//
// COMMAND FLOW:
// 1. Interface converts input to a parameter map
// 2. CommandExecutor validates the map against the command's schema
// 3. A fresh command instance receives the service and the validated parameters
// 4. The command calls the service and returns a CommandResult
// 5. Failures come back as CommandResult.Error, never as a Go error
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/validation"
)

// CommandResult represents the result of executing a command
type CommandResult struct {
	Data    interface{}            `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Success bool                   `json:"success"`
	Error   *ErrorInfo             `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// ErrorInfo provides structured error information
type ErrorInfo struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Category string                 `json:"category,omitempty"`
	Severity string                 `json:"severity,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// AppError rebuilds the AppError an ErrorInfo was made from
func (e *ErrorInfo) AppError() *errors.AppError {
	appErr := errors.NewAppError(errors.ErrorCode(e.Code), e.Message)
	appErr.Details = e.Details
	appErr.Context = e.Context
	return appErr
}

func errorInfo(appErr *errors.AppError) *ErrorInfo {
	return &ErrorInfo{
		Code:     string(appErr.Code),
		Message:  appErr.Message,
		Details:  appErr.Details,
		Category: string(appErr.Category),
		Severity: string(appErr.Severity),
		Context:  appErr.Context,
	}
}

func failure(err error) *CommandResult {
	return &CommandResult{Success: false, Error: errorInfo(errors.GetAppError(err))}
}

// Command represents a unified command interface
type Command interface {
	Execute(ctx context.Context) (*CommandResult, error)
	Validate() error
	GetName() string
	GetDescription() string
}

// ParameterizedCommand interface for commands that accept parameters
type ParameterizedCommand interface {
	SetParameters(params map[string]interface{}) error
}

// ServiceAwareCommand interface for commands that need service access
type ServiceAwareCommand interface {
	SetService(svc *service.Service)
}

// CommandRegistry manages available commands
type CommandRegistry struct {
	commands map[string]func() Command
}

// NewCommandRegistry creates a new command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]func() Command),
	}
}

// Register adds a command factory to the registry
func (r *CommandRegistry) Register(name string, factory func() Command) {
	r.commands[name] = factory
}

// Get retrieves a command factory by name
func (r *CommandRegistry) Get(name string) (func() Command, bool) {
	factory, exists := r.commands[name]
	return factory, exists
}

// List returns all available command names, sorted
func (r *CommandRegistry) List() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CommandExecutor provides a unified way to execute commands
type CommandExecutor struct {
	service   *service.Service
	registry  *CommandRegistry
	validator *validation.Validator
	logger    *zap.Logger
}

// NewCommandExecutor creates a new command executor
func NewCommandExecutor(svc *service.Service, logger *zap.Logger) *CommandExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	executor := &CommandExecutor{
		service:   svc,
		registry:  NewCommandRegistry(),
		validator: validation.NewValidator(),
		logger:    logger.Named("commands"),
	}
	executor.registerCommands()
	return executor
}

// Commands lists the registered command names with their descriptions
func (e *CommandExecutor) Commands() map[string]string {
	out := make(map[string]string)
	for _, name := range e.registry.List() {
		factory, _ := e.registry.Get(name)
		out[name] = factory().GetDescription()
	}
	return out
}

// Execute runs a command by name with the given parameters. The returned
// error is reserved for executor faults; command failures are reported in
// the result.
func (e *CommandExecutor) Execute(ctx context.Context, commandName string, params map[string]interface{}) (*CommandResult, error) {
	factory, exists := e.registry.Get(commandName)
	if !exists {
		return failure(errors.CommandNotFoundError(commandName)), nil
	}

	if params == nil {
		params = make(map[string]interface{})
	}

	if schema := schemaName(commandName); e.validator.HasSchema(schema) {
		validationResult := e.validator.Validate(schema, params)
		if !validationResult.Valid {
			return failure(validationResult.ToAppError()), nil
		}
		for _, w := range validationResult.Warnings {
			e.logger.Debug("ignored parameter", zap.String("command", commandName), zap.String("field", w.Field))
		}
		params = validationResult.GetValidatedData()
	}

	cmd := factory()

	if parameterized, ok := cmd.(ParameterizedCommand); ok {
		if err := parameterized.SetParameters(params); err != nil {
			if errors.IsAppError(err) {
				return failure(err), nil
			}
			return failure(errors.ValidationError(err.Error())), nil
		}
	}

	if err := cmd.Validate(); err != nil {
		return failure(errors.ValidationError(err.Error())), nil
	}

	result, err := cmd.Execute(ctx)
	if err != nil {
		appErr := errors.GetAppError(err)
		e.logger.Debug("command failed",
			zap.String("command", commandName),
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
		return failure(appErr), nil
	}
	return result, nil
}

// schemaName maps a command name to its validation schema
func schemaName(commandName string) string {
	return strings.ReplaceAll(commandName, "-", "_")
}

// registerCommands registers all available commands
func (e *CommandExecutor) registerCommands() {
	factories := map[string]func() Command{
		// templates
		"list-templates":   func() Command { return &ListTemplatesCommand{} },
		"search-templates": func() Command { return &SearchTemplatesCommand{} },
		"get-template":     func() Command { return &GetTemplateCommand{} },
		"create-template":  func() Command { return &CreateTemplateCommand{} },
		"delete-template":  func() Command { return &DeleteTemplateCommand{} },

		// pools
		"list-pools":  func() Command { return &ListPoolsCommand{} },
		"get-pool":    func() Command { return &GetPoolCommand{} },
		"save-pool":   func() Command { return &SavePoolCommand{} },
		"delete-pool": func() Command { return &DeletePoolCommand{} },

		// profiles
		"list-profiles":    func() Command { return &ListProfilesCommand{} },
		"get-profile":      func() Command { return &GetProfileCommand{} },
		"save-profile":     func() Command { return &SaveProfileCommand{} },
		"delete-profile":   func() Command { return &DeleteProfileCommand{} },
		"activate-profile": func() Command { return &ActivateProfileCommand{} },
		"update-config":    func() Command { return &UpdateConfigCommand{} },

		// generation
		"realize":     func() Command { return &RealizeCommand{} },
		"generate":    func() Command { return &GenerateCommand{} },
		"batch":       func() Command { return &BatchCommand{} },
		"logs":        func() Command { return &LogsCommand{} },
		"clear-logs":  func() Command { return &ClearLogsCommand{} },
		"set-logging": func() Command { return &SetLoggingCommand{} },

		// packs, import, health
		"list-packs":     func() Command { return &ListPacksCommand{} },
		"install-pack":   func() Command { return &InstallPackCommand{} },
		"uninstall-pack": func() Command { return &UninstallPackCommand{} },
		"import":         func() Command { return &ImportCommand{} },
		"import-git":     func() Command { return &ImportGitCommand{} },
		"health":         func() Command { return &HealthCheckCommand{} },
	}

	for name, factory := range factories {
		factory := factory
		e.registry.Register(name, func() Command {
			cmd := factory()
			if serviceAware, ok := cmd.(ServiceAwareCommand); ok {
				serviceAware.SetService(e.service)
			}
			return cmd
		})
	}
}

// serviceCommand is embedded by every command that talks to the service
type serviceCommand struct {
	service *service.Service
}

func (c *serviceCommand) SetService(svc *service.Service) {
	c.service = svc
}

func (c *serviceCommand) Validate() error {
	if c.service == nil {
		return fmt.Errorf("service not set")
	}
	return nil
}

// sessionCommand resolves the session named by the "session" parameter;
// empty means the configured default session
type sessionCommand struct {
	serviceCommand
	SessionID string
}

func (c *sessionCommand) setSession(params map[string]interface{}) {
	c.SessionID = stringParam(params, "session")
}

func (c *sessionCommand) session() (*service.Session, error) {
	return c.service.Session(c.SessionID)
}

// Parameter helpers. Values have already been converted by the validator.

func stringParam(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}

func boolParam(params map[string]interface{}, key string) bool {
	b, _ := params[key].(bool)
	return b
}

func intParam(params map[string]interface{}, key string) int {
	n, _ := params[key].(int)
	return n
}

func floatParam(params map[string]interface{}, key string) float64 {
	f, _ := params[key].(float64)
	return f
}

func stringsParam(params map[string]interface{}, key string) []string {
	items, _ := params[key].([]interface{})
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// decodeParam converts a JSON-shaped parameter into a typed value
func decodeParam(params map[string]interface{}, key string, target interface{}) error {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil
	}
	if err := decodeValue(raw, target); err != nil {
		return errors.ValidationError(fmt.Sprintf("invalid %s", key)).WithDetails(err.Error())
	}
	return nil
}

func decodeValue(raw interface{}, target interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func isExhausted(err error) bool {
	return errors.HasCode(err, errors.ErrCodeExhausted)
}
