// Package cli implements the simplethink command line.
//
// SYSTEM ARCHITECTURE ROLE:
// The CLI is the headless interface: every subcommand builds a parameter
// map and runs it through the same CommandExecutor the HTTP API uses, then
// renders the result for a terminal. Running with no subcommand starts the
// TUI.
//
// KEY RESPONSIBILITIES:
// - Load config.yaml, build the zap logger and the service once per process
// - Translate flags and arguments into command parameters
// - Render realizations as text, markdown, trace tables or JSON
// - Format failures through CLIErrorHandler
//
// INTEGRATION POINTS:
// - main.go: Execute() is the program entry point
// - internal/commands/types.go: CommandExecutor runs every operation
// - internal/renderer/renderer.go: terminal and JSON output
// - internal/api/server.go: the serve subcommand
// - internal/ui/model.go: the tui subcommand and the no-argument default
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/commands"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/logging"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/service"
)

// CLI holds the per-process state shared by every subcommand
type CLI struct {
	// flags
	configDir string
	session   string
	verbose   bool
	jsonOut   bool

	cfg      *config.Config
	logger   *zap.Logger
	service  *service.Service
	executor *commands.CommandExecutor
	errors   *errors.CLIErrorHandler

	out io.Writer
	err io.Writer
}

// NewCLI creates a CLI writing to the given streams
func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{out: out, err: errOut}
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context, args []string) int {
	c := NewCLI(os.Stdout, os.Stderr)
	root := c.RootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		handler := c.errors
		if handler == nil {
			handler = errors.NewCLIErrorHandler(c.verbose, nil)
		}
		fmt.Fprintln(c.err, handler.HandleError(err))
		return 1
	}
	return 0
}

// RootCommand builds the command tree
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "simplethink",
		Short: "Realize text templates with part-of-speech slots",
		Long: `simplethink stores sentence templates whose words are tagged with
part-of-speech slots, and realizes them with live candidate words, a
fallback vocabulary and per-session randomization profiles.

Run without a subcommand to start the interactive generator.`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", "", "configuration directory (default $SIMPLETHINK_DIR or ~/.simplethink)")
	flags.StringVarP(&c.session, "session", "s", "", "session id (default from config)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")
	flags.BoolVar(&c.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		c.initCommand(),
		c.realizeCommand(),
		c.generateCommand(),
		c.batchCommand(),
		c.templatesCommand(),
		c.poolsCommand(),
		c.profilesCommand(),
		c.configCommand(),
		c.logsCommand(),
		c.importCommand(),
		c.packsCommand(),
		c.syncCommand(),
		c.serveCommand(),
		c.tuiCommand(),
	)
	return root
}

// setup loads configuration and opens the service
func (c *CLI) setup() error {
	if c.service != nil {
		return nil
	}
	cfg, err := config.Load(c.configDir)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to load configuration")
	}
	if c.session != "" {
		cfg.Session = c.session
	}

	level := cfg.LogLevel
	if c.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFormat)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid logging configuration")
	}

	svc, err := service.NewService(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}

	c.cfg = cfg
	c.logger = logger
	c.service = svc
	c.executor = commands.NewCommandExecutor(svc, logger)
	c.errors = errors.NewCLIErrorHandler(c.verbose, logger)
	return nil
}

func (c *CLI) close() {
	if c.service != nil {
		if err := c.service.Close(); err != nil {
			c.logger.Warn("failed to close service", zap.Error(err))
		}
		c.service = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

// run executes a command and converts a failed result into its AppError
func (c *CLI) run(ctx context.Context, name string, params map[string]interface{}) (*commands.CommandResult, error) {
	if params == nil {
		params = make(map[string]interface{})
	}
	result, err := c.executor.Execute(ctx, name, params)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		if result.Error == nil {
			return nil, errors.NewAppError(errors.ErrCodeCommandFailed, name+" failed")
		}
		return nil, result.Error.AppError()
	}
	if warning, ok := result.Meta["warning"].(string); ok && warning != "" && !c.jsonOut {
		fmt.Fprintf(c.err, "Warning: %s\n", warning)
	}
	return result, nil
}

// sessionParams starts a parameter map carrying the --session flag
func (c *CLI) sessionParams() map[string]interface{} {
	params := make(map[string]interface{})
	if c.session != "" {
		params["session"] = c.session
	}
	return params
}

// printJSON writes v as indented JSON
func (c *CLI) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

// printResult prints JSON data when --json is set, the message otherwise
func (c *CLI) printResult(result *commands.CommandResult) error {
	if c.jsonOut {
		return c.printJSON(result.Data)
	}
	_, err := fmt.Fprintln(c.out, result.Message)
	return err
}

// parseKeyValues turns key=value arguments into a map. Values are decoded
// as YAML scalars or flow collections, so 0.5, true and [a, b] keep their
// types.
func parseKeyValues(args []string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errors.ValidationError(fmt.Sprintf("expected key=value, got %q", arg))
		}
		value, err := decodeScalar(raw)
		if err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("invalid value for %s", key)).WithDetails(err.Error())
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}
