package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/api"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/commands"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/ui"
)

func (c *CLI) profilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage the session's randomization profiles",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List profiles and mark the active one",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "list-profiles", c.sessionParams())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(result.Data)
			}
			profiles := result.Data.(commands.ProfileList)
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tJITTER\tMAX\tAUTOBIND\tSEED")
			for _, p := range profiles.Profiles {
				marker := ""
				if p.ID == profiles.Active {
					marker = "*"
				}
				jitter := "off"
				if p.JitterEnabled {
					jitter = strconv.FormatFloat(p.JitterProbability, 'f', -1, 64)
				}
				maxSlots := "-"
				if p.MaxRandomSlots > 0 {
					maxSlots = strconv.Itoa(p.MaxRandomSlots)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", marker, p.ID, jitter, maxSlots, p.AutoBind, p.Seed)
			}
			return tw.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a profile (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := c.sessionParams()
			if len(args) == 1 {
				params["id"] = args[0]
			} else {
				active, err := c.activeProfileID(cmd.Context())
				if err != nil {
					return err
				}
				params["id"] = active
			}
			result, err := c.run(cmd.Context(), "get-profile", params)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(result.Data)
			}
			printProfile(c, result.Data.(*models.Profile))
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <id> key=value...",
		Short: "Create a profile or change its fields",
		Example: `  simplethink profiles set wild jitterProbability=0.9 maxRandomSlots=3
  simplethink profiles set seeded seed=moonlight mutators=[uppercase]`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}
			params := c.sessionParams()
			params["id"] = args[0]
			params["profile"] = fields
			result, err := c.run(cmd.Context(), "save-profile", params)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}

	activate := &cobra.Command{
		Use:     "activate <id>",
		Aliases: []string{"use"},
		Short:   "Make a profile the session's active profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := c.sessionParams()
			params["id"] = args[0]
			result, err := c.run(cmd.Context(), "activate-profile", params)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}

	del := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := c.sessionParams()
			params["id"] = args[0]
			result, err := c.run(cmd.Context(), "delete-profile", params)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}

	cmd.AddCommand(list, show, set, activate, del)
	return cmd
}

func (c *CLI) activeProfileID(ctx context.Context) (string, error) {
	result, err := c.run(ctx, "list-profiles", c.sessionParams())
	if err != nil {
		return "", err
	}
	return result.Data.(commands.ProfileList).Active, nil
}

func printProfile(c *CLI, p *models.Profile) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "id\t%s\n", p.ID)
	fmt.Fprintf(tw, "session\t%s\n", p.SessionID)
	fmt.Fprintf(tw, "jitter\t%t (%.2f)\n", p.JitterEnabled, p.JitterProbability)
	if len(p.CategoryProbabilities) > 0 {
		cats := make([]string, 0, len(p.CategoryProbabilities))
		for cat := range p.CategoryProbabilities {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		for _, cat := range cats {
			fmt.Fprintf(tw, "  %s\t%.2f\n", cat, p.CategoryProbabilities[cat])
		}
	}
	fmt.Fprintf(tw, "maxRandomSlots\t%d\n", p.MaxRandomSlots)
	fmt.Fprintf(tw, "ensureTwoRandom\t%t\n", p.EnsureTwoRandom)
	if p.Position.Enabled {
		fmt.Fprintf(tw, "position\t%s #%d\n", p.Position.Category, p.Position.Ordinal)
	}
	if p.RegexPattern != "" {
		fmt.Fprintf(tw, "regex\t%s (%.2f)\n", p.RegexPattern, p.RegexProbability)
	}
	fmt.Fprintf(tw, "nounBoost\t%t\n", p.NounBoost)
	fmt.Fprintf(tw, "autoBind\t%t\n", p.AutoBind)
	if len(p.Mutators) > 0 {
		fmt.Fprintf(tw, "mutators\t%v\n", p.Mutators)
	}
	if p.Seed != "" {
		fmt.Fprintf(tw, "seed\t%s\n", p.Seed)
	}
	_ = tw.Flush()
}

func (c *CLI) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config key=value...",
		Short: "Change fields of the active profile",
		Long: `Patch the session's active profile. Keys are profile fields such as
jitterEnabled, jitterProbability, maxRandomSlots, ensureTwoRandom,
regexPattern, regexProbability, nounBoost, autoBind, mutators and seed.`,
		Example: `  simplethink config jitterProbability=0.5 autoBind=false`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseKeyValues(args)
			if err != nil {
				return err
			}
			params := c.sessionParams()
			params["patch"] = patch
			result, err := c.run(cmd.Context(), "update-config", params)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}
}

func (c *CLI) logsCommand() *cobra.Command {
	var clearLog bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show or clear the session's strategy log",
		Long: `The strategy log records each randomization decision made while
realizing. It lives in memory, so it is only populated within one
process: use realize --log or generate --log to see it from the CLI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearLog {
				result, err := c.run(cmd.Context(), "clear-logs", c.sessionParams())
				if err != nil {
					return err
				}
				return c.printResult(result)
			}
			return c.printLogs(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&clearLog, "clear", false, "clear the log")
	return cmd
}

func (c *CLI) serveCommand() *cobra.Command {
	var host string
	var port int
	var syncInterval time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				c.cfg.API.Host = host
			}
			if cmd.Flags().Changed("port") {
				c.cfg.API.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if syncInterval > 0 {
				go c.librarySync().BackgroundPull(ctx, syncInterval, nil)
			}

			server := api.NewAPIServer(c.service, c.cfg.Addr(), c.logger)
			fmt.Fprintf(c.err, "Serving API on http://%s/api/v1 (docs at /api/docs)\n", c.cfg.Addr())
			return server.Start(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().DurationVar(&syncInterval, "sync-interval", 0, "pull the library from its git remote this often (0 disables)")
	return cmd
}

func (c *CLI) tuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive generator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context())
		},
	}
}

func (c *CLI) runTUI(ctx context.Context) error {
	c.logger.Debug("starting tui", zap.String("session", c.cfg.Session))
	return ui.Run(ctx, c.service, c.cfg.Session, c.logger)
}

// terminalWidth reads $COLUMNS, falling back to 100
func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n
	}
	return 100
}
