package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/commands"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/errors"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

func (c *CLI) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the template library and write config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.service.InitLibrary(); err != nil {
				return err
			}
			if _, err := os.Stat(c.cfg.Path()); os.IsNotExist(err) {
				if err := c.cfg.Save(); err != nil {
					return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to write config")
				}
			}
			fmt.Fprintf(c.out, "Initialized simplethink library at %s\n", c.cfg.LibraryDir)
			return nil
		},
	}
}

// printTemplates prints template views as a table
func (c *CLI) printTemplates(result *commands.CommandResult) error {
	if c.jsonOut {
		return c.printJSON(result.Data)
	}
	views := result.Data.([]commands.TemplateView)
	if len(views) == 0 {
		fmt.Fprintln(c.out, "No templates found")
		return nil
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSLOTS\tTAGS")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", v.ID, v.Name, v.Slots, strings.Join(v.Tags, ", "))
	}
	return tw.Flush()
}

func (c *CLI) templatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template", "t"},
		Short:   "Manage templates",
	}

	var expr, query string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List templates visible to the session",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := c.sessionParams()
			if expr != "" {
				params["expression"] = expr
			}
			if query != "" {
				params["query"] = query
			}
			result, err := c.run(cmd.Context(), "list-templates", params)
			if err != nil {
				return err
			}
			return c.printTemplates(result)
		},
	}
	list.Flags().StringVarP(&expr, "expr", "e", "", "boolean tag expression")
	list.Flags().StringVarP(&query, "query", "q", "", "fuzzy text query")

	show := &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"get"},
		Short:   "Show a template with its markup",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "get-template", map[string]interface{}{"id": args[0]})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(result.Data)
			}
			v := result.Data.(commands.TemplateView)
			fmt.Fprintf(c.out, "%s (%s)\n", v.Name, v.ID)
			if v.Description != "" {
				fmt.Fprintln(c.out, v.Description)
			}
			if len(v.Tags) > 0 {
				fmt.Fprintf(c.out, "Tags: %s\n", strings.Join(v.Tags, ", "))
			}
			if v.SessionID != "" {
				fmt.Fprintf(c.out, "Session: %s\n", v.SessionID)
			}
			fmt.Fprintf(c.out, "Slots: %d\n\n%s\n", v.Slots, v.Markup)
			return nil
		},
	}

	var name, description, file string
	var tags []string
	var weight float64
	var fromText, private bool
	add := &cobra.Command{
		Use:     "add [id] [markup]",
		Aliases: []string{"create", "new"},
		Short:   "Create or replace a template from bracket markup or plain text",
		Example: `  simplethink templates add walk "The [ADJ] [NOUN] [VERB:past] home"
  simplethink templates add --text "The quick fox jumps over the lazy dog"
  simplethink templates add poem --file poem.txt --tags verse,night`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{}
			body := ""
			switch {
			case file != "":
				data, err := os.ReadFile(file)
				if err != nil {
					return errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read template file")
				}
				body = string(data)
				if len(args) > 0 {
					params["id"] = args[0]
				}
			case len(args) == 2:
				params["id"] = args[0]
				body = args[1]
			case len(args) == 1:
				body = args[0]
			}
			params["body"] = body
			if fromText {
				params["mode"] = "text"
			}
			if name != "" {
				params["name"] = name
			}
			if description != "" {
				params["description"] = description
			}
			if len(tags) > 0 {
				params["tags"] = tags
			}
			if weight > 0 {
				params["weight"] = weight
			}
			if private {
				params["session"] = c.cfg.Session
			}
			result, err := c.run(cmd.Context(), "create-template", params)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&description, "description", "", "description")
	add.Flags().StringVar(&file, "file", "", "read the body from a file")
	add.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	add.Flags().Float64Var(&weight, "weight", 0, "selection weight")
	add.Flags().BoolVar(&fromText, "text", false, "treat the body as plain text and tag it")
	add.Flags().BoolVar(&private, "private", false, "make the template visible to the current session only")

	del := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a template",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "delete-template", map[string]interface{}{"id": args[0]})
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Fuzzy search templates by name, description and tags",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := c.sessionParams()
			params["query"] = strings.Join(args, " ")
			result, err := c.run(cmd.Context(), "search-templates", params)
			if err != nil {
				return err
			}
			return c.printTemplates(result)
		},
	}

	cmd.AddCommand(list, show, add, del, search)
	return cmd
}

func (c *CLI) poolsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "Manage saved template pools",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved pools",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "list-pools", nil)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(result.Data)
			}
			pools := result.Data.([]models.SavedPool)
			if len(pools) == 0 {
				fmt.Fprintln(c.out, "No saved pools")
				return nil
			}
			for _, p := range pools {
				fmt.Fprintf(c.out, "%s\t%s\n", p.Name, describePool(p))
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Show a saved pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "get-pool", map[string]interface{}{"name": args[0]})
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(result.Data)
			}
			p := result.Data.(*models.SavedPool)
			fmt.Fprintf(c.out, "%s\t%s\n", p.Name, describePool(*p))
			if p.Description != "" {
				fmt.Fprintln(c.out, p.Description)
			}
			return nil
		},
	}

	var pool poolFlags
	var description string
	save := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a named pool of templates",
		Example: `  simplethink pools save wet --expr "water OR rain"
  simplethink pools save favourites -t walk,river`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"name": args[0]}
			if err := pool.params(params); err != nil {
				return err
			}
			delete(params, "pool")
			delete(params, "weights")
			if description != "" {
				params["description"] = description
			}
			result, err := c.run(cmd.Context(), "save-pool", params)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}
	save.Flags().StringVarP(&pool.expression, "expr", "e", "", "boolean tag expression")
	save.Flags().StringVarP(&pool.query, "query", "q", "", "fuzzy text query")
	save.Flags().StringSliceVarP(&pool.templates, "template", "t", nil, "explicit template ids")
	save.Flags().StringVar(&description, "description", "", "description")

	del := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved pool",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "delete-pool", map[string]interface{}{"name": args[0]})
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}

	cmd.AddCommand(list, show, save, del)
	return cmd
}

// describePool summarizes the pool's selection criteria on one line
func describePool(p models.SavedPool) string {
	var parts []string
	if p.Expression != nil {
		parts = append(parts, "expr: "+p.Expression.String())
	}
	if p.TextQuery != "" {
		parts = append(parts, fmt.Sprintf("query: %q", p.TextQuery))
	}
	if len(p.TemplateIDs) > 0 {
		parts = append(parts, "templates: "+strings.Join(p.TemplateIDs, ","))
	}
	if len(parts) == 0 {
		return "(all templates)"
	}
	return strings.Join(parts, "; ")
}

func (c *CLI) importCommand() *cobra.Command {
	var dryRun, randomize bool
	var conflict, gitURL, branch, owner string
	var depth int
	var tags []string
	cmd := &cobra.Command{
		Use:   "import [path]",
		Short: "Import a text corpus as templates, one per sentence line",
		Example: `  simplethink import ./corpus --dry-run
  simplethink import poems.txt --tags verse --conflict rename
  simplethink import --git https://github.com/someone/corpus.git texts/`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := c.sessionParams()
			if len(args) > 0 {
				params["path"] = args[0]
			}
			params["dry_run"] = dryRun
			params["randomize"] = randomize
			if conflict != "" {
				params["conflict"] = conflict
			}
			if len(tags) > 0 {
				params["tags"] = tags
			}

			name := "import"
			if gitURL != "" {
				name = "import-git"
				params["url"] = gitURL
				params["branch"] = branch
				params["owner"] = owner
				params["depth"] = depth
			}
			result, err := c.run(cmd.Context(), name, params)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(result.Data)
			}
			summary := result.Data.(commands.ImportSummary)
			fmt.Fprintln(c.out, result.Message)
			if dryRun {
				for _, id := range summary.Templates {
					fmt.Fprintf(c.out, "  %s\n", id)
				}
			}
			for _, e := range summary.Errors {
				fmt.Fprintf(c.err, "  error: %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be imported")
	cmd.Flags().BoolVar(&randomize, "randomize", false, "mark content words as randomizable slots")
	cmd.Flags().StringVar(&conflict, "conflict", "", "existing id policy: skip, overwrite or rename")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "tags added to every imported template")
	cmd.Flags().StringVar(&gitURL, "git", "", "clone this repository and import from it")
	cmd.Flags().StringVar(&branch, "branch", "", "git branch")
	cmd.Flags().StringVar(&owner, "owner", "", "owner tag (default: repository owner)")
	cmd.Flags().IntVar(&depth, "depth", 1, "git clone depth")
	return cmd
}

func (c *CLI) packsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Manage vocabulary and template packs",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed packs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "list-packs", nil)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(result.Data)
			}
			packs := result.Data.([]config.Pack)
			if len(packs) == 0 {
				fmt.Fprintln(c.out, "No packs installed")
				return nil
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVERSION\tDESCRIPTION")
			for _, p := range packs {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Version, p.Description)
			}
			return tw.Flush()
		},
	}

	var name, branch string
	var force bool
	install := &cobra.Command{
		Use:   "install <dir|git-url>",
		Short: "Install a pack from a directory or git repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]interface{}{"source": args[0], "force": force}
			if name != "" {
				params["name"] = name
			}
			if branch != "" {
				params["branch"] = branch
			}
			result, err := c.run(cmd.Context(), "install-pack", params)
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}
	install.Flags().StringVar(&name, "name", "", "install under this name")
	install.Flags().StringVar(&branch, "branch", "", "git branch")
	install.Flags().BoolVar(&force, "force", false, "replace an installed pack")

	uninstall := &cobra.Command{
		Use:     "uninstall <name>",
		Aliases: []string{"rm"},
		Short:   "Uninstall a pack and the templates it added",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.run(cmd.Context(), "uninstall-pack", map[string]interface{}{"name": args[0]})
			if err != nil {
				return err
			}
			return c.printResult(result)
		},
	}

	var title, description, author string
	scaffold := &cobra.Command{
		Use:   "new <dir>",
		Short: "Create an empty pack skeleton to fill in and install",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packName := name
			if packName == "" {
				packName = strings.TrimSuffix(args[0], "/")
				if i := strings.LastIndex(packName, "/"); i >= 0 {
					packName = packName[i+1:]
				}
			}
			if err := config.CreatePackScaffold(args[0], packName, title, description, author); err != nil {
				return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to create pack")
			}
			fmt.Fprintf(c.out, "Created pack %s in %s\n", packName, args[0])
			return nil
		},
	}
	scaffold.Flags().StringVar(&name, "name", "", "pack name (default: directory name)")
	scaffold.Flags().StringVar(&title, "title", "", "pack title")
	scaffold.Flags().StringVar(&description, "description", "", "pack description")
	scaffold.Flags().StringVar(&author, "author", "", "pack author")

	cmd.AddCommand(list, install, uninstall, scaffold)
	return cmd
}

func (c *CLI) printLogs(ctx context.Context) error {
	result, err := c.run(ctx, "logs", c.sessionParams())
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.printJSON(result.Data)
	}
	entries := result.Data.([]models.LogEntry)
	if len(entries) == 0 {
		fmt.Fprintln(c.err, "Strategy log is empty")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(c.err, "%3d %-14s %v -> %v\n", e.Seq, e.Operation, e.Inputs, e.Result)
	}
	return nil
}
