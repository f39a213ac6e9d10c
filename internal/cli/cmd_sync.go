package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/git"
)

func (c *CLI) librarySync() *git.LibrarySync {
	return git.NewLibrarySync(c.cfg.LibraryDir, c.logger)
}

// syncCommand versions the library with git: commit, pull and push
func (c *CLI) syncCommand() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Commit library changes and sync them with the git remote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g := c.librarySync()
			status, err := g.Status(cmd.Context())
			if err != nil {
				return err
			}
			if status == git.StatusNotInitialized || status == git.StatusNoRemote {
				fmt.Fprintf(c.out, "%s; run simplethink sync setup <repo-url> first\n", status)
				return nil
			}
			if err := g.Sync(cmd.Context(), message); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Library synced")
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "Update simplethink library", "commit message")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the library's git status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				status, err := c.librarySync().Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, status)
				return nil
			},
		},
		&cobra.Command{
			Use:   "setup <repo-url>",
			Short: "Put the library under git and push it to a remote",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.librarySync().Setup(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Library at %s now syncs with %s\n", c.cfg.LibraryDir, args[0])
				return nil
			},
		},
	)
	return cmd
}
