// Command migrate-store copies a file-backed template library into the
// configured SQLite database and switches the config to the sqlite store.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/config"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/logging"
	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/storage"
)

func main() {
	var dir string
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.MustNew(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	if cfg.Store == config.StoreSQLite {
		fmt.Println("Library already uses the sqlite store - migration not needed")
		return
	}

	files, err := storage.NewStorage(cfg.LibraryDir, logger)
	if err != nil {
		fmt.Printf("Error opening library: %v\n", err)
		os.Exit(1)
	}
	docs, err := files.ListTemplates("")
	if err != nil {
		fmt.Printf("Error listing templates: %v\n", err)
		os.Exit(1)
	}
	sessions, err := files.ListSessions()
	if err != nil {
		fmt.Printf("Error listing sessions: %v\n", err)
		os.Exit(1)
	}

	dbPath := cfg.DatabaseFile()
	fmt.Printf("Found %d templates and %d sessions in %s\n", len(docs), len(sessions), cfg.LibraryDir)
	fmt.Printf("Target database: %s\n", dbPath)

	fmt.Print("\nProceed with migration? (y/N): ")
	var response string
	fmt.Scanln(&response)
	if strings.ToLower(response) != "y" {
		fmt.Println("Migration cancelled")
		return
	}

	db, err := storage.OpenSQLStore(dbPath)
	if err != nil {
		fmt.Printf("Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	result, err := storage.CopyLibrary(files, db, logger)
	if err != nil {
		fmt.Printf("Migration failed: %v\n", err)
		os.Exit(1)
	}
	for _, skipped := range result.Skipped {
		fmt.Printf("Warning: skipped %s\n", skipped)
	}

	cfg.Store = config.StoreSQLite
	if err := cfg.Save(); err != nil {
		fmt.Printf("Copied data, but could not update config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Migration completed! Copied %d templates and %d profiles across %d sessions\n",
		result.Templates, result.Profiles, result.Sessions)
	fmt.Println("The markdown files are kept; saved pools stay in the library directory.")
}
