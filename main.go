package main

import (
	"context"
	"os"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:]))
}
