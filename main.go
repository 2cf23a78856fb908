package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/bookstack/internal/cli"
	"github.com/mrlokans/bookstack/internal/config"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	config.LoadEnvFiles(config.DefaultEnvFile)

	root := cli.NewRootCommand(fmt.Sprintf("%s (%s)", Version, Commit))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
