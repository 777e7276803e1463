// Package main is the entry point for the gopost background worker. It runs
// the monitoring and dispatch loops.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/gopost/gopost/internal/app"
)

// version can be set at build time via -ldflags.
var version = "dev"

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.Parse()

	// Best effort; environment variables may come from the shell instead.
	_ = godotenv.Load()

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Version:    version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close application: %v\n", closeErr)
		}
	}()

	if runErr := application.RunWorker(context.Background()); runErr != nil {
		application.Logger().Error("Application error")
		os.Exit(1)
	}
}
