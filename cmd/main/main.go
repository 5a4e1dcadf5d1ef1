package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"freshservice/ticketer/internal/config"
	"freshservice/ticketer/internal/container"
	"freshservice/ticketer/internal/logging"
	"freshservice/ticketer/internal/prompt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	console := prompt.NewConsole(os.Stderr)

	flags := config.Flags()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		console.Errorf("Error: %v", err)
		return 2
	}

	// Load configuration using viper
	cfg, err := config.Load(flags)
	if err != nil {
		console.Errorf("Error: failed to load configuration: %v", err)
		return 1
	}

	logFile, err := logging.Setup(cfg.Log)
	if err != nil {
		console.Errorf("Error: %v", err)
		return 1
	}
	defer logFile.Close()

	log.Info("Starting Freshservice ticket wizard...")

	// Initialize container with all dependencies
	app, err := container.New(cfg)
	if err != nil {
		console.Errorf("Error: %v", err)
		log.Errorf("Failed to initialize container: %v", err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticket, err := app.Run(ctx)
	switch {
	case err == nil:
		log.Infof("Application finished successfully, ticket %d", ticket.ID)
		return 0
	case errors.Is(err, prompt.ErrInterrupted) || errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stdout)
		app.Console.Errorf("Operation cancelled by user.")
		log.Info("Operation cancelled by user")
		return 0
	default:
		app.Console.Errorf("Error: %v", err)
		log.Errorf("Application exited with error: %v", err)
		return 1
	}
}
