package container

import (
	"context"
	"io"
	"os"

	"freshservice/ticketer/internal/client"
	"freshservice/ticketer/internal/config"
	"freshservice/ticketer/internal/domain"
	"freshservice/ticketer/internal/prompt"
	"freshservice/ticketer/internal/service"

	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config   *config.Config
	Client   client.FreshserviceClient
	Prompter prompt.Prompter
	Progress prompt.Progress
	Console  *prompt.Console

	Service *service.Service
}

// New creates a new container with all dependencies initialized, talking
// to the operator on stdin/stdout.
func New(cfg *config.Config) (*Container, error) {
	return NewWithIO(cfg, os.Stdin, os.Stdout)
}

// NewWithIO is New with explicit terminal streams.
func NewWithIO(cfg *config.Config, in *os.File, out io.Writer) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	container := &Container{
		Config:   cfg,
		Client:   client.NewFreshserviceClient(cfg.Freshservice),
		Prompter: prompt.New(in, out),
		Progress: prompt.NewProgress(in, out),
		Console:  prompt.NewConsole(out),
	}

	log.Infof("Using Freshservice API at %s", cfg.Freshservice.BaseURL())

	container.Service = service.NewService(
		container.Client,
		container.Prompter,
		container.Progress,
		container.Console,
	)

	return container, nil
}

// Run executes the ticket wizard once.
func (c *Container) Run(ctx context.Context) (*domain.Ticket, error) {
	return c.Service.Run(ctx)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")
	return c.Client.Close()
}
