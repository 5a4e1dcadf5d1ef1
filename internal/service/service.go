package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"freshservice/ticketer/internal/category"
	"freshservice/ticketer/internal/client"
	"freshservice/ticketer/internal/domain"
	"freshservice/ticketer/internal/prompt"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUserNotFound   = errors.New("unable to find user in Freshservice, please verify the email address")
	ErrNoWorkspaces   = errors.New("no workspaces found")
	ErrEmptySelection = errors.New("no category selected")
)

type Service struct {
	client    client.FreshserviceClient
	prompter  prompt.Prompter
	progress  prompt.Progress
	console   *prompt.Console
	navigator *category.Navigator
	validate  *validator.Validate
}

func NewService(
	client client.FreshserviceClient,
	prompter prompt.Prompter,
	progress prompt.Progress,
	console *prompt.Console,
) *Service {
	return &Service{
		client:    client,
		prompter:  prompter,
		progress:  progress,
		console:   console,
		navigator: category.NewNavigator(prompter),
		validate:  validator.New(),
	}
}

// Run walks the operator through the wizard and submits the ticket.
func (s *Service) Run(ctx context.Context) (*domain.Ticket, error) {
	email, err := s.readEmail(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.ResolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	s.console.Successf("Creating ticket for: %s %s (%s)", user.FirstName, user.LastName, email)

	description, err := s.prompter.ReadLine(ctx, "Enter ticket description:")
	if err != nil {
		return nil, err
	}
	description = strings.TrimSpace(description)

	workspace, err := s.selectWorkspace(ctx)
	if err != nil {
		return nil, err
	}

	path, err := s.selectCategory(ctx)
	if err != nil {
		return nil, err
	}

	priority, err := s.selectPriority(ctx)
	if err != nil {
		return nil, err
	}

	attachments, err := s.collectAttachments(ctx)
	if err != nil {
		return nil, err
	}

	payload := BuildPayload(user, description, workspace, path, priority)

	var ticket *domain.Ticket
	err = s.progress.Run(ctx, "Creating ticket...", func(ctx context.Context) (err error) {
		ticket, err = s.client.CreateTicket(ctx, payload, attachments)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.console.Successf("Ticket created successfully! Ticket ID: %d", ticket.ID)
	return ticket, nil
}

// ResolveUser looks the email up as a requester first and falls back to the
// agents list. Lookup failures are returned as is; an email unknown to both
// lists yields ErrUserNotFound.
func (s *Service) ResolveUser(ctx context.Context, email string) (domain.User, error) {
	log.Debugf("Attempting requester lookup for %s", email)
	requesters, err := s.client.FindRequesters(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if len(requesters) > 0 {
		return requesters[0], nil
	}

	log.Debugf("No requester found for %s, trying agents", email)
	agents, err := s.client.FindAgents(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if len(agents) > 0 {
		return agents[0], nil
	}

	log.Errorf("Failed to find user with email %s in either requesters or agents", email)
	return domain.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, email)
}

// BuildPayload assembles the POST /tickets body.
func BuildPayload(user domain.User, description string, workspace domain.Workspace, path category.Path, priority domain.Priority) domain.TicketPayload {
	return domain.TicketPayload{
		Email:        user.Email,
		Subject:      BuildSubject(user, description),
		Description:  description,
		Status:       domain.TicketStatusOpen,
		Priority:     priority,
		Category:     path.Category,
		SubCategory:  path.SubCategory,
		ItemCategory: path.ItemCategory,
		WorkspaceID:  workspace.ID,
		Source:       domain.TicketSourcePortal,
	}
}

func (s *Service) readEmail(ctx context.Context) (string, error) {
	for {
		email, err := s.prompter.ReadLine(ctx, "Enter requester's email address:")
		if err != nil {
			return "", err
		}
		email = strings.TrimSpace(email)

		if err := s.validate.Var(email, "required,email"); err != nil {
			s.console.Errorf("%q is not a valid email address", email)
			continue
		}
		return email, nil
	}
}

func (s *Service) selectWorkspace(ctx context.Context) (domain.Workspace, error) {
	var workspaces []domain.Workspace
	err := s.progress.Run(ctx, "Fetching workspaces...", func(ctx context.Context) (err error) {
		workspaces, err = s.client.GetWorkspaces(ctx)
		return err
	})
	if err != nil {
		return domain.Workspace{}, err
	}
	if len(workspaces) == 0 {
		return domain.Workspace{}, ErrNoWorkspaces
	}

	labels := make([]string, len(workspaces))
	for i, ws := range workspaces {
		labels[i] = ws.Label()
	}

	selected, err := s.prompter.Choose(ctx, "Select workspace:", labels)
	if err != nil {
		return domain.Workspace{}, err
	}

	for i, label := range labels {
		if label == selected {
			return workspaces[i], nil
		}
	}
	return domain.Workspace{}, fmt.Errorf("unknown workspace selection %q", selected)
}

func (s *Service) selectCategory(ctx context.Context) (category.Path, error) {
	var fields []domain.TicketField
	err := s.progress.Run(ctx, "Fetching and updating category choices...", func(ctx context.Context) (err error) {
		fields, err = s.client.GetTicketFields(ctx)
		return err
	})
	if err != nil {
		return category.Path{}, err
	}

	tree := domain.CategoryTree(fields)
	if log.IsLevelEnabled(log.DebugLevel) {
		if structure, err := json.Marshal(tree); err == nil {
			log.Debugf("Category choices structure: %s", structure)
		}
	}

	path, err := s.navigator.Traverse(ctx, tree)
	if err != nil {
		return category.Path{}, err
	}
	if path.IsEmpty() {
		return category.Path{}, ErrEmptySelection
	}

	log.Debugf("Selected category path: %s", path)
	return path, nil
}

func (s *Service) selectPriority(ctx context.Context) (domain.Priority, error) {
	selected, err := s.prompter.Choose(ctx, "Select priority:", domain.PriorityNames())
	if err != nil {
		return 0, err
	}
	return domain.ParsePriority(selected)
}

// collectAttachments asks for comma separated paths. Paths that are not
// regular files are reported and skipped.
func (s *Service) collectAttachments(ctx context.Context) ([]string, error) {
	answer, err := s.prompter.ReadLine(ctx, "Do you want to attach files? (y/N):")
	if err != nil {
		return nil, err
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		return nil, nil
	}

	s.console.Warnf("Please enter file paths separated by commas, without quotes.")
	line, err := s.prompter.ReadLine(ctx, "Enter file paths separated by commas:")
	if err != nil {
		return nil, err
	}

	var attachments []string
	for _, path := range strings.Split(line, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			s.console.Warnf("Warning: Attachment %s not found.", path)
			log.Warnf("Skipping attachment %s: not a regular file", path)
			continue
		}
		if err := checkReadable(path); err != nil {
			s.console.Warnf("Warning: Attachment %s cannot be read.", path)
			log.Warnf("Skipping attachment %s: %v", path, err)
			continue
		}
		attachments = append(attachments, path)
	}

	return attachments, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
