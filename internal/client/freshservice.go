package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"freshservice/ticketer/internal/config"
	"freshservice/ticketer/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

const (
	contentTypeJSON = "application/json"
	// Freshservice ignores the password when an API key is the username.
	apiKeyPassword = "X"

	fieldInputData   = "input_data"
	fieldAttachments = "attachments[]"
)

type FreshserviceClient interface {
	GetWorkspaces(ctx context.Context) ([]domain.Workspace, error)
	GetTicketFields(ctx context.Context) ([]domain.TicketField, error)
	FindRequesters(ctx context.Context, email string) ([]domain.User, error)
	FindAgents(ctx context.Context, email string) ([]domain.User, error)
	CreateTicket(ctx context.Context, payload domain.TicketPayload, attachments []string) (*domain.Ticket, error)
	Close() error
}

type freshserviceClient struct {
	rl         ratelimit.Limiter
	config     config.FreshserviceConfig
	baseURL    string
	httpClient *resty.Client

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// request describes one logical API call. A multipart request carries
// form values and file paths instead of a JSON body.
type request struct {
	method    string
	path      string
	query     map[string]string
	body      []byte
	multipart *multipartBody
}

type multipartBody struct {
	fields map[string]string
	files  []attachment
}

// attachment is a file read into memory before the first attempt, so every
// attempt uploads identical bytes.
type attachment struct {
	name string
	data []byte
}

func NewFreshserviceClient(cfg config.FreshserviceConfig) FreshserviceClient {
	return newFreshserviceClient(cfg, cfg.BaseURL())
}

func newFreshserviceClient(cfg config.FreshserviceConfig, baseURL string) *freshserviceClient {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetBasicAuth(cfg.APIKey, apiKeyPassword).
		SetHeader("Accept", contentTypeJSON).
		SetRetryCount(0).
		SetLogger(log.StandardLogger())

	if cfg.Timeout > 0 {
		httpClient.SetTimeout(cfg.Timeout)
	}

	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	return &freshserviceClient{
		rl:         rl,
		config:     cfg,
		baseURL:    baseURL,
		httpClient: httpClient,
		sleep:      sleepContext,
	}
}

func (c *freshserviceClient) GetWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	raw, err := c.execute(ctx, request{method: http.MethodGet, path: "/workspaces"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workspaces: %w", err)
	}

	var list domain.WorkspaceList
	if err := decode(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch workspaces: %w", err)
	}
	// An absent or null key decodes to nil; an empty array does not.
	if list.Workspaces == nil {
		return nil, fmt.Errorf("failed to fetch workspaces: %w: no workspaces data found in response", ErrUnexpectedResponse)
	}

	log.Debugf("Fetched %d workspaces", len(list.Workspaces))
	return list.Workspaces, nil
}

func (c *freshserviceClient) GetTicketFields(ctx context.Context) ([]domain.TicketField, error) {
	raw, err := c.execute(ctx, request{method: http.MethodGet, path: "/ticket_fields"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket fields: %w", err)
	}

	var list domain.TicketFieldList
	if err := decode(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch ticket fields: %w", err)
	}

	log.Debugf("Fetched %d ticket fields", len(list.TicketFields))
	return list.TicketFields, nil
}

func (c *freshserviceClient) FindRequesters(ctx context.Context, email string) ([]domain.User, error) {
	raw, err := c.execute(ctx, request{
		method: http.MethodGet,
		path:   "/requesters",
		query:  map[string]string{"email": email},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up requester %s: %w", email, err)
	}

	var list domain.RequesterList
	if err := decode(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to look up requester %s: %w", email, err)
	}

	return withKind(list.Requesters, email, domain.UserKindRequester), nil
}

func (c *freshserviceClient) FindAgents(ctx context.Context, email string) ([]domain.User, error) {
	raw, err := c.execute(ctx, request{
		method: http.MethodGet,
		path:   "/agents",
		query:  map[string]string{"email": email},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up agent %s: %w", email, err)
	}

	var list domain.AgentList
	if err := decode(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to look up agent %s: %w", email, err)
	}

	return withKind(list.Agents, email, domain.UserKindAgent), nil
}

// CreateTicket posts the payload as JSON, or as the input_data part of a
// multipart form when attachments are given.
func (c *freshserviceClient) CreateTicket(ctx context.Context, payload domain.TicketPayload, attachments []string) (*domain.Ticket, error) {
	body, err := payload.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	log.Debugf("Ticket data being sent: %s", body)

	req := request{method: http.MethodPost, path: "/tickets"}
	if len(attachments) > 0 {
		files, err := readAttachments(attachments)
		if err != nil {
			return nil, fmt.Errorf("failed to create ticket: %w", err)
		}
		req.multipart = &multipartBody{
			fields: map[string]string{fieldInputData: string(body)},
			files:  files,
		}
	} else {
		req.body = body
	}

	raw, err := c.execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	var envelope domain.TicketEnvelope
	if err := decode(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	if envelope.Ticket == nil {
		return nil, fmt.Errorf("failed to create ticket: %w: %s", ErrUnexpectedResponse, raw)
	}

	log.Infof("✅ Created ticket %d", envelope.Ticket.ID)
	return envelope.Ticket, nil
}

func (c *freshserviceClient) Close() error {
	return c.httpClient.Close()
}

// execute runs req until it gets an HTTP response or runs out of attempts.
// Only transport failures are retried; every HTTP error status is final.
func (c *freshserviceClient) execute(ctx context.Context, req request) (json.RawMessage, error) {
	var lastErr error
	attempts := c.config.MaxRetries

	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := c.do(ctx, req)
		if err == nil {
			return raw, nil
		}

		var tErr *transportError
		if !errors.As(err, &tErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}

		lastErr = tErr.cause
		log.Warnf("🔄 %s %s failed (attempt %d/%d): %v", req.method, req.path, attempt, attempts, lastErr)

		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, c.config.RetryDelay*time.Duration(attempt)); err != nil {
			return nil, fmt.Errorf("request cancelled: %w", err)
		}
	}

	log.Errorf("❌ %s %s failed after %d attempts: %v", req.method, req.path, attempts, lastErr)
	return nil, &TransportExhaustedError{Attempts: attempts, Cause: lastErr}
}

// do performs a single attempt.
func (c *freshserviceClient) do(ctx context.Context, req request) (json.RawMessage, error) {
	c.rl.Take()

	requestID := uuid.NewString()
	r := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", requestID)

	if len(req.query) > 0 {
		r.SetQueryParams(req.query)
	}

	if req.multipart != nil {
		r.SetMultipartFormData(req.multipart.fields)
		for _, file := range req.multipart.files {
			r.SetFileReader(fieldAttachments, file.name, bytes.NewReader(file.data))
		}
	} else {
		r.SetHeader("Content-Type", contentTypeJSON)
		if req.body != nil {
			r.SetBody(req.body)
		}
	}

	log.Debugf("%s %s%s [%s]", req.method, c.baseURL, req.path, requestID)

	resp, err := r.Execute(req.method, req.path)
	if err != nil {
		return nil, &transportError{cause: err}
	}

	text := resp.String()
	log.Debugf("API Response (%d) [%s]: %s", resp.StatusCode(), requestID, text)

	return classify(resp.StatusCode(), text)
}

// classify maps an HTTP response onto the client's error taxonomy.
func classify(status int, body string) (json.RawMessage, error) {
	switch {
	case status == http.StatusNotFound:
		log.Errorf("API Error %d: %s", status, body)
		return nil, ErrNotFound
	case status == http.StatusUnauthorized:
		log.Errorf("API Error %d: %s", status, body)
		return nil, ErrAuth
	case status >= http.StatusBadRequest:
		log.Errorf("API Error %d: %s", status, body)
		return nil, &APIError{Status: status, Body: body}
	}

	raw := json.RawMessage(body)
	if !json.Valid(raw) {
		log.Errorf("Failed to parse JSON response: %s", body)
		return nil, &DecodeError{Body: body, Err: errors.New("body is not valid JSON")}
	}
	return raw, nil
}

func decode(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &DecodeError{Body: string(raw), Err: err}
	}
	return nil
}

// readAttachments loads every file up front. A local read failure is final
// and never reaches the retry loop.
func readAttachments(paths []string) ([]attachment, error) {
	files := make([]attachment, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &AttachmentError{Path: path, Err: err}
		}
		files = append(files, attachment{name: filepath.Base(path), data: data})
	}
	return files, nil
}

func withKind(users []domain.User, email string, kind domain.UserKind) []domain.User {
	for i := range users {
		users[i].Email = email
		users[i].Kind = kind
	}
	return users
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
