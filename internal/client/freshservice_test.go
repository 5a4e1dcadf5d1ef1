package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"freshservice/ticketer/internal/config"
	"freshservice/ticketer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key-123"

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestClient(t *testing.T, baseURL string) (*freshserviceClient, *recordedSleeps) {
	t.Helper()
	cfg := config.FreshserviceConfig{
		Domain:     "acme.freshservice.com",
		APIKey:     testAPIKey,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RetryDelay: 10 * time.Millisecond,
	}

	c := newFreshserviceClient(cfg, baseURL)
	sleeps := &recordedSleeps{}
	c.sleep = sleeps.sleep
	t.Cleanup(func() { _ = c.Close() })
	return c, sleeps
}

func dropConnection(t *testing.T, w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	require.True(t, ok)
	conn, _, err := hj.Hijack()
	require.NoError(t, err)
	conn.Close()
}

func TestExecuteClassifiesErrorStatusWithoutRetry(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not found",
			status: http.StatusNotFound,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrNotFound) },
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrAuth) },
		},
		{
			name:   "bad request",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadRequest, apiErr.Status)
				assert.Equal(t, `{"description":"Validation failed"}`, apiErr.Body)
			},
		},
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, http.StatusBadGateway, apiErr.Status)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"description":"Validation failed"}`)
			}))
			defer server.Close()

			c, sleeps := newTestClient(t, server.URL)
			_, err := c.execute(context.Background(), request{method: http.MethodGet, path: "/workspaces"})

			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), hits.Load())
			assert.Empty(t, sleeps.delays)

			var exhausted *TransportExhaustedError
			assert.False(t, errors.As(err, &exhausted))
		})
	}
}

func TestExecuteSendsAuthAndJSONHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, testAPIKey, user)
		assert.Equal(t, "X", pass)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		io.WriteString(w, `{"ok":true}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	raw, err := c.execute(context.Background(), request{method: http.MethodGet, path: "/ticket_fields"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestExecuteUndecodableSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html>maintenance</html>`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	_, err := c.execute(context.Background(), request{method: http.MethodGet, path: "/workspaces"})

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, `<html>maintenance</html>`, decodeErr.Body)
}

func TestExecuteRetriesTransportFaults(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		dropConnection(t, w)
	}))
	defer server.Close()

	c, sleeps := newTestClient(t, server.URL)
	_, err := c.execute(context.Background(), request{method: http.MethodGet, path: "/workspaces"})

	var exhausted *TransportExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Error(t, exhausted.Cause)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, sleeps.delays)
}

func TestExecuteConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	c, sleeps := newTestClient(t, "http://"+addr)
	_, err = c.execute(context.Background(), request{method: http.MethodGet, path: "/workspaces"})

	var exhausted *TransportExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Len(t, sleeps.delays, 2)
}

func TestExecuteRecoversAfterTransportFault(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			dropConnection(t, w)
			return
		}
		io.WriteString(w, `{"workspaces":[]}`)
	}))
	defer server.Close()

	c, sleeps := newTestClient(t, server.URL)
	raw, err := c.execute(context.Background(), request{method: http.MethodGet, path: "/workspaces"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"workspaces":[]}`, string(raw))
	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeps.delays)
}

func TestExecuteStopsWhenCancelledBetweenAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dropConnection(t, w)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.execute(ctx, request{method: http.MethodGet, path: "/workspaces"})
	assert.ErrorIs(t, err, context.Canceled)

	var exhausted *TransportExhaustedError
	assert.False(t, errors.As(err, &exhausted))
}

func TestGetWorkspaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/workspaces", r.URL.Path)
		io.WriteString(w, `{"workspaces":[{"id":2,"name":"IT"},{"id":3,"name":"HR"}]}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	workspaces, err := c.GetWorkspaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Workspace{{ID: 2, Name: "IT"}, {ID: 3, Name: "HR"}}, workspaces)
}

func TestGetWorkspacesMissingKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items":[]}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	_, err := c.GetWorkspaces(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestGetWorkspacesEmptyList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"workspaces":[]}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	workspaces, err := c.GetWorkspaces(context.Background())
	require.NoError(t, err)
	assert.Empty(t, workspaces)
}

func TestGetTicketFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ticket_fields", r.URL.Path)
		io.WriteString(w, `{"ticket_fields":[{"id":1,"name":"category","label":"Category","choices":{"Hardware":{"Laptop":["Mac","Windows"]}}}]}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	fields, err := c.GetTicketFields(context.Background())
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, []string{"Hardware"}, domain.CategoryTree(fields).Names())
}

func TestFindRequestersAndAgents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "jane+it@example.com", r.URL.Query().Get("email"))
		assert.Contains(t, r.URL.RawQuery, "jane%2Bit%40example.com")
		switch r.URL.Path {
		case "/requesters":
			io.WriteString(w, `{"requesters":[]}`)
		case "/agents":
			io.WriteString(w, `{"agents":[{"id":42,"first_name":"Jane","last_name":"Doe"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)

	requesters, err := c.FindRequesters(context.Background(), "jane+it@example.com")
	require.NoError(t, err)
	assert.Empty(t, requesters)

	agents, err := c.FindAgents(context.Background(), "jane+it@example.com")
	require.NoError(t, err)
	require.Len(t, agents, 1)
	assert.Equal(t, domain.User{
		ID:        42,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane+it@example.com",
		Kind:      domain.UserKindAgent,
	}, agents[0])
}

func testPayload() domain.TicketPayload {
	return domain.TicketPayload{
		Email:        "jane@example.com",
		Subject:      "Request for Jane Doe: Laptop broken",
		Description:  "Laptop broken",
		Status:       domain.TicketStatusOpen,
		Priority:     domain.PriorityMedium,
		Category:     "Hardware",
		SubCategory:  "Laptop",
		ItemCategory: "Mac",
		WorkspaceID:  2,
		Source:       domain.TicketSourcePortal,
	}
}

const expectedPayloadJSON = `{"email":"jane@example.com","subject":"Request for Jane Doe: Laptop broken",` +
	`"description":"Laptop broken","status":2,"priority":2,"category":"Hardware","sub_category":"Laptop",` +
	`"item_category":"Mac","workspace_id":2,"source":2}`

func TestCreateTicketJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tickets", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, expectedPayloadJSON, string(body))

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ticket":{"id":1001,"subject":"Request for Jane Doe: Laptop broken","workspace_id":2}}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	ticket, err := c.CreateTicket(context.Background(), testPayload(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), ticket.ID)
}

func TestCreateTicketMultipart(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "screenshot.png")
	second := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(first, []byte("png-bytes"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("some notes"), 0o600))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		inputData := r.MultipartForm.Value["input_data"]
		require.Len(t, inputData, 1)
		assert.Equal(t, expectedPayloadJSON, inputData[0])

		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(inputData[0]), &decoded))
		assert.Equal(t, "Mac", decoded["item_category"])

		files := r.MultipartForm.File["attachments[]"]
		require.Len(t, files, 2)
		assert.Equal(t, "screenshot.png", files[0].Filename)
		assert.Equal(t, "notes.txt", files[1].Filename)

		f, err := files[1].Open()
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		f.Close()
		assert.Equal(t, "some notes", string(content))

		io.WriteString(w, `{"ticket":{"id":7}}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	ticket, err := c.CreateTicket(context.Background(), testPayload(), []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, int64(7), ticket.ID)
}

func TestCreateTicketUnreadableAttachmentIsNotRetried(t *testing.T) {
	dir := t.TempDir()
	readable := filepath.Join(dir, "screenshot.png")
	require.NoError(t, os.WriteFile(readable, []byte("png-bytes"), 0o600))
	locked := filepath.Join(dir, "locked.txt")
	require.NoError(t, os.WriteFile(locked, []byte("secret"), 0o000))

	cases := map[string]struct {
		path string
		root bool // root reads files regardless of mode bits
	}{
		"missing file":   {path: filepath.Join(dir, "gone.png"), root: true},
		"directory":      {path: dir, root: true},
		"no permissions": {path: locked},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if !tc.root && os.Geteuid() == 0 {
				t.Skip("permission bits are not enforced for root")
			}

			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				io.WriteString(w, `{"ticket":{"id":7}}`)
			}))
			defer server.Close()

			c, sleeps := newTestClient(t, server.URL)
			_, err := c.CreateTicket(context.Background(), testPayload(), []string{readable, tc.path})

			var attErr *AttachmentError
			require.ErrorAs(t, err, &attErr)
			assert.Equal(t, tc.path, attErr.Path)

			var exhausted *TransportExhaustedError
			assert.False(t, errors.As(err, &exhausted))
			assert.Equal(t, int32(0), hits.Load())
			assert.Empty(t, sleeps.delays)
		})
	}
}

func TestCreateTicketWithoutTicketInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errors":[]}`)
	}))
	defer server.Close()

	c, _ := newTestClient(t, server.URL)
	_, err := c.CreateTicket(context.Background(), testPayload(), nil)
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestNewFreshserviceClientUsesDomainBaseURL(t *testing.T) {
	c := NewFreshserviceClient(config.FreshserviceConfig{Domain: "acme.freshservice.com", APIKey: testAPIKey})
	defer c.Close()

	fc, ok := c.(*freshserviceClient)
	require.True(t, ok)
	assert.Equal(t, "https://acme.freshservice.com/api/v2", fc.baseURL)
	assert.Equal(t, 1, fc.config.MaxRetries)
}
