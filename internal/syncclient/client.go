// Package syncclient is the typed HTTP client for the Tonalli API. It wraps
// every remote resource operation (reminders, activities, summary) behind
// method calls, attaches the current bearer credential, and surfaces remote
// failures as a single error envelope.
package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tonalli/internal/api"
	"tonalli/internal/session"
)

const defaultTimeout = 15 * time.Second

// Client issues authenticated calls against one API base URL.
//
// The session provider is re-read on every call, so a refreshed credential
// is used transparently on the next request. No call is retried here; retry
// policy, if any, belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   session.Provider
	logger     *slog.Logger
}

func New(baseURL string, httpClient *http.Client, sessions session.Provider, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		sessions:   sessions,
		logger:     logger,
	}
}

func (c *Client) ListReminders(ctx context.Context, userID uint64) ([]api.Reminder, error) {
	var out []api.Reminder
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/reminders/%d", userID), nil, &out)
	return out, err
}

func (c *Client) CreateReminder(ctx context.Context, userID uint64, in api.CreateReminderRequest) (*api.Reminder, error) {
	var out api.Reminder
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/reminders/%d", userID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateReminder(ctx context.Context, userID, reminderID uint64, in api.UpdateReminderRequest) (*api.Reminder, error) {
	var out api.Reminder
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/reminders/%d/%d", userID, reminderID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteReminder(ctx context.Context, userID, reminderID uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/reminders/%d/%d", userID, reminderID), nil, nil)
}

func (c *Client) ListActivities(ctx context.Context, userID uint64) ([]api.Activity, error) {
	var out []api.Activity
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/agenda/%d", userID), nil, &out)
	return out, err
}

func (c *Client) CreateActivity(ctx context.Context, userID uint64, in api.CreateActivityRequest) (*api.Activity, error) {
	var out api.Activity
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/agenda/%d", userID), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteActivity(ctx context.Context, userID, activityID uint64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/agenda/%d/%d", userID, activityID), nil, nil)
}

func (c *Client) GetSummary(ctx context.Context, userID uint64) (*api.Summary, error) {
	var out api.Summary
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/summary/%d", userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me resolves the authenticated user behind the current credential.
func (c *Client) Me(ctx context.Context) (*api.User, error) {
	var out api.User
	if err := c.do(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token. The token is returned to
// the caller; storing it in a session provider is the caller's decision.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out tokenResp
	if err := c.do(ctx, http.MethodPost, "/auth/login", credentialsReq{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Register provisions a new account and returns its bearer token.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var out tokenResp
	if err := c.do(ctx, http.MethodPost, "/auth/register", credentialsReq{Email: email, Password: password}, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &RemoteError{Message: "encode request: " + err.Error()}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RemoteError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if token, ok := c.sessions.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api call failed", "method", method, "path", path, "error", err)
		return &RemoteError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readErrorMessage(resp.Body)
		c.logger.Warn("api call rejected", "method", method, "path", path, "status", resp.StatusCode, "message", msg)
		return &RemoteError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Status: resp.StatusCode, Message: "malformed response: " + err.Error()}
	}
	return nil
}

// readErrorMessage extracts a short human-readable message from an error
// body. Handlers answer either plain text or {"error": "..."}.
func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(bytes.TrimSpace(b)) == 0 {
		return "request failed"
	}
	var env struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &env) == nil && env.Error != "" {
		return env.Error
	}
	return strings.TrimSpace(string(b))
}
