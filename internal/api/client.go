// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/akjha-17/ragchat-tui/internal/model"
)

// Configuration constants for the backend API.
const (
	// DefaultBaseURL is where a local development backend listens.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for API requests. Ask calls
	// include retrieval plus LLM generation, so this is generous.
	DefaultTimeout = 120 * time.Second

	// DefaultMaxRetries is the retry budget for idempotent GET requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize bounds response bodies to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB

	// MaxUploadSize mirrors the backend's upload limit so oversized files
	// are rejected before any bytes cross the wire.
	MaxUploadSize = 20 * 1024 * 1024 // 20MB
)

// AllowedUploadExtensions mirrors the backend's accepted document types.
var AllowedUploadExtensions = map[string]bool{
	"pdf": true, "docx": true, "doc": true, "pptx": true,
	"ppt": true, "txt": true, "md": true, "xlsx": true,
}

// sharedHTTPClient pools connections across all backend requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// Error variables for common backend errors.
var (
	// ErrUnauthorized indicates a missing, invalid, or expired token.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrForbidden indicates the token lacks the required role.
	ErrForbidden = errors.New("insufficient privileges")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrFileTooLarge indicates an upload exceeded the backend's limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileType indicates an upload has a disallowed extension.
	ErrFileType = errors.New("file type not allowed")
)

// APIError represents a non-2xx response from the backend, preserving the
// server-provided detail message for user-facing display.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

// Detail extracts the server-provided detail text from err, or falls back
// to the given generic message.
func Detail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}

// TokenSource supplies the bearer token for authenticated calls.
// An empty token means the call goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource wrapping a fixed string.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() string { return string(s) }

// =============================================================================
// CLIENT
// =============================================================================

// Client is a typed HTTP client for the RAG backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	maxRetries int
	userAgent  string

	// askLimiter paces ask and feedback submissions so a scripted caller
	// cannot hammer the retrieval pipeline.
	askLimiter *rate.Limiter

	verbose bool
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
		tokens:     StaticToken(""),
		maxRetries: DefaultMaxRetries,
		userAgent:  "ragchat/" + Version,
		askLimiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

// Version is the client version reported in the User-Agent header.
// Overridden at build time.
var Version = "0.1.0"

// WithTokenSource sets the bearer token source for authenticated calls.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	if ts != nil {
		c.tokens = ts
	}
	return c
}

// WithTimeout sets the request timeout. This clones the HTTP client so the
// shared pooled transport keeps its defaults.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	clone := *sharedHTTPClient
	clone.Timeout = timeout
	c.httpClient = &clone
	return c
}

// WithMaxRetries sets the retry budget for idempotent requests.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// WithVerbose enables request/response logging. Bodies and auth headers
// are never logged.
func (c *Client) WithVerbose(v bool) *Client {
	c.verbose = v
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) setHeaders(req *http.Request) {
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

func (c *Client) logRequest(req *http.Request) {
	if c.verbose {
		log.Printf("API Request: %s %s", req.Method, req.URL.Path)
	}
}

func (c *Client) logResponse(resp *http.Response, duration time.Duration) {
	if c.verbose {
		log.Printf("API Response: %d %s (%v)", resp.StatusCode, resp.Status, duration)
	}
}

// readResponse reads a response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return body, nil
}

// handleErrorResponse converts a non-2xx response into a Go error,
// preferring the server's detail text.
func handleErrorResponse(statusCode int, body []byte) error {
	detail := ""
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil {
		detail = apiErr.detailText()
	}

	switch statusCode {
	case http.StatusUnauthorized:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
		}
		return ErrUnauthorized
	case http.StatusForbidden:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrForbidden, detail)
		}
		return ErrForbidden
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return ErrNotFound
	case http.StatusRequestEntityTooLarge:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrFileTooLarge, detail)
		}
		return ErrFileTooLarge
	default:
		if detail == "" {
			detail = strings.TrimSpace(string(body))
		}
		return &APIError{Status: statusCode, Detail: detail}
	}
}

// do performs a single request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	c.logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// getWithRetry performs a GET with exponential backoff on transport errors
// and 5xx responses. Only GETs are retried; see the package doc.
func (c *Client) getWithRetry(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(attempt)):
			}
		}

		lastErr = c.do(ctx, http.MethodGet, path, nil, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRetryable reports whether a GET failure is worth another attempt.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	// Sentinel errors (401/403/404) are never retryable; anything else is
	// a transport-level failure.
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound) {
		return false
	}
	return true
}

func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// =============================================================================
// HEALTH AND AUTH
// =============================================================================

// Health probes GET /health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getWithRetry(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DevToken requests a development token from a local backend. The backend
// rejects this when Azure auth is configured.
func (c *Client) DevToken(ctx context.Context, username string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	err := c.do(ctx, http.MethodPost, "/dev/token", map[string]string{"username": username}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.getWithRetry(ctx, "/auth/me", &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile applies a partial profile update and returns the result.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*model.User, error) {
	var u model.User
	if err := c.do(ctx, http.MethodPut, "/auth/profile", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// =============================================================================
// CHAT SESSIONS
// =============================================================================

// ListSessions enumerates the current user's chat sessions, most recently
// updated first (backend ordering).
func (c *Client) ListSessions(ctx context.Context) ([]model.Session, error) {
	var wires []sessionWire
	if err := c.getWithRetry(ctx, "/chat/sessions", &wires); err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(wires))
	for _, w := range wires {
		sessions = append(sessions, w.normalize())
	}
	return sessions, nil
}

// CreateSession creates a session with the given title.
func (c *Client) CreateSession(ctx context.Context, title string) (model.Session, error) {
	var w sessionWire
	err := c.do(ctx, http.MethodPost, "/chat/sessions", map[string]string{"title": title}, &w)
	if err != nil {
		return model.Session{}, err
	}
	return w.normalize(), nil
}

// SessionDetail fetches a session and its ordered message history.
func (c *Client) SessionDetail(ctx context.Context, id string) (model.Session, []model.Message, error) {
	var w sessionDetailWire
	if err := c.getWithRetry(ctx, "/chat/sessions/"+url.PathEscape(id), &w); err != nil {
		return model.Session{}, nil, err
	}
	messages := make([]model.Message, 0, len(w.Messages))
	for _, mw := range w.Messages {
		messages = append(messages, mw.normalize())
	}
	return w.Session.normalize(), messages, nil
}

// RenameSession updates a session's title.
func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	return c.do(ctx, http.MethodPut, "/chat/sessions/"+url.PathEscape(id), map[string]string{"title": title}, nil)
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/chat/sessions/"+url.PathEscape(id), nil, nil)
}

// =============================================================================
// ASK
// =============================================================================

// Ask submits a query bound to a session. Never retried: the backend
// persists the exchange on success, so retries could duplicate messages.
func (c *Client) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("empty query")
	}
	if err := c.askLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var w askWire
	if err := c.do(ctx, http.MethodPost, "/ask", req, &w); err != nil {
		return nil, err
	}
	return w.normalize(), nil
}

// =============================================================================
// FEEDBACK
// =============================================================================

// SubmitMessageFeedback attaches a rating and optional comment to a
// specific message.
func (c *Client) SubmitMessageFeedback(ctx context.Context, messageID int64, rating int, comment string) error {
	if !model.ValidRating(rating) {
		return fmt.Errorf("rating %d outside 1-5", rating)
	}
	if err := c.askLimiter.Wait(ctx); err != nil {
		return err
	}
	req := MessageFeedbackRequest{MessageID: messageID, Rating: rating, Comment: comment}
	return c.do(ctx, http.MethodPost, "/chat/feedback", req, nil)
}

// SubmitSessionFeedback records session-level feedback.
func (c *Client) SubmitSessionFeedback(ctx context.Context, req SessionFeedbackRequest) error {
	if !model.ValidRating(req.Rating) {
		return fmt.Errorf("rating %d outside 1-5", req.Rating)
	}
	if err := c.askLimiter.Wait(ctx); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/feedback", req, nil)
}

// ListFeedbacks retrieves recent feedback records (admin only).
func (c *Client) ListFeedbacks(ctx context.Context, limit int) ([]FeedbackRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	var wires []feedbackWire
	path := "/feedbacks?limit=" + strconv.Itoa(limit)
	if err := c.getWithRetry(ctx, path, &wires); err != nil {
		return nil, err
	}
	records := make([]FeedbackRecord, 0, len(wires))
	for _, w := range wires {
		records = append(records, w.normalize())
	}
	return records, nil
}

// =============================================================================
// DOCUMENTS AND STATS
// =============================================================================

// Upload sends one or more documents to the backend's index (admin only).
// Extension and size checks run client-side first so invalid files fail
// fast with the same errors the backend would return.
func (c *Client) Upload(ctx context.Context, paths []string) ([]UploadResult, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, p := range paths {
		name := filepath.Base(p)
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
		if !AllowedUploadExtensions[ext] {
			return nil, fmt.Errorf("%w: %s", ErrFileType, ext)
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", name, err)
		}
		if info.Size() > MaxUploadSize {
			return nil, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, name, info.Size())
		}

		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form file: %w", err)
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", c.userAgent)
	c.logRequest(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	var results []UploadResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return results, nil
}

// Reindex asks the backend to rebuild its vector index (admin only).
func (c *Client) Reindex(ctx context.Context, folder string) (*ReindexResult, error) {
	path := "/reindex"
	if folder != "" {
		path += "?folder=" + url.QueryEscape(folder)
	}
	var r ReindexResult
	if err := c.do(ctx, http.MethodPost, path, nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// UserStats fetches the current user's activity statistics.
func (c *Client) UserStats(ctx context.Context) (*UserStats, error) {
	var s UserStats
	if err := c.getWithRetry(ctx, "/user/stats", &s); err != nil {
		return nil, err
	}
	return &s, nil
}
