// Package client talks to the expense tracker REST API (base path /api).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/trace"
)

const maxErrorBody = 512

// StatusError reports a non-2xx response. The controller treats every
// instance the same way; the status is kept for logs and tests.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// CategoryRef is the {id} reference sent in expense bodies.
type CategoryRef struct {
	ID int64 `json:"id"`
}

// ExpenseRequest is the body of POST /expenses and PUT /expenses/{id}.
type ExpenseRequest struct {
	ID          int64        `json:"id,omitempty"`
	Description string       `json:"description"`
	Amount      core.Money   `json:"amount"`
	Date        string       `json:"date"`
	Category    *CategoryRef `json:"category,omitempty"`
}

// CategoryRequest is the body of POST /categories.
type CategoryRequest struct {
	Name string `json:"name"`
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *log.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request issued by the client. It applies to a
// copy of the http.Client, so a client passed to WithHTTPClient is left as
// is.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentClient) }
}

// New returns a client rooted at baseURL, e.g. "http://localhost:8080/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, req CategoryRequest) (core.Category, error) {
	var out core.Category
	err := c.do(ctx, http.MethodPost, "/categories", req, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var out []core.Expense
	if err := c.do(ctx, http.MethodGet, "/expenses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, req ExpenseRequest) (core.Expense, error) {
	var out core.Expense
	err := c.do(ctx, http.MethodPost, "/expenses", req, &out)
	return out, err
}

func (c *Client) UpdateExpense(ctx context.Context, id int64, req ExpenseRequest) (core.Expense, error) {
	req.ID = id
	var out core.Expense
	err := c.do(ctx, http.MethodPut, "/expenses/"+strconv.FormatInt(id, 10), req, &out)
	return out, err
}

func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/expenses/"+strconv.FormatInt(id, 10), nil, nil)
}

// Ping checks that the categories endpoint answers; used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/categories", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := trace.RequestID(ctx); id != "" {
		req.Header.Set(trace.Header, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed", log.FieldMethod, method, log.FieldPath, path, log.FieldError, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
