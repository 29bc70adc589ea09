// Package client is a typed HTTP client for the diagnostic test records API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Test is a stored diagnostic test record as returned by the API.
type Test struct {
	ID          string    `json:"id"`
	PatientName string    `json:"patientName"`
	TestType    string    `json:"testType"`
	Result      string    `json:"result"`
	TestDate    time.Time `json:"testDate"`
	Notes       *string   `json:"notes"`
}

// Input is the body of a create or update call. A nil TestDate lets the
// server pick the time on create and keep the stored one on update.
type Input struct {
	PatientName string     `json:"patientName"`
	TestType    string     `json:"testType"`
	Result      string     `json:"result"`
	TestDate    *time.Time `json:"testDate,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// FieldError mirrors one entry of a validation failure body.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int          `json:"-"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return fmt.Sprintf("api error %d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }

// Option configures a Client.
type Option func(*resty.Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetry retries transport failures n times with a short backoff.
func WithRetry(n int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second)
	}
}

// WithRequestID sends a fixed X-Request-ID on every call.
func WithRequestID(id string) Option {
	return func(c *resty.Client) { c.SetHeader("X-Request-ID", id) }
}

type Client struct {
	http *resty.Client
}

// New returns a client for the API rooted at baseURL, e.g.
// "http://localhost:8000".
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+"/api").
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

func (c *Client) Create(ctx context.Context, in Input) (*Test, error) {
	var out Test
	if err := c.do(ctx, http.MethodPost, "/tests", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Get(ctx context.Context, id string) (*Test, error) {
	var out Test
	if err := c.do(ctx, http.MethodGet, "/tests/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns every record. orderByTestDate asks for newest test date first.
func (c *Client) List(ctx context.Context, orderByTestDate bool) ([]Test, error) {
	path := "/tests"
	if orderByTestDate {
		path += "?orderBy=testDate"
	}
	out := []Test{}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, id string, in Input) (*Test, error) {
	var out Test
	if err := c.do(ctx, http.MethodPut, "/tests/"+id, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a record and returns it as it was before deletion.
func (c *Client) Delete(ctx context.Context, id string) (*Test, error) {
	var out Test
	if err := c.do(ctx, http.MethodDelete, "/tests/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &APIError{}
	req := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}
	return nil
}
