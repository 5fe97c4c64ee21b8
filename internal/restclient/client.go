package restclient

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

	log "github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"rbacview/internal/metrics"
)

// TokenSource yields the bearer token attached to each request.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource returning a fixed token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. The default client has
// no timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client issues single-attempt requests against the REST backend.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code    int
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return e.Status
	}
	return e.Status + ": " + e.Message
}

// IsStatus reports whether err carries the given HTTP status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Do sends the request described by e. body may be nil, a []byte sent as is,
// or any value encoded as JSON. When out is non-nil the response is decoded
// into it.
func (c *Client) Do(ctx context.Context, e Endpoint, body any, out any) error {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rd = bytes.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", e, err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, e.Method, c.baseURL+e.URI(), rd)
	if err != nil {
		return fmt.Errorf("build %s: %w", e, err)
	}
	req.Header.Set("Accept", "application/json")
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RESTRequests.WithLabelValues(e.Method, "error").Inc()
		return fmt.Errorf("%s: %w", e, err)
	}
	defer resp.Body.Close()
	metrics.RESTRequests.WithLabelValues(e.Method, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", e, err)
	}

	log.WithFields(log.Fields{"method": e.Method, "path": e.URI(), "status": resp.StatusCode}).Debug("rest call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Code:    resp.StatusCode,
			Status:  http.StatusText(resp.StatusCode),
			Message: errorMessage(data),
		}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", e, err)
	}
	return nil
}

func errorMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		return payload.Message
	}
	return strings.TrimSpace(string(data))
}

// List fetches a collection. The backend may answer with a bare JSON array or
// with a Kubernetes List object carrying "items".
func (c *Client) List(ctx context.Context, e Endpoint) ([]unstructured.Unstructured, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, e, nil, &raw); err != nil {
		return nil, err
	}
	return decodeCollection(raw)
}

func decodeCollection(raw json.RawMessage) ([]unstructured.Unstructured, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []unstructured.Unstructured{}, nil
	}

	var items []map[string]any
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
	} else {
		var list struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		items = list.Items
	}

	out := make([]unstructured.Unstructured, 0, len(items))
	for _, obj := range items {
		if obj == nil {
			continue
		}
		out = append(out, unstructured.Unstructured{Object: obj})
	}
	return out, nil
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, e Endpoint) (*unstructured.Unstructured, error) {
	obj := map[string]any{}
	if err := c.Do(ctx, e, nil, &obj); err != nil {
		return nil, err
	}
	return &unstructured.Unstructured{Object: obj}, nil
}

type AccessReviewRequest struct {
	Verb      string  `json:"verb"`
	Resource  string  `json:"resource"`
	Group     string  `json:"group,omitempty"`
	Namespace *string `json:"namespace,omitempty"`
	Name      string  `json:"name,omitempty"`

	// User and Groups ask on behalf of another subject instead of the
	// caller.
	User   string   `json:"user,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

type AccessReviewResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func (c *Client) CanI(ctx context.Context, req AccessReviewRequest) (AccessReviewResult, error) {
	var res AccessReviewResult
	err := c.Do(ctx, AccessReview(), req, &res)
	return res, err
}
