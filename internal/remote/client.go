// Package remote provides the client for the shared story store.
//
// The subsystem only needs the create operation: reading the shared feed
// requires connectivity and is handled elsewhere.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mkowalski/scrawl/internal/queue"
)

// Client creates story records in the remote store.
//
// Create returns the remote-assigned identifier. The local pending id is
// never sent: it is a purely local handle.
type Client interface {
	Create(ctx context.Context, draft queue.StoryDraft) (string, error)
}

// ErrorKind classifies a remote write failure.
type ErrorKind int

const (
	// KindConnectivity indicates a transport failure or server-side error:
	// the write may succeed if retried later.
	KindConnectivity ErrorKind = iota

	// KindRejected indicates the remote store refused the payload.
	KindRejected
)

// String returns a human-readable representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// WriteError is a failed remote create.
type WriteError struct {
	Kind   ErrorKind
	Status int // HTTP status, 0 for transport failures
	Err    error
}

// Error implements error.
func (e *WriteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote write failed (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("remote write failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// HTTPClient talks to the story store over its JSON HTTP API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the store at baseURL.
//
// The timeout bounds each request on top of whatever deadline the caller's
// context carries; zero means 10 seconds.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// createResponse is the story store's reply to a successful create.
type createResponse struct {
	ID string `json:"id"`
}

// Create implements Client.
func (c *HTTPClient) Create(ctx context.Context, draft queue.StoryDraft) (string, error) {
	body, err := json.Marshal(draft)
	if err != nil {
		return "", &WriteError{Kind: KindRejected, Err: fmt.Errorf("failed to encode draft: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stories", bytes.NewReader(body))
	if err != nil {
		return "", &WriteError{Kind: KindConnectivity, Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &WriteError{Kind: KindConnectivity, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var created createResponse
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			return "", &WriteError{Kind: KindConnectivity, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
		}
		if created.ID == "" {
			return "", &WriteError{Kind: KindConnectivity, Status: resp.StatusCode, Err: fmt.Errorf("response missing story id")}
		}
		return created.ID, nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &WriteError{Kind: KindRejected, Status: resp.StatusCode, Err: fmt.Errorf("store rejected draft")}

	default:
		return "", &WriteError{Kind: KindConnectivity, Status: resp.StatusCode, Err: fmt.Errorf("store unavailable")}
	}
}
