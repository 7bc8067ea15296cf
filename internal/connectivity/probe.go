package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Status is the current belief about network reachability.
//
// Reachable implies Connected: a device can be connected to a network that
// cannot reach the remote store. Status has no identity beyond "current
// value" and is replaced wholesale on each observation.
type Status struct {
	Connected bool `json:"connected"`
	Reachable bool `json:"reachable"`
}

// Online reports whether the remote store is believed reachable.
func (s Status) Online() bool {
	return s.Connected && s.Reachable
}

// String returns a short human-readable form, e.g. "online" or "offline".
func (s Status) String() string {
	switch {
	case s.Reachable:
		return "online"
	case s.Connected:
		return "connected (unreachable)"
	default:
		return "offline"
	}
}

// Probe observes the platform's network reachability.
//
// A probe error means "no connectivity", which is a normal operating state;
// callers degrade it to an offline Status rather than surfacing it.
type Probe interface {
	Current(ctx context.Context) (Status, error)
}

// HTTPProbe checks reachability by issuing a HEAD request against the
// remote store's base URL.
type HTTPProbe struct {
	url    string
	client *http.Client
}

// NewHTTPProbe creates a probe for the given base URL. The probe uses a
// short timeout of its own so a hung network never stalls the monitor.
func NewHTTPProbe(baseURL string) *HTTPProbe {
	return &HTTPProbe{
		url: baseURL,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

// Current implements Probe. Any response from the server, including an
// error status, proves reachability; only transport failures count as
// offline.
func (p *HTTPProbe) Current(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return Status{}, fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("probe request failed: %w", err)
	}
	_ = resp.Body.Close()

	return Status{Connected: true, Reachable: true}, nil
}
