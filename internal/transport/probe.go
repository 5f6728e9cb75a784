package transport

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Connectivity reports whether the device can currently reach the remote
// service. Polled synchronously before a sync run begins.
type Connectivity interface {
	IsOnline() bool
}

// Probe checks connectivity with a short HEAD request against the API health
// endpoint. Any response at all counts as online; only a connection-level
// failure counts as offline.
type Probe struct {
	url        string
	httpClient *http.Client
}

// NewProbe creates a connectivity probe for the given API base URL.
func NewProbe(baseURL string) *Probe {
	return &Probe{
		url:        strings.TrimRight(baseURL, "/") + "/healthz",
		httpClient: &http.Client{Timeout: 2 * time.Second},
	}
}

// IsOnline implements Connectivity.
func (p *Probe) IsOnline() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
