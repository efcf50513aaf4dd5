package clients

import (
	"context"
	"net/http"
	"time"
)

type HealthProbe struct {
	Name    string
	Client  *Client
	Path    string
	Timeout time.Duration
}

type HealthResult struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CheckHealth never fails: transport errors, timeouts and non-2xx answers all yield OK=false.
func CheckHealth(ctx context.Context, probe HealthProbe) HealthResult {
	timeout := probe.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := probe.Client.Do(ctx, http.MethodGet, probe.Path, "", nil, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return HealthResult{Name: probe.Name, OK: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	return HealthResult{Name: probe.Name, OK: ok, StatusCode: resp.StatusCode}
}
