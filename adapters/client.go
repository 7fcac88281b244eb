package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/patrick-commits/dark-site-metering/common"
)

// Client performs rate-limited HTTPS calls against the control plane. Dark-site
// appliances run with self-signed certificates, so verification is skipped.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter

	mutCounters sync.Mutex
	counters    map[string]int
}

// NewClient creates a new control-plane HTTP client
func NewClient(baseURL string, timeout time.Duration, limiter *rate.Limiter) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec
	}

	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		limiter:  limiter,
		counters: make(map[string]int),
	}
}

// BaseURL returns the configured control-plane base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient exposes the underlying http.Client so the session manager can
// share the same transport and timeout
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get performs a GET against the given path, authenticating with the session
// cookie when one is held, falling back to the basic pair otherwise
func (c *Client) Get(ctx context.Context, cred *common.Credential, path string) ([]byte, error) {
	return c.do(ctx, cred, http.MethodGet, path, nil)
}

// PostJSON performs a POST with a JSON body against the given path
func (c *Client) PostJSON(ctx context.Context, cred *common.Credential, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	return c.do(ctx, cred, http.MethodPost, path, payload)
}

func (c *Client) do(ctx context.Context, cred *common.Credential, method string, path string, payload []byte) ([]byte, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		c.count(path, "error")
		return nil, err
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != nil {
		if len(cred.Cookie) > 0 {
			req.Header.Set("Cookie", cred.Cookie)
		}
		req.SetBasicAuth(cred.Username, cred.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.count(path, "error")
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.count(path, "error")
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", common.ErrUnauthorized, path)
		}
		return nil, &common.StatusError{Endpoint: path, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.count(path, "error")
		return nil, err
	}

	c.count(path, "success")

	return body, nil
}

func (c *Client) count(endpoint string, status string) {
	c.mutCounters.Lock()
	defer c.mutCounters.Unlock()

	c.counters[endpoint+"|"+status]++
}

// TakeCounters returns the per-endpoint request counters accumulated since the
// previous call and resets them. Called once per cycle by the aggregator.
func (c *Client) TakeCounters() map[string]int {
	c.mutCounters.Lock()
	defer c.mutCounters.Unlock()

	taken := c.counters
	c.counters = make(map[string]int)

	return taken
}

// IsInterfaceNil returns true if the value under the interface is nil
func (c *Client) IsInterfaceNil() bool {
	return c == nil
}
