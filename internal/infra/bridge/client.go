// Package bridge talks to wallet providers exposed by a local wallet bridge
// over JSON-RPC 2.0.
//
// This package contains:
//   - Client: JSON-RPC over HTTP transport with health tracking
//   - Wallet: domain.Provider backed by one bridge endpoint
//   - Handle: domain.Capability bound to a bridge session token
//   - NewRegistry: builds a provider registry from configuration
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// RPCError is an error object returned by the bridge. Its text is the
// wallet's own message so error classification sees it unchanged.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// HealthStatus represents the health state of a bridge endpoint.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}

// Client implements JSON-RPC over HTTP against a wallet bridge.
type Client struct {
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
}

// NewClient creates a bridge client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
}

// Call makes a single JSON-RPC call and decodes the result into out.
// A nil out discards the result.
func (c *Client) Call(ctx context.Context, method string, params []any, out any) error {
	start := time.Now()

	if params == nil {
		params = []any{}
	}
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      c.nextID.Add(1),
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("bridge call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		c.recordFailure()
		return fmt.Errorf("parse response: %w", err)
	}

	// A wallet-level rejection still means the bridge is reachable.
	if rpcResp.Error != nil {
		c.recordSuccess(time.Since(start))
		return rpcResp.Error
	}

	c.recordSuccess(time.Since(start))

	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// GetHealth returns the endpoint health.
func (c *Client) GetHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Close cleans up resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Latency = c.totalLatency / time.Duration(c.successCount)
	c.updateErrorRate()
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.health.LastFailureAt = time.Now()
	c.updateErrorRate()
}

func (c *Client) updateErrorRate() {
	total := c.successCount + c.failureCount
	if total == 0 {
		return
	}
	c.health.ErrorRate = float64(c.failureCount) / float64(total)
	c.health.Available = c.health.ErrorRate < 0.5
}
