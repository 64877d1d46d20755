// Package remote implements the engine contracts against the companion
// processing services. The services share a work volume with this process,
// so requests and responses carry filesystem paths, not media bytes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vidlingo/dub-orchestrator/engine"
)

type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string) *client {
	return &client{
		baseURL: baseURL,
		// No client-level timeout; the pipeline attaches a per-stage
		// deadline through the request context.
		http: &http.Client{},
	}
}

func (c *client) postJSON(ctx context.Context, path string, reqBody, respBody interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return engine.Permanent(fmt.Errorf("failed to encode request for %s: %w", path, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return engine.Permanent(fmt.Errorf("failed to create request for %s: %w", path, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return engine.Transient(fmt.Errorf("engine call %s failed: %w", path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		raw, _ := io.ReadAll(resp.Body)
		return engine.Transient(fmt.Errorf("engine %s returned %d: %s", path, resp.StatusCode, raw))
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return engine.Permanent(fmt.Errorf("engine %s rejected request with %d: %s", path, resp.StatusCode, raw))
	}

	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return engine.Transient(fmt.Errorf("failed to decode response from %s: %w", path, err))
	}
	return nil
}
