package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"assistantd/internal/identity"
	"assistantd/pkg/types"
)

// OllamaClient drives the local llm runtime over its native HTTP API. It
// implements coordinator.ModelOps and coordinator.ModelLister.
type OllamaClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewOllamaClient constructs a client for the runtime at baseURL.
func NewOllamaClient(baseURL string, connectTimeout time.Duration, log zerolog.Logger) *OllamaClient {
	return &OllamaClient{
		baseURL: trimSlash(baseURL),
		client:  newHTTPClient(connectTimeout),
		log:     log,
	}
}

// CheckInstalled reports whether the runtime answers its version endpoint.
func (c *OllamaClient) CheckInstalled(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/version", nil)
	if err != nil {
		return false, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return false, mapTransportErr(err)
	}
	res.Body.Close()
	return res.StatusCode < 400, nil
}

// ListModels returns the runtime's installed model tags, normalized.
func (c *OllamaClient) ListModels(ctx context.Context) ([]types.ModelID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, mapTransportErr(err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, decodeError(res)
	}
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}
	ids := make([]types.ModelID, 0, len(out.Models))
	for _, m := range out.Models {
		if id := identity.Normalize(m.Name); !id.IsNone() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// PullModel downloads a model into the runtime. The context deadline is
// the caller's; pulls routinely run for tens of minutes.
func (c *OllamaClient) PullModel(ctx context.Context, id types.ModelID) error {
	return c.post(ctx, "/api/pull", map[string]any{"name": string(id), "stream": false})
}

// WarmupModel primes the model into memory with an empty generation so
// later inference calls are low-latency.
func (c *OllamaClient) WarmupModel(ctx context.Context, id types.ModelID) error {
	return c.post(ctx, "/api/generate", map[string]any{
		"model":      string(id),
		"prompt":     "",
		"stream":     false,
		"keep_alive": "10m",
	})
}

func (c *OllamaClient) post(ctx context.Context, path string, payload map[string]any) error {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.client.Do(req)
	if err != nil {
		return mapTransportErr(err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return decodeError(res)
	}
	return nil
}
