package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

// FallbackClient covers the slower verification path used when the
// supervisor bridge is unreachable: plain HTTP endpoints for model
// existence, download and warmup. It implements coordinator.ModelProber
// and coordinator.ModelOps.
type FallbackClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewFallbackClient constructs a fallback client for baseURL.
func NewFallbackClient(baseURL string, connectTimeout time.Duration, log zerolog.Logger) *FallbackClient {
	return &FallbackClient{
		baseURL: trimSlash(baseURL),
		client:  newHTTPClient(connectTimeout),
		log:     log,
	}
}

// CheckModelDownloaded verifies model presence through the slow path.
func (c *FallbackClient) CheckModelDownloaded(ctx context.Context, id types.ModelID) (bool, error) {
	var out struct {
		Exists bool `json:"exists"`
	}
	if err := c.post(ctx, "/models/exists", id, &out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// PullModel downloads the model through the slow path.
func (c *FallbackClient) PullModel(ctx context.Context, id types.ModelID) error {
	return c.post(ctx, "/models/download", id, nil)
}

// WarmupModel primes the model through the slow path.
func (c *FallbackClient) WarmupModel(ctx context.Context, id types.ModelID) error {
	return c.post(ctx, "/models/warmup", id, nil)
}

func (c *FallbackClient) post(ctx context.Context, path string, id types.ModelID, out any) error {
	b, _ := json.Marshal(map[string]string{"model": string(id)})
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
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
