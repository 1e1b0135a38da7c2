package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"assistantd/pkg/types"
)

// ServerClient talks to the supervisor that owns the local inference
// server process. It implements coordinator.ServerOps and the fast-path
// coordinator.ModelProber.
type ServerClient struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewServerClient constructs a supervisor client for baseURL.
func NewServerClient(baseURL string, connectTimeout time.Duration, log zerolog.Logger) *ServerClient {
	return &ServerClient{
		baseURL: trimSlash(baseURL),
		client:  newHTTPClient(connectTimeout),
		log:     log,
	}
}

func (c *ServerClient) GetStatus(ctx context.Context) (types.ServerStatus, error) {
	return c.status(ctx, http.MethodGet, "/v1/server/status")
}

func (c *ServerClient) CheckHealth(ctx context.Context) (types.ServerStatus, error) {
	return c.status(ctx, http.MethodGet, "/v1/server/health")
}

func (c *ServerClient) Install(ctx context.Context) (types.ServerStatus, error) {
	return c.status(ctx, http.MethodPost, "/v1/server/install")
}

func (c *ServerClient) Start(ctx context.Context) (types.ServerStatus, error) {
	return c.status(ctx, http.MethodPost, "/v1/server/start")
}

func (c *ServerClient) Stop(ctx context.Context) (types.ServerStatus, error) {
	return c.status(ctx, http.MethodPost, "/v1/server/stop")
}

func (c *ServerClient) Restart(ctx context.Context) (types.ServerStatus, error) {
	return c.status(ctx, http.MethodPost, "/v1/server/restart")
}

func (c *ServerClient) Reinstall(ctx context.Context) (types.ServerStatus, error) {
	return c.status(ctx, http.MethodPost, "/v1/server/reinstall")
}

// CheckModelDownloaded asks the supervisor whether the model's weights
// are present on disk.
func (c *ServerClient) CheckModelDownloaded(ctx context.Context, id types.ModelID) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models/"+string(id)+"/downloaded", nil)
	if err != nil {
		return false, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return false, mapTransportErr(err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return false, decodeError(res)
	}
	var out struct {
		Downloaded bool `json:"downloaded"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Downloaded, nil
}

func (c *ServerClient) status(ctx context.Context, method, path string) (types.ServerStatus, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return types.ServerStatus{}, err
	}
	res, err := c.client.Do(req)
	if err != nil {
		return types.ServerStatus{}, mapTransportErr(err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return types.ServerStatus{}, decodeError(res)
	}
	var st types.ServerStatus
	if err := json.NewDecoder(res.Body).Decode(&st); err != nil {
		return types.ServerStatus{}, err
	}
	return st, nil
}
