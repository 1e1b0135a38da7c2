package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"assistantd/internal/coordinator"
	"assistantd/internal/identity"
	"assistantd/pkg/types"
)

// fakeService implements Service with scripted results.
type fakeService struct {
	status    types.StatusResponse
	ready     bool
	actionErr error
	available bool
	availErr  error
	dlRes     types.DownloadResult
	dlErr     error
	warmErr   error
	woken     bool
}

func (f *fakeService) Status() types.StatusResponse { return f.status }
func (f *fakeService) Ready() bool                  { return f.ready }
func (f *fakeService) Models() []types.ModelInfo    { return identity.Catalog() }
func (f *fakeService) Normalize(raw string) types.ModelID {
	return identity.Normalize(raw)
}

func (f *fakeService) ServerAction(_ context.Context, _ types.ServerAction) (types.ServerStatus, error) {
	if f.actionErr != nil {
		return types.ServerStatus{}, f.actionErr
	}
	return f.status.Server, nil
}

func (f *fakeService) IsAvailable(_ context.Context, raw string, _ bool) (types.ModelID, bool, error) {
	return identity.Normalize(raw), f.available, f.availErr
}

func (f *fakeService) Download(_ context.Context, raw string) (types.DownloadResult, error) {
	if f.dlRes.ID.IsNone() {
		f.dlRes.ID = identity.Normalize(raw)
	}
	return f.dlRes, f.dlErr
}

func (f *fakeService) Warmup(_ context.Context, _ string) error { return f.warmErr }

func (f *fakeService) Select(raw string) (types.ModelID, string) {
	return identity.Normalize(raw), "op-1"
}

func (f *fakeService) Wake() { f.woken = true }

func (f *fakeService) SubscribeStatus(fn func(types.ServerStatus)) func() {
	fn(f.status.Server)
	return func() {}
}

func (f *fakeService) SubscribeOps(_ types.OpClass, fn func([]types.ModelID)) func() {
	fn([]types.ModelID{})
	return func() {}
}

func doRequest(t *testing.T, svc Service, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := NewMux(svc)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	mux.ServeHTTP(rec, req)
	return rec
}

func TestStatusEndpoint(t *testing.T) {
	svc := &fakeService{status: types.StatusResponse{
		Server:      types.ServerStatus{Phase: types.PhaseRunning, Installed: true, Running: true},
		Downloading: []types.ModelID{},
		WarmingUp:   []types.ModelID{},
	}}
	rec := doRequest(t, svc, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d", rec.Code)
	}
	var out types.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Server.Ready() {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestServerActionConflictMapsTo409(t *testing.T) {
	svc := &fakeService{actionErr: coordinator.ErrAlreadyInProgress("server", "install")}
	rec := doRequest(t, svc, http.MethodPost, "/server/start")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestServerActionBridgeDownMapsTo503(t *testing.T) {
	svc := &fakeService{actionErr: coordinator.ErrBridgeUnavailable("connection refused")}
	rec := doRequest(t, svc, http.MethodPost, "/server/install")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestServerActionUnknownRejected(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/server/format-disk")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAvailabilityEndpoint(t *testing.T) {
	svc := &fakeService{available: true}
	rec := doRequest(t, svc, http.MethodGet, "/models/turbo/available")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d: %s", rec.Code, rec.Body.String())
	}
	var out types.AvailabilityResponse
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.ID != "large-v3-turbo" || !out.Available {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestDownloadPartialSuccessReportedAsUsable(t *testing.T) {
	svc := &fakeService{
		dlRes: types.DownloadResult{ID: "base", Downloaded: true, Detail: "warmup timed out"},
		dlErr: coordinator.ErrPartialSuccess("base", "warmup timed out"),
	}
	rec := doRequest(t, svc, http.MethodPost, "/models/base/download")
	if rec.Code != http.StatusOK {
		t.Fatalf("partial success must not be a failure status, got %d", rec.Code)
	}
	var out types.DownloadResult
	json.Unmarshal(rec.Body.Bytes(), &out)
	if !out.Downloaded || out.Warmed || out.Detail == "" {
		t.Fatalf("unexpected partial result: %s", rec.Body.String())
	}
}

func TestDownloadConflictMapsTo409(t *testing.T) {
	svc := &fakeService{dlErr: coordinator.ErrAlreadyInProgress(types.OpDownload, "base")}
	rec := doRequest(t, svc, http.MethodPost, "/models/base/download")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestWarmupRemoteFailureMapsTo502(t *testing.T) {
	svc := &fakeService{warmErr: coordinator.ErrRemoteFailure("model crashed during load")}
	rec := doRequest(t, svc, http.MethodPost, "/models/base/warmup")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var out types.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.Error != "model crashed during load" {
		t.Fatalf("detail lost: %s", rec.Body.String())
	}
}

func TestSelectReturnsOpID(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/models/turbo/select")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	var out types.SelectResponse
	json.Unmarshal(rec.Body.Bytes(), &out)
	if out.ID != "large-v3-turbo" || out.OpID == "" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestWakeEndpoint(t *testing.T) {
	svc := &fakeService{}
	rec := doRequest(t, svc, http.MethodPost, "/wake")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !svc.woken {
		t.Fatalf("wake signal not forwarded")
	}
}

func TestReadyz(t *testing.T) {
	svc := &fakeService{}
	if rec := doRequest(t, svc, http.MethodGet, "/readyz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while not ready, got %d", rec.Code)
	}
	svc.ready = true
	if rec := doRequest(t, svc, http.MethodGet, "/readyz"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestModelsEndpoint(t *testing.T) {
	rec := doRequest(t, &fakeService{}, http.MethodGet, "/models")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code %d", rec.Code)
	}
	var out types.ModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Models) == 0 {
		t.Fatalf("empty model catalog")
	}
}
