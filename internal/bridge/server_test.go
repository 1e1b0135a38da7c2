package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"assistantd/internal/coordinator"
	"assistantd/pkg/types"
)

func newTestServerClient(t *testing.T, handler http.Handler) (*ServerClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewServerClient(srv.URL, time.Second, zerolog.Nop()), srv
}

func TestServerClientDecodesStatus(t *testing.T) {
	c, _ := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/server/health" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(types.ServerStatus{
			Phase: types.PhaseRunning, Installed: true, Running: true,
		})
	}))
	st, err := c.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !st.Ready() || st.Phase != types.PhaseRunning {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestServerClientActionsUsePost(t *testing.T) {
	var method, path string
	c, _ := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		json.NewEncoder(w).Encode(types.ServerStatus{Phase: types.PhaseInstalling})
	}))
	if _, err := c.Install(context.Background()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if method != http.MethodPost || path != "/v1/server/install" {
		t.Fatalf("unexpected request %s %s", method, path)
	}
}

func TestServerClientExtractsErrorDetail(t *testing.T) {
	c, _ := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "port 8771 already in use"})
	}))
	_, err := c.Start(context.Background())
	if !coordinator.IsRemoteFailure(err) {
		t.Fatalf("expected RemoteFailure, got %v", err)
	}
	if err.Error() != "port 8771 already in use" {
		t.Fatalf("detail not extracted: %q", err.Error())
	}
}

func TestServerClientUnreachableMapsToBridgeUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close() // nothing listens here anymore
	c := NewServerClient(url, 200*time.Millisecond, zerolog.Nop())
	_, err := c.GetStatus(context.Background())
	if !coordinator.IsBridgeUnavailable(err) {
		t.Fatalf("expected BridgeUnavailable, got %v", err)
	}
	if _, err := c.CheckModelDownloaded(context.Background(), "base"); !coordinator.IsBridgeUnavailable(err) {
		t.Fatalf("expected BridgeUnavailable for probe, got %v", err)
	}
}

func TestServerClientCheckModelDownloaded(t *testing.T) {
	c, _ := newTestServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models/base/downloaded" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]bool{"downloaded": true})
	}))
	ok, err := c.CheckModelDownloaded(context.Background(), "base")
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !ok {
		t.Fatalf("expected downloaded=true")
	}
}
