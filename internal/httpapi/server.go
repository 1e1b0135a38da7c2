package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"assistantd/internal/coordinator"
	"assistantd/pkg/types"
)

// Service defines the coordinator surface required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	Ready() bool
	Models() []types.ModelInfo
	Normalize(raw string) types.ModelID
	ServerAction(ctx context.Context, action types.ServerAction) (types.ServerStatus, error)
	IsAvailable(ctx context.Context, raw string, force bool) (types.ModelID, bool, error)
	Download(ctx context.Context, raw string) (types.DownloadResult, error)
	Warmup(ctx context.Context, raw string) error
	Select(raw string) (types.ModelID, string)
	Wake()
	SubscribeStatus(fn func(types.ServerStatus)) func()
	SubscribeOps(class types.OpClass, fn func([]types.ModelID)) func()
}

// actionTimeout bounds server lifecycle actions; install/reinstall pull
// binaries and can take a while, but not download-long.
const actionTimeout = 5 * time.Minute

var validActions = map[types.ServerAction]bool{
	types.ActionInstall:   true,
	types.ActionStart:     true,
	types.ActionStop:      true,
	types.ActionRestart:   true,
	types.ActionReinstall: true,
}

// NewMux builds the router exposing the coordinator to the UI layer.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "app://*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Use(requestLogger)
	r.Use(MetricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// Status godoc
	// @Summary  Current lifecycle snapshot
	// @Produce  json
	// @Success  200 {object} types.StatusResponse
	// @Router   /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: svc.Models()})
	})

	// ServerAction godoc
	// @Summary  Run a server lifecycle action
	// @Param    action path string true "install|start|stop|restart|reinstall"
	// @Produce  json
	// @Success  200 {object} types.ActionResponse
	// @Failure  409 {object} types.ErrorResponse
	// @Failure  503 {object} types.ErrorResponse
	// @Router   /server/{action} [post]
	r.Post("/server/{action}", func(w http.ResponseWriter, r *http.Request) {
		action := types.ServerAction(chi.URLParam(r, "action"))
		if !validActions[action] {
			writeJSONError(w, http.StatusBadRequest, "unknown server action: "+string(action))
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		ctx, cancelT := context.WithTimeout(ctx, actionTimeout)
		defer cancelT()
		st, err := svc.ServerAction(ctx, action)
		if err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.ActionResponse{Server: st})
	})

	r.Get("/models/{id}/available", func(w http.ResponseWriter, r *http.Request) {
		force := r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true"
		id, ok, err := svc.IsAvailable(r.Context(), chi.URLParam(r, "id"), force)
		if err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		if id.IsNone() {
			writeJSONError(w, http.StatusBadRequest, "empty model id")
			return
		}
		writeJSON(w, http.StatusOK, types.AvailabilityResponse{ID: id, Available: ok})
	})

	// Download godoc
	// @Summary  Download a model, then warm it up
	// @Param    id path string true "model id or alias"
	// @Produce  json
	// @Success  200 {object} types.DownloadResult
	// @Failure  409 {object} types.ErrorResponse
	// @Failure  502 {object} types.ErrorResponse
	// @Router   /models/{id}/download [post]
	r.Post("/models/{id}/download", func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		if svc.Normalize(raw).IsNone() {
			writeJSONError(w, http.StatusBadRequest, "empty model id")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		res, err := svc.Download(ctx, raw)
		if err != nil {
			// downloaded-but-not-warmed is usable; report the partial
			// outcome instead of a failure status
			if coordinator.IsPartialSuccess(err) {
				writeJSON(w, http.StatusOK, res)
				return
			}
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Post("/models/{id}/warmup", func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		id := svc.Normalize(raw)
		if id.IsNone() {
			writeJSONError(w, http.StatusBadRequest, "empty model id")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Warmup(ctx, raw); err != nil {
			writeJSONError(w, statusForErr(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "warmed": true})
	})

	r.Post("/models/{id}/select", func(w http.ResponseWriter, r *http.Request) {
		id, op := svc.Select(chi.URLParam(r, "id"))
		writeJSON(w, http.StatusAccepted, types.SelectResponse{ID: id, OpID: op})
	})

	r.Post("/wake", func(w http.ResponseWriter, r *http.Request) {
		svc.Wake()
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		serveEvents(svc, w, r)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		writeJSONError(w, http.StatusServiceUnavailable, "server not ready")
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	MountSwagger(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}
