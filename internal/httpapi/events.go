package httpapi

import (
	"encoding/json"
	"net/http"

	"assistantd/pkg/types"
)

// serveEvents streams lifecycle changes as server-sent events. Each
// subscription immediately replays the current status, download set and
// warmup set, then pushes every subsequent change until the client goes
// away or the server shuts down.
func serveEvents(svc Service, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sseSubscribers.Inc()
	defer sseSubscribers.Dec()

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	// a slow client must never block the coordinator's notify path; when
	// the buffer is full the oldest event is dropped, state events are
	// snapshots so the latest one wins anyway
	out := make(chan types.Event, 16)
	push := func(ev types.Event) {
		for {
			select {
			case out <- ev:
				return
			default:
			}
			select {
			case <-out:
			default:
			}
		}
	}

	unsubStatus := svc.SubscribeStatus(func(st types.ServerStatus) {
		push(types.Event{Kind: types.EventStatus, Server: &st})
	})
	defer unsubStatus()
	unsubDownloads := svc.SubscribeOps(types.OpDownload, func(ids []types.ModelID) {
		push(types.Event{Kind: types.EventDownloads, Models: ids})
	})
	defer unsubDownloads()
	unsubWarmups := svc.SubscribeOps(types.OpWarmup, func(ids []types.ModelID) {
		push(types.Event{Kind: types.EventWarmups, Models: ids})
	})
	defer unsubWarmups()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-out:
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := w.Write([]byte("event: " + string(ev.Kind) + "\ndata: " + string(b) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
