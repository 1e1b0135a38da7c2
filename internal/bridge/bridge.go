// Package bridge implements the transport boundary to the host-provided
// control surface: the supervisor managing the local inference server, the
// Ollama-style llm runtime, and the HTTP fallback endpoints consulted when
// the supervisor is unreachable.
package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"assistantd/internal/coordinator"
)

// newHTTPClient builds the shared transport. The client itself carries no
// timeout; every request must arrive with a context deadline owned by the
// caller, which knows the operation's cost class.
func newHTTPClient(connectTimeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr, Timeout: 0}
}

// errorPayload is the error body shape shared by the bridge and fallback
// endpoints. Detail carries the human-readable explanation when present.
type errorPayload struct {
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// mapTransportErr folds connection-level failures into BridgeUnavailable
// so callers can distinguish "unreachable" from a definite remote answer.
func mapTransportErr(err error) error {
	if err == nil {
		return nil
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return coordinator.ErrBridgeUnavailable(ue.Error())
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return coordinator.ErrBridgeUnavailable(ne.Error())
	}
	return err
}

// decodeError extracts the human-readable detail from an error response
// body, falling back to the HTTP status text.
func decodeError(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var payload errorPayload
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			return coordinator.ErrRemoteFailure(payload.Detail)
		}
		if payload.Error != "" {
			return coordinator.ErrRemoteFailure(payload.Error)
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 {
		return coordinator.ErrRemoteFailure(s)
	}
	return coordinator.ErrRemoteFailure(res.Status)
}

func trimSlash(s string) string { return strings.TrimRight(s, "/") }
