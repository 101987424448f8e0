// utils/sse.go
package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// WriteSSEHeader sets the necessary headers for Server-Sent Events and returns a flusher
func WriteSSEHeader(w http.ResponseWriter) (http.Flusher, bool) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	// Disable proxy buffering (nginx)
	w.Header().Set("X-Accel-Buffering", "no")
	fl, ok := w.(http.Flusher)
	return fl, ok
}

// WriteSSEEvent writes v as a named SSE event and flushes.
func WriteSSEEvent(w http.ResponseWriter, fl http.Flusher, event string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	if fl != nil {
		fl.Flush()
	}
	return nil
}

// NewWSUpgrader returns an upgrader that accepts same-origin requests, the
// configured UI origin and local dev servers.
func NewWSUpgrader(uiOrigin string) *websocket.Upgrader {
	ui := strings.TrimSpace(uiOrigin)
	return &websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 32 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (ui != "" && origin == ui) {
				return true
			}
			if strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://") == r.Host {
				return true
			}
			// dev helpers
			return strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")
		},
	}
}
