// stream.go - live render events over websocket and SSE
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"hostsboard/common"
	"hostsboard/services"
	"hostsboard/utils"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsPongWait   = 2 * wsPingPeriod
)

func snapshotEvent(agg *services.Aggregator) services.Event {
	gen, rows := agg.Table().Snapshot()
	st := agg.Status()
	return services.Event{Type: services.EventSnapshot, Generation: gen, Rows: rows, Status: &st}
}

// SetupStreamRoutes registers /ws and /events. Both send a snapshot first,
// then every table and status change.
func SetupStreamRoutes(router chi.Router, d Deps) {
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := d.Upgrader.Upgrade(w, r, nil)
		if err != nil {
			common.DebugLog("ws: upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		// Subscribe before the snapshot so nothing falls in between.
		_, events, cancel := d.Hub.Subscribe()
		defer cancel()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadLimit(4096)
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(wsPongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func(e services.Event) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(e) == nil
		}
		if !send(snapshotEvent(d.Aggregator)) {
			return
		}

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case e, ok := <-events:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
						time.Now().Add(wsWriteWait))
					return
				}
				if !send(e) {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	})

	router.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		fl, ok := utils.WriteSSEHeader(w)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		_, events, cancel := d.Hub.Subscribe()
		defer cancel()

		if err := utils.WriteSSEEvent(w, fl, services.EventSnapshot, snapshotEvent(d.Aggregator)); err != nil {
			return
		}

		keepalive := time.NewTicker(wsPingPeriod)
		defer keepalive.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case <-keepalive.C:
				if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
					return
				}
				fl.Flush()
			case e, ok := <-events:
				if !ok {
					return
				}
				if err := utils.WriteSSEEvent(w, fl, e.Type, e); err != nil {
					return
				}
			}
		}
	})
}
