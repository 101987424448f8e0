package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"hostsboard/services"
	"hostsboard/utils"
)

// Deps are the long-lived objects the routes operate on.
type Deps struct {
	Aggregator *services.Aggregator
	Settings   *services.Settings
	Hub        *utils.Hub
	Upgrader   *websocket.Upgrader
}

// SetupAllRoutes sets up all the handler routes
// This function is called from web.go to register all handler routes
func SetupAllRoutes(router chi.Router, d Deps) {
	if d.Upgrader == nil {
		d.Upgrader = utils.NewWSUpgrader("")
	}
	SetupSystemRoutes(router, d)
	SetupStreamRoutes(router, d)
}
