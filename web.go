package main

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"hostsboard/common"
	"hostsboard/handlers"
)

//go:embed ui
var uiFiles embed.FS

type Health struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
	Hub       int       `json:"subscribers"`
}

func makeRouter(cfg common.Config, d handlers.Deps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := []string{}
	if cfg.UIOrigin != "" {
		allowedOrigins = append(allowedOrigins, cfg.UIOrigin)
	}
	// dev helpers
	allowedOrigins = append(allowedOrigins,
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         600,
	}))

	// -------- API
	r.Route("/api", func(api chi.Router) {
		api.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			common.RespondJSON(w, Health{Status: "ok", StartedAt: startedAt, Hub: d.Hub.Len()})
		})
		handlers.SetupAllRoutes(api, d)
	})

	// -------- Static dashboard
	sub, err := fs.Sub(uiFiles, "ui")
	if err != nil {
		common.FatalLog("ui: %v", err)
	}
	static := http.FileServer(http.FS(sub))
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/api") {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		static.ServeHTTP(w, req)
	})

	return r
}
