// system.go - rows, status, reload and settings routes
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"hostsboard/common"
	"hostsboard/services"
)

// Helper functions
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// parseBoolParam returns nil when the parameter is absent.
func parseBoolParam(r *http.Request, key string) *bool {
	s, ok := r.URL.Query()[key]
	if !ok || len(s) == 0 {
		return nil
	}
	b := common.IsTrueish(s[0])
	return &b
}

type rowsResponse struct {
	Generation uint64                `json:"generation"`
	Cycle      string                `json:"cycle"`
	Status     services.Status       `json:"status"`
	Items      []services.HostRecord `json:"items"`
	Total      int                   `json:"total"`
	Limit      int                   `json:"limit"`
	Offset     int                   `json:"offset"`
}

type settingsBody struct {
	UseLocalResolver *bool `json:"use_local_resolver"`
}

// SetupSystemRoutes configures the dashboard endpoints
func SetupSystemRoutes(router chi.Router, d Deps) {
	agg := d.Aggregator

	// Row listing with optional filters
	router.Get("/rows", func(w http.ResponseWriter, r *http.Request) {
		gen, items := agg.Table().Snapshot()

		repo := strings.TrimSpace(r.URL.Query().Get("repo"))
		env := strings.TrimSpace(r.URL.Query().Get("env"))
		q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
		limit := clamp(parseIntDefault(r.URL.Query().Get("limit"), 1000), 1, 10000)
		offset := clamp(parseIntDefault(r.URL.Query().Get("offset"), 0), 0, len(items))

		filtered := make([]services.HostRecord, 0, len(items))
		for _, h := range items {
			if repo != "" && !strings.EqualFold(h.Repo, repo) {
				continue
			}
			if env != "" && !strings.EqualFold(h.Env, env) {
				continue
			}
			if q != "" &&
				!strings.Contains(strings.ToLower(h.FQDN), q) &&
				!strings.Contains(strings.ToLower(h.IP), q) {
				continue
			}
			filtered = append(filtered, h)
		}
		lo := offset
		if lo > len(filtered) {
			lo = len(filtered)
		}
		hi := lo + limit
		if hi > len(filtered) {
			hi = len(filtered)
		}

		common.RespondJSON(w, rowsResponse{
			Generation: gen,
			Cycle:      agg.Cycle(),
			Status:     agg.Status(),
			Items:      filtered[lo:hi],
			Total:      len(filtered),
			Limit:      limit,
			Offset:     offset,
		})
	})

	router.Get("/rows/{fqdn}", func(w http.ResponseWriter, r *http.Request) {
		rec, ok := agg.Table().Lookup(chi.URLParam(r, "fqdn"))
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		common.RespondJSON(w, rec)
	})

	router.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, agg.Status())
	})

	// Reload: ?local=true|false overrides the default toggle for this cycle.
	router.Post("/reload", func(w http.ResponseWriter, r *http.Request) {
		opts := d.Settings.Options(parseBoolParam(r, "local"))
		id := agg.Reload(opts)
		common.InfoLog("reload requested cycle=%s local_resolver=%t", id, opts.UseLocalResolver)
		common.WriteJSON(w, http.StatusAccepted, map[string]any{
			"cycle":              id,
			"use_local_resolver": opts.UseLocalResolver,
		})
	})

	router.Get("/settings", func(w http.ResponseWriter, _ *http.Request) {
		v, src := d.Settings.UseLocalResolver()
		common.RespondJSON(w, map[string]any{"use_local_resolver": v, "source": src})
	})

	// PATCH {"use_local_resolver": true|false|null}; null clears the override.
	router.Patch("/settings", func(w http.ResponseWriter, r *http.Request) {
		var body settingsBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		d.Settings.SetUseLocalResolver(body.UseLocalResolver)
		v, src := d.Settings.UseLocalResolver()
		common.InfoLog("settings: use_local_resolver=%t (%s)", v, src)
		common.RespondJSON(w, map[string]any{"use_local_resolver": v, "source": src})
	})
}
