package common

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every configuration key.
const EnvPrefix = "HOSTSBOARD_"

// Config holds the runtime settings read from the environment.
type Config struct {
	Bind               string
	ManifestURL        string
	HostsPath          string
	LocalResolverURL   string
	DoHURL             string
	UseLocalResolver   bool
	ResolveConcurrency int
	HTTPTimeout        time.Duration
	ReloadOnStart      bool
	RefreshInterval    time.Duration
	UIOrigin           string
}

// LoadConfig reads the HOSTSBOARD_* variables, applying defaults.
func LoadConfig() Config {
	return Config{
		Bind:               Env(EnvPrefix+"BIND", ":8080"),
		ManifestURL:        strings.TrimSpace(Env(EnvPrefix+"MANIFEST_URL", "")),
		HostsPath:          Env(EnvPrefix+"HOSTS_PATH", "/terraform/hostsfile/hosts"),
		LocalResolverURL:   Env(EnvPrefix+"LOCAL_RESOLVER_URL", "http://127.0.0.1:8053/resolve"),
		DoHURL:             Env(EnvPrefix+"DOH_URL", "https://cloudflare-dns.com/dns-query"),
		UseLocalResolver:   EnvBool(EnvPrefix+"USE_LOCAL_RESOLVER", "true"),
		ResolveConcurrency: EnvInt(EnvPrefix+"RESOLVE_CONCURRENCY", 16),
		HTTPTimeout:        EnvDur(EnvPrefix+"HTTP_TIMEOUT", "15s"),
		ReloadOnStart:      EnvBool(EnvPrefix+"RELOAD_ON_START", "true"),
		RefreshInterval:    EnvDur(EnvPrefix+"REFRESH_INTERVAL", "0s"),
		UIOrigin:           strings.TrimSpace(Env(EnvPrefix+"UI_ORIGIN", "")),
	}
}

// Env gets an environment variable with a default value
func Env(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// EnvBool gets an environment variable as a boolean with a default value
func EnvBool(key, def string) bool {
	return IsTrueish(Env(key, def))
}

// EnvInt returns an environment variable as an integer
func EnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

// EnvDur parses a duration variable, falling back to def when unset or invalid.
func EnvDur(key, def string) time.Duration {
	if d, err := time.ParseDuration(Env(key, def)); err == nil {
		return d
	}
	out, _ := time.ParseDuration(def)
	return out
}

func IsTrueish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return true
	}
	return false
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

// WriteJSON sends v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(v)
}
