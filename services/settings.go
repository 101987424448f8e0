// services/settings.go
package services

import (
	"sync"

	"hostsboard/common"
)

// Settings holds the process-wide default for the local-resolver toggle.
// An override set through the API wins over the environment value until
// cleared. Nothing is persisted.
type Settings struct {
	mu       sync.RWMutex
	envValue bool
	override *bool
}

func NewSettings(cfg common.Config) *Settings {
	return &Settings{envValue: cfg.UseLocalResolver}
}

// UseLocalResolver returns the effective toggle and where it came from
// ("override" or "env").
func (s *Settings) UseLocalResolver() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.override != nil {
		return *s.override, "override"
	}
	return s.envValue, "env"
}

// SetUseLocalResolver sets the override; nil reverts to the environment value.
func (s *Settings) SetUseLocalResolver(v *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == nil {
		s.override = nil
		return
	}
	b := *v
	s.override = &b
}

// Options resolves per-request load options, falling back to the default
// toggle when the caller gave none.
func (s *Settings) Options(useLocal *bool) LoadOptions {
	if useLocal != nil {
		return LoadOptions{UseLocalResolver: *useLocal}
	}
	v, _ := s.UseLocalResolver()
	return LoadOptions{UseLocalResolver: v}
}
