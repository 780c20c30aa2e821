// Package settings loads and persists the agent's Settings from a YAML
// file, expanding environment variable references the same way the
// gateway's config loader does, but scoped to this module's much smaller
// configuration surface.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/delegant-go/deskagent/internal/deskagent"
)

// defaults applied to any field left zero after parsing.
var defaults = deskagent.Settings{
	Provider:         "anthropic",
	Model:            "claude-sonnet-4-20250514",
	MaxWidth:         1366,
	MaxHeight:        768,
	ShellTimeoutSecs: 60,
	MaxIterations:    50,
}

// Load reads and parses a Settings file at path, expanding $VAR and
// ${VAR} references against the process environment before parsing (so a
// committed config file can reference secrets without embedding them),
// and filling in any zero-valued field from defaults.
func Load(path string) (deskagent.Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return deskagent.Settings{}, fmt.Errorf("settings: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(raw))

	var s deskagent.Settings
	if err := yaml.Unmarshal([]byte(expanded), &s); err != nil {
		return deskagent.Settings{}, fmt.Errorf("settings: parse %s: %w", path, err)
	}

	applyDefaults(&s)
	return s, nil
}

// Save writes s to path as YAML.
func Save(path string, s deskagent.Settings) error {
	out, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}

func applyDefaults(s *deskagent.Settings) {
	if s.Provider == "" {
		s.Provider = defaults.Provider
	}
	if s.Model == "" {
		s.Model = defaults.Model
	}
	if s.MaxWidth == 0 {
		s.MaxWidth = defaults.MaxWidth
	}
	if s.MaxHeight == 0 {
		s.MaxHeight = defaults.MaxHeight
	}
	if s.ShellTimeoutSecs == 0 {
		s.ShellTimeoutSecs = defaults.ShellTimeoutSecs
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = defaults.MaxIterations
	}
}
