// Package prefs remembers editor preferences between runs, currently the
// color theme. The file lives at prefs_path (default ~/.config/nudge/prefs.toml).
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/nudge/internal/config"
)

// DefaultTheme is used until the user picks one.
const DefaultTheme = "Nightfox"

// Prefs holds editor preferences.
type Prefs struct {
	Theme string `toml:"theme"`
}

// Load reads preferences from path. A missing, unreadable or malformed file
// yields the defaults.
func Load(path string) Prefs {
	p := Prefs{Theme: DefaultTheme}

	resolved, err := config.ExpandPath(path)
	if err != nil {
		return p
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return p // Graceful degradation
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return Prefs{Theme: DefaultTheme}
	}
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = DefaultTheme
	}
	return p
}

// Save writes preferences to path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := config.ExpandPath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
