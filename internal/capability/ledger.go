package capability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/nudge/internal/config"
)

// Status is the recorded answer for a capability.
type Status string

const (
	StatusUnknown Status = ""
	StatusGranted Status = "granted"
	StatusDenied  Status = "denied"
)

// Ledger remembers capability answers across runs.
type Ledger struct {
	mu      sync.Mutex
	path    string
	entries map[string]Status
}

type ledgerFile struct {
	Capabilities map[string]string `toml:"capabilities"`
}

// LoadLedger reads the ledger at path, starting empty when the file is
// missing or unreadable. An empty path keeps answers in memory only.
func LoadLedger(path string) *Ledger {
	l := &Ledger{path: path, entries: make(map[string]Status)}

	resolved, err := config.ExpandPath(path)
	if err != nil {
		return l
	}
	file, err := os.Open(resolved)
	if err != nil {
		return l // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return l
	}
	var raw ledgerFile
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return l
	}
	for kind, status := range raw.Capabilities {
		switch Status(strings.TrimSpace(status)) {
		case StatusGranted:
			l.entries[kind] = StatusGranted
		case StatusDenied:
			l.entries[kind] = StatusDenied
		}
	}
	return l
}

// Status returns the recorded answer for kind.
func (l *Ledger) Status(kind string) Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[kind]
}

// Entry is one remembered answer.
type Entry struct {
	Capability string
	Status     Status
}

// Entries lists the remembered answers sorted by capability.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for kind, status := range l.entries {
		out = append(out, Entry{Capability: kind, Status: status})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capability < out[j].Capability })
	return out
}

// Record stores an answer and writes the ledger. StatusUnknown forgets the
// capability so the next check asks again.
func (l *Ledger) Record(kind string, status Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if status == StatusUnknown {
		delete(l.entries, kind)
	} else {
		l.entries[kind] = status
	}
	return l.saveLocked()
}

// Reset forgets every answer.
func (l *Ledger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]Status)
	return l.saveLocked()
}

func (l *Ledger) saveLocked() error {
	if strings.TrimSpace(l.path) == "" {
		return nil
	}
	resolved, err := config.ExpandPath(l.path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create grants dir: %w", err)
	}

	raw := ledgerFile{Capabilities: make(map[string]string, len(l.entries))}
	for kind, status := range l.entries {
		raw.Capabilities[kind] = string(status)
	}
	bytes, err := toml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal grants: %w", err)
	}
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write grants: %w", err)
	}
	return nil
}
