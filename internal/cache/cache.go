// Package cache holds the terminal's last-known-good snapshots in local
// files, so a terminal can render immediately after a reload and keep
// working while the store is unreachable. The cache is always subordinate to
// the snapshot store: it is overwritten wholesale on every successful get or
// mirror update and is never the system of record.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"buildpos/internal/model"

	"github.com/rs/zerolog/log"
)

// Entry is one cached collection with the version it was fetched at.
type Entry struct {
	Table    string          `json:"table"`
	Version  int64           `json:"version"`
	Items    json.RawMessage `json:"items"`
	CachedAt time.Time       `json:"cached_at"`
}

// Cache is a directory of per-table JSON files. Writes are best-effort and
// must never fail a mutation; errors are logged and swallowed.
type Cache struct {
	mu  sync.Mutex
	dir string
}

// Open creates the cache directory if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// Write persists a collection snapshot. Best effort by contract.
func (c *Cache) Write(table model.Table, version int64, items json.RawMessage) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{
		Table:    string(table),
		Version:  version,
		Items:    items,
		CachedAt: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Warn().Err(err).Str("table", string(table)).Msg("cache: encode failed")
		return
	}

	// Write-then-rename so a crash mid-write never leaves a torn file.
	path := c.path(table)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Warn().Err(err).Str("table", string(table)).Msg("cache: write failed")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		log.Warn().Err(err).Str("table", string(table)).Msg("cache: rename failed")
	}
}

// Read returns the last cached entry, or ok=false when nothing usable is
// cached.
func (c *Cache) Read(table model.Table) (*Entry, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path(table))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Str("table", string(table)).Msg("cache: read failed")
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Str("table", string(table)).Msg("cache: corrupt entry ignored")
		return nil, false
	}
	return &entry, true
}

func (c *Cache) path(table model.Table) string {
	return filepath.Join(c.dir, string(table)+".json")
}

// Settings are terminal-local preferences, persisted next to the snapshots.
type Settings struct {
	Theme                 string             `json:"theme"`
	TelegramNotifications bool               `json:"telegramNotifications"`
	ReminderDays          int                `json:"reminderDays"`
	StockAlerts           []model.StockAlert `json:"stockAlerts,omitempty"`
}

// DefaultSettings mirror a fresh terminal's preferences.
func DefaultSettings() Settings {
	return Settings{Theme: "dark", TelegramNotifications: true, ReminderDays: 1}
}

const settingsFile = "settings.json"

// ReadSettings returns persisted settings merged over defaults.
func (c *Cache) ReadSettings() Settings {
	s := DefaultSettings()
	if c == nil {
		return s
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.dir, settingsFile))
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, &s); err != nil {
		log.Warn().Err(err).Msg("cache: corrupt settings ignored")
		return DefaultSettings()
	}
	return s
}

// WriteSettings persists settings. Best effort, like snapshot writes.
func (c *Cache) WriteSettings(s Settings) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("cache: settings encode failed")
		return
	}
	if err := os.WriteFile(filepath.Join(c.dir, settingsFile), data, 0o644); err != nil {
		log.Warn().Err(err).Msg("cache: settings write failed")
	}
}
