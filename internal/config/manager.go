package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// settingsStore is the subset of store.Store the Manager depends on. Defined
// here rather than imported to keep internal/config free of a store
// dependency in tests.
type settingsStore interface {
	GetSetting(ctx context.Context, category, key string) (string, bool, error)
	SetSetting(ctx context.Context, category, key, valueJSON string) error
	ListSettings(ctx context.Context, category string) (map[string]string, error)
}

// ChangeFunc is invoked synchronously after a successful Set. Implementations
// must return quickly; blocking work must be offloaded to a goroutine.
type ChangeFunc func(category, key string, valueJSON string)

// Manager merges environment-sourced defaults with store-backed overrides,
// the store taking priority, and fans out change notifications on Set.
type Manager struct {
	store settingsStore
	log   zerolog.Logger

	mu        sync.RWMutex
	cache     map[string]map[string]string // category -> key -> raw JSON value
	listeners map[string][]ChangeFunc      // "category" or "category.key" -> funcs
}

// NewManager constructs a Manager and loads every known category from the
// store into its cache. Categories with no override rows simply stay empty;
// callers fall back to struct defaults via Get's zero-value decode.
func NewManager(ctx context.Context, s settingsStore, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		store:     s,
		log:       log.With().Str("component", "config_manager").Logger(),
		cache:     make(map[string]map[string]string),
		listeners: make(map[string][]ChangeFunc),
	}

	categories := []string{
		CategoryTAR1090, CategoryADSBExchange, CategoryOpenSky, CategoryAirframes,
		CategoryEAMWatch, CategoryWhisper, CategoryAudio, CategoryYouTube,
		CategoryBroadcast, CategorySystem, CategoryPhotos, CategoryTwitter,
	}
	for _, cat := range categories {
		kv, err := s.ListSettings(ctx, cat)
		if err != nil {
			return nil, fmt.Errorf("config manager: load category %s: %w", cat, err)
		}
		m.cache[cat] = kv
	}

	return m, nil
}

// Get returns the raw JSON override for category+key, and whether one exists
// in the store-backed cache. Callers decode into their category struct and
// fall back to defaults when ok is false.
func (m *Manager) Get(category, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.cache[category][key]
	return v, ok
}

// GetInto decodes the stored override for category+key into dst, or leaves
// dst untouched (its zero/default value) when no override exists.
func (m *Manager) GetInto(category, key string, dst any) error {
	raw, ok := m.Get(category, key)
	if !ok {
		return nil
	}
	return json.Unmarshal([]byte(raw), dst)
}

// Set persists category+key, updates the cache, then fires every registered
// listener for that category and that category.key, synchronously.
func (m *Manager) Set(ctx context.Context, category, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := m.store.SetSetting(ctx, category, key, string(raw)); err != nil {
		return err
	}

	m.mu.Lock()
	if m.cache[category] == nil {
		m.cache[category] = make(map[string]string)
	}
	m.cache[category][key] = string(raw)
	funcs := append(append([]ChangeFunc{}, m.listeners[category]...), m.listeners[category+"."+key]...)
	m.mu.Unlock()

	for _, fn := range funcs {
		fn(category, key, string(raw))
	}
	m.log.Info().Str("category", category).Str("key", key).Msg("setting changed")
	return nil
}

// OnChange registers fn to be called whenever category (or category+key, if
// key is non-empty) is modified via Set.
func (m *Manager) OnChange(category, key string, fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := category
	if key != "" {
		id = category + "." + key
	}
	m.listeners[id] = append(m.listeners[id], fn)
}

// Decode fills dst (a pointer to a category settings struct, see
// categories.go) from every key currently cached for category. Keys with no
// store override leave the corresponding struct field at its zero value, so
// callers should pre-populate dst with env-sourced defaults before calling.
func (m *Manager) Decode(category string, dst any) error {
	kv := m.Category(category)
	if len(kv) == 0 {
		return nil
	}
	obj := make(map[string]json.RawMessage, len(kv))
	for k, v := range kv {
		obj[k] = json.RawMessage(v)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("config manager: marshal category %s: %w", category, err)
	}
	return json.Unmarshal(raw, dst)
}

// Category returns a copy of every key's raw JSON value in a category, useful for
// building a concrete *Settings struct on source construction or restart.
func (m *Manager) Category(category string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.cache[category]))
	for k, v := range m.cache[category] {
		out[k] = v
	}
	return out
}
