package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Factory constructs a fresh Source instance from current configuration,
// used by Manager.Restart to recreate a source after stopping it.
type Factory func() Source

// Manager owns the set of active Sources and coordinates their lifecycle,
// including config-driven restarts.
type Manager struct {
	log zerolog.Logger

	mu        sync.RWMutex
	sources   map[string]Source
	factories map[string]Factory
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		log:       log.With().Str("component", "source_manager").Logger(),
		sources:   make(map[string]Source),
		factories: make(map[string]Factory),
	}
}

// Register adds a source under its Name(), remembering the factory that
// produced it so Restart can recreate it later.
func (m *Manager) Register(ctx context.Context, factory Factory) error {
	s := factory()
	m.mu.Lock()
	m.sources[s.Name()] = s
	m.factories[s.Name()] = factory
	m.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		return fmt.Errorf("source manager: start %s: %w", s.Name(), err)
	}
	m.log.Info().Str("source", s.Name()).Msg("source started")
	return nil
}

// Restart stops the named source, recreates it from its factory (so it
// picks up current configuration), and starts the replacement.
func (m *Manager) Restart(ctx context.Context, name string) error {
	m.mu.Lock()
	s, ok := m.sources[name]
	factory, factoryOK := m.factories[name]
	m.mu.Unlock()
	if !ok || !factoryOK {
		return fmt.Errorf("source manager: unknown source %q", name)
	}

	if err := s.Stop(ctx); err != nil {
		m.log.Warn().Err(err).Str("source", name).Msg("restart: stop failed, continuing anyway")
	}

	fresh := factory()
	if err := fresh.Start(ctx); err != nil {
		return fmt.Errorf("source manager: restart %s: %w", name, err)
	}

	m.mu.Lock()
	m.sources[name] = fresh
	m.mu.Unlock()

	m.log.Info().Str("source", name).Msg("source restarted")
	return nil
}

// StopAll stops every registered source, collecting (not stopping on) any
// individual errors so a hung source doesn't block the others from
// shutting down.
func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	sources := make([]Source, 0, len(m.sources))
	for _, s := range m.sources {
		sources = append(sources, s)
	}
	m.mu.RUnlock()

	var firstErr error
	for _, s := range sources {
		if err := s.Stop(ctx); err != nil {
			m.log.Error().Err(err).Str("source", s.Name()).Msg("stop failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Snapshot returns the current Stats for every registered source, keyed by name.
func (m *Manager) Snapshot() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Stats, len(m.sources))
	for name, s := range m.sources {
		out[name] = s.Stats()
	}
	return out
}
