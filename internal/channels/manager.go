package channels

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Manager starts and stops a set of named channels together.
type Manager struct {
	mu       sync.RWMutex
	channels map[string]Channel
}

// NewManager creates an empty channel manager.
func NewManager() *Manager {
	return &Manager{channels: make(map[string]Channel)}
}

// RegisterChannel adds a channel under name, replacing any previous one.
func (m *Manager) RegisterChannel(name string, channel Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[name] = channel
}

// GetChannel returns a channel by name.
func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[name]
	return ch, ok
}

// GetEnabledChannels returns the registered channel names, sorted.
func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetStatus reports whether each channel is running.
func (m *Manager) GetStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := make(map[string]bool, len(m.channels))
	for name, ch := range m.channels {
		status[name] = ch.IsRunning()
	}
	return status
}

// StartAll starts the channels in name order. Failures are logged and
// StartAll only errors when no channel came up.
func (m *Manager) StartAll(ctx context.Context) error {
	names := m.GetEnabledChannels()
	if len(names) == 0 {
		return errors.New("no channels registered")
	}

	var errs []error
	for _, name := range names {
		ch, _ := m.GetChannel(name)
		if err := ch.Start(ctx); err != nil {
			slog.Error("channel failed to start", "channel", name, "error", err)
			errs = append(errs, fmt.Errorf("start %s: %w", name, err))
			continue
		}
		slog.Info("channel started", "channel", name)
	}
	if len(errs) == len(names) {
		return errors.Join(errs...)
	}
	return nil
}

// StopAll stops every channel in reverse name order and returns the joined
// stop errors.
func (m *Manager) StopAll(ctx context.Context) error {
	names := m.GetEnabledChannels()
	var errs []error
	for i := len(names) - 1; i >= 0; i-- {
		ch, _ := m.GetChannel(names[i])
		if err := ch.Stop(ctx); err != nil {
			slog.Error("channel failed to stop", "channel", names[i], "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}

// ErrAllChannelsDown is returned by Watch once no channel is running.
var ErrAllChannelsDown = errors.New("all channels stopped")

// Watch polls channel status every interval until ctx ends, returning
// ErrAllChannelsDown as soon as no channel is running.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			running := 0
			for _, up := range m.GetStatus() {
				if up {
					running++
				}
			}
			if running == 0 {
				return ErrAllChannelsDown
			}
		}
	}
}
