// Package settings persists the user's client preferences and notifies
// subscribers when they change.
package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/T10nnyy/sentiment-AI/internal/blob"
	"github.com/T10nnyy/sentiment-AI/internal/gateway"
)

// DefaultKey is the blob store key preferences persist under.
const DefaultKey = "sentiment.settings"

// Settings are the persisted client preferences.
type Settings struct {
	Mode       gateway.Mode `json:"transport_mode"`
	LiveTyping bool         `json:"live_typing"`
}

// Store owns one application session's preferences. A single instance is
// created at startup and passed by reference to consumers; persistence is
// an explicit side effect of each mutation. Safe for concurrent use.
type Store struct {
	logger *slog.Logger
	blobs  blob.Provider
	key    string

	mu          sync.Mutex
	current     Settings
	subscribers []func(Settings)
}

// NewStore loads persisted preferences, falling back to defaults when the
// blob is absent or corrupt.
func NewStore(logger *slog.Logger, blobs blob.Provider, key string, defaults Settings) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultKey
	}
	s := &Store{logger: logger, blobs: blobs, key: key, current: defaults}
	s.load(defaults)
	return s
}

// Get returns the current preferences.
func (s *Store) Get() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetMode updates the transport-mode preference.
func (s *Store) SetMode(ctx context.Context, mode gateway.Mode) {
	s.update(ctx, func(current *Settings) { current.Mode = mode })
}

// SetLiveTyping updates the live-typing preference.
func (s *Store) SetLiveTyping(ctx context.Context, enabled bool) {
	s.update(ctx, func(current *Settings) { current.LiveTyping = enabled })
}

// Subscribe registers fn to run after every mutation, with the new
// preferences. Subscribers are invoked synchronously in registration
// order and must not call back into the Store.
func (s *Store) Subscribe(fn func(Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) update(ctx context.Context, mutate func(*Settings)) {
	s.mu.Lock()
	mutate(&s.current)
	current := s.current
	subscribers := append(([]func(Settings))(nil), s.subscribers...)
	s.mu.Unlock()

	s.persist(ctx, current)
	for _, fn := range subscribers {
		fn(current)
	}
}

func (s *Store) load(defaults Settings) {
	if s.blobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if err != blob.ErrNotFound {
			s.logger.Warn("settings load failed, using defaults", slog.Any("error", err))
		}
		return
	}
	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("persisted settings are corrupt, using defaults", slog.Any("error", err))
		return
	}
	if _, err := gateway.ParseMode(string(loaded.Mode)); err != nil {
		loaded.Mode = defaults.Mode
	}
	s.current = loaded
}

func (s *Store) persist(ctx context.Context, current Settings) {
	if s.blobs == nil {
		return
	}
	data, err := json.Marshal(current)
	if err != nil {
		s.logger.Warn("settings marshal failed", slog.Any("error", err))
		return
	}
	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("settings persist failed", slog.Any("error", err))
	}
}
