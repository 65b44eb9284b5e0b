// Package history keeps the capped, persisted log of explicit prediction
// results.
package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/T10nnyy/sentiment-AI/internal/blob"
	"github.com/T10nnyy/sentiment-AI/internal/models"
)

const (
	// DefaultCap is the maximum entry count when none is configured.
	DefaultCap = 100
	// DefaultKey is the blob store key the history persists under.
	DefaultKey = "sentiment.history"
)

// SortOrder selects how List orders its snapshot.
type SortOrder string

const (
	// SortNewestFirst is the default ordering.
	SortNewestFirst SortOrder = "newest"
	// SortOldestFirst reverses the default ordering.
	SortOldestFirst SortOrder = "oldest"
	// SortConfidenceDesc orders by result score, highest first.
	SortConfidenceDesc SortOrder = "confidence"
	// SortTextAsc orders lexicographically by text.
	SortTextAsc SortOrder = "text"
)

// Filter narrows and orders a List snapshot. The zero value returns
// everything newest first.
type Filter struct {
	// Query matches entries whose text contains it, case-insensitively.
	Query string
	// Label, when set, matches the result label exactly.
	Label string
	Sort  SortOrder
}

// Store is the append-with-cap history log. Mutations persist
// synchronously to the blob store; a corrupt persisted blob degrades to
// an empty history instead of an error. Safe for concurrent use.
type Store struct {
	logger *slog.Logger
	blobs  blob.Provider
	key    string
	cap    int

	mu      sync.RWMutex
	entries []models.HistoryEntry
}

// NewStore builds a Store backed by blobs, loading any persisted history.
func NewStore(logger *slog.Logger, blobs blob.Provider, key string, capacity int) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if key == "" {
		key = DefaultKey
	}
	if capacity <= 0 {
		capacity = DefaultCap
	}
	s := &Store{logger: logger, blobs: blobs, key: key, cap: capacity}
	s.load()
	return s
}

// Record prepends a new entry for an explicit prediction and persists the
// log, evicting the oldest entries beyond the cap.
func (s *Store) Record(ctx context.Context, text string, result models.PredictionResult) models.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.HistoryEntry{
		ID:        newEntryID(),
		Text:      text,
		Result:    result,
		Timestamp: time.Now(),
	}
	s.entries = append([]models.HistoryEntry{entry}, s.entries...)
	if len(s.entries) > s.cap {
		s.entries = s.entries[:s.cap]
	}
	s.persist(ctx)
	return entry
}

// Remove deletes the entry with the given id; absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, entry := range s.entries {
		if entry.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.persist(ctx)
			return
		}
	}
}

// Clear empties the store. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return
	}
	s.entries = nil
	s.persist(ctx)
}

// Len reports the current entry count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// List returns a filtered, sorted snapshot. The snapshot is detached:
// later mutations do not affect it.
func (s *Store) List(filter Filter) []models.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(filter.Query)
	snapshot := make([]models.HistoryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if query != "" && !strings.Contains(strings.ToLower(entry.Text), query) {
			continue
		}
		if filter.Label != "" && entry.Result.Label != filter.Label {
			continue
		}
		snapshot = append(snapshot, entry)
	}

	switch filter.Sort {
	case SortOldestFirst:
		sort.SliceStable(snapshot, func(i, j int) bool {
			return snapshot[i].Timestamp.Before(snapshot[j].Timestamp)
		})
	case SortConfidenceDesc:
		sort.SliceStable(snapshot, func(i, j int) bool {
			return snapshot[i].Result.Score > snapshot[j].Result.Score
		})
	case SortTextAsc:
		sort.SliceStable(snapshot, func(i, j int) bool {
			return snapshot[i].Text < snapshot[j].Text
		})
	default:
		// Entries are already newest first.
	}
	return snapshot
}

func (s *Store) load() {
	if s.blobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if err != blob.ErrNotFound {
			s.logger.Warn("history load failed, starting empty", slog.Any("error", err))
		}
		return
	}
	var entries []models.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("persisted history is corrupt, starting empty", slog.Any("error", err))
		return
	}
	if len(entries) > s.cap {
		entries = entries[:s.cap]
	}
	s.entries = entries
}

func (s *Store) persist(ctx context.Context) {
	if s.blobs == nil {
		return
	}
	data, err := json.Marshal(s.entries)
	if err != nil {
		s.logger.Warn("history marshal failed", slog.Any("error", err))
		return
	}
	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("history persist failed", slog.Any("error", err))
	}
}

// newEntryID combines the insertion timestamp with a random suffix so
// rapid successive inserts cannot collide.
func newEntryID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}
