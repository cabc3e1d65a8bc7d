package preferences

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// DefaultStorageKey is the storage key holding the liked identifiers
const DefaultStorageKey = "likedFestivals2026"

// Store owns the preference set. All mutations go through Toggle,
// MergeFromToken and Load. Storage failures are logged and the in-memory
// set stays authoritative.
type Store struct {
	storage Storage
	key     string
	logger  *zap.Logger

	// writeMu is held from mutation until the write returns, so storage
	// receives sets in the order they were produced
	writeMu sync.Mutex

	mu          sync.Mutex
	liked       Set
	order       []string // every id seen, in first-seen order
	subscribers []func(Set)
}

// NewStore creates a new Store persisting under key
func NewStore(storage Storage, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultStorageKey
	}

	return &Store{
		storage: storage,
		key:     key,
		logger:  logger,
		liked:   make(Set),
	}
}

// Subscribe registers fn to receive a copy of the set after every change
func (s *Store) Subscribe(fn func(Set)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Current returns a copy of the set
func (s *Store) Current() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked.Clone()
}

// IsLiked reports whether id is in the set
func (s *Store) IsLiked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked.Has(id)
}

// Load replaces the set with the persisted one. A missing, unreadable or
// corrupt value yields the empty set.
func (s *Store) Load() Set {
	s.writeMu.Lock()
	ids := s.read()

	s.mu.Lock()
	s.liked = NewSet(ids...)
	s.order = dedupe(ids)
	snapshot := s.liked.Clone()
	s.mu.Unlock()
	s.writeMu.Unlock()

	s.notify(snapshot)
	return snapshot
}

// Toggle flips membership of id, persists and notifies
func (s *Store) Toggle(id string) Set {
	s.writeMu.Lock()
	s.mu.Lock()
	if s.liked.Has(id) {
		delete(s.liked, id)
	} else {
		s.add(id)
	}
	snapshot := s.liked.Clone()
	stored := s.storedIDs()
	s.mu.Unlock()

	s.persist(stored)
	s.writeMu.Unlock()

	s.notify(snapshot)
	return snapshot
}

// MergeFromToken adds every identifier of token to the set. It never
// removes entries, so merging is commutative and idempotent.
func (s *Store) MergeFromToken(token string) Set {
	ids := DecodeToken(token)

	s.writeMu.Lock()
	s.mu.Lock()
	added := 0
	for _, id := range ids {
		if !s.liked.Has(id) {
			s.add(id)
			added++
		}
	}
	snapshot := s.liked.Clone()
	stored := s.storedIDs()
	s.mu.Unlock()

	s.logger.Info("Merged shared preferences",
		zap.Int("decoded", len(ids)),
		zap.Int("added", added),
		zap.Int("total", len(snapshot)))

	s.persist(stored)
	s.writeMu.Unlock()

	s.notify(snapshot)
	return snapshot
}

// Startup loads the persisted set and merges the incoming share fragment once
func (s *Store) Startup(fragment FragmentSource) Set {
	loaded := s.Load()
	if fragment == nil {
		return loaded
	}

	token, ok := fragment.Fragment()
	if !ok || token == "" {
		return loaded
	}
	return s.MergeFromToken(token)
}

// ShareURL builds a share link for the current set
func (s *Store) ShareURL(origin, path string) string {
	return BuildShareURL(s.Current().IDs(), origin, path)
}

func (s *Store) read() []string {
	value, ok, err := s.storage.Get(s.key)
	if err != nil {
		s.logger.Warn("Failed to read preferences, starting empty",
			zap.String("key", s.key),
			zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(value), &ids); err != nil {
		s.logger.Warn("Stored preferences are corrupt, starting empty",
			zap.String("key", s.key),
			zap.Error(err))
		return nil
	}

	s.logger.Debug("Preferences loaded",
		zap.String("key", s.key),
		zap.Int("liked", len(ids)))

	return ids
}

// add marks id liked and remembers its position. Must hold s.mu.
func (s *Store) add(id string) {
	s.liked[id] = struct{}{}
	for _, known := range s.order {
		if known == id {
			return
		}
	}
	s.order = append(s.order, id)
}

// storedIDs returns the liked ids in stored order. An id toggled off and on
// again keeps its position. Must hold s.mu.
func (s *Store) storedIDs() []string {
	ids := make([]string, 0, len(s.liked))
	for _, id := range s.order {
		if s.liked.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}

func (s *Store) persist(ids []string) {
	data, err := json.Marshal(ids)
	if err != nil {
		s.logger.Warn("Failed to encode preferences", zap.Error(err))
		return
	}

	if err := s.storage.Set(s.key, string(data)); err != nil {
		s.logger.Warn("Failed to persist preferences",
			zap.String("key", s.key),
			zap.Error(err))
	}
}

func (s *Store) notify(set Set) {
	s.mu.Lock()
	subscribers := make([]func(Set), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(set.Clone())
	}
}
