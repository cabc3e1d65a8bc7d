package holiday

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/username/festival-planner/internal/fetch"
)

const (
	defaultCacheTTL = 24 * time.Hour
	calendarAccept  = "text/calendar, text/plain"
)

// CachedSource keeps the last successful fetch of a holiday calendar for a TTL
type CachedSource struct {
	source   fetch.Source
	logger   *zap.Logger
	cacheTTL time.Duration

	cacheMu   sync.RWMutex
	cached    []byte
	fetchedAt time.Time
}

// NewCachedSource wraps source with a TTL cache
func NewCachedSource(source fetch.Source, cacheTTL time.Duration, logger *zap.Logger) *CachedSource {
	if cacheTTL == 0 {
		cacheTTL = defaultCacheTTL
	}

	return &CachedSource{
		source:   source,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// NewHTTPSource creates a cached source reading the calendar from url
func NewHTTPSource(url string, cacheTTL, timeout time.Duration, logger *zap.Logger) *CachedSource {
	return NewCachedSource(fetch.NewHTTPSource(url, calendarAccept, timeout, logger), cacheTTL, logger)
}

// NewFileSource creates a source reading a local calendar file
func NewFileSource(path string) fetch.Source {
	return fetch.NewFileSource(path)
}

// NewCompositeSource tries primary first and falls back to fallback
func NewCompositeSource(primary, fallback fetch.Source, logger *zap.Logger) fetch.Source {
	return fetch.NewFallbackSource(primary, fallback, logger)
}

// Fetch returns the cached calendar while fresh, otherwise refetches
func (s *CachedSource) Fetch(ctx context.Context) ([]byte, error) {
	s.cacheMu.RLock()
	if s.cached != nil && time.Since(s.fetchedAt) < s.cacheTTL {
		data := s.cached
		s.cacheMu.RUnlock()
		s.logger.Debug("Using cached holiday calendar",
			zap.String("source", s.source.String()))
		return data, nil
	}
	s.cacheMu.RUnlock()

	data, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cached = data
	s.fetchedAt = time.Now()
	s.cacheMu.Unlock()

	return data, nil
}

// Invalidate drops the cached calendar
func (s *CachedSource) Invalidate() {
	s.cacheMu.Lock()
	s.cached = nil
	s.cacheMu.Unlock()
}

func (s *CachedSource) String() string {
	return s.source.String()
}

// Load fetches and parses the holiday calendar. A failing source yields an
// empty index; the failure is logged and never returned.
func Load(ctx context.Context, src fetch.Source, parser *Parser, logger *zap.Logger) Index {
	data, err := src.Fetch(ctx)
	if err != nil {
		logger.Warn("Holiday calendar unavailable, continuing without holidays",
			zap.String("source", src.String()),
			zap.Error(err))
		return make(Index)
	}

	result := parser.Parse(string(data))

	logger.Info("Holiday calendar loaded",
		zap.String("source", src.String()),
		zap.Int("blocks", result.Blocks),
		zap.Int("skipped", result.Skipped),
		zap.Int("days", len(result.Index)))

	return result.Index
}
