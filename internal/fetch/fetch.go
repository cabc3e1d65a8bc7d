package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	userAgent          = "festival-planner/1.0"
)

// Source delivers the raw bytes of a remote or local document
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// Invalidator is implemented by sources that cache documents
type Invalidator interface {
	Invalidate()
}

// HTTPSource fetches a document with a plain GET request
type HTTPSource struct {
	url        string
	accept     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSource creates a new HTTPSource instance
func NewHTTPSource(url, accept string, timeout time.Duration, logger *zap.Logger) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}

	return &HTTPSource{
		url:    url,
		accept: accept,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads the document
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if s.accept != "" {
		req.Header.Set("Accept", s.accept)
	}

	s.logger.Debug("Fetching document", zap.String("url", s.url))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", s.url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	s.logger.Debug("Document fetched",
		zap.String("url", s.url),
		zap.Int("bytes", len(body)))

	return body, nil
}

func (s *HTTPSource) String() string {
	return s.url
}

// FileSource reads a document from the local filesystem
type FileSource struct {
	path string
}

// NewFileSource creates a new FileSource instance
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Fetch reads the file
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return data, nil
}

func (s *FileSource) String() string {
	return s.path
}

// FallbackSource tries primary first and falls back on error
type FallbackSource struct {
	primary  Source
	fallback Source
	logger   *zap.Logger
}

// NewFallbackSource creates a new FallbackSource
func NewFallbackSource(primary, fallback Source, logger *zap.Logger) *FallbackSource {
	return &FallbackSource{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Fetch tries primary, then fallback
func (s *FallbackSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.primary.Fetch(ctx)
	if err == nil {
		return data, nil
	}

	s.logger.Warn("Primary source failed, falling back",
		zap.String("primary", s.primary.String()),
		zap.String("fallback", s.fallback.String()),
		zap.Error(err))

	data, fallbackErr := s.fallback.Fetch(ctx)
	if fallbackErr != nil {
		return nil, fmt.Errorf("primary and fallback both failed: primary=%w, fallback=%v", err, fallbackErr)
	}
	return data, nil
}

// Invalidate drops cached documents of both sources
func (s *FallbackSource) Invalidate() {
	for _, src := range []Source{s.primary, s.fallback} {
		if inv, ok := src.(Invalidator); ok {
			inv.Invalidate()
		}
	}
}

func (s *FallbackSource) String() string {
	return s.primary.String() + " (fallback " + s.fallback.String() + ")"
}

// FromLocation picks an HTTPSource for http(s) URLs and a FileSource otherwise
func FromLocation(location, accept string, timeout time.Duration, logger *zap.Logger) Source {
	if u, err := neturl.Parse(location); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return NewHTTPSource(location, accept, timeout, logger)
	}
	return NewFileSource(strings.TrimPrefix(location, "file://"))
}
