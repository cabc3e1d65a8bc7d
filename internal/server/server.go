package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/export"
	"github.com/username/festival-planner/internal/overview"
	"github.com/username/festival-planner/internal/preferences"
	"github.com/username/festival-planner/pkg/dateutil"
)

// Options configures the API server
type Options struct {
	ShareOrigin string
	SharePath   string
	Status      func() any                      // extra payload for /health, may be nil
	Reload      func(ctx context.Context) error // backs POST /api/refresh, may be nil
}

// Server exposes the planner board over a local JSON API
type Server struct {
	board  *overview.Board
	opts   Options
	logger *zap.Logger
	router chi.Router

	revision atomic.Uint64 // bumped on every board change
}

// New creates a new Server instance
func New(board *overview.Board, opts Options, logger *zap.Logger) *Server {
	s := &Server{
		board:  board,
		opts:   opts,
		logger: logger,
	}
	s.router = s.routes()
	board.OnChange(func() {
		s.revision.Add(1)
	})
	return s
}

// Revision returns the current board revision used as ETag
func (s *Server) Revision() uint64 {
	return s.revision.Load()
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.etag)
			r.Get("/year", s.handleYear)
			r.Get("/weeks", s.handleWeeks)
			r.Get("/months/{month}", s.handleMonth)
			r.Get("/likes", s.handleLikes)
		})
		r.Post("/refresh", s.handleRefresh)
		r.Post("/likes/{id}/toggle", s.handleToggle)
		r.Post("/merge", s.handleMerge)
		r.Get("/share", s.handleShare)
		r.Get("/export.ics", s.handleExport)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.logger.Info("API server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// etag tags read responses with the board revision and answers matching
// If-None-Match requests with 304
func (s *Server) etag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tag := `"` + strconv.FormatUint(s.Revision(), 10) + `"`
		if r.Header.Get("If-None-Match") == tag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", tag)
		next.ServeHTTP(w, r)
	})
}

type eventJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
	Liked bool   `json:"liked"`
}

type weekJSON struct {
	Week    int         `json:"week"`
	Year    int         `json:"year"`
	Monday  string      `json:"monday"`
	Events  []eventJSON `json:"events"`
	Running []eventJSON `json:"running"`
}

type yearMonthJSON struct {
	Month int        `json:"month"`
	Weeks []weekJSON `json:"weeks"`
}

type cellJSON struct {
	Key          string   `json:"key"`
	InMonth      bool     `json:"in_month"`
	Tier         string   `json:"tier"`
	Liked        []string `json:"liked"`
	Holiday      bool     `json:"holiday"`
	HolidayLabel string   `json:"holiday_label,omitempty"`
}

type monthJSON struct {
	Year  int          `json:"year"`
	Month int          `json:"month"`
	Weeks [][]cellJSON `json:"weeks"`
}

func toEventJSON(ev catalog.Event, liked bool) eventJSON {
	return eventJSON{
		ID:    ev.Key(),
		Name:  ev.Name,
		Start: dateutil.DayKey(ev.Start),
		End:   dateutil.DayKey(ev.LastDay()),
		Liked: liked,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{
		"status":       "ok",
		"events":       len(s.board.Events()),
		"holiday_days": len(s.board.Holidays()),
		"liked":        len(s.board.Store().Current()),
	}
	if s.opts.Status != nil {
		payload["daemon"] = s.opts.Status()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleWeeks(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	writeJSON(w, http.StatusOK, toWeeksJSON(s.board.Weeks(month)))
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	months := s.board.YearWeeks()
	resp := make([]yearMonthJSON, 0, len(months))
	for _, m := range months {
		resp = append(resp, yearMonthJSON{
			Month: int(m.Month),
			Weeks: toWeeksJSON(m.Weeks),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":   s.board.Year(),
		"months": resp,
	})
}

func toWeeksJSON(views []overview.WeekView) []weekJSON {
	weeks := make([]weekJSON, 0, len(views))
	for _, view := range views {
		wk := weekJSON{
			Week:    view.Row.Number,
			Year:    view.Row.Year,
			Monday:  view.Row.Key(),
			Events:  []eventJSON{},
			Running: []eventJSON{},
		}
		for _, ev := range view.Events {
			wk.Events = append(wk.Events, toEventJSON(ev.Event, ev.Liked))
		}
		for _, ev := range view.Running {
			wk.Running = append(wk.Running, toEventJSON(ev.Event, ev.Liked))
		}
		weeks = append(weeks, wk)
	}
	return weeks
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	month, err := parseMonth(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	grid := s.board.Month(month)
	resp := monthJSON{
		Year:  s.board.Year(),
		Month: int(month),
		Weeks: make([][]cellJSON, 0, len(grid)),
	}
	for _, week := range grid {
		row := make([]cellJSON, 0, len(week))
		for _, cell := range week {
			ids := make([]string, 0, len(cell.Liked))
			for _, ev := range cell.Liked {
				ids = append(ids, ev.Key())
			}
			row = append(row, cellJSON{
				Key:          cell.Key,
				InMonth:      cell.InMonth,
				Tier:         cell.Tier().String(),
				Liked:        ids,
				Holiday:      cell.Holiday,
				HolidayLabel: cell.HolidayLabel,
			})
		}
		resp.Weeks = append(resp.Weeks, row)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLikes(w http.ResponseWriter, r *http.Request) {
	events := make([]eventJSON, 0)
	for _, ev := range s.board.LikedEvents() {
		events = append(events, toEventJSON(ev, true))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ids":    s.board.Store().Current().IDs(),
		"events": events,
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing id"))
		return
	}

	set := s.board.Store().Toggle(id)
	s.logger.Info("Preference toggled",
		zap.String("id", id),
		zap.Bool("liked", set.Has(id)))

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    id,
		"liked": set.Has(id),
		"ids":   set.IDs(),
	})
}

func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	token := rawQueryValue(r.URL.RawQuery, "token")
	if token == "" && r.Body != nil {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
			return
		}
		token = body.Token
	}

	set := s.board.Store().MergeFromToken(token)
	writeJSON(w, http.StatusOK, map[string]any{"ids": set.IDs()})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	origin := r.URL.Query().Get("origin")
	if origin == "" {
		origin = s.opts.ShareOrigin
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		path = s.opts.SharePath
	}

	ids := s.board.Store().Current().IDs()
	writeJSON(w, http.StatusOK, map[string]any{
		"url":   preferences.BuildShareURL(ids, origin, path),
		"token": preferences.EncodeToken(ids),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.opts.Reload == nil {
		writeError(w, http.StatusNotImplemented, errors.New("refresh not available"))
		return
	}
	if err := s.opts.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":       len(s.board.Events()),
		"holiday_days": len(s.board.Holidays()),
		"revision":     s.Revision(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	body := export.LikedICS(s.board.Events(), s.board.Store().Current(), time.Now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="festivals.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// pathID returns the decoded {id} parameter. chi matches on the raw path
// when the request carried escapes the default encoding would not produce.
func pathID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(id); err == nil {
			return decoded
		}
	}
	return id
}

// rawQueryValue returns a query parameter without percent-decoding it, so a
// share token passes through exactly as it appears in a link fragment
func rawQueryValue(rawQuery, key string) string {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k == key {
			return v
		}
	}
	return ""
}

func parseMonth(value string) (time.Month, error) {
	if value == "" {
		return dateutil.Today().Month(), nil
	}
	m, err := strconv.Atoi(value)
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("month must be 1..12, got %q", value)
	}
	return time.Month(m), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
