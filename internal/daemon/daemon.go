package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/fetch"
	"github.com/username/festival-planner/internal/holiday"
	"github.com/username/festival-planner/internal/overview"
)

// Sources are the inputs refreshed by the daemon
type Sources struct {
	Catalog        fetch.Source
	Holidays       fetch.Source // nil disables school holidays
	Parser         *holiday.Parser
	PublicHolidays bool
}

// Status is a snapshot of the daemon state
type Status struct {
	Running     bool      `json:"running"`
	Schedule    string    `json:"schedule"`
	LastRefresh time.Time `json:"last_refresh"`
	NextRefresh time.Time `json:"next_refresh"`
	Events      int       `json:"events"`
	HolidayDays int       `json:"holiday_days"`
}

// Daemon loads catalog and holidays into a Board and keeps them fresh
type Daemon struct {
	board    *overview.Board
	sources  Sources
	schedule string
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	cron     *cron.Cron

	mu          sync.Mutex // serializes refreshes
	statusMu    sync.RWMutex
	lastRefresh time.Time
	running     bool
}

// NewDaemon creates a new daemon instance refreshing on a cron schedule
func NewDaemon(board *overview.Board, sources Sources, schedule string, logger *zap.Logger) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		board:    board,
		sources:  sources,
		schedule: schedule,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		cron:     cron.New(),
	}
}

// Context is cancelled when the daemon stops
func (d *Daemon) Context() context.Context {
	return d.ctx
}

// Refresh loads catalog and holidays concurrently. Each load sets its own
// board input as soon as it finishes.
func (d *Daemon) Refresh(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	started := time.Now()
	d.logger.Info("Refreshing festival data")

	var wg conc.WaitGroup
	wg.Go(func() {
		events := catalog.Load(ctx, d.sources.Catalog, d.logger)
		d.board.SetEvents(events)
	})
	wg.Go(func() {
		d.board.SetHolidays(d.loadHolidays(ctx))
	})
	wg.Wait()

	d.statusMu.Lock()
	d.lastRefresh = time.Now()
	d.statusMu.Unlock()

	d.logger.Info("Refresh completed",
		zap.Int("events", len(d.board.Events())),
		zap.Int("holiday_days", len(d.board.Holidays())),
		zap.Duration("took", time.Since(started)))
}

// Reload drops cached source documents and refreshes
func (d *Daemon) Reload(ctx context.Context) error {
	for _, src := range []fetch.Source{d.sources.Catalog, d.sources.Holidays} {
		if inv, ok := src.(fetch.Invalidator); ok {
			inv.Invalidate()
		}
	}

	d.Refresh(ctx)
	return ctx.Err()
}

func (d *Daemon) loadHolidays(ctx context.Context) holiday.Index {
	idx := make(holiday.Index)
	if d.sources.Holidays != nil {
		parser := d.sources.Parser
		if parser == nil {
			parser = holiday.NewParser(d.board.Year(), d.board.Year(), d.logger)
		}
		idx = holiday.Load(ctx, d.sources.Holidays, parser, d.logger)
	}
	if d.sources.PublicHolidays {
		idx = idx.Underlay(holiday.PublicHolidays(d.board.Year()))
	}
	return idx
}

// Start runs an initial refresh and then refreshes on schedule until a
// signal arrives or Stop is called
func (d *Daemon) Start() error {
	d.Refresh(d.ctx)

	if d.schedule != "" {
		if _, err := d.cron.AddFunc(d.schedule, func() {
			d.Refresh(d.ctx)
		}); err != nil {
			return fmt.Errorf("failed to schedule refresh: %w", err)
		}
	}
	d.cron.Start()
	d.setRunning(true)

	d.logger.Info("Daemon started",
		zap.String("schedule", d.schedule),
		zap.Time("next_refresh", d.nextRefresh()))

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-d.ctx.Done():
		d.logger.Info("Daemon stopped")
	case sig := <-sigChan:
		d.logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		d.Stop()
	}

	<-d.cron.Stop().Done()
	d.setRunning(false)
	return nil
}

// Stop stops the daemon
func (d *Daemon) Stop() {
	d.cancel()
}

// GetStatus returns daemon status
func (d *Daemon) GetStatus() Status {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()

	return Status{
		Running:     d.running,
		Schedule:    d.schedule,
		LastRefresh: d.lastRefresh,
		NextRefresh: d.nextRefresh(),
		Events:      len(d.board.Events()),
		HolidayDays: len(d.board.Holidays()),
	}
}

func (d *Daemon) setRunning(running bool) {
	d.statusMu.Lock()
	d.running = running
	d.statusMu.Unlock()
}

func (d *Daemon) nextRefresh() time.Time {
	entries := d.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
