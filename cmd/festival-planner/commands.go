package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/festival-planner/internal/catalog"
	"github.com/username/festival-planner/internal/config"
	"github.com/username/festival-planner/internal/export"
	"github.com/username/festival-planner/internal/preferences"
	"github.com/username/festival-planner/internal/render"
	"github.com/username/festival-planner/internal/server"
	"github.com/username/festival-planner/pkg/dateutil"
)

// openPlanner loads config, the persisted likes and the catalog
func openPlanner(ctx context.Context) (*planner, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	p := initializePlanner(cfg)
	p.store.Load()
	p.daemon.Refresh(ctx)
	return p, nil
}

func weeksCmd() *cobra.Command {
	var wholeYear bool

	cmd := &cobra.Command{
		Use:   "weeks [month]",
		Short: "List the festivals of a month grouped by calendar week",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := monthArg(args)
			if err != nil {
				return err
			}

			p, err := openPlanner(cmd.Context())
			if err != nil {
				return err
			}

			if wholeYear {
				render.New(stdout).Year(p.cfg.Year, p.board.YearWeeks())
				return nil
			}
			render.New(stdout).Weeks(p.cfg.Year, month, p.board.Weeks(month))
			return nil
		},
	}

	cmd.Flags().BoolVar(&wholeYear, "year", false, "List all twelve months")

	return cmd
}

func overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overview [month]",
		Short: "Show the month grid of liked festivals and holidays",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			month, err := monthArg(args)
			if err != nil {
				return err
			}

			p, err := openPlanner(cmd.Context())
			if err != nil {
				return err
			}

			grid := p.board.Month(month)
			r := render.New(stdout)
			r.Month(p.cfg.Year, month, grid)
			r.Legend()
			r.HolidayList(grid)
			return nil
		},
	}
}

func likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Toggle a festival in the liked set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPlanner(cmd.Context())
			if err != nil {
				return err
			}

			id := args[0]
			ev, known := p.board.Find(id)
			if !known {
				logger.Warn("Festival not in the current catalog", zap.String("id", id))
			}

			set := p.store.Toggle(id)
			label := id
			if known {
				label = ev.String()
			}
			if set.Has(id) {
				fmt.Fprintf(stdout, "★ %s\n", label)
			} else {
				fmt.Fprintf(stdout, "☆ %s\n", label)
			}
			return nil
		},
	}
}

func likesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "likes",
		Short: "List liked festivals",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPlanner(cmd.Context())
			if err != nil {
				return err
			}

			render.New(stdout).Likes(p.board.LikedEvents())

			orphaned := 0
			for _, id := range p.store.Current().IDs() {
				if _, ok := p.board.Find(id); !ok {
					orphaned++
				}
			}
			if orphaned > 0 {
				fmt.Fprintf(stdout, "\n%d markierte ID(s) nicht im Katalog\n", orphaned)
			}
			return nil
		},
	}
}

func shareCmd() *cobra.Command {
	var noCopy bool

	cmd := &cobra.Command{
		Use:   "share",
		Short: "Build a share link for the liked set and copy it to the clipboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			p := initializePlanner(cfg)
			ids := p.store.Load().IDs()

			var clip preferences.Clipboard
			if !noCopy {
				clip = preferences.NewCommandClipboard()
			}

			link, copied := preferences.Share(ids, cfg.Share.Origin, cfg.Share.GetPath(), clip)
			if copied {
				fmt.Fprintf(stdout, "📋 Link kopiert (%d Festivals)\n%s\n", len(ids), link)
				return nil
			}
			if !noCopy {
				logger.Info("Clipboard unavailable, printing link")
			}
			fmt.Fprintln(stdout, link)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noCopy, "no-copy", false, "Print the link without touching the clipboard")

	return cmd
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <share-url>",
		Short: "Merge the festivals of a share link into the liked set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			p := initializePlanner(cfg)
			before := len(p.store.Load())
			set := p.store.Startup(preferences.URLFragment(args[0]))

			fmt.Fprintf(stdout, "✅ %d neu, %d insgesamt markiert\n", len(set)-before, len(set))
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export liked festivals as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := openPlanner(cmd.Context())
			if err != nil {
				return err
			}

			body := export.LikedICS(p.board.Events(), p.store.Current(), time.Now())
			if output == "" || output == "-" {
				fmt.Fprint(stdout, body)
				return nil
			}

			if err := writeFile(output, []byte(body)); err != nil {
				return err
			}
			logger.Info("Calendar exported",
				zap.String("file", output),
				zap.Int("events", len(p.board.LikedEvents())))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func importCmd() *cobra.Command {
	var (
		pageURL string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Scrape the festival listing page into a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if pageURL == "" {
				pageURL = cfg.Catalog.ImportURL
			}
			if pageURL == "" {
				return fmt.Errorf("no listing page given: use --url or catalog.import_url")
			}
			if output == "" {
				output = cfg.Catalog.URL
			}
			if isRemote(output) {
				return fmt.Errorf("catalog.url %s is remote, use --output", output)
			}

			importer := catalog.NewImporter(cfg.Year, cfg.Catalog.GetTimeout(), logger)
			if existing, err := os.ReadFile(output); err == nil {
				events, errs := catalog.Decode(existing)
				logger.Info("Keeping IDs of existing catalog",
					zap.String("file", output),
					zap.Int("events", len(events)),
					zap.Int("skipped", len(errs)))
				importer.KeepIDs(events)
			}
			events, err := importer.Import(cmd.Context(), pageURL)
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			data, err := catalog.Encode(events)
			if err != nil {
				return fmt.Errorf("failed to encode catalog: %w", err)
			}
			if err := writeFile(output, data); err != nil {
				return err
			}

			fmt.Fprintf(stdout, "✅ %d Festivals nach %s geschrieben\n", len(events), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&pageURL, "url", "", "Listing page URL (default: catalog.import_url)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Catalog file to write (default: catalog.url)")

	return cmd
}

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh daemon and the local JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Server.Listen
			}

			p := initializePlanner(cfg)
			p.store.Load()

			srv := server.New(p.board, server.Options{
				ShareOrigin: cfg.Share.Origin,
				SharePath:   cfg.Share.GetPath(),
				Status:      func() any { return p.daemon.GetStatus() },
				Reload:      p.daemon.Reload,
			}, logger)

			errCh := make(chan error, 1)
			go func() {
				err := srv.ListenAndServe(p.daemon.Context(), listen)
				if err != nil {
					logger.Error("API server failed, stopping daemon", zap.Error(err))
					p.daemon.Stop()
				}
				errCh <- err
			}()

			if err := p.daemon.Start(); err != nil {
				p.daemon.Stop()
				<-errCh
				return fmt.Errorf("daemon failed: %w", err)
			}

			return <-errCh
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default: server.listen)")

	return cmd
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a starter config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "✅ Config written to %s\n", path)
			return nil
		},
	}
}

func monthArg(args []string) (time.Month, error) {
	if len(args) == 0 {
		return dateutil.Today().Month(), nil
	}
	m, err := strconv.Atoi(args[0])
	if err != nil || m < 1 || m > 12 {
		return 0, fmt.Errorf("month must be 1..12, got %q", args[0])
	}
	return time.Month(m), nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
