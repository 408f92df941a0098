package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ViacheslavK/youtube-dashboards/internal/config"
	"github.com/ViacheslavK/youtube-dashboards/internal/migrate"
	"github.com/ViacheslavK/youtube-dashboards/internal/scheduler"
	"github.com/ViacheslavK/youtube-dashboards/internal/store"
	"github.com/ViacheslavK/youtube-dashboards/internal/syncer"
	"github.com/ViacheslavK/youtube-dashboards/pkg/source"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openRaw opens the database without touching the schema, for the
// migrate commands that report on it explicitly.
func openRaw(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	return store.Open(cfg.Database.Path, logger)
}

// openStore opens the database and brings it to the latest schema
// version before anything else touches it.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := openRaw(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine, err := migrate.NewEngine(st.DB(), migrate.Registry(), logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	if _, _, err := engine.Migrate(0); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return st, nil
}

// buildAdapterFunc returns the per-identity adapter factory. The
// authorized HTTP client for an identity's credential reference is the
// transport collaborator's job; the factory only assembles the adapter
// stack around it.
func buildAdapterFunc(cfg *config.Config) syncer.AdapterFunc {
	return func(ctx context.Context, ident *store.Identity) (source.Adapter, error) {
		var adapter source.Adapter = source.NewYouTube(nil, cfg.Source.APIKey)
		if cfg.Source.FeedFallback {
			adapter = source.WithFeedFallback(adapter, source.NewFeedLister(nil))
		}
		return adapter, nil
	}
}

func runMigrate(target int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger()

	st, err := openRaw(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	engine, err := migrate.NewEngine(st.DB(), migrate.Registry(), logger)
	if err != nil {
		return err
	}

	applied, attempted, err := engine.Migrate(target)
	fmt.Fprintf(os.Stderr, "applied %d of %d pending migrations\n", applied, attempted)
	if err != nil {
		return fmt.Errorf("migration stopped: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openRaw(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	engine, err := migrate.NewEngine(st.DB(), migrate.Registry(), newLogger())
	if err != nil {
		return err
	}

	current, err := engine.CurrentVersion()
	if err != nil {
		return err
	}
	pending, err := engine.Pending(0)
	if err != nil {
		return err
	}

	fmt.Printf("current version: %d\n", current)
	fmt.Printf("available: %d\n", len(engine.Available()))
	fmt.Printf("pending: %d\n", len(pending))
	for _, m := range pending {
		fmt.Printf("  [%d] %s\n", m.Version, m.Unit.Name)
	}
	return nil
}

func runMigrateHistory() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openRaw(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	engine, err := migrate.NewEngine(st.DB(), migrate.Registry(), newLogger())
	if err != nil {
		return err
	}

	history, err := engine.History()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no migrations applied yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED")
	for _, h := range history {
		fmt.Fprintf(w, "%d\t%s\t%s\n", h.Version, h.Name, h.AppliedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runMigrateCreate(name string, version int) error {
	path, err := migrate.CreateTemplate("internal/migrate", name, version, migrate.Registry())
	if err != nil {
		return err
	}
	fmt.Printf("created migration: %s\n", path)
	fmt.Println("edit the stub and register the unit in Registry()")
	return nil
}

func runSync(maxVideos int, subsOnly bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger()

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if maxVideos <= 0 {
		maxVideos = cfg.Sync.MaxVideosPerChannel
	}
	sy := syncer.New(st, buildAdapterFunc(cfg), maxVideos, logger)

	ctx := context.Background()
	idents, err := st.ListIdentities(ctx)
	if err != nil {
		return err
	}
	if len(idents) == 0 {
		fmt.Println("no identities configured (ytdash identity add)")
		return nil
	}

	totalNew := 0
	for i := range idents {
		ident := &idents[i]
		fmt.Fprintf(os.Stderr, "syncing %s...\n", ident.Name)

		adapter, err := buildAdapterFunc(cfg)(ctx, ident)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  adapter error: %v\n", err)
			continue
		}
		channels, err := adapter.ListSubscriptions(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			continue
		}

		stats, err := sy.Reconcile(ctx, ident.ID, channels)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  activated %d, deactivated %d, unchanged %d, added %d\n",
			stats.Activated, stats.Deactivated, stats.Unchanged, stats.Added)

		if subsOnly {
			continue
		}

		newVideos, err := sy.IngestVideos(ctx, ident, adapter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			continue
		}
		fmt.Fprintf(os.Stderr, "  %d new videos\n", newVideos)
		totalNew += newVideos
	}

	fmt.Fprintf(os.Stderr, "\ntotal: %d new videos across %d identities\n", totalNew, len(idents))

	unresolved, err := st.ListUnresolvedErrors(ctx, 0)
	if err == nil && len(unresolved) > 0 {
		fmt.Fprintf(os.Stderr, "%d unresolved sync errors (ytdash errors)\n", len(unresolved))
	}
	return nil
}

func runErrorsList(identityID int64) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	errs, err := st.ListUnresolvedErrors(context.Background(), identityID)
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		fmt.Println("no unresolved sync errors")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tCHANNEL\tOCCURRED\tMESSAGE")
	for _, e := range errs {
		msg := e.ErrorMessage
		if len(msg) > 60 {
			msg = msg[:60] + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			e.ID, e.ErrorType, e.ChannelName,
			e.OccurredAt.Format("2006-01-02 15:04"), msg)
	}
	return w.Flush()
}

func runErrorsResolve(idArg string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid error id %q", idArg)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.MarkErrorResolved(context.Background(), id); err != nil {
		return err
	}
	fmt.Printf("error %d resolved\n", id)
	return nil
}

func runErrorsPurge(days int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	purged, err := st.PurgeResolvedErrors(context.Background(), days)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d resolved errors older than %d days\n", purged, days)
	return nil
}

func runIdentityAdd(name, accountID, credential, color string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ident := &store.Identity{
		Name:              name,
		ExternalAccountID: accountID,
		CredentialRef:     credential,
		Color:             color,
	}
	if err := st.AddIdentity(context.Background(), ident); err != nil {
		return err
	}
	fmt.Printf("identity %q added (id %d)\n", ident.Name, ident.ID)
	return nil
}

func runIdentityList() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStore(cfg, newLogger())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	idents, err := st.ListIdentities(context.Background())
	if err != nil {
		return err
	}
	if len(idents) == 0 {
		fmt.Println("no identities configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACCOUNT\tCOLOR\tCREATED")
	for _, ident := range idents {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			ident.ID, ident.Name, ident.ExternalAccountID, ident.Color,
			ident.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func runDaemon() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger()

	st, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	sy := syncer.New(st, buildAdapterFunc(cfg), cfg.Sync.MaxVideosPerChannel, logger)
	sched := scheduler.New(st, sy, cfg.Schedule.ParseSyncInterval(), cfg.Sync.ErrorRetentionDays, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = sched.Run(ctx)
	if err != nil && ctx.Err() != nil {
		logger.Info("daemon stopped", "uptime", time.Since(start).Round(time.Second))
		return nil
	}
	return err
}
