package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/clash-synergy/internal/api"
	"github.com/ramonehamilton/clash-synergy/internal/api/handlers"
	"github.com/ramonehamilton/clash-synergy/internal/config"
	"github.com/ramonehamilton/clash-synergy/internal/logging"
	"github.com/ramonehamilton/clash-synergy/internal/royale/errs"
	"github.com/ramonehamilton/clash-synergy/internal/service"
	"github.com/ramonehamilton/clash-synergy/internal/storage"
	"github.com/ramonehamilton/clash-synergy/internal/storage/repository"
	"github.com/ramonehamilton/clash-synergy/internal/version"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port    int
		catalog string
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if catalog != "" {
				cfg.Catalog.Source = config.SourceCSV
				cfg.Catalog.Path = catalog
			}
			if cmd.Flags().Changed("watch") {
				cfg.Catalog.Watch = watch
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides config)")
	cmd.Flags().StringVar(&catalog, "catalog", "", "CSV catalog path (overrides config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild the index when the CSV changes")

	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader, closeLoader, err := newLoader(cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	svc := service.New(loader, nil)
	if err := svc.Load(ctx); err != nil {
		var cfgErr *errs.ConfigurationError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("card catalog rejected: %w", err)
		}
		return fmt.Errorf("failed to load card catalog: %w", err)
	}

	server := api.NewServer(&api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		Limits: handlers.Limits{
			DefaultTopN: cfg.Recommend.DefaultTopN,
			MaxTopN:     cfg.Recommend.MaxTopN,
			MaxSelected: cfg.Recommend.MaxSelected,
		},
		Version: version.GetVersion(),
	}, svc)

	if err := server.Start(); err != nil {
		return err
	}

	if cfg.Catalog.Watch && cfg.Catalog.Source == config.SourceCSV {
		debounce, _ := cfg.GetDebounce()
		go func() {
			if err := svc.Watch(ctx, cfg.Catalog.Path, debounce); err != nil {
				logging.Error().Err(err).Msg("Catalog watcher stopped")
			}
		}()
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// newLoader picks the catalog source from the config. The returned close
// function releases the database when the source is sqlite.
func newLoader(cfg *config.Config) (service.Loader, func(), error) {
	switch cfg.Catalog.Source {
	case config.SourceSQLite:
		dbCfg := storage.DefaultConfig(cfg.Database.Path)
		dbCfg.AutoMigrate = cfg.Database.AutoMigrate
		db, err := storage.Open(dbCfg)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := db.Close(); err != nil {
				logging.Warn().Err(err).Msg("Failed to close catalog database")
			}
		}
		return &service.RepositoryLoader{Repo: repository.NewCardRepository(db)}, closeFn, nil
	default:
		return &service.CSVLoader{Path: cfg.Catalog.Path}, func() {}, nil
	}
}
