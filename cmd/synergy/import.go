package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/clash-synergy/internal/logging"
	"github.com/ramonehamilton/clash-synergy/internal/royale/catalog"
	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
	"github.com/ramonehamilton/clash-synergy/internal/storage"
	"github.com/ramonehamilton/clash-synergy/internal/storage/repository"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		csvPath string
		dbPath  string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a CSV catalog into the SQLite store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if csvPath == "" {
				csvPath = a.cfg.Catalog.Path
			}
			if dbPath == "" {
				dbPath = a.cfg.Database.Path
			}

			n, err := importCatalog(cmd.Context(), csvPath, dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d cards into %s\n", n, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "catalog", "", "CSV catalog to import (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")

	return cmd
}

// importCatalog replaces the stored catalog with the CSV contents. The cards
// must build a valid index before anything is written.
func importCatalog(ctx context.Context, csvPath, dbPath string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cards, err := catalog.LoadCSVFile(csvPath)
	if err != nil {
		return 0, err
	}
	if _, err := recommendations.BuildIndex(cards); err != nil {
		return 0, fmt.Errorf("refusing to import %s: %w", csvPath, err)
	}

	dbCfg := storage.DefaultConfig(dbPath)
	dbCfg.AutoMigrate = true
	db, err := storage.Open(dbCfg)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close catalog database")
		}
	}()

	repo := repository.NewCardRepository(db)
	if err := repo.ReplaceAll(ctx, cards); err != nil {
		return 0, err
	}
	stored, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}

	logging.Info().Str("csv", csvPath).Str("db", dbPath).Int("cards", stored).Msg("Catalog imported")
	return stored, nil
}
