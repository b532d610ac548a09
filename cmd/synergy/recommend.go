package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ramonehamilton/clash-synergy/internal/config"
	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
	"github.com/ramonehamilton/clash-synergy/internal/service"
)

func newRecommendCmd(a *app) *cobra.Command {
	var (
		catalog string
		top     int
		asJSON  bool
		explain string
	)

	cmd := &cobra.Command{
		Use:   "recommend CARD [CARD...]",
		Short: "Rank cards that complement the given cards",
		Example: `  synergy recommend --catalog clash_royale_cards.csv --top 5 "Hog Rider" "Musketeer"
  synergy recommend --explain "Baby Dragon" Knight Giant`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := loadService(cmd.Context(), a.cfg, catalog)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()

			if explain != "" {
				rec, err := svc.Explain(args, explain)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, rec)
				}
				printRecommendations(out, args, []*recommendations.Recommendation{rec})
				return nil
			}

			result, err := svc.Recommend(args, top)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, result)
			}
			printRecommendations(out, result.SelectedCards, result.Recommendations)
			return nil
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", "", "CSV catalog path (overrides config)")
	cmd.Flags().IntVarP(&top, "top", "n", recommendations.DefaultTopN, "number of recommendations")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().StringVar(&explain, "explain", "", "score a single card against the selection")

	return cmd
}

// loadService builds a service from the configured source, or from catalog
// when given.
func loadService(ctx context.Context, cfg *config.Config, catalog string) (*service.Service, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if catalog != "" {
		cfg.Catalog.Source = config.SourceCSV
		cfg.Catalog.Path = catalog
	}

	loader, cleanup, err := newLoader(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := service.New(loader, nil)
	if err := svc.Load(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func printRecommendations(w io.Writer, selected []string, recs []*recommendations.Recommendation) {
	fmt.Fprintf(w, "Selected: %s\n\n", strings.Join(selected, ", "))
	fmt.Fprintf(w, "%-4s %-24s %-7s %-6s %-9s %s\n", "#", "Card", "Score", "Elixir", "Type", "Why")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for i, r := range recs {
		fmt.Fprintf(w, "%-4d %-24s %-7.3f %-6g %-9s %s\n", i+1, r.Name, r.SynergyScore, r.ElixirCost, r.Type, r.Explanation)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
