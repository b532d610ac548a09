package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/clash-synergy/internal/royale/recommendations"
)

func newSimilarCmd(a *app) *cobra.Command {
	var (
		catalog string
		top     int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "similar CARD",
		Short: "List the cards whose attributes are closest to CARD",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := loadService(cmd.Context(), a.cfg, catalog)
			if err != nil {
				return err
			}
			defer cleanup()

			similar, err := svc.Similar(args[0], top)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, similar)
			}
			fmt.Fprintf(out, "Cards similar to %s\n\n", args[0])
			fmt.Fprintf(out, "%-4s %-24s %s\n", "#", "Card", "Similarity")
			for _, sc := range similar {
				fmt.Fprintf(out, "%-4d %-24s %.3f\n", sc.Rank, sc.Name, sc.Similarity)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalog, "catalog", "", "CSV catalog path (overrides config)")
	cmd.Flags().IntVarP(&top, "top", "n", recommendations.DefaultTopN, "number of cards")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}
