package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/multifamily-cli/internal/schedule"
)

var zipsCmd = &cobra.Command{
	Use:   "zips",
	Short: "List ZIP codes with their rent group and neighborhood",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := loadRepository(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		flag, _ := cmd.Flags().GetString("edition")
		s, err := repo.Schedule(editionOrDefault(repo, cfg, flag))
		if err != nil {
			return err
		}
		formatZIPs(cmd.OutOrStdout(), repo, s)
		return nil
	},
}

func formatZIPs(w io.Writer, repo *schedule.Repository, s *schedule.Schedule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ZIP\tGROUP\tRENT TYPE\tNEIGHBORHOOD\n")
	for _, zip := range s.ZIPs() {
		g, _ := s.GroupFor(zip)
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", zip, g, repo.GroupLabel(g, s.Edition()), repo.NeighborhoodLabel(zip))
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	zipsCmd.Flags().String("edition", "", "payment standard edition (default: earliest)")
	rootCmd.AddCommand(zipsCmd)
}
