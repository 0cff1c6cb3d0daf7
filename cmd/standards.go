package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/multifamily-cli/internal/schedule"
)

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "Show the payment standard table for an edition",
	Long: `Prints the rent ceiling for every group and bedroom class. The table can
also be exported as YAML (the format accepted by schedule.files in config)
or as an xlsx workbook (the format accepted by "schedule import --xlsx").`,
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

		if path, _ := cmd.Flags().GetString("export-yaml"); path != "" {
			data, err := schedule.EncodeYAML(s)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return eris.Wrap(err, "standards: write yaml")
			}
			zap.L().Info("standards: exported yaml", zap.String("path", path))
		}
		if path, _ := cmd.Flags().GetString("export-xlsx"); path != "" {
			if err := schedule.WriteWorkbook(s, path); err != nil {
				return err
			}
			zap.L().Info("standards: exported workbook", zap.String("path", path))
		}

		formatStandards(cmd.OutOrStdout(), s)
		return nil
	},
}

func formatStandards(w io.Writer, s *schedule.Schedule) {
	fmt.Fprintf(w, "%s (edition %s, effective %s)\n\n", s.Title(), s.Edition(), s.Effective().Format("2006-01-02"))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := []string{"GROUP", "RENT TYPE"}
	for _, c := range schedule.Classes {
		header = append(header, string(c))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, g := range s.Groups() {
		row := []string{fmt.Sprintf("%d", g.ID), g.Label}
		for _, c := range schedule.Classes {
			if amount, ok := g.Ceilings[c]; ok {
				row = append(row, fmt.Sprintf("$%d", amount))
			} else {
				row = append(row, "-")
			}
		}
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	standardsCmd.Flags().String("edition", "", "payment standard edition (default: earliest)")
	standardsCmd.Flags().String("export-yaml", "", "also write the edition as YAML to this path")
	standardsCmd.Flags().String("export-xlsx", "", "also write the edition as an xlsx workbook to this path")
	rootCmd.AddCommand(standardsCmd)
}
