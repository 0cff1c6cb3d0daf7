package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/multifamily-cli/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage payment standard editions",
	Long:  "Import new payment standard editions into the local database, list the editions available to analyses, and delete imported ones.",
}

// -- schedule import --

var scheduleImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an edition from a YAML file or xlsx workbook",
	Long: `Imports an edition into the schedule database (schedule.database_path).
Re-importing an edition id replaces it.

Workbooks need a "standards" sheet (Group | Label | SRO | 0BR ... 8BR) and a
"zips" sheet (ZIP | Group).

Examples:
  multifamily-cli schedule import --yaml editions/2026.yaml
  multifamily-cli schedule import --xlsx pha-2026.xlsx --edition 2026 --effective 2026-11-01`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		yamlPath, _ := cmd.Flags().GetString("yaml")
		xlsxPath, _ := cmd.Flags().GetString("xlsx")

		var (
			s   *schedule.Schedule
			err error
		)
		switch {
		case yamlPath != "" && xlsxPath != "":
			return eris.New("schedule import: use only one of --yaml or --xlsx")
		case yamlPath != "":
			s, err = schedule.LoadFile(yamlPath)
		case xlsxPath != "":
			s, err = importWorkbook(cmd, xlsxPath)
		default:
			return eris.New("schedule import: one of --yaml or --xlsx is required")
		}
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg.Schedule.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.SaveSchedule(ctx, s); err != nil {
			return err
		}
		zap.L().Info("schedule: imported edition",
			zap.String("edition", string(s.Edition())),
			zap.Int("groups", len(s.Groups())),
			zap.Int("zips", len(s.ZIPs())),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Imported edition %s: %d groups, %d ZIP codes\n", s.Edition(), len(s.Groups()), len(s.ZIPs()))
		return nil
	},
}

func importWorkbook(cmd *cobra.Command, path string) (*schedule.Schedule, error) {
	edition, _ := cmd.Flags().GetString("edition")
	title, _ := cmd.Flags().GetString("title")
	effective, _ := cmd.Flags().GetString("effective")
	if edition == "" {
		return nil, eris.New("schedule import: --edition is required with --xlsx")
	}

	opts := schedule.WorkbookOptions{Edition: schedule.Edition(edition), Title: title}
	if effective != "" {
		t, err := time.Parse("2006-01-02", effective)
		if err != nil {
			return nil, eris.Wrapf(err, "schedule import: invalid --effective %q", effective)
		}
		opts.Effective = t
	}
	return schedule.ReadWorkbook(path, opts)
}

// -- schedule list --

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the editions available to analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		repo, err := loadRepository(ctx, cfg)
		if err != nil {
			return err
		}

		var imported []schedule.EditionInfo
		if _, statErr := os.Stat(cfg.Schedule.DatabasePath); statErr == nil {
			st, err := openStore(ctx, cfg.Schedule.DatabasePath)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if imported, err = st.ListEditions(ctx); err != nil {
				return err
			}
		}

		formatEditions(cmd.OutOrStdout(), repo, editionOrDefault(repo, cfg, ""), imported)
		return nil
	},
}

func formatEditions(w io.Writer, repo *schedule.Repository, def schedule.Edition, imported []schedule.EditionInfo) {
	importedAt := make(map[schedule.Edition]time.Time, len(imported))
	for _, info := range imported {
		importedAt[info.Edition] = info.ImportedAt
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "EDITION\tEFFECTIVE\tGROUPS\tZIPS\tSOURCE\tTITLE\n")
	for _, e := range repo.Editions() {
		s, err := repo.Schedule(e)
		if err != nil {
			continue
		}
		source := "built-in"
		if at, ok := importedAt[e]; ok {
			source = "imported " + at.Format("2006-01-02 15:04")
		}
		name := string(e)
		if e == def {
			name += " (default)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			name, s.Effective().Format("2006-01-02"), len(s.Groups()), len(s.ZIPs()), source, s.Title())
	}
	tw.Flush() //nolint:errcheck
}

// -- schedule delete --

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <edition>",
	Short: "Delete an imported edition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg.Schedule.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteSchedule(ctx, schedule.Edition(args[0])); err != nil {
			return eris.Wrap(err, "schedule delete")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted imported edition %s\n", args[0])
		return nil
	},
}

func init() {
	scheduleImportCmd.Flags().String("yaml", "", "edition YAML file")
	scheduleImportCmd.Flags().String("xlsx", "", "edition workbook")
	scheduleImportCmd.Flags().String("edition", "", "edition id for a workbook import")
	scheduleImportCmd.Flags().String("title", "", "edition title for a workbook import")
	scheduleImportCmd.Flags().String("effective", "", "effective date (YYYY-MM-DD) for a workbook import")

	scheduleCmd.AddCommand(scheduleImportCmd, scheduleListCmd, scheduleDeleteCmd)
	rootCmd.AddCommand(scheduleCmd)
}
