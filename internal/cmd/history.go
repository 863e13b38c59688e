package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/verigate/internal/config"
	"github.com/harrison/verigate/internal/store"
)

// NewHistoryCommand creates the history command, which lists recent gate
// runs from the history database.
func NewHistoryCommand(configPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent gate runs",
		Long: `List recent gate runs recorded in the history database, newest first.

Each row shows the run ID, start time, verdict, blocking-finding count and
duration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if *configPath != "" {
				cfg, err = config.LoadConfig(*configPath)
			} else {
				cfg, err = config.LoadConfigFromDir(".")
			}
			if err != nil {
				return err
			}

			st, err := store.NewStore(cfg.HistoryDBPath)
			if err != nil {
				return fmt.Errorf("open history database: %w", err)
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show (0 = all)")

	return cmd
}

// printRuns renders run records as an aligned table.
func printRuns(w io.Writer, runs []store.RunRecord) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No gate runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tVERDICT\tBLOCKING\tDURATION")
	for _, run := range runs {
		verdict := "PASS"
		if !run.Pass {
			verdict = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			run.ID,
			run.StartedAt.Local().Format(time.RFC3339),
			verdict,
			run.BlockingFindings,
			run.Duration.Round(time.Millisecond),
		)
	}
	return tw.Flush()
}
