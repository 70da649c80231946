package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

var (
	summaryJSON   bool
	summaryFiles  bool
	summaryFailed bool
	runsJSON      bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary [run-id]",
	Short: "Show the interval statistics of an index run",
	Long: `Shows the study-wide interval statistics and cohort counts stored with
an index run. Without a run id the latest run is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummary,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored index runs",
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "output as JSON")
	summaryCmd.Flags().BoolVar(&summaryFiles, "files", false, "also list the files of the run")
	summaryCmd.Flags().BoolVar(&summaryFailed, "failed", false, "only list files that failed (implies --files)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(runsCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	if err := requireService("results", resultsService); err != nil {
		return err
	}

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}

	ctx := cmd.Context()
	sum, err := resultsService.Summary(ctx, runID)
	if err != nil {
		return fmt.Errorf("summary failed: %w", err)
	}

	var rows []domain.CohortRow
	if summaryFiles || summaryFailed {
		rows, err = resultsService.ListFiles(ctx, sum.Run.ID, summaryFailed)
		if err != nil {
			return fmt.Errorf("list files failed: %w", err)
		}
	}

	if summaryJSON {
		return outputJSON(cmd, struct {
			Run       domain.IndexRun       `json:"run"`
			Summaries []domain.StudySummary `json:"summaries"`
			Stats     *domain.StudyStats    `json:"stats,omitempty"`
			Files     []domain.CohortRow    `json:"files,omitempty"`
		}{sum.Run, sum.Summaries, sum.Stats, rows})
	}

	w := cmd.OutOrStdout()
	run := sum.Run
	render(w, "Run", table.Row{"Field", "Value"}, []table.Row{
		{"ID", run.ID},
		{"Study directory", run.StudyDir},
		{"Study", run.Info.StudyID},
		{"Status", run.Status},
		{"Started", formatTime(run.StartedAt)},
		{"Finished", formatTime(run.FinishedAt)},
		{"Files", fmt.Sprintf("%d of %d processed, %d failed", run.Processed, run.Total, run.Failed)},
		{"Error", run.Error},
	})
	outputSummaryTables(w, sum.Summaries, sum.Stats)
	if summaryFiles || summaryFailed {
		outputFilesTable(w, rows)
	}
	return nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if err := requireService("results", resultsService); err != nil {
		return err
	}

	runs, err := resultsService.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs failed: %w", err)
	}

	if runsJSON {
		return outputJSON(cmd, runs)
	}
	if len(runs) == 0 {
		cmd.Println("No runs found. Use 'aecg index --dir <study>' to create one.")
		return nil
	}

	rows := make([]table.Row, 0, len(runs))
	for i := range runs {
		r := &runs[i]
		rows = append(rows, table.Row{r.ID, r.Info.StudyID, r.StudyDir, r.Status, formatTime(r.StartedAt), r.Processed, r.Failed})
	}
	render(cmd.OutOrStdout(), "Runs", table.Row{"ID", "Study", "Directory", "Status", "Started", "Files", "Failed"}, rows)
	return nil
}

// outputSummaryTables renders study summaries and, when known, the cohort
// statistics.
func outputSummaryTables(w io.Writer, summaries []domain.StudySummary, stats *domain.StudyStats) {
	rows := make([]table.Row, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, table.Row{s.Kind, s.Count, s.InvalidCount, optionalMS(s.Mean), optionalMS(s.Median), optionalMS(s.Stddev)})
	}
	render(w, "Interval summary (ms)", table.Row{"Interval", "Count", "Invalid", "Mean", "Median", "Stddev"}, rows)

	if stats == nil {
		return
	}
	rows = rows[:0]
	for _, f := range stats.Fields() {
		value := f.Value
		if v, ok := value.(float64); ok {
			value = fmt.Sprintf("%.2f", v)
		}
		rows = append(rows, table.Row{f.Name, value})
	}
	render(w, "Study statistics", table.Row{"Statistic", "Value"}, rows)
}

func outputFilesTable(w io.Writer, rows []domain.CohortRow) {
	out := make([]table.Row, 0, len(rows))
	for i := range rows {
		r := &rows[i]
		status := "ok"
		if r.Failed {
			status = "failed: " + r.Error
		}
		out = append(out, table.Row{r.Seq, r.Origin.Location(), r.SubjectID, r.UUID, r.Warnings, r.Errors, status})
	}
	render(w, "Files", table.Row{"#", "File", "Subject", "UUID", "Warnings", "Errors", "Status"}, out)
}

func optionalMS(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
