package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
	"github.com/custodia-labs/aecg-cli/internal/logger"
)

// watchDebounce is how long the study must be quiet before a re-index.
var watchDebounce = 2 * time.Second

var indexOpts struct {
	dir          string
	appType      string
	appNum       string
	studyID      string
	numSubj      int
	necgSubj     int
	totalECGs    int
	anMethod     string
	anLead       string
	nBeats       int
	sponsor      string
	description  string
	allIntervals bool
	outputXLSX   string
	nprocs       int
	stddev       string
	studyInfo    string
	watch        bool
	noProgress   bool
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build a cohort index over a study directory",
	Long: `Discovers every aECG XML file under --dir, including members of zip
archives, decodes them in parallel and measures their intervals.

One row per file is stored with the run, together with study-wide
interval statistics and cohort counts. Files that fail to decode are
kept as failed rows and do not stop the run.

Study details come from the built-in defaults, then --study-info, then
the individual flags.

Examples:
  aecg index --dir ./study --studyid ABC-123 --oxlsx index.xlsx
  aecg index --dir ./study --study-info study.yaml --nprocs 8
  aecg index --dir ./study --watch`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	f := indexCmd.Flags()
	f.StringVar(&indexOpts.dir, "dir", "", "study directory (required)")
	f.StringVar(&indexOpts.appType, "apptype", "", "application type (e.g. IND, NDA)")
	f.StringVar(&indexOpts.appNum, "appnum", "", "application number (6 digits)")
	f.StringVar(&indexOpts.studyID, "studyid", "", "study identifier")
	f.IntVar(&indexOpts.numSubj, "numsubj", 0, "expected number of subjects")
	f.IntVar(&indexOpts.necgSubj, "necgsubj", 0, "expected ECGs per subject")
	f.IntVar(&indexOpts.totalECGs, "totalecgs", 0, "expected total number of ECGs")
	f.StringVar(&indexOpts.anMethod, "annmethod", "", "annotated waveform: RHYTHM, DERIVED, HOLTER_RHYTHM or HOLTER_MEDIAN_BEAT")
	f.StringVar(&indexOpts.anLead, "annlead", "", "primary annotated lead (e.g. II, or GLOBAL)")
	f.IntVar(&indexOpts.nBeats, "nbeatsann", 0, "expected annotated beats per ECG")
	f.StringVar(&indexOpts.sponsor, "sponsor", "", "study sponsor")
	f.StringVar(&indexOpts.description, "description", "", "study description")
	f.BoolVarP(&indexOpts.allIntervals, "allintervals", "a", false, "keep every interval, not only averages")
	f.StringVar(&indexOpts.outputXLSX, "oxlsx", "", "write the index workbook to this path")
	f.IntVar(&indexOpts.nprocs, "nprocs", 0, "files decoded in parallel (default from config)")
	f.StringVar(&indexOpts.stddev, "stddev", "", "summary standard deviation: population or sample")
	f.StringVar(&indexOpts.studyInfo, "study-info", "", "YAML file with study details")
	f.BoolVar(&indexOpts.watch, "watch", false, "re-index when files under --dir change")
	f.BoolVar(&indexOpts.noProgress, "no-progress", false, "do not show progress")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if err := requireService("index", indexService); err != nil {
		return err
	}

	req, err := buildIndexRequest(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	index, err := runWithProgress(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), req, !indexOpts.noProgress)
	if index != nil {
		outputIndexResult(cmd, index, req)
	}
	if err != nil && !indexOpts.watch {
		return fmt.Errorf("index failed: %w", err)
	}
	if err != nil {
		logger.Warn("Index run failed: %v", err)
	}

	if indexOpts.watch {
		return watchStudy(cmd, req)
	}
	return nil
}

// buildIndexRequest layers configuration, the study info file and flags.
//
//nolint:gocyclo // One branch per flag
func buildIndexRequest(cmd *cobra.Command) (driving.IndexRequest, error) {
	if indexOpts.dir == "" {
		return driving.IndexRequest{}, fmt.Errorf("--dir is required: %w", domain.ErrInvalidInput)
	}

	settings := domain.DefaultSettings()
	if settingsService != nil {
		s, err := settingsService.Get()
		if err != nil {
			return driving.IndexRequest{}, fmt.Errorf("load settings: %w", err)
		}
		settings = *s
	}

	info := domain.DefaultStudyInfo()
	info.AnLead = settings.Index.AnLead
	if indexOpts.studyInfo != "" {
		if studyInfoLoader == nil {
			return driving.IndexRequest{}, errors.New("study info loader not configured")
		}
		loaded, err := studyInfoLoader.LoadStudyInfo(indexOpts.studyInfo, info)
		if err != nil {
			return driving.IndexRequest{}, fmt.Errorf("load study info: %w", err)
		}
		info = loaded
	}

	flags := cmd.Flags()
	setString := func(name string, dst *string, val string) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	setInt := func(name string, dst *int, val int) {
		if flags.Changed(name) {
			*dst = val
		}
	}
	setString("apptype", &info.AppType, indexOpts.appType)
	setString("appnum", &info.AppNum, indexOpts.appNum)
	setString("studyid", &info.StudyID, indexOpts.studyID)
	setInt("numsubj", &info.NumSubj, indexOpts.numSubj)
	setInt("necgsubj", &info.NECGSubj, indexOpts.necgSubj)
	setInt("totalecgs", &info.TotalECGs, indexOpts.totalECGs)
	setString("annmethod", &info.AnMethod, indexOpts.anMethod)
	setString("annlead", &info.AnLead, indexOpts.anLead)
	setInt("nbeatsann", &info.AnNbeats, indexOpts.nBeats)
	setString("sponsor", &info.Sponsor, indexOpts.sponsor)
	setString("description", &info.Description, indexOpts.description)
	if indexOpts.outputXLSX != "" && info.IndexFile == "" {
		info.IndexFile = indexOpts.outputXLSX
	}
	if info.Date == "" {
		info.Date = time.Now().Format("2006-01-02")
	}

	req := driving.IndexRequest{
		Dir:          indexOpts.dir,
		Info:         info,
		Workers:      settings.Index.Workers,
		AllIntervals: settings.Index.AllIntervals || indexOpts.allIntervals,
		Stddev:       settings.Index.Stddev,
		OutputXLSX:   indexOpts.outputXLSX,
	}
	if flags.Changed("nprocs") {
		if indexOpts.nprocs < 1 {
			return driving.IndexRequest{}, fmt.Errorf("--nprocs must be at least 1: %w", domain.ErrInvalidInput)
		}
		req.Workers = indexOpts.nprocs
	}
	if flags.Changed("stddev") {
		req.Stddev = domain.StddevMode(indexOpts.stddev)
	}
	return req, nil
}

func outputIndexResult(cmd *cobra.Command, index *domain.CohortIndex, req driving.IndexRequest) {
	run := index.Run
	cmd.Printf("Run %s %s: %d of %d files processed, %d failed\n",
		run.ID, run.Status, run.Processed, run.Total, run.Failed)
	outputSummaryTables(cmd.OutOrStdout(), index.Summaries, &index.Stats)
	if req.OutputXLSX != "" && run.Status == domain.RunCompleted {
		cmd.Printf("Index workbook: %s\n", req.OutputXLSX)
	}
}

// watchStudy re-indexes the study after changes settle until the command
// context is cancelled.
func watchStudy(cmd *cobra.Command, req driving.IndexRequest) error {
	if connectorFactory == nil {
		return errors.New("connector factory not configured")
	}
	ctx := cmd.Context()

	conn, err := connectorFactory.Create(ctx, req.Dir)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer conn.Close()

	if !conn.Capabilities().SupportsWatch {
		return fmt.Errorf("%s connector cannot watch for changes", conn.Type())
	}
	changes, err := conn.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", req.Dir, err)
	}

	cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", req.Dir)

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			logger.Debug("%s %s", change.Type, change.Origin.Location())
			timer.Reset(watchDebounce)
		case <-timer.C:
			reindex(ctx, cmd, req)
		}
	}
}

func reindex(ctx context.Context, cmd *cobra.Command, req driving.IndexRequest) {
	// The interactive view would take over the terminal on every change.
	index, err := runWithProgress(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), req, false)
	if index != nil {
		outputIndexResult(cmd, index, req)
	}
	if err != nil && ctx.Err() == nil {
		logger.Warn("Re-index failed: %v", err)
	}
}
