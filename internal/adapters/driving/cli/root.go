// Package cli provides the aecg command line interface.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
	"github.com/custodia-labs/aecg-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	Verbose   bool
	LogLevel  string
	LogFormat string
	ReportLog string

	// Strict turns on strict schema validation on top of index.strict.
	Strict bool
}

// Services holds the ports the commands drive.
type Services struct {
	Index    driving.IndexService
	Inspect  driving.InspectService
	Results  driving.ResultsService
	Settings driving.SettingsService

	// Workbook writes the print export.
	Workbook driven.WorkbookWriter

	// StudyInfo reads --study-info files.
	StudyInfo driven.StudyInfoLoader

	// Connectors opens study directories for --watch.
	Connectors driven.ConnectorFactory
}

// Initializer builds the services once global flags are parsed.
// The returned function releases them after the command ran.
type Initializer func(ctx context.Context, opts GlobalOptions) (*Services, func() error, error)

var (
	globalOpts  GlobalOptions
	initializer Initializer
	releaseFn   func() error

	indexService     driving.IndexService
	inspectService   driving.InspectService
	resultsService   driving.ResultsService
	settingsService  driving.SettingsService
	workbookWriter   driven.WorkbookWriter
	studyInfoLoader  driven.StudyInfoLoader
	connectorFactory driven.ConnectorFactory
)

// skipServices marks commands that run without the service graph.
const skipServices = "skip-services"

var rootCmd = &cobra.Command{
	Use:   "aecg",
	Short: "Decode HL7 aECG files and index ECG studies",
	Long: `aecg decodes HL7 annotated ECG (aECG) XML files, measures RR, PR, QRS,
QT and QTcF intervals from their annotations, and builds cohort indexes
over study directories of XML and zip files.

Results are stored locally and can be read back with 'aecg runs' and
'aecg summary', exported to Excel, or served to AI assistants over MCP.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&globalOpts.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&globalOpts.LogFormat, "log-format", "", "log format: console or json")
	flags.StringVar(&globalOpts.ReportLog, "report-log", "", "append parse report records to this file")
	flags.BoolVar(&globalOpts.Strict, "strict", false, "reject files whose root is not in the HL7 v3 namespace")
}

// SetServices injects the services used by the commands.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	indexService = s.Index
	inspectService = s.Inspect
	resultsService = s.Results
	settingsService = s.Settings
	workbookWriter = s.Workbook
	studyInfoLoader = s.StudyInfo
	connectorFactory = s.Connectors
}

// SetInitializer registers the function that builds services from the
// parsed global flags. Without one, services set by SetServices are used.
func SetInitializer(fn Initializer) {
	initializer = fn
}

// SetVersion sets the version reported by 'aecg version'.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and releases the services it built.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, release())
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[skipServices] == "true" {
		return nil
	}
	if initializer == nil {
		logger.SetVerbose(globalOpts.Verbose)
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	services, releaseServices, err := initializer(ctx, globalOpts)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}
	SetServices(services)
	releaseFn = releaseServices
	return nil
}

func release() error {
	if releaseFn == nil {
		return nil
	}
	err := releaseFn()
	releaseFn = nil
	return err
}

func requireService(name string, svc any) error {
	if svc == nil {
		return errors.New(name + " service not configured")
	}
	return nil
}
