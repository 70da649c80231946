// Command aecg decodes HL7 aECG files and builds cohort indexes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/aecg-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/aecg-cli/internal/adapters/driven/reportlog"
	"github.com/custodia-labs/aecg-cli/internal/adapters/driven/schema"
	"github.com/custodia-labs/aecg-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/aecg-cli/internal/adapters/driven/workbook"
	"github.com/custodia-labs/aecg-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/aecg-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/services"
	"github.com/custodia-labs/aecg-cli/internal/logger"
	"github.com/custodia-labs/aecg-cli/internal/normalisers/aecg"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetInitializer(initServices)

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// initServices wires the adapters into the services once flags are parsed.
func initServices(_ context.Context, opts cli.GlobalOptions) (*cli.Services, func() error, error) {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	level, format := settings.Log.Level, settings.Log.Format
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		format = opts.LogFormat
	}
	if err := logger.Configure(level, format); err != nil {
		return nil, nil, err
	}
	logger.SetVerbose(opts.Verbose)

	store, err := sqlite.NewStore(settings.Store.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("open index store: %w", err)
	}
	logger.Debug("Index database: %s", store.Path())

	var (
		sink    driven.ReportSink
		closers = []func() error{store.Close}
	)
	if opts.ReportLog != "" {
		s, err := reportlog.Open(opts.ReportLog, reportlog.EncodingJSON)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		sink = s
		closers = append(closers, s.Close)
	}

	connectors := filesystem.NewFactory()
	strict := settings.Index.Strict || opts.Strict
	logger.Debug("Strict schema validation: %t", strict)
	normaliser := aecg.New(schema.NewValidator(strict))
	writer := workbook.NewWriter()
	indexStore := store.IndexStore()

	svc := &cli.Services{
		Index:      services.NewCohortIndexer(connectors, normaliser, indexStore, sink, writer),
		Inspect:    services.NewInspectService(connectors, normaliser),
		Results:    services.NewResultsService(indexStore),
		Settings:   settingsService,
		Workbook:   writer,
		StudyInfo:  file.NewStudyInfoLoader(),
		Connectors: connectors,
	}

	release := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		// Syncing stderr fails on some terminals.
		_ = logger.Sync()
		return errors.Join(errs...)
	}
	return svc, release, nil
}
