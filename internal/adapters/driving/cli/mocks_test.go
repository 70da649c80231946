package cli

import (
	"context"
	"strconv"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// mockIndexService records the request and returns a fixed index.
type mockIndexService struct {
	mu     sync.Mutex
	calls  int
	gotReq driving.IndexRequest
	index  *domain.CohortIndex
	err    error
}

func (m *mockIndexService) Index(_ context.Context, req driving.IndexRequest) (*domain.CohortIndex, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.gotReq = req
	return m.index, m.err
}

func (m *mockIndexService) Status() domain.IndexStatus {
	return domain.IndexStatus{}
}

// mockInspectService returns a fixed result.
type mockInspectService struct {
	result *driving.InspectResult
	err    error
	gotReq driving.InspectRequest
}

func (m *mockInspectService) Inspect(_ context.Context, req driving.InspectRequest) (*driving.InspectResult, error) {
	m.gotReq = req
	return m.result, m.err
}

// mockResultsService serves fixed runs.
type mockResultsService struct {
	runs    []domain.IndexRun
	files   []domain.CohortRow
	summary *driving.RunSummary
	err     error

	gotRunID      string
	gotFailedOnly bool
}

func (m *mockResultsService) ListRuns(_ context.Context) ([]domain.IndexRun, error) {
	return m.runs, m.err
}

func (m *mockResultsService) GetRun(_ context.Context, runID string) (*domain.IndexRun, error) {
	if len(m.runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.runs[0], m.err
}

func (m *mockResultsService) ListFiles(_ context.Context, runID string, failedOnly bool) ([]domain.CohortRow, error) {
	m.gotRunID = runID
	m.gotFailedOnly = failedOnly
	return m.files, m.err
}

func (m *mockResultsService) Summary(_ context.Context, runID string) (*driving.RunSummary, error) {
	m.gotRunID = runID
	if m.err != nil {
		return nil, m.err
	}
	if m.summary == nil {
		return nil, domain.ErrNotFound
	}
	return m.summary, nil
}

// mockSettingsService keeps settings in memory.
type mockSettingsService struct {
	settings domain.Settings
	err      error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultSettings()}
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.Settings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetValue(key, raw string) error {
	switch key {
	case "index.nprocs":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ErrInvalidInput
		}
		m.settings.Index.Workers = n
	case "index.strict":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.ErrInvalidInput
		}
		m.settings.Index.Strict = b
	case "log.level":
		m.settings.Log.Level = raw
	default:
		return domain.ErrInvalidInput
	}
	return nil
}

func (m *mockSettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// mockWorkbookWriter records the export.
type mockWorkbookWriter struct {
	gotPath   string
	gotExport driven.WaveformExport
	err       error
}

func (m *mockWorkbookWriter) WriteIndex(_ context.Context, _ *domain.CohortIndex, path string) error {
	m.gotPath = path
	return m.err
}

func (m *mockWorkbookWriter) WriteWaveforms(_ context.Context, export driven.WaveformExport, path string) error {
	m.gotPath = path
	m.gotExport = export
	return m.err
}

// mockStudyInfoLoader overlays fixed values on the defaults.
type mockStudyInfoLoader struct {
	gotPath string
	studyID string
	sponsor string
	err     error
}

func (m *mockStudyInfoLoader) LoadStudyInfo(path string, defaults domain.StudyInfo) (domain.StudyInfo, error) {
	m.gotPath = path
	if m.err != nil {
		return domain.StudyInfo{}, m.err
	}
	defaults.StudyID = m.studyID
	defaults.Sponsor = m.sponsor
	return defaults, nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	index     *mockIndexService
	inspect   *mockInspectService
	results   *mockResultsService
	settings  *mockSettingsService
	workbook  *mockWorkbookWriter
	studyInfo *mockStudyInfoLoader
}

var mocks *testServices

// setupTestServices installs fresh mocks and returns a cleanup function
// that removes them and resets every flag.
func setupTestServices() func() {
	mocks = &testServices{
		index: &mockIndexService{
			index: &domain.CohortIndex{
				Run: domain.IndexRun{ID: "run-1", Status: domain.RunCompleted, Total: 2, Processed: 2, Failed: 1},
			},
		},
		inspect:   &mockInspectService{},
		results:   &mockResultsService{},
		settings:  newMockSettingsService(),
		workbook:  &mockWorkbookWriter{},
		studyInfo: &mockStudyInfoLoader{studyID: "FROM-YAML", sponsor: "ACME"},
	}
	SetServices(&Services{
		Index:     mocks.index,
		Inspect:   mocks.inspect,
		Results:   mocks.results,
		Settings:  mocks.settings,
		Workbook:  mocks.workbook,
		StudyInfo: mocks.studyInfo,
	})

	return func() {
		SetServices(nil)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
	}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
