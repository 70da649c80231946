package driven

import (
	"context"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// ReportSink receives parse report entries as files are decoded.
type ReportSink interface {
	// Record logs the entries of one document.
	Record(origin domain.Origin, entries []domain.ReportEntry)

	// Sync flushes buffered records.
	Sync() error
}

// WaveformExport is the data of one decoded file prepared for export.
type WaveformExport struct {
	Document     *domain.Document
	Measurements []domain.IntervalMeasurement
}

// WorkbookWriter writes spreadsheet exports.
type WorkbookWriter interface {
	// WriteIndex writes the study index workbook.
	WriteIndex(ctx context.Context, index *domain.CohortIndex, path string) error

	// WriteWaveforms writes samples and markers of one document.
	WriteWaveforms(ctx context.Context, export WaveformExport, path string) error
}

// StudyInfoLoader reads study descriptions from files.
type StudyInfoLoader interface {
	// LoadStudyInfo reads a study info file over the given defaults.
	LoadStudyInfo(path string, defaults domain.StudyInfo) (domain.StudyInfo, error)
}
