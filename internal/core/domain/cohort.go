package domain

import "time"

// DigitizedMissingRatio is the missing-sample ratio at or above which a
// waveform is flagged as potentially digitized from paper.
const DigitizedMissingRatio = 0.05

// WaveformSummary is the index data of one waveform of a file.
type WaveformSummary struct {
	Kind WaveformKind

	// Annotated is set when the waveform has at least one annotation.
	Annotated bool

	// HasIntervals is set when annotations produced at least one marker.
	HasIntervals bool

	NumLeads int

	// NumBeats counts the MDC_ECG_BEAT annotations across all sets.
	NumBeats       int
	NumAnnotations int

	NumAnnotatedLeads   int
	MissingSamplesRatio float64

	Aggregates []IntervalAggregate

	// Intervals holds every measurement when the run keeps them.
	Intervals []IntervalMeasurement
}

// PotentiallyDigitized reports whether the missing ratio crosses the threshold.
func (w WaveformSummary) PotentiallyDigitized() bool {
	return w.MissingSamplesRatio >= DigitizedMissingRatio
}

// Aggregate returns the aggregate for a lead code and kind.
func (w WaveformSummary) Aggregate(lead string, kind IntervalKind) (IntervalAggregate, bool) {
	for _, a := range w.Aggregates {
		if a.Lead == lead && a.Kind == kind {
			return a, true
		}
	}
	return IntervalAggregate{}, false
}

// CohortRow is the index entry of one discovered file.
type CohortRow struct {
	Seq    int
	Origin Origin

	StudyID      string
	SubjectID    string
	UUID         string
	EGDTC        string
	EGDTCStop    string
	TimepointRef string
	Device       Device

	Waveforms []WaveformSummary

	// Failed marks files that could not be decoded. Error holds the reason.
	Failed bool
	Error  string

	Warnings int
	Errors   int
}

// Waveform returns the first summary of the given kind.
func (r CohortRow) Waveform(kind WaveformKind) (WaveformSummary, bool) {
	for _, w := range r.Waveforms {
		if w.Kind == kind {
			return w, true
		}
	}
	return WaveformSummary{}, false
}

// IntervalRecord is a measurement with the identity of the file it came from.
type IntervalRecord struct {
	Origin    Origin
	UUID      string
	SubjectID string
	IntervalMeasurement
}

// StudySummary summarises valid measurements of one interval kind.
// Nil statistics are undefined.
type StudySummary struct {
	Kind         IntervalKind
	Count        int
	InvalidCount int
	Mean         *float64
	Median       *float64
	Stddev       *float64
}

// StddevMode selects the standard deviation estimator.
type StddevMode string

const (
	StddevPopulation StddevMode = "population"
	StddevSample     StddevMode = "sample"
)

// RunStatus is the lifecycle state of an index run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// IndexRun records one indexing pass over a study directory.
type IndexRun struct {
	ID         string
	StudyDir   string
	Status     RunStatus
	Info       StudyInfo
	StartedAt  time.Time
	FinishedAt time.Time

	Total     int
	Processed int
	Failed    int

	// Error is set when the run failed as a whole.
	Error string
}

// IndexStatus is the live progress of an index run.
type IndexStatus struct {
	RunID     string
	Running   bool
	Total     int
	Processed int
	Failed    int
	Current   string
	StartedAt time.Time
	Err       error
}

// CohortIndex is the complete result of an index run.
type CohortIndex struct {
	Run       IndexRun
	Rows      []CohortRow
	Summaries []StudySummary
	Stats     StudyStats
}
