package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
	"github.com/custodia-labs/aecg-cli/internal/logger"
)

// Ensure CohortIndexer implements the interface.
var _ driving.IndexService = (*CohortIndexer)(nil)

// CohortIndexer builds a cohort index over a study directory.
type CohortIndexer struct {
	factory    driven.ConnectorFactory
	normaliser driven.Normaliser
	store      driven.IndexStore
	sink       driven.ReportSink
	workbook   driven.WorkbookWriter

	now   func() time.Time
	newID func() string

	// Status tracking
	mu     sync.RWMutex
	status domain.IndexStatus
}

// NewCohortIndexer creates a cohort indexer.
// The sink and workbook writer are optional and may be nil.
func NewCohortIndexer(
	factory driven.ConnectorFactory,
	normaliser driven.Normaliser,
	store driven.IndexStore,
	sink driven.ReportSink,
	workbook driven.WorkbookWriter,
) *CohortIndexer {
	return &CohortIndexer{
		factory:    factory,
		normaliser: normaliser,
		store:      store,
		sink:       sink,
		workbook:   workbook,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// fileOutcome is what a worker produces for one discovered document.
type fileOutcome struct {
	seq          int
	result       driven.FileResult
	measurements []domain.IntervalMeasurement
}

// Status returns the progress of the current or last run.
func (c *CohortIndexer) Status() domain.IndexStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *CohortIndexer) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.Running {
		return false
	}
	c.status = domain.IndexStatus{Running: true, StartedAt: c.now()}
	return true
}

func (c *CohortIndexer) update(fn func(s *domain.IndexStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.status)
}

// Index discovers, decodes and measures every file under req.Dir.
// Files are decoded by req.Workers workers and folded in discovery order,
// so the index is identical for any worker count. A cancelled context
// stops the run between files; rows already stored stay valid.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (c *CohortIndexer) Index(ctx context.Context, req driving.IndexRequest) (*domain.CohortIndex, error) {
	if req.Dir == "" {
		return nil, fmt.Errorf("study directory is required: %w", domain.ErrInvalidInput)
	}
	info := req.Info
	info.StudyDir = req.Dir
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("study info: %w", err)
	}
	if req.Stddev == "" {
		req.Stddev = domain.StddevPopulation
	}
	if !req.Stddev.IsValid() {
		return nil, fmt.Errorf("stddev mode %q: %w", req.Stddev, domain.ErrInvalidInput)
	}
	if req.OutputXLSX != "" && c.workbook == nil {
		return nil, fmt.Errorf("workbook export: writer not configured")
	}
	workers := req.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if !c.begin() {
		return nil, domain.ErrIndexInProgress
	}
	var runErr error
	defer func() {
		c.update(func(s *domain.IndexStatus) {
			s.Running = false
			s.Current = ""
			s.Err = runErr
		})
	}()

	// 1. Open the study location
	conn, err := c.factory.Create(ctx, req.Dir)
	if err != nil {
		runErr = fmt.Errorf("create connector: %w", err)
		return nil, runErr
	}
	defer conn.Close()

	if err := conn.Validate(ctx); err != nil {
		runErr = fmt.Errorf("validate study directory: %w", err)
		return nil, runErr
	}

	origins, err := conn.List(ctx)
	if err != nil {
		runErr = fmt.Errorf("list files: %w", err)
		return nil, runErr
	}

	// 2. Record the run
	run := domain.IndexRun{
		ID:        c.newID(),
		StudyDir:  req.Dir,
		Status:    domain.RunRunning,
		Info:      info,
		StartedAt: c.now(),
		Total:     len(origins),
	}
	if err := c.store.CreateRun(ctx, run); err != nil {
		runErr = fmt.Errorf("create run: %w", err)
		return nil, runErr
	}
	c.update(func(s *domain.IndexStatus) {
		s.RunID = run.ID
		s.Total = run.Total
	})
	logger.Info("Indexing %d files under %s with %d workers (run %s)", run.Total, req.Dir, workers, run.ID)

	// 3. Decode and measure in parallel
	docs, syncErrs := conn.FullSync(ctx)

	var syncErr error
	var errWg sync.WaitGroup
	errWg.Add(1)
	go func() {
		defer errWg.Done()
		for err := range syncErrs {
			syncErr = errors.Join(syncErr, err)
		}
	}()

	outcomes := make(chan fileOutcome, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range docs {
				if ctx.Err() != nil {
					continue
				}
				o, ok := c.process(ctx, raw, req.AllIntervals)
				if !ok {
					continue
				}
				outcomes <- o
			}
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	// 4. Fold in discovery order
	// Store writes use a context detached from cancellation so that a file
	// already decoded is stored whole.
	storeCtx := context.WithoutCancel(ctx)
	acc := newSummaryAccumulator(req.Stddev)
	var rows []domain.CohortRow
	pending := make(map[int]fileOutcome)
	next := 0
	var foldErr error

	for o := range outcomes {
		pending[o.seq] = o
		for {
			cur, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			if foldErr != nil {
				continue
			}
			if err := c.fold(storeCtx, run.ID, cur, acc); err != nil {
				foldErr = err
				continue
			}
			rows = append(rows, cur.result.Row)
			run.Processed++
			if cur.result.Row.Failed {
				run.Failed++
			}
			c.update(func(s *domain.IndexStatus) {
				s.Processed = run.Processed
				s.Failed = run.Failed
				s.Current = cur.result.Row.Origin.Location()
			})
		}
	}
	errWg.Wait()

	// 5. Finish the run
	switch {
	case foldErr != nil:
		run.Status = domain.RunFailed
		run.Error = foldErr.Error()
		runErr = foldErr
	case ctx.Err() != nil:
		run.Status = domain.RunCancelled
		runErr = fmt.Errorf("index cancelled after %d of %d files: %w", run.Processed, run.Total, ctx.Err())
	case syncErr != nil:
		run.Status = domain.RunFailed
		run.Error = syncErr.Error()
		runErr = fmt.Errorf("discover files: %w", syncErr)
	default:
		run.Status = domain.RunCompleted
	}
	run.FinishedAt = c.now()

	index := &domain.CohortIndex{
		Run:       run,
		Rows:      rows,
		Summaries: acc.summaries(),
		Stats:     ComputeStudyStats(info, rows),
	}

	if err := c.store.FinishRun(storeCtx, run, index.Summaries, index.Stats); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("finish run: %w", err))
		return index, runErr
	}
	if c.sink != nil {
		if err := c.sink.Sync(); err != nil {
			logger.Warn("Failed to flush report log: %v", err)
		}
	}
	logger.Info("Run %s %s: %d processed, %d failed", run.ID, run.Status, run.Processed, run.Failed)

	if runErr != nil {
		return index, runErr
	}

	// 6. Optional workbook export
	if req.OutputXLSX != "" {
		if err := c.workbook.WriteIndex(ctx, index, req.OutputXLSX); err != nil {
			runErr = fmt.Errorf("write workbook: %w", err)
			return index, runErr
		}
		logger.Info("Index workbook written to %s", req.OutputXLSX)
	}
	return index, nil
}

// fold stores one file result and adds its measurements to the summary.
func (c *CohortIndexer) fold(ctx context.Context, runID string, o fileOutcome, acc *summaryAccumulator) error {
	if err := c.store.AppendFile(ctx, runID, o.result); err != nil {
		return fmt.Errorf("store %s: %w", o.result.Row.Origin.Location(), err)
	}
	if c.sink != nil && len(o.result.Report) > 0 {
		c.sink.Record(o.result.Row.Origin, o.result.Report)
	}
	acc.add(o.measurements)
	return nil
}

// process decodes and measures one document. It returns false when the
// context was cancelled while decoding.
func (c *CohortIndexer) process(ctx context.Context, raw domain.RawDocument, allIntervals bool) (fileOutcome, bool) {
	o := fileOutcome{seq: raw.Seq}

	res, err := c.normaliser.Normalise(ctx, &raw)
	if ctx.Err() != nil {
		return o, false
	}
	var doc *domain.Document
	if res != nil {
		doc = res.Document
	}

	if err != nil || doc == nil {
		if err == nil {
			err = fmt.Errorf("normaliser %s returned no document: %w", c.normaliser.Name(), domain.ErrInvalidInput)
		}
		logger.Debug("%s failed: %v", raw.Origin.Location(), err)
		o.result = driven.FileResult{Row: failedRow(raw, doc, err)}
		if doc != nil && doc.Report != nil {
			o.result.Report = doc.Report.Entries()
		}
		return o, true
	}

	perWaveform := make([][]domain.IntervalMeasurement, len(doc.Waveforms))
	var ms []domain.IntervalMeasurement
	for i := range doc.Waveforms {
		perWaveform[i] = MeasureWaveform(&doc.Waveforms[i])
		ms = append(ms, perWaveform[i]...)
	}
	o.measurements = ms
	o.result = driven.FileResult{
		Row:     buildRow(raw.Seq, doc, perWaveform, allIntervals),
		Report:  doc.Report.Entries(),
		Records: intervalRecords(doc, ms),
	}
	return o, true
}

// fillIdentity copies the document identifiers into a row.
func fillIdentity(row *domain.CohortRow, doc *domain.Document) {
	row.StudyID = doc.Study.ID.Extension
	row.SubjectID = doc.Subject.ID.Extension
	row.UUID = doc.UUID
	row.EGDTC = doc.EffectiveTime.First()
	row.EGDTCStop = doc.EffectiveTime.High
	row.TimepointRef = doc.TimepointRef()
	row.Device = doc.Device
	if doc.Report != nil {
		row.Warnings = doc.Report.Count(domain.SeverityWarning)
		row.Errors = doc.Report.Count(domain.SeverityError)
	}
}

// failedRow records a file that could not be decoded. Whatever identity
// was read before the failure is kept; waveform counts stay zero.
func failedRow(raw domain.RawDocument, doc *domain.Document, err error) domain.CohortRow {
	row := domain.CohortRow{
		Seq:    raw.Seq,
		Origin: raw.Origin,
		Failed: true,
		Error:  err.Error(),
		Errors: 1,
	}
	if doc != nil {
		fillIdentity(&row, doc)
		if row.Errors == 0 {
			row.Errors = 1
		}
	}
	return row
}

// buildRow summarises each waveform from its own measurements. perWaveform
// is indexed like doc.Waveforms.
func buildRow(seq int, doc *domain.Document, perWaveform [][]domain.IntervalMeasurement, allIntervals bool) domain.CohortRow {
	row := domain.CohortRow{Seq: seq, Origin: doc.Origin}
	fillIdentity(&row, doc)

	for i := range doc.Waveforms {
		wf := &doc.Waveforms[i]
		var own []domain.IntervalMeasurement
		if i < len(perWaveform) {
			own = perWaveform[i]
		}
		leads := wf.AnnotatedLeads()
		anns := wf.Annotations()
		sum := domain.WaveformSummary{
			Kind:                wf.Kind,
			Annotated:           len(anns) > 0,
			HasIntervals:        len(leads) > 0,
			NumLeads:            len(wf.Leads),
			NumBeats:            wf.NumBeats(),
			NumAnnotations:      len(anns),
			NumAnnotatedLeads:   len(leads),
			MissingSamplesRatio: wf.MissingSamplesRatio(),
			Aggregates:          Aggregate(own),
		}
		if allIntervals {
			sum.Intervals = own
		}
		row.Waveforms = append(row.Waveforms, sum)
	}
	return row
}

func intervalRecords(doc *domain.Document, ms []domain.IntervalMeasurement) []domain.IntervalRecord {
	out := make([]domain.IntervalRecord, 0, len(ms))
	for _, m := range ms {
		out = append(out, domain.IntervalRecord{
			Origin:              doc.Origin,
			UUID:                doc.UUID,
			SubjectID:           doc.Subject.ID.Extension,
			IntervalMeasurement: m,
		})
	}
	return out
}
