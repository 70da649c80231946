package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aecg-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/aecg-cli/internal/connectors/filesystem"
	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
	"github.com/custodia-labs/aecg-cli/internal/normalisers/aecg"
)

// studyECG renders a rhythm aECG with one beat on lead II: QRS from 100 to
// 190 ms and a T offset qtMS after the QRS onset.
func studyECG(subject, uuid string, qtMS int) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<AnnotatedECG xmlns="urn:hl7-org:v3">
  <id root="%s"/>
  <effectiveTime><low value="20210301080000"/><high value="20210301080010"/></effectiveTime>
  <componentOf><timepointEvent><componentOf><subjectAssignment>
    <subject><trialSubject><id root="2.16.1" extension="%s"/></trialSubject></subject>
    <componentOf><clinicalTrial><id root="2.16.2" extension="STUDY-1"/></clinicalTrial></componentOf>
  </subjectAssignment></componentOf></timepointEvent></componentOf>
  <component><series>
    <id root="2.16.3" extension="r1"/>
    <code code="RHYTHM"/>
    <component><sequenceSet>
      <component><sequence><code code="TIME_RELATIVE"/><value><head value="0" unit="ms"/><increment value="4" unit="ms"/></value></sequence></component>
      <component><sequence><code code="MDC_ECG_LEAD_II"/><value><origin value="0" unit="uV"/><scale value="1" unit="uV"/><digits>0 1 2 3</digits></value></sequence></component>
    </sequenceSet></component>
    <subjectOf><annotationSet>
      <component><annotation>
        <code code="MDC_ECG_BEAT"/>
        <support><supportingROI><component><boundary><code code="MDC_ECG_LEAD_II"/></boundary></component></supportingROI></support>
        <component><annotation>
          <code code="MDC_ECG_WAVC_TYPE"/><value code="MDC_ECG_WAVC_QRSWAVE"/>
          <support><supportingROI><component><boundary><code code="TIME_RELATIVE"/><value><low value="100" unit="ms"/><high value="190" unit="ms"/></value></boundary></component></supportingROI></support>
        </annotation></component>
        <component><annotation>
          <code code="MDC_ECG_WAVC_TYPE"/><value code="MDC_ECG_WAVC_TWAVE"/>
          <support><supportingROI><component><boundary><code code="TIME_RELATIVE"/><value><high value="%d" unit="ms"/></value></boundary></component></supportingROI></support>
        </annotation></component>
      </annotation></component>
    </annotationSet></subjectOf>
  </series></component>
</AnnotatedECG>
`, uuid, subject, 100+qtMS)
}

// beatSet renders an annotation set with one lead II beat whose QRS starts
// at qon and whose T wave ends at toff.
func beatSet(qon, toff int) string {
	return fmt.Sprintf(`<subjectOf><annotationSet>
      <component><annotation>
        <code code="MDC_ECG_BEAT"/>
        <support><supportingROI><component><boundary><code code="MDC_ECG_LEAD_II"/></boundary></component></supportingROI></support>
        <component><annotation>
          <code code="MDC_ECG_WAVC_TYPE"/><value code="MDC_ECG_WAVC_QRSWAVE"/>
          <support><supportingROI><component><boundary><code code="TIME_RELATIVE"/><value><low value="%d" unit="ms"/><high value="%d" unit="ms"/></value></boundary></component></supportingROI></support>
        </annotation></component>
        <component><annotation>
          <code code="MDC_ECG_WAVC_TYPE"/><value code="MDC_ECG_WAVC_TWAVE"/>
          <support><supportingROI><component><boundary><code code="TIME_RELATIVE"/><value><high value="%d" unit="ms"/></value></boundary></component></supportingROI></support>
        </annotation></component>
      </annotation></component>
    </annotationSet></subjectOf>`, qon, qon+90, toff)
}

// withSecondSet adds a second annotation set to the series of an aECG.
func withSecondSet(content string, qon, toff int) string {
	return strings.Replace(content, "</annotationSet></subjectOf>", "</annotationSet></subjectOf>\n    "+beatSet(qon, toff), 1)
}

// withSecondSeries appends the series of extra to the series of content.
func withSecondSeries(content, extra string) string {
	start := strings.Index(extra, "<component><series>")
	end := strings.Index(extra, "</series></component>") + len("</series></component>")
	return strings.Replace(content, "</AnnotatedECG>", extra[start:end]+"\n</AnnotatedECG>", 1)
}

// writeStudy creates three valid files and one that is not XML.
func writeStudy(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "s2"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xml"), []byte(studyECG("S1", "u-1", 400)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xml"), []byte("this is not xml at all"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.xml"), []byte(studyECG("S1", "u-2", 420)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s2", "d.xml"), []byte(studyECG("S2", "u-3", 380)), 0o644))
	return dir
}

// recordingSink collects report entries per file.
type recordingSink struct {
	mu      sync.Mutex
	records map[string][]domain.ReportEntry
	synced  bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{records: make(map[string][]domain.ReportEntry)}
}

func (s *recordingSink) Record(origin domain.Origin, entries []domain.ReportEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[origin.Location()] = append(s.records[origin.Location()], entries...)
}

func (s *recordingSink) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = true
	return nil
}

// mockWorkbook records the index it was asked to write.
type mockWorkbook struct {
	index *domain.CohortIndex
	path  string
	err   error
}

func (w *mockWorkbook) WriteIndex(_ context.Context, index *domain.CohortIndex, path string) error {
	w.index, w.path = index, path
	return w.err
}

func (w *mockWorkbook) WriteWaveforms(_ context.Context, _ driven.WaveformExport, _ string) error {
	return nil
}

// hookNormaliser calls before ahead of every decode.
type hookNormaliser struct {
	inner  driven.Normaliser
	before func(n int)
	mu     sync.Mutex
	calls  int
}

func (h *hookNormaliser) Name() string { return "hook" }

func (h *hookNormaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	h.mu.Lock()
	h.calls++
	n := h.calls
	h.mu.Unlock()
	if h.before != nil {
		h.before(n)
	}
	return h.inner.Normalise(ctx, raw)
}

func newIndexer(normaliser driven.Normaliser, store driven.IndexStore, sink driven.ReportSink, wb driven.WorkbookWriter) *CohortIndexer {
	c := NewCohortIndexer(filesystem.NewFactory(), normaliser, store, sink, wb)
	n := 0
	c.newID = func() string {
		n++
		return fmt.Sprintf("run-%d", n)
	}
	return c
}

func TestCohortIndexer_Index(t *testing.T) {
	dir := writeStudy(t)
	store := memory.NewIndexStore()
	sink := newRecordingSink()
	indexer := newIndexer(aecg.New(nil), store, sink, nil)

	info := domain.DefaultStudyInfo()
	info.NECGSubj = 2
	index, err := indexer.Index(context.Background(), driving.IndexRequest{Dir: dir, Info: info, Workers: 3})
	require.NoError(t, err)

	// Every file has a row, in sorted order.
	require.Len(t, index.Rows, 4)
	var names []string
	for i, row := range index.Rows {
		assert.Equal(t, i, row.Seq)
		names = append(names, filepath.Base(row.Origin.XMLPath))
	}
	assert.Equal(t, []string{"a.xml", "b.xml", "c.xml", "d.xml"}, names)

	failed := index.Rows[1]
	assert.True(t, failed.Failed)
	assert.NotEmpty(t, failed.Error)
	assert.Empty(t, failed.Waveforms)
	assert.Equal(t, 1, failed.Errors)

	ok := index.Rows[0]
	assert.False(t, ok.Failed)
	assert.Equal(t, "S1", ok.SubjectID)
	assert.Equal(t, "STUDY-1", ok.StudyID)
	assert.Equal(t, "u-1", ok.UUID)
	assert.Equal(t, "20210301080000", ok.EGDTC)
	require.Len(t, ok.Waveforms, 1)
	w := ok.Waveforms[0]
	assert.True(t, w.Annotated)
	assert.True(t, w.HasIntervals)
	assert.Equal(t, 1, w.NumAnnotatedLeads)
	assert.Equal(t, 1, w.NumLeads)
	assert.Equal(t, 1, w.NumBeats)
	assert.Equal(t, 2, w.NumAnnotations)
	assert.Empty(t, w.Intervals, "measurements are kept only on request")
	qt, found := w.Aggregate(leadII, domain.IntervalQT)
	require.True(t, found)
	assert.Equal(t, 1, qt.Count)
	assert.InDelta(t, 400.0, qt.Average, 1e-9)

	// Summaries use only the valid files.
	qtSum := summaryOf(t, index.Summaries, domain.IntervalQT)
	assert.Equal(t, 3, qtSum.Count)
	require.NotNil(t, qtSum.Mean)
	assert.InDelta(t, 400.0, *qtSum.Mean, 1e-9)
	require.NotNil(t, qtSum.Median)
	assert.InDelta(t, 400.0, *qtSum.Median, 1e-9)
	require.NotNil(t, qtSum.Stddev)

	qtcf := summaryOf(t, index.Summaries, domain.IntervalQTcF)
	assert.Zero(t, qtcf.Count, "single beats have no RR")
	assert.Equal(t, 3, qtcf.InvalidCount)
	assert.Nil(t, qtcf.Mean)
	assert.Nil(t, qtcf.Stddev)

	// Run bookkeeping and study statistics.
	assert.Equal(t, domain.RunCompleted, index.Run.Status)
	assert.Equal(t, 4, index.Run.Total)
	assert.Equal(t, 4, index.Run.Processed)
	assert.Equal(t, 1, index.Run.Failed)
	assert.Equal(t, dir, index.Run.Info.StudyDir)
	assert.Equal(t, 3, index.Stats.NumAECGs)
	assert.Equal(t, 2, index.Stats.NumSubjects)
	assert.Equal(t, 1, index.Stats.AECGsWithErrors)

	// The store holds the same result.
	rows, err := store.ListFiles(context.Background(), "run-1", driven.FileFilter{})
	require.NoError(t, err)
	assert.Equal(t, index.Rows, rows)
	records, err := store.ListIntervals(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Len(t, records, 12, "PR, QRS, QT and QTCF for each valid file")
	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, run.Status)

	// Report entries reached the sink.
	assert.True(t, sink.synced)
	assert.NotEmpty(t, sink.records[filepath.Join(dir, "b.xml")])

	status := indexer.Status()
	assert.False(t, status.Running)
	assert.Equal(t, "run-1", status.RunID)
	assert.Equal(t, 4, status.Processed)
	assert.NoError(t, status.Err)
}

func TestCohortIndexer_SeveralSeries(t *testing.T) {
	dir := t.TempDir()
	content := withSecondSeries(studyECG("S1", "u-1", 400), studyECG("S1", "u-1", 420))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xml"), []byte(content), 0o644))

	index, err := newIndexer(aecg.New(nil), memory.NewIndexStore(), nil, nil).
		Index(context.Background(), driving.IndexRequest{Dir: dir, Info: domain.DefaultStudyInfo(), Workers: 1, AllIntervals: true})
	require.NoError(t, err)

	require.Len(t, index.Rows, 1)
	row := index.Rows[0]
	require.Len(t, row.Waveforms, 2, "every series is a waveform")
	for i, want := range []float64{400, 420} {
		w := row.Waveforms[i]
		assert.Equal(t, domain.WaveformRhythm, w.Kind)
		qt, ok := w.Aggregate(leadII, domain.IntervalQT)
		require.True(t, ok)
		assert.Equal(t, 1, qt.Count, "waveform %d keeps its own measurements", i)
		assert.InDelta(t, want, qt.Average, 1e-9)
		assert.Len(t, find(w.Intervals, domain.IntervalQT), 1)
	}

	first, ok := row.Waveform(domain.WaveformRhythm)
	require.True(t, ok)
	assert.Equal(t, row.Waveforms[0].Aggregates, first.Aggregates)
	assert.Equal(t, 2, summaryOf(t, index.Summaries, domain.IntervalQT).Count)
}

func TestCohortIndexer_Deterministic(t *testing.T) {
	dir := writeStudy(t)

	var results [][]domain.CohortRow
	for _, workers := range []int{1, 4} {
		indexer := newIndexer(aecg.New(nil), memory.NewIndexStore(), nil, nil)
		index, err := indexer.Index(context.Background(), driving.IndexRequest{
			Dir:          dir,
			Info:         domain.DefaultStudyInfo(),
			Workers:      workers,
			AllIntervals: true,
		})
		require.NoError(t, err)
		results = append(results, index.Rows)
	}

	assert.Equal(t, results[0], results[1])
	require.NotEmpty(t, results[0][0].Waveforms)
	assert.Len(t, results[0][0].Waveforms[0].Intervals, 4)
}

func TestCohortIndexer_Cancelled(t *testing.T) {
	dir := writeStudy(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	normaliser := &hookNormaliser{inner: aecg.New(nil), before: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	store := memory.NewIndexStore()
	indexer := newIndexer(normaliser, store, nil, nil)

	index, err := indexer.Index(ctx, driving.IndexRequest{Dir: dir, Info: domain.DefaultStudyInfo(), Workers: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, index)

	assert.Equal(t, domain.RunCancelled, index.Run.Status)
	assert.Equal(t, 1, index.Run.Processed)
	require.Len(t, index.Rows, 1)
	assert.Equal(t, "a.xml", filepath.Base(index.Rows[0].Origin.XMLPath))

	rows, err := store.ListFiles(context.Background(), "run-1", driven.FileFilter{})
	require.NoError(t, err)
	assert.Len(t, rows, 1, "the file finished before cancellation is stored")
	run, err := store.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunCancelled, run.Status)
}

func TestCohortIndexer_InProgress(t *testing.T) {
	dir := writeStudy(t)
	release := make(chan struct{})
	normaliser := &hookNormaliser{inner: aecg.New(nil), before: func(int) { <-release }}
	indexer := newIndexer(normaliser, memory.NewIndexStore(), nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := indexer.Index(context.Background(), driving.IndexRequest{Dir: dir, Info: domain.DefaultStudyInfo(), Workers: 1})
		done <- err
	}()

	require.Eventually(t, func() bool { return indexer.Status().Running }, time.Second, 5*time.Millisecond)

	_, err := indexer.Index(context.Background(), driving.IndexRequest{Dir: dir, Info: domain.DefaultStudyInfo()})
	assert.ErrorIs(t, err, domain.ErrIndexInProgress)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, indexer.Status().Running)
}

func TestCohortIndexer_Workbook(t *testing.T) {
	dir := writeStudy(t)
	wb := &mockWorkbook{}
	indexer := newIndexer(aecg.New(nil), memory.NewIndexStore(), nil, wb)

	index, err := indexer.Index(context.Background(), driving.IndexRequest{
		Dir:        dir,
		Info:       domain.DefaultStudyInfo(),
		OutputXLSX: filepath.Join(dir, "index.xlsx"),
	})
	require.NoError(t, err)
	assert.Same(t, index, wb.index)
	assert.Equal(t, filepath.Join(dir, "index.xlsx"), wb.path)

	wb.err = errors.New("disk full")
	_, err = indexer.Index(context.Background(), driving.IndexRequest{
		Dir:        dir,
		Info:       domain.DefaultStudyInfo(),
		OutputXLSX: "out.xlsx",
	})
	assert.ErrorContains(t, err, "disk full")
}

func TestCohortIndexer_InvalidRequest(t *testing.T) {
	indexer := newIndexer(aecg.New(nil), memory.NewIndexStore(), nil, nil)
	ctx := context.Background()

	badInfo := domain.DefaultStudyInfo()
	badInfo.AppNum = "12"

	tests := []struct {
		name string
		req  driving.IndexRequest
	}{
		{"missing directory", driving.IndexRequest{Info: domain.DefaultStudyInfo()}},
		{"invalid study info", driving.IndexRequest{Dir: t.TempDir(), Info: badInfo}},
		{"invalid stddev", driving.IndexRequest{Dir: t.TempDir(), Info: domain.DefaultStudyInfo(), Stddev: "biased"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := indexer.Index(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	t.Run("workbook without writer", func(t *testing.T) {
		_, err := indexer.Index(ctx, driving.IndexRequest{Dir: t.TempDir(), Info: domain.DefaultStudyInfo(), OutputXLSX: "x.xlsx"})
		assert.ErrorContains(t, err, "writer not configured")
	})

	t.Run("missing study directory", func(t *testing.T) {
		_, err := indexer.Index(ctx, driving.IndexRequest{Dir: "/non/existent/study", Info: domain.DefaultStudyInfo()})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.False(t, indexer.Status().Running)
		assert.Error(t, indexer.Status().Err)
	})
}

func TestCohortIndexer_EmptyStudy(t *testing.T) {
	indexer := newIndexer(aecg.New(nil), memory.NewIndexStore(), nil, nil)
	info := domain.DefaultStudyInfo()
	info.TotalECGs = 5

	index, err := indexer.Index(context.Background(), driving.IndexRequest{Dir: t.TempDir(), Info: info})
	require.NoError(t, err)

	assert.Empty(t, index.Rows)
	assert.Equal(t, domain.RunCompleted, index.Run.Status)
	assert.Len(t, index.Summaries, len(domain.IntervalKinds))
	assert.Equal(t, 5, index.Stats.AECGsNoAnnotations)
}
