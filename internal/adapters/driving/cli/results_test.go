package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

func sampleRun() domain.IndexRun {
	return domain.IndexRun{
		ID:         "run-7",
		StudyDir:   "/study",
		Status:     domain.RunCompleted,
		Info:       domain.StudyInfo{StudyID: "ABC"},
		StartedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		FinishedAt: time.Date(2026, 1, 2, 3, 5, 0, 0, time.UTC),
		Total:      3,
		Processed:  3,
		Failed:     1,
	}
}

func sampleSummary() *driving.RunSummary {
	mean := 398.25
	return &driving.RunSummary{
		Run: sampleRun(),
		Summaries: []domain.StudySummary{
			{Kind: domain.IntervalQT, Count: 2, Mean: &mean},
		},
		Stats: &domain.StudyStats{NumAECGs: 3},
	}
}

func TestSummaryCmd_Latest(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.results.summary = sampleSummary()

	out, err := execute(t, "summary")

	require.NoError(t, err)
	assert.Empty(t, mocks.results.gotRunID, "no id asks for the latest run")
	assert.Contains(t, out, "run-7")
	assert.Contains(t, out, "3 of 3 processed, 1 failed")
	assert.Contains(t, out, "398.2")
	assert.Contains(t, out, "num_aecgs")
	assert.NotContains(t, out, "WARNINGS", "files are listed on request only")
}

func TestSummaryCmd_FailedFiles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.results.summary = sampleSummary()
	mocks.results.files = []domain.CohortRow{
		{Seq: 2, Origin: domain.Origin{ZipPath: "s.zip", XMLPath: "bad.xml"}, Failed: true, Error: "not an aECG"},
	}

	out, err := execute(t, "summary", "run-7", "--failed")

	require.NoError(t, err)
	assert.Equal(t, "run-7", mocks.results.gotRunID)
	assert.True(t, mocks.results.gotFailedOnly)
	assert.Contains(t, out, "s.zip!bad.xml")
	assert.Contains(t, out, "failed: not an aECG")
}

func TestSummaryCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.results.summary = sampleSummary()

	out, err := execute(t, "summary", "--json")

	require.NoError(t, err)
	var v struct {
		Run       domain.IndexRun       `json:"run"`
		Summaries []domain.StudySummary `json:"summaries"`
		Stats     *domain.StudyStats    `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "run-7", v.Run.ID)
	require.Len(t, v.Summaries, 1)
	require.NotNil(t, v.Summaries[0].Mean)
	assert.InDelta(t, 398.25, *v.Summaries[0].Mean, 1e-9)
	require.NotNil(t, v.Stats)
	assert.Equal(t, 3, v.Stats.NumAECGs)
}

func TestSummaryCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "summary", "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunsCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.results.runs = []domain.IndexRun{sampleRun()}

	out, err := execute(t, "runs")

	require.NoError(t, err)
	assert.Contains(t, out, "run-7")
	assert.Contains(t, out, "ABC")
	assert.Contains(t, out, "/study")
}

func TestRunsCmd_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "runs")

	require.NoError(t, err)
	assert.Contains(t, out, "No runs found")
}

func TestRunsCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.results.runs = []domain.IndexRun{sampleRun()}

	out, err := execute(t, "runs", "--json")

	require.NoError(t, err)
	var runs []domain.IndexRun
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-7", runs[0].ID)
}

func TestOptionalMS(t *testing.T) {
	v := 12.345
	assert.Equal(t, "-", optionalMS(nil))
	assert.Equal(t, "12.3", optionalMS(&v))
}

func TestFormatTime(t *testing.T) {
	assert.Empty(t, formatTime(time.Time{}))
	assert.NotEmpty(t, formatTime(time.Now()))
}
