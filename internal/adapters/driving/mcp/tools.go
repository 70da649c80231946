package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driving"
)

// InspectInput is the input schema for the inspect_aecg tool.
type InspectInput struct {
	Path string `json:"path" jsonschema:"path of the aECG XML file, or the member name when zip is set"`
	Zip  string `json:"zip,omitempty" jsonschema:"zip archive containing the XML member"`
}

// InspectOutput is the output schema for the inspect_aecg tool.
type InspectOutput struct {
	Location     string              `json:"location"`
	UUID         string              `json:"uuid,omitempty"`
	StudyID      string              `json:"study_id,omitempty"`
	SubjectID    string              `json:"subject_id,omitempty"`
	EGDTC        string              `json:"egdtc,omitempty"`
	Timepoint    string              `json:"timepoint,omitempty"`
	Device       string              `json:"device,omitempty"`
	SchemaStatus string              `json:"schema_status,omitempty"`
	Waveforms    []WaveformOutput    `json:"waveforms"`
	Aggregates   []AggregateOutput   `json:"aggregates"`
	Report       []ReportEntryOutput `json:"report"`
	Warnings     int                 `json:"warnings"`
	Errors       int                 `json:"errors"`

	// Error is set when decoding stopped early; the other fields are partial.
	Error string `json:"error,omitempty"`
}

// WaveformOutput summarises one waveform.
type WaveformOutput struct {
	Kind         string   `json:"kind"`
	Leads        []string `json:"leads"`
	Samples      int      `json:"samples"`
	SampleRateHz float64  `json:"sample_rate_hz"`
	Annotations  int      `json:"annotations"`
}

// AggregateOutput is the COUNT and AVERAGE of one waveform, lead and interval.
type AggregateOutput struct {
	Waveform  string  `json:"waveform"`
	Lead      string  `json:"lead"`
	Interval  string  `json:"interval"`
	Count     int     `json:"count"`
	AverageMS float64 `json:"average_ms"`
}

// ReportEntryOutput is one parse report entry.
type ReportEntryOutput struct {
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Module   string `json:"module"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
}

// RunInput selects a stored run. An empty run ID selects the latest run.
type RunInput struct {
	RunID string `json:"run_id,omitempty" jsonschema:"index run id (default: latest run)"`
}

// StudySummaryOutput is the output schema for the study_summary tool.
type StudySummaryOutput struct {
	Run       RunOutput          `json:"run"`
	Summaries []SummaryOutput    `json:"summaries"`
	Stats     *domain.StudyStats `json:"stats,omitempty"`
	Info      map[string]any     `json:"info"`
}

// RunOutput describes an index run.
type RunOutput struct {
	ID         string `json:"id"`
	StudyDir   string `json:"study_dir"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Total      int    `json:"total"`
	Processed  int    `json:"processed"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

// SummaryOutput is the study-wide statistic of one interval kind.
// Mean, median and stddev are omitted when undefined.
type SummaryOutput struct {
	Interval     string   `json:"interval"`
	Count        int      `json:"count"`
	InvalidCount int      `json:"invalid_count"`
	MeanMS       *float64 `json:"mean_ms,omitempty"`
	MedianMS     *float64 `json:"median_ms,omitempty"`
	StddevMS     *float64 `json:"stddev_ms,omitempty"`
}

// ListFilesInput is the input schema for the list_files tool.
type ListFilesInput struct {
	RunID      string `json:"run_id,omitempty" jsonschema:"index run id (default: latest run)"`
	FailedOnly bool   `json:"failed_only,omitempty" jsonschema:"only return files that failed to decode"`
}

// ListFilesOutput is the output schema for the list_files tool.
type ListFilesOutput struct {
	RunID string       `json:"run_id"`
	Files []FileOutput `json:"files"`
	Count int          `json:"count"`
}

// FileOutput is one indexed file.
type FileOutput struct {
	Location  string   `json:"location"`
	UUID      string   `json:"uuid,omitempty"`
	SubjectID string   `json:"subject_id,omitempty"`
	EGDTC     string   `json:"egdtc,omitempty"`
	Waveforms []string `json:"waveforms,omitempty"`
	Failed    bool     `json:"failed"`
	Error     string   `json:"error,omitempty"`
	Warnings  int      `json:"warnings"`
	Errors    int      `json:"errors"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "inspect_aecg",
		Description: "Decode one HL7 aECG file and report its identifiers, waveforms, interval averages and parse report",
	}, s.handleInspect)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "study_summary",
		Description: "Study-wide interval statistics and cohort counts of a stored index run",
	}, s.handleStudySummary)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_files",
		Description: "List the files of a stored index run",
	}, s.handleListFiles)
}

// handleInspect handles the inspect_aecg tool invocation.
func (s *Server) handleInspect(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input InspectInput,
) (*mcp.CallToolResult, InspectOutput, error) {
	res, err := s.ports.Inspect.Inspect(ctx, driving.InspectRequest{XMLPath: input.Path, ZipPath: input.Zip})
	if res == nil || res.Document == nil {
		if err == nil {
			err = fmt.Errorf("no document decoded from %s", input.Path)
		}
		return nil, InspectOutput{}, err
	}

	output := inspectOutput(res)
	if err != nil {
		output.Error = err.Error()
	}
	return nil, output, nil
}

// handleStudySummary handles the study_summary tool invocation.
func (s *Server) handleStudySummary(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunInput,
) (*mcp.CallToolResult, StudySummaryOutput, error) {
	if s.ports.Results == nil {
		return nil, StudySummaryOutput{}, ErrMissingResultsService
	}

	sum, err := s.ports.Results.Summary(ctx, input.RunID)
	if err != nil {
		return nil, StudySummaryOutput{}, err
	}

	output := StudySummaryOutput{
		Run:       runOutput(sum.Run),
		Summaries: make([]SummaryOutput, len(sum.Summaries)),
		Stats:     sum.Stats,
		Info:      map[string]any{},
	}
	for i, ss := range sum.Summaries {
		output.Summaries[i] = SummaryOutput{
			Interval:     string(ss.Kind),
			Count:        ss.Count,
			InvalidCount: ss.InvalidCount,
			MeanMS:       ss.Mean,
			MedianMS:     ss.Median,
			StddevMS:     ss.Stddev,
		}
	}
	for _, f := range sum.Run.Info.Fields() {
		output.Info[f.Name] = f.Value
	}

	return nil, output, nil
}

// handleListFiles handles the list_files tool invocation.
func (s *Server) handleListFiles(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListFilesInput,
) (*mcp.CallToolResult, ListFilesOutput, error) {
	if s.ports.Results == nil {
		return nil, ListFilesOutput{}, ErrMissingResultsService
	}

	run, err := s.ports.Results.GetRun(ctx, input.RunID)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}
	rows, err := s.ports.Results.ListFiles(ctx, run.ID, input.FailedOnly)
	if err != nil {
		return nil, ListFilesOutput{}, err
	}

	return nil, ListFilesOutput{
		RunID: run.ID,
		Files: filesOutput(rows),
		Count: len(rows),
	}, nil
}

func inspectOutput(res *driving.InspectResult) InspectOutput {
	doc := res.Document
	output := InspectOutput{
		Location:     doc.Origin.Location(),
		UUID:         doc.UUID,
		StudyID:      doc.Study.ID.Extension,
		SubjectID:    doc.Subject.ID.Extension,
		EGDTC:        doc.EffectiveTime.Low,
		Timepoint:    doc.TimepointRef(),
		Device:       joinNonEmpty(doc.Device.Manufacturer, doc.Device.Model),
		SchemaStatus: string(doc.SchemaStatus),
		Waveforms:    make([]WaveformOutput, 0, len(doc.Waveforms)),
		Aggregates:   make([]AggregateOutput, 0, len(res.Aggregates)),
		Report:       []ReportEntryOutput{},
	}

	for i := range doc.Waveforms {
		wf := &doc.Waveforms[i]
		leads := make([]string, len(wf.Leads))
		for j, l := range wf.Leads {
			leads[j] = l.DisplayName()
		}
		output.Waveforms = append(output.Waveforms, WaveformOutput{
			Kind:         string(wf.Kind),
			Leads:        leads,
			Samples:      wf.MaxLen(),
			SampleRateHz: wf.SampleRate(),
			Annotations:  len(wf.Annotations()),
		})
	}

	for _, a := range res.Aggregates {
		output.Aggregates = append(output.Aggregates, AggregateOutput{
			Waveform:  string(a.Waveform),
			Lead:      a.LeadName,
			Interval:  string(a.Kind),
			Count:     a.Count,
			AverageMS: a.Average,
		})
	}

	if doc.Report != nil {
		for _, e := range doc.Report.Entries() {
			output.Report = append(output.Report, ReportEntryOutput{
				Severity: e.Severity.String(),
				Code:     string(e.Code),
				Module:   e.Module,
				Path:     e.Path,
				Message:  e.Message,
			})
		}
		output.Warnings = doc.Report.Count(domain.SeverityWarning)
		output.Errors = doc.Report.Count(domain.SeverityError)
	}

	return output
}

func runOutput(run domain.IndexRun) RunOutput {
	out := RunOutput{
		ID:        run.ID,
		StudyDir:  run.StudyDir,
		Status:    string(run.Status),
		StartedAt: run.StartedAt.Format(timeFormat),
		Total:     run.Total,
		Processed: run.Processed,
		Failed:    run.Failed,
		Error:     run.Error,
	}
	if !run.FinishedAt.IsZero() {
		out.FinishedAt = run.FinishedAt.Format(timeFormat)
	}
	return out
}

func filesOutput(rows []domain.CohortRow) []FileOutput {
	files := make([]FileOutput, len(rows))
	for i := range rows {
		r := &rows[i]
		kinds := make([]string, len(r.Waveforms))
		for j, w := range r.Waveforms {
			kinds[j] = string(w.Kind)
		}
		files[i] = FileOutput{
			Location:  r.Origin.Location(),
			UUID:      r.UUID,
			SubjectID: r.SubjectID,
			EGDTC:     r.EGDTC,
			Waveforms: kinds,
			Failed:    r.Failed,
			Error:     r.Error,
			Warnings:  r.Warnings,
			Errors:    r.Errors,
		}
	}
	return files
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
