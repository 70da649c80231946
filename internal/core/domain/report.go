package domain

import "fmt"

// Severity classifies a parse report entry.
type Severity int

const (
	// SeverityInfo is informational only.
	SeverityInfo Severity = iota

	// SeverityWarning marks recoverable problems. Decoding continues.
	SeverityWarning

	// SeverityError marks problems that invalidate part or all of a document.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IssueCode identifies the kind of problem a report entry describes.
type IssueCode string

// Issue codes recorded while decoding.
const (
	IssueMalformedValue           IssueCode = "MalformedValue"
	IssueMissingRequiredField     IssueCode = "MissingRequiredField"
	IssueSchemaViolation          IssueCode = "SchemaViolation"
	IssueSampleCountMismatch      IssueCode = "SampleCountMismatch"
	IssueLeadReferenceMismatch    IssueCode = "LeadReferenceMismatch"
	IssueMissingOptionalAttribute IssueCode = "MissingOptionalAttribute"
	IssueUnexpectedCode           IssueCode = "UnexpectedCode"
	IssueUnknownUnit              IssueCode = "UnknownUnit"
	IssueNoWaveforms              IssueCode = "NoWaveforms"
	IssueReadFailure              IssueCode = "ReadFailure"
)

// ReportEntry is one record of a parse report.
type ReportEntry struct {
	Severity Severity
	Code     IssueCode

	// Module names the extraction step that raised the entry
	// (e.g. "builder", "waveform", "annotation").
	Module string

	// Path is the XML location the entry refers to.
	Path string

	Message string
}

// String renders the entry on one line.
func (e ReportEntry) String() string {
	return fmt.Sprintf("%s %s [%s] %s: %s", e.Severity, e.Code, e.Module, e.Path, e.Message)
}

// ParseReport is an append-only, ordered list of report entries.
// It is owned by a single decode and is not safe for concurrent use.
type ParseReport struct {
	entries []ReportEntry
}

// NewParseReport creates an empty report.
func NewParseReport() *ParseReport {
	return &ParseReport{}
}

// Add appends an entry.
func (r *ParseReport) Add(e ReportEntry) {
	r.entries = append(r.entries, e)
}

// Info appends an informational entry.
func (r *ParseReport) Info(code IssueCode, module, path, format string, args ...any) {
	r.Add(ReportEntry{Severity: SeverityInfo, Code: code, Module: module, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Warn appends a warning.
func (r *ParseReport) Warn(code IssueCode, module, path, format string, args ...any) {
	r.Add(ReportEntry{Severity: SeverityWarning, Code: code, Module: module, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Error appends an error.
func (r *ParseReport) Error(code IssueCode, module, path, format string, args ...any) {
	r.Add(ReportEntry{Severity: SeverityError, Code: code, Module: module, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Entries returns a copy of the entries in insertion order.
func (r *ParseReport) Entries() []ReportEntry {
	if r == nil {
		return nil
	}
	out := make([]ReportEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries.
func (r *ParseReport) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Count returns the number of entries with the given severity.
func (r *ParseReport) Count(sev Severity) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, e := range r.entries {
		if e.Severity == sev {
			n++
		}
	}
	return n
}

// CountCode returns the number of entries with the given code.
func (r *ParseReport) CountCode(code IssueCode) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, e := range r.entries {
		if e.Code == code {
			n++
		}
	}
	return n
}

// HasErrors reports whether any entry has error severity.
func (r *ParseReport) HasErrors() bool {
	return r.Count(SeverityError) > 0
}

// FirstError returns the message of the first error entry, or "".
func (r *ParseReport) FirstError() string {
	if r == nil {
		return ""
	}
	for _, e := range r.entries {
		if e.Severity == SeverityError {
			return e.Message
		}
	}
	return ""
}
