package aecg

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

const moduleWaveform = "waveform"

// Defaults applied when a lead omits its origin or scale.
var (
	defaultOrigin = domain.Quantity{Value: 0, Unit: "uV"}
	defaultScale  = domain.Quantity{Value: 1, Unit: "uV"}
)

// extractWaveform decodes one series. It returns false when the series
// cannot produce a waveform; the reason is already in the report.
func extractWaveform(s *xmlSeries, kind domain.WaveformKind, path string, report *domain.ParseReport) (*domain.Waveform, bool) {
	wf := &domain.Waveform{
		Kind: kind,
		Code: domain.CodedValue{Code: s.Code.Code, DisplayName: s.Code.DisplayName},
		EffectiveTime: domain.TimeInterval{
			Low:    s.EffectiveTime.Low.Value,
			Center: s.EffectiveTime.Center.Value,
			High:   s.EffectiveTime.High.Value,
		},
		Path: path,
	}

	switch {
	case s.ID == nil:
		report.Warn(domain.IssueMissingOptionalAttribute, moduleWaveform, path+"/id", "%s series has no id", kind)
	default:
		wf.ID = domain.Identifier{Root: s.ID.Root, Extension: s.ID.Extension}
		if s.ID.Extension == "" {
			report.Warn(domain.IssueMissingOptionalAttribute, moduleWaveform, path+"/id", "%s series id has no extension", kind)
		}
	}

	if s.Code.Code != kind.ExpectedSeriesCode() {
		report.Warn(domain.IssueUnexpectedCode, moduleWaveform, path+"/code",
			"%s series code is %q, expected %q", kind, s.Code.Code, kind.ExpectedSeriesCode())
	}

	set, setPath := firstSequenceSet(s, path)
	if set == nil {
		report.Error(domain.IssueMissingRequiredField, moduleWaveform, path+"/component/sequenceSet",
			"%s series has no sequenceSet", kind)
		return nil, false
	}

	timeSet := false
	for i, c := range set.Components {
		if c.Sequence == nil {
			continue
		}
		seq := c.Sequence
		seqPath := fmt.Sprintf("%s/component[%d]/sequence", setPath, i)

		if domain.IsTimeCode(seq.Code.Code) {
			if timeSet {
				report.Info(domain.IssueUnexpectedCode, moduleWaveform, seqPath, "additional %s sequence ignored", seq.Code.Code)
				continue
			}
			wf.Time = extractTimeAxis(seq, seqPath, report)
			timeSet = true
			continue
		}

		lead, ok := extractLead(seq, seqPath, report)
		if !ok {
			continue
		}
		wf.Leads = append(wf.Leads, lead)
	}

	if !timeSet {
		report.Warn(domain.IssueMissingRequiredField, moduleWaveform, setPath, "%s series has no time sequence", kind)
	}

	checkSampleCounts(wf, path, report)
	resolveStart(wf, path, report)
	return wf, true
}

func firstSequenceSet(s *xmlSeries, path string) (*xmlSequenceSet, string) {
	for i, c := range s.Components {
		if c.SequenceSet != nil {
			return c.SequenceSet, fmt.Sprintf("%s/component[%d]/sequenceSet", path, i)
		}
	}
	return nil, ""
}

func extractTimeAxis(seq *xmlSequence, path string, report *domain.ParseReport) domain.TimeAxis {
	axis := domain.TimeAxis{Code: seq.Code.Code}
	if h := seq.Value.Head; h != nil {
		axis.Head = h.Value
		axis.HeadUnit = h.Unit
	}
	if axis.Head == "" {
		report.Warn(domain.IssueMissingOptionalAttribute, moduleWaveform, path+"/value/head", "time sequence has no head")
	}

	inc := seq.Value.Increment
	if inc == nil || inc.Value == "" {
		report.Warn(domain.IssueMissingRequiredField, moduleWaveform, path+"/value/increment", "time sequence has no increment")
		return axis
	}
	v, err := ParseFloat(inc.Value)
	if err != nil {
		report.Warn(domain.IssueMalformedValue, moduleWaveform, path+"/value/increment", "%v", err)
		return axis
	}
	axis.Increment = domain.Quantity{Value: v, Unit: inc.Unit}
	if _, err := domain.TimeFactorMS(inc.Unit); err != nil {
		report.Warn(domain.IssueUnknownUnit, moduleWaveform, path+"/value/increment", "%v", err)
	}
	return axis
}

func extractLead(seq *xmlSequence, path string, report *domain.ParseReport) (domain.Lead, bool) {
	lead := domain.Lead{Code: seq.Code.Code}
	if !domain.IsKnownLead(lead.Code) {
		report.Warn(domain.IssueUnexpectedCode, moduleWaveform, path+"/code", "unknown lead code %q", lead.Code)
	}

	lead.Origin = leadQuantity(seq.Value.Origin, defaultOrigin, "origin", path, report)
	lead.Scale = leadQuantity(seq.Value.Scale, defaultScale, "scale", path, report)

	if seq.Value.Digits == nil {
		report.Warn(domain.IssueMissingRequiredField, moduleWaveform, path+"/value/digits", "lead %s has no digits", lead.Code)
		return lead, false
	}
	digits, missing, err := ParseDigits(seq.Value.Digits.Text)
	if err != nil {
		report.Warn(domain.IssueMalformedValue, moduleWaveform, path+"/value/digits", "lead %s dropped: %v", lead.Code, err)
		return lead, false
	}
	lead.Digits = digits
	lead.Missing = missing
	return lead, true
}

func leadQuantity(pq *xmlPQ, def domain.Quantity, name, path string, report *domain.ParseReport) domain.Quantity {
	at := path + "/value/" + name
	if pq == nil {
		report.Warn(domain.IssueMissingOptionalAttribute, moduleWaveform, at, "no %s, using %s", name, def)
		return def
	}
	q, ok, err := ParseQuantity(pq.Value, pq.Unit, def)
	switch {
	case err != nil:
		report.Warn(domain.IssueMalformedValue, moduleWaveform, at, "%v, using %s", err, def)
		return def
	case !ok:
		report.Warn(domain.IssueMissingOptionalAttribute, moduleWaveform, at, "no %s value, using %s", name, def)
		return def
	}
	if _, err := domain.VoltageFactorMV(q.Unit); err != nil {
		report.Warn(domain.IssueUnknownUnit, moduleWaveform, at, "%v", err)
	}
	return q
}

// checkSampleCounts warns once for each lead whose length differs from the
// first lead.
func checkSampleCounts(wf *domain.Waveform, path string, report *domain.ParseReport) {
	if len(wf.Leads) < 2 {
		return
	}
	want := wf.Leads[0].Len()
	for _, l := range wf.Leads[1:] {
		if l.Len() != want {
			report.Warn(domain.IssueSampleCountMismatch, moduleWaveform, path,
				"lead %s has %d samples, %s has %d", l.Code, l.Len(), wf.Leads[0].Code, want)
		}
	}
}

// resolveStart sets the reference time markers are measured from: the
// absolute time head when it parses, otherwise effectiveTime/low. A
// relative head becomes the offset of sample 0.
func resolveStart(wf *domain.Waveform, path string, report *domain.ParseReport) {
	head := wf.Time.Head
	if wf.Time.Code == domain.TimeAbsolute && head != "" {
		t, err := ParseHL7Time(head)
		if err == nil {
			wf.Start = t
			return
		}
		report.Warn(domain.IssueMalformedValue, moduleWaveform, path, "time head: %v", err)
	}

	if low := wf.EffectiveTime.First(); low != "" {
		if t, err := ParseHL7Time(low); err == nil {
			wf.Start = t
		} else {
			report.Warn(domain.IssueMalformedValue, moduleWaveform, path+"/effectiveTime", "%v", err)
		}
	}

	if wf.Time.Code == domain.TimeRelative && head != "" {
		ms, err := RelativeMS(head, wf.Time.HeadUnit)
		if err != nil {
			report.Warn(domain.IssueMalformedValue, moduleWaveform, path, "relative time head: %v", err)
			return
		}
		wf.Time.HeadOffsetMS = ms
	}
}

// markerTimeMS converts an annotation time to ms from the waveform start.
// Absolute values that do not parse as timestamps are retried as relative.
// Timestamps carry at least a full date, so shorter values such as "1500"
// are never read as years.
func markerTimeMS(wf *domain.Waveform, timeCode string, v domain.AnnotationValue) (float64, error) {
	if timeCode != domain.TimeRelative && len(strings.TrimSpace(v.Raw)) >= 8 {
		if t, err := ParseHL7Time(v.Raw); err == nil {
			start, ok := wf.StartTime()
			if !ok {
				return 0, fmt.Errorf("absolute time %q on a waveform without start: %w", v.Raw, domain.ErrMissingRequiredField)
			}
			return DiffMS(start, t), nil
		}
	}
	return RelativeMS(v.Raw, v.Unit)
}
