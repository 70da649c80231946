package aecg

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"

	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
	"github.com/custodia-labs/aecg-cli/internal/core/ports/driven"
	"github.com/custodia-labs/aecg-cli/internal/logger"
)

const (
	moduleBuilder = "builder"
	rootElement   = "AnnotatedECG"
	rootPath      = "/" + rootElement
)

// Builder assembles a Document from raw aECG bytes.
type Builder struct {
	validator driven.SchemaValidator
}

// NewBuilder creates a builder. validator may be nil to skip schema checks.
func NewBuilder(validator driven.SchemaValidator) *Builder {
	return &Builder{validator: validator}
}

// Build decodes raw into a Document. The returned Document is never nil:
// it carries the origin and the parse report even when a fatal error is
// returned. Fatal errors wrap domain.ErrSchemaViolation or
// domain.ErrNoWaveforms, or the read failure of raw. Context errors are
// returned unchanged and leave no report entry.
func (b *Builder) Build(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	doc := &domain.Document{Origin: raw.Origin, Report: domain.NewParseReport()}
	loc := raw.Origin.Location()

	if err := ctx.Err(); err != nil {
		return doc, err
	}

	if raw.Err != nil {
		doc.Report.Error(domain.IssueReadFailure, moduleBuilder, loc, "%v", raw.Err)
		return doc, fmt.Errorf("read %s: %w", loc, raw.Err)
	}

	if b.validator != nil {
		if err := b.validator.Validate(ctx, raw.Content); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return doc, err
			}
			doc.SchemaStatus = domain.SchemaInvalid
			doc.Report.Error(domain.IssueSchemaViolation, moduleBuilder, rootPath, "%v", err)
			if !errors.Is(err, domain.ErrSchemaViolation) {
				err = fmt.Errorf("%w: %v", domain.ErrSchemaViolation, err)
			}
			return doc, fmt.Errorf("validate %s: %w", loc, err)
		}
		doc.SchemaStatus = domain.SchemaValid
	}

	var root xmlAnnotatedECG
	dec := xml.NewDecoder(bytes.NewReader(raw.Content))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&root); err != nil {
		doc.Report.Error(domain.IssueSchemaViolation, moduleBuilder, rootPath, "not a well formed XML document: %v", err)
		return doc, fmt.Errorf("decode %s: %w", loc, domain.ErrSchemaViolation)
	}
	if root.XMLName.Local != rootElement {
		doc.Report.Error(domain.IssueSchemaViolation, moduleBuilder, "/"+root.XMLName.Local,
			"root element is %s, expected %s", root.XMLName.Local, rootElement)
		return doc, fmt.Errorf("decode %s: %w", loc, domain.ErrSchemaViolation)
	}

	readGeneral(doc, &root)
	readWaveforms(doc, &root)

	logger.Debug("aecg: %s decoded, %d waveforms, %d report entries", loc, len(doc.Waveforms), doc.Report.Len())

	if len(doc.Waveforms) == 0 {
		doc.Report.Error(domain.IssueNoWaveforms, moduleBuilder, rootPath, "No waveforms found")
		return doc, fmt.Errorf("%s: %w", loc, domain.ErrNoWaveforms)
	}
	return doc, nil
}

// readGeneral fills identifiers, demographics and timepoints.
func readGeneral(doc *domain.Document, root *xmlAnnotatedECG) {
	report := doc.Report

	if root.ID != nil {
		doc.UUID = root.ID.Root
	}
	if doc.UUID == "" {
		report.Warn(domain.IssueMissingOptionalAttribute, moduleBuilder, rootPath+"/id", "document has no id root")
	}

	doc.EffectiveTime = domain.TimeInterval{
		Low:    root.EffectiveTime.Low.Value,
		Center: root.EffectiveTime.Center.Value,
		High:   root.EffectiveTime.High.Value,
	}
	if first := doc.EffectiveTime.First(); first != "" {
		t, err := ParseHL7Time(first)
		if err != nil {
			report.Warn(domain.IssueMalformedValue, moduleBuilder, rootPath+"/effectiveTime", "%v", err)
		} else {
			doc.CollectedAt = t
		}
	} else {
		report.Warn(domain.IssueMissingOptionalAttribute, moduleBuilder, rootPath+"/effectiveTime", "document has no effective time")
	}

	readTimepointEvent(doc, root.TimepointEvent)
	readRelativeTimepoint(doc, root.Relative)

	if doc.Subject.ID.IsZero() {
		report.Warn(domain.IssueMissingRequiredField, moduleBuilder,
			rootPath+"/componentOf/timepointEvent/componentOf/subjectAssignment/subject/trialSubject/id",
			"subject id not found")
	}
	if doc.Study.ID.IsZero() {
		report.Warn(domain.IssueMissingRequiredField, moduleBuilder,
			rootPath+"/componentOf/timepointEvent/componentOf/subjectAssignment/componentOf/clinicalTrial/id",
			"study id not found")
	}
}

func readTimepointEvent(doc *domain.Document, tp *xmlTimepointEvent) {
	if tp == nil {
		return
	}
	doc.Timepoints.TPT = domain.AbsoluteTimepoint{
		CodedValue: domain.CodedValue{Code: tp.Code.Code, DisplayName: tp.Code.DisplayName},
		ReasonCode: tp.ReasonCode.Code,
		Low:        tp.EffectiveTime.Low.Value,
		High:       tp.EffectiveTime.High.Value,
	}

	sa := tp.Assignment
	if sa == nil {
		return
	}
	doc.Treatment = sa.Treatment.Code
	if s := sa.Subject; s != nil {
		if s.ID != nil {
			doc.Subject.ID = domain.Identifier{Root: s.ID.Root, Extension: s.ID.Extension}
		}
		doc.Subject.Sex = s.Gender.Code
		doc.Subject.BirthTime = s.BirthTime.Value
		doc.Subject.Race = s.Race.Code
		if doc.Subject.BirthTime != "" {
			t, err := ParseHL7Time(doc.Subject.BirthTime)
			if err != nil {
				doc.Report.Warn(domain.IssueMalformedValue, moduleBuilder,
					rootPath+"/componentOf/timepointEvent/componentOf/subjectAssignment/subject/trialSubject/subjectDemographicPerson/birthTime",
					"%v", err)
			} else {
				doc.BornAt = t
			}
		}
	}
	if t := sa.Trial; t != nil {
		if t.ID != nil {
			doc.Study.ID = domain.Identifier{Root: t.ID.Root, Extension: t.ID.Extension}
		}
		doc.Study.Title = t.Title.String()
	}
}

func readRelativeTimepoint(doc *domain.Document, rt *xmlRelativeTimepoint) {
	if rt == nil {
		return
	}
	doc.Timepoints.RTPT.CodedValue = domain.CodedValue{Code: rt.Code.Code, DisplayName: rt.Code.DisplayName}
	if pq := rt.PauseQuantity; pq != nil {
		q, _, err := ParseQuantity(pq.Value, pq.Unit, domain.Quantity{})
		if err != nil {
			doc.Report.Warn(domain.IssueMalformedValue, moduleBuilder,
				rootPath+"/definition/relativeTimepoint/componentOf/pauseQuantity", "%v", err)
		}
		doc.Timepoints.RTPT.PauseQuantity = q
	}
	if p := rt.Protocol; p != nil {
		doc.Timepoints.PTPT = domain.ProtocolTimepoint{
			CodedValue:     domain.CodedValue{Code: p.Code.Code, DisplayName: p.Code.DisplayName},
			ReferenceEvent: domain.CodedValue{Code: p.ReferenceEvent.Code, DisplayName: p.ReferenceEvent.DisplayName},
		}
	}
}

// readWaveforms decodes every series and every derived series in document
// order. The device is read from the first series.
func readWaveforms(doc *domain.Document, root *xmlAnnotatedECG) {
	seen := false
	for i, c := range root.Components {
		if c.Series == nil {
			continue
		}
		s := c.Series
		path := fmt.Sprintf("%s/component[%d]/series", rootPath, i)
		if !seen {
			seen = true
			doc.Device = domain.Device{
				Manufacturer: s.Author.Manufacturer.String(),
				Model:        s.Author.Model.String(),
				Software:     s.Author.Software.String(),
			}
		}
		addWaveform(doc, s, domain.WaveformRhythm, path)

		for j, d := range s.Derivations {
			for k, ds := range d.DerivedSeries {
				if ds == nil {
					continue
				}
				addWaveform(doc, ds, domain.WaveformDerived, fmt.Sprintf("%s/derivation[%d]/derivedSeries[%d]", path, j, k))
			}
		}
	}
}

func addWaveform(doc *domain.Document, s *xmlSeries, kind domain.WaveformKind, path string) {
	wf, ok := extractWaveform(s, kind, path, doc.Report)
	if !ok {
		return
	}
	extractAnnotationSets(s, wf, path, doc.Report)
	doc.Waveforms = append(doc.Waveforms, *wf)
}
