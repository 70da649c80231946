package aecg

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

const moduleAnnotation = "annotation"

// roi is the boundary information of one annotation node.
type roi struct {
	lead     string
	timeCode string
	value    domain.AnnotationValue
	low      domain.AnnotationValue
	high     domain.AnnotationValue
}

func (r roi) hasTime() bool {
	return !r.value.IsZero() || !r.low.IsZero() || !r.high.IsZero()
}

// annotationWalker walks the annotation sets of one waveform. Groups and
// beats are numbered across all sets of the waveform.
type annotationWalker struct {
	wf     *domain.Waveform
	report *domain.ParseReport
	group  int
	beat   int
}

// extractAnnotationSets decodes subjectOf/annotationSet of a series into
// wf.AnnotationSets. Annotations keep document order.
func extractAnnotationSets(s *xmlSeries, wf *domain.Waveform, path string, report *domain.ParseReport) {
	w := &annotationWalker{wf: wf, report: report}
	for i, ref := range s.SubjectOf {
		if ref.AnnotationSet == nil {
			continue
		}
		setPath := fmt.Sprintf("%s/subjectOf[%d]/annotationSet", path, i)
		wf.AnnotationSets = append(wf.AnnotationSets, w.walkSet(ref.AnnotationSet, setPath))
	}
}

func (w *annotationWalker) walkSet(x *xmlAnnotationSet, path string) domain.AnnotationSet {
	set := domain.AnnotationSet{
		Person:      x.Person.String(),
		DeviceModel: x.DeviceModel.String(),
		DeviceName:  x.DeviceName.String(),
	}

	for i, c := range x.Components {
		a := c.Annotation
		if a == nil || !strings.HasPrefix(a.Code.Code, domain.AnnotationCodePrefix) {
			continue
		}
		annPath := fmt.Sprintf("%s/component[%d]/annotation", path, i)

		if a.Code.Code != domain.AnnotationBeat {
			w.group++
			set.Annotations = w.walk(set.Annotations, a, annPath, valueCode(a), roi{}, -1)
			continue
		}

		// Each wave of a beat is its own group and inherits the beat's ROI.
		parent := readROI(a, roi{})
		for j, cc := range a.Components {
			if cc.Annotation == nil {
				continue
			}
			w.group++
			childPath := fmt.Sprintf("%s/component[%d]/annotation", annPath, j)
			set.Annotations = w.walk(set.Annotations, cc.Annotation, childPath, valueCode(cc.Annotation), parent, w.beat)
		}
		w.beat++
	}
	return set
}

// walk appends the annotation at x and its descendants to out.
func (w *annotationWalker) walk(out []domain.Annotation, x *xmlAnnotation, path, codeType string, parent roi, beat int) []domain.Annotation {
	code := x.Code.Code
	if strings.HasPrefix(code, domain.IntervalOnlyCodePrefix) {
		return out
	}
	if !strings.HasSuffix(codeType, "WAVE") {
		codeType = code
	}

	r := readROI(x, parent)
	ann := domain.Annotation{
		Group:         w.group,
		Beat:          beat,
		Code:          code,
		Type:          codeType,
		WaveComponent: valueCode(x),
		Path:          path,
	}

	// A node without boundary times takes them from its first child.
	absorbed := -1
	if !ownTime(x) {
		for j, c := range x.Components {
			if c.Annotation == nil {
				continue
			}
			ann.WaveComponent2 = valueCode(c.Annotation)
			if child := readROI(c.Annotation, r); ownTime(c.Annotation) {
				r = child
				absorbed = j
			}
			break
		}
	}

	ann.TimeCode = r.timeCode
	ann.Lead = r.lead
	ann.Value, ann.Low, ann.High = r.value, r.low, r.high

	// Rhythm labels and other notes carry no boundaries and stay unresolved.
	if r.hasTime() || r.lead != "" {
		w.finish(&ann)
	}
	out = append(out, ann)

	for j, c := range x.Components {
		if c.Annotation == nil || j == absorbed {
			continue
		}
		childPath := fmt.Sprintf("%s/component[%d]/annotation", path, j)
		out = w.walk(out, c.Annotation, childPath, codeType, r, beat)
	}
	return out
}

// finish resolves markers and checks the lead reference.
func (w *annotationWalker) finish(ann *domain.Annotation) {
	if ann.Lead != "" && !w.wf.HasLead(ann.Lead) {
		ann.LeadMismatch = true
		w.report.Warn(domain.IssueLeadReferenceMismatch, moduleAnnotation, ann.Path,
			"lead %s is not present in the %s waveform", ann.Lead, w.wf.Kind)
	}

	if !ann.IsWaveAnnotation() {
		return
	}
	for _, p := range domain.Params {
		v := ann.Param(p)
		if v.IsZero() {
			continue
		}
		mt := domain.MarkerTypeFor(ann.Type, ann.WaveComponent, ann.WaveComponent2, p)
		if mt == "" {
			continue
		}
		ms, err := markerTimeMS(w.wf, ann.TimeCode, v)
		if err != nil {
			w.report.Warn(domain.IssueMalformedValue, moduleAnnotation, ann.Path, "%s %s: %v", mt, p, err)
			continue
		}
		ann.Markers = append(ann.Markers, domain.Marker{Type: mt, Param: p, TimeMS: ms})
	}
}

func valueCode(x *xmlAnnotation) string {
	if x.Value == nil {
		return ""
	}
	return x.Value.Code
}

// ownTime reports whether the node's own boundaries carry a time.
func ownTime(x *xmlAnnotation) bool {
	return readROI(x, roi{}).hasTime()
}

// readROI reads the supporting ROI boundaries of x. Lead and time code
// are inherited from parent when x does not set them.
func readROI(x *xmlAnnotation, parent roi) roi {
	r := roi{lead: parent.lead, timeCode: parent.timeCode}
	for _, b := range x.Boundaries {
		code := b.Code.Code
		if !domain.IsTimeCode(code) {
			if code != "" {
				r.lead = code
			}
			continue
		}
		r.timeCode = code
		if b.Value == nil {
			continue
		}
		if b.Value.Value != "" {
			r.value = domain.AnnotationValue{Raw: b.Value.Value, Unit: b.Value.Unit}
		}
		if b.Value.Low != nil && b.Value.Low.Value != "" {
			r.low = domain.AnnotationValue{Raw: b.Value.Low.Value, Unit: b.Value.Low.Unit}
		}
		if b.Value.High != nil && b.Value.High.Value != "" {
			r.high = domain.AnnotationValue{Raw: b.Value.High.Value, Unit: b.Value.High.Unit}
		}
	}
	return r
}
