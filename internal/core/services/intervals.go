package services

import (
	"math"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// boundaryPair names the start and end markers of a measured interval.
type boundaryPair struct {
	kind  domain.IntervalKind
	start domain.MarkerType
	end   domain.MarkerType
}

// Measured in this order within a beat. RR and QTcF are derived.
var boundaryPairs = []boundaryPair{
	{domain.IntervalPR, domain.MarkerPOn, domain.MarkerQOn},
	{domain.IntervalQRS, domain.MarkerQOn, domain.MarkerQOff},
	{domain.IntervalQT, domain.MarkerQOn, domain.MarkerTOff},
}

// beat is the markers of one cardiac cycle in one lead.
type beat struct {
	markers []domain.Marker
}

func (b *beat) has(t domain.MarkerType) bool {
	for _, m := range b.markers {
		if m.Type == t {
			return true
		}
	}
	return false
}

// earliest returns the earliest marker of type t at or after from.
func (b *beat) earliest(t domain.MarkerType, from float64) (float64, bool) {
	best, found := 0.0, false
	for _, m := range b.markers {
		if m.Type != t || m.TimeMS < from {
			continue
		}
		if !found || m.TimeMS < best {
			best, found = m.TimeMS, true
		}
	}
	return best, found
}

// leadBeats is the beat sequence of one lead.
type leadBeats struct {
	lead  string
	beats []*beat
}

// MeasureDocument measures every waveform of doc in document order.
func MeasureDocument(doc *domain.Document) []domain.IntervalMeasurement {
	var out []domain.IntervalMeasurement
	for i := range doc.Waveforms {
		out = append(out, MeasureWaveform(&doc.Waveforms[i])...)
	}
	return out
}

// MeasureWaveform derives interval measurements from the markers of wf.
// Leads are measured independently in the order they are first annotated.
func MeasureWaveform(wf *domain.Waveform) []domain.IntervalMeasurement {
	leads := groupBeats(wf.Annotations())

	var globalQOn []float64
	for _, lb := range leads {
		if lb.lead != "" {
			continue
		}
		for _, b := range lb.beats {
			for _, m := range b.markers {
				if m.Type == domain.MarkerQOn {
					globalQOn = append(globalQOn, m.TimeMS)
				}
			}
		}
	}

	var out []domain.IntervalMeasurement
	for _, lb := range leads {
		out = append(out, measureLead(wf.Kind, lb, globalQOn)...)
	}
	return out
}

// groupBeats splits annotations into per-lead beats. Annotations with a beat
// index are grouped by it. Others open a new beat when a marker type repeats.
func groupBeats(anns []domain.Annotation) []*leadBeats {
	var leads []*leadBeats
	byLead := make(map[string]*leadBeats)
	indexed := make(map[string]map[int]*beat)
	current := make(map[string]*beat)

	for _, a := range anns {
		if len(a.Markers) == 0 {
			continue
		}
		lb, ok := byLead[a.Lead]
		if !ok {
			lb = &leadBeats{lead: a.Lead}
			byLead[a.Lead] = lb
			indexed[a.Lead] = make(map[int]*beat)
			leads = append(leads, lb)
		}

		if a.Beat >= 0 {
			b, ok := indexed[a.Lead][a.Beat]
			if !ok {
				b = &beat{}
				indexed[a.Lead][a.Beat] = b
				lb.beats = append(lb.beats, b)
			}
			b.markers = append(b.markers, a.Markers...)
			continue
		}

		for _, m := range a.Markers {
			b := current[a.Lead]
			if b == nil || b.has(m.Type) {
				b = &beat{}
				current[a.Lead] = b
				lb.beats = append(lb.beats, b)
			}
			b.markers = append(b.markers, m)
		}
	}
	return leads
}

func measureLead(kind domain.WaveformKind, lb *leadBeats, globalQOn []float64) []domain.IntervalMeasurement {
	var out []domain.IntervalMeasurement
	newRow := func(k domain.IntervalKind, i int) domain.IntervalMeasurement {
		return domain.IntervalMeasurement{
			Kind:     k,
			Waveform: kind,
			Lead:     lb.lead,
			LeadName: domain.LeadDisplayName(lb.lead),
			Beat:     i,
		}
	}

	for i, b := range lb.beats {
		var rr, qt *domain.IntervalMeasurement

		if i > 0 && (b.has(domain.MarkerRPeak) || lb.beats[i-1].has(domain.MarkerRPeak)) {
			row := newRow(domain.IntervalRR, i)
			prev, okPrev := lb.beats[i-1].earliest(domain.MarkerRPeak, math.Inf(-1))
			cur, okCur := b.earliest(domain.MarkerRPeak, math.Inf(-1))
			row.StartMS, row.EndMS = prev, cur
			if okPrev && okCur && cur >= prev {
				row.Duration = cur - prev
				row.Valid = true
			}
			out = append(out, row)
			rr = &row
		}

		for _, p := range boundaryPairs {
			if !b.has(p.start) && !b.has(p.end) {
				continue
			}
			row := newRow(p.kind, i)
			start, okStart := b.earliest(p.start, math.Inf(-1))
			var end float64
			var okEnd bool
			if okStart {
				end, okEnd = b.earliest(p.end, start)
			} else {
				end, okEnd = b.earliest(p.end, math.Inf(-1))
			}

			if p.kind == domain.IntervalQT && !okStart && okEnd && lb.lead != "" {
				if q, ok := latestBefore(globalQOn, end); ok {
					start, okStart = q, true
					row.Fallback = true
				}
			}

			row.StartMS, row.EndMS = start, end
			if okStart && okEnd && end >= start {
				row.Duration = end - start
				row.Valid = true
			}
			out = append(out, row)
			if p.kind == domain.IntervalQT {
				qt = &row
			}
		}

		if qt != nil {
			out = append(out, qtcf(newRow(domain.IntervalQTcF, i), qt, rr))
		}
	}
	return out
}

// qtcf applies Fridericia's correction QT / (RR/1000)^(1/3).
func qtcf(row domain.IntervalMeasurement, qt, rr *domain.IntervalMeasurement) domain.IntervalMeasurement {
	row.StartMS, row.EndMS, row.Fallback = qt.StartMS, qt.EndMS, qt.Fallback
	if !qt.Valid || rr == nil || !rr.Valid || rr.Duration <= 0 {
		return row
	}
	row.Duration = qt.Duration / math.Cbrt(rr.Duration/1000)
	row.Valid = true
	return row
}

func latestBefore(times []float64, t float64) (float64, bool) {
	best, found := 0.0, false
	for _, v := range times {
		if v < t && (!found || v > best) {
			best, found = v, true
		}
	}
	return best, found
}

// Aggregate returns COUNT and AVERAGE of the valid measurements per
// waveform, lead and kind. Groups without a valid measurement are omitted.
func Aggregate(ms []domain.IntervalMeasurement) []domain.IntervalAggregate {
	type key struct {
		wf   domain.WaveformKind
		lead string
		kind domain.IntervalKind
	}
	type leadKey struct {
		wf   domain.WaveformKind
		lead string
	}

	sums := make(map[key]float64)
	counts := make(map[key]int)
	var order []leadKey
	seen := make(map[leadKey]bool)

	for _, m := range ms {
		lk := leadKey{m.Waveform, m.Lead}
		if !seen[lk] {
			seen[lk] = true
			order = append(order, lk)
		}
		if !m.Valid {
			continue
		}
		k := key{m.Waveform, m.Lead, m.Kind}
		sums[k] += m.Duration
		counts[k]++
	}

	var out []domain.IntervalAggregate
	for _, lk := range order {
		for _, kind := range domain.IntervalKinds {
			k := key{lk.wf, lk.lead, kind}
			n := counts[k]
			if n == 0 {
				continue
			}
			out = append(out, domain.IntervalAggregate{
				Waveform: lk.wf,
				Lead:     lk.lead,
				LeadName: domain.LeadDisplayName(lk.lead),
				Kind:     kind,
				Count:    n,
				Average:  sums[k] / float64(n),
			})
		}
	}
	return out
}
