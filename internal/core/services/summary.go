package services

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// summaryAccumulator folds measurements into per-kind statistics.
// The zero value is not usable; create one with newSummaryAccumulator.
type summaryAccumulator struct {
	mode    domain.StddevMode
	valid   map[domain.IntervalKind][]float64
	invalid map[domain.IntervalKind]int
}

func newSummaryAccumulator(mode domain.StddevMode) *summaryAccumulator {
	return &summaryAccumulator{
		mode:    mode,
		valid:   make(map[domain.IntervalKind][]float64),
		invalid: make(map[domain.IntervalKind]int),
	}
}

func (a *summaryAccumulator) add(ms []domain.IntervalMeasurement) {
	for _, m := range ms {
		if !m.Valid {
			a.invalid[m.Kind]++
			continue
		}
		a.valid[m.Kind] = append(a.valid[m.Kind], m.Duration)
	}
}

// summaries returns one row per interval kind, including kinds never seen.
func (a *summaryAccumulator) summaries() []domain.StudySummary {
	out := make([]domain.StudySummary, 0, len(domain.IntervalKinds))
	for _, kind := range domain.IntervalKinds {
		out = append(out, summarise(kind, a.valid[kind], a.invalid[kind], a.mode))
	}
	return out
}

// Summarise computes study summaries from a set of measurements. Invalid
// measurements are counted but excluded from the statistics.
func Summarise(ms []domain.IntervalMeasurement, mode domain.StddevMode) []domain.StudySummary {
	acc := newSummaryAccumulator(mode)
	acc.add(ms)
	return acc.summaries()
}

// summarise leaves Mean and Median nil for an empty set and Stddev nil
// for fewer than two values.
func summarise(kind domain.IntervalKind, values []float64, invalid int, mode domain.StddevMode) domain.StudySummary {
	s := domain.StudySummary{Kind: kind, Count: len(values), InvalidCount: invalid}
	n := len(values)
	if n == 0 {
		return s
	}

	mean := stat.Mean(values, nil)
	s.Mean = &mean

	// Even counts average the middle pair.
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	s.Median = &median

	if n < 2 {
		return s
	}
	variance := stat.PopVariance(values, nil)
	if mode == domain.StddevSample {
		variance = stat.Variance(values, nil)
	}
	sd := math.Sqrt(variance)
	s.Stddev = &sd
	return s
}
