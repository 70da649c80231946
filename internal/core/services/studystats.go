package services

import (
	"github.com/custodia-labs/aecg-cli/internal/core/domain"
)

// ComputeStudyStats checks the indexed rows against the study protocol in
// info. Counts default to the expected totals of info when nothing was
// indexed.
func ComputeStudyStats(info domain.StudyInfo, rows []domain.CohortRow) domain.StudyStats {
	stats := domain.StudyStats{
		SubjectsLessAECGs:             info.NumSubj,
		AECGsNoAnnotations:            info.TotalECGs,
		AECGsLessQTInPrimaryLead:      info.TotalECGs,
		AECGsLessQTs:                  info.TotalECGs,
		AECGsAnnotationsMultipleLeads: info.TotalECGs,
		AECGsAnnotationsNoPrimaryLead: info.TotalECGs,
		AECGsWithErrors:               info.TotalECGs,
		AECGsPotentiallyDigitized:     info.TotalECGs,
	}

	type ecgKey struct {
		zip, xml, uuid string
	}
	ecgs := make(map[ecgKey]bool)
	perSubject := make(map[string]map[string]bool)
	for _, r := range rows {
		if r.SubjectID != "" {
			if perSubject[r.SubjectID] == nil {
				perSubject[r.SubjectID] = make(map[string]bool)
			}
			if r.UUID != "" {
				perSubject[r.SubjectID][r.UUID] = true
			}
		}
		if !r.Failed {
			ecgs[ecgKey{r.Origin.ZipPath, r.Origin.XMLPath, r.UUID}] = true
		}
	}

	stats.NumSubjects = len(perSubject)
	stats.NumAECGs = len(ecgs)

	if stats.NumSubjects > 0 {
		total, less, more := 0, 0, 0
		withECGs := 0
		for _, ids := range perSubject {
			n := len(ids)
			if n == 0 {
				continue
			}
			withECGs++
			total += n
			if n < info.NECGSubj {
				less++
			}
			if n > info.NECGSubj {
				more++
			}
		}
		if stats.NumAECGs > 0 && withECGs > 0 {
			stats.AvgAECGsSubject = float64(total) / float64(withECGs)
		}
		stats.SubjectsLessAECGs = less
		stats.SubjectsMoreAECGs = more
	}

	if stats.NumAECGs == 0 {
		return stats
	}

	kind := info.AnnotationWaveform()
	primary := info.PrimaryLeadCode()

	annotated, primaryQTs, anyQTs, multiLead, noPrimary := 0, 0, 0, 0, 0
	errs, digitized := 0, 0
	for _, r := range rows {
		if r.Failed {
			errs++
		}
		for _, w := range r.Waveforms {
			if w.PotentiallyDigitized() {
				digitized++
				break
			}
		}
		if r.Failed {
			continue
		}
		w, ok := r.Waveform(kind)
		if !ok {
			continue
		}
		if w.Annotated && w.HasIntervals {
			annotated++
		}
		if a, ok := w.Aggregate(primary, domain.IntervalQT); ok && a.Count >= info.AnNbeats {
			primaryQTs++
		}
		qts := 0
		otherLead := false
		for _, a := range w.Aggregates {
			if a.Kind == domain.IntervalQT {
				qts += a.Count
			}
			if a.Lead != primary {
				otherLead = true
			}
		}
		if qts >= info.AnNbeats && qts > 0 {
			anyQTs++
		}
		if w.NumAnnotatedLeads > 1 {
			multiLead++
		}
		if otherLead {
			noPrimary++
		}
	}

	stats.AECGsNoAnnotations = stats.NumAECGs - annotated
	stats.AECGsLessQTInPrimaryLead = stats.NumAECGs - primaryQTs
	stats.AECGsLessQTs = stats.NumAECGs - anyQTs
	stats.AECGsAnnotationsMultipleLeads = multiLead
	stats.AECGsAnnotationsNoPrimaryLead = noPrimary
	stats.AECGsWithErrors = errs
	stats.AECGsPotentiallyDigitized = digitized
	return stats
}
