package domain

import (
	"fmt"
	"regexp"
)

// StudyInfo describes the study being indexed.
type StudyInfo struct {
	IndexFile   string `yaml:"index_file" json:"index_file"`
	Description string `yaml:"description" json:"description"`
	Version     string `yaml:"version" json:"version"`
	Date        string `yaml:"date" json:"date"`
	EndDate     string `yaml:"end_date" json:"end_date"`
	AppType     string `yaml:"app_type" json:"app_type"`
	AppNum      string `yaml:"app_num" json:"app_num"`
	StudyID     string `yaml:"study_id" json:"study_id"`
	NumSubj     int    `yaml:"num_subjects" json:"num_subjects"`
	NECGSubj    int    `yaml:"ecgs_per_subject" json:"ecgs_per_subject"`
	TotalECGs   int    `yaml:"total_ecgs" json:"total_ecgs"`

	// AnMethod is the annotation method: RHYTHM, DERIVED, HOLTER_RHYTHM
	// or HOLTER_MEDIAN_BEAT.
	AnMethod string `yaml:"annotation_method" json:"annotation_method"`

	// AnLead is the primary annotated lead as a display name ("II") or GLOBAL.
	AnLead   string `yaml:"annotation_lead" json:"annotation_lead"`
	AnNbeats int    `yaml:"annotated_beats" json:"annotated_beats"`
	StudyDir string `yaml:"study_dir" json:"study_dir"`
	Sponsor  string `yaml:"sponsor" json:"sponsor"`
}

// Annotation methods accepted for StudyInfo.AnMethod.
var AnnotationMethods = []string{"RHYTHM", "DERIVED", "HOLTER_RHYTHM", "HOLTER_MEDIAN_BEAT"}

var appNumPattern = regexp.MustCompile(`^\d{6}$`)

// DefaultStudyInfo returns study info with the indexer defaults.
func DefaultStudyInfo() StudyInfo {
	return StudyInfo{
		Description: "Index automatically generated",
		StudyID:     "UNKNOWN-STUDYID",
		AnMethod:    "RHYTHM",
		AnLead:      LeadDisplayName(DefaultPrimaryLead),
		AnNbeats:    1,
		StudyDir:    ".",
		Sponsor:     "UNKNOWN_SPONSOR",
	}
}

// Validate checks the user supplied fields.
func (s StudyInfo) Validate() error {
	if s.AppNum != "" && !appNumPattern.MatchString(s.AppNum) {
		return fmt.Errorf("application number %q must have 6 digits: %w", s.AppNum, ErrInvalidInput)
	}
	valid := false
	for _, m := range AnnotationMethods {
		if m == s.AnMethod {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("annotation method %q: %w", s.AnMethod, ErrInvalidInput)
	}
	if s.NumSubj < 0 || s.NECGSubj < 0 || s.TotalECGs < 0 || s.AnNbeats < 0 {
		return fmt.Errorf("counts must not be negative: %w", ErrInvalidInput)
	}
	return nil
}

// AnnotationWaveform returns the waveform kind annotations are expected on.
func (s StudyInfo) AnnotationWaveform() WaveformKind {
	kind, err := ParseWaveformKind(s.AnMethod)
	if err != nil {
		return WaveformRhythm
	}
	return kind
}

// PrimaryLeadCode maps AnLead to a lead code. GLOBAL maps to "".
func (s StudyInfo) PrimaryLeadCode() string {
	if s.AnLead == GlobalLead || s.AnLead == "" {
		return ""
	}
	if code := LeadCodeForDisplayName(s.AnLead); code != "" {
		return code
	}
	return s.AnLead
}

// StudyStats are cohort level counts checked against the study protocol.
type StudyStats struct {
	NumSubjects                   int     `json:"num_subjects"`
	NumAECGs                      int     `json:"num_aecgs"`
	AvgAECGsSubject               float64 `json:"avg_aecgs_subject"`
	SubjectsLessAECGs             int     `json:"subjects_less_aecgs"`
	SubjectsMoreAECGs             int     `json:"subjects_more_aecgs"`
	AECGsNoAnnotations            int     `json:"aecgs_no_annotations"`
	AECGsLessQTInPrimaryLead      int     `json:"aecgs_less_qt_in_primary_lead"`
	AECGsLessQTs                  int     `json:"aecgs_less_qts"`
	AECGsAnnotationsMultipleLeads int     `json:"aecgs_annotations_multiple_leads"`
	AECGsAnnotationsNoPrimaryLead int     `json:"aecgs_annotations_no_primary_lead"`
	AECGsWithErrors               int     `json:"aecgs_with_errors"`
	AECGsPotentiallyDigitized     int     `json:"aecgs_potentially_digitized"`
}

// StatField is a named statistic for tabular output.
type StatField struct {
	Name  string
	Value any
}

// Fields returns the statistics in display order.
func (s StudyStats) Fields() []StatField {
	return []StatField{
		{"num_subjects", s.NumSubjects},
		{"num_aecgs", s.NumAECGs},
		{"avg_aecgs_subject", s.AvgAECGsSubject},
		{"subjects_less_aecgs", s.SubjectsLessAECGs},
		{"subjects_more_aecgs", s.SubjectsMoreAECGs},
		{"aecgs_no_annotations", s.AECGsNoAnnotations},
		{"aecgs_less_qt_in_primary_lead", s.AECGsLessQTInPrimaryLead},
		{"aecgs_less_qts", s.AECGsLessQTs},
		{"aecgs_annotations_multiple_leads", s.AECGsAnnotationsMultipleLeads},
		{"aecgs_annotations_no_primary_lead", s.AECGsAnnotationsNoPrimaryLead},
		{"aecgs_with_errors", s.AECGsWithErrors},
		{"aecgs_potentially_digitized", s.AECGsPotentiallyDigitized},
	}
}

// Fields returns the study info in display order.
func (s StudyInfo) Fields() []StatField {
	return []StatField{
		{"IndexFile", s.IndexFile},
		{"Description", s.Description},
		{"Version", s.Version},
		{"Date", s.Date},
		{"End_date", s.EndDate},
		{"AppType", s.AppType},
		{"AppNum", s.AppNum},
		{"StudyID", s.StudyID},
		{"NumSubj", s.NumSubj},
		{"NECGSubj", s.NECGSubj},
		{"TotalECGs", s.TotalECGs},
		{"AnMethod", s.AnMethod},
		{"AnLead", s.AnLead},
		{"AnNbeats", s.AnNbeats},
		{"StudyDir", s.StudyDir},
		{"Sponsor", s.Sponsor},
	}
}
