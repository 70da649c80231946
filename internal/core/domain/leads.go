package domain

// Sequence codes that carry the time axis rather than a lead.
const (
	TimeAbsolute = "TIME_ABSOLUTE"
	TimeRelative = "TIME_RELATIVE"
)

// Lead codes defined by the HL7 aECG vocabulary, in canonical order.
var StandardLeads = []string{
	"MDC_ECG_LEAD_I", "MDC_ECG_LEAD_II", "MDC_ECG_LEAD_III",
	"MDC_ECG_LEAD_AVR", "MDC_ECG_LEAD_AVL", "MDC_ECG_LEAD_AVF",
	"MDC_ECG_LEAD_V1", "MDC_ECG_LEAD_V2", "MDC_ECG_LEAD_V3",
	"MDC_ECG_LEAD_V4", "MDC_ECG_LEAD_V5", "MDC_ECG_LEAD_V6",
	"MDC_ECG_LEAD_X", "MDC_ECG_LEAD_Y", "MDC_ECG_LEAD_Z",
	"MDC_ECG_LEAD_AVRneg", "MDC_ECG_LEAD_AVRNEG",
	"MDC_ECG_LEAD_aVR", "MDC_ECG_LEAD_aVL", "MDC_ECG_LEAD_aVF",
}

// Vendor lead codes outside the vocabulary that are still accepted.
var KnownNonStandardLeads = []string{
	"MORTARA_ECG_LEAD_TEA",
	"FDA_ECG_LEAD_VCGMAG",
}

// DefaultPrimaryLead is lead II.
const DefaultPrimaryLead = "MDC_ECG_LEAD_II"

// GlobalLead is the display name for annotations not tied to a lead.
const GlobalLead = "GLOBAL"

var leadDisplayNames = map[string]string{
	"MDC_ECG_LEAD_I":       "I",
	"MDC_ECG_LEAD_II":      "II",
	"MDC_ECG_LEAD_III":     "III",
	"MDC_ECG_LEAD_AVR":     "aVR",
	"MDC_ECG_LEAD_AVL":     "aVL",
	"MDC_ECG_LEAD_AVF":     "aVF",
	"MDC_ECG_LEAD_AVRneg":  "-aVR",
	"MDC_ECG_LEAD_AVRNEG":  "-aVR",
	"MDC_ECG_LEAD_V1":      "V1",
	"MDC_ECG_LEAD_V2":      "V2",
	"MDC_ECG_LEAD_V3":      "V3",
	"MDC_ECG_LEAD_V4":      "V4",
	"MDC_ECG_LEAD_V5":      "V5",
	"MDC_ECG_LEAD_V6":      "V6",
	"MDC_ECG_LEAD_X":       "X",
	"MDC_ECG_LEAD_Y":       "Y",
	"MDC_ECG_LEAD_Z":       "Z",
	"MORTARA_ECG_LEAD_TEA": "Mortara TEA",
	"FDA_ECG_LEAD_VCGMAG":  "VCGMAG",
	"MDC_ECG_LEAD_aVR":     "aVR",
	"MDC_ECG_LEAD_aVL":     "aVL",
	"MDC_ECG_LEAD_aVF":     "aVF",
}

// IsTimeCode reports whether a sequence code describes the time axis.
func IsTimeCode(code string) bool {
	return code == TimeAbsolute || code == TimeRelative
}

// IsStandardLead reports whether code is part of the HL7 lead vocabulary.
func IsStandardLead(code string) bool {
	for _, l := range StandardLeads {
		if l == code {
			return true
		}
	}
	return false
}

// IsKnownLead reports whether code is a standard or accepted vendor lead.
func IsKnownLead(code string) bool {
	if IsStandardLead(code) {
		return true
	}
	for _, l := range KnownNonStandardLeads {
		if l == code {
			return true
		}
	}
	return false
}

// LeadDisplayName maps a lead code to its short name.
// Unknown codes are returned unchanged and "" maps to GLOBAL.
func LeadDisplayName(code string) string {
	if code == "" {
		return GlobalLead
	}
	if name, ok := leadDisplayNames[code]; ok {
		return name
	}
	return code
}

// LeadCodeForDisplayName maps a short name such as "II" back to its
// standard lead code. It returns "" when no standard lead matches.
func LeadCodeForDisplayName(name string) string {
	for _, code := range StandardLeads {
		if leadDisplayNames[code] == name {
			return code
		}
	}
	for _, code := range KnownNonStandardLeads {
		if leadDisplayNames[code] == name {
			return code
		}
	}
	return ""
}
