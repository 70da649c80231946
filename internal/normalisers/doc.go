// Package normalisers provides implementations of the Normaliser interface.
// Each normaliser decodes one document format into domain.Document.
//
// The aecg sub-package handles HL7 annotated ECG XML.
package normalisers
