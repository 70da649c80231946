// Package aecg decodes HL7 annotated ECG (aECG) XML documents.
//
// The Builder reads general information, the rhythm series and its derived
// representative beat, and the annotation sets attached to each series.
// Problems that do not prevent decoding are recorded in the document's
// ParseReport instead of failing the build:
//
//	doc, err := aecg.NewBuilder(nil).Build(ctx, raw)
//	for _, e := range doc.Report.Entries() {
//		fmt.Println(e)
//	}
//
// Value parsers for HL7 timestamps, sample digits and physical quantities
// are exported for use by other packages.
package aecg
