// Package domain defines the core business entities for aecg.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - RawDocument: Bytes of one aECG XML file and where they came from
//   - Document: A decoded annotated ECG with its waveforms and parse report
//   - Waveform: A RHYTHM or DERIVED series with leads and annotations
//   - ParseReport: Ordered warnings and errors collected while decoding
//   - IntervalMeasurement: A PR/QRS/QT/RR/QTcF duration for one beat and lead
//   - CohortRow, StudySummary, StudyStats: Study index tables
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
