// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - ConnectorFactory: Creates a Connector for a study directory
//   - Connector: Discovers and reads aECG files (plain or zipped)
//   - Normaliser: Decodes raw XML into a domain.Document
//   - IndexStore: Persists index runs and their per-file results
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - SchemaValidator: Structural check before extraction. Without it,
//     documents are reported as not validated.
//   - ReportSink: Receives parse report entries. Without it, entries
//     are only kept in the store.
//   - WorkbookWriter: Spreadsheet export. Without it, --oxlsx and print fail.
//   - StudyInfoLoader: Reads study info files for --study-info.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
