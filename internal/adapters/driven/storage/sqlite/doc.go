// Package sqlite provides an SQLite-based implementation of driven.IndexStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Every run, file row, interval
// measurement, parse report entry and study summary is kept, so stored runs
// can be listed, summarised and exported again without re-reading the study.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.aecg/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. AppendFile writes one file per transaction,
// so a cancelled run keeps every file stored before the cancellation.
package sqlite
