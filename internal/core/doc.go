// Package core provides the business logic for question bank imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Parser: A tolerant reader that turns messy spreadsheet exports into
//     headers and rows without rejecting a whole file for one bad line.
//   - Pipeline: Chunked building and validation of question records, with
//     cooperative yielding and cancellation between chunks.
//   - Bank: The in-memory question collection with id and question-text
//     indexes that the merge engine reconciles against.
//   - Service: The main entry point for all operations (import, preview,
//     query, export).
//
// # Import Flow
//
// An import runs through fixed stages:
//
//  1. [Parse] splits the raw text into a header line and field rows,
//     reconciling ragged rows instead of failing on them
//  2. [ResolveHeaders] maps raw header spellings onto the canonical schema
//     via normalization, an alias table, and caller overrides
//  3. [RunBatched] builds and validates records in chunks of
//     [Options.BatchSize], collecting row issues as data
//  4. [Merge] reconciles the surviving records against the bank under one
//     of four strategies: skip, overwrite, force, or merge
//  5. The service persists the bank and builds a bounded [Snapshot] of the
//     run for reporting
//
// Asynchronous runs started with [Service.StartImport] broadcast progress
// to subscribers via [Service.SubscribeProgress] and are bounded by a
// concurrency limiter.
//
// # Error Handling
//
// Row and header problems never abort a run; they are collected as
// [RowIssue] values on the result so partial success stays inspectable.
// Only unusable input (no data, no header line) and configuration mistakes
// (unknown strategy or preset) surface as errors. Technical errors are
// mapped to user-friendly messages using [MapError]; each category has a
// unique code for support reference:
//
//   - PARSE001-PARSE002: Unusable input
//   - VAL001-VAL002: Validation stops (strict mode, missing columns)
//   - MRG001: Merge configuration
//   - IMP001-IMP004: Import session errors (not found, busy, cancelled)
//   - BANK001: Persistence errors
//   - FILE001-FILE002: Upload errors
//
// # Presets
//
// Required-field profiles are registered at init time using
// [RegisterPreset]. The built-in profiles are minimal (a question is
// enough), quiz (question and correct answer), and exam (question, correct
// answer, points, and difficulty).
package core
