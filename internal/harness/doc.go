// Package harness runs YAML scenarios through the reconciliation engine.
//
// A scenario declares a roster, the ledger as it stood before the run, how
// the transport behaves (modems present, per-number failures, reported
// states) and one or more passes over results. Each pass runs the real
// engine against a fresh in-memory SQLite ledger and a fake transport, so
// repeated passes exercise the at-most-once guarantee across runs.
//
// Scenario files live in testdata/scenarios; the trace and final ledger of
// each are compared against testdata/golden.
package harness
