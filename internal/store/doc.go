// Package store provides SQLite-backed history of integration runs.
//
// Each recorded session is one row in runs, one row per rule in
// rule_results, and one row per estimate (intermediate and final) in
// estimates. Records are append-only; writing the same run ID twice is a
// no-op.
//
// # Ordering
//
// Runs are listed by seq (insertion order), never by created_at, so
// listings are stable regardless of wall-clock skew. Estimates are read in
// the order they were produced.
//
// # Identity
//
// Run IDs are UUIDv7 (time-sortable). The input hash groups runs that
// integrated the same problem: it is SHA-256 over canonical JSON of the
// integrand name, bounds, tolerance, doubling limit and rule list, with
// domain separation. Floats enter the hash as shortest round-trip strings.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
