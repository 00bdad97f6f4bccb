// Package store keeps the event log of one test run in SQLite.
//
// The store is run-scoped: the CLI opens it on ":memory:" and it disappears
// with the process. It backs the summary report and ad-hoc queries over the
// run (per-status counts, per-scenario timelines).
//
// # Critical Patterns
//
// Logical ordering:
//   - events are keyed by (run_id, seq), seq stamped by the dispatcher
//   - all queries ORDER BY seq ASC, NEVER by the wall-clock column
//
// Single writer:
//   - Recorder receives envelopes through an event.Queue and writes them
//     from one goroutine, so dispatcher handlers never wait on SQLite
//
// Strict status decoding:
//   - a stored status code this version does not know is an error, never
//     silently mapped to a default
//
// # Database Configuration
//
//   - WAL mode for file databases (memory databases report "memory")
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
