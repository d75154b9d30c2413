// Package store provides SQLite-backed run history.
//
// Each invocation of the runner that is given a database records one row in
// runs (counts and timestamps) and one row per reported test in results.
// Ignored tests are counted but have no result row.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Deleting a run deletes its results
//
// Timestamps are stored as Unix nanoseconds and read back in UTC.
package store
