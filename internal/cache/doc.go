// Package cache provides a SQLite-backed cache of preprocessed outputs.
//
// Entries are keyed by Key, a domain-separated SHA-256 over the input text,
// the initial definitions and the preprocessing settings. Each entry also
// records the sources spliced in by #with together with their content
// hashes; callers must re-hash those sources and discard the entry if any
// of them changed.
//
// Every pipeline run is logged in the runs table with a UUIDv7 id and a
// hit flag, which is what `rhl cache stats` reports on.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: dependencies are deleted with their entry
package cache
