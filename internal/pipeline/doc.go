// Package pipeline runs the preprocessor the way the rhl command does.
//
// A Request carries the source text and the project configuration. Run
// turns the configuration into preprocess.Options and initial definitions,
// consults the optional cache, and records every run with a UUIDv7 id.
//
// Cache entries are reused only when every spliced source still hashes to
// the value recorded when the entry was written. A stale entry is deleted
// and the source is preprocessed again.
package pipeline
