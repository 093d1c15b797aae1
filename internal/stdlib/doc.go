// Package stdlib holds the compiled-in library sources reachable from
// preprocessed code through `#with $name`.
//
// Every file under lib/ with the .rhl extension is embedded at build time
// and registered under its base name prefixed with the marker, so
// lib/std.rhl is reachable as `$std`. Adding a library is a matter of
// dropping a file into lib/.
//
// The registry is read-only once built and may be shared freely.
package stdlib
