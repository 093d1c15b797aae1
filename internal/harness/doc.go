// Package harness runs preprocessing scenarios described in YAML.
//
// A scenario supplies an input text, the initial definitions and settings,
// an in-memory file set for #with targets, and the expected outcome: either
// the exact output or an error code with an optional line number.
//
// # Scenario Format
//
//	name: nested_skip
//	description: "Inner #endif does not end the outer skipped block"
//	defines: [DEBUG, VERSION=2]
//	inverted_polarity: false
//	libraries:
//	  $extra: "extra\n"
//	files:
//	  inc.rhl: "included\n"
//	input: |
//	  #ifdef RELEASE
//	  ...
//	expect:
//	  output: |
//	    ...
//	assertions:
//	  - type: output_contains
//	    text: included
//	  - type: depends_on
//	    name: inc.rhl
//
// Scenarios run through the same pipeline as the rhl command, without a
// cache, using a fixed run id and a discarding logger.
package harness
