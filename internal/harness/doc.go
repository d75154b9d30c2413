// Package harness assembles the scripts handed to the interpreter.
//
// test262 tests call assertion helpers ($ERROR, assert, ...) that the suite
// expects the host to provide. The harness is a fixed JavaScript source that
// defines them; it is read once per run and prepended to every test.
//
// # Assembly
//
// The assembled script is laid out as:
//
//	<strict-mode directive, if the test starts with one>
//	<harness source>
//	<include files named in the test's frontmatter>
//	<test source>
//
// The directive must come first: a "use strict" that follows the harness is
// just an expression statement and would leave the test in sloppy mode.
//
// Tests flagged raw are passed through untouched.
package harness
