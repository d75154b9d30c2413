// Package engine drives a set of test262 tests through an interpreter.
//
// For each discovered path the engine:
//
//  1. Skips it when it is on the exclusion list, reporting NOT FIXED TEST.
//  2. Drops it silently when it belongs to the intl402 subtree.
//  3. Parses the file and assembles the script with the harness.
//  4. Hands the script to an Executor and classifies the output.
//
// Tests run one at a time unless WithJobs raises the limit. Each
// interpreter invocation writes its own scratch file, so concurrent
// invocations never share state on disk.
//
// A run aborts only on errors that would repeat for every test: the
// interpreter cannot be started, a test file cannot be read, or the
// context is cancelled. Metadata and include problems become failed
// results and the run continues.
//
// Results are delivered to the caller's callback as they complete and
// collected into a Report in discovery order.
package engine
