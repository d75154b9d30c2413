// Package suite finds test262 test files on disk and parses them.
//
// Two metadata layouts are understood. The older one is a plain leading
// block comment whose text carries tags such as @negative:
//
//	/**
//	 * @path ch07/7.8/S7.8_A1.js
//	 * @negative
//	 */
//
// The newer one is a YAML frontmatter block:
//
//	/*---
//	negative:
//	  phase: parse
//	  type: SyntaxError
//	flags: [onlyStrict]
//	---*/
//
// Either way the text after the comment is the test body. A strict-mode
// directive at the start of the body is recorded so that it can be hoisted
// ahead of the harness when the script is assembled.
//
// # Exclusions
//
// ExclusionList holds tests that are known not to pass and must never be
// executed. Entries are path suffixes relative to the suite root, so the
// same list works regardless of where the suite is checked out.
package suite
