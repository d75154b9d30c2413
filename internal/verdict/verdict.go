// Package verdict decides whether an interpreter run passed.
//
// The interpreter's exit status is not consulted. A test that should succeed
// must print nothing; a negative test must print an error report that an
// engine emits for uncaught exceptions or parse failures.
package verdict

import (
	"strings"

	"github.com/roach88/t262/internal/interp"
)

// Status is the outcome of one test.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped" // on the exclusion list
	StatusIgnored Status = "ignored" // outside the tested subset, never reported
)

// Failure reasons.
const (
	ReasonNoError          = "failed to raise Error"
	ReasonUnexpectedOutput = "unexpected output"
	ReasonTimedOut         = "timed out"
	ReasonNotFixed         = "NOT FIXED TEST"
)

// errorMarkers are the substrings that show the interpreter reported an error.
var errorMarkers = []string{"Uncaught ", "ParserError"}

// Verdict is the classified result of a run.
type Verdict struct {
	Status Status
	Reason string
	Output string
}

// Failed reports whether v counts as a failure.
func (v Verdict) Failed() bool {
	return v.Status == StatusFail
}

// Classify maps interpreter output to a verdict.
func Classify(negative bool, out interp.Output) Verdict {
	if out.TimedOut {
		return Verdict{Status: StatusFail, Reason: ReasonTimedOut, Output: out.Text}
	}

	if negative {
		if out.Text == "" || !RaisedError(out.Text) {
			return Verdict{Status: StatusFail, Reason: ReasonNoError, Output: out.Text}
		}
		return Verdict{Status: StatusPass, Output: out.Text}
	}

	if len(out.Text) > 0 {
		return Verdict{Status: StatusFail, Reason: ReasonUnexpectedOutput, Output: out.Text}
	}
	return Verdict{Status: StatusPass}
}

// RaisedError reports whether text carries one of the error markers.
func RaisedError(text string) bool {
	for _, m := range errorMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
