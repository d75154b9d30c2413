package engine

import (
	"time"

	"github.com/roach88/t262/internal/verdict"
)

// Result is the outcome of one test.
type Result struct {
	Path     string         `json:"path"`
	Negative bool           `json:"negative,omitempty"`
	Status   verdict.Status `json:"status"`
	Reason   string         `json:"reason,omitempty"`
	Note     string         `json:"note,omitempty"` // exclusion reason for skipped tests
	Output   string         `json:"output,omitempty"`
	Duration time.Duration  `json:"duration_ns,omitempty"`
}

// Report summarizes a run. Results are in discovery order; ignored tests
// are counted but not listed.
type Report struct {
	ID          string    `json:"id"`
	Interpreter string    `json:"interpreter,omitempty"`
	Root        string    `json:"root,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Results     []Result  `json:"results"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	Skipped     int       `json:"skipped"`
	Ignored     int       `json:"ignored"`
	Total       int       `json:"total"`
}

func (r *Report) add(res Result) {
	switch res.Status {
	case verdict.StatusIgnored:
		r.Ignored++
		return
	case verdict.StatusPass:
		r.Passed++
	case verdict.StatusFail:
		r.Failed++
	case verdict.StatusSkipped:
		r.Skipped++
	}
	r.Total++
	r.Results = append(r.Results, res)
}

// Failures returns the failed results.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == verdict.StatusFail {
			out = append(out, res)
		}
	}
	return out
}
