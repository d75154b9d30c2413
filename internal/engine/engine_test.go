package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/t262/internal/harness"
	"github.com/roach88/t262/internal/interp"
	"github.com/roach88/t262/internal/suite"
	"github.com/roach88/t262/internal/testutil"
	"github.com/roach88/t262/internal/verdict"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeExecutor answers with canned output keyed on script content.
type fakeExecutor struct {
	mu      sync.Mutex
	scripts []string
	respond func(script string) (interp.Output, error)
}

func (f *fakeExecutor) Run(ctx context.Context, script string) (interp.Output, error) {
	f.mu.Lock()
	f.scripts = append(f.scripts, script)
	f.mu.Unlock()
	if f.respond == nil {
		return interp.Output{}, nil
	}
	return f.respond(script)
}

func (f *fakeExecutor) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scripts...)
}

// judge behaves like a conforming engine for the fixtures below.
func judge(script string) (interp.Output, error) {
	switch {
	case strings.Contains(script, "var x = ;"):
		return interp.Output{Text: "Uncaught SyntaxError: Unexpected token ;\n", ExitCode: 1}, nil
	case strings.Contains(script, "NOISY"):
		return interp.Output{Text: "NOISY\n"}, nil
	case strings.Contains(script, "SLOW"):
		return interp.Output{TimedOut: true, ExitCode: -1}, nil
	}
	return interp.Output{}, nil
}

func writeSuite(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
	return fs
}

func TestRun_MixedSuite(t *testing.T) {
	fs := writeSuite(t, map[string]string{
		"/suite/ch07/pass.js":                   "/* ok */\nx;\n",
		"/suite/ch07/neg.js":                    "/**\n * @negative\n */\nvar x = ;\n",
		"/suite/ch07/7.8/7.8.1/S7.8.1_A1_T2.js": "/* excluded */\nEXCLUDED;\n",
		"/suite/intl402/ch06/a.js":              "/* intl */\nINTL;\n",
		"/suite/ch08/noisy.js":                  "/* c */\nprint('NOISY');\n",
		"/suite/ch08/bad.js":                    "/*---\nnegative:\n  type: SyntaxError\n---*/\nx;\n",
		"/suite/ch08/neg-silent.js":             "/*---\nnegative:\n  phase: runtime\n  type: Test262Error\n---*/\nx;\n",
	})
	paths := []string{
		"/suite/ch07/pass.js",
		"/suite/ch07/neg.js",
		"/suite/ch07/7.8/7.8.1/S7.8.1_A1_T2.js",
		"/suite/intl402/ch06/a.js",
		"/suite/ch08/noisy.js",
		"/suite/ch08/bad.js",
		"/suite/ch08/neg-silent.js",
	}

	exec := &fakeExecutor{respond: judge}
	clock := testutil.NewDeterministicClock(time.Millisecond)
	eng := New(harness.New("H;\n"), suite.DefaultExclusions(), exec, NewFixedGenerator("run-1"),
		WithFs(fs),
		WithClock(clock.Now),
	)

	var seen []Result
	report, err := eng.Run(context.Background(), paths, func(r Result) {
		seen = append(seen, r)
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.ID)
	assert.Equal(t, testutil.Epoch, report.StartedAt)
	assert.True(t, report.FinishedAt.After(report.StartedAt))

	assert.Equal(t, 2, report.Passed)
	assert.Equal(t, 3, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Ignored)
	assert.Equal(t, 6, report.Total)

	require.Len(t, report.Results, 6)
	statuses := make(map[string]Result)
	for _, r := range report.Results {
		statuses[r.Path] = r
	}

	pass := statuses["/suite/ch07/pass.js"]
	assert.Equal(t, verdict.StatusPass, pass.Status)
	assert.Equal(t, time.Millisecond, pass.Duration)

	neg := statuses["/suite/ch07/neg.js"]
	assert.Equal(t, verdict.StatusPass, neg.Status)
	assert.True(t, neg.Negative)

	skipped := statuses["/suite/ch07/7.8/7.8.1/S7.8.1_A1_T2.js"]
	assert.Equal(t, verdict.StatusSkipped, skipped.Status)
	assert.Equal(t, verdict.ReasonNotFixed, skipped.Reason)
	assert.Equal(t, "RegExp", skipped.Note)

	noisy := statuses["/suite/ch08/noisy.js"]
	assert.Equal(t, verdict.StatusFail, noisy.Status)
	assert.Equal(t, verdict.ReasonUnexpectedOutput, noisy.Reason)
	assert.Equal(t, "NOISY\n", noisy.Output)

	bad := statuses["/suite/ch08/bad.js"]
	assert.Equal(t, verdict.StatusFail, bad.Status)
	assert.Contains(t, bad.Reason, "invalid test metadata")

	silent := statuses["/suite/ch08/neg-silent.js"]
	assert.Equal(t, verdict.StatusFail, silent.Status)
	assert.Equal(t, verdict.ReasonNoError, silent.Reason)

	// Excluded and ignored tests never reach the interpreter.
	for _, script := range exec.calls() {
		assert.NotContains(t, script, "EXCLUDED")
		assert.NotContains(t, script, "INTL")
	}
	assert.Len(t, exec.calls(), 4)

	// The callback sees every result, ignored ones included, in order.
	require.Len(t, seen, 7)
	for i, r := range seen {
		assert.Equal(t, paths[i], r.Path)
	}
	assert.Equal(t, verdict.StatusIgnored, seen[3].Status)

	assert.Len(t, report.Failures(), 3)
}

func TestRun_AssemblesWithHarness(t *testing.T) {
	src := "/*---\ndescription: strict\n---*/\n'use strict';\nx;\n"
	fs := writeSuite(t, map[string]string{"/suite/a.js": src})

	exec := &fakeExecutor{}
	eng := New(harness.New("H;\n"), nil, exec, NewFixedGenerator("run-1"), WithFs(fs))

	_, err := eng.Run(context.Background(), []string{"/suite/a.js"}, nil)
	require.NoError(t, err)

	require.Len(t, exec.calls(), 1)
	assert.Equal(t, "'use strict';\nH;\n"+src, exec.calls()[0])
}

func TestRun_IncludeErrorIsFailure(t *testing.T) {
	fs := writeSuite(t, map[string]string{
		"/suite/a.js": "/*---\nincludes: [missing.js]\n---*/\nx;\n",
		"/suite/b.js": "/* ok */\nx;\n",
	})

	exec := &fakeExecutor{}
	eng := New(harness.New(""), nil, exec, NewFixedGenerator("run-1"), WithFs(fs))

	report, err := eng.Run(context.Background(), []string{"/suite/a.js", "/suite/b.js"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Passed)
	assert.Contains(t, report.Results[0].Reason, "missing.js")
	assert.Len(t, exec.calls(), 1)
}

func TestRun_TimeoutIsFailure(t *testing.T) {
	fs := writeSuite(t, map[string]string{"/suite/slow.js": "/* c */\nSLOW;\n"})

	eng := New(harness.New(""), nil, &fakeExecutor{respond: judge}, NewFixedGenerator("run-1"), WithFs(fs))

	report, err := eng.Run(context.Background(), []string{"/suite/slow.js"}, nil)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, verdict.ReasonTimedOut, report.Results[0].Reason)
}

func TestRun_InterpreterStartAborts(t *testing.T) {
	fs := writeSuite(t, map[string]string{
		"/suite/a.js": "x;",
		"/suite/b.js": "y;",
	})

	exec := &fakeExecutor{respond: func(string) (interp.Output, error) {
		return interp.Output{}, fmt.Errorf("%w: d8: no such file", interp.ErrInterpreterStart)
	}}
	eng := New(harness.New(""), nil, exec, NewFixedGenerator("run-1"), WithFs(fs))

	report, err := eng.Run(context.Background(), []string{"/suite/a.js", "/suite/b.js"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, interp.ErrInterpreterStart)
	assert.Contains(t, err.Error(), "/suite/a.js")
	require.NotNil(t, report)
	assert.Empty(t, report.Results)
	assert.Len(t, exec.calls(), 1)
}

func TestRun_UnreadableFileAborts(t *testing.T) {
	eng := New(harness.New(""), nil, &fakeExecutor{}, NewFixedGenerator("run-1"), WithFs(afero.NewMemMapFs()))

	_, err := eng.Run(context.Background(), []string{"/suite/missing.js"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read test file")
}

func TestRun_CancelledContext(t *testing.T) {
	fs := writeSuite(t, map[string]string{"/suite/a.js": "x;"})
	exec := &fakeExecutor{}
	eng := New(harness.New(""), nil, exec, NewFixedGenerator("run-1"), WithFs(fs))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Run(ctx, []string{"/suite/a.js"}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.calls())
}

func TestRun_ParallelJobsKeepOrder(t *testing.T) {
	files := make(map[string]string)
	var paths []string
	for i := 0; i < 16; i++ {
		p := fmt.Sprintf("/suite/t%02d.js", i)
		files[p] = fmt.Sprintf("/* c */\nT%02d;\n", i)
		paths = append(paths, p)
	}
	fs := writeSuite(t, files)

	var running, peak atomic.Int32
	exec := &fakeExecutor{respond: func(string) (interp.Output, error) {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return interp.Output{}, nil
	}}

	eng := New(harness.New(""), nil, exec, NewFixedGenerator("run-1"), WithFs(fs), WithJobs(4))

	var callbacks atomic.Int32
	report, err := eng.Run(context.Background(), paths, func(Result) { callbacks.Add(1) })
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.Equal(t, int32(16), callbacks.Load())
	require.Len(t, report.Results, 16)
	for i, r := range report.Results {
		assert.Equal(t, paths[i], r.Path)
	}
}

func TestRun_Empty(t *testing.T) {
	eng := New(harness.New(""), nil, &fakeExecutor{}, NewFixedGenerator("run-1"))

	report, err := eng.Run(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, report.Results)
	assert.Equal(t, 0, report.Total)
}

func TestWithJobs_IgnoresNonPositive(t *testing.T) {
	eng := New(harness.New(""), nil, &fakeExecutor{}, NewFixedGenerator(), WithJobs(0))
	assert.Equal(t, DefaultJobs, eng.jobs)

	eng = New(harness.New(""), nil, &fakeExecutor{}, NewFixedGenerator(), WithJobs(3))
	assert.Equal(t, 3, eng.jobs)
}

func TestReport_Failures(t *testing.T) {
	r := &Report{}
	r.add(Result{Path: "a", Status: verdict.StatusPass})
	r.add(Result{Path: "b", Status: verdict.StatusFail})
	r.add(Result{Path: "c", Status: verdict.StatusIgnored})

	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 1, r.Ignored)
	require.Len(t, r.Failures(), 1)
	assert.Equal(t, "b", r.Failures()[0].Path)
}
