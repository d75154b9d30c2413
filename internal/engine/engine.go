package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/t262/internal/harness"
	"github.com/roach88/t262/internal/interp"
	"github.com/roach88/t262/internal/suite"
	"github.com/roach88/t262/internal/verdict"
)

// Executor runs one assembled script. Implemented by *interp.Interpreter.
type Executor interface {
	Run(ctx context.Context, script string) (interp.Output, error)
}

// DefaultJobs runs tests one at a time, in discovery order.
const DefaultJobs = 1

// Engine drives a set of tests through the interpreter.
//
// Thread-safety: Run may be called concurrently; the engine holds no
// per-run state.
type Engine struct {
	harness    *harness.Harness
	exclusions *suite.ExclusionList
	exec       Executor
	ids        RunIDGenerator

	fs     afero.Fs
	jobs   int
	logger logrus.FieldLogger
	now    func() time.Time
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithJobs bounds how many tests run at once. Values below 1 are ignored.
func WithJobs(jobs int) EngineOption {
	return func(e *Engine) {
		if jobs >= 1 {
			e.jobs = jobs
		}
	}
}

// WithLogger sets the logger for per-test diagnostics.
func WithLogger(logger logrus.FieldLogger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFs sets the filesystem tests are read from.
func WithFs(fs afero.Fs) EngineOption {
	return func(e *Engine) {
		e.fs = fs
	}
}

// WithClock sets the time source used for report timestamps and durations.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine. exclusions may be nil.
func New(
	h *harness.Harness,
	exclusions *suite.ExclusionList,
	exec Executor,
	ids RunIDGenerator,
	opts ...EngineOption,
) *Engine {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		harness:    h,
		exclusions: exclusions,
		exec:       exec,
		ids:        ids,
		fs:         afero.NewOsFs(),
		jobs:       DefaultJobs,
		logger:     discard,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run executes the tests at paths and returns the report.
//
// onResult, if non-nil, is called once per result as tests finish. Calls
// are serialized; with the default single job they arrive in path order.
//
// A run stops early only when the interpreter cannot be started, a test
// file cannot be read, or ctx is cancelled. Every other problem is recorded
// as a failed result.
func (e *Engine) Run(ctx context.Context, paths []string, onResult func(Result)) (*Report, error) {
	report := &Report{
		ID:        e.ids.Generate(),
		StartedAt: e.now(),
		Results:   []Result{},
	}
	results := make([]Result, len(paths))
	done := make([]bool, len(paths))

	var mu sync.Mutex
	emit := func(i int, r Result) {
		mu.Lock()
		defer mu.Unlock()
		results[i] = r
		done[i] = true
		if onResult != nil {
			onResult(r)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs)

	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := e.runOne(gctx, path)
			if err != nil {
				return err
			}
			emit(i, r)
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	for i := range results {
		if done[i] {
			report.add(results[i])
		}
	}
	report.FinishedAt = e.now()

	return report, err
}

// runOne handles a single test path.
func (e *Engine) runOne(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	if ex, ok := e.exclusions.Lookup(path); ok {
		return Result{
			Path:   path,
			Status: verdict.StatusSkipped,
			Reason: verdict.ReasonNotFixed,
			Note:   ex.Reason,
		}, nil
	}
	if suite.Ignored(path) {
		return Result{Path: path, Status: verdict.StatusIgnored}, nil
	}

	log := e.logger.WithField("path", path)
	log.Debug("start test")
	start := e.now()

	tf, err := suite.ParseFile(e.fs, path)
	if err != nil {
		if errors.Is(err, suite.ErrInvalidMetadata) {
			log.WithError(err).Warn("Invalid test metadata")
			return Result{Path: path, Status: verdict.StatusFail, Reason: err.Error()}, nil
		}
		return Result{}, err
	}

	script, err := e.harness.Assemble(tf)
	if err != nil {
		log.WithError(err).Warn("Cannot assemble test")
		return Result{Path: path, Negative: tf.Negative, Status: verdict.StatusFail, Reason: err.Error()}, nil
	}

	out, err := e.exec.Run(ctx, script)
	if err != nil {
		return Result{}, fmt.Errorf("run %s: %w", path, err)
	}

	v := verdict.Classify(tf.Negative, out)
	if out.TimedOut {
		log.Warn("Interpreter timed out")
	}

	r := Result{
		Path:     path,
		Negative: tf.Negative,
		Status:   v.Status,
		Reason:   v.Reason,
		Output:   v.Output,
		Duration: e.now().Sub(start),
	}
	log.WithFields(logrus.Fields{
		"negative": tf.Negative,
		"status":   r.Status,
		"duration": r.Duration,
	}).Debug("finish test")

	return r, nil
}
