// Package interp runs an external JavaScript interpreter on one script.
package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/spf13/afero"
	"mvdan.cc/sh/v3/shell"
)

// ErrInterpreterStart is returned when the interpreter process could not be
// started at all. Every later test would fail the same way, so callers
// should stop the run.
var ErrInterpreterStart = errors.New("interpreter could not be started")

// scratchPattern names the per-invocation script files.
const scratchPattern = "t262-*.js"

// waitDelay bounds how long Wait blocks on output pipes after the process
// is killed, in case it left children holding them open.
const waitDelay = 2 * time.Second

// Output is what one interpreter invocation produced.
type Output struct {
	// Text is stdout and stderr, interleaved as written.
	Text string

	// ExitCode is -1 when the process was killed.
	ExitCode int

	TimedOut bool
	Duration time.Duration

	// ScratchPath is set when the script file was kept.
	ScratchPath string
}

// Interpreter invokes an engine binary with a script path as its last argument.
type Interpreter struct {
	// Command is a shell-style command line, e.g. "d8 --harmony".
	Command string

	// ScratchDir holds the script files. Empty means the OS temp dir.
	ScratchDir string

	// KeepScratch leaves script files on disk after the run.
	KeepScratch bool

	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration

	// Fs is where scratch files are written. It must be backed by the OS
	// filesystem since the interpreter reads the file by path.
	Fs afero.Fs

	argv []string
}

// New parses command and returns an Interpreter for it.
func New(command string) (*Interpreter, error) {
	argv, err := shell.Fields(command, nil)
	if err != nil {
		return nil, fmt.Errorf("parse interpreter command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("interpreter command is empty")
	}
	return &Interpreter{
		Command: command,
		Fs:      afero.NewOsFs(),
		argv:    argv,
	}, nil
}

// Argv returns the parsed command line without the script argument.
func (it *Interpreter) Argv() []string {
	return append([]string(nil), it.argv...)
}

// Run writes script to a fresh scratch file and runs the interpreter on it.
// A non-zero exit status is not an error; only the output matters.
func (it *Interpreter) Run(ctx context.Context, script string) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	argv := it.argv
	if len(argv) == 0 {
		parsed, err := New(it.Command)
		if err != nil {
			return Output{}, err
		}
		argv = parsed.argv
	}

	fs := it.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	path, err := writeScratch(fs, it.ScratchDir, script)
	if err != nil {
		return Output{}, err
	}
	if !it.KeepScratch {
		defer fs.Remove(path)
	}

	runCtx := ctx
	if it.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, it.Timeout)
		defer cancel()
	}

	args := append(argv[1:len(argv):len(argv)], path)
	cmd := exec.CommandContext(runCtx, argv[0], args...)
	cmd.WaitDelay = waitDelay

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, ctxErr
		}
		return Output{}, fmt.Errorf("%w: %s: %v", ErrInterpreterStart, argv[0], err)
	}
	waitErr := cmd.Wait()

	out := Output{
		Text:     buf.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if it.KeepScratch {
		out.ScratchPath = path
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		out.TimedOut = true
		return out, nil
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
		return out, fmt.Errorf("wait for interpreter: %w", waitErr)
	}
	return out, nil
}

func writeScratch(fs afero.Fs, dir, script string) (string, error) {
	f, err := afero.TempFile(fs, dir, scratchPattern)
	if err != nil {
		return "", fmt.Errorf("create scratch file: %w", err)
	}
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		fs.Remove(f.Name())
		return "", fmt.Errorf("write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(f.Name())
		return "", fmt.Errorf("close scratch file: %w", err)
	}
	return f.Name(), nil
}
