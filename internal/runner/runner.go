// Package runner executes submitted code on the host by materializing it
// into the workspace and launching the configured interpreter as a direct
// child process. A run that completes is a success regardless of the exit
// code, the runner only reports an error when it could not produce an exit
// code at all.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"code-runner/internal/memory"
	"code-runner/internal/pid"
	"code-runner/internal/workspace"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// DefaultMaxOutputSize caps how much of each output stream is kept when no
// explicit limit is configured.
const DefaultMaxOutputSize = memory.Megabyte

// Request carries one execution through the engine. The ID is assigned by
// the transport layer and correlates every log line written for the run.
type Request struct {
	ID       string
	Code     string
	Filename string
	Language string
}

// Result is the complete outcome of one run. ReturnCode is a pointer since
// a completed run with exit code zero still reports it while a run that
// never produced a process does not. PeakMemory is telemetry only, zero on
// platforms without /proc.
type Result struct {
	Status          Status
	Stdout          string
	Stderr          string
	CommandExecuted []string
	ReturnCode      *int
	ErrorMessage    string
	TimedOut        bool
	Duration        time.Duration
	PeakMemory      memory.Memory
}

type Options struct {
	// ExecutionTimeout bounds the wall clock time of the child process. Zero
	// keeps the default of waiting however long the code takes.
	ExecutionTimeout time.Duration
	// CleanupFiles removes the materialized file once the run has finished
	// instead of leaving it behind for a later request to overwrite.
	CleanupFiles bool
	// MaxOutputSize caps how many bytes of stdout and stderr are kept per
	// stream. The child keeps running past the cap, the excess is discarded.
	MaxOutputSize memory.Memory
	// InterpreterOverrides swaps out the launch command of a supported
	// language, e.g. running python through "python3 -u" instead.
	InterpreterOverrides map[string][]string
}

// Engine runs code for every supported language against a single shared
// workspace. It is safe for concurrent use, each run only touches its own
// file and the operating system schedules the child processes.
type Engine struct {
	workspace    *workspace.Workspace
	interpreters map[string]Interpreter
	timeout      time.Duration
	cleanup      bool
	maxOutput    int64
}

func NewEngine(ws *workspace.Workspace, opts Options) *Engine {
	interpreters := make(map[string]Interpreter, len(Interpreters))

	for code, interpreter := range Interpreters {
		if override, ok := opts.InterpreterOverrides[code]; ok && len(override) > 0 {
			interpreter.Command = override
		}

		interpreters[code] = interpreter
	}

	maxOutput := opts.MaxOutputSize

	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputSize
	}

	return &Engine{
		workspace:    ws,
		interpreters: interpreters,
		timeout:      opts.ExecutionTimeout,
		cleanup:      opts.CleanupFiles,
		maxOutput:    maxOutput.Bytes(),
	}
}

// Run materializes the code into the workspace, launches the interpreter
// and waits for it to finish. The returned result always describes the
// outcome, Run never panics on request data and never returns without a
// result.
func (e *Engine) Run(ctx context.Context, req Request) *Result {
	interpreter, ok := e.interpreters[req.Language]

	if !ok {
		return &Result{
			Status:       StatusError,
			ErrorMessage: fmt.Sprintf("unsupported language: %s", req.Language),
		}
	}

	filePath, writeErr := e.workspace.Materialize(req.Filename, []byte(req.Code))

	if writeErr != nil {
		log.Error().Err(writeErr).
			Str("executionID", req.ID).
			Str("filename", req.Filename).
			Msg("failed to materialize code file")

		return &Result{
			Status:       StatusError,
			ErrorMessage: fmt.Sprintf("failed to write code to file: %v", writeErr),
		}
	}

	if e.cleanup {
		defer func() {
			if removeErr := e.workspace.Remove(req.Filename); removeErr != nil {
				log.Error().Err(removeErr).
					Str("executionID", req.ID).
					Str("filename", req.Filename).
					Msg("failed to clean up code file")
			}
		}()
	}

	commandLine := append(append([]string{}, interpreter.Command...), filePath)

	execCtx := ctx

	if e.timeout > 0 {
		var cancel context.CancelFunc

		execCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(execCtx, commandLine[0], commandLine[1:]...)
	cmd.Dir = e.workspace.Root()

	stdout := newCappedBuffer(e.maxOutput)
	stderr := newCappedBuffer(e.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	timeAtExecution := time.Now()

	if startErr := cmd.Start(); startErr != nil {
		log.Error().Err(startErr).
			Str("executionID", req.ID).
			Str("language", req.Language).
			Strs("command", commandLine).
			Msg("failed to start interpreter")

		return &Result{
			Status:          StatusError,
			CommandExecuted: commandLine,
			ErrorMessage:    fmt.Sprintf("failed to start %s: %v", commandLine[0], startErr),
		}
	}

	done := make(chan struct{})
	peakMemoryChan := pid.PeakMemory(done, cmd.Process.Pid)

	runErr := cmd.Wait()

	close(done)
	peakMemory := <-peakMemoryChan

	result := &Result{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		CommandExecuted: commandLine,
		Duration:        time.Since(timeAtExecution),
		PeakMemory:      peakMemory,
	}

	if runErr != nil {
		// We want to check the context error before anything else since the
		// error returned for a killed process is OS specific and must not be
		// mistaken for the child failing on its own.
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			result.Status = StatusError
			result.TimedOut = true
			result.ErrorMessage = fmt.Sprintf("execution timed out after %s", e.timeout)

			log.Warn().
				Str("executionID", req.ID).
				Str("language", req.Language).
				Dur("duration", result.Duration).
				Msg("execution timed out")

			return result
		}

		if errors.Is(execCtx.Err(), context.Canceled) {
			result.Status = StatusError
			result.ErrorMessage = "execution canceled"

			return result
		}
	}

	var exitErr *exec.ExitError

	switch {
	case runErr == nil:
		returnCode := 0
		result.Status = StatusSuccess
		result.ReturnCode = &returnCode
	case errors.As(runErr, &exitErr):
		// A non-zero exit is the outcome of the submitted code, not a runner
		// failure, the run itself still succeeded.
		returnCode := exitErr.ExitCode()
		result.Status = StatusSuccess
		result.ReturnCode = &returnCode
	default:
		// The process started but waiting on it failed, e.g. an error while
		// draining its output pipes.
		result.Status = StatusError
		result.ErrorMessage = fmt.Sprintf("failed to run %s: %v", commandLine[0], runErr)

		log.Error().Err(runErr).
			Str("executionID", req.ID).
			Str("language", req.Language).
			Strs("command", commandLine).
			Msg("failed waiting on interpreter")

		return result
	}

	if stdout.Truncated() || stderr.Truncated() {
		log.Warn().
			Str("executionID", req.ID).
			Int64("maxOutputBytes", e.maxOutput).
			Msg("captured output truncated")
	}

	log.Info().
		Str("executionID", req.ID).
		Str("language", req.Language).
		Str("filename", req.Filename).
		Int("returnCode", *result.ReturnCode).
		Dur("duration", result.Duration).
		Str("peakMemory", result.PeakMemory.String()).
		Msg("execution finished")

	return result
}

// cappedBuffer keeps at most max bytes and silently discards the rest, a
// chatty child process can not balloon the response payload or the memory
// held per request. Writes never fail so the child is drained until it
// exits.
type cappedBuffer struct {
	buf       bytes.Buffer
	max       int64
	truncated bool
}

func newCappedBuffer(max int64) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)

	remaining := b.max - int64(b.buf.Len())

	if remaining <= 0 {
		b.truncated = true
		return n, nil
	}

	if int64(n) > remaining {
		b.truncated = true
		p = p[:remaining]
	}

	b.buf.Write(p)

	return n, nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}

func (b *cappedBuffer) Truncated() bool {
	return b.truncated
}
