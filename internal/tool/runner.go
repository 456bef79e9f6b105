package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/reconthing/reconthing/internal/model"
)

// StderrFunc receives every line the process writes to stderr.
type StderrFunc func(ctx context.Context, line string)

type Command struct {
	Path    string
	Args    []string
	Env     []string
	Timeout time.Duration
}

type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  *bytes.Buffer
	Err     error
}

// Runner executes a command to completion. The zero value is usable and
// logs stderr at debug level.
type Runner struct {
	Stderr StderrFunc
}

// Run resolves the binary on $PATH, feeds stdin to it and waits for it to
// exit. A binary which can't be found yields model.ErrToolUnavailable
// without starting anything; a non-zero exit is an *exec.ExitError.
func (r Runner) Run(ctx context.Context, proto Command, stdin io.Reader) Result {
	res := Result{
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
	}

	path, err := exec.LookPath(proto.Path)
	if err != nil {
		res.Err = fmt.Errorf("%w: %s: %w", model.ErrToolUnavailable, proto.Path, err)
		return res
	}

	if proto.Timeout == 0 {
		slog.WarnContext(ctx, "command has no timeout", "path", proto.Path)
	} else {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, res.Args...)
	if len(proto.Env) > 0 {
		cmd.Env = append(os.Environ(), proto.Env...)
	}
	cmd.Stdin = stdin
	cmd.WaitDelay = time.Second

	stderrFunc := r.Stderr
	if stderrFunc == nil {
		stderrFunc = debugStderr
	}
	stderr := &lineWriter{ctx: ctx, fn: stderrFunc}
	cmd.Stderr = stderr

	var buf bytes.Buffer
	res.Stdout = &buf
	cmd.Stdout = &buf

	res.Started = time.Now().UTC()
	if err := cmd.Start(); err != nil {
		res.Stopped = time.Now().UTC()
		res.Err = err
		return res
	}

	res.Err = cmd.Wait()
	stderr.flush()
	res.Stopped = time.Now().UTC()
	res.State = cmd.ProcessState
	if res.Err != nil && ctx.Err() != nil {
		res.Err = fmt.Errorf("%w: %w", ctx.Err(), res.Err)
	}
	return res
}

// lineWriter calls fn for every complete line written to it.
type lineWriter struct {
	ctx context.Context
	fn  StderrFunc
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.fn(w.ctx, string(bytes.TrimSuffix(w.buf[:i], []byte("\r"))))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.fn(w.ctx, string(w.buf))
		w.buf = nil
	}
}

func debugStderr(ctx context.Context, line string) {
	slog.DebugContext(ctx, "stderr", "line", line)
}
