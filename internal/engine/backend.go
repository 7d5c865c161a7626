package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cvmgrid/internal/model"
)

// Invocation is one engine process launch.
type Invocation struct {
	Program string
	Args    []string
}

func (i Invocation) String() string {
	return strings.Join(append([]string{i.Program}, i.Args...), " ")
}

// Backend runs the engine. Implementations must start at most one process
// per call and keep no state between calls.
type Backend interface {
	Run(ctx context.Context, inv Invocation, stdin []byte) ([]byte, error)
}

// ExecBackend runs the engine as a subprocess with stdout and stderr merged.
type ExecBackend struct {
	timeout time.Duration
}

// NewExecBackend creates an ExecBackend. A zero timeout waits for the
// engine indefinitely.
func NewExecBackend(timeout time.Duration) *ExecBackend {
	return &ExecBackend{timeout: timeout}
}

// maxTail bounds how much engine output is copied into an error.
const maxTail = 512

// Run writes stdin to the engine, waits for it to exit, and returns its output.
func (b *ExecBackend) Run(ctx context.Context, inv Invocation, stdin []byte) ([]byte, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	switch {
	case err == nil:
		return out.Bytes(), nil
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return nil, eris.Wrapf(model.ErrProtocol, "engine: %s timed out", inv.Program)
	case ctx.Err() != nil:
		return nil, eris.Wrapf(model.ErrProtocol, "engine: %s cancelled: %v", inv.Program, ctx.Err())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist), errors.Is(err, os.ErrPermission):
		return nil, eris.Wrapf(model.ErrProtocol, "engine: cannot run %s: %v", inv.Program, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, eris.Wrapf(model.ErrProtocol, "engine: %s exited with status %d: %s",
			inv.Program, exitErr.ExitCode(), tail(out.String()))
	}
	return nil, eris.Wrapf(model.ErrProtocol, "engine: run %s: %v", inv.Program, err)
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxTail {
		return "..." + s[len(s)-maxTail:]
	}
	return s
}
