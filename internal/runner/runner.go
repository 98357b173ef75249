// Package runner executes the external processing tools.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ErrNonZeroExit is matched by every ExitError
var ErrNonZeroExit = errors.New("non-zero exit status")

// ExitError reports a command that ran to completion with a non-zero status
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Name, e.Code)
}

func (e *ExitError) Unwrap() error {
	return ErrNonZeroExit
}

// ExitCode maps the result of Run onto a process exit code
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// Command is a single external program invocation
type Command struct {
	Name string
	Args []string

	// Dir is the working directory; empty means the current one
	Dir string

	// Env is the full environment; nil means the environment of this process
	Env []string

	Stdout io.Writer
	Stderr io.Writer

	// LogFile, when set, also receives stdout and stderr of the command
	LogFile string
}

// New returns a command for argv, which must not be empty
func New(argv []string) (*Command, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errors.New("empty command")
	}
	return &Command{Name: argv[0], Args: argv[1:]}, nil
}

// String renders the command line for logs
func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Run starts the command and waits for it. Canceling ctx kills the process.
func (c *Command) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	stdout, stderr := orDiscard(c.Stdout), orDiscard(c.Stderr)
	if c.LogFile != "" {
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()

		stdout = io.MultiWriter(stdout, f)
		stderr = io.MultiWriter(stderr, f)
	}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s was canceled: %w", c.Name, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return &ExitError{Name: c.Name, Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("failed to run %s: %w", c.Name, err)
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
