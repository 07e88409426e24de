package download

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
)

// DefaultCommand is the downloader invoked when none is configured.
const DefaultCommand = "python3 -m deemix"

// BitrateLossless is the quality flag value that requests FLAC.
const BitrateLossless = "FLAC"

// Invocation is one call of the external downloader.
type Invocation struct {
	URL     string
	Dest    string
	Bitrate string
}

// Args returns the downloader arguments for the invocation.
func (inv Invocation) Args() []string {
	return []string{"--bitrate", inv.Bitrate, "--path", inv.Dest, inv.URL}
}

// Runner runs the external downloader to completion.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// ExitError is returned when the downloader exits with a non-zero status.
// Output holds everything the process wrote to stdout and stderr.
type ExitError struct {
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	tail := lastLines(e.Output, 3)
	if tail == "" {
		return fmt.Sprintf("downloader exited with status %d", e.Code)
	}
	return fmt.Sprintf("downloader exited with status %d: %s", e.Code, tail)
}

// CommandRunner runs a downloader command line such as "python3 -m deemix".
type CommandRunner struct {
	name string
	args []string
}

// NewCommandRunner parses command with shell quoting rules. An empty
// command means DefaultCommand.
func NewCommandRunner(command string) (*CommandRunner, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	argv, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing downloader command %q", command)
	}
	if len(argv) == 0 {
		return nil, errors.Newf("empty downloader command %q", command)
	}
	return &CommandRunner{name: argv[0], args: argv[1:]}, nil
}

// String returns the command line without invocation arguments.
func (r *CommandRunner) String() string {
	return shellquote.Join(append([]string{r.name}, r.args...)...)
}

// Run blocks until the downloader exits.
func (r *CommandRunner) Run(ctx context.Context, inv Invocation) error {
	args := append(append([]string{}, r.args...), inv.Args()...)
	cmd := exec.CommandContext(ctx, r.name, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode(), Output: out.String()}
		}
		return errors.Wrapf(err, "running %s", r.name)
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, " | ")
}
