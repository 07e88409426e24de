package download

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandRunner(t *testing.T) {
	r, err := NewCommandRunner("")
	require.NoError(t, err)
	assert.Equal(t, "python3", r.name)
	assert.Equal(t, []string{"-m", "deemix"}, r.args)

	r, err = NewCommandRunner(`"/opt/deemix env/bin/deemix" --portable`)
	require.NoError(t, err)
	assert.Equal(t, "/opt/deemix env/bin/deemix", r.name)
	assert.Equal(t, []string{"--portable"}, r.args)

	_, err = NewCommandRunner(`python3 -m "deemix`)
	assert.Error(t, err)
}

func TestInvocationArgs(t *testing.T) {
	inv := Invocation{URL: "https://www.deezer.com/track/1", Dest: "/music/flac", Bitrate: "FLAC"}
	assert.Equal(t, []string{"--bitrate", "FLAC", "--path", "/music/flac", "https://www.deezer.com/track/1"}, inv.Args())
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	path := filepath.Join(t.TempDir(), "fake-deemix")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestCommandRunner_Run(t *testing.T) {
	ok := writeScript(t, `echo "$@"`)
	r, err := NewCommandRunner(ok)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background(), Invocation{URL: "u", Dest: "d", Bitrate: "320"}))

	failing := writeScript(t, `echo "Track not found at desired bitrate. (wrongBitrate)" >&2; exit 3`)
	r, err = NewCommandRunner(failing)
	require.NoError(t, err)

	err = r.Run(context.Background(), Invocation{URL: "u", Dest: "d", Bitrate: "FLAC"})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Output, "wrongBitrate")
	assert.Equal(t, FailureQualityUnavailable, ClassifyFailure(err))
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureOther},
		{"signature in output", &ExitError{Code: 1, Output: "ERROR: WRONGBITRATE"}, FailureQualityUnavailable},
		{"long form", &ExitError{Code: 1, Output: "Track not found at desired bitrate."}, FailureQualityUnavailable},
		{"other exit", &ExitError{Code: 1, Output: "Track not available"}, FailureOther},
		{"wrapped", errors.Wrap(&ExitError{Code: 1, Output: "wrongBitrate"}, "album"), FailureQualityUnavailable},
		{"plain error", errors.New("exec: not found"), FailureOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyFailure(tt.err))
		})
	}
}

func TestExitErrorKeepsTail(t *testing.T) {
	err := &ExitError{Code: 1, Output: "a\nb\nc\nd\n"}
	assert.Equal(t, "downloader exited with status 1: b | c | d", err.Error())
	assert.Equal(t, "downloader exited with status 9", (&ExitError{Code: 9}).Error())
}
