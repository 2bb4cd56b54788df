package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"type": "Point"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeSchema, "schema does not compile", map[string]int{"line": 3})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
	assert.Equal(t, "schema does not compile", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeValue, "value does not load", "ignored"))
	assert.Contains(t, buf.String(), "Error [E005]: value does not load")
	assert.NotContains(t, buf.String(), "Details:", "details only in verbose mode")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(ErrCodeValue, "value does not load", "line 3"))
	assert.Contains(t, buf.String(), "Details: line 3")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	cause := errors.New("no such file")
	err := formatter.Fail(ExitCommandError, ErrCodeNotFound, "read value", cause)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, buf.String(), "Error [E002]: read value: no such file")

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.True(t, exitErr.Reported)
	assert.False(t, NewExitError(ExitFailure, "unreported").Reported)
}

func TestOutputFormatter_PassedFailed(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.Passed("%s (%s)", "Point", "record")
	formatter.Failed("%s: %s", "Shape", "boom")
	assert.Contains(t, buf.String(), "✓ Point (record)\n")
	assert.Contains(t, buf.String(), "✗ Shape: boom\n")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			errBuf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    buf,
				ErrWriter: errBuf,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Loading %s", "shapes.cue")

			assert.Empty(t, buf.String(), "diagnostics never reach stdout")
			if tt.wantLog {
				assert.Contains(t, errBuf.String(), "Loading shapes.cue")
			} else {
				assert.Empty(t, errBuf.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "bad"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitError_Message(t *testing.T) {
	assert.Equal(t, "bad", NewExitError(ExitFailure, "bad").Error())
	assert.Equal(t, "bad: cause", WrapExitError(ExitFailure, "bad", errors.New("cause")).Error())
}
