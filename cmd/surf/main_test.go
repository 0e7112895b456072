package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripGlobalFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantRest    []string
		wantSession string
		wantHeaded  bool
		wantErr     bool
	}{
		{
			name:     "no flags",
			args:     []string{"open", "https://example.com"},
			wantRest: []string{"open", "https://example.com"},
		},
		{
			name:        "session flag",
			args:        []string{"open", "https://example.com", "--session", "research"},
			wantRest:    []string{"open", "https://example.com"},
			wantSession: "research",
		},
		{
			name:        "session flag with equals",
			args:        []string{"--session=research", "close"},
			wantRest:    []string{"close"},
			wantSession: "research",
		},
		{
			name:       "headed flag",
			args:       []string{"open", "https://example.com", "--headed"},
			wantRest:   []string{"open", "https://example.com"},
			wantHeaded: true,
		},
		{
			name:        "flags before command",
			args:        []string{"--session", "s1", "--headed", "open", "https://example.com"},
			wantRest:    []string{"open", "https://example.com"},
			wantSession: "s1",
			wantHeaded:  true,
		},
		{
			name:     "empty",
			args:     nil,
			wantRest: []string{},
		},
		{
			name:    "trailing session flag without value",
			args:    []string{"close", "--session"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, sessionName, headed, err := stripGlobalFlags(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRest, rest)
			assert.Equal(t, tt.wantSession, sessionName)
			assert.Equal(t, tt.wantHeaded, headed)
		})
	}
}

func TestRun_SessionFlagWithoutValue(t *testing.T) {
	// A typo'd trailing --session must not silently operate on the
	// default session.
	code, _, stderr := runForTest(t, "close", "--session")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "--session requires a value")
	assert.Contains(t, stderr, "Usage: surf")
}

func runForTest(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TMPDIR", t.TempDir())

	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_BareInvocationPrintsUsageAndExitsZero(t *testing.T) {
	code, stdout, _ := runForTest(t)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Usage: surf")
}

func TestRun_Help(t *testing.T) {
	for _, cmd := range []string{"help", "--help", "-h"} {
		code, stdout, _ := runForTest(t, cmd)
		assert.Equal(t, 0, code)
		assert.Contains(t, stdout, "Usage: surf")
	}
}

func TestRun_UnknownCommandExitsNonZero(t *testing.T) {
	code, _, stderr := runForTest(t, "bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
	assert.Contains(t, stderr, "Usage: surf")
}

func TestRun_MissingPositionalArgument(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"open without url", []string{"open"}},
		{"connect without url", []string{"connect"}},
		{"save without domain", []string{"save"}},
		{"exec without code", []string{"exec"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runForTest(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, "Usage: surf")
		})
	}
}

func TestRun_ConnectCommandsWithoutSessionRecord(t *testing.T) {
	// Commands that attach must fail with a remediation hint when no
	// session record exists, without reaching for a browser.
	for _, cmd := range []string{"snapshot", "screenshot"} {
		t.Run(cmd, func(t *testing.T) {
			code, _, stderr := runForTest(t, cmd, "--session", "missing")
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, "surf open")
		})
	}
}

func TestRun_CloseWithoutSessionRecord(t *testing.T) {
	code, _, stderr := runForTest(t, "close", "--session", "missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "no session named")
}
