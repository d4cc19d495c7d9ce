package procexec

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteEchoHello(t *testing.T) {
	res, err := Execute(context.Background(), Options{Command: "echo hello"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Output)
	assert.False(t, res.Cancelled)
	assert.False(t, res.TimedOut)
}

func TestExecuteNonZeroExit(t *testing.T) {
	res, err := Execute(context.Background(), Options{Command: "exit 7"})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
}

func TestExecuteTimeout(t *testing.T) {
	res, err := Execute(context.Background(), Options{
		Command: "sleep 5",
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Equal(t, 124, res.ExitCode)
}

func TestExecuteCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := Execute(ctx, Options{Command: "sleep 5"})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 130, res.ExitCode)
}

func TestExecuteAlreadyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Execute(ctx, Options{Command: "echo unreachable"})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Equal(t, 130, res.ExitCode)
}

func TestExecuteStdinPiped(t *testing.T) {
	input := "from stdin"
	res, err := Execute(context.Background(), Options{
		Command: "cat",
		Stdin:   &input,
	})
	require.NoError(t, err)
	assert.Equal(t, "from stdin", res.Output)
}

func TestExecuteStripsANSIAndCollapsesNewlines(t *testing.T) {
	res, err := Execute(context.Background(), Options{
		Command: `printf 'a\033[31mb\033[0m\n\n\n\nc\n'`,
	})
	require.NoError(t, err)
	assert.NotContains(t, res.Output, "\x1b")
	assert.Equal(t, "ab\n\nc\n", res.Output)
}

func TestExecuteOnChunkCallback(t *testing.T) {
	var received []byte
	res, err := Execute(context.Background(), Options{
		Command: "echo streamed",
		OnChunk: func(b []byte) {
			received = append(received, b...)
		},
	})
	require.NoError(t, err)
	assert.Contains(t, string(received), "streamed")
	assert.Equal(t, "streamed\n", res.Output)
}

func TestExecuteTruncatesLargeOutputAndSpills(t *testing.T) {
	res, err := Execute(context.Background(), Options{
		Command: `seq 1 5000`,
	})
	require.NoError(t, err)
	require.True(t, res.Truncated)
	require.NotEmpty(t, res.SpillPath)
	assert.Contains(t, res.Output, "lines omitted")
	assert.Contains(t, res.Output, res.SpillPath)

	data, err := os.ReadFile(res.SpillPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "5000"))
	t.Cleanup(func() { _ = os.Remove(res.SpillPath) })
}

func TestExecuteWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	res, err := Execute(context.Background(), Options{
		Command: "pwd",
		Dir:     dir,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Output, dir)
}

func TestExecuteSpawnFailureReturnsExitCodeOne(t *testing.T) {
	// An invalid working directory forces a spawn failure.
	res, err := Execute(context.Background(), Options{
		Command: "echo hi",
		Dir:     "/nonexistent/definitely/not/here",
	})
	// cmd.Start() fails because the working directory doesn't exist; the
	// package surfaces this as an error alongside a Result carrying exit
	// code 1, matching Execute's early-return contract for pipe/spawn setup
	// failures.
	assert.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.ExitCode)
}

func TestStripANSIRemovesCSISequences(t *testing.T) {
	in := "\x1b[1;31mred\x1b[0m plain"
	out := stripANSI(in)
	assert.Equal(t, "red plain", out)
}

func TestSanitizeCollapsesNewlineRuns(t *testing.T) {
	out := sanitize("a\n\n\n\n\nb")
	assert.Equal(t, "a\n\nb", out)
}

func TestSanitizeStripsCarriageReturns(t *testing.T) {
	out := sanitize("a\r\nb\r\n")
	assert.Equal(t, "a\nb\n", out)
}

func TestRingBufferTrimsOverCap(t *testing.T) {
	r := &ringBuffer{}
	r.write(make([]byte, ringCapBytes+1024))
	data, dropped := r.snapshot()
	assert.LessOrEqual(t, len(data), ringTrimBytes)
	assert.Greater(t, dropped, int64(0))
}

func TestResolveExitCodePrecedence(t *testing.T) {
	assert.Equal(t, 0, resolveExitCode(nil, false, false))
	assert.Equal(t, 124, resolveExitCode(assertTimeoutErr{}, true, false))
	assert.Equal(t, 130, resolveExitCode(assertTimeoutErr{}, false, true))
	assert.Equal(t, 1, resolveExitCode(assertTimeoutErr{}, false, false))
}

// assertTimeoutErr simulates an error from a signal-killed process, whose
// ExitCode() reports -1 (Go's convention for "terminated by signal").
type assertTimeoutErr struct{}

func (assertTimeoutErr) Error() string  { return "signal: killed" }
func (assertTimeoutErr) ExitCode() int  { return -1 }
