package bridge

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript writes a shell script that the test runs with "sh".
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "helper.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func newBridge(script string, interpreters ...string) *Subprocess {
	if len(interpreters) == 0 {
		interpreters = []string{"sh"}
	}
	return NewSubprocess(Config{Script: script, Interpreters: interpreters, Timeout: 2 * time.Second}, nil)
}

func TestSubprocess_Success(t *testing.T) {
	script := writeScript(t, `printf '{"status":"success","answer":"notebook %s says %s"}' "$1" "$2"`)

	insight, ok := newBridge(script).Query(context.Background(), "nb-1", "flood cover")
	require.True(t, ok)
	assert.Equal(t, "notebook nb-1 says flood cover", insight)
}

func TestSubprocess_NonSuccessStatus(t *testing.T) {
	script := writeScript(t, `echo '{"status":"error","error":"auth expired"}'`)

	insight, ok := newBridge(script).Query(context.Background(), "nb", "q")
	assert.False(t, ok)
	assert.Empty(t, insight)
}

func TestSubprocess_NonZeroExit(t *testing.T) {
	script := writeScript(t, `echo '{"status":"success","answer":"x"}'; echo oops >&2; exit 3`)

	_, ok := newBridge(script).Query(context.Background(), "nb", "q")
	assert.False(t, ok)
}

func TestSubprocess_UnparseableOutput(t *testing.T) {
	script := writeScript(t, `echo 'Traceback: module not found'`)

	_, err := newBridge(script).Run(context.Background(), "nb", "q")
	assert.ErrorIs(t, err, ErrBadOutput)
}

func TestSubprocess_EmptyAnswer(t *testing.T) {
	script := writeScript(t, `echo '{"status":"success","answer":"  "}'`)

	_, ok := newBridge(script).Query(context.Background(), "nb", "q")
	assert.False(t, ok)
}

func TestSubprocess_Timeout(t *testing.T) {
	script := writeScript(t, "exec sleep 30\n")
	b := NewSubprocess(Config{Script: script, Interpreters: []string{"sh"}, Timeout: 100 * time.Millisecond}, nil)

	start := time.Now()
	_, err := b.Run(context.Background(), "nb", "q")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	insight, ok := b.Query(context.Background(), "nb", "q")
	assert.False(t, ok)
	assert.Empty(t, insight)
}

func TestSubprocess_FallsBackWhenInterpreterMissing(t *testing.T) {
	script := writeScript(t, `echo '{"status":"success","answer":"from fallback"}'`)

	insight, ok := newBridge(script, "definitely-not-an-interpreter-xyz", "sh").Query(context.Background(), "nb", "q")
	require.True(t, ok)
	assert.Equal(t, "from fallback", insight)
}

func TestSubprocess_NoFallbackAfterStartedFailure(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "second-ran")
	script := writeScript(t, `exit 1`)
	// The second interpreter would create the marker if it were ever invoked.
	second := writeScript(t, "touch "+marker+"\n")

	_, ok := newBridge(script, "sh", second).Query(context.Background(), "nb", "q")
	assert.False(t, ok)
	assert.NoFileExists(t, marker)
}

func TestSubprocess_AllInterpretersMissing(t *testing.T) {
	_, err := newBridge("bridge.py", "missing-one-xyz", "missing-two-xyz").Run(context.Background(), "nb", "q")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNoop(t *testing.T) {
	insight, ok := Noop{}.Query(context.Background(), "nb", "q")
	assert.False(t, ok)
	assert.Empty(t, insight)
}
