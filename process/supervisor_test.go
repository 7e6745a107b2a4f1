package process

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// syscallKillProbe reports whether a pid still exists, via signal 0.
func syscallKillProbe(pid int) error {
	return syscall.Kill(pid, 0)
}

func TestLaunchRedirectsOutputToSink(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))
	sink := filepath.Join(t.TempDir(), "out.log")

	h, err := sup.Launch("echo", "sh", []string{"-c", "echo hello; echo oops >&2"}, sink)
	require.NoError(t, err)
	require.Positive(t, h.Pid())

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(sink)
		return err == nil && string(data) == "hello\noops\n"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestLaunchDiscardSink(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))

	h, err := sup.Launch("echo", "sh", []string{"-c", "echo dropped"}, "")
	require.NoError(t, err)
	require.Empty(t, h.LogPath)
}

func TestLaunchMissingBinary(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))

	_, err := sup.Launch("nope", "definitely-not-a-binary-7f2a", nil, "")
	require.Error(t, err)
	require.Empty(t, sup.Handles())
}

func TestRunFailsOnNonZeroExit(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))

	err := sup.Run(context.Background(), "failing step", "sh", []string{"-c", "exit 3"}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing step")
}

func TestRunAppendsToSink(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))
	sink := filepath.Join(t.TempDir(), "setup.log")

	require.NoError(t, sup.Run(context.Background(), "a", "sh", []string{"-c", "echo one"}, sink))
	require.NoError(t, sup.Run(context.Background(), "b", "sh", []string{"-c", "echo two"}, sink))

	data, err := os.ReadFile(sink)
	require.NoError(t, err)
	require.Equal(t, "one\ntwo\n", string(data))
}

func TestTerminateAllKillsTrackedProcesses(t *testing.T) {
	sup := NewSupervisor(zaptest.NewLogger(t))

	h, err := sup.Launch("sleeper", "sleep", []string{"60"}, "")
	require.NoError(t, err)

	sup.TerminateAll()

	require.Eventually(t, func() bool {
		// Signal 0 probes for existence without affecting the process.
		return syscallKillProbe(h.Pid()) != nil
	}, 5*time.Second, 50*time.Millisecond)
}

func TestTerminateByNameNoMatchesIsNotAnError(t *testing.T) {
	n, err := TerminateByName(zaptest.NewLogger(t), "definitely-not-a-process-7f2a")
	require.NoError(t, err)
	require.Zero(t, n)
}
