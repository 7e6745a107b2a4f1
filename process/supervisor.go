// Package process launches and tracks the external client processes making up
// the devnet.
package process

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	gops "github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// Handle is a launched background process and its output sink.
type Handle struct {
	// Name is the short label the process was launched under.
	Name string
	// LogPath is the file both stdout and stderr are redirected to, empty
	// when output is discarded.
	LogPath string

	cmd *exec.Cmd
}

// Pid returns the OS process id.
func (h *Handle) Pid() int { return h.cmd.Process.Pid }

// Supervisor launches external programs and keeps handles to everything it
// started so teardown can kill by identity instead of by name.
type Supervisor struct {
	logger *zap.Logger

	mu      sync.Mutex
	handles []*Handle
}

func NewSupervisor(logger *zap.Logger) *Supervisor {
	return &Supervisor{logger: logger.With(zap.String("component", "supervisor"))}
}

// openSink opens the output file for a process, or /dev/null semantics when
// the path is empty.
func openSink(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log sink %s: %w", path, err)
	}
	return f, nil
}

// Launch starts a background process with stdout and stderr redirected to the
// sink path. It returns as soon as the process exists; the process's eventual
// exit is not observed, failures after launch surface only in the log file.
func (s *Supervisor) Launch(name, bin string, args []string, sinkPath string) (*Handle, error) {
	sink, err := openSink(sinkPath)
	if err != nil {
		return nil, err
	}
	// The child holds its own descriptor after Start; ours is closed below.
	defer sink.Close()

	cmd := exec.Command(bin, args...)
	cmd.Stdout = sink
	cmd.Stderr = sink

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	h := &Handle{Name: name, LogPath: sinkPath, cmd: cmd}
	s.mu.Lock()
	s.handles = append(s.handles, h)
	s.mu.Unlock()

	s.logger.Info("launched process",
		zap.String("name", name),
		zap.Int("pid", h.Pid()),
		zap.String("log", sinkPath),
	)

	// Reap the child when it exits so killed processes do not linger as
	// zombies for the lifetime of the orchestrator.
	go func() { _ = cmd.Wait() }()

	return h, nil
}

// Run executes a program synchronously, appending its output to the sink.
// A non-zero exit is returned as an error; setup steps are fail-fast.
func (s *Supervisor) Run(ctx context.Context, name, bin string, args []string, sinkPath string) error {
	sink, err := openSink(sinkPath)
	if err != nil {
		return err
	}
	defer sink.Close()

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = sink
	cmd.Stderr = sink

	s.logger.Debug("running setup step", zap.String("name", name), zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// Handles returns every process launched so far.
func (s *Supervisor) Handles() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Handle, len(s.handles))
	copy(out, s.handles)
	return out
}

// TerminateAll kills every tracked process. Errors are logged and swallowed;
// a process that already exited is not a failure.
func (s *Supervisor) TerminateAll() {
	for _, h := range s.Handles() {
		if err := h.cmd.Process.Kill(); err != nil {
			s.logger.Debug("kill failed", zap.String("name", h.Name), zap.Error(err))
			continue
		}
		s.logger.Info("killed process", zap.String("name", h.Name), zap.Int("pid", h.Pid()))
	}
}

// TerminateByName signals every process on the host whose executable name
// matches. It is the documented last-resort cleanup used by the standalone
// down command; absence of matches is not an error. Returns the number of
// processes signalled.
func TerminateByName(logger *zap.Logger, name string) (int, error) {
	procs, err := gops.Processes()
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}

	killed := 0
	for _, p := range procs {
		pname, err := p.Name()
		if err != nil || pname != name {
			continue
		}
		if err := p.Kill(); err != nil {
			logger.Debug("kill failed", zap.String("name", name), zap.Int32("pid", p.Pid), zap.Error(err))
			continue
		}
		killed++
	}
	return killed, nil
}
