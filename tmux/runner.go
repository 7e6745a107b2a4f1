package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes planned commands against a real tmux server.
type Runner struct {
	logger *zap.Logger
	bin    string
}

func NewRunner(logger *zap.Logger, bin string) *Runner {
	return &Runner{
		logger: logger.With(zap.String("component", "tmux")),
		bin:    bin,
	}
}

// Apply runs each command in order, failing fast on the first error.
func (r *Runner) Apply(ctx context.Context, cmds []Command) error {
	for _, c := range cmds {
		cmd := exec.CommandContext(ctx, r.bin, c...)
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("tmux %s failed: %w (output=%s)", strings.Join(c, " "), err, strings.TrimSpace(string(out)))
		}
		r.logger.Debug("applied tmux command", zap.Strings("argv", c))
	}
	return nil
}

// HasSession reports whether the session exists.
func (r *Runner) HasSession(ctx context.Context, session string) bool {
	cmd := exec.CommandContext(ctx, r.bin, "has-session", "-t", SanitizeSessionName(session))
	return cmd.Run() == nil
}

// KillSession tears the session down. A missing session is benign cleanup
// and is not an error.
func (r *Runner) KillSession(ctx context.Context, session string) error {
	if !r.HasSession(ctx, session) {
		r.logger.Debug("session not running", zap.String("session", session))
		return nil
	}
	cmd := exec.CommandContext(ctx, r.bin, "kill-session", "-t", SanitizeSessionName(session))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to kill session %s: %w (output=%s)", session, err, strings.TrimSpace(string(out)))
	}
	r.logger.Info("killed session", zap.String("session", session))
	return nil
}
