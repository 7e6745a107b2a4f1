package network

import (
	"context"
	"path/filepath"

	"github.com/ethkit/devnet/config"
	"github.com/ethkit/devnet/process"
	"github.com/ethkit/devnet/tmux"
	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Down is the standalone shutdown path: it terminates the log view session
// and signals every client program by name. Each target is independently best
// effort; nothing here is fatal. This is the documented last resort for runs
// whose orchestrator (and its handle table) is long gone.
func Down(ctx context.Context, logger *zap.Logger, cfg config.Config) {
	found := color.New(color.FgGreen)
	missing := color.New(color.FgYellow)

	runner := tmux.NewRunner(logger, cfg.Binaries.Tmux)
	if runner.HasSession(ctx, cfg.Session) {
		if err := runner.KillSession(ctx, cfg.Session); err != nil {
			logger.Warn("failed to kill session", zap.Error(err))
		} else {
			found.Printf("session %s: terminated\n", cfg.Session)
		}
	} else {
		missing.Printf("session %s: not running\n", cfg.Session)
	}

	for _, bin := range cfg.Binaries.Clients() {
		name := filepath.Base(bin)
		killed, err := process.TerminateByName(logger, name)
		if err != nil {
			logger.Warn("failed to terminate by name", zap.String("name", name), zap.Error(err))
			continue
		}
		if killed > 0 {
			found.Printf("%s: killed %d process(es)\n", name, killed)
		} else {
			missing.Printf("%s: no matching processes\n", name)
		}
	}
}
