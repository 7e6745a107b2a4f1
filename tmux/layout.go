// Package tmux plans and drives the multiplexed log view: one tmux session,
// one window per page, two panes tailing log files per node.
package tmux

import (
	"fmt"
	"regexp"
)

// DefaultCapacity is the number of panel-pairs each window holds.
const DefaultCapacity = 4

// Command is a single tmux invocation, argv without the tmux binary itself.
type Command []string

// Pair is one node's two log streams.
type Pair struct {
	Node    int
	ExecLog string
	ConsLog string
}

var validSessionCharsRE = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeSessionName replaces characters tmux rejects in session names
// (dots and colons are target separators) with underscores.
func SanitizeSessionName(name string) string {
	return validSessionCharsRE.ReplaceAllLiteralString(name, "_")
}

func tailCmd(logFile string) string {
	return fmt.Sprintf("tail -f %s", logFile)
}

// PlanLayout returns the deterministic command sequence realizing the log
// grid for the given pairs. Each window holds up to capacity pairs; a full
// window starts a new one. Within a window the first pair splits the default
// pane vertically; later pairs re-tile, add a column, then split it.
func PlanLayout(session string, pairs []Pair, capacity int) []Command {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	session = SanitizeSessionName(session)

	cmds := []Command{
		{"new-session", "-d", "-s", session},
	}
	if len(pairs) == 0 {
		return cmds
	}

	cursor := 0
	for _, p := range pairs {
		if cursor == capacity {
			cmds = append(cmds, Command{"new-window", "-t", session})
			cursor = 0
		}
		if cursor == 0 {
			cmds = append(cmds,
				Command{"send-keys", "-t", session, tailCmd(p.ExecLog), "Enter"},
				Command{"split-window", "-v", "-t", session},
				Command{"send-keys", "-t", session, tailCmd(p.ConsLog), "Enter"},
			)
		} else {
			cmds = append(cmds,
				Command{"select-layout", "-t", session, "tiled"},
				Command{"split-window", "-h", "-t", session},
				Command{"send-keys", "-t", session, tailCmd(p.ExecLog), "Enter"},
				Command{"split-window", "-v", "-t", session},
				Command{"send-keys", "-t", session, tailCmd(p.ConsLog), "Enter"},
			)
		}
		cursor++
	}

	// Even out the last window.
	cmds = append(cmds, Command{"select-layout", "-t", session, "tiled"})
	return cmds
}
