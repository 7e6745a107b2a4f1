package tmux

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func makePairs(n int) []Pair {
	pairs := make([]Pair, n)
	for i := range pairs {
		pairs[i] = Pair{
			Node:    i,
			ExecLog: fmt.Sprintf("/net/logs/node-%d/geth.log", i),
			ConsLog: fmt.Sprintf("/net/logs/node-%d/beacon.log", i),
		}
	}
	return pairs
}

func countCommand(cmds []Command, name string) int {
	n := 0
	for _, c := range cmds {
		if c[0] == name {
			n++
		}
	}
	return n
}

func TestPlanLayoutZeroPairs(t *testing.T) {
	cmds := PlanLayout("devnet", nil, DefaultCapacity)

	// just the detached session, no content panes beyond the default
	require.Equal(t, []Command{{"new-session", "-d", "-s", "devnet"}}, cmds)
}

func TestPlanLayoutFourPairsSingleWindow(t *testing.T) {
	cmds := PlanLayout("devnet", makePairs(4), DefaultCapacity)

	require.Zero(t, countCommand(cmds, "new-window"))
	// one vertical split per pair, plus one horizontal per pair after the first
	require.Equal(t, 7, countCommand(cmds, "split-window"))
	require.Equal(t, 8, countCommand(cmds, "send-keys"))
	// re-tile before each added column plus the final even-out pass
	require.Equal(t, 4, countCommand(cmds, "select-layout"))
	require.Equal(t, Command{"select-layout", "-t", "devnet", "tiled"}, cmds[len(cmds)-1])
}

func TestPlanLayoutFivePairsPaginates(t *testing.T) {
	cmds := PlanLayout("devnet", makePairs(5), DefaultCapacity)

	// fifth pair exceeds capacity 4, starting a second page
	require.Equal(t, 1, countCommand(cmds, "new-window"))
	require.Equal(t, 10, countCommand(cmds, "send-keys"))

	// the pair after a page break is laid out like the first of a page
	var afterBreak []Command
	for i, c := range cmds {
		if c[0] == "new-window" {
			afterBreak = cmds[i+1 : i+4]
			break
		}
	}
	require.Equal(t, "send-keys", afterBreak[0][0])
	require.Equal(t, Command{"split-window", "-v", "-t", "devnet"}, afterBreak[1])
	require.Equal(t, "send-keys", afterBreak[2][0])
}

func TestPlanLayoutTailsTheRightLogs(t *testing.T) {
	cmds := PlanLayout("devnet", makePairs(1), DefaultCapacity)

	require.Equal(t, []Command{
		{"new-session", "-d", "-s", "devnet"},
		{"send-keys", "-t", "devnet", "tail -f /net/logs/node-0/geth.log", "Enter"},
		{"split-window", "-v", "-t", "devnet"},
		{"send-keys", "-t", "devnet", "tail -f /net/logs/node-0/beacon.log", "Enter"},
		{"select-layout", "-t", "devnet", "tiled"},
	}, cmds)
}

func TestPlanLayoutIsDeterministic(t *testing.T) {
	a := PlanLayout("devnet", makePairs(9), DefaultCapacity)
	b := PlanLayout("devnet", makePairs(9), DefaultCapacity)
	require.Equal(t, a, b)
}

func TestPlanLayoutCustomCapacity(t *testing.T) {
	cmds := PlanLayout("devnet", makePairs(5), 2)
	require.Equal(t, 2, countCommand(cmds, "new-window"))
}

func TestSanitizeSessionName(t *testing.T) {
	for _, tt := range []struct {
		Name, Want string
	}{
		{"devnet", "devnet"},
		{"my.net", "my_net"},
		{"a:b/c", "a_b_c"},
		{"", ""},
	} {
		require.Equal(t, tt.Want, SanitizeSessionName(tt.Name), tt)
	}
}
