// Package network owns the devnet lifecycle: fresh working directories, the
// shared bootnode, the ordered node bootstrap, the multiplexed log view and
// interrupt teardown.
package network

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ethkit/devnet/config"
	"github.com/ethkit/devnet/discovery"
	"github.com/ethkit/devnet/node"
	"github.com/ethkit/devnet/process"
	"github.com/ethkit/devnet/tmux"
	"github.com/fatih/color"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed genesis.json
var genesisTemplate []byte

// ResolveLogCount applies the CLI derivation rule: the log count defaults to
// the node count for small networks and must be given explicitly above two
// nodes. It never exceeds the node count.
func ResolveLogCount(numNodes, numLogs int, numLogsSet bool) (int, error) {
	if numNodes < 1 {
		return 0, fmt.Errorf("node count must be at least 1, got %d", numNodes)
	}
	if !numLogsSet {
		if numNodes > 2 {
			return 0, fmt.Errorf("log count is required for networks larger than 2 nodes")
		}
		return numNodes, nil
	}
	if numLogs < 0 {
		return 0, fmt.Errorf("log count must not be negative, got %d", numLogs)
	}
	if numLogs > numNodes {
		return 0, fmt.Errorf("log count %d exceeds node count %d", numLogs, numNodes)
	}
	return numLogs, nil
}

// Network is the process-wide run state.
type Network struct {
	cfg    config.Config
	logger *zap.Logger

	numNodes int
	numLogs  int

	supervisor  *process.Supervisor
	coordinator *discovery.Coordinator
	runner      *tmux.Runner
	bootstrap   *discovery.Record

	enode string
}

func New(logger *zap.Logger, cfg config.Config, numNodes, numLogs int) *Network {
	return &Network{
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "network")),
		numNodes:    numNodes,
		numLogs:     numLogs,
		supervisor:  process.NewSupervisor(logger),
		coordinator: discovery.NewCoordinator(logger),
		runner:      tmux.NewRunner(logger, cfg.Binaries.Tmux),
		bootstrap:   &discovery.Record{},
	}
}

var stepColor = color.New(color.FgYellow, color.Bold)

func step(format string, args ...any) {
	stepColor.Printf(format+"\n", args...)
}

// Run bootstraps the whole devnet. On success the network keeps running and
// control returns to the operator; only the interrupt path tears anything
// down.
func (n *Network) Run(ctx context.Context) error {
	step("checking required binaries")
	if err := n.preflight(); err != nil {
		return err
	}

	step("resetting %s", n.cfg.NetworkDir)
	if err := n.freshDirs(); err != nil {
		return err
	}
	if err := n.materializeGenesis(); err != nil {
		return err
	}

	step("starting bootnode")
	if err := n.startBootnode(ctx); err != nil {
		return err
	}

	step("bootstrapping node 0")
	if err := n.bootstrapNode(ctx, 0); err != nil {
		return err
	}

	// Node 0's record is settled; the remaining nodes have no ordering
	// dependency among themselves and fan out.
	if n.numNodes > 1 {
		step("bootstrapping nodes 1..%d", n.numNodes-1)
		g, gctx := errgroup.WithContext(ctx)
		for i := 1; i < n.numNodes; i++ {
			i := i
			g.Go(func() error { return n.bootstrapNode(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	step("building log view")
	if err := n.startLogView(ctx); err != nil {
		return err
	}

	n.printSummary()
	return nil
}

// preflight resolves every configured binary before any state is touched.
func (n *Network) preflight() error {
	for _, bin := range n.cfg.Binaries.All() {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("required binary %q not found: %w", bin, err)
		}
	}
	return nil
}

// freshDirs removes any prior run's state and recreates the root layout, so
// run N never sees residue from run N-1.
func (n *Network) freshDirs() error {
	if err := os.RemoveAll(n.cfg.NetworkDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", n.cfg.NetworkDir, err)
	}
	for _, dir := range []string{n.cfg.SetupDir(), n.cfg.BootnodeDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (n *Network) genesisPath() string {
	return filepath.Join(n.cfg.SetupDir(), "genesis.json")
}

// materializeGenesis writes the shared genesis once; every node copies this
// file rather than regenerating it.
func (n *Network) materializeGenesis() error {
	if err := os.WriteFile(n.genesisPath(), genesisTemplate, 0o644); err != nil {
		return fmt.Errorf("failed to write genesis: %w", err)
	}
	note := fmt.Sprintf("materialized genesis for %d nodes at %s\n", n.numNodes, n.genesisPath())
	if err := os.WriteFile(filepath.Join(n.cfg.SetupDir(), "genesis.log"), []byte(note), 0o644); err != nil {
		return fmt.Errorf("failed to write genesis log: %w", err)
	}
	return nil
}

func (n *Network) bootnodeLog() string {
	return filepath.Join(n.cfg.BootnodeDir(), "bootnode.log")
}

// startBootnode generates the bootnode keypair, launches the process and
// captures its enode record from the log.
func (n *Network) startBootnode(ctx context.Context) error {
	keyPath := filepath.Join(n.cfg.BootnodeDir(), "boot.key")
	if err := n.supervisor.Run(ctx, "bootnode genkey", n.cfg.Binaries.Bootnode, []string{"-genkey", keyPath}, n.bootnodeLog()); err != nil {
		return err
	}

	launchArgs := []string{
		"-nodekey", keyPath,
		"-addr", fmt.Sprintf("127.0.0.1:%d", n.cfg.BootnodePort),
		"-verbosity", "5",
	}
	if _, err := n.supervisor.Launch("bootnode", n.cfg.Binaries.Bootnode, launchArgs, n.bootnodeLog()); err != nil {
		return err
	}

	enode, err := n.coordinator.AwaitEnode(
		ctx,
		n.bootnodeLog(),
		n.cfg.Readiness.BootnodeTimeout.Duration,
		n.cfg.Readiness.BootnodeInterval.Duration,
	)
	if err != nil {
		return err
	}
	n.enode = enode
	return nil
}

func (n *Network) nodeConfig(i int) node.Config {
	return node.Config{
		Logger:      n.logger,
		Index:       i,
		NumNodes:    n.numNodes,
		NumLogs:     n.numLogs,
		Binaries:    n.cfg.Binaries,
		Ports:       n.cfg.Ports.Set(i),
		NetworkID:   n.cfg.NetworkID,
		SettingsDir: n.cfg.NodeSettingsDir(i),
		LogDir:      n.cfg.NodeLogDir(i),
		GenesisPath: n.genesisPath(),
		Enode:       n.enode,
		Bootstrap:   n.bootstrap,
		Supervisor:  n.supervisor,
		Coordinator: n.coordinator,
		Readiness:   n.cfg.Readiness,
	}
}

func (n *Network) bootstrapNode(ctx context.Context, i int) error {
	if err := node.New(n.nodeConfig(i)).Bootstrap(ctx); err != nil {
		return fmt.Errorf("node %d bootstrap failed: %w", i, err)
	}
	return nil
}

// startLogView replaces any previous session and tiles the retained logs.
func (n *Network) startLogView(ctx context.Context) error {
	if err := n.runner.KillSession(ctx, n.cfg.Session); err != nil {
		return err
	}

	pairs := make([]tmux.Pair, 0, n.numLogs)
	for i := 0; i < n.numLogs; i++ {
		nd := node.New(n.nodeConfig(i))
		pairs = append(pairs, tmux.Pair{
			Node:    i,
			ExecLog: nd.GethLog(),
			ConsLog: nd.BeaconLog(),
		})
	}

	return n.runner.Apply(ctx, tmux.PlanLayout(n.cfg.Session, pairs, n.cfg.LayoutCapacity))
}

func (n *Network) printSummary() {
	head := color.New(color.FgCyan, color.Bold)
	head.Printf("\ndevnet running: %d nodes, logs for %d\n", n.numNodes, n.numLogs)
	fmt.Printf("  bootnode  %s\n", n.enode)
	if enr, ok := n.bootstrap.Get(); ok {
		fmt.Printf("  bootstrap %s\n", enr)
	}
	for i := 0; i < n.numNodes; i++ {
		set := n.cfg.Ports.Set(i)
		fmt.Printf("  node %-3d  rpc=http://127.0.0.1:%d ws=ws://127.0.0.1:%d p2p=%d beacon=http://127.0.0.1:%d\n",
			i, set.ExecHTTP, set.ExecWS, set.ExecP2P, set.BeaconGateway)
	}
	fmt.Printf("\nattach with: %s attach -t %s\n", n.cfg.Binaries.Tmux, tmux.SanitizeSessionName(n.cfg.Session))
}

// Shutdown is the interrupt path: tear down the log view and kill every
// process this run launched. Best effort, errors are logged and swallowed.
func (n *Network) Shutdown(ctx context.Context) {
	if err := n.runner.KillSession(ctx, n.cfg.Session); err != nil {
		n.logger.Warn("failed to kill log view session", zap.Error(err))
	}
	n.supervisor.TerminateAll()
}
