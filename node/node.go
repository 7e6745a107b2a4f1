// Package node bootstraps one devnet node: execution client, consensus client
// and validator client, in strict dependency order.
package node

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethkit/devnet/config"
	"github.com/ethkit/devnet/discovery"
	"github.com/ethkit/devnet/ports"
	"github.com/ethkit/devnet/process"
	"go.uber.org/zap"
)

// Config wires one node's bootstrap.
type Config struct {
	Logger *zap.Logger

	Index    int
	NumNodes int
	// NumLogs is the log-retention count; nodes at or above it discard
	// client output.
	NumLogs int

	Binaries  config.Binaries
	Ports     ports.Set
	NetworkID uint64

	// SettingsDir holds this node's credentials, genesis copy and secrets.
	SettingsDir string
	// LogDir holds this node's client logs; ignored outside the retention
	// window.
	LogDir string
	// GenesisPath is the shared genesis file all nodes copy in. Nodes must
	// share byte-identical genesis state or they reject each other.
	GenesisPath string

	// Enode is the bootnode's execution-layer discovery record.
	Enode string
	// Bootstrap is the shared consensus-layer record cell: node 0 publishes
	// into it, every other node reads from it.
	Bootstrap *discovery.Record

	Supervisor  *process.Supervisor
	Coordinator *discovery.Coordinator
	Readiness   config.Readiness
}

// Node drives the bootstrap sequence for a single index.
type Node struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config) *Node {
	return &Node{
		cfg:    cfg,
		logger: cfg.Logger.With(zap.String("component", "node"), zap.Int("node", cfg.Index)),
	}
}

func (n *Node) retainsLogs() bool { return n.cfg.Index < n.cfg.NumLogs }

// logSink returns the sink path for a client log, or empty (discard) outside
// the retention window.
func (n *Node) logSink(name string) string {
	if !n.retainsLogs() {
		return ""
	}
	return filepath.Join(n.cfg.LogDir, name)
}

// GethLog is the execution client log path, empty when discarded.
func (n *Node) GethLog() string { return n.logSink("geth.log") }

// BeaconLog is the consensus client log path, empty when discarded.
func (n *Node) BeaconLog() string { return n.logSink("beacon.log") }

// ValidatorLog is the validator client log path, empty when discarded.
func (n *Node) ValidatorLog() string { return n.logSink("validator.log") }

func (n *Node) execDir() string      { return filepath.Join(n.cfg.SettingsDir, "execution") }
func (n *Node) consensusDir() string { return filepath.Join(n.cfg.SettingsDir, "consensus") }
func (n *Node) passwordPath() string { return filepath.Join(n.execDir(), "password.txt") }
func (n *Node) genesisCopy() string  { return filepath.Join(n.execDir(), "genesis.json") }
func (n *Node) jwtPath() string      { return filepath.Join(n.cfg.SettingsDir, "jwt.hex") }

// minSyncPeers is a soft sync target, not an enforced minimum.
func (n *Node) minSyncPeers() int { return n.cfg.NumNodes / 2 }

// IdentityURL is the consensus client's local identity endpoint.
func (n *Node) IdentityURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/eth/v1/node/identity", n.cfg.Ports.BeaconGateway)
}

// Bootstrap runs the full ordered sequence. Every synchronous step is
// fail-fast; the three client launches are fire-and-forget and their eventual
// failures surface only in the log files.
func (n *Node) Bootstrap(ctx context.Context) error {
	n.logger.Info("bootstrapping node")

	if err := n.createDirs(); err != nil {
		return err
	}
	if err := n.initExecution(ctx); err != nil {
		return err
	}
	if err := n.launchExecution(); err != nil {
		return err
	}

	bootstrapRecord, haveRecord := n.cfg.Bootstrap.Get()
	if n.cfg.Index > 0 && !haveRecord {
		return fmt.Errorf("node %d consensus launch requires the bootstrap record, which is unset", n.cfg.Index)
	}
	if err := n.launchConsensus(bootstrapRecord); err != nil {
		return err
	}
	if err := n.launchValidator(); err != nil {
		return err
	}

	if !haveRecord {
		if err := n.publishBootstrapRecord(ctx); err != nil {
			return err
		}
	}

	n.logger.Info("node bootstrapped")
	return nil
}

func (n *Node) createDirs() error {
	for _, dir := range []string{n.execDir(), n.consensusDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if n.retainsLogs() {
		if err := os.MkdirAll(n.cfg.LogDir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", n.cfg.LogDir, err)
		}
	}
	return nil
}

// initExecution materializes credentials and chain state: empty-password
// account creation and genesis initialization against the shared genesis.
func (n *Node) initExecution(ctx context.Context) error {
	if err := os.WriteFile(n.passwordPath(), nil, 0o600); err != nil {
		return fmt.Errorf("failed to write password file: %w", err)
	}

	genesis, err := os.ReadFile(n.cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("failed to read shared genesis: %w", err)
	}
	if err := os.WriteFile(n.genesisCopy(), genesis, 0o644); err != nil {
		return fmt.Errorf("failed to copy genesis: %w", err)
	}

	jwt, err := generateJWTSecretHex(32)
	if err != nil {
		return fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	if err := os.WriteFile(n.jwtPath(), []byte(jwt), 0o600); err != nil {
		return fmt.Errorf("failed to write jwt secret: %w", err)
	}

	setupLog := n.logSink("setup.log")
	accountArgs := []string{
		"account", "new",
		"--datadir", n.execDir(),
		"--password", n.passwordPath(),
	}
	if err := n.cfg.Supervisor.Run(ctx, "geth account new", n.cfg.Binaries.Geth, accountArgs, setupLog); err != nil {
		return err
	}

	initArgs := []string{
		"init",
		"--datadir", n.execDir(),
		n.genesisCopy(),
	}
	return n.cfg.Supervisor.Run(ctx, "geth init", n.cfg.Binaries.Geth, initArgs, setupLog)
}

func (n *Node) gethArgs() []string {
	return []string{
		"--datadir", n.execDir(),
		"--networkid", fmt.Sprintf("%d", n.cfg.NetworkID),
		"--port", fmt.Sprintf("%d", n.cfg.Ports.ExecP2P),
		"--http",
		"--http.addr", "127.0.0.1",
		"--http.port", fmt.Sprintf("%d", n.cfg.Ports.ExecHTTP),
		"--http.api", "eth,net,web3,engine,admin",
		"--ws",
		"--ws.addr", "127.0.0.1",
		"--ws.port", fmt.Sprintf("%d", n.cfg.Ports.ExecWS),
		"--authrpc.addr", "127.0.0.1",
		"--authrpc.port", fmt.Sprintf("%d", n.cfg.Ports.ExecAuthRPC),
		"--authrpc.jwtsecret", n.jwtPath(),
		"--metrics",
		"--metrics.port", fmt.Sprintf("%d", n.cfg.Ports.ExecMetrics),
		"--bootnodes", n.cfg.Enode,
		"--maxpendpeers", fmt.Sprintf("%d", n.cfg.NumNodes),
		"--syncmode", "full",
		"--password", n.passwordPath(),
	}
}

func (n *Node) launchExecution() error {
	_, err := n.cfg.Supervisor.Launch(
		fmt.Sprintf("geth-%d", n.cfg.Index),
		n.cfg.Binaries.Geth,
		n.gethArgs(),
		n.GethLog(),
	)
	return err
}

func (n *Node) beaconArgs(bootstrapRecord string) []string {
	return []string{
		"--datadir", n.consensusDir(),
		"--rpc-port", fmt.Sprintf("%d", n.cfg.Ports.BeaconRPC),
		"--grpc-gateway-port", fmt.Sprintf("%d", n.cfg.Ports.BeaconGateway),
		"--p2p-tcp-port", fmt.Sprintf("%d", n.cfg.Ports.BeaconP2PTCP),
		"--p2p-udp-port", fmt.Sprintf("%d", n.cfg.Ports.BeaconP2PUDP),
		"--monitoring-port", fmt.Sprintf("%d", n.cfg.Ports.BeaconMonitoring),
		"--execution-endpoint", fmt.Sprintf("http://127.0.0.1:%d", n.cfg.Ports.ExecAuthRPC),
		"--jwt-secret", n.jwtPath(),
		"--min-sync-peers", fmt.Sprintf("%d", n.minSyncPeers()),
		// node 0 is the bootstrap node itself and passes no record
		"--bootstrap-node", bootstrapRecord,
		"--accept-terms-of-use",
	}
}

func (n *Node) launchConsensus(bootstrapRecord string) error {
	_, err := n.cfg.Supervisor.Launch(
		fmt.Sprintf("beacon-%d", n.cfg.Index),
		n.cfg.Binaries.Beacon,
		n.beaconArgs(bootstrapRecord),
		n.BeaconLog(),
	)
	return err
}

func (n *Node) validatorArgs() []string {
	return []string{
		"--datadir", n.consensusDir(),
		"--beacon-rpc-provider", fmt.Sprintf("127.0.0.1:%d", n.cfg.Ports.BeaconRPC),
		"--rpc-port", fmt.Sprintf("%d", n.cfg.Ports.ValidatorRPC),
		"--grpc-gateway-port", fmt.Sprintf("%d", n.cfg.Ports.ValidatorGateway),
		"--monitoring-port", fmt.Sprintf("%d", n.cfg.Ports.ValidatorMonitoring),
		// one validator identity per node, indexed by node
		"--interop-num-validators", "1",
		"--interop-start-index", fmt.Sprintf("%d", n.cfg.Index),
		"--accept-terms-of-use",
	}
}

func (n *Node) launchValidator() error {
	_, err := n.cfg.Supervisor.Launch(
		fmt.Sprintf("validator-%d", n.cfg.Index),
		n.cfg.Binaries.Validator,
		n.validatorArgs(),
		n.ValidatorLog(),
	)
	return err
}

// publishBootstrapRecord extracts this node's ENR and settles the shared cell.
// Only node 0's bootstrap reaches here; later nodes see the record already set.
func (n *Node) publishBootstrapRecord(ctx context.Context) error {
	enr, err := n.cfg.Coordinator.AwaitENR(
		ctx,
		n.IdentityURL(),
		n.cfg.Readiness.IdentityTimeout.Duration,
		n.cfg.Readiness.IdentityInterval.Duration,
	)
	if err != nil {
		return err
	}
	return n.cfg.Bootstrap.Set(enr)
}

func generateJWTSecretHex(nbytes int) (string, error) {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
