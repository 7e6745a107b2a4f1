// Package config loads the devnet orchestrator configuration from a TOML file,
// falling back to defaults for anything not set.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethkit/devnet/ports"
)

// Duration wraps time.Duration so values can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler so defaults round-trip.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Binaries holds the paths of the external programs the orchestrator drives.
// Bare names are resolved through PATH.
type Binaries struct {
	Geth      string `toml:"geth"`
	Bootnode  string `toml:"bootnode"`
	Beacon    string `toml:"beacon"`
	Validator string `toml:"validator"`
	Tmux      string `toml:"tmux"`
}

// All returns every configured binary path.
func (b Binaries) All() []string {
	return []string{b.Geth, b.Bootnode, b.Beacon, b.Validator, b.Tmux}
}

// Clients returns the four client program names signalled by the down command.
func (b Binaries) Clients() []string {
	return []string{b.Geth, b.Bootnode, b.Beacon, b.Validator}
}

// Readiness bounds the polls that replace fixed startup sleeps.
type Readiness struct {
	// BootnodeTimeout bounds the wait for the bootnode's enode line.
	BootnodeTimeout Duration `toml:"bootnode_timeout"`
	// BootnodeInterval is the delay between bootnode log scans.
	BootnodeInterval Duration `toml:"bootnode_interval"`
	// IdentityTimeout bounds the wait for node 0's beacon identity endpoint.
	IdentityTimeout Duration `toml:"identity_timeout"`
	// IdentityInterval is the delay between identity endpoint probes.
	IdentityInterval Duration `toml:"identity_interval"`
}

// Log configures the orchestrator's own rotating log file.
type Log struct {
	// MaxSizeMB is the size at which the log file rotates.
	MaxSizeMB int `toml:"max_size_mb"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `toml:"max_backups"`
}

// Config is the full orchestrator configuration.
type Config struct {
	// NetworkDir is the root working directory; it is removed and recreated
	// at the start of every run.
	NetworkDir string `toml:"network_dir"`
	// Session is the tmux session name for the log view.
	Session string `toml:"session"`
	// NetworkID is the chain network id passed to the execution clients.
	NetworkID uint64 `toml:"network_id"`
	// BootnodePort is the discovery UDP port the shared bootnode listens on.
	BootnodePort int `toml:"bootnode_port"`
	// LayoutCapacity is the number of panel-pairs per tmux window.
	LayoutCapacity int `toml:"layout_capacity"`

	Binaries  Binaries    `toml:"binaries"`
	Ports     ports.Bases `toml:"ports"`
	Readiness Readiness   `toml:"readiness"`
	Log       Log         `toml:"log"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		NetworkDir:     filepath.Join(os.TempDir(), "devnet"),
		Session:        "devnet",
		NetworkID:      32382,
		BootnodePort:   30301,
		LayoutCapacity: 4,
		Binaries: Binaries{
			Geth:      "geth",
			Bootnode:  "bootnode",
			Beacon:    "beacon-chain",
			Validator: "validator",
			Tmux:      "tmux",
		},
		Ports: ports.DefaultBases(),
		Readiness: Readiness{
			BootnodeTimeout:  Duration{30 * time.Second},
			BootnodeInterval: Duration{500 * time.Millisecond},
			IdentityTimeout:  Duration{60 * time.Second},
			IdentityInterval: Duration{time.Second},
		},
		Log: Log{
			MaxSizeMB:  16,
			MaxBackups: 3,
		},
	}
}

// Load reads a TOML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the config for values the orchestrator cannot run with.
func (c Config) Validate() error {
	if c.NetworkDir == "" {
		return fmt.Errorf("network_dir must not be empty")
	}
	if c.Session == "" {
		return fmt.Errorf("session must not be empty")
	}
	if c.LayoutCapacity < 1 {
		return fmt.Errorf("layout_capacity must be at least 1, got %d", c.LayoutCapacity)
	}
	for _, bin := range c.Binaries.All() {
		if bin == "" {
			return fmt.Errorf("all binary paths must be set")
		}
	}
	return nil
}

// WriteDefault materializes the default config as a TOML file for editing.
func WriteDefault(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	return nil
}

// Paths derived from NetworkDir. The layout is fixed: setup and bootnode at
// the root, per-node settings and logs below.

// SetupDir holds shared genesis material and the setup log.
func (c Config) SetupDir() string { return filepath.Join(c.NetworkDir, "setup") }

// BootnodeDir holds the bootnode keypair and log.
func (c Config) BootnodeDir() string { return filepath.Join(c.NetworkDir, "bootnode") }

// NodeSettingsDir holds a node's credentials, genesis copy and secrets.
func (c Config) NodeSettingsDir(i int) string {
	return filepath.Join(c.NetworkDir, "settings", fmt.Sprintf("node-%d", i))
}

// NodeLogDir holds a node's client log files, present only for nodes inside
// the log-retention window.
func (c Config) NodeLogDir(i int) string {
	return filepath.Join(c.NetworkDir, "logs", fmt.Sprintf("node-%d", i))
}
