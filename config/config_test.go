package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devnet.toml")
	content := `
network_dir = "/var/tmp/mynet"
session = "mynet"

[binaries]
geth = "/opt/geth/geth"

[ports]
exec_http = 9000

[readiness]
bootnode_timeout = "10s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "/var/tmp/mynet", cfg.NetworkDir)
	require.Equal(t, "mynet", cfg.Session)
	require.Equal(t, "/opt/geth/geth", cfg.Binaries.Geth)
	require.Equal(t, 9000, cfg.Ports.ExecHTTP)
	require.Equal(t, 10*time.Second, cfg.Readiness.BootnodeTimeout.Duration)

	// untouched fields keep their defaults
	require.Equal(t, Default().Binaries.Beacon, cfg.Binaries.Beacon)
	require.Equal(t, Default().Ports.BeaconRPC, cfg.Ports.BeaconRPC)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devnet.toml")
	require.NoError(t, os.WriteFile(path, []byte(`session = ""`), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devnet.toml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.NetworkDir = "/tmp/n"

	require.Equal(t, "/tmp/n/setup", cfg.SetupDir())
	require.Equal(t, "/tmp/n/bootnode", cfg.BootnodeDir())
	require.Equal(t, "/tmp/n/settings/node-2", cfg.NodeSettingsDir(2))
	require.Equal(t, "/tmp/n/logs/node-2", cfg.NodeLogDir(2))
}
