// Package ports derives concrete network ports for every node in the devnet.
//
// Each port family has a fixed base offset and a node's port is base + index,
// so ports never collide as long as the bases are spaced wider than the node
// count.
package ports

// Family identifies one of the port families a node binds.
type Family string

const (
	ExecHTTP    Family = "exec-http"
	ExecWS      Family = "exec-ws"
	ExecP2P     Family = "exec-p2p"
	ExecMetrics Family = "exec-metrics"
	ExecAuthRPC Family = "exec-authrpc"

	BeaconRPC        Family = "beacon-rpc"
	BeaconGateway    Family = "beacon-gateway"
	BeaconP2PTCP     Family = "beacon-p2p-tcp"
	BeaconP2PUDP     Family = "beacon-p2p-udp"
	BeaconMonitoring Family = "beacon-monitoring"

	ValidatorRPC        Family = "validator-rpc"
	ValidatorGateway    Family = "validator-gateway"
	ValidatorMonitoring Family = "validator-monitoring"
)

// Families lists every known family in a stable order.
func Families() []Family {
	return []Family{
		ExecHTTP, ExecWS, ExecP2P, ExecMetrics, ExecAuthRPC,
		BeaconRPC, BeaconGateway, BeaconP2PTCP, BeaconP2PUDP, BeaconMonitoring,
		ValidatorRPC, ValidatorGateway, ValidatorMonitoring,
	}
}

// Bases holds the base offset for each family. Callers must keep bases spaced
// wider than the maximum node count they intend to run.
type Bases struct {
	ExecHTTP    int `toml:"exec_http"`
	ExecWS      int `toml:"exec_ws"`
	ExecP2P     int `toml:"exec_p2p"`
	ExecMetrics int `toml:"exec_metrics"`
	ExecAuthRPC int `toml:"exec_authrpc"`

	BeaconRPC        int `toml:"beacon_rpc"`
	BeaconGateway    int `toml:"beacon_gateway"`
	BeaconP2PTCP     int `toml:"beacon_p2p_tcp"`
	BeaconP2PUDP     int `toml:"beacon_p2p_udp"`
	BeaconMonitoring int `toml:"beacon_monitoring"`

	ValidatorRPC        int `toml:"validator_rpc"`
	ValidatorGateway    int `toml:"validator_gateway"`
	ValidatorMonitoring int `toml:"validator_monitoring"`
}

// DefaultBases returns base offsets spaced 100 apart within each client's
// range, supporting devnets of up to 100 nodes.
func DefaultBases() Bases {
	return Bases{
		ExecHTTP:    8000,
		ExecWS:      8100,
		ExecP2P:     8200,
		ExecMetrics: 8300,
		ExecAuthRPC: 8400,

		BeaconRPC:        4000,
		BeaconGateway:    3400,
		BeaconP2PTCP:     13000,
		BeaconP2PUDP:     12000,
		BeaconMonitoring: 5000,

		ValidatorRPC:        7000,
		ValidatorGateway:    7100,
		ValidatorMonitoring: 7200,
	}
}

func (b Bases) base(f Family) int {
	switch f {
	case ExecHTTP:
		return b.ExecHTTP
	case ExecWS:
		return b.ExecWS
	case ExecP2P:
		return b.ExecP2P
	case ExecMetrics:
		return b.ExecMetrics
	case ExecAuthRPC:
		return b.ExecAuthRPC
	case BeaconRPC:
		return b.BeaconRPC
	case BeaconGateway:
		return b.BeaconGateway
	case BeaconP2PTCP:
		return b.BeaconP2PTCP
	case BeaconP2PUDP:
		return b.BeaconP2PUDP
	case BeaconMonitoring:
		return b.BeaconMonitoring
	case ValidatorRPC:
		return b.ValidatorRPC
	case ValidatorGateway:
		return b.ValidatorGateway
	case ValidatorMonitoring:
		return b.ValidatorMonitoring
	}
	return 0
}

// Allocate returns the concrete port for a family and node index.
func (b Bases) Allocate(f Family, node int) int {
	return b.base(f) + node
}

// Set holds every concrete port for a single node.
type Set struct {
	ExecHTTP    int
	ExecWS      int
	ExecP2P     int
	ExecMetrics int
	ExecAuthRPC int

	BeaconRPC        int
	BeaconGateway    int
	BeaconP2PTCP     int
	BeaconP2PUDP     int
	BeaconMonitoring int

	ValidatorRPC        int
	ValidatorGateway    int
	ValidatorMonitoring int
}

// Set computes the full port set for a node index.
func (b Bases) Set(node int) Set {
	return Set{
		ExecHTTP:    b.Allocate(ExecHTTP, node),
		ExecWS:      b.Allocate(ExecWS, node),
		ExecP2P:     b.Allocate(ExecP2P, node),
		ExecMetrics: b.Allocate(ExecMetrics, node),
		ExecAuthRPC: b.Allocate(ExecAuthRPC, node),

		BeaconRPC:        b.Allocate(BeaconRPC, node),
		BeaconGateway:    b.Allocate(BeaconGateway, node),
		BeaconP2PTCP:     b.Allocate(BeaconP2PTCP, node),
		BeaconP2PUDP:     b.Allocate(BeaconP2PUDP, node),
		BeaconMonitoring: b.Allocate(BeaconMonitoring, node),

		ValidatorRPC:        b.Allocate(ValidatorRPC, node),
		ValidatorGateway:    b.Allocate(ValidatorGateway, node),
		ValidatorMonitoring: b.Allocate(ValidatorMonitoring, node),
	}
}
