package ports

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateNoCollisions(t *testing.T) {
	const numNodes = 64

	bases := DefaultBases()
	seen := make(map[int]string)

	for _, f := range Families() {
		for i := 0; i < numNodes; i++ {
			p := bases.Allocate(f, i)
			if prev, ok := seen[p]; ok {
				t.Fatalf("port %d assigned to both %s and %s/%d", p, prev, f, i)
			}
			seen[p] = string(f)
		}
	}
}

func TestAllocateIsAdditive(t *testing.T) {
	bases := DefaultBases()
	for _, f := range Families() {
		require.Equal(t, bases.Allocate(f, 0)+7, bases.Allocate(f, 7))
	}
}

func TestSetMatchesAllocate(t *testing.T) {
	bases := DefaultBases()
	set := bases.Set(3)

	require.Equal(t, bases.Allocate(ExecHTTP, 3), set.ExecHTTP)
	require.Equal(t, bases.Allocate(ExecWS, 3), set.ExecWS)
	require.Equal(t, bases.Allocate(ExecP2P, 3), set.ExecP2P)
	require.Equal(t, bases.Allocate(ExecMetrics, 3), set.ExecMetrics)
	require.Equal(t, bases.Allocate(ExecAuthRPC, 3), set.ExecAuthRPC)
	require.Equal(t, bases.Allocate(BeaconRPC, 3), set.BeaconRPC)
	require.Equal(t, bases.Allocate(BeaconGateway, 3), set.BeaconGateway)
	require.Equal(t, bases.Allocate(BeaconP2PTCP, 3), set.BeaconP2PTCP)
	require.Equal(t, bases.Allocate(BeaconP2PUDP, 3), set.BeaconP2PUDP)
	require.Equal(t, bases.Allocate(BeaconMonitoring, 3), set.BeaconMonitoring)
	require.Equal(t, bases.Allocate(ValidatorRPC, 3), set.ValidatorRPC)
	require.Equal(t, bases.Allocate(ValidatorGateway, 3), set.ValidatorGateway)
	require.Equal(t, bases.Allocate(ValidatorMonitoring, 3), set.ValidatorMonitoring)
}
