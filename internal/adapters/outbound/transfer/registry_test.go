//go:build !integration

package transfer

import (
	"testing"

	"housebalance/internal/adapters/outbound/transfer/devtest"
	portsout "housebalance/internal/application/ports/out"
	valueobjects "housebalance/internal/domain/value_objects"

	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesConfiguredClassesOnly(t *testing.T) {
	evm := devtest.NewGateway(devtest.Config{Class: valueobjects.AddressClassEVM}, nil)
	registry := NewRegistry(map[valueobjects.AddressClass]portsout.TransferGateway{
		valueobjects.AddressClassEVM:     evm,
		valueobjects.AddressClassSolana:  nil,
		valueobjects.AddressClassInvalid: evm,
	})

	gateway, ok := registry.Resolve(valueobjects.AddressClassEVM)
	require.True(t, ok)
	require.Same(t, evm, gateway)

	_, ok = registry.Resolve(valueobjects.AddressClassSolana)
	require.False(t, ok)
	_, ok = registry.Resolve(valueobjects.AddressClassInvalid)
	require.False(t, ok)
	require.ElementsMatch(t, []valueobjects.AddressClass{valueobjects.AddressClassEVM}, registry.Classes())
}
