package state

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/pkg/smartcontract/manifest"
	"github.com/r3e-network/neo-core/pkg/smartcontract/nef"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

func newTestContract(t *testing.T) *Contract {
	script := []byte{0x51, 0x52, 0x53}
	ne, err := nef.NewFile(script)
	require.NoError(t, err)
	m := manifest.NewManifest("TestContract")
	return &Contract{
		ContractBase: ContractBase{
			ID:       42,
			Hash:     random.Uint160(),
			NEF:      ne,
			Manifest: *m,
		},
		UpdateCounter: 3,
	}
}

func TestContractStateToFromSI(t *testing.T) {
	expected := newTestContract(t)

	item, err := expected.ToStackItem()
	require.NoError(t, err)

	actual := new(Contract)
	require.NoError(t, actual.FromStackItem(item))
	require.Equal(t, expected.ID, actual.ID)
	require.Equal(t, expected.UpdateCounter, actual.UpdateCounter)
	require.Equal(t, expected.Hash, actual.Hash)
	require.Equal(t, expected.NEF.Script, actual.NEF.Script)
	require.Equal(t, expected.NEF.Checksum, actual.NEF.Checksum)
	require.Equal(t, expected.Manifest.Name, actual.Manifest.Name)
}

func TestContractFromStackItemInvalid(t *testing.T) {
	t.Run("NotAnArray", func(t *testing.T) {
		require.Error(t, new(Contract).FromStackItem(stackitem.Make(42)))
	})
	t.Run("WrongLength", func(t *testing.T) {
		item := stackitem.NewArray([]stackitem.Item{stackitem.Make(1)})
		require.Error(t, new(Contract).FromStackItem(item))
	})
	t.Run("BadHash", func(t *testing.T) {
		c := newTestContract(t)
		item, err := c.ToStackItem()
		require.NoError(t, err)
		item.Value().([]stackitem.Item)[2] = stackitem.Make([]byte{1, 2, 3})
		require.Error(t, new(Contract).FromStackItem(item))
	})
}

func TestCreateContractHash(t *testing.T) {
	sender := util.Uint160{1, 2, 3}
	h1 := CreateContractHash(sender, 0, "a")
	h2 := CreateContractHash(sender, 0, "a")
	require.Equal(t, h1, h2)

	// all the components contribute to the hash
	require.NotEqual(t, h1, CreateContractHash(sender, 0, "b"))
	require.NotEqual(t, h1, CreateContractHash(sender, 1, "a"))
	require.NotEqual(t, h1, CreateContractHash(util.Uint160{3, 2, 1}, 0, "a"))
}

func TestCreateNativeContractHash(t *testing.T) {
	h := CreateNativeContractHash("Test")
	require.Equal(t, CreateContractHash(util.Uint160{}, 0, "Test"), h)
}
