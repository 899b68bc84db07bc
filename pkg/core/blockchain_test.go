package core

import (
	"testing"

	"github.com/r3e-network/neo-core/pkg/core/native/nativenames"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestNewBlockchainGenesisState(t *testing.T) {
	bc, _ := newTestChain(t)

	require.EqualValues(t, 0, bc.BlockHeight())
	require.EqualValues(t, 0, bc.HeaderHeight())

	genesis, err := bc.GetBlock(bc.CurrentBlockHash())
	require.NoError(t, err)
	require.EqualValues(t, 0, genesis.Index)
	require.Equal(t, genesis.Hash(), bc.GetHeaderHash(0))

	// All native contracts are deployed in the genesis block.
	for _, name := range nativenames.All {
		h, err := bc.GetNativeContractScriptHash(name)
		require.NoError(t, err)
		cs := bc.GetContractState(h)
		require.NotNil(t, cs, name)
		require.Equal(t, name, cs.Manifest.Name)
	}

	// The initial GAS supply is minted to the consensus address.
	balance := bc.GetUtilityTokenBalance(genesis.NextConsensus)
	require.Equal(t, bc.GetConfig().InitialGASSupply, balance.Int64())
}

func TestAddBlock(t *testing.T) {
	bc, priv := newTestChain(t)

	b1 := newBlock(t, bc, priv)
	require.NoError(t, bc.AddBlock(b1))
	require.EqualValues(t, 1, bc.BlockHeight())
	require.Equal(t, b1.Hash(), bc.CurrentBlockHash())
	require.True(t, bc.HasBlock(b1.Hash()))

	got, err := bc.GetBlock(b1.Hash())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), got.Hash())

	hdr, err := bc.GetHeader(b1.Hash())
	require.NoError(t, err)
	require.Equal(t, b1.Index, hdr.Index)

	b2 := newBlock(t, bc, priv)
	require.NoError(t, bc.AddBlock(b2))
	require.EqualValues(t, 2, bc.BlockHeight())
}

func TestAddBlockBadIndex(t *testing.T) {
	bc, priv := newTestChain(t)

	b := newBlock(t, bc, priv)
	b.Index = 42
	err := bc.AddBlock(b)
	require.ErrorIs(t, err, ErrInvalidBlockIndex)
}

func TestAddBlockBadWitness(t *testing.T) {
	bc, priv := newTestChain(t)

	b := newBlock(t, bc, priv)
	b.Script.InvocationScript = nil
	require.Error(t, bc.AddBlock(b))
	require.EqualValues(t, 0, bc.BlockHeight())
}

func TestAddBlockStaleTimestamp(t *testing.T) {
	bc, priv := newTestChain(t)

	genesis, err := bc.GetHeader(bc.CurrentBlockHash())
	require.NoError(t, err)

	b := newBlock(t, bc, priv)
	b.Timestamp = genesis.Timestamp
	b.RebuildMerkleRoot()
	signBlock(t, b, priv)
	err = bc.AddBlock(b)
	require.ErrorIs(t, err, ErrHeaderGeneralError)
}

func TestAddHeaders(t *testing.T) {
	bc, priv := newTestChain(t)

	b1 := newBlock(t, bc, priv)
	require.NoError(t, bc.AddHeaders(&b1.Header))
	require.EqualValues(t, 1, bc.HeaderHeight())
	require.EqualValues(t, 0, bc.BlockHeight())
	require.Equal(t, b1.Hash(), bc.CurrentHeaderHash())

	// Adding the same header twice is a no-op.
	require.NoError(t, bc.AddHeaders(&b1.Header))
	require.EqualValues(t, 1, bc.HeaderHeight())

	// The block behind the header can still be added.
	require.NoError(t, bc.AddBlock(b1))
	require.EqualValues(t, 1, bc.BlockHeight())

	hdr, err := bc.GetHeader(b1.Hash())
	require.NoError(t, err)
	require.Equal(t, b1.Hash(), hdr.Hash())
}

func TestHasTransaction(t *testing.T) {
	bc, _ := newTestChain(t)

	require.False(t, bc.HasTransaction(util.Uint256{1, 2, 3}))
	_, _, err := bc.GetTransaction(util.Uint256{1, 2, 3})
	require.Error(t, err)
}
