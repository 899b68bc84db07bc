package payload

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/stretchr/testify/require"
)

func TestGetBlocksEncodeDecode(t *testing.T) {
	start := random.Uint256()
	p := NewGetBlocks(start, 124)
	testserdes.EncodeDecodeBinary(t, p, new(GetBlocks))

	// invalid count
	p = NewGetBlocks(start, -2)
	data, err := testserdes.EncodeBinary(p)
	require.NoError(t, err)
	require.Error(t, testserdes.DecodeBinary(data, new(GetBlocks)))

	// invalid count
	p = NewGetBlocks(start, 0)
	data, err = testserdes.EncodeBinary(p)
	require.NoError(t, err)
	require.Error(t, testserdes.DecodeBinary(data, new(GetBlocks)))
}

func TestGetBlockByIndexEncodeDecode(t *testing.T) {
	d := NewGetBlockByIndex(123, 100)
	testserdes.EncodeDecodeBinary(t, d, new(GetBlockByIndex))

	// invalid count
	d = NewGetBlockByIndex(5, 0)
	data, err := testserdes.EncodeBinary(d)
	require.NoError(t, err)
	require.Error(t, testserdes.DecodeBinary(data, new(GetBlockByIndex)))
}
