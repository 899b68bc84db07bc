package block

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTx() *transaction.Transaction {
	tx := transaction.New([]byte{0x51}, 1)
	tx.Nonce = 12345
	tx.ValidUntilBlock = 100
	tx.Signers = []transaction.Signer{{
		Account: random.Uint160(),
		Scopes:  transaction.CalledByEntry,
	}}
	tx.Scripts = []transaction.Witness{{
		InvocationScript:   []byte{0x01},
		VerificationScript: []byte{0x51},
	}}
	return tx
}

func newTestBlock(t *testing.T, txCount int) *Block {
	b := New()
	b.Version = 0
	b.PrevHash = random.Uint256()
	b.Timestamp = 1627894840919
	b.Nonce = 1111
	b.Index = 22
	b.PrimaryIndex = 1
	b.NextConsensus = random.Uint160()
	b.Script = transaction.Witness{
		InvocationScript:   []byte{0x10},
		VerificationScript: []byte{0x51},
	}
	for i := 0; i < txCount; i++ {
		b.Transactions = append(b.Transactions, newTestTx())
	}
	b.RebuildMerkleRoot()
	return b
}

func TestHeaderEncodeDecode(t *testing.T) {
	header := newTestBlock(t, 0).Header

	expected := &header
	expected.Hash()
	actual := new(Header)
	testserdes.EncodeDecodeBinary(t, expected, actual)

	assert.Equal(t, expected.Version, actual.Version)
	assert.Equal(t, expected.PrevHash, actual.PrevHash)
	assert.Equal(t, expected.MerkleRoot, actual.MerkleRoot)
	assert.Equal(t, expected.Timestamp, actual.Timestamp)
	assert.Equal(t, expected.Nonce, actual.Nonce)
	assert.Equal(t, expected.Index, actual.Index)
	assert.Equal(t, expected.PrimaryIndex, actual.PrimaryIndex)
	assert.Equal(t, expected.NextConsensus, actual.NextConsensus)
	assert.Equal(t, expected.Hash(), actual.Hash())
}

func TestHeaderDecodeInvalidWitnessCount(t *testing.T) {
	header := newTestBlock(t, 0).Header

	buf := io.NewBufBinWriter()
	header.encodeHashableFields(buf.BinWriter)
	buf.BinWriter.WriteVarUint(2)
	header.Script.EncodeBinary(buf.BinWriter)
	header.Script.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	require.Error(t, testserdes.DecodeBinary(buf.Bytes(), new(Header)))
}

func TestBlockEncodeDecode(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		b := newTestBlock(t, 2)
		expected, err := testserdes.EncodeBinary(b)
		require.NoError(t, err)

		actual := New()
		require.NoError(t, testserdes.DecodeBinary(expected, actual))
		require.Equal(t, b.Hash(), actual.Hash())
		require.Equal(t, 2, len(actual.Transactions))
		require.Equal(t, b.Transactions[0].Hash(), actual.Transactions[0].Hash())
	})

	t.Run("bad merkle root is not rejected by codec", func(t *testing.T) {
		b := newTestBlock(t, 1)
		b.MerkleRoot = random.Uint256()
		b.hashed = false
		data, err := testserdes.EncodeBinary(b)
		require.NoError(t, err)
		actual := New()
		require.NoError(t, testserdes.DecodeBinary(data, actual))
		require.NotEqual(t, actual.ComputeMerkleRoot(), actual.MerkleRoot)
	})
}

func TestBlockHashExcludesWitness(t *testing.T) {
	b := newTestBlock(t, 1)
	h := b.Hash()

	b2 := newTestBlock(t, 1)
	b2.PrevHash = b.PrevHash
	b2.NextConsensus = b.NextConsensus
	b2.Transactions = b.Transactions
	b2.RebuildMerkleRoot()
	b2.Script.InvocationScript = []byte{0x42, 0x42}

	require.Equal(t, h, b2.Hash())
}

func TestMerkleRoot(t *testing.T) {
	b := newTestBlock(t, 0)
	require.Equal(t, util.Uint256{}, b.MerkleRoot)

	b.Transactions = append(b.Transactions, newTestTx())
	b.RebuildMerkleRoot()
	require.Equal(t, b.Transactions[0].Hash(), b.MerkleRoot)

	b.Transactions = append(b.Transactions, newTestTx())
	b.RebuildMerkleRoot()
	require.NotEqual(t, util.Uint256{}, b.MerkleRoot)
}

func TestTrimmedBlock(t *testing.T) {
	block := newTestBlock(t, 3)

	b, err := block.Trim()
	require.NoError(t, err)

	r := io.NewBinReaderFromBuf(b)
	trimmedBlock, err := NewTrimmedFromReader(r)
	require.NoError(t, err)

	assert.True(t, trimmedBlock.Trimmed)
	assert.Equal(t, block.Version, trimmedBlock.Version)
	assert.Equal(t, block.PrevHash, trimmedBlock.PrevHash)
	assert.Equal(t, block.MerkleRoot, trimmedBlock.MerkleRoot)
	assert.Equal(t, block.Timestamp, trimmedBlock.Timestamp)
	assert.Equal(t, block.Index, trimmedBlock.Index)
	assert.Equal(t, block.NextConsensus, trimmedBlock.NextConsensus)
	assert.Equal(t, block.Script, trimmedBlock.Script)
	assert.Equal(t, len(block.Transactions), len(trimmedBlock.Transactions))
	for i := range block.Transactions {
		assert.Equal(t, block.Transactions[i].Hash(), trimmedBlock.Transactions[i].Hash())
		assert.True(t, trimmedBlock.Transactions[i].Trimmed)
	}
	assert.Equal(t, block.Hash(), trimmedBlock.Hash())
}
