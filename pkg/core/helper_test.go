package core

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/r3e-network/neo-core/pkg/config"
	"github.com/r3e-network/neo-core/pkg/config/netmode"
	"github.com/r3e-network/neo-core/pkg/core/block"
	"github.com/r3e-network/neo-core/pkg/core/storage"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
	"github.com/r3e-network/neo-core/pkg/vm/emit"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newTestChain creates a memory-backed Blockchain with a single-validator
// configuration and returns it together with the validator key.
func newTestChain(t *testing.T) (*Blockchain, *keys.PrivateKey) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	cfg := config.ProtocolConfiguration{
		Magic:              netmode.UnitTestNet,
		SecondsPerBlock:    1,
		StandbyCommittee:   []string{hex.EncodeToString(priv.PublicKey().Bytes())},
		ValidatorsCount:    1,
		VerifyTransactions: true,
	}
	bc, err := NewBlockchain(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(bc.Close)
	return bc, priv
}

// newBlock builds and signs the next block on top of the current chain tip.
func newBlock(t *testing.T, bc *Blockchain, priv *keys.PrivateKey, txs ...*transaction.Transaction) *block.Block {
	prev, err := bc.GetHeader(bc.CurrentBlockHash())
	require.NoError(t, err)

	b := &block.Block{
		Header: block.Header{
			PrevHash:      prev.Hash(),
			Timestamp:     prev.Timestamp + uint64(time.Second/time.Millisecond),
			Nonce:         prev.Nonce + 1,
			Index:         prev.Index + 1,
			NextConsensus: prev.NextConsensus,
			PrimaryIndex:  0,
		},
		Transactions: txs,
	}
	b.RebuildMerkleRoot()
	signBlock(t, b, priv)
	return b
}

func signBlock(t *testing.T, b *block.Block, priv *keys.PrivateKey) {
	verification, err := smartcontract.CreateDefaultMultiSigRedeemScript(keys.PublicKeys{priv.PublicKey()})
	require.NoError(t, err)

	sig := priv.SignHashable(uint32(netmode.UnitTestNet), b)
	buf := io.NewBufBinWriter()
	emit.Bytes(buf.BinWriter, sig)
	require.NoError(t, buf.Err)

	b.Script = transaction.Witness{
		InvocationScript:   buf.Bytes(),
		VerificationScript: verification,
	}
}
