package core

import (
	"math/big"
	"testing"

	"github.com/r3e-network/neo-core/pkg/config/netmode"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm"
	"github.com/r3e-network/neo-core/pkg/vm/emit"
	"github.com/r3e-network/neo-core/pkg/vm/opcode"
	"github.com/stretchr/testify/require"
)

const (
	testSysFee = 10_0000_0000
	testNetFee = 1_0000_0000
)

// newSignedTx builds a transaction with the given script paid for and signed
// by the validator multisig account.
func newSignedTx(t *testing.T, bc *Blockchain, priv *keys.PrivateKey, nonce uint32, script []byte) *transaction.Transaction {
	verification, err := smartcontract.CreateDefaultMultiSigRedeemScript(keys.PublicKeys{priv.PublicKey()})
	require.NoError(t, err)

	tx := transaction.New(script, testSysFee)
	tx.Nonce = nonce
	tx.ValidUntilBlock = bc.BlockHeight() + 10
	tx.NetworkFee = testNetFee
	tx.Signers = []transaction.Signer{{
		Account: hash.Hash160(verification),
		Scopes:  transaction.CalledByEntry,
	}}

	sig := priv.SignHashable(uint32(netmode.UnitTestNet), tx)
	buf := io.NewBufBinWriter()
	emit.Bytes(buf.BinWriter, sig)
	require.NoError(t, buf.Err)
	tx.Scripts = []transaction.Witness{{
		InvocationScript:   buf.Bytes(),
		VerificationScript: verification,
	}}
	return tx
}

func TestNEOTransferThroughBlock(t *testing.T) {
	bc, priv := newTestChain(t)
	neo := bc.GetNatives().NEO

	from := bc.GetNatives().NEO.GetCommitteeAddress()
	to := util.Uint160{1, 2, 3}

	fromNEO, _ := bc.GetGoverningTokenBalance(from)
	require.Equal(t, big.NewInt(100_000_000), fromNEO)
	fromGAS := bc.GetUtilityTokenBalance(from)

	w := io.NewBufBinWriter()
	emit.AppCall(w.BinWriter, neo.Hash, "transfer", callflag.All, from, to, 10, nil)
	require.NoError(t, w.Err)

	tx := newSignedTx(t, bc, priv, 1, w.Bytes())
	b := newBlock(t, bc, priv, tx)

	// The transfer also realizes the sender's accumulated holder reward.
	bonus, err := neo.CalculateBonus(bc.dao, from, b.Index)
	require.NoError(t, err)
	primary := priv.PublicKey().GetScriptHash()
	primaryGAS := bc.GetUtilityTokenBalance(primary)

	require.NoError(t, bc.AddBlock(b))

	aer, err := bc.GetAppExecResult(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, vm.HaltState, aer.VMState, aer.FaultException)
	var transfers int
	for _, e := range aer.Events {
		if e.Name == "Transfer" && e.ScriptHash.Equals(neo.Hash) {
			transfers++
		}
	}
	require.Equal(t, 1, transfers)

	fromNEO, _ = bc.GetGoverningTokenBalance(from)
	require.Equal(t, big.NewInt(99_999_990), fromNEO)
	toNEO, _ := bc.GetGoverningTokenBalance(to)
	require.Equal(t, big.NewInt(10), toNEO)

	// The sender burns both fees, gets the holder reward realized by the
	// transfer, and the primary validator gets the network fee as a reward.
	feeDelta := new(big.Int).Sub(fromGAS, bc.GetUtilityTokenBalance(from))
	feeDelta.Add(feeDelta, bonus)
	require.Equal(t, big.NewInt(testSysFee+testNetFee), feeDelta)
	committeeReward := new(big.Int).Div(neo.GetGASPerBlock(bc.dao, b.Index), big.NewInt(10))
	primaryDelta := new(big.Int).Sub(bc.GetUtilityTokenBalance(primary), primaryGAS)
	require.Equal(t, new(big.Int).Add(big.NewInt(testNetFee), committeeReward), primaryDelta)

	gotTx, height, err := bc.GetTransaction(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), gotTx.Hash())
	require.Equal(t, b.Index, height)
}

func TestFaultedTransactionIsolated(t *testing.T) {
	bc, priv := newTestChain(t)

	from := bc.GetNatives().NEO.GetCommitteeAddress()
	fromGAS := bc.GetUtilityTokenBalance(from)

	// Division by zero faults the script.
	script := []byte{byte(opcode.PUSH0), byte(opcode.PUSH0), byte(opcode.DIV)}
	tx := newSignedTx(t, bc, priv, 2, script)
	b := newBlock(t, bc, priv, tx)
	require.NoError(t, bc.AddBlock(b))

	aer, err := bc.GetAppExecResult(tx.Hash())
	require.NoError(t, err)
	require.Equal(t, vm.FaultState, aer.VMState)
	require.NotEmpty(t, aer.FaultException)

	// Fees are still collected from the sender.
	feeDelta := new(big.Int).Sub(fromGAS, bc.GetUtilityTokenBalance(from))
	require.Equal(t, big.NewInt(testSysFee+testNetFee), feeDelta)

	_, _, err = bc.GetTransaction(tx.Hash())
	require.NoError(t, err)
	require.True(t, bc.HasTransaction(tx.Hash()))
}
