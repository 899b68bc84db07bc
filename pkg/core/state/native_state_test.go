package state

import (
	"math/big"
	"testing"

	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/stretchr/testify/require"
)

func TestNEP17BalanceBytes(t *testing.T) {
	var b NEP17Balance
	b.Balance.SetInt64(10012)

	data := b.Bytes()
	res, err := NEP17BalanceFromBytes(data)
	require.NoError(t, err)
	require.Equal(t, int64(10012), res.Balance.Int64())

	t.Run("empty", func(t *testing.T) {
		res, err := NEP17BalanceFromBytes(nil)
		require.NoError(t, err)
		require.Equal(t, int64(0), res.Balance.Int64())
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := NEP17BalanceFromBytes([]byte{0xFF, 0xDE, 0xAD})
		require.Error(t, err)
	})
}

func TestNEOBalanceBytes(t *testing.T) {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)

	var b NEOBalance
	b.Balance.SetInt64(100500)
	b.BalanceHeight = 42
	b.VoteTo = k.PublicKey()
	b.LastGasPerVote = *big.NewInt(7)

	data := b.Bytes()
	res, err := NEOBalanceFromBytes(data)
	require.NoError(t, err)
	require.Equal(t, b.Balance, res.Balance)
	require.Equal(t, b.BalanceHeight, res.BalanceHeight)
	require.True(t, b.VoteTo.Equal(res.VoteTo))
	require.Equal(t, b.LastGasPerVote, res.LastGasPerVote)

	t.Run("NoVote", func(t *testing.T) {
		b.VoteTo = nil
		res, err := NEOBalanceFromBytes(b.Bytes())
		require.NoError(t, err)
		require.Nil(t, res.VoteTo)
	})
}
