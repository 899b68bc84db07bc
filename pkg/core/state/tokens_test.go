package state

import (
	"math/big"
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/stretchr/testify/require"
)

func TestNEP17TransferLog_Append(t *testing.T) {
	lg := new(TokenTransferLog)
	require.Equal(t, 0, lg.Size())

	var transfers []*NEP17Transfer
	for i := 0; i < 3; i++ {
		tr := &NEP17Transfer{
			Asset:        int32(i),
			Counterparty: random.Uint160(),
			Amount:       *big.NewInt(int64(i * 100)),
			Block:        uint32(10 + i),
			Timestamp:    12345,
			Tx:           random.Uint256(),
		}
		require.NoError(t, lg.Append(tr))
		transfers = append(transfers, tr)
	}
	require.Equal(t, 3, lg.Size())

	// iteration is in reverse order
	i := len(transfers) - 1
	cont, err := lg.ForEachNEP17(func(tr *NEP17Transfer) (bool, error) {
		require.Equal(t, transfers[i].Asset, tr.Asset)
		require.Equal(t, transfers[i].Counterparty, tr.Counterparty)
		require.Equal(t, transfers[i].Amount.Int64(), tr.Amount.Int64())
		require.Equal(t, transfers[i].Tx, tr.Tx)
		i--
		return true, nil
	})
	require.NoError(t, err)
	require.True(t, cont)
	require.Equal(t, -1, i)

	t.Run("early exit", func(t *testing.T) {
		var seen int
		cont, err := lg.ForEachNEP17(func(tr *NEP17Transfer) (bool, error) {
			seen++
			return false, nil
		})
		require.NoError(t, err)
		require.False(t, cont)
		require.Equal(t, 1, seen)
	})
}

func TestNEP17TransferSerDes(t *testing.T) {
	expected := &NEP17Transfer{
		Asset:        123,
		Counterparty: random.Uint160(),
		Amount:       *big.NewInt(-10000),
		Block:        88,
		Timestamp:    100500,
		Tx:           random.Uint256(),
	}
	actual := new(NEP17Transfer)
	testserdes.EncodeDecodeBinary(t, expected, actual)
	require.Equal(t, -1, actual.Amount.Sign())
}
