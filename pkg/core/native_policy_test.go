package core

import (
	"testing"

	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestPolicyDefaults(t *testing.T) {
	bc, _ := newTestChain(t)
	pol := bc.GetNatives().Policy

	require.EqualValues(t, 1000, bc.FeePerByte())
	require.EqualValues(t, 30, pol.GetExecFeeFactorInternal(bc.dao))
	require.EqualValues(t, 100000, pol.GetStoragePriceInternal(bc.dao))
	require.False(t, pol.IsBlockedInternal(bc.dao, util.Uint160{1, 2, 3}))
}

func TestPolicyBlockedAccounts(t *testing.T) {
	bc, _ := newTestChain(t)
	pol := bc.GetNatives().Policy
	d := bc.dao.GetWrapped()

	acc := util.Uint160{1, 2, 3}
	require.True(t, pol.BlockAccountInternal(d, acc))
	require.True(t, pol.IsBlockedInternal(d, acc))

	// Blocking twice reports failure.
	require.False(t, pol.BlockAccountInternal(d, acc))

	tx := transaction.New([]byte{1}, 0)
	tx.Signers = []transaction.Signer{{Account: acc}}
	require.Error(t, pol.CheckPolicy(d, tx))

	tx.Signers = []transaction.Signer{{Account: util.Uint160{9}}}
	require.NoError(t, pol.CheckPolicy(d, tx))
}
