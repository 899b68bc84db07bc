package core

import (
	"encoding/hex"
	"testing"

	"github.com/r3e-network/neo-core/pkg/config"
	"github.com/r3e-network/neo-core/pkg/config/netmode"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestCreateGenesisBlock(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	cfg := config.ProtocolConfiguration{
		Magic:            netmode.UnitTestNet,
		StandbyCommittee: []string{hex.EncodeToString(priv.PublicKey().Bytes())},
		ValidatorsCount:  1,
	}
	require.NoError(t, cfg.Validate())

	b, err := CreateGenesisBlock(cfg)
	require.NoError(t, err)

	require.EqualValues(t, 0, b.Index)
	require.EqualValues(t, 2083236893, b.Nonce)
	require.Equal(t, util.Uint256{}, b.PrevHash)
	require.NotEqual(t, util.Uint160{}, b.NextConsensus)
	require.Empty(t, b.Transactions)
	require.Equal(t, b.ComputeMerkleRoot(), b.MerkleRoot)

	// The genesis hash is a pure function of the validator set.
	b2, err := CreateGenesisBlock(cfg)
	require.NoError(t, err)
	require.Equal(t, b.Hash(), b2.Hash())
}

func TestValidatorsFromConfig(t *testing.T) {
	priv1, err := keys.NewPrivateKey()
	require.NoError(t, err)
	priv2, err := keys.NewPrivateKey()
	require.NoError(t, err)

	cfg := config.ProtocolConfiguration{
		StandbyCommittee: []string{
			hex.EncodeToString(priv1.PublicKey().Bytes()),
			hex.EncodeToString(priv2.PublicKey().Bytes()),
		},
		ValidatorsCount: 1,
	}
	vs, err := validatorsFromConfig(cfg)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	require.True(t, vs[0].Equal(priv1.PublicKey()))
}
