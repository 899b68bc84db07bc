package smartcontract

import (
	"testing"

	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSignatureRedeemScript(t *testing.T) {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)

	script, err := CreateSignatureRedeemScript(k.PublicKey())
	require.NoError(t, err)
	require.Equal(t, k.PublicKey().GetVerificationScript(), script)
}

func TestCreateMultiSigRedeemScript(t *testing.T) {
	var pubs keys.PublicKeys
	for i := 0; i < 3; i++ {
		k, err := keys.NewPrivateKey()
		require.NoError(t, err)
		pubs = append(pubs, k.PublicKey())
	}

	script, err := CreateMultiSigRedeemScript(2, pubs)
	require.NoError(t, err)
	// PUSH2; 3 keys 35 bytes each; PUSH3; SYSCALL.
	assert.Equal(t, 1+3*35+1+5, len(script))
	assert.Equal(t, byte(0x12), script[0]) // PUSH2

	// Too many signatures.
	_, err = CreateMultiSigRedeemScript(4, pubs)
	require.Error(t, err)
	// Invalid m.
	_, err = CreateMultiSigRedeemScript(0, pubs)
	require.Error(t, err)
}

func TestHonestNodeCounts(t *testing.T) {
	assert.Equal(t, 5, GetDefaultHonestNodeCount(7))
	assert.Equal(t, 15, GetDefaultHonestNodeCount(21))
	assert.Equal(t, 4, GetMajorityHonestNodeCount(7))
	assert.Equal(t, 11, GetMajorityHonestNodeCount(21))
}
