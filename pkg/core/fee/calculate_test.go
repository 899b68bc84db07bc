package fee

import (
	"testing"

	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
	"github.com/stretchr/testify/require"
)

func TestCalculateSignature(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	verification := priv.PublicKey().GetVerificationScript()

	netFee, size := Calculate(feeFactor, verification)
	require.EqualValues(t, 983520, netFee)
	require.Equal(t, 108, size)
}

func TestCalculateMultisig(t *testing.T) {
	pubs := make(keys.PublicKeys, 4)
	for i := 0; i < 4; i++ {
		priv, err := keys.NewPrivateKey()
		require.NoError(t, err)
		pubs[i] = priv.PublicKey()
	}
	verification, err := smartcontract.CreateMultiSigRedeemScript(3, pubs)
	require.NoError(t, err)
	require.Equal(t, 147, len(verification))

	netFee, size := Calculate(feeFactor, verification)
	require.EqualValues(t, 3933900, netFee)
	require.Equal(t, 347, size)
}

func TestCalculateUnknown(t *testing.T) {
	netFee, size := Calculate(feeFactor, []byte{0x40})
	require.EqualValues(t, 0, netFee)
	require.Equal(t, 0, size)
}
