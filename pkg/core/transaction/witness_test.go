package transaction

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/stretchr/testify/require"
)

func TestWitnessSerDes(t *testing.T) {
	expected := &Witness{
		InvocationScript:   []byte{1, 2, 3},
		VerificationScript: []byte{4, 5},
	}
	actual := &Witness{}
	testserdes.EncodeDecodeBinary(t, expected, actual)
	require.Equal(t, hash.Hash160(expected.VerificationScript), actual.ScriptHash())
}

func TestWitnessCopy(t *testing.T) {
	w := Witness{
		InvocationScript:   []byte{1, 2, 3},
		VerificationScript: []byte{4, 5},
	}
	cp := w.Copy()
	require.Equal(t, w, cp)
	cp.InvocationScript[0] = 0xFF
	require.NotEqual(t, w.InvocationScript, cp.InvocationScript)
}

func TestScopesFromString(t *testing.T) {
	s, err := ScopesFromString("Global")
	require.NoError(t, err)
	require.Equal(t, Global, s)

	s, err = ScopesFromString("CalledByEntry, CustomContracts")
	require.NoError(t, err)
	require.Equal(t, CalledByEntry|CustomContracts, s)

	_, err = ScopesFromString("Global, CalledByEntry")
	require.Error(t, err)

	_, err = ScopesFromString("Whatever")
	require.Error(t, err)
}
