package payload

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/stretchr/testify/require"
)

func TestExtensibleEncodeDecode(t *testing.T) {
	expected := &Extensible{
		Category:        "test",
		ValidBlockStart: 12,
		ValidBlockEnd:   1234,
		Sender:          random.Uint160(),
		Data:            random.Bytes(4),
	}
	expected.Witness.InvocationScript = random.Bytes(3)
	expected.Witness.VerificationScript = random.Bytes(3)

	testserdes.EncodeDecodeBinary(t, expected, new(Extensible))

	t.Run("invalid padding", func(t *testing.T) {
		w := io.NewBufBinWriter()
		expected.encodeBinaryUnsigned(w.BinWriter)
		w.BinWriter.WriteB(42)
		expected.Witness.EncodeBinary(w.BinWriter)
		require.NoError(t, w.Err)

		actual := new(Extensible)
		require.Error(t, testserdes.DecodeBinary(w.Bytes(), actual))
	})
}

func TestExtensibleHashes(t *testing.T) {
	getExtensiblePair := func() (*Extensible, *Extensible) {
		p1 := NewExtensible()
		p1.Data = []byte{1, 2, 3}
		p2 := NewExtensible()
		p2.Data = []byte{3, 2, 1}
		return p1, p2
	}

	t.Run("Hash", func(t *testing.T) {
		p1, p2 := getExtensiblePair()
		require.NotEqual(t, p1.Hash(), p2.Hash())
		require.Equal(t, p1.Hash(), p1.Hash())
	})
}
