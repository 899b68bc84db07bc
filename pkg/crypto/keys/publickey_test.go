package keys

import (
	"crypto/elliptic"
	"encoding/hex"
	"encoding/json"
	"sort"
	"testing"

	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeInfinity(t *testing.T) {
	key := &PublicKey{}
	b := key.Bytes()
	require.Equal(t, 1, len(b))

	keyDecode, err := NewPublicKeyFromBytes(b, elliptic.P256())
	require.NoError(t, err)
	require.True(t, keyDecode.IsInfinity())
	require.Equal(t, []byte{0x00}, keyDecode.Bytes())
}

func TestEncodeDecodePublicKey(t *testing.T) {
	for i := 0; i < 4; i++ {
		k, err := NewPrivateKey()
		require.NoError(t, err)
		p := k.PublicKey()

		b := p.Bytes()
		require.Equal(t, 33, len(b))
		p2, err := NewPublicKeyFromBytes(b, elliptic.P256())
		require.NoError(t, err)
		require.True(t, p.Equal(p2))

		ub := p.UncompressedBytes()
		require.Equal(t, 65, len(ub))
		p3, err := NewPublicKeyFromBytes(ub, elliptic.P256())
		require.NoError(t, err)
		require.True(t, p.Equal(p3))

		p4, err := NewPublicKeyFromString(hex.EncodeToString(b))
		require.NoError(t, err)
		require.True(t, p.Equal(p4))
	}
}

func TestDecodeBytesErrors(t *testing.T) {
	key := &PublicKey{}

	// Wrong length.
	require.Error(t, key.DecodeBytes([]byte{0x02, 1, 2, 3}, elliptic.P256()))
	// Wrong prefix for the compressed form.
	b := make([]byte, 33)
	b[0] = 0x07
	require.Error(t, key.DecodeBytes(b, elliptic.P256()))
	// Wrong prefix for the uncompressed form.
	b = make([]byte, 65)
	b[0] = 0x05
	require.Error(t, key.DecodeBytes(b, elliptic.P256()))
	// Bad infinity encoding.
	require.Error(t, key.DecodeBytes([]byte{0x01}, elliptic.P256()))
	// Zero point is not on the curve.
	b = make([]byte, 65)
	b[0] = 0x04
	require.Error(t, key.DecodeBytes(b, elliptic.P256()))
}

func TestDecodeBinary(t *testing.T) {
	k, err := NewPrivateKey()
	require.NoError(t, err)
	p := k.PublicKey()

	buf := io.NewBufBinWriter()
	p.EncodeBinary(buf.BinWriter)
	require.NoError(t, buf.Err)

	r := io.NewBinReaderFromBuf(buf.Bytes())
	var out PublicKey
	out.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.True(t, p.Equal(&out))
}

func TestDecodeBinaryBadPrefix(t *testing.T) {
	r := io.NewBinReaderFromBuf([]byte{0x07, 1, 2, 3})
	var out PublicKey
	out.DecodeBinary(r)
	require.Error(t, r.Err)
}

func TestPublicKeysSortUnique(t *testing.T) {
	keys := PublicKeys{}
	for i := 0; i < 5; i++ {
		k, err := NewPrivateKey()
		require.NoError(t, err)
		keys = append(keys, k.PublicKey())
	}
	// Duplicate one key.
	keys = append(keys, keys[0])

	require.True(t, keys.Contains(keys[0]))
	require.Equal(t, 5, len(keys.Unique()))

	sort.Sort(keys)
	for i := 0; i < len(keys)-1; i++ {
		require.True(t, keys[i].Cmp(keys[i+1]) <= 0)
	}

	cp := keys.Copy()
	require.Equal(t, keys, cp)
}

func TestPublicKeysBytesDecode(t *testing.T) {
	keys := PublicKeys{}
	for i := 0; i < 3; i++ {
		k, err := NewPrivateKey()
		require.NoError(t, err)
		keys = append(keys, k.PublicKey())
	}

	b := keys.Bytes()
	var out PublicKeys
	require.NoError(t, out.DecodeBytes(b))
	require.Equal(t, len(keys), len(out))
	for i := range keys {
		require.True(t, keys[i].Equal(out[i]))
	}
}

func TestGetVerificationScript(t *testing.T) {
	k, err := NewPrivateKey()
	require.NoError(t, err)
	p := k.PublicKey()

	script := p.GetVerificationScript()
	require.Equal(t, 40, len(script))
	assert.Equal(t, byte(0x0C), script[0]) // PUSHDATA1
	assert.Equal(t, byte(33), script[1])
	assert.Equal(t, byte(0x41), script[35]) // SYSCALL
}

func TestMarshalJSON(t *testing.T) {
	k, err := NewPrivateKey()
	require.NoError(t, err)
	p := k.PublicKey()

	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.Equal(t, `"`+hex.EncodeToString(p.Bytes())+`"`, string(data))

	var out PublicKey
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, p.Equal(&out))
}

func TestUnmarshalJSONErrors(t *testing.T) {
	var out PublicKey
	require.Error(t, json.Unmarshal([]byte(`10`), &out))
	require.Error(t, json.Unmarshal([]byte(`"zzzz"`), &out))
	require.Error(t, json.Unmarshal([]byte(`"abcd"`), &out))
}

func TestVerifyBadInputs(t *testing.T) {
	k, err := NewPrivateKey()
	require.NoError(t, err)
	p := k.PublicKey()

	digest := hashData([]byte("sample"))
	sig := k.Sign([]byte("sample"))
	require.True(t, p.Verify(sig, digest))

	// Truncated signature.
	require.False(t, p.Verify(sig[:63], digest))
	// Infinity point can't verify anything.
	inf := &PublicKey{}
	require.False(t, inf.Verify(sig, digest))
}
