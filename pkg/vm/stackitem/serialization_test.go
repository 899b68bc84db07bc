package stackitem

import (
	"math/big"
	"testing"

	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/stretchr/testify/require"
)

func TestSerializationRoundtrip(t *testing.T) {
	testCases := []Item{
		Null{},
		NewBool(true),
		NewBool(false),
		NewBigInteger(big.NewInt(0)),
		NewBigInteger(big.NewInt(-100500)),
		NewByteArray([]byte{}),
		NewByteArray([]byte{1, 2, 3}),
		NewBuffer([]byte{4, 5, 6}),
		NewArray([]Item{NewBool(true), NewByteArray([]byte{1})}),
		NewStruct([]Item{NewBigInteger(big.NewInt(7)), Null{}}),
	}
	for _, expected := range testCases {
		t.Run(expected.String(), func(t *testing.T) {
			data, err := Serialize(expected)
			require.NoError(t, err)
			actual, err := Deserialize(data)
			require.NoError(t, err)
			require.Equal(t, expected.Type(), actual.Type())
			require.Equal(t, expected.Value(), actual.Value())
		})
	}
	t.Run("Map", func(t *testing.T) {
		m := NewMap()
		m.Add(NewByteArray([]byte("key")), NewBigInteger(big.NewInt(42)))
		m.Add(NewBool(true), Null{})
		data, err := Serialize(m)
		require.NoError(t, err)
		actual, err := Deserialize(data)
		require.NoError(t, err)
		require.Equal(t, MapT, actual.Type())
		elems := actual.(*Map).Value().([]MapElement)
		require.Len(t, elems, 2)
		require.Equal(t, []byte("key"), elems[0].Key.Value())
		require.Equal(t, big.NewInt(42), elems[0].Value.Value())
	})
}

func TestSerializationErrors(t *testing.T) {
	t.Run("recursive array", func(t *testing.T) {
		arr := NewArray(nil)
		arr.Append(arr)
		_, err := Serialize(arr)
		require.ErrorIs(t, err, ErrRecursive)
	})
	t.Run("interop", func(t *testing.T) {
		_, err := Serialize(NewInterop(42))
		require.ErrorIs(t, err, ErrUnserializable)
	})
	t.Run("pointer", func(t *testing.T) {
		_, err := Serialize(NewPointer(0, []byte{1}))
		require.ErrorIs(t, err, ErrUnserializable)
	})
	t.Run("too big byte array", func(t *testing.T) {
		_, err := Serialize(NewByteArray(make([]byte, MaxSize)))
		require.ErrorIs(t, err, ErrTooBig)
	})
	t.Run("too big nested", func(t *testing.T) {
		ba := NewByteArray(make([]byte, MaxSize/2))
		_, err := Serialize(NewArray([]Item{ba, ba, ba}))
		require.ErrorIs(t, err, ErrTooBig)
	})
}

func TestDuplicatesSerialized(t *testing.T) {
	// Shared subitems are flattened over the wire, deserialization produces
	// independent copies.
	inner := NewArray([]Item{NewByteArray([]byte{1, 2, 3})})
	arr := NewArray([]Item{inner, inner})
	data, err := Serialize(arr)
	require.NoError(t, err)
	actual, err := Deserialize(data)
	require.NoError(t, err)
	elems := actual.(*Array).Value().([]Item)
	require.Equal(t, elems[0].Value(), elems[1].Value())
}

func TestEncodeDecodeBinary(t *testing.T) {
	w := io.NewBufBinWriter()
	expected := NewArray([]Item{NewBigInteger(big.NewInt(123)), NewByteArray([]byte("abc"))})
	EncodeBinary(expected, w.BinWriter)
	require.NoError(t, w.Err)

	r := io.NewBinReaderFromBuf(w.Bytes())
	actual := DecodeBinary(r)
	require.NoError(t, r.Err)
	require.Equal(t, expected.Value(), actual.Value())
}

func TestEncodeBinaryProtected(t *testing.T) {
	w := io.NewBufBinWriter()
	arr := NewArray(nil)
	arr.Append(arr)
	EncodeBinaryProtected(arr, w.BinWriter)
	require.NoError(t, w.Err)
	require.Equal(t, []byte{byte(InvalidT)}, w.Bytes())

	w.Reset()
	EncodeBinaryProtected(NewArray([]Item{NewInterop(nil), NewBool(true)}), w.BinWriter)
	require.NoError(t, w.Err)

	r := io.NewBinReaderFromBuf(w.Bytes())
	actual := DecodeBinaryProtected(r)
	require.NoError(t, r.Err)
	elems := actual.(*Array).Value().([]Item)
	require.Equal(t, InteropT, elems[0].Type())
	require.Equal(t, NewBool(true), elems[1])
}

func TestDeserializeLimits(t *testing.T) {
	items := make([]Item, MaxDeserialized)
	for i := range items {
		items[i] = NewBool(true)
	}
	data, err := SerializeLimited(NewArray(items), MaxSize*4)
	require.NoError(t, err)
	_, err = Deserialize(data)
	require.ErrorIs(t, err, ErrTooBig)

	small := make([]Item, 10)
	for i := range small {
		small[i] = NewBool(false)
	}
	data, err = Serialize(NewArray(small))
	require.NoError(t, err)
	_, err = Deserialize(data)
	require.NoError(t, err)
	_, err = DeserializeLimited(data, 5)
	require.ErrorIs(t, err, ErrTooBig)
}

func TestSerializationContextReuse(t *testing.T) {
	sc := NewSerializationContext()
	d1, err := sc.Serialize(NewBool(true), false)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(BooleanT), 1}, d1)

	d2, err := sc.Serialize(NewByteArray([]byte{1, 2}), false)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(ByteArrayT), 2, 1, 2}, d2)

	arr := NewArray(nil)
	arr.Append(arr)
	d3, err := sc.Serialize(arr, true)
	require.NoError(t, err)
	require.Equal(t, []byte{byte(InvalidT)}, d3)
}
