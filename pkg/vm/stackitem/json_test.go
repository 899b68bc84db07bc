package stackitem

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func getTestDecodeFunc(js string, expected ...any) func(t *testing.T) {
	return getTestDecodeEncodeFunc(js, true, expected...)
}

func getTestDecodeEncodeFunc(js string, needEncode bool, expected ...any) func(t *testing.T) {
	return func(t *testing.T) {
		actual, err := FromJSON([]byte(js), 20)
		if expected[0] == nil {
			require.Error(t, err)
			return
		}
		require.NoError(t, err)
		require.Equal(t, Make(expected[0]), actual)

		if needEncode && len(expected) == 1 {
			data, err := ToJSON(actual)
			require.NoError(t, err)
			require.Equal(t, js, string(data))
		}
	}
}

func TestFromToJSON(t *testing.T) {
	t.Run("ByteString", func(t *testing.T) {
		t.Run("Empty", getTestDecodeFunc(`""`, []byte{}))
		t.Run("Base64", getTestDecodeFunc(`"test"`, "test"))
		t.Run("Escape", getTestDecodeFunc(`"\"quotes\""`, `"quotes"`, false))
	})
	t.Run("BigInteger", func(t *testing.T) {
		t.Run("ZeroFloat", getTestDecodeFunc(`12.000`, 12, false))
		t.Run("NonZeroFloat", getTestDecodeFunc(`12.01`, nil))
		t.Run("Negative", getTestDecodeFunc(`-4`, -4))
		t.Run("Positive", getTestDecodeFunc(`123`, 123))
	})
	t.Run("Bool", func(t *testing.T) {
		t.Run("True", getTestDecodeFunc(`true`, true))
		t.Run("False", getTestDecodeFunc(`false`, false))
	})
	t.Run("Null", getTestDecodeFunc(`null`, Null{}))
	t.Run("Array", func(t *testing.T) {
		t.Run("Empty", getTestDecodeFunc(`[]`, []Item{}))
		t.Run("Simple", getTestDecodeFunc(`[1,"test",true,null]`,
			[]Item{Make(1), Make("test"), Make(true), Null{}}))
		t.Run("Nested", getTestDecodeFunc(`[[],[{},null]]`,
			[]Item{NewArray([]Item{}), NewArray([]Item{NewMap(), Null{}})}))
	})
	t.Run("Map", func(t *testing.T) {
		small := NewMap()
		small.Add(NewByteArray([]byte("a")), Make(3))
		large := NewMap()
		large.Add(NewByteArray([]byte("3")), small)
		large.Add(NewByteArray([]byte("arr")), NewArray([]Item{Make("test")}))
		t.Run("Empty", getTestDecodeFunc(`{}`, NewMap()))
		t.Run("Small", getTestDecodeFunc(`{"a":3}`, small))
		t.Run("Big", getTestDecodeFunc(`{"3":{"a":3},"arr":["test"]}`, large))
	})
	t.Run("Invalid", func(t *testing.T) {
		t.Run("Empty", getTestDecodeFunc(``, nil))
		t.Run("UnexpectedEOF", getTestDecodeFunc(`[]]`, nil))
		t.Run("ItemsAfterValue", getTestDecodeFunc(`{}{}`, nil))
	})
}

func TestFromJSONLimits(t *testing.T) {
	_, err := FromJSON([]byte(`[1,2,3]`), 3)
	require.ErrorIs(t, err, ErrTooBig)

	item, err := FromJSON([]byte(`[1,2,3]`), 4)
	require.NoError(t, err)
	require.Equal(t, 3, item.(*Array).Len())

	t.Run("depth", func(t *testing.T) {
		js := `[[[[[[[[[[[[1]]]]]]]]]]]]`
		_, err := FromJSON([]byte(js), 100)
		require.ErrorIs(t, err, ErrTooDeep)
	})
}

func TestToJSONErrors(t *testing.T) {
	t.Run("big integer", func(t *testing.T) {
		bi := new(big.Int).Lsh(big.NewInt(1), 54)
		_, err := ToJSON(NewBigInteger(bi))
		require.ErrorIs(t, err, ErrInvalidValue)
	})
	t.Run("interop", func(t *testing.T) {
		_, err := ToJSON(NewInterop(nil))
		require.ErrorIs(t, err, ErrUnserializable)
	})
	t.Run("non UTF-8 bytes", func(t *testing.T) {
		_, err := ToJSON(NewByteArray([]byte{0xFF}))
		require.ErrorIs(t, err, ErrInvalidValue)
	})
	t.Run("recursive", func(t *testing.T) {
		arr := NewArray(nil)
		arr.Append(arr)
		_, err := ToJSON(arr)
		require.ErrorIs(t, err, ErrRecursive)
	})
}

func testToFromJSONWithTypes(t *testing.T, item Item, expectedJSON string) {
	data, err := ToJSONWithTypes(item)
	require.NoError(t, err)
	require.Equal(t, expectedJSON, string(data))

	actual, err := FromJSONWithTypes(data)
	require.NoError(t, err)
	require.Equal(t, item, actual)
}

func TestToJSONWithTypes(t *testing.T) {
	testCases := []struct {
		name string
		item Item
		json string
	}{
		{"Null", Null{}, `{"type":"Any"}`},
		{"Integer", NewBigInteger(big.NewInt(42)), `{"type":"Integer","value":"42"}`},
		{"ByteString", NewByteArray([]byte{1, 2, 3}), `{"type":"ByteString","value":"AQID"}`},
		{"Buffer", NewBuffer([]byte{1, 2, 3}), `{"type":"Buffer","value":"AQID"}`},
		{"BoolTrue", NewBool(true), `{"type":"Boolean","value":true}`},
		{"BoolFalse", NewBool(false), `{"type":"Boolean","value":false}`},
		{"Array", NewArray([]Item{NewBigInteger(big.NewInt(1)), Null{}}),
			`{"type":"Array","value":[{"type":"Integer","value":"1"},{"type":"Any"}]}`},
		{"EmptyArray", NewArray([]Item{}), `{"type":"Array","value":[]}`},
		{"Struct", NewStruct([]Item{NewBool(true)}),
			`{"type":"Struct","value":[{"type":"Boolean","value":true}]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			testToFromJSONWithTypes(t, tc.item, tc.json)
		})
	}
	t.Run("Map", func(t *testing.T) {
		m := NewMap()
		m.Add(NewBool(true), NewBigInteger(big.NewInt(3)))
		testToFromJSONWithTypes(t, m,
			`{"type":"Map","value":[{"key":{"type":"Boolean","value":true},"value":{"type":"Integer","value":"3"}}]}`)
	})
	t.Run("Interop", func(t *testing.T) {
		data, err := ToJSONWithTypes(NewInterop(nil))
		require.NoError(t, err)
		require.Equal(t, `{"type":"InteropInterface"}`, string(data))
	})
	t.Run("recursive", func(t *testing.T) {
		arr := NewArray(nil)
		arr.Append(arr)
		_, err := ToJSONWithTypes(arr)
		require.Error(t, err)
	})
}

func TestFromJSONWithTypesErrors(t *testing.T) {
	testCases := []string{
		`{"type":"Unknown"}`,
		`{"type":"Integer","value":"not a number"}`,
		`{"type":"ByteString","value":"not base64!"}`,
		`{"type":"Map","value":[{"key":{"type":"Array","value":[]},"value":{"type":"Any"}}]}`,
	}
	for _, js := range testCases {
		_, err := FromJSONWithTypes([]byte(js))
		require.Error(t, err, js)
	}
}
