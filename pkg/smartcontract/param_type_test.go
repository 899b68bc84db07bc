package smartcontract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParamType(t *testing.T) {
	var inouts = []struct {
		in  string
		out ParamType
		err bool
	}{
		{in: "signature", out: SignatureType},
		{in: "Signature", out: SignatureType},
		{in: "bool", out: BoolType},
		{in: "int", out: IntegerType},
		{in: "hash160", out: Hash160Type},
		{in: "hash256", out: Hash256Type},
		{in: "bytes", out: ByteArrayType},
		{in: "key", out: PublicKeyType},
		{in: "string", out: StringType},
		{in: "array", out: ArrayType},
		{in: "map", out: MapType},
		{in: "interopinterface", out: InteropInterfaceType},
		{in: "void", out: VoidType},
		{in: "any", out: AnyType},
		{in: "qwerty", err: true},
	}
	for _, inout := range inouts {
		out, err := ParseParamType(inout.in)
		if inout.err {
			assert.Error(t, err, "should error on '%s' input", inout.in)
		} else {
			assert.NoError(t, err, "should not error on '%s' input", inout.in)
			assert.Equal(t, inout.out, out, "bad output for '%s' input", inout.in)
		}
	}
}

func TestParamTypeJSON(t *testing.T) {
	for _, pt := range []ParamType{SignatureType, BoolType, IntegerType,
		Hash160Type, Hash256Type, ByteArrayType, PublicKeyType, StringType,
		ArrayType, MapType, InteropInterfaceType, VoidType, AnyType} {
		data, err := json.Marshal(pt)
		require.NoError(t, err)
		var out ParamType
		require.NoError(t, json.Unmarshal(data, &out))
		require.Equal(t, pt, out)
	}

	var out ParamType
	require.Error(t, json.Unmarshal([]byte(`"qwerty"`), &out))
}

func TestConvertToParamType(t *testing.T) {
	_, err := ConvertToParamType(0x01)
	require.Error(t, err)

	pt, err := ConvertToParamType(0x10)
	require.NoError(t, err)
	require.Equal(t, BoolType, pt)
}
