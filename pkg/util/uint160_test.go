package util

import (
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint160UnmarshalJSON(t *testing.T) {
	str := "0263c1de100292813b5e075e585acc1bae963b2d"
	expected, err := Uint160DecodeStringLE(str)
	require.NoError(t, err)

	var u1, u2 Uint160

	require.NoError(t, json.Unmarshal([]byte(`"`+str+`"`), &u1))
	require.True(t, expected.Equals(u1))

	require.NoError(t, json.Unmarshal([]byte(`"0x`+str+`"`), &u2))
	require.True(t, expected.Equals(u2))

	assert.Error(t, json.Unmarshal([]byte(`123`), &u1))
}

func TestUint160DecodeString(t *testing.T) {
	hexStr := "2d3b96ae1bcc5a585e075e3b81920010dec16302"
	val, err := Uint160DecodeStringBE(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, val.String())

	valLE, err := Uint160DecodeStringLE(hexStr)
	require.NoError(t, err)
	assert.Equal(t, val, valLE.Reverse())

	_, err = Uint160DecodeStringBE(hexStr[1:])
	assert.Error(t, err)

	_, err = Uint160DecodeStringLE(hexStr[1:])
	assert.Error(t, err)

	hexStr = "zz3b96ae1bcc5a585e075e3b81920010dec16302"
	_, err = Uint160DecodeStringBE(hexStr)
	assert.Error(t, err)

	_, err = Uint160DecodeStringLE(hexStr)
	assert.Error(t, err)
}

func TestUInt160DecodeBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	val, err := Uint160DecodeBytesBE(b)
	require.NoError(t, err)
	assert.Equal(t, b, val.BytesBE())

	valLE, err := Uint160DecodeBytesLE(b)
	require.NoError(t, err)
	assert.Equal(t, b, valLE.BytesLE())

	_, err = Uint160DecodeBytesLE(b[1:])
	assert.Error(t, err)

	_, err = Uint160DecodeBytesBE(b[1:])
	assert.Error(t, err)
}

func TestUInt160Equals(t *testing.T) {
	a := "2d3b96ae1bcc5a585e075e3b81920010dec16302"
	b := "4d3b96ae1bcc5a585e075e3b81920010dec16302"

	ua, err := Uint160DecodeStringBE(a)
	require.NoError(t, err)

	ub, err := Uint160DecodeStringBE(b)
	require.NoError(t, err)
	assert.False(t, ua.Equals(ub), "%s and %s cannot be equal", ua, ub)
	assert.True(t, ua.Equals(ua), "%s and %s must be equal", ua, ua)
}

func TestUInt160Less(t *testing.T) {
	a := "2d3b96ae1bcc5a585e075e3b81920010dec16302"
	b := "2d3b96ae1bcc5a585e075e3b81920010dec16303"

	ua, err := Uint160DecodeStringBE(a)
	require.NoError(t, err)

	ua2, err := Uint160DecodeStringBE(a)
	require.NoError(t, err)

	ub, err := Uint160DecodeStringBE(b)
	require.NoError(t, err)
	assert.Equal(t, true, ua.Less(ub))
	assert.Equal(t, false, ua.Less(ua2))
	assert.Equal(t, false, ub.Less(ua))
}

func TestUInt160Sort(t *testing.T) {
	us := []Uint160{
		{3, 2, 1},
		{2, 1, 0},
		{1, 2, 3},
	}
	sort.Slice(us, func(i, j int) bool { return us[i].Less(us[j]) })
	assert.Equal(t, Uint160{1, 2, 3}, us[0])
	assert.Equal(t, Uint160{2, 1, 0}, us[1])
	assert.Equal(t, Uint160{3, 2, 1}, us[2])
}
