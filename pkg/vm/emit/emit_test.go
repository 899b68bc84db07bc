package emit

import (
	"encoding/binary"
	"errors"
	"math/big"
	"testing"

	"github.com/r3e-network/neo-core/pkg/core/interop/interopnames"
	"github.com/r3e-network/neo-core/pkg/encoding/bigint"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/opcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitInt(t *testing.T) {
	t.Run("1-byte int", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, 10)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSH10, result[0])
	})

	t.Run("0", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, 0)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSH0, result[0])
	})

	t.Run("16", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, 16)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSH16, result[0])
	})

	t.Run("-1", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, -1)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSHM1, result[0])
	})

	t.Run("big 1-byte int", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, 42)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSHINT8, result[0])
		assert.EqualValues(t, 42, result[1])
	})

	t.Run("2-byte int", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, 300)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSHINT16, result[0])
		assert.EqualValues(t, 300, binary.LittleEndian.Uint16(result[1:]))
	})

	t.Run("negative 3-byte int with padding", func(t *testing.T) {
		const num = -(1 << 23)
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, num)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSHINT32, result[0])
		assert.EqualValues(t, num, int32(binary.LittleEndian.Uint32(result[1:])))
	})

	t.Run("8-byte int", func(t *testing.T) {
		const num = 1 << 40
		buf := io.NewBufBinWriter()
		Int(buf.BinWriter, num)
		result := buf.Bytes()
		assert.EqualValues(t, opcode.PUSHINT64, result[0])
		assert.EqualValues(t, num, binary.LittleEndian.Uint64(result[1:]))
	})
}

func TestEmitBigInt(t *testing.T) {
	t.Run("biggest positive number", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		bi := new(big.Int).Lsh(big.NewInt(1), 255)
		bi.Sub(bi, big.NewInt(1))

		// sanity check
		require.NotPanics(t, func() { _ = bigint.ToBytes(bi) })

		BigInt(buf.BinWriter, bi)
		require.NoError(t, buf.Err)

		expected := make([]byte, 33)
		expected[0] = byte(opcode.PUSHINT256)
		for i := 1; i < 32; i++ {
			expected[i] = 0xFF
		}
		expected[32] = 0x7F
		require.Equal(t, expected, buf.Bytes())
	})
	t.Run("smallest negative number", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		bi := new(big.Int).Lsh(big.NewInt(1), 255)
		bi.Neg(bi)

		BigInt(buf.BinWriter, bi)
		require.NoError(t, buf.Err)

		expected := make([]byte, 33)
		expected[0] = byte(opcode.PUSHINT256)
		expected[32] = 0x80
		require.Equal(t, expected, buf.Bytes())
	})
	t.Run("too big number", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		bi := new(big.Int).Lsh(big.NewInt(1), 256)

		BigInt(buf.BinWriter, bi)
		require.Error(t, buf.Err)
	})
	t.Run("small number goes as opcode", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		BigInt(buf.BinWriter, big.NewInt(7))
		require.NoError(t, buf.Err)
		require.Equal(t, []byte{byte(opcode.PUSH7)}, buf.Bytes())
	})
}

func TestBytes(t *testing.T) {
	t.Run("small slice", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Bytes(buf.BinWriter, []byte{0xCA, 0xFE})
		require.NoError(t, buf.Err)
		require.Equal(t, []byte{byte(opcode.PUSHDATA1), 2, 0xCA, 0xFE}, buf.Bytes())
	})
	t.Run("big slice", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Bytes(buf.BinWriter, make([]byte, 0x100))
		require.NoError(t, buf.Err)
		res := buf.Bytes()
		require.EqualValues(t, opcode.PUSHDATA2, res[0])
		require.EqualValues(t, 0x100, binary.LittleEndian.Uint16(res[1:]))
	})
}

func TestEmitBool(t *testing.T) {
	buf := io.NewBufBinWriter()
	Bool(buf.BinWriter, true)
	Bool(buf.BinWriter, false)
	result := buf.Bytes()
	assert.EqualValues(t, opcode.PUSHT, result[0])
	assert.EqualValues(t, opcode.PUSHF, result[1])
}

func TestEmitString(t *testing.T) {
	buf := io.NewBufBinWriter()
	str := "City Of Zion"
	String(buf.BinWriter, str)
	assert.Equal(t, buf.Len(), len(str)+2)
	assert.Equal(t, buf.Bytes()[2:], []byte(str))
}

func TestEmitSyscall(t *testing.T) {
	syscalls := []string{
		interopnames.SystemRuntimeLog,
		interopnames.SystemRuntimeNotify,
		"System.Runtime.Whatever",
	}

	buf := io.NewBufBinWriter()
	for _, syscall := range syscalls {
		Syscall(buf.BinWriter, syscall)
		result := buf.Bytes()
		assert.Equal(t, 5, len(result))
		assert.Equal(t, result[0], byte(opcode.SYSCALL))
		assert.Equal(t, binary.LittleEndian.Uint32(result[1:]), interopnames.ToID([]byte(syscall)))
		buf.Reset()
	}

	t.Run("empty syscall", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Syscall(buf.BinWriter, "")
		assert.Error(t, buf.Err)
	})

	t.Run("empty syscall after error", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		err := errors.New("first error")

		buf.Err = err
		Syscall(buf.BinWriter, "System.Runtime.Log")
		assert.Equal(t, err, buf.Err)
	})
}

func TestJmp(t *testing.T) {
	const label = 0x23

	t.Run("correct", func(t *testing.T) {
		ops := []opcode.Opcode{opcode.JMP, opcode.JMPIFL, opcode.CALL, opcode.ENDTRYL}
		for i := range ops {
			t.Run(ops[i].String(), func(t *testing.T) {
				buf := io.NewBufBinWriter()
				Jmp(buf.BinWriter, ops[i], label)
				assert.NoError(t, buf.Err)

				result := buf.Bytes()
				assert.EqualValues(t, ops[i], result[0])
				assert.EqualValues(t, 0x23, binary.LittleEndian.Uint16(result[1:]))
			})
		}
	})

	t.Run("not a jump instruction", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Jmp(buf.BinWriter, opcode.ABORT, label)
		assert.Error(t, buf.Err)
	})
}

func TestEmitArray(t *testing.T) {
	t.Run("good cases", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		u160 := util.Uint160{1, 2, 3}
		u256 := util.Uint256{1, 2, 3}
		veryBig := new(big.Int).SetUint64(1 << 63)
		Array(buf.BinWriter, u160, u256, big.NewInt(0), veryBig,
			[]any{int16(1), int32(2)}, nil, int64(1), "str", true, []byte{0xCA, 0xFE})
		require.NoError(t, buf.Err)

		res := buf.Bytes()
		assert.EqualValues(t, opcode.PUSHDATA1, res[0])
		assert.EqualValues(t, 2, res[1])
		assert.EqualValues(t, []byte{0xCA, 0xFE}, res[2:4])
		assert.EqualValues(t, opcode.PUSHT, res[4])
		assert.EqualValues(t, opcode.PUSHDATA1, res[5])
		assert.EqualValues(t, 3, res[6])
		assert.EqualValues(t, []byte("str"), res[7:10])
		assert.EqualValues(t, opcode.PUSH1, res[10])
		assert.EqualValues(t, opcode.PUSHNULL, res[11])
	})

	t.Run("empty", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Array(buf.BinWriter)
		require.NoError(t, buf.Err)
		assert.EqualValues(t, opcode.NEWARRAY0, buf.Bytes()[0])
	})

	t.Run("invalid type", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		Array(buf.BinWriter, struct{}{})
		require.Error(t, buf.Err)
	})
}

func TestEmitAppCall(t *testing.T) {
	buf := io.NewBufBinWriter()
	AppCall(buf.BinWriter, util.Uint160{}, "foo", callflag.All, 1)
	require.NoError(t, buf.Err)

	buf2 := io.NewBufBinWriter()
	AppCallNoArgs(buf2.BinWriter, util.Uint160{}, "bar", callflag.All)
	require.NoError(t, buf2.Err)
	assert.EqualValues(t, opcode.NEWARRAY0, buf2.Bytes()[0])
}
