package vm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/r3e-network/neo-core/pkg/core/interop/interopnames"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/emit"
	"github.com/r3e-network/neo-core/pkg/vm/opcode"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fooInteropHandler(v *VM, id uint32) error {
	if id == interopnames.ToID([]byte("foo")) {
		v.Estack().PushVal(1)
		return nil
	}
	return errors.New("syscall not found")
}

func TestInteropHook(t *testing.T) {
	v := newTestVM()
	v.SyscallHandler = fooInteropHandler

	buf := io.NewBufBinWriter()
	emit.Syscall(buf.BinWriter, "foo")
	emit.Opcodes(buf.BinWriter, opcode.RET)
	v.LoadScript(buf.Bytes())
	runVM(t, v)
	require.Equal(t, 1, v.estack.Len())
	assert.Equal(t, big.NewInt(1), v.estack.Pop().Value())
}

func TestVM_SetPriceGetter(t *testing.T) {
	prog := []byte{
		byte(opcode.PUSH4), byte(opcode.PUSH2),
		byte(opcode.PUSHDATA1), 0x01, 0x01,
		byte(opcode.PUSHDATA1), 0x02, 0xCA, 0xFE,
		byte(opcode.PUSH4), byte(opcode.RET),
	}
	getPrice := func(op opcode.Opcode, p []byte) int64 {
		if op == opcode.PUSH4 {
			return 1
		} else if op == opcode.PUSHDATA1 && bytes.Equal(p, []byte{0xCA, 0xFE}) {
			return 7
		}

		return 0
	}

	t.Run("no price getter", func(t *testing.T) {
		v := load(prog)
		runVM(t, v)
		require.EqualValues(t, 0, v.GasConsumed())
	})

	t.Run("with price getter", func(t *testing.T) {
		v := load(prog)
		v.SetPriceGetter(getPrice)
		v.GasLimit = -1
		runVM(t, v)
		require.EqualValues(t, 9, v.GasConsumed())
	})

	t.Run("with sufficient gas limit", func(t *testing.T) {
		v := load(prog)
		v.SetPriceGetter(getPrice)
		v.GasLimit = 9
		runVM(t, v)
		require.EqualValues(t, 9, v.GasConsumed())
	})

	t.Run("with small gas limit", func(t *testing.T) {
		v := load(prog)
		v.SetPriceGetter(getPrice)
		v.GasLimit = 8
		checkVMFailed(t, v)
	})
}

func TestAddGas(t *testing.T) {
	v := newTestVM()
	v.GasLimit = 10
	require.True(t, v.AddGas(5))
	require.True(t, v.AddGas(5))
	require.False(t, v.AddGas(5))
}

func TestPushBytes1to75(t *testing.T) {
	buf := io.NewBufBinWriter()
	for i := 1; i <= 75; i++ {
		b := randomBytes(i)
		emit.Bytes(buf.BinWriter, b)
		vm := load(buf.Bytes())
		err := vm.Step()
		require.NoError(t, err)

		assert.Equal(t, 1, vm.estack.Len())

		elem := vm.estack.Pop()
		assert.IsType(t, &stackitem.ByteArray{}, elem.value)
		assert.IsType(t, elem.Bytes(), b)
		assert.Equal(t, 0, vm.estack.Len())

		errExec := vm.execute(nil, opcode.RET, nil)
		require.NoError(t, errExec)

		assert.Equal(t, 0, len(vm.istack))
		buf.Reset()
	}
}

func runVM(t *testing.T, vm *VM) {
	err := vm.Run()
	require.NoError(t, err)
	assert.Equal(t, false, vm.HasFailed())
}

func checkVMFailed(t *testing.T, vm *VM) {
	err := vm.Run()
	require.Error(t, err)
	assert.Equal(t, true, vm.HasFailed())
}

func TestStackLimitPUSH1Good(t *testing.T) {
	prog := make([]byte, MaxStackSize*2)
	for i := 0; i < MaxStackSize; i++ {
		prog[i] = byte(opcode.PUSH1)
	}
	for i := MaxStackSize; i < MaxStackSize*2; i++ {
		prog[i] = byte(opcode.DROP)
	}

	v := load(prog)
	runVM(t, v)
}

func TestStackLimitPUSH1Bad(t *testing.T) {
	prog := make([]byte, MaxStackSize+1)
	for i := range prog {
		prog[i] = byte(opcode.PUSH1)
	}
	v := load(prog)
	checkVMFailed(t, v)
}

func TestPushm1to16(t *testing.T) {
	var prog []byte
	for i := int(opcode.PUSHM1); i <= int(opcode.PUSH16); i++ {
		prog = append(prog, byte(i))
	}

	vm := load(prog)
	for i := int(opcode.PUSHM1); i <= int(opcode.PUSH16); i++ {
		err := vm.Step()
		require.NoError(t, err)

		elem := vm.estack.Pop()
		val := i - int(opcode.PUSH1) + 1
		assert.Equal(t, elem.BigInt().Int64(), int64(val))
	}
}

func TestPushData1BadNoN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA1)}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData1BadN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA1), 1}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData1Good(t *testing.T) {
	prog := makeProgram(opcode.PUSHDATA1, 3, 1, 2, 3)
	vm := load(prog)
	runVM(t, vm)
	assert.Equal(t, 1, vm.estack.Len())
	assert.Equal(t, []byte{1, 2, 3}, vm.estack.Pop().Bytes())
}

func TestPushData2BadNoN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA2)}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData2ShortN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA2), 0}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData2BadN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA2), 1, 0}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData2Good(t *testing.T) {
	prog := makeProgram(opcode.PUSHDATA2, 3, 0, 1, 2, 3)
	vm := load(prog)
	runVM(t, vm)
	assert.Equal(t, 1, vm.estack.Len())
	assert.Equal(t, []byte{1, 2, 3}, vm.estack.Pop().Bytes())
}

func TestPushData4BadNoN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA4)}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData4BadN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA4), 1, 0, 0, 0}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData4ShortN(t *testing.T) {
	prog := []byte{byte(opcode.PUSHDATA4), 0, 0, 0}
	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData4BigN(t *testing.T) {
	prog := make([]byte, 1+4+stackitem.MaxSize+1)
	prog[0] = byte(opcode.PUSHDATA4)
	binary.LittleEndian.PutUint32(prog[1:], stackitem.MaxSize+1)

	vm := load(prog)
	checkVMFailed(t, vm)
}

func TestPushData4Good(t *testing.T) {
	prog := makeProgram(opcode.PUSHDATA4, 3, 0, 0, 0, 1, 2, 3)
	vm := load(prog)
	runVM(t, vm)
	assert.Equal(t, 1, vm.estack.Len())
	assert.Equal(t, []byte{1, 2, 3}, vm.estack.Pop().Bytes())
}

func TestPUSHA(t *testing.T) {
	t.Run("negative offset", func(t *testing.T) {
		prog := makeProgram(opcode.PUSHA, 0xFF, 0xFF, 0xFF, 0xFF)
		runWithArgs(t, prog, nil)
	})
	t.Run("too big offset", func(t *testing.T) {
		prog := makeProgram(opcode.PUSHA, 0xFF, 0, 0, 0)
		runWithArgs(t, prog, nil)
	})
	t.Run("good", func(t *testing.T) {
		prog := makeProgram(opcode.PUSHA, 2, 0, 0, 0)
		v := load(prog)
		runVM(t, v)
		elem := v.estack.Pop().Item()
		ptr, ok := elem.(*stackitem.Pointer)
		require.True(t, ok)
		require.Equal(t, 2, ptr.Position())
	})
}

func TestISNULL(t *testing.T) {
	prog := makeProgram(opcode.ISNULL)
	t.Run("Integer", getTestFuncForVM(prog, false, 1))
	t.Run("Null", getTestFuncForVM(prog, true, stackitem.Null{}))
}

func TestISTYPE(t *testing.T) {
	testISTYPE := func(name string, result bool, typ stackitem.Type, item stackitem.Item) {
		prog := []byte{byte(opcode.ISTYPE), byte(typ), byte(opcode.RET)}
		t.Run(name, getTestFuncForVM(prog, result, item))
	}

	testISTYPE("Integer", true, stackitem.IntegerT, stackitem.NewBigInteger(big.NewInt(42)))
	testISTYPE("ByteArray", false, stackitem.IntegerT, stackitem.NewByteArray([]byte{}))
	testISTYPE("Null", true, stackitem.AnyT, stackitem.Null{})
	testISTYPE("Array", true, stackitem.ArrayT, stackitem.NewArray([]stackitem.Item{}))
}

func TestCONVERT(t *testing.T) {
	t.Run("bool to bytes", func(t *testing.T) {
		prog := []byte{byte(opcode.CONVERT), byte(stackitem.ByteArrayT), byte(opcode.RET)}
		v := load(prog)
		v.estack.PushVal(true)
		runVM(t, v)
		require.Equal(t, []byte{1}, v.estack.Pop().Bytes())
	})
	t.Run("int to bool", func(t *testing.T) {
		prog := []byte{byte(opcode.CONVERT), byte(stackitem.BooleanT), byte(opcode.RET)}
		v := load(prog)
		v.estack.PushVal(5)
		runVM(t, v)
		require.Equal(t, true, v.estack.Pop().Bool())
	})
	t.Run("invalid type", func(t *testing.T) {
		prog := []byte{byte(opcode.CONVERT), 0xFF, byte(opcode.RET)}
		runWithArgs(t, prog, nil, 1)
	})
}

func TestNOTNoArgument(t *testing.T) {
	prog := makeProgram(opcode.NOT)
	runWithArgs(t, prog, nil)
}

func TestNOT(t *testing.T) {
	prog := makeProgram(opcode.NOT)
	t.Run("Bool", getTestFuncForVM(prog, true, false))
	t.Run("NonZeroInt", getTestFuncForVM(prog, false, 3))
	t.Run("Array", getTestFuncForVM(prog, false, []stackitem.Item{}))
	t.Run("Struct", getTestFuncForVM(prog, false, stackitem.NewStruct([]stackitem.Item{})))
	t.Run("ByteArray0", getTestFuncForVM(prog, true, []byte{0, 0}))
	t.Run("ByteArray1", getTestFuncForVM(prog, false, []byte{0, 1}))
	t.Run("NoArgument", getTestFuncForVM(prog, nil))
}

// getBigInt returns 2^a+b
func getBigInt(a, b int64) *big.Int {
	x := new(big.Int).Exp(big.NewInt(2), big.NewInt(a), nil)
	x.Add(x, big.NewInt(b))
	return x
}

func TestArith(t *testing.T) {
	t.Run("ADD", getTestFuncForVM(makeProgram(opcode.ADD), 6, 4, 2))
	t.Run("MUL", getTestFuncForVM(makeProgram(opcode.MUL), 8, 4, 2))
	t.Run("DIV", getTestFuncForVM(makeProgram(opcode.DIV), 2, 4, 2))
	t.Run("DIV floor", getTestFuncForVM(makeProgram(opcode.DIV), 2, 5, 2))
	t.Run("SUB", getTestFuncForVM(makeProgram(opcode.SUB), 2, 4, 2))
	t.Run("SHR", getTestFuncForVM(makeProgram(opcode.SHR), 1, 4, 2))
	t.Run("SHL", getTestFuncForVM(makeProgram(opcode.SHL), 16, 4, 2))
}

func TestADDBigResult(t *testing.T) {
	prog := makeProgram(opcode.ADD)
	runWithArgs(t, prog, nil, getBigInt(stackitem.MaxBigIntegerSizeBits-1, -1), 1)
}

func TestMULBigResult(t *testing.T) {
	prog := makeProgram(opcode.MUL)
	bi := getBigInt(stackitem.MaxBigIntegerSizeBits/2+1, 0)
	runWithArgs(t, prog, nil, bi, bi)
}

func TestArithNegativeArguments(t *testing.T) {
	runCase := func(op opcode.Opcode, p, q, result int64) func(t *testing.T) {
		return getTestFuncForVM(makeProgram(op), result, p, q)
	}

	t.Run("DIV", func(t *testing.T) {
		t.Run("positive/positive", runCase(opcode.DIV, 5, 2, 2))
		t.Run("positive/negative", runCase(opcode.DIV, 5, -2, -2))
		t.Run("negative/positive", runCase(opcode.DIV, -5, 2, -2))
		t.Run("negative/negative", runCase(opcode.DIV, -5, -2, 2))
	})

	t.Run("MOD", func(t *testing.T) {
		t.Run("positive/positive", runCase(opcode.MOD, 5, 2, 1))
		t.Run("positive/negative", runCase(opcode.MOD, 5, -2, 1))
		t.Run("negative/positive", runCase(opcode.MOD, -5, 2, -1))
		t.Run("negative/negative", runCase(opcode.MOD, -5, -2, -1))
	})

	t.Run("SHR", func(t *testing.T) {
		t.Run("positive/positive", runCase(opcode.SHR, 5, 2, 1))
		t.Run("negative/positive", runCase(opcode.SHR, -5, 2, -2))
	})

	t.Run("SHL", func(t *testing.T) {
		t.Run("positive/positive", runCase(opcode.SHL, 5, 2, 20))
		t.Run("negative/positive", runCase(opcode.SHL, -5, 2, -20))
	})
}

func TestPOW(t *testing.T) {
	prog := makeProgram(opcode.POW)
	t.Run("good, positive", getTestFuncForVM(prog, 9, 3, 2))
	t.Run("good, negative, even", getTestFuncForVM(prog, 4, -2, 2))
	t.Run("good, negative, odd", getTestFuncForVM(prog, -8, -2, 3))
	t.Run("zero", getTestFuncForVM(prog, 1, 3, 0))
	t.Run("negative exponent", getTestFuncForVM(prog, nil, 3, -1))
	t.Run("too big exponent", getTestFuncForVM(prog, nil, 3, maxSHLArg+1))
	t.Run("too big result", getTestFuncForVM(prog, nil, getBigInt(stackitem.MaxBigIntegerSizeBits/2, 0), 2))
}

func TestSQRT(t *testing.T) {
	prog := makeProgram(opcode.SQRT)
	t.Run("good, positive", getTestFuncForVM(prog, 3, 9))
	t.Run("good, round down", getTestFuncForVM(prog, 2, 8))
	t.Run("one", getTestFuncForVM(prog, 1, 1))
	t.Run("zero", getTestFuncForVM(prog, 0, 0))
	t.Run("negative value", getTestFuncForVM(prog, nil, -1))
}

func TestMODMUL(t *testing.T) {
	prog := makeProgram(opcode.MODMUL)
	t.Run("bad, zero mod", getTestFuncForVM(prog, nil, 1, 2, 0))
	t.Run("good, positive base", getTestFuncForVM(prog, 2, 3, 4, 5))
	t.Run("good, negative base", getTestFuncForVM(prog, -2, -3, 4, 5))
	t.Run("good, positive base, negative mod", getTestFuncForVM(prog, 2, 3, 4, -5))
	t.Run("good, negative base, negative mod", getTestFuncForVM(prog, -2, -3, 4, -5))
}

func TestMODPOW(t *testing.T) {
	prog := makeProgram(opcode.MODPOW)
	t.Run("good, positive base", getTestFuncForVM(prog, 1, 3, 4, 5))
	t.Run("good, negative base", getTestFuncForVM(prog, 4, -3, 5, 5))
	t.Run("good, positive exponent, negative mod", getTestFuncForVM(prog, 1, 3, 4, -5))
	t.Run("good, zero exponent", getTestFuncForVM(prog, 1, 3, 0, 5))
	t.Run("bad, zero mod", getTestFuncForVM(prog, nil, 3, 4, 0))
	t.Run("inverse, good", getTestFuncForVM(prog, 3, 4, -1, 11))
	t.Run("inverse, bad exponent", getTestFuncForVM(prog, nil, 4, -2, 11))
	t.Run("inverse, bad modulus", getTestFuncForVM(prog, nil, 4, -1, 10))
}

func TestSHR(t *testing.T) {
	prog := makeProgram(opcode.SHR)
	t.Run("Good", getTestFuncForVM(prog, 1, 4, 2))
	t.Run("Zero", getTestFuncForVM(prog, []byte{0, 1}, []byte{0, 1}, 0))
	t.Run("Negative", getTestFuncForVM(prog, nil, 5, -1))
}

func TestSHL(t *testing.T) {
	prog := makeProgram(opcode.SHL)
	t.Run("Good", getTestFuncForVM(prog, 16, 4, 2))
	t.Run("Zero", getTestFuncForVM(prog, []byte{0, 1}, []byte{0, 1}, 0))
	t.Run("BigShift", getTestFuncForVM(prog, nil, 5, maxSHLArg+1))
}

func TestLT(t *testing.T) {
	prog := makeProgram(opcode.LT)
	t.Run("simple", getTestFuncForVM(prog, true, 4, 5))
	t.Run("Null/4", getTestFuncForVM(prog, false, stackitem.Null{}, 4))
	t.Run("4/Null", getTestFuncForVM(prog, false, 4, stackitem.Null{}))
}

func TestLE(t *testing.T) {
	prog := makeProgram(opcode.LE)
	t.Run("simple", getTestFuncForVM(prog, true, 4, 4))
	t.Run("Null", getTestFuncForVM(prog, false, 4, stackitem.Null{}))
}

func TestGT(t *testing.T) {
	prog := makeProgram(opcode.GT)
	t.Run("simple", getTestFuncForVM(prog, true, 9, 3))
	t.Run("Null", getTestFuncForVM(prog, false, 9, stackitem.Null{}))
}

func TestGE(t *testing.T) {
	prog := makeProgram(opcode.GE)
	t.Run("simple", getTestFuncForVM(prog, true, 3, 3))
	t.Run("Null", getTestFuncForVM(prog, false, 3, stackitem.Null{}))
}

func TestDepth(t *testing.T) {
	prog := makeProgram(opcode.DEPTH)
	vm := load(prog)
	vm.estack.PushVal(1)
	vm.estack.PushVal(2)
	vm.estack.PushVal(3)
	runVM(t, vm)
	assert.Equal(t, int64(3), vm.estack.Pop().BigInt().Int64())
}

func TestEQUALNoArguments(t *testing.T) {
	prog := makeProgram(opcode.EQUAL)
	runWithArgs(t, prog, nil)
}

func TestEQUALGoodInteger(t *testing.T) {
	prog := makeProgram(opcode.EQUAL)
	runWithArgs(t, prog, true, 5, 5)
}

func TestEQUALIntegerByteArray(t *testing.T) {
	prog := makeProgram(opcode.EQUAL)
	runWithArgs(t, prog, true, []byte{16}, 16)
}

func TestEQUALArrayTrue(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.EQUAL)
	runWithArgs(t, prog, true, []stackitem.Item{})
}

func TestEQUALArrayFalse(t *testing.T) {
	prog := makeProgram(opcode.PUSH0, opcode.NEWARRAY, opcode.PUSH0, opcode.NEWARRAY, opcode.EQUAL)
	runWithArgs(t, prog, false)
}

func TestEQUALMapTrue(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.EQUAL)
	vm := load(prog)
	vm.estack.Push(Element{value: stackitem.NewMap()})
	runVM(t, vm)
	assert.Equal(t, true, vm.estack.Pop().Bool())
}

func TestEQUALMapFalse(t *testing.T) {
	prog := makeProgram(opcode.NEWMAP, opcode.NEWMAP, opcode.EQUAL)
	runWithArgs(t, prog, false)
}

func TestNumEqual(t *testing.T) {
	prog := makeProgram(opcode.NUMEQUAL)
	t.Run("True", getTestFuncForVM(prog, true, 2, 2))
	t.Run("False", getTestFuncForVM(prog, false, 1, 2))
}

func TestNumNotEqual(t *testing.T) {
	prog := makeProgram(opcode.NUMNOTEQUAL)
	t.Run("True", getTestFuncForVM(prog, true, 1, 2))
	t.Run("False", getTestFuncForVM(prog, false, 2, 2))
}

func TestINC(t *testing.T) {
	prog := makeProgram(opcode.INC)
	runWithArgs(t, prog, 2, 1)
}

func TestINCBigResult(t *testing.T) {
	prog := makeProgram(opcode.INC, opcode.INC)
	vm := load(prog)
	x := getBigInt(stackitem.MaxBigIntegerSizeBits-1, -2) // 2^255 - 2
	vm.estack.PushVal(x)

	require.NoError(t, vm.Step())
	require.False(t, vm.HasFailed())
	require.Equal(t, 1, vm.estack.Len())
	require.Equal(t, new(big.Int).Add(x, big.NewInt(1)), vm.estack.Top().BigInt())

	checkVMFailed(t, vm)
}

func TestDECBigResult(t *testing.T) {
	prog := makeProgram(opcode.DEC, opcode.DEC)
	vm := load(prog)
	x := getBigInt(stackitem.MaxBigIntegerSizeBits-1, 0)
	x.Neg(x) // -2^255
	vm.estack.PushVal(new(big.Int).Add(x, big.NewInt(1)))

	require.NoError(t, vm.Step())
	require.False(t, vm.HasFailed())
	require.Equal(t, 1, vm.estack.Len())
	require.Equal(t, x, vm.estack.Top().BigInt())

	checkVMFailed(t, vm)
}

func TestSIGN(t *testing.T) {
	prog := makeProgram(opcode.SIGN)
	t.Run("Negative", getTestFuncForVM(prog, -1, -1))
	t.Run("Zero", getTestFuncForVM(prog, 0, 0))
	t.Run("Positive", getTestFuncForVM(prog, 1, 42))
	t.Run("Bytes", getTestFuncForVM(prog, 1, []byte{0, 1}))
}

func TestSimpleCall(t *testing.T) {
	buf := io.NewBufBinWriter()
	w := buf.BinWriter
	emit.Opcodes(w, opcode.PUSH2)
	emit.Instruction(w, opcode.CALL, []byte{03})
	emit.Opcodes(w, opcode.RET)
	emit.Opcodes(w, opcode.PUSH10)
	emit.Opcodes(w, opcode.ADD)
	emit.Opcodes(w, opcode.RET)

	result := 12
	vm := load(buf.Bytes())
	runVM(t, vm)
	assert.Equal(t, result, int(vm.estack.Pop().BigInt().Int64()))
}

func TestNZ(t *testing.T) {
	prog := makeProgram(opcode.NZ)
	t.Run("True", getTestFuncForVM(prog, true, 1))
	t.Run("False", getTestFuncForVM(prog, false, 0))
}

func TestPICK(t *testing.T) {
	t.Run("good", func(t *testing.T) {
		prog := makeProgram(opcode.PICK)
		vm := load(prog)
		vm.estack.PushVal(1)
		vm.estack.PushVal(2)
		vm.estack.PushVal(3)
		vm.estack.PushVal(4)
		vm.estack.PushVal(5)
		vm.estack.PushVal(3)
		runVM(t, vm)
		assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
	})
	t.Run("negative", getTestFuncForVM(makeProgram(opcode.PICK), nil, 1, -1))
	t.Run("too big", getTestFuncForVM(makeProgram(opcode.PICK), nil, 1, 5))
}

func TestROTGood(t *testing.T) {
	prog := makeProgram(opcode.ROT)
	vm := load(prog)
	vm.estack.PushVal(1)
	vm.estack.PushVal(2)
	vm.estack.PushVal(3)
	runVM(t, vm)
	assert.Equal(t, 3, vm.estack.Len())
	assert.Equal(t, int64(1), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(3), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
}

func TestROTBad(t *testing.T) {
	prog := makeProgram(opcode.ROT)
	runWithArgs(t, prog, nil, 1, 2)
}

func TestROLLGood(t *testing.T) {
	prog := makeProgram(opcode.ROLL)
	vm := load(prog)
	vm.estack.PushVal(1)
	vm.estack.PushVal(2)
	vm.estack.PushVal(3)
	vm.estack.PushVal(4)
	vm.estack.PushVal(1)
	runVM(t, vm)
	assert.Equal(t, 4, vm.estack.Len())
	assert.Equal(t, int64(3), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(4), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(1), vm.estack.Pop().BigInt().Int64())
}

func TestROLLBad1(t *testing.T) {
	prog := makeProgram(opcode.ROLL)
	runWithArgs(t, prog, nil, 1, -1)
}

func TestROLLBad2(t *testing.T) {
	prog := makeProgram(opcode.ROLL)
	runWithArgs(t, prog, nil, 1, 2, 3, 3)
}

func TestXDROP(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		prog := makeProgram(opcode.XDROP)
		vm := load(prog)
		vm.estack.PushVal(1)
		vm.estack.PushVal(2)
		vm.estack.PushVal(3)
		vm.estack.PushVal(2)
		runVM(t, vm)
		assert.Equal(t, 2, vm.estack.Len())
		assert.Equal(t, int64(3), vm.estack.Pop().BigInt().Int64())
		assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
	})

	t.Run("negative index", getTestFuncForVM(makeProgram(opcode.XDROP), nil, 1, 2, -1))
	t.Run("too big index", getTestFuncForVM(makeProgram(opcode.XDROP), nil, 1, 2, 3))
}

func TestCLEAR(t *testing.T) {
	prog := makeProgram(opcode.CLEAR)
	v := load(prog)
	v.estack.PushVal(123)
	runVM(t, v)
	require.Equal(t, 0, v.estack.Len())
}

func TestINVERT(t *testing.T) {
	prog := makeProgram(opcode.INVERT)
	t.Run("zero", getTestFuncForVM(prog, -1, 0))
	t.Run("minus one", getTestFuncForVM(prog, 0, -1))
	t.Run("one", getTestFuncForVM(prog, -2, 1))
}

func TestCAT(t *testing.T) {
	t.Run("good", func(t *testing.T) {
		prog := makeProgram(opcode.CAT)
		v := load(prog)
		v.estack.PushVal([]byte("ab"))
		v.estack.PushVal([]byte("cd"))
		runVM(t, v)
		require.Equal(t, 1, v.estack.Len())
		require.Equal(t, []byte("abcd"), v.estack.Pop().Bytes())
	})
	t.Run("big item", func(t *testing.T) {
		prog := makeProgram(opcode.CAT)
		v := load(prog)
		v.estack.PushVal(make([]byte, stackitem.MaxSize/2+1))
		v.estack.PushVal(make([]byte, stackitem.MaxSize/2+1))
		checkVMFailed(t, v)
	})
	t.Run("int arguments", func(t *testing.T) {
		prog := makeProgram(opcode.CAT)
		v := load(prog)
		v.estack.PushVal(-1)
		v.estack.PushVal(2)
		runVM(t, v)
		require.Equal(t, []byte{0xFF, 2}, v.estack.Pop().Bytes())
	})
}

func TestSUBSTR(t *testing.T) {
	prog := makeProgram(opcode.SUBSTR)
	t.Run("good", getTestFuncForVM(prog, []byte("bc"), []byte("abcdef"), 1, 2))
	t.Run("empty", getTestFuncForVM(prog, []byte{}, []byte("abcdef"), 1, 0))
	t.Run("negative offset", getTestFuncForVM(prog, nil, []byte("abcdef"), -1, 3))
	t.Run("negative length", getTestFuncForVM(prog, nil, []byte("abcdef"), 3, -1))
	t.Run("out of boundaries", getTestFuncForVM(prog, nil, []byte("abcdef"), 5, 2))
}

func TestLEFT(t *testing.T) {
	prog := makeProgram(opcode.LEFT)
	t.Run("good", getTestFuncForVM(prog, []byte("ab"), []byte("abcdef"), 2))
	t.Run("negative length", getTestFuncForVM(prog, nil, []byte("abcdef"), -1))
	t.Run("big length", getTestFuncForVM(prog, nil, []byte("abcdef"), 8))
}

func TestRIGHT(t *testing.T) {
	prog := makeProgram(opcode.RIGHT)
	t.Run("good", getTestFuncForVM(prog, []byte("ef"), []byte("abcdef"), 2))
	t.Run("negative length", getTestFuncForVM(prog, nil, []byte("abcdef"), -1))
	t.Run("big length", getTestFuncForVM(prog, nil, []byte("abcdef"), 8))
}

func TestNEWBUFFER(t *testing.T) {
	prog := makeProgram(opcode.NEWBUFFER)
	t.Run("good", getTestFuncForVM(prog, stackitem.NewBuffer([]byte{0, 0, 0}), 3))
	t.Run("negative", getTestFuncForVM(prog, nil, -1))
	t.Run("too big", getTestFuncForVM(prog, nil, stackitem.MaxSize+1))
}

func TestMEMCPY(t *testing.T) {
	t.Run("good", func(t *testing.T) {
		buf := stackitem.NewBuffer([]byte{0, 0, 0, 0})
		prog := makeProgram(opcode.MEMCPY)
		v := load(prog)
		v.estack.PushVal(buf)
		v.estack.PushVal(1)
		v.estack.PushVal([]byte{1, 2, 3, 4})
		v.estack.PushVal(1)
		v.estack.PushVal(2)
		runVM(t, v)
		require.Equal(t, 0, v.estack.Len())
		require.Equal(t, []byte{0, 2, 3, 0}, buf.Value().([]byte))
	})
	t.Run("bad destination index", func(t *testing.T) {
		buf := stackitem.NewBuffer([]byte{0, 0, 0, 0})
		prog := makeProgram(opcode.MEMCPY)
		v := load(prog)
		v.estack.PushVal(buf)
		v.estack.PushVal(3)
		v.estack.PushVal([]byte{1, 2, 3, 4})
		v.estack.PushVal(1)
		v.estack.PushVal(2)
		checkVMFailed(t, v)
	})
	t.Run("bad source index", func(t *testing.T) {
		buf := stackitem.NewBuffer([]byte{0, 0, 0, 0})
		prog := makeProgram(opcode.MEMCPY)
		v := load(prog)
		v.estack.PushVal(buf)
		v.estack.PushVal(1)
		v.estack.PushVal([]byte{1, 2, 3, 4})
		v.estack.PushVal(3)
		v.estack.PushVal(2)
		checkVMFailed(t, v)
	})
	t.Run("negative size", func(t *testing.T) {
		buf := stackitem.NewBuffer([]byte{0, 0, 0, 0})
		prog := makeProgram(opcode.MEMCPY)
		v := load(prog)
		v.estack.PushVal(buf)
		v.estack.PushVal(1)
		v.estack.PushVal([]byte{1, 2, 3, 4})
		v.estack.PushVal(1)
		v.estack.PushVal(-1)
		checkVMFailed(t, v)
	})
}

func TestNEWARRAY0(t *testing.T) {
	prog := makeProgram(opcode.NEWARRAY0)
	runWithArgs(t, prog, []stackitem.Item{})
}

func TestNEWSTRUCT0(t *testing.T) {
	prog := makeProgram(opcode.NEWSTRUCT0)
	runWithArgs(t, prog, stackitem.NewStruct([]stackitem.Item{}))
}

func TestNEWARRAYArray(t *testing.T) {
	prog := makeProgram(opcode.NEWARRAY)
	t.Run("ByteArray", getTestFuncForVM(prog, stackitem.NewArray([]stackitem.Item{}), []byte{}))
	t.Run("BadSize", getTestFuncForVM(prog, nil, MaxStackSize+1))
	t.Run("Integer", getTestFuncForVM(prog, []stackitem.Item{stackitem.Null{}}, 1))
}

func TestNEWARRAYT(t *testing.T) {
	testCases := map[stackitem.Type]stackitem.Item{
		stackitem.BooleanT:   stackitem.NewBool(false),
		stackitem.IntegerT:   stackitem.NewBigInteger(big.NewInt(0)),
		stackitem.ByteArrayT: stackitem.NewByteArray([]byte{}),
		stackitem.ArrayT:     stackitem.Null{},
		0xFF:                 nil,
	}
	for typ, item := range testCases {
		prog := makeProgram(opcode.NEWARRAYT, opcode.Opcode(typ), opcode.PUSH0, opcode.PICKITEM)
		var expected any
		if item != nil {
			expected = item
		}
		t.Run(typ.String(), getTestFuncForVM(prog, expected, 1))
	}
}

func TestNEWSTRUCT(t *testing.T) {
	prog := makeProgram(opcode.NEWSTRUCT)
	t.Run("ByteArray", getTestFuncForVM(prog, stackitem.NewStruct([]stackitem.Item{}), []byte{}))
	t.Run("BadSize", getTestFuncForVM(prog, nil, MaxStackSize+1))
	t.Run("Integer", getTestFuncForVM(prog, stackitem.NewStruct([]stackitem.Item{stackitem.Null{}}), 1))
}

func TestAPPEND(t *testing.T) {
	t.Run("good", func(t *testing.T) {
		arr := []stackitem.Item{stackitem.Make(5)}
		prog := makeProgram(opcode.DUP, opcode.PUSH5, opcode.APPEND)
		runWithArgs(t, prog, stackitem.NewArray(arr), stackitem.NewArray(nil))
	})
	t.Run("bad type", func(t *testing.T) {
		prog := makeProgram(opcode.APPEND)
		runWithArgs(t, prog, nil, []byte{}, 1)
	})
}

func TestAPPENDCloneStruct(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.PUSH0, opcode.NEWSTRUCT, opcode.TUCK,
		opcode.APPEND, opcode.PUSH1, opcode.APPEND, opcode.PUSH0, opcode.PICKITEM)
	arr := stackitem.NewArray(nil)
	runWithArgs(t, prog, stackitem.NewStruct([]stackitem.Item{}), arr)
}

func TestAPPENDBad(t *testing.T) {
	prog := makeProgram(opcode.APPEND)
	t.Run("no arguments", getTestFuncForVM(prog, nil))
	t.Run("one argument", getTestFuncForVM(prog, nil, 1))
}

func TestPICKITEM(t *testing.T) {
	prog := makeProgram(opcode.PICKITEM)
	t.Run("bad index", getTestFuncForVM(prog, nil, []stackitem.Item{}, 0))
	t.Run("Array", getTestFuncForVM(prog, 2, []stackitem.Item{stackitem.Make(1), stackitem.Make(2)}, 1))
	t.Run("ByteArray", getTestFuncForVM(prog, 2, []byte{1, 2}, 1))
	t.Run("Buffer", getTestFuncForVM(prog, 2, stackitem.NewBuffer([]byte{1, 2}), 1))
}

func TestPICKITEMDupArray(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.PUSH0, opcode.PICKITEM, opcode.ABS)
	vm := load(prog)
	vm.estack.PushVal([]stackitem.Item{stackitem.Make(-1)})
	runVM(t, vm)
	assert.Equal(t, 2, vm.estack.Len())
	assert.Equal(t, int64(1), vm.estack.Pop().BigInt().Int64())
	items := vm.estack.Pop().Value().([]stackitem.Item)
	assert.Equal(t, big.NewInt(-1), items[0].Value())
}

func TestPICKITEMMap(t *testing.T) {
	prog := makeProgram(opcode.PICKITEM)
	vm := load(prog)

	m := stackitem.NewMap()
	m.Add(stackitem.Make(5), stackitem.Make(3))
	vm.estack.Push(Element{value: m})
	vm.estack.PushVal(5)

	runVM(t, vm)
	assert.Equal(t, 1, vm.estack.Len())
	assert.Equal(t, int64(3), vm.estack.Pop().BigInt().Int64())
}

func TestSETITEMMap(t *testing.T) {
	prog := makeProgram(opcode.SETITEM)
	vm := load(prog)

	m := stackitem.NewMap()
	m.Add(stackitem.Make(5), stackitem.Make(3))
	vm.estack.Push(Element{value: m})
	vm.estack.PushVal(5)
	vm.estack.PushVal([]byte{0, 1})

	runVM(t, vm)
	require.True(t, m.Has(stackitem.Make(5)))
	idx := m.Index(stackitem.Make(5))
	require.Equal(t, []byte{0, 1}, m.Value().([]stackitem.MapElement)[idx].Value.Value())
}

func TestSETITEMBigMapBad(t *testing.T) {
	prog := makeProgram(opcode.SETITEM)
	vm := load(prog)

	m := stackitem.NewMap()
	for i := 0; i < MaxStackSize/2; i++ {
		m.Add(stackitem.Make(i), stackitem.Make(i))
	}
	vm.estack.Push(Element{value: m})
	vm.estack.PushVal(MaxStackSize)
	vm.estack.PushVal(0)

	checkVMFailed(t, vm)
}

func TestSETITEMBuffer(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.REVERSE4, opcode.SETITEM)
	t.Run("good", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(0x42)
		v.estack.PushVal(1)
		v.estack.PushVal(stackitem.NewBuffer([]byte{0, 0, 0}))
		runVM(t, v)
		require.Equal(t, 1, v.estack.Len())
		require.Equal(t, []byte{0, 0x42, 0}, v.estack.Pop().value.(*stackitem.Buffer).Value())
	})
	t.Run("invalid value", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(256)
		v.estack.PushVal(1)
		v.estack.PushVal(stackitem.NewBuffer([]byte{0, 0, 0}))
		checkVMFailed(t, v)
	})
	t.Run("invalid index", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(0x42)
		v.estack.PushVal(-1)
		v.estack.PushVal(stackitem.NewBuffer([]byte{0, 0, 0}))
		checkVMFailed(t, v)
	})
}

func TestSIZE(t *testing.T) {
	prog := makeProgram(opcode.SIZE)
	t.Run("Array", getTestFuncForVM(prog, 2, []stackitem.Item{stackitem.Make(1), stackitem.Make([]byte{})}))
	t.Run("ByteArray", getTestFuncForVM(prog, 2, []byte{0, 1}))
	t.Run("Bool", getTestFuncForVM(prog, 1, false))
	t.Run("Map", func(t *testing.T) {
		m := stackitem.NewMap()
		m.Add(stackitem.Make(5), stackitem.Make(6))
		m.Add(stackitem.Make([]byte{0, 1}), stackitem.Make(6))
		v := load(prog)
		v.estack.Push(Element{value: m})
		runVM(t, v)
		assert.Equal(t, 1, v.estack.Len())
		assert.Equal(t, big.NewInt(2), v.estack.Top().Value())
	})
}

func TestKEYSMap(t *testing.T) {
	prog := makeProgram(opcode.KEYS)
	v := load(prog)

	m := stackitem.NewMap()
	m.Add(stackitem.Make(5), stackitem.Make(6))
	m.Add(stackitem.Make([]byte{0, 1}), stackitem.Make(6))
	v.estack.Push(Element{value: m})

	runVM(t, v)
	assert.Equal(t, 1, v.estack.Len())

	top := v.estack.Pop().value.(*stackitem.Array)
	assert.Equal(t, 2, top.Len())
	assert.Contains(t, top.Value().([]stackitem.Item), stackitem.Make(5))
	assert.Contains(t, top.Value().([]stackitem.Item), stackitem.Make([]byte{0, 1}))
}

func TestKEYS(t *testing.T) {
	prog := makeProgram(opcode.KEYS)
	t.Run("NoArgument", getTestFuncForVM(prog, nil))
	t.Run("WrongType", getTestFuncForVM(prog, nil, []stackitem.Item{}))
}

func TestVALUESMap(t *testing.T) {
	prog := makeProgram(opcode.VALUES)
	v := load(prog)

	m := stackitem.NewMap()
	m.Add(stackitem.Make(5), stackitem.Make([]byte{2, 3}))
	m.Add(stackitem.Make([]byte{0, 1}), stackitem.Make([]stackitem.Item{}))
	v.estack.Push(Element{value: m})

	runVM(t, v)
	assert.Equal(t, 1, v.estack.Len())

	top := v.estack.Pop().value.(*stackitem.Array)
	assert.Equal(t, 2, top.Len())
	assert.Contains(t, top.Value().([]stackitem.Item), stackitem.Make([]byte{2, 3}))
	assert.Contains(t, top.Value().([]stackitem.Item), stackitem.NewArray([]stackitem.Item{}))
}

func TestVALUES(t *testing.T) {
	prog := makeProgram(opcode.VALUES)
	t.Run("NoArgument", getTestFuncForVM(prog, nil))
	t.Run("WrongType", getTestFuncForVM(prog, nil, 5))
	t.Run("Array", getTestFuncForVM(prog, []int{4}, []int{4}))
}

func TestHASKEY(t *testing.T) {
	prog := makeProgram(opcode.HASKEY)
	t.Run("NoArguments", getTestFuncForVM(prog, nil))
	t.Run("OneArgument", getTestFuncForVM(prog, nil, 1))
	t.Run("WrongKeyType", getTestFuncForVM(prog, nil, []stackitem.Item{}, []stackitem.Item{}))
	t.Run("WrongCollectionType", getTestFuncForVM(prog, nil, 1, 2))

	arr := makeArrayOfType(5, stackitem.BooleanT)
	t.Run("Array", func(t *testing.T) {
		t.Run("True", getTestFuncForVM(prog, true, stackitem.NewArray(arr), 4))
		t.Run("False", getTestFuncForVM(prog, false, stackitem.NewArray(arr), 5))
	})
	t.Run("Struct", func(t *testing.T) {
		t.Run("True", getTestFuncForVM(prog, true, stackitem.NewStruct(arr), 4))
		t.Run("False", getTestFuncForVM(prog, false, stackitem.NewStruct(arr), 5))
	})

	t.Run("Buffer", func(t *testing.T) {
		t.Run("True", getTestFuncForVM(prog, true, stackitem.NewBuffer([]byte{5, 5, 5}), 2))
		t.Run("False", getTestFuncForVM(prog, false, stackitem.NewBuffer([]byte{5, 5, 5}), 3))
		t.Run("Negative", getTestFuncForVM(prog, nil, stackitem.NewBuffer([]byte{5, 5, 5}), -1))
	})
}

func TestHASKEYMap(t *testing.T) {
	prog := makeProgram(opcode.HASKEY)
	m := stackitem.NewMap()
	m.Add(stackitem.Make(5), stackitem.Make(6))
	t.Run("True", func(t *testing.T) {
		v := load(prog)
		v.estack.Push(Element{value: m})
		v.estack.PushVal(5)

		runVM(t, v)
		assert.Equal(t, 1, v.estack.Len())
		assert.Equal(t, true, v.estack.Pop().Bool())
	})

	t.Run("False", func(t *testing.T) {
		v := load(prog)
		v.estack.Push(Element{value: m})
		v.estack.PushVal(6)

		runVM(t, v)
		assert.Equal(t, 1, v.estack.Len())
		assert.Equal(t, false, v.estack.Pop().Bool())
	})
}

func TestPACK(t *testing.T) {
	prog := makeProgram(opcode.PACK)
	t.Run("BadLen", getTestFuncForVM(prog, nil, 1))
	t.Run("Good0Len", getTestFuncForVM(prog, []stackitem.Item{}, 0))
}

func TestPACKBigLen(t *testing.T) {
	prog := makeProgram(opcode.PACK)
	v := load(prog)
	for i := 0; i < 100; i++ {
		v.estack.PushVal(0)
	}
	v.estack.PushVal(101)
	checkVMFailed(t, v)
}

func TestPACKGood(t *testing.T) {
	prog := makeProgram(opcode.PACK)
	elements := []int{55, 34, 42}
	vm := load(prog)
	// canary
	vm.estack.PushVal(1)
	for i := len(elements) - 1; i >= 0; i-- {
		vm.estack.PushVal(elements[i])
	}
	vm.estack.PushVal(len(elements))
	runVM(t, vm)
	assert.Equal(t, 2, vm.estack.Len())
	a := vm.estack.Peek(0).Array()
	assert.Equal(t, len(elements), len(a))
	for i := range elements {
		e := a[i].Value().(*big.Int)
		assert.Equal(t, int64(elements[i]), e.Int64())
	}
	assert.Equal(t, int64(1), vm.estack.Peek(1).BigInt().Int64())
}

func TestPACKMAPGood(t *testing.T) {
	prog := makeProgram(opcode.PACKMAP)
	elements := []int{55, 34, 42}
	vm := load(prog)
	// canary
	vm.estack.PushVal(1)
	for i := len(elements) - 1; i >= 0; i-- {
		vm.estack.PushVal(elements[i])
		vm.estack.PushVal(i)
	}
	vm.estack.PushVal(len(elements))
	runVM(t, vm)
	assert.Equal(t, 2, vm.estack.Len())
	a := vm.estack.Peek(0).value.(*stackitem.Map)
	assert.Equal(t, len(elements), a.Len())
	for i := range elements {
		idx := a.Index(stackitem.Make(i))
		require.True(t, idx >= 0)
		e := a.Value().([]stackitem.MapElement)[idx].Value.Value().(*big.Int)
		assert.Equal(t, int64(elements[i]), e.Int64())
	}
	assert.Equal(t, int64(1), vm.estack.Peek(1).BigInt().Int64())
}

func TestPACKMAPBadKey(t *testing.T) {
	prog := makeProgram(opcode.PUSH1, opcode.NEWARRAY0, opcode.PUSH1, opcode.PACKMAP)
	runWithArgs(t, prog, nil)
}

func TestUNPACKBadNotArray(t *testing.T) {
	prog := makeProgram(opcode.UNPACK)
	runWithArgs(t, prog, nil, 1)
}

func TestUNPACKGood(t *testing.T) {
	prog := makeProgram(opcode.UNPACK)
	elements := []int{55, 34, 42}
	vm := load(prog)
	// canary
	vm.estack.PushVal(1)
	vm.estack.PushVal(elements)
	runVM(t, vm)
	assert.Equal(t, 5, vm.estack.Len())
	assert.Equal(t, int64(len(elements)), vm.estack.Pop().BigInt().Int64())
	for i := range elements {
		assert.Equal(t, int64(elements[i]), vm.estack.Pop().BigInt().Int64())
	}
	assert.Equal(t, int64(1), vm.estack.Pop().BigInt().Int64())
}

func TestUNPACKMAPGood(t *testing.T) {
	prog := makeProgram(opcode.UNPACK)
	m := stackitem.NewMap()
	m.Add(stackitem.Make(1), stackitem.Make(2))
	vm := load(prog)
	vm.estack.PushVal(m)
	runVM(t, vm)
	require.Equal(t, 3, vm.estack.Len())
	require.Equal(t, int64(1), vm.estack.Pop().BigInt().Int64())
	require.Equal(t, big.NewInt(1), vm.estack.Pop().Value())
	require.Equal(t, big.NewInt(2), vm.estack.Pop().Value())
}

func TestREVERSEITEMS(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.REVERSEITEMS)
	t.Run("InvalidItem", getTestFuncForVM(prog, nil, 1))
	t.Run("Buffer", getTestFuncForVM(prog, stackitem.NewBuffer([]byte{3, 2, 1}), stackitem.NewBuffer([]byte{1, 2, 3})))
}

func testREVERSEITEMSIssue(t *testing.T, i1 stackitem.Item, t2 stackitem.Type, reversed []stackitem.Item) {
	prog := makeProgram(opcode.DUP, opcode.REVERSEITEMS)
	v := load(prog)
	v.estack.PushVal(i1)
	runVM(t, v)
	require.Equal(t, 1, v.estack.Len())
	require.Equal(t, t2, v.estack.Top().Item().Type())
	require.Equal(t, reversed, v.estack.Pop().Array())
}

func TestREVERSEITEMSGoodOneElem(t *testing.T) {
	arr := []stackitem.Item{stackitem.Make(42)}
	testREVERSEITEMSIssue(t, stackitem.NewArray(arr), stackitem.ArrayT, arr)
}

func TestREVERSEITEMSGoodStruct(t *testing.T) {
	arr := []stackitem.Item{stackitem.Make(1), stackitem.Make(2), stackitem.Make(3)}
	rev := []stackitem.Item{stackitem.Make(3), stackitem.Make(2), stackitem.Make(1)}
	testREVERSEITEMSIssue(t, stackitem.NewStruct(arr), stackitem.StructT, rev)
}

func TestREMOVE(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.PUSH1, opcode.REMOVE)
	t.Run("Array", getTestFuncForVM(prog,
		[]stackitem.Item{stackitem.Make(22), stackitem.Make(42)},
		[]stackitem.Item{stackitem.Make(22), stackitem.Make(34), stackitem.Make(42)}))
	t.Run("BadIndex", getTestFuncForVM(makeProgram(opcode.REMOVE), nil,
		[]stackitem.Item{stackitem.Make(22)}, 1))
	t.Run("BadType", getTestFuncForVM(makeProgram(opcode.REMOVE), nil, 1, 1))
}

func TestREMOVEMap(t *testing.T) {
	prog := makeProgram(opcode.SWAP, opcode.REMOVE, opcode.PUSH5, opcode.HASKEY)
	vm := load(prog)

	m := stackitem.NewMap()
	m.Add(stackitem.Make(5), stackitem.Make(3))
	m.Add(stackitem.Make([]byte{0, 1}), stackitem.Make([]byte{2, 3}))
	vm.estack.Push(Element{value: m})
	vm.estack.PushVal(stackitem.Make(5))
	vm.estack.Push(Element{value: m})

	runVM(t, vm)
	assert.Equal(t, 1, vm.estack.Len())
	assert.Equal(t, false, vm.estack.Pop().Bool())
}

func TestCLEARITEMS(t *testing.T) {
	arr := []stackitem.Item{stackitem.NewBigInteger(big.NewInt(1)), stackitem.NewByteArray([]byte{1})}
	m := stackitem.NewMap()
	m.Add(stackitem.NewBigInteger(big.NewInt(1)), stackitem.NewByteArray([]byte{}))
	m.Add(stackitem.NewByteArray([]byte{42}), stackitem.NewBigInteger(big.NewInt(2)))

	testCases := map[string]stackitem.Item{
		"empty Array":   stackitem.NewArray([]stackitem.Item{}),
		"filled Array":  stackitem.NewArray(arr),
		"empty Struct":  stackitem.NewStruct([]stackitem.Item{}),
		"filled Struct": stackitem.NewStruct(arr),
		"empty Map":     stackitem.NewMap(),
		"filled Map":    m,
	}

	for name, item := range testCases {
		t.Run(name, func(t *testing.T) {
			prog := makeProgram(opcode.DUP, opcode.DUP, opcode.CLEARITEMS) // double DUP is needed for a correct stack size check
			v := load(prog)
			v.estack.PushVal(item)
			runVM(t, v)
			v.estack.Pop()
			require.Equal(t, 0, v.estack.Pop().Item().(stackitem.Counted).Len())
		})
	}

	t.Run("Integer", func(t *testing.T) {
		prog := makeProgram(opcode.CLEARITEMS)
		runWithArgs(t, prog, nil, 1)
	})
}

func TestPOPITEM(t *testing.T) {
	testPOPITEM := func(t *testing.T, item, elem, resItem any) {
		prog := makeProgram(opcode.DUP, opcode.POPITEM)
		v := load(prog)
		v.estack.PushVal(item)
		runVM(t, v)
		require.Equal(t, elem, v.estack.Pop().Value())
		require.Equal(t, resItem, v.estack.Pop().Item().Value())
	}
	t.Run("Array", func(t *testing.T) {
		testPOPITEM(t, []int{1, 2, 3}, big.NewInt(3),
			[]stackitem.Item{stackitem.Make(1), stackitem.Make(2)})
	})
	t.Run("Struct", func(t *testing.T) {
		s := stackitem.NewStruct([]stackitem.Item{stackitem.Make(11), stackitem.Make(22)})
		testPOPITEM(t, s, big.NewInt(22), []stackitem.Item{stackitem.Make(11)})
	})
	t.Run("Empty", func(t *testing.T) {
		prog := makeProgram(opcode.POPITEM)
		runWithArgs(t, prog, nil, []stackitem.Item{})
	})
}

func TestSWAPGood(t *testing.T) {
	prog := makeProgram(opcode.SWAP)
	vm := load(prog)
	vm.estack.PushVal(2)
	vm.estack.PushVal(4)
	runVM(t, vm)
	assert.Equal(t, 2, vm.estack.Len())
	assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(4), vm.estack.Pop().BigInt().Int64())
}

func TestSWAPBad1(t *testing.T) {
	prog := makeProgram(opcode.SWAP)
	runWithArgs(t, prog, nil, 4)
}

func TestSWAPBad2(t *testing.T) {
	prog := makeProgram(opcode.SWAP)
	runWithArgs(t, prog, nil)
}

func TestDupInt(t *testing.T) {
	prog := makeProgram(opcode.DUP, opcode.ABS)
	vm := load(prog)
	vm.estack.PushVal(-1)
	runVM(t, vm)
	assert.Equal(t, 2, vm.estack.Len())
	assert.Equal(t, int64(1), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(-1), vm.estack.Pop().BigInt().Int64())
}

func TestDupByteArray(t *testing.T) {
	prog := makeProgram(opcode.PUSHDATA1, 2, 1, 0,
		opcode.DUP, opcode.NOT)
	vm := load(prog)
	runVM(t, vm)
	assert.Equal(t, 2, vm.estack.Len())
	assert.Equal(t, false, vm.estack.Pop().Bool())
	assert.Equal(t, []byte{1, 0}, vm.estack.Pop().Bytes())
}

func TestDupBool(t *testing.T) {
	prog := makeProgram(opcode.PUSH0, opcode.NOT,
		opcode.DUP, opcode.NOT)
	vm := load(prog)
	runVM(t, vm)
	assert.Equal(t, 2, vm.estack.Len())
	assert.Equal(t, false, vm.estack.Pop().Bool())
	assert.Equal(t, true, vm.estack.Pop().Bool())
}

func TestOVERGood(t *testing.T) {
	prog := makeProgram(opcode.OVER)
	vm := load(prog)
	vm.estack.PushVal(2)
	vm.estack.PushVal(4)
	runVM(t, vm)
	assert.Equal(t, 3, vm.estack.Len())
	assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(4), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
}

func TestOVERBad(t *testing.T) {
	prog := makeProgram(opcode.OVER)
	runWithArgs(t, prog, nil, 1)
}

func TestNIPGood(t *testing.T) {
	prog := makeProgram(opcode.NIP)
	vm := load(prog)
	vm.estack.PushVal(1)
	vm.estack.PushVal(2)
	runVM(t, vm)
	assert.Equal(t, 1, vm.estack.Len())
	assert.Equal(t, int64(2), vm.estack.Pop().BigInt().Int64())
}

func TestNIPBadNoItem(t *testing.T) {
	prog := makeProgram(opcode.NIP)
	runWithArgs(t, prog, nil, 1)
}

func TestDROPGood(t *testing.T) {
	prog := makeProgram(opcode.DROP)
	vm := load(prog)
	vm.estack.PushVal(1)
	runVM(t, vm)
	assert.Equal(t, 0, vm.estack.Len())
}

func TestDROPBadNoItem(t *testing.T) {
	prog := makeProgram(opcode.DROP)
	runWithArgs(t, prog, nil)
}

func TestTUCKGood(t *testing.T) {
	prog := makeProgram(opcode.TUCK)
	vm := load(prog)
	vm.estack.PushVal(42)
	vm.estack.PushVal(34)
	runVM(t, vm)
	assert.Equal(t, 3, vm.estack.Len())
	assert.Equal(t, int64(34), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(42), vm.estack.Pop().BigInt().Int64())
	assert.Equal(t, int64(34), vm.estack.Pop().BigInt().Int64())
}

func TestTUCKBadNoitems(t *testing.T) {
	prog := makeProgram(opcode.TUCK)
	runWithArgs(t, prog, nil, 1)
}

func TestREVERSE3(t *testing.T) {
	prog := makeProgram(opcode.REVERSE3)
	t.Run("SmallStack", getTestFuncForVM(prog, nil, 1, 2))
	t.Run("Good", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(1)
		v.estack.PushVal(2)
		v.estack.PushVal(3)
		runVM(t, v)
		require.Equal(t, 3, v.estack.Len())
		require.Equal(t, int64(1), v.estack.Pop().BigInt().Int64())
		require.Equal(t, int64(2), v.estack.Pop().BigInt().Int64())
		require.Equal(t, int64(3), v.estack.Pop().BigInt().Int64())
	})
}

func TestREVERSEN(t *testing.T) {
	prog := makeProgram(opcode.REVERSEN)
	t.Run("CustomN", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(1)
		v.estack.PushVal(2)
		v.estack.PushVal(3)
		v.estack.PushVal(4)
		v.estack.PushVal(3)
		runVM(t, v)
		require.Equal(t, 4, v.estack.Len())
		require.Equal(t, int64(2), v.estack.Pop().BigInt().Int64())
		require.Equal(t, int64(3), v.estack.Pop().BigInt().Int64())
		require.Equal(t, int64(4), v.estack.Pop().BigInt().Int64())
		require.Equal(t, int64(1), v.estack.Pop().BigInt().Int64())
	})
	t.Run("BigN", getTestFuncForVM(prog, nil, 1, 2, 3))
	t.Run("NegativeN", getTestFuncForVM(prog, nil, 1, 2, -1))
}

func TestJMPs(t *testing.T) {
	testCases := []struct {
		name string
		op   opcode.Opcode
		args []any
		cond bool
	}{
		{"JMPIF true", opcode.JMPIF, []any{true}, true},
		{"JMPIF false", opcode.JMPIF, []any{false}, false},
		{"JMPIFNOT true", opcode.JMPIFNOT, []any{true}, false},
		{"JMPIFNOT false", opcode.JMPIFNOT, []any{false}, true},
		{"JMPEQ", opcode.JMPEQ, []any{4, 4}, true},
		{"JMPNE", opcode.JMPNE, []any{4, 5}, true},
		{"JMPGT", opcode.JMPGT, []any{5, 4}, true},
		{"JMPGE", opcode.JMPGE, []any{4, 4}, true},
		{"JMPLT", opcode.JMPLT, []any{3, 4}, true},
		{"JMPLE", opcode.JMPLE, []any{4, 4}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// jump over the PUSH2, so that a taken branch leaves PUSH3 only
			prog := makeProgram(tc.op, 3, opcode.PUSH2, opcode.PUSH3)
			v := load(prog)
			for i := range tc.args {
				v.estack.PushVal(tc.args[i])
			}
			runVM(t, v)
			if tc.cond {
				require.Equal(t, 1, v.estack.Len())
				require.Equal(t, int64(3), v.estack.Pop().BigInt().Int64())
			} else {
				require.Equal(t, 2, v.estack.Len())
				require.Equal(t, int64(3), v.estack.Pop().BigInt().Int64())
				require.Equal(t, int64(2), v.estack.Pop().BigInt().Int64())
			}
		})
	}
}

func TestCALLA(t *testing.T) {
	prog := makeProgram(
		opcode.PUSHA, 7, 0, 0, 0, // -> ip=7
		opcode.CALLA,
		opcode.RET,
		opcode.PUSH5, // ip=7
		opcode.RET)
	v := load(prog)
	runVM(t, v)
	require.Equal(t, 1, v.estack.Len())
	require.Equal(t, int64(5), v.estack.Pop().BigInt().Int64())
}

func TestCALLABadPointer(t *testing.T) {
	prog := makeProgram(opcode.CALLA)
	v := load(prog)
	v.estack.PushItem(stackitem.NewPointerWithHash(0, []byte{1}, util.Uint160{4, 5, 6}))
	checkVMFailed(t, v)
}

func TestCALLANotPointer(t *testing.T) {
	prog := makeProgram(opcode.CALLA)
	runWithArgs(t, prog, nil, 5)
}

func TestCALLT(t *testing.T) {
	prog := makeProgram(opcode.CALLT, 1, 0)
	t.Run("no loader", func(t *testing.T) {
		v := load(prog)
		checkVMFailed(t, v)
	})
	t.Run("good", func(t *testing.T) {
		v := load(prog)
		v.LoadToken = func(id int32) error {
			v.estack.PushVal(int(id) + 10)
			return nil
		}
		runVM(t, v)
		require.Equal(t, int64(11), v.estack.Pop().BigInt().Int64())
	})
	t.Run("loader error", func(t *testing.T) {
		v := load(prog)
		v.LoadToken = func(id int32) error {
			return errors.New("unknown token")
		}
		checkVMFailed(t, v)
	})
}

func TestInvocationLimit(t *testing.T) {
	prog := []byte{byte(opcode.CALL), 0, byte(opcode.RET)}
	v := load(prog)
	checkVMFailed(t, v)
}

func TestRETMultipleContexts(t *testing.T) {
	v := newTestVM()
	v.LoadScript(makeProgram(opcode.PUSH2))
	v.LoadScript(makeProgram(opcode.PUSH3))
	runVM(t, v)
	require.Equal(t, 2, v.estack.Len())
	require.Equal(t, int64(2), v.estack.Pop().BigInt().Int64())
	require.Equal(t, int64(3), v.estack.Pop().BigInt().Int64())
}

func TestNOTEQUALByteArray(t *testing.T) {
	prog := makeProgram(opcode.NOTEQUAL)
	t.Run("True", getTestFuncForVM(prog, true, []byte{1, 2}, []byte{0, 1, 2}))
	t.Run("False", getTestFuncForVM(prog, false, []byte{1, 2}, []byte{1, 2}))
}

func TestMINGood(t *testing.T) {
	prog := makeProgram(opcode.MIN)
	runWithArgs(t, prog, 2, 2, 8)
}

func TestMAXGood(t *testing.T) {
	prog := makeProgram(opcode.MAX)
	runWithArgs(t, prog, 8, 2, 8)
}

func TestWITHIN(t *testing.T) {
	prog := makeProgram(opcode.WITHIN)
	t.Run("True", getTestFuncForVM(prog, true, 4, 3, 5))
	t.Run("FalseLow", getTestFuncForVM(prog, false, 2, 3, 5))
	t.Run("FalseHigh", getTestFuncForVM(prog, false, 5, 3, 5))
}

func TestINITSSLOT(t *testing.T) {
	prog := makeProgram(opcode.INITSSLOT, 1, opcode.PUSH5,
		opcode.STSFLD0, opcode.LDSFLD0)
	runWithArgs(t, prog, 5)
}

func TestINITSSLOTZero(t *testing.T) {
	prog := makeProgram(opcode.INITSSLOT, 0)
	runWithArgs(t, prog, nil)
}

func TestINITSLOT(t *testing.T) {
	t.Run("add args", func(t *testing.T) {
		prog := makeProgram(opcode.INITSLOT, 1, 2,
			opcode.LDARG0, opcode.LDARG1, opcode.ADD,
			opcode.STLOC0, opcode.LDLOC0)
		runWithArgs(t, prog, 9, 4, 5)
	})
	t.Run("no args", func(t *testing.T) {
		prog := makeProgram(opcode.INITSLOT, 0, 0)
		runWithArgs(t, prog, nil)
	})
	t.Run("double init", func(t *testing.T) {
		prog := makeProgram(opcode.INITSLOT, 1, 0, opcode.INITSLOT, 1, 0)
		runWithArgs(t, prog, nil)
	})
	t.Run("not enough args", func(t *testing.T) {
		prog := makeProgram(opcode.INITSLOT, 0, 2)
		runWithArgs(t, prog, nil, 1)
	})
}

func TestTHROWUnhandled(t *testing.T) {
	prog := makeProgram(opcode.PUSH13, opcode.THROW)
	v := load(prog)
	err := v.Run()
	require.Error(t, err)
	require.True(t, v.HasFailed())
}

func TestTRYCatch(t *testing.T) {
	prog := makeProgram(
		opcode.TRY, 6, 0, // catch at +6, no finally
		opcode.PUSHINT8, 42,
		opcode.THROW,
		opcode.PUSH1, // catch: exception on top
		opcode.ADD,
		opcode.ENDTRY, 2,
	)
	v := load(prog)
	runVM(t, v)
	require.Equal(t, 1, v.estack.Len())
	require.Equal(t, int64(43), v.estack.Pop().BigInt().Int64())
}

func TestTRYFinally(t *testing.T) {
	prog := makeProgram(
		opcode.TRY, 0, 6, // no catch, finally at +6
		opcode.PUSH2,
		opcode.ENDTRY, 4, // end at +4
		opcode.NOP, // finally
		opcode.ENDFINALLY,
	)
	v := load(prog)
	runVM(t, v)
	require.Equal(t, 1, v.estack.Len())
	require.Equal(t, int64(2), v.estack.Pop().BigInt().Int64())
}

func TestTRYFinallyRethrows(t *testing.T) {
	prog := makeProgram(
		opcode.TRY, 0, 6, // no catch, finally at +6
		opcode.PUSH1,
		opcode.THROW,
		opcode.NOP,
		opcode.ENDFINALLY, // finally done, exception is still there
	)
	v := load(prog)
	checkVMFailed(t, v)
}

func TestTRYBothOffsetsZero(t *testing.T) {
	prog := makeProgram(opcode.TRY, 0, 0)
	v := load(prog)
	checkVMFailed(t, v)
}

func TestTRYMaxNesting(t *testing.T) {
	var ops []opcode.Opcode
	for i := 0; i < MaxTryNestingDepth+1; i++ {
		ops = append(ops, opcode.TRY, 1, 1)
	}
	prog := makeProgram(ops...)
	v := load(prog)
	checkVMFailed(t, v)
}

func TestABORT(t *testing.T) {
	prog := makeProgram(opcode.ABORT)
	v := load(prog)
	checkVMFailed(t, v)
}

func TestABORTMSG(t *testing.T) {
	prog := makeProgram(opcode.PUSHDATA1, 3, 'm', 's', 'g', opcode.ABORTMSG)
	v := load(prog)
	err := v.Run()
	require.Error(t, err)
	require.Contains(t, err.Error(), "msg")
}

func TestASSERT(t *testing.T) {
	prog := makeProgram(opcode.ASSERT)
	t.Run("true", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(true)
		runVM(t, v)
		require.Equal(t, 0, v.estack.Len())
	})
	t.Run("false", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(false)
		checkVMFailed(t, v)
	})
}

func TestASSERTMSG(t *testing.T) {
	prog := makeProgram(opcode.PUSHDATA1, 3, 'm', 's', 'g', opcode.ASSERTMSG)
	t.Run("true", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(true)
		runVM(t, v)
		require.Equal(t, 0, v.estack.Len())
	})
	t.Run("false", func(t *testing.T) {
		v := load(prog)
		v.estack.PushVal(false)
		err := v.Run()
		require.Error(t, err)
		require.Contains(t, err.Error(), "msg")
	})
}

func TestSyscallError(t *testing.T) {
	prog := makeProgram(opcode.SYSCALL, 1, 2, 3, 5)
	v := load(prog)
	v.SyscallHandler = fooInteropHandler
	checkVMFailed(t, v)
}

func TestScriptHashes(t *testing.T) {
	v := newTestVM()
	v.SyscallHandler = func(v *VM, id uint32) error { return nil }
	prog := makeProgram(opcode.PUSH1)
	h1 := util.Uint160{1, 2, 3}
	h2 := util.Uint160{3, 2, 1}
	v.LoadScriptWithHash(prog, h1, callflag.All)
	v.LoadScriptWithCallingHash(h1, prog, h2, callflag.All, -1, 0)
	require.Equal(t, h2, v.GetCurrentScriptHash())
	require.Equal(t, h1, v.GetCallingScriptHash())
	require.Equal(t, h1, v.GetEntryScriptHash())
	require.Equal(t, callflag.All, v.Context().GetCallFlags())
}

func makeProgram(opcodes ...opcode.Opcode) []byte {
	prog := make([]byte, len(opcodes)+1) // RET
	for i := range opcodes {
		prog[i] = byte(opcodes[i])
	}
	prog[len(prog)-1] = byte(opcode.RET)
	return prog
}

func newTestVM() *VM {
	return New()
}

func load(prog []byte) *VM {
	vm := newTestVM()
	if len(prog) != 0 {
		vm.LoadScript(prog)
	}
	return vm
}

func randomBytes(n int) []byte {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return b
}

// getTestFuncForVM returns a function which loads prog, pushes args and checks
// that the execution result matches the given one. A nil result means the
// program is expected to fail.
func getTestFuncForVM(prog []byte, result any, args ...any) func(t *testing.T) {
	return func(t *testing.T) {
		v := load(prog)
		for i := range args {
			v.estack.PushVal(args[i])
		}
		if result == nil {
			checkVMFailed(t, v)
			return
		}
		runVM(t, v)
		require.Equal(t, 1, v.estack.Len())
		require.Equal(t, stackitem.Make(result), v.estack.Pop().Item())
	}
}

func runWithArgs(t *testing.T, prog []byte, result any, args ...any) {
	getTestFuncForVM(prog, result, args...)(t)
}
