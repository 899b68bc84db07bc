package vm

import (
	"testing"

	"github.com/r3e-network/neo-core/pkg/core/interop/interopnames"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/vm/emit"
	"github.com/r3e-network/neo-core/pkg/vm/opcode"
	"github.com/stretchr/testify/require"
)

func TestParseSignatureContract(t *testing.T) {
	pub := randomBytes(33)
	buf := io.NewBufBinWriter()
	emit.Bytes(buf.BinWriter, pub)
	emit.Syscall(buf.BinWriter, interopnames.SystemCryptoCheckSig)
	prog := buf.Bytes()

	actual, ok := ParseSignatureContract(prog)
	require.True(t, ok)
	require.Equal(t, pub, actual)
}

func TestIsSignatureContract(t *testing.T) {
	t.Run("valid contract", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Syscall(buf.BinWriter, interopnames.SystemCryptoCheckSig)
		require.True(t, IsSignatureContract(buf.Bytes()))
	})

	t.Run("invalid interop ID", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Syscall(buf.BinWriter, interopnames.SystemRuntimeLog)
		require.False(t, IsSignatureContract(buf.Bytes()))
	})

	t.Run("invalid pubkey size", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		emit.Bytes(buf.BinWriter, randomBytes(32))
		emit.Syscall(buf.BinWriter, interopnames.SystemCryptoCheckSig)
		require.False(t, IsSignatureContract(buf.Bytes()))
	})

	t.Run("no signature check", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Opcodes(buf.BinWriter, opcode.RET, opcode.RET, opcode.RET, opcode.RET, opcode.RET)
		require.False(t, IsSignatureContract(buf.Bytes()))
	})
}

func testMultisigContract(t *testing.T, m, n int) ([]byte, [][]byte) {
	pubs := make([][]byte, n)
	for i := 0; i < n; i++ {
		pubs[i] = randomBytes(33)
	}
	buf := io.NewBufBinWriter()
	emit.Int(buf.BinWriter, int64(m))
	for i := 0; i < n; i++ {
		emit.Bytes(buf.BinWriter, pubs[i])
	}
	emit.Int(buf.BinWriter, int64(n))
	emit.Syscall(buf.BinWriter, interopnames.SystemCryptoCheckMultisig)
	require.NoError(t, buf.Err)
	return buf.Bytes(), pubs
}

func TestParseMultiSigContract(t *testing.T) {
	prog, pubs := testMultisigContract(t, 2, 3)
	nsigs, actual, ok := ParseMultiSigContract(prog)
	require.True(t, ok)
	require.Equal(t, 2, nsigs)
	require.Equal(t, pubs, actual)
}

func TestIsMultiSigContract(t *testing.T) {
	t.Run("valid contract", func(t *testing.T) {
		prog, _ := testMultisigContract(t, 3, 3)
		require.True(t, IsMultiSigContract(prog))
	})

	t.Run("1 out of 1", func(t *testing.T) {
		prog, _ := testMultisigContract(t, 1, 1)
		require.True(t, IsMultiSigContract(prog))
	})

	t.Run("m bigger than n", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		emit.Int(buf.BinWriter, 3)
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Int(buf.BinWriter, 2)
		emit.Syscall(buf.BinWriter, interopnames.SystemCryptoCheckMultisig)
		require.False(t, IsMultiSigContract(buf.Bytes()))
	})

	t.Run("n not matching number of keys", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		emit.Int(buf.BinWriter, 1)
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Int(buf.BinWriter, 3)
		emit.Syscall(buf.BinWriter, interopnames.SystemCryptoCheckMultisig)
		require.False(t, IsMultiSigContract(buf.Bytes()))
	})

	t.Run("invalid interop ID", func(t *testing.T) {
		buf := io.NewBufBinWriter()
		emit.Int(buf.BinWriter, 1)
		emit.Bytes(buf.BinWriter, randomBytes(33))
		emit.Int(buf.BinWriter, 1)
		emit.Syscall(buf.BinWriter, interopnames.SystemRuntimeLog)
		require.False(t, IsMultiSigContract(buf.Bytes()))
	})

	t.Run("trailing instructions", func(t *testing.T) {
		prog, _ := testMultisigContract(t, 2, 2)
		prog = append(prog, byte(opcode.RET))
		require.False(t, IsMultiSigContract(prog))
	})

	t.Run("empty script", func(t *testing.T) {
		require.False(t, IsMultiSigContract(nil))
	})
}
