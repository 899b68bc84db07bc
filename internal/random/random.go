package random

import (
	"math/rand"
	"time"

	"github.com/r3e-network/neo-core/pkg/util"
)

var rnd = rand.New(rand.NewSource(time.Now().UnixNano()))

// String returns a random string with the n as its length.
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(Int('A', 'Z'))
	}

	return string(b)
}

// Int returns a random integer in [minI,maxI).
func Int(minI, maxI int) int {
	return minI + rnd.Intn(maxI-minI)
}

// Bytes returns a random byte slice with the specified length.
func Bytes(n int) []byte {
	b := make([]byte, n)
	Fill(b)
	return b
}

// Fill fills the buffer with random bytes.
func Fill(buf []byte) {
	rnd.Read(buf)
}

// Uint256 returns a random Uint256.
func Uint256() util.Uint256 {
	str := Bytes(util.Uint256Size)
	return util.Uint256(str)
}

// Uint160 returns a random Uint160.
func Uint160() util.Uint160 {
	str := Bytes(util.Uint160Size)
	return util.Uint160(str)
}
