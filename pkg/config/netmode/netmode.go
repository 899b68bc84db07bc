package netmode

import "strconv"

// Magic describes the network the node operates on, it's a part of the
// handshake and of signed transaction/block data.
type Magic uint32

const (
	// MainNet is the magic code of the Neo main network.
	MainNet Magic = 0x334f454e // NEO3
	// TestNet is the magic code of the Neo test network.
	TestNet Magic = 0x3554334e // N3T5
	// PrivNet is the magic code commonly used for private networks.
	PrivNet Magic = 56753 // docker privnet
	// UnitTestNet is a stub magic code used for testing purposes.
	UnitTestNet Magic = 42
)

// String implements the stringer interface.
func (n Magic) String() string {
	switch n {
	case PrivNet:
		return "privnet"
	case TestNet:
		return "testnet"
	case MainNet:
		return "mainnet"
	case UnitTestNet:
		return "unit_testnet"
	default:
		return "net 0x" + strconv.FormatUint(uint64(n), 16)
	}
}
