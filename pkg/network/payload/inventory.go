package payload

import (
	"errors"

	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
)

var errTooManyHashes = errors.New("too many hashes")

// The node can broadcast the object information it owns by this message.
// The message can be sent automatically or can be used to answer getblocks
// messages.

// InventoryType is the type of an object in the Inventory message.
type InventoryType uint8

// String implements the Stringer interface.
func (i InventoryType) String() string {
	switch i {
	case TXType:
		return "TX"
	case BlockType:
		return "block"
	case ExtensibleType:
		return "extensible"
	default:
		return "unknown inventory type"
	}
}

// Valid returns true if the inventory (type) is known.
func (i InventoryType) Valid() bool {
	return i == BlockType || i == TXType || i == ExtensibleType
}

// List of valid InventoryTypes.
const (
	// TXType is the transaction type.
	TXType InventoryType = 0x2b
	// BlockType is the block type.
	BlockType InventoryType = 0x2c
	// ExtensibleType is the extensible payload type.
	ExtensibleType InventoryType = 0x2e
)

// MaxHashesCount is the maximum number of hashes carried by one inventory.
const MaxHashesCount = 500

// Inventory payload.
type Inventory struct {
	// Type of the object hash.
	Type InventoryType

	// A list of hashes.
	Hashes []util.Uint256
}

// NewInventory returns a pointer to an Inventory.
func NewInventory(typ InventoryType, hashes []util.Uint256) *Inventory {
	return &Inventory{
		Type:   typ,
		Hashes: hashes,
	}
}

// DecodeBinary implements the Serializable interface.
func (p *Inventory) DecodeBinary(br *io.BinReader) {
	p.Type = InventoryType(br.ReadB())

	listLen := br.ReadVarUint()
	if listLen > MaxHashesCount {
		br.Err = errTooManyHashes
		return
	}
	p.Hashes = make([]util.Uint256, listLen)
	for i := 0; i < int(listLen); i++ {
		br.ReadBytes(p.Hashes[i][:])
	}
}

// EncodeBinary implements the Serializable interface.
func (p *Inventory) EncodeBinary(bw *io.BinWriter) {
	bw.WriteB(byte(p.Type))

	listLen := len(p.Hashes)
	bw.WriteVarUint(uint64(listLen))
	for i := 0; i < listLen; i++ {
		bw.WriteBytes(p.Hashes[i][:])
	}
}
