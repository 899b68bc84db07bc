package payload

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/random"
	"github.com/r3e-network/neo-core/internal/testserdes"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/stretchr/testify/assert"
)

func TestInventoryEncodeDecode(t *testing.T) {
	hashes := []util.Uint256{
		random.Uint256(),
		random.Uint256(),
	}
	inv := NewInventory(BlockType, hashes)

	testserdes.EncodeDecodeBinary(t, inv, new(Inventory))
}

func TestEmptyInv(t *testing.T) {
	msgInv := NewInventory(TXType, []util.Uint256{})

	data, err := testserdes.EncodeBinary(msgInv)
	assert.Nil(t, err)
	assert.Equal(t, []byte{byte(TXType), 0}, data)
	assert.Equal(t, 0, len(msgInv.Hashes))
}

func TestValid(t *testing.T) {
	assert.True(t, TXType.Valid())
	assert.True(t, BlockType.Valid())
	assert.True(t, ExtensibleType.Valid())
	assert.False(t, InventoryType(0xff).Valid())
}

func TestString(t *testing.T) {
	assert.Equal(t, "TX", TXType.String())
	assert.Equal(t, "block", BlockType.String())
	assert.Equal(t, "extensible", ExtensibleType.String())
	assert.True(t, len(InventoryType(0xff).String()) > 0)
}
