package state

import (
	"math/big"

	"github.com/r3e-network/neo-core/pkg/encoding/bigint"
)

// StorageItem is the contract storage value.
type StorageItem []byte

// TryBig tries to interpret the contents of the item as a big.Int.
func (si StorageItem) TryBig() *big.Int {
	return bigint.FromBytes(si)
}

// StorageItemWithKey is a storage item with corresponding key.
type StorageItemWithKey struct {
	Key  []byte
	Item StorageItem
}
