package native

import "math/big"

// gasIndexPair binds the amount of GAS generated per block to the block
// index the value takes effect from.
type gasIndexPair struct {
	Index       uint32
	GASPerBlock big.Int
}

// gasRecord is the history of GAS per block changes kept by NEO.
type gasRecord []gasIndexPair
