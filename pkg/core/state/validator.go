package state

import (
	"math/big"

	"github.com/r3e-network/neo-core/pkg/crypto/keys"
)

// Validator is a deserialized registered validator with its votes.
type Validator struct {
	Key   *keys.PublicKey
	Votes *big.Int
}
