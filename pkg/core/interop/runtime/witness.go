package runtime

import (
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/r3e-network/neo-core/pkg/core/interop"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// CheckHashedWitness checks the given hash against the loaded container's
// signers. It does not perform actual witness verification, only checks the
// scopes of a matching signer.
func CheckHashedWitness(ic *interop.Context, hash util.Uint160) (bool, error) {
	callingSH := ic.VM.GetCallingScriptHash()
	if !callingSH.Equals(util.Uint160{}) && hash.Equals(callingSH) {
		return true, nil
	}
	return checkScope(ic, hash)
}

func checkScope(ic *interop.Context, hash util.Uint160) (bool, error) {
	signers := ic.GetSigners()
	if signers == nil {
		return false, errors.New("no valid signers")
	}
	for i := range signers {
		c := &signers[i]
		if !c.Account.Equals(hash) {
			continue
		}
		if c.Scopes == transaction.Global {
			return true, nil
		}
		if c.Scopes&transaction.CalledByEntry != 0 {
			if ic.VM.Context().IsCalledByEntry() {
				return true, nil
			}
		}
		if c.Scopes&transaction.CustomContracts != 0 {
			currentScriptHash := ic.VM.GetCurrentScriptHash()
			for _, allowedContract := range c.AllowedContracts {
				if allowedContract.Equals(currentScriptHash) {
					return true, nil
				}
			}
		}
		if c.Scopes&transaction.CustomGroups != 0 {
			cs, err := ic.GetContract(ic.VM.GetCurrentScriptHash())
			if err != nil {
				return false, nil
			}
			for _, allowedGroup := range c.AllowedGroups {
				if cs.Manifest.Groups.Contains(allowedGroup) {
					return true, nil
				}
			}
		}
		return false, nil
	}
	return false, nil
}

// CheckKeyedWitness checks the hash of the signature contract of the given
// public key against the loaded container's signers.
func CheckKeyedWitness(ic *interop.Context, key *keys.PublicKey) (bool, error) {
	return CheckHashedWitness(ic, key.GetScriptHash())
}

// CheckWitness checks witnesses.
func CheckWitness(ic *interop.Context) error {
	var res bool
	var err error

	hashOrKey := ic.VM.Estack().Pop().Bytes()
	hash, err := util.Uint160DecodeBytesBE(hashOrKey)
	if err != nil {
		var key *keys.PublicKey
		key, err = keys.NewPublicKeyFromBytes(hashOrKey, elliptic.P256())
		if err != nil {
			return errors.New("parameter given is neither a key nor a hash")
		}
		res, err = CheckKeyedWitness(ic, key)
	} else {
		res, err = CheckHashedWitness(ic, hash)
	}
	if err != nil {
		return fmt.Errorf("failed to check witness: %w", err)
	}
	ic.VM.Estack().PushItem(stackitem.Bool(res))
	return nil
}
