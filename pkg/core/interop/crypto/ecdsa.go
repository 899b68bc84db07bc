package crypto

import (
	"crypto/elliptic"
	"errors"
	"fmt"

	"github.com/r3e-network/neo-core/pkg/core/fee"
	"github.com/r3e-network/neo-core/pkg/core/interop"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// ECDSASecp256r1CheckSig checks ECDSA signature using Secp256r1 elliptic curve.
func ECDSASecp256r1CheckSig(ic *interop.Context) error {
	keyb := ic.VM.Estack().Pop().Bytes()
	signature := ic.VM.Estack().Pop().Bytes()
	pkey, err := keys.NewPublicKeyFromBytes(keyb, elliptic.P256())
	if err != nil {
		return err
	}
	res := pkey.VerifyHashable(signature, ic.Network, ic.Container)
	ic.VM.Estack().PushItem(stackitem.Bool(res))
	return nil
}

// ECDSASecp256r1CheckMultisig checks multiple ECDSA signatures at once using
// Secp256r1 elliptic curve.
func ECDSASecp256r1CheckMultisig(ic *interop.Context) error {
	pkeys, err := ic.VM.Estack().PopSigElements()
	if err != nil {
		return fmt.Errorf("wrong parameters: %w", err)
	}
	if !ic.VM.AddGas(ic.BaseExecFee() * fee.ECDSAVerifyPrice * int64(len(pkeys))) {
		return errors.New("gas limit exceeded")
	}
	sigs, err := ic.VM.Estack().PopSigElements()
	if err != nil {
		return fmt.Errorf("wrong parameters: %w", err)
	}
	// It's ok to have more keys than there are signatures (it would
	// just mean that some keys didn't sign), but not the other way around.
	if len(sigs) > len(pkeys) {
		return errors.New("more signatures than there are keys")
	}
	digest := hash.NetSha256(ic.Network, ic.Container).BytesBE()
	sigok := checkMultisig(digest, sigs, pkeys)
	ic.VM.Estack().PushItem(stackitem.Bool(sigok))
	return nil
}

func checkMultisig(digest []byte, sigs, pkeys [][]byte) bool {
	m := len(sigs)
	n := len(pkeys)

	for i, j := 0, 0; i < m && j < n; {
		pkey, err := keys.NewPublicKeyFromBytes(pkeys[j], elliptic.P256())
		if err != nil {
			return false
		}
		if pkey.Verify(sigs[i], digest) {
			i++
		}
		j++
		if m-i > n-j {
			return false
		}
	}
	return true
}
