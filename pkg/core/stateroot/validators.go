package stateroot

import (
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
)

// UpdateStateValidators updates the list of state validator keys.
func (s *Module) UpdateStateValidators(height uint32, pubs keys.PublicKeys) {
	script, _ := smartcontract.CreateDefaultMultiSigRedeemScript(pubs)
	h := hash.Hash160(script)

	s.mtx.Lock()
	kc := s.getKeyCacheForHeight(height)
	if kc.validatorsHash != h {
		s.keys = append(s.keys, keyCache{
			height:           height,
			validatorsKeys:   pubs,
			validatorsHash:   h,
			validatorsScript: script,
		})
		if s.updateValidatorsCb != nil {
			s.updateValidatorsCb(height, pubs)
		}
	}
	s.mtx.Unlock()
}

// SetUpdateValidatorsCallback sets a callback invoked when the state validator
// list changes.
func (s *Module) SetUpdateValidatorsCallback(f func(uint32, keys.PublicKeys)) {
	s.mtx.Lock()
	s.updateValidatorsCb = f
	s.mtx.Unlock()
}

func (s *Module) getKeyCacheForHeight(h uint32) keyCache {
	for i := len(s.keys) - 1; i >= 0; i-- {
		if s.keys[i].height <= h {
			return s.keys[i]
		}
	}
	return keyCache{}
}

// GetStateValidators returns the state validators for the given height.
func (s *Module) GetStateValidators(height uint32) keys.PublicKeys {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.getKeyCacheForHeight(height).validatorsKeys.Copy()
}
