package stateroot

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/r3e-network/neo-core/pkg/core/mpt"
	"github.com/r3e-network/neo-core/pkg/core/state"
	"github.com/r3e-network/neo-core/pkg/core/storage"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/util"
	"go.uber.org/zap"
)

type (
	// VerifierFunc is a function that allows to check the witness of an
	// account for the given verifiable item with a gas limit.
	VerifierFunc func(util.Uint160, hash.Hashable, *transaction.Witness, int64) (int64, error)

	// Module represents a module for local processing of state roots.
	Module struct {
		Store    *storage.MemCachedStore
		mpt      *mpt.Trie
		verifier VerifierFunc
		log      *zap.Logger

		currentLocal    atomic.Value
		localHeight     atomic.Uint32
		validatedHeight atomic.Uint32

		mtx  sync.RWMutex
		keys []keyCache

		updateValidatorsCb func(height uint32, publicKeys keys.PublicKeys)
	}

	keyCache struct {
		height           uint32
		validatorsKeys   keys.PublicKeys
		validatorsHash   util.Uint160
		validatorsScript []byte
	}
)

// NewModule returns a new instance of the state root module.
func NewModule(verif VerifierFunc, log *zap.Logger, s *storage.MemCachedStore) *Module {
	return &Module{
		verifier: verif,
		log:      log,
		Store:    s,
	}
}

// GetStateProof returns a proof of having the key in the MPT with the
// specified root.
func (s *Module) GetStateProof(root util.Uint256, key []byte) ([][]byte, error) {
	tr := mpt.NewTrie(mpt.NewHashNode(root), false, storage.NewMemCachedStore(s.Store))
	return tr.GetProof(key)
}

// GetStateRoot returns the state root for the given height.
func (s *Module) GetStateRoot(height uint32) (*state.MPTRoot, error) {
	return s.getStateRoot(makeStateRootKey(height))
}

// CurrentLocalStateRoot returns the hash of the local state root.
func (s *Module) CurrentLocalStateRoot() util.Uint256 {
	return s.currentLocal.Load().(util.Uint256)
}

// CurrentLocalHeight returns the height of the local state root.
func (s *Module) CurrentLocalHeight() uint32 {
	return s.localHeight.Load()
}

// CurrentValidatedHeight returns the current state root validated height.
func (s *Module) CurrentValidatedHeight() uint32 {
	return s.validatedHeight.Load()
}

// Init initializes the state root module at the given height.
func (s *Module) Init(height uint32, enableRefCount bool) error {
	data, err := s.Store.Get([]byte{byte(storage.DataMPTAux), prefixValidated})
	if err == nil {
		s.validatedHeight.Store(binary.LittleEndian.Uint32(data))
	}

	if height == 0 {
		s.mpt = mpt.NewTrie(nil, enableRefCount, s.Store)
		s.currentLocal.Store(util.Uint256{})
		return nil
	}
	r, err := s.getStateRoot(makeStateRootKey(height))
	if err != nil {
		return err
	}
	s.currentLocal.Store(r.Root)
	s.localHeight.Store(r.Index)
	s.mpt = mpt.NewTrie(mpt.NewHashNode(r.Root), enableRefCount, s.Store)
	return nil
}

// UpdateStateRoot updates the local MPT with the storage changes made by the
// block at the given height and records the new local state root.
func (s *Module) UpdateStateRoot(height uint32, ops []storage.Operation) error {
	for _, op := range ops {
		var err error
		if op.State == "Deleted" {
			err = s.mpt.Delete(op.Key)
		} else {
			err = s.mpt.Put(op.Key, op.Value)
		}
		if err != nil {
			return fmt.Errorf("failed to update MPT: %w", err)
		}
	}
	s.mpt.Flush()
	s.addLocalStateRoot(&state.MPTRoot{
		Index: height,
		Root:  s.mpt.StateRoot(),
	})
	return nil
}

// VerifyStateRoot checks if the state root is valid.
func (s *Module) VerifyStateRoot(r *state.MPTRoot) error {
	_, err := s.getStateRoot(makeStateRootKey(r.Index - 1))
	if err != nil {
		return fmt.Errorf("can't get previous state root: %w", err)
	}
	if len(r.Witness) != 1 {
		return fmt.Errorf("no witness")
	}
	return s.verifyWitness(r)
}

const maxVerificationGAS = 2_00000000

// verifyWitness verifies the state root witness.
func (s *Module) verifyWitness(r *state.MPTRoot) error {
	s.mtx.Lock()
	h := s.getKeyCacheForHeight(r.Index).validatorsHash
	s.mtx.Unlock()
	_, err := s.verifier(h, r, &r.Witness[0], maxVerificationGAS)
	return err
}
