package state

import (
	"errors"

	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
)

// MPTRoot represents the storage state root together with sign info.
type MPTRoot struct {
	Version byte                  `json:"version"`
	Index   uint32                `json:"index"`
	Root    util.Uint256          `json:"roothash"`
	Witness []transaction.Witness `json:"witnesses"`

	hash   util.Uint256
	hashed bool
}

// Hash returns the hash of s.
func (s *MPTRoot) Hash() util.Uint256 {
	if !s.hashed {
		buf := io.NewBufBinWriter()
		s.EncodeBinaryUnsigned(buf.BinWriter)
		s.hash = hash.DoubleSha256(buf.Bytes())
		s.hashed = true
	}
	return s.hash
}

// DecodeBinaryUnsigned decodes the hashable part of the state root.
func (s *MPTRoot) DecodeBinaryUnsigned(r *io.BinReader) {
	s.Version = r.ReadB()
	s.Index = r.ReadU32LE()
	r.ReadBytes(s.Root[:])
}

// EncodeBinaryUnsigned encodes the hashable part of the state root.
func (s *MPTRoot) EncodeBinaryUnsigned(w *io.BinWriter) {
	w.WriteB(s.Version)
	w.WriteU32LE(s.Index)
	w.WriteBytes(s.Root[:])
}

// DecodeBinary implements the Serializable interface.
func (s *MPTRoot) DecodeBinary(r *io.BinReader) {
	s.DecodeBinaryUnsigned(r)
	if r.Err != nil {
		return
	}

	var witnessCount = r.ReadVarUint()
	if r.Err == nil && witnessCount > 1 {
		r.Err = errors.New("wrong witness count")
		return
	}
	if witnessCount != 0 {
		s.Witness = make([]transaction.Witness, 1)
		s.Witness[0].DecodeBinary(r)
	}
}

// EncodeBinary implements the Serializable interface.
func (s *MPTRoot) EncodeBinary(w *io.BinWriter) {
	s.EncodeBinaryUnsigned(w)
	w.WriteVarUint(uint64(len(s.Witness)))
	for i := range s.Witness {
		s.Witness[i].EncodeBinary(w)
	}
}
