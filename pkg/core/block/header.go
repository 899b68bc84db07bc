package block

import (
	"errors"

	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
)

// Header holds the base info of a block.
type Header struct {
	// Version of the block.
	Version uint32

	// hash of the previous block.
	PrevHash util.Uint256

	// Root hash of a transaction list.
	MerkleRoot util.Uint256

	// Timestamp is a millisecond-precision timestamp.
	// The time stamp of each block must be later than the previous block's time stamp.
	// Generally, the difference between two block's time stamps is about 15 seconds and imprecision is allowed.
	// The height of the block must be exactly equal to the height of the previous block plus 1.
	Timestamp uint64

	// Nonce is block random number.
	Nonce uint64

	// index/height of the block.
	Index uint32

	// Contract address of the next miner.
	NextConsensus util.Uint160

	// Script used to validate the block.
	Script transaction.Witness

	// PrimaryIndex is the index of the primary consensus node for this block.
	PrimaryIndex byte

	// Hash of this block, created when binary encoded (double SHA256).
	hash util.Uint256

	// Whether hash was calculated.
	hashed bool
}

// Hash returns the hash of the block. Notice that it is cached internally,
// so no modifications should be done to the returned header structure.
func (b *Header) Hash() util.Uint256 {
	if !b.hashed {
		b.createHash()
	}
	return b.hash
}

// DecodeBinary implements the Serializable interface.
func (b *Header) DecodeBinary(br *io.BinReader) {
	b.decodeHashableFields(br)
	witnessCount := br.ReadVarUint()
	if br.Err == nil && witnessCount != 1 {
		br.Err = errors.New("wrong witness count")
		return
	}

	b.Script.DecodeBinary(br)
}

// EncodeBinary implements the Serializable interface.
func (b *Header) EncodeBinary(bw *io.BinWriter) {
	b.encodeHashableFields(bw)
	bw.WriteVarUint(1)
	b.Script.EncodeBinary(bw)
}

// createHash creates the hash of the block. The hash of the block is created
// over the hashable fields only, so witnesses are not taken into account.
func (b *Header) createHash() {
	buf := io.NewBufBinWriter()
	b.encodeHashableFields(buf.BinWriter)
	if buf.Err != nil {
		panic(buf.Err)
	}

	b.hash = hash.DoubleSha256(buf.Bytes())
	b.hashed = true
}

// encodeHashableFields will only encode the fields used for hashing.
// see Hash() for more information about the fields.
func (b *Header) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteU32LE(b.Version)
	bw.WriteBytes(b.PrevHash[:])
	bw.WriteBytes(b.MerkleRoot[:])
	bw.WriteU64LE(b.Timestamp)
	bw.WriteU64LE(b.Nonce)
	bw.WriteU32LE(b.Index)
	bw.WriteB(b.PrimaryIndex)
	bw.WriteBytes(b.NextConsensus[:])
}

// decodeHashableFields decodes the fields used for hashing.
// see Hash() for more information about the fields.
func (b *Header) decodeHashableFields(br *io.BinReader) {
	b.Version = br.ReadU32LE()
	br.ReadBytes(b.PrevHash[:])
	br.ReadBytes(b.MerkleRoot[:])
	b.Timestamp = br.ReadU64LE()
	b.Nonce = br.ReadU64LE()
	b.Index = br.ReadU32LE()
	b.PrimaryIndex = br.ReadB()
	br.ReadBytes(b.NextConsensus[:])

	// Make the hash of the block here so we dont need to do this
	// again.
	if br.Err == nil {
		b.createHash()
	}
}
