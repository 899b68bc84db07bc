package payload

import (
	"errors"

	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
)

// GetBlocks contains getblocks message payload.
type GetBlocks struct {
	// Hash of the latest block that node requests.
	HashStart util.Uint256
	// Count of blocks to request. Must be either -1 (meaning "as much as
	// possible") or positive, limited by MaxHashesCount.
	Count int16
}

// NewGetBlocks returns a pointer to a GetBlocks object.
func NewGetBlocks(start util.Uint256, count int16) *GetBlocks {
	return &GetBlocks{
		HashStart: start,
		Count:     count,
	}
}

// DecodeBinary implements the Serializable interface.
func (p *GetBlocks) DecodeBinary(br *io.BinReader) {
	br.ReadBytes(p.HashStart[:])
	p.Count = int16(br.ReadU16LE())
	if p.Count < -1 || p.Count == 0 || p.Count > MaxHashesCount {
		br.Err = errors.New("invalid block count")
	}
}

// EncodeBinary implements the Serializable interface.
func (p *GetBlocks) EncodeBinary(bw *io.BinWriter) {
	bw.WriteBytes(p.HashStart[:])
	bw.WriteU16LE(uint16(p.Count))
}
