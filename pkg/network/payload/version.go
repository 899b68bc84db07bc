package payload

import (
	"time"

	"github.com/r3e-network/neo-core/pkg/config/netmode"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/network/capability"
)

// MaxUserAgentLength is the limit for the user agent field.
const MaxUserAgentLength = 1024

// Version payload.
type Version struct {
	// Magic of the network this node operates on.
	Magic netmode.Magic
	// Version of the protocol.
	Version uint32
	// Timestamp of the version message creation.
	Timestamp uint32
	// Nonce is used to distinguish the node from public IP.
	Nonce uint32
	// UserAgent of the node.
	UserAgent []byte
	// Capabilities is a list of node capabilities.
	Capabilities capability.Capabilities
}

// NewVersion returns a pointer to a Version payload.
func NewVersion(magic netmode.Magic, id uint32, ua string, c []capability.Capability) *Version {
	return &Version{
		Magic:        magic,
		Version:      0,
		Timestamp:    uint32(time.Now().UTC().Unix()),
		Nonce:        id,
		UserAgent:    []byte(ua),
		Capabilities: c,
	}
}

// DecodeBinary implements the Serializable interface.
func (p *Version) DecodeBinary(br *io.BinReader) {
	p.Magic = netmode.Magic(br.ReadU32LE())
	p.Version = br.ReadU32LE()
	p.Timestamp = br.ReadU32LE()
	p.Nonce = br.ReadU32LE()
	p.UserAgent = br.ReadVarBytes(MaxUserAgentLength)
	p.Capabilities.DecodeBinary(br)
}

// EncodeBinary implements the Serializable interface.
func (p *Version) EncodeBinary(bw *io.BinWriter) {
	bw.WriteU32LE(uint32(p.Magic))
	bw.WriteU32LE(p.Version)
	bw.WriteU32LE(p.Timestamp)
	bw.WriteU32LE(p.Nonce)
	bw.WriteVarBytes(p.UserAgent)
	p.Capabilities.EncodeBinary(bw)
}
