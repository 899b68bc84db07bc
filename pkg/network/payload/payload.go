package payload

import (
	"github.com/r3e-network/neo-core/pkg/io"
)

// Payload is anything that can be binary encoded/decoded.
type Payload interface {
	io.Serializable
}

// NullPayload is a dummy payload with no fields.
type NullPayload struct{}

// NewNullPayload returns zero-sized stub payload.
func NewNullPayload() NullPayload {
	return NullPayload{}
}

// DecodeBinary implements the Serializable interface.
func (p NullPayload) DecodeBinary(r *io.BinReader) {}

// EncodeBinary implements the Serializable interface.
func (p NullPayload) EncodeBinary(r *io.BinWriter) {}
