package payload

import (
	"testing"

	"github.com/r3e-network/neo-core/internal/testserdes"
)

func TestPingEncodeDecode(t *testing.T) {
	payload := NewPing(uint32(1), uint32(2))
	testserdes.EncodeDecodeBinary(t, payload, new(Ping))
}
