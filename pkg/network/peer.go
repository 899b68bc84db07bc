package network

import (
	"net"

	"github.com/r3e-network/neo-core/pkg/network/payload"
)

// Peer represents a network node the server is connected to.
type Peer interface {
	// RemoteAddr returns the remote address that we're connected to now.
	RemoteAddr() net.Addr
	// PeerAddr returns the remote address that should be used to establish
	// a new connection to the node. It can differ from the RemoteAddr
	// address in case the remote node is a client and its current
	// connection port is different from the one the other node should use
	// to connect to it. It's only valid after the handshake is completed.
	// Before that, it returns the same address as RemoteAddr.
	PeerAddr() net.Addr
	Disconnect(error)
	EnqueueMessage(*Message) error
	Done() chan error
	Version() *payload.Version
	LastBlockIndex() uint32
	UpdateLastBlockIndex(uint32)
	Handshaked() bool
	StartProtocol()
	SendVersion() error
	SendVersionAck(*Message) error
	HandleVersion(*payload.Version) error
	HandleVersionAck() error
	GetPingSent() int
	UpdatePingSent(int)
}
