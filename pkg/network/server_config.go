package network

import (
	"time"

	"github.com/r3e-network/neo-core/pkg/config"
	"github.com/r3e-network/neo-core/pkg/config/netmode"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	// MinPeers is the minimum number of peers for normal operation.
	// When a node has less than this number of peers, it tries to
	// connect with some new ones.
	MinPeers int

	// AttemptConnPeers is the number of connections to try to establish
	// when the connection count drops below the MinPeers value.
	AttemptConnPeers int

	// MaxPeers is the maximum number of peers that can
	// be connected to the server.
	MaxPeers int

	// The user agent of the server.
	UserAgent string

	// Address is the node's bind address.
	Address string

	// AnnouncedPort is the port the node should be announced on, it can
	// differ from the actual one the server listens on when the node goes
	// through NAT.
	AnnouncedPort uint16

	// Port is the actual node port the server listens on.
	Port uint16

	// The network mode the server will operate on.
	Net netmode.Magic

	// Relay determines whether the server is forwarding its inventory.
	Relay bool

	// Seeds is a list of initial nodes used to establish connectivity.
	Seeds []string

	// Maximum duration a single dial may take.
	DialTimeout time.Duration

	// The duration between protocol ticks with each connected peer.
	// When this is 0, the default interval of 5 seconds will be used.
	ProtoTickInterval time.Duration

	// Interval used in pinging mechanism for syncing blocks.
	PingInterval time.Duration
	// Time to wait for pong (response for the sent ping request).
	PingTimeout time.Duration
}

// NewServerConfig creates a new ServerConfig struct
// using the main applications config.
func NewServerConfig(cfg config.Config) ServerConfig {
	appConfig := cfg.ApplicationConfiguration
	protoConfig := cfg.ProtocolConfiguration

	return ServerConfig{
		UserAgent:         cfg.GenerateUserAgent(),
		Address:           appConfig.Address,
		AnnouncedPort:     appConfig.AnnouncedNodePort,
		Port:              appConfig.NodePort,
		Net:               protoConfig.Magic,
		Relay:             appConfig.Relay,
		Seeds:             protoConfig.SortedSeedList(),
		DialTimeout:       time.Duration(appConfig.DialTimeout) * time.Second,
		ProtoTickInterval: time.Duration(appConfig.ProtoTickInterval) * time.Second,
		PingInterval:      time.Duration(appConfig.PingInterval) * time.Second,
		PingTimeout:       time.Duration(appConfig.PingTimeout) * time.Second,
		MaxPeers:          appConfig.MaxPeers,
		AttemptConnPeers:  appConfig.AttemptConnPeers,
		MinPeers:          appConfig.MinPeers,
	}
}
