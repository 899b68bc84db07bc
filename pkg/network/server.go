package network

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/r3e-network/neo-core/pkg/config"
	"github.com/r3e-network/neo-core/pkg/core/block"
	"github.com/r3e-network/neo-core/pkg/core/mempool"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/network/capability"
	"github.com/r3e-network/neo-core/pkg/network/payload"
	"github.com/r3e-network/neo-core/pkg/util"
	"go.uber.org/zap"
)

const (
	defaultMinPeers         = 5
	defaultAttemptConnPeers = 20
	defaultMaxPeers         = 100
	maxBlockBatch           = 200

	// extensibleVerifyMaxGAS is the maximum verification GAS cost for an
	// extensible payload witness.
	extensibleVerifyMaxGAS = 6000000

	// relayCacheSize is the size of the cache of recently relayed
	// inventories.
	relayCacheSize = 1000

	// minPoolCount is the minimum size of the discovery address pool
	// below which the server starts asking peers for more addresses.
	minPoolCount = 30
)

var (
	errAlreadyConnected  = errors.New("already connected")
	errIdenticalID       = errors.New("identical node id")
	errInvalidNetwork    = errors.New("invalid network")
	errMaxPeers          = errors.New("max peers reached")
	errServerShutdown    = errors.New("server shutdown")
	errInvalidInvType    = errors.New("invalid inventory type")
	errInvalidHashStart  = errors.New("invalid requested HashStart")
	errExtensibleExpired = errors.New("extensible payload is expired")
	errExtensibleSender  = errors.New("extensible payload sender is not allowed")
)

// Ledger is everything the server needs from the blockchain.
type Ledger interface {
	AddBlock(block *block.Block) error
	AddHeaders(headers ...*block.Header) error
	BlockHeight() uint32
	CurrentBlockHash() util.Uint256
	CurrentHeaderHash() util.Uint256
	GetBlock(hash util.Uint256) (*block.Block, error)
	GetConfig() config.ProtocolConfiguration
	GetHeader(hash util.Uint256) (*block.Header, error)
	GetHeaderHash(i uint32) util.Uint256
	GetMemPool() *mempool.Pool
	GetTransaction(hash util.Uint256) (*transaction.Transaction, uint32, error)
	HasBlock(hash util.Uint256) bool
	HasTransaction(hash util.Uint256) bool
	HeaderHeight() uint32
	IsExtensibleAllowed(u util.Uint160) bool
	PoolTx(t *transaction.Transaction, pools ...*mempool.Pool) error
	VerifyWitness(h util.Uint160, c hash.Hashable, w *transaction.Witness, gas int64) (int64, error)
}

type (
	// Server represents the local node in the network. Its transport could
	// be of any kind.
	Server struct {
		// ServerConfig holds the server configuration.
		ServerConfig

		// id also known as the nonce of the server.
		id uint32

		transport Transporter
		discovery Discoverer
		chain     Ledger
		bQueue    *blockQueue

		lock  sync.RWMutex
		peers map[Peer]bool

		register   chan Peer
		unregister chan peerDrop
		quit       chan struct{}

		addrReq chan *Message

		// A cache of the hashes of inventories relayed recently together
		// with extensible payloads indexed by hash.
		relayCache *lru.Cache

		log *zap.Logger
	}

	peerDrop struct {
		peer   Peer
		reason error
	}
)

func randomID() uint32 {
	return rand.New(rand.NewSource(time.Now().UnixNano())).Uint32()
}

// NewServer returns a new Server, initialized with the given configuration.
func NewServer(config ServerConfig, chain Ledger, log *zap.Logger) (*Server, error) {
	if log == nil {
		return nil, errors.New("logger is a required parameter")
	}

	s := &Server{
		ServerConfig: config,
		chain:        chain,
		id:           randomID(),
		quit:         make(chan struct{}),
		addrReq:      make(chan *Message, config.MinPeers),
		register:     make(chan Peer),
		unregister:   make(chan peerDrop),
		peers:        make(map[Peer]bool),
		log:          log,
	}
	s.bQueue = newBlockQueue(chain, log, func(b *block.Block) {
		s.relayBlock(b)
	})

	c, err := lru.New(relayCacheSize)
	if err != nil {
		return nil, fmt.Errorf("can't create relay cache: %w", err)
	}
	s.relayCache = c

	if s.MinPeers < 0 {
		s.log.Info("bad MinPeers configured, using the default value",
			zap.Int("configured", s.MinPeers),
			zap.Int("actual", defaultMinPeers))
		s.MinPeers = defaultMinPeers
	}

	if s.MaxPeers <= 0 {
		s.log.Info("bad MaxPeers configured, using the default value",
			zap.Int("configured", s.MaxPeers),
			zap.Int("actual", defaultMaxPeers))
		s.MaxPeers = defaultMaxPeers
	}

	if s.AttemptConnPeers <= 0 {
		s.log.Info("bad AttemptConnPeers configured, using the default value",
			zap.Int("configured", s.AttemptConnPeers),
			zap.Int("actual", defaultAttemptConnPeers))
		s.AttemptConnPeers = defaultAttemptConnPeers
	}

	if s.ProtoTickInterval <= 0 {
		s.ProtoTickInterval = 5 * time.Second
	}
	if s.DialTimeout <= 0 {
		s.DialTimeout = 10 * time.Second
	}

	s.transport = NewTCPTransport(s, net.JoinHostPort(config.Address, strconv.Itoa(int(config.Port))), s.log)
	s.discovery = NewDefaultDiscovery(s.DialTimeout, s.transport)

	return s, nil
}

// ID returns the servers ID.
func (s *Server) ID() uint32 {
	return s.id
}

// Start will start the server and its underlying transport.
func (s *Server) Start() {
	s.log.Info("node started",
		zap.Uint32("blockHeight", s.chain.BlockHeight()),
		zap.Uint32("headerHeight", s.chain.HeaderHeight()))

	s.discovery.BackFill(s.Seeds...)

	go s.bQueue.run()
	go s.transport.Accept()
	s.run()
}

// Shutdown disconnects all peers and stops listening.
func (s *Server) Shutdown() {
	s.log.Info("shutting down server", zap.Int("peers", s.PeerCount()))
	s.bQueue.discard()
	close(s.quit)
}

// UnconnectedPeers returns a list of peers that are in the discovery peer list
// but are not connected to the server.
func (s *Server) UnconnectedPeers() []string {
	return s.discovery.UnconnectedPeers()
}

// BadPeers returns a list of peers that are flagged as "bad" peers.
func (s *Server) BadPeers() []string {
	return s.discovery.BadPeers()
}

// ConnectedPeers returns a list of currently connected peers.
func (s *Server) ConnectedPeers() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	peers := make([]string, 0, len(s.peers))
	for k := range s.peers {
		peers = append(peers, k.PeerAddr().String())
	}

	return peers
}

// run is a goroutine that starts another goroutine to manage protocol specifics
// while itself dealing with peers management (handling connects/disconnects).
func (s *Server) run() {
	for {
		if s.PeerCount() < s.MinPeers {
			s.discovery.RequestRemote(s.AttemptConnPeers)
		}
		if s.discovery.PoolCount() < minPoolCount {
			select {
			case s.addrReq <- NewMessage(CMDGetAddr, payload.NewNullPayload()):
				// sent, waiting for outcome
			default:
				// we have one in the queue already that is
				// gonna be inevitably processed furter
			}
		}
		select {
		case <-s.quit:
			s.transport.Close()
			for p := range s.peers {
				p.Disconnect(errServerShutdown)
			}
			return
		case p := <-s.register:
			s.lock.Lock()
			s.peers[p] = true
			s.lock.Unlock()
			peerCount := s.PeerCount()
			s.log.Info("new peer connected", zap.Stringer("addr", p.RemoteAddr()), zap.Int("peerCount", peerCount))
			if peerCount > s.MaxPeers {
				s.lock.RLock()
				// Pick a random peer and drop connection to it.
				for peer := range s.peers {
					// It will send us unregister signal.
					go peer.Disconnect(errMaxPeers)
					break
				}
				s.lock.RUnlock()
			}
		case drop := <-s.unregister:
			s.lock.Lock()
			if s.peers[drop.peer] {
				delete(s.peers, drop.peer)
				s.lock.Unlock()
				s.log.Warn("peer disconnected",
					zap.Stringer("addr", drop.peer.RemoteAddr()),
					zap.String("reason", fmt.Sprintf("%s", drop.reason)),
					zap.Int("peerCount", s.PeerCount()))
				addr := drop.peer.PeerAddr().String()
				if drop.reason == errIdenticalID {
					s.discovery.RegisterBadAddr(addr)
				} else if drop.reason != errAlreadyConnected {
					s.discovery.UnregisterConnectedAddr(addr)
					s.discovery.BackFill(addr)
				}
			} else {
				// else the peer is already gone, which can happen
				// because we have two goroutines sending signals here
				s.lock.Unlock()
			}
		}
	}
}

// PeerCount returns the number of the currently connected peers.
func (s *Server) PeerCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.peers)
}

// HandshakedPeersCount returns the number of the connected peers
// which have already performed handshake.
func (s *Server) HandshakedPeersCount() int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	var count int

	for p := range s.peers {
		if p.Handshaked() {
			count++
		}
	}

	return count
}

// getVersionMsg returns the version message to send to a newly connected peer.
func (s *Server) getVersionMsg() *Message {
	port := s.Port
	if s.AnnouncedPort != 0 {
		port = s.AnnouncedPort
	}
	capabilities := []capability.Capability{
		{
			Type: capability.TCPServer,
			Data: &capability.Server{
				Port: port,
			},
		},
	}
	if s.Relay {
		capabilities = append(capabilities, capability.Capability{
			Type: capability.FullNode,
			Data: &capability.Node{
				StartHeight: s.chain.BlockHeight(),
			},
		})
	}
	payload := payload.NewVersion(s.Net, s.id, s.UserAgent, capabilities)
	return NewMessage(CMDVersion, payload)
}

// When a peer sends out its version, we reply with verack after validating
// the version.
func (s *Server) handleVersionCmd(p Peer, version *payload.Version) error {
	err := p.HandleVersion(version)
	if err != nil {
		return err
	}
	if s.id == version.Nonce {
		return errIdenticalID
	}
	if s.Net != version.Magic {
		return errInvalidNetwork
	}
	peerAddr := p.PeerAddr().String()
	s.discovery.RegisterConnectedAddr(peerAddr)
	s.lock.RLock()
	for peer := range s.peers {
		if p == peer {
			continue
		}
		ver := peer.Version()
		// Already connected, drop this connection.
		if ver != nil && ver.Nonce == version.Nonce && peer.PeerAddr().String() == peerAddr {
			s.lock.RUnlock()
			return errAlreadyConnected
		}
	}
	s.lock.RUnlock()
	return p.SendVersionAck(NewMessage(CMDVerack, payload.NewNullPayload()))
}

// handleHeadersCmd processes the headers received from its peer.
func (s *Server) handleHeadersCmd(p Peer, headers *payload.Headers) error {
	// The peer will respond with a maximum of 2000 headers in one batch.
	// We will ask one more batch here if needed. Eventually we will get
	// synced due to the startProtocol routine that will ask headers every
	// protoTick.
	go func(headers []*block.Header) {
		if err := s.chain.AddHeaders(headers...); err != nil {
			s.log.Warn("failed processing headers", zap.Error(err))
			return
		}
		if s.chain.HeaderHeight() < p.LastBlockIndex() {
			s.requestHeaders(p)
		}
	}(headers.Hdrs)

	return nil
}

// handleBlockCmd processes the block received from its peer.
func (s *Server) handleBlockCmd(p Peer, block *block.Block) error {
	return s.bQueue.putBlock(block)
}

// handlePing processes a ping request.
func (s *Server) handlePing(p Peer, ping *payload.Ping) error {
	p.UpdateLastBlockIndex(ping.LastBlockIndex)
	return p.EnqueueMessage(NewMessage(CMDPong, payload.NewPing(s.chain.BlockHeight(), s.id)))
}

// handlePong processes a pong request.
func (s *Server) handlePong(p Peer, pong *payload.Ping) error {
	pingSent := p.GetPingSent()
	if pingSent == 0 {
		return errors.New("pong message wasn't expected")
	}
	p.UpdatePingSent(pingSent - 1)
	p.UpdateLastBlockIndex(pong.LastBlockIndex)
	return nil
}

// handleInvCmd processes the received inventory.
func (s *Server) handleInvCmd(p Peer, inv *payload.Inventory) error {
	if !inv.Type.Valid() {
		return errInvalidInvType
	}
	reqHashes := make([]util.Uint256, 0)
	var typExists = map[payload.InventoryType]func(util.Uint256) bool{
		payload.TXType: func(h util.Uint256) bool {
			return s.chain.HasTransaction(h)
		},
		payload.BlockType: func(h util.Uint256) bool {
			return s.chain.HasBlock(h)
		},
		payload.ExtensibleType: func(h util.Uint256) bool {
			return s.relayCache.Contains(h)
		},
	}
	if exists := typExists[inv.Type]; exists != nil {
		for _, hash := range inv.Hashes {
			if !exists(hash) {
				reqHashes = append(reqHashes, hash)
			}
		}
	}
	if len(reqHashes) > 0 {
		msg := NewMessage(CMDGetData, payload.NewInventory(inv.Type, reqHashes))
		return p.EnqueueMessage(msg)
	}
	return nil
}

// handleGetDataCmd processes the received inventory data request.
func (s *Server) handleGetDataCmd(p Peer, inv *payload.Inventory) error {
	var notFound []util.Uint256
	for _, hash := range inv.Hashes {
		var msg *Message

		switch inv.Type {
		case payload.TXType:
			tx, _, err := s.chain.GetTransaction(hash)
			if err == nil {
				msg = NewMessage(CMDTX, tx)
			} else {
				notFound = append(notFound, hash)
			}
		case payload.BlockType:
			b, err := s.chain.GetBlock(hash)
			if err == nil {
				msg = NewMessage(CMDBlock, b)
			} else {
				notFound = append(notFound, hash)
			}
		case payload.ExtensibleType:
			if cp, ok := s.relayCache.Get(hash); ok {
				msg = NewMessage(CMDExtensible, cp.(*payload.Extensible))
			}
		}
		if msg != nil {
			err := p.EnqueueMessage(msg)
			if err != nil {
				return err
			}
		}
	}
	if len(notFound) != 0 {
		return p.EnqueueMessage(NewMessage(CMDNotFound, payload.NewInventory(inv.Type, notFound)))
	}
	return nil
}

// handleGetBlocksCmd processes the getblocks request.
func (s *Server) handleGetBlocksCmd(p Peer, gb *payload.GetBlocks) error {
	count := gb.Count
	if gb.Count < 0 || gb.Count > payload.MaxHashesCount {
		count = payload.MaxHashesCount
	}
	start, err := s.chain.GetHeader(gb.HashStart)
	if err != nil {
		return errInvalidHashStart
	}
	blockHashes := make([]util.Uint256, 0)
	for i := start.Index + 1; i <= start.Index+uint32(count); i++ {
		hash := s.chain.GetHeaderHash(i)
		if hash.Equals(util.Uint256{}) {
			break
		}
		blockHashes = append(blockHashes, hash)
	}

	if len(blockHashes) == 0 {
		return nil
	}
	payload := payload.NewInventory(payload.BlockType, blockHashes)
	msg := NewMessage(CMDInv, payload)
	return p.EnqueueMessage(msg)
}

// handleGetBlockByIndexCmd processes the getblockbyindex request.
func (s *Server) handleGetBlockByIndexCmd(p Peer, gbd *payload.GetBlockByIndex) error {
	count := gbd.Count
	if gbd.Count < 0 || gbd.Count > payload.MaxHashesCount {
		count = payload.MaxHashesCount
	}
	for i := gbd.IndexStart; i < gbd.IndexStart+uint32(count); i++ {
		hash := s.chain.GetHeaderHash(i)
		if hash.Equals(util.Uint256{}) {
			break
		}
		b, err := s.chain.GetBlock(hash)
		if err != nil {
			break
		}
		msg := NewMessage(CMDBlock, b)
		if err = p.EnqueueMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

// handleGetHeadersCmd processes the getheaders request.
func (s *Server) handleGetHeadersCmd(p Peer, gh *payload.GetBlockByIndex) error {
	if gh.IndexStart > s.chain.HeaderHeight() {
		return nil
	}
	count := gh.Count
	if gh.Count < 0 || gh.Count > payload.MaxHeadersAllowed {
		count = payload.MaxHeadersAllowed
	}
	resp := payload.Headers{}
	resp.Hdrs = make([]*block.Header, 0, count)
	for i := gh.IndexStart; i < gh.IndexStart+uint32(count); i++ {
		hash := s.chain.GetHeaderHash(i)
		if hash.Equals(util.Uint256{}) {
			break
		}
		header, err := s.chain.GetHeader(hash)
		if err != nil {
			break
		}
		resp.Hdrs = append(resp.Hdrs, header)
	}
	if len(resp.Hdrs) == 0 {
		return nil
	}
	msg := NewMessage(CMDHeaders, &resp)
	return p.EnqueueMessage(msg)
}

// handleMempoolCmd handles the mempool request.
func (s *Server) handleMempoolCmd(p Peer) error {
	txs := s.chain.GetMemPool().GetVerifiedTransactions()
	hs := make([]util.Uint256, 0, payload.MaxHashesCount)
	for _, tx := range txs {
		hs = append(hs, tx.Hash())
		if len(hs) == payload.MaxHashesCount {
			msg := NewMessage(CMDInv, payload.NewInventory(payload.TXType, hs))
			err := p.EnqueueMessage(msg)
			if err != nil {
				return err
			}
			hs = hs[:0]
		}
	}
	if len(hs) > 0 {
		msg := NewMessage(CMDInv, payload.NewInventory(payload.TXType, hs))
		return p.EnqueueMessage(msg)
	}
	return nil
}

// handleExtensibleCmd processes the received extensible payload.
func (s *Server) handleExtensibleCmd(e *payload.Extensible) error {
	ok, err := s.verifyAndPoolExtensible(e)
	if err != nil {
		return err
	}
	if ok {
		s.RelayExtensible(e)
	}
	return nil
}

// verifyAndPoolExtensible verifies the extensible payload and caches it for
// relaying. The payload is rejected if it's out of its validity window or
// comes from a sender that is not allowed to send extensible payloads.
func (s *Server) verifyAndPoolExtensible(e *payload.Extensible) (bool, error) {
	if s.relayCache.Contains(e.Hash()) {
		return false, nil
	}
	height := s.chain.BlockHeight()
	if height < e.ValidBlockStart || height >= e.ValidBlockEnd {
		return false, errExtensibleExpired
	}
	if !s.chain.IsExtensibleAllowed(e.Sender) {
		return false, errExtensibleSender
	}
	_, err := s.chain.VerifyWitness(e.Sender, e, &e.Witness, extensibleVerifyMaxGAS)
	if err != nil {
		return false, fmt.Errorf("invalid witness: %w", err)
	}
	s.relayCache.Add(e.Hash(), e)
	return true, nil
}

// handleTxCmd processes the received transaction.
func (s *Server) handleTxCmd(tx *transaction.Transaction) error {
	// It's OK for it to fail for various reasons like tx already existing
	// in the pool.
	if s.verifyAndPoolTX(tx) == nil {
		s.broadcastTX(tx)
	}
	return nil
}

func (s *Server) verifyAndPoolTX(t *transaction.Transaction) error {
	return s.chain.PoolTx(t)
}

// handleAddrCmd processes the received address list.
func (s *Server) handleAddrCmd(p Peer, addrs *payload.AddressList) error {
	for _, a := range addrs.Addrs {
		addr, err := a.GetTCPAddress()
		if err == nil {
			s.discovery.BackFill(addr)
		}
	}
	return nil
}

// handleGetAddrCmd sends to the peer some good addresses that we know of.
func (s *Server) handleGetAddrCmd(p Peer) error {
	addrs := s.discovery.GoodPeers()
	if len(addrs) > payload.MaxAddrsCount {
		addrs = addrs[:payload.MaxAddrsCount]
	}
	alist := payload.NewAddressList(len(addrs))
	ts := time.Now()
	for i, addrStr := range addrs {
		addr, err := net.ResolveTCPAddr("tcp", addrStr)
		if err != nil {
			return err
		}
		caps := capability.Capabilities{
			{
				Type: capability.TCPServer,
				Data: &capability.Server{Port: uint16(addr.Port)},
			},
		}
		alist.Addrs[i] = payload.NewAddressAndTime(addr, ts, caps)
	}
	if len(alist.Addrs) == 0 {
		return nil
	}
	return p.EnqueueMessage(NewMessage(CMDAddr, alist))
}

// requestHeaders sends a getheaders message to the peer.
// The peer will respond with headers op to a count of 2000.
func (s *Server) requestHeaders(p Peer) error {
	payload := payload.NewGetBlockByIndex(s.chain.HeaderHeight()+1, -1)
	return p.EnqueueMessage(NewMessage(CMDGetHeaders, payload))
}

// requestBlocks sends a getblockbyindex message to the peer
// to sync up in blocks. A maximum of maxBlockBatch will be
// sent at once.
func (s *Server) requestBlocks(p Peer) error {
	var (
		indexStart uint32
		count      int16 = maxBlockBatch
	)
	lq, capLeft := s.bQueue.lastQueued()
	if capLeft == 0 {
		// Avoid swamping the queue.
		return nil
	}
	if int16(capLeft) < count {
		count = int16(capLeft)
	}
	if lq > s.chain.BlockHeight() {
		indexStart = lq + 1
	} else {
		indexStart = s.chain.BlockHeight() + 1
	}
	payload := payload.NewGetBlockByIndex(indexStart, count)
	return p.EnqueueMessage(NewMessage(CMDGetBlockByIndex, payload))
}

// handleMessage processes the given message.
func (s *Server) handleMessage(peer Peer, msg *Message) error {
	s.log.Debug("got msg",
		zap.Stringer("addr", peer.RemoteAddr()),
		zap.Stringer("type", msg.Command))

	if peer.Handshaked() {
		if inv, ok := msg.Payload.(*payload.Inventory); ok {
			if !inv.Type.Valid() || len(inv.Hashes) == 0 {
				return errInvalidInvType
			}
		}
		switch msg.Command {
		case CMDAddr:
			addrs := msg.Payload.(*payload.AddressList)
			return s.handleAddrCmd(peer, addrs)
		case CMDGetAddr:
			// it has no payload
			return s.handleGetAddrCmd(peer)
		case CMDGetBlocks:
			gb := msg.Payload.(*payload.GetBlocks)
			return s.handleGetBlocksCmd(peer, gb)
		case CMDGetBlockByIndex:
			gbd := msg.Payload.(*payload.GetBlockByIndex)
			return s.handleGetBlockByIndexCmd(peer, gbd)
		case CMDGetData:
			inv := msg.Payload.(*payload.Inventory)
			return s.handleGetDataCmd(peer, inv)
		case CMDGetHeaders:
			gh := msg.Payload.(*payload.GetBlockByIndex)
			return s.handleGetHeadersCmd(peer, gh)
		case CMDHeaders:
			headers := msg.Payload.(*payload.Headers)
			return s.handleHeadersCmd(peer, headers)
		case CMDInv:
			inventory := msg.Payload.(*payload.Inventory)
			return s.handleInvCmd(peer, inventory)
		case CMDMempool:
			// it has no payload
			return s.handleMempoolCmd(peer)
		case CMDBlock:
			block := msg.Payload.(*block.Block)
			return s.handleBlockCmd(peer, block)
		case CMDExtensible:
			extensible := msg.Payload.(*payload.Extensible)
			return s.handleExtensibleCmd(extensible)
		case CMDTX:
			tx := msg.Payload.(*transaction.Transaction)
			return s.handleTxCmd(tx)
		case CMDPing:
			ping := msg.Payload.(*payload.Ping)
			return s.handlePing(peer, ping)
		case CMDPong:
			pong := msg.Payload.(*payload.Ping)
			return s.handlePong(peer, pong)
		case CMDVersion, CMDVerack:
			return fmt.Errorf("received '%s' after the handshake", msg.Command.String())
		}
	} else {
		switch msg.Command {
		case CMDVersion:
			version := msg.Payload.(*payload.Version)
			return s.handleVersionCmd(peer, version)
		case CMDVerack:
			err := peer.HandleVersionAck()
			if err != nil {
				return err
			}
			go peer.StartProtocol()
		default:
			return fmt.Errorf("received '%s' during handshake", msg.Command.String())
		}
	}
	return nil
}

// RelayExtensible relays the given extensible payload to all of the
// handshaked peers via an inv message.
func (s *Server) RelayExtensible(e *payload.Extensible) {
	msg := NewMessage(CMDInv, payload.NewInventory(payload.ExtensibleType, []util.Uint256{e.Hash()}))
	s.broadcastMessage(msg)
}

// relayBlock tells all the other connected nodes about the given block.
func (s *Server) relayBlock(b *block.Block) {
	msg := NewMessage(CMDInv, payload.NewInventory(payload.BlockType, []util.Uint256{b.Hash()}))
	s.broadcastMessage(msg)
}

// RelayTxn tells all the other connected nodes about the given transaction if
// it was accepted to the pool.
func (s *Server) RelayTxn(t *transaction.Transaction) error {
	err := s.verifyAndPoolTX(t)
	if err == nil {
		s.broadcastTX(t)
	}
	return err
}

// broadcastTX broadcasts an inventory message about new transaction.
func (s *Server) broadcastTX(t *transaction.Transaction) {
	msg := NewMessage(CMDInv, payload.NewInventory(payload.TXType, []util.Uint256{t.Hash()}))
	s.broadcastMessage(msg)
}

// broadcastMessage sends the message to all available peers.
func (s *Server) broadcastMessage(msg *Message) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for peer := range s.peers {
		if peer.Handshaked() {
			_ = peer.EnqueueMessage(msg)
		}
	}
}
