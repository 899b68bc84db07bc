package core

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/r3e-network/neo-core/pkg/config"
	"github.com/r3e-network/neo-core/pkg/core/block"
	"github.com/r3e-network/neo-core/pkg/core/dao"
	"github.com/r3e-network/neo-core/pkg/core/interop"
	"github.com/r3e-network/neo-core/pkg/core/interop/contract"
	"github.com/r3e-network/neo-core/pkg/core/mempool"
	"github.com/r3e-network/neo-core/pkg/core/native"
	"github.com/r3e-network/neo-core/pkg/core/native/noderoles"
	"github.com/r3e-network/neo-core/pkg/core/state"
	"github.com/r3e-network/neo-core/pkg/core/stateroot"
	"github.com/r3e-network/neo-core/pkg/core/storage"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/smartcontract"
	"github.com/r3e-network/neo-core/pkg/smartcontract/callflag"
	"github.com/r3e-network/neo-core/pkg/smartcontract/manifest"
	"github.com/r3e-network/neo-core/pkg/smartcontract/trigger"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm"
	"go.uber.org/zap"
)

// Tuning parameters.
const (
	version = "0.2.6"

	// headerBatchCount is the number of header hashes written in a single
	// IXHeaderHashList page.
	headerBatchCount = 2000

	// headerVerificationGasLimit is the maximum amount of GAS for block
	// header verification.
	headerVerificationGasLimit = 3_00000000
)

// Various errors that could be returned upon verification or block addition.
var (
	ErrAlreadyExists       = errors.New("already exists")
	ErrOOM                 = errors.New("no space left in the memory pool")
	ErrPolicy              = errors.New("not allowed by policy")
	ErrInvalidBlockIndex   = errors.New("invalid block index")
	ErrInvalidVerification = errors.New("invalid verification script")
	ErrInvalidInvocation   = errors.New("invalid invocation script")
	ErrHasConflicts        = errors.New("has conflicts")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidAttribute    = errors.New("invalid attribute")
	ErrMemPoolConflict     = errors.New("invalid transaction due to conflicts with the memory pool")
	ErrTxExpired           = errors.New("transaction has expired")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrTxSmallNetworkFee   = errors.New("too small network fee")
	ErrTxTooBig            = errors.New("too big transaction")
	ErrVerificationFailed  = errors.New("tx failed to verify")
	ErrHeaderGeneralError  = errors.New("header error")

	// Witness verification errors.
	ErrWitnessHashMismatch         = errors.New("witness hash mismatch")
	ErrUnknownVerificationContract = errors.New("unknown verification contract")
	ErrInvalidVerificationContract = errors.New("verification contract is missing `verify` method or `verify` method has unexpected return value")
)

// Blockchain represents the blockchain. It maintans internal state representing
// the state of the ledger that can be accessed in various ways and changed by
// adding new blocks or headers.
type Blockchain struct {
	config config.ProtocolConfiguration

	// Persistent storage wrapped around with a write memory caching layer.
	store *storage.MemCachedStore

	// Full list of data access object methods-wrapped store.
	dao *dao.Simple

	// Current index/height of the highest block.
	blockHeight atomic.Uint32

	// Write lock for the chain state, held while a block is being persisted.
	lock sync.RWMutex

	// addLock serializes AddBlock calls.
	addLock sync.Mutex

	// Current list of allowed extensible payload senders.
	extensible atomic.Value

	// Header hashes list with associated lock.
	headerHashesLock sync.RWMutex
	headerHashes     []util.Uint256
	// Number of headers stored in the chain file.
	storedHeaderCount uint32

	// Cache for the most recently persisted block.
	topBlock atomic.Value

	memPool *mempool.Pool

	log *zap.Logger

	contracts *native.Contracts

	stateRoot *stateroot.Module

	subsLock         sync.Mutex
	blockSubs        []chan *block.Block
	executionSubs    []chan *state.AppExecResult
	notificationSubs []chan *state.NotificationEvent
}

// NewBlockchain returns a new blockchain object the will store all blocks in
// the given store. It accepts a sane protocol configuration and a logger
// instance that will be used for event logging.
func NewBlockchain(s storage.Store, cfg config.ProtocolConfiguration, log *zap.Logger) (*Blockchain, error) {
	if log == nil {
		return nil, errors.New("empty logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid protocol configuration: %w", err)
	}
	cfg.SetDefaults()

	bc := &Blockchain{
		config:    cfg,
		store:     storage.NewMemCachedStore(s),
		log:       log,
		contracts: native.NewContracts(cfg.InitialGASSupply),
	}
	bc.dao = dao.NewSimple(bc.store)
	bc.memPool = mempool.New(cfg.MemPoolSize, 0, false, nil)
	bc.stateRoot = stateroot.NewModule(bc.VerifyWitness, bc.log, bc.dao.Store)

	if err := bc.init(); err != nil {
		return nil, err
	}
	return bc, nil
}

func (bc *Blockchain) init() error {
	ver, err := bc.dao.GetVersion()
	if err != nil {
		// Fresh database, create the genesis block.
		bc.dao.PutVersion(version)
		genesisBlock, err := CreateGenesisBlock(bc.config)
		if err != nil {
			return err
		}
		bc.headerHashes = []util.Uint256{genesisBlock.Hash()}
		bc.dao.PutCurrentHeader(genesisBlock.Hash(), genesisBlock.Index)
		if err := bc.stateRoot.Init(0, true); err != nil {
			return fmt.Errorf("can't init MPT: %w", err)
		}
		return bc.storeBlock(genesisBlock, nil)
	}
	if ver != version {
		return fmt.Errorf("storage version mismatch: %s != %s", version, ver)
	}

	// At this point there was a version found in the DB which
	// implies that the storage contains some data, so the
	// state has to be restored from it.
	bHeight, err := bc.dao.GetCurrentBlockHeight()
	if err != nil {
		return fmt.Errorf("failed to retrieve current block height: %w", err)
	}
	bc.blockHeight.Store(bHeight)

	bc.headerHashes, err = bc.dao.GetHeaderHashes()
	if err != nil {
		return err
	}
	bc.storedHeaderCount = uint32(len(bc.headerHashes))

	currHeaderHeight, currHeaderHash, err := bc.dao.GetCurrentHeaderHeight()
	if err != nil {
		return fmt.Errorf("failed to retrieve current header info: %w", err)
	}
	if bc.storedHeaderCount == 0 && currHeaderHeight == 0 {
		bc.headerHashes = append(bc.headerHashes, currHeaderHash)
	}

	// There is a high chance that the Node is stopped before the next
	// batch of 2000 headers was stored. Via the currentHeaders stored we
	// can sync that with stored blocks.
	if currHeaderHeight >= bc.storedHeaderCount {
		hash := currHeaderHash
		var targetHash util.Uint256
		if len(bc.headerHashes) > 0 {
			targetHash = bc.headerHashes[len(bc.headerHashes)-1]
		} else {
			genesisBlock, err := CreateGenesisBlock(bc.config)
			if err != nil {
				return err
			}
			targetHash = genesisBlock.Hash()
			bc.headerHashes = append(bc.headerHashes, targetHash)
		}
		headers := make([]*block.Header, 0)

		for hash != targetHash {
			header, err := bc.GetHeader(hash)
			if err != nil {
				return fmt.Errorf("could not get header %s: %w", hash, err)
			}
			headers = append(headers, header)
			hash = header.PrevHash
		}
		headerSliceReverse(headers)
		for _, h := range headers {
			bc.headerHashes = append(bc.headerHashes, h.Hash())
		}
	}

	err = bc.stateRoot.Init(bHeight, true)
	if err != nil {
		return fmt.Errorf("can't init MPT at height %d: %w", bHeight, err)
	}

	err = bc.contracts.NEO.InitializeCache(bHeight, bc.config.GetNumOfCNs(bHeight), bc.dao)
	if err != nil {
		return fmt.Errorf("can't init cache for NEO native contract: %w", err)
	}

	bc.updateExtensibleWhitelist(bHeight)
	return nil
}

func headerSliceReverse(dest []*block.Header) {
	for i, j := 0, len(dest)-1; i < j; i, j = i+1, j-1 {
		dest[i], dest[j] = dest[j], dest[i]
	}
}

// GetConfig returns the config stored in the blockchain.
func (bc *Blockchain) GetConfig() config.ProtocolConfiguration {
	return bc.config
}

// AddBlock accepts successive block for the Blockchain, verifies it and
// stores internally. Eventually it will be persisted to the backing storage.
func (bc *Blockchain) AddBlock(block *block.Block) error {
	bc.addLock.Lock()
	defer bc.addLock.Unlock()

	var mp *mempool.Pool
	expectedHeight := bc.BlockHeight() + 1
	if expectedHeight != block.Index {
		return fmt.Errorf("expected %d, got %d: %w", expectedHeight, block.Index, ErrInvalidBlockIndex)
	}

	headerLen := bc.headerListLen()
	if int(block.Index) == headerLen {
		err := bc.addHeaders(bc.config.VerifyTransactions, &block.Header)
		if err != nil {
			return err
		}
	}
	if bc.config.VerifyTransactions {
		merkle := block.ComputeMerkleRoot()
		if !block.MerkleRoot.Equals(merkle) {
			return errors.New("invalid block: MerkleRoot mismatch")
		}
		mp = mempool.New(len(block.Transactions), 0, false, nil)
		for _, tx := range block.Transactions {
			var err error
			// Transactions are verified before adding them
			// into the pool, so there is no point in doing
			// it again even if we're verifying in-block transactions.
			if bc.memPool.ContainsKey(tx.Hash()) {
				err = mp.Add(tx, bc)
				if err == nil {
					continue
				}
			} else {
				err = bc.verifyAndPoolTx(tx, mp, bc)
			}
			if err != nil {
				return fmt.Errorf("transaction %s failed to verify: %w", tx.Hash().StringLE(), err)
			}
		}
	}
	return bc.storeBlock(block, mp)
}

// AddHeaders processes the given headers and add them to the
// HeaderHashList, it expects headers to be sorted by index.
func (bc *Blockchain) AddHeaders(headers ...*block.Header) error {
	return bc.addHeaders(bc.config.VerifyTransactions, headers...)
}

// addHeaders is an internal implementation of AddHeaders (`verify` parameter
// tells it to verify or not verify given headers).
func (bc *Blockchain) addHeaders(verify bool, headers ...*block.Header) error {
	if len(headers) == 0 {
		return nil
	}

	if verify {
		// Verify that the chain of the headers is consistent.
		var lastHeader *block.Header
		var err error
		if lastHeader, err = bc.GetHeader(headers[0].PrevHash); err != nil {
			return fmt.Errorf("previous header was not found: %w", err)
		}
		for _, h := range headers {
			if err = bc.verifyHeader(h, lastHeader); err != nil {
				return err
			}
			lastHeader = h
		}
	}

	bc.headerHashesLock.Lock()
	defer bc.headerHashesLock.Unlock()

	var (
		batch      = bc.dao.GetWrapped()
		lastHeader *block.Header
		err        error
		oldlen     = len(bc.headerHashes)
		buf        = io.NewBufBinWriter()
	)
	for _, h := range headers {
		if int(h.Index) != len(bc.headerHashes) {
			continue
		}
		err = batch.StoreAsBlock(&block.Block{Header: *h}, buf)
		if err != nil {
			return err
		}
		buf.Reset()
		bc.headerHashes = append(bc.headerHashes, h.Hash())
		lastHeader = h
	}

	if oldlen != len(bc.headerHashes) {
		for int(lastHeader.Index)-headerBatchCount >= int(bc.storedHeaderCount) {
			err = batch.StoreHeaderHashes(bc.headerHashes[bc.storedHeaderCount:bc.storedHeaderCount+headerBatchCount],
				bc.storedHeaderCount)
			if err != nil {
				return err
			}
			bc.storedHeaderCount += headerBatchCount
		}

		batch.PutCurrentHeader(lastHeader.Hash(), lastHeader.Index)
		if _, err = batch.Persist(); err != nil {
			return err
		}
		bc.log.Debug("done processing headers",
			zap.Uint32("headerIndex", uint32(len(bc.headerHashes)-1)),
			zap.Uint32("blockHeight", bc.BlockHeight()))
	}
	return nil
}

// verifyHeader verifies the header against its previous header.
func (bc *Blockchain) verifyHeader(currHeader, prevHeader *block.Header) error {
	if prevHeader.Hash() != currHeader.PrevHash {
		return fmt.Errorf("%w: previous header hash doesn't match", ErrHeaderGeneralError)
	}
	if prevHeader.Index+1 != currHeader.Index {
		return fmt.Errorf("%w: previous header index doesn't match", ErrHeaderGeneralError)
	}
	if prevHeader.Timestamp >= currHeader.Timestamp {
		return fmt.Errorf("%w: block is not newer than the previous one", ErrHeaderGeneralError)
	}
	return bc.verifyHeaderWitnesses(currHeader, prevHeader)
}

// verifyHeaderWitnesses checks that the header witness corresponds to the
// consensus address committed to by the previous header.
func (bc *Blockchain) verifyHeaderWitnesses(currHeader, prevHeader *block.Header) error {
	hash := prevHeader.NextConsensus
	_, err := bc.VerifyWitness(hash, currHeader, &currHeader.Script, headerVerificationGasLimit)
	if err != nil {
		return fmt.Errorf("invalid block witness of %s: %w", hash.StringLE(), err)
	}
	return nil
}

// storeBlock performs chain update using the block given, it executes all
// transactions with all appropriate side-effects and updates Blockchain state.
// This is the only way to change Blockchain state.
func (bc *Blockchain) storeBlock(block *block.Block, txpool *mempool.Pool) error {
	var (
		cache  = bc.dao.GetWrapped()
		aerbuf = io.NewBufBinWriter()
	)

	aerOnPersist, err := bc.runPersist(bc.contracts.GetPersistScript(), block, cache, trigger.OnPersist)
	if err != nil {
		return fmt.Errorf("onPersist failed: %w", err)
	}

	txAERs := make([]*state.AppExecResult, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		systemInterop := bc.newInteropContext(trigger.Application, cache, block, tx)
		v := SpawnVM(systemInterop)
		v.LoadScriptWithFlags(tx.Script, callflag.All)
		v.GasLimit = tx.SystemFee

		err := v.Run()
		var faultException string
		if !v.HasFailed() {
			_, err := systemInterop.DAO.Persist()
			if err != nil {
				return fmt.Errorf("failed to persist invocation results: %w", err)
			}
		} else {
			bc.log.Warn("contract invocation failed",
				zap.String("tx", tx.Hash().StringLE()),
				zap.Uint32("block", block.Index),
				zap.Error(err))
			faultException = err.Error()
		}
		aer := &state.AppExecResult{
			Container: tx.Hash(),
			Execution: state.Execution{
				Trigger:        trigger.Application,
				VMState:        v.State(),
				GasConsumed:    v.GasConsumed(),
				Stack:          v.Estack().ToArray(),
				Events:         systemInterop.Notifications,
				FaultException: faultException,
			},
		}
		txAERs = append(txAERs, aer)
		err = cache.StoreAsTransaction(tx, block.Index, aer, aerbuf)
		if err != nil {
			return fmt.Errorf("failed to store tx exec result: %w", err)
		}
		aerbuf.Reset()
		systemInterop.Finalize()
	}

	aerPostPersist, err := bc.runPersist(bc.contracts.GetPostPersistScript(), block, cache, trigger.PostPersist)
	if err != nil {
		return fmt.Errorf("postPersist failed: %w", err)
	}

	if err := cache.StoreBlockExecutions(block.Hash(), aerOnPersist, aerPostPersist); err != nil {
		return fmt.Errorf("failed to store block exec results: %w", err)
	}
	if err := cache.StoreAsBlock(block, aerbuf); err != nil {
		return err
	}
	aerbuf.Reset()
	cache.StoreAsCurrentBlock(block)

	// The change set accumulated by the engines above is the input for the
	// state root update, filter out everything but contract storage.
	ops := storage.BatchToOperations(cache.GetBatch())

	bc.lock.Lock()
	if err := bc.stateRoot.UpdateStateRoot(block.Index, ops); err != nil {
		bc.lock.Unlock()
		return fmt.Errorf("failed to update MPT: %w", err)
	}
	if _, err := cache.Persist(); err != nil {
		bc.lock.Unlock()
		return err
	}

	bc.topBlock.Store(block)
	bc.blockHeight.Store(block.Index)
	bc.memPool.RemoveStale(func(tx *transaction.Transaction) bool { return bc.IsTxStillRelevant(tx, txpool, false) }, bc)
	bc.lock.Unlock()

	if _, err := bc.store.Persist(); err != nil {
		return fmt.Errorf("failed to persist to the backing store: %w", err)
	}

	bc.updateExtensibleWhitelist(block.Index)
	bc.notify(block, aerOnPersist, txAERs, aerPostPersist)
	return nil
}

func (bc *Blockchain) runPersist(script []byte, block *block.Block, cache *dao.Simple, trig trigger.Type) (*state.AppExecResult, error) {
	systemInterop := bc.newInteropContext(trig, cache, block, nil)
	v := SpawnVM(systemInterop)
	v.LoadScriptWithFlags(script, callflag.All)
	if block.Index == 0 && trig == trigger.OnPersist {
		for _, c := range bc.contracts.Contracts {
			if err := c.Initialize(systemInterop); err != nil {
				return nil, fmt.Errorf("can't initialize native %s: %w", c.Metadata().Manifest.Name, err)
			}
		}
	}
	if err := v.Run(); err != nil {
		return nil, fmt.Errorf("VM has failed: %w", err)
	} else if _, err := systemInterop.DAO.Persist(); err != nil {
		return nil, fmt.Errorf("can't save changes: %w", err)
	}
	systemInterop.Finalize()
	return &state.AppExecResult{
		Container: block.Hash(),
		Execution: state.Execution{
			Trigger:     trig,
			VMState:     v.State(),
			GasConsumed: v.GasConsumed(),
			Stack:       v.Estack().ToArray(),
			Events:      systemInterop.Notifications,
		},
	}, nil
}

func (bc *Blockchain) updateExtensibleWhitelist(height uint32) {
	newList := []util.Uint160{bc.contracts.NEO.GetCommitteeAddress()}
	nextVals := bc.contracts.NEO.GetNextBlockValidatorsInternal(bc.dao, bc.config.GetNumOfCNs(height))
	script, err := smartcontract.CreateDefaultMultiSigRedeemScript(nextVals)
	if err == nil {
		newList = append(newList, hash.Hash160(script))
	}
	for i := range nextVals {
		newList = append(newList, nextVals[i].GetScriptHash())
	}
	stateVals, sh, err := bc.contracts.Designate.GetDesignatedByRole(bc.dao, noderoles.StateValidator, height)
	if err == nil && len(stateVals) > 0 {
		script, err := smartcontract.CreateDefaultMultiSigRedeemScript(stateVals)
		if err == nil {
			newList = append(newList, hash.Hash160(script))
		}
		bc.stateRoot.UpdateStateValidators(sh, stateVals)
	}
	sort.Slice(newList, func(i, j int) bool {
		return newList[i].Less(newList[j])
	})
	bc.extensible.Store(newList)
}

// IsExtensibleAllowed determines if the given address can send extensible payloads.
func (bc *Blockchain) IsExtensibleAllowed(u util.Uint160) bool {
	us := bc.extensible.Load().([]util.Uint160)
	n := sort.Search(len(us), func(i int) bool {
		return !us[i].Less(u)
	})
	return n < len(us) && us[n].Equals(u)
}

// Close stops the blockchain and flushes everything accumulated in the write
// cache to the persistent storage.
func (bc *Blockchain) Close() {
	bc.addLock.Lock()
	defer bc.addLock.Unlock()
	if _, err := bc.store.PersistSync(); err != nil {
		bc.log.Error("failed to persist", zap.Error(err))
	}
	if err := bc.store.Close(); err != nil {
		bc.log.Error("failed to close db", zap.Error(err))
	}
}

// BlockHeight returns the height/index of the highest block.
func (bc *Blockchain) BlockHeight() uint32 {
	return bc.blockHeight.Load()
}

// HeaderHeight returns the index/height of the highest header.
func (bc *Blockchain) HeaderHeight() uint32 {
	return uint32(bc.headerListLen() - 1)
}

func (bc *Blockchain) headerListLen() int {
	bc.headerHashesLock.RLock()
	defer bc.headerHashesLock.RUnlock()
	return len(bc.headerHashes)
}

// GetHeaderHash returns hash of the header/block with specified index, if
// there is no such index in the chain, zero is returned.
func (bc *Blockchain) GetHeaderHash(i uint32) util.Uint256 {
	bc.headerHashesLock.RLock()
	defer bc.headerHashesLock.RUnlock()
	if int(i) >= len(bc.headerHashes) {
		return util.Uint256{}
	}
	return bc.headerHashes[i]
}

// CurrentBlockHash returns the highest processed block hash.
func (bc *Blockchain) CurrentBlockHash() util.Uint256 {
	if tb, ok := bc.topBlock.Load().(*block.Block); ok {
		return tb.Hash()
	}
	return bc.GetHeaderHash(bc.BlockHeight())
}

// CurrentHeaderHash returns the hash of the latest known header.
func (bc *Blockchain) CurrentHeaderHash() util.Uint256 {
	bc.headerHashesLock.RLock()
	defer bc.headerHashesLock.RUnlock()
	return bc.headerHashes[len(bc.headerHashes)-1]
}

// GetBlock returns the block by the given hash. Transactions are resolved
// from the trimmed representation stored in the DB.
func (bc *Blockchain) GetBlock(hash util.Uint256) (*block.Block, error) {
	if tb, ok := bc.topBlock.Load().(*block.Block); ok && tb.Hash().Equals(hash) {
		return tb, nil
	}

	b, err := bc.dao.GetBlock(hash)
	if err != nil {
		return nil, err
	}
	for i := range b.Transactions {
		tx, _, err := bc.dao.GetTransaction(b.Transactions[i].Hash())
		if err != nil {
			return nil, fmt.Errorf("only header is found: %w", err)
		}
		b.Transactions[i] = tx
	}
	b.Trimmed = false
	return b, nil
}

// GetHeader returns data block header identified with the given hash value.
func (bc *Blockchain) GetHeader(hash util.Uint256) (*block.Header, error) {
	if tb, ok := bc.topBlock.Load().(*block.Block); ok && tb.Hash().Equals(hash) {
		return &tb.Header, nil
	}
	b, err := bc.dao.GetBlock(hash)
	if err != nil {
		return nil, err
	}
	return &b.Header, nil
}

// HasBlock returns true if the blockchain contains the given block hash.
func (bc *Blockchain) HasBlock(hash util.Uint256) bool {
	if header, err := bc.GetHeader(hash); err == nil {
		return header.Index <= bc.BlockHeight()
	}
	return false
}

// HasTransaction returns true if the blockchain contains the given
// transaction hash.
func (bc *Blockchain) HasTransaction(hash util.Uint256) bool {
	return bc.memPool.ContainsKey(hash) ||
		errors.Is(bc.dao.HasTransaction(hash), dao.ErrAlreadyExists)
}

// GetTransaction returns a TX and its height by the given hash. The height
// is MaxUint32 if the tx is in the mempool.
func (bc *Blockchain) GetTransaction(hash util.Uint256) (*transaction.Transaction, uint32, error) {
	if tx, ok := bc.memPool.TryGetValue(hash); ok {
		return tx, math.MaxUint32, nil
	}
	return bc.dao.GetTransaction(hash)
}

// GetAppExecResult returns the application execution result of the given
// transaction.
func (bc *Blockchain) GetAppExecResult(hash util.Uint256) (*state.AppExecResult, error) {
	return bc.dao.GetAppExecResult(hash)
}

// GetBlockExecResults returns the OnPersist and PostPersist execution
// results of the given block.
func (bc *Blockchain) GetBlockExecResults(blockHash util.Uint256) (onPersist, postPersist *state.AppExecResult, err error) {
	return bc.dao.GetBlockExecutions(blockHash)
}

// GetContractState returns contract by its script hash.
func (bc *Blockchain) GetContractState(hash util.Uint160) *state.Contract {
	contract, err := bc.contracts.Management.GetContract(bc.dao, hash)
	if contract == nil && !errors.Is(err, storage.ErrKeyNotFound) {
		bc.log.Warn("failed to get contract state", zap.Error(err))
	}
	return contract
}

// GetContractScriptHash returns contract script hash by its ID.
func (bc *Blockchain) GetContractScriptHash(id int32) (util.Uint160, error) {
	return bc.dao.GetContractScriptHash(id)
}

// GetNativeContractScriptHash returns native contract script hash by its
// name.
func (bc *Blockchain) GetNativeContractScriptHash(name string) (util.Uint160, error) {
	c := bc.contracts.ByName(name)
	if c != nil {
		return c.Metadata().Hash, nil
	}
	return util.Uint160{}, errors.New("unknown native contract")
}

// GetNatives returns the set of native contracts.
func (bc *Blockchain) GetNatives() *native.Contracts {
	return bc.contracts
}

// GetStorageItem returns an item from storage.
func (bc *Blockchain) GetStorageItem(id int32, key []byte) state.StorageItem {
	return bc.dao.GetStorageItem(id, key)
}

// GetCommittee returns the sorted list of public keys of nodes in committee.
func (bc *Blockchain) GetCommittee() (keys.PublicKeys, error) {
	pubs := bc.contracts.NEO.GetCommitteeMembers(bc.dao)
	sort.Sort(pubs)
	return pubs, nil
}

// ComputeNextBlockValidators returns current validators.
func (bc *Blockchain) ComputeNextBlockValidators() ([]*keys.PublicKey, error) {
	standby, err := bc.config.GetStandbyCommittee()
	if err != nil {
		return nil, err
	}
	return bc.contracts.NEO.ComputeNextBlockValidators(bc.dao, bc.config.GetNumOfCNs(bc.BlockHeight()), standby)
}

// GetNextBlockValidators returns next block validators.
func (bc *Blockchain) GetNextBlockValidators() ([]*keys.PublicKey, error) {
	return bc.contracts.NEO.GetNextBlockValidatorsInternal(bc.dao, bc.config.GetNumOfCNs(bc.BlockHeight())), nil
}

// GetEnrollments returns all registered validators.
func (bc *Blockchain) GetEnrollments() ([]state.Validator, error) {
	return bc.contracts.NEO.GetCandidates(bc.dao)
}

// GetStateModule returns the state root module.
func (bc *Blockchain) GetStateModule() *stateroot.Module {
	return bc.stateRoot
}

// GetMemPool returns the memory pool of the blockchain.
func (bc *Blockchain) GetMemPool() *mempool.Pool {
	return bc.memPool
}

// FeePerByte returns network fee divided by the size of the transaction.
func (bc *Blockchain) FeePerByte() int64 {
	return bc.contracts.Policy.GetFeePerByteInternal(bc.dao)
}

// GetBaseExecFee returns the base GAS fee multiplier for VM instructions.
func (bc *Blockchain) GetBaseExecFee() int64 {
	if bc.BlockHeight() == 0 {
		return interop.DefaultBaseExecFee
	}
	return bc.contracts.Policy.GetExecFeeFactorInternal(bc.dao)
}

// GetStoragePrice returns the current storage price per byte.
func (bc *Blockchain) GetStoragePrice() int64 {
	if bc.BlockHeight() == 0 {
		return interop.DefaultStoragePrice
	}
	return bc.contracts.Policy.GetStoragePriceInternal(bc.dao)
}

// GetUtilityTokenBalance returns utility token (GAS) balance for the acc.
func (bc *Blockchain) GetUtilityTokenBalance(acc util.Uint160) *big.Int {
	bs := bc.contracts.GAS.BalanceOf(bc.dao, acc)
	if bs == nil {
		return big.NewInt(0)
	}
	return bs
}

// GetGoverningTokenBalance returns governing token (NEO) balance and the
// height of the last balance change for the account.
func (bc *Blockchain) GetGoverningTokenBalance(acc util.Uint160) (*big.Int, uint32) {
	return bc.contracts.NEO.BalanceOf(bc.dao, acc)
}

// PoolTx verifies and tries to add given transaction into the mempool. If not
// given, the default mempool is used. Passing multiple pools is not supported.
func (bc *Blockchain) PoolTx(t *transaction.Transaction, pools ...*mempool.Pool) error {
	var pool = bc.memPool

	bc.lock.RLock()
	defer bc.lock.RUnlock()
	// Programmer error.
	if len(pools) > 1 {
		panic("too many pools given")
	}
	if len(pools) == 1 {
		pool = pools[0]
	}
	return bc.verifyAndPoolTx(t, pool, bc)
}

// VerifyTx verifies whether transaction is bonafide or not relative to the
// current blockchain state. Note that this verification is completely
// isolated from the main node's mempool.
func (bc *Blockchain) VerifyTx(t *transaction.Transaction) error {
	var mp = mempool.New(1, 0, false, nil)
	bc.lock.RLock()
	defer bc.lock.RUnlock()
	return bc.verifyAndPoolTx(t, mp, bc)
}

// verifyAndPoolTx verifies whether a transaction is bonafide or not and tries
// to add it to the given mempool.
func (bc *Blockchain) verifyAndPoolTx(t *transaction.Transaction, pool *mempool.Pool, feer mempool.Feer, data ...any) error {
	height := bc.BlockHeight()
	if t.ValidUntilBlock <= height || t.ValidUntilBlock > height+bc.config.MaxValidUntilBlockIncrement {
		return fmt.Errorf("%w: ValidUntilBlock = %d, current height = %d", ErrTxExpired, t.ValidUntilBlock, height)
	}
	if err := bc.contracts.Policy.CheckPolicy(bc.dao, t); err != nil {
		return fmt.Errorf("%w: %v", ErrPolicy, err)
	}
	size := t.Size()
	if size > transaction.MaxTransactionSize {
		return fmt.Errorf("%w: (%d > MaxTransactionSize %d)", ErrTxTooBig, size, transaction.MaxTransactionSize)
	}
	needNetworkFee := int64(size) * bc.FeePerByte()
	netFee := t.NetworkFee - needNetworkFee
	if netFee < 0 {
		return fmt.Errorf("%w: net fee is %v, need %v", ErrTxSmallNetworkFee, t.NetworkFee, needNetworkFee)
	}
	if err := bc.verifyTxAttributes(bc.dao, t); err != nil {
		return err
	}
	err := pool.Add(t, feer, data...)
	if err != nil {
		switch {
		case errors.Is(err, mempool.ErrConflict):
			return ErrMemPoolConflict
		case errors.Is(err, mempool.ErrDup):
			return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
		case errors.Is(err, mempool.ErrInsufficientFunds):
			return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		case errors.Is(err, mempool.ErrOOM):
			return ErrOOM
		case errors.Is(err, mempool.ErrConflictsAttribute):
			return fmt.Errorf("%w: %v", ErrHasConflicts, err)
		default:
			return err
		}
	}
	// Witness check is done after the pool insertion to keep mempool
	// consistency checks and verification under the same view of the pool.
	if err := bc.verifyTxWitnesses(t, nil, netFee); err != nil {
		pool.Remove(t.Hash(), feer)
		return err
	}
	return nil
}

func (bc *Blockchain) verifyTxAttributes(d *dao.Simple, tx *transaction.Transaction) error {
	for i := range tx.Attributes {
		switch attrType := tx.Attributes[i].Type; attrType {
		case transaction.HighPriority:
			h := bc.contracts.NEO.GetCommitteeAddress()
			if !tx.HasSigner(h) {
				return fmt.Errorf("%w: high priority tx is not signed by committee", ErrInvalidAttribute)
			}
		case transaction.OracleResponseT:
			h, err := bc.contracts.Oracle.GetScriptHash(bc.dao)
			if err != nil || h.Equals(util.Uint160{}) {
				return fmt.Errorf("%w: %v", ErrInvalidAttribute, err)
			}
			hasOracle := false
			for i := range tx.Signers {
				if tx.Signers[i].Scopes != transaction.None {
					return fmt.Errorf("%w: oracle tx has invalid signer scope", ErrInvalidAttribute)
				}
				if tx.Signers[i].Account.Equals(h) {
					hasOracle = true
				}
			}
			if !hasOracle {
				return fmt.Errorf("%w: oracle tx is not signed by oracle nodes", ErrInvalidAttribute)
			}
			if !bytes.Equal(tx.Script, bc.contracts.Oracle.GetOracleResponseScript()) {
				return fmt.Errorf("%w: oracle tx has invalid script", ErrInvalidAttribute)
			}
			resp := tx.Attributes[i].Value.(*transaction.OracleResponse)
			req, err := bc.contracts.Oracle.GetRequestInternal(bc.dao, resp.ID)
			if err != nil {
				return fmt.Errorf("%w: oracle tx points to invalid request: %v", ErrInvalidAttribute, err)
			}
			if uint64(tx.NetworkFee+tx.SystemFee) < req.GasForResponse {
				return fmt.Errorf("%w: oracle tx has insufficient gas", ErrInvalidAttribute)
			}
		case transaction.NotValidBeforeT:
			nvb := tx.Attributes[i].Value.(*transaction.NotValidBefore).Height
			if height := bc.BlockHeight(); height < nvb {
				return fmt.Errorf("%w: transaction is not yet valid: NotValidBefore = %d, current height = %d", ErrInvalidAttribute, nvb, height)
			}
		case transaction.ConflictsT:
			conflicts := tx.Attributes[i].Value.(*transaction.Conflicts)
			if err := bc.dao.HasTransaction(conflicts.Hash); errors.Is(err, dao.ErrAlreadyExists) {
				return fmt.Errorf("%w: conflicting transaction %s is already on chain", ErrInvalidAttribute, conflicts.Hash.StringLE())
			}
		default:
			if !bc.config.ReservedAttributes && attrType >= transaction.ReservedLowerBound && attrType <= transaction.ReservedUpperBound {
				return fmt.Errorf("%w: attribute of reserved type was found, but ReservedAttributes are disabled", ErrInvalidAttribute)
			}
		}
	}
	return nil
}

// IsTxStillRelevant is a callback for mempool transaction filtering after the
// new block addition. It returns false for transactions added by the new block
// (passed via txpool) and does witness reverification for non-standard
// contracts. It operates under the assumption that full transaction verification
// was already done so we don't need to check basic things like size, input/output
// correctness, presence in blocks before the new one, etc.
func (bc *Blockchain) IsTxStillRelevant(t *transaction.Transaction, txpool *mempool.Pool, isPartialTx bool) bool {
	var recheckWitness bool

	if t.ValidUntilBlock <= bc.BlockHeight() {
		return false
	}
	if txpool == nil {
		if errors.Is(bc.dao.HasTransaction(t.Hash()), dao.ErrAlreadyExists) {
			return false
		}
	} else if txpool.HasConflicts(t, bc) {
		return false
	}
	if err := bc.verifyTxAttributes(bc.dao, t); err != nil {
		return false
	}
	for i := range t.Scripts {
		if !vm.IsStandardContract(t.Scripts[i].VerificationScript) {
			recheckWitness = true
			break
		}
	}
	if recheckWitness {
		return bc.verifyTxWitnesses(t, nil, t.NetworkFee) == nil
	}
	return true
}

// VerifyWitness checks the witness of the hashable item against the script
// hash given, returning the amount of GAS consumed during verification.
func (bc *Blockchain) VerifyWitness(h util.Uint160, c hash.Hashable, w *transaction.Witness, gas int64) (int64, error) {
	ic := bc.newInteropContext(trigger.Verification, bc.dao, nil, nil)
	ic.Container = c
	return bc.verifyHashAgainstScript(h, w, ic, gas)
}

// verifyTxWitnesses verifies the scripts (witnesses) that come with a given
// transaction.
func (bc *Blockchain) verifyTxWitnesses(t *transaction.Transaction, block *block.Block, netFee int64) error {
	if len(t.Signers) != len(t.Scripts) {
		return transaction.ErrInvalidWitnessNum
	}
	interopCtx := bc.newInteropContext(trigger.Verification, bc.dao, block, t)
	gasLimit := netFee
	for i := range t.Signers {
		gasConsumed, err := bc.verifyHashAgainstScript(t.Signers[i].Account, &t.Scripts[i], interopCtx, gasLimit)
		if err != nil {
			return fmt.Errorf("witness #%d: %w", i, err)
		}
		gasLimit -= gasConsumed
	}
	return nil
}

// verifyHashAgainstScript verifies given witness against the given hash.
// The verification script execution is limited by the smaller of the given
// gas and the Policy maximum verification gas.
func (bc *Blockchain) verifyHashAgainstScript(hash util.Uint160, witness *transaction.Witness, interopCtx *interop.Context, gas int64) (int64, error) {
	gasPolicy := bc.contracts.Policy.GetMaxVerificationGas(interopCtx.DAO)
	if gas > gasPolicy {
		gas = gasPolicy
	}

	vm := SpawnVM(interopCtx)
	vm.GasLimit = gas
	if err := bc.initVerificationVM(interopCtx, hash, witness); err != nil {
		return 0, err
	}
	err := interopCtx.VM.Run()
	if vm.HasFailed() {
		return 0, fmt.Errorf("%w: vm execution has failed: %v", ErrVerificationFailed, err)
	}
	interopCtx.Finalize()
	estack := vm.Estack()
	if estack.Len() > 0 {
		resEl := estack.Pop()
		res, err := resEl.Item().TryBool()
		if err != nil {
			return 0, fmt.Errorf("%w: invalid return value", ErrVerificationFailed)
		}
		if vm.Estack().Len() != 0 {
			return 0, fmt.Errorf("%w: expected exactly one returned value", ErrVerificationFailed)
		}
		if !res {
			return vm.GasConsumed(), fmt.Errorf("%w: invalid signature", ErrVerificationFailed)
		}
	} else {
		return 0, fmt.Errorf("%w: no result returned from the script", ErrVerificationFailed)
	}
	return vm.GasConsumed(), nil
}

// initVerificationVM loads the verification script of the witness (or the
// verify method of a deployed contract for empty verification scripts) into
// the interop context VM.
func (bc *Blockchain) initVerificationVM(ic *interop.Context, hash util.Uint160, witness *transaction.Witness) error {
	v := ic.VM
	if len(witness.VerificationScript) != 0 {
		if witness.ScriptHash() != hash {
			return fmt.Errorf("%w: witness hash mismatch", ErrWitnessHashMismatch)
		}
		v.LoadScriptWithFlags(witness.VerificationScript, callflag.ReadOnly)
	} else {
		cs, err := ic.GetContract(hash)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnknownVerificationContract, err)
		}
		md := cs.Manifest.ABI.GetMethod(manifest.MethodVerify, -1)
		if md == nil || md.ReturnType != smartcontract.BoolType {
			return fmt.Errorf("%w: no verify method", ErrInvalidVerificationContract)
		}
		verifyOffset := md.Offset
		initOffset := -1
		md = cs.Manifest.ABI.GetMethod(manifest.MethodInit, 0)
		if md != nil {
			initOffset = md.Offset
		}
		v.LoadScriptWithHash(cs.NEF.Script, hash, callflag.ReadOnly)
		v.Context().Jump(verifyOffset)
		if initOffset >= 0 {
			v.Call(v.Context(), initOffset)
		}
	}
	if len(witness.InvocationScript) != 0 {
		v.LoadScript(witness.InvocationScript)
	}
	return nil
}

// newInteropContext creates a new interop context for the given trigger, DAO
// layer and execution container.
func (bc *Blockchain) newInteropContext(trigger trigger.Type, d *dao.Simple, block *block.Block, tx *transaction.Transaction) *interop.Context {
	baseExecFee := bc.GetBaseExecFee()
	baseStorageFee := bc.GetStoragePrice()
	ic := interop.NewContext(trigger, bc, d, baseExecFee, baseStorageFee,
		bc.contracts.Management.GetContract, bc.contracts.Contracts,
		contract.LoadToken, block, tx, bc.log)
	return ic
}

// GetTestVM returns an interop context with the VM set up for a test run of
// the given transaction or block.
func (bc *Blockchain) GetTestVM(t trigger.Type, tx *transaction.Transaction, b *block.Block) *interop.Context {
	d := bc.dao.GetWrapped()
	systemInterop := bc.newInteropContext(t, d, b, tx)
	SpawnVM(systemInterop)
	return systemInterop
}

// SubscribeForBlocks adds the given channel to the new block broadcasting.
// The channel is expected to be buffered, the event is dropped if the
// receiver is not keeping up.
func (bc *Blockchain) SubscribeForBlocks(ch chan *block.Block) {
	bc.subsLock.Lock()
	defer bc.subsLock.Unlock()
	bc.blockSubs = append(bc.blockSubs, ch)
}

// UnsubscribeFromBlocks removes the given channel from the new block
// broadcasting.
func (bc *Blockchain) UnsubscribeFromBlocks(ch chan *block.Block) {
	bc.subsLock.Lock()
	defer bc.subsLock.Unlock()
	for i := range bc.blockSubs {
		if bc.blockSubs[i] == ch {
			bc.blockSubs = append(bc.blockSubs[:i], bc.blockSubs[i+1:]...)
			break
		}
	}
}

// SubscribeForExecutions adds the given channel to the execution result
// broadcasting. The channel is expected to be buffered.
func (bc *Blockchain) SubscribeForExecutions(ch chan *state.AppExecResult) {
	bc.subsLock.Lock()
	defer bc.subsLock.Unlock()
	bc.executionSubs = append(bc.executionSubs, ch)
}

// UnsubscribeFromExecutions removes the given channel from the execution
// result broadcasting.
func (bc *Blockchain) UnsubscribeFromExecutions(ch chan *state.AppExecResult) {
	bc.subsLock.Lock()
	defer bc.subsLock.Unlock()
	for i := range bc.executionSubs {
		if bc.executionSubs[i] == ch {
			bc.executionSubs = append(bc.executionSubs[:i], bc.executionSubs[i+1:]...)
			break
		}
	}
}

// SubscribeForNotifications adds the given channel to the contract
// notification broadcasting. The channel is expected to be buffered.
func (bc *Blockchain) SubscribeForNotifications(ch chan *state.NotificationEvent) {
	bc.subsLock.Lock()
	defer bc.subsLock.Unlock()
	bc.notificationSubs = append(bc.notificationSubs, ch)
}

// UnsubscribeFromNotifications removes the given channel from the contract
// notification broadcasting.
func (bc *Blockchain) UnsubscribeFromNotifications(ch chan *state.NotificationEvent) {
	bc.subsLock.Lock()
	defer bc.subsLock.Unlock()
	for i := range bc.notificationSubs {
		if bc.notificationSubs[i] == ch {
			bc.notificationSubs = append(bc.notificationSubs[:i], bc.notificationSubs[i+1:]...)
			break
		}
	}
}

func (bc *Blockchain) notify(b *block.Block, aerOnPersist *state.AppExecResult, txAERs []*state.AppExecResult, aerPostPersist *state.AppExecResult) {
	bc.subsLock.Lock()
	defer bc.subsLock.Unlock()

	aers := make([]*state.AppExecResult, 0, len(txAERs)+2)
	aers = append(aers, aerOnPersist)
	aers = append(aers, txAERs...)
	aers = append(aers, aerPostPersist)

	for _, aer := range aers {
		for _, ch := range bc.executionSubs {
			select {
			case ch <- aer:
			default:
			}
		}
		for i := range aer.Events {
			for _, ch := range bc.notificationSubs {
				select {
				case ch <- &aer.Events[i]:
				default:
				}
			}
		}
	}
	for _, ch := range bc.blockSubs {
		select {
		case ch <- b:
		default:
		}
	}
}
