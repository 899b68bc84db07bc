package dao

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/r3e-network/neo-core/pkg/core/block"
	"github.com/r3e-network/neo-core/pkg/core/state"
	"github.com/r3e-network/neo-core/pkg/core/storage"
	"github.com/r3e-network/neo-core/pkg/core/transaction"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// HasTransaction errors.
var (
	// ErrAlreadyExists is returned when the transaction exists in dao.
	ErrAlreadyExists = errors.New("transaction already exists")
	// ErrInternalDBInconsistency is returned when the state found in the DB
	// is inconsistent with what other state tells us.
	ErrInternalDBInconsistency = errors.New("internal DB inconsistency")
)

// Simple is a memCached wrapper around the DB, a simple DAO implementation.
type Simple struct {
	Store *storage.MemCachedStore

	serCtx *stackitem.SerializationContext
}

// NewSimple creates a new simple dao using the provided backend store.
func NewSimple(backend storage.Store) *Simple {
	return &Simple{Store: storage.NewMemCachedStore(backend)}
}

// GetItemCtx returns a serialization context for the stack items stored by
// this DAO. The context is owned by the DAO and can be reused between calls.
func (dao *Simple) GetItemCtx() *stackitem.SerializationContext {
	if dao.serCtx == nil {
		dao.serCtx = stackitem.NewSerializationContext()
	}
	return dao.serCtx
}

// GetBatch returns the currently accumulated DB changeset.
func (dao *Simple) GetBatch() *storage.MemBatch {
	return dao.Store.GetBatch()
}

// GetWrapped returns a new DAO instance with another layer of wrapped
// MemCachedStore around the current DAO Store.
func (dao *Simple) GetWrapped() *Simple {
	return NewSimple(dao.Store)
}

// GetAndDecode performs get operation and decoding with serializable structures.
func (dao *Simple) GetAndDecode(entity io.Serializable, key []byte) error {
	entityBytes, err := dao.Store.Get(key)
	if err != nil {
		return err
	}
	reader := io.NewBinReaderFromBuf(entityBytes)
	entity.DecodeBinary(reader)
	return reader.Err
}

// Put performs put operation with serializable structures.
func (dao *Simple) Put(entity io.Serializable, key []byte) error {
	return dao.putWithBuffer(entity, key, io.NewBufBinWriter())
}

// putWithBuffer performs put operation using buf as a pre-allocated buffer for serialization.
func (dao *Simple) putWithBuffer(entity io.Serializable, key []byte, buf *io.BufBinWriter) error {
	entity.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

// -- start storage items.

// makeStorageItemKey returns the key used to store a StorageItem in the DB.
// The contract id is prefixed big-endian so per-contract scans are contiguous
// and ordered by id.
func makeStorageItemKey(id int32, key []byte) []byte {
	k := make([]byte, 5+len(key))
	k[0] = byte(storage.STStorage)
	binary.BigEndian.PutUint32(k[1:], uint32(id))
	copy(k[5:], key)
	return k
}

// GetStorageItem returns StorageItem if it exists in the given store.
func (dao *Simple) GetStorageItem(id int32, key []byte) state.StorageItem {
	b, err := dao.Store.Get(makeStorageItemKey(id, key))
	if err != nil {
		return nil
	}
	return b
}

// PutStorageItem puts the given StorageItem for the given id with the given
// key into the given store.
func (dao *Simple) PutStorageItem(id int32, key []byte, si state.StorageItem) {
	dao.Store.Put(makeStorageItemKey(id, key), si)
}

// DeleteStorageItem drops the storage item for the given id with the
// given key from the store.
func (dao *Simple) DeleteStorageItem(id int32, key []byte) {
	dao.Store.Delete(makeStorageItemKey(id, key))
}

// Seek executes f for all storage items matching the given `rng` (matching
// the given prefix and starting from the point specified). If the key or
// the value is to be used outside of f, they may not be copied. Seek stops
// iterating when false is returned from f.
func (dao *Simple) Seek(id int32, rng storage.SeekRange, f func(k, v []byte) bool) {
	rng.Prefix = bytes.Clone(makeStorageItemKey(id, rng.Prefix))
	dao.Store.Seek(rng, func(k, v []byte) bool {
		return f(k[5:], v)
	})
}

// SeekAsync sends all storage items matching the given prefix to a channel and
// returns the channel immediately. Resulting keys and values may not be copied.
func (dao *Simple) SeekAsync(ctx context.Context, id int32, rng storage.SeekRange) chan storage.KeyValue {
	rng.Prefix = bytes.Clone(makeStorageItemKey(id, rng.Prefix))
	return dao.Store.SeekAsync(ctx, rng, true)
}

// GetStorageItemsWithPrefix returns all storage items of the given contract
// that start with the given prefix.
func (dao *Simple) GetStorageItemsWithPrefix(id int32, prefix []byte) ([]state.StorageItemWithKey, error) {
	var siArr []state.StorageItemWithKey

	dao.Seek(id, storage.SeekRange{Prefix: prefix}, func(k, v []byte) bool {
		siArr = append(siArr, state.StorageItemWithKey{
			Key:  bytes.Clone(k),
			Item: bytes.Clone(v),
		})
		return true
	})
	return siArr, nil
}

// -- end storage items.

// -- start contract id.

func makeContractIDKey(id int32) []byte {
	key := make([]byte, 5)
	key[0] = byte(storage.STContractID)
	binary.BigEndian.PutUint32(key[1:], uint32(id))
	return key
}

// PutContractID adds a mapping from the given contract id to its hash.
func (dao *Simple) PutContractID(id int32, hash util.Uint160) {
	dao.Store.Put(makeContractIDKey(id), hash.BytesBE())
}

// DeleteContractID deletes the contract id to hash mapping.
func (dao *Simple) DeleteContractID(id int32) {
	dao.Store.Delete(makeContractIDKey(id))
}

// GetContractScriptHash returns the script hash of the contract with the
// given id.
func (dao *Simple) GetContractScriptHash(id int32) (util.Uint160, error) {
	var data = new(util.Uint160)
	if err := dao.GetAndDecode(data, makeContractIDKey(id)); err != nil {
		return *data, err
	}
	return *data, nil
}

// -- end contract id.

// -- start transfer log.

func getTokenTransferLogKey(acc util.Uint160, index uint32) []byte {
	key := make([]byte, 1+util.Uint160Size+4)
	key[0] = byte(storage.STNEP17Transfers)
	copy(key[1:], acc.BytesBE())
	binary.BigEndian.PutUint32(key[1+util.Uint160Size:], index)
	return key
}

// GetTokenTransferLog retrieves a transfer log from the cache.
func (dao *Simple) GetTokenTransferLog(acc util.Uint160, index uint32) (*state.TokenTransferLog, error) {
	key := getTokenTransferLogKey(acc, index)
	value, err := dao.Store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return new(state.TokenTransferLog), nil
		}
		return nil, err
	}
	return &state.TokenTransferLog{Raw: value}, nil
}

// PutTokenTransferLog saves the given transfer log in the cache.
func (dao *Simple) PutTokenTransferLog(acc util.Uint160, index uint32, lg *state.TokenTransferLog) {
	key := getTokenTransferLogKey(acc, index)
	dao.Store.Put(key, lg.Raw)
}

// AppendNEP17Transfer appends a single NEP-17 transfer to the account's log
// bucket with the given index. The first return value signals that the
// bucket has filled up to the batch size.
func (dao *Simple) AppendNEP17Transfer(acc util.Uint160, index uint32, tr *state.NEP17Transfer) (bool, error) {
	lg, err := dao.GetTokenTransferLog(acc, index)
	if err != nil {
		return false, err
	}
	if err := lg.Append(tr); err != nil {
		return false, err
	}
	dao.PutTokenTransferLog(acc, index, lg)
	return lg.Size() >= state.TokenTransferBatchSize, nil
}

// SeekNEP17TransferLog iterates over the account's NEP-17 transfer log
// buckets from the newest down and calls f for each transfer until it
// returns false.
func (dao *Simple) SeekNEP17TransferLog(acc util.Uint160, f func(*state.NEP17Transfer) (bool, error)) error {
	prefix := make([]byte, 1+util.Uint160Size)
	prefix[0] = byte(storage.STNEP17Transfers)
	copy(prefix[1:], acc.BytesBE())

	var seekErr error
	dao.Store.Seek(storage.SeekRange{Prefix: prefix, Backwards: true}, func(k, v []byte) bool {
		lg := &state.TokenTransferLog{Raw: v}
		cont, err := lg.ForEachNEP17(f)
		if err != nil {
			seekErr = err
		}
		return cont && seekErr == nil
	})
	return seekErr
}

// -- end transfer log.

// -- start blocks.

// GetBlock returns the Block by the given hash if it exists in the store.
func (dao *Simple) GetBlock(hash util.Uint256) (*block.Block, error) {
	key := storage.AppendPrefix(storage.DataBlock, hash.BytesLE())
	b, err := dao.Store.Get(key)
	if err != nil {
		return nil, err
	}

	r := io.NewBinReaderFromBuf(b)
	blk, err := block.NewTrimmedFromReader(r)
	if err != nil {
		return nil, err
	}
	return blk, nil
}

// StoreAsBlock stores given block as DataBlock. It can reuse the given
// buffer for the purpose of value serialization.
func (dao *Simple) StoreAsBlock(blk *block.Block, buf *io.BufBinWriter) error {
	var key = storage.AppendPrefix(storage.DataBlock, blk.Hash().BytesLE())

	if buf == nil {
		buf = io.NewBufBinWriter()
	}
	blk.EncodeTrimmed(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

// StoreAsCurrentBlock stores the hash of the given block with prefix
// SYSCurrentBlock.
func (dao *Simple) StoreAsCurrentBlock(blk *block.Block) {
	buf := io.NewBufBinWriter()
	h := blk.Hash()
	h.EncodeBinary(buf.BinWriter)
	buf.WriteU32LE(blk.Index)
	dao.Store.Put(storage.SYSCurrentBlock.Bytes(), buf.Bytes())
}

// GetCurrentBlockHeight returns the current block height found in the
// underlying store.
func (dao *Simple) GetCurrentBlockHeight() (uint32, error) {
	b, err := dao.Store.Get(storage.SYSCurrentBlock.Bytes())
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[32:36]), nil
}

// GetCurrentHeaderHeight returns the current header height and hash from
// the underlying store.
func (dao *Simple) GetCurrentHeaderHeight() (i uint32, h util.Uint256, err error) {
	var b []byte
	b, err = dao.Store.Get(storage.SYSCurrentHeader.Bytes())
	if err != nil {
		return
	}
	i = binary.LittleEndian.Uint32(b[32:36])
	h, err = util.Uint256DecodeBytesLE(b[:32])
	return
}

// PutCurrentHeader stores the given header hash and index as the current
// header.
func (dao *Simple) PutCurrentHeader(h util.Uint256, index uint32) {
	buf := io.NewBufBinWriter()
	buf.WriteBytes(h.BytesLE())
	buf.WriteU32LE(index)
	dao.Store.Put(storage.SYSCurrentHeader.Bytes(), buf.Bytes())
}

// GetHeaderHashes returns a sorted list of header hashes retrieved from
// the given underlying store.
func (dao *Simple) GetHeaderHashes() ([]util.Uint256, error) {
	hashMap := make(map[uint32][]util.Uint256)
	var seekErr error
	dao.Store.Seek(storage.SeekRange{Prefix: storage.IXHeaderHashList.Bytes()}, func(k, v []byte) bool {
		storedCount := binary.LittleEndian.Uint32(k[1:])
		hashes, err := read2000Uint256Hashes(v)
		if err != nil {
			seekErr = err
			return false
		}
		hashMap[storedCount] = hashes
		return true
	})
	if seekErr != nil {
		return nil, seekErr
	}

	var (
		hashes     = make([]util.Uint256, 0, len(hashMap))
		sortedKeys = make([]uint32, 0, len(hashMap))
	)

	for k := range hashMap {
		sortedKeys = append(sortedKeys, k)
	}
	sort.Slice(sortedKeys, func(i, j int) bool { return sortedKeys[i] < sortedKeys[j] })

	for _, key := range sortedKeys {
		hashes = append(hashes[:key], hashMap[key]...)
	}

	return hashes, nil
}

// StoreHeaderHashes pushes a batch of header hashes into the store.
func (dao *Simple) StoreHeaderHashes(hashes []util.Uint256, height uint32) error {
	key := storage.AppendPrefix(storage.IXHeaderHashList, make([]byte, 4))
	binary.LittleEndian.PutUint32(key[1:], height)
	buf := io.NewBufBinWriter()
	buf.WriteArray(hashes)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

// read2000Uint256Hashes attempts to read 2000 Uint256 hashes from
// the given byte array.
func read2000Uint256Hashes(b []byte) ([]util.Uint256, error) {
	r := bytes.NewReader(b)
	br := io.NewBinReaderFromIO(r)
	hashes := make([]util.Uint256, 0)
	br.ReadArray(&hashes)
	if br.Err != nil {
		return nil, br.Err
	}
	return hashes, nil
}

// -- end blocks.

// -- start transactions.

// GetTransaction returns the Transaction and its height by the given hash
// if it exists in the store.
func (dao *Simple) GetTransaction(hash util.Uint256) (*transaction.Transaction, uint32, error) {
	key := storage.AppendPrefix(storage.DataTransaction, hash.BytesLE())
	b, err := dao.Store.Get(key)
	if err != nil {
		return nil, 0, err
	}
	if len(b) < 5 {
		return nil, 0, fmt.Errorf("%w: transaction record is too short", ErrInternalDBInconsistency)
	}
	r := io.NewBinReaderFromBuf(b)

	var height = r.ReadU32LE()
	_ = r.ReadB() // VM state byte.

	tx := &transaction.Transaction{}
	tx.DecodeBinary(r)
	if r.Err != nil {
		return nil, 0, r.Err
	}

	return tx, height, nil
}

// StoreAsTransaction stores the given TX as DataTransaction together with
// its height and the VM state it ended its execution with. It can reuse the
// given buffer for the purpose of value serialization.
func (dao *Simple) StoreAsTransaction(tx *transaction.Transaction, index uint32, aer *state.AppExecResult, buf *io.BufBinWriter) error {
	key := storage.AppendPrefix(storage.DataTransaction, tx.Hash().BytesLE())
	if buf == nil {
		buf = io.NewBufBinWriter()
	}
	buf.WriteU32LE(index)
	if aer != nil {
		buf.WriteB(byte(aer.VMState))
	} else {
		buf.WriteB(0)
	}
	tx.EncodeBinary(buf.BinWriter)
	if aer != nil {
		aer.EncodeBinary(buf.BinWriter)
	}
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

// StoreBlockExecutions stores the results of the OnPersist and PostPersist
// script executions for the given block.
func (dao *Simple) StoreBlockExecutions(blockHash util.Uint256, onPersist, postPersist *state.AppExecResult) error {
	key := storage.AppendPrefix(storage.DataExecutable, blockHash.BytesLE())
	buf := io.NewBufBinWriter()
	onPersist.EncodeBinary(buf.BinWriter)
	postPersist.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

// GetBlockExecutions returns the results of the OnPersist and PostPersist
// script executions for the given block.
func (dao *Simple) GetBlockExecutions(blockHash util.Uint256) (onPersist *state.AppExecResult, postPersist *state.AppExecResult, err error) {
	key := storage.AppendPrefix(storage.DataExecutable, blockHash.BytesLE())
	b, err := dao.Store.Get(key)
	if err != nil {
		return nil, nil, err
	}
	r := io.NewBinReaderFromBuf(b)
	onPersist = new(state.AppExecResult)
	onPersist.DecodeBinary(r)
	postPersist = new(state.AppExecResult)
	postPersist.DecodeBinary(r)
	if r.Err != nil {
		return nil, nil, r.Err
	}
	return onPersist, postPersist, nil
}

// HasTransaction returns nil if the given store does not contain the given
// transaction hash and ErrAlreadyExists if it does.
func (dao *Simple) HasTransaction(hash util.Uint256) error {
	key := storage.AppendPrefix(storage.DataTransaction, hash.BytesLE())
	if _, err := dao.Store.Get(key); err == nil {
		return ErrAlreadyExists
	}
	return nil
}

// GetAppExecResult returns the application execution result stored with the
// given transaction.
func (dao *Simple) GetAppExecResult(hash util.Uint256) (*state.AppExecResult, error) {
	key := storage.AppendPrefix(storage.DataTransaction, hash.BytesLE())
	b, err := dao.Store.Get(key)
	if err != nil {
		return nil, err
	}
	r := io.NewBinReaderFromBuf(b)
	_ = r.ReadU32LE()
	_ = r.ReadB()
	tx := &transaction.Transaction{}
	tx.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Len() == 0 {
		return nil, fmt.Errorf("%w: no execution result for %s", storage.ErrKeyNotFound, hash.StringLE())
	}
	aer := new(state.AppExecResult)
	aer.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	return aer, nil
}

// GetTransactionHeight returns the height the given transaction was included
// into the chain at.
func (dao *Simple) GetTransactionHeight(hash util.Uint256) (uint32, error) {
	key := storage.AppendPrefix(storage.DataTransaction, hash.BytesLE())
	b, err := dao.Store.Get(key)
	if err != nil {
		return 0, err
	}
	if len(b) < 4 {
		return 0, fmt.Errorf("%w: transaction record is too short", ErrInternalDBInconsistency)
	}
	return binary.LittleEndian.Uint32(b[:4]), nil
}

// -- end transactions.

// GetVersion attempts to get the current version stored in the
// underlying store.
func (dao *Simple) GetVersion() (string, error) {
	version, err := dao.Store.Get(storage.SYSVersion.Bytes())
	return string(version), err
}

// PutVersion stores the given version in the underlying store.
func (dao *Simple) PutVersion(v string) {
	dao.Store.Put(storage.SYSVersion.Bytes(), []byte(v))
}

// Persist flushes all the changes made into the (supposedly) persistent
// underlying store. It doesn't block accesses to DAO from other threads.
func (dao *Simple) Persist() (int, error) {
	return dao.Store.Persist()
}

// PersistSync flushes all the changes made into the (supposedly) persistent
// underlying store. It's a synchronous version of Persist.
func (dao *Simple) PersistSync() (int, error) {
	return dao.Store.PersistSync()
}
