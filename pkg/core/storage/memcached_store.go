package storage

import (
	"bytes"
	"context"
	"sort"
	"strings"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch.
type MemCachedStore struct {
	MemoryStore

	// Persistent Store.
	ps Store
}

type (
	// KeyValue represents key-value pair.
	KeyValue struct {
		Key   []byte
		Value []byte

		Exists bool
	}

	// MemBatch represents a changeset to be persisted.
	MemBatch struct {
		Put     []KeyValue
		Deleted []KeyValue
	}
)

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: *NewMemoryStore(),
		ps:          lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	m := s.chooseMap(key)
	if val, ok := m[string(key)]; ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	return s.ps.Get(key)
}

// GetBatch returns currently accumulated changeset.
func (s *MemCachedStore) GetBatch() *MemBatch {
	s.mut.RLock()
	defer s.mut.RUnlock()

	var b MemBatch
	for _, m := range []map[string][]byte{s.mem, s.stor} {
		for k, v := range m {
			key := []byte(k)
			_, err := s.ps.Get(key)
			if v == nil {
				b.Deleted = append(b.Deleted, KeyValue{Key: key, Exists: err == nil})
			} else {
				b.Put = append(b.Put, KeyValue{Key: key, Value: v, Exists: err == nil})
			}
		}
	}
	return &b
}

// Seek implements the Store interface. It flattens cached changes with the
// lower layer contents keeping the overall ascending (or descending for
// backwards seeks) key order.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()

	sPrefix := string(rng.Prefix)
	lPrefix := len(sPrefix)
	sStart := string(rng.Start)
	lStart := len(sStart)
	isKeyOK := func(key string) bool {
		return strings.HasPrefix(key, sPrefix) && (lStart == 0 || strings.Compare(key[lPrefix:], sStart) >= 0)
	}
	if rng.Backwards {
		isKeyOK = func(key string) bool {
			return strings.HasPrefix(key, sPrefix) && (lStart == 0 || strings.Compare(key[lPrefix:], sStart) <= 0)
		}
	}
	less := func(k1, k2 []byte) bool {
		res := bytes.Compare(k1, k2)
		return res != 0 && rng.Backwards == (res > 0)
	}

	// Deletion markers (nil values) are kept here, they shadow the lower layer.
	var memList []KeyValue
	m := s.chooseMap(rng.Prefix)
	for k, v := range m {
		if isKeyOK(k) {
			memList = append(memList, KeyValue{Key: []byte(k), Value: v})
		}
	}
	sort.Slice(memList, func(i, j int) bool {
		return less(memList[i].Key, memList[j].Key)
	})

	var (
		done bool
		i    int
	)
	s.ps.Seek(rng, func(k, v []byte) bool {
		for i < len(memList) && less(memList[i].Key, k) {
			kv := memList[i]
			i++
			if kv.Value != nil && !f(kv.Key, kv.Value) {
				done = true
				return false
			}
		}
		if i < len(memList) && bytes.Equal(memList[i].Key, k) {
			kv := memList[i]
			i++
			if kv.Value == nil {
				return true
			}
			if !f(kv.Key, kv.Value) {
				done = true
				return false
			}
			return true
		}
		if !f(k, v) {
			done = true
			return false
		}
		return true
	})
	for !done && i < len(memList) {
		kv := memList[i]
		i++
		if kv.Value != nil && !f(kv.Key, kv.Value) {
			break
		}
	}
}

// SeekAsync returns a channel with matching KeyValue pairs. Key and Value
// slices must not be retained by the receiver. The seek goroutine stops
// either when the channel is drained or when ctx is cancelled, the caller
// should do one of these things to avoid leaking it.
func (s *MemCachedStore) SeekAsync(ctx context.Context, rng SeekRange, cutPrefix bool) chan KeyValue {
	res := make(chan KeyValue)
	go func() {
		s.Seek(rng, func(k, v []byte) bool {
			if cutPrefix {
				k = k[len(rng.Prefix):]
			}
			select {
			case res <- KeyValue{Key: k, Value: v}:
				return true
			case <-ctx.Done():
				return false
			}
		})
		close(res)
	}()
	return res
}

// Persist flushes all the MemoryStore contents into the (supposedly) persistent
// store ps. It returns the number of changes flushed.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	keys := len(s.mem) + len(s.stor)
	if keys == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(s.mem, s.stor)
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	s.stor = make(map[string][]byte)
	return keys, nil
}

// PersistSync is a synchronous version of Persist, currently the same thing
// as the changeset is always flushed in one locked batch.
func (s *MemCachedStore) PersistSync() (int, error) {
	return s.Persist()
}

// Close implements Store interface, clears up memory and closes the lower layer
// Store.
func (s *MemCachedStore) Close() error {
	// It's always successful.
	_ = s.MemoryStore.Close()
	return s.ps.Close()
}
