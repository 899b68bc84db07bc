package storage

import (
	"bytes"
	"path/filepath"
	"sort"
	"testing"

	"github.com/r3e-network/neo-core/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dbSetup struct {
	name   string
	create func(testing.TB) Store
}

func newLevelDBForTesting(t testing.TB) Store {
	ldbDir := t.TempDir()
	dbOptions := dbconfig.LevelDBOptions{
		DataDirectoryPath: ldbDir,
	}
	newLevelStore, err := NewLevelDBStore(dbOptions)
	require.NoError(t, err, "NewLevelDBStore error")
	return newLevelStore
}

func newBoltStoreForTesting(t testing.TB) Store {
	d := t.TempDir()
	testFileName := filepath.Join(d, "test_bolt_db")
	boltDBStore, err := NewBoltDBStore(dbconfig.BoltDBOptions{FilePath: testFileName})
	require.NoError(t, err)
	return boltDBStore
}

func newMemoryStoreForTesting(t testing.TB) Store {
	return NewMemoryStore()
}

func newMemCachedStoreForTesting(t testing.TB) Store {
	return NewMemCachedStore(NewMemoryStore())
}

var dbSetups = []dbSetup{
	{"MemoryStore", newMemoryStoreForTesting},
	{"MemCachedStore", newMemCachedStoreForTesting},
	{"BoltDBStore", newBoltStoreForTesting},
	{"LevelDBStore", newLevelDBForTesting},
}

func testStoreGetNonExistent(t *testing.T, s Store) {
	key := []byte("sparse")

	_, err := s.Get(key)
	assert.Equal(t, err, ErrKeyNotFound)
}

func testStorePutAndGet(t *testing.T, s Store) {
	key := []byte("foo")
	value := []byte("bar")

	require.NoError(t, s.PutChangeSet(map[string][]byte{string(key): value}, nil))

	result, err := s.Get(key)
	assert.Nil(t, err)
	require.Equal(t, value, result)
}

func testStorePutChangeSet(t *testing.T, s Store) {
	puts := map[string][]byte{
		"f1": []byte("v1"),
		"f2": []byte("v2"),
	}
	stores := map[string][]byte{
		string([]byte{byte(STStorage), 0x01}): []byte("v3"),
	}
	require.NoError(t, s.PutChangeSet(puts, stores))
	for k, v := range puts {
		res, err := s.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, res)
	}
	for k, v := range stores {
		res, err := s.Get([]byte(k))
		require.NoError(t, err)
		require.Equal(t, v, res)
	}
	// A nil value is a deletion marker.
	require.NoError(t, s.PutChangeSet(map[string][]byte{"f1": nil}, nil))
	_, err := s.Get([]byte("f1"))
	require.Equal(t, ErrKeyNotFound, err)
}

func pushSeekDataSet(t *testing.T, s Store) []KeyValue {
	// Use the same set of kvs to test Seek with different prefix/start values.
	kvs := []KeyValue{
		{Key: []byte("10"), Value: []byte("bar")},
		{Key: []byte("11"), Value: []byte("bara")},
		{Key: []byte("20"), Value: []byte("barb")},
		{Key: []byte("21"), Value: []byte("barc")},
		{Key: []byte("22"), Value: []byte("bard")},
		{Key: []byte("30"), Value: []byte("bare")},
		{Key: []byte("31"), Value: []byte("barf")},
	}
	puts := make(map[string][]byte)
	for _, v := range kvs {
		puts[string(v.Key)] = v.Value
	}
	require.NoError(t, s.PutChangeSet(puts, nil))
	return kvs
}

func testStoreSeek(t *testing.T, s Store) {
	kvs := pushSeekDataSet(t, s)
	check := func(t *testing.T, goodprefix, start []byte, goodkvs []KeyValue, backwards bool, cont func(k, v []byte) bool) {
		var actual []KeyValue
		rng := SeekRange{
			Prefix: goodprefix,
			Start:  start,
		}
		if backwards {
			rng.Backwards = true
		}
		s.Seek(rng, func(k, v []byte) bool {
			actual = append(actual, KeyValue{
				Key:   bytes.Clone(k),
				Value: bytes.Clone(v),
			})
			if cont == nil {
				return true
			}
			return cont(k, v)
		})
		assert.Equal(t, goodkvs, actual)
	}

	t.Run("non-empty prefix, empty start", func(t *testing.T) {
		t.Run("forwards", func(t *testing.T) {
			goodprefix := []byte("2")
			goodkvs := []KeyValue{kvs[2], kvs[3], kvs[4]}
			check(t, goodprefix, nil, goodkvs, false, nil)
		})
		t.Run("backwards", func(t *testing.T) {
			goodprefix := []byte("2")
			goodkvs := []KeyValue{kvs[4], kvs[3], kvs[2]}
			check(t, goodprefix, nil, goodkvs, true, nil)
		})
	})

	t.Run("non-empty prefix, non-empty start", func(t *testing.T) {
		t.Run("forwards", func(t *testing.T) {
			goodprefix := []byte("2")
			start := []byte("1")
			goodkvs := []KeyValue{kvs[3], kvs[4]}
			check(t, goodprefix, start, goodkvs, false, nil)
		})
		t.Run("backwards", func(t *testing.T) {
			goodprefix := []byte("2")
			start := []byte("1")
			goodkvs := []KeyValue{kvs[3], kvs[2]}
			check(t, goodprefix, start, goodkvs, true, nil)
		})
	})

	t.Run("early exit", func(t *testing.T) {
		goodprefix := []byte("2")
		goodkvs := []KeyValue{kvs[2], kvs[3]}
		var n int
		check(t, goodprefix, nil, goodkvs, false, func(k, v []byte) bool {
			n++
			return n < 2
		})
	})

	t.Run("no matching items", func(t *testing.T) {
		goodprefix := []byte("0")
		check(t, goodprefix, nil, nil, false, nil)
	})
}

func testStoreSeekGC(t *testing.T, s Store) {
	kvs := pushSeekDataSet(t, s)
	err := s.SeekGC(SeekRange{Prefix: []byte("1")}, func(k, v []byte) bool {
		return true
	})
	require.NoError(t, err)
	for i := range kvs {
		_, err = s.Get(kvs[i].Key)
		require.NoError(t, err)
	}
	err = s.SeekGC(SeekRange{Prefix: []byte("3")}, func(k, v []byte) bool {
		return false
	})
	require.NoError(t, err)
	for i := range kvs[:5] {
		_, err = s.Get(kvs[i].Key)
		require.NoError(t, err)
	}
	for _, kv := range kvs[5:] {
		_, err = s.Get(kv.Key)
		require.Error(t, err)
	}
}

func testStoreClose(t *testing.T, s Store) {
	require.NoError(t, s.Close())
}

func TestAllDBs(t *testing.T) {
	tests := []struct {
		name string
		f    func(*testing.T, Store)
	}{
		{"GetNonExistent", testStoreGetNonExistent},
		{"PutAndGet", testStorePutAndGet},
		{"PutChangeSet", testStorePutChangeSet},
		{"Seek", testStoreSeek},
		{"SeekGC", testStoreSeekGC},
	}
	for _, setup := range dbSetups {
		for _, test := range tests {
			t.Run(setup.name+"/"+test.name, func(t *testing.T) {
				s := setup.create(t)
				test.f(t, s)
				testStoreClose(t, s)
			})
		}
	}
}

func TestSeekRangeToPrefixes(t *testing.T) {
	rng := seekRangeToPrefixes(SeekRange{Prefix: []byte{0x01}, Start: []byte{0x02}})
	require.Equal(t, []byte{0x01, 0x02}, rng.Start)
	require.Equal(t, []byte{0x02}, rng.Limit)

	rng = seekRangeToPrefixes(SeekRange{Prefix: []byte{0x01}, Start: []byte{0x02}, Backwards: true})
	require.Equal(t, []byte{0x01}, rng.Start)
	require.Equal(t, []byte{0x01, 0x03}, rng.Limit)
}

func TestMemoryStoreSeekSorted(t *testing.T) {
	s := NewMemoryStore()
	keys := []string{"a1", "a5", "a3", "a2", "a4"}
	for _, k := range keys {
		s.Put([]byte(k), []byte("v"))
	}
	sort.Strings(keys)
	var actual []string
	s.Seek(SeekRange{Prefix: []byte("a")}, func(k, v []byte) bool {
		actual = append(actual, string(k))
		return true
	})
	require.Equal(t, keys, actual)
}
