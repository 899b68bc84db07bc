package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutDelete(t *testing.T) {
	s := NewMemoryStore()
	key := []byte("foo")
	value := []byte("bar")

	s.Put(key, value)
	result, err := s.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, result)

	s.Delete(key)
	_, err = s.Get(key)
	assert.Equal(t, ErrKeyNotFound, err)
}

func TestMemoryStoreStorageRouting(t *testing.T) {
	s := NewMemoryStore()
	key := append([]byte{byte(STStorage)}, []byte("key")...)
	value := []byte("value")

	s.Put(key, value)
	require.Equal(t, 1, len(s.stor))
	require.Equal(t, 0, len(s.mem))

	result, err := s.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, result)
}

func TestMemoryStoreClose(t *testing.T) {
	s := NewMemoryStore()
	s.Put([]byte("key"), []byte("value"))
	require.NoError(t, s.Close())
	_, err := s.Get([]byte("key"))
	assert.Equal(t, ErrKeyNotFound, err)
}
