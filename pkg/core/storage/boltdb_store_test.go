package storage

import (
	"path/filepath"
	"testing"

	"github.com/r3e-network/neo-core/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
)

func TestBoltDBReadOnly(t *testing.T) {
	d := t.TempDir()
	testFileName := filepath.Join(d, "test_bolt_db")
	// Missing DB must not be created in RO mode.
	_, err := NewBoltDBStore(dbconfig.BoltDBOptions{FilePath: testFileName, ReadOnly: true})
	require.Error(t, err)

	s, err := NewBoltDBStore(dbconfig.BoltDBOptions{FilePath: testFileName})
	require.NoError(t, err)
	require.NoError(t, s.PutChangeSet(map[string][]byte{"key": []byte("value")}, nil))
	require.NoError(t, s.Close())

	ro, err := NewBoltDBStore(dbconfig.BoltDBOptions{FilePath: testFileName, ReadOnly: true})
	require.NoError(t, err)
	v, err := ro.Get([]byte("key"))
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)
	require.Error(t, ro.PutChangeSet(map[string][]byte{"key2": []byte("value")}, nil))
	require.NoError(t, ro.Close())
}
