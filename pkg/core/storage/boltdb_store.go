package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/r3e-network/neo-core/pkg/core/storage/dbconfig"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.etcd.io/bbolt"
)

// Bucket represents bucket used in boltdb to store all the data.
var Bucket = []byte("DB")

// BoltDBStore it is the storage implementation for storing and retrieving
// blockchain data.
type BoltDBStore struct {
	db *bbolt.DB
}

// NewBoltDBStore returns a new ready to use BoltDB storage with created bucket.
func NewBoltDBStore(cfg dbconfig.BoltDBOptions) (*BoltDBStore, error) {
	cp := *bbolt.DefaultOptions
	cp.ReadOnly = cfg.ReadOnly
	fileMode := os.FileMode(0600) // should be exposed via BoltDBOptions if anything needed
	fileName := cfg.FilePath
	if !cfg.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(fileName), os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not create dir for BoltDB: %w", err)
		}
	}
	db, err := bbolt.Open(fileName, fileMode, &cp)
	if err != nil {
		return nil, fmt.Errorf("failed to open BoltDB instance: %w", err)
	}
	if !cfg.ReadOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(Bucket)
			if err != nil {
				return fmt.Errorf("could not create root bucket: %w", err)
			}
			return nil
		})
		if err != nil {
			closeErr := db.Close()
			if closeErr != nil {
				err = fmt.Errorf("%w, failed to close BoltDB: %w", err, closeErr)
			}
			return nil, err
		}
	}
	return &BoltDBStore{db: db}, nil
}

// Get implements the Store interface.
func (s *BoltDBStore) Get(key []byte) (val []byte, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(Bucket)
		// Value from Get is only valid for the lifetime of transaction.
		val = bytes.Clone(b.Get(key))
		return nil
	})
	if val == nil {
		err = ErrKeyNotFound
	}
	return
}

// PutChangeSet implements the Store interface.
func (s *BoltDBStore) PutChangeSet(puts map[string][]byte, stores map[string][]byte) error {
	var err error
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(Bucket)
		for _, m := range []map[string][]byte{puts, stores} {
			for k, v := range m {
				if v != nil {
					err = b.Put([]byte(k), v)
				} else {
					err = b.Delete([]byte(k))
				}
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Seek implements the Store interface.
func (s *BoltDBStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	start := make([]byte, len(rng.Prefix)+len(rng.Start))
	copy(start, rng.Prefix)
	copy(start[len(rng.Prefix):], rng.Start)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(Bucket).Cursor()
		boltSeek(c, rng.Prefix, start, rng.Backwards, func(k, v []byte) (bool, error) {
			return f(k, v), nil
		})
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// SeekGC implements the Store interface.
func (s *BoltDBStore) SeekGC(rng SeekRange, keep func(k, v []byte) bool) error {
	start := make([]byte, len(rng.Prefix)+len(rng.Start))
	copy(start, rng.Prefix)
	copy(start[len(rng.Prefix):], rng.Start)
	return s.db.Update(func(tx *bbolt.Tx) error {
		c := tx.Bucket(Bucket).Cursor()
		return boltSeek(c, rng.Prefix, start, rng.Backwards, func(k, v []byte) (bool, error) {
			if !keep(k, v) {
				if err := c.Delete(); err != nil {
					return false, err
				}
			}
			return true, nil
		})
	})
}

func boltSeek(c *bbolt.Cursor, prefix, start []byte, backwards bool, f func(k, v []byte) (bool, error)) error {
	if !backwards {
		rng := util.BytesPrefix(prefix)
		rng.Start = start
		for k, v := c.Seek(rng.Start); k != nil && (len(rng.Limit) == 0 || bytes.Compare(k, rng.Limit) < 0); k, v = c.Next() {
			cont, err := f(k, v)
			if err != nil {
				return err
			}
			if !cont {
				break
			}
		}
		return nil
	}
	rng := util.BytesPrefix(start)
	var k, v []byte
	if len(rng.Limit) == 0 {
		k, v = c.Last()
	} else {
		k, v = c.Seek(rng.Limit)
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
	}
	for ; k != nil && bytes.HasPrefix(k, prefix); k, v = c.Prev() {
		cont, err := f(k, v)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

// Close releases all db resources.
func (s *BoltDBStore) Close() error {
	return s.db.Close()
}
