package native

import (
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/r3e-network/neo-core/pkg/core/dao"
	"github.com/r3e-network/neo-core/pkg/core/storage"
	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/encoding/bigint"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

var intOne = big.NewInt(1)

func setIntWithKey(id int32, dao *dao.Simple, key []byte, value int64) {
	dao.PutStorageItem(id, key, bigint.ToBytes(big.NewInt(value)))
}

func getIntWithKey(id int32, dao *dao.Simple, key []byte) int64 {
	si := dao.GetStorageItem(id, key)
	if si == nil {
		panic(fmt.Errorf("item with id = %d and key = %s is not initialized", id, key))
	}
	return bigint.FromBytes(si).Int64()
}

// makeUint160Key creates a key from the account script hash.
func makeUint160Key(prefix byte, h util.Uint160) []byte {
	k := make([]byte, util.Uint160Size+1)
	k[0] = prefix
	copy(k[1:], h.BytesBE())
	return k
}

func toString(item stackitem.Item) string {
	s, err := stackitem.ToString(item)
	if err != nil {
		panic(err)
	}
	return s
}

func toUint160(s stackitem.Item) util.Uint160 {
	buf, err := s.TryBytes()
	if err != nil {
		panic(err)
	}
	u, err := util.Uint160DecodeBytesBE(buf)
	if err != nil {
		panic(err)
	}
	return u
}

func toBigInt(s stackitem.Item) *big.Int {
	bi, err := s.TryInteger()
	if err != nil {
		panic(err)
	}
	return bi
}

func toUint32(s stackitem.Item) uint32 {
	bigInt := toBigInt(s)
	if !bigInt.IsInt64() {
		panic("bigint is not an int64")
	}
	int64Value := bigInt.Int64()
	if int64Value < 0 || int64Value > int64(^uint32(0)) {
		panic("bigint does not fit into uint32")
	}
	return uint32(int64Value)
}

func toInt64(s stackitem.Item) int64 {
	bigInt := toBigInt(s)
	if !bigInt.IsInt64() {
		panic("bigint is not an int64")
	}
	return bigInt.Int64()
}

func toBool(s stackitem.Item) bool {
	b, err := s.TryBool()
	if err != nil {
		panic(err)
	}
	return b
}

func toPublicKey(s stackitem.Item) *keys.PublicKey {
	buf, err := s.TryBytes()
	if err != nil {
		panic(err)
	}
	pub, err := keys.NewPublicKeyFromBytes(buf, elliptic.P256())
	if err != nil {
		panic(err)
	}
	return pub
}

// putConvertibleToDAO serializes the item and puts it into the DAO.
func putConvertibleToDAO(id int32, d *dao.Simple, key []byte, conv stackitem.Convertible) error {
	data, err := stackitem.SerializeConvertible(conv)
	if err != nil {
		return err
	}
	d.PutStorageItem(id, key, data)
	return nil
}

// getConvertibleFromDAO reads the item from the DAO, returns
// storage.ErrKeyNotFound if it's missing.
func getConvertibleFromDAO(id int32, d *dao.Simple, key []byte, conv stackitem.Convertible) error {
	si := d.GetStorageItem(id, key)
	if si == nil {
		return storage.ErrKeyNotFound
	}
	return stackitem.DeserializeConvertible(si, conv)
}
