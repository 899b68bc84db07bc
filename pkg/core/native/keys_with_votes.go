package native

import (
	"crypto/elliptic"
	"errors"
	"math/big"

	"github.com/r3e-network/neo-core/pkg/crypto/keys"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// keyWithVotes is a serialized key with votes balance. It's not deserialized
// because some uses of it imply serialized-only usage and converting to
// PublicKey is quite expensive.
type keyWithVotes struct {
	Key   string
	Votes *big.Int
	// UnmarshaledKey contains the parsed key if it was needed at least once.
	UnmarshaledKey *keys.PublicKey
}

type keysWithVotes []keyWithVotes

// PublicKey unmarshals and returns the public key of k.
func (k *keyWithVotes) PublicKey() (*keys.PublicKey, error) {
	if k.UnmarshaledKey != nil {
		return k.UnmarshaledKey, nil
	}
	pub, err := keys.NewPublicKeyFromBytes([]byte(k.Key), elliptic.P256())
	if err != nil {
		return nil, err
	}
	k.UnmarshaledKey = pub
	return pub, nil
}

func (k keysWithVotes) toStackItem() stackitem.Item {
	arr := make([]stackitem.Item, len(k))
	for i := range k {
		arr[i] = stackitem.NewStruct([]stackitem.Item{
			stackitem.NewByteArray([]byte(k[i].Key)),
			stackitem.NewBigInteger(k[i].Votes),
		})
	}
	return stackitem.NewArray(arr)
}

// toNotificationItem returns the keys of k as an array of serialized public
// keys dropping the votes, to be used in notification events.
func (k keysWithVotes) toNotificationItem() stackitem.Item {
	arr := make([]stackitem.Item, len(k))
	for i := range k {
		arr[i] = stackitem.NewByteArray([]byte(k[i].Key))
	}
	return stackitem.NewArray(arr)
}

func (k *keysWithVotes) fromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	var kvs = make(keysWithVotes, len(arr))
	for i := range arr {
		s, ok := arr[i].Value().([]stackitem.Item)
		if !ok {
			return errors.New("element is not a struct")
		} else if len(s) < 2 {
			return errors.New("invalid length")
		}
		pub, err := s[0].TryBytes()
		if err != nil {
			return err
		}
		vs, err := s[1].TryInteger()
		if err != nil {
			return err
		}
		kvs[i].Key = string(pub)
		kvs[i].Votes = vs
	}
	*k = kvs
	return nil
}

// Bytes serializes keys with votes slice.
func (k keysWithVotes) Bytes() []byte {
	var it = k.toStackItem()
	var w = io.NewBufBinWriter()
	stackitem.EncodeBinary(it, w.BinWriter)
	if w.Err != nil {
		panic(w.Err)
	}
	return w.Bytes()
}

// DecodeBytes deserializes keys and votes slice.
func (k *keysWithVotes) DecodeBytes(data []byte) error {
	it, err := stackitem.Deserialize(data)
	if err != nil {
		return err
	}
	return k.fromStackItem(it)
}
