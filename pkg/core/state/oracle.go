package state

import (
	"errors"
	"math"

	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/stackitem"
)

// OracleRequest represents an oracle request.
type OracleRequest struct {
	OriginalTxID     util.Uint256
	GasForResponse   uint64
	URL              string
	Filter           *string
	CallbackContract util.Uint160
	CallbackMethod   string
	UserData         []byte
}

// ToStackItem implements stackitem.Convertible. It never returns an error.
func (o *OracleRequest) ToStackItem() (stackitem.Item, error) {
	filter := stackitem.Item(stackitem.Null{})
	if o.Filter != nil {
		filter = stackitem.Make(*o.Filter)
	}
	return stackitem.NewArray([]stackitem.Item{
		stackitem.NewByteArray(o.OriginalTxID.BytesBE()),
		stackitem.Make(o.GasForResponse),
		stackitem.Make(o.URL),
		filter,
		stackitem.NewByteArray(o.CallbackContract.BytesBE()),
		stackitem.Make(o.CallbackMethod),
		stackitem.NewByteArray(o.UserData),
	}), nil
}

// FromStackItem implements stackitem.Convertible.
func (o *OracleRequest) FromStackItem(it stackitem.Item) error {
	arr, ok := it.Value().([]stackitem.Item)
	if !ok || len(arr) < 7 {
		return errors.New("not an array of needed length")
	}
	bs, err := arr[0].TryBytes()
	if err != nil {
		return err
	}
	o.OriginalTxID, err = util.Uint256DecodeBytesBE(bs)
	if err != nil {
		return err
	}

	gas, err := arr[1].TryInteger()
	if err != nil {
		return err
	}
	if !gas.IsUint64() {
		return errors.New("invalid gas")
	}
	o.GasForResponse = gas.Uint64()

	url, err := stackitem.ToString(arr[2])
	if err != nil {
		return err
	}
	o.URL = url

	if _, ok := arr[3].(stackitem.Null); !ok {
		filter, err := stackitem.ToString(arr[3])
		if err != nil {
			return err
		}
		o.Filter = &filter
	} else {
		o.Filter = nil
	}

	bs, err = arr[4].TryBytes()
	if err != nil {
		return err
	}
	o.CallbackContract, err = util.Uint160DecodeBytesBE(bs)
	if err != nil {
		return err
	}

	o.CallbackMethod, err = stackitem.ToString(arr[5])
	if err != nil {
		return err
	}

	o.UserData, err = arr[6].TryBytes()
	if err != nil {
		return err
	}
	if len(o.UserData) > math.MaxUint16 {
		return errors.New("too big user data")
	}
	return nil
}
