package state

import (
	"math/big"

	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
)

// TokenTransferBatchSize is the maximum number of entries for TokenTransferLog.
const TokenTransferBatchSize = 128

// TokenTransferLog is a serialized log of token transfers.
type TokenTransferLog struct {
	Raw []byte
}

// NEP17Transfer represents a single NEP-17 Transfer event.
type NEP17Transfer struct {
	// Asset is a NEP-17 contract ID.
	Asset int32
	// Counterparty is the address of the sender/receiver (the other side of the transfer).
	Counterparty util.Uint160
	// Amount is the amount of tokens transferred.
	// It is negative when tokens are sent and positive if they are received.
	Amount big.Int
	// Block is a number of block when the event occurred.
	Block uint32
	// Timestamp is the timestamp of the block where transfer occurred.
	Timestamp uint64
	// Tx is a hash of the transaction.
	Tx util.Uint256
}

// EncodeBinary implements the Serializable interface.
func (t *NEP17Transfer) EncodeBinary(w *io.BinWriter) {
	w.WriteU32LE(uint32(t.Asset))
	w.WriteBytes(t.Tx[:])
	w.WriteBytes(t.Counterparty[:])
	w.WriteU32LE(t.Block)
	w.WriteU64LE(t.Timestamp)
	amount := t.Amount.Bytes()
	w.WriteVarBytes(amount)
	w.WriteBool(t.Amount.Sign() >= 0)
}

// DecodeBinary implements the Serializable interface.
func (t *NEP17Transfer) DecodeBinary(r *io.BinReader) {
	t.Asset = int32(r.ReadU32LE())
	r.ReadBytes(t.Tx[:])
	r.ReadBytes(t.Counterparty[:])
	t.Block = r.ReadU32LE()
	t.Timestamp = r.ReadU64LE()
	amount := r.ReadVarBytes(util.Uint256Size)
	t.Amount.SetBytes(amount)
	if !r.ReadBool() {
		t.Amount.Neg(&t.Amount)
	}
}

// Append appends a single transfer to a log.
func (lg *TokenTransferLog) Append(tr *NEP17Transfer) error {
	// The first entry, set up counter.
	if len(lg.Raw) == 0 {
		lg.Raw = append(lg.Raw, 0)
	}

	b := io.NewBufBinWriter()
	tr.EncodeBinary(b.BinWriter)
	if b.Err != nil {
		return b.Err
	}
	if lg.Raw[0] == 255 {
		panic("transfer log overflow")
	}
	lg.Raw = append(lg.Raw, b.Bytes()...)
	lg.Raw[0]++
	return nil
}

// ForEachNEP17 iterates over a transfer log and calls the function for each transfer.
// The iteration is done in the reverse order, from the latest transfer to
// the oldest one. It continues until false is returned from f. The last
// non-nil error is returned.
func (lg *TokenTransferLog) ForEachNEP17(f func(*NEP17Transfer) (bool, error)) (bool, error) {
	if lg == nil || len(lg.Raw) == 0 {
		return true, nil
	}
	transfers := make([]NEP17Transfer, lg.Size())
	r := io.NewBinReaderFromBuf(lg.Raw[1:])
	for i := range transfers {
		transfers[i].DecodeBinary(r)
	}
	if r.Err != nil {
		return false, r.Err
	}
	for i := len(transfers) - 1; i >= 0; i-- {
		cont, err := f(&transfers[i])
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
	}
	return true, nil
}

// Size returns the amount of the transfers written in the log.
func (lg *TokenTransferLog) Size() int {
	if len(lg.Raw) == 0 {
		return 0
	}
	return int(lg.Raw[0])
}
