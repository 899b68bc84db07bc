package transaction

import (
	"errors"
	"fmt"
	"math"

	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
)

const (
	// MaxScriptLength is the limit for transaction's script length.
	MaxScriptLength = math.MaxUint16
	// MaxTransactionSize is the upper limit size in bytes that a transaction can reach. It is
	// set to be 102400.
	MaxTransactionSize = 102400
	// MaxAttributes is maximum number of attributes including signers that can be contained
	// within a transaction.
	MaxAttributes = 16
)

// Transaction is a process recorded in the Neo blockchain.
type Transaction struct {
	// The trading version which is currently 0.
	Version uint8

	// Random number to avoid hash collision.
	Nonce uint32

	// Fee to be burned.
	SystemFee int64

	// Fee to be distributed to consensus nodes.
	NetworkFee int64

	// Maximum blockchain height exceeding which
	// transaction should fail verification.
	ValidUntilBlock uint32

	// Code to run in NeoVM for this transaction.
	Script []byte

	// Transaction attributes.
	Attributes []Attribute

	// Transaction signers list (starts with Sender).
	Signers []Signer

	// The scripts that come with this transaction.
	// Scripts exist out of the verification script
	// and invocation script.
	Scripts []Witness

	// size is transaction's serialized size.
	size int

	// Hash of the transaction (double SHA256 of the hashable fields).
	hash util.Uint256

	// Whether hash was calculated.
	hashed bool

	// Trimmed indicates this is a transaction from trimmed
	// data.
	Trimmed bool
}

// ErrInvalidWitnessNum returns when the number of witnesses does not match signers.
var ErrInvalidWitnessNum = errors.New("number of signers doesn't match witnesses")

// New returns a new transaction to execute given script and pay given system
// fee.
func New(script []byte, gas int64) *Transaction {
	return &Transaction{
		Version:    0,
		Script:     script,
		SystemFee:  gas,
		Attributes: []Attribute{},
		Signers:    []Signer{},
		Scripts:    []Witness{},
	}
}

// NewTrimmedTX returns a trimmed transaction with only its hash
// and Trimmed to true.
func NewTrimmedTX(hash util.Uint256) *Transaction {
	return &Transaction{
		hash:    hash,
		hashed:  true,
		Trimmed: true,
	}
}

// Hash returns the hash of the transaction which is based on serialized
// representation of its fields.
func (t *Transaction) Hash() util.Uint256 {
	if !t.hashed {
		if t.createHash() != nil {
			panic("failed to compute hash!")
		}
	}
	return t.hash
}

// HasAttribute returns true iff t has an attribute of type typ.
func (t *Transaction) HasAttribute(typ AttrType) bool {
	for i := range t.Attributes {
		if t.Attributes[i].Type == typ {
			return true
		}
	}
	return false
}

// GetAttributes returns the list of transaction's attributes of the given type.
// Returns nil in case if attributes not found.
func (t *Transaction) GetAttributes(typ AttrType) []Attribute {
	var result []Attribute
	for _, attr := range t.Attributes {
		if attr.Type == typ {
			result = append(result, attr)
		}
	}
	return result
}

// decodeHashableFields decodes the fields that are used for signing the
// transaction, which are all fields except the scripts.
func (t *Transaction) decodeHashableFields(br *io.BinReader) {
	t.Version = br.ReadB()
	if br.Err == nil && t.Version > 0 {
		br.Err = errors.New("only version 0 is supported")
		return
	}
	t.Nonce = br.ReadU32LE()
	t.SystemFee = int64(br.ReadU64LE())
	if br.Err == nil && t.SystemFee < 0 {
		br.Err = errors.New("negative system fee")
		return
	}
	t.NetworkFee = int64(br.ReadU64LE())
	if br.Err == nil && t.NetworkFee < 0 {
		br.Err = errors.New("negative network fee")
		return
	}
	if br.Err == nil && t.NetworkFee+t.SystemFee < t.SystemFee {
		br.Err = errors.New("too big fees: int64 overflow")
		return
	}
	t.ValidUntilBlock = br.ReadU32LE()
	br.ReadArray(&t.Signers, MaxAttributes)
	if br.Err == nil && len(t.Signers) == 0 {
		br.Err = errors.New("missing signers")
		return
	}
	for i := range t.Signers {
		for j := range t.Signers[i:] {
			if j != 0 && t.Signers[j+i].Account.Equals(t.Signers[i].Account) {
				br.Err = errors.New("transaction signers should be unique")
				return
			}
		}
	}
	br.ReadArray(&t.Attributes, MaxAttributes-len(t.Signers))
	attrbits := map[AttrType]bool{}
	for i := range t.Attributes {
		typ := t.Attributes[i].Type
		if !typ.allowMultiple() {
			if attrbits[typ] {
				br.Err = fmt.Errorf("multiple attributes of type %s", typ.String())
				return
			}
			attrbits[typ] = true
		}
	}
	t.Script = br.ReadVarBytes(MaxScriptLength)
	if br.Err == nil && len(t.Script) == 0 {
		br.Err = errors.New("no script")
		return
	}
}

// DecodeBinary implements the Serializable interface.
func (t *Transaction) DecodeBinary(br *io.BinReader) {
	t.decodeHashableFields(br)
	if br.Err != nil {
		return
	}
	br.ReadArray(&t.Scripts, len(t.Signers))
	if br.Err == nil && len(t.Signers) != len(t.Scripts) {
		br.Err = ErrInvalidWitnessNum
		return
	}

	// Create the hash of the transaction at decode, so we don't need
	// to do it anymore.
	if br.Err == nil {
		br.Err = t.createHash()
	}
}

// EncodeBinary implements the Serializable interface.
func (t *Transaction) EncodeBinary(bw *io.BinWriter) {
	t.encodeHashableFields(bw)
	bw.WriteArray(t.Scripts)
}

// encodeHashableFields encodes the fields that are not used for
// signing the transaction, which are all fields except the scripts.
func (t *Transaction) encodeHashableFields(bw *io.BinWriter) {
	bw.WriteB(t.Version)
	bw.WriteU32LE(t.Nonce)
	bw.WriteU64LE(uint64(t.SystemFee))
	bw.WriteU64LE(uint64(t.NetworkFee))
	bw.WriteU32LE(t.ValidUntilBlock)
	bw.WriteArray(t.Signers)
	bw.WriteArray(t.Attributes)
	bw.WriteVarBytes(t.Script)
}

// EncodeHashableFields returns serialized transaction's fields which are
// used for hashing.
func (t *Transaction) EncodeHashableFields() ([]byte, error) {
	bw := io.NewBufBinWriter()
	t.encodeHashableFields(bw.BinWriter)
	if bw.Err != nil {
		return nil, bw.Err
	}
	return bw.Bytes(), nil
}

// DecodeHashableFields decodes a part of transaction which should be hashed.
func (t *Transaction) DecodeHashableFields(buf []byte) error {
	r := io.NewBinReaderFromBuf(buf)
	t.decodeHashableFields(r)
	if r.Err != nil {
		return r.Err
	}
	// Ensure all the data was read.
	if r.Len() != 0 {
		return errors.New("additional data after the signed part")
	}
	t.Scripts = make([]Witness, 0)
	return t.createHash()
}

// createHash creates the hash of the transaction.
func (t *Transaction) createHash() error {
	buf, err := t.EncodeHashableFields()
	if err != nil {
		return err
	}
	t.hash = hash.DoubleSha256(buf)
	t.hashed = true
	return nil
}

// Copy returns a deep copy of the transaction, including all its fields.
func (t *Transaction) Copy() *Transaction {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Attributes != nil {
		cp.Attributes = make([]Attribute, len(t.Attributes))
		for i, attr := range t.Attributes {
			cp.Attributes[i] = *attr.Copy()
		}
	}
	if t.Signers != nil {
		cp.Signers = make([]Signer, len(t.Signers))
		for i, signer := range t.Signers {
			cp.Signers[i] = *signer.Copy()
		}
	}
	if t.Scripts != nil {
		cp.Scripts = make([]Witness, len(t.Scripts))
		for i, script := range t.Scripts {
			cp.Scripts[i] = script.Copy()
		}
	}
	cp.Script = make([]byte, len(t.Script))
	copy(cp.Script, t.Script)
	return &cp
}

// GetSignedPart returns a part of the transaction which must be signed.
func (t *Transaction) GetSignedPart(magic uint32) []byte {
	return hash.GetSignedData(magic, t)
}

// Bytes converts the transaction to []byte.
func (t *Transaction) Bytes() ([]byte, error) {
	buf := io.NewBufBinWriter()
	t.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return nil, buf.Err
	}
	return buf.Bytes(), nil
}

// NewTransactionFromBytes decodes byte array into *Transaction.
func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	tx := &Transaction{}
	r := io.NewBinReaderFromBuf(b)
	tx.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Len() != 0 {
		return nil, errors.New("additional data after the transaction")
	}
	tx.size = len(b)
	return tx, nil
}

// FeePerByte returns NetworkFee of the transaction divided by
// its size.
func (t *Transaction) FeePerByte() int64 {
	return t.NetworkFee / int64(t.Size())
}

// Size returns size of the serialized transaction.
func (t *Transaction) Size() int {
	if t.size == 0 {
		t.size = io.GetVarSize(t)
	}
	return t.size
}

// Sender returns the sender of the transaction which is always on the first place
// in the transaction's signers list.
func (t *Transaction) Sender() util.Uint160 {
	if len(t.Signers) == 0 {
		panic("transaction does not have signers")
	}
	return t.Signers[0].Account
}

// HasSigner returns true if the transaction is signed by the given account.
func (t *Transaction) HasSigner(hash util.Uint160) bool {
	for _, h := range t.Signers {
		if h.Account.Equals(hash) {
			return true
		}
	}
	return false
}

// IsValid checks whether decoded/unmarshalled transaction has all fields valid.
func (t *Transaction) IsValid() error {
	if t.Version > 0 {
		return errors.New("only version 0 is supported")
	}
	if t.SystemFee < 0 {
		return errors.New("negative system fee")
	}
	if t.NetworkFee < 0 {
		return errors.New("negative network fee")
	}
	if t.NetworkFee+t.SystemFee < t.SystemFee {
		return errors.New("too big fees: int64 overflow")
	}
	if len(t.Signers) == 0 {
		return errors.New("missing signers")
	}
	for i := range t.Signers {
		for j := i + 1; j < len(t.Signers); j++ {
			if t.Signers[i].Account.Equals(t.Signers[j].Account) {
				return errors.New("transaction signers should be unique")
			}
		}
	}
	attrs := map[AttrType]bool{}
	for i := range t.Attributes {
		typ := t.Attributes[i].Type
		if !typ.allowMultiple() {
			if attrs[typ] {
				return fmt.Errorf("multiple attributes of type %s", typ.String())
			}
			attrs[typ] = true
		}
	}
	if len(t.Script) == 0 {
		return errors.New("no script")
	}
	return nil
}
