package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/r3e-network/neo-core/pkg/core/interop/interopnames"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
	"github.com/r3e-network/neo-core/pkg/encoding/address"
	"github.com/r3e-network/neo-core/pkg/io"
	"github.com/r3e-network/neo-core/pkg/util"
	"github.com/r3e-network/neo-core/pkg/vm/emit"
)

// coordLen is the number of bytes in a serialized key coordinate.
const coordLen = 32

// SignatureLen is the length of a standard signature for 256-bit EC key.
const SignatureLen = 64

// PublicKeys is a list of public keys.
type PublicKeys []*PublicKey

// Len implements sort.Interface.
func (keys PublicKeys) Len() int { return len(keys) }

// Swap implements sort.Interface.
func (keys PublicKeys) Swap(i, j int) { keys[i], keys[j] = keys[j], keys[i] }

// Less implements sort.Interface.
func (keys PublicKeys) Less(i, j int) bool {
	return keys[i].Cmp(keys[j]) == -1
}

// DecodeBytes decodes a PublicKeys from the given slice of bytes.
func (keys *PublicKeys) DecodeBytes(data []byte) error {
	b := io.NewBinReaderFromBuf(data)
	b.ReadArray(keys)
	return b.Err
}

// Bytes encodes PublicKeys to the new slice of bytes.
func (keys PublicKeys) Bytes() []byte {
	buf := io.NewBufBinWriter()
	buf.WriteArray(keys)
	if buf.Err != nil {
		panic(buf.Err)
	}
	return buf.Bytes()
}

// Contains checks whether the passed param is contained in PublicKeys.
func (keys PublicKeys) Contains(pKey *PublicKey) bool {
	for _, key := range keys {
		if key.Equal(pKey) {
			return true
		}
	}
	return false
}

// Copy returns a copy of keys.
func (keys PublicKeys) Copy() PublicKeys {
	if keys == nil {
		return nil
	}
	res := make(PublicKeys, len(keys))
	copy(res, keys)
	return res
}

// Unique returns a set of keys.
func (keys PublicKeys) Unique() PublicKeys {
	unique := PublicKeys{}
	for _, publicKey := range keys {
		if !unique.Contains(publicKey) {
			unique = append(unique, publicKey)
		}
	}
	return unique
}

// PublicKey represents a public key and provides a high level API around
// ecdsa.PublicKey.
type PublicKey struct {
	X *big.Int
	Y *big.Int

	// curve is nil for the default Secp256r1 case.
	curve elliptic.Curve
}

// Equal returns true in case public keys are equal.
func (p *PublicKey) Equal(key *PublicKey) bool {
	return p.Cmp(key) == 0
}

// Cmp compares two keys.
func (p *PublicKey) Cmp(key *PublicKey) int {
	if p.IsInfinity() {
		if key.IsInfinity() {
			return 0
		}
		return -1
	}
	if key.IsInfinity() {
		return 1
	}
	xCmp := p.X.Cmp(key.X)
	if xCmp != 0 {
		return xCmp
	}
	return p.Y.Cmp(key.Y)
}

// NewPublicKeyFromString returns a public key created from the
// given hex string public key representation in compressed form.
func NewPublicKeyFromString(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return NewPublicKeyFromBytes(b, elliptic.P256())
}

// NewPublicKeyFromBytes returns a public key created from b using the given
// EC curve.
func NewPublicKeyFromBytes(b []byte, curve elliptic.Curve) (*PublicKey, error) {
	pubKey := new(PublicKey)
	if err := pubKey.DecodeBytes(b, curve); err != nil {
		return nil, err
	}
	return pubKey, nil
}

func (p *PublicKey) getCurve() elliptic.Curve {
	if p.curve != nil {
		return p.curve
	}
	return elliptic.P256()
}

// Bytes returns byte array representation of the public key in compressed
// form (33 bytes with 0x02 or 0x03 prefix, except infinity which is a single
// zero byte).
func (p *PublicKey) Bytes() []byte {
	if p.IsInfinity() {
		return []byte{0x00}
	}

	var (
		x       = p.X.Bytes()
		paddedX = append(bytes.Repeat([]byte{0x00}, coordLen-len(x)), x...)
		prefix  = byte(0x03)
	)

	if p.Y.Bit(0) == 0 {
		prefix = byte(0x02)
	}

	return append([]byte{prefix}, paddedX...)
}

// UncompressedBytes returns byte array representation of the public key in
// uncompressed form (66 bytes with 0x04 prefix, except infinity which is a
// single zero byte).
func (p *PublicKey) UncompressedBytes() []byte {
	if p.IsInfinity() {
		return []byte{0x00}
	}
	b := make([]byte, 1, 2*coordLen+1)
	b[0] = 0x04
	xb := make([]byte, coordLen)
	_ = p.X.FillBytes(xb)
	yb := make([]byte, coordLen)
	_ = p.Y.FillBytes(yb)
	b = append(b, xb...)
	b = append(b, yb...)
	return b
}

// decodeCompressedY performs decompression of Y coordinate for the given X and
// Y's least significant bit.
func decodeCompressedY(x *big.Int, ylsb uint, curve elliptic.Curve) (*big.Int, error) {
	var a *big.Int
	switch curve.(type) {
	case *secp256k1.KoblitzCurve:
		a = big.NewInt(0)
	default:
		a = big.NewInt(3)
	}
	cp := curve.Params()
	xCubed := new(big.Int).Exp(x, big.NewInt(3), cp.P)
	aX := new(big.Int).Mul(x, a)
	aX.Mod(aX, cp.P)
	ySquared := new(big.Int).Sub(xCubed, aX)
	ySquared.Add(ySquared, cp.B)
	ySquared.Mod(ySquared, cp.P)
	y := new(big.Int).ModSqrt(ySquared, cp.P)
	if y == nil {
		return nil, errors.New("error computing Y for compressed point")
	}
	if y.Bit(0) != ylsb {
		y.Neg(y)
		y.Mod(y, cp.P)
	}
	return y, nil
}

// DecodeBytes decodes a PublicKey from the given slice of bytes using the
// given curve.
func (p *PublicKey) DecodeBytes(data []byte, curve elliptic.Curve) error {
	switch len(data) {
	case 1:
		if data[0] != 0x00 {
			return errors.New("invalid infinity point encoding")
		}
		p.X = nil
		p.Y = nil
	case 33:
		if data[0] != 0x02 && data[0] != 0x03 {
			return errors.New("invalid prefix for compressed encoding")
		}
		x := new(big.Int).SetBytes(data[1:])
		y, err := decodeCompressedY(x, uint(data[0]&0x1), curve)
		if err != nil {
			return err
		}
		if !curve.IsOnCurve(x, y) {
			return errors.New("encoded point is not on the curve")
		}
		p.X = x
		p.Y = y
	case 65:
		if data[0] != 0x04 {
			return errors.New("invalid prefix for uncompressed encoding")
		}
		x := new(big.Int).SetBytes(data[1:33])
		y := new(big.Int).SetBytes(data[33:65])
		if !curve.IsOnCurve(x, y) {
			return errors.New("encoded point is not on the curve")
		}
		p.X = x
		p.Y = y
	default:
		return fmt.Errorf("invalid key size (expected 1, 33 or 65 bytes, got %d)", len(data))
	}
	p.curve = curve
	return nil
}

// DecodeBinary decodes a Secp256r1 PublicKey from the given BinReader.
func (p *PublicKey) DecodeBinary(r *io.BinReader) {
	var prefix = r.ReadB()
	if r.Err != nil {
		return
	}

	var b []byte
	switch prefix {
	case 0x00:
		b = []byte{0x00}
	case 0x02, 0x03:
		b = make([]byte, 33)
		b[0] = prefix
		r.ReadBytes(b[1:])
	case 0x04:
		b = make([]byte, 65)
		b[0] = prefix
		r.ReadBytes(b[1:])
	default:
		r.Err = fmt.Errorf("invalid prefix %d", prefix)
	}
	if r.Err != nil {
		return
	}
	r.Err = p.DecodeBytes(b, elliptic.P256())
}

// EncodeBinary encodes a PublicKey to the given BinWriter.
func (p *PublicKey) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.Bytes())
}

// GetVerificationScript returns NEO VM bytecode with CHECKSIG command for the
// public key.
func (p *PublicKey) GetVerificationScript() []byte {
	buf := io.NewBufBinWriter()
	emit.Bytes(buf.BinWriter, p.Bytes())
	emit.Syscall(buf.BinWriter, interopnames.SystemCryptoCheckSig)

	return buf.Bytes()
}

// GetScriptHash returns a Hash160 of verification script for the key.
func (p *PublicKey) GetScriptHash() util.Uint160 {
	return hash.Hash160(p.GetVerificationScript())
}

// Address returns a base58-encoded NEO-specific address based on the key hash.
func (p *PublicKey) Address() string {
	return address.Uint160ToString(p.GetScriptHash())
}

// Verify returns true if the signature is valid and corresponds
// to the hash and public key.
func (p *PublicKey) Verify(signature []byte, hashToCheck []byte) bool {
	if p.X == nil || p.Y == nil || len(signature) != SignatureLen {
		return false
	}
	rBytes := new(big.Int).SetBytes(signature[0:32])
	sBytes := new(big.Int).SetBytes(signature[32:64])
	pk := ecdsa.PublicKey{
		Curve: p.getCurve(),
		X:     p.X,
		Y:     p.Y,
	}
	return ecdsa.Verify(&pk, hashToCheck, rBytes, sBytes)
}

// VerifyHashable returns true if the signature is valid and corresponds
// to the hash and public key.
func (p *PublicKey) VerifyHashable(signature []byte, net uint32, hh hash.Hashable) bool {
	var digest = hash.NetSha256(net, hh)
	return p.Verify(signature, digest.BytesBE())
}

// IsInfinity checks if the key is infinite (null, basically).
func (p *PublicKey) IsInfinity() bool {
	return p.X == nil && p.Y == nil
}

// String implements the Stringer interface.
func (p *PublicKey) String() string {
	if p.IsInfinity() {
		return "00"
	}
	bx := hex.EncodeToString(p.X.Bytes())
	by := hex.EncodeToString(p.Y.Bytes())
	return fmt.Sprintf("%s%s", bx, by)
}

// MarshalJSON implements the json.Marshaler interface.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + hex.EncodeToString(p.Bytes()) + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	return p.DecodeBytes(b, elliptic.P256())
}

// MarshalYAML implements the YAML marshaler interface.
func (p *PublicKey) MarshalYAML() (any, error) {
	return hex.EncodeToString(p.Bytes()), nil
}

// UnmarshalYAML implements the YAML unmarshaler interface.
func (p *PublicKey) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	err := unmarshal(&s)
	if err != nil {
		return err
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	return p.DecodeBytes(b, elliptic.P256())
}
