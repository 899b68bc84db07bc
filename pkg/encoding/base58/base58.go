// Package base58 provides Base58 and Base58Check encodings on top of the
// mr-tron/base58 implementation.
package base58

import (
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/r3e-network/neo-core/pkg/crypto/hash"
)

// Encode encodes a byte slice to be a base58 encoded string.
func Encode(bytes []byte) string {
	return base58.Encode(bytes)
}

// Decode decodes a base58 encoded string to a byte slice.
func Decode(s string) ([]byte, error) {
	return base58.Decode(s)
}

// CheckEncode encodes a byte slice to be a base58 encoded string with a
// 4-byte double-SHA-256 checksum appended.
func CheckEncode(b []byte) string {
	b = append(b, hash.Checksum(b)...)
	return base58.Encode(b)
}

// CheckDecode decodes a base58Check encoded string, verifying and cutting off
// the checksum.
func CheckDecode(s string) (b []byte, err error) {
	b, err = base58.Decode(s)
	if err != nil {
		return nil, err
	}

	if len(b) < 5 {
		return nil, fmt.Errorf("invalid base-58 check string: missing checksum")
	}

	if string(hash.Checksum(b[:len(b)-4])) != string(b[len(b)-4:]) {
		return nil, fmt.Errorf("invalid base-58 check string: invalid checksum")
	}

	// Strip the 4 byte long hash.
	b = b[:len(b)-4]

	return b, nil
}
