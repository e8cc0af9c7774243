// Package cellpack encodes contract invocations as sequences of unsigned
// LEB128 integers: the target asset id followed by an opcode and its
// arguments.
package cellpack

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Codec errors.
var (
	ErrInvalidCalldataArgument = errors.New("invalid calldata argument")
	ErrMalformedCalldata       = errors.New("malformed calldata")
)

// maxEncodedLen is the LEB128 length of a 128-bit value.
const maxEncodedLen = 19

// AppendUvarint appends the LEB128 encoding of v to dst.
func AppendUvarint(dst []byte, v *uint256.Int) []byte {
	x := new(uint256.Int).Set(v)
	for {
		b := byte(x.Uint64() & 0x7f)
		x.Rsh(x, 7)
		if x.IsZero() {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// UvarintLen returns the number of bytes AppendUvarint writes for v.
func UvarintLen(v *uint256.Int) int {
	n := (v.BitLen() + 6) / 7
	if n == 0 {
		return 1
	}
	return n
}

// ReadUvarint decodes one LEB128 integer from b and returns it with the
// number of bytes consumed.
func ReadUvarint(b []byte) (*uint256.Int, int, error) {
	x := new(uint256.Int)
	var shift uint
	for i, c := range b {
		if i >= maxEncodedLen {
			return nil, 0, fmt.Errorf("%w: integer longer than %d bytes", ErrMalformedCalldata, maxEncodedLen)
		}
		chunk := uint256.NewInt(uint64(c & 0x7f))
		x.Or(x, chunk.Lsh(chunk, shift))
		if c&0x80 == 0 {
			if x.BitLen() > 128 {
				return nil, 0, fmt.Errorf("%w: integer exceeds 128 bits", ErrMalformedCalldata)
			}
			return x, i + 1, nil
		}
		shift += 7
	}
	return nil, 0, fmt.Errorf("%w: truncated continuation at byte %d", ErrMalformedCalldata, len(b))
}

// EncodeValues encodes each value in order.
func EncodeValues(values []*uint256.Int) ([]byte, error) {
	out := make([]byte, 0, EncodedLen(values))
	for i, v := range values {
		if v == nil || v.BitLen() > 128 {
			return nil, fmt.Errorf("%w: value %d out of range", ErrInvalidCalldataArgument, i)
		}
		out = AppendUvarint(out, v)
	}
	return out, nil
}

// DecodeValues is the inverse of EncodeValues. Empty input yields an empty
// sequence.
func DecodeValues(b []byte) ([]*uint256.Int, error) {
	values := make([]*uint256.Int, 0)
	for off := 0; off < len(b); {
		v, n, err := ReadUvarint(b[off:])
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", len(values), err)
		}
		values = append(values, v)
		off += n
	}
	return values, nil
}

// EncodedLen is the total LEB128 length of values.
func EncodedLen(values []*uint256.Int) int {
	n := 0
	for _, v := range values {
		if v != nil {
			n += UvarintLen(v)
		}
	}
	return n
}
