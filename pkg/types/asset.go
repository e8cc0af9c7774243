package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAssetID is returned when an asset identifier cannot be parsed.
var ErrInvalidAssetID = errors.New("invalid asset id")

// AssetID identifies an alkane by the (block, tx) pair of its creating
// transaction. It is written "block:tx", e.g. "32:0" for frBTC.
type AssetID struct {
	Block uint64
	Tx    uint64
}

// String returns "block:tx".
func (a AssetID) String() string {
	return fmt.Sprintf("%d:%d", a.Block, a.Tx)
}

// IsZero reports whether both components are zero.
func (a AssetID) IsZero() bool {
	return a.Block == 0 && a.Tx == 0
}

// Less orders assets by block, then tx.
func (a AssetID) Less(b AssetID) bool {
	if a.Block != b.Block {
		return a.Block < b.Block
	}
	return a.Tx < b.Tx
}

// ParseAssetID parses "block:tx".
func ParseAssetID(s string) (AssetID, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return AssetID{}, fmt.Errorf("%w: %q", ErrInvalidAssetID, s)
	}
	block, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return AssetID{}, fmt.Errorf("%w: %q: block: %v", ErrInvalidAssetID, s, err)
	}
	tx, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return AssetID{}, fmt.Errorf("%w: %q: tx: %v", ErrInvalidAssetID, s, err)
	}
	return AssetID{Block: block, Tx: tx}, nil
}

// MustAssetID parses s and panics on error. For constants only.
func MustAssetID(s string) AssetID {
	id, err := ParseAssetID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// MarshalText encodes the asset as "block:tx".
func (a AssetID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes "block:tx".
func (a *AssetID) UnmarshalText(data []byte) error {
	id, err := ParseAssetID(string(data))
	if err != nil {
		return err
	}
	*a = id
	return nil
}
