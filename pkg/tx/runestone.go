package tx

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/btcsuite/btcd/txscript"
	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/types"
)

// Runestone framing.
//
// A runestone is OP_RETURN OP_13 followed by data pushes that together hold
// a LEB128 stream of (tag, value) pairs. Protostones ride in the Protocol
// tag: every protostone is flattened to [protocol, length, fields...], the
// whole list is LEB128 encoded, and the bytes are cut into 15-byte
// little-endian u128 values, one Protocol pair each.
//
// Inside a protostone, a Message field carries the cellpack bytes the same
// way, Pointer and Refund name outputs, and a Body tag starts the
// delta-encoded edict list.
const (
	tagBody     = 0
	tagMessage  = 81
	tagPointer  = 91
	tagRefund   = 93
	tagProtocol = 16383

	// ProtocolAlkanes is the protostone protocol id of the alkanes VM.
	ProtocolAlkanes = 1

	chunkSize = 15
)

// ErrMalformedRunestone is returned by DecodeRunestone.
var ErrMalformedRunestone = errors.New("malformed runestone")

// Target is where a protostone sends assets: a real output (vN) or another
// protostone in the same transaction (pN).
type Target struct {
	Protostone bool
	Index      uint32
}

// Vout targets real output i.
func Vout(i uint32) Target { return Target{Index: i} }

// Proto targets protostone i.
func Proto(i uint32) Target { return Target{Protostone: true, Index: i} }

// String renders "v0" or "p1".
func (t Target) String() string {
	if t.Protostone {
		return fmt.Sprintf("p%d", t.Index)
	}
	return fmt.Sprintf("v%d", t.Index)
}

// Resolve maps the target to an output index. Protostones occupy virtual
// outputs starting one past the last real output.
func (t Target) Resolve(numOutputs int) uint64 {
	if t.Protostone {
		return uint64(numOutputs) + 1 + uint64(t.Index)
	}
	return uint64(t.Index)
}

// ProtoEdict moves Amount of Asset to Target.
type ProtoEdict struct {
	Asset  types.AssetID
	Amount *uint256.Int
	Target Target
}

func (e ProtoEdict) String() string {
	return fmt.Sprintf("[%d:%d:%s:%s]", e.Asset.Block, e.Asset.Tx, e.Amount.Dec(), e.Target)
}

// Protostone is one protocol message. A protostone with no Call only
// moves assets.
type Protostone struct {
	Edicts  []ProtoEdict
	Call    *cellpack.Cellpack
	Pointer Target
	Refund  Target
}

// String renders the protostone in the "[...]:pointer:refund" notation
// used by alkanes tooling. Edicts follow the call as extra bracket groups.
func (p Protostone) String() string {
	var edicts strings.Builder
	for _, e := range p.Edicts {
		edicts.WriteString(e.String())
	}
	if p.Call == nil {
		return fmt.Sprintf("%s:%s:%s", edicts.String(), p.Pointer, p.Refund)
	}
	s := fmt.Sprintf("%s:%s:%s", p.Call, p.Pointer, p.Refund)
	if edicts.Len() > 0 {
		s += ":" + edicts.String()
	}
	return s
}

// FormatProtostones joins protostones with commas.
func FormatProtostones(ps []Protostone) string {
	s := make([]string, len(ps))
	for i, p := range ps {
		s[i] = p.String()
	}
	return strings.Join(s, ",")
}

func u128(v uint64) *uint256.Int { return uint256.NewInt(v) }

// chunk cuts b into 15-byte little-endian values.
func chunk(b []byte) []*uint256.Int {
	var out []*uint256.Int
	for len(b) > 0 {
		n := min(chunkSize, len(b))
		var be [16]byte
		for i := 0; i < n; i++ {
			be[15-i] = b[i]
		}
		out = append(out, new(uint256.Int).SetBytes(be[:]))
		b = b[n:]
	}
	return out
}

// unchunk is the inverse of chunk. The last chunk comes back with its zero
// padding unless trim is set. A LEB128 stream can end in a real zero byte
// (a trailing field of 0), so only message bytes, whose readers tolerate
// either form, are trimmed.
func unchunk(vs []*uint256.Int, trim bool) ([]byte, error) {
	out := make([]byte, 0, len(vs)*chunkSize)
	for _, v := range vs {
		if v.BitLen() > chunkSize*8 {
			return nil, fmt.Errorf("%w: chunk exceeds 120 bits", ErrMalformedRunestone)
		}
		be := v.Bytes32()
		for i := 0; i < chunkSize; i++ {
			out = append(out, be[31-i])
		}
	}
	for trim && len(out) > 0 && out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (p Protostone) fields(numOutputs int) ([]*uint256.Int, error) {
	var f []*uint256.Int
	if p.Call != nil {
		msg, err := p.Call.Encode()
		if err != nil {
			return nil, err
		}
		for _, c := range chunk(msg) {
			f = append(f, u128(tagMessage), c)
		}
	}
	f = append(f, u128(tagPointer), u128(p.Pointer.Resolve(numOutputs)))
	f = append(f, u128(tagRefund), u128(p.Refund.Resolve(numOutputs)))

	if len(p.Edicts) > 0 {
		edicts := make([]ProtoEdict, len(p.Edicts))
		copy(edicts, p.Edicts)
		sort.SliceStable(edicts, func(i, j int) bool { return edicts[i].Asset.Less(edicts[j].Asset) })

		f = append(f, u128(tagBody))
		var prev types.AssetID
		for _, e := range edicts {
			if e.Amount == nil || e.Amount.BitLen() > 128 {
				return nil, fmt.Errorf("%w: edict amount for %s", cellpack.ErrInvalidCalldataArgument, e.Asset)
			}
			dBlock := e.Asset.Block - prev.Block
			dTx := e.Asset.Tx
			if dBlock == 0 {
				dTx = e.Asset.Tx - prev.Tx
			}
			f = append(f, u128(dBlock), u128(dTx), new(uint256.Int).Set(e.Amount), u128(e.Target.Resolve(numOutputs)))
			prev = e.Asset
		}
	}
	return f, nil
}

// EncodeRunestone builds the OP_RETURN script carrying protostones for a
// transaction with numOutputs real outputs, the OP_RETURN included.
func EncodeRunestone(stones []Protostone, numOutputs int) ([]byte, error) {
	var ints []*uint256.Int
	for i, p := range stones {
		f, err := p.fields(numOutputs)
		if err != nil {
			return nil, fmt.Errorf("protostone %d: %w", i, err)
		}
		ints = append(ints, u128(ProtocolAlkanes), u128(uint64(len(f))))
		ints = append(ints, f...)
	}
	stream, err := cellpack.EncodeValues(ints)
	if err != nil {
		return nil, err
	}

	var payload []byte
	for _, c := range chunk(stream) {
		payload = cellpack.AppendUvarint(payload, u128(tagProtocol))
		payload = cellpack.AppendUvarint(payload, c)
	}

	b := txscript.NewScriptBuilder().AddOp(txscript.OP_RETURN).AddOp(txscript.OP_13)
	for len(payload) > 0 {
		n := min(txscript.MaxScriptElementSize, len(payload))
		if len(payload)-n == 1 {
			// a one-byte push would be rewritten as a small-int opcode
			n--
		}
		b.AddData(payload[:n])
		payload = payload[n:]
	}
	return b.Script()
}

// RawProtostone is a decoded protostone before field interpretation.
type RawProtostone struct {
	Protocol uint64
	Fields   []*uint256.Int
}

// Message reassembles the cellpack bytes from the Message fields. Chunk
// padding is trimmed, so a cellpack ending in a zero argument comes back
// without it; the alkanes VM reads padding as zero arguments either way.
func (r RawProtostone) Message() ([]byte, error) {
	var chunks []*uint256.Int
	for i := 0; i+1 < len(r.Fields); i += 2 {
		tag := r.Fields[i]
		if tag.IsZero() {
			break
		}
		if tag.IsUint64() && tag.Uint64() == tagMessage {
			chunks = append(chunks, r.Fields[i+1])
		}
	}
	return unchunk(chunks, true)
}

// Field returns the first value of tag, if present.
func (r RawProtostone) Field(tag uint64) (*uint256.Int, bool) {
	for i := 0; i+1 < len(r.Fields); i += 2 {
		t := r.Fields[i]
		if t.IsZero() {
			break
		}
		if t.IsUint64() && t.Uint64() == tag {
			return r.Fields[i+1], true
		}
	}
	return nil, false
}

// Pointer returns the resolved pointer output.
func (r RawProtostone) Pointer() (uint64, bool) {
	v, ok := r.Field(tagPointer)
	if !ok {
		return 0, false
	}
	return v.Uint64(), true
}

// DecodeRunestone parses a script produced by EncodeRunestone.
func DecodeRunestone(script []byte) ([]RawProtostone, error) {
	tok := txscript.MakeScriptTokenizer(0, script)
	if !tok.Next() || tok.Opcode() != txscript.OP_RETURN {
		return nil, fmt.Errorf("%w: missing OP_RETURN", ErrMalformedRunestone)
	}
	if !tok.Next() || tok.Opcode() != txscript.OP_13 {
		return nil, fmt.Errorf("%w: missing runestone marker", ErrMalformedRunestone)
	}
	var payload []byte
	for tok.Next() {
		if tok.Opcode() > txscript.OP_PUSHDATA4 {
			return nil, fmt.Errorf("%w: non-push opcode", ErrMalformedRunestone)
		}
		payload = append(payload, tok.Data()...)
	}
	if err := tok.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRunestone, err)
	}

	pairs, err := cellpack.DecodeValues(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRunestone, err)
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("%w: dangling tag", ErrMalformedRunestone)
	}
	var chunks []*uint256.Int
	for i := 0; i < len(pairs); i += 2 {
		if pairs[i].IsUint64() && pairs[i].Uint64() == tagProtocol {
			chunks = append(chunks, pairs[i+1])
		}
	}
	stream, err := unchunk(chunks, false)
	if err != nil {
		return nil, err
	}
	ints, err := cellpack.DecodeValues(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRunestone, err)
	}

	// Chunk padding decodes as zero integers; protocol 0 ends the list.
	var out []RawProtostone
	for len(ints) > 0 && !ints[0].IsZero() {
		if len(ints) < 2 {
			return nil, fmt.Errorf("%w: truncated protostone header", ErrMalformedRunestone)
		}
		proto, length := ints[0], ints[1]
		if !length.IsUint64() || length.Uint64() > uint64(len(ints)-2) {
			return nil, fmt.Errorf("%w: protostone length %s", ErrMalformedRunestone, length.Dec())
		}
		n := int(length.Uint64())
		out = append(out, RawProtostone{Protocol: proto.Uint64(), Fields: ints[2 : 2+n]})
		ints = ints[2+n:]
	}
	return out, nil
}
