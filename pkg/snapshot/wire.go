package snapshot

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Append helpers. Every field is written, including zero values, so a
// decoder never has to guess defaults.

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendPacked(b []byte, num protowire.Number, vs []uint32) []byte {
	var inner []byte
	for _, v := range vs {
		inner = protowire.AppendVarint(inner, uint64(v))
	}
	return appendBytes(b, num, inner)
}

// fieldFunc handles one field of a message and returns the number of bytes
// of value it consumed, or 0 to have the field skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk calls fn for every field of the message in b.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return fmt.Errorf("field %d: %w", num, err)
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return protowire.ParseError(m)
			}
		}
		b = b[m:]
	}
	return nil
}

func wantType(got, want protowire.Type) error {
	if got != want {
		return fmt.Errorf("wire type %d, want %d", got, want)
	}
	return nil
}

func consumeVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if err := wantType(typ, protowire.VarintType); err != nil {
		return 0, 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeUint32(typ protowire.Type, b []byte, dst *uint32) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("value %d overflows uint32", v)
	}
	*dst = uint32(v)
	return n, nil
}

func consumeSint(typ protowire.Type, b []byte, dst *int64) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = protowire.DecodeZigZag(v)
	return n, nil
}

func consumeBool(typ protowire.Type, b []byte, dst *bool) (int, error) {
	v, n, err := consumeVarint(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = protowire.DecodeBool(v)
	return n, nil
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) (int, error) {
	if err := wantType(typ, protowire.Fixed64Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = math.Float64frombits(v)
	return n, nil
}

func consumeBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if err := wantType(typ, protowire.BytesType); err != nil {
		return nil, 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func consumeString(typ protowire.Type, b []byte, dst *string) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	*dst = string(v)
	return n, nil
}

// consumeMessage decodes an embedded message with fn.
func consumeMessage(typ protowire.Type, b []byte, fn fieldFunc) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	if err := walk(v, fn); err != nil {
		return 0, err
	}
	return n, nil
}

func consumePacked(typ protowire.Type, b []byte, dst *[]uint32) (int, error) {
	v, n, err := consumeBytes(typ, b)
	if err != nil {
		return 0, err
	}
	for len(v) > 0 {
		x, m := protowire.ConsumeVarint(v)
		if m < 0 {
			return 0, protowire.ParseError(m)
		}
		if x > math.MaxUint32 {
			return 0, fmt.Errorf("value %d overflows uint32", x)
		}
		*dst = append(*dst, uint32(x))
		v = v[m:]
	}
	return n, nil
}
