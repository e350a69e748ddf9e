package omronfins

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is one typed element to be written to the PLC.
type Value struct {
	Type ElementType
	bits uint64 // numeric types: the value's bits, right aligned
	data []byte // TypeString and TypeBytes
}

// Bit returns a bit element; true is sent as 0x01.
func Bit(v bool) Value {
	if v {
		return Value{Type: TypeBit, bits: 1}
	}
	return Value{Type: TypeBit}
}

// Typed constructors for numeric elements.
func Char(v byte) Value     { return Value{Type: TypeChar, bits: uint64(v)} }
func Int8(v int8) Value     { return Value{Type: TypeSChar, bits: uint64(uint8(v))} }
func Uint8(v uint8) Value   { return Value{Type: TypeUChar, bits: uint64(v)} }
func Int16(v int16) Value   { return Value{Type: TypeShort, bits: uint64(uint16(v))} }
func Uint16(v uint16) Value { return Value{Type: TypeUShort, bits: uint64(v)} }
func Int32(v int32) Value   { return Value{Type: TypeInt, bits: uint64(uint32(v))} }
func Uint32(v uint32) Value { return Value{Type: TypeUInt, bits: uint64(v)} }
func Int64(v int64) Value   { return Value{Type: TypeLongLong, bits: uint64(v)} }
func Uint64(v uint64) Value { return Value{Type: TypeULongLong, bits: v} }

func Float32(v float32) Value { return Value{Type: TypeFloat, bits: uint64(math.Float32bits(v))} }
func Float64(v float64) Value { return Value{Type: TypeDouble, bits: math.Float64bits(v)} }

// Text returns a text value. The string's bytes are written without any
// encoding check or terminator. Like other multi-word values the words are
// sent in reverse order with the characters inside each word kept as is, so
// "testtest" goes on the wire as "sttestte". Characters are never reversed;
// libraries that reverse them ("ettsetts") cannot read text written here.
func Text(s string) Value { return Value{Type: TypeString, data: []byte(s)} }

// Raw returns a byte blob that is copied into the frame verbatim, without word swapping.
func Raw(b []byte) Value {
	return Value{Type: TypeBytes, data: append([]byte(nil), b...)}
}

// Bytes returns the big-endian encoding of the value before any word swap.
func (v Value) Bytes() []byte {
	switch v.Type {
	case TypeString, TypeBytes:
		return append([]byte(nil), v.data...)
	}
	size := v.Type.Size()
	if size == 0 {
		return nil
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v.bits)
	return append([]byte(nil), buf[8-size:]...)
}

// Interface returns the value as the Go type the decoder produces for its element type.
func (v Value) Interface() interface{} {
	switch v.Type {
	case TypeString:
		return string(v.data)
	case TypeBytes:
		return append([]byte(nil), v.data...)
	}
	return decodeElement(v.Type, v.Bytes())
}

func (v Value) String() string {
	return fmt.Sprintf("%s(%v)", v.Type, v.Interface())
}

// NewValue converts a dynamically typed Go value (as found in decoded YAML,
// JSON or CLI input) into a Value of type t. Integers are range checked
// against the element width.
func NewValue(t ElementType, v interface{}) (Value, error) {
	switch t {
	case TypeString:
		switch s := v.(type) {
		case string:
			return Text(s), nil
		case []byte:
			return Text(string(s)), nil
		}
		return Value{}, fmt.Errorf("%s value must be a string, got %T", t, v)
	case TypeBytes:
		switch b := v.(type) {
		case []byte:
			return Raw(b), nil
		case string:
			return Raw([]byte(b)), nil
		}
		return Value{}, fmt.Errorf("%s value must be a byte slice, got %T", t, v)
	case TypeFloat, TypeDouble:
		f, ok := floatOf(v)
		if !ok {
			return Value{}, fmt.Errorf("%s value must be a number, got %T", t, v)
		}
		if t == TypeFloat {
			return Float32(float32(f)), nil
		}
		return Float64(f), nil
	case TypeBit:
		if b, ok := v.(bool); ok {
			return Bit(b), nil
		}
	case TypeChar:
		if s, ok := v.(string); ok {
			if len(s) != 1 {
				return Value{}, fmt.Errorf("%s value must be a single byte, got %q", t, s)
			}
			return Char(s[0]), nil
		}
	}
	if !t.Valid() {
		return Value{}, fmt.Errorf("unknown element type %d", uint8(t))
	}

	bits, err := integerBits(t, v)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: t, bits: bits}, nil
}

// ParseValue parses the textual form of a value of type t.
// Integers accept any base prefix understood by strconv ("0x1F", "0b101").
func ParseValue(t ElementType, s string) (Value, error) {
	switch t {
	case TypeString:
		return Text(s), nil
	case TypeBytes:
		return Raw([]byte(s)), nil
	case TypeFloat, TypeDouble:
		f, err := strconv.ParseFloat(s, t.Size()*8)
		if err != nil {
			return Value{}, fmt.Errorf("invalid %s %q: %w", t, s, err)
		}
		return NewValue(t, f)
	case TypeChar:
		if len(s) == 1 && (s[0] < '0' || s[0] > '9') {
			return Char(s[0]), nil
		}
	case TypeBit:
		switch strings.ToLower(s) {
		case "1", "true", "t", "on":
			return Bit(true), nil
		case "0", "false", "f", "off":
			return Bit(false), nil
		}
		return Value{}, fmt.Errorf("invalid %s %q (use 0/1/true/false)", t, s)
	}
	if t.signed() {
		i, err := strconv.ParseInt(s, 0, t.Size()*8)
		if err != nil {
			return Value{}, fmt.Errorf("invalid %s %q: %w", t, s, err)
		}
		return NewValue(t, i)
	}
	u, err := strconv.ParseUint(s, 0, t.Size()*8)
	if err != nil {
		return Value{}, fmt.Errorf("invalid %s %q: %w", t, s, err)
	}
	return NewValue(t, u)
}

func integerBits(t ElementType, v interface{}) (uint64, error) {
	width := uint(t.Size() * 8)
	mask := uint64(math.MaxUint64)
	if width < 64 {
		mask = 1<<width - 1
	}

	var (
		i        int64
		u        uint64
		unsigned bool
	)
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int8:
		i = int64(n)
	case int16:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	case uint:
		u, unsigned = uint64(n), true
	case uint8:
		u, unsigned = uint64(n), true
	case uint16:
		u, unsigned = uint64(n), true
	case uint32:
		u, unsigned = uint64(n), true
	case uint64:
		u, unsigned = n, true
	case bool:
		if n {
			u = 1
		}
		unsigned = true
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s value must be an integer, got %v", t, n)
		}
		if n < 0 {
			i = int64(n)
		} else {
			u, unsigned = uint64(n), true
		}
	default:
		return 0, fmt.Errorf("%s value must be an integer, got %T", t, v)
	}

	if t.signed() {
		hi := int64(mask >> 1)
		lo := -hi - 1
		if unsigned {
			if u > uint64(hi) {
				return 0, fmt.Errorf("%d overflows %s", u, t)
			}
			return u, nil
		}
		if i < lo || i > hi {
			return 0, fmt.Errorf("%d overflows %s", i, t)
		}
		return uint64(i) & mask, nil
	}

	if !unsigned {
		if i < 0 {
			return 0, fmt.Errorf("%d is negative, %s is unsigned", i, t)
		}
		u = uint64(i)
	}
	if u > mask {
		return 0, fmt.Errorf("%d overflows %s", u, t)
	}
	if t == TypeBit && u > 1 {
		return 0, fmt.Errorf("%d is not a bit value", u)
	}
	return u, nil
}

func floatOf(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
