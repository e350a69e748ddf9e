package omronfins

import (
	"bytes"
	"encoding/binary"
	"math"
)

// CommandCode is the two byte FINS command (MRC, SRC).
type CommandCode uint16

const (
	CommandCodeMemoryAreaRead  CommandCode = 0x0101
	CommandCodeMemoryAreaWrite CommandCode = 0x0102
)

const (
	// commandParamSize covers command code, area, address, bit and count.
	commandParamSize = 8
	// ResponsePreambleSize is header echo + command echo + completion code.
	ResponsePreambleSize = HeaderSize + 4
	completionCodeOffset = HeaderSize + 2
)

// SwapWords splits b into 16-bit words and returns them in reverse order.
// An odd length is left padded with one zero byte first.
func SwapWords(b []byte) []byte {
	if len(b)%2 == 1 {
		b = append([]byte{0x00}, b...)
	}
	out := make([]byte, len(b))
	for i := 0; i < len(b); i += 2 {
		j := len(b) - i - 2
		out[j], out[j+1] = b[i], b[i+1]
	}
	return out
}

// EncodeValue packs v into its wire bytes. Values wider than one word have
// their words reversed, except raw byte blobs which are copied verbatim.
func EncodeValue(v Value) []byte {
	b := v.Bytes()
	if v.Type == TypeBytes || len(b) <= 2 {
		return b
	}
	return SwapWords(b)
}

// WriteValues is the payload of a memory area write: either a single value
// or a list whose length must match the element count.
type WriteValues struct {
	values []Value
	many   bool
}

// Single is a scalar write. Its length is never checked against the count.
func Single(v Value) WriteValues {
	return WriteValues{values: []Value{v}}
}

// Many is a list write of exactly count values.
func Many(vs ...Value) WriteValues {
	return WriteValues{values: append([]Value(nil), vs...), many: true}
}

// IsMany reports whether the values were given as a list.
func (w WriteValues) IsMany() bool {
	return w.many
}

// Values returns the values in caller order.
func (w WriteValues) Values() []Value {
	return append([]Value(nil), w.values...)
}

// Len returns the number of values.
func (w WriteValues) Len() int {
	return len(w.values)
}

func (w WriteValues) encode() []byte {
	var buf bytes.Buffer
	for _, v := range w.values {
		buf.Write(EncodeValue(v))
	}
	return buf.Bytes()
}

func buildCommand(header []byte, code CommandCode, area MemoryArea, address uint16, bit byte, count uint16, payloadLen int) []byte {
	frame := make([]byte, 0, len(header)+commandParamSize+payloadLen)
	frame = append(frame, header...)
	frame = binary.BigEndian.AppendUint16(frame, uint16(code))
	frame = append(frame, byte(area))
	frame = binary.BigEndian.AppendUint16(frame, address)
	frame = append(frame, bit)
	frame = binary.BigEndian.AppendUint16(frame, count)
	return frame
}

// BuildReadCommand returns a memory area read frame.
func BuildReadCommand(header []byte, area MemoryArea, address uint16, bit byte, count uint16) []byte {
	return buildCommand(header, CommandCodeMemoryAreaRead, area, address, bit, count, 0)
}

// BuildWriteCommand returns a memory area write frame carrying values.
// A list write fails with SizeMismatchError when its length differs from count.
func BuildWriteCommand(header []byte, area MemoryArea, address uint16, bit byte, count uint16, values WriteValues) ([]byte, error) {
	if values.many && len(values.values) != int(count) {
		return nil, SizeMismatchError{Count: count, Values: len(values.values)}
	}
	payload := values.encode()
	frame := buildCommand(header, CommandCodeMemoryAreaWrite, area, address, bit, count, len(payload))
	return append(frame, payload...), nil
}

// Response is a decoded memory area response.
type Response struct {
	CompletionCode CompletionCode
	// Value is nil when the response has no payload. Otherwise it holds a
	// string for text, []byte for raw bytes, a scalar for a single numeric
	// element, or []interface{} for several elements in wire order.
	Value interface{}
	// Payload is the raw data following the completion code.
	Payload []byte
}

// Values returns Value as a list: empty, one element, or the decoded slice.
func (r Response) Values() []interface{} {
	switch v := r.Value.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	}
	return []interface{}{r.Value}
}

// CompletionCodeOf reads the completion code of a raw response.
func CompletionCodeOf(raw []byte) (CompletionCode, error) {
	if len(raw) < ResponsePreambleSize {
		return 0, TruncatedError{Length: len(raw), Want: ResponsePreambleSize}
	}
	return CompletionCode(binary.BigEndian.Uint16(raw[completionCodeOffset:])), nil
}

// DecodeResponse extracts the completion code and the payload of raw,
// interpreting the payload as elements of type t.
func DecodeResponse(raw []byte, t ElementType) (Response, error) {
	code, err := CompletionCodeOf(raw)
	if err != nil {
		return Response{}, err
	}
	resp := Response{CompletionCode: code}
	payload := raw[ResponsePreambleSize:]
	if len(payload) == 0 {
		return resp, nil
	}
	resp.Payload = append([]byte(nil), payload...)

	switch t {
	case TypeBytes:
		resp.Value = append([]byte(nil), payload...)
		return resp, nil
	case TypeString:
		data := payload
		if len(data)%2 == 0 {
			data = SwapWords(data)
		}
		if i := bytes.IndexByte(data, 0x00); i >= 0 {
			data = data[:i]
		}
		resp.Value = string(data)
		return resp, nil
	}

	size := t.Size()
	if size == 0 || len(payload)%size != 0 {
		return resp, MisalignedPayloadError{Length: len(payload), Type: t}
	}
	data := payload
	if t.swapsOnDecode() {
		data = SwapWords(data)
	}
	n := len(data) / size
	if n == 1 {
		resp.Value = decodeElement(t, data)
		return resp, nil
	}
	elems := make([]interface{}, n)
	for i := range elems {
		elems[i] = decodeElement(t, data[i*size:(i+1)*size])
	}
	resp.Value = elems
	return resp, nil
}

// decodeElement converts one big-endian element of type t.
func decodeElement(t ElementType, b []byte) interface{} {
	switch t {
	case TypeBit:
		return b[0] != 0
	case TypeChar, TypeUChar:
		return b[0]
	case TypeSChar:
		return int8(b[0])
	case TypeShort:
		return int16(binary.BigEndian.Uint16(b))
	case TypeUShort:
		return binary.BigEndian.Uint16(b)
	case TypeInt, TypeLong:
		return int32(binary.BigEndian.Uint32(b))
	case TypeUInt, TypeULong:
		return binary.BigEndian.Uint32(b)
	case TypeLongLong:
		return int64(binary.BigEndian.Uint64(b))
	case TypeULongLong:
		return binary.BigEndian.Uint64(b)
	case TypeFloat:
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	case TypeDouble:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	case TypeString:
		return string(b)
	}
	return append([]byte(nil), b...)
}
