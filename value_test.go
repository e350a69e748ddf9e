package omronfins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		typ  ElementType
		in   string
		want interface{}
	}{
		{TypeBit, "on", true},
		{TypeBit, "0", false},
		{TypeChar, "A", byte('A')},
		{TypeChar, "65", byte(65)},
		{TypeSChar, "-128", int8(-128)},
		{TypeShort, "-2", int16(-2)},
		{TypeUShort, "0xFFFF", uint16(0xFFFF)},
		{TypeInt, "-100000", int32(-100000)},
		{TypeULong, "0b101", uint32(5)},
		{TypeLongLong, "-1", int64(-1)},
		{TypeFloat, "1.5", float32(1.5)},
		{TypeDouble, "-0.25", -0.25},
		{TypeString, "hello", "hello"},
		{TypeBytes, "ab", []byte("ab")},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String()+"/"+tt.in, func(t *testing.T) {
			v, err := ParseValue(tt.typ, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, v.Type)
			assert.Equal(t, tt.want, v.Interface())
		})
	}
}

func TestParseValueErrors(t *testing.T) {
	for _, tt := range []struct {
		typ ElementType
		in  string
	}{
		{TypeBit, "maybe"},
		{TypeUShort, "65536"},
		{TypeUShort, "-1"},
		{TypeSChar, "128"},
		{TypeFloat, "abc"},
		{ElementType(0), "1"},
	} {
		_, err := ParseValue(tt.typ, tt.in)
		assert.Error(t, err, "%s %q", tt.typ, tt.in)
	}
}

func TestNewValue(t *testing.T) {
	v, err := NewValue(TypeUShort, 1234)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0xD2}, v.Bytes())

	// YAML and JSON decode whole numbers as float64 or int
	v, err = NewValue(TypeInt, float64(-7))
	require.NoError(t, err)
	assert.Equal(t, int32(-7), v.Interface())

	v, err = NewValue(TypeDouble, 3)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.Interface())

	v, err = NewValue(TypeBit, true)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, v.Bytes())

	_, err = NewValue(TypeUChar, 256)
	assert.Error(t, err)
	_, err = NewValue(TypeShort, uint64(40000))
	assert.Error(t, err)
	_, err = NewValue(TypeUInt, -1)
	assert.Error(t, err)
	_, err = NewValue(TypeInt, 1.5)
	assert.Error(t, err)
	_, err = NewValue(TypeBit, 2)
	assert.Error(t, err)
	_, err = NewValue(TypeString, 12)
	assert.Error(t, err)
	_, err = NewValue(TypeChar, "AB")
	assert.Error(t, err)
}

func TestValueBytesAndString(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, Uint32(1).Bytes())
	assert.Equal(t, []byte{0xFF, 0xFE}, Int16(-2).Bytes())
	assert.Equal(t, []byte{0x3F, 0xC0, 0x00, 0x00}, Float32(1.5).Bytes())
	assert.Equal(t, "USHORT(7)", Uint16(7).String())

	raw := []byte{1, 2}
	v := Raw(raw)
	raw[0] = 9
	assert.Equal(t, []byte{1, 2}, v.Bytes(), "Raw must copy its input")
}

func TestParseElementType(t *testing.T) {
	for in, want := range map[string]ElementType{
		"ushort":  TypeUShort,
		" WORD ":  TypeUShort,
		"float64": TypeDouble,
		"STR":     TypeString,
		"bool":    TypeBit,
		"RAW":     TypeBytes,
	} {
		got, err := ParseElementType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseElementType("quad")
	assert.Error(t, err)

	types := ElementTypes()
	assert.Len(t, types, 16)
	assert.Equal(t, TypeBit, types[0])
	assert.Equal(t, TypeBytes, types[len(types)-1])
	assert.Equal(t, "ElementType(99)", ElementType(99).String())
	assert.Equal(t, 8, TypeULongLong.Size())
}

func TestMemoryAreas(t *testing.T) {
	assert.Equal(t, MemoryArea(0x20), EMBit(0))
	assert.Equal(t, MemoryArea(0xE0), EMBit(0x10))
	assert.Equal(t, MemoryArea(0xE8), EMBit(0x18))
	assert.Equal(t, MemoryArea(0xA3), EMWord(3))
	assert.Equal(t, MemoryArea(0x67), EMWord(0x17))

	for in, want := range map[string]MemoryArea{
		"DM_WORD": MemoryAreaDMWord,
		"dm":      MemoryAreaDMWord,
		"cio_bit": MemoryAreaCIOBit,
		"em0_bit": EMBit(0),
		"EM3":     EMWord(3),
		"0xB2":    MemoryAreaHRWord,
		"130":     MemoryAreaDMWord,
	} {
		got, err := ParseMemoryArea(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMemoryArea("nowhere")
	assert.Error(t, err)
	_, err = ParseMemoryArea("")
	assert.Error(t, err)

	info, ok := LookupMemoryArea(MemoryAreaCIOForceWord)
	require.True(t, ok)
	assert.Equal(t, 4, info.ElementSize)
	assert.False(t, info.IsBit())

	// 0xBC is listed twice; the first name wins
	assert.Equal(t, "EM_CURRENT_BANK_NUM", MemoryAreaDataReg.String())
	assert.Equal(t, "0x01", MemoryArea(0x01).String())

	areas := MemoryAreas()
	areas[0].Name = "changed"
	assert.Equal(t, "CIO_BIT", MemoryAreas()[0].Name)
}
