package omronfins

import (
	"fmt"
	"strings"
)

// ElementType selects how values are packed into and unpacked from a frame.
type ElementType uint8

const (
	TypeBit ElementType = iota + 1
	TypeChar
	TypeSChar
	TypeUChar
	TypeShort
	TypeUShort
	TypeInt
	TypeUInt
	TypeLong
	TypeULong
	TypeLongLong
	TypeULongLong
	TypeFloat
	TypeDouble
	// TypeString is fixed-width text, one byte per character.
	TypeString
	// TypeBytes is a raw byte blob copied to the frame as is.
	TypeBytes
)

type elementTypeInfo struct {
	name string
	size int
}

var elementTypes = map[ElementType]elementTypeInfo{
	TypeBit:       {"BIT", 1},
	TypeChar:      {"CHAR", 1},
	TypeSChar:     {"SCHAR", 1},
	TypeUChar:     {"UCHAR", 1},
	TypeShort:     {"SHORT", 2},
	TypeUShort:    {"USHORT", 2},
	TypeInt:       {"INT", 4},
	TypeUInt:      {"UINT", 4},
	TypeLong:      {"LONG", 4},
	TypeULong:     {"ULONG", 4},
	TypeLongLong:  {"LONGLONG", 8},
	TypeULongLong: {"ULONGLONG", 8},
	TypeFloat:     {"FLOAT", 4},
	TypeDouble:    {"DOUBLE", 8},
	TypeString:    {"STR", 1},
	TypeBytes:     {"BYTES", 1},
}

var elementTypeAliases = map[string]ElementType{
	"BOOL":    TypeBit,
	"INT8":    TypeSChar,
	"UINT8":   TypeUChar,
	"BYTE":    TypeUChar,
	"INT16":   TypeShort,
	"UINT16":  TypeUShort,
	"WORD":    TypeUShort,
	"INT32":   TypeInt,
	"UINT32":  TypeUInt,
	"DWORD":   TypeULong,
	"INT64":   TypeLongLong,
	"UINT64":  TypeULongLong,
	"LWORD":   TypeULongLong,
	"REAL":    TypeFloat,
	"FLOAT32": TypeFloat,
	"LREAL":   TypeDouble,
	"FLOAT64": TypeDouble,
	"STRING":  TypeString,
	"TEXT":    TypeString,
	"RAW":     TypeBytes,
}

// Size returns the width in bytes of one element, or 0 for an unknown type.
func (t ElementType) Size() int {
	return elementTypes[t].size
}

// Valid reports whether t is one of the defined element types.
func (t ElementType) Valid() bool {
	_, ok := elementTypes[t]
	return ok
}

func (t ElementType) String() string {
	if info, ok := elementTypes[t]; ok {
		return info.name
	}
	return fmt.Sprintf("ElementType(%d)", uint8(t))
}

// signed reports whether the type decodes to a signed integer.
func (t ElementType) signed() bool {
	switch t {
	case TypeSChar, TypeShort, TypeInt, TypeLong, TypeLongLong:
		return true
	}
	return false
}

// swapsOnDecode reports whether the payload word order is reversed before
// splitting it into elements.
func (t ElementType) swapsOnDecode() bool {
	return t == TypeString || t.Size() > 2
}

// ParseElementType resolves a type name such as "USHORT", "float" or "int32".
func ParseElementType(s string) (ElementType, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if t, ok := elementTypeAliases[name]; ok {
		return t, nil
	}
	for t, info := range elementTypes {
		if info.name == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}

// ElementTypes lists every defined element type in declaration order.
func ElementTypes() []ElementType {
	types := make([]ElementType, 0, len(elementTypes))
	for t := TypeBit; t <= TypeBytes; t++ {
		types = append(types, t)
	}
	return types
}
