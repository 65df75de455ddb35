package engine

import (
	"msidb/src/hashindex"
)

// Bits of the 16-bit column type word stored in _Columns.Type.
const (
	typeSizeMask    = 0x00ff
	typeValid       = 0x0100
	typeLocalizable = 0x0200
	typeLongString  = 0x0400
	typeString      = 0x0800
	typeNullable    = 0x1000
	typeKey         = 0x2000
	typeTemporary   = 0x4000
	typeUnknown     = 0x8000
)

// Packed cell widths. Strings are always held with long references in
// memory; the persisted width depends on the string pool.
const (
	longStrBytes  = 3
	shortStrBytes = 2
)

// maxColumns bounds a table to the width of a SetRow field mask.
const maxColumns = 32

type ColumnKind int

const (
	KindUnknown ColumnKind = iota
	KindInteger
	KindString
	KindBinary
)

func (k ColumnKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	}
	return "unknown"
}

// ColumnType describes the values a column holds.
type ColumnType struct {
	Kind ColumnKind

	// Size is the byte width of integers (2 or 4) or the declared maximum
	// length of strings. Binary columns have no size.
	Size int

	Nullable    bool
	Key         bool
	Temporary   bool
	Localizable bool
}

// Integer returns the type of a 2 or 4 byte integer column.
func Integer(size int) ColumnType {
	return ColumnType{Kind: KindInteger, Size: size}
}

// String returns the type of a string column holding at most size
// characters. Zero means unlimited.
func String(size int) ColumnType {
	return ColumnType{Kind: KindString, Size: size}
}

// Binary returns the type of a column whose values live in streams.
func Binary() ColumnType {
	return ColumnType{Kind: KindBinary, Nullable: true}
}

func (ct ColumnType) AsKey() ColumnType {
	ct.Key = true
	return ct
}

func (ct ColumnType) AsNullable() ColumnType {
	ct.Nullable = true
	return ct
}

func (ct ColumnType) AsTemporary() ColumnType {
	ct.Temporary = true
	return ct
}

func (ct ColumnType) AsLocalizable() ColumnType {
	ct.Localizable = true
	return ct
}

// Word encodes the type in the classic 16-bit form.
func (ct ColumnType) Word() uint16 {
	var w uint16
	switch ct.Kind {
	case KindUnknown:
		return typeUnknown | typeValid
	case KindBinary:
		w = typeString | typeValid
		if ct.Nullable {
			w |= typeNullable
		}
		return w
	case KindString:
		w = typeString | typeValid
		if ct.Size == 0 {
			// keeps an unlimited string apart from binary
			w |= typeLongString
		}
	case KindInteger:
		w = typeValid
	}
	w |= uint16(ct.Size) & typeSizeMask
	if ct.Nullable {
		w |= typeNullable
	}
	if ct.Key {
		w |= typeKey
	}
	if ct.Temporary {
		w |= typeTemporary
	}
	if ct.Localizable {
		w |= typeLocalizable
	}
	return w
}

// ParseColumnType decodes a 16-bit type word.
func ParseColumnType(w uint16) ColumnType {
	if w&typeUnknown != 0 || w&typeValid == 0 {
		return ColumnType{Kind: KindUnknown}
	}
	if w&^typeNullable == typeString|typeValid {
		return ColumnType{Kind: KindBinary, Nullable: w&typeNullable != 0}
	}

	ct := ColumnType{
		Kind:        KindInteger,
		Size:        int(w & typeSizeMask),
		Nullable:    w&typeNullable != 0,
		Key:         w&typeKey != 0,
		Temporary:   w&typeTemporary != 0,
		Localizable: w&typeLocalizable != 0,
	}
	if w&typeString != 0 {
		ct.Kind = KindString
	}
	return ct
}

// width returns the packed width of a cell, or 0 if the type has none.
func (ct ColumnType) width(strBytes int) int {
	switch ct.Kind {
	case KindBinary:
		return 2
	case KindString:
		return strBytes
	case KindInteger:
		if ct.Size <= 2 {
			return 2
		}
		return 4
	}
	return 0
}

// ColumnDef declares a column for CreateView and AlterView.
type ColumnDef struct {
	Name string
	Type ColumnType
}

// Column is one column of a table.
type Column struct {
	// Table is the name of the owning table.
	Table string

	// Number is the 1-based position of the column.
	Number int

	Name string
	Type ColumnType

	// Offset is the byte offset of the cell inside a packed row.
	Offset int

	// refs counts the holds on a temporary column.
	refs refCount
}

// ColumnInfo is what views report about one of their columns.
type ColumnInfo struct {
	Name  string
	Table string
	Type  ColumnType
}

// Cursor tracks a FindMatchingRows enumeration. The zero value starts a new
// one; a cursor is tied to the index it was first used with.
type Cursor = hashindex.Cursor

// Table is a named set of packed rows sorted by their key columns.
type Table struct {
	Name string

	columns []*Column

	// rows and persistent always have the same length; every row is
	// exactly rowSize bytes.
	rows       [][]byte
	persistent []bool
	rowSize    int

	// Persistent tables are written to the container on commit.
	Persistent bool

	refs refCount

	// indexes caches one hash index per column; nil means stale.
	indexes []*hashindex.HashIndex
}
