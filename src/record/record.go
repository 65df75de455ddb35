package record

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

// NullInteger is returned by GetInteger for fields that hold no integer.
const NullInteger = math.MinInt32

type FieldKind int

const (
	FieldNull FieldKind = iota
	FieldInt
	FieldString
	FieldStream
)

func (k FieldKind) String() string {
	switch k {
	case FieldInt:
		return "int"
	case FieldString:
		return "string"
	case FieldStream:
		return "stream"
	}
	return "null"
}

// Field is one typed value of a record.
type Field struct {
	Kind   FieldKind
	Int    int32
	Str    string
	Stream []byte
}

// Record is an ordered tuple of fields. Fields are numbered from 1.
type Record struct {
	fields []Field
}

func New(count int) *Record {
	if count < 0 {
		count = 0
	}
	return &Record{fields: make([]Field, count)}
}

// FieldCount returns the number of fields in the record.
func (r *Record) FieldCount() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

func (r *Record) field(i int) (*Field, error) {
	if r == nil || i < 1 || i > len(r.fields) {
		return nil, errors.Wrapf(dberror.ErrInvalidParameter, "field %d out of range", i)
	}
	return &r.fields[i-1], nil
}

// Field returns a copy of field i. Out of range fields read as null.
func (r *Record) Field(i int) Field {
	f, err := r.field(i)
	if err != nil {
		return Field{}
	}
	return *f
}

// IsNull reports whether field i is null or absent.
func (r *Record) IsNull(i int) bool {
	return r.Field(i).Kind == FieldNull
}

func (r *Record) SetNull(i int) error {
	f, err := r.field(i)
	if err != nil {
		return err
	}
	*f = Field{}
	return nil
}

// SetInteger stores v. NullInteger stores a null.
func (r *Record) SetInteger(i int, v int32) error {
	f, err := r.field(i)
	if err != nil {
		return err
	}
	if v == NullInteger {
		*f = Field{}
		return nil
	}
	*f = Field{Kind: FieldInt, Int: v}
	return nil
}

// GetInteger returns the integer in field i. String fields holding a decimal
// number are converted; anything else yields NullInteger.
func (r *Record) GetInteger(i int) int32 {
	f := r.Field(i)
	switch f.Kind {
	case FieldInt:
		return f.Int
	case FieldString:
		v, err := strconv.ParseInt(strings.TrimSpace(f.Str), 10, 32)
		if err != nil {
			return NullInteger
		}
		return int32(v)
	}
	return NullInteger
}

// SetString stores s. The empty string is stored as null.
func (r *Record) SetString(i int, s string) error {
	f, err := r.field(i)
	if err != nil {
		return err
	}
	if s == "" {
		*f = Field{}
		return nil
	}
	*f = Field{Kind: FieldString, Str: s}
	return nil
}

// GetString returns the string in field i. ok is false unless the field holds
// a string.
func (r *Record) GetString(i int) (s string, ok bool) {
	f := r.Field(i)
	if f.Kind != FieldString {
		return "", false
	}
	return f.Str, true
}

// SetStream reads src to the end and stores the bytes as a stream field.
func (r *Record) SetStream(i int, src io.Reader) error {
	f, err := r.field(i)
	if err != nil {
		return err
	}
	if src == nil {
		*f = Field{}
		return nil
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return errors.Wrapf(err, "error reading stream for field %d", i)
	}
	*f = Field{Kind: FieldStream, Stream: data}
	return nil
}

// SetStreamBytes stores a copy of data as a stream field.
func (r *Record) SetStreamBytes(i int, data []byte) error {
	return r.SetStream(i, bytes.NewReader(data))
}

// GetStream returns a fresh reader over the stream in field i.
func (r *Record) GetStream(i int) (io.ReadSeeker, error) {
	f, err := r.field(i)
	if err != nil {
		return nil, err
	}
	if f.Kind != FieldStream {
		return nil, errors.Wrapf(dberror.ErrInvalidData, "field %d is %s, not a stream", i, f.Kind)
	}
	return bytes.NewReader(f.Stream), nil
}

// CopyField copies field from of r into field to of dst. A destination of 0
// is a placeholder and is skipped.
func (r *Record) CopyField(from int, dst *Record, to int) error {
	if to == 0 {
		return nil
	}
	src, err := r.field(from)
	if err != nil {
		return errors.Wrapf(dberror.ErrFunctionFailed, "source field %d out of range", from)
	}
	out, err := dst.field(to)
	if err != nil {
		return errors.Wrapf(dberror.ErrFunctionFailed, "destination field %d out of range", to)
	}
	*out = *src
	if src.Stream != nil {
		out.Stream = append([]byte(nil), src.Stream...)
	}
	return nil
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	out := New(r.FieldCount())
	for i := 1; i <= r.FieldCount(); i++ {
		_ = r.CopyField(i, out, i)
	}
	return out
}

// Equal compares field kinds and values.
func (r *Record) Equal(o *Record) bool {
	if r.FieldCount() != o.FieldCount() {
		return false
	}
	for i := 1; i <= r.FieldCount(); i++ {
		a, b := r.Field(i), o.Field(i)
		if a.Kind != b.Kind || a.Int != b.Int || a.Str != b.Str || !bytes.Equal(a.Stream, b.Stream) {
			return false
		}
	}
	return true
}

// Format renders the record for display, one field per column.
func (r *Record) Format() []string {
	out := make([]string, r.FieldCount())
	for i := range out {
		f := r.fields[i]
		switch f.Kind {
		case FieldInt:
			out[i] = strconv.Itoa(int(f.Int))
		case FieldString:
			out[i] = f.Str
		case FieldStream:
			out[i] = fmt.Sprintf("[stream %d bytes]", len(f.Stream))
		}
	}
	return out
}

// Values returns the fields as plain Go values (nil, int32, string, []byte).
func (r *Record) Values() []interface{} {
	out := make([]interface{}, r.FieldCount())
	for i := range out {
		f := r.fields[i]
		switch f.Kind {
		case FieldInt:
			out[i] = f.Int
		case FieldString:
			out[i] = f.Str
		case FieldStream:
			out[i] = f.Stream
		}
	}
	return out
}
