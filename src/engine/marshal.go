package engine

import (
	"strconv"
	"strings"

	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

// packInt bias-encodes an integer so that packed 0 stays free for null.
func packInt(ct ColumnType, v int32) (uint32, error) {
	if ct.width(longStrBytes) == 2 {
		if v < -0x7FFF || v > 0x7FFF {
			return 0, errors.Wrapf(dberror.ErrFunctionFailed, "value %d does not fit a 2 byte column", v)
		}
		return uint32(v + 0x8000), nil
	}
	return uint32(v) ^ 0x80000000, nil
}

func unpackInt(ct ColumnType, val uint32) int32 {
	if ct.width(longStrBytes) == 2 {
		return int32(val) - 0x8000
	}
	return int32(val ^ 0x80000000)
}

// fieldString reads a field as text. Integers are formatted; streams and
// nulls are not strings.
func fieldString(rec *record.Record, i int) (string, bool) {
	f := rec.Field(i)
	switch f.Kind {
	case record.FieldString:
		return f.Str, true
	case record.FieldInt:
		return strconv.Itoa(int(f.Int)), true
	}
	return "", false
}

// recordValue packs field i of rec for col without touching the string
// pool. Strings the pool has never seen yield ErrNotFound.
func (db *Database) recordValue(rec *record.Record, i int, col *Column) (uint32, error) {
	if rec.IsNull(i) {
		return 0, nil
	}

	switch col.Type.Kind {
	case KindBinary:
		return 1, nil
	case KindString:
		s, ok := fieldString(rec, i)
		if !ok {
			return 0, errors.Wrapf(dberror.ErrFunctionFailed, "field %d is not a string", i)
		}
		return db.strings.IDOf(s)
	case KindInteger:
		v := rec.GetInteger(i)
		if v == record.NullInteger {
			return 0, errors.Wrapf(dberror.ErrFunctionFailed, "field %d is not an integer", i)
		}
		return packInt(col.Type, v)
	}
	return 0, errors.Wrapf(dberror.ErrFunctionFailed, "column %s has unknown type", col.Name)
}

// validateNew checks that rec may be inserted into t: required columns hold
// a value and no row already has the same key.
func (db *Database) validateNew(t *Table, rec *record.Record) error {
	for i, col := range t.columns {
		if col.Type.Nullable || col.Type.Kind == KindBinary {
			continue
		}
		if col.Type.Kind == KindString {
			if s, ok := fieldString(rec, i+1); !ok || s == "" {
				return errors.Wrapf(dberror.ErrInvalidData, "column %s.%s may not be null", t.Name, col.Name)
			}
			continue
		}
		if rec.GetInteger(i+1) == record.NullInteger {
			return errors.Wrapf(dberror.ErrInvalidData, "column %s.%s may not be null", t.Name, col.Name)
		}
	}

	if row, found := db.findRow(t, rec); found {
		return errors.Wrapf(dberror.ErrFunctionFailed, "table %s already has this key at row %d", t.Name, row)
	}
	return nil
}

// findRow looks for a row whose key cells equal the key fields of rec.
func (db *Database) findRow(t *Table, rec *record.Record) (int, bool) {
	type keyCell struct {
		col int
		val uint32
	}

	var keys []keyCell
	for i, col := range t.columns {
		if !col.Type.Key {
			continue
		}
		val, err := db.recordValue(rec, i+1, col)
		if err != nil {
			return 0, false
		}
		keys = append(keys, keyCell{col: i + 1, val: val})
	}
	if len(keys) == 0 {
		return 0, false
	}

	for row := range t.rows {
		match := true
		for _, k := range keys {
			v, err := t.FetchInt(row, k.col)
			if err != nil || v != k.val {
				match = false
				break
			}
		}
		if match {
			return row, true
		}
	}
	return 0, false
}

// compareRecord orders rec against row by key columns in declaration
// order. Integers compare by packed value and strings by text; null sorts
// first in both.
func (db *Database) compareRecord(t *Table, row int, rec *record.Record) int {
	for i, col := range t.columns {
		if !col.Type.Key {
			continue
		}
		x, err := t.FetchInt(row, i+1)
		if err != nil {
			return 1
		}

		if col.Type.Kind == KindString {
			s, _ := fieldString(rec, i+1)
			stored, _ := db.strings.Lookup(x)
			if c := strings.Compare(s, stored); c != 0 {
				return c
			}
			continue
		}

		v, err := db.recordValue(rec, i+1, col)
		if err != nil {
			return 1
		}
		if v > x {
			return 1
		} else if v < x {
			return -1
		}
	}
	return 0
}

func (db *Database) keysAllNull(t *Table, rec *record.Record) bool {
	if !t.hasKey() {
		return false
	}
	for i, col := range t.columns {
		if col.Type.Key && !rec.IsNull(i+1) {
			return false
		}
	}
	return true
}

// streamName names the stream backing the binary cells of row: the table
// name followed by each key value, joined with dots.
func (db *Database) streamName(t *Table, row int) (string, error) {
	var sb strings.Builder
	sb.WriteString(t.Name)

	for i, col := range t.columns {
		if !col.Type.Key {
			continue
		}
		val, err := t.FetchInt(row, i+1)
		if err != nil {
			return "", err
		}

		var part string
		switch col.Type.Kind {
		case KindString:
			s, ok := db.strings.Lookup(val)
			if !ok {
				return "", errors.Wrapf(dberror.ErrInvalidParameter, "row %d refers to unknown string %d", row, val)
			}
			part = s
		case KindInteger:
			switch col.Type.width(longStrBytes) {
			case 2:
				part = strconv.Itoa(int(int32(val) - 0x8000))
			case 4:
				part = strconv.Itoa(int(int32(val ^ 0x80000000)))
			}
		default:
			return "", errors.Wrapf(dberror.ErrInvalidParameter, "key column %s cannot name a stream", col.Name)
		}
		sb.WriteString(".")
		sb.WriteString(part)
	}
	return sb.String(), nil
}

// dropRowStream deletes the stream behind the binary cells of row. With a
// column given, the stream goes only if no other binary cell of the row
// still refers to it.
func (db *Database) dropRowStream(t *Table, row int, except *Column) error {
	found, others := false, false
	for i, col := range t.columns {
		if col.Type.Kind != KindBinary {
			continue
		}
		val, err := t.FetchInt(row, i+1)
		if err != nil {
			return err
		}
		if val == 0 {
			continue
		}
		found = true
		if col != except {
			others = true
		}
	}
	if !found || (except != nil && others) {
		return nil
	}

	name, err := db.streamName(t, row)
	if err != nil {
		return err
	}
	if err := db.store.DeleteStream(name); err != nil && !errors.Is(err, dberror.ErrNotFound) {
		return errors.WithMessagef(err, "error deleting stream %s", name)
	}
	return nil
}
