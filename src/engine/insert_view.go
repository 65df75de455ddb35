package engine

import (
	"msidb/src/dberror"
	"msidb/src/record"

	"github.com/pkg/errors"
)

type ValueKind int

const (
	ValueInteger ValueKind = iota
	ValueString
	// ValueWildcard takes the next field of the parameter record.
	ValueWildcard
)

// Value is one entry of an INSERT value list.
type Value struct {
	Kind ValueKind
	Int  int32
	Str  string
}

func IntValue(v int32) Value {
	return Value{Kind: ValueInteger, Int: v}
}

func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

func Wildcard() Value {
	return Value{Kind: ValueWildcard}
}

// InsertView adds one row per execution.
type InsertView struct {
	unsupported

	db        *Database
	table     View
	sv        *SelectView
	values    []Value
	temporary bool
}

// NewInsertView prepares an insert of values into the named columns of
// table. There must be exactly one value per column.
func NewInsertView(db *Database, table string, columns []ColumnRef, values []Value, temporary bool) (*InsertView, error) {
	if len(columns) != len(values) {
		return nil, errors.Wrapf(dberror.ErrBadQuerySyntax, "%d columns but %d values", len(columns), len(values))
	}

	tv, err := NewTableView(db, table)
	if err != nil {
		return nil, err
	}
	sv, err := NewSelectView(db, tv, columns)
	if err != nil {
		tv.Delete()
		return nil, err
	}

	return &InsertView{
		unsupported: unsupported{name: "insert"},
		db:          db,
		table:       tv,
		sv:          sv,
		values:      values,
		temporary:   temporary,
	}, nil
}

// mergeRecord fills a record of count fields from the value list.
// Wildcards consume params in order, starting with field 1.
func (iv *InsertView) mergeRecord(count int, params *record.Record) (*record.Record, error) {
	if count > len(iv.values) {
		return nil, errors.Wrapf(dberror.ErrFunctionFailed, "not enough values for %d columns", count)
	}

	merged := record.New(count)
	wildcard := 1
	for i := 1; i <= count; i++ {
		v := iv.values[i-1]
		switch v.Kind {
		case ValueString:
			merged.SetString(i, v.Str)
		case ValueInteger:
			merged.SetInteger(i, v.Int)
		case ValueWildcard:
			if params == nil {
				return nil, errors.Wrap(dberror.ErrFunctionFailed, "wildcard value without a parameter record")
			}
			if err := params.CopyField(wildcard, merged, i); err != nil {
				return nil, err
			}
			wildcard++
		}
	}
	return merged, nil
}

// columnsInOrder reports whether the selected columns are exactly the
// table's columns in table order.
func (iv *InsertView) columnsInOrder(tableCols int) bool {
	_, selCols, err := iv.sv.GetDimensions()
	if err != nil || selCols != tableCols {
		return false
	}
	for i := 1; i <= tableCols; i++ {
		a, err := iv.sv.GetColumnInfo(i)
		if err != nil {
			return false
		}
		b, err := iv.table.GetColumnInfo(i)
		if err != nil || a.Name != b.Name {
			return false
		}
	}
	return true
}

// arrangeRecord moves the fields of values into table column order.
func (iv *InsertView) arrangeRecord(values *record.Record) (*record.Record, error) {
	_, tableCols, err := iv.table.GetDimensions()
	if err != nil {
		return nil, err
	}
	if iv.columnsInOrder(tableCols) {
		return values, nil
	}

	padded := record.New(tableCols)
	for colIdx := 1; colIdx <= values.FieldCount(); colIdx++ {
		a, err := iv.sv.GetColumnInfo(colIdx)
		if err != nil {
			return nil, err
		}
		for i := 1; i <= tableCols; i++ {
			b, err := iv.table.GetColumnInfo(i)
			if err != nil {
				return nil, err
			}
			if a.Name == b.Name {
				if err := values.CopyField(colIdx, padded, i); err != nil {
					return nil, err
				}
				break
			}
		}
	}
	return padded, nil
}

// keysAllNull reports whether every key column of the table is null in rec.
func (iv *InsertView) keysAllNull(rec *record.Record) bool {
	_, cols, err := iv.table.GetDimensions()
	if err != nil {
		return false
	}
	keys := 0
	for i := 1; i <= cols; i++ {
		info, err := iv.table.GetColumnInfo(i)
		if err != nil || !info.Type.Key {
			continue
		}
		keys++
		if !rec.IsNull(i) {
			return false
		}
	}
	return keys > 0
}

func (iv *InsertView) Execute(params *record.Record) error {
	if err := iv.sv.Execute(nil); err != nil {
		return err
	}

	_, cols, err := iv.sv.GetDimensions()
	if err != nil {
		return err
	}

	values, err := iv.mergeRecord(cols, params)
	if err != nil {
		iv.db.trace("Insert", err)
		return err
	}
	if values, err = iv.arrangeRecord(values); err != nil {
		return err
	}

	row := -1
	if iv.keysAllNull(values) {
		row = 0
	}

	if err := iv.table.InsertRow(values, row, iv.temporary); err != nil {
		iv.db.trace("Insert", err)
		return err
	}
	return nil
}

func (iv *InsertView) Close() error {
	return iv.sv.Close()
}

func (iv *InsertView) GetDimensions() (int, int, error) {
	return iv.sv.GetDimensions()
}

func (iv *InsertView) GetColumnInfo(col int) (ColumnInfo, error) {
	return iv.sv.GetColumnInfo(col)
}

func (iv *InsertView) Delete() error {
	return iv.sv.Delete()
}
