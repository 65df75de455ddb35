package hashindex

import (
	"msidb/src/dberror"

	"github.com/pkg/errors"
)

// Build scans rows 0..rows-1 once. Rows whose value cannot be fetched are
// left out of the index.
func Build(rows int, fetch func(row int) (uint32, error)) *HashIndex {
	hi := &HashIndex{
		chains: make(map[uint32][]HashIndexItem),
		rows:   rows,
	}
	for row := 0; row < rows; row++ {
		v, err := fetch(row)
		if err != nil {
			continue
		}
		hi.chains[v] = append(hi.chains[v], HashIndexItem{Value: v, Row: row})
	}
	return hi
}

// Next returns the next row holding value after the position in cur, or
// ErrNoMoreItems once the chain is exhausted. A cursor belongs to one index
// and one value; handing it to another is an error.
func (hi *HashIndex) Next(value uint32, cur *Cursor) (int, error) {
	if cur == nil {
		return 0, errors.Wrap(dberror.ErrInvalidParameter, "nil cursor")
	}
	if cur.index == nil {
		cur.index = hi
		cur.value = value
		cur.pos = 0
	} else if cur.index != hi || cur.value != value {
		return 0, errors.Wrap(dberror.ErrInvalidParameter, "cursor belongs to another enumeration")
	}

	chain := hi.chains[value]
	if cur.pos >= len(chain) {
		return 0, dberror.ErrNoMoreItems
	}
	item := chain[cur.pos]
	cur.pos++
	return item.Row, nil
}

// Count returns how many rows hold value.
func (hi *HashIndex) Count(value uint32) int {
	return len(hi.chains[value])
}

// Rows returns the row count the index was built over.
func (hi *HashIndex) Rows() int {
	return hi.rows
}
