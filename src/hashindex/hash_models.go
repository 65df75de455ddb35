package hashindex

// HashIndexItem is one row entry in the chain of a packed column value.
type HashIndexItem struct {
	Value uint32 // Packed cell value
	Row   int    // Row holding the value
}

// HashIndex maps packed column values to the rows holding them. It is built
// in a single scan and never updated; writers discard it instead.
type HashIndex struct {
	chains map[uint32][]HashIndexItem
	rows   int
}

// Cursor remembers where an enumeration of one value's chain stopped. The
// zero value starts at the head of the chain.
type Cursor struct {
	index *HashIndex
	value uint32
	pos   int
}

// Reset rewinds the cursor so it can start a new enumeration.
func (c *Cursor) Reset() {
	*c = Cursor{}
}
