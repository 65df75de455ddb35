package stringpool

import (
	"msidb/src/dberror"

	"github.com/pkg/errors"
)

const (
	// MaxStrings is the largest id a three byte string reference can hold.
	MaxStrings = 1<<24 - 1

	// ShortRefLimit is the highest id a two byte string reference can hold.
	ShortRefLimit = 0xFFFF

	DefaultCodePage = 0
)

type entry struct {
	value      string
	used       bool
	persistent bool
}

// StringPool interns strings to compact ids. Id 0 is reserved for the empty
// string, which is also how a null string cell is stored.
type StringPool struct {
	entries  []entry
	ids      map[string]uint32
	codePage int
	longRefs bool
}

func New(codePage int) *StringPool {
	return &StringPool{
		entries:  []entry{{used: true, persistent: true}},
		ids:      make(map[string]uint32),
		codePage: codePage,
	}
}

// Intern returns the id of s, allocating a new one if s has not been seen.
// An existing entry keeps the persistence flag it was first interned with.
func (p *StringPool) Intern(s string, persistent bool) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	if id, ok := p.ids[s]; ok {
		return id, nil
	}
	if len(p.entries) > MaxStrings {
		return 0, errors.Wrapf(dberror.ErrOutOfMemory, "string pool is full (%d entries)", len(p.entries))
	}

	id := uint32(len(p.entries))
	p.entries = append(p.entries, entry{value: s, used: true, persistent: persistent})
	p.ids[s] = id
	return id, nil
}

// Lookup returns the string stored under id.
func (p *StringPool) Lookup(id uint32) (string, bool) {
	if int(id) >= len(p.entries) || !p.entries[id].used {
		return "", false
	}
	return p.entries[id].value, true
}

// IDOf finds the id of s without interning it.
func (p *StringPool) IDOf(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	id, ok := p.ids[s]
	if !ok {
		return 0, errors.Wrapf(dberror.ErrNotFound, "string %q is not in the pool", s)
	}
	return id, nil
}

func (p *StringPool) IsPersistent(id uint32) bool {
	if int(id) >= len(p.entries) {
		return false
	}
	return p.entries[id].persistent
}

// MarkPersistent promotes a session string so it is written on the next save.
func (p *StringPool) MarkPersistent(id uint32) {
	if int(id) < len(p.entries) && p.entries[id].used {
		p.entries[id].persistent = true
	}
}

// Len returns the number of ids handed out, including the reserved id 0.
func (p *StringPool) Len() int {
	return len(p.entries)
}

func (p *StringPool) CodePage() int {
	return p.codePage
}

func (p *StringPool) SetCodePage(codePage int) {
	p.codePage = codePage
}

// LongRefs reports whether the pool was last loaded or saved with three byte
// string references.
func (p *StringPool) LongRefs() bool {
	return p.longRefs
}
