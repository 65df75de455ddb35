package stringpool

import (
	"msidb/src/dberror"
	"msidb/src/helpers"

	"github.com/pkg/errors"
)

type savedString struct {
	ID    int32  `bson:"id"`
	Value string `bson:"value"`
}

type savedPool struct {
	CodePage int32         `bson:"codepage"`
	LongRefs bool          `bson:"longrefs"`
	Strings  []savedString `bson:"strings"`
}

// Save encodes every persistent string plus any id for which include returns
// true. It reports whether the saved ids need three byte references.
func (p *StringPool) Save(include func(id uint32) bool) ([]byte, bool, error) {
	doc := savedPool{CodePage: int32(p.codePage), Strings: []savedString{}}

	var maxID uint32
	for i := 1; i < len(p.entries); i++ {
		e := p.entries[i]
		id := uint32(i)
		if !e.used {
			continue
		}
		if !e.persistent && (include == nil || !include(id)) {
			continue
		}
		doc.Strings = append(doc.Strings, savedString{ID: int32(id), Value: e.value})
		maxID = id
	}
	doc.LongRefs = maxID > ShortRefLimit

	data, err := helpers.EncodeBSON(doc)
	if err != nil {
		return nil, false, errors.WithMessage(err, "error saving string pool")
	}
	p.longRefs = doc.LongRefs
	return data, doc.LongRefs, nil
}

// Load rebuilds a pool from Save output, keeping every id stable. All loaded
// strings are persistent.
func Load(data []byte) (*StringPool, error) {
	var doc savedPool
	if err := helpers.DecodeBSON(data, &doc); err != nil {
		return nil, errors.WithMessage(err, "error loading string pool")
	}

	p := New(int(doc.CodePage))
	p.longRefs = doc.LongRefs
	for _, s := range doc.Strings {
		if s.ID <= 0 || s.ID > MaxStrings || s.Value == "" {
			return nil, errors.Wrapf(dberror.ErrInvalidData, "bad string pool entry %d", s.ID)
		}
		id := int(s.ID)
		for len(p.entries) <= id {
			p.entries = append(p.entries, entry{})
		}
		if p.entries[id].used {
			return nil, errors.Wrapf(dberror.ErrInvalidData, "duplicate string pool id %d", id)
		}
		if _, dup := p.ids[s.Value]; dup {
			return nil, errors.Wrapf(dberror.ErrInvalidData, "string %q stored twice", s.Value)
		}
		p.entries[id] = entry{value: s.Value, used: true, persistent: true}
		p.ids[s.Value] = uint32(id)
	}
	return p, nil
}
