package stringpool

import (
	"testing"

	"msidb/src/dberror"

	"github.com/pkg/errors"
)

func TestInternIsIdempotent(t *testing.T) {
	p := New(DefaultCodePage)

	a, err := p.Intern("Feature", false)
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	b, err := p.Intern("Feature", true)
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	if a != b {
		t.Fatalf("same string got ids %d and %d", a, b)
	}
	if p.IsPersistent(a) {
		t.Error("the first persistence flag should be kept")
	}
	if p.Len() != 2 {
		t.Errorf("Len = %d, want 2", p.Len())
	}
}

func TestEmptyStringIsIDZero(t *testing.T) {
	p := New(DefaultCodePage)
	id, err := p.Intern("", true)
	if err != nil || id != 0 {
		t.Fatalf("Intern(\"\") = %d, %v", id, err)
	}
	s, ok := p.Lookup(0)
	if !ok || s != "" {
		t.Errorf("Lookup(0) = %q, %v", s, ok)
	}
}

func TestLookupAndIDOf(t *testing.T) {
	p := New(DefaultCodePage)
	id, _ := p.Intern("Component", true)

	if s, ok := p.Lookup(id); !ok || s != "Component" {
		t.Errorf("Lookup(%d) = %q, %v", id, s, ok)
	}
	if _, ok := p.Lookup(id + 10); ok {
		t.Error("unknown id should not resolve")
	}

	got, err := p.IDOf("Component")
	if err != nil || got != id {
		t.Errorf("IDOf = %d, %v", got, err)
	}
	if _, err := p.IDOf("Directory"); !errors.Is(err, dberror.ErrNotFound) {
		t.Errorf("IDOf of a missing string returned %v", err)
	}
	if p.Len() != 2 {
		t.Error("IDOf must not allocate")
	}
}

func TestSaveLoadKeepsIDs(t *testing.T) {
	p := New(1252)
	keep, _ := p.Intern("Property", true)
	session, _ := p.Intern("TempValue", false)
	referenced, _ := p.Intern("Referenced", false)

	data, long, err := p.Save(func(id uint32) bool { return id == referenced })
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if long {
		t.Error("a small pool should use short references")
	}

	loaded, err := Load(data)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.CodePage() != 1252 {
		t.Errorf("code page = %d", loaded.CodePage())
	}
	if s, ok := loaded.Lookup(keep); !ok || s != "Property" {
		t.Errorf("persistent string lost: %q %v", s, ok)
	}
	if s, ok := loaded.Lookup(referenced); !ok || s != "Referenced" {
		t.Errorf("referenced string lost: %q %v", s, ok)
	}
	if _, ok := loaded.Lookup(session); ok {
		t.Error("session string should not be saved")
	}

	next, _ := loaded.Intern("Fresh", false)
	if next <= referenced {
		t.Errorf("new id %d reuses a saved id", next)
	}
}

func TestMarkPersistent(t *testing.T) {
	p := New(DefaultCodePage)
	id, _ := p.Intern("Later", false)
	p.MarkPersistent(id)
	if !p.IsPersistent(id) {
		t.Error("MarkPersistent did not promote the string")
	}
}
