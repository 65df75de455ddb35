package dberror

import (
	"github.com/pkg/errors"
)

// Kind classifies the result of an engine operation.
type Kind int

const (
	Success Kind = iota
	FunctionFailed
	InvalidParameter
	BadQuerySyntax
	InvalidData
	NotFound
	OutOfMemory
	NoMoreItems
)

var (
	ErrFunctionFailed   = errors.New("function failed")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrBadQuerySyntax   = errors.New("bad query syntax")
	ErrInvalidData      = errors.New("invalid data")
	ErrNotFound         = errors.New("not found")
	ErrOutOfMemory      = errors.New("out of memory")

	// ErrNoMoreItems ends an enumeration. It is not a failure.
	ErrNoMoreItems = errors.New("no more items")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrFunctionFailed, FunctionFailed},
	{ErrInvalidParameter, InvalidParameter},
	{ErrBadQuerySyntax, BadQuerySyntax},
	{ErrInvalidData, InvalidData},
	{ErrNotFound, NotFound},
	{ErrOutOfMemory, OutOfMemory},
	{ErrNoMoreItems, NoMoreItems},
}

// KindOf maps an error back to its kind. Errors that do not wrap one of the
// sentinels are reported as FunctionFailed.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return FunctionFailed
}

func (k Kind) String() string {
	switch k {
	case Success:
		return "Success"
	case FunctionFailed:
		return "FunctionFailed"
	case InvalidParameter:
		return "InvalidParameter"
	case BadQuerySyntax:
		return "BadQuerySyntax"
	case InvalidData:
		return "InvalidData"
	case NotFound:
		return "NotFound"
	case OutOfMemory:
		return "OutOfMemory"
	case NoMoreItems:
		return "NoMoreItems"
	}
	return "Unknown"
}

// IsEnd reports whether err marks the end of an enumeration.
func IsEnd(err error) bool {
	return errors.Is(err, ErrNoMoreItems)
}
