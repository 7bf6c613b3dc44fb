package content

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindFetch Kind = iota + 1
	KindCreate
	KindUpdate
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	}
	return "unknown"
}

// Sentinels for errors.Is against an *Error of the matching kind.
var (
	ErrFetch  = errors.New("content: fetch failed")
	ErrCreate = errors.New("content: create failed")
	ErrUpdate = errors.New("content: update failed")
)

// Error is a store failure other than not-found. Key is the slug or id the
// operation was about, if any.
type Error struct {
	Kind Kind
	Op   string
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("content %s %s %q: %v", e.Kind, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("content %s %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrFetch:
		return e.Kind == KindFetch
	case ErrCreate:
		return e.Kind == KindCreate
	case ErrUpdate:
		return e.Kind == KindUpdate
	}
	return false
}
