package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPathNotFound       = errors.New("binding path not found")
	ErrInvalidDataBinding = errors.New("$data must bind an array or object")
	ErrInvalidExpression  = errors.New("invalid binding expression")
)

const (
	KeyData = "$data"
	KeyWhen = "$when"

	ScopeRoot  = "$root"
	ScopeData  = "$data"
	ScopeIndex = "$index"
)

// Options selects the expansion policy. The zero value is strict: an
// unresolvable binding fails the whole expansion.
type Options struct {
	Lenient bool
}

// ExpansionError locates a failed binding inside the template.
type ExpansionError struct {
	Path       string
	Expression string
	Err        error
}

func (e *ExpansionError) Error() string {
	where := e.Path
	if where == "" {
		where = "<root>"
	}
	if e.Expression == "" {
		return fmt.Sprintf("expand template at %s: %v", where, e.Err)
	}
	return fmt.Sprintf("expand template at %s: %s: %v", where, e.Expression, e.Err)
}

func (e *ExpansionError) Unwrap() error {
	return e.Err
}
