// Package diag defines the compile-time error taxonomy shared by the
// analysis and code-generation layers. The registries themselves return
// "not found" sentinels and never raise; it is the caller that decides
// whether a miss is fatal and converts it into one of these errors.
package diag

import (
	"fmt"

	"auriga/internal/token"
)

// Code classifies a diagnostic.
type Code int

const (
	UnresolvedIdentifier Code = iota // symbol lookup miss in a value-requiring context
	UnresolvedMethod                 // class-chain method lookup miss
	UnsupportedImport                // unregistered module or Unsupported strategy
	MalformedCallSite                // argument arity/shape mismatch during lowering
	InheritanceCycle                 // cyclic class registration detected during ascent
	SyntaxError                      // frontend parse failure
)

func (c Code) String() string {
	switch c {
	case UnresolvedIdentifier:
		return "unresolved identifier"
	case UnresolvedMethod:
		return "unresolved method"
	case UnsupportedImport:
		return "unsupported import"
	case MalformedCallSite:
		return "malformed call site"
	case InheritanceCycle:
		return "inheritance cycle"
	case SyntaxError:
		return "syntax error"
	default:
		return "error"
	}
}

// Error is a positioned compile-time diagnostic.
type Error struct {
	Pos  token.Position
	Code Code
	Msg  string
}

func (e Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Errorf builds a positioned diagnostic.
func Errorf(pos token.Position, code Code, format string, args ...interface{}) Error {
	return Error{
		Pos:  pos,
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}
