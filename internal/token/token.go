package token

import "fmt"

// Position is a source location reported in diagnostics.
// Lines and columns are 1-based; a zero Position means "unknown".
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position carries real location info.
func (p Position) IsValid() bool {
	return p.Line > 0
}
