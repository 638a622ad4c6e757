package compiler

import "fmt"

// ParseError is a single compile-time diagnostic in the exact wire format
// consumers see: `[line N] Error at <lexeme|end>: <msg>`. The compiler
// aggregates every ParseError it raises (via go-multierror) rather than
// stopping at the first one, then reports overall failure once compilation
// finishes.
type ParseError struct {
	Line    int32
	Where   string // "" (EOF uses "end", identified tokens use their lexeme)
	Message string
}

func (e ParseError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at %s: %s", e.Line, e.Where, e.Message)
}

// DeveloperError marks an internal invariant violation that should be
// unreachable given a correct compiler (e.g. an undefined opcode). It is
// never something source text can trigger.
type DeveloperError struct {
	Message string
}

func (e DeveloperError) Error() string {
	return fmt.Sprintf("🤖 DeveloperError: %s", e.Message)
}
