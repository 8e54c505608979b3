package jack

import "fmt"

// ----------------------------------------------------------------------------
// Front end errors

// Every error raised by the front end is fatal for the compilation of its unit, but
// each one pinpoints where it happened: lex and parse errors carry the line/column
// of the offending input, semantic errors carry the class/routine being lowered.

// A SyntaxError is raised by the Lexer and the Parser for malformed input.
type SyntaxError struct {
	Line, Column int    // 1-based position of the offending character/token
	Expected     string // What the grammar wanted at this point
	Found        string // What was actually there
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: expected %s, found %s", e.Line, e.Column, e.Expected, e.Found)
}

// A SemanticError is raised by the scope builder and the Lowerer for well-formed
// input that cannot be compiled (undeclared identifiers, duplicate declarations, ...).
type SemanticError struct {
	Class   string // The class being compiled
	Routine string // The subroutine being compiled ("" for class-level errors)
	Message string
}

func (e *SemanticError) Error() string {
	if e.Routine == "" {
		return fmt.Sprintf("in class '%s': %s", e.Class, e.Message)
	}
	return fmt.Sprintf("in '%s.%s': %s", e.Class, e.Routine, e.Message)
}
