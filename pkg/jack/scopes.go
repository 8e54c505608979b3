package jack

import "fmt"

// ----------------------------------------------------------------------------
// Symbol tables

// The language has exactly two levels of lexical scope: the class and the subroutine
// (no nested blocks exist beyond function bodies), so a flat mapping per scope is all
// that's needed. Each entry records the kind of storage backing the name, its declared
// type and a slot index: indices are dense per-kind counters assigned in declaration
// order, which is what turns names into stable VM segment offsets.

// A Symbol is a single resolved name: where it lives, what it holds, which slot it has.
type Symbol struct {
	Kind  SymbolKind // The storage backing the name, determines the VM segment
	Type  DataType   // The declared type
	Index uint16     // Dense per-kind slot, assigned in declaration order
}

type SymbolKind string // Enum for the four storage kinds of the language

const (
	StaticSymbol   SymbolKind = "static"   // Class scope, shared by the whole program
	FieldSymbol    SymbolKind = "field"    // Class scope, one slot per object instance
	ArgumentSymbol SymbolKind = "argument" // Routine scope, pushed by the caller
	LocalSymbol    SymbolKind = "local"    // Routine scope, zero-initialized at entry
)

// ----------------------------------------------------------------------------
// Class scope

// The ClassScope indexes the static & field variables of one class, with a running
// counter per kind. Declaring the same name twice in the class is fatal.
type ClassScope struct {
	class   string
	entries map[string]Symbol
	statics uint16
	fields  uint16
}

// Builds the scope for 'class', walking its variable declarations in order.
func NewClassScope(class Class) (*ClassScope, error) {
	scope := &ClassScope{class: class.Name, entries: map[string]Symbol{}}

	for _, variable := range class.Vars {
		if _, declared := scope.entries[variable.Name]; declared {
			return nil, &SemanticError{Class: class.Name,
				Message: fmt.Sprintf("duplicate class variable '%s'", variable.Name)}
		}

		switch variable.Kind {
		case Static:
			scope.entries[variable.Name] = Symbol{Kind: StaticSymbol, Type: variable.Type, Index: scope.statics}
			scope.statics++
		case Field:
			scope.entries[variable.Name] = Symbol{Kind: FieldSymbol, Type: variable.Type, Index: scope.fields}
			scope.fields++
		}
	}

	return scope, nil
}

// How many per-instance slots an object of this class occupies, what the
// constructor hands to the allocator.
func (cs *ClassScope) FieldCount() uint16 { return cs.fields }

// ----------------------------------------------------------------------------
// Routine scope

// The RoutineScope indexes the arguments and locals of one subroutine, rebuilt from
// scratch for every subroutine. Methods pre-seed argument slot 0 with the receiver
// ('this' of the enclosing class's type), shifting the user arguments by one;
// constructors and functions do not.
type RoutineScope struct {
	routine string
	entries map[string]Symbol
	args    uint16
	locals  uint16
}

// Builds the scope for 'subroutine' of the class named 'class', walking the
// parameters first and the local declarations after.
func NewRoutineScope(class string, subroutine Subroutine) (*RoutineScope, error) {
	scope := &RoutineScope{routine: subroutine.Name, entries: map[string]Symbol{}}

	if subroutine.Kind == Method {
		scope.entries["this"] = Symbol{Kind: ArgumentSymbol, Type: DataType{Main: ClassRef, Class: class}}
		scope.args = 1
	}

	for _, param := range subroutine.Params {
		if _, declared := scope.entries[param.Name]; declared {
			return nil, &SemanticError{Class: class, Routine: subroutine.Name,
				Message: fmt.Sprintf("duplicate parameter '%s'", param.Name)}
		}
		scope.entries[param.Name] = Symbol{Kind: ArgumentSymbol, Type: param.Type, Index: scope.args}
		scope.args++
	}

	for _, local := range subroutine.Locals {
		if _, declared := scope.entries[local.Name]; declared {
			return nil, &SemanticError{Class: class, Routine: subroutine.Name,
				Message: fmt.Sprintf("duplicate local variable '%s'", local.Name)}
		}
		scope.entries[local.Name] = Symbol{Kind: LocalSymbol, Type: local.Type, Index: scope.locals}
		scope.locals++
	}

	return scope, nil
}

// How many local slots the subroutine owns, what goes on its 'function' IR entry.
func (rs *RoutineScope) LocalCount() uint16 { return rs.locals }

// ----------------------------------------------------------------------------
// Scope table

// The ScopeTable pairs the class scope with the (current) routine scope and performs
// the two-level resolution: routine scope first, class scope as fallback. The routine
// half is swapped out as the Lowerer moves from one subroutine to the next.
type ScopeTable struct {
	Class   *ClassScope
	Routine *RoutineScope
}

// Resolves 'name' against the routine scope first and the class scope second,
// following the "comma ok" idiom of the built-in map.
func (st *ScopeTable) Resolve(name string) (Symbol, bool) {
	if st.Routine != nil {
		if symbol, found := st.Routine.entries[name]; found {
			return symbol, true
		}
	}
	if st.Class != nil {
		if symbol, found := st.Class.entries[name]; found {
			return symbol, true
		}
	}
	return Symbol{}, false
}
