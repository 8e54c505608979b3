package jack

import (
	"fmt"

	"jack2hack.dev/toolchain/pkg/vm"
)

// Maps the storage kind of a resolved name onto the VM segment backing it.
var segmentFor = map[SymbolKind]vm.SegmentType{
	StaticSymbol:   vm.Static,
	FieldSymbol:    vm.This,
	ArgumentSymbol: vm.Argument,
	LocalSymbol:    vm.Local,
}

// ----------------------------------------------------------------------------
// Jack Lowerer

// The Lowerer takes a list of 'jack.Class' and produces its 'vm.Program' counterpart.
//
// Classes are processed independently, in the order given (the caller guarantees a
// deterministic one: the driver puts the OS classes first and sorts the user ones).
// Since we get a tree-like struct we are able to traverse it using a simple Depth
// First Search algorithm: for each construct visited we produce a list of
// 'vm.Operation' as counterpart, much like a recursive descent parser but for lowering.
//
// The mutable state is small and rebuilt along the walk:
//   - the scope table (class half per class, routine half per subroutine)
//   - a per-routine counter manufacturing unique control-flow labels
type Lowerer struct {
	classes []Class

	scopes  ScopeTable // Resolution of names, routine scope first then class scope
	class   string     // The class being lowered (receiver-less calls dispatch on it)
	routine string     // The subroutine being lowered, threaded into diagnostics
	nLabels uint       // Per-routine counter for the if/while label families
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument class list to be not nil nor empty.
func NewLowerer(classes []Class) *Lowerer {
	return &Lowerer{classes: classes}
}

// Triggers the lowering process. It iterates class by class and then statement by
// statement, recursively calling the necessary helper function based on the construct
// type, this means the AST is visited in DFS order.
func (l *Lowerer) Lower() (vm.Program, error) {
	if len(l.classes) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	program := vm.Program{}
	for _, class := range l.classes {
		operations, err := l.HandleClass(class)
		if err != nil {
			return nil, err
		}
		program = append(program, vm.Module{Name: class.Name, Operations: operations})
	}

	return program, nil
}

// Specialized function to convert a 'jack.Class' node to a list of 'vm.Operation'.
func (l *Lowerer) HandleClass(class Class) ([]vm.Operation, error) {
	classScope, err := NewClassScope(class)
	if err != nil {
		return nil, err
	}
	l.scopes = ScopeTable{Class: classScope}
	l.class = class.Name

	operations := []vm.Operation{}
	for _, subroutine := range class.Subroutines {
		ops, err := l.HandleSubroutine(subroutine)
		if err != nil {
			return nil, err
		}
		operations = append(operations, ops...)
	}

	return operations, nil
}

// Specialized function to convert a 'jack.Subroutine' node to a list of 'vm.Operation'.
//
// The entry declares the local count, then the prologue depends on the subroutine kind:
//   - a method receives the object instance as hidden argument 0 and installs it as THIS
//   - a constructor asks the allocator for one slot per field and installs the fresh
//     object as THIS (the caller provides no receiver, the constructor synthesizes it)
//   - a function has no prologue beyond the entry
func (l *Lowerer) HandleSubroutine(subroutine Subroutine) ([]vm.Operation, error) {
	routineScope, err := NewRoutineScope(l.class, subroutine)
	if err != nil {
		return nil, err
	}
	l.scopes.Routine = routineScope
	l.routine = subroutine.Name
	l.nLabels = 0

	operations := []vm.Operation{
		vm.FuncDecl{Name: fmt.Sprintf("%s.%s", l.class, subroutine.Name), NLocals: routineScope.LocalCount()},
	}

	switch subroutine.Kind {
	case Method:
		operations = append(operations,
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 0},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		)
	case Constructor:
		operations = append(operations,
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: l.scopes.Class.FieldCount()},
			vm.FuncCallOp{Name: "Memory.alloc", NArgs: 1},
			vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0},
		)
	}

	for _, statement := range subroutine.Body {
		ops, err := l.HandleStatement(statement)
		if err != nil {
			return nil, err
		}
		operations = append(operations, ops...)
	}

	return operations, nil
}

// Generalized function to lower multiple statement types returning a 'vm.Operation' list.
func (l *Lowerer) HandleStatement(statement Statement) ([]vm.Operation, error) {
	switch tStmt := statement.(type) {
	case LetStmt:
		return l.HandleLetStmt(tStmt)
	case IfStmt:
		return l.HandleIfStmt(tStmt)
	case WhileStmt:
		return l.HandleWhileStmt(tStmt)
	case DoStmt:
		return l.HandleDoStmt(tStmt)
	case ReturnStmt:
		return l.HandleReturnStmt(tStmt)
	default:
		return nil, l.semanticErr("unrecognized statement: %T", statement)
	}
}

// Specialized function to convert a 'jack.LetStmt' to a list of 'vm.Operation'.
//
// The plain form evaluates the RHS and pops it straight into the variable's slot.
// The indexed form computes the cell address first, then evaluates the RHS: since the
// evaluation may itself go through THAT (nested array reads), the value transits
// through 'temp 0' while the address is installed into the THAT base. This ordering
// is load bearing, do not "simplify" it.
func (l *Lowerer) HandleLetStmt(statement LetStmt) ([]vm.Operation, error) {
	symbol, found := l.scopes.Resolve(statement.Name)
	if !found {
		return nil, l.semanticErr("undeclared identifier '%s'", statement.Name)
	}

	if statement.Index == nil {
		operations, err := l.HandleExpression(statement.Rhs)
		if err != nil {
			return nil, err
		}
		return append(operations,
			vm.MemoryOp{Operation: vm.Pop, Segment: segmentFor[symbol.Kind], Offset: symbol.Index},
		), nil
	}

	// push base; evaluate index; add
	operations := []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: segmentFor[symbol.Kind], Offset: symbol.Index},
	}
	indexOps, err := l.HandleExpression(*statement.Index)
	if err != nil {
		return nil, err
	}
	operations = append(append(operations, indexOps...), vm.ArithmeticOp{Operation: vm.Add})

	// evaluate the RHS, park it on temp 0, install the address into THAT, write back
	rhsOps, err := l.HandleExpression(statement.Rhs)
	if err != nil {
		return nil, err
	}
	return append(append(operations, rhsOps...),
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 0},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.That, Offset: 0},
	), nil
}

// Specialized function to convert a 'jack.IfStmt' to a list of 'vm.Operation'.
//
// Both branches share a single layout whether the else block exists or not, and the
// second 'goto IfDone$k' right before the landing label is redundant on purpose: the
// emitted shape is part of the compiler's contract (layout parity with the reference
// output), so it is produced verbatim.
func (l *Lowerer) HandleIfStmt(statement IfStmt) ([]vm.Operation, error) {
	k := l.nLabels
	l.nLabels++

	ifTrue := fmt.Sprintf("IfTrue$%d", k)
	ifFalse := fmt.Sprintf("IfFalse$%d", k)
	ifDone := fmt.Sprintf("IfDone$%d", k)

	operations, err := l.HandleExpression(statement.Condition)
	if err != nil {
		return nil, err
	}
	operations = append(operations,
		vm.GotoOp{Jump: vm.Conditional, Label: ifTrue},
		vm.GotoOp{Jump: vm.Unconditional, Label: ifFalse},
		vm.LabelDecl{Name: ifTrue},
	)

	thenOps, err := l.HandleStatements(statement.Then)
	if err != nil {
		return nil, err
	}
	operations = append(append(operations, thenOps...),
		vm.GotoOp{Jump: vm.Unconditional, Label: ifDone},
		vm.LabelDecl{Name: ifFalse},
	)

	elseOps, err := l.HandleStatements(statement.Else)
	if err != nil {
		return nil, err
	}
	return append(append(operations, elseOps...),
		vm.GotoOp{Jump: vm.Unconditional, Label: ifDone},
		vm.LabelDecl{Name: ifDone},
	), nil
}

// Specialized function to convert a 'jack.WhileStmt' to a list of 'vm.Operation'.
func (l *Lowerer) HandleWhileStmt(statement WhileStmt) ([]vm.Operation, error) {
	k := l.nLabels
	l.nLabels++

	condition := fmt.Sprintf("WhileCondition$%d", k)
	statements := fmt.Sprintf("WhileStatements$%d", k)
	done := fmt.Sprintf("WhileDone$%d", k)

	operations := []vm.Operation{vm.LabelDecl{Name: condition}}
	condOps, err := l.HandleExpression(statement.Condition)
	if err != nil {
		return nil, err
	}
	operations = append(append(operations, condOps...),
		vm.GotoOp{Jump: vm.Conditional, Label: statements},
		vm.GotoOp{Jump: vm.Unconditional, Label: done},
		vm.LabelDecl{Name: statements},
	)

	bodyOps, err := l.HandleStatements(statement.Body)
	if err != nil {
		return nil, err
	}
	return append(append(operations, bodyOps...),
		vm.GotoOp{Jump: vm.Unconditional, Label: condition},
		vm.LabelDecl{Name: done},
	), nil
}

// Specialized function to convert a 'jack.DoStmt' to a list of 'vm.Operation'.
// Do statements discard the callee's result, whatever was returned gets dropped.
func (l *Lowerer) HandleDoStmt(statement DoStmt) ([]vm.Operation, error) {
	operations, err := l.HandleCallTerm(statement.Call)
	if err != nil {
		return nil, err
	}

	return append(operations, vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 0}), nil
}

// Specialized function to convert a 'jack.ReturnStmt' to a list of 'vm.Operation'.
// Every function returns exactly one value: a bare 'return;' pushes the zero filler
// the caller will discard.
func (l *Lowerer) HandleReturnStmt(statement ReturnStmt) ([]vm.Operation, error) {
	if statement.Expr == nil {
		return []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
		}, nil
	}

	operations, err := l.HandleExpression(*statement.Expr)
	if err != nil {
		return nil, err
	}
	return append(operations, vm.ReturnOp{}), nil
}

// Lowers a statement block, concatenating the operations in program order.
func (l *Lowerer) HandleStatements(statements []Statement) ([]vm.Operation, error) {
	operations := []vm.Operation{}
	for _, statement := range statements {
		ops, err := l.HandleStatement(statement)
		if err != nil {
			return nil, err
		}
		operations = append(operations, ops...)
	}
	return operations, nil
}

// ----------------------------------------------------------------------------
// Expressions

// Lowers an expression: the leading term first, then push-term-and-apply-op for every
// trailing pair, strictly left-to-right. '*' and '/' have no VM opcode and lower to
// the Math library calls instead.
func (l *Lowerer) HandleExpression(expression Expression) ([]vm.Operation, error) {
	operations, err := l.HandleTerm(expression.First)
	if err != nil {
		return nil, err
	}

	for _, pair := range expression.Rest {
		termOps, err := l.HandleTerm(pair.Term)
		if err != nil {
			return nil, err
		}
		operations = append(operations, termOps...)

		switch pair.Op {
		case Plus:
			operations = append(operations, vm.ArithmeticOp{Operation: vm.Add})
		case Minus:
			operations = append(operations, vm.ArithmeticOp{Operation: vm.Sub})
		case LessThan:
			operations = append(operations, vm.ArithmeticOp{Operation: vm.Lt})
		case GreatThan:
			operations = append(operations, vm.ArithmeticOp{Operation: vm.Gt})
		case Equal:
			operations = append(operations, vm.ArithmeticOp{Operation: vm.Eq})
		case BitAnd:
			operations = append(operations, vm.ArithmeticOp{Operation: vm.And})
		case BitOr:
			operations = append(operations, vm.ArithmeticOp{Operation: vm.Or})
		case Multiply:
			operations = append(operations, vm.FuncCallOp{Name: "Math.multiply", NArgs: 2})
		case Divide:
			operations = append(operations, vm.FuncCallOp{Name: "Math.divide", NArgs: 2})
		default:
			return nil, l.semanticErr("unrecognized binary operator '%s'", pair.Op)
		}
	}

	return operations, nil
}

// Generalized function to lower multiple term types returning a 'vm.Operation' list.
func (l *Lowerer) HandleTerm(term Term) ([]vm.Operation, error) {
	switch tTerm := term.(type) {
	case IntConstTerm:
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: tTerm.Value}}, nil

	case StrConstTerm:
		return l.HandleStrConstTerm(tTerm), nil

	case KeywordTerm:
		return l.HandleKeywordTerm(tTerm)

	case VarTerm:
		symbol, found := l.scopes.Resolve(tTerm.Name)
		if !found {
			return nil, l.semanticErr("undeclared identifier '%s'", tTerm.Name)
		}
		return []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: segmentFor[symbol.Kind], Offset: symbol.Index},
		}, nil

	case ArrayTerm:
		return l.HandleArrayTerm(tTerm)

	case ParenTerm: // The grouping did its job during parsing, lower the inner expression
		return l.HandleExpression(tTerm.Inner)

	case UnaryTerm:
		operations, err := l.HandleTerm(tTerm.Operand)
		if err != nil {
			return nil, err
		}
		switch tTerm.Op {
		case Negate:
			return append(operations, vm.ArithmeticOp{Operation: vm.Neg}), nil
		case BitNot:
			return append(operations, vm.ArithmeticOp{Operation: vm.Not}), nil
		}
		return nil, l.semanticErr("unrecognized unary operator '%s'", tTerm.Op)

	case CallTerm:
		return l.HandleCallTerm(tTerm)

	default:
		return nil, l.semanticErr("unrecognized term: %T", term)
	}
}

// A string literal builds a String object at runtime: one allocation sized on the
// literal's length followed by one appendChar per character.
func (l *Lowerer) HandleStrConstTerm(term StrConstTerm) []vm.Operation {
	chars := []rune(term.Value)

	operations := []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(len(chars))},
		vm.FuncCallOp{Name: "String.new", NArgs: 1},
	}
	for _, char := range chars {
		operations = append(operations,
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: uint16(char)},
			vm.FuncCallOp{Name: "String.appendChar", NArgs: 2},
		)
	}

	return operations
}

// The four keyword constants: 'true' is all ones (1 negated), 'false' and 'null'
// are zero, 'this' reads the installed receiver base.
func (l *Lowerer) HandleKeywordTerm(term KeywordTerm) ([]vm.Operation, error) {
	switch term.Keyword {
	case "true":
		return []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
			vm.ArithmeticOp{Operation: vm.Neg},
		}, nil
	case "false", "null":
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0}}, nil
	case "this":
		return []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}}, nil
	default:
		return nil, l.semanticErr("unrecognized keyword constant '%s'", term.Keyword)
	}
}

// An array read computes base + index, installs the address into the THAT base and
// reads through it.
func (l *Lowerer) HandleArrayTerm(term ArrayTerm) ([]vm.Operation, error) {
	symbol, found := l.scopes.Resolve(term.Name)
	if !found {
		return nil, l.semanticErr("undeclared identifier '%s'", term.Name)
	}

	operations := []vm.Operation{
		vm.MemoryOp{Operation: vm.Push, Segment: segmentFor[symbol.Kind], Offset: symbol.Index},
	}
	indexOps, err := l.HandleExpression(term.Index)
	if err != nil {
		return nil, err
	}

	return append(append(operations, indexOps...),
		vm.ArithmeticOp{Operation: vm.Add},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 1},
		vm.MemoryOp{Operation: vm.Push, Segment: vm.That, Offset: 0},
	), nil
}

// Specialized function to convert a 'jack.CallTerm' to a list of 'vm.Operation'.
//
// The receiver is disambiguated through the symbol tables, never through lexical
// conventions like capitalization:
//   - no receiver: a method call on the current object, 'this' rides as argument 0
//   - a receiver that resolves to a variable: a method call on that object, the
//     variable's value rides as argument 0 and the callee class is its declared type
//   - anything else: the receiver names a class and this is a plain function
//     (or constructor) call, no hidden argument
func (l *Lowerer) HandleCallTerm(call CallTerm) ([]vm.Operation, error) {
	arguments := []vm.Operation{}
	for _, argument := range call.Args {
		ops, err := l.HandleExpression(argument)
		if err != nil {
			return nil, err
		}
		arguments = append(arguments, ops...)
	}
	argc := uint16(len(call.Args))

	if call.Receiver == "" {
		operations := []vm.Operation{vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 0}}
		return append(append(operations, arguments...),
			vm.FuncCallOp{Name: fmt.Sprintf("%s.%s", l.class, call.Name), NArgs: argc + 1},
		), nil
	}

	if symbol, found := l.scopes.Resolve(call.Receiver); found {
		if symbol.Type.Main != ClassRef {
			return nil, l.semanticErr("'%s' is of type '%s' and has no methods", call.Receiver, symbol.Type.Main)
		}
		operations := []vm.Operation{
			vm.MemoryOp{Operation: vm.Push, Segment: segmentFor[symbol.Kind], Offset: symbol.Index},
		}
		return append(append(operations, arguments...),
			vm.FuncCallOp{Name: fmt.Sprintf("%s.%s", symbol.Type.Class, call.Name), NArgs: argc + 1},
		), nil
	}

	return append(arguments,
		vm.FuncCallOp{Name: fmt.Sprintf("%s.%s", call.Receiver, call.Name), NArgs: argc},
	), nil
}

// Builds a SemanticError pinned to the class/routine being lowered.
func (l *Lowerer) semanticErr(format string, args ...any) error {
	return &SemanticError{Class: l.class, Routine: l.routine, Message: fmt.Sprintf(format, args...)}
}
