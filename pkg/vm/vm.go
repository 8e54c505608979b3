package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level structs such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as files or modules or also classes.

// A VM Program is an ordered set of modules. Each Jack class is translated to its own
// module (just like a Java .class file) that can be handled as its own translation unit
// during the compilation or lowering phases. The order of the modules is meaningful:
// static slot naming and label numbering in the lowered assembly depend on it, so the
// producer (the driver, the standalone cmds) is responsible for a deterministic order.
type Program []Module

// A VM Module is a linear list of VM operations plus the name of the compilation unit
// it originates from, the latter is what scopes the module's 'static' segment.
type Module struct {
	Name       string      // Compilation unit name (the Jack class, the .vm file basename)
	Operations []Operation // The operations of the unit, in program order
}

// Used to put together all operations in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operations on the
// stack. We could either push a new value taken from the specified segment location on
// the stack's top or take the stack's top and save its value at the specified segment
// location. Popping to the 'constant' segment is meaningless and rejected downstream.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations (R5..R12)
	Constant SegmentType = "constant" // Virtual segment used to access numeric constants (push only)

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables (per unit)
	Argument SegmentType = "argument" // Real segment used to store function's arguments

	This    SegmentType = "this"    // Virtual segment addressed through the THIS base pointer
	That    SegmentType = "that"    // Virtual segment addressed through the THAT base pointer
	Pointer SegmentType = "pointer" // Real segment w/ 2 locations aliasing the THIS and THAT bases
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of an Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operations available.
// In particular each operation acts directly on the top of the stack, of course we have
// both unary and binary operations, the specific management of each op will be handled
// in the lowering phase.
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Branching Op(s)

// Branching in the VM language comes in three flavors: a label declaration, an
// unconditional jump and a conditional jump that consumes the top of the stack and
// jumps only when the popped value is non-zero. Labels are function-local: during
// lowering they are rewritten as '<function>$<label>' to keep the flat assembly
// symbol space collision-free.

type LabelDecl struct {
	Name string // The symbol/ident chosen by the compiler or the user for the label
}

type GotoOp struct {
	Jump  JumpType // Either conditional ('if-goto') or unconditional ('goto')
	Label string   // The destination label (function-local scope)
}

type JumpType string // Enum to manage the jump flavors allowed for a GotoOp

const (
	Unconditional JumpType = "goto"
	Conditional   JumpType = "if-goto"
)

// ----------------------------------------------------------------------------
// Function Op(s)

// Function handling covers the three remaining operations: the function entry point
// declaration (w/ the number of local variables to zero-initialize), the call (w/ the
// number of arguments already pushed by the caller) and the return.

type FuncDecl struct {
	Name    string // Fully qualified function name (e.g. 'Main.main')
	NLocals uint16 // How many local variables the function owns
}

type FuncCallOp struct {
	Name  string // Fully qualified function name of the callee
	NArgs uint16 // How many arguments have been pushed right before the call
}

type ReturnOp struct{}
