package vm

import (
	"fmt"
	"strconv"

	"jack2hack.dev/toolchain/pkg/asm"
)

// ----------------------------------------------------------------------------
// Runtime memory map

// The lowered code targets the standard VM runtime layout of the Hack computer:
// SP lives at address 0, the LCL/ARG/THIS/THAT segment bases at 1..4, the 'temp'
// segment occupies R5..R12, R13/R14 are free scratch registers for the sequences
// below and the stack itself grows upward from address 256.

// Resolves the four indirectly-addressed segments to their base pointer symbol.
var segmentBase = map[SegmentType]string{
	Local:    "LCL",
	Argument: "ARG",
	This:     "THIS",
	That:     "THAT",
}

// Resolves the two 'pointer' slots to the base pointer they alias.
var pointerAlias = [2]string{"THIS", "THAT"}

// Shorthand constructors, the lowering sequences below would be unreadable otherwise.
func at(symbol string) asm.Instruction { return asm.AInstruction{Location: symbol} }

func atOffset(offset uint16) asm.Instruction {
	return asm.AInstruction{Location: strconv.FormatUint(uint64(offset), 10)}
}

func compute(dest, comp, jump string) asm.Instruction {
	return asm.CInstruction{Dest: dest, Comp: comp, Jump: jump}
}

// Writes the D register on the stack's top and advances the stack pointer.
func pushDReg() []asm.Instruction {
	return []asm.Instruction{at("SP"), compute("A", "M", ""), compute("M", "D", ""), at("SP"), compute("M", "M+1", "")}
}

// Retreats the stack pointer and reads the (former) stack's top into D.
func popToDReg() []asm.Instruction {
	return []asm.Instruction{at("SP"), compute("AM", "M-1", ""), compute("D", "M", "")}
}

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a 'vm.Program' and produces its 'asm.Program' counterpart.
//
// This is a whole-program pass: the modules are walked in the order given (the caller
// guarantees a deterministic one) and every operation is expanded into the instruction
// sequence that implements it on the runtime memory map above. The Lowerer keeps just
// enough state to keep the flat assembly symbol space collision free:
//   - the current translation unit, scoping the 'static' segment symbols ('<unit>.<i>')
//   - the enclosing function name, scoping labels ('<function>$<label>')
//   - a monotonic counter for the comparison branch labels
//   - a per-callee call-depth map for the return address labels ('<callee>$ret.<n>')
type Lowerer struct {
	program   Program
	bootstrap bool

	unit      string            // Current translation unit (scopes the static segment)
	function  string            // Enclosing function (scopes labels and comparisons)
	nCompare  uint              // Monotonic counter to disambiguate comparison labels
	callDepth map[string]uint16 // Per-callee counter to disambiguate return labels
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// When 'bootstrap' is set the output is prefixed with the whole-program prelude
// that initializes the stack pointer and transfers control to 'Sys.init'.
func NewLowerer(p Program, bootstrap bool) *Lowerer {
	lowerer := &Lowerer{program: p, bootstrap: bootstrap, callDepth: map[string]uint16{}}
	if len(p) > 0 { // Loose operations lowered before Lower() runs (e.g. the REPL
		lowerer.unit = p[0].Name // feeding HandleOperation directly) still need a unit
	}
	return lowerer
}

// Triggers the lowering process. It iterates module by module and operation by
// operation, calling the specialized helper function based on the operation type.
func (l *Lowerer) Lower() (asm.Program, error) {
	lowered := asm.Program{}

	if len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	if l.bootstrap {
		lowered = append(lowered, l.Bootstrap()...)
	}

	for _, module := range l.program {
		l.unit = module.Name

		for _, operation := range module.Operations {
			instructions, err := l.HandleOperation(operation)
			if err != nil {
				return nil, fmt.Errorf("in unit '%s', function '%s': %w", l.unit, l.function, err)
			}
			lowered = append(lowered, instructions...)
		}
	}

	return lowered, nil
}

// Emits the whole-program prelude: the stack pointer is anchored at address 256 and
// control is handed to 'Sys.init' with a regular call (so that the very first frame
// is well formed too). Should 'Sys.init' ever return, the trailing loop keeps the
// machine parked instead of sliding into the first function's body.
func (l *Lowerer) Bootstrap() []asm.Instruction {
	prelude := []asm.Instruction{at("256"), compute("D", "A", ""), at("SP"), compute("M", "D", "")}
	prelude = append(prelude, l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0})...)
	return append(prelude,
		asm.LabelDecl{Name: "BOOTSTRAP_END"},
		at("BOOTSTRAP_END"), compute("", "0", "JMP"),
	)
}

// Generalized function to lower a single operation, dispatching on its type.
func (l *Lowerer) HandleOperation(operation Operation) ([]asm.Instruction, error) {
	switch tOperation := operation.(type) {
	case MemoryOp:
		return l.HandleMemoryOp(tOperation)
	case ArithmeticOp:
		return l.HandleArithmeticOp(tOperation)
	case LabelDecl:
		return l.HandleLabelDecl(tOperation), nil
	case GotoOp:
		return l.HandleGotoOp(tOperation), nil
	case FuncDecl:
		return l.HandleFuncDecl(tOperation), nil
	case FuncCallOp:
		return l.HandleFuncCallOp(tOperation), nil
	case ReturnOp:
		return l.HandleReturnOp(tOperation), nil
	default:
		return nil, fmt.Errorf("unrecognized operation '%T'", operation)
	}
}

// Specialized function to lower a 'vm.MemoryOp' to its 'asm.Instruction' sequence.
//
// The effective address depends on the segment: 'local', 'argument', 'this' and 'that'
// are addressed indirectly through their base pointer, 'temp' maps directly onto the
// R5..R12 registers, 'pointer' aliases the THIS/THAT bases themselves, 'static' becomes
// the assembler symbol '<unit>.<offset>' and 'constant' is a pure immediate (push only).
func (l *Lowerer) HandleMemoryOp(op MemoryOp) ([]asm.Instruction, error) {
	// Bound checking on segments that do have an upperbound to the allowed offsets
	if op.Segment == Pointer && op.Offset > 1 {
		return nil, fmt.Errorf("invalid 'pointer' offset, got %d", op.Offset)
	}
	if op.Segment == Temp && op.Offset > 7 {
		return nil, fmt.Errorf("invalid 'temp' offset, got %d", op.Offset)
	}

	if op.Operation == Push {
		switch op.Segment {
		case Constant:
			return append([]asm.Instruction{atOffset(op.Offset), compute("D", "A", "")}, pushDReg()...), nil
		case Local, Argument, This, That:
			return append([]asm.Instruction{
				atOffset(op.Offset), compute("D", "A", ""),
				at(segmentBase[op.Segment]), compute("A", "D+M", ""), compute("D", "M", ""),
			}, pushDReg()...), nil
		case Temp:
			return append([]asm.Instruction{
				at(fmt.Sprintf("R%d", 5+op.Offset)), compute("D", "M", ""),
			}, pushDReg()...), nil
		case Pointer:
			return append([]asm.Instruction{
				at(pointerAlias[op.Offset]), compute("D", "M", ""),
			}, pushDReg()...), nil
		case Static:
			return append([]asm.Instruction{
				at(fmt.Sprintf("%s.%d", l.unit, op.Offset)), compute("D", "M", ""),
			}, pushDReg()...), nil
		}
		return nil, fmt.Errorf("unrecognized segment '%s'", op.Segment)
	}

	if op.Operation == Pop {
		switch op.Segment {
		case Constant: // The 'constant' segment is virtual, there's no location to write to
			return nil, fmt.Errorf("unable to pop to the 'constant' segment")
		case Local, Argument, This, That:
			// The effective address is computed first and parked on R13, since both
			// the address computation and the pop itself need the D register.
			return append(append([]asm.Instruction{
				atOffset(op.Offset), compute("D", "A", ""),
				at(segmentBase[op.Segment]), compute("D", "D+M", ""),
				at("R13"), compute("M", "D", ""),
			}, popToDReg()...),
				at("R13"), compute("A", "M", ""), compute("M", "D", ""),
			), nil
		case Temp:
			return append(popToDReg(), at(fmt.Sprintf("R%d", 5+op.Offset)), compute("M", "D", "")), nil
		case Pointer:
			return append(popToDReg(), at(pointerAlias[op.Offset]), compute("M", "D", "")), nil
		case Static:
			return append(popToDReg(), at(fmt.Sprintf("%s.%d", l.unit, op.Offset)), compute("M", "D", "")), nil
		}
		return nil, fmt.Errorf("unrecognized segment '%s'", op.Segment)
	}

	return nil, fmt.Errorf("unrecognized memory operation '%s'", op.Operation)
}

// Specialized function to lower a 'vm.ArithmeticOp' to its 'asm.Instruction' sequence.
//
// Binary operations pop two values and write back one, unary operations rewrite the
// stack's top in place. Comparisons subtract the two operands and fork to a dedicated
// "push true" section through a pair of labels made unique by the 'nCompare' counter.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) ([]asm.Instruction, error) {
	switch op.Operation {
	case Add, Sub, And, Or:
		write := map[ArithOpType]string{Add: "D+M", Sub: "M-D", And: "D&M", Or: "D|M"}[op.Operation]
		return append(append(popToDReg(),
			at("SP"), compute("AM", "M-1", ""), compute("M", write, "")),
			at("SP"), compute("M", "M+1", ""),
		), nil

	case Neg, Not:
		write := map[ArithOpType]string{Neg: "-M", Not: "!M"}[op.Operation]
		return []asm.Instruction{
			at("SP"), compute("AM", "M-1", ""), compute("M", write, ""),
			at("SP"), compute("M", "M+1", ""),
		}, nil

	case Eq, Lt, Gt:
		jump := map[ArithOpType]string{Eq: "JEQ", Lt: "JLT", Gt: "JGT"}[op.Operation]
		pushTrue := fmt.Sprintf("%s.PUSH_TRUE.%d", l.labelScope(), l.nCompare)
		noOp := fmt.Sprintf("%s.NO_OP.%d", l.labelScope(), l.nCompare)
		l.nCompare++

		return append(append(popToDReg(),
			at("SP"), compute("AM", "M-1", ""), compute("D", "M-D", ""),
			// True branch writes -1 (all ones) on the stack's top, the fall
			// through writes 0, both paths re-join on the no-op label.
			at(pushTrue), compute("", "D", jump),
			at("SP"), compute("A", "M", ""), compute("M", "0", ""),
			at(noOp), compute("", "0", "JMP"),
			asm.LabelDecl{Name: pushTrue},
			at("SP"), compute("A", "M", ""), compute("M", "-1", "")),
			asm.LabelDecl{Name: noOp},
			at("SP"), compute("M", "M+1", ""),
		), nil
	}

	return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
}

// Specialized function to lower a 'vm.LabelDecl' to its 'asm.Instruction' counterpart.
func (l *Lowerer) HandleLabelDecl(op LabelDecl) []asm.Instruction {
	return []asm.Instruction{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}
}

// Specialized function to lower a 'vm.GotoOp' to its 'asm.Instruction' sequence.
// The conditional flavor pops the stack's top and jumps only when it is non-zero.
func (l *Lowerer) HandleGotoOp(op GotoOp) []asm.Instruction {
	if op.Jump == Conditional {
		return append(popToDReg(), at(l.scopedLabel(op.Label)), compute("", "D", "JNE"))
	}

	return []asm.Instruction{at(l.scopedLabel(op.Label)), compute("", "0", "JMP")}
}

// Specialized function to lower a 'vm.FuncDecl' to its 'asm.Instruction' sequence.
// The entry point label is followed by one pushed zero per declared local variable.
func (l *Lowerer) HandleFuncDecl(op FuncDecl) []asm.Instruction {
	l.function = op.Name // Subsequent labels and comparisons are scoped to this function

	instructions := []asm.Instruction{asm.LabelDecl{Name: op.Name}}
	for i := uint16(0); i < op.NLocals; i++ {
		instructions = append(instructions,
			at("SP"), compute("A", "M", ""), compute("M", "0", ""),
			at("SP"), compute("M", "M+1", ""),
		)
	}
	return instructions
}

// Specialized function to lower a 'vm.FuncCallOp' to its 'asm.Instruction' sequence.
//
// The caller frame is saved on the stack in the canonical order (return address, LCL,
// ARG, THIS, THAT), then ARG is rebased to the first pushed argument (SP - 5 - nArgs),
// LCL is anchored at the current SP and control jumps to the callee. Each call site
// gets its own return address label through the per-callee call-depth counter.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp) []asm.Instruction {
	depth := l.callDepth[op.Name]
	l.callDepth[op.Name]++
	returnLabel := fmt.Sprintf("%s$ret.%d", op.Name, depth)

	instructions := append([]asm.Instruction{at(returnLabel), compute("D", "A", "")}, pushDReg()...)
	for _, base := range []string{"LCL", "ARG", "THIS", "THAT"} {
		instructions = append(instructions, at(base), compute("D", "M", ""))
		instructions = append(instructions, pushDReg()...)
	}

	return append(instructions,
		// ARG = SP - 5 - nArgs (the saved frame is 5 words long)
		at("SP"), compute("D", "M", ""),
		atOffset(5+op.NArgs), compute("D", "D-A", ""),
		at("ARG"), compute("M", "D", ""),
		// LCL = SP
		at("SP"), compute("D", "M", ""),
		at("LCL"), compute("M", "D", ""),
		// Transfer control and place the landing label for the callee's return
		at(op.Name), compute("", "0", "JMP"),
		asm.LabelDecl{Name: returnLabel},
	)
}

// Specialized function to lower a 'vm.ReturnOp' to its 'asm.Instruction' sequence.
//
// The caller frame saved by the call sequence is unwound in reverse: the return value
// replaces the first argument slot, SP retreats right past it and the four segment
// bases are restored by walking the frame backwards (R13 holds the moving frame
// pointer, R14 the return address which must be fetched before the frame is reused).
func (l *Lowerer) HandleReturnOp(ReturnOp) []asm.Instruction {
	return append(append([]asm.Instruction{
		// R13 = frame (the value of LCL), R14 = *(frame - 5) the return address
		at("LCL"), compute("D", "M", ""), at("R13"), compute("M", "D", ""),
		at("5"), compute("A", "D-A", ""), compute("D", "M", ""), at("R14"), compute("M", "D", ""),
	}, popToDReg()...),
		// *ARG = popped return value, SP = ARG + 1
		at("ARG"), compute("A", "M", ""), compute("M", "D", ""),
		at("ARG"), compute("D", "M+1", ""), at("SP"), compute("M", "D", ""),
		// Restore THAT, THIS, ARG, LCL from frame-1 .. frame-4
		at("R13"), compute("AM", "M-1", ""), compute("D", "M", ""), at("THAT"), compute("M", "D", ""),
		at("R13"), compute("AM", "M-1", ""), compute("D", "M", ""), at("THIS"), compute("M", "D", ""),
		at("R13"), compute("AM", "M-1", ""), compute("D", "M", ""), at("ARG"), compute("M", "D", ""),
		at("R13"), compute("AM", "M-1", ""), compute("D", "M", ""), at("LCL"), compute("M", "D", ""),
		// Jump back right after the call site
		at("R14"), compute("A", "M", ""), compute("", "0", "JMP"),
	)
}

// Rewrites a function-local label to its flat assembly counterpart.
func (l *Lowerer) scopedLabel(label string) string {
	return fmt.Sprintf("%s$%s", l.labelScope(), label)
}

// The prefix that keeps generated labels unique: the enclosing function when there is
// one, the translation unit for loose operations (REPL sessions, handwritten IR).
func (l *Lowerer) labelScope() string {
	if l.function != "" {
		return l.function
	}
	if l.unit != "" {
		return l.unit
	}
	return "Global"
}
