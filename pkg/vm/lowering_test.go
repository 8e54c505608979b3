package vm_test

import (
	"strings"
	"testing"

	"jack2hack.dev/toolchain/pkg/asm"
	"jack2hack.dev/toolchain/pkg/vm"
)

// Lowers a program and renders the result as assembly text lines.
func lower(t *testing.T, program vm.Program, bootstrap bool) []string {
	t.Helper()

	lowerer := vm.NewLowerer(program, bootstrap)
	lowered, err := lowerer.Lower()
	if err != nil {
		t.Fatalf("lowering failed: %v", err)
	}

	codegen := asm.NewCodeGenerator(lowered)
	lines, err := codegen.Generate()
	if err != nil {
		t.Fatalf("codegen failed: %v", err)
	}
	return lines
}

func assertAsm(t *testing.T, got, expected []string) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("expected %d instructions, got %d:\n%s", len(expected), len(got), strings.Join(got, "\n"))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("instruction %d: expected '%s', got '%s'", i, expected[i], got[i])
		}
	}
}

func count(lines []string, wanted string) int {
	n := 0
	for _, line := range lines {
		if line == wanted {
			n++
		}
	}
	return n
}

func module(operations ...vm.Operation) vm.Program {
	return vm.Program{{Name: "Test", Operations: operations}}
}

func TestPushLowering(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		got := lower(t, module(vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1}), false)
		assertAsm(t, got, []string{"@1", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1"})
	})

	t.Run("Segment indexed", func(t *testing.T) {
		got := lower(t, module(vm.MemoryOp{Operation: vm.Push, Segment: vm.Argument, Offset: 1}), false)
		assertAsm(t, got, []string{"@1", "D=A", "@ARG", "A=D+M", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1"})
	})

	t.Run("Temp maps onto R5..R12", func(t *testing.T) {
		got := lower(t, module(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 3}), false)
		assertAsm(t, got, []string{"@R8", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1"})
	})

	t.Run("Pointer aliases THIS and THAT", func(t *testing.T) {
		got := lower(t, module(vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 1}), false)
		assertAsm(t, got, []string{"@THAT", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1"})
	})

	t.Run("Static is scoped by the unit name", func(t *testing.T) {
		got := lower(t, module(vm.MemoryOp{Operation: vm.Push, Segment: vm.Static, Offset: 5}), false)
		assertAsm(t, got, []string{"@Test.5", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1"})
	})
}

func TestPopLowering(t *testing.T) {
	t.Run("Segment indexed goes through R13", func(t *testing.T) {
		got := lower(t, module(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 2}), false)
		assertAsm(t, got, []string{
			"@2", "D=A", "@LCL", "D=D+M", "@R13", "M=D",
			"@SP", "AM=M-1", "D=M",
			"@R13", "A=M", "M=D",
		})
	})

	t.Run("Pointer write", func(t *testing.T) {
		got := lower(t, module(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Pointer, Offset: 0}), false)
		assertAsm(t, got, []string{"@SP", "AM=M-1", "D=M", "@THIS", "M=D"})
	})

	t.Run("Pop to constant is rejected", func(t *testing.T) {
		lowerer := vm.NewLowerer(module(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant, Offset: 0}), false)
		if _, err := lowerer.Lower(); err == nil {
			t.Fatal("expected an error, got none")
		}
	})

	t.Run("Out of bound offsets are rejected", func(t *testing.T) {
		for _, op := range []vm.MemoryOp{
			{Operation: vm.Push, Segment: vm.Pointer, Offset: 2},
			{Operation: vm.Pop, Segment: vm.Temp, Offset: 8},
		} {
			lowerer := vm.NewLowerer(module(op), false)
			if _, err := lowerer.Lower(); err == nil {
				t.Fatalf("expected an error for %+v, got none", op)
			}
		}
	})
}

func TestArithmeticLowering(t *testing.T) {
	t.Run("Binary op", func(t *testing.T) {
		got := lower(t, module(vm.ArithmeticOp{Operation: vm.Add}), false)
		assertAsm(t, got, []string{"@SP", "AM=M-1", "D=M", "@SP", "AM=M-1", "M=D+M", "@SP", "M=M+1"})
	})

	t.Run("Subtraction keeps the operand order", func(t *testing.T) {
		got := lower(t, module(vm.ArithmeticOp{Operation: vm.Sub}), false)
		assertAsm(t, got, []string{"@SP", "AM=M-1", "D=M", "@SP", "AM=M-1", "M=M-D", "@SP", "M=M+1"})
	})

	t.Run("Unary op", func(t *testing.T) {
		got := lower(t, module(vm.ArithmeticOp{Operation: vm.Neg}), false)
		assertAsm(t, got, []string{"@SP", "AM=M-1", "M=-M", "@SP", "M=M+1"})
	})

	t.Run("Comparison forks through unique labels", func(t *testing.T) {
		got := lower(t, module(
			vm.ArithmeticOp{Operation: vm.Eq},
			vm.ArithmeticOp{Operation: vm.Lt},
		), false)

		assertAsm(t, got[:17], []string{
			"@SP", "AM=M-1", "D=M",
			"@SP", "AM=M-1", "D=M-D",
			"@Test.PUSH_TRUE.0", "D;JEQ",
			"@SP", "A=M", "M=0",
			"@Test.NO_OP.0", "0;JMP",
			"(Test.PUSH_TRUE.0)",
			"@SP", "A=M", "M=-1",
		})
		if got[17] != "(Test.NO_OP.0)" {
			t.Errorf("expected the re-join label, got '%s'", got[17])
		}
		// The second comparison bumps the counter and jumps on JLT
		if count(got, "@Test.PUSH_TRUE.1") != 1 || count(got, "D;JLT") != 1 {
			t.Errorf("expected a distinct label pair for the second comparison:\n%s", strings.Join(got, "\n"))
		}
	})
}

func TestBranchingLowering(t *testing.T) {
	got := lower(t, module(
		vm.FuncDecl{Name: "Main.main", NLocals: 0},
		vm.LabelDecl{Name: "LOOP"},
		vm.GotoOp{Jump: vm.Conditional, Label: "LOOP"},
		vm.GotoOp{Jump: vm.Unconditional, Label: "LOOP"},
	), false)

	// Labels are rewritten as <function>$<label> to keep the flat symbol space safe
	assertAsm(t, got, []string{
		"(Main.main)",
		"(Main.main$LOOP)",
		"@SP", "AM=M-1", "D=M", "@Main.main$LOOP", "D;JNE",
		"@Main.main$LOOP", "0;JMP",
	})
}

func TestFunctionEntryPushesZeroedLocals(t *testing.T) {
	got := lower(t, module(vm.FuncDecl{Name: "Example.run", NLocals: 2}), false)

	assertAsm(t, got, []string{
		"(Example.run)",
		"@SP", "A=M", "M=0", "@SP", "M=M+1",
		"@SP", "A=M", "M=0", "@SP", "M=M+1",
	})
}

func TestCallLowering(t *testing.T) {
	got := lower(t, module(vm.FuncCallOp{Name: "Math.max", NArgs: 2}), false)

	assertAsm(t, got, []string{
		// push the return address
		"@Math.max$ret.0", "D=A", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		// save the caller frame: LCL, ARG, THIS, THAT
		"@LCL", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		"@ARG", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		"@THIS", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		"@THAT", "D=M", "@SP", "A=M", "M=D", "@SP", "M=M+1",
		// ARG = SP - 5 - nArgs, LCL = SP
		"@SP", "D=M", "@7", "D=D-A", "@ARG", "M=D",
		"@SP", "D=M", "@LCL", "M=D",
		// transfer control, land back here on return
		"@Math.max", "0;JMP",
		"(Math.max$ret.0)",
	})
}

func TestReturnLowering(t *testing.T) {
	got := lower(t, module(vm.ReturnOp{}), false)

	assertAsm(t, got, []string{
		// R13 = frame, R14 = *(frame - 5)
		"@LCL", "D=M", "@R13", "M=D",
		"@5", "A=D-A", "D=M", "@R14", "M=D",
		// *ARG = pop(), SP = ARG + 1
		"@SP", "AM=M-1", "D=M", "@ARG", "A=M", "M=D",
		"@ARG", "D=M+1", "@SP", "M=D",
		// restore the caller frame walking backwards
		"@R13", "AM=M-1", "D=M", "@THAT", "M=D",
		"@R13", "AM=M-1", "D=M", "@THIS", "M=D",
		"@R13", "AM=M-1", "D=M", "@ARG", "M=D",
		"@R13", "AM=M-1", "D=M", "@LCL", "M=D",
		"@R14", "A=M", "0;JMP",
	})
}

func TestRecursiveCallLabeling(t *testing.T) {
	got := lower(t, module(
		vm.FuncDecl{Name: "Main.main", NLocals: 0},
		vm.FuncCallOp{Name: "Test", NArgs: 0},
		vm.FuncCallOp{Name: "Test", NArgs: 0},
	), false)

	// Each call site owns a distinct return label, defined once and referenced once
	for _, label := range []string{"Test$ret.0", "Test$ret.1"} {
		if n := count(got, "@"+label); n != 1 {
			t.Errorf("expected exactly 1 reference to '%s', got %d", label, n)
		}
		if n := count(got, "("+label+")"); n != 1 {
			t.Errorf("expected exactly 1 definition of '%s', got %d", label, n)
		}
	}
}

func TestBootstrap(t *testing.T) {
	got := lower(t, module(vm.FuncDecl{Name: "Sys.init", NLocals: 0}), true)

	// SP anchored at 256 before anything else
	assertAsm(t, got[:4], []string{"@256", "D=A", "@SP", "M=D"})

	// Control reaches Sys.init through a regular call
	if count(got, "@Sys.init$ret.0") != 1 || count(got, "@Sys.init") != 1 {
		t.Errorf("expected a regular call to Sys.init:\n%s", strings.Join(got, "\n"))
	}
	// And the machine parks on a trailing loop should it ever come back
	if count(got, "(BOOTSTRAP_END)") != 1 || count(got, "@BOOTSTRAP_END") != 1 {
		t.Errorf("expected the trailing halt loop:\n%s", strings.Join(got, "\n"))
	}
}
