package vm_test

import (
	"testing"

	"jack2hack.dev/toolchain/pkg/vm"
)

func TestMemoryOps(t *testing.T) {
	codegen := vm.NewCodeGenerator(vm.Program{})

	test := func(op vm.MemoryOp, expected string, fail bool) {
		t.Helper()
		generated, err := codegen.GenerateMemoryOp(op)
		if err == nil && generated != expected {
			t.Errorf("expected '%s', got '%s'", expected, generated)
		}
		if (err != nil) != fail {
			t.Errorf("expected fail=%v for %+v, got err=%v", fail, op, err)
		}
	}

	t.Run("Push and pop rendering", func(t *testing.T) {
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 42}, "push constant 42", false)
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Local, Offset: 0}, "push local 0", false)
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Argument, Offset: 3}, "pop argument 3", false)
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.This, Offset: 1}, "pop this 1", false)
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Static, Offset: 7}, "push static 7", false)
	})

	t.Run("Offset bounds", func(t *testing.T) {
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 1}, "push pointer 1", false)
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Pointer, Offset: 2}, "", true)
		test(vm.MemoryOp{Operation: vm.Push, Segment: vm.Temp, Offset: 7}, "push temp 7", false)
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Temp, Offset: 8}, "", true)
	})

	t.Run("Pop to constant is rejected", func(t *testing.T) {
		test(vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant, Offset: 0}, "", true)
	})
}

func TestControlFlowOps(t *testing.T) {
	codegen := vm.NewCodeGenerator(vm.Program{})

	if generated, _ := codegen.GenerateLabelDecl(vm.LabelDecl{Name: "LOOP"}); generated != "label LOOP" {
		t.Errorf("unexpected label rendering: '%s'", generated)
	}
	if generated, _ := codegen.GenerateGotoOp(vm.GotoOp{Jump: vm.Unconditional, Label: "LOOP"}); generated != "goto LOOP" {
		t.Errorf("unexpected goto rendering: '%s'", generated)
	}
	if generated, _ := codegen.GenerateGotoOp(vm.GotoOp{Jump: vm.Conditional, Label: "LOOP"}); generated != "if-goto LOOP" {
		t.Errorf("unexpected if-goto rendering: '%s'", generated)
	}

	if _, err := codegen.GenerateLabelDecl(vm.LabelDecl{}); err == nil {
		t.Error("expected an error for an empty label")
	}
	if _, err := codegen.GenerateGotoOp(vm.GotoOp{Jump: vm.Conditional}); err == nil {
		t.Error("expected an error for an empty jump target")
	}
}

func TestFunctionOps(t *testing.T) {
	codegen := vm.NewCodeGenerator(vm.Program{})

	if generated, _ := codegen.GenerateFuncDecl(vm.FuncDecl{Name: "Main.main", NLocals: 2}); generated != "function Main.main 2" {
		t.Errorf("unexpected function rendering: '%s'", generated)
	}
	if generated, _ := codegen.GenerateFuncCallOp(vm.FuncCallOp{Name: "Math.multiply", NArgs: 2}); generated != "call Math.multiply 2" {
		t.Errorf("unexpected call rendering: '%s'", generated)
	}
	if generated, _ := codegen.GenerateReturnOp(vm.ReturnOp{}); generated != "return" {
		t.Errorf("unexpected return rendering: '%s'", generated)
	}
}

func TestWholeModuleGeneration(t *testing.T) {
	program := vm.Program{{
		Name: "Example",
		Operations: []vm.Operation{
			vm.FuncDecl{Name: "Example.doNothing", NLocals: 0},
			vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 0},
			vm.ReturnOp{},
		},
	}}

	codegen := vm.NewCodeGenerator(program)
	modules, err := codegen.Generate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []string{"function Example.doNothing 0", "push constant 0", "return"}
	got := modules["Example"]
	if len(got) != len(expected) {
		t.Fatalf("expected %d lines, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("line %d: expected '%s', got '%s'", i, expected[i], got[i])
		}
	}
}
