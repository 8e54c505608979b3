package asm_test

import (
	"testing"

	"jack2hack.dev/toolchain/pkg/asm"
)

func TestAInstructionRendering(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.AInstruction, expected string, fail bool) {
		t.Helper()
		generated, err := codegen.GenerateAInst(inst)
		if err == nil && generated != expected {
			t.Errorf("expected '%s', got '%s'", expected, generated)
		}
		if (err != nil) != fail {
			t.Errorf("expected fail=%v for %+v, got err=%v", fail, inst, err)
		}
	}

	test(asm.AInstruction{Location: "38"}, "@38", false)
	test(asm.AInstruction{Location: "SP"}, "@SP", false)
	test(asm.AInstruction{Location: "Main.main$ret.0"}, "@Main.main$ret.0", false)
	test(asm.AInstruction{Location: ""}, "", true)
}

func TestCInstructionRendering(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	test := func(inst asm.CInstruction, expected string, fail bool) {
		t.Helper()
		generated, err := codegen.GenerateCInst(inst)
		if err == nil && generated != expected {
			t.Errorf("expected '%s', got '%s'", expected, generated)
		}
		if (err != nil) != fail {
			t.Errorf("expected fail=%v for %+v, got err=%v", fail, inst, err)
		}
	}

	t.Run("Assignments", func(t *testing.T) {
		test(asm.CInstruction{Dest: "D", Comp: "M"}, "D=M", false)
		test(asm.CInstruction{Dest: "AM", Comp: "M-1"}, "AM=M-1", false)
		test(asm.CInstruction{Dest: "MD", Comp: "D+1"}, "MD=D+1", false)
	})

	t.Run("Jumps", func(t *testing.T) {
		test(asm.CInstruction{Comp: "0", Jump: "JMP"}, "0;JMP", false)
		test(asm.CInstruction{Comp: "D", Jump: "JNE"}, "D;JNE", false)
	})

	t.Run("Full and bare forms", func(t *testing.T) {
		test(asm.CInstruction{Dest: "D", Comp: "D-1", Jump: "JGT"}, "D=D-1;JGT", false)
		test(asm.CInstruction{Comp: "D&M"}, "D&M", false)
	})

	t.Run("Missing comp", func(t *testing.T) {
		test(asm.CInstruction{Dest: "D"}, "", true)
	})
}

func TestLabelDeclRendering(t *testing.T) {
	codegen := asm.NewCodeGenerator(asm.Program{})

	if generated, _ := codegen.GenerateLabelDecl(asm.LabelDecl{Name: "LOOP"}); generated != "(LOOP)" {
		t.Errorf("unexpected label rendering: '%s'", generated)
	}
	if _, err := codegen.GenerateLabelDecl(asm.LabelDecl{}); err == nil {
		t.Error("expected an error for an empty label")
	}
	if _, err := codegen.GenerateLabelDecl(asm.LabelDecl{Name: "THIS"}); err == nil {
		t.Error("expected an error shadowing a built-in")
	}
}
