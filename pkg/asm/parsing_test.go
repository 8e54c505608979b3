package asm_test

import (
	"reflect"
	"strings"
	"testing"

	"jack2hack.dev/toolchain/pkg/asm"
)

func TestParseInstructions(t *testing.T) {
	source := `
	// comments and blank lines are skipped
	@R0
	D=M
	@i
	M=M+1
	(LOOP)
	@LOOP
	0;JMP
	D=M;JNE
	`

	parser := asm.NewParser(strings.NewReader(source))
	program, err := parser.Parse()
	if err != nil {
		t.Fatalf("parsing failed: %v", err)
	}

	expected := asm.Program{
		asm.AInstruction{Location: "R0"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "i"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
		asm.LabelDecl{Name: "LOOP"},
		asm.AInstruction{Location: "LOOP"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.CInstruction{Dest: "D", Comp: "M", Jump: "JNE"},
	}

	if len(program) != len(expected) {
		t.Fatalf("expected %d instructions, got %d: %+v", len(expected), len(program), program)
	}
	for i := range expected {
		if !reflect.DeepEqual(program[i], expected[i]) {
			t.Errorf("instruction %d: expected %+v, got %+v", i, expected[i], program[i])
		}
	}
}

func TestWhitespaceAndCommentPerturbation(t *testing.T) {
	// The same program modulo comments and whitespace must parse identically,
	// and therefore assemble identically downstream.
	plain := "@2\nD=A\n@3\nD=D+A\n@0\nM=D\n"
	noisy := `
		// compute 2 + 3

		@2
		D=A   // load the first addend
		@3
		D=D+A // accumulate

		@0
		M=D   // store at RAM[0]
	`

	parsePlain := asm.NewParser(strings.NewReader(plain))
	first, err := parsePlain.Parse()
	if err != nil {
		t.Fatalf("parsing the plain source failed: %v", err)
	}

	parseNoisy := asm.NewParser(strings.NewReader(noisy))
	second, err := parseNoisy.Parse()
	if err != nil {
		t.Fatalf("parsing the noisy source failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("perturbation changed the parse:\nplain: %+v\nnoisy: %+v", first, second)
	}
}
