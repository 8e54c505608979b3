package asm

import (
	"errors"
	"fmt"

	"jack2hack.dev/toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes an 'asm.Program' and spits out its textual counterpart.
//
// The translation can be done without any additional data structure but the program,
// the output is one instruction per line ready to be dumped to a '.asm' file or to be
// fed back into the Parser (the two are inverse of each other modulo whitespace).
type CodeGenerator struct {
	program Program // The set of instructions to convert in Asm textual format
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that argument Program 'p' (what we want to translate) is non-nil.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Translates each instruction in the 'program' field to the Asm textual format.
//
// Each instruction will pass through the following steps: evaluation, validation and
// then conversion to its textual representation (a string) so that it can be further
// elaborated by the caller (e.g. dumping to a file, feeding the assembler, ...).
func (cg *CodeGenerator) Generate() ([]string, error) {
	asm := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var generated string = ""
		var err error = nil

		switch tInstruction := instruction.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(tInstruction)
		case CInstruction:
			generated, err = cg.GenerateCInst(tInstruction)
		case LabelDecl:
			generated, err = cg.GenerateLabelDecl(tInstruction)
		default:
			err = fmt.Errorf("unrecognized instruction '%T'", instruction)
		}

		if err != nil {
			return nil, err
		}
		asm = append(asm, generated)
	}

	return asm, nil
}

// Specialized function to convert an A Instruction to the Asm format.
func (CodeGenerator) GenerateAInst(inst AInstruction) (string, error) {
	if inst.Location == "" {
		return "", errors.New("unable to produce A instruction w/o a location")
	}

	return fmt.Sprintf("@%s", inst.Location), nil
}

// Specialized function to convert a C Instruction to the Asm format.
// Renders any legal combination of the optional 'dest' and 'jump' sections.
func (cg *CodeGenerator) GenerateCInst(inst CInstruction) (string, error) {
	if inst.Comp == "" {
		return "", errors.New("expected 'comp' directive in C Instruction")
	}

	switch {
	case inst.Dest != "" && inst.Jump != "":
		return fmt.Sprintf("%s=%s;%s", inst.Dest, inst.Comp, inst.Jump), nil
	case inst.Dest != "":
		return fmt.Sprintf("%s=%s", inst.Dest, inst.Comp), nil
	case inst.Jump != "":
		return fmt.Sprintf("%s;%s", inst.Comp, inst.Jump), nil
	default:
		return inst.Comp, nil
	}
}

// Specialized function to convert a Label Declaration to the Asm format.
func (cg *CodeGenerator) GenerateLabelDecl(inst LabelDecl) (string, error) {
	if inst.Name == "" {
		return "", errors.New("unable to produce empty label declaration")
	}
	if _, found := hack.BuiltInTable[inst.Name]; found {
		return "", fmt.Errorf("unable to override built-in label '%s'", inst.Name)
	}

	return fmt.Sprintf("(%s)", inst.Name), nil
}
