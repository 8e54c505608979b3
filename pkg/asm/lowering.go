package asm

import (
	"fmt"
	"strconv"

	"jack2hack.dev/toolchain/pkg/hack"
)

// ----------------------------------------------------------------------------
// Asm Lowerer

// The Lowerer takes an 'asm.Program' and produces its 'hack.Program' counterpart.
//
// This is the first of the assembler's two passes: every label declaration is bound to
// the index of the next real instruction (label lines do not count as instructions) and
// collected into the 'hack.SymbolTable'; every A instruction gets classified by the kind
// of location it references (Raw | BuiltIn | Label) so that the codegen pass can resolve
// it without re-inspecting the text.
type Lowerer struct{ program Program }

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Triggers the lowering process. It iterates instruction by instruction and calls the
// specialized helper function based on the instruction type (much like a recursive
// descent parser but for lowering).
func (l *Lowerer) Lower() (hack.Program, hack.SymbolTable, error) {
	converted, table := hack.Program{}, hack.SymbolTable{}

	if len(l.program) == 0 {
		return nil, nil, fmt.Errorf("the given 'program' is empty")
	}

	for _, asmInst := range l.program {
		switch tAsmInst := asmInst.(type) {
		case AInstruction: // Converts 'asm.AInstruction' to 'hack.AInstruction'
			hackInst, err := l.HandleAInst(tAsmInst)
			if hackInst == nil || err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case CInstruction: // Converts 'asm.CInstruction' to 'hack.CInstruction'
			hackInst, err := l.HandleCInst(tAsmInst)
			if hackInst == nil || err != nil {
				return nil, nil, err
			}
			converted = append(converted, hackInst)

		case LabelDecl: // Binds 'asm.LabelDecl' in the 'hack.SymbolTable'
			label, err := l.HandleLabelDecl(tAsmInst)
			if label == "" || err != nil {
				return nil, nil, err
			}
			// Redefining an already bound label would silently retarget every
			// previous reference, we reject the program instead.
			if _, bound := table[label]; bound {
				return nil, nil, fmt.Errorf("duplicate definition of label '%s'", label)
			}
			table[label] = uint16(len(converted))

		default: // Error case, unrecognized instruction type
			return nil, nil, fmt.Errorf("unrecognized instruction '%T'", asmInst)
		}
	}

	return converted, table, nil
}

// Specialized function to convert an 'asm.AInstruction' node to a 'hack.AInstruction'.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	// Based on one of the following cases below (the type of the symbol) we do different things:
	// 1) If it's present in the BuiltInTable we set the 'LocType' to 'BuiltIn' accordingly
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.AInstruction{LocType: hack.BuiltIn, LocName: inst.Location}, nil
	}
	// 2) If it starts with a digit it can only be a raw address: an oversized or
	//    malformed numeral must not fall through and become a variable
	if len(inst.Location) > 0 && inst.Location[0] >= '0' && inst.Location[0] <= '9' {
		if _, err := strconv.ParseUint(inst.Location, 10, 16); err != nil {
			return nil, fmt.Errorf("invalid raw address '%s': %w", inst.Location, err)
		}
		return hack.AInstruction{LocType: hack.Raw, LocName: inst.Location}, nil
	}
	// 3) Else it's a user defined label/variable and we set 'LocType' to 'Label' accordingly
	return hack.AInstruction{LocType: hack.Label, LocName: inst.Location}, nil
}

// Specialized function to convert an 'asm.CInstruction' node to a 'hack.CInstruction'.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" { // Pre-check: CInstruction.Comp should always be provided
		return nil, fmt.Errorf("'comp' sub-instruction should always be provided")
	}

	return hack.CInstruction{Dest: inst.Dest, Comp: inst.Comp, Jump: inst.Jump}, nil
}

// Specialized function to extract from an 'asm.LabelDecl' node the identifier of the label.
func (Lowerer) HandleLabelDecl(inst LabelDecl) (string, error) {
	if _, found := hack.BuiltInTable[inst.Name]; found {
		return "", fmt.Errorf("unable to override built-in label '%s'", inst.Name)
	}

	return inst.Name, nil
}
