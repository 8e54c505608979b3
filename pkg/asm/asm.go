package asm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Asm language.
//
// We declare a shared 'Instruction' interface for both A and C instructions as well as
// for label declarations naming specific code sections (allowing arbitrary jumps at
// runtime during code execution). This in turn enables iteration and conditionals both
// here and at the upper levels (VM translator, Jack compiler).

// Just used to put together label declaration, A inst and C inst in the same datatype.
type Instruction interface{}

// A Program is just a linear list of Asm instructions, the textual rendition writes
// one instruction per line.
type Program []Instruction

// ----------------------------------------------------------------------------
// Label Declarations

// In memory representation of a label declaration statement for the Asm language.
//
// There's not much here to be honest, we just keep track of the user defined name to
// resolve future references to the same label (e.g. when referencing it from an A
// Instruction). During the lowering phase each label is bound to the index of the
// next real instruction and collected into a symbol table used by the codegen phase,
// label lines themselves do not count as instructions.
type LabelDecl struct {
	Name string // The symbol/ident chosen by the user for the label
}

// ----------------------------------------------------------------------------
// A Instructions

// In memory representation of an A Instruction for the Asm language.
//
// The A instruction has only one functionality in the Hack computer, it instructs
// the CPU to load a specific memory address/location from the computer memory (this
// includes both the RAM and the memory mapped I/O). The location can be referenced
// either by an alias (labels, variables, built-ins) or by specifying the raw address.
// During the lowering phase each location will be assigned its type (Raw | BuiltIn | Label).
type AInstruction struct {
	Location string // A generic "payload" (the label/builtin/raw symbol)
}

// ----------------------------------------------------------------------------
// C Instructions

// In memory representation of a C Instruction for the Asm language.
//
// The C instruction handles the computation side of the Hack computer, it instructs
// the CPU on what operation to execute and which register to use, also it allows to
// specify jump conditions to change the execution flow at runtime.
// The full form is 'dest=comp;jump', any field but 'comp' may be omitted.
type CInstruction struct {
	Comp string // The 'computation' bit-codes, defines the calculation that the CPU should perform
	Dest string // The 'destination' bit-codes, defines if/where the result should be saved
	Jump string // The 'jump' bit-codes, define on what premise the jump to another instruction should occur
}
