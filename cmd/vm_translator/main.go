package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/teris-io/cli"
	"jack2hack.dev/toolchain/pkg/asm"
	"jack2hack.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM intermediate language into Hack assembly code that can be further elaborated.
The VM language is a higher-level (bytecode'like) language tailored for use with the
Hack computer architecture.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) files to be translated").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The translated assembly output (.asm)").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("bootstrap", "Includes bootstrap code in the final .asm file").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["output"] == "" {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return 1
	}

	// Allocates a 'vm.Program' to collect all the translation units (the .vm files):
	// each is parsed independently and then handed as a whole to the lowering phase
	// (that will create a monolithic assembly output). The unit order is the argument
	// order, which keeps repeated invocations reproducible.
	program := vm.Program{}

	for _, input := range args {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
			return 1
		}

		// Instantiate a parser for the Vm module, the unit takes its name (and
		// therefore its 'static' symbols) from the file basename.
		parser := vm.NewParser(bytes.NewReader(content))
		operations, err := parser.Parse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'parsing' pass for '%s': %s\n", input, err)
			return 1
		}

		name := strings.TrimSuffix(path.Base(input), path.Ext(input))
		program = append(program, vm.Module{Name: name, Operations: operations})
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	_, bootstrap := options["bootstrap"]
	lowerer := vm.NewLowerer(program, bootstrap)
	asmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return 1
	}

	// Now, instantiates a code generator for the Asm (translated) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	translated, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return 1
	}

	output, err := os.Create(options["output"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open output file: %s\n", err)
		return 1
	}
	defer output.Close()

	for _, line := range translated {
		fmt.Fprintf(output, "%s\n", line)
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
