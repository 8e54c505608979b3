package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/teris-io/cli"
	"jack2hack.dev/toolchain/pkg/asm"
	"jack2hack.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM REPL is an interactive explorer for the IR to assembly translation: every
line is parsed as VM commands and immediately echoed back as the Hack assembly it
lowers to. Translator state (function scope, label counters, call depths) carries
over between lines, exactly as it would inside a whole-program build.
`, "\n", " ")

var VmRepl = cli.New(Description).WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	prompt, err := readline.New(">>> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open the prompt: %s\n", err)
		return 1
	}
	defer prompt.Close()

	// One persistent lowerer for the whole session: labels keep incrementing and
	// repeated calls to the same function get distinct return labels, as in a real
	// build. The session acts as a single translation unit named 'repl'.
	lowerer := vm.NewLowerer(vm.Program{{Name: "repl"}}, false)

	for {
		line, err := prompt.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return 0
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
			return 1
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == "exit" {
			return 0
		}

		parser := vm.NewParser(strings.NewReader(line))
		operations, err := parser.Parse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse error: %s\n", err)
			continue
		}

		for _, operation := range operations {
			instructions, err := lowerer.HandleOperation(operation)
			if err != nil {
				fmt.Fprintf(os.Stderr, "lowering error: %s\n", err)
				continue
			}

			codegen := asm.NewCodeGenerator(instructions)
			lines, err := codegen.Generate()
			if err != nil {
				fmt.Fprintf(os.Stderr, "codegen error: %s\n", err)
				continue
			}
			for _, rendered := range lines {
				fmt.Println(rendered)
			}
		}
	}
}

func main() { os.Exit(VmRepl.Run(os.Args, os.Stdout)) }
