package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"
	"jack2hack.dev/toolchain/pkg/asm"
	"jack2hack.dev/toolchain/pkg/config"
	"jack2hack.dev/toolchain/pkg/hack"
	"jack2hack.dev/toolchain/pkg/jack"
	"jack2hack.dev/toolchain/pkg/utils"
	"jack2hack.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The jack2hack driver runs the whole pipeline in one go: it compiles the given Jack
sources (a single .jack file or a directory of them) together with the bundled OS
classes, translates the resulting IR into Hack assembly and assembles it into the
final .hack binary. The intermediate products can be persisted with --with-ir and
--with-asm, defaults can also be set in an optional jack2hack.toml file.
`, "\n", " ")

var Driver = cli.New(Description).
	WithArg(cli.NewArg("input", "The source (.jack) file or directory to be compiled")).
	WithOption(cli.NewOption("with-ir", "Persist the IR of each user class to <classname>.vm").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("with-asm", "Persist the concatenated assembly next to the output").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	cfg, err := config.Discover()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return 1
	}
	if _, set := options["with-ir"]; set {
		cfg.Output.EmitIR = true
	}
	if _, set := options["with-asm"]; set {
		cfg.Output.EmitASM = true
	}

	input := args[0]
	info, err := os.Stat(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to read input path: %s\n", err)
		return 1
	}

	// Discover the user translation units: the single file itself or every '.jack'
	// under the directory, in sorted order so that static slots and labels come out
	// the same on every run.
	TUs := []string{}
	if !info.IsDir() {
		TUs = append(TUs, input)
	} else {
		err := filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".jack" {
				return nil
			}
			TUs = append(TUs, path)
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to walk input path: %s\n", err)
			return 1
		}
		sort.Strings(TUs)
	}
	if len(TUs) == 0 {
		fmt.Fprintf(os.Stderr, "ERROR: No .jack source found under '%s'\n", input)
		return 1
	}

	// The whole-program class list: the OS classes first (fixed order, 'Sys.init'
	// must be the first function reachable from the bootstrap), the user classes
	// after. The OrderedMap gives us both the deterministic unit order and the
	// duplicate detection: a class name that shadows another would silently
	// retarget calls downstream, the driver rejects it upfront.
	osClasses, err := jack.StandardLibrary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err)
		return 1
	}

	program := utils.OrderedMap[string, jack.Class]{}
	for _, class := range osClasses {
		program.Set(class.Name, class)
	}

	userClasses := []jack.Class{}
	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
			return 1
		}

		parser := jack.NewParser(bytes.NewReader(content))
		class, err := parser.Parse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'parsing' pass for '%s': %s\n", tu, err)
			return 1
		}

		if _, declared := program.Get(class.Name); declared {
			fmt.Fprintf(os.Stderr, "ERROR: Duplicate definition of class '%s' (in '%s')\n", class.Name, tu)
			return 1
		}
		program.Set(class.Name, class)
		userClasses = append(userClasses, class)
	}

	classes := make([]jack.Class, 0, program.Size())
	for _, entry := range program.Entries() {
		classes = append(classes, entry.Value)
	}

	// Stage C: Jack --> IR, over the whole class list at once
	lowerer := jack.NewLowerer(classes)
	vmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'compile' pass: %s\n", err)
		return 1
	}

	if cfg.Output.EmitIR {
		if status := emitIR(vmProgram, userClasses, TUs); status != 0 {
			return status
		}
	}

	// Stage B: IR --> Asm, with the bootstrap prelude unless configured away
	translator := vm.NewLowerer(vmProgram, cfg.Translator.Bootstrap)
	asmProgram, err := translator.Lower()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'translate' pass: %s\n", err)
		return 1
	}

	if cfg.Output.EmitASM {
		if status := emitASM(asmProgram, input, info.IsDir()); status != 0 {
			return status
		}
	}

	// Stage A: Asm --> Hack binary
	assembler := asm.NewLowerer(asmProgram)
	hackProgram, table, err := assembler.Lower()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'assemble' pass: %s\n", err)
		return 1
	}

	codegen := hack.NewCodeGenerator(hackProgram, table)
	words, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return 1
	}

	target := hackTarget(input, info.IsDir())
	if status := writeLines(target, words); status != 0 {
		return status
	}

	return 0
}

// Writes the IR of each user class to '<classname>.vm' next to its source file.
// The OS modules are part of the build but not persisted, they are not the user's.
func emitIR(program vm.Program, userClasses []jack.Class, TUs []string) int {
	codegen := vm.NewCodeGenerator(program)
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to render IR: %s\n", err)
		return 1
	}

	for index, class := range userClasses {
		target := path.Join(path.Dir(TUs[index]), fmt.Sprintf("%s.vm", class.Name))
		if status := writeLines(target, compiled[class.Name]); status != 0 {
			return status
		}
	}
	return 0
}

// Writes the concatenated assembly: 'source.asm' inside a directory input,
// '<input>.asm' next to a single-file input.
func emitASM(program asm.Program, input string, isDir bool) int {
	codegen := asm.NewCodeGenerator(program)
	lines, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to render assembly: %s\n", err)
		return 1
	}

	target := path.Join(input, "source.asm")
	if !isDir {
		target = strings.TrimSuffix(input, path.Ext(input)) + ".asm"
	}
	return writeLines(target, lines)
}

// The final binary lands inside a directory input as '<dirname>.hack', next to a
// single-file input as '<input>.hack'.
func hackTarget(input string, isDir bool) string {
	if isDir {
		return path.Join(input, path.Base(path.Clean(input))+".hack")
	}
	return strings.TrimSuffix(input, path.Ext(input)) + ".hack"
}

func writeLines(target string, lines []string) int {
	output, err := os.Create(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to open output file: %s\n", err)
		return 1
	}
	defer output.Close()

	for _, line := range lines {
		fmt.Fprintf(output, "%s\n", line)
	}
	return 0
}

func main() { os.Exit(Driver.Run(os.Args, os.Stdout)) }
