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
	"jack2hack.dev/toolchain/pkg/jack"
	"jack2hack.dev/toolchain/pkg/vm"
)

var Description = strings.ReplaceAll(`
The Jack Compiler compiles programs (composed of multiple classes/files) written in
the Jack language into VM modules that can be further elaborated. The Jack language
is a higher-level OOP language tailored for use with the Hack computer architecture.
`, "\n", " ")

var JackCompiler = cli.New(Description).
	// 'AsOptional()' allows to have more than one input path
	WithArg(cli.NewArg("inputs", "The source (.jack) files or directories to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "ERROR: Not enough arguments provided, use --help\n")
		return 1
	}

	// Aggregates all the Translation Units (TUs) found during the input walk: every
	// '.jack' file is one class and one output module. The walk order depends on the
	// filesystem so the list is sorted to keep the compile reproducible.
	TUs := []string{}
	for _, input := range args {
		err := filepath.Walk(input, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".jack" {
				return nil // We recurse on dirs and ignore other filetypes
			}
			TUs = append(TUs, path)
			return nil
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to walk input path '%s': %s\n", input, err)
			return 1
		}
	}
	sort.Strings(TUs)

	classes := []jack.Class{}
	for _, tu := range TUs {
		content, err := os.ReadFile(tu)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to open input file: %s\n", err)
			return 1
		}

		// Instantiate a parser for the Jack class
		parser := jack.NewParser(bytes.NewReader(content))
		class, err := parser.Parse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'parsing' pass for '%s': %s\n", tu, err)
			return 1
		}
		classes = append(classes, class)
	}

	// Instantiate a lowerer to convert the program from Jack to Vm
	lowerer := jack.NewLowerer(classes)
	vmProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return 1
	}

	// Now, instantiates a code generator for the Vm (compiled) program
	codegen := vm.NewCodeGenerator(vmProgram)
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return 1
	}

	// Each class lands in its own '<classname>.vm' file next to its source
	for index, tu := range TUs {
		module, ok := compiled[classes[index].Name]
		if !ok {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to compile module for class file '%s'\n", tu)
			return 1
		}

		target := path.Join(path.Dir(tu), fmt.Sprintf("%s.vm", classes[index].Name))
		output, err := os.Create(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Unable to open output file: %s\n", err)
			return 1
		}

		for _, line := range module {
			fmt.Fprintf(output, "%s\n", line)
		}
		output.Close()
	}

	return 0
}

func main() { os.Exit(JackCompiler.Run(os.Args, os.Stdout)) }
