package jack

import (
	"bytes"
	"embed"
	"fmt"
)

// The eight OS classes ship with the toolchain as Jack source and are compiled and
// prepended on every whole-program build. The order below is the prepend order: it
// keeps 'Sys.init' as the first function reachable from the bootstrap and pins the
// static slot numbering of the OS units across runs.
var OSClasses = []string{"Sys", "Memory", "Math", "Array", "String", "Keyboard", "Screen", "Output"}

//go:embed os/*.jack
var osSources embed.FS

// StandardLibrary parses the bundled OS sources and returns them in prepend order.
// A parse failure here is a build defect of the toolchain itself, not of user input.
func StandardLibrary() ([]Class, error) {
	classes := make([]Class, 0, len(OSClasses))

	for _, name := range OSClasses {
		content, err := osSources.ReadFile(fmt.Sprintf("os/%s.jack", name))
		if err != nil {
			return nil, fmt.Errorf("missing bundled OS class '%s': %w", name, err)
		}

		parser := NewParser(bytes.NewReader(content))
		class, err := parser.Parse()
		if err != nil {
			return nil, fmt.Errorf("in bundled OS class '%s': %w", name, err)
		}
		classes = append(classes, class)
	}

	return classes, nil
}
