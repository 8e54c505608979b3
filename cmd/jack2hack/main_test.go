package main

import (
	"os"
	"path"
	"strings"
	"testing"
)

const mainSource = `
class Main {
    function void main() {
        var int sum;
        let sum = Main.add(1, 2);
        return;
    }

    function int add(int a, int b) {
        return a + b;
    }
}
`

func TestWholeProgramBuild(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(path.Join(dir, "Main.jack"), []byte(mainSource), 0644); err != nil {
		t.Fatalf("unable to write the fixture: %v", err)
	}

	status := Handler([]string{dir}, map[string]string{"with-ir": "true", "with-asm": "true"})
	if status != 0 {
		t.Fatalf("unexpected exit status: %d", status)
	}

	t.Run("The binary is emitted", func(t *testing.T) {
		content, err := os.ReadFile(path.Join(dir, path.Base(dir)+".hack"))
		if err != nil {
			t.Fatalf("unable to read the binary: %v", err)
		}

		lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
		if len(lines) < 100 {
			t.Fatalf("suspiciously small binary: %d words", len(lines))
		}
		for i, line := range lines {
			if len(line) != 16 || strings.Trim(line, "01") != "" {
				t.Fatalf("word %d is not a 16 bit binary string: %q", i, line)
			}
		}
	})

	t.Run("The IR of the user class is emitted", func(t *testing.T) {
		content, err := os.ReadFile(path.Join(dir, "Main.vm"))
		if err != nil {
			t.Fatalf("unable to read the IR: %v", err)
		}

		expected := strings.Join([]string{
			"function Main.main 1",
			"push constant 1",
			"push constant 2",
			"call Main.add 2",
			"pop local 0",
			"push constant 0",
			"return",
			"function Main.add 0",
			"push argument 0",
			"push argument 1",
			"add",
			"return",
		}, "\n") + "\n"

		if string(content) != expected {
			t.Errorf("unexpected IR:\n%s\nexpected:\n%s", content, expected)
		}
	})

	t.Run("The assembly is emitted and bootstrapped", func(t *testing.T) {
		content, err := os.ReadFile(path.Join(dir, "source.asm"))
		if err != nil {
			t.Fatalf("unable to read the assembly: %v", err)
		}

		lines := strings.Split(string(content), "\n")
		if lines[0] != "@256" || lines[1] != "D=A" || lines[2] != "@SP" || lines[3] != "M=D" {
			t.Errorf("expected the bootstrap prelude first, got: %v", lines[:4])
		}
		if !strings.Contains(string(content), "@Sys.init$ret.0") {
			t.Error("expected the bootstrap to call Sys.init")
		}
		if !strings.Contains(string(content), "(Main.main)") {
			t.Error("expected the user entry point in the assembly")
		}
	})
}

func TestSingleFileBuildWithoutOSCollision(t *testing.T) {
	dir := t.TempDir()
	input := path.Join(dir, "Main.jack")
	if err := os.WriteFile(input, []byte(mainSource), 0644); err != nil {
		t.Fatalf("unable to write the fixture: %v", err)
	}

	if status := Handler([]string{input}, map[string]string{}); status != 0 {
		t.Fatalf("unexpected exit status: %d", status)
	}
	if _, err := os.Stat(path.Join(dir, "Main.hack")); err != nil {
		t.Errorf("expected Main.hack next to the single-file input: %v", err)
	}
}

func TestDuplicateClassIsRejected(t *testing.T) {
	dir := t.TempDir()
	// 'Math' collides with a bundled OS class
	source := `class Math { function void main() { return; } }`
	if err := os.WriteFile(path.Join(dir, "Math.jack"), []byte(source), 0644); err != nil {
		t.Fatalf("unable to write the fixture: %v", err)
	}

	if status := Handler([]string{dir}, map[string]string{}); status == 0 {
		t.Fatal("expected a non-zero exit status for a duplicated class")
	}
}

func TestBrokenSourceFailsWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	source := `class Main { function void main() { let x = ; return; } }`
	if err := os.WriteFile(path.Join(dir, "Main.jack"), []byte(source), 0644); err != nil {
		t.Fatalf("unable to write the fixture: %v", err)
	}

	if status := Handler([]string{dir}, map[string]string{}); status == 0 {
		t.Fatal("expected a non-zero exit status for malformed source")
	}
	if _, err := os.Stat(path.Join(dir, path.Base(dir)+".hack")); err == nil {
		t.Error("no partial output must be written on failure")
	}
}
