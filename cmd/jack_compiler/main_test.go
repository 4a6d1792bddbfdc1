package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeJack(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unable to write fixture source %s: %s", path, err)
	}
}

func TestJackCompilerSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "Main.jack")
	writeJack(t, src, strings.Join([]string{
		"class Main {",
		"    function void main() {",
		"        do Main.add(1, 2);",
		"        return;",
		"    }",
		"",
		"    function int add(int a, int b) {",
		"        return a + b;",
		"    }",
		"}",
	}, "\n")+"\n")

	status := Handler([]string{src}, map[string]string{"input": src})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0, got %d", status)
	}

	out, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("expected output file 'Main.vm' beside the source: %s", err)
	}

	if !strings.Contains(string(out), "function Main.main 0") {
		t.Fatalf("expected lowered 'Main.main' function, got:\n%s", out)
	}
	if !strings.Contains(string(out), "function Main.add 0") {
		t.Fatalf("expected lowered 'Main.add' function, got:\n%s", out)
	}
	if !strings.Contains(string(out), "call Main.add 2") {
		t.Fatalf("expected a call to 'Main.add' with 2 arguments, got:\n%s", out)
	}
}

func TestJackCompilerDirectoryWithStdlib(t *testing.T) {
	dir := t.TempDir()
	writeJack(t, filepath.Join(dir, "Main.jack"), strings.Join([]string{
		"class Main {",
		"    function void main() {",
		"        do Output.printInt(42);",
		"        return;",
		"    }",
		"}",
	}, "\n")+"\n")

	status := Handler([]string{dir}, map[string]string{"input": dir, "stdlib": "true"})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0, got %d", status)
	}

	out, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("expected output file 'Main.vm' beside the source: %s", err)
	}
	if !strings.Contains(string(out), "call Output.printInt 1") {
		t.Fatalf("expected a call to the stdlib 'Output.printInt', got:\n%s", out)
	}
	// The stdlib ABI itself must never be emitted as a translation unit of its own.
	if _, err := os.Stat(filepath.Join(dir, "Output.vm")); err == nil {
		t.Fatalf("stdlib classes must not be compiled as translation units")
	}
}

func TestJackCompilerConstructorWithCustomName(t *testing.T) {
	dir := t.TempDir()
	writeJack(t, filepath.Join(dir, "Foo.jack"), strings.Join([]string{
		"class Foo {",
		"    field int x;",
		"",
		"    constructor Foo build(int ax) {",
		"        let x = ax;",
		"        return this;",
		"    }",
		"}",
	}, "\n")+"\n")
	writeJack(t, filepath.Join(dir, "Main.jack"), strings.Join([]string{
		"class Main {",
		"    function void main() {",
		"        do Foo.build(5);",
		"        return;",
		"    }",
		"}",
	}, "\n")+"\n")

	status := Handler([]string{dir}, map[string]string{"input": dir})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0, got %d", status)
	}

	fooOut, err := os.ReadFile(filepath.Join(dir, "Foo.vm"))
	if err != nil {
		t.Fatalf("expected output file 'Foo.vm' beside the source: %s", err)
	}
	if !strings.Contains(string(fooOut), "function Foo.build 0") {
		t.Fatalf("expected lowered constructor declared as 'Foo.build', got:\n%s", fooOut)
	}

	mainOut, err := os.ReadFile(filepath.Join(dir, "Main.vm"))
	if err != nil {
		t.Fatalf("expected output file 'Main.vm' beside the source: %s", err)
	}
	if !strings.Contains(string(mainOut), "call Foo.build 1") {
		t.Fatalf("expected a call to the constructor's declared name 'Foo.build', got:\n%s", mainOut)
	}
	if strings.Contains(string(mainOut), "call Foo.new") {
		t.Fatalf("constructor call must not be hardcoded to 'Foo.new', got:\n%s", mainOut)
	}
}

func TestJackCompilerMissingInput(t *testing.T) {
	if status := Handler(nil, map[string]string{}); status == 0 {
		t.Fatalf("expected a non-zero exit status when --input is missing")
	}
}
