package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeVM(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unable to write fixture source %s: %s", path, err)
	}
}

func TestVMTranslatorFileMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "SimpleAdd.vm")
	writeVM(t, src, "push constant 7\npush constant 8\nadd\n")

	status := Handler(nil, map[string]string{"src": src})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0, got %d", status)
	}

	out, err := os.ReadFile(filepath.Join(dir, "SimpleAdd.asm"))
	if err != nil {
		t.Fatalf("expected output file 'SimpleAdd.asm' beside the source: %s", err)
	}

	// File mode never prepends the bootstrap sequence.
	if strings.Contains(string(out), "Sys.init") {
		t.Fatalf("file mode must not emit a bootstrap call to Sys.init, got:\n%s", out)
	}
	if !strings.Contains(string(out), "@SP") {
		t.Fatalf("expected translated output to reference the stack pointer, got:\n%s", out)
	}
}

func TestVMTranslatorDirectoryMode(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Base(dir)

	writeVM(t, filepath.Join(dir, "Sys.vm"), strings.Join([]string{
		"function Sys.init 0",
		"call Main.main 0",
		"pop temp 0",
		"label LOOP",
		"goto LOOP",
	}, "\n")+"\n")
	writeVM(t, filepath.Join(dir, "Main.vm"), strings.Join([]string{
		"function Main.main 0",
		"push constant 42",
		"return",
	}, "\n")+"\n")

	status := Handler(nil, map[string]string{"src": dir})
	if status != 0 {
		t.Fatalf("unexpected exit status code: expected 0, got %d", status)
	}

	outPath := filepath.Join(dir, name+".asm")
	out, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("expected output file '%s.asm' inside the directory: %s", name, err)
	}

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")

	// Directory mode always starts with the bootstrap: SP=256 then a full call to Sys.init.
	if lines[0] != "@256" || lines[1] != "D=A" || lines[2] != "@SP" || lines[3] != "M=D" {
		t.Fatalf("expected bootstrap to set SP=256 first, got:\n%s", strings.Join(lines[:4], "\n"))
	}
	if !strings.Contains(string(out), "@Sys.init") {
		t.Fatalf("expected bootstrap to call Sys.init, got:\n%s", out)
	}
	if !strings.Contains(string(out), "(Sys.init)") {
		t.Fatalf("expected the Sys.init function to be lowered into the output, got:\n%s", out)
	}
	if !strings.Contains(string(out), "(Main.main)") {
		t.Fatalf("expected the Main.main function to be lowered into the output, got:\n%s", out)
	}
}

func TestVMTranslatorMissingSrc(t *testing.T) {
	if status := Handler(nil, map[string]string{}); status == 0 {
		t.Fatalf("expected a non-zero exit status when --src is missing")
	}
}
