package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHackAssembler(t *testing.T) {
	test := func(t *testing.T, source, expected string) {
		dir := t.TempDir()
		src := filepath.Join(dir, "Program.asm")
		out := filepath.Join(dir, "Program.hack")

		if err := os.WriteFile(src, []byte(source), 0o644); err != nil {
			t.Fatalf("unable to write fixture source: %s", err)
		}

		status := Handler(nil, map[string]string{"src": src, "out": out})
		if status != 0 {
			t.Fatalf("unexpected exit status code: expected 0, got %d", status)
		}

		compiled, err := os.ReadFile(out)
		if err != nil {
			t.Fatalf("error reading output file %s: %v", out, err)
		}
		if string(compiled) != expected {
			t.Fatalf("output mismatch\nwant:\n%s\ngot:\n%s", expected, compiled)
		}
	}

	t.Run("Add.asm", func(t *testing.T) {
		// Adds two constants and stores the result, the textbook "Add" program.
		source := "@2\nD=A\n@3\nD=D+A\n@0\nM=D\n"
		expected := "" +
			"0000000000000010\n" +
			"1110110000010000\n" +
			"0000000000000011\n" +
			"1110000010010000\n" +
			"0000000000000000\n" +
			"1110001100001000\n"
		test(t, source, expected)
	})

	t.Run("Max.asm", func(t *testing.T) {
		// Computes max(R0, R1) into R2, exercising labels, jumps and built-in registers.
		source := `
		@R0
		D=M
		@R1
		D=D-M
		@ITSR0
		D;JGT
		@R1
		D=M
		@R2
		M=D
		@END
		0;JMP
		(ITSR0)
		@R0
		D=M
		@R2
		M=D
		(END)
		@END
		0;JMP
		`
		expected := "" +
			"0000000000000000\n" +
			"1111110000010000\n" +
			"0000000000000001\n" +
			"1111010011010000\n" +
			"0000000000001100\n" +
			"1110001100000001\n" +
			"0000000000000001\n" +
			"1111110000010000\n" +
			"0000000000000010\n" +
			"1110001100001000\n" +
			"0000000000010000\n" +
			"1110101010000111\n" +
			"0000000000000000\n" +
			"1111110000010000\n" +
			"0000000000000010\n" +
			"1110001100001000\n" +
			"0000000000010000\n" +
			"1110101010000111\n"
		test(t, source, expected)
	})

	t.Run("missing --src/--out reports an error", func(t *testing.T) {
		if status := Handler(nil, map[string]string{}); status == 0 {
			t.Fatalf("expected a non-zero exit status when required options are missing")
		}
	})
}
