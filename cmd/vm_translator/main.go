package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/teris-io/cli"
	"github.com/badstreff/nand2tetris/pkg/asm"
	"github.com/badstreff/nand2tetris/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	WithOption(cli.NewOption("src", "The bytecode (.vm) file, or a directory of them, to be compiled").
		WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if options["src"] == "" {
		fmt.Printf("ERROR: Missing required --src option, use --help\n")
		return -1
	}

	src := options["src"]
	info, err := os.Stat(src)
	if err != nil {
		fmt.Printf("ERROR: Unable to stat --src path: %s\n", err)
		return -1
	}

	var inputs []string
	var outPath string
	var bootstrap bool

	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(src, "*.vm"))
		if err != nil {
			fmt.Printf("ERROR: Unable to list '*.vm' files in directory: %s\n", err)
			return -1
		}
		sort.Strings(matches)
		inputs = matches

		dirName := filepath.Base(filepath.Clean(src))
		outPath = filepath.Join(src, dirName+".asm")
		bootstrap = true
	} else {
		inputs = []string{src}
		base := strings.TrimSuffix(src, filepath.Ext(src))
		outPath = base + ".asm"
		bootstrap = false
	}

	if len(inputs) == 0 {
		fmt.Printf("ERROR: No '.vm' files found under --src\n")
		return -1
	}

	output, err := os.Create(outPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	// Allocates a 'vm.Program' struct to save all the parsed translation unit
	// (the .vm files) that will be parsed and lowered independently and then
	// sent to the codegen phases (that will create a monolithic compiled output).
	program := vm.Program{}

	for _, input := range inputs {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		// Instantiate a parser for the Vm program
		parser := vm.NewParser(bytes.NewReader(content))
		// Parses the input file content and extract an AST (as a 'vm.Module') from it.
		program[path.Base(input)], err = parser.Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
			return -1
		}
	}

	// Instantiate a lowerer to convert the program from Vm to Asm
	lowerer := vm.NewLowerer(program)

	var asmProgram asm.Program
	if bootstrap {
		// Directory mode implies a multi-file program with its own 'Sys.init'
		// entry point, so the translated output gets the bootstrap sequence
		// prepended: it sets up SP and calls into 'Sys.init' like any caller.
		boot, err := lowerer.Bootstrap()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'bootstrap' pass: %s\n", err)
			return -1
		}
		asmProgram = append(asmProgram, boot...)
	}

	// Lowers the vm.Program to an in-memory/IR representation of its Asm counterpart 'asm.Program'.
	lowered, err := lowerer.Lowerer()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}
	asmProgram = append(asmProgram, lowered...)

	// Now, instantiates a code generator for the Asm (compiled) program
	codegen := asm.NewCodeGenerator(asmProgram)
	// Iterates over each instruction and spits out the relative textual representation.
	compiled, err := codegen.Generate()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
		return -1
	}

	for _, comp := range compiled {
		line := fmt.Sprintf("%s\n", comp)
		output.Write([]byte(line))
	}

	return 0
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
