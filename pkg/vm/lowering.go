package vm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/badstreff/nand2tetris/pkg/asm"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// Takes a 'vm.Program' (one or more translation units/modules, already parsed into
// the typed IR) and lowers it down to an 'asm.Program', implementing the full Hack
// calling convention along the way.
//
// Two counters need to survive across the whole lowering pass (not just a single
// module): 'nCompare' guarantees that the TRUE/CONTINUE labels emitted for eq/gt/lt
// never collide even across files, and 'nCallSite' does the same for the return
// address labels, since every module ends up in the same label namespace once linked.
type Lowerer struct {
	program Program

	nCompare  uint
	nCallSite uint
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
func NewLowerer(p Program) Lowerer {
	return Lowerer{program: p}
}

// Lowers every module of the program (in a deterministic, name-sorted order so that
// the emitted return-address counters and compiled output don't vary between runs)
// and concatenates their instructions into a single 'asm.Program'.
func (l *Lowerer) Lowerer() (asm.Program, error) {
	names := make([]string, 0, len(l.program))
	for name := range l.program {
		names = append(names, name)
	}
	sort.Strings(names)

	out := asm.Program{}
	for _, name := range names {
		scope := moduleScope(name)
		lowered, err := l.lowerModule(scope, l.program[name])
		if err != nil {
			return nil, fmt.Errorf("module '%s': %w", name, err)
		}
		out = append(out, lowered...)
	}

	return out, nil
}

// Strips the '.vm' extension (if any) from a module's key, this is both the static
// segment's file scope and the fallback label scope before any function is declared.
func moduleScope(fileName string) string {
	return strings.TrimSuffix(fileName, ".vm")
}

// Lowers a single module, threading the current function name through as the scope
// used to qualify 'label'/'goto'/'if-goto' targets (falls back to the file scope for
// any label/goto appearing before the first function declaration in the module).
func (l *Lowerer) lowerModule(fileScope string, module Module) (asm.Program, error) {
	out := asm.Program{}
	scope := fileScope

	for _, operation := range module {
		var lowered asm.Program
		var err error

		switch op := operation.(type) {
		case MemoryOp:
			lowered, err = l.HandleMemoryOp(op, fileScope)
		case ArithmeticOp:
			lowered, err = l.HandleArithmeticOp(op)
		case LabelDecl:
			lowered, err = l.HandleLabelDecl(op, scope)
		case GotoOp:
			lowered, err = l.HandleGotoOp(op, scope)
		case FuncDecl:
			scope = op.Name
			lowered, err = l.HandleFuncDecl(op)
		case FuncCallOp:
			lowered, err = l.HandleFuncCallOp(op, fileScope)
		case ReturnOp:
			lowered, err = l.HandleReturnOp(op)
		default:
			err = fmt.Errorf("unrecognized VM operation %T", operation)
		}

		if err != nil {
			return nil, err
		}
		out = append(out, lowered...)
	}

	return out, nil
}

// ----------------------------------------------------------------------------
// Memory Op

// Lowers a 'push'/'pop' operation, resolving the target segment to the addressing
// mode the Hack calling convention dictates for it (direct, base+offset, or symbolic).
func (l *Lowerer) HandleMemoryOp(op MemoryOp, fileScope string) (asm.Program, error) {
	if op.Operation == Push {
		return generatePush(op, fileScope), nil
	}
	return generatePop(op, fileScope), nil
}

// segmentBase maps the real (non-virtual) segments onto their Hack base pointer.
var segmentBase = map[SegmentType]string{
	Local: "LCL", Argument: "ARG", This: "THIS", That: "THAT",
}

func generatePush(op MemoryOp, fileScope string) asm.Program {
	var addressing asm.Program

	switch op.Segment {
	case Constant:
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}
	case Temp:
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset + 5)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
	case Pointer:
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset + 3)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
	case Static:
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", fileScope, op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
	default: // local, argument, this, that
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: segmentBase[op.Segment]},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "M"},
		}
	}

	return append(addressing, pushD()...)
}

func generatePop(op MemoryOp, fileScope string) asm.Program {
	var addressing asm.Program

	switch op.Segment {
	case Temp:
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset + 5)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}
	case Pointer:
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset + 3)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}
	case Static:
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprintf("%s.%d", fileScope, op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}
	default: // local, argument, this, that
		addressing = asm.Program{
			asm.AInstruction{Location: fmt.Sprint(op.Offset)},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: segmentBase[op.Segment]},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "D+A"},
			asm.CInstruction{Dest: "D", Comp: "A"},
		}
	}

	// Stash the resolved target address in R13 before touching SP, then move the
	// popped value across: R13 may not be relied upon to survive past this point.
	tail := asm.Program{
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M-1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	return append(addressing, tail...)
}

// Pushes the value currently held in D onto the stack and bumps SP.
func pushD() asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// ----------------------------------------------------------------------------
// Arithmetic Op

// Lowers a unary or binary arithmetic/bitwise/comparison operation.
func (l *Lowerer) HandleArithmeticOp(op ArithmeticOp) (asm.Program, error) {
	switch op.Operation {
	case Add:
		return binaryOp("D+M"), nil
	case Sub:
		return binaryOp("M-D"), nil
	case And:
		return binaryOp("D&M"), nil
	case Or:
		return binaryOp("D|M"), nil
	case Neg:
		return asm.Program{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "AM", Comp: "M-1"},
			asm.CInstruction{Dest: "M", Comp: "-M"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		}, nil
	case Not:
		return asm.Program{
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M-1"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "!M"},
			asm.AInstruction{Location: "SP"},
			asm.CInstruction{Dest: "M", Comp: "M+1"},
		}, nil
	case Eq:
		return l.comparison("JEQ"), nil
	case Gt:
		return l.comparison("JGT"), nil
	case Lt:
		return l.comparison("JLT"), nil
	default:
		return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
	}
}

// Pops two operands, combines them with 'comp' (referencing D as the first-popped
// operand and M as the second-popped one) and pushes the result back on the stack.
func binaryOp(comp string) asm.Program {
	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: comp},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// Pops two operands, subtracts them and jumps on 'jump' to decide between pushing
// -1 (true, all ones) or 0 (false). Each call gets a fresh pair of unique labels.
func (l *Lowerer) comparison(jump string) asm.Program {
	id := l.nCompare
	l.nCompare++

	trueLabel := fmt.Sprintf("TRUE.%d", id)
	continueLabel := fmt.Sprintf("CONTINUE.%d", id)

	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.AInstruction{Location: trueLabel},
		asm.CInstruction{Comp: "D", Jump: jump},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.AInstruction{Location: continueLabel},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		asm.LabelDecl{Name: trueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.LabelDecl{Name: continueLabel},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "M+1"},
	}
}

// ----------------------------------------------------------------------------
// Label, Goto

// Lowers a 'label' declaration, qualifying it with the current emission scope
// (the enclosing function, or the file scope if seen before any function).
func (l *Lowerer) HandleLabelDecl(op LabelDecl, scope string) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("cannot lower a label declaration with an empty name")
	}
	return asm.Program{asm.LabelDecl{Name: fmt.Sprintf("%s$%s", scope, op.Name)}}, nil
}

// Lowers a 'goto'/'if-goto' operation, qualified the same way as its target label.
func (l *Lowerer) HandleGotoOp(op GotoOp, scope string) (asm.Program, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("cannot lower a jump with an empty target label")
	}

	target := fmt.Sprintf("%s$%s", scope, op.Label)
	if op.Jump == Unconditional {
		return asm.Program{
			asm.AInstruction{Location: target},
			asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	return asm.Program{
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: target},
		asm.CInstruction{Comp: "D", Jump: "JNE"},
	}, nil
}

// ----------------------------------------------------------------------------
// Function Declaration, Call, Return

// Lowers a function declaration: emits its entry label followed by k pushes of
// the constant 0, one per declared local (each local is found on the stack right
// where the callee expects it, zero-initialized per the calling convention).
func (l *Lowerer) HandleFuncDecl(op FuncDecl) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("cannot lower a function declaration with an empty name")
	}

	out := asm.Program{asm.LabelDecl{Name: op.Name}}
	zero := MemoryOp{Operation: Push, Segment: Constant, Offset: 0}
	for i := uint8(0); i < op.NLocal; i++ {
		out = append(out, generatePush(zero, "")...)
	}

	return out, nil
}

// Lowers a function call, implementing the full Hack calling convention: saves the
// caller's frame (return address + LCL/ARG/THIS/THAT), repositions ARG/LCL for the
// callee, jumps to it, and declares the return-site label execution resumes at.
func (l *Lowerer) HandleFuncCallOp(op FuncCallOp, fileScope string) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("cannot lower a function call with an empty callee name")
	}

	index := l.nCallSite
	l.nCallSite++
	retLabel := fmt.Sprintf("%s$ret.%d", op.Name, index)

	out := asm.Program{
		// Push the return address, then the caller's saved frame.
		asm.AInstruction{Location: retLabel},
		asm.CInstruction{Dest: "D", Comp: "A"},
	}
	out = append(out, pushD()...)
	for _, reg := range []string{"LCL", "ARG", "THIS", "THAT"} {
		out = append(out,
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "D", Comp: "M"},
		)
		out = append(out, pushD()...)
	}

	out = append(out,
		// ARG = SP - 5 - nArgs
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: fmt.Sprint(op.NArgs)},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// LCL = SP
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// goto callee
		asm.AInstruction{Location: op.Name},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
		// (return address)
		asm.LabelDecl{Name: retLabel},
	)

	return out, nil
}

// Lowers a 'return' operation, tearing down the callee's frame, restoring the
// caller's saved registers and jumping back to the resolved return address.
func (l *Lowerer) HandleReturnOp(op ReturnOp) (asm.Program, error) {
	restore := func(reg, offset string) asm.Program {
		return asm.Program{
			asm.AInstruction{Location: offset},
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "R13"},
			asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "A", Comp: "A-D"},
			asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: reg},
			asm.CInstruction{Dest: "M", Comp: "D"},
		}
	}

	out := asm.Program{
		// endFrame (R13) = LCL
		asm.AInstruction{Location: "LCL"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "R13"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// retAddr (R14) = RAM[endFrame - 5]
		asm.AInstruction{Location: "5"},
		asm.CInstruction{Dest: "D", Comp: "D-A"},
		asm.CInstruction{Dest: "A", Comp: "D"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		// RAM[ARG] = pop(); SP = ARG + 1
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "AM", Comp: "M-1"},
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "M", Comp: "D"},
		asm.AInstruction{Location: "ARG"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Dest: "D", Comp: "A+1"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	out = append(out, restore("THAT", "1")...)
	out = append(out, restore("THIS", "2")...)
	out = append(out, restore("ARG", "3")...)
	out = append(out, restore("LCL", "4")...)

	out = append(out,
		asm.AInstruction{Location: "R14"},
		asm.CInstruction{Dest: "A", Comp: "M"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	)

	return out, nil
}

// ----------------------------------------------------------------------------
// Bootstrap

// Produces the instructions that must precede every other module when the VM
// translator is invoked on a directory: set SP to its base location (256), then
// perform a full 'call Sys.init 0' so that Sys.init's own frame is well-formed.
func (l *Lowerer) Bootstrap() (asm.Program, error) {
	out := asm.Program{
		asm.AInstruction{Location: "256"},
		asm.CInstruction{Dest: "D", Comp: "A"},
		asm.AInstruction{Location: "SP"},
		asm.CInstruction{Dest: "M", Comp: "D"},
	}

	call, err := l.HandleFuncCallOp(FuncCallOp{Name: "Sys.init", NArgs: 0}, "Bootstrap")
	if err != nil {
		return nil, err
	}

	return append(out, call...), nil
}
