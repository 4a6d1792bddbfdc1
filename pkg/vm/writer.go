package vm

import "fmt"

// ----------------------------------------------------------------------------
// Vm Writer

// A thin, typed emitter sitting on top of a 'vm.Module' buffer.
//
// Each 'Write*' method appends exactly one 'vm.Operation' to the underlying buffer, mirroring
// the one-command-per-call shape of the Jack compiler's VM writer: writePush, writePop,
// writeArithmetic, writeLabel, writeGoto, writeIf, writeCall, writeFunction, writeReturn.
// The Writer owns its output sink (the buffer) and must be finalized with Close, after which
// no further writes are accepted.
type Writer struct {
	module Module
	closed bool
}

// Initializes and returns to the caller a brand new 'Writer' struct, ready to accept writes.
func NewWriter() *Writer {
	return &Writer{module: Module{}}
}

// Emits a 'push segment offset' command.
func (w *Writer) WritePush(segment SegmentType, offset uint16) error {
	return w.append(MemoryOp{Operation: Push, Segment: segment, Offset: offset})
}

// Emits a 'pop segment offset' command.
func (w *Writer) WritePop(segment SegmentType, offset uint16) error {
	return w.append(MemoryOp{Operation: Pop, Segment: segment, Offset: offset})
}

// Emits one of {add, sub, neg, eq, gt, lt, and, or, not}.
func (w *Writer) WriteArithmetic(op ArithOpType) error {
	return w.append(ArithmeticOp{Operation: op})
}

// Emits a 'label name' declaration.
func (w *Writer) WriteLabel(name string) error {
	if name == "" {
		return fmt.Errorf("cannot write an empty label declaration")
	}
	return w.append(LabelDecl{Name: name})
}

// Emits an unconditional 'goto label' command.
func (w *Writer) WriteGoto(label string) error {
	return w.append(GotoOp{Jump: Unconditional, Label: label})
}

// Emits a conditional 'if-goto label' command.
func (w *Writer) WriteIf(label string) error {
	return w.append(GotoOp{Jump: Conditional, Label: label})
}

// Emits a 'call name nArgs' command.
func (w *Writer) WriteCall(name string, nArgs uint8) error {
	if name == "" {
		return fmt.Errorf("cannot write a call to an unnamed function")
	}
	return w.append(FuncCallOp{Name: name, NArgs: nArgs})
}

// Emits a 'function name nLocals' declaration.
func (w *Writer) WriteFunction(name string, nLocals uint8) error {
	if name == "" {
		return fmt.Errorf("cannot write an unnamed function declaration")
	}
	return w.append(FuncDecl{Name: name, NLocal: nLocals})
}

// Emits a 'return' command.
func (w *Writer) WriteReturn() error {
	return w.append(ReturnOp{})
}

// Appends a single operation to the buffer, rejecting writes once the Writer is closed.
func (w *Writer) append(op Operation) error {
	if w.closed {
		return fmt.Errorf("cannot write to a closed vm.Writer")
	}
	w.module = append(w.module, op)
	return nil
}

// Finalizes the Writer and hands back the accumulated Module. Mirrors the explicit
// close()/context-manager lifecycle of a file-backed sink: once closed, the Writer refuses
// any further write or Close, so a class's VM output is sealed exactly once.
func (w *Writer) Close() (Module, error) {
	if w.closed {
		return nil, fmt.Errorf("vm.Writer already closed")
	}
	w.closed = true
	return w.module, nil
}
