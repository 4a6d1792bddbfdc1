package vm_test

import (
	"reflect"
	"testing"

	"github.com/badstreff/nand2tetris/pkg/vm"
)

func TestWriterEmitsOneOperationPerCall(t *testing.T) {
	writer := vm.NewWriter()

	if err := writer.WritePush(vm.Constant, 7); err != nil {
		t.Fatalf("unexpected error on WritePush: %s", err)
	}
	if err := writer.WritePop(vm.Local, 0); err != nil {
		t.Fatalf("unexpected error on WritePop: %s", err)
	}
	if err := writer.WriteArithmetic(vm.Add); err != nil {
		t.Fatalf("unexpected error on WriteArithmetic: %s", err)
	}
	if err := writer.WriteLabel("LOOP"); err != nil {
		t.Fatalf("unexpected error on WriteLabel: %s", err)
	}
	if err := writer.WriteIf("LOOP"); err != nil {
		t.Fatalf("unexpected error on WriteIf: %s", err)
	}
	if err := writer.WriteGoto("END"); err != nil {
		t.Fatalf("unexpected error on WriteGoto: %s", err)
	}
	if err := writer.WriteFunction("Main.main", 2); err != nil {
		t.Fatalf("unexpected error on WriteFunction: %s", err)
	}
	if err := writer.WriteCall("Main.helper", 1); err != nil {
		t.Fatalf("unexpected error on WriteCall: %s", err)
	}
	if err := writer.WriteReturn(); err != nil {
		t.Fatalf("unexpected error on WriteReturn: %s", err)
	}

	module, err := writer.Close()
	if err != nil {
		t.Fatalf("unexpected error on Close: %s", err)
	}

	expected := vm.Module{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 7},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 0},
		vm.ArithmeticOp{Operation: vm.Add},
		vm.LabelDecl{Name: "LOOP"},
		vm.GotoOp{Jump: vm.Conditional, Label: "LOOP"},
		vm.GotoOp{Jump: vm.Unconditional, Label: "END"},
		vm.FuncDecl{Name: "Main.main", NLocal: 2},
		vm.FuncCallOp{Name: "Main.helper", NArgs: 1},
		vm.ReturnOp{},
	}

	if !reflect.DeepEqual(module, expected) {
		t.Fatalf("module mismatch\nwant: %+v\ngot:  %+v", expected, module)
	}
}

func TestWriterRejectsWritesAfterClose(t *testing.T) {
	writer := vm.NewWriter()
	writer.WritePush(vm.Constant, 1)

	if _, err := writer.Close(); err != nil {
		t.Fatalf("unexpected error on first Close: %s", err)
	}

	if err := writer.WritePush(vm.Constant, 2); err == nil {
		t.Fatalf("expected an error writing to a closed Writer")
	}
	if _, err := writer.Close(); err == nil {
		t.Fatalf("expected an error closing an already-closed Writer")
	}
}

func TestWriterRejectsEmptyNames(t *testing.T) {
	writer := vm.NewWriter()

	if err := writer.WriteLabel(""); err == nil {
		t.Fatalf("expected an error writing an empty label")
	}
	if err := writer.WriteFunction("", 0); err == nil {
		t.Fatalf("expected an error writing an unnamed function")
	}
	if err := writer.WriteCall("", 0); err == nil {
		t.Fatalf("expected an error calling an unnamed function")
	}
}
