// Package vm implements Apolo's bytecode interpreter: a fetch-decode-execute
// loop over a fixed-size Value stack and a flat global-variable table,
// generalized from the teacher's vm.Run loop (vm/vm.go) from its single
// OP_CONSTANT case to the full opcode table in compiler.Opcode.
package vm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ogoncas/apolo/compiler"
	"github.com/ogoncas/apolo/diag"
	"github.com/ogoncas/apolo/heap"
	"github.com/ogoncas/apolo/internal/table"
	"github.com/ogoncas/apolo/value"
)

// VM is the runtime: it owns the stack, the interned-string heap, and the
// globals table across however many chunks it is asked to interpret.
// Persisting the VM across calls (rather than constructing one per chunk)
// is what lets a REPL accumulate globals and interned strings line by line.
type VM struct {
	stack   stack
	heap    *heap.ObjectHeap
	globals *table.Table

	chunk *compiler.Chunk
	ip    int

	stdout io.Writer
	stdin  *bufio.Reader

	log *logrus.Logger
}

// New constructs a VM writing program output to stdout and reading `input()`
// calls from stdin.
func New(stdout io.Writer, stdin io.Reader) *VM {
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return &VM{
		heap:    heap.New(),
		globals: table.New(),
		stdout:  stdout,
		stdin:   bufio.NewReader(stdin),
		log:     log,
	}
}

// Heap exposes the VM's ObjectHeap so a Compiler sharing this VM can intern
// identifier and string-literal constants into the same table.
func (vm *VM) Heap() *heap.ObjectHeap {
	return vm.heap
}

// Interpret runs chunk to completion against this VM's persistent state.
func (vm *VM) Interpret(chunk *compiler.Chunk) error {
	vm.log.Debug("interpreting chunk")
	vm.chunk = chunk
	vm.ip = 0
	err := vm.run()
	if err != nil {
		vm.stack.reset()
	}
	return err
}

func (vm *VM) readByte() byte {
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b
}

func (vm *VM) readShort() uint16 {
	v := binary.BigEndian.Uint16(vm.chunk.Code[vm.ip : vm.ip+2])
	vm.ip += 2
	return v
}

func (vm *VM) readConstant() value.Value {
	return vm.chunk.Constants[vm.readByte()]
}

func (vm *VM) readString() *value.ObjString {
	return vm.readConstant().AsString()
}

func (vm *VM) currentLine() int {
	if vm.ip == 0 || vm.ip > len(vm.chunk.Lines) {
		return 0
	}
	return vm.chunk.Lines[vm.ip-1]
}

func (vm *VM) runtimeError(format string, args ...any) error {
	return diag.NewRuntimeError(vm.currentLine(), fmt.Sprintf(format, args...))
}

func (vm *VM) push(v value.Value) error {
	if vm.stack.isFull() {
		return vm.runtimeError("stack overflow")
	}
	vm.stack.push(v)
	return nil
}

// run is the dispatch loop: fetch an opcode, decode its operands, execute,
// repeat until OP_RETURN or a runtime error.
func (vm *VM) run() error {
	for {
		op := compiler.Opcode(vm.readByte())

		switch op {
		case compiler.OpConstant:
			if err := vm.push(vm.readConstant()); err != nil {
				return err
			}

		case compiler.OpNil:
			if err := vm.push(value.Nil); err != nil {
				return err
			}
		case compiler.OpTrue:
			if err := vm.push(value.Bool(true)); err != nil {
				return err
			}
		case compiler.OpFalse:
			if err := vm.push(value.Bool(false)); err != nil {
				return err
			}

		case compiler.OpPop:
			vm.stack.pop()

		case compiler.OpGetLocal:
			slot := int(vm.readByte())
			if err := vm.push(vm.stack.get(slot)); err != nil {
				return err
			}
		case compiler.OpSetLocal:
			slot := int(vm.readByte())
			vm.stack.set(slot, vm.stack.peek(0))

		case compiler.OpGetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			if err := vm.push(v); err != nil {
				return err
			}
		case compiler.OpDefineGlobal:
			name := vm.readString()
			vm.globals.Set(name, vm.stack.peek(0))
			vm.stack.pop()
		case compiler.OpSetGlobal:
			name := vm.readString()
			if !vm.globals.Has(name) {
				return vm.runtimeError("undefined variable '%s'", name.Chars)
			}
			vm.globals.Set(name, vm.stack.peek(0))

		case compiler.OpEqual:
			b := vm.stack.pop()
			a := vm.stack.pop()
			if err := vm.push(value.Bool(value.Equal(a, b))); err != nil {
				return err
			}
		case compiler.OpGreater:
			if err := vm.numericBinop(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case compiler.OpLess:
			if err := vm.numericBinop(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case compiler.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case compiler.OpSubtract:
			if err := vm.numericBinop(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case compiler.OpMultiply:
			if err := vm.numericBinop(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case compiler.OpDivide:
			if err := vm.numericBinop(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case compiler.OpNot:
			v := vm.stack.pop()
			if err := vm.push(value.Bool(v.IsFalsey())); err != nil {
				return err
			}
		case compiler.OpNegate:
			v := vm.stack.peek(0)
			if !v.IsNumber() {
				return vm.runtimeError("operand must be a number")
			}
			vm.stack.pop()
			if err := vm.push(value.Number(-v.AsNumber())); err != nil {
				return err
			}

		case compiler.OpPrint:
			fmt.Fprintln(vm.stdout, vm.stack.pop().String())

		case compiler.OpInput:
			line, err := vm.stdin.ReadString('\n')
			if err != nil && line == "" {
				if err := vm.push(value.Nil); err != nil {
					return err
				}
				break
			}
			line = trimNewline(line)
			if err := vm.push(value.Obj(vm.heap.CopyString(line))); err != nil {
				return err
			}

		case compiler.OpJump:
			offset := vm.readShort()
			vm.ip += int(offset)
		case compiler.OpJumpIfFalse:
			offset := vm.readShort()
			if vm.stack.peek(0).IsFalsey() {
				vm.ip += int(offset)
			}
		case compiler.OpLoop:
			offset := vm.readShort()
			vm.ip -= int(offset)

		case compiler.OpReturn:
			return nil

		default:
			return vm.runtimeError("unknown opcode %d", op)
		}
	}
}

func (vm *VM) numericBinop(apply func(a, b float64) value.Value) error {
	b := vm.stack.peek(0)
	a := vm.stack.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("operands must be numbers")
	}
	vm.stack.pop()
	vm.stack.pop()
	return vm.push(apply(a.AsNumber(), b.AsNumber()))
}

// add implements OP_ADD's dual string-concatenation/numeric-addition
// semantics per §4.5.
func (vm *VM) add() error {
	b := vm.stack.peek(0)
	a := vm.stack.peek(1)

	switch {
	case a.IsString() && b.IsString():
		vm.stack.pop()
		vm.stack.pop()
		concatenated := a.AsString().Chars + b.AsString().Chars
		return vm.push(value.Obj(vm.heap.TakeString(concatenated)))
	case a.IsNumber() && b.IsNumber():
		vm.stack.pop()
		vm.stack.pop()
		return vm.push(value.Number(a.AsNumber() + b.AsNumber()))
	default:
		return vm.runtimeError("operands must be two numbers or two strings")
	}
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
	}
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	return s
}

// FormatNumber renders n with the same shortest-round-trip formatting
// OP_PRINT uses.
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
