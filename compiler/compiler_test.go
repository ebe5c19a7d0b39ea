package compiler

import (
	"testing"

	"github.com/ogoncas/apolo/heap"
	"github.com/ogoncas/apolo/lexer"
)

func compileSource(t *testing.T, source string) *Chunk {
	t.Helper()
	tokens := lexer.Scan(source)
	c := New(tokens, heap.New())
	chunk, err := c.Compile()
	if err != nil {
		t.Fatalf("Compile(%q) returned error: %v", source, err)
	}
	return chunk
}

func opcodesOf(chunk *Chunk) []Opcode {
	var ops []Opcode
	offset := 0
	for offset < len(chunk.Code) {
		op := Opcode(chunk.Code[offset])
		ops = append(ops, op)
		offset += 1 + OperandWidths[op]
	}
	return ops
}

func TestCodeAndLinesStayInSync(t *testing.T) {
	chunk := compileSource(t, "print 1 + 2 * 3;")
	if len(chunk.Code) != len(chunk.Lines) {
		t.Fatalf("len(Code) = %d, len(Lines) = %d, want equal", len(chunk.Code), len(chunk.Lines))
	}
}

func TestConstantIndicesStayInBounds(t *testing.T) {
	chunk := compileSource(t, `var x = "hi"; print x;`)
	offset := 0
	for offset < len(chunk.Code) {
		op := Opcode(chunk.Code[offset])
		if op == OpConstant || op == OpGetGlobal || op == OpDefineGlobal || op == OpSetGlobal {
			idx := int(chunk.Code[offset+1])
			if idx >= len(chunk.Constants) {
				t.Fatalf("constant index %d out of bounds (pool has %d entries)", idx, len(chunk.Constants))
			}
		}
		offset += 1 + OperandWidths[op]
	}
}

func TestArithmeticPrecedence(t *testing.T) {
	chunk := compileSource(t, "print 1 + 2 * 3;")
	got := opcodesOf(chunk)
	want := []Opcode{OpConstant, OpConstant, OpConstant, OpMultiply, OpAdd, OpPrint, OpReturn}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("opcodes[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestComparisonDesugaring(t *testing.T) {
	tests := []struct {
		source string
		want   []Opcode
	}{
		{"print 1 != 2;", []Opcode{OpConstant, OpConstant, OpEqual, OpNot, OpPrint, OpReturn}},
		{"print 1 <= 2;", []Opcode{OpConstant, OpConstant, OpGreater, OpNot, OpPrint, OpReturn}},
		{"print 1 >= 2;", []Opcode{OpConstant, OpConstant, OpLess, OpNot, OpPrint, OpReturn}},
	}
	for _, tt := range tests {
		chunk := compileSource(t, tt.source)
		got := opcodesOf(chunk)
		if len(got) != len(tt.want) {
			t.Fatalf("%q: opcodes = %v, want %v", tt.source, got, tt.want)
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%q: opcodes[%d] = %v, want %v", tt.source, i, got[i], tt.want[i])
			}
		}
	}
}

func TestGlobalVarDeclarationEmitsDefineGlobal(t *testing.T) {
	chunk := compileSource(t, "var x = 1;")
	got := opcodesOf(chunk)
	want := []Opcode{OpConstant, OpDefineGlobal, OpReturn}
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("opcodes[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLocalVarDeclarationUsesStackSlotNotGlobal(t *testing.T) {
	chunk := compileSource(t, "{ var x = 1; print x; }")
	got := opcodesOf(chunk)
	for _, op := range got {
		if op == OpDefineGlobal || op == OpGetGlobal {
			t.Fatalf("local scope emitted a global opcode: %v", got)
		}
	}
}

func TestIfElseEmitsJumpIfFalseAndJump(t *testing.T) {
	chunk := compileSource(t, `if (nil) print "t"; else print "f";`)
	got := opcodesOf(chunk)
	hasJumpIfFalse, hasJump := false, false
	for _, op := range got {
		if op == OpJumpIfFalse {
			hasJumpIfFalse = true
		}
		if op == OpJump {
			hasJump = true
		}
	}
	if !hasJumpIfFalse || !hasJump {
		t.Errorf("opcodes = %v, want both OP_JUMP_IF_FALSE and OP_JUMP", got)
	}
}

func TestWhileEmitsLoop(t *testing.T) {
	chunk := compileSource(t, "while (true) print 1;")
	got := opcodesOf(chunk)
	found := false
	for _, op := range got {
		if op == OpLoop {
			found = true
		}
	}
	if !found {
		t.Errorf("opcodes = %v, want OP_LOOP", got)
	}
}

func TestAndOrEmitNoNewOpcodesBeyondJumpFamily(t *testing.T) {
	chunk := compileSource(t, "print true and false or true;")
	got := opcodesOf(chunk)
	for _, op := range got {
		switch op {
		case OpConstant, OpTrue, OpFalse, OpNil, OpPop, OpGetLocal, OpSetLocal,
			OpGetGlobal, OpDefineGlobal, OpSetGlobal, OpEqual, OpGreater, OpLess,
			OpAdd, OpSubtract, OpMultiply, OpDivide, OpNot, OpNegate, OpPrint,
			OpInput, OpJump, OpJumpIfFalse, OpLoop, OpReturn:
			continue
		default:
			t.Errorf("unexpected opcode %v in and/or compilation", op)
		}
	}
}

func TestSameScopeRedeclarationIsCompileError(t *testing.T) {
	tokens := lexer.Scan("{ var x = 1; var x = 2; }")
	c := New(tokens, heap.New())
	_, err := c.Compile()
	if err == nil {
		t.Fatalf("expected a compile error for same-scope redeclaration, got none")
	}
}

func TestMissingExpressionIsCompileError(t *testing.T) {
	tokens := lexer.Scan("print 1 +;")
	c := New(tokens, heap.New())
	_, err := c.Compile()
	if err == nil {
		t.Fatalf("expected a compile error for a missing operand, got none")
	}
}

func TestPanicModeSynchronizesAtStatementBoundary(t *testing.T) {
	// The first statement is broken; the second is well-formed and should
	// still compile once synchronization resumes at the ';'.
	tokens := lexer.Scan("print 1 +; print 2;")
	c := New(tokens, heap.New())
	_, err := c.Compile()
	if err == nil {
		t.Fatalf("expected a compile error")
	}
	list := c.errors.List()
	if len(list) != 1 {
		t.Errorf("got %d accumulated errors, want exactly 1 (second statement should have synchronized cleanly): %v", len(list), list)
	}
}
