// Package compiler implements Apolo's single-pass compiler: a Pratt /
// precedence-climbing expression parser combined with recursive-descent
// statement parsing, consuming tokens directly into a Chunk with no AST
// ever materialized in between.
//
// The parse-rule table and parsePrecedence loop are grounded on the
// teacher's token-driven Compiler (compiler/compiler.go); local-scope
// bookkeeping (Local, beginScope/endScope/declareLocal/resolveLocal) and
// jump back-patching (emitPlaceholderJump/patchJump) are grounded on the
// teacher's ASTCompiler (compiler/ast_compiler.go), re-targeted to drive
// directly off the token stream instead of walking an AST.
package compiler

import (
	"fmt"
	"strconv"

	"github.com/ogoncas/apolo/diag"
	"github.com/ogoncas/apolo/heap"
	"github.com/ogoncas/apolo/token"
	"github.com/ogoncas/apolo/value"
)

// Precedence levels, lowest to highest.
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < <= > >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // (unused: no calls in this surface)
	precPrimary
)

type parseFunc func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFunc
	infix      parseFunc
	precedence precedence
}

// maxLocals bounds the local-variable stack; a local's index is also the
// runtime stack slot it occupies, and slot indices are encoded as a single
// byte in OP_GET_LOCAL/OP_SET_LOCAL.
const maxLocals = 256

// local is a lexically scoped variable awaiting a home on the value stack.
type local struct {
	name  string
	depth int
}

// Compiler turns a token stream into a Chunk. It borrows the VM's
// ObjectHeap to intern identifier and string-literal constants.
type Compiler struct {
	tokens  []token.Token
	current int // index of the next unconsumed token

	chunk *Chunk
	heap  *heap.ObjectHeap

	locals     []local
	scopeDepth int

	errors    diag.CompileErrors
	panicMode bool
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LPA:          {prefix: (*Compiler).grouping, infix: nil, precedence: precNone},
		token.ADD:          {prefix: nil, infix: (*Compiler).binary, precedence: precTerm},
		token.SUB:          {prefix: (*Compiler).unary, infix: (*Compiler).binary, precedence: precTerm},
		token.MULT:         {prefix: nil, infix: (*Compiler).binary, precedence: precFactor},
		token.DIV:          {prefix: nil, infix: (*Compiler).binary, precedence: precFactor},
		token.BANG:         {prefix: (*Compiler).unary, infix: nil, precedence: precNone},
		token.EQUAL_EQUAL:  {prefix: nil, infix: (*Compiler).binary, precedence: precEquality},
		token.NOT_EQUAL:    {prefix: nil, infix: (*Compiler).binary, precedence: precEquality},
		token.LESS:         {prefix: nil, infix: (*Compiler).binary, precedence: precComparison},
		token.LESS_EQUAL:   {prefix: nil, infix: (*Compiler).binary, precedence: precComparison},
		token.LARGER:       {prefix: nil, infix: (*Compiler).binary, precedence: precComparison},
		token.LARGER_EQUAL: {prefix: nil, infix: (*Compiler).binary, precedence: precComparison},
		token.NUMBER:       {prefix: (*Compiler).number, infix: nil, precedence: precNone},
		token.STRING:       {prefix: (*Compiler).string, infix: nil, precedence: precNone},
		token.IDENTIFIER:   {prefix: (*Compiler).variable, infix: nil, precedence: precNone},
		token.TRUE:         {prefix: (*Compiler).literal, infix: nil, precedence: precNone},
		token.FALSE:        {prefix: (*Compiler).literal, infix: nil, precedence: precNone},
		token.NIL:          {prefix: (*Compiler).literal, infix: nil, precedence: precNone},
		token.INPUT:        {prefix: (*Compiler).input, infix: nil, precedence: precNone},
		token.AND:          {prefix: nil, infix: (*Compiler).and, precedence: precAnd},
		token.OR:           {prefix: nil, infix: (*Compiler).or, precedence: precOr},
	}
}

// New creates a Compiler over tokens, emitting into a fresh Chunk. objHeap
// is the VM's ObjectHeap, used to intern identifier and string constants.
func New(tokens []token.Token, objHeap *heap.ObjectHeap) *Compiler {
	return &Compiler{
		tokens: tokens,
		chunk:  NewChunk(),
		heap:   objHeap,
	}
}

// Compile parses the whole token stream as a sequence of declarations and
// returns the resulting Chunk. Compile errors are accumulated under
// panic-mode recovery rather than aborting at the first one; a non-nil
// error is returned once parsing finishes if any were recorded.
func (c *Compiler) Compile() (*Chunk, error) {
	for !c.check(token.EOF) {
		c.declaration()
	}
	c.emitOpcode(OpReturn)

	if c.errors.HasErrors() {
		return nil, c.errors.Err()
	}
	return c.chunk, nil
}

// --- token stream cursor ---

func (c *Compiler) peek() token.Token {
	return c.tokens[c.current]
}

func (c *Compiler) previous() token.Token {
	return c.tokens[c.current-1]
}

func (c *Compiler) check(typ token.Type) bool {
	return c.peek().Type == typ
}

// advance consumes and returns the next token, skipping (and reporting) any
// ERROR tokens the scanner embedded inline.
func (c *Compiler) advance() token.Token {
	for {
		tok := c.tokens[c.current]
		if tok.Type != token.EOF {
			c.current++
		}
		if tok.Type != token.ERROR {
			return tok
		}
		c.errorAt(tok, tok.Lexeme)
	}
}

func (c *Compiler) match(typ token.Type) bool {
	if !c.check(typ) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(typ token.Type, message string) token.Token {
	if c.check(typ) {
		return c.advance()
	}
	c.errorAt(c.peek(), message)
	return c.peek()
}

// --- error reporting & synchronization ---

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true

	var where string
	switch tok.Type {
	case token.EOF:
		where = "at end"
	case token.ERROR:
		// Nothing: the scanner already describes the problem in message.
	default:
		where = fmt.Sprintf("at '%s'", tok.Lexeme)
	}

	c.errors.Add(diag.NewCompileError(tok.Line, tok.Column, where, message))
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous(), message)
}

// synchronize resumes after a compile error at the next statement boundary:
// a ';' or the start of a statement/declaration keyword. This improves on
// EOF-only recovery, so one bad statement doesn't cascade into spurious
// follow-on errors for the rest of the program.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for !c.check(token.EOF) {
		if c.previous().Type == token.SEMICOLON {
			return
		}
		switch c.peek().Type {
		case token.VAR, token.PRINT, token.IF, token.WHILE:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---

func (c *Compiler) line() int {
	if c.current == 0 {
		return c.peek().Line
	}
	return c.previous().Line
}

func (c *Compiler) emitByte(b byte) {
	c.chunk.Write(b, c.line())
}

func (c *Compiler) emitOpcode(op Opcode) {
	c.chunk.WriteOpcode(op, c.line())
}

func (c *Compiler) emitConstant(val value.Value) {
	index := c.addConstant(val)
	c.emitOpcode(OpConstant)
	c.emitByte(byte(index))
}

func (c *Compiler) addConstant(val value.Value) int {
	if len(c.chunk.Constants) >= maxConstants {
		c.error("too many constants in one chunk")
		return 0
	}
	return c.chunk.AddConstant(val)
}

// emitJump emits op followed by a two-byte placeholder, returning the
// operand's offset for a later patchJump call.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOpcode(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk.Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	distance := len(c.chunk.Code) - (offset + 2)
	if distance > 0xffff {
		c.error("too much code to jump over")
		return
	}
	c.chunk.PatchJump(offset)
}

func (c *Compiler) emitLoop(loopStart int) {
	distance := len(c.chunk.Code) - loopStart + 3
	if distance > 0xffff {
		c.error("loop body too large")
		return
	}
	c.chunk.EmitLoop(loopStart, c.line())
}

// --- expression parsing (Pratt) ---

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	rule := rules[c.previous().Type]
	if rule.prefix == nil {
		c.error("expected expression")
		return
	}

	canAssign := prec <= precAssignment
	rule.prefix(c, canAssign)

	for prec <= rules[c.peek().Type].precedence {
		c.advance()
		infix := rules[c.previous().Type].infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.error("invalid assignment target")
	}
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(token.RPA, "expect ')' after expression")
}

func (c *Compiler) number(_ bool) {
	tok := c.previous()
	n, ok := tok.Literal.(float64)
	if !ok {
		n, _ = strconv.ParseFloat(tok.Lexeme, 64)
	}
	c.emitConstant(value.Number(n))
}

func (c *Compiler) string(_ bool) {
	tok := c.previous()
	text, _ := tok.Literal.(string)
	obj := c.heap.CopyString(text)
	c.emitConstant(value.Obj(obj))
}

func (c *Compiler) literal(_ bool) {
	switch c.previous().Type {
	case token.TRUE:
		c.emitOpcode(OpTrue)
	case token.FALSE:
		c.emitOpcode(OpFalse)
	case token.NIL:
		c.emitOpcode(OpNil)
	}
}

func (c *Compiler) input(_ bool) {
	c.consume(token.LPA, "expect '(' after 'input'")
	c.consume(token.RPA, "expect ')' after '('")
	c.emitOpcode(OpInput)
}

func (c *Compiler) unary(_ bool) {
	opType := c.previous().Type
	c.parsePrecedence(precUnary)
	switch opType {
	case token.SUB:
		c.emitOpcode(OpNegate)
	case token.BANG:
		c.emitOpcode(OpNot)
	}
}

func (c *Compiler) binary(_ bool) {
	opType := c.previous().Type
	rule := rules[opType]
	c.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.ADD:
		c.emitOpcode(OpAdd)
	case token.SUB:
		c.emitOpcode(OpSubtract)
	case token.MULT:
		c.emitOpcode(OpMultiply)
	case token.DIV:
		c.emitOpcode(OpDivide)
	case token.EQUAL_EQUAL:
		c.emitOpcode(OpEqual)
	case token.NOT_EQUAL:
		c.emitOpcode(OpEqual)
		c.emitOpcode(OpNot)
	case token.LESS:
		c.emitOpcode(OpLess)
	case token.LESS_EQUAL:
		c.emitOpcode(OpGreater)
		c.emitOpcode(OpNot)
	case token.LARGER:
		c.emitOpcode(OpGreater)
	case token.LARGER_EQUAL:
		c.emitOpcode(OpLess)
		c.emitOpcode(OpNot)
	}
}

// and compiles short-circuit `and`: if the LHS is falsey,
// jump over the RHS leaving the falsey LHS as the result; otherwise pop it
// and evaluate the RHS.
func (c *Compiler) and(_ bool) {
	endJump := c.emitJump(OpJumpIfFalse)
	c.emitOpcode(OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or compiles short-circuit `or`: if the LHS is truthy, skip the RHS;
// otherwise pop the falsey LHS and evaluate the RHS.
func (c *Compiler) or(_ bool) {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)

	c.patchJump(elseJump)
	c.emitOpcode(OpPop)

	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

// variable implements namedVariable: resolve as local or global, then emit
// either a get or, if canAssign and an '=' follows, a set.
func (c *Compiler) variable(canAssign bool) {
	name := c.previous()

	var getOp, setOp Opcode
	var arg int
	if slot, ok := c.resolveLocal(name.Lexeme); ok {
		getOp, setOp, arg = OpGetLocal, OpSetLocal, slot
	} else {
		arg = c.identifierConstant(name.Lexeme)
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emitOpcode(setOp)
		c.emitByte(byte(arg))
		return
	}

	c.emitOpcode(getOp)
	c.emitByte(byte(arg))
}

func (c *Compiler) identifierConstant(name string) int {
	obj := c.heap.CopyString(name)
	return c.addConstant(value.Obj(obj))
}

// resolveLocal searches the local stack top-down for an exact lexeme match,
// returning its slot (== index in the local stack, == runtime stack slot).
func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return i, true
		}
	}
	return 0, false
}

// --- scopes ---

func (c *Compiler) beginScope() {
	c.scopeDepth++
}

// endScope closes the innermost scope, popping every local declared in it
// off both the compiler's local stack and (via emitted OP_POP) the runtime
// stack.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.emitOpcode(OpPop)
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// declareLocal pushes name onto the local stack. Redeclaring a name already
// declared in the same scope is a compile error, matching the teacher's
// ASTCompiler.declareLocal.
func (c *Compiler) declareLocal(name string) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].depth < c.scopeDepth {
			break
		}
		if c.locals[i].name == name {
			c.error("variable '" + name + "' already declared in this scope")
			return
		}
	}
	if len(c.locals) >= maxLocals {
		c.error("too many local variables in scope")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: c.scopeDepth})
}

// --- statements & declarations ---

func (c *Compiler) declaration() {
	switch {
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	name := c.consume(token.IDENTIFIER, "expect variable name")

	if c.scopeDepth > 0 {
		c.declareLocal(name.Lexeme)
		if c.match(token.ASSIGN) {
			c.expression()
		} else {
			c.emitOpcode(OpNil)
		}
		c.consume(token.SEMICOLON, "expect ';' after variable declaration")
		return
	}

	global := c.identifierConstant(name.Lexeme)
	if c.match(token.ASSIGN) {
		c.expression()
	} else {
		c.emitOpcode(OpNil)
	}
	c.consume(token.SEMICOLON, "expect ';' after variable declaration")
	c.emitOpcode(OpDefineGlobal)
	c.emitByte(byte(global))
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LCUR):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after value")
	c.emitOpcode(OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after expression")
	c.emitOpcode(OpPop)
}

func (c *Compiler) block() {
	for !c.check(token.RCUR) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RCUR, "expect '}' after block")
}

// ifStatement follows §4.4's encoding: OP_JUMP_IF_FALSE peeks rather than
// pops, so both branches must pop the condition themselves.
func (c *Compiler) ifStatement() {
	c.consume(token.LPA, "expect '(' after 'if'")
	c.expression()
	c.consume(token.RPA, "expect ')' after condition")

	thenJump := c.emitJump(OpJumpIfFalse)
	c.emitOpcode(OpPop)
	c.statement()

	elseJump := c.emitJump(OpJump)
	c.patchJump(thenJump)
	c.emitOpcode(OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk.Code)
	c.consume(token.LPA, "expect '(' after 'while'")
	c.expression()
	c.consume(token.RPA, "expect ')' after condition")

	exitJump := c.emitJump(OpJumpIfFalse)
	c.emitOpcode(OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOpcode(OpPop)
}

