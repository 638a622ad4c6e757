// This package contains the single-pass Pratt parser/compiler for nilox.
// Each token maps to a prefix and/or infix parsing rule with a precedence
// level; the compiler emits bytecode directly as it parses instead of
// building an intermediate syntax tree.
package compiler

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/nilox-lang/nilox/lexer"
	"github.com/nilox-lang/nilox/token"
	"github.com/nilox-lang/nilox/value"
)

// maxLocals bounds the fixed-size local-variable array: slot indices are
// encoded as a single operand byte, so no block may hold more than this
// many locals in scope at once.
const maxLocals = 256

// Interner is the subset of VM behavior the compiler needs to turn string
// lexemes and literals into interned constants, without the compiler
// package importing the vm package outright.
type Interner interface {
	Intern(chars string) *value.ObjString
}

// Precedence is the ordered ladder parsePrecedence climbs. Binary infix
// rules parse their right operand at one level above their own, which is
// what makes `+` and `*` left-associative.
type Precedence int

const (
	PrecNone Precedence = iota
	PrecAssignment
	PrecOr
	PrecAnd
	PrecEquality
	PrecComparison
	PrecTerm
	PrecFactor
	PrecUnary
	PrecCall
	PrecPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// local is one entry of the compiler's fixed-size local-variable table.
// depth == -1 marks a local that has been declared but whose initializer
// has not finished compiling yet ("uninitialized"); reading it in that
// state is a compile error, since the value on the stack at that slot
// still belongs to an enclosing expression.
type local struct {
	name  string
	depth int
}

// Compiler is the single-pass Pratt parser/compiler. It consumes tokens
// from a Lexer on demand and writes bytecode directly into chunk as it
// parses — there is no intermediate syntax tree anywhere in this pipeline.
type Compiler struct {
	lexer   *lexer.Lexer
	chunk   *Chunk
	strings Interner

	previous token.Token
	current  token.Token

	hadError  bool
	panicMode bool
	errors    *multierror.Error

	locals     [maxLocals]local
	localCount int
	scopeDepth int

	debug bool
}

// New creates a Compiler that will scan source and emit into chunk, using
// strings to intern identifier and literal string constants.
func New(source string, chunk *Chunk, strings Interner, debug bool) *Compiler {
	return &Compiler{
		lexer:   lexer.New(source),
		chunk:   chunk,
		strings: strings,
		debug:   debug,
	}
}

// Compile runs the compiler to completion, returning false if any compile
// error was reported. Errors collected during the run are available via
// Errors().
func (c *Compiler) Compile() bool {
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.emitByte(byte(OpReturn))

	if c.debug && !c.hadError {
		logrus.WithField("component", "compiler").Debug(Disassemble(c.chunk, "code"))
	}
	return !c.hadError
}

// Errors returns every ParseError collected during Compile, aggregated via
// go-multierror so callers can report them all rather than just the first.
func (c *Compiler) Errors() error {
	if c.errors == nil {
		return nil
	}
	return c.errors.ErrorOrNil()
}

/* token stream */

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lexer.ScanToken()
		if c.current.Kind != token.Error {
			break
		}
		c.errorAtCurrent(c.current.Message)
	}
}

func (c *Compiler) check(kind token.Kind) bool {
	return c.current.Kind == kind
}

func (c *Compiler) match(kind token.Kind) bool {
	if !c.check(kind) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(kind token.Kind, message string) {
	if c.current.Kind == kind {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

/* error reporting */

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	where := "end"
	if tok.Kind != token.EOF {
		where = "'" + tok.Lexeme(c.lexer.Source()) + "'"
	}
	c.errors = multierror.Append(c.errors, ParseError{
		Line:    int32(tok.Line),
		Where:   where,
		Message: message,
	})
}

func (c *Compiler) errorAtCurrent(message string) { c.errorAt(c.current, message) }
func (c *Compiler) error(message string)          { c.errorAt(c.previous, message) }

// synchronize discards tokens until it reaches a likely statement boundary,
// so one error does not cascade into a wall of spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.Semicolon {
			return
		}
		switch c.current.Kind {
		case token.Class, token.Fun, token.Var, token.For, token.If, token.While, token.Print, token.Return:
			return
		}
		c.advance()
	}
}

/* emission */

func (c *Compiler) emitByte(b byte) {
	c.chunk.WriteByte(b, int32(c.previous.Line))
}

func (c *Compiler) emitBytes(a, b byte) {
	c.emitByte(a)
	c.emitByte(b)
}

func (c *Compiler) emitConstant(v value.Value) {
	idx := c.makeConstant(v)
	c.emitBytes(byte(OpConstant), idx)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.chunk.AddConstant(v)
	if idx > 255 {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitJump(op Opcode) int {
	return c.chunk.WriteJump(op, int32(c.previous.Line))
}

func (c *Compiler) patchJump(offset int) {
	if err := c.chunk.PatchJump(offset); err != nil {
		c.error("Too much code to jump over.")
	}
}

func (c *Compiler) emitLoop(loopStart int) {
	if err := c.chunk.WriteLoop(loopStart, int32(c.previous.Line)); err != nil {
		c.error("Loop body too large.")
	}
}

/* declarations and statements */

func (c *Compiler) declaration() {
	if c.match(token.Var) {
		c.varDeclaration()
	} else {
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.match(token.Equal) {
		c.expression()
	} else {
		c.emitByte(byte(OpNil))
	}
	c.consume(token.Semicolon, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.Print):
		c.printStatement()
	case c.match(token.If):
		c.ifStatement()
	case c.match(token.While):
		c.whileStatement()
	case c.match(token.For):
		c.forStatement()
	case c.match(token.LeftBrace):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after value.")
	c.emitByte(byte(OpPrint))
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.Semicolon, "Expect ';' after expression.")
	c.emitByte(byte(OpPop))
}

func (c *Compiler) block() {
	for !c.check(token.RightBrace) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RightBrace, "Expect '}' after block.")
}

// ifStatement compiles `if (cond) then` or `if (cond) then else other`
// using the standard two-jump pattern: a conditional jump over the then
// branch, and an unconditional jump from the end of the then branch over
// the false path (its POP and the else branch, if any). Both jumps are
// emitted whether or not an else branch exists.
func (c *Compiler) ifStatement() {
	c.consume(token.LeftParen, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	thenJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	c.statement()

	elseJump := c.emitJump(OpJump)

	c.patchJump(thenJump)
	c.emitByte(byte(OpPop))

	if c.match(token.Else) {
		c.statement()
	}
	c.patchJump(elseJump)
}

// whileStatement compiles a condition re-evaluated each iteration, jumping
// out when false and looping back to loopStart otherwise.
func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk.Code)
	c.consume(token.LeftParen, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RightParen, "Expect ')' after condition.")

	exitJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitByte(byte(OpPop))
}

// forStatement desugars `for (init; cond; incr) body` into the same jump
// shape as whileStatement, splicing the increment clause in after the body
// by jumping over it during the forward pass and looping back into it.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LeftParen, "Expect '(' after 'for'.")

	switch {
	case c.match(token.Semicolon):
		// no initializer
	case c.match(token.Var):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk.Code)
	exitJump := -1
	if !c.match(token.Semicolon) {
		c.expression()
		c.consume(token.Semicolon, "Expect ';' after loop condition.")
		exitJump = c.emitJump(OpJumpIfFalse)
		c.emitByte(byte(OpPop))
	}

	if !c.match(token.RightParen) {
		bodyJump := c.emitJump(OpJump)
		incrementStart := len(c.chunk.Code)
		c.expression()
		c.emitByte(byte(OpPop))
		c.consume(token.RightParen, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitByte(byte(OpPop))
	}

	c.endScope()
}

/* scope and locals */

func (c *Compiler) beginScope() { c.scopeDepth++ }

// endScope discards every local declared at or below the scope just
// exited, emitting one POP per slot so the VM's stack and the compiler's
// locals table stay in lockstep.
func (c *Compiler) endScope() {
	c.scopeDepth--
	for c.localCount > 0 && c.locals[c.localCount-1].depth > c.scopeDepth {
		c.emitByte(byte(OpPop))
		c.localCount--
	}
}

func (c *Compiler) parseVariable(errorMessage string) byte {
	c.consume(token.Identifier, errorMessage)

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) identifierConstant(name token.Token) byte {
	lexeme := name.Lexeme(c.lexer.Source())
	return c.makeConstant(value.StringVal(c.strings.Intern(lexeme)))
}

func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.previous.Lexeme(c.lexer.Source())
	for i := c.localCount - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	if c.localCount == maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.locals[c.localCount] = local{name: name, depth: -1}
	c.localCount++
}

func (c *Compiler) markInitialized() {
	c.locals[c.localCount-1].depth = c.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitBytes(byte(OpDefineGlobal), global)
}

func (c *Compiler) resolveLocal(name string) int {
	for i := c.localCount - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.name == name {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

/* expressions */

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

func (c *Compiler) parsePrecedence(precedence Precedence) {
	c.advance()
	rule := c.getRule(c.previous.Kind)
	if rule.prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := precedence <= PrecAssignment
	rule.prefix(c, canAssign)

	for precedence <= c.getRule(c.current.Kind).precedence {
		c.advance()
		infix := c.getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.Equal) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) getRule(kind token.Kind) parseRule {
	if rule, ok := rules[kind]; ok {
		return rule
	}
	return parseRule{precedence: PrecNone}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RightParen, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case token.Bang:
		c.emitByte(byte(OpNot))
	case token.Minus:
		c.emitByte(byte(OpNegate))
	}
}

func binary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	rule := c.getRule(opKind)
	c.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BangEqual:
		c.emitBytes(byte(OpEqual), byte(OpNot))
	case token.EqualEqual:
		c.emitByte(byte(OpEqual))
	case token.Greater:
		c.emitByte(byte(OpGreater))
	case token.GreaterEqual:
		c.emitBytes(byte(OpLess), byte(OpNot))
	case token.Less:
		c.emitByte(byte(OpLess))
	case token.LessEqual:
		c.emitBytes(byte(OpGreater), byte(OpNot))
	case token.Plus:
		c.emitByte(byte(OpAdd))
	case token.Minus:
		c.emitByte(byte(OpSubtract))
	case token.Star:
		c.emitByte(byte(OpMultiply))
	case token.Slash:
		c.emitByte(byte(OpDivide))
	default:
		panic(DeveloperError{Message: fmt.Sprintf("unreachable binary operator %v", opKind)})
	}
}

func number(c *Compiler, _ bool) {
	lexeme := c.previous.Lexeme(c.lexer.Source())
	var n float64
	_, err := fmt.Sscanf(lexeme, "%g", &n)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.NumberVal(n))
}

func literalString(c *Compiler, _ bool) {
	lexeme := c.previous.Lexeme(c.lexer.Source())
	unquoted := lexeme[1 : len(lexeme)-1]
	c.emitConstant(value.StringVal(c.strings.Intern(unquoted)))
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Kind {
	case token.False:
		c.emitByte(byte(OpFalse))
	case token.Nil:
		c.emitByte(byte(OpNil))
	case token.True:
		c.emitByte(byte(OpTrue))
	}
}

func variable(c *Compiler, canAssign bool) {
	namedVariable(c, c.previous, canAssign)
}

func namedVariable(c *Compiler, name token.Token, canAssign bool) {
	var getOp, setOp Opcode
	arg := c.resolveLocal(name.Lexeme(c.lexer.Source()))
	if arg != -1 {
		getOp, setOp = OpGetLocal, OpSetLocal
	} else {
		arg = int(c.identifierConstant(name))
		getOp, setOp = OpGetGlobal, OpSetGlobal
	}

	if canAssign && c.match(token.Equal) {
		c.expression()
		c.emitBytes(byte(setOp), byte(arg))
	} else {
		c.emitBytes(byte(getOp), byte(arg))
	}
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(OpJumpIfFalse)
	c.emitByte(byte(OpPop))
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(OpJumpIfFalse)
	endJump := c.emitJump(OpJump)

	c.patchJump(elseJump)
	c.emitByte(byte(OpPop))

	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

var rules map[token.Kind]parseRule

func init() {
	rules = map[token.Kind]parseRule{
		token.LeftParen:    {grouping, nil, PrecNone},
		token.Minus:        {unary, binary, PrecTerm},
		token.Plus:         {nil, binary, PrecTerm},
		token.Slash:        {nil, binary, PrecFactor},
		token.Star:         {nil, binary, PrecFactor},
		token.Bang:         {unary, nil, PrecNone},
		token.BangEqual:    {nil, binary, PrecEquality},
		token.EqualEqual:   {nil, binary, PrecEquality},
		token.Greater:      {nil, binary, PrecComparison},
		token.GreaterEqual: {nil, binary, PrecComparison},
		token.Less:         {nil, binary, PrecComparison},
		token.LessEqual:    {nil, binary, PrecComparison},
		token.Identifier:   {variable, nil, PrecNone},
		token.String:       {literalString, nil, PrecNone},
		token.Number:       {number, nil, PrecNone},
		token.False:        {literal, nil, PrecNone},
		token.Nil:          {literal, nil, PrecNone},
		token.True:         {literal, nil, PrecNone},
		token.And:          {nil, and_, PrecAnd},
		token.Or:           {nil, or_, PrecOr},
	}
}
