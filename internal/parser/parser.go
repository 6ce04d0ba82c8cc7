// Package parser implements the hand-rolled recursive-descent parser over
// the token stream, emitting a postorder tree.Store per the grammar in
// spec.md §4.3. Every production appends its node only after its children
// have been appended, preserving postorder by construction: a production's
// node id is always the highest id once its children are in the store.
package parser

import (
	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/token"
	"github.com/nerdalytics/tinywhale/internal/tree"
)

// blockKind names the four active indented-block contexts a parser/checker
// pair tracks, per spec.md §4.6 and §9. The parser keeps its own stack of
// these purely to decide which statement-band node kind an indented line's
// content becomes (FieldDecl vs FieldInit vs MatchArm all share the shape
// "identifier : something" and are disambiguated by enclosing context).
type blockKind int

const (
	blockNone blockKind = iota
	blockTypeDecl
	blockRecordLiteral
	blockMatch
)

// Parser walks a token.Store and builds a tree.Store.
type Parser struct {
	tokens *token.Store
	pos    token.ID
	tree   *tree.Store
	diags  *diagnostics.Bag

	blockStack []blockKind
}

// Parse runs the parser to completion, returning the resulting tree and
// any diagnostics raised along the way. A grammar failure never aborts
// the whole parse; it is recorded as TWPARSE001 and the parser resyncs at
// the next line boundary, per spec.md §4.3's failure model.
func Parse(tokens *token.Store) (*tree.Store, *diagnostics.Bag) {
	p := &Parser{tokens: tokens, tree: tree.NewStore(), diags: &diagnostics.Bag{}}
	p.parseProgram()
	return p.tree, p.diags
}

func (p *Parser) cur() token.Token {
	return p.tokens.Get(p.pos)
}

func (p *Parser) curID() token.ID {
	return p.pos
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() token.ID {
	id := p.pos
	if p.tokens.Valid(p.pos + 1) {
		p.pos++
	}
	return id
}

func (p *Parser) expect(k token.Kind) (token.ID, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.fail("expected %s, found %s", k, p.cur().Kind)
	return token.InvalidID, false
}

func (p *Parser) fail(format string, args ...any) {
	p.diags.Add(diagnostics.New(diagnostics.CodeParseFailure, p.cur(), format, args...))
}

// skipLineRemainder resyncs after a failed production by advancing to the
// next NEWLINE, INDENT, DEDENT, or EOF.
func (p *Parser) skipLineRemainder() {
	for {
		switch p.cur().Kind {
		case token.NEWLINE, token.INDENT, token.DEDENT, token.EOF:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) consumeNewline() {
	for p.at(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) addNode(k tree.Kind, tokID token.ID, mark int) tree.ID {
	size := int32(p.tree.Len()-mark) + 1
	return p.tree.Add(tree.Node{Kind: k, TokenID: tokID, SubtreeSize: size})
}

// parseProgram consumes Line* until EOF, emitting Program last per
// spec.md §3 ("Program is always the last-added node").
func (p *Parser) parseProgram() {
	mark := p.tree.Len()
	startTok := p.curID()

	for !p.at(token.EOF) {
		p.consumeNewline()
		if p.at(token.EOF) {
			break
		}
		p.parseLine()
	}

	p.addNode(tree.Program, startTok, mark)
}

// parseLine dispatches on the line's leading token: INDENT opens a new
// block level, DEDENT closes one or more, anything else is a line at the
// current level.
func (p *Parser) parseLine() {
	switch p.cur().Kind {
	case token.INDENT:
		p.parseIndentedLine()
	case token.DEDENT:
		p.parseDedentLine()
	default:
		p.parseRootLine()
	}
}

func (p *Parser) parseRootLine() {
	mark := p.tree.Len()
	startTok := p.curID()
	ctx := blockNone
	if len(p.blockStack) > 0 {
		ctx = p.blockStack[len(p.blockStack)-1]
	}
	p.parseStatement(ctx)
	p.addNode(tree.RootLine, startTok, mark)
	p.consumeNewline()
}

// parseIndentedLine consumes the INDENT marker and interprets the line's
// content per the block context on top of the stack.
func (p *Parser) parseIndentedLine() {
	mark := p.tree.Len()
	startTok := p.curID()
	p.advance() // INDENT

	ctx := blockNone
	if len(p.blockStack) > 0 {
		ctx = p.blockStack[len(p.blockStack)-1]
	}
	if !p.at(token.NEWLINE) && !p.at(token.DEDENT) {
		p.parseStatement(ctx)
	}
	p.addNode(tree.IndentedLine, startTok, mark)
	p.consumeNewline()
}

// parseDedentLine consumes one-or-more DEDENT markers, popping one block
// context per marker, then an optional trailing statement.
func (p *Parser) parseDedentLine() {
	mark := p.tree.Len()
	startTok := p.curID()

	for p.at(token.DEDENT) {
		p.advance()
		if len(p.blockStack) > 0 {
			p.blockStack = p.blockStack[:len(p.blockStack)-1]
		}
	}

	ctx := blockNone
	if len(p.blockStack) > 0 {
		ctx = p.blockStack[len(p.blockStack)-1]
	}
	if !p.at(token.NEWLINE) && !p.at(token.EOF) {
		p.parseStatement(ctx)
	}
	p.addNode(tree.DedentLine, startTok, mark)
	p.consumeNewline()
}

// parseStatement parses one line's worth of content. ctx tells an indented
// line how to interpret an "identifier : something" shape.
func (p *Parser) parseStatement(ctx blockKind) {
	switch {
	case p.at(token.KEYWORD_PANIC):
		p.parsePanicStatement()
	case p.at(token.KEYWORD_TYPE):
		p.parseTypeDecl()
	case ctx == blockMatch:
		p.parseMatchArm()
	case ctx == blockTypeDecl:
		p.parseFieldDecl()
	case ctx == blockRecordLiteral:
		p.parseFieldInit()
	case p.at(token.IDENT_LOWER), p.at(token.IDENT_UPPER):
		p.parseBindingLine()
	default:
		p.fail("unexpected token %s at start of statement", p.cur().Kind)
		p.skipLineRemainder()
	}
}

func (p *Parser) parsePanicStatement() {
	mark := p.tree.Len()
	tok := p.advance()
	p.addNode(tree.PanicStatement, tok, mark)
}

// parseTypeDecl parses `type Name` and opens a TypeDecl block context for
// the FieldDecl lines that follow.
func (p *Parser) parseTypeDecl() {
	mark := p.tree.Len()
	tok := p.advance() // 'type'
	p.parseIdentifier()
	p.addNode(tree.TypeDecl, tok, mark)
	p.blockStack = append(p.blockStack, blockTypeDecl)
}

func (p *Parser) parseFieldDecl() {
	mark := p.tree.Len()
	tok := p.curID()
	p.parseIdentifier()
	p.expect(token.COLON)
	p.parseTypeRef()
	p.addNode(tree.FieldDecl, tok, mark)
}

func (p *Parser) parseFieldInit() {
	mark := p.tree.Len()
	tok := p.curID()
	p.parseIdentifier()
	p.expect(token.COLON)
	p.parseExpression()
	p.addNode(tree.FieldInit, tok, mark)
}

// parseBindingLine implements spec.md §4.3's BindingExpr classification:
// identifier (: TypeRef)? = Expression?. Uppercase LHS followed directly by
// `=` and a bare uppercase RHS is a type alias; any other binding with no
// RHS expression (`name : Type` or `name : Type =`) is a record literal
// opener, whatever the case of its names; everything else is a value
// binding.
func (p *Parser) parseBindingLine() {
	mark := p.tree.Len()
	tok := p.curID()
	lhsUpper := p.at(token.IDENT_UPPER)
	p.parseIdentifier()

	if lhsUpper && p.at(token.ASSIGN) {
		p.advance()
		if p.at(token.IDENT_UPPER) {
			p.parseIdentifier()
			p.addNode(tree.TypeAlias, tok, mark)
			return
		}
		p.fail("expected upper identifier on right-hand side of type alias")
		p.skipLineRemainder()
		p.addNode(tree.TypeAlias, tok, mark)
		return
	}

	hasType := false
	if p.at(token.COLON) {
		p.advance()
		hasType = true
		p.parseTypeRef()
	}

	if !p.at(token.ASSIGN) {
		// `name : Type` with no initializer at all: treated as a record
		// binding whose body is discovered on subsequent indented lines.
		p.addNode(tree.RecordBinding, tok, mark)
		p.blockStack = append(p.blockStack, blockRecordLiteral)
		return
	}

	p.advance() // '='
	if p.at(token.NEWLINE) || p.at(token.EOF) {
		// `name : Type =` with nothing on the line: record literal body
		// follows as indented FieldInit lines.
		p.addNode(tree.RecordBinding, tok, mark)
		p.blockStack = append(p.blockStack, blockRecordLiteral)
		return
	}

	wasMatch := p.at(token.KEYWORD_MATCH)
	p.parseExpression()
	_ = hasType
	p.addNode(tree.VariableBinding, tok, mark)
	if wasMatch {
		p.blockStack = append(p.blockStack, blockMatch)
	}
}

// parseIdentifier accepts either an upper or lower identifier; callers that
// care about casing (e.g. `type Name`) check it themselves before calling.
func (p *Parser) parseIdentifier() tree.ID {
	mark := p.tree.Len()
	if !p.at(token.IDENT_LOWER) && !p.at(token.IDENT_UPPER) {
		p.fail("expected identifier, found %s", p.cur().Kind)
		tok := p.advance()
		return p.addNode(tree.Identifier, tok, mark)
	}
	tok := p.advance()
	return p.addNode(tree.Identifier, tok, mark)
}

// parseTypeRef = primitive | upperIdentifier | RefinementType | ListType.
// FuncType has no concrete syntax in spec.md §4.3's production list and is
// intentionally not parsed here; see DESIGN.md. mark/startTok are captured
// once, before the base type, and reused for every "[] TypeBounds" suffix
// the same way the binary-expression chains below do.
func (p *Parser) parseTypeRef() tree.ID {
	mark := p.tree.Len()
	startTok := p.curID()

	result := p.parseTypeRefBase()
	for p.at(token.LBRACKET) {
		p.advance()
		p.expect(token.RBRACKET)
		p.parseTypeBounds()
		result = p.addNode(tree.ListType, startTok, mark)
	}
	return result
}

func (p *Parser) parseTypeRefBase() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()

	switch p.cur().Kind {
	case token.KEYWORD_I32, token.KEYWORD_I64, token.KEYWORD_F32, token.KEYWORD_F64:
		p.advance()
		if p.at(token.LT) {
			p.parseTypeBounds()
			return p.addNode(tree.RefinementType, tok, mark)
		}
		return p.addNode(tree.Identifier, tok, mark)
	case token.IDENT_UPPER:
		p.advance()
		return p.addNode(tree.Identifier, tok, mark)
	default:
		p.fail("expected a type reference, found %s", p.cur().Kind)
		return tree.InvalidID
	}
}

// TypeBounds = < Bound (, Bound)* >, Bound = (min|max|size) = [-]? intLiteral.
func (p *Parser) parseTypeBounds() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()
	p.expect(token.LT)
	p.parseBound()
	for p.at(token.COMMA) {
		p.advance()
		p.parseBound()
	}
	p.expect(token.GT)
	return p.addNode(tree.TypeBounds, tok, mark)
}

// parseBound's value is parsed as a real IntLiteral (or UnaryExpr-wrapped
// negative IntLiteral) child node, not just consumed, so the checker can
// read the bound's numeric value back out of the tree.
func (p *Parser) parseBound() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()
	if p.at(token.IDENT_LOWER) {
		p.advance() // min/max/size spelled as a lowercase identifier
	} else {
		p.fail("expected min, max, or size, found %s", p.cur().Kind)
	}
	p.expect(token.ASSIGN)
	p.parseBoundValue()
	return p.addNode(tree.Bound, tok, mark)
}

func (p *Parser) parseBoundValue() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()
	if p.at(token.MINUS) {
		p.advance()
		litMark := p.tree.Len()
		litTok, _ := p.expect(token.INT_LITERAL)
		p.addNode(tree.IntLiteral, litTok, litMark)
		return p.addNode(tree.UnaryExpr, tok, mark)
	}
	p.expect(token.INT_LITERAL)
	return p.addNode(tree.IntLiteral, tok, mark)
}

// --- Expressions ---------------------------------------------------------
//
// Precedence, bottom-up: || , && , bitwise | ^ & , equality/relational
// (chainable), shift, additive, multiplicative, unary, postfix, primary.

func (p *Parser) parseExpression() tree.ID {
	if p.at(token.KEYWORD_MATCH) {
		return p.parseMatchExpr()
	}
	return p.parseLogicalOr()
}

// Each of the left-associative binary levels below captures mark once,
// before its left-hand operand is parsed, and reuses it for every fold of
// the loop: a chain a+b+c's outer BinaryExpr's subtree spans every node
// emitted since the chain began (the inner BinaryExpr for a+b is itself one
// of its two direct children, and already accounts for a and b in its own
// SubtreeSize), so the node count since the original mark is always
// exactly 1 + left.SubtreeSize + right.SubtreeSize. Unlike most productions,
// the node's TokenID is the operator token (captured fresh each fold), not
// the leftmost source position: the checker needs the operator's token.Kind
// to pick a BinaryOperator, and the operator's position is also the more
// useful diagnostic anchor for a type-mismatch message.

func (p *Parser) parseLogicalOr() tree.ID {
	mark := p.tree.Len()
	left := p.parseLogicalAnd()
	for p.at(token.OR) {
		opTok := p.advance()
		p.parseLogicalAnd()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func (p *Parser) parseLogicalAnd() tree.ID {
	mark := p.tree.Len()
	left := p.parseBitwiseOr()
	for p.at(token.AND) {
		opTok := p.advance()
		p.parseBitwiseOr()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func (p *Parser) parseBitwiseOr() tree.ID {
	mark := p.tree.Len()
	left := p.parseBitwiseXor()
	for p.at(token.PIPE) {
		opTok := p.advance()
		p.parseBitwiseXor()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func (p *Parser) parseBitwiseXor() tree.ID {
	mark := p.tree.Len()
	left := p.parseBitwiseAnd()
	for p.at(token.CARET) {
		opTok := p.advance()
		p.parseBitwiseAnd()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func (p *Parser) parseBitwiseAnd() tree.ID {
	mark := p.tree.Len()
	left := p.parseComparison()
	for p.at(token.AMP) {
		opTok := p.advance()
		p.parseComparison()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func isComparisonOp(k token.Kind) bool {
	switch k {
	case token.LT, token.LE, token.GT, token.GE, token.EQ, token.NEQ:
		return true
	}
	return false
}

// parseComparison flattens a chain of three or more operands (`a < b < c`)
// into a single CompareChain node, per spec.md §4.3/§4.6. A single
// comparison (`a < b`) is an ordinary BinaryExpr like any other operator
// level, so the checker can still tell `a < b` from `a == b` apart in the
// emitted SemIR. Its TokenID is the first comparison operator in the
// chain, the same operator-anchored convention the binary-expression
// levels above use.
func (p *Parser) parseComparison() tree.ID {
	mark := p.tree.Len()
	left := p.parseShift()
	count := 1
	tok := token.InvalidID
	for isComparisonOp(p.cur().Kind) {
		if count == 1 {
			tok = p.curID()
		}
		p.advance()
		p.parseShift()
		count++
	}
	switch count {
	case 1:
		return left
	case 2:
		return p.addNode(tree.BinaryExpr, tok, mark)
	default:
		return p.addNode(tree.CompareChain, tok, mark)
	}
}

func (p *Parser) parseShift() tree.ID {
	mark := p.tree.Len()
	left := p.parseAdditive()
	for p.at(token.SHL) || p.at(token.SHR) || p.at(token.USHR) {
		opTok := p.advance()
		p.parseAdditive()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func (p *Parser) parseAdditive() tree.ID {
	mark := p.tree.Len()
	left := p.parseMultiplicative()
	for p.at(token.PLUS) || p.at(token.MINUS) {
		opTok := p.advance()
		p.parseMultiplicative()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func (p *Parser) parseMultiplicative() tree.ID {
	mark := p.tree.Len()
	left := p.parseUnary()
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) || p.at(token.DPERCENT) {
		opTok := p.advance()
		p.parseUnary()
		left = p.addNode(tree.BinaryExpr, opTok, mark)
	}
	return left
}

func (p *Parser) parseUnary() tree.ID {
	if p.at(token.MINUS) || p.at(token.TILDE) {
		mark := p.tree.Len()
		tok := p.advance()
		p.parseUnary()
		return p.addNode(tree.UnaryExpr, tok, mark)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() tree.ID {
	mark := p.tree.Len()
	startTok := p.curID()
	expr := p.parsePrimary()

	for {
		switch p.cur().Kind {
		case token.DOT:
			p.advance()
			p.parseIdentifier()
			expr = p.addNode(tree.FieldAccess, startTok, mark)
		case token.LBRACKET:
			p.advance()
			p.parseIntLiteralOnly()
			p.expect(token.RBRACKET)
			expr = p.addNode(tree.IndexAccess, startTok, mark)
		case token.LPAREN:
			p.advance()
			p.parseCallArgs()
			p.expect(token.RPAREN)
			expr = p.addNode(tree.FuncCall, startTok, mark)
		default:
			return expr
		}
	}
}

func (p *Parser) parseCallArgs() {
	if p.at(token.RPAREN) {
		return
	}
	p.parseExpression()
	for p.at(token.COMMA) {
		p.advance()
		p.parseExpression()
	}
}

// parseIntLiteralOnly implements spec.md §4.3's requirement that the
// parser refuses non-literal list indices (surfaced as TWPARSE… per §4.6).
func (p *Parser) parseIntLiteralOnly() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()
	if !p.at(token.INT_LITERAL) {
		p.fail("list index must be an integer literal, found %s", p.cur().Kind)
	} else {
		p.advance()
	}
	return p.addNode(tree.IntLiteral, tok, mark)
}

func (p *Parser) parsePrimary() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()

	switch p.cur().Kind {
	case token.INT_LITERAL:
		p.advance()
		return p.addNode(tree.IntLiteral, tok, mark)
	case token.FLOAT_LITERAL:
		p.advance()
		return p.addNode(tree.FloatLiteral, tok, mark)
	case token.IDENT_LOWER, token.IDENT_UPPER:
		p.advance()
		return p.addNode(tree.Identifier, tok, mark)
	case token.LPAREN:
		p.advance()
		p.parseExpression()
		p.expect(token.RPAREN)
		return p.addNode(tree.ParenExpr, tok, mark)
	case token.LBRACKET:
		return p.parseListLiteral()
	case token.KEYWORD_PANIC:
		p.advance()
		return p.addNode(tree.PanicExpr, tok, mark)
	default:
		p.fail("expected an expression, found %s", p.cur().Kind)
		p.advance()
		return p.addNode(tree.Identifier, tok, mark)
	}
}

// parseListLiteral = [ Expression (, Expression)* ]. An empty list literal
// is rejected at parse per spec.md §8.
func (p *Parser) parseListLiteral() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()
	p.expect(token.LBRACKET)
	if p.at(token.RBRACKET) {
		p.fail("empty list literal is not allowed")
	} else {
		p.parseExpression()
		for p.at(token.COMMA) {
			p.advance()
			p.parseExpression()
		}
	}
	p.expect(token.RBRACKET)
	return p.addNode(tree.ListLiteral, tok, mark)
}

// parseMatchExpr = match scrutinee, followed by indented MatchArm lines
// (driven by the caller pushing blockMatch once this returns).
func (p *Parser) parseMatchExpr() tree.ID {
	mark := p.tree.Len()
	tok := p.advance() // 'match'
	p.parseLogicalOr()
	return p.addNode(tree.MatchExpr, tok, mark)
}

// parseMatchArm = Pattern -> BlockExpression.
func (p *Parser) parseMatchArm() {
	mark := p.tree.Len()
	tok := p.curID()
	p.parsePattern()
	p.expect(token.ARROW)
	p.parseExpression()
	p.addNode(tree.MatchArm, tok, mark)
}

// Pattern = OrPattern; OrPattern = PrimaryPattern (| PrimaryPattern)*.
func (p *Parser) parsePattern() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()
	left := p.parsePrimaryPattern()
	count := 1
	for p.at(token.PIPE) {
		p.advance()
		p.parsePrimaryPattern()
		count++
	}
	if count == 1 {
		return left
	}
	return p.addNode(tree.OrPattern, tok, mark)
}

func (p *Parser) parsePrimaryPattern() tree.ID {
	mark := p.tree.Len()
	tok := p.curID()

	switch p.cur().Kind {
	case token.UNDERSCORE:
		p.advance()
		return p.addNode(tree.WildcardPattern, tok, mark)
	case token.IDENT_LOWER:
		p.advance()
		return p.addNode(tree.BindingPattern, tok, mark)
	case token.MINUS:
		p.advance()
		p.expect(token.INT_LITERAL)
		return p.addNode(tree.LiteralPattern, tok, mark)
	case token.INT_LITERAL, token.FLOAT_LITERAL:
		p.advance()
		return p.addNode(tree.LiteralPattern, tok, mark)
	default:
		p.fail("expected a pattern, found %s", p.cur().Kind)
		p.advance()
		return p.addNode(tree.WildcardPattern, tok, mark)
	}
}
