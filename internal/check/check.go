// Package check implements the semantic checker: the pass that walks a
// postorder tree.Store and produces a SemIR (TypeStore, SymbolStore,
// InstStore, ScopeStore) plus a diagnostics.Bag, per spec.md §4.6. Like the
// parser, a failed check never aborts the pass; it records a coded
// diagnostic and keeps going so later lines still get checked.
package check

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/intern"
	"github.com/nerdalytics/tinywhale/internal/ir"
	"github.com/nerdalytics/tinywhale/internal/scope"
	"github.com/nerdalytics/tinywhale/internal/symbols"
	"github.com/nerdalytics/tinywhale/internal/token"
	"github.com/nerdalytics/tinywhale/internal/tree"
	"github.com/nerdalytics/tinywhale/internal/types"
)

// blockKind names the active indented-block context, mirroring the
// parser's own private blockKind (package parser) but derived
// independently here: the checker has no access to the parser's internal
// stack, and spec.md §4.6/§9 treats this as the checker's own state.
type blockKind int

const (
	ctxNone blockKind = iota
	ctxTypeDecl
	ctxRecordLiteral
	ctxMatch
)

type typeDeclCtx struct {
	name   string
	nodeID tree.ID
	fields []types.Field
	seen   map[string]bool
}

type recordLiteralCtx struct {
	bindingName string
	recordType  types.ID
	nodeID      tree.ID
	seen        map[string]bool
	values      map[string]ir.ID
}

type matchArm struct {
	patternNode tree.ID
	bodyInst    ir.ID
}

type matchCtx struct {
	resultName    string
	resultType    types.ID
	scrutineeInst ir.ID
	scrutineeType types.ID
	nodeID        tree.ID
	arms          []matchArm
	sawCatchAll   bool
}

type frame struct {
	kind     blockKind
	typeDecl *typeDeclCtx
	record   *recordLiteralCtx
	match    *matchCtx
}

// Result is the SemIR a successful (or partially successful) check
// produces: the four stores downstream consumers (an emitter, or the
// pkg/semir view types) read from.
type Result struct {
	Types   *types.Store
	Symbols *symbols.Store
	Insts   *ir.Store
	Scopes  *scope.Store
}

// Checker walks one tree.Store once, left to right, top to bottom.
type Checker struct {
	tree    *tree.Store
	tokens  *token.Store
	strings *intern.StringTable
	floats  *intern.FloatTable

	types   *types.Store
	symbols *symbols.Store
	insts   *ir.Store
	scopes  *scope.Store
	diags   *diagnostics.Bag

	stack    []frame
	curScope scope.ID

	unreachableActive bool
	unreachableStart  int
	unreachableEnd    int
}

// Check runs the semantic pass over tr, resolving identifiers against
// tokens and interning synthesized flattened-binding names through
// strings. floats backs f32 overflow checks against a FLOAT_LITERAL's
// actual parsed value.
func Check(tr *tree.Store, tokens *token.Store, strings *intern.StringTable, floats *intern.FloatTable) (*Result, *diagnostics.Bag) {
	c := &Checker{
		tree:    tr,
		tokens:  tokens,
		strings: strings,
		floats:  floats,
		types:   types.NewStore(),
		symbols: symbols.NewStore(),
		insts:   ir.NewStore(),
		scopes:  scope.NewStore(),
		diags:   &diagnostics.Bag{},
	}
	c.curScope = c.scopes.Root()
	c.run()
	return &Result{Types: c.types, Symbols: c.symbols, Insts: c.insts, Scopes: c.scopes}, c.diags
}

func (c *Checker) run() {
	root := c.tree.Root()
	for _, lineID := range c.tree.Children(root) {
		c.checkLine(lineID)
	}
	for len(c.stack) > 0 {
		c.popContext()
	}
	c.flushUnreachable()
}

func (c *Checker) tokenOf(id tree.ID) token.Token {
	return c.tokens.Get(c.tree.Get(id).TokenID)
}

func (c *Checker) fail(tok token.Token, code diagnostics.Code, format string, args ...any) {
	c.diags.Add(diagnostics.New(code, tok, format, args...))
}

// dedentDepth counts the consecutive DEDENT tokens starting at startTok.
// A tree.DedentLine node doesn't carry its own dedent count (only its
// optional trailing-statement child does), so the checker recovers it by
// rescanning the raw token stream the same way the parser consumed it.
func (c *Checker) dedentDepth(startTok token.ID) int {
	depth := 0
	tok := startTok
	for c.tokens.Valid(tok) && c.tokens.Get(tok).Kind == token.DEDENT {
		depth++
		tok++
	}
	return depth
}

func (c *Checker) popContext() {
	if len(c.stack) == 0 {
		return
	}
	top := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	switch top.kind {
	case ctxTypeDecl:
		c.finalizeTypeDecl(top.typeDecl)
	case ctxRecordLiteral:
		c.finalizeRecordLiteral(top.record)
	case ctxMatch:
		c.finalizeMatch(top.match)
	}
}

func (c *Checker) checkLine(lineID tree.ID) {
	node := c.tree.Get(lineID)
	switch node.Kind {
	case tree.RootLine, tree.IndentedLine:
		kids := c.tree.Children(lineID)
		if len(kids) > 0 {
			c.checkStatement(kids[0])
		}
	case tree.DedentLine:
		depth := c.dedentDepth(node.TokenID)
		for i := 0; i < depth; i++ {
			c.popContext()
		}
		kids := c.tree.Children(lineID)
		if len(kids) > 0 {
			c.checkStatement(kids[0])
		}
	}
}

func (c *Checker) topFrame() (frame, bool) {
	if len(c.stack) == 0 {
		return frame{}, false
	}
	return c.stack[len(c.stack)-1], true
}

// extendUnreachable folds line into the pending unreachable-code range,
// opening one if none is active. Consecutive unreachable statements merge
// into a single TWCHECK050 warning instead of one per line.
func (c *Checker) extendUnreachable(line int) {
	if !c.unreachableActive {
		c.unreachableActive = true
		c.unreachableStart = line
	}
	c.unreachableEnd = line
}

func (c *Checker) flushUnreachable() {
	if !c.unreachableActive {
		return
	}
	tok := token.Token{Line: c.unreachableStart}
	d := diagnostics.NewWarning(diagnostics.CodeUnreachableCode, tok, "unreachable code")
	if c.unreachableStart == c.unreachableEnd {
		d.WithSuggestion("unreachable code at line %d", c.unreachableStart)
	} else {
		d.WithSuggestion("unreachable code from line %d to line %d", c.unreachableStart, c.unreachableEnd)
	}
	c.diags.Add(d)
	c.unreachableActive = false
}

// checkStatement dispatches one line's statement node. Every block-scoped
// kind (FieldDecl, FieldInit, MatchArm) independently re-checks that the
// stack's current top matches the context it expects, since the checker's
// stack is rebuilt from scratch rather than shared with the parser's.
func (c *Checker) checkStatement(id tree.ID) {
	node := c.tree.Get(id)
	top, hasTop := c.topFrame()

	switch node.Kind {
	case tree.PanicStatement:
		if !c.scopes.IsReachable(c.curScope) {
			c.extendUnreachable(c.tokenOf(id).Line)
		}
		c.insts.Add(ir.NewUnreachable(id))
		c.scopes.SetReachable(c.curScope, false)

	case tree.TypeDecl:
		c.beginTypeDecl(id)

	case tree.TypeAlias:
		c.checkTypeAlias(id)

	case tree.FieldDecl:
		if !hasTop || top.kind != ctxTypeDecl {
			c.fail(c.tokenOf(id), diagnostics.CodeUnexpectedIndent, "field declaration outside a type declaration")
			return
		}
		c.checkFieldDecl(id, top.typeDecl)

	case tree.FieldInit:
		if !hasTop || top.kind != ctxRecordLiteral {
			c.fail(c.tokenOf(id), diagnostics.CodeUnexpectedIndent, "field initializer outside a record literal")
			return
		}
		c.checkFieldInit(id, top.record)

	case tree.MatchArm:
		if !hasTop || top.kind != ctxMatch {
			c.fail(c.tokenOf(id), diagnostics.CodeArmOutsideContext, "match arm outside a match expression")
			return
		}
		c.checkMatchArm(id, top.match)

	case tree.RecordBinding:
		if !c.scopes.IsReachable(c.curScope) {
			c.extendUnreachable(c.tokenOf(id).Line)
		}
		c.beginRecordBinding(id)

	case tree.VariableBinding:
		if !c.scopes.IsReachable(c.curScope) {
			c.extendUnreachable(c.tokenOf(id).Line)
		}
		c.checkVariableBinding(id)

	default:
		c.fail(c.tokenOf(id), diagnostics.CodeUnexpectedIndent, "unexpected statement %s", node.Kind)
	}
}

// --- type declarations ---------------------------------------------------

func (c *Checker) beginTypeDecl(id tree.ID) {
	kids := c.tree.Children(id)
	if len(kids) == 0 {
		return
	}
	name := c.tokenOf(kids[0]).Lexeme
	c.stack = append(c.stack, frame{kind: ctxTypeDecl, typeDecl: &typeDeclCtx{
		name: name, nodeID: id, seen: make(map[string]bool),
	}})
}

func (c *Checker) checkFieldDecl(id tree.ID, top *typeDeclCtx) {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return
	}
	fieldTok := c.tokenOf(kids[0])
	fieldName := fieldTok.Lexeme
	if top.seen[fieldName] {
		c.fail(fieldTok, diagnostics.CodeDuplicateField, "duplicate field %q in type %q", fieldName, top.name)
		return
	}
	top.seen[fieldName] = true

	typeRefID := kids[1]
	refNode := c.tree.Get(typeRefID)
	var fieldType types.ID
	if refNode.Kind == tree.Identifier && c.tokenOf(typeRefID).Lexeme == top.name {
		c.fail(c.tokenOf(typeRefID), diagnostics.CodeSelfReferentialField, "field %q cannot use the enclosing type %q as its own type", fieldName, top.name)
		fieldType = types.Invalid
	} else {
		fieldType = c.resolveTypeRef(typeRefID)
	}
	top.fields = append(top.fields, types.Field{Name: fieldName, Type: fieldType, Index: len(top.fields)})
}

func (c *Checker) finalizeTypeDecl(top *typeDeclCtx) {
	c.types.RegisterRecordType(top.name, top.fields, top.nodeID)
}

func (c *Checker) checkTypeAlias(id tree.ID) {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return
	}
	lhsTok := c.tokenOf(kids[0])
	rhsTok := c.tokenOf(kids[1])
	target, ok := c.types.Lookup(rhsTok.Lexeme)
	if !ok {
		c.fail(rhsTok, diagnostics.CodeUnknownType, "unknown type %q", rhsTok.Lexeme)
		return
	}
	c.types.AliasName(lhsTok.Lexeme, target)
}

// --- type references ------------------------------------------------------

func (c *Checker) resolveTypeRef(id tree.ID) types.ID {
	if id == tree.InvalidID {
		return types.Invalid
	}
	node := c.tree.Get(id)
	switch node.Kind {
	case tree.Identifier:
		name := c.tokenOf(id).Lexeme
		if resolved, ok := c.types.Lookup(name); ok {
			return resolved
		}
		c.fail(c.tokenOf(id), diagnostics.CodeUnknownType, "unknown type %q", name)
		return types.Invalid
	case tree.RefinementType:
		return c.resolveRefinementType(id)
	case tree.ListType:
		return c.resolveListType(id)
	default:
		c.fail(c.tokenOf(id), diagnostics.CodeUnknownType, "invalid type reference")
		return types.Invalid
	}
}

func (c *Checker) resolveRefinementType(id tree.ID) types.ID {
	baseTok := c.tokenOf(id)
	base, ok := c.types.Lookup(baseTok.Lexeme)
	if !ok {
		c.fail(baseTok, diagnostics.CodeUnknownType, "unknown base type %q", baseTok.Lexeme)
		return types.Invalid
	}
	if !c.types.IsInteger(base) {
		c.fail(baseTok, diagnostics.CodeRefinementOnNonInt, "refinement bounds require an integer base type, found %q", baseTok.Lexeme)
	}
	kids := c.tree.Children(id)
	var min, max types.Bound
	if len(kids) > 0 {
		min, max, _ = c.readTypeBounds(kids[0])
	}
	return c.types.RegisterRefinedType(base, min, max, id)
}

func (c *Checker) resolveListType(id tree.ID) types.ID {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return types.Invalid
	}
	elemType := c.resolveTypeRef(kids[0])
	_, _, size := c.readTypeBounds(kids[1])
	if size <= 0 {
		c.fail(c.tokenOf(kids[1]), diagnostics.CodeInvalidListSize, "list type requires a size= bound of at least 1")
		size = 0
	}
	return c.types.RegisterListType(elemType, size, id)
}

// readTypeBounds reads every Bound child of a TypeBounds node, returning
// whichever of min/max/size were present (size defaults to -1, since 0 is
// a legitimate thing to reject explicitly rather than confuse with
// "absent").
func (c *Checker) readTypeBounds(id tree.ID) (min, max types.Bound, size int) {
	size = -1
	for _, b := range c.tree.Children(id) {
		name, v, ok := c.readBound(b)
		if !ok {
			continue
		}
		switch name {
		case "min":
			min = types.Bound{Present: true, Value: v.String()}
		case "max":
			max = types.Bound{Present: true, Value: v.String()}
		case "size":
			n, err := strconv.Atoi(v.String())
			if err == nil {
				size = n
			}
		default:
			c.fail(c.tokenOf(b), diagnostics.CodeUnknownType, "unknown bound %q", name)
		}
	}
	return
}

func (c *Checker) readBound(id tree.ID) (string, *big.Int, bool) {
	name := c.tokenOf(id).Lexeme
	kids := c.tree.Children(id)
	if len(kids) == 0 {
		return name, nil, false
	}
	v, ok := c.readIntLiteralNode(kids[0])
	return name, v, ok
}

// readIntLiteralNode reads an IntLiteral, or a UnaryExpr wrapping one
// (negative bound values), back into a big.Int.
func (c *Checker) readIntLiteralNode(id tree.ID) (*big.Int, bool) {
	node := c.tree.Get(id)
	switch node.Kind {
	case tree.IntLiteral:
		return parseIntLiteral(c.tokenOf(id).Lexeme)
	case tree.UnaryExpr:
		kids := c.tree.Children(id)
		if len(kids) == 0 {
			return nil, false
		}
		inner, ok := c.readIntLiteralNode(kids[0])
		if !ok {
			return nil, false
		}
		return new(big.Int).Neg(inner), true
	default:
		return nil, false
	}
}

// parseIntLiteral expands an integer literal's raw text into an
// arbitrary-precision value, handling scientific notation (1e10) by
// splitting at e/E and multiplying the mantissa by a power of ten, so a
// literal's magnitude is never truncated before the bounds check runs.
func parseIntLiteral(text string) (*big.Int, bool) {
	eIdx := strings.IndexAny(text, "eE")
	if eIdx < 0 {
		return new(big.Int).SetString(text, 10)
	}
	mantissa, exponent := text[:eIdx], text[eIdx+1:]
	m, ok := new(big.Int).SetString(mantissa, 10)
	if !ok {
		return nil, false
	}
	e, err := strconv.Atoi(exponent)
	if err != nil || e < 0 {
		return nil, false
	}
	pow := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(e)), nil)
	return new(big.Int).Mul(m, pow), true
}

// --- record bindings -------------------------------------------------------

func (c *Checker) beginRecordBinding(id tree.ID) {
	kids := c.tree.Children(id)
	if len(kids) == 0 {
		return
	}
	nameTok := c.tokenOf(kids[0])
	name := nameTok.Lexeme
	recordType := types.Invalid
	if len(kids) >= 2 {
		recordType = c.resolveTypeRef(kids[1])
		if recordType != types.Invalid && c.types.Get(recordType).Kind != types.KindRecord {
			c.fail(c.tokenOf(kids[1]), diagnostics.CodeTypeMismatch, "%q must name a record type", name)
			recordType = types.Invalid
		}
	} else {
		c.fail(nameTok, diagnostics.CodeUnknownType, "record binding %q is missing a type annotation", name)
	}
	c.stack = append(c.stack, frame{kind: ctxRecordLiteral, record: &recordLiteralCtx{
		bindingName: name, recordType: recordType, nodeID: id,
		seen: make(map[string]bool), values: make(map[string]ir.ID),
	}})
}

func (c *Checker) checkFieldInit(id tree.ID, top *recordLiteralCtx) {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return
	}
	fieldTok := c.tokenOf(kids[0])
	fieldName := fieldTok.Lexeme
	if top.seen[fieldName] {
		c.fail(fieldTok, diagnostics.CodeDuplicateFieldInit, "duplicate field initializer %q", fieldName)
		c.checkExpressionInferred(kids[1])
		return
	}
	top.seen[fieldName] = true

	if top.recordType == types.Invalid {
		c.checkExpressionInferred(kids[1])
		return
	}
	info := c.types.Get(top.recordType)
	var field *types.Field
	for i := range info.Fields {
		if info.Fields[i].Name == fieldName {
			field = &info.Fields[i]
			break
		}
	}
	if field == nil {
		c.fail(fieldTok, diagnostics.CodeUnknownFieldInit, "type %q has no field %q", info.Name, fieldName)
		c.checkExpressionInferred(kids[1])
		return
	}
	valInst, _ := c.checkExpression(kids[1], field.Type)
	top.values[fieldName] = valInst
}

func (c *Checker) finalizeRecordLiteral(top *recordLiteralCtx) {
	if top.recordType == types.Invalid {
		return
	}
	info := c.types.Get(top.recordType)
	for _, f := range info.Fields {
		if _, ok := top.values[f.Name]; !ok {
			c.fail(c.tokenOf(top.nodeID), diagnostics.CodeMissingField, "record literal for %q is missing field %q", info.Name, f.Name)
		}
	}
	ids := c.symbols.DeclareRecordBinding(top.bindingName, info.Fields, top.nodeID, c.strings)
	for i, f := range info.Fields {
		if val, ok := top.values[f.Name]; ok {
			c.insts.Add(ir.NewBind(f.Type, ids[i], val, top.nodeID))
		}
	}
}

// --- variable bindings -----------------------------------------------------

func (c *Checker) checkVariableBinding(id tree.ID) {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return
	}
	name := c.tokenOf(kids[0]).Lexeme

	declaredType := types.Invalid
	var exprID tree.ID
	if len(kids) >= 3 {
		declaredType = c.resolveTypeRef(kids[1])
		exprID = kids[2]
	} else {
		exprID = kids[1]
	}
	exprNode := c.tree.Get(exprID)

	if declaredType != types.Invalid && c.types.Get(declaredType).Kind == types.KindList && exprNode.Kind == tree.ListLiteral {
		c.checkListBinding(id, name, declaredType, exprID)
		return
	}
	if exprNode.Kind == tree.MatchExpr {
		c.beginMatchBinding(id, name, declaredType, exprID)
		return
	}

	var valInst ir.ID
	var actualType types.ID
	if declaredType != types.Invalid {
		valInst, actualType = c.checkExpression(exprID, declaredType)
	} else {
		valInst, actualType = c.checkExpressionInferred(exprID)
	}
	c.bindSimple(name, actualType, valInst, id)
}

func (c *Checker) bindSimple(name string, typ types.ID, valInst ir.ID, nodeID tree.ID) symbols.ID {
	sym := c.symbols.Add(symbols.Entry{NameID: c.strings.Intern(name), Name: name, Type: typ, ParseNodeID: nodeID})
	c.insts.Add(ir.NewBind(typ, sym, valInst, nodeID))
	return sym
}

func (c *Checker) checkListBinding(id tree.ID, name string, listType types.ID, exprID tree.ID) {
	info := c.types.Get(listType)
	elems := c.tree.Children(exprID)
	if len(elems) != info.Size {
		c.fail(c.tokenOf(exprID), diagnostics.CodeListLengthMismatch, "list literal has %d elements, want %d", len(elems), info.Size)
	}
	vals := make([]ir.ID, len(elems))
	for i, e := range elems {
		vals[i], _ = c.checkExpression(e, info.ElementType)
	}
	ids := c.symbols.DeclareListBinding(name, listType, id, c.strings, c.types)
	n := len(ids)
	if len(vals) < n {
		n = len(vals)
	}
	for i := 0; i < n; i++ {
		c.insts.Add(ir.NewBind(info.ElementType, ids[i], vals[i], id))
	}
}

func (c *Checker) beginMatchBinding(id tree.ID, name string, resultType types.ID, matchExprID tree.ID) {
	kids := c.tree.Children(matchExprID)
	scrutineeInst := ir.InvalidID
	scrutineeType := types.Invalid
	if len(kids) > 0 {
		scrutineeInst, scrutineeType = c.checkExpressionInferred(kids[0])
	}
	c.stack = append(c.stack, frame{kind: ctxMatch, match: &matchCtx{
		resultName: name, resultType: resultType, nodeID: id,
		scrutineeInst: scrutineeInst, scrutineeType: scrutineeType,
	}})
}

func (c *Checker) checkMatchArm(id tree.ID, top *matchCtx) {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return
	}
	patternID, bodyID := kids[0], kids[1]
	c.checkPattern(patternID, top.scrutineeType)
	bodyInst, bodyType := c.checkExpression(bodyID, top.resultType)
	if top.resultType == types.Invalid {
		top.resultType = bodyType
	}
	top.arms = append(top.arms, matchArm{patternNode: patternID, bodyInst: bodyInst})
	// Only the most recent arm counts: exhaustiveness is judged by the last one.
	top.sawCatchAll = c.isCatchAllPattern(patternID)
}

func (c *Checker) finalizeMatch(top *matchCtx) {
	if !top.sawCatchAll {
		c.fail(c.tokenOf(top.nodeID), diagnostics.CodeNonExhaustiveMatch, "match for %q is not exhaustive; the last arm must be a wildcard or binding pattern", top.resultName)
	}
	for _, a := range top.arms {
		c.insts.Add(ir.Inst{Kind: ir.MatchArm, TypeID: top.resultType, Arg0: int32(a.patternNode), Arg1: int32(a.bodyInst), ParseNodeID: top.nodeID})
	}
	matchInst := c.insts.Add(ir.Inst{Kind: ir.Match, TypeID: top.resultType, Arg0: int32(top.scrutineeInst), Arg1: int32(len(top.arms)), ParseNodeID: top.nodeID})
	c.bindSimple(top.resultName, top.resultType, matchInst, top.nodeID)
}

func (c *Checker) checkPattern(id tree.ID, scrutineeType types.ID) {
	node := c.tree.Get(id)
	switch node.Kind {
	case tree.WildcardPattern, tree.BindingPattern:
		// matches any scrutinee value
	case tree.LiteralPattern:
		if scrutineeType != types.Invalid && !c.types.IsInteger(scrutineeType) && !c.types.IsFloat(scrutineeType) {
			c.fail(c.tokenOf(id), diagnostics.CodePatternTypeMismatch, "literal pattern is incompatible with the scrutinee's type")
		}
	case tree.OrPattern:
		for _, k := range c.tree.Children(id) {
			c.checkPattern(k, scrutineeType)
		}
	}
}

func (c *Checker) isCatchAllPattern(id tree.ID) bool {
	node := c.tree.Get(id)
	switch node.Kind {
	case tree.WildcardPattern, tree.BindingPattern:
		return true
	case tree.OrPattern:
		for _, k := range c.tree.Children(id) {
			if c.isCatchAllPattern(k) {
				return true
			}
		}
	}
	return false
}

// --- expressions -----------------------------------------------------------

// checkExpressionInferred checks id with no expected type, inferring one
// from context (IntLiteral defaults to i32, FloatLiteral to f64).
func (c *Checker) checkExpressionInferred(id tree.ID) (ir.ID, types.ID) {
	node := c.tree.Get(id)
	switch node.Kind {
	case tree.IntLiteral:
		return c.checkIntLiteral(id, types.Invalid)
	case tree.FloatLiteral:
		return c.checkFloatLiteral(id, types.Invalid)
	case tree.Identifier:
		return c.checkIdentifierRef(id)
	case tree.ParenExpr:
		kids := c.tree.Children(id)
		if len(kids) == 0 {
			return ir.InvalidID, types.Invalid
		}
		return c.checkExpressionInferred(kids[0])
	case tree.UnaryExpr:
		return c.checkUnary(id, types.Invalid)
	case tree.BinaryExpr:
		return c.checkBinary(id, types.Invalid)
	case tree.CompareChain:
		return c.checkCompareChain(id)
	case tree.FieldAccess:
		return c.checkFieldAccess(id)
	case tree.IndexAccess:
		return c.checkIndexAccess(id)
	case tree.PanicExpr:
		inst := c.insts.Add(ir.NewUnreachable(id))
		c.scopes.SetReachable(c.curScope, false)
		return inst, types.Invalid
	default:
		c.fail(c.tokenOf(id), diagnostics.CodeTypeMismatch, "unsupported expression form %s", node.Kind)
		return ir.InvalidID, types.Invalid
	}
}

// checkExpression checks id against an expected type, flowing it into
// literal checks directly (so the exact refinement/width is enforced at
// the literal) and comparing afterward for everything else.
func (c *Checker) checkExpression(id tree.ID, expected types.ID) (ir.ID, types.ID) {
	node := c.tree.Get(id)
	switch node.Kind {
	case tree.IntLiteral:
		return c.checkIntLiteral(id, expected)
	case tree.FloatLiteral:
		return c.checkFloatLiteral(id, expected)
	case tree.UnaryExpr:
		return c.checkUnary(id, expected)
	case tree.ParenExpr:
		kids := c.tree.Children(id)
		if len(kids) == 0 {
			return ir.InvalidID, types.Invalid
		}
		return c.checkExpression(kids[0], expected)
	default:
		inst, actual := c.checkExpressionInferred(id)
		if expected != types.Invalid && actual != types.Invalid && !types.AreEqual(actual, expected) {
			c.fail(c.tokenOf(id), diagnostics.CodeTypeMismatch, "type mismatch: got %s, want %s", c.typeName(actual), c.typeName(expected))
		}
		return inst, actual
	}
}

func (c *Checker) checkIdentifierRef(id tree.ID) (ir.ID, types.ID) {
	tok := c.tokenOf(id)
	sym, ok := c.symbols.LookupByName(tok.Lexeme)
	if !ok {
		c.fail(tok, diagnostics.CodeUndefinedVariable, "undefined variable %q", tok.Lexeme)
		return ir.InvalidID, types.Invalid
	}
	entry := c.symbols.Get(sym)
	inst := c.insts.Add(ir.NewVarRef(entry.Type, sym, id))
	return inst, entry.Type
}

var (
	i32Min = big.NewInt(-2147483648)
	i32Max = big.NewInt(2147483647)
	i64Min = new(big.Int).SetInt64(-9223372036854775808)
	i64Max = new(big.Int).SetInt64(9223372036854775807)
)

func (c *Checker) checkIntLiteral(id tree.ID, expected types.ID) (ir.ID, types.ID) {
	tok := c.tokenOf(id)
	v, ok := parseIntLiteral(tok.Lexeme)
	if !ok {
		c.fail(tok, diagnostics.CodeIntBoundsViolation, "malformed integer literal %q", tok.Lexeme)
		return ir.InvalidID, types.Invalid
	}
	return c.checkIntValue(tok, v, expected, id)
}

// checkIntValue is shared by plain and unary-negated integer literals, so
// i32's minimum (-2147483648) checks correctly against the negated value
// rather than against +2147483648 first.
func (c *Checker) checkIntValue(tok token.Token, v *big.Int, expected types.ID, nodeID tree.ID) (ir.ID, types.ID) {
	declared := expected
	if declared == types.Invalid {
		declared = types.I32
	}
	base := c.types.ToWasmType(declared)
	if c.types.IsFloat(base) {
		c.fail(tok, diagnostics.CodeLiteralKindMismatch, "integer literal assigned to float type %s", c.typeName(declared))
		return ir.InvalidID, types.Invalid
	}
	if !c.types.IsInteger(base) {
		c.fail(tok, diagnostics.CodeTypeMismatch, "integer literal is not valid for type %s", c.typeName(declared))
		return ir.InvalidID, types.Invalid
	}
	if !c.checkIntBounds(tok, v, base) {
		return ir.InvalidID, types.Invalid
	}
	info := c.types.Get(declared)
	if info.Kind == types.KindRefined && !c.checkRefinementBounds(tok, v, info) {
		return ir.InvalidID, types.Invalid
	}
	inst := c.insts.Add(ir.NewIntConst(base, v.Int64(), nodeID))
	return inst, declared
}

func (c *Checker) checkIntBounds(tok token.Token, v *big.Int, base types.ID) bool {
	var lo, hi *big.Int
	switch base {
	case types.I32:
		lo, hi = i32Min, i32Max
	case types.I64:
		lo, hi = i64Min, i64Max
	default:
		return true
	}
	if v.Cmp(lo) < 0 || v.Cmp(hi) > 0 {
		c.fail(tok, diagnostics.CodeIntBoundsViolation, "integer literal %s is out of range for %s", v.String(), c.typeName(base))
		return false
	}
	return true
}

func (c *Checker) checkRefinementBounds(tok token.Token, v *big.Int, info types.Info) bool {
	ok := true
	if info.Min.Present {
		if min, good := new(big.Int).SetString(info.Min.Value, 10); good && v.Cmp(min) < 0 {
			c.fail(tok, diagnostics.CodeRefinementViolation, "value %s is below the refinement minimum %s", v.String(), info.Min.Value)
			ok = false
		}
	}
	if info.Max.Present {
		if max, good := new(big.Int).SetString(info.Max.Value, 10); good && v.Cmp(max) > 0 {
			c.fail(tok, diagnostics.CodeRefinementViolation, "value %s is above the refinement maximum %s", v.String(), info.Max.Value)
			ok = false
		}
	}
	return ok
}

func (c *Checker) checkFloatLiteral(id tree.ID, expected types.ID) (ir.ID, types.ID) {
	tok := c.tokenOf(id)
	declared := expected
	if declared == types.Invalid {
		declared = types.F64
	}
	base := c.types.ToWasmType(declared)
	if c.types.IsInteger(base) {
		c.fail(tok, diagnostics.CodeLiteralKindMismatch, "float literal assigned to integer type %s", c.typeName(declared))
		return ir.InvalidID, types.Invalid
	}
	if !c.types.IsFloat(base) {
		c.fail(tok, diagnostics.CodeTypeMismatch, "float literal is not valid for type %s", c.typeName(declared))
		return ir.InvalidID, types.Invalid
	}
	if base == types.F32 {
		v := c.floats.Lookup(tok.FloatID)
		if v > math.MaxFloat32 || v < -math.MaxFloat32 {
			c.fail(tok, diagnostics.CodeF32Overflow, "float literal %g overflows f32", v)
			return ir.InvalidID, types.Invalid
		}
	}
	inst := c.insts.Add(ir.NewFloatConst(base, tok.FloatID, id))
	return inst, declared
}

func (c *Checker) checkUnary(id tree.ID, expected types.ID) (ir.ID, types.ID) {
	node := c.tree.Get(id)
	opKind := c.tokens.Get(node.TokenID).Kind
	opTok := c.tokenOf(id)
	kids := c.tree.Children(id)
	if len(kids) == 0 {
		return ir.InvalidID, types.Invalid
	}
	operandID := kids[0]
	operandNode := c.tree.Get(operandID)

	// A literal under unary minus is folded into a single signed constant
	// rather than a Negate instruction over a positive one, so i32's
	// minimum value round-trips exactly instead of overflowing +2147483648
	// before the sign flips.
	if opKind == token.MINUS && operandNode.Kind == tree.IntLiteral {
		v, ok := parseIntLiteral(c.tokenOf(operandID).Lexeme)
		if !ok {
			c.fail(opTok, diagnostics.CodeIntBoundsViolation, "malformed integer literal")
			return ir.InvalidID, types.Invalid
		}
		return c.checkIntValue(opTok, new(big.Int).Neg(v), expected, id)
	}

	valInst, actualType := c.checkExpressionInferred(operandID)
	if actualType == types.Invalid {
		return ir.InvalidID, types.Invalid
	}
	// Only ~ is integer-only; - accepts float operands too (spec: "float
	// negation emits Negate").
	if opKind == token.TILDE && !c.types.IsInteger(actualType) {
		c.fail(opTok, diagnostics.CodeIntegerOnlyOperator, "operator %s requires an integer operand", opKind)
		return ir.InvalidID, types.Invalid
	}
	if expected != types.Invalid && !types.AreEqual(actualType, expected) {
		c.fail(opTok, diagnostics.CodeTypeMismatch, "type mismatch: got %s, want %s", c.typeName(actualType), c.typeName(expected))
	}
	kind := ir.Negate
	if opKind == token.TILDE {
		kind = ir.BitwiseNot
	}
	inst := c.insts.Add(ir.Inst{Kind: kind, TypeID: actualType, Arg0: int32(valInst), ParseNodeID: id})
	return inst, actualType
}

func binaryOperatorFor(k token.Kind) (ir.BinaryOperator, bool) {
	switch k {
	case token.PLUS:
		return ir.OpAdd, true
	case token.MINUS:
		return ir.OpSub, true
	case token.STAR:
		return ir.OpMul, true
	case token.SLASH:
		return ir.OpDiv, true
	case token.PERCENT:
		return ir.OpRem, true
	case token.DPERCENT:
		return ir.OpRemRem, true
	case token.AMP:
		return ir.OpBitAnd, true
	case token.PIPE:
		return ir.OpBitOr, true
	case token.CARET:
		return ir.OpBitXor, true
	case token.SHL:
		return ir.OpShl, true
	case token.SHR:
		return ir.OpShr, true
	case token.USHR:
		return ir.OpUShr, true
	case token.LT:
		return ir.OpLt, true
	case token.LE:
		return ir.OpLe, true
	case token.GT:
		return ir.OpGt, true
	case token.GE:
		return ir.OpGe, true
	case token.EQ:
		return ir.OpEq, true
	case token.NEQ:
		return ir.OpNeq, true
	}
	return 0, false
}

func isComparisonOperator(op ir.BinaryOperator) bool {
	switch op {
	case ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe, ir.OpEq, ir.OpNeq:
		return true
	}
	return false
}

// checkBinary handles every BinaryExpr: && and || lower to the dedicated
// LogicalAnd/LogicalOr instruction kinds (TinyWhale has no bool type, so
// their result is i32); every other operator requires matching operand
// types. Comparisons accept any operand type and lower to an i32 BinaryOp;
// + - * / accept integer or float operands, the remaining operators are
// integer-only, and both lower to a BinaryOp typed as the shared operand
// type.
func (c *Checker) checkBinary(id tree.ID, expected types.ID) (ir.ID, types.ID) {
	node := c.tree.Get(id)
	opKind := c.tokens.Get(node.TokenID).Kind
	opTok := c.tokenOf(id)
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return ir.InvalidID, types.Invalid
	}
	leftID, rightID := kids[0], kids[1]

	if opKind == token.AND || opKind == token.OR {
		leftInst, leftType := c.checkExpressionInferred(leftID)
		rightInst, rightType := c.checkExpressionInferred(rightID)
		if leftType != types.Invalid && !c.types.IsInteger(leftType) {
			c.fail(opTok, diagnostics.CodeLogicalOperandType, "logical operator %s requires integer operands", opKind)
		}
		if rightType != types.Invalid && !c.types.IsInteger(rightType) {
			c.fail(opTok, diagnostics.CodeLogicalOperandType, "logical operator %s requires integer operands", opKind)
		}
		kind := ir.LogicalAnd
		if opKind == token.OR {
			kind = ir.LogicalOr
		}
		inst := c.insts.Add(ir.Inst{Kind: kind, TypeID: types.I32, Arg0: int32(leftInst), Arg1: int32(rightInst), ParseNodeID: id})
		if expected != types.Invalid && !types.AreEqual(types.I32, expected) {
			c.fail(opTok, diagnostics.CodeTypeMismatch, "type mismatch: got %s, want %s", c.typeName(types.I32), c.typeName(expected))
		}
		return inst, types.I32
	}

	op, ok := binaryOperatorFor(opKind)
	if !ok {
		c.fail(opTok, diagnostics.CodeTypeMismatch, "unsupported operator %s", opKind)
		return ir.InvalidID, types.Invalid
	}

	leftInst, leftType := c.checkExpressionInferred(leftID)
	rightInst, rightType := c.checkExpressionInferred(rightID)
	if leftType == types.Invalid || rightType == types.Invalid {
		return ir.InvalidID, types.Invalid
	}

	// Comparisons yield i32 regardless of operand type (spec: "Comparison
	// operators ... yield i32 regardless of operand type"); only operand
	// agreement is required, not integer-ness.
	if isComparisonOperator(op) {
		if !types.AreEqual(leftType, rightType) {
			c.fail(opTok, diagnostics.CodeBinaryOperandMismatch, "operand type mismatch: %s vs %s", c.typeName(leftType), c.typeName(rightType))
			return ir.InvalidID, types.Invalid
		}
		if expected != types.Invalid && !types.AreEqual(types.I32, expected) {
			c.fail(opTok, diagnostics.CodeTypeMismatch, "type mismatch: got %s, want %s", c.typeName(types.I32), c.typeName(expected))
		}
		inst := c.insts.Add(ir.NewBinaryOp(types.I32, op, leftInst, rightInst, id))
		return inst, types.I32
	}

	arithmetic := op == ir.OpAdd || op == ir.OpSub || op == ir.OpMul || op == ir.OpDiv
	numeric := func(t types.ID) bool {
		return c.types.IsInteger(t) || (arithmetic && c.types.IsFloat(t))
	}
	if !numeric(leftType) || !numeric(rightType) {
		c.fail(opTok, diagnostics.CodeIntegerOnlyOperator, "operator %s requires integer operands", opKind)
		return ir.InvalidID, types.Invalid
	}
	if !types.AreEqual(leftType, rightType) {
		c.fail(opTok, diagnostics.CodeBinaryOperandMismatch, "operand type mismatch: %s vs %s", c.typeName(leftType), c.typeName(rightType))
		return ir.InvalidID, types.Invalid
	}
	resultType := leftType
	if expected != types.Invalid && !types.AreEqual(resultType, expected) {
		c.fail(opTok, diagnostics.CodeTypeMismatch, "type mismatch: got %s, want %s", c.typeName(resultType), c.typeName(expected))
	}
	inst := c.insts.Add(ir.NewBinaryOp(resultType, op, leftInst, rightInst, id))
	return inst, resultType
}

// checkCompareChain checks every operand of a flattened `a < b < c < ...`
// chain (three or more operands; a plain two-operand comparison is an
// ordinary BinaryExpr handled by checkBinary) pairwise-by-type and emits a
// single BinaryOp carrying OpCompareChain, spanning the first and last
// operand; spec.md §4.6 only requires that the chain's operand types agree
// and that the whole chain produce one i32 result, not a per-link
// instruction.
func (c *Checker) checkCompareChain(id tree.ID) (ir.ID, types.ID) {
	kids := c.tree.Children(id)
	if len(kids) < 3 {
		return ir.InvalidID, types.Invalid
	}
	opTok := c.tokenOf(id)
	firstType := types.Invalid
	operandInsts := make([]ir.ID, 0, len(kids))
	valid := true
	for i, k := range kids {
		inst, typ := c.checkExpressionInferred(k)
		operandInsts = append(operandInsts, inst)
		if typ == types.Invalid {
			valid = false
			continue
		}
		if i == 0 {
			firstType = typ
		} else if !types.AreEqual(typ, firstType) {
			c.fail(opTok, diagnostics.CodeBinaryOperandMismatch, "comparison chain operands must share a type")
			valid = false
		}
	}
	if !valid {
		return ir.InvalidID, types.Invalid
	}
	inst := c.insts.Add(ir.NewBinaryOp(types.I32, ir.OpCompareChain, operandInsts[0], operandInsts[len(operandInsts)-1], id))
	return inst, types.I32
}

// checkFieldAccess resolves `base.field` in the order spec.md §4.6
// requires: first as an already-flattened "base_field" scalar local, then
// as a genuine record-type field.
func (c *Checker) checkFieldAccess(id tree.ID) (ir.ID, types.ID) {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return ir.InvalidID, types.Invalid
	}
	baseID, fieldID := kids[0], kids[1]
	fieldName := c.tokenOf(fieldID).Lexeme

	if c.tree.Get(baseID).Kind == tree.Identifier {
		flatName := c.tokenOf(baseID).Lexeme + "_" + fieldName
		if sym, ok := c.symbols.LookupByName(flatName); ok {
			entry := c.symbols.Get(sym)
			inst := c.insts.Add(ir.NewVarRef(entry.Type, sym, id))
			return inst, entry.Type
		}
	}

	baseInst, baseType := c.checkExpressionInferred(baseID)
	if baseType == types.Invalid {
		return ir.InvalidID, types.Invalid
	}
	info := c.types.Get(baseType)
	if info.Kind != types.KindRecord {
		c.fail(c.tokenOf(fieldID), diagnostics.CodeFieldAccessNonRecord, "field access on a non-record type %s", c.typeName(baseType))
		return ir.InvalidID, types.Invalid
	}
	for _, f := range info.Fields {
		if f.Name == fieldName {
			inst := c.insts.Add(ir.Inst{Kind: ir.FieldAccess, TypeID: f.Type, Arg0: int32(baseInst), Arg1: int32(f.Index), ParseNodeID: id})
			return inst, f.Type
		}
	}
	c.fail(c.tokenOf(fieldID), diagnostics.CodeUnknownFieldAccess, "type %q has no field %q", info.Name, fieldName)
	return ir.InvalidID, types.Invalid
}

// checkIndexAccess resolves `base[N]`, symmetric with checkFieldAccess: an
// already-flattened "base_N" scalar local first, then a genuine list type.
func (c *Checker) checkIndexAccess(id tree.ID) (ir.ID, types.ID) {
	kids := c.tree.Children(id)
	if len(kids) < 2 {
		return ir.InvalidID, types.Invalid
	}
	baseID, idxID := kids[0], kids[1]
	if c.tree.Get(idxID).Kind != tree.IntLiteral {
		c.fail(c.tokenOf(idxID), diagnostics.CodeNonIntegerIndex, "list index must be an integer literal")
		return ir.InvalidID, types.Invalid
	}
	idxTok := c.tokenOf(idxID)
	idxVal, ok := parseIntLiteral(idxTok.Lexeme)
	if !ok {
		c.fail(idxTok, diagnostics.CodeNonIntegerIndex, "malformed list index")
		return ir.InvalidID, types.Invalid
	}

	if c.tree.Get(baseID).Kind == tree.Identifier {
		flatName := c.tokenOf(baseID).Lexeme + "_" + idxVal.String()
		if sym, ok := c.symbols.LookupByName(flatName); ok {
			entry := c.symbols.Get(sym)
			inst := c.insts.Add(ir.NewVarRef(entry.Type, sym, id))
			return inst, entry.Type
		}
	}

	baseInst, baseType := c.checkExpressionInferred(baseID)
	if baseType == types.Invalid {
		return ir.InvalidID, types.Invalid
	}
	info := c.types.Get(baseType)
	if info.Kind != types.KindList {
		c.fail(idxTok, diagnostics.CodeFieldAccessNonRecord, "index access on a non-list type %s", c.typeName(baseType))
		return ir.InvalidID, types.Invalid
	}
	idx64 := idxVal.Int64()
	if idx64 < 0 || idx64 >= int64(info.Size) {
		c.fail(idxTok, diagnostics.CodeIndexOutOfBounds, "list index %d is out of bounds for size %d", idx64, info.Size)
		return ir.InvalidID, types.Invalid
	}
	inst := c.insts.Add(ir.Inst{Kind: ir.FieldAccess, TypeID: info.ElementType, Arg0: int32(baseInst), Arg1: int32(idx64), ParseNodeID: id})
	return inst, info.ElementType
}

// typeName renders id for diagnostic messages. Refined/List types have no
// Name of their own (they're content-interned, not declared), so their
// rendering is built from their underlying/element type.
func (c *Checker) typeName(id types.ID) string {
	if id == types.Invalid {
		return "<invalid>"
	}
	info := c.types.Get(id)
	switch info.Kind {
	case types.KindI32:
		return "i32"
	case types.KindI64:
		return "i64"
	case types.KindF32:
		return "f32"
	case types.KindF64:
		return "f64"
	case types.KindDistinct, types.KindRecord:
		return info.Name
	case types.KindRefined:
		return c.typeName(info.Underlying) + "<refined>"
	case types.KindList:
		return c.typeName(info.ElementType) + "[]"
	default:
		return "<unknown>"
	}
}
