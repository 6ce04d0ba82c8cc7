package check

import (
	"testing"

	"github.com/nerdalytics/tinywhale/internal/diagnostics"
	"github.com/nerdalytics/tinywhale/internal/intern"
	"github.com/nerdalytics/tinywhale/internal/ir"
	"github.com/nerdalytics/tinywhale/internal/lexer"
	"github.com/nerdalytics/tinywhale/internal/parser"
	"github.com/nerdalytics/tinywhale/internal/preprocess"
)

// run drives the full pipeline up to and including check, the way a real
// compilation would. The helper fails the test on a preprocessor error
// (which aborts the whole pipeline per spec.md §7) and on any lex or parse
// error, so callers only ever see checker diagnostics.
func run(t *testing.T, src string) (*Result, *diagnostics.Bag) {
	t.Helper()
	normalized, err := preprocess.Run(src, preprocess.ModeDetect)
	if err != nil {
		t.Fatalf("preprocess: %s", err)
	}
	strs := intern.NewStringTable()
	floats := intern.NewFloatTable()
	tokens, lexErrs := lexer.Tokenize(normalized, strs, floats)
	if len(lexErrs) != 0 {
		t.Fatalf("unexpected lex errors: %v", lexErrs)
	}
	tr, parseDiags := parser.Parse(tokens)
	if parseDiags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", parseDiags.All())
	}
	return Check(tr, tokens, strs, floats)
}

func countKind(result *Result, kind ir.Kind) int {
	n := 0
	for i := 0; i < result.Insts.Len(); i++ {
		if result.Insts.Get(ir.ID(i)).Kind == kind {
			n++
		}
	}
	return n
}

func assertNoErrors(t *testing.T, diags *diagnostics.Bag) {
	t.Helper()
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
}

func assertHasCode(t *testing.T, diags *diagnostics.Bag, code diagnostics.Code) {
	t.Helper()
	for _, d := range diags.All() {
		if d.Code == code {
			return
		}
	}
	t.Fatalf("expected diagnostic %s, got %v", code, diags.All())
}

// --- spec.md §8 concrete end-to-end scenarios -----------------------------

func TestScenarioBarePanic(t *testing.T) {
	result, diags := run(t, "panic\n")
	assertNoErrors(t, diags)
	if result.Insts.Len() != 1 || result.Insts.Get(0).Kind != ir.Unreachable {
		t.Fatalf("expected a single Unreachable instruction, got %d insts", result.Insts.Len())
	}
}

func TestScenarioIntBindThenPanic(t *testing.T) {
	result, diags := run(t, "x:i32 = 42\npanic\n")
	assertNoErrors(t, diags)
	if result.Symbols.Count() != 1 {
		t.Fatalf("expected 1 symbol, got %d", result.Symbols.Count())
	}
	if countKind(result, ir.IntConst) != 1 || countKind(result, ir.Bind) != 1 {
		t.Fatalf("expected one IntConst and one Bind, got insts %+v", result.Insts)
	}
}

func TestScenarioShadowedBindingGetsFreshLocal(t *testing.T) {
	result, diags := run(t, "x:i32 = 0\nx:i32 = x\npanic\n")
	assertNoErrors(t, diags)
	sym, ok := result.Symbols.LookupByName("x")
	if !ok {
		t.Fatal("expected x to resolve")
	}
	if entry := result.Symbols.Get(sym); entry.LocalIndex != 1 {
		t.Fatalf("expected second x's local index to be 1, got %d", entry.LocalIndex)
	}
	if countKind(result, ir.VarRef) != 1 {
		t.Fatalf("expected one VarRef instruction, got %+v", result.Insts)
	}
}

func TestScenarioTypeMismatchAcrossWidths(t *testing.T) {
	_, diags := run(t, "x:i64 = 0\ny:i32 = x\npanic\n")
	assertHasCode(t, diags, diagnostics.CodeTypeMismatch)
	found := false
	for _, d := range diags.All() {
		if d.Code == diagnostics.CodeTypeMismatch && d.Line == 2 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected TWCHECK012 at line 2, got %v", diags.All())
	}
}

func TestScenarioRecordLiteralFlattensToFields(t *testing.T) {
	src := "type Point\n\tx: i32\n\ty: i32\np:Point =\n\tx: 1\n\ty: 2\npanic\n"
	result, diags := run(t, src)
	assertNoErrors(t, diags)
	if _, ok := result.Types.Lookup("Point"); !ok {
		t.Fatal("expected Point to be registered")
	}
	if _, ok := result.Symbols.LookupByName("p_x"); !ok {
		t.Fatal("expected flattened symbol p_x")
	}
	if _, ok := result.Symbols.LookupByName("p_y"); !ok {
		t.Fatal("expected flattened symbol p_y")
	}
	if countKind(result, ir.Bind) != 2 {
		t.Fatalf("expected two Bind instructions, got %+v", result.Insts)
	}
}

func TestScenarioExhaustiveMatch(t *testing.T) {
	src := "x: i32 = 42\nresult: i32 = match x\n\t0 -> 100\n\t_ -> 0\npanic\n"
	result, diags := run(t, src)
	assertNoErrors(t, diags)
	if countKind(result, ir.MatchArm) != 2 {
		t.Fatalf("expected two MatchArm instructions, got %+v", result.Insts)
	}
	if countKind(result, ir.Match) != 1 {
		t.Fatalf("expected one Match instruction, got %+v", result.Insts)
	}
	if _, ok := result.Symbols.LookupByName("result"); !ok {
		t.Fatal("expected result symbol to be bound")
	}
}

func TestScenarioNonExhaustiveMatch(t *testing.T) {
	src := "x: i32 = 42\nresult: i32 = match x\n\t0 -> 100\n\t1 -> 200\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeNonExhaustiveMatch)
}

// --- boundary cases --------------------------------------------------------

func TestI32MaxAccepted(t *testing.T) {
	_, diags := run(t, "x:i32 = 2147483647\npanic\n")
	assertNoErrors(t, diags)
}

func TestI32OverflowRejected(t *testing.T) {
	_, diags := run(t, "x:i32 = 2147483648\npanic\n")
	assertHasCode(t, diags, diagnostics.CodeIntBoundsViolation)
}

func TestI32MinAccepted(t *testing.T) {
	_, diags := run(t, "x:i32 = -2147483648\npanic\n")
	assertNoErrors(t, diags)
}

func TestI32UnderflowRejected(t *testing.T) {
	_, diags := run(t, "x:i32 = -2147483649\npanic\n")
	assertHasCode(t, diags, diagnostics.CodeIntBoundsViolation)
}

func TestScientificNotationExpandedForBoundsCheck(t *testing.T) {
	_, diags := run(t, "x:i64 = 1e10\npanic\n")
	assertNoErrors(t, diags)
}

// --- other diagnostic rules --------------------------------------------

func TestUndefinedVariable(t *testing.T) {
	_, diags := run(t, "x:i32 = y\npanic\n")
	assertHasCode(t, diags, diagnostics.CodeUndefinedVariable)
}

func TestDuplicateFieldDeclaration(t *testing.T) {
	src := "type Point\n\tx: i32\n\tx: i32\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeDuplicateField)
}

func TestSelfReferentialField(t *testing.T) {
	src := "type Node\n\tnext: Node\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeSelfReferentialField)
}

func TestMissingFieldInRecordLiteral(t *testing.T) {
	src := "type Point\n\tx: i32\n\ty: i32\np:Point =\n\tx: 1\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeMissingField)
}

func TestUnknownFieldInInitializer(t *testing.T) {
	src := "type Point\n\tx: i32\np:Point =\n\tz: 1\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeUnknownFieldInit)
}

func TestDuplicateFieldInitializer(t *testing.T) {
	src := "type Point\n\tx: i32\np:Point =\n\tx: 1\n\tx: 2\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeDuplicateFieldInit)
}

func TestListBindingFlattensElements(t *testing.T) {
	src := "xs: i32[]<size=3> = [1, 2, 3]\npanic\n"
	result, diags := run(t, src)
	assertNoErrors(t, diags)
	for i := 0; i < 3; i++ {
		if _, ok := result.Symbols.LookupByName("xs_" + string(rune('0'+i))); !ok {
			t.Fatalf("expected flattened symbol xs_%d", i)
		}
	}
}

func TestListLiteralLengthMismatch(t *testing.T) {
	src := "xs: i32[]<size=3> = [1, 2]\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeListLengthMismatch)
}

func TestRefinementViolation(t *testing.T) {
	src := "x: i32<min=0, max=10> = 11\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeRefinementViolation)
}

func TestRefinementWithinBoundsAccepted(t *testing.T) {
	src := "x: i32<min=0, max=10> = 5\npanic\n"
	_, diags := run(t, src)
	assertNoErrors(t, diags)
}

func TestIntegerOnlyOperatorRejectsFloat(t *testing.T) {
	src := "x: f64 = 1.5\ny: f64 = x % 2.0\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeIntegerOnlyOperator)
}

func TestFloatNegationAccepted(t *testing.T) {
	src := "x: f64 = 1.5\ny: f64 = -x\npanic\n"
	result, diags := run(t, src)
	assertNoErrors(t, diags)
	if countKind(result, ir.Negate) != 1 {
		t.Fatalf("expected one Negate instruction, got %+v", result.Insts)
	}
}

func TestBitwiseNotRejectsFloat(t *testing.T) {
	src := "x: f64 = 1.5\ny: f64 = ~x\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeIntegerOnlyOperator)
}

func TestBinaryOperandTypeMismatch(t *testing.T) {
	src := "a: i32 = 1\nb: i64 = 2\nc: i32 = a + b\npanic\n"
	_, diags := run(t, src)
	assertHasCode(t, diags, diagnostics.CodeBinaryOperandMismatch)
}

func TestPlainComparisonProducesRealOperator(t *testing.T) {
	src := "a: i32 = 1\nb: i32 = 2\nresult: i32 = a == b\npanic\n"
	result, diags := run(t, src)
	assertNoErrors(t, diags)
	found := false
	for i := 0; i < result.Insts.Len(); i++ {
		inst := result.Insts.Get(ir.ID(i))
		if inst.Kind == ir.BinaryOp {
			if inst.Operator == ir.OpCompareChain {
				t.Fatal("a plain two-operand comparison must not emit OpCompareChain")
			}
			if inst.Operator == ir.OpEq {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a BinaryOp with OpEq")
	}
}

func TestComparisonChainProducesI32(t *testing.T) {
	src := "a: i32 = 1\nb: i32 = 2\nc: i32 = 3\nresult: i32 = a < b < c\npanic\n"
	result, diags := run(t, src)
	assertNoErrors(t, diags)
	found := false
	for i := 0; i < result.Insts.Len(); i++ {
		inst := result.Insts.Get(ir.ID(i))
		if inst.Kind == ir.BinaryOp && inst.Operator == ir.OpCompareChain {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a BinaryOp with OpCompareChain")
	}
}

func TestUnreachableCodeAfterPanicWarns(t *testing.T) {
	src := "panic\nx: i32 = 1\n"
	_, diags := run(t, src)
	var found *diagnostics.Diagnostic
	for _, d := range diags.All() {
		if d.Code == diagnostics.CodeUnreachableCode {
			found = d
		}
	}
	if found == nil {
		t.Fatalf("expected TWCHECK050 warning, got %v", diags.All())
	}
	if found.Suggestion == "" {
		t.Fatalf("expected TWCHECK050 to carry a line-range suggestion, got %+v", found)
	}
	wantSuggestion := "unreachable code at line 2"
	if found.Suggestion != wantSuggestion {
		t.Fatalf("expected suggestion %q, got %q", wantSuggestion, found.Suggestion)
	}
}

func TestTypeAliasIsPureRenaming(t *testing.T) {
	src := "type Len\n\tv: i64\nMeters = Len\nm: Meters =\n\tv: 5\npanic\n"
	_, diags := run(t, src)
	assertNoErrors(t, diags)
}
