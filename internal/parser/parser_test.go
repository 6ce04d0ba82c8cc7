package parser

import (
	"testing"

	"github.com/nerdalytics/tinywhale/internal/intern"
	"github.com/nerdalytics/tinywhale/internal/lexer"
	"github.com/nerdalytics/tinywhale/internal/preprocess"
	"github.com/nerdalytics/tinywhale/internal/tree"
)

// parse runs the full preprocess -> lex -> parse pipeline and fails the
// test on any preprocessor or lexer error; parser-level diagnostics are
// returned for the caller to inspect, since a failed production never
// aborts the parse.
func parse(t *testing.T, src string) (*tree.Store, []string) {
	t.Helper()
	normalized, err := preprocess.Run(src, preprocess.ModeDetect)
	if err != nil {
		t.Fatalf("preprocess: %s", err)
	}
	store, lexErrs := lexer.Tokenize(normalized, intern.NewStringTable(), intern.NewFloatTable())
	if len(lexErrs) != 0 {
		t.Fatalf("unexpected lex errors: %v", lexErrs)
	}
	tr, diags := Parse(store)
	var msgs []string
	for _, d := range diags.All() {
		msgs = append(msgs, d.Error())
	}
	return tr, msgs
}

// assertPostorderInvariant checks spec.md §8's structural invariant: the
// root's SubtreeSize must equal the total node count, and no node may
// claim a child range that runs off the front of the store.
func assertPostorderInvariant(t *testing.T, tr *tree.Store) {
	t.Helper()
	root := tr.Root()
	n := tr.Get(root)
	if int(n.SubtreeSize) != tr.Len() {
		t.Errorf("root SubtreeSize = %d, want %d (total node count)", n.SubtreeSize, tr.Len())
	}
	for i := 0; i < tr.Len(); i++ {
		id := tree.ID(i)
		node := tr.Get(id)
		start := int32(id) - node.SubtreeSize + 1
		if start < 0 {
			t.Errorf("node %d (%s) has SubtreeSize %d, runs before index 0", id, node.Kind, node.SubtreeSize)
		}
	}
}

func findFirst(tr *tree.Store, k tree.Kind) (tree.ID, bool) {
	for i := 0; i < tr.Len(); i++ {
		if tr.Get(tree.ID(i)).Kind == k {
			return tree.ID(i), true
		}
	}
	return tree.InvalidID, false
}

func countKind(tr *tree.Store, k tree.Kind) int {
	n := 0
	for i := 0; i < tr.Len(); i++ {
		if tr.Get(tree.ID(i)).Kind == k {
			n++
		}
	}
	return n
}

func TestParseSimpleBinding(t *testing.T) {
	tr, diags := parse(t, "x: i32 = 0\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.VariableBinding); !ok {
		t.Errorf("expected a VariableBinding node")
	}
	if tr.Get(tr.Root()).Kind != tree.Program {
		t.Errorf("root node kind = %s, want Program", tr.Get(tr.Root()).Kind)
	}
}

func TestParsePanicStatement(t *testing.T) {
	tr, diags := parse(t, "panic\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.PanicStatement); !ok {
		t.Errorf("expected a PanicStatement node")
	}
}

func TestParseTypeDeclWithFields(t *testing.T) {
	src := "type Point\n\tx: i32\n\ty: i32\n"
	tr, diags := parse(t, src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.TypeDecl); !ok {
		t.Errorf("expected a TypeDecl node")
	}
	if got := countKind(tr, tree.FieldDecl); got != 2 {
		t.Errorf("got %d FieldDecl nodes, want 2", got)
	}
}

func TestParseRecordLiteral(t *testing.T) {
	src := "p: Point =\n\tx: 1\n\ty: 2\n"
	tr, diags := parse(t, src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.RecordBinding); !ok {
		t.Errorf("expected a RecordBinding node")
	}
	if got := countKind(tr, tree.FieldInit); got != 2 {
		t.Errorf("got %d FieldInit nodes, want 2", got)
	}
}

func TestParseTypeAlias(t *testing.T) {
	// Meters = Feet: uppercase LHS and an uppercase RHS with no type
	// annotation is the TypeAlias shape per spec.md §4.3.
	tr, diags := parse(t, "Meters = Feet\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.TypeAlias); !ok {
		t.Errorf("expected a TypeAlias node")
	}
}

func TestParseMatchExpression(t *testing.T) {
	src := "y: i32 = match x\n\t0 -> 1\n\t_ -> 2\n"
	tr, diags := parse(t, src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.MatchExpr); !ok {
		t.Errorf("expected a MatchExpr node")
	}
	if got := countKind(tr, tree.MatchArm); got != 2 {
		t.Errorf("got %d MatchArm nodes, want 2", got)
	}
	if _, ok := findFirst(tr, tree.WildcardPattern); !ok {
		t.Errorf("expected a WildcardPattern node for the `_` arm")
	}
}

func TestParseOrPattern(t *testing.T) {
	src := "y: i32 = match x\n\t0 | 1 -> 1\n\t_ -> 2\n"
	tr, diags := parse(t, src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.OrPattern); !ok {
		t.Errorf("expected an OrPattern node")
	}
}

func TestParseListLiteral(t *testing.T) {
	tr, diags := parse(t, "xs: i32[]<size=3> = [1, 2, 3]\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	listTypeID, ok := findFirst(tr, tree.ListType)
	if !ok {
		t.Fatalf("expected a ListType node")
	}
	// ListType must span its element type: it should have at least one
	// child (the base i32 Identifier/RefinementType), not zero.
	if kids := tr.Children(listTypeID); len(kids) == 0 {
		t.Errorf("ListType has no children, want the element type included in its span")
	}
	if _, ok := findFirst(tr, tree.ListLiteral); !ok {
		t.Errorf("expected a ListLiteral node")
	}
	if got := countKind(tr, tree.IntLiteral); got < 3 {
		t.Errorf("got %d IntLiteral nodes, want at least 3", got)
	}
}

func TestParseEmptyListLiteralFails(t *testing.T) {
	_, diags := parse(t, "xs: i32[]<size=1> = []\n")
	if len(diags) == 0 {
		t.Errorf("expected a diagnostic for an empty list literal")
	}
}

func TestParseRefinementType(t *testing.T) {
	tr, diags := parse(t, "x: i32<min=0, max=10> = 5\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.RefinementType); !ok {
		t.Errorf("expected a RefinementType node")
	}
	if got := countKind(tr, tree.Bound); got != 2 {
		t.Errorf("got %d Bound nodes, want 2", got)
	}
}

func TestParseBinaryExpressionChainSubtreeSize(t *testing.T) {
	tr, diags := parse(t, "x: i32 = 1 + 2 + 3\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)

	// The outermost BinaryExpr (last one added, since the inner fold for
	// 1+2 is built first in postorder) must span both IntLiteral leaves of
	// the inner fold plus the third operand: 5 nodes total
	// (1, 2, inner +, 3, outer +).
	var outermost tree.ID = tree.InvalidID
	for i := 0; i < tr.Len(); i++ {
		if tr.Get(tree.ID(i)).Kind == tree.BinaryExpr {
			outermost = tree.ID(i)
		}
	}
	if outermost == tree.InvalidID {
		t.Fatalf("no BinaryExpr found")
	}
	n := tr.Get(outermost)
	if n.SubtreeSize != 5 {
		t.Errorf("outer BinaryExpr SubtreeSize = %d, want 5 (1, 2, inner +, 3, outer +)", n.SubtreeSize)
	}
	kids := tr.Children(outermost)
	if len(kids) != 2 {
		t.Errorf("outer BinaryExpr has %d children, want 2", len(kids))
	}
}

func TestParseComparisonChainFlattensToCompareChain(t *testing.T) {
	tr, diags := parse(t, "x: i32 = a < b < c\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	id, ok := findFirst(tr, tree.CompareChain)
	if !ok {
		t.Fatalf("expected a CompareChain node for a chained comparison")
	}
	if kids := tr.Children(id); len(kids) != 3 {
		t.Errorf("CompareChain has %d children, want 3 (a, b, c)", len(kids))
	}
}

func TestParseSingleComparisonDoesNotWrapInCompareChain(t *testing.T) {
	tr, diags := parse(t, "x: i32 = a < b\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if _, ok := findFirst(tr, tree.CompareChain); ok {
		t.Errorf("a single comparison must not produce a CompareChain node")
	}
}

func TestParseFieldAccessAndCall(t *testing.T) {
	tr, diags := parse(t, "x: i32 = p.field(1, 2)\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	if _, ok := findFirst(tr, tree.FieldAccess); !ok {
		t.Errorf("expected a FieldAccess node")
	}
	if _, ok := findFirst(tr, tree.FuncCall); !ok {
		t.Errorf("expected a FuncCall node")
	}
}

func TestParseIndexAccessRejectsNonLiteral(t *testing.T) {
	_, diags := parse(t, "x: i32 = xs[i]\n")
	if len(diags) == 0 {
		t.Errorf("expected a diagnostic: list index must be a literal")
	}
}

func TestParseListTypeIncludesElementTypeInSpan(t *testing.T) {
	tr, diags := parse(t, "type Row\n\tcells: i32[]<size=4>\n")
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	assertPostorderInvariant(t, tr)
	listTypeID, ok := findFirst(tr, tree.ListType)
	if !ok {
		t.Fatalf("expected a ListType node")
	}
	kids := tr.Children(listTypeID)
	if len(kids) == 0 {
		t.Fatalf("ListType has no children")
	}
	if kind := tr.Get(kids[0]).Kind; kind != tree.Identifier && kind != tree.RefinementType {
		t.Errorf("ListType's first child kind = %s, want the element base type", kind)
	}
}

func TestParseUnexpectedTokenRecoversAtNextLine(t *testing.T) {
	// A malformed first line must not prevent the second, valid line from
	// being parsed: the parser resyncs at the next NEWLINE per spec.md §4.3.
	src := "+ + +\npanic\n"
	tr, diags := parse(t, src)
	if len(diags) == 0 {
		t.Fatalf("expected at least one diagnostic for the malformed line")
	}
	if _, ok := findFirst(tr, tree.PanicStatement); !ok {
		t.Errorf("expected parsing to recover and still find the panic statement on the next line")
	}
}
