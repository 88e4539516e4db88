package mapped

import (
	"strings"
	"testing"

	"symcore/internal/driver"
	"symcore/internal/dtype"
	"symcore/internal/expr"
	"symcore/internal/shape"
)

func TestHostScalarValueRewrite(t *testing.T) {
	o := NewHostScalar(0, dtype.Float64)
	out, err := o.Process("#scalartype #name = $VALUE{i};")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "double obj0 = obj0;"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestArrayOneDimIndex(t *testing.T) {
	o := NewArray(1, dtype.Float32, []int64{8})
	if o.TypeKey != "arrayn" {
		t.Fatalf("TypeKey = %q, want arrayn", o.TypeKey)
	}
	out, err := o.Process("$VALUE{i}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "obj1_pointer[i]"; out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestArrayTwoDimIndex(t *testing.T) {
	o := NewArray(2, dtype.Float64, []int64{4, 4})
	if o.TypeKey != "arraynn" {
		t.Fatalf("TypeKey = %q, want arraynn", o.TypeKey)
	}
	out, err := o.Process("$VALUE{i,j}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "obj2_pointer[") || !strings.Contains(out, "obj2_ld") {
		t.Errorf("2-d index should reference pointer and ld, got %q", out)
	}
}

func TestArrayScalarHasNoStrideOrLd(t *testing.T) {
	o := NewArray(3, dtype.Float64, []int64{1})
	if o.TypeKey != "array1" {
		t.Fatalf("TypeKey = %q, want array1", o.TypeKey)
	}
	if _, ok := o.Keywords["#stride"]; ok {
		t.Error("scalar-shaped array should not register #stride")
	}
	if _, ok := o.Keywords["#ld"]; ok {
		t.Error("scalar-shaped array should not register #ld")
	}
}

func TestCastUsesTargetTypeAsScalarType(t *testing.T) {
	o := NewCast(expr.CastFloat32, 4)
	if o.TypeKey != "cast" {
		t.Errorf("TypeKey = %q, want cast", o.TypeKey)
	}
	if got := o.Keywords["#scalartype"]; got != "float" {
		t.Errorf("#scalartype = %q, want float", got)
	}
}

func TestEvaluateFallsBackToNameWithoutAccessor(t *testing.T) {
	o := NewHostScalar(5, dtype.Int32)
	out, err := o.Evaluate(map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != o.Name {
		t.Errorf("Evaluate() = %q, want bare name %q", out, o.Name)
	}
}

func TestMappingRejectsDuplicateKey(t *testing.T) {
	m := NewMapping()
	key := expr.Key{NodeIndex: 0, Slot: expr.LHS}
	if err := m.Insert(key, NewHostScalar(0, dtype.Float64)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := m.Insert(key, NewHostScalar(1, dtype.Float64)); err == nil {
		t.Error("expected error inserting duplicate key")
	}
}

func TestMustGetMissingEntry(t *testing.T) {
	m := NewMapping()
	if _, err := m.MustGet(expr.Key{NodeIndex: 0, Slot: expr.RHS}); err == nil {
		t.Error("expected error for missing entry")
	}
}

// testMatrixBuffer returns an array handle shaped as a 4x4 matrix, used
// as the matrix_row/matrix_column/repeat operand below.
func testMatrixBuffer(id uint64) *expr.Array {
	sh := shape.Shape{4, 4}
	buf := driver.NewBuffer(id, sh.Prod()*8)
	return expr.NewArray(dtype.Float64, sh, buf)
}

func TestPostprocessMatrixRowSubstitutesRowAndRecursesIntoArray(t *testing.T) {
	arr := testMatrixBuffer(1)
	tree := []expr.Node{
		{
			LHS: expr.FillArray(arr),
			Op:  expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpMatrixRow},
			RHS: expr.FillScalar(expr.Scalar{DType: dtype.Int32, Value: 2}),
		},
	}
	ex := &expr.Expression{Tree: tree, Root: 0, Context: driver.NewContext(1), DType: dtype.Float64, Shape: shape.Shape{4}}

	m := NewMapping()
	arrayObj := NewArray(1, dtype.Float64, []int64{4, 4})
	rowObj := NewHostScalar(7, dtype.Int32)
	if err := m.Insert(expr.Key{NodeIndex: 0, Slot: expr.LHS}, arrayObj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Insert(expr.Key{NodeIndex: 0, Slot: expr.RHS}, rowObj); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info := NodeInfo{Mapping: m, Expr: ex, RootIdx: 0}
	matRow := NewMatrixRow(dtype.Float64, 99, info)

	out, err := matRow.Process("#scalartype x = #row : $VALUE{i};")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, "double x = ") {
		t.Errorf("matrix_row should keep its own #scalartype, got %q", out)
	}
	if !strings.Contains(out, rowObj.Name) {
		t.Errorf("rendered output %q should reference the row index object %q", out, rowObj.Name)
	}
	if !strings.Contains(out, "obj1_pointer[") {
		t.Errorf("rendered output %q should index into the matrix's pointer", out)
	}
}

// repeatTestCase holds the (sub0, sub1) tuple fields mapped_repeat::get_type
// classifies into a 'c'/'r'/'m' orientation.
type repeatTestCase struct {
	name            string
	sub0, sub1      int64
	wantOrientation byte
}

// buildRepeatExpression constructs the flat append-only tree mapped_repeat
// expects: a 4-node (rep0, rep1, sub0, sub1) tuple chain (each node's RHS
// a composite reference to the next, the last node's RHS non-composite)
// referenced by a repeat node's RHS, with the repeat node's LHS holding
// the array being tiled.
func buildRepeatExpression(arr *expr.Array, rep0, rep1, sub0, sub1 int64) *expr.Expression {
	tree := []expr.Node{
		{LHS: expr.FillScalar(expr.Scalar{DType: dtype.Int32, Value: float64(sub1)}), RHS: expr.FillInvalid()},    // 0: sub1 (chain end)
		{LHS: expr.FillScalar(expr.Scalar{DType: dtype.Int32, Value: float64(sub0)}), RHS: expr.FillNodeIndex(0)}, // 1: sub0
		{LHS: expr.FillScalar(expr.Scalar{DType: dtype.Int32, Value: float64(rep1)}), RHS: expr.FillNodeIndex(1)}, // 2: rep1
		{LHS: expr.FillScalar(expr.Scalar{DType: dtype.Int32, Value: float64(rep0)}), RHS: expr.FillNodeIndex(2)}, // 3: rep0 (tuple root)
		{
			LHS: expr.FillArray(arr),
			Op:  expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpRepeat},
			RHS: expr.FillNodeIndex(3),
		}, // 4: repeat node
	}
	return &expr.Expression{Tree: tree, Root: 4, Context: driver.NewContext(1), DType: dtype.Float64, Shape: shape.Shape{4, 4}}
}

// buildRepeatMapping registers the mapped objects GetAt and the final
// array recursion need (tupleScalarValue reads the tree, not the
// mapping): a host-scalar entry at each tuple
// node's LHS slot, and the tiled array at the repeat node's LHS slot.
func buildRepeatMapping(ex *expr.Expression, arrID uint) *Mapping {
	m := NewMapping()
	m.Insert(expr.Key{NodeIndex: 0, Slot: expr.LHS}, NewHostScalar(10, dtype.Int32))
	m.Insert(expr.Key{NodeIndex: 1, Slot: expr.LHS}, NewHostScalar(11, dtype.Int32))
	m.Insert(expr.Key{NodeIndex: 2, Slot: expr.LHS}, NewHostScalar(12, dtype.Int32))
	m.Insert(expr.Key{NodeIndex: 3, Slot: expr.LHS}, NewHostScalar(13, dtype.Int32))
	m.Insert(expr.Key{NodeIndex: 4, Slot: expr.LHS}, NewArray(arrID, dtype.Float64, []int64{4, 4}))
	return m
}

func TestRepeatOrientationClassification(t *testing.T) {
	cases := []repeatTestCase{
		{name: "column tile", sub0: 4, sub1: 1, wantOrientation: 'c'},
		{name: "row tile", sub0: 1, sub1: 4, wantOrientation: 'r'},
		{name: "full matrix tile", sub0: 4, sub1: 4, wantOrientation: 'm'},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			arr := testMatrixBuffer(1)
			ex := buildRepeatExpression(arr, 4, 4, tc.sub0, tc.sub1)
			m := buildRepeatMapping(ex, 1)
			info := NodeInfo{Mapping: m, Expr: ex, RootIdx: 4}

			obj, err := NewRepeat(dtype.Float64, 99, info)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if obj.repeatOf != tc.wantOrientation {
				t.Errorf("repeatOf = %q, want %q", obj.repeatOf, tc.wantOrientation)
			}
		})
	}
}

func TestPostprocessRepeatDispatchesValueArityByOrientation(t *testing.T) {
	cases := []struct {
		name       string
		sub0, sub1 int64
		wantOneArg bool
	}{
		{name: "column tile uses 1-arg i", sub0: 4, sub1: 1, wantOneArg: true},
		{name: "row tile uses 1-arg j", sub0: 1, sub1: 4, wantOneArg: true},
		{name: "full matrix tile uses 2-arg i,j", sub0: 4, sub1: 4, wantOneArg: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			arr := testMatrixBuffer(1)
			ex := buildRepeatExpression(arr, 4, 4, tc.sub0, tc.sub1)
			m := buildRepeatMapping(ex, 1)
			info := NodeInfo{Mapping: m, Expr: ex, RootIdx: 4}

			obj, err := NewRepeat(dtype.Float64, 99, info)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			out, err := obj.Process("#rep0,#rep1,#sub0,#sub1: $VALUE{i,j}")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(out, "obj1_pointer[") {
				t.Errorf("rendered output %q should index into the tiled array's pointer", out)
			}
			if tc.wantOneArg && strings.Contains(out, ",") && strings.Count(out, "obj1_pointer[") > 0 && strings.Contains(out, ") * obj1_ld") {
				t.Errorf("column/row tile should not use the 2-d (ld-multiplied) index, got %q", out)
			}
			if !tc.wantOneArg && !strings.Contains(out, "obj1_ld") {
				t.Errorf("full matrix tile should use the 2-d ld-multiplied index, got %q", out)
			}
		})
	}
}
