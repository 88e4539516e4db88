package mapper

import (
	"reflect"
	"testing"

	"symcore/internal/binder"
	"symcore/internal/driver"
	"symcore/internal/dtype"
	"symcore/internal/expr"
	"symcore/internal/mapped"
	"symcore/internal/shape"
)

func testArray(id uint64, sh shape.Shape) *expr.Array {
	buf := driver.NewBuffer(id, sh.Prod()*8)
	return expr.NewArray(dtype.Float64, sh, buf)
}

func TestBuildAssignmentMapsLHSAndRHSArrays(t *testing.T) {
	ctx := driver.NewContext(1)
	sh := shape.Shape{4, 4}
	a := testArray(1, sh)
	b := testArray(2, sh)

	ex, err := expr.New(
		expr.ArrayOperand{Array: a}, expr.ArrayOperand{Array: b},
		expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpAssign},
		ctx, dtype.Float64, sh,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := Build(ex, binder.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lhsKey := expr.Key{NodeIndex: ex.Root, Slot: expr.LHS}
	rhsKey := expr.Key{NodeIndex: ex.Root, Slot: expr.RHS}
	if _, ok := m.Get(lhsKey); !ok {
		t.Fatal("missing LHS mapping entry")
	}
	if _, ok := m.Get(rhsKey); !ok {
		t.Fatal("missing RHS mapping entry")
	}
}

func TestBuildEveryKeyReferencesAnExistingNode(t *testing.T) {
	ctx := driver.NewContext(1)
	sh := shape.Shape{4}
	a := testArray(1, sh)
	b := testArray(2, sh)
	c := testArray(3, sh)

	sum, err := expr.New(
		expr.ArrayOperand{Array: b}, expr.ArrayOperand{Array: c},
		expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpAdd},
		ctx, dtype.Float64, sh,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ex, err := expr.New(
		expr.ArrayOperand{Array: a}, expr.ExprOperand{Expr: sum},
		expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpAssign},
		ctx, dtype.Float64, sh,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m, err := Build(ex, binder.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range m.Keys() {
		if _, err := ex.Node(key.NodeIndex); err != nil {
			t.Errorf("mapping key references out-of-range node %d: %v", key.NodeIndex, err)
		}
	}
}

func TestBuildSinkObservesEveryInsert(t *testing.T) {
	ctx := driver.NewContext(1)
	sh := shape.Shape{4}
	a := testArray(1, sh)
	b := testArray(2, sh)

	ex, err := expr.New(
		expr.ArrayOperand{Array: a}, expr.ArrayOperand{Array: b},
		expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpAdd},
		ctx, dtype.Float64, sh,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen int
	sink := func(expr.Key, string) { seen++ }

	m, err := Build(ex, binder.New(), sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != m.Len() {
		t.Errorf("sink observed %d inserts, mapping has %d entries", seen, m.Len())
	}
}

func TestBuildIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	ctx := driver.NewContext(1)
	sh := shape.Shape{4}
	a := testArray(1, sh)
	b := testArray(2, sh)

	build := func() *mapped.Mapping {
		ex, err := expr.New(
			expr.ArrayOperand{Array: a}, expr.ArrayOperand{Array: b},
			expr.OpElement{Family: expr.FamilyBinary, Op: expr.OpAdd},
			ctx, dtype.Float64, sh,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		m, err := Build(ex, binder.New(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return m
	}

	first := build()
	second := build()
	if first.Len() != second.Len() {
		t.Fatalf("mapping sizes differ across runs: %d vs %d", first.Len(), second.Len())
	}
	for _, key := range first.Keys() {
		obj1, _ := first.Get(key)
		obj2, ok := second.Get(key)
		if !ok {
			t.Fatalf("key %v missing from second mapping", key)
		}
		if !reflect.DeepEqual(obj1.Keywords, obj2.Keywords) {
			t.Errorf("keyword tables differ at %v: %v vs %v", key, obj1.Keywords, obj2.Keywords)
		}
	}
}
