package cache

import (
	"testing"

	"symcore/internal/dtype"
	"symcore/internal/expr"
	"symcore/internal/mapped"
)

func TestDigestIsDeterministicAcrossInsertOrder(t *testing.T) {
	m1 := mapped.NewMapping()
	m2 := mapped.NewMapping()

	keyA := expr.Key{NodeIndex: 0, Slot: expr.LHS}
	keyB := expr.Key{NodeIndex: 0, Slot: expr.RHS}

	if err := m1.Insert(keyA, mapped.NewHostScalar(0, dtype.Float64)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m1.Insert(keyB, mapped.NewHostScalar(1, dtype.Float32)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same entries, reverse insertion order.
	if err := m2.Insert(keyB, mapped.NewHostScalar(1, dtype.Float32)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m2.Insert(keyA, mapped.NewHostScalar(0, dtype.Float64)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if Digest(m1) != Digest(m2) {
		t.Error("Digest depends on insertion order, want order-independence")
	}
}

func TestDigestDiffersOnDifferentContent(t *testing.T) {
	m1 := mapped.NewMapping()
	m2 := mapped.NewMapping()
	key := expr.Key{NodeIndex: 0, Slot: expr.LHS}

	if err := m1.Insert(key, mapped.NewHostScalar(0, dtype.Float64)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m2.Insert(key, mapped.NewHostScalar(0, dtype.Int32)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if Digest(m1) == Digest(m2) {
		t.Error("Digest should differ when underlying keyword tables differ")
	}
}
