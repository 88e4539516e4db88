// Package mapper implements the traversal (map functor): a depth-first
// walk over an expression's flat tree that builds a complete Mapping by
// visiting every node's LHS, RHS, and PARENT slots in turn.
package mapper

import (
	"symcore/internal/binder"
	"symcore/internal/dtype"
	"symcore/internal/expr"
	"symcore/internal/mapped"
)

// Sink receives one (key, type-key) observation per mapping entry
// inserted during a Build, e.g. internal/trace.Server.Sink.
type Sink func(key expr.Key, typeKey string)

// Build walks ex's tree from its root down and returns the completed
// Mapping, grounded on map_functor::operator() (SPEC_FULL.md §4.5). b
// supplies stable ids; a fresh Binder should be used per mapping pass.
// sink may be nil; when non-nil it observes every insert as it happens
// without influencing the traversal (SPEC_FULL.md §4.10).
func Build(ex *expr.Expression, b *binder.Binder, sink Sink) (*mapped.Mapping, error) {
	m := mapped.NewMapping()
	visited := make(map[int]bool)
	if err := visit(ex, ex.Root, m, b, visited, sink); err != nil {
		return nil, err
	}
	return m, nil
}

func insert(m *mapped.Mapping, key expr.Key, obj *mapped.Object, sink Sink) error {
	if err := m.Insert(key, obj); err != nil {
		return err
	}
	if sink != nil {
		sink(key, obj.TypeKey)
	}
	return nil
}

// visit processes node rootIdx's LHS, RHS, and PARENT slots (in that
// order, matching the original's per-node visitation). A composite LHS
// or RHS is not mapped itself: visit recurses into the referenced child
// at that point, before the PARENT slot, so every node in the tree is
// eventually visited exactly once.
func visit(ex *expr.Expression, rootIdx int, m *mapped.Mapping, b *binder.Binder, visited map[int]bool, sink Sink) error {
	if visited[rootIdx] {
		return nil
	}
	visited[rootIdx] = true

	node, err := ex.Node(rootIdx)
	if err != nil {
		return err
	}

	if node.LHS.Family != expr.FamilyComposite {
		obj, err := createLeaf(ex, node.LHS, b, expr.IsAssignment(node.Op.Op))
		if err != nil {
			return err
		}
		if obj != nil {
			if err := insert(m, expr.Key{NodeIndex: rootIdx, Slot: expr.LHS}, obj, sink); err != nil {
				return err
			}
		}
	} else if err := visit(ex, node.LHS.NodeIndex, m, b, visited, sink); err != nil {
		return err
	}

	if node.RHS.Family != expr.FamilyComposite {
		obj, err := createLeaf(ex, node.RHS, b, false)
		if err != nil {
			return err
		}
		if obj != nil {
			if err := insert(m, expr.Key{NodeIndex: rootIdx, Slot: expr.RHS}, obj, sink); err != nil {
				return err
			}
		}
	} else if err := visit(ex, node.RHS.NodeIndex, m, b, visited, sink); err != nil {
		return err
	}

	obj, err := createParent(ex, rootIdx, node, m, b)
	if err != nil {
		return err
	}
	if obj != nil {
		if err := insert(m, expr.Key{NodeIndex: rootIdx, Slot: expr.Parent}, obj, sink); err != nil {
			return err
		}
	}
	return nil
}

// createLeaf builds the appropriate variant for a non-composite LHS/RHS
// leaf: a host scalar, an array (scalar/vector/matrix by shape), or a
// loop-index placeholder, the Go shape of map_functor::create.
func createLeaf(ex *expr.Expression, leaf expr.Leaf, b *binder.Binder, isAssigned bool) (*mapped.Object, error) {
	switch leaf.Family {
	case expr.FamilyValue:
		id := b.Get()
		return mapped.NewHostScalar(id, leaf.Scalar.DType), nil
	case expr.FamilyArray:
		id := b.GetArray(leaf.Array, isAssigned)
		return mapped.NewArray(id, leaf.Array.DType(), leaf.Array.Shape()), nil
	case expr.FamilyPlaceholder:
		return mapped.NewPlaceholder(leaf.ForIdx.Level), nil
	default:
		return nil, nil
	}
}

// createParent dispatches on the node's operator to decide whether a
// PARENT-slot entry is needed at all, and if so which variant
// constructs it, the Go shape of map_functor::operator()'s
// PARENT_NODE_TYPE branch (SPEC_FULL.md §4.5).
func createParent(ex *expr.Expression, rootIdx int, node expr.Node, m *mapped.Mapping, b *binder.Binder) (*mapped.Object, error) {
	dt := rootDType(ex, rootIdx)
	info := mapped.NodeInfo{Mapping: m, Expr: ex, RootIdx: rootIdx}
	id := b.Get()

	switch {
	case node.Op.Op == expr.OpVDiag:
		return mapped.NewVDiag(dt, id, info), nil
	case node.Op.Op == expr.OpMatrixDiag:
		return mapped.NewMatrixDiag(dt, id, info), nil
	case node.Op.Op == expr.OpMatrixRow:
		return mapped.NewMatrixRow(dt, id, info), nil
	case node.Op.Op == expr.OpMatrixColumn:
		return mapped.NewMatrixColumn(dt, id, info), nil
	case node.Op.Op == expr.OpAccessIndex:
		return mapped.NewArrayAccess(dt, id, info), nil
	case node.Op.IsScalarDot():
		return mapped.NewScalarDot(dt, id, info), nil
	case node.Op.IsVectorDot():
		return mapped.NewGEMV(dt, id, info), nil
	case node.Op.IsGEMM():
		return mapped.NewGEMM(dt, id, info), nil
	case node.Op.Op == expr.OpRepeat:
		return mapped.NewRepeat(dt, id, info)
	case node.Op.Op == expr.OpOuterProd:
		return mapped.NewOuter(dt, id, info), nil
	case expr.IsCast(node.Op.Op):
		return mapped.NewCast(node.Op.Op, id), nil
	default:
		return nil, nil
	}
}

// rootDType walks LHS references down through composite leaves until it
// finds a node whose LHS carries a concrete (non-invalid) type, the Go
// shape of map_functor::get_numeric_type.
func rootDType(ex *expr.Expression, rootIdx int) dtype.Type {
	node, err := ex.Node(rootIdx)
	if err != nil {
		return dtype.Invalid
	}
	for node.LHS.DType == dtype.Invalid && node.LHS.Family == expr.FamilyComposite {
		next, err := ex.Node(node.LHS.NodeIndex)
		if err != nil {
			return dtype.Invalid
		}
		node = next
	}
	if node.LHS.DType != dtype.Invalid {
		return node.LHS.DType
	}
	return ex.DType
}
