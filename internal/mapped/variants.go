package mapped

import (
	"symcore/internal/binder"
	"symcore/internal/dtype"
	"symcore/internal/expr"
	"symcore/internal/kernerr"
	"symcore/internal/tmpl"
)

// NewHostScalar builds the mapped object for a pass-by-value scalar leaf.
func NewHostScalar(id uint, dt dtype.Type) *Object {
	o := newBase(dtypeScalarType(dt), binder.Name(id), "host_scalar")
	o.Kind = KindHostScalar
	return o
}

// NewPlaceholder builds the mapped object for a loop-index leaf at the
// given level; its name is always "sforidx"+level regardless of binder
// state, matching mapped_placeholder's constant-per-level naming.
func NewPlaceholder(level int) *Object {
	o := newBase("int", binder.PlaceholderName(level), "placeholder")
	o.Kind = KindPlaceholder
	return o
}

// NewArray builds the mapped object for a buffered array handle. name is
// the binder-assigned "objN" identifier; shape decides whether the array
// is treated as scalar/vector/matrix (see arrayTypeKeyFor).
func NewArray(id uint, dt dtype.Type, sh []int64) *Object {
	typeKey := arrayTypeKeyFor(sh)
	name := binder.Name(id)
	o := newBase(dtypeScalarType(dt), name, typeKey)
	o.Kind = KindArray
	o.registerAttribute("#pointer", name+"_pointer")
	o.registerAttribute("#start", name+"_start")
	effDim := countN(typeKey)
	o.effDim = effDim
	if effDim > 0 {
		o.registerAttribute("#stride", name+"_stride")
	}
	if effDim > 1 {
		o.registerAttribute("#ld", name+"_ld")
	}
	return o
}

func newBinaryLeaf(kind Kind, dt dtype.Type, id uint, typeKey string, info NodeInfo) *Object {
	o := newBase(dtypeScalarType(dt), binder.Name(id), typeKey)
	o.Kind = kind
	o.info = &info
	return o
}

// NewScalarDot builds the mapped object for a full vector→scalar
// reduction (sum, max/min, argmax/argmin, dot products).
func NewScalarDot(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindScalarDot, dt, id, "scalar_dot", info)
}

// NewGEMV builds the mapped object for a row-wise or column-wise
// matrix→vector reduction.
func NewGEMV(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindGEMV, dt, id, "gemv", info)
}

// NewGEMM builds the mapped object for a dense matrix-matrix product.
func NewGEMM(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindGEMM, dt, id, "gemm", info)
}

// NewVDiag builds the mapped object for embedding a vector as a matrix
// diagonal.
func NewVDiag(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindVDiag, dt, id, "vdiag", info)
}

// NewMatrixDiag builds the mapped object for extracting a matrix
// diagonal as a vector.
func NewMatrixDiag(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindMatrixDiag, dt, id, "matrix_diag", info)
}

// NewMatrixRow builds the mapped object for extracting one matrix row.
func NewMatrixRow(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindMatrixRow, dt, id, "matrix_row", info)
}

// NewMatrixColumn builds the mapped object for extracting one matrix
// column.
func NewMatrixColumn(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindMatrixColumn, dt, id, "matrix_column", info)
}

// NewArrayAccess builds the mapped object for a single-element array
// index access.
func NewArrayAccess(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindArrayAccess, dt, id, "array_access", info)
}

// NewRepeat builds the mapped object for a rectangular broadcast tile.
// Its column/row/matrix orientation is inferred once, at construction
// time, from the RHS tuple's (rep0, rep1, sub0, sub1) shape — not
// recomputed on every Process call.
func NewRepeat(dt dtype.Type, id uint, info NodeInfo) (*Object, error) {
	o := newBinaryLeaf(KindRepeat, dt, id, "repeat", info)
	kind, err := repeatOrientation(info)
	if err != nil {
		return nil, err
	}
	o.repeatOf = kind
	return o, nil
}

// NewOuter builds the mapped object for a rank-1 outer product.
func NewOuter(dt dtype.Type, id uint, info NodeInfo) *Object {
	return newBinaryLeaf(KindOuter, dt, id, "outer", info)
}

// NewCast builds the mapped object for a pure type coercion. Its
// #scalartype is the textual spelling of the cast's target type, and its
// type-key is the constant "cast".
func NewCast(op expr.Op, id uint) *Object {
	target := expr.CastTargetType(op)
	o := newBase(target.String(), binder.Name(id), "cast")
	o.Kind = KindCast
	return o
}

// preprocess applies the variant-specific $VALUE rewrite, if any, before
// keyword substitution.
func (o *Object) preprocess(s string) (string, error) {
	switch o.Kind {
	case KindHostScalar:
		return tmpl.ReplaceMacro(s, "$VALUE", tmpl.MorphFunc{
			OneFn: func(string) string { return "#name" },
			TwoFn: func(string, string) string { return "#name" },
		})
	case KindArray:
		return tmpl.ReplaceMacro(s, "$VALUE", tmpl.MorphFunc{
			OneFn: func(i string) string { return "#pointer[" + i + "]" },
			TwoFn: func(i, j string) string { return "#pointer[(" + i + ") +  (" + j + ") * #ld]" },
		})
	default:
		return s, nil
	}
}

// postprocess applies the variant-specific substitution table from
// SPEC_FULL.md §4.3 after keyword substitution.
func (o *Object) postprocess(s string) (string, error) {
	switch o.Kind {
	case KindVDiag:
		return o.postprocessVDiag(s)
	case KindArrayAccess:
		return o.postprocessArrayAccess(s)
	case KindMatrixRow:
		return o.postprocessMatrixRow(s)
	case KindMatrixColumn:
		return o.postprocessMatrixColumn(s)
	case KindMatrixDiag:
		return o.postprocessMatrixDiag(s)
	case KindRepeat:
		return o.postprocessRepeat(s)
	case KindOuter:
		return o.postprocessOuter(s)
	default:
		return s, nil
	}
}

func (o *Object) postprocessVDiag(s string) (string, error) {
	rhs, err := Evaluate(expr.RHS, map[string]string{}, o.info.Expr, o.info.RootIdx, o.info.Mapping)
	if err != nil {
		return "", err
	}
	s = tmpl.ReplaceKeywords(s, map[string]string{"#diag_offset": rhs})
	accessors := map[string]string{"arrayn": s, "host_scalar": s}
	return Evaluate(expr.LHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
}

func (o *Object) postprocessArrayAccess(s string) (string, error) {
	rhs, err := Evaluate(expr.RHS, map[string]string{}, o.info.Expr, o.info.RootIdx, o.info.Mapping)
	if err != nil {
		return "", err
	}
	s = tmpl.ReplaceKeywords(s, map[string]string{"#index": rhs})
	accessors := map[string]string{"arrayn": s, "arraynn": s}
	return Evaluate(expr.LHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
}

func (o *Object) postprocessMatrixRow(s string) (string, error) {
	rhs, err := Evaluate(expr.RHS, map[string]string{}, o.info.Expr, o.info.RootIdx, o.info.Mapping)
	if err != nil {
		return "", err
	}
	s = tmpl.ReplaceKeywords(s, map[string]string{"#row": rhs})
	accessors := map[string]string{"arraynn": s}
	return Evaluate(expr.LHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
}

func (o *Object) postprocessMatrixColumn(s string) (string, error) {
	rhs, err := Evaluate(expr.RHS, map[string]string{}, o.info.Expr, o.info.RootIdx, o.info.Mapping)
	if err != nil {
		return "", err
	}
	s = tmpl.ReplaceKeywords(s, map[string]string{"#column": rhs})
	accessors := map[string]string{"arraynn": s}
	return Evaluate(expr.LHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
}

func (o *Object) postprocessMatrixDiag(s string) (string, error) {
	rhs, err := Evaluate(expr.RHS, map[string]string{}, o.info.Expr, o.info.RootIdx, o.info.Mapping)
	if err != nil {
		return "", err
	}
	s = tmpl.ReplaceKeywords(s, map[string]string{"#diag_offset": rhs})
	accessors := map[string]string{"arraynn": s}
	return Evaluate(expr.LHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
}

// repeatTupleRoot returns the node index of the RHS (rep0, rep1, sub0,
// sub1) tuple node hung off the repeat node's own RHS composite leaf.
func repeatTupleRoot(info NodeInfo) (int, error) {
	node, err := info.Expr.Node(info.RootIdx)
	if err != nil {
		return 0, err
	}
	if node.RHS.Family != expr.FamilyComposite {
		return 0, kernerr.AtNode(kernerr.MappingInvariantViolated, "repeat node's RHS is not a composite tuple reference", info.RootIdx)
	}
	return node.RHS.NodeIndex, nil
}

// tupleScalarValue walks idx steps into a tuple chain rooted at root the
// same way GetAt does, but reads the raw host-scalar value straight off
// the tree instead of going through the mapping — orientation must be
// decided from the literal sub-tile extents, not from a rendered object
// name, the Go shape of the original's free function `tuple_get`.
func tupleScalarValue(ex *expr.Expression, root int, idx int) (int64, error) {
	node, err := ex.Node(root)
	if err != nil {
		return 0, err
	}
	for i := 0; i < idx; i++ {
		if node.RHS.Family != expr.FamilyComposite {
			return int64(node.RHS.Scalar.Value), nil
		}
		node, err = ex.Node(node.RHS.NodeIndex)
		if err != nil {
			return 0, err
		}
	}
	return int64(node.LHS.Scalar.Value), nil
}

// repeatOrientation inspects the RHS tuple's (sub0, sub1) pair — indices
// 2 and 3 of the tuple chain — and classifies the tile as column-wise
// ('c', sub0>1 && sub1==1), row-wise ('r', sub0==1 && sub1>1), or full
// matrix ('m', otherwise), the Go shape of mapped_repeat::get_type.
func repeatOrientation(info NodeInfo) (byte, error) {
	tupleRoot, err := repeatTupleRoot(info)
	if err != nil {
		return 0, err
	}
	sub0, err := tupleScalarValue(info.Expr, tupleRoot, 2)
	if err != nil {
		return 0, err
	}
	sub1, err := tupleScalarValue(info.Expr, tupleRoot, 3)
	if err != nil {
		return 0, err
	}
	switch {
	case sub0 > 1 && sub1 == 1:
		return 'c', nil
	case sub0 == 1 && sub1 > 1:
		return 'r', nil
	default:
		return 'm', nil
	}
}

func (o *Object) postprocessRepeat(s string) (string, error) {
	tupleRoot, err := repeatTupleRoot(*o.info)
	if err != nil {
		return "", err
	}
	rep0, err := GetAt(o.info.Expr, tupleRoot, o.info.Mapping, 0)
	if err != nil {
		return "", err
	}
	rep1, err := GetAt(o.info.Expr, tupleRoot, o.info.Mapping, 1)
	if err != nil {
		return "", err
	}
	sub0, err := GetAt(o.info.Expr, tupleRoot, o.info.Mapping, 2)
	if err != nil {
		return "", err
	}
	sub1, err := GetAt(o.info.Expr, tupleRoot, o.info.Mapping, 3)
	if err != nil {
		return "", err
	}

	rep0Text, err := rep0.Process("#name")
	if err != nil {
		return "", err
	}
	rep1Text, err := rep1.Process("#name")
	if err != nil {
		return "", err
	}
	sub0Text, err := sub0.Process("#name")
	if err != nil {
		return "", err
	}
	sub1Text, err := sub1.Process("#name")
	if err != nil {
		return "", err
	}

	s = tmpl.ReplaceKeywords(s, map[string]string{
		"#rep0": rep0Text,
		"#rep1": rep1Text,
		"#sub0": sub0Text,
		"#sub1": sub1Text,
	})

	s, err = tmpl.ReplaceMacro(s, "$VALUE", tmpl.MorphFunc{
		TwoFn: func(i, j string) string {
			switch o.repeatOf {
			case 'c':
				return "$VALUE{" + i + "}"
			case 'r':
				return "$VALUE{" + j + "}"
			default:
				return "$VALUE{" + i + "," + j + "}"
			}
		},
	})
	if err != nil {
		return "", err
	}

	accessors := map[string]string{"arrayn": s, "arraynn": s}
	return Evaluate(expr.LHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
}

func (o *Object) postprocessOuter(s string) (string, error) {
	lMorph := tmpl.MorphFunc{OneFn: func(i string) string {
		accessors := map[string]string{"arrayn": "$VALUE{" + i + "}", "array1": "#namereg"}
		res, err := Evaluate(expr.LHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
		if err != nil {
			return ""
		}
		return res
	}}
	s, err := tmpl.ReplaceMacro(s, "$LVALUE", lMorph)
	if err != nil {
		return "", err
	}

	rMorph := tmpl.MorphFunc{OneFn: func(i string) string {
		accessors := map[string]string{"arrayn": "$VALUE{" + i + "}", "array1": "#namereg"}
		res, err := Evaluate(expr.RHS, accessors, o.info.Expr, o.info.RootIdx, o.info.Mapping)
		if err != nil {
			return ""
		}
		return res
	}}
	return tmpl.ReplaceMacro(s, "$RVALUE", rMorph)
}
