package expr

import (
	"symcore/internal/driver"
	"symcore/internal/dtype"
	"symcore/internal/shape"
)

// LeafFamily tags which arm of the Leaf union is populated, mirroring the
// original's math_expression_node_type_family.
type LeafFamily int

const (
	FamilyLeafInvalid LeafFamily = iota
	FamilyComposite              // sub-expression reference (node index)
	FamilyValue                  // host scalar
	FamilyArray                  // array handle
	FamilyPlaceholder            // loop index
)

// LeafSubtype refines a Leaf's family, mirroring
// math_expression_node_subtype.
type LeafSubtype int

const (
	SubtypeInvalid LeafSubtype = iota
	SubtypeValueScalar
	SubtypeDenseArray
	SubtypeForLoopIndex
)

// ForIdx is a loop-level placeholder, the Go shape of for_idx_t.
type ForIdx struct {
	Level int
}

// Scalar is a host-resident value paired with its numeric type, the Go
// shape of values_holder.
type Scalar struct {
	DType dtype.Type
	Value float64
}

// ArrayHandle is a reference to a device-resident array. Implementations
// own an opaque driver.Buffer; the mapped-object layer only ever holds a
// non-owning back-reference to one (SPEC_FULL.md §3 Lifecycle).
type ArrayHandle interface {
	DType() dtype.Type
	Shape() shape.Shape
	Buffer() driver.Buffer
}

// Array is the default ArrayHandle implementation: a typed, shaped,
// reference to an opaque device buffer.
type Array struct {
	dt  dtype.Type
	sh  shape.Shape
	buf driver.Buffer
}

// NewArray constructs an Array handle over an already-allocated device
// buffer.
func NewArray(dt dtype.Type, sh shape.Shape, buf driver.Buffer) *Array {
	return &Array{dt: dt, sh: sh, buf: buf}
}

func (a *Array) DType() dtype.Type     { return a.dt }
func (a *Array) Shape() shape.Shape    { return a.sh }
func (a *Array) Buffer() driver.Buffer { return a.buf }

// Leaf is the tagged union carried by each half of a Node: exactly one of
// a composite node-index, a host scalar, an array handle, or a
// placeholder is meaningful, selected by Family.
type Leaf struct {
	Family    LeafFamily
	Subtype   LeafSubtype
	DType     dtype.Type
	NodeIndex int // meaningful iff Family == FamilyComposite
	Scalar    Scalar
	Array     ArrayHandle
	ForIdx    ForIdx
}

// InvalidLeaf is the zero-value sentinel leaf.
var InvalidLeaf = Leaf{Family: FamilyLeafInvalid, Subtype: SubtypeInvalid}

// FillNodeIndex builds a composite leaf referencing a sub-expression
// already spliced into the same tree.
func FillNodeIndex(nodeIndex int) Leaf {
	return Leaf{Family: FamilyComposite, Subtype: SubtypeInvalid, NodeIndex: nodeIndex}
}

// FillScalar builds a value leaf from a host scalar.
func FillScalar(v Scalar) Leaf {
	return Leaf{Family: FamilyValue, Subtype: SubtypeValueScalar, DType: v.DType, Scalar: v}
}

// FillArray builds an array leaf from an array handle.
func FillArray(a ArrayHandle) Leaf {
	return Leaf{Family: FamilyArray, Subtype: SubtypeDenseArray, DType: a.DType(), Array: a}
}

// FillForIdx builds a placeholder leaf from a loop-level index.
func FillForIdx(idx ForIdx) Leaf {
	return Leaf{Family: FamilyPlaceholder, Subtype: SubtypeForLoopIndex, DType: dtype.Int32, ForIdx: idx}
}

// FillInvalid builds the invalid sentinel leaf, used for the unused side
// of a unary node.
func FillInvalid() Leaf {
	return InvalidLeaf
}
