package expr

import "symcore/internal/dtype"

// Family groups an operator tag into a dispatch-friendly bucket, mirroring
// the original's operation_node_type_family split between BLAS1/2/3-style
// operations.
type Family int

const (
	FamilyInvalid Family = iota
	FamilyUnary
	FamilyBinary
	FamilyVectorDot
	FamilyRowsDot
	FamilyColumnsDot
	FamilyGEMM
)

// Op is the closed enumeration of operator tags. The grouping mirrors the
// original operation_node_type ordering: unary operators and expressions
// (including the 12 cast tags), binary/elementwise operators, reductions
// (plain and arg-min/max "index dot" variants), products, and the
// structural access modifiers.
type Op int

const (
	OpInvalid Op = iota

	// Unary
	OpMinus
	OpNegate

	// Casts — exactly twelve, one per declared numeric type.
	CastBool
	CastInt8
	CastUint8
	CastInt16
	CastUint16
	CastInt32
	CastUint32
	CastInt64
	CastUint64
	CastHalf
	CastFloat32
	CastFloat64

	OpAbs
	OpAcos
	OpAsin
	OpAtan
	OpCeil
	OpCos
	OpCosh
	OpExp
	OpFabs
	OpFloor
	OpLog
	OpLog10
	OpSin
	OpSinh
	OpSqrt
	OpTan
	OpTanh
	OpTrans

	// Binary / elementwise
	OpAssign
	OpInplaceAdd
	OpInplaceSub
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpElementArgFMax
	OpElementArgFMin
	OpElementArgMax
	OpElementArgMin
	OpElementProd
	OpElementDiv
	OpElementEq
	OpElementNeq
	OpElementGreater
	OpElementGeq
	OpElementLess
	OpElementLeq
	OpElementPow
	OpElementFMax
	OpElementFMin
	OpElementMax
	OpElementMin

	// Products
	OpOuterProd
	OpGemmNN
	OpGemmTN
	OpGemmNT
	OpGemmTT

	// Access modifiers
	OpMatrixDiag
	OpMatrixRow
	OpMatrixColumn
	OpRepeat
	OpReshape
	OpShift
	OpVDiag
	OpAccessIndex

	OpPair
	OpFuse
	OpSFor
)

// castSpelling maps each of the 12 cast tags onto the same textual set the
// numeric-type registry uses, so a cast's #scalartype is always one
// source of truth (internal/dtype.Type.String) rather than a duplicated
// switch.
var castSpelling = map[Op]dtype.Type{
	CastBool:    dtype.Bool,
	CastInt8:    dtype.Int8,
	CastUint8:   dtype.Uint8,
	CastInt16:   dtype.Int16,
	CastUint16:  dtype.Uint16,
	CastInt32:   dtype.Int32,
	CastUint32:  dtype.Uint32,
	CastInt64:   dtype.Int64,
	CastUint64:  dtype.Uint64,
	CastHalf:    dtype.Half,
	CastFloat32: dtype.Float32,
	CastFloat64: dtype.Float64,
}

// IsCast reports whether op is one of the 12 cast tags.
func IsCast(op Op) bool {
	_, ok := castSpelling[op]
	return ok
}

// CastTargetType returns the type a cast op coerces to; its String()
// spelling is "cast"'s #scalartype (SPEC_FULL.md §4.6).
func CastTargetType(op Op) dtype.Type {
	return castSpelling[op]
}

var indexDots = map[Op]bool{
	OpElementArgFMax: true,
	OpElementArgFMin: true,
	OpElementArgMax:  true,
	OpElementArgMin:  true,
}

// IsIndexDot reports whether op is an arg-min/max reduction, which the
// mapped-dot hierarchy treats as an "index dot".
func IsIndexDot(op Op) bool { return indexDots[op] }

var assignmentOps = map[Op]bool{
	OpAssign:     true,
	OpInplaceAdd: true,
	OpInplaceSub: true,
}

// IsAssignment reports whether op writes into its LHS operand. The
// traversal sets the is-assignment bit on the LHS mapped object for
// exactly these operators.
func IsAssignment(op Op) bool { return assignmentOps[op] }

// OpElement pairs an operator tag with its dispatch family, mirroring the
// original's op_element.
type OpElement struct {
	Family Family
	Op     Op
}

// IsScalarDot reports whether this node reduces a vector down to a
// scalar (a full dot product, including max/min/argmax/argmin/sum-style
// reductions).
func (e OpElement) IsScalarDot() bool { return e.Family == FamilyVectorDot }

// IsVectorDot reports whether this node reduces a matrix down to a
// vector, row-wise or column-wise (the GEMV family).
func (e OpElement) IsVectorDot() bool {
	return e.Family == FamilyRowsDot || e.Family == FamilyColumnsDot
}

// IsGEMM reports whether this node is a dense matrix-matrix product.
func (e OpElement) IsGEMM() bool { return e.Family == FamilyGEMM }
