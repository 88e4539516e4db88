// Package expr implements the expression IR: a flat, index-linked tree
// whose nodes carry typed leaves and an operator. Trees are built
// append-only so that composite references always point to a strictly
// smaller index than the node that holds them (a topological order,
// parents after children).
package expr

import (
	"symcore/internal/driver"
	"symcore/internal/dtype"
	"symcore/internal/kernerr"
	"symcore/internal/shape"
)

// Node is one entry in an Expression's flat tree: an operator applied to
// an LHS and RHS leaf.
type Node struct {
	LHS Leaf
	Op  OpElement
	RHS Leaf
}

// Expression is an ordered, append-only vector of nodes plus the metadata
// that applies to the whole tree: which node is the root, the device
// context it is bound to, its result type, and its result shape.
type Expression struct {
	Tree    []Node
	Root    int
	Context driver.Context
	DType   dtype.Type
	Shape   shape.Shape
}

// Operand is anything a builder can bind into an LHS/RHS position: a host
// scalar, a sub-expression, an array handle, or a loop-index placeholder.
type Operand interface{ isOperand() }

type ScalarOperand Scalar
type ArrayOperand struct{ Array ArrayHandle }
type ExprOperand struct{ Expr *Expression }
type PlaceholderOperand struct{ ForIdx ForIdx }
type InvalidOperand struct{}

func (ScalarOperand) isOperand()      {}
func (ArrayOperand) isOperand()       {}
func (ExprOperand) isOperand()        {}
func (PlaceholderOperand) isOperand() {}
func (InvalidOperand) isOperand()     {}

// splice appends src's nodes onto dst, rewriting every composite
// NodeIndex reference within the appended nodes by offset (the length of
// dst before the append) so the references keep resolving within the
// concatenated tree. Returns the root index of the spliced-in subtree
// within dst.
func splice(dst []Node, src *Expression) ([]Node, int) {
	offset := len(dst)
	for _, n := range src.Tree {
		dst = append(dst, rewriteNode(n, offset))
	}
	return dst, src.Root + offset
}

func rewriteNode(n Node, offset int) Node {
	if n.LHS.Family == FamilyComposite {
		n.LHS.NodeIndex += offset
	}
	if n.RHS.Family == FamilyComposite {
		n.RHS.NodeIndex += offset
	}
	return n
}

func fillOperand(tree []Node, o Operand) ([]Node, Leaf, error) {
	switch v := o.(type) {
	case ScalarOperand:
		return tree, FillScalar(Scalar(v)), nil
	case ArrayOperand:
		return tree, FillArray(v.Array), nil
	case PlaceholderOperand:
		return tree, FillForIdx(v.ForIdx), nil
	case ExprOperand:
		newTree, rootIdx := splice(tree, v.Expr)
		return newTree, FillNodeIndex(rootIdx), nil
	case InvalidOperand, nil:
		return tree, FillInvalid(), nil
	default:
		return tree, Leaf{}, kernerr.New(kernerr.InvalidExpression, "unrecognized operand kind")
	}
}

// New builds a new Expression applying op to lhs and rhs. Any operand
// that is itself an Expression has its tree spliced in first (LHS before
// RHS, preserving relative order), so composite references in the new
// root node always point to a strictly smaller index (SPEC_FULL.md §3
// invariant 1).
func New(lhs, rhs Operand, op OpElement, ctx driver.Context, dt dtype.Type, sh shape.Shape) (*Expression, error) {
	if err := validateOperands(lhs, rhs, op); err != nil {
		return nil, err
	}

	var tree []Node
	tree, lhsLeaf, err := fillOperand(tree, lhs)
	if err != nil {
		return nil, err
	}
	tree, rhsLeaf, err := fillOperand(tree, rhs)
	if err != nil {
		return nil, err
	}

	tree = append(tree, Node{LHS: lhsLeaf, Op: op, RHS: rhsLeaf})
	root := len(tree) - 1

	return &Expression{
		Tree:    tree,
		Root:    root,
		Context: ctx,
		DType:   dt,
		Shape:   sh,
	}, nil
}

// validateOperands rejects leaf combinations the builder contract
// declares invalid: binding two raw loop-index placeholders through an
// assignment-family operator, and a node whose operands are both
// invalid. A placeholder is a loop-level integer, not an addressable
// array; nothing downstream can materialize an assignment target out of
// two of them.
func validateOperands(lhs, rhs Operand, op OpElement) error {
	_, lhsPlaceholder := lhs.(PlaceholderOperand)
	_, rhsPlaceholder := rhs.(PlaceholderOperand)
	if lhsPlaceholder && rhsPlaceholder && IsAssignment(op.Op) {
		return kernerr.New(kernerr.InvalidExpression, "cannot assign between two loop-index placeholders")
	}
	if _, lhsInvalid := lhs.(InvalidOperand); lhsInvalid {
		if _, rhsInvalid := rhs.(InvalidOperand); rhsInvalid {
			return kernerr.New(kernerr.InvalidExpression, "both operands invalid")
		}
	}
	return nil
}

// Neg returns a new expression applying OpMinus to x's root, the Go shape
// of math_expression::operator-().
func Neg(x *Expression) (*Expression, error) {
	return New(ExprOperand{Expr: x}, InvalidOperand{}, OpElement{Family: FamilyUnary, Op: OpMinus}, x.Context, x.DType, x.Shape.Clone())
}

// Not returns a new expression applying OpNegate to x's root, the Go
// shape of math_expression::operator!().
func Not(x *Expression) (*Expression, error) {
	return New(ExprOperand{Expr: x}, InvalidOperand{}, OpElement{Family: FamilyUnary, Op: OpNegate}, x.Context, x.DType, x.Shape.Clone())
}

// Reshape replaces the expression's shape metadata in place; the tree
// itself is untouched (SPEC_FULL.md §3 Lifecycle: "An expression may be
// reshaped (metadata only)").
func (e *Expression) Reshape(sh shape.Shape) {
	e.Shape = sh
}

// Node returns the node at idx, or an error if idx is out of range.
func (e *Expression) Node(idx int) (Node, error) {
	if idx < 0 || idx >= len(e.Tree) {
		return Node{}, kernerr.AtNode(kernerr.MappingInvariantViolated, "node index out of range", idx)
	}
	return e.Tree[idx], nil
}

// RootNode returns the expression's root node.
func (e *Expression) RootNode() Node {
	return e.Tree[e.Root]
}

// CheckInvariant1 verifies that every composite-family leaf at node i
// references a strictly smaller index, for all i in the tree
// (SPEC_FULL.md §8 invariant 1). It is intended for tests.
func (e *Expression) CheckInvariant1() error {
	for i, n := range e.Tree {
		if n.LHS.Family == FamilyComposite && n.LHS.NodeIndex >= i {
			return kernerr.AtNode(kernerr.MappingInvariantViolated, "composite LHS does not reference a smaller index", i)
		}
		if n.RHS.Family == FamilyComposite && n.RHS.NodeIndex >= i {
			return kernerr.AtNode(kernerr.MappingInvariantViolated, "composite RHS does not reference a smaller index", i)
		}
	}
	return nil
}
