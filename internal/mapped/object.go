// Package mapped implements the mapped-object hierarchy: the closed set
// of variants that each associate a (node, slot) position in an
// expression tree with a named, typed, template-renderable descriptor.
//
// The original hierarchy used virtual dispatch across a dozen C++
// classes (mapped_object + binary_leaf multiple inheritance); this
// implementation follows the design note in SPEC_FULL.md and encodes it
// as a single tagged Object with per-Kind preprocess/postprocess
// behavior, rather than reaching for interfaces-per-variant.
package mapped

import (
	"strings"

	"symcore/internal/dtype"
	"symcore/internal/expr"
	"symcore/internal/kernerr"
	"symcore/internal/shape"
	"symcore/internal/tmpl"
)

// Kind is the closed set of mapped-object variants.
type Kind int

const (
	KindHostScalar Kind = iota
	KindPlaceholder
	KindArray
	KindScalarDot
	KindGEMV
	KindGEMM
	KindVDiag
	KindMatrixDiag
	KindMatrixRow
	KindMatrixColumn
	KindArrayAccess
	KindRepeat
	KindOuter
	KindCast
)

// NodeInfo is the non-owning (mapping, expression, root) triple every
// binary-leaf variant carries so it can recursively render its LHS/RHS
// children, the Go shape of mapped_object::node_info.
type NodeInfo struct {
	Mapping *Mapping
	Expr    *expr.Expression
	RootIdx int
}

// Object is a single mapped-object instance: a type-key used to look up
// its accessor template, a stable name, a keyword table, and — for the
// variants that recurse into children — a NodeInfo.
type Object struct {
	Kind     Kind
	TypeKey  string
	Name     string
	Keywords map[string]string

	info     *NodeInfo // set for all binary-leaf variants
	effDim   int       // set for KindArray
	repeatOf byte      // set for KindRepeat: 'c' | 'r' | 'm'
}

func newBase(scalarType, name, typeKey string) *Object {
	o := &Object{
		TypeKey:  typeKey,
		Name:     name,
		Keywords: make(map[string]string),
	}
	o.registerAttribute("#scalartype", scalarType)
	o.Keywords["#name"] = name
	return o
}

// registerAttribute stores value under key in the keyword table — the Go
// shape of mapped_object::register_attribute, minus the redundant
// out-parameter the C++ version needed to also populate a same-named
// member field.
func (o *Object) registerAttribute(key, value string) {
	o.Keywords[key] = value
}

// Process clones in, applies the variant's preprocess hook, substitutes
// every keyword→value pair literally, then applies the variant's
// postprocess hook.
func (o *Object) Process(in string) (string, error) {
	s, err := o.preprocess(in)
	if err != nil {
		return "", err
	}
	s = tmpl.ReplaceKeywords(s, o.Keywords)
	s, err = o.postprocess(s)
	if err != nil {
		return "", err
	}
	return s, nil
}

// Evaluate looks up accessors[o.TypeKey]; if present, it renders that
// template through Process. Otherwise it falls back to the object's bare
// Name (SPEC_FULL.md §8 invariant 4).
func (o *Object) Evaluate(accessors map[string]string) (string, error) {
	tpl, ok := accessors[o.TypeKey]
	if !ok {
		return o.Name, nil
	}
	return o.Process(tpl)
}

// Mapping is the complete (node_index, slot) → *Object association for
// one expression. Entries share ownership with the mapping the way the
// original's mapping_type did (a std::map of shared_ptr<mapped_object>):
// in Go this is simply a map of pointers, which stay alive exactly as
// long as the Mapping itself does.
type Mapping struct {
	entries map[expr.Key]*Object
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{entries: make(map[expr.Key]*Object)}
}

// Insert adds obj under key. It is an error to insert the same key
// twice (SPEC_FULL.md §3: "A mapping contains... no orphan keys" / "each
// key appears at most once").
func (m *Mapping) Insert(key expr.Key, obj *Object) error {
	if _, exists := m.entries[key]; exists {
		return kernerr.AtNode(kernerr.MappingInvariantViolated, "duplicate mapping key "+key.Slot.String(), key.NodeIndex)
	}
	m.entries[key] = obj
	return nil
}

// Get returns the object bound to key, if any.
func (m *Mapping) Get(key expr.Key) (*Object, bool) {
	obj, ok := m.entries[key]
	return obj, ok
}

// MustGet returns the object bound to key or a MappingInvariantViolated
// error if no such entry exists.
func (m *Mapping) MustGet(key expr.Key) (*Object, error) {
	obj, ok := m.entries[key]
	if !ok {
		return nil, kernerr.AtNode(kernerr.MappingInvariantViolated, "missing mapping entry for "+key.Slot.String(), key.NodeIndex)
	}
	return obj, nil
}

// Len returns the number of entries in the mapping.
func (m *Mapping) Len() int { return len(m.entries) }

// Keys returns every key present in the mapping, in no particular order.
func (m *Mapping) Keys() []expr.Key {
	keys := make([]expr.Key, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Evaluate is the recursive evaluation helper from SPEC_FULL.md §4.5: if
// the leaf at (rootIdx, slot) is composite, it recurses into the
// referenced sub-root's own PARENT entry; otherwise it fetches the
// mapped object bound to (rootIdx, slot) and evaluates it against
// accessors.
func Evaluate(slot expr.Slot, accessors map[string]string, ex *expr.Expression, rootIdx int, m *Mapping) (string, error) {
	node, err := ex.Node(rootIdx)
	if err != nil {
		return "", err
	}

	var leaf expr.Leaf
	switch slot {
	case expr.LHS:
		leaf = node.LHS
	case expr.RHS:
		leaf = node.RHS
	default:
		return "", kernerr.AtNode(kernerr.MappingInvariantViolated, "Evaluate called with non-leaf slot", rootIdx)
	}

	if leaf.Family == expr.FamilyComposite {
		return Evaluate(expr.Parent, accessors, ex, leaf.NodeIndex, m)
	}

	obj, err := m.MustGet(expr.Key{NodeIndex: rootIdx, Slot: slot})
	if err != nil {
		return "", err
	}
	return obj.Evaluate(accessors)
}

// GetAt walks idx steps into a PARENT_NODE_TYPE tuple chain starting at
// root, returning the LHS (idx==0 ... ) / RHS mapped object at the final
// step — the Go shape of the original's free function
// `mapped_object& get(tree, root, mapping, idx)`, used by mapped_repeat
// to pull the four fields out of a (rep0, rep1, sub0, sub1) tuple node
// chain.
func GetAt(ex *expr.Expression, root int, m *Mapping, idx int) (*Object, error) {
	node, err := ex.Node(root)
	if err != nil {
		return nil, err
	}
	for i := 0; i < idx; i++ {
		if node.RHS.Family == expr.FamilyComposite {
			root = node.RHS.NodeIndex
			node, err = ex.Node(root)
			if err != nil {
				return nil, err
			}
		} else {
			return m.MustGet(expr.Key{NodeIndex: root, Slot: expr.RHS})
		}
	}
	return m.MustGet(expr.Key{NodeIndex: root, Slot: expr.LHS})
}

func dtypeScalarType(dt dtype.Type) string { return dt.String() }

// arrayTypeKeyFor classifies an array's shape into its type-key by its
// effective dimension (shape.Shape.EffectiveDim, the number of extents
// greater than one): "array1" for a scalar (none), "arrayn" for a vector
// (one), "arraynn" for a matrix (two or more). The kind
// (scalar/vector/matrix) is then derived back out of the type key by
// counting 'n' characters, so effective dimension 0/1/2 exactly matches
// that count.
func arrayTypeKeyFor(sh []int64) string {
	switch shape.Shape(sh).EffectiveDim() {
	case 0:
		return "array1"
	case 1:
		return "arrayn"
	default:
		return "arraynn"
	}
}

func countN(typeKey string) int { return strings.Count(typeKey, "n") }
