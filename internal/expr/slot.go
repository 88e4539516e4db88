package expr

// Slot identifies which half-edge of a node a mapped object is bound to:
// the LHS or RHS operand, or PARENT denoting the node's own role within
// its parent's rendering.
type Slot int

const (
	LHS Slot = iota
	RHS
	Parent
)

func (s Slot) String() string {
	switch s {
	case LHS:
		return "LHS"
	case RHS:
		return "RHS"
	case Parent:
		return "PARENT"
	default:
		return "UNKNOWN"
	}
}

// Key identifies one entry in a Mapping: a node index paired with a slot.
// Each key appears at most once in a given mapping (SPEC_FULL.md §3).
type Key struct {
	NodeIndex int
	Slot      Slot
}
