package shape

// Slice is a (start, end, stride) triple describing a sub-range of one
// dimension. A negative end denotes bound - (end + 1), so End(-1) means
// "through the last element" regardless of bound.
type Slice struct {
	Start  int64
	End    int64
	Stride int64
}

// All is the default full-range slice for a dimension of unknown bound.
var All = Slice{Start: 0, End: -1, Stride: 1}

// Size returns the number of elements the slice selects out of a
// dimension of the given bound. The effective-end formula is preserved
// exactly as observed in the source this was distilled from:
// effective_end = (end<0) ? bound-(end+1) : end.
func (s Slice) Size(bound int64) int64 {
	effectiveEnd := s.End
	if s.End < 0 {
		effectiveEnd = bound - (s.End + 1)
	}
	return (effectiveEnd - s.Start) / s.Stride
}
