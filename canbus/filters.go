package canbus

// FrameFilter decides whether a frame is of interest
type FrameFilter func(Frame) bool

// ByID matches frames with the exact identifier
func ByID(id uint32) FrameFilter {
	return func(f Frame) bool { return f.ID == id }
}

// ByIDs matches any of the provided identifiers
func ByIDs(ids ...uint32) FrameFilter {
	m := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return func(f Frame) bool {
		_, ok := m[f.ID]
		return ok
	}
}

// DataOnly matches non-RTR frames
func DataOnly() FrameFilter {
	return func(f Frame) bool { return !f.RTR }
}

// And matches when both filters match; a nil filter matches everything
func And(a, b FrameFilter) FrameFilter {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return func(f Frame) bool { return a(f) && b(f) }
	}
}
