package game

// Handle is a weak, generation-checked reference to a craft slot. Any system
// may destroy a craft between ticks, so holders must re-resolve through the
// world before every use; a handle whose generation no longer matches the
// slot resolves to nothing.
type Handle struct {
	idx int
	gen uint32
}

// NoHandle is the zero-value "points at nothing" handle.
var NoHandle = Handle{idx: -1}

// Valid reports whether the handle ever pointed at a slot. It says nothing
// about liveness; resolve through World.Craft for that.
func (h Handle) Valid() bool {
	return h.idx >= 0
}

type slot struct {
	gen   uint32
	craft *Craft
}
