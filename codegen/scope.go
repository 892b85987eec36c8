package codegen

// scopeFrame is one lexical block's view of the local-variable frame. index
// is the next free slot; size is the high-water mark reached while the
// frame was live.
type scopeFrame struct {
	index  int
	size   int
	parent *scopeFrame
}

// pushScope opens a frame that continues from the enclosing one
func (fn *Func) pushScope() {
	fn.scope = &scopeFrame{
		index:  fn.scope.index,
		size:   fn.scope.size,
		parent: fn.scope,
	}
}

// popScope returns to the enclosing frame. Its cursor becomes current again
// so a sibling block reuses the same slots; the high-water mark is kept.
func (fn *Func) popScope() {
	frame := fn.scope
	if frame.parent == nil {
		unreachable(zeroPos, "scope stack underflow in %s", fn.Name)
	}
	fn.scope = frame.parent
	if frame.size > fn.scope.size {
		fn.scope.size = frame.size
	}
}

// AllocLocal reserves n consecutive slots in the current frame and returns
// the first
func (fn *Func) AllocLocal(n int) int {
	if n < 1 {
		n = 1
	}
	slot := fn.scope.index
	fn.scope.index += n
	if fn.scope.index > fn.scope.size {
		fn.scope.size = fn.scope.index
	}
	if fn.scope.size > fn.size {
		fn.size = fn.scope.size
	}
	return slot
}

// ScopeDepth returns the number of open frames above the function's root
func (fn *Func) ScopeDepth() int {
	depth := 0
	for f := fn.scope; f.parent != nil; f = f.parent {
		depth++
	}
	return depth
}
