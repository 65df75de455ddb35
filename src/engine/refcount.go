package engine

// refCount is an explicit hold count. Tables and temporary columns carry
// one; every view that needs them alive takes a hold and gives it back.
// It never goes below zero.
type refCount struct {
	n int
}

func (r *refCount) addRef() int {
	r.n++
	return r.n
}

// release drops one hold. released reports whether this call took the
// count to zero; releasing an unheld count does nothing.
func (r *refCount) release() (n int, released bool) {
	if r.n == 0 {
		return 0, false
	}
	r.n--
	return r.n, r.n == 0
}

func (r *refCount) count() int {
	return r.n
}
