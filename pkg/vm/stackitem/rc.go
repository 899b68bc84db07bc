package stackitem

// rc is a reference counter embedded into compound types to track the number
// of incoming edges from other reachable items.
type rc struct {
	count int
}

// Counter is an interface supported by compound types whose instances
// participate in the VM-level reference counting.
type Counter interface {
	// IncRC increases the reference count and returns the updated value.
	IncRC() int
	// DecRC decreases the reference count and returns the updated value.
	DecRC() int
}

// IncRC implements the Counter interface.
func (r *rc) IncRC() int {
	r.count++
	return r.count
}

// DecRC implements the Counter interface.
func (r *rc) DecRC() int {
	r.count--
	if r.count < 0 {
		panic("negative reference counter")
	}
	return r.count
}
