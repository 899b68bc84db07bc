package stackitem

// Immutable is an interface supported by compound types (Array, Map, Struct)
// that can be marked as immutable.
type Immutable interface {
	IsReadOnly() bool
	MarkAsReadOnly()
}

// ro is an internal structure that protects the compound type from
// modification.
type ro struct {
	isReadOnly bool
}

// IsReadOnly implements the Immutable interface.
func (r *ro) IsReadOnly() bool {
	return r.isReadOnly
}

// MarkAsReadOnly implements the Immutable interface.
func (r *ro) MarkAsReadOnly() {
	r.isReadOnly = true
}
