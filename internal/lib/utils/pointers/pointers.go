package pointers

// Ptr casts T type to *T
func Ptr[T any](t T) *T {
	return &t
}

// Deref returns value under pointer or zero value for nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
