package tools

// PtrOf returns a pointer to v, for the OpenAPI params that take
// optional pointer fields.
func PtrOf[T any](v T) *T {
	return &v
}
