package utils

// Ptr returns a pointer to a copy of v, for optional wire fields.
func Ptr[T any](v T) *T {
	return &v
}

// Preview shortens a secret-bearing value for logs, keeping at most n leading characters.
func Preview(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	if len(s) <= n {
		return s[:len(s)/2] + "..."
	}
	return s[:n] + "..."
}
