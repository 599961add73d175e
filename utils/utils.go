// Package utils provides utility functions for the application.
package utils

// ToPtr returns a pointer to v, for populating optional model fields inline
func ToPtr[T any](v T) *T {
	return &v
}

// IsTrue reports whether an optional boolean is present and set
func IsTrue(b *bool) bool {
	return b != nil && *b
}
