package nanoid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultSize = 16

	// PrimaryKeyAlphabet keeps identifiers safe inside URLs and Redis keys.
	PrimaryKeyAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// PrimaryKeySize is the length of generated record identifiers.
	PrimaryKeySize = 16
)

// getSize returns the provided size or the default size if not provided
func getSize(l ...int) int {
	if len(l) > 0 && l[0] > 0 {
		return l[0]
	}
	return defaultSize
}

// Must generates a NanoID with optional length using default alphabet
func Must(l ...int) string {
	return gonanoid.Must(getSize(l...))
}

// PrimaryKey generates an alphanumeric identifier of PrimaryKeySize characters.
func PrimaryKey() string {
	return gonanoid.MustGenerate(PrimaryKeyAlphabet, PrimaryKeySize)
}
