// Package nanoid generates URL-safe identifiers for export operations.
package nanoid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultSize = 16

	lowerUpper    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numLowerUpper = "0123456789" + lowerUpper
)

func getSize(l ...int) int {
	size := defaultSize
	if len(l) > 0 {
		size = l[0]
	}
	return size
}

// Must generates an optional-length nanoid using the default alphabet.
func Must(l ...int) string {
	return gonanoid.Must(getSize(l...))
}

// String generates an optional-length alphanumeric nanoid.
func String(l ...int) string {
	return gonanoid.MustGenerate(numLowerUpper, getSize(l...))
}

// Lower generates an optional-length alphabetic nanoid.
func Lower(l ...int) string {
	return gonanoid.MustGenerate(lowerUpper, getSize(l...))
}
