// Package nanoid generates short random tokens.
package nanoid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabets.
const (
	Lowercase  = "abcdefghijklmnopqrstuvwxyz"
	Uppercase  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Number     = "0123456789"
	LowerUpper = Lowercase + Uppercase
	URLSafe    = Number + LowerUpper + "-_"
)

const defaultSize = 16

// getSize returns the provided size or the default size if not provided
func getSize(l ...int) int {
	if len(l) > 0 {
		return l[0]
	}
	return defaultSize
}

// Must generates a NanoID with optional length using the default alphabet
func Must(l ...int) string {
	return gonanoid.Must(getSize(l...))
}

// String generates a NanoID using only letters with optional length
func String(l ...int) string {
	return gonanoid.MustGenerate(LowerUpper, getSize(l...))
}

// Lower generates a NanoID using only lowercase letters with optional length
func Lower(l ...int) string {
	return gonanoid.MustGenerate(Lowercase, getSize(l...))
}

// Code generates a URL-safe token suitable for download codes
func Code(l ...int) string {
	return gonanoid.MustGenerate(URLSafe, getSize(l...))
}
