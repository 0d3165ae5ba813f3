// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pointer helps with the optional fields of partial updates.

PATCH payloads decode absent JSON keys as nil pointers, so handlers and
services move between values and pointers often:

  - To: address of a literal, mostly in tests.
  - Fallback: dereference with a default for nil.
*/
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T {
	return &v
}

// Fallback dereferences p, or returns fallback when p is nil.
func Fallback[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
