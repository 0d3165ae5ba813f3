// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package uuid provides time-ordered identifiers for users and sessions.

Every primary key in Edura is a UUIDv7 string. Values sort by creation
time, which keeps PostgreSQL B-tree indexes compact.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {

	// Create a new version 7 UUID (time-sortable)
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}

// # Parsing

// Valid reports whether raw is a well-formed UUID of any version.
//
// Route parameters are checked with it before they reach the database,
// so a garbage id surfaces as 404 instead of a driver error.
func Valid(raw string) bool {
	return uuid.Validate(raw) == nil
}
