// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import "time"

// Principal is the identity resolved from a bearer token for one request.
//
// Role is read from the identity store at resolution time, never from the
// token itself, so a role change applies to the very next request.
type Principal struct {
	UserID    string
	SessionID string
	Email     string
	Role      Role
	ExpiresAt time.Time
}
