// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package convert parses loosely typed query values.

Malformed input falls back to a default instead of failing the request, which
suits optional knobs like page numbers. Do not use it where a malformed value
must be reported to the client.
*/
package convert

import (
	"strconv"
)

// ToIntD converts str to an int, returning def if str is empty or not a base-10 integer.
func ToIntD(str string, def int) int {
	if str == "" {
		return def
	}

	if v, err := strconv.Atoi(str); err == nil {
		return v
	}
	return def
}
