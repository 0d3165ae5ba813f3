// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestToPgx5DSN covers the scheme rewrite for every accepted prefix.
*/
func TestToPgx5DSN(t *testing.T) {
	tests := map[string]string{
		"postgres://u:p@db:5432/edura":   "pgx5://u:p@db:5432/edura",
		"postgresql://u:p@db:5432/edura": "pgx5://u:p@db:5432/edura",
		"pgx5://u:p@db:5432/edura":       "pgx5://u:p@db:5432/edura",
		"host=db user=u dbname=edura":    "host=db user=u dbname=edura",
	}

	for input, want := range tests {
		assert.Equal(t, want, ToPgx5DSN(input), input)
	}
}
