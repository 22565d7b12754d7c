// Copyright (c) 2026 BatchTrack. All rights reserved.

package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Bresaola Winter 2026", "bresaola-winter-2026"},
		{"Coppa di Testa", "coppa-di-testa"},
		{"Jamón Ibérico", "jamon-iberico"},
		{"  spaced   out  ", "spaced-out"},
		{"UPPER_case & symbols!", "upper-case-symbols"},
		{"", ""},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, From(tc.input), "input %q", tc.input)
	}
}
