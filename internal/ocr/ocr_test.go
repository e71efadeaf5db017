package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "only blanks", in: "  \n\t\n", want: ""},
		{name: "trims and drops", in: "  JAZZ NIGHT \n\n 20.09.2025  19:00\r\nBlue Hall\n", want: "JAZZ NIGHT\n20.09.2025  19:00\nBlue Hall"},
		{name: "keeps order", in: "b\na\nc", want: "b\na\nc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLines(tt.in))
		})
	}
}
