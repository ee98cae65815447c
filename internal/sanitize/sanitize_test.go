package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "spam again", "spam again"},
		{"trims", "  reason \n", "reason"},
		{"strips tags", "<b>loud</b> voice", "loud voice"},
		{"drops script", "<script>alert(1)</script>", ""},
		{"keeps ampersand", "A & B", "A & B"},
		{"japanese", "荒らし行為", "荒らし行為"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}
