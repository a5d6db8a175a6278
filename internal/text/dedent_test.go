package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		give string
		want string
	}{
		{name: "Empty", give: "", want: ""},
		{
			name: "CommonTabs",
			give: "\n\t\tfirst line\n\t\tsecond line\n\t",
			want: "first line\nsecond line",
		},
		{
			name: "MixedDepth",
			give: "\t\touter\n\t\t\tinner\n",
			want: "outer\n\tinner",
		},
		{
			name: "BlankLinePreserved",
			give: "\ta\n\n\tb\n",
			want: "a\n\nb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dedent(tt.give))
		})
	}
}
