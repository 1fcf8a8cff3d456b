package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single char", "a", 1},
		{"exact multiple", "abcd", 1},
		{"rounds up", "abcde", 2},
		{"long", strings.Repeat("x", 400), 100},
		{"multibyte counts runes", "héllo wörld", 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Estimate(tc.text))
		})
	}
}

func TestEstimateDeterministic(t *testing.T) {
	text := "Where is my order ORD-1002?"
	assert.Equal(t, Estimate(text), Estimate(text))
}

func TestSum(t *testing.T) {
	assert.Equal(t, 3, Sum("abcd", "abcde"))
	assert.Equal(t, 0, Sum())
}
