package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksumDeterministic(t *testing.T) {
	a := Checksum("A red dress made of silk.")
	b := Checksum("A red dress made of silk.")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestChecksumDistinguishesInputs(t *testing.T) {
	assert.NotEqual(t, Checksum("https://cdn.example.com/a.jpg"), Checksum("https://cdn.example.com/b.jpg"))
	assert.NotEqual(t, Checksum(""), Checksum(" "))
}

func TestNormalizeDescription(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses whitespace",
			in:   "A   red\tdress\n\nmade of silk",
			want: "A red dress made of silk",
		},
		{
			name: "one clause per line",
			in:   "A red dress. Made of silk; dry clean only! Fits true to size? Yes.",
			want: "A red dress.\nMade of silk;\ndry clean only!\nFits true to size?\nYes.",
		},
		{
			name: "trims and drops empty lines",
			in:   "  A red dress.   \n\n  ",
			want: "A red dress.",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
		{
			name: "whitespace only",
			in:   " \n\t ",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeDescription(tc.in))
		})
	}
}
