package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace only", "   \t\n", nil},
		{"punctuation only", "?!... ---", nil},
		{"lowercase and strip", "What TIME do you OPEN?", []string{"what", "time", "open"}},
		{"stop words removed", "can you tell me the price", []string{"tell", "price"}},
		{"punctuation splits", "hello,world", []string{"hello", "world"}},
		{"digits kept", "order 12345 status", []string{"order", "12345", "status"}},
		{"diacritics folded", "Café!", []string{"cafe"}},
		{"order preserved with duplicates", "price price match", []string{"price", "price", "match"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenSet(t *testing.T) {
	set := TokenSet([]string{"a1", "b2", "a1"})
	assert.Len(t, set, 2)
	_, ok := set["a1"]
	assert.True(t, ok)
}
