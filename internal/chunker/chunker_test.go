package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "single paragraph",
			content: "hello world",
			want:    []string{"hello world"},
		},
		{
			name:    "multiple paragraphs",
			content: "first paragraph\nsecond paragraph\nthird",
			want:    []string{"first paragraph", "second paragraph", "third"},
		},
		{
			name:    "blank lines dropped",
			content: "first\n\n\nsecond\n",
			want:    []string{"first", "second"},
		},
		{
			name:    "whitespace trimmed",
			content: "  padded  \n\t tabbed \t",
			want:    []string{"padded", "tabbed"},
		},
		{
			name:    "empty content",
			content: "",
			want:    []string{},
		},
		{
			name:    "only whitespace",
			content: "   \n\t\n  ",
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paragraphs(tt.content))
		})
	}
}

func TestParagraphsDeterministic(t *testing.T) {
	content := "a\nb\n\nc"
	first := Paragraphs(content)
	assert.Equal(t, first, Paragraphs(content))
}
