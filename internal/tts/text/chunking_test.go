package text_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/juanvolpe/voiceJuan/internal/tts/text"
)

func TestChunkText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		maxChars int
		expected []string
	}{
		{
			name:     "empty",
			input:    "",
			maxChars: 10,
			expected: nil,
		},
		{
			name:     "disabled",
			input:    "uno  dos tres",
			maxChars: 0,
			expected: []string{"uno dos tres"},
		},
		{
			name:     "fits in one chunk",
			input:    "uno dos",
			maxChars: 100,
			expected: []string{"uno dos"},
		},
		{
			name:     "exact boundary",
			input:    "abc def ghi",
			maxChars: 7,
			expected: []string{"abc def", "ghi"},
		},
		{
			name:     "long word stands alone",
			input:    "a supercalifragilistico b",
			maxChars: 5,
			expected: []string{"a", "supercalifragilistico", "b"},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := text.ChunkText(testCase.input, testCase.maxChars)
			if !reflect.DeepEqual(got, testCase.expected) {
				t.Errorf("Expected %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestChunkText_PreservesWords(t *testing.T) {
	t.Parallel()

	input := "Hola , mi nombre es Juan y soy Argentino . Esta es una prueba larga ."
	chunks := text.ChunkText(input, 20)

	if strings.Join(chunks, " ") != input {
		t.Errorf("Chunks do not reassemble to the input: %q", chunks)
	}

	for _, chunk := range chunks {
		if len(chunk) > 20 {
			t.Errorf("Chunk %q exceeds limit", chunk)
		}
	}
}
