package services

import (
	"strings"
	"testing"
)

func TestChunkTextRespectsWordBoundaries(t *testing.T) {
	word := strings.Repeat("a", 120)
	text := strings.TrimSpace(strings.Repeat(word+" ", 30))

	chunks := ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, c := range chunks {
		if len(c) > chunkSize {
			t.Errorf("chunk %d is %d chars, over the %d limit", i, len(c), chunkSize)
		}
		for _, w := range strings.Fields(c) {
			if len(w) != 120 {
				t.Errorf("chunk %d split a word: got fragment of %d chars", i, len(w))
			}
		}
	}

	var rejoined []string
	for _, c := range chunks {
		rejoined = append(rejoined, strings.Fields(c)...)
	}
	if len(rejoined) != 30 {
		t.Errorf("expected 30 words across chunks, got %d", len(rejoined))
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if got := ChunkText("   \n\t  "); got != nil {
		t.Errorf("expected nil for blank input, got %v", got)
	}
}

func TestChunkTextShortInputSingleChunk(t *testing.T) {
	chunks := ChunkText("short piece of text")
	if len(chunks) != 1 || chunks[0] != "short piece of text" {
		t.Errorf("expected single unchanged chunk, got %v", chunks)
	}
}

func TestNormalizeExtractedTextCollapsesBlankRuns(t *testing.T) {
	in := "First line\r\n\r\n\r\n\r\nSecond line\r\n  indented  \r\n"
	got := normalizeExtractedText(in)
	want := "First line\n\nSecond line\nindented"
	if got != want {
		t.Errorf("normalizeExtractedText = %q, want %q", got, want)
	}
}
