package tts

import (
	"strings"
	"testing"
)

func TestChunkTextShort(t *testing.T) {
	chunks := chunkText("שלום עולם.", 100)
	if len(chunks) != 1 || chunks[0] != "שלום עולם." {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}

func TestChunkTextEmpty(t *testing.T) {
	if chunks := chunkText("   \n", 100); chunks != nil {
		t.Fatalf("expected no chunks, got %v", chunks)
	}
}

func TestChunkTextPacksSentences(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("זוהי הלכה קצרה. ", 40))

	chunks := chunkText(text, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected the text to split, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 100 {
			t.Fatalf("chunk %d exceeds the limit: %d", i, n)
		}
		if !strings.HasSuffix(c, ".") {
			t.Fatalf("chunk %d does not end at a sentence boundary: %q", i, c)
		}
	}
}

func TestChunkTextSofPasuk(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("ברוך אתה׃ ", 30))

	chunks := chunkText(text, 60)
	for i, c := range chunks {
		if n := len([]rune(c)); n > 60 {
			t.Fatalf("chunk %d exceeds the limit: %d", i, n)
		}
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
}

func TestChunkTextLongSentenceFallsBackToWords(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("מילה ", 50)) // one long "sentence"

	chunks := chunkText(text, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected word-boundary splitting, got %d chunks", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > 40 {
			t.Fatalf("chunk %d exceeds the limit: %d", i, n)
		}
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Fatalf("chunk %d has stray spaces: %q", i, c)
		}
	}
}

func TestChunkTextPreservesEveryWord(t *testing.T) {
	text := "ראשון. שני שלישי רביעי. " + strings.TrimSpace(strings.Repeat("חמישי ", 30)) + ". שישי."

	joined := strings.Join(chunkText(text, 50), " ")
	for _, word := range strings.Fields(text) {
		if !strings.Contains(joined, strings.TrimSuffix(word, ".")) {
			t.Fatalf("word %q lost in chunking", word)
		}
	}
}
