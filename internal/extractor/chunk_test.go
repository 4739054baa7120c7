package extractor

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 150)
	got, truncated := Truncate(long, 100)
	if !truncated {
		t.Error("expected truncation")
	}
	if len(got) != 100 {
		t.Errorf("len = %d, want exactly 100", len(got))
	}

	// Same input truncates identically.
	again, _ := Truncate(long, 100)
	if got != again {
		t.Error("truncation is not deterministic")
	}

	short, truncated := Truncate("short", 100)
	if truncated || short != "short" {
		t.Errorf("short input should pass through, got %q (truncated=%v)", short, truncated)
	}
}

func TestTruncate_NeverSplitsARune(t *testing.T) {
	t.Parallel()

	// "é" is two bytes; a byte cut at 100 would land mid-rune.
	text := strings.Repeat("a", 99) + "é" + strings.Repeat("b", 50)
	got, truncated := Truncate(text, 100)
	if !truncated {
		t.Fatal("expected truncation")
	}
	if !utf8.ValidString(got) {
		t.Errorf("truncated text is not valid UTF-8: %q", got)
	}
	if len(got) != 99 {
		t.Errorf("len = %d, want 99 (backed off to the rune boundary)", len(got))
	}

	again, _ := Truncate(text, 100)
	if got != again {
		t.Error("truncation is not deterministic")
	}
}

func TestChunk_PacksParagraphsGreedily(t *testing.T) {
	t.Parallel()

	text := "aaaa\n\nbbbb\n\ncccc\n\ndddd"
	chunks := Chunk(text, 10)

	// 4+4 fits in 10, the third paragraph overflows and starts a new chunk.
	want := []string{"aaaa\n\nbbbb", "cccc\n\ndddd"}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks %q, want %d", len(chunks), chunks, len(want))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk[%d] = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunk_JoinReproducesParagraphSequence(t *testing.T) {
	t.Parallel()

	text := "first paragraph here\n\nsecond one\n\nthird\n\nfourth paragraph with more text\n\nfifth"
	for _, budget := range []int{1, 10, 25, 1000} {
		chunks := Chunk(text, budget)
		if joined := strings.Join(chunks, "\n\n"); joined != text {
			t.Errorf("budget %d: joined chunks differ from original:\n%q\n%q", budget, joined, text)
		}
	}
}

func TestChunk_OversizedParagraphGetsOwnChunk(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 50)
	text := "small\n\n" + big + "\n\ntiny"
	chunks := Chunk(text, 20)

	found := false
	for _, c := range chunks {
		if c == big {
			found = true
		}
		if strings.Contains(c, big[:20]) && c != big {
			t.Errorf("oversized paragraph was split or merged: %q", c)
		}
	}
	if !found {
		t.Errorf("oversized paragraph not emitted as its own chunk: %q", chunks)
	}
}

func TestChunk_Empty(t *testing.T) {
	t.Parallel()

	if chunks := Chunk("", 100); chunks != nil {
		t.Errorf("expected nil for empty input, got %q", chunks)
	}
}
