package rank

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled is identical", []float32{1, 2}, []float32{2, 4}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Cosine(tc.a, tc.b)
			if err != nil {
				t.Fatalf("Cosine: %v", err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Cosine = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosine_Errors(t *testing.T) {
	t.Parallel()

	if _, err := Cosine([]float32{1, 2}, []float32{1}); err == nil {
		t.Error("expected error for length mismatch")
	}
	if _, err := Cosine(nil, nil); err == nil {
		t.Error("expected error for empty vectors")
	}
	if _, err := Cosine([]float32{0, 0}, []float32{1, 1}); err == nil {
		t.Error("expected error for zero-magnitude vector")
	}
}

func TestRank(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0, 0}
	candidates := []Candidate{
		{ID: "far", Vector: []float32{0, 1, 0}},
		{ID: "near", Vector: []float32{1, 0.1, 0}},
		{ID: "mid", Vector: []float32{1, 1, 0}},
	}

	got, err := Rank(query, candidates, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}

	wantOrder := []string{"near", "mid", "far"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("rank[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestRank_TopK(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1, 1}},
		{ID: "c", Vector: []float32{0, 1}},
	}

	got, err := Rank(query, candidates, 2)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("top-2 = [%s %s], want [a b]", got[0].ID, got[1].ID)
	}
}

func TestRank_TiesPreserveInputOrder(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: "first", Vector: []float32{2, 0}},
		{ID: "second", Vector: []float32{3, 0}},
	}

	got, err := Rank(query, candidates, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Errorf("tie order = [%s %s], want [first second]", got[0].ID, got[1].ID)
	}
}

func TestRank_Empty(t *testing.T) {
	t.Parallel()

	got, err := Rank([]float32{1}, nil, 3)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty candidates, got %v", got)
	}
}

func TestRank_BadCandidateFails(t *testing.T) {
	t.Parallel()

	_, err := Rank([]float32{1, 0}, []Candidate{{ID: "broken", Vector: []float32{0, 0}}}, 0)
	if err == nil {
		t.Fatal("expected error for zero-magnitude candidate")
	}
}
