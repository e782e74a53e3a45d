package embedding

import (
	"math"
	"testing"
)

func TestBestMatch(t *testing.T) {
	exactA, exactB := thresholdPair()

	tests := []struct {
		name       string
		target     Embedding
		candidates []Embedding
		wantIndex  int // -1 means no match expected
		wantScore  float64
	}{
		{
			"no candidates",
			Embedding{1, 0},
			nil,
			-1, 0,
		},
		{
			"single match",
			Embedding{1, 0},
			[]Embedding{{1, 0}},
			0, 1.0,
		},
		{
			"best in the middle",
			Embedding{1, 0},
			[]Embedding{{0, 1}, {1, 0.1}, {0.5, 1}},
			1, CosineSimilarity(Embedding{1, 0}, Embedding{1, 0.1}),
		},
		{
			"all below threshold",
			Embedding{1, 0},
			[]Embedding{{0, 1}, {-1, 0}, {3, 4}},
			-1, 0,
		},
		{
			"exactly at threshold",
			exactA,
			[]Embedding{exactB},
			0, SimilarityThreshold,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := BestMatch(tc.target, tc.candidates)

			if tc.wantIndex < 0 {
				if result != nil {
					t.Fatalf("BestMatch = %+v; want no match", result)
				}
				return
			}

			if result == nil {
				t.Fatalf("BestMatch = nil; want index %d", tc.wantIndex)
			}
			if result.Index != tc.wantIndex {
				t.Errorf("BestMatch index = %d; want %d", result.Index, tc.wantIndex)
			}
			if math.Abs(result.Score-tc.wantScore) > 1e-12 {
				t.Errorf("BestMatch score = %v; want %v", result.Score, tc.wantScore)
			}
		})
	}
}

func TestBestMatchTieKeepsLowestIndex(t *testing.T) {
	target := Embedding{1, 0}
	// Duplicate perfect candidates score identically; only a strictly
	// better score may take over, so index 0 must win.
	candidates := []Embedding{{1, 0}, {1, 0}, {1, 0}}

	result := BestMatch(target, candidates)
	if result == nil {
		t.Fatal("expected a match")
	}
	if result.Index != 0 {
		t.Errorf("tie resolved to index %d; want 0", result.Index)
	}
}

func TestBestMatchScaledDuplicates(t *testing.T) {
	// Cosine similarity ignores magnitude, so a scaled copy ties with
	// the original and the earlier candidate wins.
	target := Embedding{0.6, 0.8}
	candidates := []Embedding{{3, 4}, {6, 8}}

	result := BestMatch(target, candidates)
	if result == nil {
		t.Fatal("expected a match")
	}
	if result.Index != 0 {
		t.Errorf("tie resolved to index %d; want 0", result.Index)
	}
}

func TestBestMatchJustBelowThreshold(t *testing.T) {
	// Cosine 0.6 via the 3-4-5 triangle stays below the 0.75 cut
	target := Embedding{1, 0}
	candidates := []Embedding{{3, 4}}

	if result := BestMatch(target, candidates); result != nil {
		t.Errorf("BestMatch = %+v; want no match below threshold", result)
	}
}
