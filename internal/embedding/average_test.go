package embedding

import (
	"errors"
	"math"
	"testing"
)

func TestAverageEmpty(t *testing.T) {
	result, err := Average(nil)
	if err != nil {
		t.Fatalf("Average(nil) returned error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("Average(nil) = %v; want empty", result)
	}
}

func TestAverageSingle(t *testing.T) {
	// A single embedding comes back as-is, without renormalization
	e := Embedding{3, 4}

	result, err := Average([]Embedding{e})
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}

	if len(result) != 2 || result[0] != 3 || result[1] != 4 {
		t.Errorf("Average of one = %v; want [3 4] untouched", result)
	}
}

func TestAverageTwo(t *testing.T) {
	a := Embedding{1, 0}
	b := Embedding{0, 1}

	result, err := Average([]Embedding{a, b})
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}

	// Mean is (0.5, 0.5), normalized to (1/sqrt2, 1/sqrt2)
	want := 1 / math.Sqrt2
	for i, x := range result {
		if math.Abs(x-want) > 1e-12 {
			t.Errorf("component %d = %v; want %v", i, x, want)
		}
	}
}

func TestAverageIdenticalInputs(t *testing.T) {
	e := Embedding{3, 4}

	result, err := Average([]Embedding{e, e})
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}

	// Two copies average to the same direction, normalized
	want := Embedding{0.6, 0.8}
	for i := range want {
		if math.Abs(result[i]-want[i]) > 1e-12 {
			t.Errorf("component %d = %v; want %v", i, result[i], want[i])
		}
	}
}

func TestAverageIsNormalized(t *testing.T) {
	embs := []Embedding{
		{1, 2, 3},
		{4, 5, 6},
		{-1, 0, 1},
	}

	result, err := Average(embs)
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}

	norm := Norm(result)
	if math.Abs(norm-1) > 1e-12 {
		t.Errorf("Norm(Average(...)) = %v; want 1", norm)
	}
}

func TestAverageZeroVectors(t *testing.T) {
	// All-zero inputs mean a zero mean, which normalization passes through
	embs := []Embedding{
		{0, 0, 0},
		{0, 0, 0},
	}

	result, err := Average(embs)
	if err != nil {
		t.Fatalf("Average failed: %v", err)
	}
	for i, x := range result {
		if x != 0 {
			t.Errorf("component %d = %v; want 0", i, x)
		}
	}
}

func TestAverageDimensionMismatch(t *testing.T) {
	embs := []Embedding{
		{1, 2, 3},
		{1, 2},
	}

	_, err := Average(embs)
	if err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("error = %v; want ErrDimensionMismatch", err)
	}
}

func TestAverageDoesNotModifyInputs(t *testing.T) {
	a := Embedding{1, 0}
	b := Embedding{0, 1}

	if _, err := Average([]Embedding{a, b}); err != nil {
		t.Fatalf("Average failed: %v", err)
	}

	if a[0] != 1 || a[1] != 0 || b[0] != 0 || b[1] != 1 {
		t.Errorf("inputs modified: a=%v b=%v", a, b)
	}
}
