package embedding

import "math"

// CosineSimilarity computes the cosine similarity between two embeddings.
// Returns a value between -1 (opposite) and 1 (identical).
// Mismatched lengths and zero vectors score 0 rather than failing.
func CosineSimilarity(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return similarity
}

// SameIdentity reports whether two embeddings score at or above
// SimilarityThreshold.
func SameIdentity(a, b Embedding) bool {
	return CosineSimilarity(a, b) >= SimilarityThreshold
}
