package embedding

import "math"

// Match is the result of a best-match search: the index of the winning
// candidate and its cosine similarity score.
type Match struct {
	Index int
	Score float64
}

// BestMatch scans candidates for the one most similar to target.
// Returns nil when candidates is empty or the best score is below
// SimilarityThreshold. Only a strictly better score replaces the current
// best, so the lowest index wins ties.
func BestMatch(target Embedding, candidates []Embedding) *Match {
	bestIndex := -1
	bestScore := math.Inf(-1)

	for i, candidate := range candidates {
		score := CosineSimilarity(target, candidate)
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex < 0 || bestScore < SimilarityThreshold {
		return nil
	}

	return &Match{Index: bestIndex, Score: bestScore}
}
