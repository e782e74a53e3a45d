package identity

import (
	"fmt"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

// Group is a cluster of faces believed to show the same person. Members
// index into the input slice passed to GroupEmbeddings.
type Group struct {
	Centroid embedding.Embedding
	Members  []int
}

// GroupEmbeddings clusters unlabeled face embeddings greedily: each
// embedding joins the existing group whose centroid it best matches at or
// above the identity threshold, otherwise it opens a new group. The
// centroid is recomputed from all members after every join. Output is
// deterministic for a given input order.
func GroupEmbeddings(embs []embedding.Embedding) ([]Group, error) {
	if len(embs) == 0 {
		return nil, nil
	}

	dim := len(embs[0])
	for i, e := range embs {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d components, want %d",
				embedding.ErrDimensionMismatch, i, len(e), dim)
		}
	}

	var groups []Group
	for i, e := range embs {
		centroids := make([]embedding.Embedding, len(groups))
		for j, g := range groups {
			centroids[j] = g.Centroid
		}

		match := embedding.BestMatch(e, centroids)
		if match == nil {
			groups = append(groups, Group{Centroid: e, Members: []int{i}})
			continue
		}

		g := &groups[match.Index]
		g.Members = append(g.Members, i)

		members := make([]embedding.Embedding, len(g.Members))
		for k, idx := range g.Members {
			members[k] = embs[idx]
		}
		centroid, err := embedding.Average(members)
		if err != nil {
			return nil, fmt.Errorf("recompute centroid for group %d: %w", match.Index, err)
		}
		g.Centroid = centroid
	}

	return groups, nil
}
