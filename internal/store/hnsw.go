package store

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

// HNSW index parameters for 128-dim face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after distance filtering.
	HNSWSearchMultiplier = 3
)

// IndexMetadata stores metadata for validating cached HNSW indexes.
type IndexMetadata struct {
	FaceCount int64     `json:"face_count"`
	MaxFaceID int64     `json:"max_face_id"`
	BuildTime time.Time `json:"build_time"`
	Version   int       `json:"version"` // For future compatibility
}

const indexMetadataVersion = 1

// Index wraps an HNSW graph for approximate nearest neighbor search over
// stored faces.
type Index struct {
	graph      *hnsw.Graph[int64]
	savedGraph *hnsw.SavedGraph[int64] // For persistence
	idToFace   map[int64]*StoredFace   // Maps HNSW node ID to face
	mu         sync.RWMutex
}

// IndexMatch is a face selected by Index.BestMatch.
type IndexMatch struct {
	Face  *StoredFace
	Score float64
}

// NewIndex creates a new empty HNSW index.
func NewIndex() *Index {
	return &Index{
		idToFace: make(map[int64]*StoredFace),
	}
}

func newGraph() *hnsw.Graph[int64] {
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return g
}

// Build builds the index from a slice of faces.
func (idx *Index) Build(faces []StoredFace) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(faces) == 0 {
		idx.graph = nil
		idx.savedGraph = nil
		idx.idToFace = make(map[int64]*StoredFace)
		return nil
	}

	g := newGraph()
	idx.idToFace = make(map[int64]*StoredFace, len(faces))

	for i := range faces {
		face := &faces[i]
		if len(face.Embedding) == 0 {
			continue
		}

		g.Add(hnsw.MakeNode(face.ID, ToFloat32(face.Embedding)))
		idx.idToFace[face.ID] = face
	}

	idx.graph = g
	return nil
}

// Add adds a single face to the index.
func (idx *Index) Add(face *StoredFace) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(face.Embedding) == 0 {
		return
	}

	if idx.graph == nil {
		idx.graph = newGraph()
	}

	idx.graph.Add(hnsw.MakeNode(face.ID, ToFloat32(face.Embedding)))
	idx.idToFace[face.ID] = face
}

// Delete removes a face from the index (marks as deleted).
func (idx *Index) Delete(id int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.idToFace, id)
	// HNSW doesn't support true deletion, but removing from idToFace
	// effectively removes it from results since lookups filter by the map.
}

// UpdateLabel updates the label of an indexed face, if present.
func (idx *Index) UpdateLabel(id int64, label string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if face := idx.idToFace[id]; face != nil {
		face.Label = label
	}
}

// GetFace returns the face for a given ID, or nil if not indexed.
func (idx *Index) GetFace(id int64) *StoredFace {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.idToFace[id]
}

// Count returns the number of indexed faces.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idToFace)
}

// IsEmpty returns true if the index has no graph data loaded.
func (idx *Index) IsEmpty() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.graph == nil && idx.savedGraph == nil
}

// Metadata captures the current face population so Save can stamp the
// persisted index for cache validation on the next load.
func (idx *Index) Metadata() IndexMetadata {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var maxID int64
	for id := range idx.idToFace {
		if id > maxID {
			maxID = id
		}
	}
	return IndexMetadata{
		FaceCount: int64(len(idx.idToFace)),
		MaxFaceID: maxID,
		BuildTime: time.Now(),
	}
}

// Search finds the k nearest stored faces to the target embedding.
// Returns face IDs and their cosine distances, nearest first. Distances are
// recomputed in float64, and equal distances order by ascending face ID.
func (idx *Index) Search(target embedding.Embedding, k int) ([]int64, []float64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil && idx.savedGraph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	neighbors := idx.searchNodes(ToFloat32(target), k)

	type scored struct {
		id       int64
		distance float64
	}
	results := make([]scored, 0, len(neighbors))

	for _, n := range neighbors {
		face := idx.idToFace[n.Key]
		if face == nil {
			continue
		}
		results = append(results, scored{
			id:       n.Key,
			distance: 1.0 - embedding.CosineSimilarity(target, face.Embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].distance != results[j].distance {
			return results[i].distance < results[j].distance
		}
		return results[i].id < results[j].id
	})

	ids := make([]int64, len(results))
	distances := make([]float64, len(results))
	for i, r := range results {
		ids[i] = r.id
		distances[i] = r.distance
	}

	return ids, distances, nil
}

// BestMatch returns the stored face most similar to the target embedding,
// or nil when no indexed face reaches the similarity threshold.
//
// Graph candidates are re-scored with exact float64 cosine similarity and
// scanned in ascending ID order, so ties resolve to the earliest stored
// face just like a full linear scan.
func (idx *Index) BestMatch(target embedding.Embedding) *IndexMatch {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil && idx.savedGraph == nil {
		return nil
	}

	neighbors := idx.searchNodes(ToFloat32(target), HNSWEfSearch)

	faces := make([]*StoredFace, 0, len(neighbors))
	for _, n := range neighbors {
		if face := idx.idToFace[n.Key]; face != nil {
			faces = append(faces, face)
		}
	}
	sort.Slice(faces, func(i, j int) bool { return faces[i].ID < faces[j].ID })

	candidates := make([]embedding.Embedding, len(faces))
	for i, face := range faces {
		candidates[i] = face.Embedding
	}

	match := embedding.BestMatch(target, candidates)
	if match == nil {
		return nil
	}
	return &IndexMatch{Face: faces[match.Index], Score: match.Score}
}

// searchNodes queries whichever graph is loaded. Callers must hold the lock.
func (idx *Index) searchNodes(query []float32, k int) []hnsw.Node[int64] {
	if idx.savedGraph != nil {
		return idx.savedGraph.Search(query, k)
	}
	return idx.graph.Search(query, k)
}

// Save persists the index, its metadata and face data to disk.
// The graph goes to path, metadata to path+".meta", faces to path+".faces".
func (idx *Index) Save(path string, metadata IndexMetadata) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil && idx.savedGraph == nil {
		// Remove existing files if index is empty (best-effort cleanup).
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		_ = os.Remove(path + ".faces")
		return nil
	}

	if err := idx.exportGraph(path); err != nil {
		return err
	}

	metadata.Version = indexMetadataVersion
	metaData, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	faces := make([]StoredFace, 0, len(idx.idToFace))
	for _, face := range idx.idToFace {
		faces = append(faces, *face)
	}
	if err := saveFaceSidecar(path, faces); err != nil {
		return err
	}

	return nil
}

// exportGraph exports the HNSW graph to the given file path.
func (idx *Index) exportGraph(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if idx.savedGraph != nil {
		if err := idx.savedGraph.Export(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to export HNSW graph from savedGraph: %w", err)
		}
	} else {
		if err := idx.graph.Export(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to export HNSW graph: %w", err)
		}
	}
	return f.Close()
}

// Load loads the graph and face data previously written by Save.
func (idx *Index) Load(path string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("HNSW index file not found: %s", path)
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	faces, err := loadFaceSidecar(path)
	if err != nil {
		return err
	}

	idx.savedGraph = saved
	idx.idToFace = make(map[int64]*StoredFace, len(faces))
	for i := range faces {
		idx.idToFace[faces[i].ID] = &faces[i]
	}

	return nil
}

// LoadIndexMetadata loads index metadata from the .meta sidecar file.
func LoadIndexMetadata(path string) (IndexMetadata, error) {
	var metadata IndexMetadata

	data, err := os.ReadFile(path + ".meta") //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file: %w", err)
	}

	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return metadata, nil
}

// saveFaceSidecar writes face data to a .faces file for fast loading at startup.
func saveFaceSidecar(path string, faces []StoredFace) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(faces); err != nil {
		return fmt.Errorf("failed to encode faces: %w", err)
	}

	if err := os.WriteFile(path+".faces", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write faces file: %w", err)
	}

	return nil
}

// loadFaceSidecar reads face data from a .faces file.
func loadFaceSidecar(path string) ([]StoredFace, error) {
	data, err := os.ReadFile(path + ".faces") //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read faces file: %w", err)
	}

	var faces []StoredFace
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&faces); err != nil {
		return nil, fmt.Errorf("failed to decode faces: %w", err)
	}

	return faces, nil
}
