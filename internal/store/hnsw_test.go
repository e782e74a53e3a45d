package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

func TestIndexBestMatchMatchesLinearScan(t *testing.T) {
	faces := makeTestFaces(40)

	idx := NewIndex()
	if err := idx.Build(faces); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	candidates := make([]embedding.Embedding, len(faces))
	for i, face := range faces {
		candidates[i] = face.Embedding
	}

	probes := []embedding.Embedding{
		faces[0].Embedding,
		faces[17].Embedding,
		faces[39].Embedding,
		testVector(40),
		axisVector(0),
	}

	for i, probe := range probes {
		want := embedding.BestMatch(probe, candidates)
		got := idx.BestMatch(probe)

		if want == nil {
			if got != nil {
				t.Errorf("probe %d: BestMatch() = face %d, want nil", i, got.Face.ID)
			}
			continue
		}
		if got == nil {
			t.Fatalf("probe %d: BestMatch() = nil, want face %d", i, faces[want.Index].ID)
		}
		if got.Face.ID != faces[want.Index].ID {
			t.Errorf("probe %d: BestMatch() = face %d, want face %d", i, got.Face.ID, faces[want.Index].ID)
		}
		if got.Score != want.Score {
			t.Errorf("probe %d: BestMatch() score = %v, want %v", i, got.Score, want.Score)
		}
	}
}

func TestIndexBestMatchBelowThreshold(t *testing.T) {
	idx := NewIndex()
	err := idx.Build([]StoredFace{
		{ID: 1, Embedding: axisVector(0)},
		{ID: 2, Embedding: axisVector(1)},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	// Orthogonal to both stored faces.
	if got := idx.BestMatch(axisVector(2)); got != nil {
		t.Errorf("BestMatch() = face %d (score %v), want nil", got.Face.ID, got.Score)
	}
}

func TestIndexBestMatchTieKeepsLowestID(t *testing.T) {
	same := testVector(1)

	// Higher ID inserted first; the tie must still resolve by ID.
	idx := NewIndex()
	idx.Add(&StoredFace{ID: 7, Embedding: same})
	idx.Add(&StoredFace{ID: 3, Embedding: same})

	got := idx.BestMatch(same)
	if got == nil {
		t.Fatal("BestMatch() = nil, want a match")
	}
	if got.Face.ID != 3 {
		t.Errorf("BestMatch() = face %d, want face 3", got.Face.ID)
	}
}

func TestIndexDeleteRemovesFromResults(t *testing.T) {
	probe := testVector(0)
	near := testVector(0)
	near[0] += 0.05
	near = embedding.Normalize(near)

	idx := NewIndex()
	idx.Add(&StoredFace{ID: 1, Embedding: probe})
	idx.Add(&StoredFace{ID: 2, Embedding: near})

	got := idx.BestMatch(probe)
	if got == nil || got.Face.ID != 1 {
		t.Fatalf("BestMatch() before delete = %+v, want face 1", got)
	}

	idx.Delete(1)

	got = idx.BestMatch(probe)
	if got == nil {
		t.Fatal("BestMatch() after delete = nil, want face 2")
	}
	if got.Face.ID != 2 {
		t.Errorf("BestMatch() after delete = face %d, want face 2", got.Face.ID)
	}
	if idx.Count() != 1 {
		t.Errorf("Count() = %d, want 1", idx.Count())
	}
}

func TestIndexSearchReportsDistances(t *testing.T) {
	faces := makeTestFaces(5)
	idx := NewIndex()
	if err := idx.Build(faces); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ids, distances, err := idx.Search(faces[2].Embedding, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("Search() returned %d results, want 3", len(ids))
	}
	if len(ids) != len(distances) {
		t.Fatalf("ids and distances length mismatch: %d vs %d", len(ids), len(distances))
	}
	if ids[0] != faces[2].ID {
		t.Errorf("nearest face = %d, want %d", ids[0], faces[2].ID)
	}
	if distances[0] > 1e-9 {
		t.Errorf("distance to identical face = %v, want ~0", distances[0])
	}
}

func TestIndexSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faces.idx")

	faces := []StoredFace{
		{ID: 1, Path: "a.jpg", Label: "Jan Novak", Embedding: testVector(1), Dim: embedding.Size},
		{ID: 2, Path: "b.jpg", Label: "Petra Svobodova", Embedding: testVector(2), Dim: embedding.Size},
		{ID: 3, Path: "c.jpg", Embedding: testVector(3), Dim: embedding.Size},
	}

	idx := NewIndex()
	if err := idx.Build(faces); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	meta := IndexMetadata{FaceCount: 3, MaxFaceID: 3, BuildTime: time.Now()}
	if err := idx.Save(path, meta); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	gotMeta, err := LoadIndexMetadata(path)
	if err != nil {
		t.Fatalf("LoadIndexMetadata() error = %v", err)
	}
	if gotMeta.FaceCount != 3 || gotMeta.MaxFaceID != 3 {
		t.Errorf("metadata = %+v, want FaceCount 3 MaxFaceID 3", gotMeta)
	}
	if gotMeta.Version != indexMetadataVersion {
		t.Errorf("metadata version = %d, want %d", gotMeta.Version, indexMetadataVersion)
	}

	loaded := NewIndex()
	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Count() != 3 {
		t.Errorf("Count() after load = %d, want 3", loaded.Count())
	}
	if face := loaded.GetFace(2); face == nil || face.Label != "Petra Svobodova" {
		t.Errorf("GetFace(2) = %+v, want label 'Petra Svobodova'", face)
	}

	got := loaded.BestMatch(faces[1].Embedding)
	if got == nil {
		t.Fatal("BestMatch() on loaded index = nil, want face 2")
	}
	if got.Face.ID != 2 {
		t.Errorf("BestMatch() on loaded index = face %d, want face 2", got.Face.ID)
	}
}

func TestIndexLoadMissingFile(t *testing.T) {
	idx := NewIndex()
	if err := idx.Load(filepath.Join(t.TempDir(), "missing.idx")); err == nil {
		t.Error("Load() of missing file should fail")
	}
}

func TestIndexEmpty(t *testing.T) {
	idx := NewIndex()

	if !idx.IsEmpty() {
		t.Error("IsEmpty() = false, want true")
	}
	if idx.Count() != 0 {
		t.Errorf("Count() = %d, want 0", idx.Count())
	}
	if got := idx.BestMatch(testVector(1)); got != nil {
		t.Errorf("BestMatch() on empty index = %+v, want nil", got)
	}
	if _, _, err := idx.Search(testVector(1), 5); err == nil {
		t.Error("Search() on empty index should fail")
	}
}

func TestIndexSaveEmptyRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faces.idx")

	// Leave stale files behind, then save an empty index over them.
	for _, name := range []string{path, path + ".meta", path + ".faces"} {
		if err := os.WriteFile(name, []byte("stale"), 0600); err != nil {
			t.Fatalf("write stale file: %v", err)
		}
	}

	idx := NewIndex()
	if err := idx.Save(path, IndexMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	for _, name := range []string{path, path + ".meta", path + ".faces"} {
		if _, err := os.Stat(name); !os.IsNotExist(err) {
			t.Errorf("stale file %s still exists", name)
		}
	}
}

// Helper functions

// testVector builds a deterministic normalized embedding whose components
// vary with the seed, so different seeds give distinct directions.
func testVector(seed int) embedding.Embedding {
	v := make(embedding.Embedding, embedding.Size)
	for j := range v {
		v[j] = float64((seed*31+j*7)%64) + 1.0
	}
	return embedding.Normalize(v)
}

// axisVector builds a unit embedding along a single axis.
func axisVector(i int) embedding.Embedding {
	v := make(embedding.Embedding, embedding.Size)
	v[i] = 1
	return v
}

func makeTestFaces(n int) []StoredFace {
	faces := make([]StoredFace, n)
	for i := 0; i < n; i++ {
		faces[i] = StoredFace{
			ID:        int64(i + 1),
			Path:      "face.jpg",
			Embedding: testVector(i),
			Dim:       embedding.Size,
		}
	}
	return faces
}
