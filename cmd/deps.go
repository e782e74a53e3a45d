package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/faceprint"
	"github.com/kozaktomas/face-sorter/internal/identity"
	"github.com/kozaktomas/face-sorter/internal/store"
	"github.com/kozaktomas/face-sorter/internal/store/mariadb"
	"github.com/kozaktomas/face-sorter/internal/store/memory"
	"github.com/kozaktomas/face-sorter/internal/store/postgres"
)

// openStore opens the configured face store backend: PostgreSQL when
// DATABASE_URL is set, MariaDB when MARIADB_DSN is set, otherwise an
// in-memory store. Returns the store and the backend name for logging.
// The caller owns the store and must Close it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, string, error) {
	switch {
	case cfg.Database.URL != "":
		s, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open PostgreSQL store: %w", err)
		}
		return s, "postgres", nil
	case cfg.MariaDB.DSN != "":
		s, err := mariadb.Open(ctx, &cfg.MariaDB)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open MariaDB store: %w", err)
		}
		return s, "mariadb", nil
	default:
		return memory.New(), "memory", nil
	}
}

// newExtractor picks the embedding backend: the remote embedding service
// when EXTRACTOR_URL is set, otherwise the built-in grid extractor.
func newExtractor(cfg *config.Config) faceprint.Extractor {
	if cfg.Extractor.URL != "" {
		return faceprint.NewRemote(cfg.Extractor.URL, cfg.Extractor.Model)
	}
	return faceprint.Grid{}
}

// buildRegistry seeds the person registry from labeled faces in the store.
// Faces sharing a normalized label enroll as one person under the label's
// first-seen spelling. Labels enroll in order of their first face ID, so
// identity tie-breaks stay stable across restarts.
func buildRegistry(ctx context.Context, faces store.FaceReader) (*identity.Registry, error) {
	registry := identity.NewRegistry()

	all, err := faces.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list faces: %w", err)
	}

	samples := make(map[string][]embedding.Embedding)
	names := make(map[string]string)
	var order []string

	for _, face := range all {
		if face.Label == "" {
			continue
		}
		key := identity.NormalizePersonName(face.Label)
		if _, ok := samples[key]; !ok {
			order = append(order, key)
			names[key] = face.Label
		}
		samples[key] = append(samples[key], face.Embedding)
	}

	for _, key := range order {
		if _, err := registry.Enroll(names[key], samples[key]); err != nil {
			return nil, fmt.Errorf("failed to enroll %q: %w", names[key], err)
		}
	}

	return registry, nil
}

// loadOrBuildIndex prepares the ANN index over stored faces. When path is
// set and the persisted metadata still matches the store population, the
// saved graph is reused; otherwise the index is rebuilt from scratch.
func loadOrBuildIndex(ctx context.Context, faces store.FaceReader, path string) (*store.Index, error) {
	index := store.NewIndex()

	all, err := faces.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list faces: %w", err)
	}

	var maxID int64
	for _, face := range all {
		if face.ID > maxID {
			maxID = face.ID
		}
	}

	if path != "" {
		meta, err := store.LoadIndexMetadata(path)
		if err == nil && meta.FaceCount == int64(len(all)) && meta.MaxFaceID == maxID {
			if err := index.Load(path); err == nil {
				return index, nil
			}
			fmt.Printf("Warning: failed to load face index from %s, rebuilding\n", path)
		}
	}

	if err := index.Build(all); err != nil {
		return nil, fmt.Errorf("failed to build face index: %w", err)
	}
	return index, nil
}

// saveIndex persists the face index when a path is configured.
func saveIndex(index *store.Index, path string) {
	if path == "" {
		return
	}
	if err := index.Save(path, index.Metadata()); err != nil {
		fmt.Printf("Warning: failed to save face index: %v\n", err)
		return
	}
	fmt.Printf("Face index saved to %s\n", path)
}
