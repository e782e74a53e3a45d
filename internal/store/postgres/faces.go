package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/identity"
	"github.com/kozaktomas/face-sorter/internal/store"
)

// FaceStore provides PostgreSQL-backed face storage.
type FaceStore struct {
	pool *Pool
}

// NewFaceStore creates a face store on top of an existing pool. Closing the
// store closes the pool.
func NewFaceStore(pool *Pool) *FaceStore {
	return &FaceStore{pool: pool}
}

// Open connects to PostgreSQL, runs migrations and returns a ready store.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*FaceStore, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return NewFaceStore(pool), nil
}

const faceColumns = "id, path, label, embedding, dim, created_at"

// Get retrieves a face by ID.
func (s *FaceStore) Get(ctx context.Context, id int64) (*store.StoredFace, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+faceColumns+" FROM faces WHERE id = $1", id)

	face, err := scanFace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &face, nil
}

// List returns all stored faces ordered by ID.
func (s *FaceStore) List(ctx context.Context) ([]store.StoredFace, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+faceColumns+" FROM faces ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// ListByLabel returns all faces assigned to the given label, ordered by ID.
// The comparison matches the Go-side name normalization (lowercase, no
// diacritics, dashes to spaces) so "jan-novak" matches "Jan Novák".
func (s *FaceStore) ListByLabel(ctx context.Context, label string) ([]store.StoredFace, error) {
	normalizedInput := identity.NormalizePersonName(label)

	query := `
		SELECT ` + faceColumns + `
		FROM faces
		WHERE LOWER(REPLACE(unaccent(label), '-', ' ')) = $1
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query, normalizedInput)
	if err != nil {
		return nil, fmt.Errorf("query faces by label: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// Labels returns the distinct non-empty labels in the store.
func (s *FaceStore) Labels(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT label FROM faces WHERE label IS NOT NULL AND label != '' ORDER BY label")
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels = append(labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return labels, nil
}

// Count returns the total number of faces stored.
func (s *FaceStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// FindSimilar finds faces with similar embeddings using cosine distance.
func (s *FaceStore) FindSimilar(
	ctx context.Context, target embedding.Embedding, limit int,
) ([]store.StoredFace, []float64, error) {
	if limit <= 0 {
		return nil, nil, nil
	}

	// Use a transaction to set ef_search for better recall (matching the
	// in-memory HNSW configuration).
	tx, err := s.pool.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", store.HNSWEfSearch)); err != nil {
		return nil, nil, fmt.Errorf("set ef_search: %w", err)
	}

	query := `
		SELECT ` + faceColumns + `,
		       embedding <=> $1::vector AS distance
		FROM faces
		ORDER BY distance
		LIMIT $2
	`

	vec := pgvector.NewVector(store.ToFloat32(target))
	rows, err := tx.QueryContext(ctx, query, vec, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query similar faces: %w", err)
	}
	defer rows.Close()

	var faces []store.StoredFace
	var distances []float64

	for rows.Next() {
		var dist float64
		face, err := scanFaceRow(rows, &dist)
		if err != nil {
			return nil, nil, err
		}
		faces = append(faces, face)
		distances = append(distances, dist)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate faces: %w", err)
	}

	return faces, distances, nil
}

// Save stores a face and returns its assigned ID.
func (s *FaceStore) Save(ctx context.Context, face *store.StoredFace) (int64, error) {
	if len(face.Embedding) == 0 {
		return 0, errors.New("face embedding is required")
	}

	dim := face.Dim
	if dim == 0 {
		dim = len(face.Embedding)
	}

	var label sql.NullString
	if face.Label != "" {
		label = sql.NullString{String: face.Label, Valid: true}
	}

	vec := pgvector.NewVector(store.ToFloat32(face.Embedding))

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO faces (path, label, embedding, dim)
		VALUES ($1, $2, $3::vector, $4)
		RETURNING id
	`, face.Path, label, vec, dim).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert face: %w", err)
	}

	return id, nil
}

// AssignLabel sets the label for a face.
func (s *FaceStore) AssignLabel(ctx context.Context, id int64, label string) error {
	var value sql.NullString
	if label != "" {
		value = sql.NullString{String: label, Valid: true}
	}

	result, err := s.pool.Exec(ctx, "UPDATE faces SET label = $1 WHERE id = $2", value, id)
	if err != nil {
		return fmt.Errorf("update face label: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete removes a face by ID.
func (s *FaceStore) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM faces WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete face: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *FaceStore) Close() error {
	return s.pool.Close()
}

// scanFaceRow scans a single row into a StoredFace, with optional extra scan
// destinations appended after the standard face columns (e.g. a distance).
func scanFaceRow(scanner interface{ Scan(...any) error }, extraDest ...any) (store.StoredFace, error) {
	var face store.StoredFace
	var vec pgvector.Vector
	var label sql.NullString

	dest := make([]any, 0, 6+len(extraDest))
	dest = append(dest,
		&face.ID,
		&face.Path,
		&label,
		&vec,
		&face.Dim,
		&face.CreatedAt,
	)
	dest = append(dest, extraDest...)

	if err := scanner.Scan(dest...); err != nil {
		return face, err
	}

	face.Embedding = store.FromFloat32(vec.Slice())
	if label.Valid {
		face.Label = label.String
	}

	return face, nil
}

func scanFace(row *sql.Row) (store.StoredFace, error) {
	return scanFaceRow(row)
}

func scanFaces(rows *sql.Rows) ([]store.StoredFace, error) {
	var faces []store.StoredFace
	for rows.Next() {
		face, err := scanFaceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan face: %w", err)
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

// Verify interface compliance.
var _ store.Store = (*FaceStore)(nil)
