// Package mariadb implements the face store on MariaDB/MySQL. Embeddings are
// stored as BLOBs and similarity is scored in Go, so it works on stock
// servers without any vector extension.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/embedding"
	"github.com/kozaktomas/face-sorter/internal/identity"
	"github.com/kozaktomas/face-sorter/internal/store"
)

// Pool manages a MariaDB connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new MariaDB connection pool.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("MariaDB DSN is required")
	}

	// created_at scans into time.Time, which needs parseTime on the driver.
	dsnCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	dsnCfg.ParseTime = true

	db, err := sql.Open("mysql", dsnCfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// FaceStore provides MariaDB-backed face storage.
type FaceStore struct {
	pool *Pool
}

// NewFaceStore creates a face store on top of an existing pool. Closing the
// store closes the pool.
func NewFaceStore(pool *Pool) *FaceStore {
	return &FaceStore{pool: pool}
}

// Open connects to MariaDB, creates the schema if needed and returns a ready
// store.
func Open(ctx context.Context, cfg *config.MariaDBConfig) (*FaceStore, error) {
	pool, err := NewPool(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if err := pool.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return NewFaceStore(pool), nil
}

// ensureSchema creates the faces table if it does not exist.
func (p *Pool) ensureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS faces (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			path TEXT NOT NULL,
			label VARCHAR(255),
			embedding MEDIUMBLOB NOT NULL,
			dim INT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX faces_label_idx (label)
		)
	`)
	if err != nil {
		return fmt.Errorf("create faces table: %w", err)
	}
	return nil
}

const faceColumns = "id, path, label, embedding, dim, created_at"

// Get retrieves a face by ID.
func (s *FaceStore) Get(ctx context.Context, id int64) (*store.StoredFace, error) {
	row := s.pool.db.QueryRowContext(ctx, "SELECT "+faceColumns+" FROM faces WHERE id = ?", id)

	face, err := scanFaceRow(row)
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
	rows, err := s.pool.db.QueryContext(ctx, "SELECT "+faceColumns+" FROM faces ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	return scanFaces(rows)
}

// ListByLabel returns all faces assigned to the given label, ordered by ID.
// MariaDB has no unaccent, so the normalized comparison happens in Go.
func (s *FaceStore) ListByLabel(ctx context.Context, label string) ([]store.StoredFace, error) {
	rows, err := s.pool.db.QueryContext(ctx,
		"SELECT "+faceColumns+" FROM faces WHERE label IS NOT NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query faces by label: %w", err)
	}
	defer rows.Close()

	labeled, err := scanFaces(rows)
	if err != nil {
		return nil, err
	}

	want := identity.NormalizePersonName(label)
	var out []store.StoredFace
	for _, face := range labeled {
		if identity.NormalizePersonName(face.Label) == want {
			out = append(out, face)
		}
	}
	return out, nil
}

// Labels returns the distinct non-empty labels in the store.
func (s *FaceStore) Labels(ctx context.Context) ([]string, error) {
	rows, err := s.pool.db.QueryContext(ctx,
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
	err := s.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM faces").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// FindSimilar loads all faces and scores them in Go, returning the closest
// ones with their cosine distances, nearest first.
func (s *FaceStore) FindSimilar(
	ctx context.Context, target embedding.Embedding, limit int,
) ([]store.StoredFace, []float64, error) {
	if limit <= 0 {
		return nil, nil, nil
	}

	faces, err := s.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	distances := make([]float64, len(faces))
	for i := range faces {
		distances[i] = 1.0 - embedding.CosineSimilarity(target, faces[i].Embedding)
	}

	order := make([]int, len(faces))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return distances[order[i]] < distances[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}

	outFaces := make([]store.StoredFace, len(order))
	outDistances := make([]float64, len(order))
	for i, idx := range order {
		outFaces[i] = faces[idx]
		outDistances[i] = distances[idx]
	}
	return outFaces, outDistances, nil
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

	result, err := s.pool.db.ExecContext(ctx, `
		INSERT INTO faces (path, label, embedding, dim)
		VALUES (?, ?, ?, ?)
	`, face.Path, label, encodeEmbedding(face.Embedding), dim)
	if err != nil {
		return 0, fmt.Errorf("insert face: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// AssignLabel sets the label for a face.
func (s *FaceStore) AssignLabel(ctx context.Context, id int64, label string) error {
	// Verify the face exists first (RowsAffected returns 0 when the value
	// is unchanged).
	var exists bool
	err := s.pool.db.QueryRowContext(ctx, "SELECT 1 FROM faces WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check face exists: %w", err)
	}

	var value sql.NullString
	if label != "" {
		value = sql.NullString{String: label, Valid: true}
	}

	if _, err := s.pool.db.ExecContext(ctx, "UPDATE faces SET label = ? WHERE id = ?", value, id); err != nil {
		return fmt.Errorf("update face label: %w", err)
	}
	return nil
}

// Delete removes a face by ID.
func (s *FaceStore) Delete(ctx context.Context, id int64) error {
	result, err := s.pool.db.ExecContext(ctx, "DELETE FROM faces WHERE id = ?", id)
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

func scanFaceRow(scanner interface{ Scan(...any) error }) (store.StoredFace, error) {
	var face store.StoredFace
	var label sql.NullString
	var blob []byte

	if err := scanner.Scan(&face.ID, &face.Path, &label, &blob, &face.Dim, &face.CreatedAt); err != nil {
		return face, err
	}

	emb, err := decodeEmbedding(blob)
	if err != nil {
		return face, fmt.Errorf("face %d: %w", face.ID, err)
	}
	face.Embedding = emb
	if label.Valid {
		face.Label = label.String
	}

	return face, nil
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
