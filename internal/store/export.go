package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"time"
)

// ExportData bundles all stored faces for backup or transfer between backends.
type ExportData struct {
	Version    int
	ExportedAt time.Time
	Faces      []StoredFace
}

const currentExportVersion = 1

// WriteExport writes all faces from the reader as a gob stream.
func WriteExport(ctx context.Context, w io.Writer, faces FaceReader) (int, error) {
	all, err := faces.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list faces: %w", err)
	}

	data := ExportData{
		Version:    currentExportVersion,
		ExportedAt: time.Now().UTC(),
		Faces:      all,
	}

	if err := gob.NewEncoder(w).Encode(data); err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}
	return len(all), nil
}

// ReadExport decodes a gob export stream and validates its version.
func ReadExport(r io.Reader) (*ExportData, error) {
	var data ExportData
	if err := gob.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	if data.Version > currentExportVersion {
		return nil, fmt.Errorf("unsupported export version %d (newest known is %d)", data.Version, currentExportVersion)
	}

	return &data, nil
}

// Import saves every face from an export into the writer. IDs are assigned
// by the destination store; the source IDs are not preserved. Returns the
// number of imported faces.
func Import(ctx context.Context, dst FaceWriter, data *ExportData) (int, error) {
	imported := 0
	for i := range data.Faces {
		face := data.Faces[i]
		face.ID = 0
		if _, err := dst.Save(ctx, &face); err != nil {
			return imported, fmt.Errorf("import face %d: %w", data.Faces[i].ID, err)
		}
		imported++
	}
	return imported, nil
}
