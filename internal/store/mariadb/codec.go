package mariadb

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/kozaktomas/face-sorter/internal/embedding"
)

// encodeEmbedding packs an embedding as little-endian float64 bytes for BLOB
// storage. MariaDB has no vector type, so embeddings are stored opaque and
// scored in Go.
func encodeEmbedding(e embedding.Embedding) []byte {
	buf := make([]byte, 8*len(e))
	for i, v := range e {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// decodeEmbedding unpacks a little-endian float64 BLOB.
func decodeEmbedding(data []byte) (embedding.Embedding, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 8", len(data))
	}
	out := make(embedding.Embedding, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return out, nil
}
