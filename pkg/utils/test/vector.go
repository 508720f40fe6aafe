package testutils

import (
	"context"
	"math"
	"sync"

	"github.com/illumefy/illumefy-server/pkg/vector"
)

// MockIndex is a test vector index. It computes real cosine distances over
// the documents added to it, so tests can exercise nearest-neighbor logic
// with hand-picked vectors. Safe for concurrent use.
type MockIndex struct {
	mu        sync.Mutex
	documents []vector.Document

	// NearestResult, when set, is returned by Nearest instead of the
	// computed match. Useful for pinning exact distances.
	NearestResult *vector.Match

	// FailAdd causes Add to return vector.ErrConnection.
	FailAdd bool

	// FailNearest causes Nearest to return vector.ErrConnection.
	FailNearest bool
}

func NewMockIndex() *MockIndex {
	return &MockIndex{
		documents: make([]vector.Document, 0),
	}
}

func (m *MockIndex) Add(_ context.Context, docs []vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAdd {
		return vector.ErrConnection
	}

	for _, doc := range docs {
		replaced := false
		for i := range m.documents {
			if m.documents[i].ID == doc.ID {
				m.documents[i] = doc
				replaced = true
				break
			}
		}
		if !replaced {
			m.documents = append(m.documents, doc)
		}
	}
	return nil
}

func (m *MockIndex) Nearest(_ context.Context, embedding []float32) (*vector.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNearest {
		return nil, vector.ErrConnection
	}
	if m.NearestResult != nil {
		return m.NearestResult, nil
	}
	if len(m.documents) == 0 {
		return nil, nil
	}

	best := -1
	bestDist := float32(math.MaxFloat32)
	for i, doc := range m.documents {
		d := cosineDistance(embedding, doc.Embedding)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}

	return &vector.Match{
		Document: m.documents[best],
		Distance: bestDist,
	}, nil
}

func (m *MockIndex) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		for i := range m.documents {
			if m.documents[i].ID == id {
				m.documents = append(m.documents[:i], m.documents[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *MockIndex) Close() error {
	return nil
}

// Documents returns a snapshot of the stored documents.
func (m *MockIndex) Documents() []vector.Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]vector.Document, len(m.documents))
	copy(out, m.documents)
	return out
}

func cosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return float32(math.MaxFloat32)
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return float32(math.MaxFloat32)
	}

	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
