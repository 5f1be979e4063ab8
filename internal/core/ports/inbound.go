package ports

import (
	"context"
	"io"

	"github.com/verirag/verirag/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload and indexing.
type DocumentIngestor interface {
	Upload(ctx context.Context, title, filename, mimeType string, body io.Reader) (*domain.Document, error)
	Ingest(ctx context.Context, documentID string) error
}

// QueryService is the inbound contract for verified question answering.
type QueryService interface {
	Answer(ctx context.Context, question string, topK int) (*domain.VerifiedAnswer, error)
}

// DocumentReader is the inbound read model for document metadata.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}
