package ports

import (
	"context"
	"io"

	"github.com/verirag/verirag/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	MarkIndexed(ctx context.Context, id string) error
	SetError(ctx context.Context, id string, message string) error
}

// ObjectStorage stores source document files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor extracts plain text from a stored document, concatenated
// across pages.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits extracted text into overlapping retrieval units.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and questions. Both methods must use the
// same model configuration or indexed and query vectors stop being comparable.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks under the shared collection and answers top-k
// similarity queries.
type VectorStore interface {
	UpsertChunks(ctx context.Context, doc *domain.Document, chunks []string, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedPassage, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// AnswerGenerator produces the structured self-scored payload from a question
// and a fixed context block.
type AnswerGenerator interface {
	GenerateVerified(ctx context.Context, prompt string) (string, error)
}

// IngestQueue publishes/consumes document IDs for asynchronous ingestion.
type IngestQueue interface {
	PublishDocumentUploaded(ctx context.Context, documentID string) error
	SubscribeDocumentUploaded(ctx context.Context, handler func(context.Context, string) error) error
}
