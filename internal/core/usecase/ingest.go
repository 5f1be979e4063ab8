package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verirag/verirag/internal/core/domain"
	"github.com/verirag/verirag/internal/core/ports"
)

// IngestDocumentUseCase owns the upload-to-indexed pipeline: store the file,
// create the metadata record, then extract, chunk, embed and write the chunks
// into the shared collection. The document is marked indexed only after every
// chunk write is confirmed.
type IngestDocumentUseCase struct {
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	queue     ports.IngestQueue
	async     bool
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		vectorDB:  vectorDB,
	}
}

// WithAsyncQueue switches Upload to publish-and-return: the pipeline then runs
// in the worker that consumes the queue.
func (uc *IngestDocumentUseCase) WithAsyncQueue(queue ports.IngestQueue) *IngestDocumentUseCase {
	uc.queue = queue
	uc.async = queue != nil
	return uc
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	title, filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = filename
	}
	if title == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("title is required"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:         id,
		Title:      title,
		Filename:   filename,
		MimeType:   mimeType,
		StorageKey: storageKey,
		Indexed:    false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if uc.async {
		if err := uc.queue.PublishDocumentUploaded(ctx, doc.ID); err != nil {
			return doc, fmt.Errorf("publish ingestion event: %w", err)
		}
		return doc, nil
	}

	if err := uc.Ingest(ctx, doc.ID); err != nil {
		return doc, err
	}
	doc.Indexed = true
	return doc, nil
}

// Ingest runs the indexing pipeline for an already-uploaded document. It is
// idempotent: existing chunks for the document are replaced, never duplicated.
// On any failure the document stays unindexed and no partial chunk set is left
// behind.
func (uc *IngestDocumentUseCase) Ingest(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	err = uc.runPipeline(ctx, doc)
	if err != nil {
		if failErr := uc.repo.SetError(ctx, doc.ID, err.Error()); failErr != nil {
			return fmt.Errorf("%w; record failure: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.MarkIndexed(ctx, doc.ID); err != nil {
		return fmt.Errorf("mark document indexed: %w", err)
	}
	return nil
}

func (uc *IngestDocumentUseCase) runPipeline(ctx context.Context, doc *domain.Document) error {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrEmptyDocument, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return domain.WrapError(
			domain.ErrIndexWrite,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	// Replace semantics: drop whatever a previous ingestion wrote first, so
	// re-ingesting a document never duplicates its chunks.
	if err := uc.vectorDB.DeleteByDocument(ctx, doc.ID); err != nil {
		return domain.WrapError(domain.ErrIndexWrite, "clear previous chunks", err)
	}

	if err := uc.vectorDB.UpsertChunks(ctx, doc, chunks, vectors); err != nil {
		// The store must not keep a partial chunk set for the document.
		if cleanupErr := uc.vectorDB.DeleteByDocument(ctx, doc.ID); cleanupErr != nil {
			slog.Error("compensating delete failed",
				"document_id", doc.ID,
				"error", cleanupErr,
			)
		}
		return domain.WrapError(domain.ErrIndexWrite, "write chunks", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.pdf"
	}
	return base
}
