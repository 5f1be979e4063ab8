package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/verirag/verirag/internal/core/domain"
	"github.com/verirag/verirag/internal/core/ports"
)

const defaultTopK = 3

// QueryUseCase answers a question from the indexed corpus: embed the question
// with the same configuration used at ingestion, retrieve the top-k passages,
// then hand the fixed context to the verifier. System failures come back as a
// VerifiedAnswer-shaped payload with a zero score so the response contract is
// uniform for success and failure.
type QueryUseCase struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	verifier *Verifier
}

func NewQueryUseCase(
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	verifier *Verifier,
) *QueryUseCase {
	return &QueryUseCase{
		embedder: embedder,
		vectorDB: vectorDB,
		verifier: verifier,
	}
}

func (uc *QueryUseCase) Answer(ctx context.Context, question string, topK int) (*domain.VerifiedAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required"))
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		slog.Error("query embedding failed", "error", err)
		return domain.FailureAnswer(failureKind(err), "Failed to embed the question: "+err.Error()), nil
	}

	passages, err := uc.vectorDB.Search(ctx, queryVector, topK)
	if err != nil {
		slog.Error("vector search failed", "error", err)
		return domain.FailureAnswer(failureKind(err), "Failed to search the vector index: "+err.Error()), nil
	}

	// An empty collection is a normal outcome, not an error; the verifier
	// short-circuits it without calling the generator.
	return uc.verifier.Verify(ctx, question, passages), nil
}

func failureKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrUpstreamTimeout):
		return domain.FailureUpstreamTimeout
	case domain.IsKind(err, domain.ErrGenerationFormat):
		return domain.FailureGenerationFormat
	default:
		return domain.FailureInternal
	}
}
