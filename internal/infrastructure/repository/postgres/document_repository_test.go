package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/verirag/verirag/internal/core/domain"
)

func newMockRepo(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewDocumentRepository(db), mock
}

func documentColumns() []string {
	return []string{
		"id", "title", "filename", "mime_type", "storage_key",
		"indexed", "error_message", "created_at", "updated_at",
	}
}

func TestCreateInsertsAllFields(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         "doc-1",
		Title:      "Handbook",
		Filename:   "handbook.pdf",
		MimeType:   "application/pdf",
		StorageKey: "doc-1_handbook.pdf",
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(doc.ID, doc.Title, doc.Filename, doc.MimeType, doc.StorageKey,
			doc.Indexed, doc.ErrorMessage, doc.CreatedAt, doc.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT .+ FROM documents\s+WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetByIDScansDocument(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentColumns()).
		AddRow("doc-1", "Handbook", "handbook.pdf", "application/pdf", "doc-1_handbook.pdf",
			true, "", now, now)

	mock.ExpectQuery(`SELECT .+ FROM documents\s+WHERE id = \$1`).
		WithArgs("doc-1").
		WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc.Title != "Handbook" || !doc.Indexed {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestListReturnsNewestFirst(t *testing.T) {
	repo, mock := newMockRepo(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentColumns()).
		AddRow("doc-2", "Second", "b.pdf", "application/pdf", "doc-2_b.pdf", false, "", now, now).
		AddRow("doc-1", "First", "a.pdf", "application/pdf", "doc-1_a.pdf", true, "", now.Add(-time.Hour), now)

	mock.ExpectQuery(`SELECT .+ FROM documents\s+ORDER BY created_at DESC`).
		WillReturnRows(rows)

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "doc-2" || docs[1].ID != "doc-1" {
		t.Fatalf("unexpected order: %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestMarkIndexedClearsError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE documents\s+SET indexed = TRUE, error_message = ''`).
		WithArgs("doc-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkIndexed(context.Background(), "doc-1"); err != nil {
		t.Fatalf("MarkIndexed: %v", err)
	}
}

func TestMarkIndexedMissingDocument(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE documents\s+SET indexed = TRUE`).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkIndexed(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckEmbeddingConfigRecordsFirstModel(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`INSERT INTO collection_config`).
		WithArgs("documents", "text-embedding-3-small", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT embedding_model FROM collection_config`).
		WithArgs("documents").
		WillReturnRows(sqlmock.NewRows([]string{"embedding_model"}).AddRow("text-embedding-3-small"))

	if err := repo.CheckEmbeddingConfig(context.Background(), "documents", "text-embedding-3-small"); err != nil {
		t.Fatalf("CheckEmbeddingConfig: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCheckEmbeddingConfigRejectsModelSwap(t *testing.T) {
	repo, mock := newMockRepo(t)

	// The INSERT hits the existing row and is a no-op; the stored model wins.
	mock.ExpectExec(`INSERT INTO collection_config`).
		WithArgs("documents", "text-embedding-3-large", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT embedding_model FROM collection_config`).
		WithArgs("documents").
		WillReturnRows(sqlmock.NewRows([]string{"embedding_model"}).AddRow("text-embedding-3-small"))

	err := repo.CheckEmbeddingConfig(context.Background(), "documents", "text-embedding-3-large")
	if !domain.IsKind(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSetErrorUpdatesMessage(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE documents\s+SET error_message = \$2`).
		WithArgs("doc-1", "extraction failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetError(context.Background(), "doc-1", "extraction failed"); err != nil {
		t.Fatalf("SetError: %v", err)
	}
}
