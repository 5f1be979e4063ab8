package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/verirag/verirag/internal/core/domain"
)

type ingestFake struct {
	uploadedTitle string
	failUpload    error
	failPipeline  error
}

func (f *ingestFake) Upload(_ context.Context, title, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.failUpload != nil {
		return nil, f.failUpload
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	if title == "" {
		title = filename
	}
	f.uploadedTitle = title

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         "doc-1",
		Title:      title,
		Filename:   filename,
		MimeType:   mimeType,
		StorageKey: "doc-1_file.pdf",
		Indexed:    f.failPipeline == nil,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if f.failPipeline != nil {
		return doc, f.failPipeline
	}
	return doc, nil
}

func (f *ingestFake) Ingest(context.Context, string) error { return nil }

type readerFake struct {
	docs []domain.Document
	err  error
}

func (f *readerFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get document", errors.New(id))
}

func (f *readerFake) List(context.Context) ([]domain.Document, error) {
	return f.docs, f.err
}

func multipartUpload(t *testing.T, title, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if title != "" {
		if err := writer.WriteField("title", title); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := NewRouter(&ingestFake{}, queryFake{}, &readerFake{}, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadDocumentSyncSuccess(t *testing.T) {
	ingest := &ingestFake{}
	handler := NewRouter(ingest, queryFake{}, &readerFake{}, Options{}).Handler()

	body, contentType := multipartUpload(t, "Employee Handbook", "handbook.pdf", "%PDF-1.7 data")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	if ingest.uploadedTitle != "Employee Handbook" {
		t.Fatalf("title not forwarded, got %q", ingest.uploadedTitle)
	}

	var doc map[string]any
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc["id"] != "doc-1" || doc["indexed"] != true {
		t.Fatalf("unexpected response: %+v", doc)
	}
}

func TestUploadDocumentAsyncReturnsAccepted(t *testing.T) {
	handler := NewRouter(&ingestFake{}, queryFake{}, &readerFake{}, Options{AsyncIngest: true}).Handler()

	body, contentType := multipartUpload(t, "", "notes.pdf", "%PDF-1.7 data")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
}

func TestUploadDocumentMissingMultipartField(t *testing.T) {
	handler := NewRouter(&ingestFake{}, queryFake{}, &readerFake{}, Options{}).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentPipelineFailureKeepsRecord(t *testing.T) {
	ingest := &ingestFake{
		failPipeline: domain.WrapError(domain.ErrExtraction, "extract text", errors.New("parser panic")),
	}
	handler := NewRouter(ingest, queryFake{}, &readerFake{}, Options{}).Handler()

	body, contentType := multipartUpload(t, "", "broken.pdf", "not really a pdf")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}

	var resp struct {
		Document map[string]any `json:"document"`
		Error    string         `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Document["indexed"] != false {
		t.Fatalf("expected indexed=false, got %+v", resp.Document)
	}
	if resp.Error == "" {
		t.Fatal("expected error message in response")
	}
}

func TestListDocumentsNewestFirst(t *testing.T) {
	now := time.Now().UTC()
	reader := &readerFake{docs: []domain.Document{
		{ID: "doc-2", Title: "Second", CreatedAt: now},
		{ID: "doc-1", Title: "First", CreatedAt: now.Add(-time.Hour)},
	}}
	handler := NewRouter(&ingestFake{}, queryFake{}, reader, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp struct {
		Documents []domain.Document `json:"documents"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Documents) != 2 || resp.Documents[0].ID != "doc-2" {
		t.Fatalf("unexpected listing: %+v", resp.Documents)
	}
}

func TestGetDocumentByIDNotFound(t *testing.T) {
	handler := NewRouter(&ingestFake{}, queryFake{}, &readerFake{}, Options{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
