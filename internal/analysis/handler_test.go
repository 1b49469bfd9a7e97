package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
)

type stubSummarizer struct {
	lastMIME string
	lastData []byte
	summary  string
	err      error
}

func (s *stubSummarizer) Summarize(ctx context.Context, mimeType string, data []byte) (string, error) {
	s.lastMIME = mimeType
	s.lastData = data
	return s.summary, s.err
}

func multipartReport(t *testing.T, field, filename, mimeType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeReturnsSummary(t *testing.T) {
	stub := &stubSummarizer{summary: "## Report\nAll values normal."}
	h := NewHandler(stub, nil, nil)

	body, contentType := multipartReport(t, "file", "report.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	req := httptest.NewRequest(http.MethodPost, "/analytics", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["summary"] != "## Report\nAll values normal." {
		t.Fatalf("summary = %q", resp["summary"])
	}
	if stub.lastMIME != "application/pdf" {
		t.Fatalf("mime = %q, want application/pdf", stub.lastMIME)
	}
	if string(stub.lastData) != "%PDF-1.4 fake" {
		t.Fatalf("bytes not forwarded verbatim: %q", stub.lastData)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	h := NewHandler(&stubSummarizer{}, nil, nil)

	body, contentType := multipartReport(t, "document", "report.png", "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/analytics", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for wrong field name", rec.Code)
	}
}

func TestAnalyzeSummarizerFailure(t *testing.T) {
	stub := &stubSummarizer{err: errors.New("model unavailable")}
	h := NewHandler(stub, nil, nil)

	body, contentType := multipartReport(t, "file", "report.png", "image/png", []byte("png"))
	req := httptest.NewRequest(http.MethodPost, "/analytics", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Analyze(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestNewGeminiSummarizerRequiresKey(t *testing.T) {
	if _, err := NewGeminiSummarizer(context.Background(), "", "gemini-2.5-flash"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
