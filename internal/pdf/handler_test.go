package pdf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fileforge/fileforge/internal/config"
	"github.com/fileforge/fileforge/internal/conversion"
	"github.com/fileforge/fileforge/internal/registry"
	"github.com/fileforge/fileforge/internal/storage"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func newTestHandler(t *testing.T) (*Handler, registry.Store) {
	t.Helper()
	root := t.TempDir()

	cfg := &config.StorageConfig{
		UploadsDir:    filepath.Join(root, "uploads"),
		OutputsDir:    filepath.Join(root, "outputs"),
		TempDir:       filepath.Join(root, "temp"),
		MaxUploadSize: "1MB",
	}
	logger := slog.New(slog.DiscardHandler)

	paths, err := storage.New(cfg, logger)
	if err != nil {
		t.Fatalf("storage.New() failed: %v", err)
	}
	if err := paths.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	store := registry.NewMemory()
	committer := conversion.NewCommitter(store, time.Hour, logger)
	runner := tools.NewRunner(logger)
	return NewHandler(paths, committer, runner, 1<<20, logger), store
}

func postFiles(t *testing.T, handler http.HandlerFunc, field string, filenames []string, form map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range filenames {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err := io.Copy(fw, strings.NewReader("%PDF-fake")); err != nil {
			t.Fatalf("write part failed: %v", err)
		}
	}
	for key, value := range form {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("WriteField() failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/pdf/op", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

// minimalPDF builds the smallest well-formed single-page document:
// catalog, page tree, one page, and an xref table with real offsets.
func minimalPDF(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	objects := []string{
		"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n",
		"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n",
		"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n",
	}
	offsets := make([]int, 0, len(objects))
	for _, obj := range objects {
		offsets = append(offsets, buf.Len())
		buf.WriteString(obj)
	}

	start := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, start)
	return buf.Bytes()
}

// postDocuments uploads well-formed single-page PDFs instead of the
// placeholder bodies postFiles sends.
func postDocuments(t *testing.T, handler http.HandlerFunc, field string, filenames []string, form map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	doc := minimalPDF(t)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, name := range filenames {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err := fw.Write(doc); err != nil {
			t.Fatalf("write part failed: %v", err)
		}
	}
	for key, value := range form {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("WriteField() failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/pdf/op", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	handler(w, r)
	return w
}

// committedOutput resolves the registry entry behind a successful
// conversion response.
func committedOutput(t *testing.T, store registry.Store, w *httptest.ResponseRecorder) registry.Entry {
	t.Helper()

	var body struct {
		ConversionID string `json:"conversion_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	id, err := uuid.Parse(body.ConversionID)
	if err != nil {
		t.Fatalf("conversion_id %q is not a UUID: %v", body.ConversionID, err)
	}
	entry, err := store.Resolve(context.Background(), id)
	if err != nil {
		t.Fatalf("Resolve(%s) failed: %v", id, err)
	}
	return entry
}

func assertNoEntries(t *testing.T, store registry.Store) {
	t.Helper()
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("registry holds %d entries after failed conversion, want 0", count)
	}
}

func TestMerge_RequiresTwoFiles(t *testing.T) {
	handler, store := newTestHandler(t)

	w := postFiles(t, handler.Merge, "files", []string{"one.pdf"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	assertNoEntries(t, store)
}

func TestMerge_RejectsNonPDF(t *testing.T) {
	handler, store := newTestHandler(t)

	w := postFiles(t, handler.Merge, "files", []string{"one.pdf", "two.docx"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	assertNoEntries(t, store)
}

func TestMerge_RejectsInvalidDocument(t *testing.T) {
	handler, store := newTestHandler(t)

	// Files carry a .pdf extension but not a parseable PDF body.
	w := postFiles(t, handler.Merge, "files", []string{"one.pdf", "two.pdf"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	assertNoEntries(t, store)
}

func TestMerge_CombinesAllPages(t *testing.T) {
	handler, store := newTestHandler(t)

	w := postDocuments(t, handler.Merge, "files", []string{"one.pdf", "two.pdf"}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	entry := committedOutput(t, store, w)

	count, err := api.PageCountFile(entry.Path)
	if err != nil {
		t.Fatalf("PageCountFile() failed: %v", err)
	}
	if count != 2 {
		t.Errorf("merged page count = %d, want 2 (one page per input)", count)
	}
	if entry.Filename != "merged.pdf" {
		t.Errorf("Filename = %q, want %q", entry.Filename, "merged.pdf")
	}
}

func TestCompress_OutputNeverLarger(t *testing.T) {
	handler, store := newTestHandler(t)

	w := postDocuments(t, handler.Compress, "file", []string{"doc.pdf"}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}
	entry := committedOutput(t, store, w)

	info, err := os.Stat(entry.Path)
	if err != nil {
		t.Fatalf("Stat() failed: %v", err)
	}
	if input := int64(len(minimalPDF(t))); info.Size() > input {
		t.Errorf("compressed size = %d, input size = %d (compression must never grow a file)", info.Size(), input)
	}
	if entry.Filename != "doc_compressed.pdf" {
		t.Errorf("Filename = %q, want %q", entry.Filename, "doc_compressed.pdf")
	}
}

func TestEncrypt_RequiresPassword(t *testing.T) {
	handler, store := newTestHandler(t)

	w := postFiles(t, handler.Encrypt, "file", []string{"doc.pdf"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	assertNoEntries(t, store)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	if body["error"] == nil {
		t.Error("body missing error message")
	}
}

func TestWatermark_RequiresText(t *testing.T) {
	handler, store := newTestHandler(t)

	w := postFiles(t, handler.Watermark, "file", []string{"doc.pdf"}, nil)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	assertNoEntries(t, store)
}

func TestRotate_RejectsInvalidDegrees(t *testing.T) {
	handler, store := newTestHandler(t)

	for _, degrees := range []string{"45", "91", "abc"} {
		w := postFiles(t, handler.Rotate, "file", []string{"doc.pdf"}, map[string]string{"degrees": degrees})
		if w.Code != http.StatusBadRequest {
			t.Errorf("degrees %q: status = %d, want %d", degrees, w.Code, http.StatusBadRequest)
		}
	}
	assertNoEntries(t, store)
}

func TestRotationDegrees(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 90, false},
		{"90", 90, false},
		{"180", 180, false},
		{"-270", -270, false},
		{"45", 0, true},
		{"360", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := rotationDegrees(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("rotationDegrees(%q) succeeded, want error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("rotationDegrees(%q) failed: %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("rotationDegrees(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParsePages(t *testing.T) {
	pages, err := parsePages("1, 3,5-7")
	if err != nil {
		t.Fatalf("parsePages() failed: %v", err)
	}
	want := []string{"1", "3", "5-7"}
	if len(pages) != len(want) {
		t.Fatalf("parsePages() = %v, want %v", pages, want)
	}
	for i := range want {
		if pages[i] != want[i] {
			t.Errorf("pages[%d] = %q, want %q", i, pages[i], want[i])
		}
	}

	if _, err := parsePages("1,x"); err == nil {
		t.Error("parsePages(\"1,x\") succeeded, want error")
	}
}

func TestProducedDoc(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/uploads/doc.pdf", "doc.docx"},
		{"/uploads/doc.PDF", "doc.docx"},
		{"/uploads/report.v2.pdf", "report.v2.docx"},
	}

	for _, tt := range tests {
		want := filepath.Join("/work", tt.want)
		if got := producedDoc("/work", tt.input); got != want {
			t.Errorf("producedDoc(%q) = %q, want %q", tt.input, got, want)
		}
	}
}

func TestRenamed(t *testing.T) {
	tests := []struct {
		filename string
		suffix   string
		ext      string
		want     string
	}{
		{"report.pdf", "_compressed", ".pdf", "report_compressed.pdf"},
		{"report.pdf", "", ".docx", "report.docx"},
		{"noext", "_rotated", ".pdf", "noext_rotated.pdf"},
	}

	for _, tt := range tests {
		if got := renamed(tt.filename, tt.suffix, tt.ext); got != tt.want {
			t.Errorf("renamed(%q, %q, %q) = %q, want %q", tt.filename, tt.suffix, tt.ext, got, tt.want)
		}
	}
}
