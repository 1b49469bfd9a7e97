package analysis

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/medibook/medibook-platform/internal/observability/metrics"
	"github.com/medibook/medibook-platform/pkg/logging"
)

// maxReportBytes bounds the multipart parse; Gemini rejects oversized
// payloads anyway, this just fails earlier.
const maxReportBytes = 20 << 20

// Handler exposes the report analysis endpoint.
type Handler struct {
	summarizer Summarizer
	metrics    *metrics.Metrics
	logger     *logging.Logger
}

// NewHandler creates an analysis handler.
func NewHandler(summarizer Summarizer, m *metrics.Metrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		summarizer: summarizer,
		metrics:    m,
		logger:     logger,
	}
}

// Analyze handles POST /analytics: one multipart "file" part in, a
// markdown summary out.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxReportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No report file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unable to read report file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	start := time.Now()
	summary, err := h.summarizer.Summarize(r.Context(), mimeType, data)
	if err != nil {
		h.metrics.SummarizerObserved("error", time.Since(start).Seconds())
		h.logger.Error("report analysis failed", "error", err, "filename", header.Filename)
		writeError(w, http.StatusInternalServerError, "Failed to analyze report")
		return
	}
	h.metrics.SummarizerObserved("ok", time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
