package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/abdhe/studyhub-assist/pkg/config"
	"github.com/abdhe/studyhub-assist/pkg/pdftext"
	"github.com/abdhe/studyhub-assist/pkg/server"
)

// User-facing error messages.
const (
	msgConfig      = "API configuration error. Please check your Hugging Face API settings."
	msgSummary     = "Could not generate AI summary. Please try again later."
	msgExplain     = "Could not generate AI explanation. Please try again later."
	msgNoPDF       = "No PDF attached."
	msgPDFNoText   = "Could not extract text from PDF. The file might be empty or protected."
	msgPDFCorrupt  = "Could not extract text from PDF. The file might be corrupted or password protected."
	msgInvalidBody = "invalid request body"
)

const (
	maxRequestBytes = 4 << 20
	maxUploadBytes  = 32 << 20
	pdfFormField    = "file"
)

// SummaryRequest is the body of POST /v1/summaries.
type SummaryRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length,omitempty"`
	MinLength int    `json:"min_length,omitempty"`
}

// SummaryResponse is returned by POST /v1/summaries.
type SummaryResponse struct {
	RequestID string `json:"request_id"`
	Summary   string `json:"summary"`
	Cached    bool   `json:"cached"`
}

// ExplanationRequest is the body of POST /v1/explanations.
type ExplanationRequest struct {
	Text string `json:"text"`
}

// ExplanationResponse is returned by POST /v1/explanations.
type ExplanationResponse struct {
	RequestID        string   `json:"request_id"`
	Explanation      string   `json:"explanation"`
	KeyTerms         []string `json:"key_terms"`
	RelatedQuestions []string `json:"related_questions"`
}

// ConnectionResponse is returned by GET /v1/connection.
type ConnectionResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type handler struct {
	svc    *server.Service
	logger server.Logger
}

// summarize takes a JSON body with text, or a multipart form whose "file"
// field is a PDF.
func (h *handler) summarize(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		h.summarizePDF(w, r)
		return
	}

	var req SummaryRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.svc.Summarize(r.Context(), req.Text, req.MaxLength, req.MinLength)
	h.writeSummary(w, res, err)
}

func (h *handler) summarizePDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxRequestBytes); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	maxLength, err1 := formInt(r, "max_length")
	minLength, err2 := formInt(r, "min_length")
	if err := errors.Join(err1, err2); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	var document []byte
	file, _, err := r.FormFile(pdfFormField)
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// SummarizePDF reports ErrNoPDF
	case err != nil:
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	default:
		document, err = io.ReadAll(file)
		file.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, msgInvalidBody)
			return
		}
	}

	res, err := h.svc.SummarizePDF(r.Context(), document, maxLength, minLength)
	h.writeSummary(w, res, err)
}

func (h *handler) writeSummary(w http.ResponseWriter, res server.SummaryResult, err error) {
	if err != nil {
		h.logger.Printf("[httpapi] %s summary: %v", res.RequestID, err)
		status, msg := errorStatus(err, msgSummary)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		RequestID: res.RequestID,
		Summary:   res.Summary,
		Cached:    res.Cached,
	})
}

func (h *handler) explain(w http.ResponseWriter, r *http.Request) {
	var req ExplanationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	res, err := h.svc.Explain(r.Context(), req.Text)
	if err != nil {
		status, msg := errorStatus(err, msgExplain)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, ExplanationResponse{
		RequestID:        res.RequestID,
		Explanation:      res.Text,
		KeyTerms:         nonNil(res.KeyTerms),
		RelatedQuestions: nonNil(res.RelatedQuestions),
	})
}

func (h *handler) checkConnection(w http.ResponseWriter, r *http.Request) {
	ok, msg := h.svc.CheckConnection(r.Context())
	writeJSON(w, http.StatusOK, ConnectionResponse{OK: ok, Message: msg})
}

// errorStatus maps a service error to an HTTP status and a user-facing message.
func errorStatus(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, server.ErrNoText):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, server.ErrNoPDF):
		return http.StatusBadRequest, msgNoPDF
	case errors.Is(err, pdftext.ErrNoText):
		return http.StatusBadRequest, msgPDFNoText
	case errors.Is(err, pdftext.ErrUnreadable):
		return http.StatusUnprocessableEntity, msgPDFCorrupt
	case errors.Is(err, config.ErrMissing):
		return http.StatusServiceUnavailable, msgConfig
	default:
		return http.StatusInternalServerError, fallback
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// formInt reads an optional integer form value; absent means 0.
func formInt(r *http.Request, key string) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		http.Error(w, `{"error":"failed to encode error response"}`, http.StatusInternalServerError)
	}
}
