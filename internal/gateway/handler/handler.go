package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"reposummarizer/internal/pipeline"
	"reposummarizer/internal/types"
)

const maxBodyBytes = 1 << 20

// Summarizer is the service behind the HTTP surface.
type Summarizer interface {
	Summarize(ctx context.Context, repoURL string) (types.SummaryResult, error)
}

// Handler serves the health, summarize and progress-stream endpoints.
type Handler struct {
	svc Summarizer
	log *log.Logger
}

func New(svc Summarizer, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{svc: svc, log: logger}
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Status: "error", Message: msg})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	repoURL, msg := decodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	h.log.Printf("summarize request: %s", repoURL)
	res, err := h.svc.Summarize(r.Context(), repoURL)
	if err != nil {
		kind := pipeline.KindOf(err)
		h.log.Printf("summarize %s: %s: %v", repoURL, kind, err)
		writeError(w, kind.HTTPStatus(), pipeline.MessageOf(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decodeRequest returns the github_url of a summarize body, or a
// validation message when the body is unusable.
func decodeRequest(body io.Reader) (string, string) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "request body too large"
		}
		return "", "github_url: field required"
	}
	raw, ok := fields["github_url"]
	if !ok || string(raw) == "null" {
		return "", "github_url: field required"
	}
	var repoURL string
	if err := json.Unmarshal(raw, &repoURL); err != nil {
		return "", "github_url: must be a string"
	}
	return strings.TrimSpace(repoURL), ""
}
