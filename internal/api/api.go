package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/service"
)

// maxBodyBytes bounds request bodies; file reviews carry full contents.
const maxBodyBytes = 10 << 20

// Reviewer runs reviews on behalf of the API.
type Reviewer interface {
	ReviewPR(ctx context.Context, owner, repo string, number int) (*review.Result, error)
	ReviewContents(ctx context.Context, title string, files []models.FileData) (*review.Result, error)
}

// Server provides the REST API handlers.
type Server struct {
	reviewer Reviewer
	logger   *slog.Logger
	version  string
}

// NewServer creates a new API server.
func NewServer(r Reviewer, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{reviewer: r, logger: logger, version: version}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Post("/api/v1/reviews", s.reviewPR)
	r.Post("/api/v1/reviews/files", s.reviewFiles)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

// PRRequest asks for a pull request review.
type PRRequest struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Number int    `json:"number"`
}

func (s *Server) reviewPR(w http.ResponseWriter, r *http.Request) {
	var req PRRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Owner, req.Repo = strings.TrimSpace(req.Owner), strings.TrimSpace(req.Repo)
	if req.Owner == "" || req.Repo == "" || req.Number <= 0 {
		writeError(w, http.StatusBadRequest, "owner, repo and a positive number are required")
		return
	}

	res, err := s.reviewer.ReviewPR(r.Context(), req.Owner, req.Repo, req.Number)
	s.respond(w, res, err)
}

// FileInput is one file submitted for review.
type FileInput struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// FilesRequest asks for a review of submitted file contents.
type FilesRequest struct {
	Title string      `json:"title,omitempty"`
	Files []FileInput `json:"files"`
}

func (s *Server) reviewFiles(w http.ResponseWriter, r *http.Request) {
	var req FilesRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one file is required")
		return
	}
	files := make([]models.FileData, 0, len(req.Files))
	for _, f := range req.Files {
		if strings.TrimSpace(f.Filename) == "" {
			writeError(w, http.StatusBadRequest, "every file needs a filename")
			return
		}
		files = append(files, models.FileData{Filename: f.Filename, Content: f.Content})
	}

	res, err := s.reviewer.ReviewContents(r.Context(), req.Title, files)
	s.respond(w, res, err)
}

// respond writes the outcome. Runs that ended in error handling are
// reported as 422 with the outcome still in the body.
func (s *Server) respond(w http.ResponseWriter, res *review.Result, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNoGitHub) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("review failed to start", "error", err)
		writeError(w, status, err.Error())
		return
	}
	out := service.NewOutcome(res)
	status := http.StatusOK
	if out.Error != "" {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}
