package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/karaoke/internal/pipeline"
)

// Runner executes one karaoke job. pipeline.Run in production.
type Runner func(ctx context.Context, cfg pipeline.Config) (pipeline.Result, error)

type Options struct {
	Addr      string
	UploadDir string
	MaxUpload int64
	// Base is copied for every job; input, title, artists and job id are filled per request.
	Base   pipeline.Config
	Run    Runner
	Logger *slog.Logger
}

type Server struct {
	opts   Options
	logger *slog.Logger
	http   *http.Server
}

type uploadResponse struct {
	Message      string `json:"message"`
	OutputVideo  string `json:"outputVideo"`
	OutputASS    string `json:"outputASS"`
	OutputFolder string `json:"outputFolder"`
	JobID        string `json:"jobId"`
}

func New(opts Options) *Server {
	if opts.Run == nil {
		opts.Run = pipeline.Run
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 1 << 30
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{opts: opts, logger: logger.With("component", "http")}

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/healthz", s.handleHealth)
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.http.Handler }

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.logger.Info("server listening", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jobID := uuid.NewString()
	log := s.logger.With("job", jobID)

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	title := strings.TrimSpace(r.FormValue("title"))
	artists := strings.TrimSpace(r.FormValue("artists"))
	if title == "" || artists == "" {
		s.writeError(w, http.StatusBadRequest, "Missing title or artists parameter.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	path, err := s.saveUpload(jobID, header.Filename, file)
	if err != nil {
		log.Error("store upload", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Info("received upload", "file", path, "title", title, "artists", artists)

	cfg := s.opts.Base
	cfg.InputMP4 = path
	cfg.Title = title
	cfg.Artists = artists
	cfg.JobID = jobID
	cfg.Logger = log
	if err := cfg.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.opts.Run(r.Context(), cfg)
	if err != nil {
		log.Error("processing failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, uploadResponse{
		Message:      "Processing complete",
		OutputVideo:  res.Video,
		OutputASS:    res.ASS,
		OutputFolder: res.OutDir,
		JobID:        jobID,
	})
}

// saveUpload stores the body as <uploadDir>/<jobID>-<base name>. Only the
// base of the client file name is kept.
func (s *Server) saveUpload(jobID, name string, src io.Reader) (string, error) {
	if err := os.MkdirAll(s.opts.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if base == "/" || base == "." {
		base = "upload.mp4"
	}
	dst := filepath.Join(s.opts.UploadDir, jobID+"-"+base)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	if abs, err := filepath.Abs(dst); err == nil {
		dst = abs
	}
	return dst, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
