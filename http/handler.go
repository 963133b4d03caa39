package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evteevakb/filestorage"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Authenticate(ctx context.Context, username, password string) (filestorage.Token, error)
	CheckToken(ctx context.Context, token string) (string, error)
}

type FileService interface {
	Upload(ctx context.Context, username, filepath, filename string, content io.Reader) (filestorage.FileRecord, error)
	List(ctx context.Context, username string) ([]filestorage.FileRecord, error)
	Download(ctx context.Context, username string, sel filestorage.Selector) (filestorage.FileRecord, io.ReadCloser, error)
}

type HealthService interface {
	Ping(ctx context.Context) (filestorage.PingResult, error)
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	CORS CORSConfig
	// MaxUploadSize caps the request body of an upload in bytes. Zero means no limit.
	MaxUploadSize int64
	// RequestTimeout is the deadline put on the context of every request
	// except uploads and downloads. Zero disables it.
	RequestTimeout time.Duration
	// Registry receives the HTTP metrics and backs /metrics. A fresh
	// registry is created when nil.
	Registry *prometheus.Registry
}

// Handler provides the HTTP API for users, files and health checks.
type Handler struct {
	config   HandlerConfig
	auth     AuthService
	files    FileService
	health   HealthService
	validate *validator.Validate
	metrics  *Metrics
}

// NewHandler creates a new Handler with the given configuration and services.
func NewHandler(config *HandlerConfig, auth AuthService, files FileService, health HealthService) *Handler {
	cfg := *config
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	return &Handler{
		config:   cfg,
		auth:     auth,
		files:    files,
		health:   health,
		validate: validator.New(),
		metrics:  NewMetrics(cfg.Registry),
	}
}

// Router returns an http.Handler with all routes mounted.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(h.metrics.Middleware)
	r.Use(middleware.Recoverer)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(writeNotFound)
	r.MethodNotAllowed(writeMethodNotAllowed)

	r.Handle("/metrics", promhttp.HandlerFor(h.config.Registry, promhttp.HandlerOpts{}))

	// Uploads and downloads are not bounded by RequestTimeout.
	withDeadline := func(next http.Handler) http.Handler { return next }
	if h.config.RequestTimeout > 0 {
		withDeadline = middleware.Timeout(h.config.RequestTimeout)
	}

	r.With(withDeadline).Post("/user/register", h.handleRegister)
	r.With(withDeadline).Post("/user/auth", h.handleAuth)
	r.With(withDeadline).Get("/service/ping", h.handlePing)

	r.Route("/file_storage/files", func(r chi.Router) {
		r.Use(AuthMiddleware(h.auth))
		r.With(withDeadline).Get("/", h.handleList)
		r.Post("/upload", h.handleUpload)
		r.Get("/download", h.handleDownload)
	})

	return r
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=16"`
	Password string `json:"password" validate:"required,max=72"`
}

func (h *Handler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "invalid_input", "Request body must be a JSON object with username and password")
		return credentialsRequest{}, false
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "invalid_input", validationMessage(err))
		return credentialsRequest{}, false
	}

	return req, true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid input"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field %s is required", fe.Field())
	case "max":
		return fmt.Sprintf("Field %s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field %s is invalid", fe.Field())
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	if err := h.auth.Register(r.Context(), req.Username, req.Password); err != nil {
		HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, token)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromContext(r.Context())

	records, err := h.files.List(r.Context(), username)
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, records)
}

// handleUpload streams the multipart "file" part straight into the file
// service without buffering the form.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromContext(r.Context())

	if h.config.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadSize)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "invalid_input", "Request must be multipart/form-data")
		return
	}

	for {
		part, partErr := mr.NextPart()
		if errors.Is(partErr, io.EOF) {
			WriteError(w, http.StatusUnprocessableEntity, "invalid_input", "Form field file is required")
			return
		}
		if partErr != nil {
			HandleError(w, fmt.Errorf("upload: read form: %w: %w", filestorage.ErrInvalidInput, partErr))
			return
		}

		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		record, uploadErr := h.files.Upload(r.Context(), username, r.URL.Query().Get("filepath"), part.FileName(), part)
		_ = part.Close()
		if uploadErr != nil {
			HandleError(w, uploadErr)
			return
		}

		_ = WriteJSON(w, http.StatusCreated, record)
		return
	}
}

func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFromContext(r.Context())
	query := r.URL.Query()

	sel := filestorage.Selector{Filepath: query.Get("filepath")}
	if rawID := query.Get("file_id"); rawID != "" && sel.Filepath == "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			WriteError(w, http.StatusUnprocessableEntity, "invalid_input", "file_id must be a positive integer")
			return
		}
		sel.ID = id
	}

	record, content, err := h.files.Download(r.Context(), username, sel)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = content.Close() }()

	base := path.Base(record.Filepath)

	contentType := mime.TypeByExtension(path.Ext(base))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		slog.Warn("download interrupted", "filepath", record.Filepath, "error", err)
	}
}

func (h *Handler) handlePing(w http.ResponseWriter, r *http.Request) {
	result, err := h.health.Ping(r.Context())
	if err != nil {
		HandleError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, result)
}
