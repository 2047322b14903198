package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cmsadmin/internal/config"
	"cmsadmin/internal/models"
	"cmsadmin/internal/observability"
	"cmsadmin/internal/repository"
	"cmsadmin/internal/storage"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// Upload messages returned to clients.
const (
	MsgNoFile          = "Nenhum arquivo enviado"
	MsgUnsupportedType = "Apenas imagens e vídeos são permitidos!"
	MsgFileTooLarge    = "File too large"
	MsgFileNotFound    = "Arquivo não encontrado"
	MsgSessionRequired = "Sessão obrigatória"
)

const (
	DefaultUploadMaxSizeMB = 10
	// UploadURLPrefix is the public path of stored files.
	UploadURLPrefix = "/uploads/"

	maxIDAttempts = 1000
)

var safeExtRegex = regexp.MustCompile(`^\.[A-Za-z0-9]{1,16}$`)

// UploadInput is one received multipart file.
type UploadInput struct {
	UploadedBy  int64
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// MediaService stores uploaded files and records them in the media collection.
type MediaService struct {
	repo               repository.DocumentRepository
	storage            storage.MediaStorage
	maxUploadSizeBytes int64
	now                func() time.Time
	suffix             func() uint32
}

func NewMediaService(repo repository.DocumentRepository, store storage.MediaStorage, cfg *config.Config) *MediaService {
	maxUploadSizeMB := DefaultUploadMaxSizeMB
	if cfg != nil && cfg.UploadMaxSizeMB > 0 {
		maxUploadSizeMB = cfg.UploadMaxSizeMB
	}

	return &MediaService{
		repo:               repo,
		storage:            store,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		now:                time.Now,
		suffix:             func() uint32 { return uuid.New().ID() },
	}
}

// MaxUploadSizeBytes is the largest accepted file.
func (s *MediaService) MaxUploadSizeBytes() int64 {
	return s.maxUploadSizeBytes
}

// Upload validates, stores and records one file.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (models.Record, error) {
	if in.UploadedBy <= 0 {
		observability.Uploads.WithLabelValues("unauthorized").Inc()
		return nil, models.NewUnauthorizedError(MsgSessionRequired)
	}
	if in.Content == nil || in.Filename == "" {
		observability.Uploads.WithLabelValues("missing").Inc()
		return nil, models.NewValidationError(MsgNoFile)
	}

	contentType := normalizeContentType(in.ContentType)
	if !isAllowedMediaType(contentType) {
		observability.Uploads.WithLabelValues("rejected_type").Inc()
		return nil, models.NewValidationError(MsgUnsupportedType)
	}
	if in.Size > s.maxUploadSizeBytes {
		observability.Uploads.WithLabelValues("too_large").Inc()
		return nil, models.NewValidationError(MsgFileTooLarge)
	}

	// The declared size is advisory; the read is capped one byte past the limit.
	content, err := io.ReadAll(io.LimitReader(in.Content, s.maxUploadSizeBytes+1))
	if err != nil {
		return nil, models.NewInternalError(fmt.Errorf("read upload: %w", err))
	}
	if int64(len(content)) > s.maxUploadSizeBytes {
		observability.Uploads.WithLabelValues("too_large").Inc()
		return nil, models.NewValidationError(MsgFileTooLarge)
	}

	now := s.now().UTC()
	millis := now.UnixMilli()
	name := fmt.Sprintf("file-%d-%d%s", millis, s.suffix()%1_000_000_000, safeExtension(in.Filename))

	if err := s.storage.Save(ctx, name, bytes.NewReader(content), int64(len(content)), contentType); err != nil {
		return nil, models.NewInternalError(err)
	}

	rec := models.Record{
		"filename":   in.Filename,
		"url":        UploadURLPrefix + name,
		"type":       contentType,
		"size":       int64(len(content)),
		"uploadedBy": in.UploadedBy,
		"uploadedAt": models.Timestamp(now),
	}
	if strings.HasPrefix(contentType, "image/") {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(content)); err == nil {
			rec["width"] = cfg.Width
			rec["height"] = cfg.Height
		}
	}

	stored, err := s.createWithTimeID(ctx, rec, millis)
	if err != nil {
		_ = s.storage.Remove(ctx, name)
		return nil, translateError(err, models.CollectionMedia, millis)
	}

	observability.Uploads.WithLabelValues("success").Inc()
	observability.UploadBytes.Observe(float64(len(content)))
	return stored, nil
}

// createWithTimeID uses the upload time as id, bumping it while taken.
func (s *MediaService) createWithTimeID(ctx context.Context, rec models.Record, id int64) (models.Record, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := rec.Clone()
		candidate.SetID(id + int64(attempt))
		stored, err := s.repo.Create(ctx, models.CollectionMedia, candidate)
		if errors.Is(err, repository.ErrDuplicateID) {
			continue
		}
		return stored, err
	}
	return nil, fmt.Errorf("no free media id near %d", id)
}

// Open returns a stored file for serving.
func (s *MediaService) Open(ctx context.Context, name string) (io.ReadCloser, int64, string, error) {
	if !storage.ValidObjectName(name) {
		return nil, 0, "", models.NewNotFoundMessage(MsgFileNotFound)
	}
	body, size, contentType, err := s.storage.Open(ctx, name)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, 0, "", models.NewNotFoundMessage(MsgFileNotFound)
	}
	if err != nil {
		return nil, 0, "", models.NewInternalError(err)
	}
	return body, size, contentType, nil
}

// Ping checks the media backend.
func (s *MediaService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func isAllowedMediaType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || strings.HasPrefix(contentType, "video/")
}

// safeExtension keeps the original extension when it is plain alphanumerics.
func safeExtension(filename string) string {
	ext := filepath.Ext(filepath.Base(strings.ReplaceAll(filename, `\`, "/")))
	if !safeExtRegex.MatchString(ext) {
		return ""
	}
	return ext
}
