package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/playbookos/playbook-backend/internal/apierr"
	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/types"
	"github.com/playbookos/playbook-backend/internal/utils"
)

const defaultMaxFileSize = 10 << 20 // 10 MiB

var extContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// IngestionRequest is a validated, durable description of a source. File
// bytes have already been written to the object store by the time one of
// these exists; the pipeline only carries the storage key.
type IngestionRequest struct {
	SourceType   string
	OriginalName string
	MimeType     string
	SizeBytes    int64
	StorageKey   string
	SourceURL    string
	Title        string
	Description  string
}

// SourceService validates raw caller input and turns it into an
// IngestionRequest, or rejects it without any side effects beyond the
// object-store write for accepted files.
type SourceService interface {
	NormalizeFile(ctx context.Context, name, mimeType string, data []byte, title, description string) (*IngestionRequest, error)
	NormalizeURL(ctx context.Context, rawURL, title, description string) (*IngestionRequest, error)
}

type sourceService struct {
	log         *logger.Logger
	bucket      BucketService
	maxFileSize int64
}

func NewSourceService(log *logger.Logger, bucket BucketService) SourceService {
	serviceLog := log.With("service", "SourceService")
	maxSize := utils.GetEnvAsInt64("MAX_FILE_SIZE", defaultMaxFileSize, serviceLog)
	return &sourceService{
		log:         serviceLog,
		bucket:      bucket,
		maxFileSize: maxSize,
	}
}

func (s *sourceService) NormalizeFile(ctx context.Context, name, mimeType string, data []byte, title, description string) (*IngestionRequest, error) {
	ext := strings.ToLower(filepath.Ext(name))
	defaultType, ok := extContentTypes[ext]
	if !ok {
		return nil, apierr.InvalidSource(fmt.Errorf("unsupported file type %q", ext))
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, apierr.InvalidSource(fmt.Errorf("file exceeds maximum size of %d bytes", s.maxFileSize))
	}
	if len(data) == 0 {
		return nil, apierr.InvalidSource(fmt.Errorf("file is empty"))
	}
	if mimeType == "" {
		mimeType = defaultType
	}
	key := fmt.Sprintf("uploads/%s%s", uuid.New(), ext)
	if err := s.bucket.UploadFile(ctx, key, mimeType, bytes.NewReader(data)); err != nil {
		return nil, apierr.StorageFailed(fmt.Errorf("failed to store source bytes: %w", err))
	}
	s.log.Info("stored file source", "key", key, "size_bytes", len(data))
	return &IngestionRequest{
		SourceType:   types.SourceTypeFile,
		OriginalName: name,
		MimeType:     mimeType,
		SizeBytes:    int64(len(data)),
		StorageKey:   key,
		Title:        title,
		Description:  description,
	}, nil
}

func (s *sourceService) NormalizeURL(ctx context.Context, rawURL, title, description string) (*IngestionRequest, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, apierr.InvalidSource(fmt.Errorf("url is required"))
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, apierr.InvalidSource(fmt.Errorf("malformed url: %w", err))
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apierr.InvalidSource(fmt.Errorf("url must be absolute http or https"))
	}
	return &IngestionRequest{
		SourceType:  types.SourceTypeURL,
		SourceURL:   parsed.String(),
		MimeType:    "text/html",
		Title:       title,
		Description: description,
	}, nil
}
