package services

import (
	"context"
	"fmt"

	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/utils"
)

// ExtractionSource describes a normalized source for the extraction
// collaborator. File sources carry the durable storage key; URL sources
// carry the URL itself.
type ExtractionSource struct {
	SourceType   string
	StorageKey   string
	SourceURL    string
	MimeType     string
	OriginalName string
}

// ExtractedBlock is one unit of extracted content. ConfidenceScore is nil
// when the provider did not report one; the orchestrator applies the
// default.
type ExtractedBlock struct {
	Kind               string
	Content            string
	ConfidenceScore    *float64
	SuggestedAssetType string
	Metadata           map[string]any
}

// ExtractionClient performs a single extraction attempt against the
// analysis provider. A call either returns the complete ordered block list
// or an error, never a partial result, and never retries internally.
type ExtractionClient interface {
	Extract(ctx context.Context, source ExtractionSource) ([]ExtractedBlock, error)
}

// NewExtractionClient selects the extraction provider from
// EXTRACTOR_PROVIDER. "http" talks to a JSON-over-HTTP extraction service,
// "docai" drives Google Document AI over the stored GCS object.
func NewExtractionClient(log *logger.Logger, bucket BucketService) (ExtractionClient, error) {
	provider := utils.GetEnv("EXTRACTOR_PROVIDER", "http", log)
	switch provider {
	case "http":
		return NewHTTPExtractionClient(log)
	case "docai":
		return NewDocAIExtractionClient(log, bucket)
	default:
		return nil, fmt.Errorf("unknown EXTRACTOR_PROVIDER %q (want http or docai)", provider)
	}
}
