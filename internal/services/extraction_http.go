package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/utils"
)

type httpExtractionClient struct {
	log     *logger.Logger
	client  *http.Client
	baseURL string
	apiKey  string
}

type extractRequestPayload struct {
	SourceType   string `json:"source_type"`
	StorageKey   string `json:"storage_key,omitempty"`
	SourceURL    string `json:"source_url,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	OriginalName string `json:"original_name,omitempty"`
}

type extractResponsePayload struct {
	Blocks []struct {
		Kind               string         `json:"kind"`
		Content            string         `json:"content"`
		ConfidenceScore    *float64       `json:"confidence_score"`
		SuggestedAssetType string         `json:"suggested_asset_type"`
		Metadata           map[string]any `json:"metadata"`
	} `json:"blocks"`
}

// NewHTTPExtractionClient builds the default extraction provider: a
// JSON-over-HTTP analysis service addressed by EXTRACTOR_BASE_URL, with an
// optional bearer EXTRACTOR_API_KEY. The whole call is bounded by
// EXTRACTOR_TIMEOUT_SECONDS.
func NewHTTPExtractionClient(log *logger.Logger) (ExtractionClient, error) {
	clientLog := log.With("service", "HTTPExtractionClient")
	baseURL := strings.TrimRight(os.Getenv("EXTRACTOR_BASE_URL"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing env var EXTRACTOR_BASE_URL")
	}
	timeoutSecs := utils.GetEnvAsInt("EXTRACTOR_TIMEOUT_SECONDS", 180, clientLog)
	return &httpExtractionClient{
		log:     clientLog,
		client:  &http.Client{Timeout: time.Duration(timeoutSecs) * time.Second},
		baseURL: baseURL,
		apiKey:  os.Getenv("EXTRACTOR_API_KEY"),
	}, nil
}

func (c *httpExtractionClient) Extract(ctx context.Context, source ExtractionSource) ([]ExtractedBlock, error) {
	payload := extractRequestPayload{
		SourceType:   source.SourceType,
		StorageKey:   source.StorageKey,
		SourceURL:    source.SourceURL,
		MimeType:     source.MimeType,
		OriginalName: source.OriginalName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed extractResponsePayload
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	blocks := make([]ExtractedBlock, 0, len(parsed.Blocks))
	for _, b := range parsed.Blocks {
		blocks = append(blocks, ExtractedBlock{
			Kind:               b.Kind,
			Content:            b.Content,
			ConfidenceScore:    b.ConfidenceScore,
			SuggestedAssetType: b.SuggestedAssetType,
			Metadata:           b.Metadata,
		})
	}
	c.log.Info("extraction completed", "blocks", len(blocks))
	return blocks, nil
}
