package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/playbookos/playbook-backend/internal/logger"
	"github.com/playbookos/playbook-backend/internal/utils"
)

type docaiExtractionClient struct {
	log         *logger.Logger
	docClient   *documentai.DocumentProcessorClient
	bucketName  string
	projectID   string
	location    string
	processorID string
}

// NewDocAIExtractionClient builds the Document AI extraction provider. It
// processes the stored GCS object online; URL sources are not supported by
// this provider.
func NewDocAIExtractionClient(log *logger.Logger, bucket BucketService) (ExtractionClient, error) {
	clientLog := log.With("service", "DocAIExtractionClient")
	projectID := os.Getenv("DOCUMENTAI_PROJECT_ID")
	processorID := os.Getenv("DOCUMENTAI_PROCESSOR_ID")
	if projectID == "" || processorID == "" {
		return nil, fmt.Errorf("missing env var DOCUMENTAI_PROJECT_ID or DOCUMENTAI_PROCESSOR_ID")
	}
	location := utils.GetEnv("DOCUMENTAI_LOCATION", "us", clientLog)
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	ctx := context.Background()
	opts := []option.ClientOption{option.WithEndpoint(endpoint)}
	if saPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"); saPath != "" {
		opts = append(opts, option.WithCredentialsFile(saPath))
	}
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	clientLog.Info("Document AI initialized", "endpoint", endpoint)

	return &docaiExtractionClient{
		log:         clientLog,
		docClient:   c,
		bucketName:  bucket.BucketName(),
		projectID:   projectID,
		location:    location,
		processorID: processorID,
	}, nil
}

func (c *docaiExtractionClient) Extract(ctx context.Context, source ExtractionSource) ([]ExtractedBlock, error) {
	if source.StorageKey == "" {
		return nil, fmt.Errorf("docai provider requires a stored file source")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	mimeType := source.MimeType
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s", c.projectID, c.location, c.processorID)
	req := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_GcsDocument{
			GcsDocument: &documentaipb.GcsDocument{
				GcsUri:   fmt.Sprintf("gs://%s/%s", c.bucketName, source.StorageKey),
				MimeType: mimeType,
			},
		},
		FieldMask: &fieldmaskpb.FieldMask{Paths: []string{"text", "pages.pageNumber", "pages.paragraphs"}},
	}

	resp, err := c.docClient.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	if resp == nil || resp.Document == nil {
		return nil, nil
	}
	return docToBlocks(resp.Document), nil
}

func docToBlocks(doc *documentaipb.Document) []ExtractedBlock {
	blocks := []ExtractedBlock{}
	for _, p := range doc.Pages {
		if p == nil {
			continue
		}
		pageNum := int(p.PageNumber)
		for pi, para := range p.Paragraphs {
			if para == nil || para.Layout == nil || para.Layout.TextAnchor == nil {
				continue
			}
			t := strings.TrimSpace(anchorText(doc.Text, para.Layout.TextAnchor))
			if t == "" {
				continue
			}
			var conf *float64
			if para.Layout.Confidence > 0 {
				v := float64(para.Layout.Confidence)
				conf = &v
			}
			blocks = append(blocks, ExtractedBlock{
				Kind:            "paragraph",
				Content:         t,
				ConfidenceScore: conf,
				Metadata: map[string]any{
					"page":            pageNum,
					"paragraph_index": pi,
					"provider":        "gcp_documentai",
				},
			})
		}
	}

	// Some processors populate doc.Text but omit structured paragraphs.
	if len(blocks) == 0 && strings.TrimSpace(doc.Text) != "" {
		blocks = append(blocks, ExtractedBlock{
			Kind:    "paragraph",
			Content: strings.TrimSpace(doc.Text),
			Metadata: map[string]any{
				"provider": "gcp_documentai",
			},
		})
	}
	return blocks
}

func anchorText(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}
