package services

import (
	"testing"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

func docWithParagraphs(text string, spans [][2]int32) *documentaipb.Document {
	paras := make([]*documentaipb.Document_Page_Paragraph, 0, len(spans))
	for _, span := range spans {
		paras = append(paras, &documentaipb.Document_Page_Paragraph{
			Layout: &documentaipb.Document_Page_Layout{
				Confidence: 0.9,
				TextAnchor: &documentaipb.Document_TextAnchor{
					TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{
						{StartIndex: int64(span[0]), EndIndex: int64(span[1])},
					},
				},
			},
		})
	}
	return &documentaipb.Document{
		Text: text,
		Pages: []*documentaipb.Document_Page{
			{PageNumber: 1, Paragraphs: paras},
		},
	}
}

func TestDocToBlocks(t *testing.T) {
	text := "First paragraph.\nSecond paragraph.\n"
	doc := docWithParagraphs(text, [][2]int32{{0, 17}, {17, 35}})

	blocks := docToBlocks(doc)
	if len(blocks) != 2 {
		t.Fatalf("blocks: want 2 got %d", len(blocks))
	}
	if blocks[0].Content != "First paragraph." {
		t.Fatalf("first block: %q", blocks[0].Content)
	}
	if blocks[1].Content != "Second paragraph." {
		t.Fatalf("second block: %q", blocks[1].Content)
	}
	if blocks[0].Kind != "paragraph" {
		t.Fatalf("kind: %q", blocks[0].Kind)
	}
	if blocks[0].ConfidenceScore == nil || *blocks[0].ConfidenceScore <= 0.89 {
		t.Fatalf("confidence: %v", blocks[0].ConfidenceScore)
	}
	if blocks[0].Metadata["page"] != 1 {
		t.Fatalf("metadata: %+v", blocks[0].Metadata)
	}
}

func TestDocToBlocksFallsBackToPrimaryText(t *testing.T) {
	doc := &documentaipb.Document{Text: "Only raw text, no structure."}
	blocks := docToBlocks(doc)
	if len(blocks) != 1 || blocks[0].Content != "Only raw text, no structure." {
		t.Fatalf("fallback blocks: %+v", blocks)
	}
}

func TestDocToBlocksSkipsEmptyAnchors(t *testing.T) {
	// Whitespace-only paragraphs are dropped; the primary-text fallback is
	// also whitespace, so nothing survives.
	doc := docWithParagraphs("   \n", [][2]int32{{0, 4}})
	if blocks := docToBlocks(doc); len(blocks) != 0 {
		t.Fatalf("blocks: %+v", blocks)
	}
}
