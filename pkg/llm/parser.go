package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

var ErrNotPDF = errors.New("file is not a PDF document")

var pdfMagic = []byte("%PDF-")

// PDFParser asks a multimodal model to transcribe a CV PDF into markdown.
type PDFParser struct {
	llm    llms.Model
	prompt string
}

func NewParser(model llms.Model) *PDFParser {
	return &PDFParser{llm: model, prompt: ParserPrompt}
}

// Parse returns the markdown transcription of the PDF at path.
func (p *PDFParser) Parse(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return "", fmt.Errorf("%s: %w", path, ErrNotPDF)
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("application/pdf", data),
				llms.TextContent{Text: p.prompt},
			},
		},
	}

	response, err := p.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", fmt.Errorf("parse error: no response from model")
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}
