package processor

import (
	"strings"
	"unicode/utf8"

	"github.com/xhad/cvchat/internal/models"
)

// DefaultSeparators are tried in order, coarsest first.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

type ProcessorConfig struct {
	// ChunkSize is the maximum chunk length in characters (code points).
	ChunkSize int
	// ChunkOverlap is the number of trailing characters carried into the
	// next chunk. Zero selects the default; a negative value disables overlap.
	ChunkOverlap int
	Separators   []string
}

// Processor splits normalized CV text into overlapping chunks.
type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 100
	} else if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators
	}

	return Processor{
		config: config,
	}
}

// Chunk splits text and tags every span with its source and position.
func (p *Processor) Chunk(text, source string) []models.Chunk {
	spans := p.SplitText(text)
	chunks := make([]models.Chunk, 0, len(spans))
	for i, span := range spans {
		chunks = append(chunks, models.Chunk{
			Content: span,
			Metadata: models.ChunkMetadata{
				Source:    source,
				ChunkID:   i,
				ChunkSize: length(span),
			},
		})
	}
	return chunks
}

// SplitText returns the chunk contents in document order.
func (p *Processor) SplitText(text string) []string {
	text = normalize(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.split(text, p.config.Separators)
}

func (p *Processor) split(text string, separators []string) []string {
	var (
		splits []string
		rest   []string
		found  bool
	)
	for i, sep := range separators {
		if strings.Contains(text, sep) {
			splits = splitKeepingSeparator(text, sep)
			rest = separators[i+1:]
			found = true
			break
		}
	}
	if !found {
		splits = []string{text}
	}

	var chunks, fitting []string
	for _, s := range splits {
		if length(s) <= p.config.ChunkSize {
			fitting = append(fitting, s)
			continue
		}

		if len(fitting) > 0 {
			chunks = append(chunks, p.merge(fitting)...)
			fitting = nil
		}

		// Nothing finer to split on: keep the oversized atom whole.
		if !found || len(rest) == 0 {
			if atom := strings.TrimSpace(s); atom != "" {
				chunks = append(chunks, atom)
			}
			continue
		}
		chunks = append(chunks, p.split(s, rest)...)
	}

	if len(fitting) > 0 {
		chunks = append(chunks, p.merge(fitting)...)
	}

	return chunks
}

// merge packs consecutive splits into chunks no longer than ChunkSize,
// starting each new chunk with up to ChunkOverlap characters of the previous one.
func (p *Processor) merge(splits []string) []string {
	var (
		chunks  []string
		current []string
		total   int
	)

	for _, s := range splits {
		l := length(s)
		if total+l > p.config.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
				chunks = append(chunks, chunk)
			}

			for total > p.config.ChunkOverlap || (total+l > p.config.ChunkSize && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}

		current = append(current, s)
		total += l
	}

	if chunk := strings.TrimSpace(strings.Join(current, "")); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// splitKeepingSeparator splits on sep and re-attaches sep to the start of
// every piece after the first, dropping empty pieces.
func splitKeepingSeparator(text, sep string) []string {
	parts := strings.Split(text, sep)
	splits := make([]string, 0, len(parts))
	for i, part := range parts {
		if i > 0 {
			part = sep + part
		}
		if part != "" {
			splits = append(splits, part)
		}
	}
	return splits
}

func normalize(text string) string {
	text = strings.ToValidUTF8(text, "")
	return strings.ReplaceAll(text, "\r\n", "\n")
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
