package processor_test

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/cvchat/pkg/processor"
)

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%02d", i)
	}
	return out
}

func TestProcessor_Chunk(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	text := strings.Repeat("Experienced Python developer with a focus on data pipelines. ", 60)
	chunks := p.Chunk(text, "A.pdf")

	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, "A.pdf", chunk.Metadata.Source)
		assert.Equal(t, i, chunk.Metadata.ChunkID)
		assert.Equal(t, utf8.RuneCountInString(chunk.Content), chunk.Metadata.ChunkSize)
		assert.LessOrEqual(t, chunk.Metadata.ChunkSize, 1000)
		assert.NotEmpty(t, chunk.Content)
	}
}

func TestProcessor_EmptyText(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	assert.Empty(t, p.Chunk("", "A.pdf"))
	assert.Empty(t, p.Chunk("  \n\n \t", "A.pdf"))
}

func TestProcessor_OversizedAtom(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 100, ChunkOverlap: 10})

	atom := strings.Repeat("a", 250)
	chunks := p.SplitText("short intro\n\n" + atom)

	require.Len(t, chunks, 2)
	assert.Equal(t, "short intro", chunks[0])
	assert.Equal(t, atom, chunks[1])
}

func TestProcessor_PrefersParagraphs(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	para1 := strings.Repeat("x", 600)
	para2 := strings.Repeat("y", 600)
	chunks := p.SplitText(para1 + "\n\n" + para2)

	assert.Equal(t, []string{para1, para2}, chunks)
}

func TestProcessor_FallsBackToFinerSeparators(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 40, ChunkOverlap: -1})

	text := "Skills: Go, Python, SQL\nProjects: search engine for resumes\nEducation: computer science"
	chunks := p.SplitText(text)

	assert.Equal(t, []string{
		"Skills: Go, Python, SQL",
		"Projects: search engine for resumes",
		"Education: computer science",
	}, chunks)
}

func TestProcessor_RoundTripWithoutOverlap(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 50, ChunkOverlap: -1})

	text := strings.Join(words(100), " ")
	chunks := p.SplitText(text)

	require.Greater(t, len(chunks), 1)
	assert.Equal(t, text, strings.Join(chunks, " "))
}

func TestProcessor_Overlap(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 50, ChunkOverlap: 10})

	all := words(100)
	chunks := p.SplitText(strings.Join(all, " "))
	require.Greater(t, len(chunks), 1)

	// Pieces are " wNN" (4 chars), so two trailing words fit in a 10 char overlap.
	reconstructed := strings.Fields(chunks[0])
	for i := 1; i < len(chunks); i++ {
		prev := strings.Fields(chunks[i-1])
		cur := strings.Fields(chunks[i])
		require.GreaterOrEqual(t, len(cur), 2)
		assert.Equal(t, prev[len(prev)-2:], cur[:2], "chunk %d should start with the tail of chunk %d", i, i-1)
		reconstructed = append(reconstructed, cur[2:]...)
	}
	assert.Equal(t, all, reconstructed)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 50)
	}
}

func TestProcessor_CountsCodePoints(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 30, ChunkOverlap: 5})

	text := strings.Repeat("kỹ năng lập trình ", 20)
	chunks := p.Chunk(text, "CV_Nguyễn.pdf")

	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk.Content))
		assert.LessOrEqual(t, chunk.Metadata.ChunkSize, 30)
		assert.Equal(t, utf8.RuneCountInString(chunk.Content), chunk.Metadata.ChunkSize)
	}
}

func TestProcessor_NormalizesLineEndings(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 20, ChunkOverlap: -1})

	chunks := p.SplitText("## Education\r\n\r\nHanoi University")

	assert.Equal(t, []string{"## Education", "Hanoi University"}, chunks)
}
