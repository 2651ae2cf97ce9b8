package chatbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xhad/cvchat/internal/models"
	"github.com/xhad/cvchat/pkg/index"
	"github.com/xhad/cvchat/pkg/llm"
)

// ProgressFunc is called before each PDF of a build is processed.
type ProgressFunc func(done, total int, name string)

// Build indexes every PDF in the CV folder into a fresh index, persists it
// and swaps it in. Files that fail are skipped and reported. The live index
// is untouched unless the whole build succeeds.
func (s *Service) Build(ctx context.Context, progress ProgressFunc) (models.BuildReport, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var report models.BuildReport

	files, err := ListPDFs(s.opts.CVFolder)
	if err != nil {
		return report, err
	}
	report.Total = len(files)
	if len(files) == 0 {
		return report, fmt.Errorf("%s: %w", s.opts.CVFolder, ErrNoPDFs)
	}

	fresh, err := index.New(s.opts.Dimension)
	if err != nil {
		return report, err
	}

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if progress != nil {
			progress(i, len(files), name)
		}

		s.logger.Info("processing CV", "file", name)
		chunks, err := s.process(ctx, filepath.Join(s.opts.CVFolder, name), name, fresh)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			s.logger.Warn("skipping CV", "file", name, "err", err)
			report.Skipped = append(report.Skipped, models.SkippedFile{Name: name, Reason: err.Error()})
			continue
		}
		report.Processed++
		report.Chunks += chunks
	}
	if progress != nil {
		progress(len(files), len(files), "")
	}

	if report.Processed == 0 {
		return report, ErrNothingProcessed
	}

	if err := fresh.Save(s.opts.IndexPath, s.opts.MetadataPath); err != nil {
		return report, fmt.Errorf("failed to save index: %w", err)
	}
	report.Saved = true
	s.swap(fresh)
	s.logger.Info("index built", "processed", report.Processed, "total", report.Total, "chunks", report.Chunks)

	s.syncMirror(ctx, fresh)
	return report, nil
}

// process runs parse, chunk, embed and add for one PDF and returns the
// number of chunks added to ix.
func (s *Service) process(ctx context.Context, path, name string, ix *index.FlatIndex) (int, error) {
	text, err := s.deps.Parser.Parse(ctx, path)
	if err != nil {
		if errors.Is(err, llm.ErrNotPDF) {
			return 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
		}
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, ErrNoContent
	}

	chunks := s.deps.Chunker.Chunk(text, name)
	if len(chunks) == 0 {
		return 0, ErrNoContent
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embs, err := s.deps.Embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if n := llm.FallbackCount(embs); n > 0 {
		s.logger.Warn("chunks indexed with zero vectors", "file", name, "count", n)
	}

	if err := ix.Add(llm.Vectors(embs), chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// IngestFile stores an uploaded PDF in the CV folder and appends its chunks
// to a copy of the live index, which replaces it once saved. The stored file
// is removed again when it yields no text.
func (s *Service) IngestFile(ctx context.Context, filename string, r io.Reader) (int, error) {
	name, err := cleanName(filename)
	if err != nil {
		return 0, err
	}
	if !isPDF(name) {
		return 0, ErrNotPDF
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := os.MkdirAll(s.opts.CVFolder, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create CV folder: %w", err)
	}
	path := filepath.Join(s.opts.CVFolder, name)
	if err := writeFile(path, r); err != nil {
		return 0, err
	}

	ix := s.current().Clone()
	chunks, err := s.process(ctx, path, name, ix)
	if err != nil {
		if errors.Is(err, ErrNoContent) || errors.Is(err, ErrNotPDF) {
			_ = os.Remove(path)
		}
		return 0, err
	}

	if err := ix.Save(s.opts.IndexPath, s.opts.MetadataPath); err != nil {
		return 0, fmt.Errorf("failed to save index: %w", err)
	}
	s.swap(ix)
	s.logger.Info("CV ingested", "file", name, "chunks", chunks)

	s.syncMirror(ctx, ix)
	return chunks, nil
}

// DeleteCV removes a PDF from the CV folder. The index keeps its chunks
// until the next build.
func (s *Service) DeleteCV(filename string) error {
	name, err := cleanName(filename)
	if err != nil {
		return err
	}
	path := filepath.Join(s.opts.CVFolder, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrCVNotFound
		}
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	s.logger.Info("CV deleted", "file", name)
	return nil
}

// ListPDFs returns the sorted names of the .pdf files in folder, matching the
// extension case-insensitively.
func ListPDFs(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read CV folder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && isPDF(e.Name()) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// cleanName keeps only the final path element so uploads and deletes cannot
// escape the CV folder.
func cleanName(filename string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(filename, "\\", "/")))
	if name == "/" || name == "." || name == ".." || name == "" {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	return name, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
