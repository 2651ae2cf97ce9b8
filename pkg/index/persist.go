package index

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	"github.com/xhad/cvchat/internal/models"
)

const (
	// Index file header:
	//   0..7   magic "CVIDXIP1"
	//   8..15  dim (uint64)
	//   16..23 count (uint64)
	// followed by count*dim little-endian float32 values.
	HeaderSize = 24
)

var fileMagic = [8]byte{'C', 'V', 'I', 'D', 'X', 'I', 'P', '1'}

// Save writes the index and its metadata. Each file is written to a
// temporary sibling and renamed into place; the vector count in the index
// header lets Load detect a crash between the two renames.
func (ix *FlatIndex) Save(indexPath, metadataPath string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	records := ix.records
	if records == nil {
		records = []models.Record{}
	}

	indexTmp, err := writeTemp(indexPath, func(w io.Writer) error {
		return ix.encodeVectors(w)
	})
	if err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	metaTmp, err := writeTemp(metadataPath, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	})
	if err != nil {
		os.Remove(indexTmp)
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := os.Rename(indexTmp, indexPath); err != nil {
		os.Remove(indexTmp)
		os.Remove(metaTmp)
		return fmt.Errorf("failed to replace index: %w", err)
	}
	if err := os.Rename(metaTmp, metadataPath); err != nil {
		os.Remove(metaTmp)
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}

// Load replaces the in-memory state with the persisted one. It returns false
// without touching state when either file is missing, and an error when the
// files are unreadable or inconsistent.
func (ix *FlatIndex) Load(indexPath, metadataPath string) (bool, error) {
	for _, p := range []string{indexPath, metadataPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	}

	data, err := os.ReadFile(indexPath)
	if err != nil {
		return false, fmt.Errorf("failed to read index: %w", err)
	}
	dim, vectors, err := decodeVectors(data)
	if err != nil {
		return false, err
	}
	if dim != ix.dim {
		return false, fmt.Errorf("%w: file dim=%d, index dim=%d", ErrDimensionMismatch, dim, ix.dim)
	}

	raw, err := os.ReadFile(metadataPath)
	if err != nil {
		return false, fmt.Errorf("failed to read metadata: %w", err)
	}
	var records []models.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return false, fmt.Errorf("%w: metadata: %v", ErrCorrupt, err)
	}

	if len(vectors) != len(records)*dim {
		return false, fmt.Errorf("%w: index holds %d vectors, metadata holds %d records",
			ErrCorrupt, len(vectors)/dim, len(records))
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = vectors
	ix.records = records
	return true, nil
}

func (ix *FlatIndex) encodeVectors(w io.Writer) error {
	header := make([]byte, HeaderSize)
	copy(header[:8], fileMagic[:])
	binary.LittleEndian.PutUint64(header[8:16], uint64(ix.dim))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(ix.records)))
	if _, err := w.Write(header); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, v := range ix.vectors {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func decodeVectors(data []byte) (int, []float32, error) {
	if len(data) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: index file too small for header: %d < %d", ErrCorrupt, len(data), HeaderSize)
	}
	if !bytes.Equal(data[:8], fileMagic[:]) {
		return 0, nil, fmt.Errorf("%w: magic mismatch", ErrCorrupt)
	}

	dim := binary.LittleEndian.Uint64(data[8:16])
	count := binary.LittleEndian.Uint64(data[16:24])
	if dim == 0 || dim > math.MaxInt32 {
		return 0, nil, fmt.Errorf("%w: dim=%d", ErrCorrupt, dim)
	}

	body := data[HeaderSize:]
	floats := uint64(len(body)) / 4
	if len(body)%4 != 0 || floats%dim != 0 || floats/dim != count {
		return 0, nil, fmt.Errorf("%w: header declares %d vectors of dim %d, body has %d bytes",
			ErrCorrupt, count, dim, len(body))
	}

	vectors := make([]float32, len(body)/4)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return int(dim), vectors, nil
}

// writeTemp writes a sibling temp file of path and returns its name.
func writeTemp(path string, write func(io.Writer) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}

	w := bufio.NewWriter(f)
	err = write(w)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
