package models

// ChunkMetadata identifies where a chunk came from.
type ChunkMetadata struct {
	Source    string `json:"source"`
	ChunkID   int    `json:"chunk_id"`
	ChunkSize int    `json:"chunk_size"`
}

// Chunk is a bounded span of a CV's text. It doubles as the metadata record
// stored next to each vector in the index.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Record is the persisted metadata entry paired positionally with a vector.
type Record = Chunk

// SearchResult is a ranked chunk returned by a similarity search.
type SearchResult struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float32       `json:"score"`
}

// ChatResponse bundles a generated answer with the context it was grounded on.
type ChatResponse struct {
	Answer  string         `json:"answer"`
	Context string         `json:"context"`
	Sources []SearchResult `json:"sources"`
}

// SearchResponse is the payload of a direct retrieval without generation.
type SearchResponse struct {
	Query        string         `json:"query"`
	Context      string         `json:"context"`
	Sources      []SearchResult `json:"sources"`
	TotalResults int            `json:"total_results"`
}

// CVSummary is computed on demand from the index metadata.
type CVSummary struct {
	TotalCVs    int      `json:"total_cvs"`
	CVFiles     []string `json:"cv_files"`
	TotalChunks int      `json:"total_chunks"`
}

// SkippedFile records why a PDF did not make it into the index.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BuildReport summarizes a build pass over the CV folder.
type BuildReport struct {
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Chunks    int           `json:"chunks"`
	Skipped   []SkippedFile `json:"skipped,omitempty"`
	Saved     bool          `json:"saved"`
}
