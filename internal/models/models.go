package models

// Chunk is one overlapping word window cut from a document's text.
type Chunk struct {
	Source string
	Index  int
	Text   string
}

// VectorRecord is the unit persisted to the vector index. A nil Values
// slice marks a chunk whose embedding failed; writers drop such records.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]string
}

// QueryMatch is a transient similarity-search hit.
type QueryMatch struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// DocumentStatus reports the outcome of ingesting a single file.
type DocumentStatus struct {
	File    string
	Patient string
	Chunks  int
	Indexed int
	Err     error
}

type PromptResponse struct {
	Query   string
	Source  string
	Content string
}
