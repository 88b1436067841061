package domain

import (
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Modality is the origin medium of indexed content. Image and audio documents
// are indexed as text extracted by OCR / transcription collaborators and stay
// searchable through the same scoring path as plain documents.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
)

// ModalityFromMIME maps an upload content type onto the indexing modality.
// Unknown types default to text; the extractor rejects binaries later.
func ModalityFromMIME(mimeType string) Modality {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return ModalityImage
	case strings.HasPrefix(mt, "audio/"):
		return ModalityAudio
	default:
		return ModalityText
	}
}

type Document struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Modality    Modality       `json:"modality"`
	Language    string         `json:"language,omitempty"`
	UploadedBy  string         `json:"uploaded_by,omitempty"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// DocumentChunk is one indexed segment of a document, the unit of semantic
// search. Score components are filled by the retrieval path: SemanticScore
// from vector similarity, KeywordScore from lexical matching, Score from the
// weighted hybrid combination.
type DocumentChunk struct {
	ID            string   `json:"id"`
	DocumentID    string   `json:"document_id"`
	Filename      string   `json:"filename"`
	ChunkIndex    int      `json:"chunk_index"`
	Text          string   `json:"text"`
	Modality      Modality `json:"modality"`
	Language      string   `json:"language,omitempty"`
	SemanticScore float64  `json:"semantic_score,omitempty"`
	KeywordScore  float64  `json:"keyword_score,omitempty"`
	Score         float64  `json:"score"`
}

// SearchFilter narrows chunk retrieval. Empty fields match everything.
type SearchFilter struct {
	Modalities []Modality
	Language   string
	DocumentID string
}

// MatchesModality reports whether m passes the filter.
func (f SearchFilter) MatchesModality(m Modality) bool {
	if len(f.Modalities) == 0 {
		return true
	}
	for _, allowed := range f.Modalities {
		if allowed == m {
			return true
		}
	}
	return false
}
