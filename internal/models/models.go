package models

import "time"

// Document statuses advance monotonically through the pipeline. OCRFailed is
// terminal for the extraction stage.
const (
	StatusDownloaded = "downloaded"
	StatusOCRDone    = "ocr_done"
	StatusChunked    = "chunked"
	StatusTriaged    = "triaged"
	StatusOCRFailed  = "ocr_failed"
)

type Document struct {
	ID            string     `json:"id"`
	SourceURL     string     `json:"source_url,omitempty"`
	SourceType    string     `json:"source_type"`
	Filename      string     `json:"filename"`
	FilePath      string     `json:"file_path,omitempty"`
	SHA256        string     `json:"sha256"`
	PageCount     *int       `json:"page_count,omitempty"`
	OCRText       string     `json:"-"`
	OCRMethod     string     `json:"ocr_method,omitempty"`
	Status        string     `json:"status"`
	PriorityScore *float64   `json:"priority_score,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	ChunkIndex   int       `json:"chunk_index"`
	Text         string    `json:"text"`
	FilteredText string    `json:"filtered_text,omitempty"`
	TokenCount   int       `json:"token_count"`
	PageStart    *int      `json:"page_start,omitempty"`
	PageEnd      *int      `json:"page_end,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayText prefers the redacted variant when one exists.
func (c Chunk) DisplayText() string {
	if c.FilteredText != "" {
		return c.FilteredText
	}
	return c.Text
}

type Entity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EntityType   string    `json:"entity_type"`
	Description  string    `json:"description,omitempty"`
	MentionCount int       `json:"mention_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type EntityMention struct {
	ID             string `json:"id"`
	EntityID       string `json:"entity_id"`
	ChunkID        string `json:"chunk_id"`
	ContextSnippet string `json:"context_snippet,omitempty"`
}

type EntityRelationship struct {
	ID               string  `json:"id"`
	SourceEntityID   string  `json:"source_entity_id"`
	TargetEntityID   string  `json:"target_entity_id"`
	RelationshipType string  `json:"relationship_type"`
	Description      string  `json:"description,omitempty"`
	Confidence       float64 `json:"confidence"`
}

type Anomaly struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	AnomalyType string    `json:"anomaly_type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"`
	Confidence  float64   `json:"confidence"`
	Evidence    string    `json:"evidence,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ProcessingJob struct {
	ID           string     `json:"id"`
	JobType      string     `json:"job_type"`
	Status       string     `json:"status"`
	DocumentID   string     `json:"document_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Expense struct {
	ID           string    `json:"id"`
	Service      string    `json:"service"`
	Model        string    `json:"model"`
	Operation    string    `json:"operation"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	DocumentID   string    `json:"document_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type SearchResult struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	TokenCount int     `json:"token_count"`
	PageStart  *int    `json:"page_start,omitempty"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
}
