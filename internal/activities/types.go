package activities

type IngestArchiveInput struct {
	ArchiveDir string `json:"archive_dir"`
	Limit      int    `json:"limit"`
}

type IngestArchiveOutput struct {
	DocumentIDs []string `json:"document_ids"`
	Skipped     int      `json:"skipped"`
}

type DocumentInput struct {
	DocumentID string `json:"document_id"`
}

type ExtractTextOutput struct {
	Status    string `json:"status"`
	PageCount int    `json:"page_count"`
	Method    string `json:"method"`
}

type ChunkDocumentOutput struct {
	ChunkCount int  `json:"chunk_count"`
	Skipped    bool `json:"skipped"`
}

type EmbedChunksOutput struct {
	Embedded int `json:"embedded"`
}

type ChunkRef struct {
	ChunkID    string `json:"chunk_id"`
	ChunkIndex int    `json:"chunk_index"`
}

type ListChunksOutput struct {
	Chunks []ChunkRef `json:"chunks"`
}

type TriageChunkInput struct {
	DocumentID string `json:"document_id"`
	ChunkID    string `json:"chunk_id"`
}

type TriageChunkOutput struct {
	Scored        bool    `json:"scored"`
	PriorityScore float64 `json:"priority_score"`
	Entities      int     `json:"entities"`
	Relationships int     `json:"relationships"`
	Anomalies     int     `json:"anomalies"`
}

type FinalizeTriageInput struct {
	DocumentID    string   `json:"document_id"`
	PriorityScore *float64 `json:"priority_score,omitempty"`
}

type StartJobInput struct {
	JobType    string `json:"job_type"`
	DocumentID string `json:"document_id,omitempty"`
}

type StartJobOutput struct {
	JobID string `json:"job_id"`
}

type FinishJobInput struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type ListByStatusInput struct {
	Status string `json:"status"`
	Limit  int    `json:"limit"`
}

type ListByStatusOutput struct {
	DocumentIDs []string `json:"document_ids"`
}
