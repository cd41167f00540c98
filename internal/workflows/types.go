package workflows

type PipelineRunInput struct {
	ArchiveDir             string `json:"archive_dir,omitempty"`
	Limit                  int    `json:"limit,omitempty"`
	MaxConcurrentDocuments int    `json:"max_concurrent_documents,omitempty"`
	PauseMillis            int    `json:"pause_millis,omitempty"`
}

type PipelineProgress struct {
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	Ingested      int               `json:"ingested"`
	Skipped       int               `json:"skipped"`
	PerDocument   map[string]string `json:"per_document"`
	ChildWorkflow map[string]string `json:"child_workflow"`
}

type DocumentProcessInput struct {
	DocumentID  string `json:"document_id"`
	FromStatus  string `json:"from_status"`
	PauseMillis int    `json:"pause_millis,omitempty"`
}

type DocumentStatus struct {
	DocumentID  string            `json:"document_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	Steps       map[string]string `json:"steps"`
}

type DocumentTriageInput struct {
	DocumentID  string `json:"document_id"`
	PauseMillis int    `json:"pause_millis,omitempty"`
}

type TriageProgress struct {
	DocumentID  string  `json:"document_id"`
	TotalChunks int     `json:"total_chunks"`
	DoneChunks  int     `json:"done_chunks"`
	Unscored    int     `json:"unscored"`
	MaxPriority float64 `json:"max_priority"`
}
