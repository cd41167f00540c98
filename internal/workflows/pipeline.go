package workflows

import (
	"strings"
	"time"

	"watchdog/internal/activities"
	"watchdog/internal/models"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetProgress       = "GetProgress"
	QueryGetDocumentStatus = "GetDocumentStatus"
	QueryGetTriageProgress = "GetTriageProgress"
)

// PipelineRunWorkflow ingests the archive directory and drives every pending
// document through extraction, chunking, embedding, and triage via child
// workflows, a bounded number at a time.
func PipelineRunWorkflow(ctx workflow.Context, input PipelineRunInput) (string, error) {
	progress := PipelineProgress{
		PerDocument:   map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (PipelineProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var job activities.StartJobOutput
	if err := workflow.ExecuteActivity(ctx, "StartJobActivity", activities.StartJobInput{JobType: "pipeline_run"}).Get(ctx, &job); err != nil {
		return "", err
	}

	var ingested activities.IngestArchiveOutput
	if err := workflow.ExecuteActivity(ctx, "IngestArchiveActivity", activities.IngestArchiveInput{
		ArchiveDir: input.ArchiveDir,
		Limit:      input.Limit,
	}).Get(ctx, &ingested); err != nil {
		_ = workflow.ExecuteActivity(ctx, "FinishJobActivity", activities.FinishJobInput{
			JobID: job.JobID, Status: "failed", ErrorMessage: err.Error(),
		}).Get(ctx, nil)
		return "", err
	}
	progress.Ingested = len(ingested.DocumentIDs)
	progress.Skipped = ingested.Skipped

	// Documents stalled at an intermediate status from an earlier run are
	// picked up again and resumed from where they stopped.
	type pendingDoc struct {
		documentID string
		fromStatus string
	}
	pending := make([]pendingDoc, 0, len(ingested.DocumentIDs))
	seen := map[string]bool{}
	for _, status := range []string{models.StatusDownloaded, models.StatusOCRDone, models.StatusChunked} {
		var listed activities.ListByStatusOutput
		if err := workflow.ExecuteActivity(ctx, "ListDocumentsByStatusActivity", activities.ListByStatusInput{
			Status: status,
			Limit:  input.Limit,
		}).Get(ctx, &listed); err != nil {
			return "", err
		}
		for _, id := range listed.DocumentIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			pending = append(pending, pendingDoc{documentID: id, fromStatus: status})
		}
	}
	progress.Total = len(pending)

	maxChildren := input.MaxConcurrentDocuments
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(pending); i += maxChildren {
		end := i + maxChildren
		if end > len(pending) {
			end = len(pending)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		batchIDs := make([]string, 0, end-i)
		for _, doc := range pending[i:end] {
			progress.PerDocument[doc.documentID] = "processing"
			workflowID := "document-" + sanitizeID(doc.documentID)
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			f := workflow.ExecuteChildWorkflow(childCtx, DocumentProcessWorkflow, DocumentProcessInput{
				DocumentID:  doc.documentID,
				FromStatus:  doc.fromStatus,
				PauseMillis: input.PauseMillis,
			})
			futures = append(futures, f)
			batchIDs = append(batchIDs, doc.documentID)
			progress.ChildWorkflow[doc.documentID] = workflowID
		}

		for idx, f := range futures {
			var childStatus string
			err := f.Get(ctx, &childStatus)
			id := batchIDs[idx]
			if err != nil {
				progress.Failed++
				progress.PerDocument[id] = "failed"
				continue
			}
			if childStatus == "failed" || childStatus == models.StatusOCRFailed {
				progress.Failed++
			}
			progress.Done++
			progress.PerDocument[id] = childStatus
		}
	}

	if err := workflow.ExecuteActivity(ctx, "FinishJobActivity", activities.FinishJobInput{
		JobID:  job.JobID,
		Status: "completed",
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	return "completed", nil
}

// DocumentProcessWorkflow advances one document through the pipeline,
// starting from whatever status it last reached. A document that yields no
// extractable text parks at ocr_failed and is not an error.
func DocumentProcessWorkflow(ctx workflow.Context, input DocumentProcessInput) (string, error) {
	status := DocumentStatus{
		DocumentID:  input.DocumentID,
		CurrentStep: "init",
		Status:      "processing",
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetDocumentStatus, func() (DocumentStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	docInput := activities.DocumentInput{DocumentID: input.DocumentID}

	if input.FromStatus == "" || input.FromStatus == models.StatusDownloaded {
		status.CurrentStep = "extract_text"
		status.Steps[status.CurrentStep] = "processing"
		var extractOut activities.ExtractTextOutput
		if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", docInput).Get(ctx, &extractOut); err != nil {
			return "", err
		}
		if extractOut.Status == models.StatusOCRFailed {
			status.Status = models.StatusOCRFailed
			status.Steps[status.CurrentStep] = "failed"
			return status.Status, nil
		}
		status.Steps[status.CurrentStep] = "done"
	}

	if input.FromStatus != models.StatusChunked {
		status.CurrentStep = "chunk_document"
		status.Steps[status.CurrentStep] = "processing"
		if err := workflow.ExecuteActivity(ctx, "ChunkDocumentActivity", docInput).Get(ctx, nil); err != nil {
			return "", err
		}
		status.Steps[status.CurrentStep] = "done"
	}

	status.CurrentStep = "embed_chunks"
	status.Steps[status.CurrentStep] = "processing"
	if err := workflow.ExecuteActivity(ctx, "EmbedDocumentChunksActivity", docInput).Get(ctx, nil); err != nil {
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "triage"
	status.Steps[status.CurrentStep] = "processing"
	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: "triage-" + sanitizeID(input.DocumentID),
	})
	var triageStatus string
	if err := workflow.ExecuteChildWorkflow(childCtx, DocumentTriageWorkflow, DocumentTriageInput{
		DocumentID:  input.DocumentID,
		PauseMillis: input.PauseMillis,
	}).Get(ctx, &triageStatus); err != nil {
		return "", err
	}
	if triageStatus == "failed" {
		status.Status = "failed"
		status.Steps[status.CurrentStep] = "failed"
		return status.Status, nil
	}
	status.Steps[status.CurrentStep] = "done"
	status.CurrentStep = "done"
	status.Status = models.StatusTriaged
	return status.Status, nil
}

// DocumentTriageWorkflow runs the extraction prompt over each chunk in
// order, pausing between calls, and stamps the document with the highest
// chunk score. An activity that exhausts its retries marks the triage job
// failed instead of failing the run.
func DocumentTriageWorkflow(ctx workflow.Context, input DocumentTriageInput) (string, error) {
	progress := TriageProgress{DocumentID: input.DocumentID}
	if err := workflow.SetQueryHandler(ctx, QueryGetTriageProgress, func() (TriageProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var job activities.StartJobOutput
	if err := workflow.ExecuteActivity(ctx, "StartJobActivity", activities.StartJobInput{
		JobType:    "triage",
		DocumentID: input.DocumentID,
	}).Get(ctx, &job); err != nil {
		return "", err
	}

	var chunks activities.ListChunksOutput
	if err := workflow.ExecuteActivity(ctx, "ListDocumentChunksActivity", activities.DocumentInput{DocumentID: input.DocumentID}).Get(ctx, &chunks); err != nil {
		_ = workflow.ExecuteActivity(ctx, "FinishJobActivity", activities.FinishJobInput{
			JobID: job.JobID, Status: "failed", ErrorMessage: err.Error(),
		}).Get(ctx, nil)
		return "failed", nil
	}
	progress.TotalChunks = len(chunks.Chunks)

	pause := time.Duration(input.PauseMillis) * time.Millisecond
	if input.PauseMillis <= 0 {
		pause = 500 * time.Millisecond
	}

	var maxScore *float64
	for i, chunk := range chunks.Chunks {
		var out activities.TriageChunkOutput
		err := workflow.ExecuteActivity(ctx, "TriageChunkActivity", activities.TriageChunkInput{
			DocumentID: input.DocumentID,
			ChunkID:    chunk.ChunkID,
		}).Get(ctx, &out)
		if err != nil {
			_ = workflow.ExecuteActivity(ctx, "FinishJobActivity", activities.FinishJobInput{
				JobID: job.JobID, Status: "failed", ErrorMessage: err.Error(),
			}).Get(ctx, nil)
			return "failed", nil
		}
		progress.DoneChunks++
		if !out.Scored {
			progress.Unscored++
		} else if maxScore == nil || out.PriorityScore > *maxScore {
			score := out.PriorityScore
			maxScore = &score
			progress.MaxPriority = score
		}
		if i < len(chunks.Chunks)-1 {
			if err := workflow.Sleep(ctx, pause); err != nil {
				return "", err
			}
		}
	}

	if err := workflow.ExecuteActivity(ctx, "FinalizeTriageActivity", activities.FinalizeTriageInput{
		DocumentID:    input.DocumentID,
		PriorityScore: maxScore,
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	if err := workflow.ExecuteActivity(ctx, "FinishJobActivity", activities.FinishJobInput{
		JobID:  job.JobID,
		Status: "completed",
	}).Get(ctx, nil); err != nil {
		return "", err
	}
	return models.StatusTriaged, nil
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
