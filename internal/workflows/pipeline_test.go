package workflows

import (
	"context"
	"errors"
	"testing"

	"watchdog/internal/activities"
	"watchdog/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func registerActivityName[T any](env *testsuite.TestWorkflowEnvironment, name string, fn T) {
	env.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
}

func registerDocumentActivities(env *testsuite.TestWorkflowEnvironment) {
	registerActivityName(env, "ExtractTextActivity", func(context.Context, activities.DocumentInput) (activities.ExtractTextOutput, error) {
		return activities.ExtractTextOutput{}, nil
	})
	registerActivityName(env, "ChunkDocumentActivity", func(context.Context, activities.DocumentInput) (activities.ChunkDocumentOutput, error) {
		return activities.ChunkDocumentOutput{}, nil
	})
	registerActivityName(env, "EmbedDocumentChunksActivity", func(context.Context, activities.DocumentInput) (activities.EmbedChunksOutput, error) {
		return activities.EmbedChunksOutput{}, nil
	})
	registerActivityName(env, "ListDocumentChunksActivity", func(context.Context, activities.DocumentInput) (activities.ListChunksOutput, error) {
		return activities.ListChunksOutput{}, nil
	})
	registerActivityName(env, "TriageChunkActivity", func(context.Context, activities.TriageChunkInput) (activities.TriageChunkOutput, error) {
		return activities.TriageChunkOutput{}, nil
	})
	registerActivityName(env, "FinalizeTriageActivity", func(context.Context, activities.FinalizeTriageInput) error { return nil })
	registerActivityName(env, "StartJobActivity", func(context.Context, activities.StartJobInput) (activities.StartJobOutput, error) {
		return activities.StartJobOutput{}, nil
	})
	registerActivityName(env, "FinishJobActivity", func(context.Context, activities.FinishJobInput) error { return nil })
}

func TestDocumentProcessWorkflowSuccess(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentProcessWorkflow)
	env.RegisterWorkflow(DocumentTriageWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, activities.DocumentInput{DocumentID: "doc1"}).
		Return(activities.ExtractTextOutput{Status: models.StatusOCRDone, PageCount: 4, Method: "pdf"}, nil)
	env.OnActivity("ChunkDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.ChunkDocumentOutput{ChunkCount: 2}, nil)
	env.OnActivity("EmbedDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.EmbedChunksOutput{Embedded: 2}, nil)
	env.OnActivity("StartJobActivity", mock.Anything, mock.Anything).
		Return(activities.StartJobOutput{JobID: "job1"}, nil)
	env.OnActivity("ListDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.ListChunksOutput{Chunks: []activities.ChunkRef{
			{ChunkID: "c1", ChunkIndex: 0},
			{ChunkID: "c2", ChunkIndex: 1},
		}}, nil)
	env.OnActivity("TriageChunkActivity", mock.Anything, activities.TriageChunkInput{DocumentID: "doc1", ChunkID: "c1"}).
		Return(activities.TriageChunkOutput{Scored: true, PriorityScore: 0.4}, nil)
	env.OnActivity("TriageChunkActivity", mock.Anything, activities.TriageChunkInput{DocumentID: "doc1", ChunkID: "c2"}).
		Return(activities.TriageChunkOutput{Scored: true, PriorityScore: 0.9}, nil)
	env.OnActivity("FinalizeTriageActivity", mock.Anything, mock.MatchedBy(func(in activities.FinalizeTriageInput) bool {
		return in.DocumentID == "doc1" && in.PriorityScore != nil && *in.PriorityScore == 0.9
	})).Return(nil)
	env.OnActivity("FinishJobActivity", mock.Anything, activities.FinishJobInput{JobID: "job1", Status: "completed"}).Return(nil)

	env.ExecuteWorkflow(DocumentProcessWorkflow, DocumentProcessInput{DocumentID: "doc1", FromStatus: models.StatusDownloaded})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, models.StatusTriaged, out)
}

func TestDocumentProcessWorkflowParksOnExtractionFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentProcessWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("ExtractTextActivity", mock.Anything, mock.Anything).
		Return(activities.ExtractTextOutput{Status: models.StatusOCRFailed}, nil)

	env.ExecuteWorkflow(DocumentProcessWorkflow, DocumentProcessInput{DocumentID: "doc1", FromStatus: models.StatusDownloaded})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, models.StatusOCRFailed, out)
}

func TestDocumentProcessWorkflowResumesFromChunked(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentProcessWorkflow)
	env.RegisterWorkflow(DocumentTriageWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("EmbedDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.EmbedChunksOutput{Embedded: 1}, nil)
	env.OnActivity("StartJobActivity", mock.Anything, mock.Anything).
		Return(activities.StartJobOutput{JobID: "job1"}, nil)
	env.OnActivity("ListDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.ListChunksOutput{Chunks: []activities.ChunkRef{{ChunkID: "c1"}}}, nil)
	env.OnActivity("TriageChunkActivity", mock.Anything, mock.Anything).
		Return(activities.TriageChunkOutput{Scored: true, PriorityScore: 0.2}, nil)
	env.OnActivity("FinalizeTriageActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("FinishJobActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentProcessWorkflow, DocumentProcessInput{DocumentID: "doc1", FromStatus: models.StatusChunked})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	env.AssertNotCalled(t, "ExtractTextActivity", mock.Anything, mock.Anything)
	env.AssertNotCalled(t, "ChunkDocumentActivity", mock.Anything, mock.Anything)
}

func TestDocumentTriageWorkflowUnscoredChunksLeaveNilPriority(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentTriageWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("StartJobActivity", mock.Anything, mock.Anything).
		Return(activities.StartJobOutput{JobID: "job1"}, nil)
	env.OnActivity("ListDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.ListChunksOutput{Chunks: []activities.ChunkRef{{ChunkID: "c1"}, {ChunkID: "c2"}}}, nil)
	env.OnActivity("TriageChunkActivity", mock.Anything, mock.Anything).
		Return(activities.TriageChunkOutput{Scored: false}, nil)
	env.OnActivity("FinalizeTriageActivity", mock.Anything, mock.MatchedBy(func(in activities.FinalizeTriageInput) bool {
		return in.PriorityScore == nil
	})).Return(nil)
	env.OnActivity("FinishJobActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(DocumentTriageWorkflow, DocumentTriageInput{DocumentID: "doc1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, models.StatusTriaged, out)
}

func TestDocumentTriageWorkflowActivityFailureMarksJobFailed(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentTriageWorkflow)
	registerDocumentActivities(env)

	env.OnActivity("StartJobActivity", mock.Anything, mock.Anything).
		Return(activities.StartJobOutput{JobID: "job1"}, nil)
	env.OnActivity("ListDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.ListChunksOutput{Chunks: []activities.ChunkRef{{ChunkID: "c1"}}}, nil)
	env.OnActivity("TriageChunkActivity", mock.Anything, mock.Anything).
		Return(activities.TriageChunkOutput{}, errors.New("completion endpoint unreachable"))
	env.OnActivity("FinishJobActivity", mock.Anything, mock.MatchedBy(func(in activities.FinishJobInput) bool {
		return in.Status == "failed" && in.ErrorMessage != ""
	})).Return(nil)

	env.ExecuteWorkflow(DocumentTriageWorkflow, DocumentTriageInput{DocumentID: "doc1"})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "failed", out)
}

func TestPipelineRunWorkflowContinuesPastFailedDocument(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(PipelineRunWorkflow)
	env.RegisterWorkflow(DocumentProcessWorkflow)
	env.RegisterWorkflow(DocumentTriageWorkflow)
	registerDocumentActivities(env)
	registerActivityName(env, "IngestArchiveActivity", func(context.Context, activities.IngestArchiveInput) (activities.IngestArchiveOutput, error) {
		return activities.IngestArchiveOutput{}, nil
	})
	registerActivityName(env, "ListDocumentsByStatusActivity", func(context.Context, activities.ListByStatusInput) (activities.ListByStatusOutput, error) {
		return activities.ListByStatusOutput{}, nil
	})

	env.OnActivity("StartJobActivity", mock.Anything, mock.Anything).
		Return(activities.StartJobOutput{JobID: "job1"}, nil)
	env.OnActivity("IngestArchiveActivity", mock.Anything, mock.Anything).
		Return(activities.IngestArchiveOutput{DocumentIDs: []string{"doc1", "doc2"}}, nil)
	env.OnActivity("ListDocumentsByStatusActivity", mock.Anything, activities.ListByStatusInput{Status: models.StatusDownloaded}).
		Return(activities.ListByStatusOutput{DocumentIDs: []string{"doc1", "doc2"}}, nil)
	env.OnActivity("ListDocumentsByStatusActivity", mock.Anything, mock.Anything).
		Return(activities.ListByStatusOutput{}, nil)

	// doc1 parks at ocr_failed, doc2 runs through.
	env.OnActivity("ExtractTextActivity", mock.Anything, activities.DocumentInput{DocumentID: "doc1"}).
		Return(activities.ExtractTextOutput{Status: models.StatusOCRFailed}, nil)
	env.OnActivity("ExtractTextActivity", mock.Anything, activities.DocumentInput{DocumentID: "doc2"}).
		Return(activities.ExtractTextOutput{Status: models.StatusOCRDone}, nil)
	env.OnActivity("ChunkDocumentActivity", mock.Anything, mock.Anything).
		Return(activities.ChunkDocumentOutput{ChunkCount: 1}, nil)
	env.OnActivity("EmbedDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.EmbedChunksOutput{Embedded: 1}, nil)
	env.OnActivity("ListDocumentChunksActivity", mock.Anything, mock.Anything).
		Return(activities.ListChunksOutput{Chunks: []activities.ChunkRef{{ChunkID: "c1"}}}, nil)
	env.OnActivity("TriageChunkActivity", mock.Anything, mock.Anything).
		Return(activities.TriageChunkOutput{Scored: true, PriorityScore: 0.3}, nil)
	env.OnActivity("FinalizeTriageActivity", mock.Anything, mock.Anything).Return(nil)
	env.OnActivity("FinishJobActivity", mock.Anything, mock.Anything).Return(nil)

	env.ExecuteWorkflow(PipelineRunWorkflow, PipelineRunInput{MaxConcurrentDocuments: 2})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var out string
	require.NoError(t, env.GetWorkflowResult(&out))
	require.Equal(t, "completed", out)
}
