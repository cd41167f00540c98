package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.IngestArchiveActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.ChunkDocumentActivity)
	w.RegisterActivity(a.EmbedDocumentChunksActivity)
	w.RegisterActivity(a.ListDocumentChunksActivity)
	w.RegisterActivity(a.TriageChunkActivity)
	w.RegisterActivity(a.FinalizeTriageActivity)
	w.RegisterActivity(a.StartJobActivity)
	w.RegisterActivity(a.FinishJobActivity)
	w.RegisterActivity(a.ListDocumentsByStatusActivity)
}
