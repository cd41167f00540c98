package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(PipelineRunWorkflow)
	w.RegisterWorkflow(DocumentProcessWorkflow)
	w.RegisterWorkflow(DocumentTriageWorkflow)
}
