package activities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"watchdog/internal/chunker"
	"watchdog/internal/config"
	"watchdog/internal/cost"
	"watchdog/internal/extract"
	"watchdog/internal/models"
	"watchdog/internal/providers"
	"watchdog/internal/storage"
	"watchdog/internal/tokenizer"
	"watchdog/internal/triage"
	"watchdog/internal/util"
	"watchdog/internal/vector"

	"go.temporal.io/sdk/activity"
)

var ingestExtensions = map[string]bool{
	".pdf":  true,
	".txt":  true,
	".md":   true,
	".text": true,
	".log":  true,
}

type Activities struct {
	cfg         config.Config
	docRepo     *storage.DocumentRepo
	chunkRepo   *storage.ChunkRepo
	entityRepo  *storage.EntityRepo
	anomalyRepo *storage.AnomalyRepo
	expenseRepo *storage.ExpenseRepo
	jobRepo     *storage.JobRepo
	providers   *providers.Manager
	chunker     *chunker.Chunker
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	count, err := tokenizer.New()
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:         cfg,
		docRepo:     storage.NewDocumentRepo(db),
		chunkRepo:   storage.NewChunkRepo(db),
		entityRepo:  storage.NewEntityRepo(db),
		anomalyRepo: storage.NewAnomalyRepo(db),
		expenseRepo: storage.NewExpenseRepo(db),
		jobRepo:     storage.NewJobRepo(db),
		providers:   pm,
		chunker:     chunker.New(count),
	}, nil
}

// IngestArchiveActivity registers every supported file in the archive
// directory, skipping content already ingested by sha256.
func (a *Activities) IngestArchiveActivity(ctx context.Context, in IngestArchiveInput) (IngestArchiveOutput, error) {
	dir := in.ArchiveDir
	if dir == "" {
		dir = a.cfg.ArchiveDir
	}
	limit := in.Limit
	if limit <= 0 {
		limit = a.cfg.IngestLimit
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestArchiveOutput{}, fmt.Errorf("%w: %s", util.ErrArchiveDirMissing, dir)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ingestExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	logger := activity.GetLogger(ctx)
	out := IngestArchiveOutput{}
	for _, path := range paths {
		if len(out.DocumentIDs) >= limit {
			break
		}
		sha, err := util.SHA256File(path)
		if err != nil {
			return IngestArchiveOutput{}, fmt.Errorf("hash %s: %w", path, err)
		}
		exists, err := a.docRepo.ExistsBySHA256(ctx, sha)
		if err != nil {
			return IngestArchiveOutput{}, err
		}
		if exists {
			logger.Debug("skipping duplicate file", "path", path)
			out.Skipped++
			continue
		}
		id, err := a.docRepo.Insert(ctx, models.Document{
			SourceType: "archive",
			Filename:   filepath.Base(path),
			FilePath:   path,
			SHA256:     sha,
			Status:     models.StatusDownloaded,
		})
		if err != nil {
			return IngestArchiveOutput{}, err
		}
		out.DocumentIDs = append(out.DocumentIDs, id)
	}
	return out, nil
}

// ExtractTextActivity pulls text out of the stored file. Extraction failure
// is a terminal document state, not an activity error.
func (a *Activities) ExtractTextActivity(ctx context.Context, in DocumentInput) (ExtractTextOutput, error) {
	doc, err := a.docRepo.Get(ctx, in.DocumentID)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	res, err := extract.File(doc.FilePath)
	if err != nil {
		activity.GetLogger(ctx).Warn("text extraction failed",
			"document_id", in.DocumentID, "error", err)
		if serr := a.docRepo.SetStatus(ctx, in.DocumentID, models.StatusOCRFailed); serr != nil {
			return ExtractTextOutput{}, serr
		}
		return ExtractTextOutput{Status: models.StatusOCRFailed}, nil
	}
	if err := a.docRepo.SetExtracted(ctx, in.DocumentID, res.Text, res.Method, res.PageCount); err != nil {
		return ExtractTextOutput{}, err
	}
	return ExtractTextOutput{Status: models.StatusOCRDone, PageCount: res.PageCount, Method: res.Method}, nil
}

// ChunkDocumentActivity splits extracted text into token-bounded chunks.
// A document that already has chunks is left untouched.
func (a *Activities) ChunkDocumentActivity(ctx context.Context, in DocumentInput) (ChunkDocumentOutput, error) {
	has, err := a.chunkRepo.HasChunks(ctx, in.DocumentID)
	if err != nil {
		return ChunkDocumentOutput{}, err
	}
	if has {
		if err := a.docRepo.SetStatus(ctx, in.DocumentID, models.StatusChunked); err != nil {
			return ChunkDocumentOutput{}, err
		}
		return ChunkDocumentOutput{Skipped: true}, nil
	}

	doc, err := a.docRepo.Get(ctx, in.DocumentID)
	if err != nil {
		return ChunkDocumentOutput{}, err
	}
	text, err := a.docRepo.GetText(ctx, in.DocumentID)
	if err != nil {
		return ChunkDocumentOutput{}, err
	}

	chunks := a.chunker.Chunk(text, a.cfg.ChunkMaxTokens, a.cfg.ChunkOverlapTokens)
	if len(chunks) == 0 {
		return ChunkDocumentOutput{}, fmt.Errorf("document %s produced no chunks", in.DocumentID)
	}

	pageCount := 0
	if doc.PageCount != nil {
		pageCount = *doc.PageCount
	}
	normText := strings.Join(chunker.SplitParagraphs(text), "\n\n")

	records := make([]storage.ChunkRecord, 0, len(chunks))
	cursor := 0
	for idx, c := range chunks {
		rec := storage.ChunkRecord{
			DocumentID: in.DocumentID,
			ChunkIndex: idx,
			Text:       c.Text,
			TokenCount: c.TokenCount,
		}
		if pageCount > 0 {
			var start, end int
			start, end, cursor = chunkOffsets(normText, cursor, c.Text)
			ps := chunker.EstimatePage(start, len(normText), pageCount)
			pe := chunker.EstimatePage(end, len(normText), pageCount)
			rec.PageStart = &ps
			rec.PageEnd = &pe
		}
		records = append(records, rec)
	}
	if err := a.chunkRepo.InsertChunks(ctx, records); err != nil {
		return ChunkDocumentOutput{}, err
	}
	if err := a.docRepo.SetStatus(ctx, in.DocumentID, models.StatusChunked); err != nil {
		return ChunkDocumentOutput{}, err
	}
	return ChunkDocumentOutput{ChunkCount: len(records)}, nil
}

// chunkOffsets locates a chunk's span inside the normalized document text by
// searching for its tail from the running cursor. Consecutive chunks share an
// overlap prefix, so only the tail is unique.
func chunkOffsets(normText string, cursor int, chunkText string) (start, end, next int) {
	tail := chunkText
	if len(tail) > 80 {
		tail = tail[len(tail)-80:]
	}
	pos := -1
	if cursor < len(normText) {
		if idx := strings.Index(normText[cursor:], tail); idx >= 0 {
			pos = cursor + idx
		}
	}
	if pos < 0 {
		pos = strings.Index(normText, tail)
	}
	if pos < 0 {
		// Whitespace was rewritten during sentence splitting; fall back to
		// advancing the cursor by the chunk length.
		start = cursor
		end = min(cursor+len(chunkText), len(normText))
		return start, end, end
	}
	end = pos + len(tail)
	start = end - len(chunkText)
	if start < 0 {
		start = 0
	}
	return start, end, end
}

// EmbedDocumentChunksActivity embeds every chunk that is still missing a
// vector, in batches.
func (a *Activities) EmbedDocumentChunksActivity(ctx context.Context, in DocumentInput) (EmbedChunksOutput, error) {
	out := EmbedChunksOutput{}
	for {
		chunks, err := a.chunkRepo.ListMissingEmbeddings(ctx, in.DocumentID, a.cfg.EmbedBatchSize)
		if err != nil {
			return EmbedChunksOutput{}, err
		}
		if len(chunks) == 0 {
			return out, nil
		}
		inputs := make([]string, 0, len(chunks))
		ids := make([]string, 0, len(chunks))
		for _, c := range chunks {
			inputs = append(inputs, c.DisplayText())
			ids = append(ids, c.ID)
		}
		vectors, _, err := a.providers.Embedder().Embed(ctx, providers.EmbedRequest{
			Operation: "embed_chunks",
			Inputs:    inputs,
			Dimension: a.cfg.EmbedDim,
		})
		if err != nil {
			return EmbedChunksOutput{}, err
		}
		literals := make([]string, 0, len(vectors))
		for _, v := range vectors {
			literals = append(literals, vector.ToLiteral(v))
		}
		if err := a.chunkRepo.SetEmbeddings(ctx, ids, literals); err != nil {
			return EmbedChunksOutput{}, err
		}
		out.Embedded += len(ids)
	}
}

func (a *Activities) ListDocumentChunksActivity(ctx context.Context, in DocumentInput) (ListChunksOutput, error) {
	chunks, err := a.chunkRepo.ListByDocument(ctx, in.DocumentID)
	if err != nil {
		return ListChunksOutput{}, err
	}
	out := ListChunksOutput{Chunks: make([]ChunkRef, 0, len(chunks))}
	for _, c := range chunks {
		out.Chunks = append(out.Chunks, ChunkRef{ChunkID: c.ID, ChunkIndex: c.ChunkIndex})
	}
	return out, nil
}

// TriageChunkActivity sends one chunk through the extraction prompt and
// persists whatever the model found. A response the parser cannot read
// leaves the chunk unscored; only transport failures are activity errors.
func (a *Activities) TriageChunkActivity(ctx context.Context, in TriageChunkInput) (TriageChunkOutput, error) {
	chunk, err := a.chunkRepo.Get(ctx, in.ChunkID)
	if err != nil {
		return TriageChunkOutput{}, err
	}
	prompt := triage.BuildPrompt(chunk.DisplayText(), a.cfg.TriagePromptCharLimit)
	resp, info, err := a.providers.LLM().Complete(ctx, providers.CompleteRequest{
		Operation: "triage",
		Prompt:    prompt,
		MaxTokens: a.cfg.TriageMaxOutputTokens,
	})
	if err != nil {
		return TriageChunkOutput{}, fmt.Errorf("triage completion: %w", err)
	}

	if err := a.expenseRepo.Insert(ctx, models.Expense{
		Service:      info.Name,
		Model:        info.Model,
		Operation:    "triage",
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostUSD:      cost.Calculate(info.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
		DocumentID:   in.DocumentID,
	}); err != nil {
		return TriageChunkOutput{}, err
	}

	result, err := triage.ParseResponse(resp.Text)
	if err != nil {
		activity.GetLogger(ctx).Warn("unparseable triage response",
			"chunk_id", in.ChunkID, "error", err)
		return TriageChunkOutput{Scored: false}, nil
	}

	out := TriageChunkOutput{Scored: result.Scored, PriorityScore: result.PriorityScore}

	entityIDs := make(map[string]string, len(result.Entities))
	for _, item := range result.Entities {
		entity, err := a.entityRepo.GetOrCreate(ctx, item.Name, item.Type, "")
		if err != nil {
			return TriageChunkOutput{}, err
		}
		entityIDs[triage.NormalizeName(item.Name)] = entity.ID
		if err := a.entityRepo.InsertMention(ctx, entity.ID, in.ChunkID, item.Context); err != nil {
			return TriageChunkOutput{}, err
		}
		out.Entities++
	}

	for _, item := range result.Relationships {
		sourceID, err := a.resolveEndpoint(ctx, entityIDs, item.Source)
		if err != nil {
			return TriageChunkOutput{}, err
		}
		targetID, err := a.resolveEndpoint(ctx, entityIDs, item.Target)
		if err != nil {
			return TriageChunkOutput{}, err
		}
		if sourceID == "" || targetID == "" || sourceID == targetID {
			continue
		}
		if err := a.entityRepo.InsertRelationship(ctx, sourceID, targetID, item.Type, item.Description, item.Confidence); err != nil {
			return TriageChunkOutput{}, err
		}
		out.Relationships++
	}

	for _, item := range result.Anomalies {
		if err := a.anomalyRepo.Insert(ctx, models.Anomaly{
			DocumentID:  in.DocumentID,
			AnomalyType: item.Type,
			Description: item.Description,
			Severity:    item.Severity,
			Confidence:  item.Confidence,
			Evidence:    item.Evidence,
		}); err != nil {
			return TriageChunkOutput{}, err
		}
		out.Anomalies++
	}
	return out, nil
}

// resolveEndpoint maps a relationship endpoint to an entity id, creating the
// entity with an unknown type when the chunk never listed it.
func (a *Activities) resolveEndpoint(ctx context.Context, known map[string]string, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	if id, ok := known[triage.NormalizeName(name)]; ok {
		return id, nil
	}
	entity, err := a.entityRepo.GetOrCreate(ctx, name, "unknown", "")
	if err != nil {
		return "", err
	}
	known[triage.NormalizeName(name)] = entity.ID
	return entity.ID, nil
}

func (a *Activities) FinalizeTriageActivity(ctx context.Context, in FinalizeTriageInput) error {
	return a.docRepo.SetTriaged(ctx, in.DocumentID, in.PriorityScore)
}

func (a *Activities) StartJobActivity(ctx context.Context, in StartJobInput) (StartJobOutput, error) {
	id, err := a.jobRepo.Start(ctx, in.JobType, in.DocumentID)
	if err != nil {
		return StartJobOutput{}, err
	}
	return StartJobOutput{JobID: id}, nil
}

func (a *Activities) FinishJobActivity(ctx context.Context, in FinishJobInput) error {
	return a.jobRepo.Finish(ctx, in.JobID, in.Status, in.ErrorMessage)
}

func (a *Activities) ListDocumentsByStatusActivity(ctx context.Context, in ListByStatusInput) (ListByStatusOutput, error) {
	docs, err := a.docRepo.ListByStatus(ctx, in.Status, in.Limit)
	if err != nil {
		return ListByStatusOutput{}, err
	}
	out := ListByStatusOutput{DocumentIDs: make([]string, 0, len(docs))}
	for _, d := range docs {
		out.DocumentIDs = append(out.DocumentIDs, d.ID)
	}
	return out, nil
}
