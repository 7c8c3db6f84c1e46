// Package bulk fans a large submission workload out into independently
// retryable batch tasks. Chunks share nothing but their read-only slice of
// the input; one batch failing, including a remote API failure, never
// blocks or rewinds its siblings. Consistency is "each item eventually
// attempted", not "all items succeed atomically".
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/claimlens/sync-api/internal/client"
	"github.com/claimlens/sync-api/internal/correlation"
	"github.com/claimlens/sync-api/internal/middleware"
	"github.com/claimlens/sync-api/internal/model"
	"github.com/claimlens/sync-api/internal/queue"
	"github.com/claimlens/sync-api/internal/status"
	"github.com/claimlens/sync-api/internal/store"
	"github.com/claimlens/sync-api/internal/txlog"
	"github.com/google/uuid"
)

type ContentStore interface {
	Get(ctx context.Context, id int64) (*model.ContentRecord, error)
	Save(ctx context.Context, record *model.ContentRecord) error
}

type OutcomeStore interface {
	Record(ctx context.Context, outcome *model.BatchOutcome) error
}

type BatchAPI interface {
	SubmitBatch(ctx context.Context, items []client.SubmitRequest) (*client.Response, error)
}

type TaskQueue interface {
	TryEnqueue(task queue.Task) bool
}

type TransactionLogger interface {
	Record(ctx context.Context, entry txlog.Entry)
}

// ProgressSink tracks a bulk operation's cumulative progress so operators
// can poll it while batches run.
type ProgressSink interface {
	Init(ctx context.Context, operationID string, totalChunks int) error
	Enqueued(ctx context.Context, operationID string, chunksEnqueued int) error
	BatchDone(ctx context.Context, operationID string, successCount, errorCount int) error
}

// ErrEmptyInput is returned before any task is enqueued.
var ErrEmptyInput = errors.New("bulk: empty input")

const DefaultBatchSize = 50

type Orchestrator struct {
	contents    ContentStore
	outcomes    OutcomeStore
	api         BatchAPI
	tasks       TaskQueue
	progress    ProgressSink
	txlog       TransactionLogger
	environment string
}

func NewOrchestrator(contents ContentStore, outcomes OutcomeStore, api BatchAPI, tasks TaskQueue, progress ProgressSink, logger TransactionLogger, environment string) *Orchestrator {
	return &Orchestrator{
		contents:    contents,
		outcomes:    outcomes,
		api:         api,
		tasks:       tasks,
		progress:    progress,
		txlog:       logger,
		environment: environment,
	}
}

// Chunk partitions ids into contiguous chunks of at most size, preserving
// order. The last chunk may be smaller.
func Chunk(ids []int64, size int) [][]int64 {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// Start partitions contentIDs and enqueues one batch task per chunk, in
// chunk order. It returns the operation id and the number of chunks.
func (o *Orchestrator) Start(ctx context.Context, contentIDs []int64, batchSize int, channel string) (string, int, error) {
	if len(contentIDs) == 0 {
		return "", 0, ErrEmptyInput
	}

	chunks := Chunk(contentIDs, batchSize)
	operationID := uuid.New().String()
	if err := o.progress.Init(ctx, operationID, len(chunks)); err != nil {
		log.Printf("[Bulk %s] Progress init failed: %v", operationID, err)
	}

	for i, chunk := range chunks {
		idx, ids := i, chunk
		ok := o.tasks.TryEnqueue(func(taskCtx context.Context) error {
			return o.runBatch(taskCtx, operationID, idx, ids, channel)
		})
		if !ok {
			// The chunk still gets its own outcome row so the operation's
			// accounting covers every input item.
			log.Printf("[Bulk %s] Queue full, chunk %d not enqueued", operationID, idx)
			o.recordOutcome(ctx, operationID, idx, 0, len(ids), []string{"task queue full"})
			continue
		}

		enqueued := i + 1
		log.Printf("[Bulk %s] Enqueued chunk %d/%d (%.0f%%)", operationID, enqueued, len(chunks), float64(enqueued)/float64(len(chunks))*100)
		if err := o.progress.Enqueued(ctx, operationID, enqueued); err != nil {
			log.Printf("[Bulk %s] Progress update failed: %v", operationID, err)
		}
	}

	return operationID, len(chunks), nil
}

// runBatch executes one chunk: resolve ids, submit the resolved subset,
// advance statuses, and record the batch's own outcome.
func (o *Orchestrator) runBatch(ctx context.Context, operationID string, chunkIndex int, ids []int64, channel string) error {
	var (
		resolved   []*model.ContentRecord
		errs       []string
		unresolved int
	)
	for _, id := range ids {
		record, err := o.contents.Get(ctx, id)
		if err != nil {
			// Deleted between enqueue and execution; skip and continue.
			log.Printf("[Bulk %s] Chunk %d: content %d did not resolve: %v", operationID, chunkIndex, id, err)
			errs = append(errs, fmt.Sprintf("content %d: not found", id))
			unresolved++
			continue
		}
		resolved = append(resolved, record)
	}

	if len(resolved) == 0 {
		o.recordOutcome(ctx, operationID, chunkIndex, 0, len(errs), errs)
		middleware.RecordBatchTask(false)
		return nil
	}

	items := make([]client.SubmitRequest, 0, len(resolved))
	for _, record := range resolved {
		if next, err := status.Transition(status.Parse(record.Status), status.EventSubmit); err == nil {
			record.Status = string(next)
			if err := o.contents.Save(ctx, record); err != nil {
				log.Printf("[Bulk %s] Chunk %d: saving content %d: %v", operationID, chunkIndex, record.ID, err)
			}
		}
		// An illegal submit edge means a queue retry re-ran this task while
		// the item is already pending; submitting again is harmless.
		items = append(items, client.SubmitRequest{
			CustomID: correlation.Encode(record.EntryID, record.SiteID, record.ID, o.environment),
			Channel:  channel,
			URL:      "",
		})
	}

	resp, callErr := o.api.SubmitBatch(ctx, items)
	remoteOK := callErr == nil && resp.Success()

	event := status.EventAckSuccess
	logEvent := model.EventSubmission
	message := fmt.Sprintf("batch %s chunk %d accepted", operationID, chunkIndex)
	if !remoteOK {
		event = status.EventAckError
		logEvent = model.EventSubmissionError
		if callErr != nil {
			message = fmt.Sprintf("batch %s chunk %d failed: %v", operationID, chunkIndex, callErr)
			errs = append(errs, callErr.Error())
		} else {
			message = fmt.Sprintf("batch %s chunk %d rejected by remote", operationID, chunkIndex)
			errs = append(errs, "remote returned error status")
		}
	}

	for _, record := range resolved {
		if next, err := status.Transition(status.Parse(record.Status), event); err == nil {
			record.Status = string(next)
			if err := o.contents.Save(ctx, record); err != nil {
				log.Printf("[Bulk %s] Chunk %d: saving content %d: %v", operationID, chunkIndex, record.ID, err)
			}
		}
		o.txlog.Record(ctx, txlog.Entry{
			ContentID: record.ID,
			Status:    record.Status,
			Message:   message,
			Event:     logEvent,
		})
	}

	successCount, errorCount := len(resolved), unresolved
	if !remoteOK {
		successCount = 0
		errorCount = unresolved + len(resolved)
	}
	o.recordOutcome(ctx, operationID, chunkIndex, successCount, errorCount, errs)
	middleware.RecordBatchTask(remoteOK)
	return nil
}

func (o *Orchestrator) recordOutcome(ctx context.Context, operationID string, chunkIndex, successCount, errorCount int, errs []string) {
	outcome := &model.BatchOutcome{
		OperationID:  operationID,
		ChunkIndex:   chunkIndex,
		SuccessCount: successCount,
		ErrorCount:   errorCount,
		Errors:       errs,
	}
	if err := o.outcomes.Record(ctx, outcome); err != nil && !errors.Is(err, store.ErrDuplicate) {
		log.Printf("[Bulk %s] Recording outcome for chunk %d failed: %v", operationID, chunkIndex, err)
	}
	if err := o.progress.BatchDone(ctx, operationID, successCount, errorCount); err != nil {
		log.Printf("[Bulk %s] Progress update failed: %v", operationID, err)
	}
}
