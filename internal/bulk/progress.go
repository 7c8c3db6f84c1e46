package bulk

import (
	"context"
	"errors"
	"sync"
)

// Progress is a point-in-time view of one bulk operation.
type Progress struct {
	TotalChunks    int  `json:"totalChunks"`
	ChunksEnqueued int  `json:"chunksEnqueued"`
	BatchesDone    int  `json:"batchesDone"`
	SuccessCount   int  `json:"successCount"`
	ErrorCount     int  `json:"errorCount"`
	Done           bool `json:"done"`
}

// ErrUnknownOperation is returned when an operation id has no progress.
var ErrUnknownOperation = errors.New("bulk: unknown operation")

// MemoryProgress is the in-process ProgressSink, used in tests and as the
// fallback when redis is unavailable.
type MemoryProgress struct {
	mu  sync.Mutex
	ops map[string]*Progress
}

func NewMemoryProgress() *MemoryProgress {
	return &MemoryProgress{ops: map[string]*Progress{}}
}

func (m *MemoryProgress) Init(_ context.Context, operationID string, totalChunks int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[operationID] = &Progress{TotalChunks: totalChunks}
	return nil
}

func (m *MemoryProgress) Enqueued(_ context.Context, operationID string, chunksEnqueued int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ops[operationID]
	if !ok {
		return ErrUnknownOperation
	}
	p.ChunksEnqueued = chunksEnqueued
	return nil
}

func (m *MemoryProgress) BatchDone(_ context.Context, operationID string, successCount, errorCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ops[operationID]
	if !ok {
		return ErrUnknownOperation
	}
	p.BatchesDone++
	p.SuccessCount += successCount
	p.ErrorCount += errorCount
	p.Done = p.BatchesDone >= p.TotalChunks
	return nil
}

func (m *MemoryProgress) GetProgress(_ context.Context, operationID string) (*Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.ops[operationID]
	if !ok {
		return nil, ErrUnknownOperation
	}
	view := *p
	return &view, nil
}
