// Package ingest bulk-loads corpus entries into a vector database in
// batches, with a bounded worker pool and per-batch retry.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ragchat-backend/retrieval"

	"go.uber.org/zap"
)

// Uploader pushes a batch of corpus entries into a database.
type Uploader interface {
	UploadFiles(ctx context.Context, dbName string, entries []retrieval.CorpusEntry) error
}

// Loader splits a corpus across workers and uploads it batch by batch.
type Loader struct {
	uploader    Uploader
	batchSize   int
	workers     int
	maxRetries  int
	retryDelay  time.Duration
	settleDelay time.Duration
	logger      *zap.Logger
}

// LoaderOption is a functional option for Loader.
type LoaderOption func(*Loader)

// WithBatchSize sets how many entries go into one upload call.
func WithBatchSize(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.batchSize = n
		}
	}
}

// WithWorkers caps how many batches upload concurrently.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithMaxRetries sets how many times a failed batch is retried.
func WithMaxRetries(n int) LoaderOption {
	return func(l *Loader) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithRetryDelay sets the base delay between retries of a failed batch.
func WithRetryDelay(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.retryDelay = d
	}
}

// WithSettleDelay sets the pause after the last batch, giving the vector
// service time to finish indexing before the corpus is queried.
func WithSettleDelay(d time.Duration) LoaderOption {
	return func(l *Loader) {
		l.settleDelay = d
	}
}

// NewLoader creates a Loader with sensible defaults.
func NewLoader(uploader Uploader, logger *zap.Logger, opts ...LoaderOption) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		uploader:    uploader,
		batchSize:   20,
		workers:     4,
		maxRetries:  2,
		retryDelay:  2 * time.Second,
		settleDelay: 2 * time.Second,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Result summarizes one ingestion run.
type Result struct {
	Total    int
	Uploaded int
	Failed   int
}

// Load uploads all entries into dbName. Batches are distributed across the
// worker pool; a batch that keeps failing after retries is counted and
// skipped so one bad batch does not sink the whole run.
func (l *Loader) Load(ctx context.Context, dbName string, entries []retrieval.CorpusEntry) (Result, error) {
	result := Result{Total: len(entries)}
	if len(entries) == 0 {
		return result, nil
	}

	batches := make(chan []retrieval.CorpusEntry)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < l.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batches {
				err := l.uploadWithRetry(ctx, dbName, batch)
				mu.Lock()
				if err != nil {
					result.Failed += len(batch)
					l.logger.Error("batch upload failed",
						zap.Int("batch_size", len(batch)),
						zap.Error(err))
				} else {
					result.Uploaded += len(batch)
				}
				mu.Unlock()
			}
		}()
	}

	for start := 0; start < len(entries); start += l.batchSize {
		end := start + l.batchSize
		if end > len(entries) {
			end = len(entries)
		}
		select {
		case batches <- entries[start:end]:
		case <-ctx.Done():
			close(batches)
			wg.Wait()
			return result, ctx.Err()
		}
	}
	close(batches)
	wg.Wait()

	l.logger.Info("corpus ingestion finished",
		zap.String("database", dbName),
		zap.Int("total", result.Total),
		zap.Int("uploaded", result.Uploaded),
		zap.Int("failed", result.Failed))

	if result.Uploaded > 0 && l.settleDelay > 0 {
		select {
		case <-time.After(l.settleDelay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	if result.Failed > 0 {
		return result, fmt.Errorf("%d of %d entries failed to upload", result.Failed, result.Total)
	}
	return result, nil
}

func (l *Loader) uploadWithRetry(ctx context.Context, dbName string, batch []retrieval.CorpusEntry) error {
	var lastErr error
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(l.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = l.uploader.UploadFiles(ctx, dbName, batch); lastErr == nil {
			return nil
		}
		l.logger.Warn("batch upload attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return lastErr
}
