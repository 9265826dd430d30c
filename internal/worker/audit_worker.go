package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
	// ShutdownGrace bounds the final flush after the worker context ends.
	ShutdownGrace = 5 * time.Second
	// drainLimit caps how many queued entries a shutdown pulls off the queue.
	drainLimit = 1000
)

// AuditQueue is the buffer Record writes into.
type AuditQueue interface {
	Pop(ctx context.Context, timeout time.Duration) (string, bool, error)
	TryPop(ctx context.Context) (string, bool, error)
	Requeue(ctx context.Context, raws []string) error
}

// AuditWriter persists decoded entries.
type AuditWriter interface {
	InsertBatch(ctx context.Context, entries []model.AuditEntry) error
}

// AuditWorker moves queued audit entries into PostgreSQL in batches.
type AuditWorker struct {
	queue  AuditQueue
	writer AuditWriter
	log    zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
	errorPause   time.Duration
}

// NewAuditWorker creates a new AuditWorker.
func NewAuditWorker(queue AuditQueue, writer AuditWriter, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		queue:        queue,
		writer:       writer,
		log:          log.With().Str("component", "audit_worker").Logger(),
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		pollTimeout:  PollTimeout,
		errorPause:   3 * time.Second,
	}
}

// pending is one decoded entry together with its queue form, so failed
// writes can be pushed back unchanged.
type pending struct {
	raw   string
	entry model.AuditEntry
}

// Start runs the worker loop until ctx is done. Call in a goroutine.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	buffer := make([]pending, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {
			w.flush(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		raw, ok, err := w.queue.Pop(ctx, w.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Dur("pause", w.errorPause).Msg("Queue read failed")
			sleep(ctx, w.errorPause)
			continue
		}
		if !ok {
			continue
		}

		if p, ok := w.decode(raw); ok {
			buffer = append(buffer, p)
		}
	}
}

// decode parses one queued entry. Malformed entries cannot succeed on retry
// and are dropped.
func (w *AuditWorker) decode(raw string) (pending, bool) {
	var entry model.AuditEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed audit entry")
		return pending{}, false
	}
	return pending{raw: raw, entry: entry}, true
}

// flush tries one batch insert, then row by row, then requeues what failed.
func (w *AuditWorker) flush(ctx context.Context, batch []pending) {
	entries := make([]model.AuditEntry, len(batch))
	for i, p := range batch {
		entries[i] = p.entry
	}
	err := w.writer.InsertBatch(ctx, entries)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Audit batch written")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Batch insert failed, attempting row-by-row recovery")

	var failed []string
	for _, p := range batch {
		if err := w.writer.InsertBatch(ctx, []model.AuditEntry{p.entry}); err != nil {
			w.log.Error().Err(err).Int("class_id", p.entry.ClassID).Msg("Insert failed, requeueing")
			failed = append(failed, p.raw)
		}
	}
	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *AuditWorker) requeue(ctx context.Context, raws []string) {
	if err := w.queue.Requeue(ctx, raws); err != nil {
		w.log.Error().Err(err).Int("count", len(raws)).Msg("CRITICAL: Failed to requeue audit entries. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(raws)).Msg("Requeued failed audit entries")
	sleep(ctx, w.errorPause)
}

// shutdown flushes the buffer plus whatever is still queued.
func (w *AuditWorker) shutdown(buffer []pending) {
	w.log.Info().Msg("Worker stopping, flushing remaining audit entries...")

	ctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()

	for len(buffer) < drainLimit {
		raw, ok, err := w.queue.TryPop(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain failed")
			break
		}
		if !ok {
			break
		}
		if p, ok := w.decode(raw); ok {
			buffer = append(buffer, p)
		}
	}

	if len(buffer) > 0 {
		w.flush(ctx, buffer)
	}
	w.log.Info().Int("flushed", len(buffer)).Msg("Worker stopped")
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
