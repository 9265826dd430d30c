package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/classroom-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *fakeQueue) push(raws ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, raws...)
}

func (q *fakeQueue) TryPop(ctx context.Context) (string, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false, nil
	}
	raw := q.items[0]
	q.items = q.items[1:]
	return raw, true, nil
}

func (q *fakeQueue) Pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	if raw, ok, _ := q.TryPop(ctx); ok {
		return raw, true, nil
	}
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-time.After(time.Millisecond):
		return "", false, nil
	}
}

func (q *fakeQueue) Requeue(_ context.Context, raws []string) error {
	q.push(raws...)
	return nil
}

func (q *fakeQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// fakeWriter rejects batches containing a class listed in reject.
type fakeWriter struct {
	mu      sync.Mutex
	calls   int
	written []model.AuditEntry
	reject  map[int]bool
}

func (w *fakeWriter) InsertBatch(_ context.Context, entries []model.AuditEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	for _, e := range entries {
		if w.reject[e.ClassID] {
			return errors.New("insert rejected")
		}
	}
	w.written = append(w.written, entries...)
	return nil
}

func (w *fakeWriter) classes() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]int, 0, len(w.written))
	for _, e := range w.written {
		ids = append(ids, e.ClassID)
	}
	return ids
}

func rawEntry(t *testing.T, classID int) string {
	t.Helper()
	raw, err := json.Marshal(model.AuditEntry{
		ClassID:     classID,
		Action:      model.AuditUpdate,
		PerformedBy: uuid.New(),
		PerformedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return string(raw)
}

func newTestWorker(q *fakeQueue, w *fakeWriter) *AuditWorker {
	worker := NewAuditWorker(q, w, zerolog.Nop())
	worker.errorPause = time.Millisecond
	return worker
}

func TestFlushFallsBackRowByRow(t *testing.T) {
	q := &fakeQueue{}
	w := &fakeWriter{reject: map[int]bool{2: true}}
	worker := newTestWorker(q, w)

	var batch []pending
	for _, id := range []int{1, 2, 3} {
		p, ok := worker.decode(rawEntry(t, id))
		require.True(t, ok)
		batch = append(batch, p)
	}

	worker.flush(context.Background(), batch)

	assert.Equal(t, []int{1, 3}, w.classes())
	assert.Equal(t, 4, w.calls, "one batch attempt plus one per row")
	require.Equal(t, 1, q.len())
	p, ok := worker.decode(q.items[0])
	require.True(t, ok)
	assert.Equal(t, 2, p.entry.ClassID)
}

func TestDecodeDropsMalformedEntries(t *testing.T) {
	worker := newTestWorker(&fakeQueue{}, &fakeWriter{})

	_, ok := worker.decode("{not json")
	assert.False(t, ok)
}

func TestStartFlushesFullBatches(t *testing.T) {
	q := &fakeQueue{}
	w := &fakeWriter{}
	worker := newTestWorker(q, w)
	worker.batchSize = 2
	worker.batchTimeout = time.Hour

	q.push(rawEntry(t, 1), rawEntry(t, 2))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(w.classes()) == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestShutdownDrainsQueue(t *testing.T) {
	q := &fakeQueue{}
	w := &fakeWriter{}
	worker := newTestWorker(q, w)
	worker.batchSize = 100
	worker.batchTimeout = time.Hour

	q.push(rawEntry(t, 1), "garbage", rawEntry(t, 2), rawEntry(t, 3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.Start(ctx)

	assert.ElementsMatch(t, []int{1, 2, 3}, w.classes())
	assert.Zero(t, q.len())
}
