package memory

import (
	"context"

	"github.com/stemsi/classroom-backend/internal/model"
)

// AuditStore records audit entries synchronously and serves the history.
type AuditStore struct{ db *DB }

// Audit returns the audit view of the database.
func (s *DB) Audit() *AuditStore { return &AuditStore{db: s} }

func (a *AuditStore) Enqueue(_ context.Context, e model.AuditEntry) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()
	a.db.nextAuditID++
	e.ID = a.db.nextAuditID
	a.db.audit = append(a.db.audit, e)
	return nil
}

func (a *AuditStore) ListByClass(_ context.Context, classID int, q model.AuditQuery) ([]model.AuditEntry, int, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	var matched []model.AuditEntry
	for i := len(a.db.audit) - 1; i >= 0; i-- {
		e := a.db.audit[i]
		if e.ClassID != classID || (q.Action != "" && e.Action != q.Action) {
			continue
		}
		if q.StartDate != nil && e.PerformedAt.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && !e.PerformedAt.Before(q.EndDate.AddDate(0, 0, 1)) {
			continue
		}
		matched = append(matched, e)
	}
	return page(matched, q.Offset, q.Limit), len(matched), nil
}

// RosterFeed collects published roster events.
type RosterFeed struct{ db *DB }

// Roster returns the roster event view of the database.
func (s *DB) Roster() *RosterFeed { return &RosterFeed{db: s} }

func (r *RosterFeed) Publish(_ context.Context, ev model.RosterEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.events = append(r.db.events, ev)
	for ch := range r.db.listeners[ev.ClassID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

// Listen delivers the events published for a class until ctx is done.
// Slow listeners miss events rather than block publishers.
func (r *RosterFeed) Listen(ctx context.Context, classID int) (<-chan model.RosterEvent, error) {
	ch := make(chan model.RosterEvent, 16)
	r.db.mu.Lock()
	if r.db.listeners[classID] == nil {
		r.db.listeners[classID] = map[chan model.RosterEvent]struct{}{}
	}
	r.db.listeners[classID][ch] = struct{}{}
	r.db.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.db.mu.Lock()
		delete(r.db.listeners[classID], ch)
		close(ch)
		r.db.mu.Unlock()
	}()
	return ch, nil
}
