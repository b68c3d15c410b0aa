package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// TrialEvent is one accepted transition of a trial, as recorded in the
// trial event log.
type TrialEvent struct {
	Sequence   int64
	Timestamp  time.Time
	TrialID    string
	ProfileID  int
	Event      string
	From       string
	To         string
	SentenceID int
	Infos      []string
}

// EventRepo is the append-only trial event log.
type EventRepo struct {
	drv *entsql.Driver
	seq *sequenceCounter
}

// Append records ev, assigning it the next global sequence number.
func (r *EventRepo) Append(ctx context.Context, ev TrialEvent) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = now()
	}
	_, err = execStmt(ctx, r.drv, builder().Insert(tableTrialEvents).
		Columns("sequence", "timestamp", "trial_id", "profile_id", "event", "from_state", "to_state", "sentence_id", "infos").
		Values(seqNum, ts.UnixNano(), ev.TrialID, nullable(ev.ProfileID), ev.Event, ev.From, ev.To,
			nullable(ev.SentenceID), strings.Join(ev.Infos, ",")))
	if err != nil {
		return fmt.Errorf("save trial event: %w", err)
	}
	return nil
}

// ByTrial returns the events of one trial in sequence order.
func (r *EventRepo) ByTrial(ctx context.Context, trialID string) ([]TrialEvent, error) {
	sel := builder().Select("sequence", "timestamp", "trial_id", "profile_id", "event",
		"from_state", "to_state", "sentence_id", "infos").
		From(entsql.Table(tableTrialEvents)).
		Where(entsql.EQ("trial_id", trialID)).
		OrderBy("sequence")

	var out []TrialEvent
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var (
			ev                  TrialEvent
			ts                  int64
			profile, sentenceID sql.NullInt64
			infos               string
		)
		if err := rows.Scan(&ev.Sequence, &ts, &ev.TrialID, &profile, &ev.Event,
			&ev.From, &ev.To, &sentenceID, &infos); err != nil {
			return err
		}
		ev.Timestamp = time.Unix(0, ts).UTC()
		ev.ProfileID = int(profile.Int64)
		ev.SentenceID = int(sentenceID.Int64)
		if infos != "" {
			ev.Infos = strings.Split(infos, ",")
		}
		out = append(out, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query trial events: %w", err)
	}
	return out, nil
}

// sequenceCounter manages the global monotonic sequence number of the
// event log, so events from concurrent trials keep a single total order
// independent of row ids.
//
// Uses raw SQL because the builder has no atomic counter. The mutex
// serializes within the process; the RETURNING clause makes the increment
// atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
