package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateName is returned when a profile name is already taken.
var ErrDuplicateName = errors.New("profile name already taken")

var profileFields = []string{
	"id", "name", "mothertongue", "lifecycle_state", "suggestion_credit",
	"trained_reformulations_count", "reformulations_count",
	"reading_span_done", "questionnaire_done", "created_at",
}

// ProfileRepo persists player profiles.
type ProfileRepo struct {
	drv *entsql.Driver
}

// Create inserts a new profile in the initial lifecycle stage.
func (r *ProfileRepo) Create(ctx context.Context, name, mothertongue string) (*Profile, error) {
	id, err := insertID(ctx, r.drv, builder().Insert(tableProfiles).
		Columns("name", "mothertongue", "created_at").
		Values(name, mothertongue, now().Unix()))
	if isUnique(err) {
		return nil, fmt.Errorf("create profile %q: %w", name, ErrDuplicateName)
	}
	if err != nil {
		return nil, fmt.Errorf("create profile %q: %w", name, err)
	}
	return r.Get(ctx, id)
}

// Get returns the profile with the given id.
func (r *ProfileRepo) Get(ctx context.Context, id int) (*Profile, error) {
	return r.one(ctx, entsql.EQ("id", id), fmt.Sprintf("id %d", id))
}

// ByName returns the profile with the given name.
func (r *ProfileRepo) ByName(ctx context.Context, name string) (*Profile, error) {
	return r.one(ctx, entsql.EQ("name", name), fmt.Sprintf("name %q", name))
}

// List returns every profile ordered by id.
func (r *ProfileRepo) List(ctx context.Context) ([]*Profile, error) {
	sel := builder().Select(profileFields...).From(entsql.Table(tableProfiles)).
		OrderBy("id")
	var out []*Profile
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		p, err := scanProfile(rows)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out, nil
}

// Save persists the player-editable fields of p. Counters are owned by
// SentenceRepo.Write and are not written here.
func (r *ProfileRepo) Save(ctx context.Context, p *Profile) error {
	_, err := execStmt(ctx, r.drv, builder().Update(tableProfiles).
		Set("mothertongue", p.Mothertongue).
		Set("lifecycle_state", p.LifecycleState).
		Set("reading_span_done", p.ReadingSpanDone).
		Set("questionnaire_done", p.QuestionnaireDone).
		Where(entsql.EQ("id", p.ID)))
	if err != nil {
		return fmt.Errorf("save profile %d: %w", p.ID, err)
	}
	return nil
}

func (r *ProfileRepo) one(ctx context.Context, where *entsql.Predicate, what string) (*Profile, error) {
	sel := builder().Select(profileFields...).From(entsql.Table(tableProfiles)).
		Where(where).Limit(1)
	var p *Profile
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var err error
		p, err = scanProfile(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", what, err)
	}
	if p == nil {
		return nil, fmt.Errorf("profile %s: %w", what, ErrNotFound)
	}
	return p, nil
}

func scanProfile(rows *entsql.Rows) (*Profile, error) {
	var (
		p       Profile
		created int64
	)
	err := rows.Scan(&p.ID, &p.Name, &p.Mothertongue, &p.LifecycleState,
		&p.SuggestionCredit, &p.TrainedReformulationsCount, &p.ReformulationsCount,
		&p.ReadingSpanDone, &p.QuestionnaireDone, &created)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = unix(created)
	return &p, nil
}

// isUnique reports whether err is a unique constraint violation. The
// driver may report the primary result code only.
func isUnique(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(se.Error(), "UNIQUE")
	}
	return false
}
