package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// ErrEmptyText is returned when writing a sentence with no text.
var ErrEmptyText = errors.New("empty sentence text")

var sentenceFields = []string{
	"id", "tree_id", "parent_id", "branch_id", "profile_id",
	"text", "language", "bucket", "depth", "created_at",
}

// SentenceConfig holds tunable parameters for sentence writes.
type SentenceConfig struct {
	// CreditEvery grants one suggestion credit per this many game
	// reformulations.
	CreditEvery int `yaml:"credit_every"`
}

// DefaultSentenceConfig returns the default configuration.
func DefaultSentenceConfig() SentenceConfig {
	return SentenceConfig{CreditEvery: 5}
}

// SentenceRepo reads and writes sentences.
type SentenceRepo struct {
	drv *entsql.Driver
	cfg SentenceConfig
}

// WithConfig returns a copy of the repo using cfg.
func (r *SentenceRepo) WithConfig(cfg SentenceConfig) *SentenceRepo {
	return &SentenceRepo{drv: r.drv, cfg: cfg}
}

// Get returns the sentence with the given id.
func (r *SentenceRepo) Get(ctx context.Context, id int) (*Sentence, error) {
	return getSentence(ctx, r.drv, id)
}

// RootInput describes a new tree.
type RootInput struct {
	Text              string
	Language          string
	Bucket            string
	OtherMothertongue bool
}

// CreateTree inserts a tree with its root sentence and returns the root.
func (r *SentenceRepo) CreateTree(ctx context.Context, in RootInput) (*Sentence, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	var rootID int
	err := withTx(ctx, r.drv, func(tx dialect.Tx) error {
		ts := now().Unix()
		treeID, err := insertID(ctx, tx, builder().Insert(tableTrees).
			Columns("root_language", "root_bucket", "other_mothertongue", "created_at").
			Values(in.Language, in.Bucket, in.OtherMothertongue, ts))
		if err != nil {
			return fmt.Errorf("insert tree: %w", err)
		}
		rootID, err = insertID(ctx, tx, builder().Insert(tableSentences).
			Columns("tree_id", "text", "language", "bucket", "depth", "created_at").
			Values(treeID, text, in.Language, in.Bucket, 0, ts))
		if err != nil {
			return fmt.Errorf("insert root: %w", err)
		}
		_, err = execStmt(ctx, tx, builder().Update(tableTrees).
			Set("root_id", rootID).
			Where(entsql.EQ("id", treeID)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create tree: %w", err)
	}
	return r.Get(ctx, rootID)
}

// WriteInput describes a reformulation of an existing sentence.
type WriteInput struct {
	ParentID  int
	ProfileID int // 0 for fixtures; no profile bookkeeping happens then
	Text      string
	Bucket    string
}

// Write inserts a child of in.ParentID in one transaction, then updates the
// tree's shape, marks the tree as touched by the profile and bumps the
// profile's reformulation counters and credit.
func (r *SentenceRepo) Write(ctx context.Context, in WriteInput) (*Sentence, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	var id int
	err := withTx(ctx, r.drv, func(tx dialect.Tx) error {
		parent, err := getSentence(ctx, tx, in.ParentID)
		if err != nil {
			return err
		}

		id, err = insertID(ctx, tx, builder().Insert(tableSentences).
			Columns("tree_id", "parent_id", "branch_id", "profile_id", "text", "language", "bucket", "depth", "created_at").
			Values(parent.TreeID, parent.ID, nullable(parent.BranchID), nullable(in.ProfileID),
				text, parent.Language, in.Bucket, parent.Depth+1, now().Unix()))
		if err != nil {
			return fmt.Errorf("insert sentence: %w", err)
		}
		if parent.IsRoot() {
			// A child of the root starts its own branch.
			if _, err := execStmt(ctx, tx, builder().Update(tableSentences).
				Set("branch_id", id).
				Where(entsql.EQ("id", id))); err != nil {
				return fmt.Errorf("start branch: %w", err)
			}
		}

		if err := reshape(ctx, tx, parent.TreeID); err != nil {
			return err
		}
		if in.ProfileID == 0 {
			return nil
		}
		if err := touch(ctx, tx, parent.TreeID, in.ProfileID); err != nil {
			return err
		}
		return r.count(ctx, tx, in.ProfileID, in.Bucket)
	})
	if err != nil {
		return nil, fmt.Errorf("write sentence: %w", err)
	}
	return r.Get(ctx, id)
}

// count bumps the profile's reformulation counters for one write.
func (r *SentenceRepo) count(ctx context.Context, tx dialect.ExecQuerier, profileID int, bucket string) error {
	upd := builder().Update(tableProfiles)
	if bucket == BucketTraining {
		upd.Add("trained_reformulations_count", 1)
	} else {
		upd.Add("reformulations_count", 1)
	}

	if bucket == BucketGame && r.cfg.CreditEvery > 0 {
		n, err := queryInt(ctx, tx, builder().Select(entsql.Count("*")).From(entsql.Table(tableSentences)).
			Where(entsql.And(entsql.EQ("profile_id", profileID), entsql.EQ("bucket", BucketGame))))
		if err != nil {
			return fmt.Errorf("count game sentences: %w", err)
		}
		if n%r.cfg.CreditEvery == 0 {
			upd.Add("suggestion_credit", 1)
		}
	}

	if _, err := execStmt(ctx, tx, upd.Where(entsql.EQ("id", profileID))); err != nil {
		return fmt.Errorf("update profile counters: %w", err)
	}
	return nil
}

// reshape recomputes the denormalized branch count and shortest branch
// depth of a tree. A branch's depth is the depth of its deepest sentence.
func reshape(ctx context.Context, tx dialect.ExecQuerier, treeID int) error {
	sel := builder().Select("branch_id", entsql.Max("depth")).From(entsql.Table(tableSentences)).
		Where(entsql.And(entsql.EQ("tree_id", treeID), entsql.NotNull("branch_id"))).
		GroupBy("branch_id")

	count, shortest := 0, 0
	err := queryRows(ctx, tx, sel, func(rows *entsql.Rows) error {
		var branch, depth int
		if err := rows.Scan(&branch, &depth); err != nil {
			return err
		}
		if count == 0 || depth < shortest {
			shortest = depth
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("measure tree %d: %w", treeID, err)
	}

	_, err = execStmt(ctx, tx, builder().Update(tableTrees).
		Set("branches_count", count).
		Set("shortest_branch_depth", shortest).
		Where(entsql.EQ("id", treeID)))
	if err != nil {
		return fmt.Errorf("reshape tree %d: %w", treeID, err)
	}
	return nil
}

// touch records that profileID has written in treeID.
func touch(ctx context.Context, tx dialect.ExecQuerier, treeID, profileID int) error {
	n, err := queryInt(ctx, tx, builder().Select(entsql.Count("*")).From(entsql.Table(tableTreeProfiles)).
		Where(entsql.And(entsql.EQ("tree_id", treeID), entsql.EQ("profile_id", profileID))))
	if err != nil {
		return fmt.Errorf("check touched: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := execStmt(ctx, tx, builder().Insert(tableTreeProfiles).
		Columns("tree_id", "profile_id").
		Values(treeID, profileID)); err != nil {
		return fmt.Errorf("touch tree %d: %w", treeID, err)
	}
	return nil
}

func getSentence(ctx context.Context, q dialect.ExecQuerier, id int) (*Sentence, error) {
	sel := builder().Select(sentenceFields...).From(entsql.Table(tableSentences)).
		Where(entsql.EQ("id", id)).Limit(1)

	var s *Sentence
	err := queryRows(ctx, q, sel, func(rows *entsql.Rows) error {
		var (
			out                       Sentence
			parent, branch, profileID sql.NullInt64
			created                   int64
		)
		if err := rows.Scan(&out.ID, &out.TreeID, &parent, &branch, &profileID,
			&out.Text, &out.Language, &out.Bucket, &out.Depth, &created); err != nil {
			return err
		}
		out.ParentID = int(parent.Int64)
		out.BranchID = int(branch.Int64)
		out.ProfileID = int(profileID.Int64)
		out.CreatedAt = unix(created)
		s = &out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get sentence %d: %w", id, err)
	}
	if s == nil {
		return nil, fmt.Errorf("sentence %d: %w", id, ErrNotFound)
	}
	return s, nil
}
