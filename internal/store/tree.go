package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

var treeFields = []string{
	"id", "root_id", "root_language", "root_bucket", "other_mothertongue",
	"branches_count", "shortest_branch_depth", "created_at",
}

// TreeRepo queries reformulation trees.
type TreeRepo struct {
	drv *entsql.Driver
}

// Find returns the trees matching f, fully loaded with root and tips.
// With f.Sample set, at most that many trees are returned in random order.
func (r *TreeRepo) Find(ctx context.Context, f TreeFilter) ([]*Tree, error) {
	sel := r.filtered(f, "id")
	if f.Sample > 0 {
		sel.OrderExpr(entsql.Expr("RANDOM()")).Limit(f.Sample)
	} else {
		sel.OrderBy("id")
	}

	var ids []int
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find trees: %w", err)
	}

	trees := make([]*Tree, 0, len(ids))
	for _, id := range ids {
		t, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, nil
}

// Count returns the number of trees matching f. Sample is ignored.
func (r *TreeRepo) Count(ctx context.Context, f TreeFilter) (int, error) {
	n, err := queryInt(ctx, r.drv, r.filtered(f, entsql.Count("*")))
	if err != nil {
		return 0, fmt.Errorf("count trees: %w", err)
	}
	return n, nil
}

// Get returns the tree with the given id, with its root and tips loaded.
func (r *TreeRepo) Get(ctx context.Context, id int) (*Tree, error) {
	sel := builder().Select(treeFields...).From(entsql.Table(tableTrees)).
		Where(entsql.EQ("id", id)).Limit(1)

	var (
		t      *Tree
		rootID sql.NullInt64
	)
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var (
			tree    Tree
			created int64
		)
		if err := rows.Scan(&tree.ID, &rootID, &tree.RootLanguage, &tree.RootBucket,
			&tree.OtherMothertongue, &tree.BranchesCount, &tree.ShortestBranchDepth, &created); err != nil {
			return err
		}
		tree.CreatedAt = unix(created)
		t = &tree
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get tree %d: %w", id, err)
	}
	if t == nil {
		return nil, fmt.Errorf("tree %d: %w", id, ErrNotFound)
	}

	if rootID.Valid {
		root, err := getSentence(ctx, r.drv, int(rootID.Int64))
		if err != nil {
			return nil, fmt.Errorf("tree %d root: %w", id, err)
		}
		t.Root = root
	}

	branches, err := r.branches(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tree %d tips: %w", id, err)
	}
	t.Branches = branches
	return t, nil
}

// filtered builds a selector over trees restricted by f.
func (r *TreeRepo) filtered(f TreeFilter, columns ...string) *entsql.Selector {
	b := builder()
	sel := b.Select(columns...).From(entsql.Table(tableTrees))

	// Trees without a root yet are never served.
	preds := []*entsql.Predicate{entsql.NotNull("root_id")}
	if f.UntouchedBy != 0 {
		touched := b.Select("tree_id").From(entsql.Table(tableTreeProfiles)).
			Where(entsql.EQ("profile_id", f.UntouchedBy))
		preds = append(preds, entsql.Not(entsql.In("id", touched)))
	}
	if f.RootLanguage != "" {
		preds = append(preds, entsql.EQ("root_language", f.RootLanguage))
	}
	if f.RootBucket != "" {
		preds = append(preds, entsql.EQ("root_bucket", f.RootBucket))
	}
	if f.OtherMothertongue != nil {
		preds = append(preds, entsql.EQ("other_mothertongue", *f.OtherMothertongue))
	}
	if f.BranchesCountLTE != nil {
		preds = append(preds, entsql.LTE("branches_count", *f.BranchesCountLTE))
	}
	if f.ShortestBranchDepthLTE != nil {
		preds = append(preds, entsql.LTE("shortest_branch_depth", *f.ShortestBranchDepthLTE))
	}
	return sel.Where(entsql.And(preds...))
}

// branches loads the tips of tree id, grouped by branch in branch order.
func (r *TreeRepo) branches(ctx context.Context, id int) ([]Branch, error) {
	b := builder()
	parents := b.Select("parent_id").From(entsql.Table(tableSentences)).
		Where(entsql.And(entsql.EQ("tree_id", id), entsql.NotNull("parent_id")))
	sel := b.Select("id", "branch_id", "depth").From(entsql.Table(tableSentences)).
		Where(entsql.And(
			entsql.EQ("tree_id", id),
			entsql.NotNull("parent_id"),
			entsql.Not(entsql.In("id", parents)),
		)).
		OrderBy("branch_id", "id")

	var out []Branch
	err := queryRows(ctx, r.drv, sel, func(rows *entsql.Rows) error {
		var (
			tip    Tip
			branch int
		)
		if err := rows.Scan(&tip.SentenceID, &branch, &tip.Depth); err != nil {
			return err
		}
		if len(out) == 0 || out[len(out)-1].ID != branch {
			out = append(out, Branch{ID: branch})
		}
		last := &out[len(out)-1]
		last.Tips = append(last.Tips, tip)
		return nil
	})
	return out, err
}
