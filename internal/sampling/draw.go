package sampling

import (
	"github.com/gistr/gistr/internal/shaping"
	"github.com/gistr/gistr/internal/store"
)

// Rand is the randomness DrawInTree consumes. *math/rand/v2.Rand
// satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// DrawInTree picks the sentence a player continues from in tree and
// reports whether it is the root, i.e. whether the player starts a new
// branch.
//
// A root-only tree always yields the root. Otherwise tips under the depth
// target are preferred, falling back to tips that overflowed it. While the
// tree has fewer branches than targeted the root is drawn with probability
// pBranch; once the target is met a tip is always drawn.
func DrawInTree(tree *store.Tree, targets shaping.Targets, pBranch float64, rng Rand) (id int, root bool) {
	if tree.IsRootOnly() {
		return tree.Root.ID, true
	}

	tips := tree.Tips(targets.BranchDepth)
	effective := tips.Under
	if len(effective) == 0 {
		effective = tips.Overflown
	}

	if tree.BranchesCount < targets.BranchCount && rng.Float64() < pBranch {
		return tree.Root.ID, true
	}
	return drawTip(effective, rng), false
}

// drawTip picks a branch uniformly, then a tip uniformly within it, so
// every branch weighs the same whatever its number of tips.
func drawTip(branches [][]int, rng Rand) int {
	branch := branches[rng.IntN(len(branches))]
	return branch[rng.IntN(len(branch))]
}
