package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Buckets classify profiles and the sentences they write.
const (
	BucketTraining   = "training"
	BucketExperiment = "experiment"
	BucketGame       = "game"
)

// Profile is a player's persisted record.
type Profile struct {
	ID                         int
	Name                       string
	Mothertongue               string
	LifecycleState             string
	SuggestionCredit           int
	TrainedReformulationsCount int
	ReformulationsCount        int
	ReadingSpanDone            bool
	QuestionnaireDone          bool
	CreatedAt                  time.Time

	// AvailableTreesBucket is computed on load, not persisted: the number of
	// trees the profile could still be served in its current bucket.
	AvailableTreesBucket int
}

// Sentence is a node of a reformulation tree. The root has depth 0 and no
// parent; every other sentence belongs to the branch started by the root's
// child it descends from.
type Sentence struct {
	ID        int
	TreeID    int
	ParentID  int // 0 for the root
	BranchID  int // 0 for the root
	ProfileID int // 0 for fixtures
	Text      string
	Language  string
	Bucket    string
	Depth     int
	CreatedAt time.Time
}

// IsRoot reports whether s is the root of its tree.
func (s *Sentence) IsRoot() bool {
	return s.ParentID == 0
}

// Tip is a leaf sentence with its depth.
type Tip struct {
	SentenceID int
	Depth      int
}

// Branch groups the tips descending from one child of the root.
type Branch struct {
	ID   int
	Tips []Tip
}

// Tree is a reformulation tree with its denormalized shape.
type Tree struct {
	ID                  int
	Root                *Sentence
	RootLanguage        string
	RootBucket          string
	OtherMothertongue   bool
	BranchesCount       int
	ShortestBranchDepth int
	Branches            []Branch
	CreatedAt           time.Time
}

// IsRootOnly reports whether the tree has no sentence besides its root.
func (t *Tree) IsRootOnly() bool {
	return len(t.Branches) == 0
}

// Tips partitions tip sentence ids per branch relative to a depth target.
// Each field holds one slice of ids per branch; branches with no tip in a
// partition are omitted from it.
type Tips struct {
	Under     [][]int
	Overflown [][]int
	All       [][]int
}

// Tips partitions the tree's tips into those strictly under targetDepth and
// those at or beyond it.
func (t *Tree) Tips(targetDepth int) Tips {
	var tips Tips
	for _, b := range t.Branches {
		var under, over, all []int
		for _, tip := range b.Tips {
			all = append(all, tip.SentenceID)
			if tip.Depth < targetDepth {
				under = append(under, tip.SentenceID)
			} else {
				over = append(over, tip.SentenceID)
			}
		}
		if len(under) > 0 {
			tips.Under = append(tips.Under, under)
		}
		if len(over) > 0 {
			tips.Overflown = append(tips.Overflown, over)
		}
		if len(all) > 0 {
			tips.All = append(tips.All, all)
		}
	}
	return tips
}

// TreeFilter selects trees. Zero values leave a criterion unconstrained.
type TreeFilter struct {
	UntouchedBy            int
	RootLanguage           string
	RootBucket             string
	OtherMothertongue      *bool
	BranchesCountLTE       *int
	ShortestBranchDepthLTE *int

	// Sample, when positive, returns at most that many trees drawn at random.
	Sample int
}

// Bool returns a pointer to b, for filter fields.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to n, for filter fields.
func Int(n int) *int { return &n }
