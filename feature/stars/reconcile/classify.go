package reconcile

import "startion/feature/stars/models"

// Mode selects how repos that already have a store page are classified.
type Mode int

const (
	// ModeNormal skips every repo that already has a page.
	ModeNormal Mode = iota
	// ModeForce re-summarizes every repo that already has a page.
	ModeForce
	// ModeEmptyOnly re-summarizes only pages whose stored summary is empty.
	ModeEmptyOnly
)

// Classification partitions the current starred list against the store
// snapshot. New, Resummarize, and Skip are pairwise disjoint and together
// cover exactly the starred list; Unstarred holds the full names present in
// the snapshot but no longer starred.
type Classification struct {
	// New are starred repos with no store page yet.
	New []models.Repo

	// Resummarize are starred repos whose existing page qualifies for
	// re-summarization under the mode.
	Resummarize []models.Repo

	// Skip are starred repos whose existing page is left untouched.
	Skip []models.Repo

	// Unstarred are full names with a store page but no star anymore.
	Unstarred []string
}

// Classify computes the classification for one sync pass. It is a pure
// function of its inputs: no I/O, deterministic, and the snapshot is only
// read.
func Classify(repos []models.Repo, snap *models.Snapshot, mode Mode) Classification {
	var c Classification

	starred := make(map[string]struct{}, len(repos))
	for _, repo := range repos {
		starred[repo.FullName] = struct{}{}

		if !snap.Has(repo.FullName) {
			c.New = append(c.New, repo)
			continue
		}

		switch mode {
		case ModeForce:
			c.Resummarize = append(c.Resummarize, repo)
		case ModeEmptyOnly:
			if snap.HasEmptySummary(repo.FullName) {
				c.Resummarize = append(c.Resummarize, repo)
			} else {
				c.Skip = append(c.Skip, repo)
			}
		default:
			c.Skip = append(c.Skip, repo)
		}
	}

	for fullName := range snap.Pages {
		if _, ok := starred[fullName]; !ok {
			c.Unstarred = append(c.Unstarred, fullName)
		}
	}

	return c
}
