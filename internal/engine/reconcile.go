package engine

import (
	"sort"

	"moviesync/internal/models"
)

// Plan splits the current candidates and the persisted popular set into three
// disjoint groups keyed by IMDb id.
type Plan struct {
	// Retained are persisted entries that are still candidates, in persisted order.
	Retained []models.PopularEntry
	// Entering are candidates without a persisted entry, in candidate order.
	Entering []models.MovieID
	// Leaving are persisted entries that are no longer candidates.
	Leaving []models.PopularEntry
}

// Reconcile computes the plan for one run. Duplicate and empty ids are
// ignored. When more than k persisted entries are still candidates, the
// lowest-ranked ones are moved to Leaving so the set never exceeds k.
func Reconcile(candidates []models.MovieID, persisted []models.PopularEntry, k int) Plan {
	rank := make(map[string]int, len(candidates))

	var ordered []models.MovieID

	for _, c := range candidates {
		if c.IMDbID == "" {
			continue
		}

		if _, dup := rank[c.IMDbID]; dup {
			continue
		}

		rank[c.IMDbID] = len(ordered)
		ordered = append(ordered, c)
	}

	var plan Plan

	known := make(map[string]bool, len(persisted))

	for _, entry := range persisted {
		if known[entry.IMDbID] {
			continue
		}

		known[entry.IMDbID] = true

		if _, ok := rank[entry.IMDbID]; ok {
			plan.Retained = append(plan.Retained, entry)
		} else {
			plan.Leaving = append(plan.Leaving, entry)
		}
	}

	for _, c := range ordered {
		if !known[c.IMDbID] {
			plan.Entering = append(plan.Entering, c)
		}
	}

	if k >= 0 && len(plan.Retained) > k {
		plan.Retained, plan.Leaving = bound(plan.Retained, plan.Leaving, rank, k)
	}

	return plan
}

// bound keeps the k best-ranked retained entries, preserving persisted order.
func bound(retained, leaving []models.PopularEntry, rank map[string]int, k int) ([]models.PopularEntry, []models.PopularEntry) {
	byRank := make([]models.PopularEntry, len(retained))
	copy(byRank, retained)

	sort.SliceStable(byRank, func(i, j int) bool {
		return rank[byRank[i].IMDbID] < rank[byRank[j].IMDbID]
	})

	keep := make(map[string]bool, k)
	for _, entry := range byRank[:k] {
		keep[entry.IMDbID] = true
	}

	kept := make([]models.PopularEntry, 0, k)

	for _, entry := range retained {
		if keep[entry.IMDbID] {
			kept = append(kept, entry)
		} else {
			leaving = append(leaving, entry)
		}
	}

	return kept, leaving
}

// Capacity returns how many entering movies may still be admitted.
func (p Plan) Capacity(k int) int {
	if free := k - len(p.Retained); free > 0 {
		return free
	}

	return 0
}
