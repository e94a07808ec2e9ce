package playlist

import "echofm/model"

// Rand is the random source used by smart selection. *math/rand.Rand
// satisfies it; tests inject a seeded instance for determinism.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// favoriteBias is the probability that the pick comes from the favorited
// subset when it is non-empty.
const favoriteBias = 0.6

// SmartPick chooses the next track from the reconciled list. With probability
// 0.6 it picks uniformly among favorited entries; otherwise it samples all
// entries weighted by 1/max(playCount, 1), so less-played tracks surface more
// often. Returns false only for an empty list.
func SmartPick(entries []*model.PlaylistEntry, rng Rand) (*model.PlaylistEntry, bool) {
	if len(entries) == 0 {
		return nil, false
	}

	var favs []*model.PlaylistEntry
	for _, e := range entries {
		if e.Favorite {
			favs = append(favs, e)
		}
	}
	if len(favs) > 0 && rng.Float64() < favoriteBias {
		return favs[rng.Intn(len(favs))], true
	}

	total := 0.0
	for _, e := range entries {
		total += weight(e)
	}

	r := rng.Float64() * total
	for _, e := range entries {
		r -= weight(e)
		if r <= 0 {
			return e, true
		}
	}

	// Floating point drift can exhaust the walk without a hit; a pick must
	// still come back.
	return entries[rng.Intn(len(entries))], true
}

func weight(e *model.PlaylistEntry) float64 {
	count := e.PlayCount
	if count < 1 {
		count = 1
	}
	return 1.0 / float64(count)
}
