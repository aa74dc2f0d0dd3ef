package service

import "listingfilter/internal/model"

// SelectListings returns the listings whose id is in ids, in dataset order.
// Each listing appears at most once, however often its id repeats in ids.
// A nil ids means no filter is active and every listing is returned.
func SelectListings(listings []model.Listing, ids []int64) []model.Listing {
	if ids == nil {
		out := make([]model.Listing, len(listings))
		copy(out, listings)
		return out
	}

	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	out := make([]model.Listing, 0, len(ids))
	for _, l := range listings {
		if _, ok := wanted[l.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}
