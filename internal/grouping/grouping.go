// Package grouping infers which daily gig records represent a single
// continuous multi-day booking.
//
// Grouping is a pure function over a sorted sequence: an index-based forward
// scan with an explicit claimed set, no record mutation. Membership is
// decided by an explicit MultiDayGroupID when present, otherwise by exact
// (event, client, type) equality plus date adjacency.
package grouping

import (
	"sort"

	"gigledger/internal/core"
)

const (
	// maxJoinGapDays is the largest day-gap between the latest member and a
	// candidate that still counts as "truly consecutive".
	maxJoinGapDays = 2

	// MaxSpanDays is the hard stop: once a candidate sits more than this many
	// days past the group's start, scanning for that group ends. Applies even
	// to explicit-id matches; a booking never spans a gap that wide.
	MaxSpanDays = 7
)

// Group partitions records into gig groups. Every input record lands in
// exactly one group; a record with no matches forms its own single-member
// group, so the function never fails.
//
// Returned groups are ordered most-recent first for display; members inside a
// group are ordered by date ascending.
func Group(records []core.GigRecord) []core.GigGroup {
	sorted := make([]core.GigRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	claimed := make([]bool, len(sorted))
	groups := make([]core.GigGroup, 0, len(sorted))

	for i := range sorted {
		if claimed[i] {
			continue
		}
		claimed[i] = true
		members := []core.GigRecord{sorted[i]}

		for j := i + 1; j < len(sorted); j++ {
			if core.DayDiff(members[0].Date, sorted[j].Date) > MaxSpanDays {
				break
			}
			if claimed[j] {
				continue
			}
			if joins(members, sorted[j]) {
				claimed[j] = true
				members = append(members, sorted[j])
			}
		}

		groups = append(groups, finalize(members))
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].EndDate.After(groups[j].EndDate)
	})
	return groups
}

// joins reports whether candidate belongs to the growing group.
//
// A shared explicit MultiDayGroupID is authoritative: it joins even when the
// event/client/type no longer match, bypassing the heuristic entirely. The
// heuristic itself requires an exact booking match plus a day-gap of 1-2 from
// the group's latest member (same-day duplicates do not join heuristically).
func joins(members []core.GigRecord, candidate core.GigRecord) bool {
	seed := members[0]
	if seed.MultiDayGroupID != "" && candidate.MultiDayGroupID == seed.MultiDayGroupID {
		return true
	}
	if !seed.SameBooking(candidate) {
		return false
	}
	gap := core.DayDiff(members[len(members)-1].Date, candidate.Date)
	return gap > 0 && gap <= maxJoinGapDays
}

func finalize(members []core.GigRecord) core.GigGroup {
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return core.GigGroup{
		StartDate:  members[0].Date,
		EndDate:    members[len(members)-1].Date,
		GigIDs:     ids,
		Records:    members,
		IsMultiDay: len(members) >= 2,
	}
}

// Flatten returns the member records of all groups, the inverse of Group
// modulo ordering.
func Flatten(groups []core.GigGroup) []core.GigRecord {
	var out []core.GigRecord
	for _, g := range groups {
		out = append(out, g.Records...)
	}
	return out
}

// Resolve picks the members of the target's group out of candidates, the way
// the payment transition needs them: the target's explicit MultiDayGroupID is
// authoritative when present; otherwise every candidate describing the same
// booking belongs. No date adjacency applies here — by the time a payment
// lands, the day-rows of the booking are whatever shares its identity.
//
// The target itself is always a member, and members come back sorted by date
// ascending.
func Resolve(target core.GigRecord, candidates []core.GigRecord) []core.GigRecord {
	members := []core.GigRecord{target}
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		if target.MultiDayGroupID != "" {
			if c.MultiDayGroupID == target.MultiDayGroupID {
				members = append(members, c)
			}
			continue
		}
		if target.SameBooking(c) {
			members = append(members, c)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Date.Before(members[j].Date)
	})
	return members
}
