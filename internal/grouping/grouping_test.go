package grouping

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

func gig(id int64, event string, date time.Time) core.GigRecord {
	return core.GigRecord{
		ID:          id,
		UserID:      1,
		EventName:   event,
		ClientName:  "Client",
		GigType:     "wedding",
		Date:        date,
		ExpectedPay: decimal.NewFromInt(100),
		Status:      core.StatusUpcoming,
	}
}

func TestGroupConsecutiveDays(t *testing.T) {
	records := []core.GigRecord{
		gig(1, "Festival", core.NewDate(2026, 7, 10)),
		gig(2, "Festival", core.NewDate(2026, 7, 11)),
		gig(3, "Festival", core.NewDate(2026, 7, 12)),
	}
	groups := Group(records)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	g := groups[0]
	if !g.IsMultiDay {
		t.Fatal("expected multi-day group")
	}
	if !g.StartDate.Equal(core.NewDate(2026, 7, 10)) || !g.EndDate.Equal(core.NewDate(2026, 7, 12)) {
		t.Fatalf("window [%s, %s]", g.StartDate, g.EndDate)
	}
	if len(g.GigIDs) != 3 || g.GigIDs[0] != 1 || g.GigIDs[2] != 3 {
		t.Fatalf("gig ids = %v", g.GigIDs)
	}
}

func TestGroupGapBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		gapDays int
		joined  bool
	}{
		{"one day gap joins", 1, true},
		{"two day gap joins", 2, true},
		{"three day gap does not join", 3, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := core.NewDate(2026, 7, 10)
			records := []core.GigRecord{
				gig(1, "Festival", start),
				gig(2, "Festival", start.AddDate(0, 0, tc.gapDays)),
			}
			groups := Group(records)
			wantGroups := 2
			if tc.joined {
				wantGroups = 1
			}
			if len(groups) != wantGroups {
				t.Fatalf("got %d groups, want %d", len(groups), wantGroups)
			}
		})
	}
}

func TestGroupSevenDaySpanCap(t *testing.T) {
	// Chained 2-day gaps keep the group growing until a member would sit
	// more than 7 days past the start.
	start := core.NewDate(2026, 7, 1)
	records := []core.GigRecord{
		gig(1, "Tour", start),
		gig(2, "Tour", start.AddDate(0, 0, 2)),
		gig(3, "Tour", start.AddDate(0, 0, 4)),
		gig(4, "Tour", start.AddDate(0, 0, 6)),
		gig(5, "Tour", start.AddDate(0, 0, 8)), // past the cap
	}
	groups := Group(records)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	// Display order is most recent first, so the capped single-day group
	// comes first.
	if len(groups[0].Records) != 1 || groups[0].Records[0].ID != 5 {
		t.Fatalf("expected gig 5 alone, got %v", groups[0].GigIDs)
	}
	if len(groups[1].Records) != 4 {
		t.Fatalf("expected 4 members, got %v", groups[1].GigIDs)
	}
}

func TestGroupSameDayDuplicatesStaySeparate(t *testing.T) {
	d := core.NewDate(2026, 7, 10)
	groups := Group([]core.GigRecord{
		gig(1, "Festival", d),
		gig(2, "Festival", d),
	})
	if len(groups) != 2 {
		t.Fatalf("same-day duplicates should not join heuristically, got %d groups", len(groups))
	}
}

func TestGroupExplicitIDBeatsNameMismatch(t *testing.T) {
	a := gig(1, "Festival day 1", core.NewDate(2026, 7, 10))
	b := gig(2, "Festival day 2", core.NewDate(2026, 7, 11))
	a.MultiDayGroupID = "booking-42"
	b.MultiDayGroupID = "booking-42"

	groups := Group([]core.GigRecord{a, b})
	if len(groups) != 1 {
		t.Fatalf("shared group id should join despite differing names, got %d groups", len(groups))
	}
}

func TestGroupDifferentBookingsStaySeparate(t *testing.T) {
	groups := Group([]core.GigRecord{
		gig(1, "Wedding", core.NewDate(2026, 7, 10)),
		gig(2, "Corporate party", core.NewDate(2026, 7, 11)),
	})
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
}

func TestGroupCompleteness(t *testing.T) {
	records := []core.GigRecord{
		gig(1, "A", core.NewDate(2026, 7, 10)),
		gig(2, "A", core.NewDate(2026, 7, 11)),
		gig(3, "B", core.NewDate(2026, 7, 11)),
		gig(4, "C", core.NewDate(2026, 8, 1)),
		gig(5, "A", core.NewDate(2026, 9, 1)),
	}
	groups := Group(records)

	seen := map[int64]bool{}
	for _, r := range Flatten(groups) {
		if seen[r.ID] {
			t.Fatalf("gig %d appears in more than one group", r.ID)
		}
		seen[r.ID] = true
	}
	if len(seen) != len(records) {
		t.Fatalf("flattened %d records, want %d", len(seen), len(records))
	}
}

func TestGroupIdempotence(t *testing.T) {
	// Regrouping the flattened output must reproduce the same partition.
	records := []core.GigRecord{
		gig(1, "A", core.NewDate(2026, 7, 10)),
		gig(2, "A", core.NewDate(2026, 7, 11)),
		gig(3, "B", core.NewDate(2026, 7, 11)),
		gig(4, "C", core.NewDate(2026, 8, 1)),
		gig(5, "A", core.NewDate(2026, 9, 1)),
	}
	first := Group(records)
	second := Group(Flatten(first))

	if len(second) != len(first) {
		t.Fatalf("regrouping changed the group count: %d, then %d", len(first), len(second))
	}
	for i := range first {
		if len(first[i].GigIDs) != len(second[i].GigIDs) {
			t.Fatalf("group %d changed size: %v, then %v", i, first[i].GigIDs, second[i].GigIDs)
		}
		for j := range first[i].GigIDs {
			if first[i].GigIDs[j] != second[i].GigIDs[j] {
				t.Fatalf("group %d diverged: %v, then %v", i, first[i].GigIDs, second[i].GigIDs)
			}
		}
		if !first[i].StartDate.Equal(second[i].StartDate) || !first[i].EndDate.Equal(second[i].EndDate) {
			t.Fatalf("group %d window diverged", i)
		}
	}
}

func TestGroupDisplayOrder(t *testing.T) {
	groups := Group([]core.GigRecord{
		gig(1, "Old", core.NewDate(2026, 1, 5)),
		gig(2, "New", core.NewDate(2026, 3, 5)),
		gig(3, "Middle", core.NewDate(2026, 2, 5)),
	})
	if len(groups) != 3 {
		t.Fatalf("got %d groups", len(groups))
	}
	for i, want := range []string{"New", "Middle", "Old"} {
		if groups[i].First().EventName != want {
			t.Fatalf("position %d: got %s, want %s", i, groups[i].First().EventName, want)
		}
	}
}

func TestGroupEmptyInput(t *testing.T) {
	if groups := Group(nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}

func TestResolveByBookingIdentity(t *testing.T) {
	target := gig(2, "Festival", core.NewDate(2026, 7, 11))
	candidates := []core.GigRecord{
		gig(1, "Festival", core.NewDate(2026, 7, 10)),
		target,
		gig(3, "Festival", core.NewDate(2026, 7, 20)), // far away but same booking
		gig(4, "Other", core.NewDate(2026, 7, 11)),
	}
	members := Resolve(target, candidates)
	if len(members) != 3 {
		t.Fatalf("got %d members, want 3", len(members))
	}
	// Sorted by date ascending, target not duplicated.
	if members[0].ID != 1 || members[1].ID != 2 || members[2].ID != 3 {
		t.Fatalf("member order = %d,%d,%d", members[0].ID, members[1].ID, members[2].ID)
	}
}

func TestResolveExplicitIDIgnoresNames(t *testing.T) {
	target := gig(1, "Day 1", core.NewDate(2026, 7, 10))
	target.MultiDayGroupID = "booking-7"
	other := gig(2, "Day 2", core.NewDate(2026, 7, 11))
	other.MultiDayGroupID = "booking-7"
	sameName := gig(3, "Day 1", core.NewDate(2026, 7, 12)) // no group id

	members := Resolve(target, []core.GigRecord{other, sameName})
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[1].ID != 2 {
		t.Fatalf("expected gig 2 as second member, got %d", members[1].ID)
	}
}

func TestResolveTargetAlwaysIncluded(t *testing.T) {
	target := gig(9, "Solo", core.NewDate(2026, 7, 10))
	members := Resolve(target, nil)
	if len(members) != 1 || members[0].ID != 9 {
		t.Fatalf("target must resolve to itself, got %v", members)
	}
}
