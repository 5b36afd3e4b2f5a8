package exercise

import (
	"slices"
	"time"

	"github.com/dmitrymomot/fittrack/svc/units"
)

const recentLimit = 5

// Stats are the dashboard numbers.
type Stats struct {
	WorkoutsThisMonth int
	TotalWeight       float64
	Unit              units.Unit
	Recent            []Exercise
	StreakDays        int
}

// ComputeStats summarises list as of now. TotalWeight is the sum of weight
// times sets, each converted into unit.
func ComputeStats(list []Exercise, now time.Time, unit units.Unit) Stats {
	unit = units.OrDefault(unit)
	st := Stats{Unit: unit}

	today := Day(now)
	days := make(map[time.Time]struct{}, len(list))
	for _, e := range list {
		d := Day(e.Date)
		days[d] = struct{}{}
		if d.Year() == today.Year() && d.Month() == today.Month() {
			st.WorkoutsThisMonth++
		}
		st.TotalWeight += units.Convert(e.Volume(), units.OrDefault(e.WeightUnit), unit)
	}

	recent := slices.Clone(list)
	slices.SortStableFunc(recent, func(a, b Exercise) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	st.Recent = recent[:min(recentLimit, len(recent))]

	st.StreakDays = streak(days, today)
	return st
}

// streak counts consecutive days with at least one exercise, ending today,
// or yesterday when nothing is logged yet today.
func streak(days map[time.Time]struct{}, today time.Time) int {
	d := today
	if _, ok := days[d]; !ok {
		d = d.AddDate(0, 0, -1)
		if _, ok := days[d]; !ok {
			return 0
		}
	}
	n := 0
	for {
		if _, ok := days[d]; !ok {
			return n
		}
		n++
		d = d.AddDate(0, 0, -1)
	}
}
