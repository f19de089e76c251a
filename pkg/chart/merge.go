package chart

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrNoCharts is returned when merging an empty set of charts
	ErrNoCharts = errors.New("no tracks to merge")
	// ErrUnorderedTimes is returned when note times cannot be totally ordered
	ErrUnorderedTimes = errors.New("note times are not comparable")
)

// Merge combines the notes of several charts into one time-ordered chart.
// The first chart is the template: its tempo changes are kept as they are.
// Notes at equal times keep their concatenation order.
func Merge(charts ...Chart) (Chart, error) {
	if len(charts) == 0 {
		return Chart{}, ErrNoCharts
	}

	total := 0
	for _, c := range charts {
		total += len(c.Notes)
	}
	notes := make([]Note, 0, total)
	for _, c := range charts {
		for _, n := range c.Notes {
			if math.IsNaN(n.Time) {
				return Chart{}, ErrUnorderedTimes
			}
			notes = append(notes, n)
		}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Time < notes[j].Time
	})

	merged := charts[0]
	merged.CustomData.BPMChanges = append([]TempoChange{}, charts[0].CustomData.BPMChanges...)
	merged.Notes = notes
	return merged, nil
}
