package converter

import "sort"

// MergeMeta folds the pooled meta events into one track's own events.
//
// The track's events come first, so at equal ticks they stay ahead of pooled
// events after the stable sort. Deltas are rebuilt against the previous event
// of the merged sequence; the first delta is 0.
func MergeMeta(own, pool []StampedEvent) []OffsetEvent {
	merged := make([]StampedEvent, 0, len(own)+len(pool))
	merged = append(merged, own...)
	merged = append(merged, pool...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Tick < merged[j].Tick
	})

	offsets := make([]OffsetEvent, len(merged))
	for i, ev := range merged {
		var delta uint64
		if i > 0 {
			delta = ev.Tick - merged[i-1].Tick
		}
		offsets[i] = OffsetEvent{Delta: delta, Payload: ev.Payload}
	}
	return offsets
}
