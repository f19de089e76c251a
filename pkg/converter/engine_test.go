package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDrums = DrumMap{60, 61, 62, 63}

func raw(delta uint32, p Payload) RawEvent {
	return RawEvent{Delta: delta, Payload: p}
}

func at(tick uint64, p Payload) StampedEvent {
	return StampedEvent{Tick: tick, Payload: p}
}

func on(key uint8) NoteOn {
	return NoteOn{Channel: 9, Key: key, Velocity: 100}
}

func tempoBPM(bpm float64) Tempo {
	return Tempo{MicrosPerQuarter: uint32(60_000_000 / bpm)}
}

func TestStampAccumulatesDeltas(t *testing.T) {
	deltas := []uint32{0, 10, 0, 480, 7}
	events := make([]RawEvent, len(deltas))
	for i, d := range deltas {
		events[i] = raw(d, Other{})
	}

	stamped := Stamp(events)
	require.Len(t, stamped, len(deltas))

	var sum uint64
	for k, d := range deltas {
		sum += uint64(d)
		assert.Equal(t, sum, stamped[k].Tick, "event %d", k)
	}
	assert.Empty(t, Stamp(nil))
}

func TestIsDataTrack(t *testing.T) {
	tests := []struct {
		name   string
		events []StampedEvent
		want   bool
	}{
		{"empty", nil, true},
		{"meta only", []StampedEvent{at(0, TrackName{"Conductor"}), at(0, tempoBPM(120)), at(0, TimeSignature{Numerator: 3})}, true},
		{"note on", []StampedEvent{at(0, tempoBPM(120)), at(10, on(60))}, false},
		{"note off only", []StampedEvent{at(10, NoteOff{Key: 60})}, false},
		{"silent note on", []StampedEvent{at(0, NoteOn{Key: 60})}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDataTrack(tt.events))
		})
	}
}

func TestExtractMeta(t *testing.T) {
	tracks := [][]StampedEvent{
		{at(0, TrackName{"Conductor"}), at(0, tempoBPM(120)), at(960, TimeSignature{Numerator: 3})},
		{at(0, on(60)), at(480, tempoBPM(90)), at(480, Other{})},
	}

	pool := ExtractMeta(tracks)

	assert.Equal(t, []StampedEvent{
		at(0, tempoBPM(120)),
		at(960, TimeSignature{Numerator: 3}),
		at(480, tempoBPM(90)),
	}, pool)
}

func TestMergeMetaSortsStablyAndRebuildsDeltas(t *testing.T) {
	own := []StampedEvent{at(0, on(60)), at(480, on(61)), at(960, on(62))}
	pool := []StampedEvent{at(960, tempoBPM(90)), at(480, tempoBPM(120)), at(0, TimeSignature{Numerator: 4})}

	merged := MergeMeta(own, pool)

	assert.Equal(t, []OffsetEvent{
		{Delta: 0, Payload: on(60)},
		{Delta: 0, Payload: TimeSignature{Numerator: 4}},
		{Delta: 480, Payload: on(61)},
		{Delta: 0, Payload: tempoBPM(120)},
		{Delta: 480, Payload: on(62)},
		{Delta: 0, Payload: tempoBPM(90)},
	}, merged)
}

func TestMergeMetaFirstDeltaIsZero(t *testing.T) {
	merged := MergeMeta([]StampedEvent{at(100, on(60)), at(250, on(61))}, nil)

	require.Len(t, merged, 2)
	assert.Equal(t, uint64(0), merged[0].Delta)
	assert.Equal(t, uint64(150), merged[1].Delta)
}

func TestConvertQuarterNotes(t *testing.T) {
	events := MergeMeta([]StampedEvent{
		at(0, tempoBPM(120)),
		at(0, on(60)),
		at(480, on(61)),
		at(960, on(62)),
		at(1440, on(63)),
	}, []StampedEvent{at(0, tempoBPM(120))})

	res, err := Convert(events, MetricalTiming(480), testDrums)
	require.NoError(t, err)

	require.Len(t, res.TempoChanges, 1)
	tc := res.TempoChanges[0]
	assert.Equal(t, 120.0, tc.BPM)
	assert.Equal(t, 0.0, tc.Time)
	assert.Equal(t, int64(4), tc.BeatsPerBar)
	assert.Equal(t, int64(4), tc.MetronomeOffset)

	require.Len(t, res.Notes, 4)
	for i, n := range res.Notes {
		assert.Equal(t, float64(i), n.Time)
		assert.Equal(t, int64(i), n.LineIndex)
		assert.Equal(t, int64(1), n.LineLayer)
		assert.Equal(t, int64(0), n.Type)
		assert.Equal(t, int64(1), n.CutDirection)
	}
	assert.Empty(t, res.Warnings)
	assert.Equal(t, uint64(1440), res.Ticks)
	assert.InDelta(t, 1.5, res.Length.Seconds(), 1e-6)
}

func TestConvertTempoUpsert(t *testing.T) {
	t.Run("same beat overwrites", func(t *testing.T) {
		res, err := Convert([]OffsetEvent{
			{Delta: 0, Payload: tempoBPM(120)},
			{Delta: 0, Payload: tempoBPM(150)},
		}, MetricalTiming(480), testDrums)
		require.NoError(t, err)

		require.Len(t, res.TempoChanges, 1)
		assert.Equal(t, tempoBPM(150).BPM(), res.TempoChanges[0].BPM)
	})

	t.Run("different beats append in order", func(t *testing.T) {
		res, err := Convert([]OffsetEvent{
			{Delta: 0, Payload: tempoBPM(120)},
			{Delta: 0, Payload: TimeSignature{Numerator: 3, Denominator: 4}},
			{Delta: 960, Payload: tempoBPM(60)},
		}, MetricalTiming(480), testDrums)
		require.NoError(t, err)

		require.Len(t, res.TempoChanges, 2)
		assert.Equal(t, 120.0, res.TempoChanges[0].BPM)
		assert.Equal(t, 0.0, res.TempoChanges[0].Time)
		assert.Equal(t, int64(3), res.TempoChanges[0].BeatsPerBar)
		assert.Equal(t, 60.0, res.TempoChanges[1].BPM)
		assert.Equal(t, 2.0, res.TempoChanges[1].Time)
		assert.Equal(t, int64(3), res.TempoChanges[1].BeatsPerBar, "meter carries forward")
		assert.Equal(t, int64(3), res.TempoChanges[1].MetronomeOffset)
	})
}

func TestConvertTimeSignature(t *testing.T) {
	t.Run("first entry defaults to 120 bpm", func(t *testing.T) {
		res, err := Convert([]OffsetEvent{
			{Delta: 0, Payload: TimeSignature{Numerator: 7, Denominator: 8}},
		}, MetricalTiming(480), testDrums)
		require.NoError(t, err)

		require.Len(t, res.TempoChanges, 1)
		assert.Equal(t, 120.0, res.TempoChanges[0].BPM)
		assert.Equal(t, int64(7), res.TempoChanges[0].BeatsPerBar)
		assert.Equal(t, int64(7), res.TempoChanges[0].MetronomeOffset)
	})

	t.Run("later change carries bpm forward", func(t *testing.T) {
		res, err := Convert([]OffsetEvent{
			{Delta: 0, Payload: tempoBPM(90)},
			{Delta: 1920, Payload: TimeSignature{Numerator: 6, Denominator: 8}},
		}, MetricalTiming(480), testDrums)
		require.NoError(t, err)

		require.Len(t, res.TempoChanges, 2)
		assert.Equal(t, tempoBPM(90).BPM(), res.TempoChanges[1].BPM)
		assert.Equal(t, 4.0, res.TempoChanges[1].Time)
		assert.Equal(t, int64(6), res.TempoChanges[1].BeatsPerBar)
	})
}

func TestConvertSuppressesNoteEnds(t *testing.T) {
	res, err := Convert([]OffsetEvent{
		{Delta: 0, Payload: tempoBPM(120)},
		{Delta: 0, Payload: NoteOn{Key: 60, Velocity: 0}},
		{Delta: 10, Payload: NoteOff{Key: 61, Velocity: 64}},
		{Delta: 10, Payload: Other{}},
		{Delta: 10, Payload: TrackName{"x"}},
	}, MetricalTiming(480), testDrums)
	require.NoError(t, err)

	assert.Empty(t, res.Notes)
}

func TestConvertUnmappedPitchFallsBackToLaneZero(t *testing.T) {
	res, err := Convert([]OffsetEvent{
		{Delta: 0, Payload: tempoBPM(120)},
		{Delta: 0, Payload: on(35)},
		{Delta: 480, Payload: on(35)},
		{Delta: 480, Payload: on(62)},
	}, MetricalTiming(480), testDrums)
	require.NoError(t, err)

	require.Len(t, res.Notes, 3)
	assert.Equal(t, int64(0), res.Notes[0].LineIndex)
	assert.Equal(t, int64(0), res.Notes[1].LineIndex)
	assert.Equal(t, int64(2), res.Notes[2].LineIndex)

	require.Len(t, res.Warnings, 1)
	w := res.Warnings[0]
	assert.Equal(t, WarnUnmappedPitch, w.Kind)
	assert.Equal(t, uint8(35), w.Pitch)
	assert.Equal(t, 2, w.Count)
	assert.Equal(t, 0.0, w.Beat)
}

func TestConvertNoBeatsBeforeFirstTempo(t *testing.T) {
	res, err := Convert([]OffsetEvent{
		{Delta: 0, Payload: on(60)},
		{Delta: 960, Payload: tempoBPM(120)},
		{Delta: 960, Payload: on(61)},
	}, MetricalTiming(480), testDrums)
	require.NoError(t, err)

	require.Len(t, res.Notes, 2)
	assert.Equal(t, 0.0, res.Notes[0].Time)
	assert.Equal(t, 2.0, res.Notes[1].Time)
	require.Len(t, res.TempoChanges, 1)
	assert.Equal(t, 0.0, res.TempoChanges[0].Time)
}

func TestConvertBeatsAreMonotonic(t *testing.T) {
	var events []OffsetEvent
	for i := 0; i < 64; i++ {
		var p Payload = on(uint8(60 + i%4))
		if i%9 == 0 {
			p = tempoBPM(float64(60 + i))
		}
		events = append(events, OffsetEvent{Delta: uint64(i%5) * 120, Payload: p})
	}

	res, err := Convert(events, MetricalTiming(480), testDrums)
	require.NoError(t, err)

	for i := 1; i < len(res.Notes); i++ {
		assert.GreaterOrEqual(t, res.Notes[i].Time, res.Notes[i-1].Time)
	}
	for i := 1; i < len(res.TempoChanges); i++ {
		assert.Greater(t, res.TempoChanges[i].Time, res.TempoChanges[i-1].Time)
	}
}

func TestConvertTempoChangesRealTime(t *testing.T) {
	res, err := Convert([]OffsetEvent{
		{Delta: 0, Payload: tempoBPM(120)},
		{Delta: 960, Payload: tempoBPM(60)},
		{Delta: 960, Payload: on(60)},
	}, MetricalTiming(480), testDrums)
	require.NoError(t, err)

	assert.InDelta(t, (3 * time.Second).Seconds(), res.Length.Seconds(), 1e-6)
	assert.Equal(t, 4.0, res.Beats)
}

func TestConvertTimecode(t *testing.T) {
	timing := Timing{FramesPerSecond: 25, SubFrames: 40}
	res, err := Convert([]OffsetEvent{
		{Delta: 0, Payload: tempoBPM(120)},
		{Delta: 0, Payload: on(60)},
		{Delta: 500, Payload: on(61)},
		{Delta: 500, Payload: tempoBPM(60)},
		{Delta: 1000, Payload: on(62)},
	}, timing, testDrums)
	require.NoError(t, err)

	require.Len(t, res.Notes, 3)
	assert.InDelta(t, 0.0, res.Notes[0].Time, 1e-9)
	assert.InDelta(t, 1.0, res.Notes[1].Time, 1e-9)
	assert.InDelta(t, 3.0, res.Notes[2].Time, 1e-9)
	require.Len(t, res.TempoChanges, 2)
	assert.Equal(t, 120.0, res.TempoChanges[0].BPM)
	assert.Equal(t, 60.0, res.TempoChanges[1].BPM)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnTimecode, res.Warnings[0].Kind)
}

func TestConvertMalformed(t *testing.T) {
	tests := []struct {
		name   string
		timing Timing
		events []OffsetEvent
	}{
		{"zero tempo", MetricalTiming(480), []OffsetEvent{{Payload: Tempo{}}}},
		{"zero resolution", MetricalTiming(0), []OffsetEvent{{Payload: tempoBPM(120)}}},
		{"zero frame rate", Timing{SubFrames: 40}, []OffsetEvent{{Payload: tempoBPM(120)}}},
		{"nil payload", MetricalTiming(480), []OffsetEvent{{Payload: nil}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Convert(tt.events, tt.timing, testDrums)
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestDrumMapLane(t *testing.T) {
	drums := DrumMap{36, 38, 36}

	lane, ok := drums.Lane(36)
	assert.True(t, ok)
	assert.Equal(t, 0, lane, "first match wins")

	lane, ok = drums.Lane(38)
	assert.True(t, ok)
	assert.Equal(t, 1, lane)

	lane, ok = drums.Lane(99)
	assert.False(t, ok)
	assert.Equal(t, 0, lane)
}

func TestTempoBPM(t *testing.T) {
	assert.Equal(t, 120.0, Tempo{MicrosPerQuarter: 500000}.BPM())
	assert.Equal(t, 60.0, Tempo{MicrosPerQuarter: 1000000}.BPM())
}
