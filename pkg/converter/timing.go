package converter

import (
	"errors"
	"fmt"
	"time"

	"github.com/james-see/midi2edda/pkg/chart"
)

// ErrMalformedEvent is returned when event data cannot be converted to beat time
var ErrMalformedEvent = errors.New("malformed event")

// Result is the output of converting one merged track
type Result struct {
	Notes        []chart.Note
	TempoChanges []chart.TempoChange
	Warnings     []Warning
	Ticks        uint64        // ticks elapsed at the last event
	Beats        float64       // beat position of the last event
	Length       time.Duration // real time at the last event
}

// timeline is the running state of a conversion pass
type timeline struct {
	timing       Timing
	drums        DrumMap
	ticksElapsed uint64
	tickLen      float64 // microseconds per tick under the active tempo
	beatLen      float64 // ticks per quarter note under the active tempo; 0 until the first tempo
	beat         float64
	micros       float64

	result         Result
	unmapped       map[uint8]int // pitch -> index into result.Warnings
	timecodeWarned bool
}

// Convert walks a merged offset sequence once and produces beat-timed notes
// and the tempo/time signature timeline.
func Convert(events []OffsetEvent, timing Timing, drums DrumMap) (*Result, error) {
	tl := &timeline{
		timing:   timing,
		drums:    drums,
		unmapped: make(map[uint8]int),
	}
	for _, ev := range events {
		if err := tl.step(ev); err != nil {
			return nil, err
		}
	}
	tl.result.Ticks = tl.ticksElapsed
	tl.result.Beats = tl.beat
	tl.result.Length = time.Duration(tl.micros * float64(time.Microsecond))
	return &tl.result, nil
}

func (tl *timeline) step(ev OffsetEvent) error {
	tl.ticksElapsed += ev.Delta
	tl.micros += float64(ev.Delta) * tl.tickLen
	if tl.beatLen != 0 {
		tl.beat += float64(ev.Delta) / tl.beatLen
	}

	switch p := ev.Payload.(type) {
	case NoteOn:
		if p.Velocity > 0 {
			tl.note(p.Key)
		}
	case NoteOff:
	case Tempo:
		return tl.tempo(p)
	case TimeSignature:
		tl.timeSignature(p)
	case TrackName, Other:
	default:
		return fmt.Errorf("%w: unknown payload %T at tick %d", ErrMalformedEvent, p, tl.ticksElapsed)
	}
	return nil
}

func (tl *timeline) note(key uint8) {
	lane, ok := tl.drums.Lane(key)
	if !ok {
		if i, seen := tl.unmapped[key]; seen {
			tl.result.Warnings[i].Count++
		} else {
			tl.unmapped[key] = len(tl.result.Warnings)
			tl.result.Warnings = append(tl.result.Warnings, Warning{
				Kind:    WarnUnmappedPitch,
				Beat:    tl.beat,
				Pitch:   key,
				Count:   1,
				Message: fmt.Sprintf("pitch %d is not in the drum map, using lane 0", key),
			})
		}
	}
	tl.result.Notes = append(tl.result.Notes, chart.NewNote(tl.beat, lane))
}

func (tl *timeline) tempo(t Tempo) error {
	if t.MicrosPerQuarter == 0 {
		return fmt.Errorf("%w: zero tempo at tick %d", ErrMalformedEvent, tl.ticksElapsed)
	}
	uspq := float64(t.MicrosPerQuarter)

	if tl.timing.Metrical {
		if tl.timing.TicksPerQuarter == 0 {
			return fmt.Errorf("%w: zero ticks per quarter note", ErrMalformedEvent)
		}
		tpq := float64(tl.timing.TicksPerQuarter)
		tl.tickLen = uspq / tpq
		tl.beatLen = tpq
	} else {
		ticksPerSecond := float64(tl.timing.FramesPerSecond) * float64(tl.timing.SubFrames)
		if ticksPerSecond == 0 {
			return fmt.Errorf("%w: timecode timing with %d fps and %d subframes",
				ErrMalformedEvent, tl.timing.FramesPerSecond, tl.timing.SubFrames)
		}
		if !tl.timecodeWarned {
			tl.timecodeWarned = true
			tl.result.Warnings = append(tl.result.Warnings, Warning{
				Kind:    WarnTimecode,
				Beat:    tl.beat,
				Message: "timecode timing is not tested, use metrical timing for best results",
			})
		}
		tl.tickLen = 1_000_000 / ticksPerSecond
		tl.beatLen = uspq / tl.tickLen
	}

	bpm := t.BPM()
	changes := tl.result.TempoChanges
	if n := len(changes); n > 0 {
		last := &changes[n-1]
		if last.Time == tl.beat {
			last.BPM = bpm
			return nil
		}
		next := *last
		next.BPM = bpm
		next.Time = tl.beat
		tl.result.TempoChanges = append(changes, next)
		return nil
	}
	tl.result.TempoChanges = append(changes, chart.TempoChange{
		BPM:             bpm,
		Time:            tl.beat,
		BeatsPerBar:     4,
		MetronomeOffset: 4,
	})
	return nil
}

// timeSignature records the numerator as both beats per bar and metronome offset
func (tl *timeline) timeSignature(ts TimeSignature) {
	num := int64(ts.Numerator)
	changes := tl.result.TempoChanges
	if n := len(changes); n > 0 {
		last := &changes[n-1]
		if last.Time == tl.beat {
			last.BeatsPerBar = num
			last.MetronomeOffset = num
			return
		}
		next := *last
		next.BeatsPerBar = num
		next.MetronomeOffset = num
		next.Time = tl.beat
		tl.result.TempoChanges = append(changes, next)
		return
	}
	tl.result.TempoChanges = append(changes, chart.TempoChange{
		BPM:             120,
		Time:            tl.beat,
		BeatsPerBar:     num,
		MetronomeOffset: num,
	})
}
