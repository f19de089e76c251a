// Package converter turns Standard MIDI File event streams into Edda note charts
package converter

// Payload is the content of a single track event. The set of variants is closed:
// NoteOn, NoteOff, Tempo, TimeSignature, TrackName and Other.
type Payload interface {
	payload()
}

// NoteOn is a note-on channel message. A velocity of 0 acts as a note-off.
type NoteOn struct {
	Channel  uint8
	Key      uint8
	Velocity uint8
}

// NoteOff is a note-off channel message
type NoteOff struct {
	Channel  uint8
	Key      uint8
	Velocity uint8
}

// Tempo is a set-tempo meta event
type Tempo struct {
	MicrosPerQuarter uint32
}

// TimeSignature is a time signature meta event. Denominator holds the
// decoded value (4 for x/4), not the power of two stored in the file.
type TimeSignature struct {
	Numerator               uint8
	Denominator             uint8
	ClocksPerClick          uint8
	ThirtySecondsPerQuarter uint8
}

// TrackName is a sequence/track name meta event
type TrackName struct {
	Name string
}

// Other is any event the converter does not interpret
type Other struct{}

func (NoteOn) payload()        {}
func (NoteOff) payload()       {}
func (Tempo) payload()         {}
func (TimeSignature) payload() {}
func (TrackName) payload()     {}
func (Other) payload()         {}

// BPM returns the tempo in quarter notes per minute
func (t Tempo) BPM() float64 {
	return 60 / (float64(t.MicrosPerQuarter) / 1_000_000)
}

// RawEvent is an event as stored in a track: ticks since the previous event plus payload
type RawEvent struct {
	Delta   uint32
	Payload Payload
}

// StampedEvent is an event positioned at an absolute tick within its track
type StampedEvent struct {
	Tick    uint64
	Payload Payload
}

// OffsetEvent is an event of a merged sequence with its delta to the previous merged event
type OffsetEvent struct {
	Delta   uint64
	Payload Payload
}

// Track is one track chunk of a MIDI file
type Track struct {
	Events []RawEvent
}

// Name returns the text of the first track name event, or "" if there is none
func (t Track) Name() string {
	for _, ev := range t.Events {
		if n, ok := ev.Payload.(TrackName); ok {
			return n.Name
		}
	}
	return ""
}

// Timing is the division field of the file header
type Timing struct {
	Metrical        bool
	TicksPerQuarter uint16 // metrical only
	FramesPerSecond uint8  // timecode only
	SubFrames       uint8  // timecode only
}

// MetricalTiming returns a metrical Timing with the given resolution
func MetricalTiming(ticksPerQuarter uint16) Timing {
	return Timing{Metrical: true, TicksPerQuarter: ticksPerQuarter}
}

// Song is a decoded MIDI file
type Song struct {
	Timing Timing
	Tracks []Track
}

// DrumMap maps MIDI pitches to lanes by position in the table
type DrumMap []uint8

// Lane returns the index of the first entry equal to pitch. Pitches missing
// from the table fall back to lane 0 with ok set to false.
func (d DrumMap) Lane(pitch uint8) (lane int, ok bool) {
	for i, p := range d {
		if p == pitch {
			return i, true
		}
	}
	return 0, false
}

// WarningKind classifies a conversion warning
type WarningKind string

const (
	WarnUnmappedPitch WarningKind = "unmapped-pitch"
	WarnTimecode      WarningKind = "timecode"
)

// Warning is a non-fatal anomaly found during conversion
type Warning struct {
	Kind    WarningKind
	Track   string
	Beat    float64 // first occurrence
	Pitch   uint8
	Count   int
	Message string
}
